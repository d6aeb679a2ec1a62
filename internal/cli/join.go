package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dodger215/e-learnig-app/internal/config"
	"github.com/dodger215/e-learnig-app/internal/media"
	"github.com/dodger215/e-learnig-app/internal/meeting"
	"github.com/dodger215/e-learnig-app/internal/signaling"
	"github.com/dodger215/e-learnig-app/internal/ui"
)

const joinTimeout = 10 * time.Second

var (
	flagDomain   string
	flagSTUN     string
	flagToken    string
	flagName     string
	flagInsecure bool
)

var joinCmd = &cobra.Command{
	Use:     "join <meeting-id>",
	Aliases: []string{"j"},
	Short:   "Join a meeting room",
	Long: `Join a meeting room and negotiate WebRTC sessions with every participant.

Examples:
  meet join daily-standup
  meet join --name "Alice" --domain meet.example.com daily-standup
  meet join --insecure --domain localhost:5000 daily-standup`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinMeeting(args[0])
	},
}

func joinMeeting(meetingID string) error {
	cfg, err := config.Load(config.Options{
		Domain:      flagDomain,
		STUNServers: flagSTUN,
		AuthToken:   flagToken,
		DisplayName: flagName,
		Insecure:    flagInsecure,
	})
	if err != nil {
		return err
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to server...")
	defer stopSpinner()

	client := signaling.NewClient(cfg.WebSocketURL, cfg.AuthToken)
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect to server: %w", err)
	}
	defer client.Close()

	room := meeting.NewRoom(meeting.RoomConfig{
		MeetingID:   meetingID,
		DisplayName: cfg.DisplayName,
		STUNServers: cfg.STUNServers,
	}, client, media.NewSyntheticProvider(meetingID))

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()
	if err := room.Join(ctx); err != nil {
		return fmt.Errorf("join meeting: %w", err)
	}
	stopSpinner()

	ui.PrintSuccess(fmt.Sprintf("Joined meeting %s as %s", meetingID, cfg.DisplayName))

	console := ui.NewConsole(room)
	final, err := tea.NewProgram(console).Run()
	room.Leave()
	if err != nil {
		return fmt.Errorf("run console: %w", err)
	}

	peersSeen := 0
	if c, ok := final.(ui.Console); ok {
		peersSeen = c.PeersSeen()
	}

	ui.RenderSessionSummary(ui.SessionSummary{
		MeetingID:    meetingID,
		Duration:     time.Since(room.JoinedAt()).Round(time.Second).String(),
		PeersSeen:    peersSeen,
		ChatMessages: len(room.Chat()),
	})

	return nil
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagDomain, "domain", "d", "", "Custom signaling server domain")
	joinCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Comma-separated STUN server URLs")
	joinCmd.Flags().StringVarP(&flagToken, "token", "t", "", "Bearer token for the signaling server")
	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name shown to other participants")
	joinCmd.Flags().BoolVar(&flagInsecure, "insecure", false, "Use ws:// instead of wss:// (local development)")
}
