package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ParticipantRow is one remote participant in the console table.
type ParticipantRow struct {
	ID        string
	Name      string
	Connected bool
	AudioOn   bool
	VideoOn   bool
	Sharing   bool
}

// ParticipantTableView renders the remote participants with their media
// indicators.
func ParticipantTableView(rows []ParticipantRow) string {
	if len(rows) == 0 {
		return MutedStyle.Render("No other participants yet")
	}

	headers := []string{"Participant", "Status", "Mic", "Cam", "Share"}

	var body [][]string
	for _, r := range rows {
		name := r.Name
		if name == "" {
			name = shortID(r.ID)
		}

		status := IconWaiting
		if r.Connected {
			status = IconSuccess
		}

		mic := IconMuted
		if r.AudioOn {
			mic = IconMic
		}
		cam := "—"
		if r.VideoOn {
			cam = IconCamera
		}
		share := "—"
		if r.Sharing {
			share = IconScreen
		}

		body = append(body, []string{name, status, mic, cam, share})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(body...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// SessionSummary is printed after leaving a meeting.
type SessionSummary struct {
	MeetingID    string
	Duration     string
	PeersSeen    int
	ChatMessages int
}

// SessionSummaryView renders the post-meeting stats table.
func SessionSummaryView(s SessionSummary) string {
	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.SetTitle("Meeting Summary")
	t.AppendRows([]prettytable.Row{
		{"Meeting", s.MeetingID},
		{"Duration", s.Duration},
		{"Participants seen", s.PeersSeen},
		{"Chat messages", s.ChatMessages},
	})
	return t.Render()
}

// RenderSessionSummary outputs the summary directly to stdout.
func RenderSessionSummary(s SessionSummary) {
	fmt.Println(SessionSummaryView(s))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
