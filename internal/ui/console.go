package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dodger215/e-learnig-app/internal/meeting"
)

const chatHistoryLines = 8

type participantInfo struct {
	name      string
	connected bool
	audioOn   bool
	videoOn   bool
	sharing   bool
}

type roomClosedMsg struct{}

// Console is the interactive meeting view: participant table, chat pane and
// media toggles. It renders textual status only; video tiles belong to the
// web client.
type Console struct {
	room   *meeting.Room
	events <-chan meeting.Event

	input        textinput.Model
	participants map[string]*participantInfo
	chat         []meeting.ChatMessage
	peersSeen    int
	status       string
	quitting     bool
}

// NewConsole builds the console for a joined room.
func NewConsole(room *meeting.Room) Console {
	input := textinput.New()
	input.Placeholder = "press i to chat"
	input.CharLimit = 500

	return Console{
		room:         room,
		events:       room.Events(),
		input:        input,
		participants: make(map[string]*participantInfo),
		status:       "waiting for participants",
	}
}

// PeersSeen reports how many distinct participants appeared during the
// meeting, for the exit summary.
func (c Console) PeersSeen() int {
	return c.peersSeen
}

func (c Console) Init() tea.Cmd {
	return c.waitForEvent()
}

func (c Console) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-c.events
		if !ok {
			return roomClosedMsg{}
		}
		return ev
	}
}

func (c Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return c.handleKey(msg)

	case roomClosedMsg:
		c.quitting = true
		return c, tea.Quit

	case meeting.Event:
		c.handleRoomEvent(msg)
		return c, c.waitForEvent()
	}

	return c, nil
}

func (c Console) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if c.input.Focused() {
		switch msg.String() {
		case "enter":
			if text := strings.TrimSpace(c.input.Value()); text != "" {
				c.room.SendChat(text)
				c.chat = c.room.Chat()
			}
			c.input.Reset()
			c.input.Blur()
			return c, nil
		case "esc":
			c.input.Reset()
			c.input.Blur()
			return c, nil
		case "ctrl+c":
			return c.quit()
		default:
			var cmd tea.Cmd
			c.input, cmd = c.input.Update(msg)
			return c, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return c.quit()
	case "i":
		c.input.Focus()
		return c, textinput.Blink
	case "m":
		on := c.room.ToggleAudio()
		c.status = flagStatus("microphone", on)
	case "v":
		on := c.room.ToggleVideo()
		c.status = flagStatus("camera", on)
	case "s":
		sharing, err := c.room.ToggleScreenShare()
		if err != nil {
			c.status = "screen share failed: " + err.Error()
		} else {
			c.status = flagStatus("screen share", sharing)
		}
	}
	return c, nil
}

func (c Console) quit() (tea.Model, tea.Cmd) {
	c.quitting = true
	c.room.Leave()
	return c, tea.Quit
}

func (c *Console) handleRoomEvent(ev meeting.Event) {
	switch ev := ev.(type) {
	case meeting.ParticipantJoined:
		if _, ok := c.participants[ev.RemoteID]; !ok {
			c.participants[ev.RemoteID] = &participantInfo{audioOn: true, videoOn: true}
			c.peersSeen++
		}
		c.status = "participant joined"

	case meeting.ParticipantLeft:
		delete(c.participants, ev.RemoteID)
		c.status = "participant left"

	case meeting.SessionConnected:
		if p, ok := c.participants[ev.RemoteID]; ok {
			p.connected = true
		}
		c.status = "participant connected"

	case meeting.RemoteStateChanged:
		p, ok := c.participants[ev.RemoteID]
		if !ok {
			p = &participantInfo{}
			c.participants[ev.RemoteID] = p
		}
		p.name = ev.State.DisplayName
		p.audioOn = ev.State.AudioOn
		p.videoOn = ev.State.VideoOn
		p.sharing = ev.State.SharingScreen

	case meeting.ChatReceived:
		c.chat = c.room.Chat()

	case meeting.SignalingError:
		c.status = "server: " + ev.Message
	}
}

func (c Console) View() string {
	if c.quitting {
		return ""
	}

	var b strings.Builder

	title := fmt.Sprintf("Meeting %s", c.room.MeetingID())
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	b.WriteString(ParticipantTableView(c.participantRows()))
	b.WriteString("\n\n")

	b.WriteString(BoldStyle.Render(IconChat + " Chat"))
	b.WriteString("\n")
	b.WriteString(c.chatView())
	b.WriteString("\n")
	b.WriteString(c.input.View())
	b.WriteString("\n\n")

	b.WriteString(c.statusBar())
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("m mic · v camera · s share · i chat · q leave"))
	b.WriteString("\n")

	return b.String()
}

func (c Console) participantRows() []ParticipantRow {
	ids := make([]string, 0, len(c.participants))
	for id := range c.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]ParticipantRow, 0, len(ids))
	for _, id := range ids {
		p := c.participants[id]
		rows = append(rows, ParticipantRow{
			ID:        id,
			Name:      p.name,
			Connected: p.connected,
			AudioOn:   p.audioOn,
			VideoOn:   p.videoOn,
			Sharing:   p.sharing,
		})
	}
	return rows
}

func (c Console) chatView() string {
	if len(c.chat) == 0 {
		return MutedStyle.Render("  no messages")
	}

	start := 0
	if len(c.chat) > chatHistoryLines {
		start = len(c.chat) - chatHistoryLines
	}

	var lines []string
	for _, msg := range c.chat[start:] {
		ts := msg.Timestamp.Format("15:04")
		lines = append(lines, fmt.Sprintf("  %s %s: %s",
			MutedStyle.Render(ts),
			BoldStyle.Render(msg.SenderName),
			msg.Text,
		))
	}
	return strings.Join(lines, "\n")
}

func (c Console) statusBar() string {
	st := c.room.MediaState()

	mic := IconMuted
	if st.AudioOn {
		mic = IconMic
	}
	cam := "cam off"
	if st.VideoOn {
		cam = IconCamera
	}
	share := ""
	if st.SharingScreen {
		share = " " + IconScreen
	}

	left := StatusBarStyle.Render(fmt.Sprintf("%s %s%s", mic, cam, share))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", MutedStyle.Render(c.status))
}

func flagStatus(what string, on bool) string {
	if on {
		return what + " on"
	}
	return what + " off"
}
