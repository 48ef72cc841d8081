package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/aiproxy-core/core/events"
	"github.com/koscakluka/aiproxy-core/core/realtime"
	"github.com/muesli/reflow/wordwrap"
)

const maxTranscriptLines = 500

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff7b72"))
)

type speaker int

const (
	speakerUser speaker = iota
	speakerAssistant
	speakerSystem
)

type entry struct {
	speaker speaker
	text    string
	open    bool
}

type sessionEventMsg struct{ event events.Event }

type sessionClosedMsg struct{}

type sendResultMsg struct{ err error }

type model struct {
	ctx           context.Context
	engine        *realtime.Engine
	sessionEvents <-chan events.Event

	input      textinput.Model
	transcript viewport.Model
	entries    []entry

	state    string
	speaking bool
	width    int
	height   int
	ready    bool
}

func newModel(ctx context.Context, engine *realtime.Engine, sessionEvents <-chan events.Event) model {
	input := textinput.New()
	input.Placeholder = "Say something..."
	input.Prompt = "> "
	input.Focus()

	return model{
		ctx:           ctx,
		engine:        engine,
		sessionEvents: sessionEvents,
		input:         input,
		state:         engine.State().String(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen())
}

func (m model) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case event := <-m.sessionEvents:
			return sessionEventMsg{event: event}
		case <-m.engine.Done():
			return sessionClosedMsg{}
		}
	}
}

func (m model) send(text string) tea.Cmd {
	return func() tea.Msg {
		if err := m.engine.SendUserText(m.ctx, text); err != nil {
			return sendResultMsg{err: err}
		}
		return sendResultMsg{err: m.engine.TriggerResponse(m.ctx, nil)}
	}
}

func (m model) cancel() tea.Cmd {
	return func() tea.Msg {
		return sendResultMsg{err: m.engine.CancelResponse(m.ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlX:
			cmds = append(cmds, m.cancel())
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				m.input.Reset()
				m.appendEntry(entry{speaker: speakerUser, text: text})
				cmds = append(cmds, m.send(text))
			}
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		height := max(1, msg.Height-4)
		if !m.ready {
			m.transcript = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.transcript.Width = msg.Width
			m.transcript.Height = height
		}
		m.input.Width = max(1, msg.Width-4)
		m.render()

	case sessionEventMsg:
		m.handleEvent(msg.event)
		cmds = append(cmds, m.listen())

	case sessionClosedMsg:
		m.state = m.engine.State().String()
		if err := m.engine.Err(); err != nil {
			m.appendEntry(entry{speaker: speakerSystem, text: "session closed: " + err.Error()})
		}

	case sendResultMsg:
		if msg.err != nil {
			m.appendEntry(entry{speaker: speakerSystem, text: "failed to send: " + msg.err.Error()})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.transcript, cmd = m.transcript.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

type deltaPayload struct {
	Delta      string `json:"delta"`
	Transcript string `json:"transcript"`
}

func (m *model) handleEvent(event events.Event) {
	switch e := event.(type) {
	case events.SessionStateChanged:
		m.state = e.State
	case events.PlaybackStarted:
		m.speaking = true
	case events.PlaybackEnded:
		m.speaking = false
	case events.PlaybackFailed:
		m.appendEntry(entry{speaker: speakerSystem, text: "playback failed: " + e.Err.Error()})
	case events.DecodeFailed:
		m.appendEntry(entry{speaker: speakerSystem, text: "undecodable message: " + e.Err.Error()})
	case events.ProviderError:
		m.appendEntry(entry{speaker: speakerSystem, text: e.Error()})
	case events.ProviderEvent:
		m.handleProviderEvent(e)
	}
}

func (m *model) handleProviderEvent(event events.ProviderEvent) {
	var payload deltaPayload
	switch event.Type {
	case "response.text.delta", "response.audio_transcript.delta":
		if err := json.Unmarshal(event.Raw, &payload); err != nil {
			return
		}
		m.appendDelta(payload.Delta)
	case "conversation.item.input_audio_transcription.completed":
		if err := json.Unmarshal(event.Raw, &payload); err != nil {
			return
		}
		if text := strings.TrimSpace(payload.Transcript); text != "" {
			m.appendEntry(entry{speaker: speakerUser, text: text})
		}
	case "response.done":
		if n := len(m.entries); n > 0 {
			m.entries[n-1].open = false
		}
	}
}

func (m *model) appendDelta(delta string) {
	if n := len(m.entries); n > 0 && m.entries[n-1].speaker == speakerAssistant && m.entries[n-1].open {
		m.entries[n-1].text += delta
		m.render()
		return
	}
	m.appendEntry(entry{speaker: speakerAssistant, text: delta, open: true})
}

func (m *model) appendEntry(e entry) {
	if n := len(m.entries); n > 0 {
		m.entries[n-1].open = false
	}
	m.entries = append(m.entries, e)
	if len(m.entries) > maxTranscriptLines {
		m.entries = m.entries[len(m.entries)-maxTranscriptLines:]
	}
	m.render()
}

func (m *model) render() {
	if !m.ready {
		return
	}

	width := max(10, m.transcript.Width-2)
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		var label string
		switch e.speaker {
		case speakerUser:
			label = userStyle.Render("you")
		case speakerAssistant:
			label = assistantStyle.Render("assistant")
		default:
			lines = append(lines, errorStyle.Render(wordwrap.String(e.text, width)))
			continue
		}
		lines = append(lines, label+"\n"+wordwrap.String(e.text, width))
	}
	m.transcript.SetContent(strings.Join(lines, "\n\n"))
	m.transcript.GotoBottom()
}

func (m model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	status := m.state
	if m.speaking {
		status += ", speaking"
	}
	if id := m.engine.SessionID(); id != "" {
		status += ", " + id
	}
	header := titleStyle.Render("realtime chat") + statusStyle.Render(fmt.Sprintf("[%s]", status))
	help := statusStyle.Render("enter: send  ctrl+x: cancel response  esc: quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, m.transcript.View(), m.input.View(), help)
}
