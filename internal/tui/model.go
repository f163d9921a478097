// Package tui is the terminal front end: a transcript view, an upload list
// and a multi-line question box.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"docchat/internal/input"
	"docchat/internal/query"
	"docchat/internal/transcript"
	"docchat/internal/uploads"
)

const uploadCommand = "/upload"

// Deps are the long-lived components the model drives.
type Deps struct {
	Transcript *transcript.Store
	Tracker    *uploads.Tracker
	Controller *input.Controller
	// Accept lists the file extensions the picker allows, e.g. ".pdf".
	Accept []string
}

type Model struct {
	ctx  context.Context
	deps Deps

	textarea textarea.Model
	picker   textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   styles

	picking bool
	notice  string
	width   int
	height  int
	ready   bool
}

type (
	transcriptChangedMsg struct{}
	uploadsChangedMsg    struct{}
	answerMsg            query.Result
	uploadDoneMsg        uploads.Outcome
	fileReadMsg          struct {
		file uploads.File
		err  error
	}
)

func New(ctx context.Context, deps Deps) Model {
	if ctx == nil {
		ctx = context.Background()
	}

	ta := textarea.New()
	ta.Placeholder = "Ask about your documents... (Enter to send, Alt+Enter for a new line)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	// Plain Enter belongs to the input controller.
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	pi := textinput.New()
	pi.Placeholder = "path/to/document" + firstOr(deps.Accept, ".pdf")
	pi.Prompt = "Upload: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		deps:     deps,
		textarea: ta,
		picker:   pi,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		styles:   defaultStyles(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		listen(m.deps.Transcript.Changes(), transcriptChangedMsg{}),
		listen(m.deps.Tracker.Changes(), uploadsChangedMsg{}),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case transcriptChangedMsg:
		m.refreshTranscript()
		return m, listen(m.deps.Transcript.Changes(), transcriptChangedMsg{})

	case uploadsChangedMsg:
		m.resize(m.width, m.height)
		return m, listen(m.deps.Tracker.Changes(), uploadsChangedMsg{})

	case answerMsg:
		m.refreshTranscript()
		return m, nil

	case uploadDoneMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("upload failed: %v", msg.Err)
		}
		return m, nil

	case fileReadMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		_, done := m.deps.Tracker.BeginUpload(m.ctx, msg.file)
		m.notice = ""
		m.resize(m.width, m.height)
		return m, tea.Batch(waitForOutcome(done), m.spinner.Tick)

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.picking {
			m.closePicker()
			return m, nil
		}
		return m, tea.Quit
	case "ctrl+o":
		if !m.picking {
			m.picking = true
			m.textarea.Blur()
			return m, m.picker.Focus()
		}
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.picking {
		if msg.Type == tea.KeyEnter {
			path := strings.TrimSpace(m.picker.Value())
			m.closePicker()
			return m, m.startUpload(path)
		}
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	k, shift := keyOf(msg)
	if k == input.KeyEnter && !shift {
		if path, ok := parseUploadCommand(m.textarea.Value()); ok {
			m.textarea.Reset()
			m.deps.Controller.OnDraftChange("")
			return m, m.startUpload(path)
		}
	}

	res := m.deps.Controller.OnKeyEvent(k, shift)
	if res.Pending != nil {
		m.textarea.Reset()
		m.notice = ""
		m.refreshTranscript()
		return m, tea.Batch(waitForResult(res.Pending), m.spinner.Tick)
	}
	if res.Suppress {
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.deps.Controller.OnDraftChange(m.textarea.Value())
	return m, cmd
}

// keyOf maps a terminal key to the controller's vocabulary. Most terminals
// cannot report Shift+Enter, so Alt+Enter and Ctrl+J stand in for it.
func keyOf(msg tea.KeyMsg) (input.Key, bool) {
	switch msg.String() {
	case "enter":
		return input.KeyEnter, false
	case "alt+enter", "ctrl+j":
		return input.KeyEnter, true
	default:
		return input.KeyOther, false
	}
}

func parseUploadCommand(draft string) (string, bool) {
	text := strings.TrimSpace(draft)
	if text != uploadCommand && !strings.HasPrefix(text, uploadCommand+" ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(text, uploadCommand)), true
}

func (m *Model) startUpload(path string) tea.Cmd {
	if path == "" {
		m.notice = "usage: /upload <path>"
		return nil
	}
	if !accepted(path, m.deps.Accept) {
		m.notice = fmt.Sprintf("%s: only %s files can be uploaded", filepath.Base(path), strings.Join(m.deps.Accept, ", "))
		return nil
	}
	return readFile(path)
}

func accepted(path string, accept []string) bool {
	if len(accept) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range accept {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

func (m *Model) closePicker() {
	m.picking = false
	m.picker.Reset()
	m.picker.Blur()
	m.textarea.Focus()
}

func (m Model) busy() bool {
	return m.deps.Controller.Busy() || m.deps.Tracker.Active() > 0
}

func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	m.textarea.SetWidth(width - 2)
	m.picker.Width = width - 12

	// header + status line + textarea + borders
	chrome := 1 + 1 + m.textarea.Height() + 2
	vh := height - chrome - m.uploadsHeight()
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vh
	m.ready = true
	m.refreshTranscript()
}

func listen(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return msg
	}
}

func waitForResult(ch <-chan query.Result) tea.Cmd {
	return func() tea.Msg {
		return answerMsg(<-ch)
	}
}

func waitForOutcome(ch <-chan uploads.Outcome) tea.Cmd {
	return func() tea.Msg {
		return uploadDoneMsg(<-ch)
	}
}

func readFile(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return fileReadMsg{err: fmt.Errorf("read %s: %w", path, err)}
		}
		return fileReadMsg{file: uploads.File{Name: filepath.Base(path), Data: data}}
	}
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}
