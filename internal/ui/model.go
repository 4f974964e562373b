package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"safe-traveller/internal/chat"
	"safe-traveller/internal/clipboard"
	"safe-traveller/internal/highlight"
	"safe-traveller/internal/location"
	"safe-traveller/internal/notify"
	"safe-traveller/internal/theme"
	"safe-traveller/internal/transcript"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
)

type Backend interface {
	Send(ctx context.Context, req chat.Request) (chat.Reply, error)
}

type ThemeStore interface {
	Set(ctx context.Context, t theme.Theme) error
}

type Deps struct {
	Backend   Backend
	Themes    ThemeStore
	Theme     theme.Theme
	Notifier  *notify.Emitter
	Positions <-chan location.Position
	Logger    *zap.Logger
}

type Model struct {
	ctrl      *chat.Controller
	backend   Backend
	themes    ThemeStore
	notifier  *notify.Emitter
	positions <-chan location.Position
	log       *zap.Logger

	viewport viewport.Model
	input    textinput.Model
	search   textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	width  int
	height int

	theme    theme.Theme
	renderer *glamour.TermRenderer
	rendered map[string]string

	searchMode  bool
	searchQuery string
	matchLines  []int
	matchCount  int
	matchIndex  int

	position *location.Position
	toast    *notify.Notification

	status string
	err    error
}

type replyMsg struct {
	handle chat.PendingHandle
	reply  chat.Reply
	err    error
}
type focusMsg struct{}
type themeMsg struct {
	theme theme.Theme
	err   error
}
type copyMsg struct {
	what string
	err  error
}
type positionMsg struct {
	pos location.Position
	ok  bool
}
type toastExpiredMsg struct{ id int }

func NewModel(d Deps) Model {
	vp := viewport.New(40, 10)

	ti := textinput.New()
	ti.Placeholder = "Ask the travel assistant..."
	ti.Prompt = "› "
	ti.CharLimit = 2000

	si := textinput.New()
	si.Placeholder = "Search transcript..."
	si.Prompt = "/ "
	si.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Points

	h := help.New()
	h.ShowAll = false

	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	th := d.Theme
	if _, ok := theme.Parse(string(th)); !ok {
		th = theme.Dark
	}

	return Model{
		ctrl:       chat.NewController(),
		backend:    d.Backend,
		themes:     d.Themes,
		notifier:   d.Notifier,
		positions:  d.Positions,
		log:        log,
		viewport:   vp,
		input:      ti,
		search:     si,
		spinner:    sp,
		help:       h,
		keys:       defaultKeys(),
		theme:      th,
		rendered:   make(map[string]string),
		matchIndex: -1,
	}
}

// SessionID reports the chat session adopted from the backend, if any.
func (m Model) SessionID() (string, bool) { return m.ctrl.SessionID() }

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.notifier != nil {
		m.notifier.Check()
	}
	if m.positions != nil {
		cmds = append(cmds, waitForPosition(m.positions))
	}
	return tea.Batch(cmds...)
}

func waitForPosition(ch <-chan location.Position) tea.Cmd {
	return func() tea.Msg {
		pos, ok := <-ch
		return positionMsg{pos: pos, ok: ok}
	}
}

func (m Model) sendCmd(s chat.Send) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		if backend == nil {
			return replyMsg{handle: s.Handle, err: errors.New("no chat backend configured")}
		}
		reply, err := backend.Send(context.Background(), s.Request)
		return replyMsg{handle: s.Handle, reply: reply, err: err}
	}
}

func (m Model) themeCmd(t theme.Theme) tea.Cmd {
	store := m.themes
	return func() tea.Msg {
		if store == nil {
			return themeMsg{theme: t}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return themeMsg{theme: t, err: store.Set(ctx, t)}
	}
}

func copyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyMsg{what: what, err: clipboard.Copy(ctx, text)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refreshTranscript(true)

	case replyMsg:
		if msg.err != nil {
			m.log.Debug("showing fallback reply", zap.Uint64("handle", uint64(msg.handle)))
		}
		closed := m.ctrl.Visibility() == chat.Closed
		cmds = append(cmds, m.apply(m.ctrl.Resolve(msg.handle, msg.reply, msg.err))...)
		if closed && msg.err == nil && msg.reply.Status == chat.StatusSuccess {
			cmds = append(cmds, m.showToast(m.tipFor(msg.reply.Response)))
		}

	case focusMsg:
		if m.ctrl.Visibility() == chat.Open && !m.searchMode {
			cmds = append(cmds, m.input.Focus())
		}

	case themeMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Theme not saved: " + msg.err.Error()
		} else {
			m.status = "Theme: " + string(msg.theme)
		}

	case copyMsg:
		if msg.err != nil {
			m.err = msg.err
			if errors.Is(msg.err, clipboard.ErrToolNotFound) {
				m.status = "Could not copy: clipboard tool not found"
			} else {
				m.status = "Could not copy: " + msg.err.Error()
			}
		} else {
			m.status = "Copied " + msg.what + " to clipboard"
		}

	case positionMsg:
		if !msg.ok {
			m.positions = nil
			break
		}
		pos := msg.pos
		m.position = &pos
		cmds = append(cmds, waitForPosition(m.positions))

	case toastExpiredMsg:
		if m.toast != nil && m.toast.ID == msg.id {
			m.toast = nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.ctrl.Pending() {
			m.refreshTranscript(false)
		}

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg)...)

	case tea.KeyMsg:
		return m.handleKey(msg)

	default:
		if m.input.Focused() {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.searchMode {
		switch msg.String() {
		case "esc":
			m.searchMode = false
			m.searchQuery = ""
			m.search.SetValue("")
			m.search.Blur()
			m.refreshTranscript(false)
			return *m, m.input.Focus()
		case "enter":
			m.searchMode = false
			m.search.Blur()
			m.searchQuery = strings.TrimSpace(m.search.Value())
			m.refreshTranscript(false)
			m.jumpToMatch(0)
			return *m, m.input.Focus()
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if q := strings.TrimSpace(m.search.Value()); q != m.searchQuery {
			m.searchQuery = q
			m.refreshTranscript(false)
		}
		return *m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return *m, tea.Quit
	case key.Matches(msg, m.keys.Theme):
		m.theme = m.theme.Toggle()
		m.renderer = nil
		m.rendered = make(map[string]string)
		m.refreshTranscript(false)
		return *m, m.themeCmd(m.theme)
	}

	if m.ctrl.Visibility() == chat.Closed {
		switch {
		case key.Matches(msg, m.keys.Open):
			return *m, tea.Batch(m.dispatch(chat.OpenIntent{})...)
		case key.Matches(msg, m.keys.QuitClosed):
			return *m, tea.Quit
		}
		return *m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Close):
		m.dispatch(chat.CloseIntent{})
		return *m, nil
	case key.Matches(msg, m.keys.Send):
		cmds = append(cmds, m.dispatch(chat.SubmitIntent{Text: m.input.Value()})...)
		return *m, tea.Batch(cmds...)
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.input.Blur()
		m.search.SetValue(m.searchQuery)
		m.search.CursorEnd()
		return *m, m.search.Focus()
	case key.Matches(msg, m.keys.NextMatch):
		m.jumpToMatch(1)
		return *m, nil
	case key.Matches(msg, m.keys.PrevMatch):
		m.jumpToMatch(-1)
		return *m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return *m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return *m, nil
	case key.Matches(msg, m.keys.CopyReply):
		if text, ok := transcript.LastReply(m.ctrl.Messages()); ok {
			return *m, copyCmd("last reply", text)
		}
		m.status = "Nothing to copy yet"
		return *m, nil
	case key.Matches(msg, m.keys.CopyAll):
		msgs := m.ctrl.Messages()
		if len(msgs) == 0 {
			m.status = "Nothing to copy yet"
			return *m, nil
		}
		return *m, copyCmd("transcript", transcript.Markdown(msgs))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return *m, cmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) []tea.Cmd {
	l := m.layout()
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		if m.ctrl.Visibility() == chat.Open && l.popup.contains(msg.X, msg.Y) {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return []tea.Cmd{cmd}
		}
		return nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil
	}

	region := chat.RegionOutside
	switch {
	case m.ctrl.Visibility() == chat.Open && l.popup.contains(msg.X, msg.Y):
		region = chat.RegionPopup
	case l.launcher.contains(msg.X, msg.Y):
		region = chat.RegionLauncher
	}

	cmds := m.dispatch(chat.PointerDownIntent{Target: region})
	if region == chat.RegionLauncher {
		cmds = append(cmds, m.dispatch(chat.OpenIntent{})...)
	}
	return cmds
}

// dispatch feeds an intent to the controller and carries out the effects.
func (m *Model) dispatch(in chat.Intent) []tea.Cmd {
	wasOpen := m.ctrl.Visibility() == chat.Open
	cmds := m.apply(m.ctrl.Dispatch(in))
	if wasOpen && m.ctrl.Visibility() == chat.Closed {
		m.input.Blur()
		m.searchMode = false
		m.search.Blur()
	}
	return cmds
}

func (m *Model) apply(effects []chat.Effect) []tea.Cmd {
	var cmds []tea.Cmd
	for _, eff := range effects {
		switch eff := eff.(type) {
		case chat.FocusInput:
			m.refreshTranscript(true)
			cmds = append(cmds, tea.Tick(eff.After, func(time.Time) tea.Msg { return focusMsg{} }))
		case chat.ScrollToEnd:
			m.refreshTranscript(true)
		case chat.Send:
			m.input.Reset()
			cmds = append(cmds, m.sendCmd(eff))
		}
	}
	return cmds
}

func (m *Model) showToast(n notify.Notification, ok bool) tea.Cmd {
	if !ok {
		return nil
	}
	m.toast = &n
	id := n.ID
	return tea.Tick(time.Until(n.Expires), func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

func (m *Model) tipFor(reply string) (notify.Notification, bool) {
	if m.notifier == nil {
		return notify.Notification{}, false
	}
	return m.notifier.TravelTip(transcript.Preview(reply, 80))
}

// refreshTranscript re-renders the transcript into the viewport. With
// toEnd the view scrolls to the newest entry, otherwise the offset is kept.
func (m *Model) refreshTranscript(toEnd bool) {
	content := m.renderTranscript()
	query := strings.TrimSpace(m.searchQuery)
	if query != "" {
		res := highlight.ApplyANSI(content, query, func(s string) string {
			return searchMatchStyle.Render(s)
		})
		content = res.Text
		m.setMatchMeta(res)
	} else {
		m.clearMatches()
	}

	offset := m.viewport.YOffset
	m.viewport.SetContent(content)
	if toEnd {
		m.viewport.GotoBottom()
		return
	}
	m.viewport.SetYOffset(m.clampViewportOffset(offset))
}

func (m *Model) renderTranscript() string {
	entries := m.ctrl.Transcript()
	if len(entries) == 0 {
		return emptyStyle.Render("Ask about safety, customs, phrases or weather at your destination.")
	}

	width := m.viewport.Width
	if width < 20 {
		width = 20
	}
	blocks := make([]string, 0, len(entries))
	for i, e := range entries {
		switch {
		case e.IsPending():
			blocks = append(blocks, pendingStyle.Render(m.spinner.View()+" typing"))
		case e.Message.Origin == chat.OriginUser:
			blocks = append(blocks, renderUserBlock(e.Message.Text, width))
		default:
			blocks = append(blocks, m.renderAssistantBlock(i, e.Message.Text, width))
		}
	}
	return strings.Join(blocks, "\n")
}

func (m *Model) renderAssistantBlock(idx int, text string, width int) string {
	cacheKey := fmt.Sprintf("%d|w=%d|s=%s", idx, width, m.theme.GlamourStyle())
	if out, ok := m.rendered[cacheKey]; ok {
		return out
	}

	md := transcript.ForDisplay(text)
	out := assistantStyle.Width(width - 2).Render(md)
	if r := m.glamourRenderer(width); r != nil {
		if rendered, err := r.Render(md); err == nil {
			out = strings.TrimRight(rendered, "\n")
		} else {
			m.log.Debug("markdown render failed", zap.Error(err))
		}
	}
	m.rendered[cacheKey] = out
	return out
}

func (m *Model) glamourRenderer(width int) *glamour.TermRenderer {
	if m.renderer != nil {
		return m.renderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.theme.GlamourStyle()),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		m.log.Warn("markdown renderer unavailable", zap.Error(err))
		return nil
	}
	m.renderer = r
	return r
}

func renderUserBlock(text string, width int) string {
	limit := width * 3 / 4
	if limit < 16 {
		limit = 16
	}
	style := userStyle
	if lipgloss.Width(text)+2 > limit {
		style = style.Width(limit)
	}
	return userAlign.Width(width).Render(style.Render(text))
}

func (m *Model) setMatchMeta(res highlight.Result) {
	if res.Count == 0 || len(res.LineIndex) == 0 {
		m.clearMatches()
		return
	}
	m.matchCount = res.Count
	m.matchLines = append(m.matchLines[:0], res.LineIndex...)
	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	}
}

func (m *Model) clearMatches() {
	m.matchLines = nil
	m.matchCount = 0
	m.matchIndex = -1
}

func (m *Model) jumpToMatch(delta int) {
	if len(m.matchLines) == 0 {
		if m.searchQuery != "" {
			m.status = "No search matches in transcript"
		}
		return
	}

	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	} else if delta > 0 {
		m.matchIndex = (m.matchIndex + 1) % len(m.matchLines)
	} else if delta < 0 {
		m.matchIndex = (m.matchIndex - 1 + len(m.matchLines)) % len(m.matchLines)
	}

	m.viewport.SetYOffset(m.clampViewportOffset(m.matchLines[m.matchIndex]))
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, m.matchCount)
}

func (m *Model) clampViewportOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	l := m.layout()
	inner := l.popup.w - 4
	if inner < 10 {
		inner = 10
	}
	if inner != m.viewport.Width {
		m.renderer = nil
	}
	m.viewport.Width = inner
	vh := l.popup.h - 4
	if vh < 3 {
		vh = 3
	}
	m.viewport.Height = vh
	m.input.Width = inner - 4
	m.search.Width = inner - 4
}

func (m Model) statusLine() string {
	status := "chat=" + m.ctrl.Visibility().String()
	if id, ok := m.ctrl.SessionID(); ok {
		status += "  session=" + transcript.Preview(id, 12)
	}
	status += "  theme=" + string(m.theme)
	if m.position != nil {
		status += "  loc=" + m.position.String()
	}
	if m.ctrl.Pending() {
		status += "  [waiting]"
	}
	if m.searchQuery != "" || m.searchMode {
		status += "  [search]"
		if m.matchCount > 0 {
			cur := m.matchIndex + 1
			if cur < 1 {
				cur = 1
			}
			status += fmt.Sprintf("  [match %d/%d]", cur, m.matchCount)
		} else if m.searchQuery != "" {
			status += "  [match 0]"
		}
	}
	if s := strings.TrimSpace(m.status); s != "" {
		status += "  " + s
	}
	if m.err != nil {
		status += "  err=" + m.err.Error()
	}
	if m.width > 2 {
		status = ansi.Truncate(status, m.width-2, "…")
	}
	return statusStyle.Render(status)
}
