package ui

import (
	"strings"

	"safe-traveller/internal/chat"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

const launcherLabel = " 💬 Travel assistant "

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// screenLayout holds the regions used for pointer hit testing. Rows: status
// line, body, launcher row, help line.
type screenLayout struct {
	home     rect
	popup    rect
	launcher rect
}

func (m Model) layout() screenLayout {
	bodyH := m.height - 3
	if bodyH < 6 {
		bodyH = 6
	}

	popupW := m.width * 2 / 3
	if popupW < 40 {
		popupW = 40
	}
	if popupW > m.width {
		popupW = m.width
	}

	launcherW := lipgloss.Width(launcherLabel)
	return screenLayout{
		home:     rect{x: 0, y: 1, w: m.width - popupW, h: bodyH},
		popup:    rect{x: m.width - popupW, y: 1, w: popupW, h: bodyH},
		launcher: rect{x: m.width - launcherW, y: 1 + bodyH, w: launcherW, h: 1},
	}
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}
	l := m.layout()

	var body string
	if m.ctrl.Visibility() == chat.Open {
		home := homeStyle.Width(l.home.w).Height(l.home.h).Render(m.homeView(l.home.w))
		body = lipgloss.JoinHorizontal(lipgloss.Top, home, m.popupView(l.popup))
	} else {
		body = homeStyle.Width(m.width).Height(l.home.h).Render(m.homeView(m.width))
	}

	helpView := m.help.View(m.keys)
	if m.searchMode {
		helpView = m.search.View() + "  " + helpView
	} else if m.searchQuery != "" {
		helpView = "search: " + m.searchQuery + "  " + helpView
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusLine(),
		body,
		m.launcherRow(l),
		helpView,
	)
}

func (m Model) homeView(width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Safe Traveller"))
	b.WriteString("\n\n")
	b.WriteString("Your companion for safe and culturally-aware travel.\n\n")
	if m.position != nil {
		b.WriteString("Location: " + m.position.String() + "\n")
	}
	if m.notifier != nil {
		b.WriteString("Notifications: " + string(m.notifier.Permission()) + "\n")
	}
	b.WriteString("Theme: " + string(m.theme) + "\n\n")
	if m.ctrl.Visibility() == chat.Closed {
		b.WriteString(hintStyle.Render("ctrl+o or click the badge to chat"))
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(b.String())
}

func (m Model) popupView(r rect) string {
	header := titleStyle.Render("Travel assistant") + hintStyle.Render("  esc to close")
	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
	)
	return popupStyle.Width(r.w - 2).Height(r.h - 2).Render(content)
}

func (m Model) launcherRow(l screenLayout) string {
	badge := launcherStyle
	if m.ctrl.Visibility() == chat.Open {
		badge = launcherActiveStyle
	}
	right := badge.Render(launcherLabel)

	left := ""
	if m.toast != nil {
		left = toastStyle.Render(m.toast.Icon + " " + m.toast.Title + ": " + m.toast.Body)
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		left = ""
		gap = m.width - lipgloss.Width(right)
		if gap < 0 {
			gap = 0
		}
	}
	return left + strings.Repeat(" ", gap) + right
}

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	searchMatchStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("220"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	emptyStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	homeStyle  = lipgloss.NewStyle().Padding(1, 2)
	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("27")).
			Padding(0, 1)
	userAlign      = lipgloss.NewStyle().Align(lipgloss.Right)
	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "235", Dark: "254"}).
			Background(lipgloss.AdaptiveColor{Light: "254", Dark: "238"}).
			Padding(0, 1)
	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Background(lipgloss.AdaptiveColor{Light: "254", Dark: "238"}).
			Padding(0, 1)
	launcherStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("27"))
	launcherActiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("39"))
	toastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("220")).
			Padding(0, 1)
)

type keyMap struct {
	Open       key.Binding
	Close      key.Binding
	Send       key.Binding
	Search     key.Binding
	NextMatch  key.Binding
	PrevMatch  key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	CopyReply  key.Binding
	CopyAll    key.Binding
	Theme      key.Binding
	QuitClosed key.Binding
	Quit       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Open: key.NewBinding(
			key.WithKeys("ctrl+o", "enter"),
			key.WithHelp("ctrl+o", "open chat"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close chat"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Search: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "search"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "prev match"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		CopyReply: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy reply"),
		),
		CopyAll: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "copy transcript"),
		),
		Theme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "toggle theme"),
		),
		QuitClosed: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Close, k.Send, k.Search, k.CopyReply, k.Theme, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Close, k.Send},
		{k.Search, k.NextMatch, k.PrevMatch, k.PageUp, k.PageDown},
		{k.CopyReply, k.CopyAll, k.Theme, k.QuitClosed, k.Quit},
	}
}
