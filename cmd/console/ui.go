package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/officehub/console/internal/notify"
)

// terminalUI mirrors the view fixtures on the terminal: one line per
// toast, a restyled badge per connection flip.
type terminalUI struct {
	badge  map[bool]lipgloss.Style
	toasts map[notify.Kind]lipgloss.Style
}

func newTerminalUI() *terminalUI {
	badgeBase := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	return &terminalUI{
		badge: map[bool]lipgloss.Style{
			true:  badgeBase.Copy().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")),
			false: badgeBase.Copy().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9")),
		},
		toasts: map[notify.Kind]lipgloss.Style{
			notify.KindInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
			notify.KindSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
			notify.KindWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
			notify.KindError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		},
	}
}

func (u *terminalUI) renderToast(toast notify.Toast) {
	style, ok := u.toasts[toast.Kind]
	if !ok {
		style = u.toasts[notify.KindInfo]
	}

	fmt.Println(style.Render(fmt.Sprintf("%s: %s", toast.Title, toast.Message)))
}

func (u *terminalUI) renderStatus(connected bool) {
	text := "Disconnected"
	if connected {
		text = "Connected"
	}

	fmt.Println(u.badge[connected].Render(text))
}
