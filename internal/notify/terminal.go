package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// Terminal renders one styled line per notification, e.g.
//
//	✖ Timeout  alerts.recent: Request timed out
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	title cases.Caser
}

// NewTerminal writes to w (usually os.Stderr).
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, title: cases.Title(language.English)}
}

func (t *Terminal) Notify(n Notification) {
	var icon string
	style := infoStyle
	switch n.Level {
	case LevelWarn:
		icon, style = "!", warnStyle
	case LevelError:
		icon, style = "✖", errorStyle
	default:
		icon = "•"
	}

	kind := t.title.String(strings.ReplaceAll(n.Kind, "_", " "))
	var b strings.Builder
	b.WriteString(style.Render(icon + " " + kind))
	if n.Operation != "" {
		b.WriteString("  ")
		b.WriteString(dimStyle.Render(n.Operation + ":"))
	}
	b.WriteString(" ")
	b.WriteString(n.Message)

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, b.String())
}
