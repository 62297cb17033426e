package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/clive/kiosk-go/internal/model"
)

// DebugPanel keeps recent session events for the maintenance overlay.
// Events are recorded even while hidden so toggling it shows history.
type DebugPanel struct {
	visible bool
	lines   []string
	buffer  int
	now     func() time.Time
}

// NewDebugPanel creates a debug panel
func NewDebugPanel(visible bool) *DebugPanel {
	return &DebugPanel{
		visible: visible,
		buffer:  100,
		now:     time.Now,
	}
}

func (d *DebugPanel) IsVisible() bool {
	return d.visible
}

func (d *DebugPanel) Toggle() {
	d.visible = !d.visible
}

// AddEvent records an event with a timestamp
func (d *DebugPanel) AddEvent(eventType string, details string) {
	line := d.now().Format("15:04:05.000") + " [" + eventType + "]"
	if details != "" {
		line += " " + details
	}
	d.lines = append(d.lines, line)
	if len(d.lines) > d.buffer {
		d.lines = d.lines[len(d.lines)-d.buffer:]
	}
}

// RecordTransition matches session.Options.OnTransition
func (d *DebugPanel) RecordTransition(from, to model.Screen, trigger string) {
	d.AddEvent("screen", fmt.Sprintf("%s → %s (%s)", from, to, trigger))
}

func (d *DebugPanel) Lines() []string {
	return d.lines
}

// Render draws the newest lines that fit in height
func (d *DebugPanel) Render(width, height int) string {
	if !d.visible {
		return ""
	}

	title := lipgloss.NewStyle().
		Foreground(ColorYellow).
		Bold(true).
		Render("DEBUG")

	contentHeight := height - 4
	if contentHeight < 1 {
		contentHeight = 1
	}
	maxLen := width - 4
	if maxLen < 10 {
		maxLen = 10
	}

	start := 0
	if len(d.lines) > contentHeight {
		start = len(d.lines) - contentHeight
	}
	var lines []string
	for _, line := range d.lines[start:] {
		lines = append(lines, truncate(line, maxLen))
	}
	for len(lines) < contentHeight {
		lines = append(lines, "")
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorYellow).
		Padding(0, 1).
		Render(title + "\n" + strings.Join(lines, "\n"))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
