package input

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
)

// Keyboard translates Bubble Tea key messages into events
type Keyboard struct {
	keys KeyMap
}

func NewKeyboard(keys KeyMap) Keyboard {
	return Keyboard{keys: keys}
}

// Translate maps msg to an event. Keys that mean nothing to the session
// (including debug and quit, which the TUI handles itself) return false.
func (k Keyboard) Translate(msg tea.KeyMsg) (Event, bool) {
	switch {
	case key.Matches(msg, k.keys.Advance):
		return Event{Kind: KindAdvance}, true
	case key.Matches(msg, k.keys.Reanalyze):
		return Event{Kind: KindReanalyze}, true
	case key.Matches(msg, k.keys.Reset):
		return Event{Kind: KindReset}, true
	case key.Matches(msg, k.keys.Backspace):
		return Event{Kind: KindBackspace}, true
	}

	if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && !msg.Alt {
		r := msg.Runes[0]
		if r >= '0' && r <= '9' {
			return Event{Kind: KindDigit, Digit: r}, true
		}
	}
	return Event{}, false
}
