package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/clive/kiosk-go/internal/config"
)

// KeyMap defines the key bindings for the kiosk
type KeyMap struct {
	// Session
	Advance   key.Binding
	Reanalyze key.Binding
	Backspace key.Binding

	// Maintenance
	Reset key.Binding
	Debug key.Binding
	Quit  key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return NewKeyMap(config.Default().Keys)
}

// NewKeyMap builds bindings from the keys config section
func NewKeyMap(keys config.KeysConfig) KeyMap {
	return KeyMap{
		Advance: key.NewBinding(
			key.WithKeys(keys.Advance...),
			key.WithHelp(strings.Join(keys.Advance, "/"), "continue"),
		),
		Reanalyze: key.NewBinding(
			key.WithKeys(keys.Reanalyze...),
			key.WithHelp(strings.Join(keys.Reanalyze, "/"), "analyze again"),
		),
		Backspace: key.NewBinding(
			key.WithKeys("backspace"),
			key.WithHelp("⌫", "delete digit"),
		),
		Reset: key.NewBinding(
			key.WithKeys(keys.Reset...),
			key.WithHelp(strings.Join(keys.Reset, "/"), "reset session"),
		),
		Debug: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "debug"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}
