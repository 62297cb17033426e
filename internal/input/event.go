// Package input normalizes keyboard presses and external triggers into kiosk events.
package input

// Kind is the kind of a normalized input event
type Kind int

const (
	KindAdvance Kind = iota
	KindReanalyze
	KindDigit
	KindBackspace
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindAdvance:
		return "advance"
	case KindReanalyze:
		return "reanalyze"
	case KindDigit:
		return "digit"
	case KindBackspace:
		return "backspace"
	case KindReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is one normalized input. Digit is set only for KindDigit.
type Event struct {
	Kind  Kind
	Digit rune
}
