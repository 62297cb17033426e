package session

import (
	"github.com/clive/kiosk-go/internal/analysis"
	"github.com/clive/kiosk-go/internal/capture"
	"github.com/clive/kiosk-go/internal/identity"
)

// ForcedResetMsg abandons the session from any screen. It is sent for an
// external fatal signal or the maintenance key.
type ForcedResetMsg struct {
	Reason string
}

type timerKind int

const (
	timerNone timerKind = iota
	timerTransition
	timerReset
)

func (k timerKind) String() string {
	switch k {
	case timerTransition:
		return "transition"
	case timerReset:
		return "reset"
	default:
		return "none"
	}
}

// timerFiredMsg is delivered by tea.Tick; id must match the pending slot
type timerFiredMsg struct {
	kind timerKind
	id   int
}

type lookupDoneMsg struct {
	token  int
	result identity.Result
	err    error
}

type cameraAcquiredMsg struct {
	epoch int
	err   error
}

type frameCapturedMsg struct {
	requestID string
	frame     capture.Frame
}

type captureFailedMsg struct {
	requestID string
	err       error
}

type analysisDoneMsg struct {
	requestID string
	resp      analysis.Response
	err       error
}
