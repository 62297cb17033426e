package session

import (
	"errors"
	"fmt"

	"github.com/clive/kiosk-go/internal/capture"
)

// MaxIdentityLength is the longest school number the form accepts
const MaxIdentityLength = 4

// User-facing error messages
const (
	MsgIdentityRequired     = "identity required"
	MsgIdentityTooLong      = "identity must be at most 4 characters"
	MsgStudentNotFound      = "student not found"
	MsgDirectoryUnreachable = "could not reach the student directory"
	MsgCameraUnavailable    = "camera unavailable"
	MsgCameraNotReady       = "camera not ready, try again"
	MsgAnalysisFailed       = "image analysis failed"
)

// ValidationError is returned for identity input the form refuses to submit
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid identity %q: %s", e.Input, e.Reason)
}

// ValidateIdentity checks a school number before it is looked up.
// Digit-only filtering happens at the edit step, so only length is checked here.
func ValidateIdentity(s string) error {
	switch {
	case s == "":
		return &ValidationError{Input: s, Reason: MsgIdentityRequired}
	case len(s) > MaxIdentityLength:
		return &ValidationError{Input: s, Reason: MsgIdentityTooLong}
	}
	return nil
}

// captureMessage maps a capture error to what the kiosk shows
func captureMessage(err error) string {
	if errors.Is(err, capture.ErrNotReady) {
		return MsgCameraNotReady
	}
	return MsgCameraUnavailable
}
