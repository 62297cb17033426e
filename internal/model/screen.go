package model

// Screen is the discrete phase of the kiosk session
type Screen int

const (
	ScreenWelcome1 Screen = iota
	ScreenWelcome2
	ScreenIdentityForm
	ScreenCameraLive
	ScreenAnalyzing
	ScreenResult
	ScreenThanks
)

var screenNames = map[Screen]string{
	ScreenWelcome1:     "welcome1",
	ScreenWelcome2:     "welcome2",
	ScreenIdentityForm: "identity_form",
	ScreenCameraLive:   "camera_live",
	ScreenAnalyzing:    "analyzing",
	ScreenResult:       "result",
	ScreenThanks:       "thanks",
}

// String returns the log-friendly name of the screen
func (s Screen) String() string {
	if name, ok := screenNames[s]; ok {
		return name
	}
	return "unknown"
}

// HoldsCamera reports whether the capture resource may be held on this screen
func (s Screen) HoldsCamera() bool {
	switch s {
	case ScreenCameraLive, ScreenAnalyzing, ScreenResult:
		return true
	default:
		return false
	}
}
