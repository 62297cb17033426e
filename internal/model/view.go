package model

// ViewModel is everything the presentation layer needs to draw the current screen.
// It is produced by the session controller and never written back.
type ViewModel struct {
	Screen            Screen
	IdentityInput     string
	Identity          *IdentityRecord
	LastError         string
	IsAnalyzing       bool
	AnalysisResult    string
	TransitionPending bool // Welcome1 is fading out
	LookupPending     bool // identity lookup outstanding
	CameraReady       bool // capture resource acquired
}
