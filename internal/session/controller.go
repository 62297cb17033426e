// Package session implements the kiosk session state machine.
//
// The Controller is driven by Bubble Tea messages: every mutation happens in
// Update on the program loop, and all blocking work (lookups, camera, analysis,
// timers) runs as tea.Cmd whose results come back as messages tagged with a
// lookup token, request id, timer id or session epoch. Results whose tag no
// longer matches are dropped.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/clive/kiosk-go/internal/analysis"
	"github.com/clive/kiosk-go/internal/capture"
	"github.com/clive/kiosk-go/internal/identity"
	"github.com/clive/kiosk-go/internal/input"
	"github.com/clive/kiosk-go/internal/logging"
	"github.com/clive/kiosk-go/internal/model"
)

// Options tunes the controller. Zero values take the defaults below.
type Options struct {
	TransitionDelay time.Duration
	ResetDelay      time.Duration
	LookupTimeout   time.Duration
	CaptureTimeout  time.Duration
	AnalysisTimeout time.Duration

	// NewRequestID generates analysis request ids
	NewRequestID func() string

	// OnTransition is called on the program loop after every screen change
	OnTransition func(from, to model.Screen, trigger string)

	Logger *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.TransitionDelay <= 0 {
		o.TransitionDelay = 500 * time.Millisecond
	}
	if o.ResetDelay <= 0 {
		o.ResetDelay = 3 * time.Second
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = 10 * time.Second
	}
	if o.CaptureTimeout <= 0 {
		o.CaptureTimeout = 3 * time.Second
	}
	if o.AnalysisTimeout <= 0 {
		o.AnalysisTimeout = 90 * time.Second
	}
	if o.NewRequestID == nil {
		o.NewRequestID = uuid.NewString
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
}

// pendingTimer is the single timer slot. Transition and reset timers share it,
// so at most one of them can ever be scheduled.
type pendingTimer struct {
	kind timerKind
	id   int
}

// Controller owns the one kiosk session
type Controller struct {
	camera   capture.Resource
	identity identity.Client
	analysis analysis.Client
	opts     Options
	logger   *slog.Logger

	screen        model.Screen
	identityInput string
	student       *model.IdentityRecord
	frame         []byte
	result        string
	lastError     string
	inFlightID    string
	timer         pendingTimer
	lookupToken   int
	cameraReady   bool

	// epoch advances on every reset so late camera results can be recognized
	epoch     int
	timerSeq  int
	lookupSeq int
}

// NewController creates a controller on Welcome1
func NewController(camera capture.Resource, ids identity.Client, analyzer analysis.Client, opts Options) *Controller {
	opts.applyDefaults()
	return &Controller{
		camera:   camera,
		identity: ids,
		analysis: analyzer,
		opts:     opts,
		logger:   opts.Logger,
		screen:   model.ScreenWelcome1,
	}
}

// Screen returns the current screen
func (c *Controller) Screen() model.Screen {
	return c.screen
}

// View returns the presentation snapshot of the session
func (c *Controller) View() model.ViewModel {
	var student *model.IdentityRecord
	if c.student != nil {
		rec := *c.student
		student = &rec
	}
	return model.ViewModel{
		Screen:            c.screen,
		IdentityInput:     c.identityInput,
		Identity:          student,
		LastError:         c.lastError,
		IsAnalyzing:       c.screen == model.ScreenAnalyzing,
		AnalysisResult:    c.result,
		TransitionPending: c.timer.kind == timerTransition,
		LookupPending:     c.lookupToken != 0,
		CameraReady:       c.cameraReady,
	}
}

// Update applies one message to the session and returns follow-up work.
// Messages the session does not know about are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case input.Event:
		return c.handleEvent(msg)

	case ForcedResetMsg:
		c.forceReset(msg.Reason)
		return nil

	case timerFiredMsg:
		return c.handleTimer(msg)

	case lookupDoneMsg:
		return c.handleLookup(msg)

	case cameraAcquiredMsg:
		c.handleCameraAcquired(msg)
		return nil

	case frameCapturedMsg:
		return c.handleFrame(msg)

	case captureFailedMsg:
		c.handleCaptureFailed(msg)
		return nil

	case analysisDoneMsg:
		c.handleAnalysis(msg)
		return nil
	}
	return nil
}

func (c *Controller) handleEvent(ev input.Event) tea.Cmd {
	switch ev.Kind {
	case input.KindAdvance:
		return c.advance()
	case input.KindReanalyze:
		return c.reanalyze()
	case input.KindDigit:
		c.editIdentity(func(s string) string { return s + string(ev.Digit) })
	case input.KindBackspace:
		c.editIdentity(func(s string) string {
			if s == "" {
				return s
			}
			return s[:len(s)-1]
		})
	case input.KindReset:
		c.forceReset("maintenance key")
	}
	return nil
}

// editIdentity applies an edit to the form input. Edits producing a non-digit
// or over-length value are dropped without an error.
func (c *Controller) editIdentity(edit func(string) string) {
	if c.screen != model.ScreenIdentityForm || c.lookupToken != 0 {
		return
	}
	next := edit(c.identityInput)
	if len(next) > MaxIdentityLength || !allDigits(next) {
		return
	}
	c.identityInput = next
	c.lastError = ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (c *Controller) advance() tea.Cmd {
	if c.timer.kind != timerNone || c.lookupToken != 0 {
		c.logger.Debug("advance ignored", "screen", c.screen.String(), "timer", c.timer.kind.String())
		return nil
	}

	switch c.screen {
	case model.ScreenWelcome1:
		return c.schedule(timerTransition, c.opts.TransitionDelay)

	case model.ScreenWelcome2:
		c.setScreen(model.ScreenIdentityForm, "advance")
		return nil

	case model.ScreenIdentityForm:
		return c.submitIdentity()

	case model.ScreenCameraLive:
		return c.startCapture()

	case model.ScreenResult:
		c.enterThanks()
		return c.schedule(timerReset, c.opts.ResetDelay)
	}

	// Analyzing, Thanks
	c.logger.Debug("advance ignored", "screen", c.screen.String())
	return nil
}

func (c *Controller) submitIdentity() tea.Cmd {
	if err := ValidateIdentity(c.identityInput); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.lastError = verr.Reason
		}
		c.logger.Info("identity rejected", "error", err)
		return nil
	}

	c.lastError = ""
	c.lookupSeq++
	c.lookupToken = c.lookupSeq
	token, id := c.lookupToken, c.identityInput
	client, timeout := c.identity, c.opts.LookupTimeout

	c.logger.Info("identity lookup started", "id", id)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := client.Lookup(ctx, id)
		return lookupDoneMsg{token: token, result: res, err: err}
	}
}

func (c *Controller) handleLookup(msg lookupDoneMsg) tea.Cmd {
	if msg.token != c.lookupToken || c.screen != model.ScreenIdentityForm {
		c.logger.Debug("stale lookup dropped", "token", msg.token)
		return nil
	}
	c.lookupToken = 0

	switch {
	case msg.err != nil:
		c.lastError = MsgDirectoryUnreachable
		c.logger.Warn("identity lookup failed", "id", c.identityInput, "error", msg.err)
		return nil
	case !msg.result.Found:
		c.lastError = MsgStudentNotFound
		c.logger.Info("student not found", "id", c.identityInput)
		return nil
	}

	rec := msg.result.Record
	c.student = &rec
	c.lastError = ""
	c.setScreen(model.ScreenCameraLive, "lookup")
	return c.acquireCamera()
}

// acquireCamera opens the stream ahead of the first capture
func (c *Controller) acquireCamera() tea.Cmd {
	epoch, camera, timeout := c.epoch, c.camera, c.opts.CaptureTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return cameraAcquiredMsg{epoch: epoch, err: camera.Acquire(ctx)}
	}
}

func (c *Controller) handleCameraAcquired(msg cameraAcquiredMsg) {
	if !c.screen.HoldsCamera() {
		// Acquire finished after the session moved on; give the device back.
		c.releaseCamera()
		return
	}
	if msg.epoch != c.epoch {
		return
	}
	if msg.err != nil {
		c.cameraReady = false
		if c.screen == model.ScreenCameraLive {
			c.lastError = captureMessage(msg.err)
		}
		c.logger.Warn("camera acquire failed", "error", msg.err)
		return
	}
	c.cameraReady = true
}

func (c *Controller) startCapture() tea.Cmd {
	id := c.opts.NewRequestID()
	c.inFlightID = id
	c.lastError = ""
	c.setScreen(model.ScreenAnalyzing, "capture")

	camera, timeout := c.camera, c.opts.CaptureTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		frame, err := grabFrame(ctx, camera)
		if err != nil {
			return captureFailedMsg{requestID: id, err: err}
		}
		return frameCapturedMsg{requestID: id, frame: frame}
	}
}

// grabFrame acquires the camera if needed and waits for its first frame
func grabFrame(ctx context.Context, camera capture.Resource) (capture.Frame, error) {
	if err := camera.Acquire(ctx); err != nil {
		return capture.Frame{}, err
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		frame, err := camera.Snapshot()
		if err == nil || !errors.Is(err, capture.ErrNotReady) {
			return frame, err
		}
		select {
		case <-ctx.Done():
			return capture.Frame{}, err
		case <-ticker.C:
		}
	}
}

func (c *Controller) handleFrame(msg frameCapturedMsg) tea.Cmd {
	if msg.requestID != c.inFlightID || c.inFlightID == "" {
		c.logger.Debug("stale frame dropped", "request_id", msg.requestID)
		if !c.screen.HoldsCamera() {
			c.releaseCamera()
		}
		return nil
	}

	c.cameraReady = true
	c.frame = msg.frame.Data
	c.logger.Info("frame captured", "request_id", msg.requestID, "bytes", len(msg.frame.Data),
		"width", msg.frame.Width, "height", msg.frame.Height)
	return c.analyze(msg.requestID, c.frame)
}

func (c *Controller) handleCaptureFailed(msg captureFailedMsg) {
	if msg.requestID != c.inFlightID || c.inFlightID == "" {
		c.logger.Debug("stale capture failure dropped", "request_id", msg.requestID)
		if !c.screen.HoldsCamera() {
			c.releaseCamera()
		}
		return
	}
	c.inFlightID = ""
	c.lastError = captureMessage(msg.err)
	if errors.Is(msg.err, capture.ErrDeviceUnavailable) {
		c.cameraReady = false
	}
	c.logger.Warn("capture failed", "request_id", msg.requestID, "error", msg.err)
	c.setScreen(model.ScreenCameraLive, "capture failed")
}

func (c *Controller) analyze(requestID string, image []byte) tea.Cmd {
	client, timeout := c.analysis, c.opts.AnalysisTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := client.Analyze(ctx, image, requestID)
		return analysisDoneMsg{requestID: requestID, resp: resp, err: err}
	}
}

func (c *Controller) handleAnalysis(msg analysisDoneMsg) {
	if c.inFlightID == "" || msg.requestID != c.inFlightID ||
		(msg.err == nil && msg.resp.RequestID != c.inFlightID) {
		c.logger.Debug("stale analysis dropped", "request_id", msg.requestID, "in_flight", c.inFlightID)
		return
	}
	c.inFlightID = ""

	if msg.err != nil {
		c.lastError = MsgAnalysisFailed
		c.frame = nil
		c.logger.Warn("analysis failed", "request_id", msg.requestID, "error", msg.err)
		c.setScreen(model.ScreenCameraLive, "analysis failed")
		return
	}

	c.result = msg.resp.Markdown
	c.lastError = ""
	c.setScreen(model.ScreenResult, "analysis")
}

func (c *Controller) reanalyze() tea.Cmd {
	if c.screen != model.ScreenResult || c.inFlightID != "" || len(c.frame) == 0 {
		c.logger.Debug("reanalyze ignored", "screen", c.screen.String())
		return nil
	}
	id := c.opts.NewRequestID()
	c.inFlightID = id
	c.result = ""
	c.lastError = ""
	c.setScreen(model.ScreenAnalyzing, "reanalyze")
	return c.analyze(id, c.frame)
}

func (c *Controller) enterThanks() {
	c.inFlightID = ""
	c.frame = nil
	c.result = ""
	c.releaseCamera()
	c.setScreen(model.ScreenThanks, "advance")
}

// schedule fills the timer slot. An occupied slot means a guard was missed,
// which is treated as an invariant violation.
func (c *Controller) schedule(kind timerKind, d time.Duration) tea.Cmd {
	if c.timer.kind != timerNone {
		c.logger.Error("invariant violation: timer already pending",
			"pending", c.timer.kind.String(), "requested", kind.String())
		c.forceReset("invariant violation")
		return nil
	}
	c.timerSeq++
	c.timer = pendingTimer{kind: kind, id: c.timerSeq}
	id := c.timerSeq
	return tea.Tick(d, func(time.Time) tea.Msg {
		return timerFiredMsg{kind: kind, id: id}
	})
}

func (c *Controller) handleTimer(msg timerFiredMsg) tea.Cmd {
	if msg.kind != c.timer.kind || msg.id != c.timer.id {
		c.logger.Debug("stale timer dropped", "kind", msg.kind.String(), "id", msg.id)
		return nil
	}
	c.timer = pendingTimer{}

	switch msg.kind {
	case timerTransition:
		if c.screen != model.ScreenWelcome1 {
			c.logger.Error("invariant violation: transition timer off Welcome1", "screen", c.screen.String())
			c.forceReset("invariant violation")
			return nil
		}
		c.setScreen(model.ScreenWelcome2, "transition timer")
	case timerReset:
		c.reset("reset timer")
	}
	return nil
}

// forceReset abandons whatever is in progress
func (c *Controller) forceReset(reason string) {
	c.logger.Warn("forced reset", "reason", reason, "screen", c.screen.String())
	c.reset(reason)
}

// reset returns the session to its initial state. Outstanding timers, lookups
// and analysis requests are invalidated and the camera is released.
func (c *Controller) reset(trigger string) {
	c.releaseCamera()
	from := c.screen

	c.identityInput = ""
	c.student = nil
	c.frame = nil
	c.result = ""
	c.lastError = ""
	c.inFlightID = ""
	c.timer = pendingTimer{}
	c.lookupToken = 0
	c.cameraReady = false
	c.epoch++
	c.screen = model.ScreenWelcome1

	c.logger.Info("session reset", "from", from.String(), "trigger", trigger)
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(from, model.ScreenWelcome1, trigger)
	}
}

func (c *Controller) releaseCamera() {
	c.cameraReady = false
	if err := c.camera.Release(); err != nil {
		c.logger.Warn("camera release failed", "error", err)
	}
}

func (c *Controller) setScreen(to model.Screen, trigger string) {
	from := c.screen
	c.screen = to
	c.logger.Info("screen transition", "from", from.String(), "to", to.String(), "trigger", trigger)
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(from, to, trigger)
	}
}
