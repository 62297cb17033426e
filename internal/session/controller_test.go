package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clive/kiosk-go/internal/analysis"
	"github.com/clive/kiosk-go/internal/capture"
	"github.com/clive/kiosk-go/internal/identity"
	"github.com/clive/kiosk-go/internal/input"
	"github.com/clive/kiosk-go/internal/model"
)

type fakeCamera struct {
	acquired     bool
	acquireErr   error
	snapErr      error
	frame        []byte
	acquireCalls int
	releaseCalls int
}

func (f *fakeCamera) Acquire(ctx context.Context) error {
	f.acquireCalls++
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.acquired = true
	return nil
}

func (f *fakeCamera) Snapshot() (capture.Frame, error) {
	if !f.acquired {
		return capture.Frame{}, capture.ErrNotReady
	}
	if f.snapErr != nil {
		return capture.Frame{}, f.snapErr
	}
	return capture.Frame{Data: f.frame, MIMEType: "image/jpeg", Width: 4, Height: 3, Seq: 1}, nil
}

func (f *fakeCamera) Release() error {
	f.releaseCalls++
	f.acquired = false
	return nil
}

func (f *fakeCamera) Acquired() bool { return f.acquired }

type fakeDirectory struct {
	students map[string]model.IdentityRecord
	err      error
	calls    []string
}

func (f *fakeDirectory) Lookup(ctx context.Context, id string) (identity.Result, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return identity.Result{}, f.err
	}
	rec, ok := f.students[id]
	return identity.Result{Found: ok, Record: rec}, nil
}

type analyzeCall struct {
	image     []byte
	requestID string
}

type fakeAnalyzer struct {
	err   error
	calls []analyzeCall
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, image []byte, requestID string) (analysis.Response, error) {
	f.calls = append(f.calls, analyzeCall{image: image, requestID: requestID})
	if f.err != nil {
		return analysis.Response{}, f.err
	}
	return analysis.Response{RequestID: requestID, Markdown: "# result " + requestID}, nil
}

type testKiosk struct {
	c        *Controller
	camera   *fakeCamera
	dir      *fakeDirectory
	analyzer *fakeAnalyzer
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("r%d", n)
	}
}

func newTestKiosk() *testKiosk {
	k := &testKiosk{
		camera: &fakeCamera{frame: []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9}},
		dir: &fakeDirectory{students: map[string]model.IdentityRecord{
			"7": {ID: "7", GivenName: "A", FamilyName: "B", ClassName: "5"},
		}},
		analyzer: &fakeAnalyzer{},
	}
	k.c = NewController(k.camera, k.dir, k.analyzer, Options{
		TransitionDelay: time.Millisecond,
		ResetDelay:      time.Millisecond,
		CaptureTimeout:  20 * time.Millisecond,
		NewRequestID:    sequentialIDs(),
	})
	return k
}

// collect runs cmd and returns the messages it produced
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// pump feeds every message cmd produces back into the controller until quiet
func (k *testKiosk) pump(cmd tea.Cmd) {
	for _, msg := range collect(cmd) {
		k.pump(k.c.Update(msg))
	}
}

func (k *testKiosk) send(kind input.Kind) tea.Cmd {
	return k.c.Update(input.Event{Kind: kind})
}

func (k *testKiosk) typeDigits(s string) {
	for _, r := range s {
		k.c.Update(input.Event{Kind: input.KindDigit, Digit: r})
	}
}

func (k *testKiosk) toIdentityForm(t *testing.T) {
	t.Helper()
	k.pump(k.send(input.KindAdvance))
	k.pump(k.send(input.KindAdvance))
	if got := k.c.Screen(); got != model.ScreenIdentityForm {
		t.Fatalf("expected identity_form, got %s", got)
	}
}

func (k *testKiosk) toCameraLive(t *testing.T) {
	t.Helper()
	k.toIdentityForm(t)
	k.typeDigits("7")
	k.pump(k.send(input.KindAdvance))
	if got := k.c.Screen(); got != model.ScreenCameraLive {
		t.Fatalf("expected camera_live, got %s (error %q)", got, k.c.View().LastError)
	}
}

func (k *testKiosk) toResult(t *testing.T) {
	t.Helper()
	k.toCameraLive(t)
	k.pump(k.send(input.KindAdvance))
	if got := k.c.Screen(); got != model.ScreenResult {
		t.Fatalf("expected result, got %s (error %q)", got, k.c.View().LastError)
	}
}

func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		input  string
		reason string
	}{
		{"", MsgIdentityRequired},
		{"1", ""},
		{"12", ""},
		{"123", ""},
		{"1234", ""},
		{"0000", ""},
		{"12345", MsgIdentityTooLong},
		{"123456789", MsgIdentityTooLong},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			err := ValidateIdentity(tt.input)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("expected accept, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", verr.Reason, tt.reason)
			}
		})
	}
}

func TestWelcomeTransition(t *testing.T) {
	k := newTestKiosk()

	cmd := k.send(input.KindAdvance)
	if cmd == nil {
		t.Fatal("expected transition timer")
	}
	v := k.c.View()
	if v.Screen != model.ScreenWelcome1 || !v.TransitionPending {
		t.Fatalf("expected pending welcome1, got %+v", v)
	}

	// Re-entrancy: advance while the timer is pending is dropped.
	if again := k.send(input.KindAdvance); again != nil {
		t.Error("expected advance to be ignored while transition pending")
	}

	k.pump(cmd)
	if got := k.c.Screen(); got != model.ScreenWelcome2 {
		t.Fatalf("expected welcome2, got %s", got)
	}
	if k.c.View().TransitionPending {
		t.Error("expected timer slot cleared")
	}

	k.send(input.KindAdvance)
	if got := k.c.Screen(); got != model.ScreenIdentityForm {
		t.Errorf("expected identity_form, got %s", got)
	}
}

func TestIdentityEditing(t *testing.T) {
	k := newTestKiosk()

	// Digits outside the form are ignored
	k.typeDigits("9")
	if k.c.View().IdentityInput != "" {
		t.Fatal("expected digits ignored on welcome1")
	}

	k.toIdentityForm(t)
	k.typeDigits("12345")
	if got := k.c.View().IdentityInput; got != "1234" {
		t.Errorf("expected over-length digit ignored, got %q", got)
	}

	k.c.Update(input.Event{Kind: input.KindDigit, Digit: 'x'})
	if got := k.c.View().IdentityInput; got != "1234" {
		t.Errorf("expected non-digit ignored, got %q", got)
	}

	k.send(input.KindBackspace)
	k.send(input.KindBackspace)
	if got := k.c.View().IdentityInput; got != "12" {
		t.Errorf("expected 12 after backspaces, got %q", got)
	}
	if k.c.View().LastError != "" {
		t.Error("edits should never set an error")
	}
}

func TestEmptyIdentityRejected(t *testing.T) {
	k := newTestKiosk()
	k.toIdentityForm(t)

	cmd := k.send(input.KindAdvance)
	if cmd != nil {
		t.Error("expected no lookup for empty input")
	}
	v := k.c.View()
	if v.LastError != MsgIdentityRequired || v.Screen != model.ScreenIdentityForm {
		t.Errorf("unexpected view %+v", v)
	}

	// Editing clears the error
	k.typeDigits("1")
	if k.c.View().LastError != "" {
		t.Error("expected error cleared on edit")
	}
}

func TestScenarioA_LookupSucceeds(t *testing.T) {
	k := newTestKiosk()
	k.toIdentityForm(t)
	k.typeDigits("7")

	cmd := k.send(input.KindAdvance)
	if !k.c.View().LookupPending {
		t.Fatal("expected lookup pending")
	}
	k.pump(cmd)

	v := k.c.View()
	if v.Screen != model.ScreenCameraLive {
		t.Fatalf("expected camera_live, got %s", v.Screen)
	}
	if v.Identity == nil || v.Identity.ID != "7" || v.Identity.FullName() != "A B" || v.Identity.ClassName != "5" {
		t.Errorf("unexpected identity %+v", v.Identity)
	}
	if !v.CameraReady || k.camera.acquireCalls != 1 {
		t.Errorf("expected camera pre-acquired, ready=%v calls=%d", v.CameraReady, k.camera.acquireCalls)
	}
	if len(k.dir.calls) != 1 || k.dir.calls[0] != "7" {
		t.Errorf("unexpected lookups %v", k.dir.calls)
	}
}

func TestScenarioB_OverLengthRejectedBeforeSubmission(t *testing.T) {
	k := newTestKiosk()
	k.toIdentityForm(t)
	k.c.identityInput = "12345"

	if cmd := k.send(input.KindAdvance); cmd != nil {
		t.Error("expected no lookup")
	}
	v := k.c.View()
	if v.LastError != MsgIdentityTooLong {
		t.Errorf("lastError = %q", v.LastError)
	}
	if v.Screen != model.ScreenIdentityForm {
		t.Errorf("expected identity_form, got %s", v.Screen)
	}
	if len(k.dir.calls) != 0 {
		t.Error("lookup must not be called")
	}
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		err     error
		wantErr string
	}{
		{"not found", "42", nil, MsgStudentNotFound},
		{"unreachable", "7", fmt.Errorf("%w: dial tcp", identity.ErrServiceUnreachable), MsgDirectoryUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := newTestKiosk()
			k.dir.err = tt.err
			k.toIdentityForm(t)
			k.typeDigits(tt.input)
			k.pump(k.send(input.KindAdvance))

			v := k.c.View()
			if v.Screen != model.ScreenIdentityForm {
				t.Errorf("expected identity_form, got %s", v.Screen)
			}
			if v.LastError != tt.wantErr {
				t.Errorf("lastError = %q, want %q", v.LastError, tt.wantErr)
			}
			if v.LookupPending {
				t.Error("expected lookup settled")
			}
			if v.IdentityInput != tt.input {
				t.Errorf("expected input kept, got %q", v.IdentityInput)
			}
			if k.camera.acquireCalls != 0 {
				t.Error("camera must not be touched")
			}
		})
	}
}

func TestLookupPendingBlocksInput(t *testing.T) {
	k := newTestKiosk()
	k.toIdentityForm(t)
	k.typeDigits("7")
	cmd := k.send(input.KindAdvance)

	if again := k.send(input.KindAdvance); again != nil {
		t.Error("expected second submit ignored")
	}
	k.typeDigits("1")
	k.send(input.KindBackspace)
	if got := k.c.View().IdentityInput; got != "7" {
		t.Errorf("expected input frozen while lookup pending, got %q", got)
	}

	k.pump(cmd)
	if k.c.Screen() != model.ScreenCameraLive {
		t.Errorf("expected camera_live, got %s", k.c.Screen())
	}
	if len(k.dir.calls) != 1 {
		t.Errorf("expected a single lookup, got %d", len(k.dir.calls))
	}
}

func TestStaleLookupAfterReset(t *testing.T) {
	k := newTestKiosk()
	k.toIdentityForm(t)
	k.typeDigits("7")
	msgs := collect(k.send(input.KindAdvance))

	k.c.Update(ForcedResetMsg{Reason: "test"})
	for _, msg := range msgs {
		k.pump(k.c.Update(msg))
	}

	v := k.c.View()
	if v.Screen != model.ScreenWelcome1 || v.Identity != nil {
		t.Errorf("stale lookup applied: %+v", v)
	}
	if k.camera.acquireCalls != 0 {
		t.Error("stale lookup must not acquire the camera")
	}
}

func TestCaptureAndAnalyze(t *testing.T) {
	k := newTestKiosk()
	k.toCameraLive(t)

	cmd := k.send(input.KindAdvance)
	v := k.c.View()
	if v.Screen != model.ScreenAnalyzing || !v.IsAnalyzing {
		t.Fatalf("expected analyzing, got %+v", v)
	}
	if k.c.inFlightID != "r1" {
		t.Fatalf("expected in-flight r1, got %q", k.c.inFlightID)
	}

	k.pump(cmd)
	v = k.c.View()
	if v.Screen != model.ScreenResult {
		t.Fatalf("expected result, got %s", v.Screen)
	}
	if v.AnalysisResult != "# result r1" {
		t.Errorf("unexpected result %q", v.AnalysisResult)
	}
	if k.c.inFlightID != "" {
		t.Error("expected in-flight id cleared")
	}
	if len(k.analyzer.calls) != 1 || string(k.analyzer.calls[0].image) != string(k.camera.frame) {
		t.Errorf("unexpected analyze calls %+v", k.analyzer.calls)
	}
}

func TestAdvanceDuringAnalyzingIsNoop(t *testing.T) {
	k := newTestKiosk()
	k.toCameraLive(t)
	cmd := k.send(input.KindAdvance)

	before := k.c.View()
	for i := 0; i < 3; i++ {
		if extra := k.send(input.KindAdvance); extra != nil {
			t.Fatal("expected advance ignored while analyzing")
		}
		if extra := k.send(input.KindReanalyze); extra != nil {
			t.Fatal("expected reanalyze ignored while analyzing")
		}
	}
	if after := k.c.View(); after.Screen != before.Screen || k.c.inFlightID != "r1" {
		t.Errorf("state changed: %+v", after)
	}

	k.pump(cmd)
	if len(k.analyzer.calls) != 1 {
		t.Errorf("expected one analysis, got %d", len(k.analyzer.calls))
	}
}

func TestScenarioC_ResetDuringAnalysis(t *testing.T) {
	k := newTestKiosk()
	k.toCameraLive(t)

	// capture → frame message → analyze command, held back
	captured := collect(k.send(input.KindAdvance))
	if len(captured) != 1 {
		t.Fatalf("expected frame message, got %d", len(captured))
	}
	analyzeCmd := k.c.Update(captured[0])
	if analyzeCmd == nil {
		t.Fatal("expected analyze command")
	}

	k.c.Update(ForcedResetMsg{Reason: "fatal signal"})
	initial := newTestKiosk().c.View()
	if got := k.c.View(); !viewsEqual(got, initial) {
		t.Fatalf("expected initial session after reset, got %+v", got)
	}

	// the r1 response arrives late
	k.pump(analyzeCmd)
	if len(k.analyzer.calls) != 1 || k.analyzer.calls[0].requestID != "r1" {
		t.Fatalf("unexpected calls %+v", k.analyzer.calls)
	}
	if got := k.c.View(); !viewsEqual(got, initial) {
		t.Errorf("late response mutated session: %+v", got)
	}
	if k.camera.acquired {
		t.Error("camera must be released by reset")
	}
}

func TestResetReleasesCameraAfterLateCaptureFailure(t *testing.T) {
	k := newTestKiosk()
	k.camera.snapErr = capture.ErrNotReady
	k.toCameraLive(t)

	captureCmd := k.send(input.KindAdvance)
	if captureCmd == nil {
		t.Fatal("expected capture command")
	}
	k.c.Update(ForcedResetMsg{Reason: "fatal signal"})

	// the capture re-acquires the device, then times out waiting for a frame
	k.pump(captureCmd)
	if got := k.c.Screen(); got != model.ScreenWelcome1 {
		t.Fatalf("expected welcome1, got %s", got)
	}
	if k.camera.acquired {
		t.Errorf("camera left acquired after reset (releases=%d)", k.camera.releaseCalls)
	}
	if v := k.c.View(); v.LastError != "" {
		t.Errorf("late capture failure leaked error %q", v.LastError)
	}
}

func TestScenarioD_Reanalyze(t *testing.T) {
	k := newTestKiosk()
	k.toResult(t)
	frame := k.c.frame

	cmd := k.send(input.KindReanalyze)
	if cmd == nil {
		t.Fatal("expected reanalysis")
	}
	if k.c.inFlightID != "r2" {
		t.Fatalf("expected r2, got %q", k.c.inFlightID)
	}
	if v := k.c.View(); v.Screen != model.ScreenAnalyzing || v.AnalysisResult != "" {
		t.Errorf("expected analyzing without stale result, got %+v", v)
	}

	k.pump(cmd)
	v := k.c.View()
	if v.Screen != model.ScreenResult || v.AnalysisResult != "# result r2" {
		t.Errorf("unexpected view %+v", v)
	}
	if len(k.analyzer.calls) != 2 || string(k.analyzer.calls[1].image) != string(frame) {
		t.Errorf("expected same frame reused, calls %+v", k.analyzer.calls)
	}
	if k.camera.acquireCalls != 2 {
		// one pre-acquire plus the capture's idempotent acquire; reanalysis never captures
		t.Errorf("unexpected acquire calls %d", k.camera.acquireCalls)
	}
}

func TestMismatchedResponseNeverMutates(t *testing.T) {
	tests := []struct {
		name string
		msg  analysisDoneMsg
	}{
		{"unknown id success", analysisDoneMsg{requestID: "zz", resp: analysis.Response{RequestID: "zz", Markdown: "bogus"}}},
		{"unknown id failure", analysisDoneMsg{requestID: "zz", err: errors.New("boom")}},
		{"old id success", analysisDoneMsg{requestID: "r1", resp: analysis.Response{RequestID: "r1", Markdown: "old"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name+" in result", func(t *testing.T) {
			k := newTestKiosk()
			k.toResult(t)
			before := k.c.View()
			k.c.Update(tt.msg)
			if after := k.c.View(); !viewsEqual(after, before) {
				t.Errorf("view changed: %+v -> %+v", before, after)
			}
		})

		t.Run(tt.name+" while reanalyzing", func(t *testing.T) {
			k := newTestKiosk()
			k.toResult(t)
			k.send(input.KindReanalyze) // r2 in flight
			before := k.c.View()
			k.c.Update(tt.msg)
			after := k.c.View()
			if !viewsEqual(after, before) || k.c.inFlightID != "r2" {
				t.Errorf("view changed: %+v -> %+v", before, after)
			}
		})
	}
}

func TestResponseIDMustMatchToo(t *testing.T) {
	k := newTestKiosk()
	k.toResult(t)
	k.send(input.KindReanalyze)

	k.c.Update(analysisDoneMsg{requestID: "r2", resp: analysis.Response{RequestID: "r1", Markdown: "crossed"}})
	if k.c.Screen() != model.ScreenAnalyzing || k.c.View().AnalysisResult != "" {
		t.Errorf("crossed response applied: %+v", k.c.View())
	}
}

func TestAnalysisFailureReturnsToCamera(t *testing.T) {
	k := newTestKiosk()
	k.analyzer.err = errors.New("status 529: overloaded")
	k.toCameraLive(t)
	k.pump(k.send(input.KindAdvance))

	v := k.c.View()
	if v.Screen != model.ScreenCameraLive {
		t.Fatalf("expected camera_live, got %s", v.Screen)
	}
	if v.LastError != MsgAnalysisFailed {
		t.Errorf("lastError = %q", v.LastError)
	}
	if k.c.frame != nil || k.c.inFlightID != "" {
		t.Error("expected frame dropped and id cleared")
	}
	if cmd := k.send(input.KindReanalyze); cmd != nil {
		t.Error("reanalyze is only valid on result")
	}

	// retry clears the error
	k.analyzer.err = nil
	cmd := k.send(input.KindAdvance)
	if k.c.View().LastError != "" {
		t.Error("expected error cleared on new capture")
	}
	k.pump(cmd)
	if k.c.Screen() != model.ScreenResult {
		t.Errorf("expected result after retry, got %s", k.c.Screen())
	}
}

func TestDeviceUnavailable(t *testing.T) {
	k := newTestKiosk()
	k.camera.acquireErr = fmt.Errorf("%w: /dev/video0", capture.ErrDeviceUnavailable)
	k.toCameraLive(t)

	v := k.c.View()
	if v.LastError != MsgCameraUnavailable || v.CameraReady {
		t.Errorf("unexpected view after failed pre-acquire %+v", v)
	}

	k.pump(k.send(input.KindAdvance))
	v = k.c.View()
	if v.Screen != model.ScreenCameraLive || v.LastError != MsgCameraUnavailable {
		t.Errorf("unexpected view after failed capture %+v", v)
	}
	if len(k.analyzer.calls) != 0 {
		t.Error("analysis must not run without a frame")
	}
}

func TestCameraNotReady(t *testing.T) {
	k := newTestKiosk()
	k.camera.snapErr = capture.ErrNotReady
	k.toCameraLive(t)

	k.pump(k.send(input.KindAdvance))
	v := k.c.View()
	if v.Screen != model.ScreenCameraLive || v.LastError != MsgCameraNotReady {
		t.Errorf("unexpected view %+v", v)
	}
}

func TestThanksAndReset(t *testing.T) {
	k := newTestKiosk()
	k.toResult(t)
	releases := k.camera.releaseCalls

	cmd := k.send(input.KindAdvance)
	v := k.c.View()
	if v.Screen != model.ScreenThanks {
		t.Fatalf("expected thanks, got %s", v.Screen)
	}
	if k.c.frame != nil || v.AnalysisResult != "" {
		t.Error("expected frame and result cleared on thanks")
	}
	if k.camera.acquired || k.camera.releaseCalls != releases+1 {
		t.Error("expected camera released on thanks")
	}
	if k.c.timer.kind != timerReset {
		t.Fatalf("expected reset timer, got %s", k.c.timer.kind)
	}
	if extra := k.send(input.KindAdvance); extra != nil {
		t.Error("expected advance ignored while reset pending")
	}

	k.pump(cmd)
	if got := k.c.View(); !viewsEqual(got, newTestKiosk().c.View()) {
		t.Errorf("expected initial session, got %+v", got)
	}
}

func TestResetIdempotentAcrossCycles(t *testing.T) {
	k := newTestKiosk()
	initial := k.c.View()

	for cycle := 0; cycle < 3; cycle++ {
		k.toResult(t)
		k.pump(k.send(input.KindAdvance))

		if got := k.c.View(); !viewsEqual(got, initial) {
			t.Fatalf("cycle %d: session differs from initial: %+v", cycle, got)
		}
		if k.c.frame != nil || k.c.inFlightID != "" || k.c.timer != (pendingTimer{}) || k.c.lookupToken != 0 {
			t.Fatalf("cycle %d: hidden state left behind", cycle)
		}
		if k.camera.acquired {
			t.Fatalf("cycle %d: camera still held", cycle)
		}
	}
}

func TestStaleTimerDropped(t *testing.T) {
	k := newTestKiosk()
	msgs := collect(k.send(input.KindAdvance))
	k.c.Update(ForcedResetMsg{Reason: "test"})

	for _, msg := range msgs {
		k.c.Update(msg)
	}
	if k.c.Screen() != model.ScreenWelcome1 {
		t.Errorf("stale transition timer applied, screen %s", k.c.Screen())
	}

	// a fresh timer still works after the stale one was dropped
	k.pump(k.send(input.KindAdvance))
	if k.c.Screen() != model.ScreenWelcome2 {
		t.Errorf("expected welcome2, got %s", k.c.Screen())
	}
}

func TestMaintenanceKeyResets(t *testing.T) {
	k := newTestKiosk()
	k.toCameraLive(t)
	k.send(input.KindReset)

	if got := k.c.View(); !viewsEqual(got, newTestKiosk().c.View()) {
		t.Errorf("expected initial session, got %+v", got)
	}
	if k.camera.acquired {
		t.Error("expected camera released")
	}

	// forced reset on an idle session is harmless
	k.c.Update(ForcedResetMsg{Reason: "again"})
	if k.c.Screen() != model.ScreenWelcome1 {
		t.Errorf("unexpected screen %s", k.c.Screen())
	}
}

func TestLateAcquireReleasesCamera(t *testing.T) {
	k := newTestKiosk()
	k.toIdentityForm(t)
	k.typeDigits("7")

	// lookup succeeds, acquire is held back
	lookup := collect(k.send(input.KindAdvance))
	acquire := k.c.Update(lookup[0])
	k.c.Update(ForcedResetMsg{Reason: "fatal signal"})

	k.pump(acquire)
	if k.camera.acquired {
		t.Error("late acquire left the camera held")
	}
	if k.c.View().CameraReady {
		t.Error("camera must not be reported ready")
	}
}

func TestDoubleScheduleForcesReset(t *testing.T) {
	k := newTestKiosk()
	k.toResult(t)
	k.c.timer = pendingTimer{kind: timerTransition, id: 99}

	if cmd := k.c.schedule(timerReset, time.Millisecond); cmd != nil {
		t.Error("expected no timer on invariant violation")
	}
	if got := k.c.View(); !viewsEqual(got, newTestKiosk().c.View()) {
		t.Errorf("expected forced reset, got %+v", got)
	}
}

func TestOnTransitionHook(t *testing.T) {
	var seen []string
	k := newTestKiosk()
	k.c.opts.OnTransition = func(from, to model.Screen, trigger string) {
		seen = append(seen, from.String()+">"+to.String())
	}
	k.toIdentityForm(t)

	want := []string{"welcome1>welcome2", "welcome2>identity_form"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("transitions = %v, want %v", seen, want)
	}
}

func TestUnknownMessageIgnored(t *testing.T) {
	k := newTestKiosk()
	if cmd := k.c.Update(tea.WindowSizeMsg{Width: 80, Height: 24}); cmd != nil {
		t.Error("expected nil cmd")
	}
}

func viewsEqual(a, b model.ViewModel) bool {
	if (a.Identity == nil) != (b.Identity == nil) {
		return false
	}
	if a.Identity != nil && *a.Identity != *b.Identity {
		return false
	}
	a.Identity, b.Identity = nil, nil
	return a == b
}
