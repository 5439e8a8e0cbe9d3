// Package session implements the capture/view state machine: it sequences
// image acquisition, analysis and report display for one user and owns the
// camera stream for as long as a live state needs it.
package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/xiangxin/internal/ai"
	"github.com/kozaktomas/xiangxin/internal/apperrors"
	"github.com/kozaktomas/xiangxin/internal/capture"
	"github.com/kozaktomas/xiangxin/internal/constants"
	"github.com/kozaktomas/xiangxin/internal/logger"
	"github.com/kozaktomas/xiangxin/internal/report"
)

// State is a view state of the session.
type State string

// State values.
const (
	StateHome        State = "home"
	StateScanning    State = "scanning"
	StateAnalyzing   State = "analyzing"
	StateReportReady State = "reportReady"
)

// Source tells where the image under analysis came from.
type Source string

// Source values.
const (
	SourceCamera Source = "camera"
	SourceUpload Source = "upload"
)

// View is what a renderer needs to draw the current state.
type View struct {
	State      State                  `json:"state"`
	Source     Source                 `json:"source,omitempty"`
	HasPreview bool                   `json:"has_preview"`
	Report     *report.AnalysisReport `json:"report,omitempty"`
	Error      string                 `json:"error,omitempty"`
	ErrorKind  apperrors.Kind         `json:"error_kind,omitempty"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Options configures a Session.
type Options struct {
	Camera      capture.Camera
	Constraints capture.Constraints
	Analyzer    ai.Analyzer
	UploadLimit int64
	Timeout     time.Duration // bounds one analysis run
}

// errSuperseded is returned by a command overtaken by Cancel, Reset or Close.
var errSuperseded = apperrors.InvalidTransition("the command was cancelled")

// Session is the state machine for one user. All commands are safe for
// concurrent use; at most one analysis is in flight at a time.
type Session struct {
	camera      capture.Camera
	constraints capture.Constraints
	analyzer    ai.Analyzer
	uploadLimit int64
	timeout     time.Duration

	mu        sync.Mutex
	state     State
	source    Source
	handle    *capture.StreamHandle
	preview   *capture.EncodedImage
	report    *report.AnalysisReport
	lastErr   error
	updatedAt time.Time

	// generation increases whenever an in-flight run is superseded, so a late
	// result can be recognised and dropped.
	generation uint64
	cancelRun  context.CancelFunc
	closed     bool

	// pending is set while a command waits on the camera or a decode
	// with mu released.
	pending bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	events broadcaster
}

// New creates a session in the home state.
func New(opts Options) *Session {
	if opts.Camera == nil {
		opts.Camera = capture.Unavailable{}
	}
	if opts.Constraints == (capture.Constraints{}) {
		opts.Constraints = capture.DefaultConstraints()
	}
	if opts.UploadLimit <= 0 {
		opts.UploadLimit = constants.MaxUploadSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultAnalysisTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		camera:      opts.Camera,
		constraints: opts.Constraints,
		analyzer:    opts.Analyzer,
		uploadLimit: opts.UploadLimit,
		timeout:     opts.Timeout,
		state:       StateHome,
		updatedAt:   time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// StartCapture opens the camera: home|reportReady -> scanning. A camera
// failure leaves the session in home with the error surfaced. The lock is
// not held while the camera opens; Cancel, Reset and Close supersede it.
func (s *Session) StartCapture(ctx context.Context) error {
	s.mu.Lock()
	if err := s.guard(StateHome, StateReportReady); err != nil {
		s.mu.Unlock()
		return err
	}
	opCtx, gen := s.beginOp(ctx)
	s.mu.Unlock()

	handle, err := capture.Acquire(opCtx, s.camera, s.constraints)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.endOp(gen) {
		handle.Release()
		return errSuperseded
	}

	s.clear()
	if err != nil {
		s.lastErr = err
		s.setState(StateHome)
		return err
	}

	s.handle = handle
	s.source = SourceCamera
	s.setState(StateScanning)
	return nil
}

// Capture freezes the current frame and starts the analysis:
// scanning -> analyzing. The frame is available as preview immediately.
func (s *Session) Capture(ctx context.Context) error {
	s.mu.Lock()
	if err := s.guard(StateScanning); err != nil {
		s.mu.Unlock()
		return err
	}
	handle := s.handle
	opCtx, gen := s.beginOp(ctx)
	s.mu.Unlock()

	img, err := handle.Capture(opCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.endOp(gen) {
		return errSuperseded
	}
	if err != nil {
		s.fail(err)
		return err
	}

	s.startAnalysis(img)
	return nil
}

// UploadFile analyzes an uploaded image, bypassing the camera:
// home|scanning -> analyzing. Size and decode failures are reported before
// any network call and leave the state unchanged.
func (s *Session) UploadFile(ctx context.Context, r io.Reader, size int64) error {
	s.mu.Lock()
	if err := s.guard(StateHome, StateScanning); err != nil {
		s.mu.Unlock()
		return err
	}
	_, gen := s.beginOp(ctx)
	s.mu.Unlock()

	img, err := capture.FromFile(r, size, s.uploadLimit)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.endOp(gen) {
		return errSuperseded
	}
	if err != nil {
		s.lastErr = err
		s.touch()
		return err
	}

	s.handle.Release()
	s.handle = nil
	s.source = SourceUpload
	s.startAnalysis(img)
	return nil
}

// Cancel leaves a live state: scanning|analyzing -> home. An in-flight
// request is aborted and its result, if it still arrives, is discarded.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateScanning && s.state != StateAnalyzing && !s.pending {
		return apperrors.InvalidTransition("nothing to cancel in state " + string(s.state))
	}

	s.abortRun()
	s.clear()
	s.setState(StateHome)
	return nil
}

// Reset returns to home from any state and drops everything held.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abortRun()
	s.clear()
	s.setState(StateHome)
}

// Snapshot returns the current view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// Preview returns the image under analysis or on display.
func (s *Session) Preview() (capture.EncodedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview == nil {
		return capture.EncodedImage{}, false
	}
	return *s.preview, true
}

// CameraActive reports whether the session currently holds a live stream.
func (s *Session) CameraActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle.Active()
}

// Subscribe returns a channel receiving every state change.
func (s *Session) Subscribe() chan Event {
	return s.events.addListener()
}

// Unsubscribe stops delivery to ch and closes it.
func (s *Session) Unsubscribe(ch chan Event) {
	s.events.removeListener(ch)
}

// Wait blocks until no analysis goroutine is running.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close releases every resource, aborts any run and closes subscribers.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.abortRun()
	s.clear()
	s.state = StateHome
	s.touch()
	final := Event{Type: "closed", View: s.view()}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.events.close(final)
}

// guard checks that the current state is one of allowed. Analyzing rejects
// everything with Busy.
func (s *Session) guard(allowed ...State) error {
	if s.closed {
		return apperrors.InvalidTransition("session is closed")
	}
	if s.state == StateAnalyzing {
		return apperrors.Busy("an analysis is already in progress")
	}
	if s.pending {
		return apperrors.Busy("another command is in progress")
	}
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return apperrors.InvalidTransition("command not allowed in state " + string(s.state))
}

// startAnalysis must be called with mu held.
func (s *Session) startAnalysis(img capture.EncodedImage) {
	s.preview = &img
	s.report = nil
	s.lastErr = nil

	s.generation++
	gen := s.generation
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	s.cancelRun = cancel
	s.setState(StateAnalyzing)

	log := logger.WithFields(logrus.Fields{"source": s.source, "generation": gen})
	log.Debug("analysis started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		result, err := s.analyze(runCtx, img)
		s.finish(gen, result, err, log)
	}()
}

func (s *Session) analyze(ctx context.Context, img capture.EncodedImage) (*report.AnalysisReport, error) {
	if s.analyzer == nil {
		return nil, apperrors.BackendUnavailable("no analyzer configured", nil)
	}
	return s.analyzer.Analyze(ctx, img)
}

func (s *Session) finish(gen uint64, result *report.AnalysisReport, err error, log *logrus.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.state != StateAnalyzing {
		log.Debug("discarding result of a superseded analysis")
		return
	}
	s.cancelRun = nil

	if err != nil {
		log.WithError(err).Warn("analysis failed")
		s.fail(err)
		return
	}

	s.handle.Release()
	s.handle = nil
	s.report = result
	s.setState(StateReportReady)
	log.WithField("score", result.Score).Info("analysis finished")
}

// fail releases everything and returns to home with err surfaced.
func (s *Session) fail(err error) {
	s.clear()
	s.lastErr = err
	s.setState(StateHome)
}

// beginOp marks a blocking command in progress and returns its context,
// cancelled by abortRun or Close. Must be called with mu held.
func (s *Session) beginOp(ctx context.Context) (context.Context, uint64) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	s.pending = true
	s.cancelRun = func() {
		stop()
		cancel()
	}
	return opCtx, s.generation
}

// endOp finishes a command started by beginOp. It reports false when the
// command was superseded meanwhile. Must be called with mu held.
func (s *Session) endOp(gen uint64) bool {
	if s.closed || gen != s.generation {
		return false
	}
	s.pending = false
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
	return true
}

// abortRun cancels the in-flight run or command, if any, and invalidates its result.
func (s *Session) abortRun() {
	s.generation++
	s.pending = false
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
}

// clear releases the camera and drops preview, report and error.
func (s *Session) clear() {
	s.handle.Release()
	s.handle = nil
	s.preview = nil
	s.report = nil
	s.lastErr = nil
	s.source = ""
}

func (s *Session) setState(st State) {
	s.state = st
	s.touch()
}

// touch records a change and notifies subscribers.
func (s *Session) touch() {
	s.updatedAt = time.Now()
	s.events.send(Event{Type: "state", View: s.view()})
}

func (s *Session) view() View {
	v := View{
		State:      s.state,
		Source:     s.source,
		HasPreview: s.preview != nil,
		Report:     s.report,
		UpdatedAt:  s.updatedAt,
	}
	if s.lastErr != nil {
		v.Error = apperrors.UserMessage(s.lastErr)
		v.ErrorKind = apperrors.KindOf(s.lastErr)
	}
	return v
}
