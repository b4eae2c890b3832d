package interview

import (
	"context"
	"strings"
	"sync"
	"time"

	"careercoach/internal/ai"
	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/types"
)

// Invoker is the part of the AI provider a session needs
type Invoker interface {
	GenerateInterviewQuestion(ctx context.Context, input types.InterviewQuestionInput) (types.InterviewQuestion, *ai.TokenUsage, error)
	CritiqueAnswer(ctx context.Context, input types.CritiqueInput) (types.Feedback, *ai.TokenUsage, error)
}

// ResumeSource looks up the résumé on file for a user. A nil reference
// without error means the user has not uploaded one.
type ResumeSource interface {
	GetResumeReference(ctx context.Context, userID string) (*types.ResumeRef, error)
}

// DomainChecker rejects domains a deployment does not offer
type DomainChecker interface {
	CheckDomain(domain string) error
}

// Observer receives a snapshot after every state change. It is called
// without the session lock held, possibly from several goroutines.
type Observer func(Snapshot)

// InvocationHook is told about every AI call a session makes
type InvocationHook func(op config.Operation, duration time.Duration, usage *ai.TokenUsage, err error)

// Options holds the optional collaborators of a Controller
type Options struct {
	Speech       SpeechCapture
	Preview      MediaPreview
	Domains      DomainChecker
	Observer     Observer
	OnInvocation InvocationHook
	Logger       *errors.Logger
	DefaultLevel types.ExperienceLevel
	DefaultMode  Mode
	// StopGrace bounds the wait for trailing speech events after Stop
	StopGrace time.Duration
}

// Controller owns one interview session and is its only mutator. It is safe
// for concurrent use; AI calls run outside the lock and only one may be in
// flight at a time.
type Controller struct {
	id      string
	userID  string
	invoker Invoker
	resumes ResumeSource
	opts    Options
	logger  *errors.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	settings       Settings
	status         Status
	question       string
	draft          string
	tr             *transcript
	recording      bool
	captureGen     int
	captureDone    chan struct{}
	previewStarted bool
	history        []QAPair
	lastFeedback   *types.Feedback
	warnings       []string
	resumeText     string
	busy           bool
	closed         bool
	updatedAt      time.Time
	seq            uint64

	// notifyMu orders observer calls; notified is the last Seq delivered
	notifyMu sync.Mutex
	notified uint64
}

// NewController creates a session in the configuring state
func NewController(id, userID string, invoker Invoker, resumes ResumeSource, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = errors.Discard()
	}
	if opts.DefaultLevel == "" {
		opts.DefaultLevel = types.LevelMid
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = ModeText
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:      id,
		userID:  userID,
		invoker: invoker,
		resumes: resumes,
		opts:    opts,
		logger:  opts.Logger.With("session_id", id, "user_id", userID),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		status:  StatusConfiguring,
	}
	c.updatedAt = c.now()
	return c
}

// ID returns the session id
func (c *Controller) ID() string { return c.id }

// UserID returns the owner of the session
func (c *Controller) UserID() string { return c.userID }

// LastActivity returns the time of the last state change
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// Snapshot returns a copy of the current session
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Warnings returns the capability warnings raised so far
func (c *Controller) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.warnings...)
}

// Configure submits domain, mode and level and fetches the first question.
// Without a résumé on file it fails with a MissingResume error and the session
// stays in configuring.
func (c *Controller) Configure(ctx context.Context, s Settings) error {
	s.Domain = strings.TrimSpace(s.Domain)
	if s.Mode == "" {
		s.Mode = c.opts.DefaultMode
	}
	if s.ExperienceLevel == "" {
		s.ExperienceLevel = c.opts.DefaultLevel
	}

	c.mu.Lock()
	if err := c.checkLocked("configure", StatusConfiguring); err != nil {
		c.mu.Unlock()
		return err
	}
	switch {
	case s.Domain == "":
		c.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "domain is required", nil)
	case !s.Mode.Valid():
		c.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid mode: "+string(s.Mode), nil)
	case !s.ExperienceLevel.Valid():
		c.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"invalid experience level: "+string(s.ExperienceLevel), nil)
	}
	c.busy = true
	c.mu.Unlock()

	resumeText, err := c.lookupResume(ctx, s.Domain)
	if err != nil {
		c.release()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.busy = false
		c.mu.Unlock()
		return closed()
	}
	c.settings = s
	c.resumeText = resumeText
	c.status = StatusAwaitingQuestion
	c.touchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	c.logger.Info("Interview configured",
		"domain", s.Domain,
		"mode", string(s.Mode),
		"level", string(s.ExperienceLevel))

	c.startPreview(s.Mode)
	return c.fetchQuestion(ctx)
}

func (c *Controller) lookupResume(ctx context.Context, domain string) (string, error) {
	if c.opts.Domains != nil {
		if err := c.opts.Domains.CheckDomain(domain); err != nil {
			return "", err
		}
	}

	ref, err := c.resumes.GetResumeReference(ctx, c.userID)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeStorageFailed, "failed to read résumé", err)
	}
	if ref == nil || strings.TrimSpace(ref.Text) == "" {
		return "", missingResume(nil)
	}
	return ref.Text, nil
}

// SetDraft replaces the answer draft with typed text. During speech capture
// the typed text becomes the base that new transcript text is appended to.
func (c *Controller) SetDraft(text string) error {
	c.mu.Lock()
	if err := c.checkLocked("edit the answer", StatusAwaitingAnswer); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.recording && c.tr != nil {
		c.tr = &transcript{base: text}
	} else {
		c.tr = nil
		c.captureGen++
		c.draft = text
	}
	c.touchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// StartRecording starts speech capture for the answer. Unavailable capture is
// reported as a CapabilityUnavailable error; typing still works.
func (c *Controller) StartRecording() error {
	c.mu.Lock()
	if err := c.checkLocked("record", StatusAwaitingAnswer); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.recording {
		c.mu.Unlock()
		return nil
	}
	if !c.settings.Mode.offersSpeech() {
		c.mu.Unlock()
		return capabilityUnavailable("speech capture in "+string(c.settings.Mode)+" mode", nil)
	}
	if c.opts.Speech == nil {
		err := capabilityUnavailable("speech capture", nil)
		c.warnLocked(err)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return err
	}
	c.busy = true
	c.mu.Unlock()

	startErr := c.opts.Speech.Start(c.ctx)
	var events <-chan SpeechEvent
	if startErr == nil {
		events = c.opts.Speech.Events()
	}

	c.mu.Lock()
	c.busy = false
	if c.closed {
		c.mu.Unlock()
		if startErr == nil {
			_ = c.opts.Speech.Stop()
		}
		return closed()
	}
	if startErr != nil {
		err := capabilityUnavailable("speech capture", startErr)
		c.warnLocked(err)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return err
	}

	c.tr = &transcript{base: c.draftLocked()}
	c.captureGen++
	c.recording = true
	done := make(chan struct{})
	c.captureDone = done
	gen := c.captureGen
	c.touchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if events == nil {
		close(done)
	} else {
		go c.consume(gen, events, done)
	}
	c.notify(snap)
	return nil
}

// consume applies transcript events of one capture. Events of an older
// capture, or arriving after the answer was submitted, are dropped.
func (c *Controller) consume(gen int, events <-chan SpeechEvent, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.mu.Lock()
			if c.closed || gen != c.captureGen || c.tr == nil || c.status != StatusAwaitingAnswer {
				c.mu.Unlock()
				continue
			}
			c.tr.apply(ev)
			c.touchLocked()
			snap := c.snapshotLocked()
			c.mu.Unlock()
			c.notify(snap)
		}
	}
}

// StopRecording stops speech capture and keeps everything transcribed so far
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return closed()
	}
	c.mu.Unlock()
	return c.stopCapture()
}

func (c *Controller) stopCapture() error {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return nil
	}
	c.recording = false
	done := c.captureDone
	c.mu.Unlock()

	err := c.opts.Speech.Stop()
	if done != nil {
		select {
		case <-done:
		case <-time.After(c.opts.StopGrace):
			c.logger.Warn("Speech capture did not finish in time", "grace", c.opts.StopGrace.String())
		}
	}

	c.mu.Lock()
	c.touchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	if err != nil {
		c.logger.Warn("Stopping speech capture failed", "error", err.Error())
		return capabilityUnavailable("speech capture", err)
	}
	return nil
}

// Submit sends the current draft for critique. Active capture is stopped
// first. On failure the session returns to awaiting_answer with the draft
// kept.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkLocked("submit an answer", StatusAwaitingAnswer); err != nil {
		c.mu.Unlock()
		return err
	}
	c.busy = true
	recording := c.recording
	c.mu.Unlock()

	if recording {
		_ = c.stopCapture()
	}

	c.mu.Lock()
	if c.closed {
		c.busy = false
		c.mu.Unlock()
		return closed()
	}
	c.freezeDraftLocked()
	answer := strings.TrimSpace(c.draft)
	if answer == "" {
		c.busy = false
		c.mu.Unlock()
		return emptyAnswer()
	}
	question := c.question
	c.status = StatusAwaitingFeedback
	c.touchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	ictx, cancel := c.invocationContext(ctx)
	defer cancel()
	start := time.Now()
	feedback, usage, err := c.invoker.CritiqueAnswer(ictx, types.CritiqueInput{Question: question, Answer: answer})
	c.record(config.OpAnswerCritique, time.Since(start), usage, err)

	c.mu.Lock()
	c.busy = false
	if c.closed {
		c.mu.Unlock()
		return closed()
	}
	if err != nil {
		c.status = StatusAwaitingAnswer
		c.touchLocked()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		c.logger.LogError(err, "Answer critique failed")
		return critiqueFailed(err)
	}

	fb := feedback
	c.history = append(c.history, QAPair{Question: question, Answer: answer, Feedback: &fb})
	c.lastFeedback = &fb
	c.status = StatusShowingFeedback
	c.touchLocked()
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	c.logger.Info("Answer critiqued", "score", fb.Score, "history_len", len(snap.History))
	return nil
}

// SubmitText replaces the draft with text and submits it. Blank text is
// rejected before the draft is touched.
func (c *Controller) SubmitText(ctx context.Context, text string) error {
	c.mu.Lock()
	err := c.checkLocked("submit an answer", StatusAwaitingAnswer)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return emptyAnswer()
	}
	if err := c.SetDraft(text); err != nil {
		return err
	}
	return c.Submit(ctx)
}

// Next moves from feedback to the next question
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkLocked("request the next question", StatusShowingFeedback); err != nil {
		c.mu.Unlock()
		return err
	}
	c.busy = true
	c.status = StatusAwaitingQuestion
	c.question = ""
	c.draft = ""
	c.tr = nil
	c.captureGen++
	c.touchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	return c.fetchQuestion(ctx)
}

// fetchQuestion runs in awaiting_question with busy set
func (c *Controller) fetchQuestion(ctx context.Context) error {
	c.mu.Lock()
	input := types.InterviewQuestionInput{
		Domain:            c.settings.Domain,
		ExperienceLevel:   c.settings.ExperienceLevel,
		ResumeText:        c.resumeText,
		PreviousQuestions: make([]string, 0, len(c.history)),
	}
	for _, qa := range c.history {
		input.PreviousQuestions = append(input.PreviousQuestions, qa.Question)
	}
	c.mu.Unlock()

	ictx, cancel := c.invocationContext(ctx)
	defer cancel()
	start := time.Now()
	out, usage, err := c.invoker.GenerateInterviewQuestion(ictx, input)
	c.record(config.OpInterviewQuestion, time.Since(start), usage, err)
	if err == nil && strings.TrimSpace(out.Question) == "" {
		err = ai.ErrSchemaViolation
	}

	c.mu.Lock()
	c.busy = false
	if c.closed {
		c.mu.Unlock()
		return closed()
	}
	if err != nil {
		c.status = StatusConfiguring
		c.question = ""
		c.touchLocked()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		c.logger.LogError(err, "Question fetch failed")
		return questionFetchFailed(err)
	}

	c.status = StatusAwaitingAnswer
	c.question = strings.TrimSpace(out.Question)
	c.draft = ""
	c.tr = nil
	c.captureGen++
	c.touchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// Close ends the session. In-flight results are discarded.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	recording := c.recording
	c.recording = false
	c.captureGen++
	previewStarted := c.previewStarted
	c.previewStarted = false
	c.touchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.cancel()
	if recording {
		if err := c.opts.Speech.Stop(); err != nil {
			c.logger.Warn("Stopping speech capture failed", "error", err.Error())
		}
	}
	if previewStarted {
		if err := c.opts.Preview.Stop(); err != nil {
			c.logger.Warn("Stopping media preview failed", "error", err.Error())
		}
	}
	c.notify(snap)
	c.logger.Info("Interview closed", "history_len", len(snap.History))
	return nil
}

// startPreview shows the camera or microphone preview. Failure only adds a warning.
func (c *Controller) startPreview(mode Mode) {
	if mode == ModeText || c.opts.Preview == nil {
		return
	}
	c.mu.Lock()
	started := c.previewStarted
	c.mu.Unlock()
	if started {
		return
	}

	err := c.opts.Preview.Start(c.ctx, mode)

	c.mu.Lock()
	if err != nil {
		c.warnLocked(capabilityUnavailable(string(mode)+" preview", err))
	} else {
		c.previewStarted = true
	}
	c.touchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// checkLocked rejects actions on closed or busy sessions and actions not
// allowed in the current status
func (c *Controller) checkLocked(action string, want Status) error {
	switch {
	case c.closed:
		return closed()
	case c.busy || c.status.transitional():
		return busy()
	case c.status != want:
		return invalidTransition(action, c.status)
	}
	return nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// invocationContext is canceled when either ctx or the session ends
func (c *Controller) invocationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ictx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return ictx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) record(op config.Operation, d time.Duration, usage *ai.TokenUsage, err error) {
	if c.opts.OnInvocation != nil {
		c.opts.OnInvocation(op, d, usage, err)
	}
}

func (c *Controller) warnLocked(err error) {
	c.warnings = append(c.warnings, err.Error())
	c.logger.Warn("Capability unavailable", "error", err.Error())
}

func (c *Controller) draftLocked() string {
	if c.tr != nil {
		return c.tr.text()
	}
	return c.draft
}

// freezeDraftLocked turns the transcript into plain draft text and ignores
// any later events of that capture
func (c *Controller) freezeDraftLocked() {
	if c.tr == nil {
		return
	}
	c.draft = c.tr.text()
	c.tr = nil
	c.captureGen++
}

func (c *Controller) touchLocked() {
	c.updatedAt = c.now()
}

func (c *Controller) snapshotLocked() Snapshot {
	history := make([]QAPair, len(c.history))
	for i, qa := range c.history {
		history[i] = qa
		if qa.Feedback != nil {
			fb := *qa.Feedback
			history[i].Feedback = &fb
		}
	}
	var last *types.Feedback
	if c.lastFeedback != nil {
		fb := *c.lastFeedback
		last = &fb
	}
	c.seq++
	return Snapshot{
		Seq:                c.seq,
		ID:                 c.id,
		UserID:             c.userID,
		Domain:             c.settings.Domain,
		Mode:               c.settings.Mode,
		ExperienceLevel:    c.settings.ExperienceLevel,
		Status:             c.status,
		CurrentQuestion:    c.question,
		CurrentAnswerDraft: c.draftLocked(),
		Recording:          c.recording,
		History:            history,
		LastFeedback:       last,
		Warnings:           append([]string(nil), c.warnings...),
		Closed:             c.closed,
		UpdatedAt:          c.updatedAt,
	}
}

// notify delivers s unless a newer snapshot already went out. Snapshots are
// taken under mu but delivered outside it, so two goroutines can race here.
func (c *Controller) notify(s Snapshot) {
	if c.opts.Observer == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if s.Seq <= c.notified {
		return
	}
	c.notified = s.Seq
	c.opts.Observer(s)
}
