package interview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"careercoach/internal/ai/aitest"
	"careercoach/internal/types"
)

type fakeResumes map[string]*types.ResumeRef

func (f fakeResumes) GetResumeReference(_ context.Context, userID string) (*types.ResumeRef, error) {
	return f[userID], nil
}

var withResume = fakeResumes{"u1": {MediaType: "text/plain", Text: "Go developer with 5 years of backend work"}}

type failingPreview struct{ stopped bool }

func (p *failingPreview) Start(context.Context, Mode) error { return errors.New("camera permission denied") }
func (p *failingPreview) Stop() error                       { p.stopped = true; return nil }

type failingSpeech struct{}

func (failingSpeech) Start(context.Context) error { return errors.New("speech recognition not supported") }
func (failingSpeech) Stop() error                 { return nil }
func (failingSpeech) Events() <-chan SpeechEvent  { return nil }

// snapshotLog records every observed snapshot
type snapshotLog struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (l *snapshotLog) observe(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snaps = append(l.snaps, s)
}

func (l *snapshotLog) all() []Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Snapshot(nil), l.snaps...)
}

func newTestController(provider *aitest.Provider, resumes ResumeSource, opts Options) *Controller {
	if opts.StopGrace == 0 {
		opts.StopGrace = 100 * time.Millisecond
	}
	return NewController("s1", "u1", provider, resumes, opts)
}

func feedback(score int) types.Feedback {
	return types.Feedback{
		ClarityNote:     "Well structured",
		ContentNote:     "Relevant",
		Score:           score,
		ImprovementTips: "Quantify the impact",
	}
}

func TestConfigureFetchesQuestion(t *testing.T) {
	for _, mode := range []Mode{ModeVideo, ModeAudio, ModeText} {
		t.Run(string(mode), func(t *testing.T) {
			provider := &aitest.Provider{
				QuestionFunc: func(_ context.Context, in types.InterviewQuestionInput) (types.InterviewQuestion, error) {
					if in.ExperienceLevel != types.LevelMid {
						t.Errorf("Expected default level mid, got %s", in.ExperienceLevel)
					}
					if in.ResumeText == "" {
						t.Error("Expected résumé text to be forwarded")
					}
					return types.InterviewQuestion{Question: "What is a goroutine?"}, nil
				},
			}
			c := newTestController(provider, withResume, Options{})

			if err := c.Configure(context.Background(), Settings{Domain: "Software Engineering", Mode: mode}); err != nil {
				t.Fatalf("Configure failed: %v", err)
			}

			snap := c.Snapshot()
			if snap.Status != StatusAwaitingAnswer {
				t.Errorf("Expected %s, got %s", StatusAwaitingAnswer, snap.Status)
			}
			if snap.CurrentQuestion == "" {
				t.Error("Expected a current question")
			}
			if snap.CurrentAnswerDraft != "" {
				t.Errorf("Expected empty draft, got %q", snap.CurrentAnswerDraft)
			}
		})
	}
}

func TestConfigureWithoutResume(t *testing.T) {
	tests := []struct {
		name    string
		resumes fakeResumes
	}{
		{"no upload", fakeResumes{}},
		{"empty text", fakeResumes{"u1": {MediaType: "application/pdf"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &aitest.Provider{}
			c := newTestController(provider, tt.resumes, Options{})

			err := c.Configure(context.Background(), Settings{Domain: "Data Science", Mode: ModeText})
			if !errors.Is(err, ErrMissingResume) {
				t.Fatalf("Expected missing résumé error, got %v", err)
			}
			if got := c.Snapshot().Status; got != StatusConfiguring {
				t.Errorf("Expected to stay in configuring, got %s", got)
			}
			if provider.Calls("GenerateInterviewQuestion") != 0 {
				t.Error("No question should be requested without a résumé")
			}
		})
	}
}

func TestConfigureValidation(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{"empty domain", Settings{Domain: "  ", Mode: ModeText}},
		{"bad mode", Settings{Domain: "Data Science", Mode: "hologram"}},
		{"bad level", Settings{Domain: "Data Science", Mode: ModeText, ExperienceLevel: "principal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(&aitest.Provider{}, withResume, Options{})
			if err := c.Configure(context.Background(), tt.settings); err == nil {
				t.Fatal("Expected validation error")
			}
			if got := c.Snapshot().Status; got != StatusConfiguring {
				t.Errorf("Expected configuring, got %s", got)
			}
		})
	}
}

func TestEmptyAnswerRejected(t *testing.T) {
	for _, answer := range []string{"", "   ", "\n\t "} {
		t.Run(fmt.Sprintf("%q", answer), func(t *testing.T) {
			provider := &aitest.Provider{}
			c := newTestController(provider, withResume, Options{})
			if err := c.Configure(context.Background(), Settings{Domain: "DevOps", Mode: ModeText}); err != nil {
				t.Fatal(err)
			}
			if err := c.SetDraft(answer); err != nil {
				t.Fatal(err)
			}

			err := c.Submit(context.Background())
			if !errors.Is(err, ErrEmptyAnswer) {
				t.Fatalf("Expected empty answer error, got %v", err)
			}

			snap := c.Snapshot()
			if snap.Status != StatusAwaitingAnswer {
				t.Errorf("Status changed to %s", snap.Status)
			}
			if len(snap.History) != 0 {
				t.Errorf("History changed: %v", snap.History)
			}
			if provider.Calls("CritiqueAnswer") != 0 {
				t.Error("Empty answer must not be critiqued")
			}
		})
	}
}

func TestSubmitTextKeepsDraftOnBlankAnswer(t *testing.T) {
	provider := &aitest.Provider{}
	log := &snapshotLog{}
	c := newTestController(provider, withResume, Options{Observer: log.observe})
	if err := c.Configure(context.Background(), Settings{Domain: "DevOps", Mode: ModeText}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDraft("my careful draft"); err != nil {
		t.Fatal(err)
	}
	before := len(log.all())

	if err := c.SubmitText(context.Background(), " \t\n"); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("Expected empty answer error, got %v", err)
	}
	snap := c.Snapshot()
	if snap.CurrentAnswerDraft != "my careful draft" || snap.Status != StatusAwaitingAnswer {
		t.Errorf("State changed: draft=%q status=%s", snap.CurrentAnswerDraft, snap.Status)
	}
	if len(log.all()) != before {
		t.Error("Blank answer must not notify observers")
	}

	if err := c.SubmitText(context.Background(), "typed at the last moment"); err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}
	snap = c.Snapshot()
	if len(snap.History) != 1 || snap.History[0].Answer != "typed at the last moment" {
		t.Errorf("Unexpected history: %+v", snap.History)
	}
}

func TestCritiqueFailurePreservesDraft(t *testing.T) {
	provider := &aitest.Provider{
		CritiqueFunc: func(context.Context, types.CritiqueInput) (types.Feedback, error) {
			return types.Feedback{}, errors.New("quota exceeded")
		},
	}
	c := newTestController(provider, withResume, Options{})
	if err := c.Configure(context.Background(), Settings{Domain: "DevOps", Mode: ModeText}); err != nil {
		t.Fatal(err)
	}
	draft := "  I would start with the deployment pipeline.  "
	if err := c.SetDraft(draft); err != nil {
		t.Fatal(err)
	}

	err := c.Submit(context.Background())
	if !errors.Is(err, ErrCritique) {
		t.Fatalf("Expected critique error, got %v", err)
	}

	snap := c.Snapshot()
	if snap.Status != StatusAwaitingAnswer {
		t.Errorf("Expected awaiting_answer, got %s", snap.Status)
	}
	if snap.CurrentAnswerDraft != draft {
		t.Errorf("Draft changed: %q", snap.CurrentAnswerDraft)
	}
	if len(snap.History) != 0 {
		t.Errorf("History changed: %v", snap.History)
	}

	// Retrying without retyping succeeds
	provider.CritiqueFunc = nil
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if got := c.Snapshot().History; len(got) != 1 || got[0].Answer != strings.TrimSpace(draft) {
		t.Errorf("Unexpected history after retry: %+v", got)
	}
}

func TestHistoryGrowsInOrder(t *testing.T) {
	var asked [][]string
	round := 0
	provider := &aitest.Provider{
		QuestionFunc: func(_ context.Context, in types.InterviewQuestionInput) (types.InterviewQuestion, error) {
			asked = append(asked, in.PreviousQuestions)
			round++
			return types.InterviewQuestion{Question: fmt.Sprintf("Question %d", round)}, nil
		},
		CritiqueFunc: func(_ context.Context, in types.CritiqueInput) (types.Feedback, error) {
			var n int
			fmt.Sscanf(in.Question, "Question %d", &n)
			return feedback(n * 10), nil
		},
	}
	c := newTestController(provider, withResume, Options{})
	ctx := context.Background()

	if err := c.Configure(ctx, Settings{Domain: "Backend", Mode: ModeText}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := c.SetDraft(fmt.Sprintf("Answer %d", i)); err != nil {
			t.Fatal(err)
		}
		if err := c.Submit(ctx); err != nil {
			t.Fatal(err)
		}
		if got := len(c.Snapshot().History); got != i {
			t.Fatalf("Expected history length %d, got %d", i, got)
		}
		if i < 3 {
			if err := c.Next(ctx); err != nil {
				t.Fatal(err)
			}
		}
	}

	history := c.Snapshot().History
	for i, qa := range history {
		n := i + 1
		if qa.Question != fmt.Sprintf("Question %d", n) || qa.Answer != fmt.Sprintf("Answer %d", n) {
			t.Errorf("history[%d] out of order: %+v", i, qa)
		}
		if qa.Feedback == nil || qa.Feedback.Score != n*10 {
			t.Errorf("history[%d] feedback does not match its question: %+v", i, qa.Feedback)
		}
	}
	if len(asked[2]) != 2 || asked[2][0] != "Question 1" || asked[2][1] != "Question 2" {
		t.Errorf("Expected previous questions to be forwarded, got %v", asked[2])
	}
}

func TestSpeechFinalSupersedesInterim(t *testing.T) {
	tests := []struct {
		name   string
		typed  string
		events []SpeechEvent
		want   string
	}{
		{
			name:   "interim then final",
			events: []SpeechEvent{{Text: "foo"}, {Text: "foo bar", IsFinal: true}},
			want:   "foo bar",
		},
		{
			name: "finals in arrival order",
			events: []SpeechEvent{
				{Text: "first", IsFinal: true},
				{Text: "sec"},
				{Text: "second", IsFinal: true},
			},
			want: "first second",
		},
		{
			name:   "pending interim kept on stop",
			events: []SpeechEvent{{Text: "done", IsFinal: true}, {Text: "and more"}},
			want:   "done and more",
		},
		{
			name:   "appends to typed text",
			typed:  "Typed intro.",
			events: []SpeechEvent{{Text: "spoken part", IsFinal: true}},
			want:   "Typed intro. spoken part",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture := NewStreamCapture(8)
			c := newTestController(&aitest.Provider{}, withResume, Options{Speech: capture})
			if err := c.Configure(context.Background(), Settings{Domain: "Frontend", Mode: ModeAudio}); err != nil {
				t.Fatal(err)
			}
			if tt.typed != "" {
				if err := c.SetDraft(tt.typed); err != nil {
					t.Fatal(err)
				}
			}

			if err := c.StartRecording(); err != nil {
				t.Fatalf("StartRecording failed: %v", err)
			}
			for _, ev := range tt.events {
				if !capture.Feed(ev) {
					t.Fatal("Feed rejected while recording")
				}
			}
			if err := c.StopRecording(); err != nil {
				t.Fatalf("StopRecording failed: %v", err)
			}

			snap := c.Snapshot()
			if snap.CurrentAnswerDraft != tt.want {
				t.Errorf("Expected draft %q, got %q", tt.want, snap.CurrentAnswerDraft)
			}
			if snap.Recording {
				t.Error("Expected recording to be stopped")
			}
		})
	}
}

func TestSubmitStopsCaptureFirst(t *testing.T) {
	capture := NewStreamCapture(8)
	var activeDuringCritique bool
	var critiqued string
	provider := &aitest.Provider{
		CritiqueFunc: func(_ context.Context, in types.CritiqueInput) (types.Feedback, error) {
			activeDuringCritique = capture.Active()
			critiqued = in.Answer
			return feedback(60), nil
		},
	}
	c := newTestController(provider, withResume, Options{Speech: capture})
	if err := c.Configure(context.Background(), Settings{Domain: "Frontend", Mode: ModeVideo}); err != nil {
		t.Fatal(err)
	}
	if err := c.StartRecording(); err != nil {
		t.Fatal(err)
	}
	capture.Feed(SpeechEvent{Text: "React uses a virtual DOM", IsFinal: true})

	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if activeDuringCritique {
		t.Error("Capture should be stopped before the critique call")
	}
	if critiqued != "React uses a virtual DOM" {
		t.Errorf("Unexpected critiqued answer %q", critiqued)
	}
	if capture.Feed(SpeechEvent{Text: "late", IsFinal: true}) {
		t.Error("Feed should be rejected after submit")
	}
}

func TestSoftwareEngineeringScenario(t *testing.T) {
	const question = "Describe a challenging bug you fixed."
	const answer = "I once debugged a race condition..."
	provider := &aitest.Provider{
		QuestionFunc: func(_ context.Context, in types.InterviewQuestionInput) (types.InterviewQuestion, error) {
			if in.Domain != "Software Engineering" {
				t.Errorf("Unexpected domain %q", in.Domain)
			}
			return types.InterviewQuestion{Question: question}, nil
		},
		CritiqueFunc: func(_ context.Context, in types.CritiqueInput) (types.Feedback, error) {
			return feedback(78), nil
		},
	}
	c := newTestController(provider, withResume, Options{})
	ctx := context.Background()

	if err := c.Configure(ctx, Settings{Domain: "Software Engineering", Mode: ModeText}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDraft(answer); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(ctx); err != nil {
		t.Fatal(err)
	}

	snap := c.Snapshot()
	if snap.Status != StatusShowingFeedback {
		t.Errorf("Expected showing_feedback, got %s", snap.Status)
	}
	if len(snap.History) != 1 {
		t.Fatalf("Expected one QA pair, got %d", len(snap.History))
	}
	qa := snap.History[0]
	if qa.Question != question || qa.Answer != answer || qa.Feedback.Score != 78 {
		t.Errorf("Unexpected QA pair %+v", qa)
	}
	if snap.LastScore() != 78 {
		t.Errorf("Expected last score 78, got %d", snap.LastScore())
	}
}

func TestQuestionFetchNetworkError(t *testing.T) {
	provider := &aitest.Provider{
		QuestionFunc: func(context.Context, types.InterviewQuestionInput) (types.InterviewQuestion, error) {
			return types.InterviewQuestion{}, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		},
	}
	log := &snapshotLog{}
	c := newTestController(provider, withResume, Options{Observer: log.observe})
	ctx := context.Background()

	surfaced := 0
	count := func(err error) {
		if errors.Is(err, ErrQuestionFetch) {
			surfaced++
		}
	}

	count(c.Configure(ctx, Settings{Domain: "Software Engineering", Mode: ModeText}))
	snap := c.Snapshot()
	if snap.Status != StatusConfiguring {
		t.Errorf("Expected configuring, got %s", snap.Status)
	}
	if len(snap.History) != 0 || snap.CurrentQuestion != "" {
		t.Errorf("Unexpected session state %+v", snap)
	}

	// Later actions do not report the failure again
	count(c.Submit(ctx))
	count(c.Next(ctx))
	count(c.SetDraft("x"))
	if surfaced != 1 {
		t.Errorf("Expected the fetch error exactly once, got %d", surfaced)
	}

	// The user may retry explicitly
	provider.QuestionFunc = nil
	if err := c.Configure(ctx, Settings{Domain: "Software Engineering", Mode: ModeText}); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if c.Snapshot().Status != StatusAwaitingAnswer {
		t.Error("Expected retry to reach awaiting_answer")
	}
}

func TestReentrancyGuard(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	provider := &aitest.Provider{
		CritiqueFunc: func(ctx context.Context, _ types.CritiqueInput) (types.Feedback, error) {
			close(entered)
			<-release
			return feedback(90), nil
		},
	}
	c := newTestController(provider, withResume, Options{})
	ctx := context.Background()
	if err := c.Configure(ctx, Settings{Domain: "Security", Mode: ModeText}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDraft("Use least privilege"); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- c.Submit(ctx) }()
	<-entered

	if err := c.Submit(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected busy on second submit, got %v", err)
	}
	if err := c.Next(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected busy on next, got %v", err)
	}
	if err := c.SetDraft("changed"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected busy on draft edit, got %v", err)
	}
	if got := c.Snapshot().Status; got != StatusAwaitingFeedback {
		t.Errorf("Expected awaiting_feedback, got %s", got)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("First submit failed: %v", err)
	}
	if provider.Calls("CritiqueAnswer") != 1 {
		t.Errorf("Expected one critique call, got %d", provider.Calls("CritiqueAnswer"))
	}
	if len(c.Snapshot().History) != 1 {
		t.Error("Expected exactly one QA pair")
	}
}

func TestCloseDiscardsInFlightResult(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	provider := &aitest.Provider{
		CritiqueFunc: func(context.Context, types.CritiqueInput) (types.Feedback, error) {
			close(entered)
			<-release
			return feedback(70), nil
		},
	}
	log := &snapshotLog{}
	c := newTestController(provider, withResume, Options{Observer: log.observe})
	ctx := context.Background()
	if err := c.Configure(ctx, Settings{Domain: "Security", Mode: ModeText}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDraft("answer"); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- c.Submit(ctx) }()
	<-entered

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	seen := len(log.all())

	close(release)
	if err := <-errCh; !errors.Is(err, ErrClosed) {
		t.Errorf("Expected closed error, got %v", err)
	}

	snap := c.Snapshot()
	if len(snap.History) != 0 {
		t.Error("In-flight result must be discarded")
	}
	if !snap.Closed {
		t.Error("Expected closed snapshot")
	}
	if len(log.all()) != seen {
		t.Error("No state update may follow Close")
	}
	if err := c.Next(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected closed error, got %v", err)
	}
}

func TestCloseCancelsInvocationContext(t *testing.T) {
	provider := &aitest.Provider{
		QuestionFunc: func(ctx context.Context, _ types.InterviewQuestionInput) (types.InterviewQuestion, error) {
			<-ctx.Done()
			return types.InterviewQuestion{}, ctx.Err()
		},
	}
	c := newTestController(provider, withResume, Options{})

	errCh := make(chan error, 1)
	go func() { errCh <- c.Configure(context.Background(), Settings{Domain: "Cloud", Mode: ModeText}) }()

	// Wait until the fetch is in flight
	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot().Status != StatusAwaitingQuestion {
		if time.Now().After(deadline) {
			t.Fatal("Fetch never started")
		}
		time.Sleep(time.Millisecond)
	}
	_ = c.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Expected closed error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the in-flight fetch")
	}
}

func TestCapabilityWarningsDoNotBlock(t *testing.T) {
	t.Run("preview failure", func(t *testing.T) {
		preview := &failingPreview{}
		c := newTestController(&aitest.Provider{}, withResume, Options{Preview: preview})
		if err := c.Configure(context.Background(), Settings{Domain: "QA", Mode: ModeVideo}); err != nil {
			t.Fatalf("Preview failure must not fail configure: %v", err)
		}
		if len(c.Warnings()) != 1 {
			t.Errorf("Expected one warning, got %v", c.Warnings())
		}
		if c.Snapshot().Status != StatusAwaitingAnswer {
			t.Error("Expected awaiting_answer")
		}
	})

	t.Run("speech failure", func(t *testing.T) {
		c := newTestController(&aitest.Provider{}, withResume, Options{Speech: failingSpeech{}})
		ctx := context.Background()
		if err := c.Configure(ctx, Settings{Domain: "QA", Mode: ModeAudio}); err != nil {
			t.Fatal(err)
		}
		if err := c.StartRecording(); !errors.Is(err, ErrCapabilityUnavailable) {
			t.Fatalf("Expected capability error, got %v", err)
		}
		if err := c.SetDraft("typed instead"); err != nil {
			t.Fatal(err)
		}
		if err := c.Submit(ctx); err != nil {
			t.Fatalf("Typed answer should still work: %v", err)
		}
		if len(c.Warnings()) != 1 {
			t.Errorf("Expected one warning, got %v", c.Warnings())
		}
	})

	t.Run("text mode offers no speech", func(t *testing.T) {
		c := newTestController(&aitest.Provider{}, withResume, Options{Speech: NewStreamCapture(1)})
		if err := c.Configure(context.Background(), Settings{Domain: "QA", Mode: ModeText}); err != nil {
			t.Fatal(err)
		}
		if err := c.StartRecording(); !errors.Is(err, ErrCapabilityUnavailable) {
			t.Errorf("Expected capability error, got %v", err)
		}
	})
}

func TestInvalidTransitions(t *testing.T) {
	c := newTestController(&aitest.Provider{}, withResume, Options{})
	ctx := context.Background()

	if err := c.Submit(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Submit in configuring: %v", err)
	}
	if err := c.Next(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Next in configuring: %v", err)
	}
	if err := c.Configure(ctx, Settings{Domain: "QA", Mode: ModeText}); err != nil {
		t.Fatal(err)
	}
	if err := c.Configure(ctx, Settings{Domain: "QA", Mode: ModeText}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Configure in awaiting_answer: %v", err)
	}
	if err := c.Next(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Next in awaiting_answer: %v", err)
	}
}

func TestCurrentQuestionOnlyInQuestionStates(t *testing.T) {
	log := &snapshotLog{}
	provider := &aitest.Provider{
		CritiqueFunc: func(context.Context, types.CritiqueInput) (types.Feedback, error) {
			return feedback(40), nil
		},
	}
	c := newTestController(provider, withResume, Options{Observer: log.observe})
	ctx := context.Background()

	if err := c.Configure(ctx, Settings{Domain: "ML", Mode: ModeText}); err != nil {
		t.Fatal(err)
	}
	_ = c.SetDraft("answer")
	if err := c.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Next(ctx); err != nil {
		t.Fatal(err)
	}
	_ = c.Close()

	snaps := log.all()
	if len(snaps) == 0 {
		t.Fatal("Observer saw no snapshots")
	}
	for i, s := range snaps {
		if s.CurrentQuestion != "" && !s.Status.hasQuestion() {
			t.Errorf("snapshot %d: question %q set in %s", i, s.CurrentQuestion, s.Status)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := newTestController(&aitest.Provider{}, withResume, Options{})
	ctx := context.Background()
	_ = c.Configure(ctx, Settings{Domain: "ML", Mode: ModeText})
	_ = c.SetDraft("answer")
	if err := c.Submit(ctx); err != nil {
		t.Fatal(err)
	}

	snap := c.Snapshot()
	snap.History[0].Answer = "mutated"
	snap.History[0].Feedback.Score = 0

	again := c.Snapshot()
	if again.History[0].Answer != "answer" || again.History[0].Feedback.Score != 50 {
		t.Error("Snapshot mutation leaked into the session")
	}
}

func TestObserverNeverSeesOlderSnapshot(t *testing.T) {
	log := &snapshotLog{}
	c := newTestController(&aitest.Provider{}, withResume, Options{Observer: log.observe})

	c.mu.Lock()
	older := c.snapshotLocked()
	c.status = StatusAwaitingQuestion
	newer := c.snapshotLocked()
	c.mu.Unlock()

	// Delivery raced: the newer snapshot arrives first
	c.notify(newer)
	c.notify(older)

	snaps := log.all()
	if len(snaps) != 1 || snaps[0].Seq != newer.Seq {
		t.Fatalf("Expected only the newer snapshot, got %+v", snaps)
	}

	ctx := context.Background()
	log2 := &snapshotLog{}
	c2 := newTestController(&aitest.Provider{}, withResume, Options{Observer: log2.observe})
	_ = c2.Configure(ctx, Settings{Domain: "DevOps", Mode: ModeText})
	_ = c2.SetDraft("answer")
	_ = c2.Submit(ctx)
	_ = c2.Next(ctx)

	var last uint64
	for i, s := range log2.all() {
		if s.Seq <= last {
			t.Errorf("snapshot %d: seq %d after %d", i, s.Seq, last)
		}
		last = s.Seq
	}
}
