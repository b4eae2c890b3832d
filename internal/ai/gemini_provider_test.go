package ai

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"careercoach/internal/config"
	appErrors "careercoach/internal/errors"
	"careercoach/internal/types"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

type fakeResult struct {
	resp *genai.GenerateContentResponse
	err  error
}

// fakeModels replays queued results; the last one repeats
type fakeModels struct {
	mu           sync.Mutex
	results      []fakeResult
	calls        int
	lastContents []*genai.Content
	lastConfig   *genai.GenerateContentConfig
	model        *genai.Model
	modelErr     error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastContents = contents
	f.lastConfig = cfg
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.results) == 0 {
		return nil, errors.New("no result queued")
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.resp, r.err
}

func (f *fakeModels) Get(ctx context.Context, model string, cfg *genai.GetModelConfig) (*genai.Model, error) {
	return f.model, f.modelErr
}

func (f *fakeModels) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeModels) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lastContents) == 0 || len(f.lastContents[0].Parts) == 0 {
		return ""
	}
	return f.lastContents[0].Parts[0].Text
}

func textResponse(s string) fakeResult {
	return fakeResult{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(s, genai.RoleModel)}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
			TotalTokenCount:      15,
		},
	}}
}

func errorResult(err error) fakeResult { return fakeResult{err: err} }

func intPtr(i int) *int { return &i }

func testConfig() *config.Config {
	return &config.Config{AI: config.AIConfig{
		Provider:         "gemini",
		Model:            "test-model",
		Timeout:          5 * time.Second,
		APIKey:           "test-key",
		Temperature:      0.5,
		UseSystemPrompts: true,
	}}
}

func newTestProvider(t *testing.T, cfg *config.Config, fake *fakeModels) *GeminiProvider {
	t.Helper()
	p, err := newGeminiProvider(cfg, appErrors.Discard(), func(string) (modelClient, error) { return fake, nil })
	if err != nil {
		t.Fatalf("newGeminiProvider: %v", err)
	}
	p.retryBase = time.Millisecond
	p.now = func() time.Time { return time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC) }
	return p
}

const validFeedback = `{"clarityNote":"Clear structure","contentNote":"Accurate","score":78,"improvementTips":"Add a metric"}`

func TestGenerateInterviewQuestion(t *testing.T) {
	fake := &fakeModels{results: []fakeResult{textResponse(`{"question":"Explain the CAP theorem."}`)}}
	p := newTestProvider(t, testConfig(), fake)

	out, usage, err := p.GenerateInterviewQuestion(context.Background(), types.InterviewQuestionInput{
		Domain:            "Software Engineering",
		ExperienceLevel:   types.LevelSenior,
		ResumeText:        "Go developer, 8 years",
		PreviousQuestions: []string{"What is a goroutine?"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Question != "Explain the CAP theorem." {
		t.Errorf("Unexpected question %q", out.Question)
	}
	if usage == nil || usage.TotalTokens != 15 {
		t.Errorf("Expected token usage to be extracted, got %+v", usage)
	}

	prompt := fake.lastPrompt()
	for _, want := range []string{"Software Engineering", "senior", "Go developer, 8 years", "- What is a goroutine?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q:\n%s", want, prompt)
		}
	}
	if fake.lastConfig.SystemInstruction == nil {
		t.Error("Expected system instruction to be set")
	}
	if fake.lastConfig.ResponseMIMEType != "application/json" || fake.lastConfig.ResponseSchema == nil {
		t.Error("Expected JSON response schema")
	}
	if fake.lastConfig.Temperature == nil || *fake.lastConfig.Temperature != 0.5 {
		t.Error("Expected temperature to be applied")
	}
}

func TestInvocationErrorKinds(t *testing.T) {
	critique := types.CritiqueInput{Question: "Why Go?", Answer: "Because it is simple."}

	tests := []struct {
		name      string
		result    fakeResult
		input     types.CritiqueInput
		wantKind  *InvocationError
		wantCalls int
	}{
		{
			name:      "valid",
			result:    textResponse(validFeedback),
			input:     critique,
			wantCalls: 1,
		},
		{
			name:      "fenced json accepted",
			result:    textResponse("```json\n" + validFeedback + "\n```"),
			input:     critique,
			wantCalls: 1,
		},
		{
			name:      "empty answer rejected before call",
			input:     types.CritiqueInput{Question: "Why Go?", Answer: "   "},
			wantKind:  ErrInvalidInput,
			wantCalls: 0,
		},
		{
			name:      "not json",
			result:    textResponse("I think the answer was good."),
			input:     critique,
			wantKind:  ErrMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "missing field",
			result:    textResponse(`{"clarityNote":"ok","contentNote":"ok","score":50}`),
			input:     critique,
			wantKind:  ErrMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "score out of range",
			result:    textResponse(`{"clarityNote":"ok","contentNote":"ok","score":150,"improvementTips":"x"}`),
			input:     critique,
			wantKind:  ErrSchemaViolation,
			wantCalls: 1,
		},
		{
			name:      "transport error is not retried",
			result:    errorResult(&googleapi.Error{Code: 503}),
			input:     critique,
			wantKind:  ErrTransport,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeModels{results: []fakeResult{tt.result}}
			p := newTestProvider(t, testConfig(), fake)

			_, _, err := p.CritiqueAnswer(context.Background(), tt.input)
			if tt.wantKind == nil {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
			} else {
				if !errors.Is(err, tt.wantKind) {
					t.Fatalf("Expected %s, got %v", tt.wantKind.Kind, err)
				}
				invErr, ok := AsInvocationError(err)
				if !ok || invErr.Operation != string(config.OpAnswerCritique) {
					t.Errorf("Expected operation in error, got %+v", invErr)
				}
			}
			if got := fake.callCount(); got != tt.wantCalls {
				t.Errorf("Expected %d model calls, got %d", tt.wantCalls, got)
			}
		})
	}
}

func TestRetryOnTransientErrors(t *testing.T) {
	cfg := testConfig()
	cfg.AI.JobTrends.MaxRetries = intPtr(2)

	fake := &fakeModels{results: []fakeResult{
		errorResult(&googleapi.Error{Code: 503}),
		errorResult(&net.OpError{Op: "dial", Err: errors.New("connection refused")}),
		textResponse(trendsJSON(12, 3)),
	}}
	p := newTestProvider(t, cfg, fake)

	out, _, err := p.GetJobTrends(context.Background())
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if len(out.SalaryTrends) != 12 || len(out.MarketDemand) != 3 {
		t.Errorf("Unexpected trends %+v", out)
	}
	if fake.callCount() != 3 {
		t.Errorf("Expected 3 attempts, got %d", fake.callCount())
	}
	if !strings.Contains(fake.lastPrompt(), "Mar 2025") {
		t.Error("Expected current month in prompt")
	}
}

func TestNoRetryOnClientErrors(t *testing.T) {
	cfg := testConfig()
	cfg.AI.JobTrends.MaxRetries = intPtr(3)

	fake := &fakeModels{results: []fakeResult{errorResult(&googleapi.Error{Code: 400})}}
	p := newTestProvider(t, cfg, fake)

	_, _, err := p.GetJobTrends(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected transport error, got %v", err)
	}
	if fake.callCount() != 1 {
		t.Errorf("Expected a single attempt, got %d", fake.callCount())
	}
}

func TestCanceledContext(t *testing.T) {
	fake := &fakeModels{results: []fakeResult{textResponse(`{"question":"q"}`)}}
	p := newTestProvider(t, testConfig(), fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.GenerateInterviewQuestion(ctx, types.InterviewQuestionInput{
		Domain: "Data Science", ExperienceLevel: types.LevelMid, ResumeText: "resume",
	})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("Expected canceled, got %v", err)
	}
}

func TestCircuitOpenIsReported(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Channels.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      1,
		FailureThreshold: 0.5,
	}
	fake := &fakeModels{results: []fakeResult{errorResult(&googleapi.Error{Code: 500})}}
	p := newTestProvider(t, cfg, fake)

	input := types.ChannelsInput{Topic: "React"}
	if _, _, err := p.RecommendChannels(context.Background(), input); !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected transport error first, got %v", err)
	}
	if _, _, err := p.RecommendChannels(context.Background(), input); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Expected circuit open, got %v", err)
	}
	if fake.callCount() != 1 {
		t.Errorf("Open circuit should not reach the model, got %d calls", fake.callCount())
	}

	stats := p.GetCircuitBreakerStats()
	if healthy, _ := stats["overall_healthy"].(bool); healthy {
		t.Error("Expected overall_healthy=false with an open breaker")
	}
}

func TestCareerPathsValidation(t *testing.T) {
	path := `{"title":"Backend Engineer","description":"d","demandScore":8,"salaryRange":"$100k-$150k",` +
		`"skills":["Go","SQL","Docker","Kubernetes","gRPC"],"progress":60,"roadmapUrl":"https://roadmap.sh/backend"}`
	badURL := strings.Replace(path, "https://roadmap.sh/backend", "roadmap.sh/backend", 1)

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"three paths", `{"careerPaths":[` + path + `,` + path + `,` + path + `]}`, false},
		{"two paths", `{"careerPaths":[` + path + `,` + path + `]}`, true},
		{"relative url", `{"careerPaths":[` + path + `,` + path + `,` + badURL + `]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeModels{results: []fakeResult{textResponse(tt.body)}}
			p := newTestProvider(t, testConfig(), fake)

			out, _, err := p.RecommendCareerPaths(context.Background(), types.CareerPathsInput{Skills: []string{"Go", "SQL"}})
			if tt.wantErr {
				if !errors.Is(err, ErrSchemaViolation) {
					t.Fatalf("Expected schema violation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(out.CareerPaths) != 3 {
				t.Errorf("Expected 3 paths, got %d", len(out.CareerPaths))
			}
		})
	}
}

func TestMentorPromptIncludesHistoryAndResume(t *testing.T) {
	fake := &fakeModels{results: []fakeResult{textResponse(
		`{"response":"Learn Kubernetes next.","keyPoints":["k8s"],"suggestedResources":[{"title":"KubeAcademy","url":"https://kube.academy"}]}`,
	)}}
	p := newTestProvider(t, testConfig(), fake)

	out, _, err := p.MentorGuidance(context.Background(), types.MentorInput{
		Query:  "What should I learn next?",
		Resume: "Backend developer",
		History: []types.ChatMessage{
			{Role: types.RoleUser, Content: "Hi"},
			{Role: types.RoleModel, Content: "Hello! How can I help?"},
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Response != "Learn Kubernetes next." || len(out.SuggestedResources) != 1 {
		t.Errorf("Unexpected reply %+v", out)
	}

	prompt := fake.lastPrompt()
	for _, want := range []string{"Backend developer", "user: Hi", "model: Hello! How can I help?", "What should I learn next?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q:\n%s", want, prompt)
		}
	}

	_, _, err = p.MentorGuidance(context.Background(), types.MentorInput{
		Query:   "x",
		History: []types.ChatMessage{{Role: "assistant", Content: "?"}},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected invalid role to be rejected, got %v", err)
	}
}

func TestPromptOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Channels.Prompts.User = "Channels for %s please"
	cfg.AI.Channels.UseSystemPrompts = new(bool)

	fake := &fakeModels{results: []fakeResult{textResponse(
		`{"channels":[{"channelName":"Fireship","channelLink":"https://www.youtube.com/@Fireship","description":"d","recommendationReason":"r","exampleVideos":["v"]}]}`,
	)}}
	p := newTestProvider(t, cfg, fake)

	if _, _, err := p.RecommendChannels(context.Background(), types.ChannelsInput{Topic: "Svelte"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := fake.lastPrompt(); got != "Channels for Svelte please" {
		t.Errorf("Expected configured prompt, got %q", got)
	}
	if fake.lastConfig.SystemInstruction != nil {
		t.Error("System prompt should be disabled")
	}
}

func TestGetModelInfo(t *testing.T) {
	fake := &fakeModels{model: &genai.Model{DisplayName: "Test Model", Version: "001"}}
	p := newTestProvider(t, testConfig(), fake)

	info := p.GetModelInfo(context.Background())
	if !info.Available || info.DisplayName != "Test Model" || info.Name != "test-model" {
		t.Errorf("Unexpected model info %+v", info)
	}

	fake.modelErr = errors.New("not found")
	info = p.GetModelInfo(context.Background())
	if info.Available || info.Error == "" {
		t.Errorf("Expected unavailable model, got %+v", info)
	}
}

func TestUnsupportedProvider(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Mentor.Provider = "openai"
	_, err := newGeminiProvider(cfg, appErrors.Discard(), func(string) (modelClient, error) { return &fakeModels{}, nil })
	if err == nil {
		t.Fatal("Expected unsupported provider error")
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"network", &net.OpError{Op: "read", Err: errors.New("reset")}, true},
		{"rate limited", &googleapi.Error{Code: 429}, true},
		{"unavailable", &googleapi.Error{Code: 503}, true},
		{"bad request", &googleapi.Error{Code: 400}, false},
		{"genai unavailable", genai.APIError{Code: 503}, true},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoffIsCapped(t *testing.T) {
	p := &GeminiProvider{retryBase: time.Second}
	if got := p.backoff(1); got < time.Second || got > 1100*time.Millisecond {
		t.Errorf("First backoff out of range: %v", got)
	}
	if got := p.backoff(10); got != 30*time.Second {
		t.Errorf("Expected capped backoff, got %v", got)
	}
}
