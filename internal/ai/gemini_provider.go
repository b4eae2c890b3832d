package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"careercoach/internal/config"
	appErrors "careercoach/internal/errors"
	"careercoach/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// modelClient is the part of the genai client the provider uses
type modelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, cfg *genai.GetModelConfig) (*genai.Model, error)
}

// operationRuntime is the resolved configuration and breaker of one operation
type operationRuntime struct {
	op      config.Operation
	config  config.OperationAIConfig
	client  modelClient
	breaker *AICircuitBreaker
}

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	cfg          *config.Config
	runtimes     map[config.Operation]*operationRuntime
	modelClient  modelClient
	modelName    string
	modelBreaker *ModelCircuitBreaker
	modelTimeout time.Duration
	retryBase    time.Duration
	now          func() time.Time
	logger       *appErrors.Logger
}

// Ensure GeminiProvider implements AIProvider
var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a provider with one runtime per operation. Operations
// sharing an API key share a client.
func NewGeminiProvider(cfg *config.Config, logger *appErrors.Logger) (*GeminiProvider, error) {
	clients := make(map[string]modelClient)
	clientFor := func(apiKey string) (modelClient, error) {
		if c, ok := clients[apiKey]; ok {
			return c, nil
		}
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
				"Failed to create Gemini client", err)
		}
		clients[apiKey] = client.Models
		return client.Models, nil
	}
	return newGeminiProvider(cfg, logger, clientFor)
}

func newGeminiProvider(cfg *config.Config, logger *appErrors.Logger, clientFor func(apiKey string) (modelClient, error)) (*GeminiProvider, error) {
	if logger == nil {
		logger = appErrors.Discard()
	}

	g := &GeminiProvider{
		cfg:          cfg,
		runtimes:     make(map[config.Operation]*operationRuntime, len(config.Operations)),
		modelName:    cfg.AI.Model,
		modelTimeout: cfg.Observability.HealthCheck.AIModelCheckTimeout,
		retryBase:    time.Second,
		now:          time.Now,
		logger:       logger,
	}
	if g.modelTimeout <= 0 {
		g.modelTimeout = 10 * time.Second
	}

	for _, op := range config.Operations {
		opCfg := cfg.GetOperationConfig(op)
		if opCfg.Provider != "" && opCfg.Provider != "gemini" {
			return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
				fmt.Sprintf("Unsupported AI provider %q for operation %s", opCfg.Provider, op), nil)
		}
		client, err := clientFor(opCfg.APIKey)
		if err != nil {
			return nil, err
		}
		g.runtimes[op] = &operationRuntime{
			op:      op,
			config:  opCfg,
			client:  client,
			breaker: NewAICircuitBreaker(op, opCfg.CircuitBreaker, logger),
		}

		logger.Debug("Initialized AI operation",
			"operation", string(op),
			"model", opCfg.Model,
			"temperature", *opCfg.Temperature,
			"timeout", *opCfg.Timeout,
			"max_retries", *opCfg.MaxRetries,
			"use_system_prompts", *opCfg.UseSystemPrompts)
	}

	// The model check uses the global key and the question operation's breaker settings
	modelClient, err := clientFor(cfg.AI.APIKey)
	if err != nil {
		return nil, err
	}
	g.modelClient = modelClient
	g.modelBreaker = NewModelCircuitBreaker(config.OpInterviewQuestion,
		g.runtime(config.OpInterviewQuestion).config.CircuitBreaker, logger)

	return g, nil
}

func (g *GeminiProvider) runtime(op config.Operation) *operationRuntime {
	if rt, ok := g.runtimes[op]; ok {
		return rt
	}
	return &operationRuntime{op: op}
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.modelName}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelTimeout)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.modelClient.Get(checkCtx, g.modelName, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.modelName,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.modelName,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// backoff returns the delay before retry attempt n (n >= 1): exponential with
// up to 10% jitter, capped at 30 seconds.
func (g *GeminiProvider) backoff(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * g.retryBase
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if j, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(j.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// executeWithRetry runs fn up to maxRetries+1 times while the error is retryable
func (g *GeminiProvider) executeWithRetry(ctx context.Context, rt *operationRuntime, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := 0
	if rt.config.MaxRetries != nil {
		maxRetries = *rt.config.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", string(rt.op),
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(g.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", string(rt.op),
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	if maxRetries > 0 {
		return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", rt.op, maxRetries, lastErr)
	}
	return nil, lastErr
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	code := 0
	var apiErr *googleapi.Error
	var genaiErr genai.APIError
	var genaiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &genaiErr):
		code = genaiErr.Code
	case errors.As(err, &genaiErrPtr):
		code = genaiErrPtr.Code
	}

	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// aiCall describes one structured invocation
type aiCall[Out any] struct {
	op           config.Operation
	systemPrompt string
	userPrompt   string
	required     []string
	validate     func(Out) error
	attributes   []attribute.KeyValue
}

// executeAIOperation runs one operation with tracing, breaker, retry and
// response validation. Every error it returns is an *InvocationError.
func executeAIOperation[Out any](ctx context.Context, g *GeminiProvider, call aiCall[Out]) (Out, *TokenUsage, error) {
	var output Out
	rt := g.runtime(call.op)
	opName := string(call.op)

	tracer := otel.Tracer("careercoach.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+opName)
	defer span.End()

	fail := func(err *InvocationError) (Out, *TokenUsage, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(err.Kind))
		span.SetAttributes(attribute.Bool("success", false), attribute.String("error.kind", string(err.Kind)))
		return output, nil, err
	}

	if rt.client == nil {
		return fail(newInvocationError(opName, CauseInvalidInput, fmt.Errorf("unknown operation")))
	}

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", rt.config.Model),
	)
	if rt.config.Temperature != nil {
		span.SetAttributes(attribute.Float64("ai.temperature", float64(*rt.config.Temperature)))
	}
	span.SetAttributes(call.attributes...)

	genaiConfig := buildGenerateConfig(call.op, rt.config.Temperature)
	if rt.config.UseSystemPrompts != nil && *rt.config.UseSystemPrompts && call.systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(call.systemPrompt, genai.RoleUser)
	}

	callCtx := ctx
	if rt.config.Timeout != nil && *rt.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, *rt.config.Timeout)
		defer cancel()
	}

	result, err := rt.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(callCtx, rt, func() (*genai.GenerateContentResponse, error) {
			return rt.client.GenerateContent(callCtx, rt.config.Model, genai.Text(call.userPrompt), genaiConfig)
		})
	})
	if err != nil {
		invErr := transportError(opName, err)
		g.logger.LogError(invErr, "AI operation failed", "operation", opName)
		return fail(invErr)
	}
	if result == nil {
		return fail(newInvocationError(opName, CauseMalformedResponse, fmt.Errorf("empty response")))
	}

	output, err = decodeResponse(opName, result.Text(), call.required, call.validate)
	if err != nil {
		invErr, _ := AsInvocationError(err)
		g.logger.Warn("AI response rejected",
			"operation", opName,
			"kind", string(invErr.Kind),
			"error", invErr.Cause.Error())
		return fail(invErr)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, tokenUsage, nil
}

func invalidInput(op config.Operation, err error) error {
	return newInvocationError(string(op), CauseInvalidInput, err)
}

// GenerateInterviewQuestion implements AIProvider
func (g *GeminiProvider) GenerateInterviewQuestion(ctx context.Context, input types.InterviewQuestionInput) (types.InterviewQuestion, *TokenUsage, error) {
	if err := validateQuestionInput(input); err != nil {
		return types.InterviewQuestion{}, nil, invalidInput(config.OpInterviewQuestion, err)
	}
	system, user := buildQuestionPrompt(g.prompts, input)

	return executeAIOperation(ctx, g, aiCall[types.InterviewQuestion]{
		op:           config.OpInterviewQuestion,
		systemPrompt: system,
		userPrompt:   user,
		required:     questionFields,
		validate:     validateQuestion,
		attributes: []attribute.KeyValue{
			attribute.String("interview.domain", input.Domain),
			attribute.String("interview.level", string(input.ExperienceLevel)),
			attribute.Int("input.resume_length", len(input.ResumeText)),
			attribute.Int("input.previous_questions", len(input.PreviousQuestions)),
		},
	})
}

// CritiqueAnswer implements AIProvider
func (g *GeminiProvider) CritiqueAnswer(ctx context.Context, input types.CritiqueInput) (types.Feedback, *TokenUsage, error) {
	if err := validateCritiqueInput(input); err != nil {
		return types.Feedback{}, nil, invalidInput(config.OpAnswerCritique, err)
	}
	system, user := buildCritiquePrompt(g.prompts, input)

	output, usage, err := executeAIOperation(ctx, g, aiCall[types.Feedback]{
		op:           config.OpAnswerCritique,
		systemPrompt: system,
		userPrompt:   user,
		required:     critiqueFields,
		validate:     validateFeedback,
		attributes:   []attribute.KeyValue{attribute.Int("input.answer_length", len(input.Answer))},
	})
	if err != nil {
		return types.Feedback{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("critique.score", output.Score))
	}
	return output, usage, nil
}

// AnalyzeResume implements AIProvider
func (g *GeminiProvider) AnalyzeResume(ctx context.Context, input types.ResumeAnalysisInput) (types.ResumeAnalysis, *TokenUsage, error) {
	if err := validateAnalysisInput(input); err != nil {
		return types.ResumeAnalysis{}, nil, invalidInput(config.OpResumeAnalysis, err)
	}
	system, user := buildAnalysisPrompt(g.prompts, input)

	return executeAIOperation(ctx, g, aiCall[types.ResumeAnalysis]{
		op:           config.OpResumeAnalysis,
		systemPrompt: system,
		userPrompt:   user,
		required:     analysisFields,
		validate:     validateAnalysis,
		attributes:   []attribute.KeyValue{attribute.Int("input.resume_length", len(input.ResumeText))},
	})
}

// RecommendCareerPaths implements AIProvider
func (g *GeminiProvider) RecommendCareerPaths(ctx context.Context, input types.CareerPathsInput) (types.CareerPaths, *TokenUsage, error) {
	if err := validatePathsInput(input); err != nil {
		return types.CareerPaths{}, nil, invalidInput(config.OpCareerPaths, err)
	}
	system, user := buildPathsPrompt(g.prompts, input)

	return executeAIOperation(ctx, g, aiCall[types.CareerPaths]{
		op:           config.OpCareerPaths,
		systemPrompt: system,
		userPrompt:   user,
		required:     pathsFields,
		validate:     validateCareerPaths,
		attributes:   []attribute.KeyValue{attribute.Int("input.skills", len(input.Skills))},
	})
}

// GetJobTrends implements AIProvider
func (g *GeminiProvider) GetJobTrends(ctx context.Context) (types.JobTrends, *TokenUsage, error) {
	system, user := buildTrendsPrompt(g.prompts, g.now().Format("Jan 2006"))

	return executeAIOperation(ctx, g, aiCall[types.JobTrends]{
		op:           config.OpJobTrends,
		systemPrompt: system,
		userPrompt:   user,
		required:     trendsFields,
		validate:     validateTrends,
	})
}

// RecommendChannels implements AIProvider
func (g *GeminiProvider) RecommendChannels(ctx context.Context, input types.ChannelsInput) (types.ChannelRecommendations, *TokenUsage, error) {
	if err := validateChannelsInput(input); err != nil {
		return types.ChannelRecommendations{}, nil, invalidInput(config.OpChannels, err)
	}
	system, user := buildChannelsPrompt(g.prompts, input)

	return executeAIOperation(ctx, g, aiCall[types.ChannelRecommendations]{
		op:           config.OpChannels,
		systemPrompt: system,
		userPrompt:   user,
		required:     channelsFields,
		validate:     validateChannels,
		attributes:   []attribute.KeyValue{attribute.String("input.topic", input.Topic)},
	})
}

// MentorGuidance implements AIProvider
func (g *GeminiProvider) MentorGuidance(ctx context.Context, input types.MentorInput) (types.MentorReply, *TokenUsage, error) {
	if err := validateMentorInput(input); err != nil {
		return types.MentorReply{}, nil, invalidInput(config.OpMentor, err)
	}
	system, user := buildMentorPrompt(g.prompts, input)

	return executeAIOperation(ctx, g, aiCall[types.MentorReply]{
		op:           config.OpMentor,
		systemPrompt: system,
		userPrompt:   user,
		required:     mentorFields,
		validate:     validateMentorReply,
		attributes: []attribute.KeyValue{
			attribute.Int("input.history", len(input.History)),
			attribute.Bool("input.has_resume", input.Resume != ""),
		},
	})
}

// GetCircuitBreakerStats returns circuit breaker statistics per operation
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := make(map[string]any, len(g.runtimes)+2)
	healthy := g.modelBreaker.IsModelHealthy()
	for _, op := range config.Operations {
		rt := g.runtime(op)
		stats[string(op)] = rt.breaker.GetStats()
		healthy = healthy && rt.breaker.IsHealthy()
	}
	stats["model_operations"] = g.modelBreaker.GetModelStats()
	stats["overall_healthy"] = healthy
	return stats
}

// Close implements AIProvider. The genai client holds no resources in
// request/response mode.
func (g *GeminiProvider) Close() error {
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
