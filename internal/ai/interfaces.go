package ai

import (
	"context"

	"careercoach/internal/types"
)

// AIProvider runs the structured AI operations. Every method validates its
// input, calls the model and validates the output; failures are returned as
// *InvocationError. Token usage may be nil.
type AIProvider interface {
	GenerateInterviewQuestion(ctx context.Context, input types.InterviewQuestionInput) (types.InterviewQuestion, *TokenUsage, error)
	CritiqueAnswer(ctx context.Context, input types.CritiqueInput) (types.Feedback, *TokenUsage, error)
	AnalyzeResume(ctx context.Context, input types.ResumeAnalysisInput) (types.ResumeAnalysis, *TokenUsage, error)
	RecommendCareerPaths(ctx context.Context, input types.CareerPathsInput) (types.CareerPaths, *TokenUsage, error)
	GetJobTrends(ctx context.Context) (types.JobTrends, *TokenUsage, error)
	RecommendChannels(ctx context.Context, input types.ChannelsInput) (types.ChannelRecommendations, *TokenUsage, error)
	MentorGuidance(ctx context.Context, input types.MentorInput) (types.MentorReply, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// BreakerReporter is implemented by providers that expose circuit breaker state
type BreakerReporter interface {
	GetCircuitBreakerStats() map[string]any
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
