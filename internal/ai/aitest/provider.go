// Package aitest provides a scripted ai.AIProvider for tests.
package aitest

import (
	"context"
	"sync"

	"careercoach/internal/ai"
	"careercoach/internal/types"
)

// Provider is a programmable ai.AIProvider. Each Func field, when set, handles
// the matching call; unset fields return zero values. Calls are counted.
type Provider struct {
	QuestionFunc func(ctx context.Context, in types.InterviewQuestionInput) (types.InterviewQuestion, error)
	CritiqueFunc func(ctx context.Context, in types.CritiqueInput) (types.Feedback, error)
	AnalyzeFunc  func(ctx context.Context, in types.ResumeAnalysisInput) (types.ResumeAnalysis, error)
	PathsFunc    func(ctx context.Context, in types.CareerPathsInput) (types.CareerPaths, error)
	TrendsFunc   func(ctx context.Context) (types.JobTrends, error)
	ChannelsFunc func(ctx context.Context, in types.ChannelsInput) (types.ChannelRecommendations, error)
	MentorFunc   func(ctx context.Context, in types.MentorInput) (types.MentorReply, error)
	Model        *ai.ModelInfo

	mu    sync.Mutex
	calls map[string]int
}

var _ ai.AIProvider = (*Provider)(nil)

// Usage is returned with every successful call
var Usage = &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}

func (p *Provider) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[name]++
}

// Calls returns how many times the named method ran
func (p *Provider) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func result[T any](out T, err error) (T, *ai.TokenUsage, error) {
	if err != nil {
		var zero T
		return zero, nil, err
	}
	return out, Usage, nil
}

func (p *Provider) GenerateInterviewQuestion(ctx context.Context, in types.InterviewQuestionInput) (types.InterviewQuestion, *ai.TokenUsage, error) {
	p.record("GenerateInterviewQuestion")
	if p.QuestionFunc == nil {
		return result(types.InterviewQuestion{Question: "Tell me about yourself."}, nil)
	}
	return result(p.QuestionFunc(ctx, in))
}

func (p *Provider) CritiqueAnswer(ctx context.Context, in types.CritiqueInput) (types.Feedback, *ai.TokenUsage, error) {
	p.record("CritiqueAnswer")
	if p.CritiqueFunc == nil {
		return result(types.Feedback{ClarityNote: "ok", ContentNote: "ok", Score: 50, ImprovementTips: "none"}, nil)
	}
	return result(p.CritiqueFunc(ctx, in))
}

func (p *Provider) AnalyzeResume(ctx context.Context, in types.ResumeAnalysisInput) (types.ResumeAnalysis, *ai.TokenUsage, error) {
	p.record("AnalyzeResume")
	if p.AnalyzeFunc == nil {
		return result(types.ResumeAnalysis{}, nil)
	}
	return result(p.AnalyzeFunc(ctx, in))
}

func (p *Provider) RecommendCareerPaths(ctx context.Context, in types.CareerPathsInput) (types.CareerPaths, *ai.TokenUsage, error) {
	p.record("RecommendCareerPaths")
	if p.PathsFunc == nil {
		return result(types.CareerPaths{}, nil)
	}
	return result(p.PathsFunc(ctx, in))
}

func (p *Provider) GetJobTrends(ctx context.Context) (types.JobTrends, *ai.TokenUsage, error) {
	p.record("GetJobTrends")
	if p.TrendsFunc == nil {
		return result(types.JobTrends{}, nil)
	}
	return result(p.TrendsFunc(ctx))
}

func (p *Provider) RecommendChannels(ctx context.Context, in types.ChannelsInput) (types.ChannelRecommendations, *ai.TokenUsage, error) {
	p.record("RecommendChannels")
	if p.ChannelsFunc == nil {
		return result(types.ChannelRecommendations{}, nil)
	}
	return result(p.ChannelsFunc(ctx, in))
}

func (p *Provider) MentorGuidance(ctx context.Context, in types.MentorInput) (types.MentorReply, *ai.TokenUsage, error) {
	p.record("MentorGuidance")
	if p.MentorFunc == nil {
		return result(types.MentorReply{Response: "Keep going."}, nil)
	}
	return result(p.MentorFunc(ctx, in))
}

func (p *Provider) GetModelInfo(ctx context.Context) *ai.ModelInfo {
	if p.Model != nil {
		return p.Model
	}
	return &ai.ModelInfo{Name: "fake", Available: true}
}

func (p *Provider) Close() error { return nil }
