package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"careercoach/internal/types"
)

func trendsJSON(months, roles int) string {
	points := make([]string, months)
	for i := range points {
		points[i] = fmt.Sprintf(`{"month":"M%d","softwareEngineer":%d,"dataScientist":%d,"productManager":%d}`,
			i, 120000+i*500, 130000+i*400, 125000+i*300)
	}
	names := []string{"Software Engineer", "Data Scientist", "Product Manager", "Designer"}
	demand := make([]string, roles)
	for i := range demand {
		demand[i] = fmt.Sprintf(`{"role":%q,"demand":%d}`, names[i%len(names)], 60+i*10)
	}
	return `{"salaryTrends":[` + strings.Join(points, ",") + `],"marketDemand":[` + strings.Join(demand, ",") + `]}`
}

func TestRequireFields(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		paths   []string
		wantErr string
	}{
		{"all present", `{"a":1,"b":{"c":"x"}}`, []string{"a", "b.c"}, ""},
		{"missing nested", `{"a":1,"b":{}}`, []string{"a", "b.c"}, "b.c"},
		{"null counts as missing", `{"a":null}`, []string{"a"}, "a"},
		{"invalid json", `{"a":`, []string{"a"}, "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := requireFields(tt.raw, tt.paths...)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCleanJSON(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                  `{"a":1}`,
		"  {\"a\":1}\n":            `{"a":1}`,
		"```json\n{\"a\":1}\n```":  `{"a":1}`,
		"```\n{\"a\":1}```":        `{"a":1}`,
		"text ```json {} ``` text": "text ```json {} ``` text",
	}
	for in, want := range tests {
		if got := cleanJSON(in); got != want {
			t.Errorf("cleanJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateTrends(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"complete", trendsJSON(12, 3), false},
		{"eleven months", trendsJSON(11, 3), true},
		{"four roles", trendsJSON(12, 4), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeResponse("jobTrends", tt.body, trendsFields, validateTrends)
			if tt.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if tt.wantErr && !errors.Is(err, ErrSchemaViolation) {
				t.Errorf("Expected schema violation, got %v", err)
			}
		})
	}
}

func TestValidateAnalysis(t *testing.T) {
	good := types.ResumeAnalysis{
		SkillSummary:    "Strong backend profile",
		ExtractedSkills: []types.ExtractedSkill{{Name: "Go", Category: "Programming Language", Proficiency: "Expert"}},
	}
	if err := validateAnalysis(good); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	bad := good
	bad.ExtractedSkills = []types.ExtractedSkill{{Name: "Go", Proficiency: "Guru"}}
	if err := validateAnalysis(bad); err == nil {
		t.Error("Expected invalid proficiency to be rejected")
	}
}

func TestInputValidation(t *testing.T) {
	p := newTestProvider(t, testConfig(), &fakeModels{})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"question without domain", func() error {
			_, _, err := p.GenerateInterviewQuestion(ctx, types.InterviewQuestionInput{ExperienceLevel: types.LevelMid, ResumeText: "r"})
			return err
		}},
		{"question with bad level", func() error {
			_, _, err := p.GenerateInterviewQuestion(ctx, types.InterviewQuestionInput{Domain: "d", ExperienceLevel: "lead", ResumeText: "r"})
			return err
		}},
		{"question without resume", func() error {
			_, _, err := p.GenerateInterviewQuestion(ctx, types.InterviewQuestionInput{Domain: "d", ExperienceLevel: types.LevelMid})
			return err
		}},
		{"analysis without resume", func() error {
			_, _, err := p.AnalyzeResume(ctx, types.ResumeAnalysisInput{})
			return err
		}},
		{"paths without skills", func() error {
			_, _, err := p.RecommendCareerPaths(ctx, types.CareerPathsInput{})
			return err
		}},
		{"channels without topic", func() error {
			_, _, err := p.RecommendChannels(ctx, types.ChannelsInput{Topic: " "})
			return err
		}},
		{"mentor without query", func() error {
			_, _, err := p.MentorGuidance(ctx, types.MentorInput{})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected invalid input, got %v", err)
			}
		})
	}
}

func TestInvocationErrorMatching(t *testing.T) {
	err := newInvocationError("answerCritique", CauseSchemaViolation, errors.New("score"))

	if !errors.Is(err, ErrSchemaViolation) {
		t.Error("Expected kind match")
	}
	if errors.Is(err, ErrMalformedResponse) {
		t.Error("Unexpected kind match")
	}
	if !errors.Is(err, &InvocationError{Operation: "answerCritique"}) {
		t.Error("Expected operation match")
	}
	if errors.Is(err, &InvocationError{Operation: "mentor", Kind: CauseSchemaViolation}) {
		t.Error("Operation should narrow the match")
	}

	wrapped := fmt.Errorf("critique: %w", err)
	if got, ok := AsInvocationError(wrapped); !ok || got.Kind != CauseSchemaViolation {
		t.Errorf("AsInvocationError failed on wrapped error: %v", got)
	}
}

func TestTransportErrorClassification(t *testing.T) {
	if !errors.Is(transportError("mentor", context.Canceled), ErrCanceled) {
		t.Error("Canceled context should classify as canceled")
	}
	if !errors.Is(transportError("mentor", context.DeadlineExceeded), ErrTransport) {
		t.Error("Deadline should classify as transport")
	}
}
