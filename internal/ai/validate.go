package ai

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"careercoach/internal/types"

	"github.com/tidwall/gjson"
)

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// cleanJSON strips markdown code fences some models wrap around JSON even when
// asked for application/json.
func cleanJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// requireFields checks every gjson path is present and not null.
func requireFields(raw string, paths ...string) error {
	if !gjson.Valid(raw) {
		return fmt.Errorf("response is not valid JSON")
	}
	results := gjson.GetMany(raw, paths...)
	var missing []string
	for i, r := range results {
		if !r.Exists() || r.Type == gjson.Null {
			missing = append(missing, paths[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// decodeResponse runs the required-field pass, decodes into Out and applies
// validate. Errors come back classified.
func decodeResponse[Out any](operation, raw string, required []string, validate func(Out) error) (Out, error) {
	var out Out
	raw = cleanJSON(raw)

	if err := requireFields(raw, required...); err != nil {
		return out, newInvocationError(operation, CauseMalformedResponse, err)
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, newInvocationError(operation, CauseMalformedResponse, err)
	}
	if validate != nil {
		if err := validate(out); err != nil {
			return out, newInvocationError(operation, CauseSchemaViolation, err)
		}
	}
	return out, nil
}

func nonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	return nil
}

func inRange(field string, value, lo, hi int) error {
	if value < lo || value > hi {
		return fmt.Errorf("%s must be between %d and %d, got %d", field, lo, hi, value)
	}
	return nil
}

func absoluteURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, value)
	}
	return nil
}

// Required JSON paths per operation
var (
	questionFields = []string{"question"}
	critiqueFields = []string{"clarityNote", "contentNote", "score", "improvementTips"}
	analysisFields = []string{"skillSummary", "improvementInsights", "extractedSkills", "marketSkillsComparison"}
	pathsFields    = []string{"careerPaths"}
	trendsFields   = []string{"salaryTrends", "marketDemand"}
	channelsFields = []string{"channels"}
	mentorFields   = []string{"response"}
)

// Input validation

func validateQuestionInput(in types.InterviewQuestionInput) error {
	if err := nonEmpty("domain", in.Domain); err != nil {
		return err
	}
	if !in.ExperienceLevel.Valid() {
		return fmt.Errorf("invalid experience level %q", in.ExperienceLevel)
	}
	return nonEmpty("resume", in.ResumeText)
}

func validateCritiqueInput(in types.CritiqueInput) error {
	if err := nonEmpty("question", in.Question); err != nil {
		return err
	}
	return nonEmpty("answer", in.Answer)
}

func validateAnalysisInput(in types.ResumeAnalysisInput) error {
	return nonEmpty("resume", in.ResumeText)
}

func validatePathsInput(in types.CareerPathsInput) error {
	if len(in.Skills) == 0 {
		return fmt.Errorf("at least one skill is required")
	}
	for i, s := range in.Skills {
		if err := nonEmpty(fmt.Sprintf("skills[%d]", i), s); err != nil {
			return err
		}
	}
	return nil
}

func validateChannelsInput(in types.ChannelsInput) error {
	return nonEmpty("topic", in.Topic)
}

func validateMentorInput(in types.MentorInput) error {
	if err := nonEmpty("query", in.Query); err != nil {
		return err
	}
	for i, m := range in.History {
		if m.Role != types.RoleUser && m.Role != types.RoleModel {
			return fmt.Errorf("history[%d]: invalid role %q", i, m.Role)
		}
	}
	return nil
}

// Output validation

func validateQuestion(out types.InterviewQuestion) error {
	return nonEmpty("question", out.Question)
}

func validateFeedback(out types.Feedback) error {
	if err := inRange("score", out.Score, 0, 100); err != nil {
		return err
	}
	if err := nonEmpty("clarityNote", out.ClarityNote); err != nil {
		return err
	}
	if err := nonEmpty("contentNote", out.ContentNote); err != nil {
		return err
	}
	return nonEmpty("improvementTips", out.ImprovementTips)
}

func validateAnalysis(out types.ResumeAnalysis) error {
	if err := nonEmpty("skillSummary", out.SkillSummary); err != nil {
		return err
	}
	for i, s := range out.ExtractedSkills {
		switch s.Proficiency {
		case types.ProficiencyBeginner, types.ProficiencyIntermediate, types.ProficiencyAdvanced, types.ProficiencyExpert:
		default:
			return fmt.Errorf("extractedSkills[%d]: invalid proficiency %q", i, s.Proficiency)
		}
		if err := nonEmpty(fmt.Sprintf("extractedSkills[%d].name", i), s.Name); err != nil {
			return err
		}
	}
	return nil
}

func validateCareerPaths(out types.CareerPaths) error {
	if len(out.CareerPaths) != 3 {
		return fmt.Errorf("expected exactly 3 career paths, got %d", len(out.CareerPaths))
	}
	for i, p := range out.CareerPaths {
		prefix := fmt.Sprintf("careerPaths[%d]", i)
		if err := nonEmpty(prefix+".title", p.Title); err != nil {
			return err
		}
		if err := inRange(prefix+".demandScore", p.DemandScore, 1, 10); err != nil {
			return err
		}
		if err := inRange(prefix+".progress", p.Progress, 0, 100); err != nil {
			return err
		}
		if len(p.Skills) != 5 {
			return fmt.Errorf("%s.skills: expected 5, got %d", prefix, len(p.Skills))
		}
		if err := absoluteURL(prefix+".roadmapUrl", p.RoadmapURL); err != nil {
			return err
		}
	}
	return nil
}

func validateTrends(out types.JobTrends) error {
	if len(out.SalaryTrends) != 12 {
		return fmt.Errorf("expected 12 monthly salary points, got %d", len(out.SalaryTrends))
	}
	for i, p := range out.SalaryTrends {
		if err := nonEmpty(fmt.Sprintf("salaryTrends[%d].month", i), p.Month); err != nil {
			return err
		}
		if p.SoftwareEngineer <= 0 || p.DataScientist <= 0 || p.ProductManager <= 0 {
			return fmt.Errorf("salaryTrends[%d]: salaries must be positive", i)
		}
	}
	if len(out.MarketDemand) != 3 {
		return fmt.Errorf("expected 3 market demand entries, got %d", len(out.MarketDemand))
	}
	for i, d := range out.MarketDemand {
		if err := inRange(fmt.Sprintf("marketDemand[%d].demand", i), d.Demand, 1, 100); err != nil {
			return err
		}
	}
	return nil
}

func validateChannels(out types.ChannelRecommendations) error {
	if len(out.Channels) == 0 {
		return fmt.Errorf("expected at least one channel")
	}
	for i, c := range out.Channels {
		if err := nonEmpty(fmt.Sprintf("channels[%d].channelName", i), c.ChannelName); err != nil {
			return err
		}
		if err := absoluteURL(fmt.Sprintf("channels[%d].channelLink", i), c.ChannelLink); err != nil {
			return err
		}
	}
	return nil
}

func validateMentorReply(out types.MentorReply) error {
	if err := nonEmpty("response", out.Response); err != nil {
		return err
	}
	for i, r := range out.SuggestedResources {
		if err := nonEmpty(fmt.Sprintf("suggestedResources[%d].title", i), r.Title); err != nil {
			return err
		}
	}
	return nil
}
