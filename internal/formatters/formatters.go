package formatters

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"careercoach/internal/interview"
	"careercoach/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})

	registry.register(typed("ResumeAnalysis", analysisText), typed("ResumeAnalysis", analysisMarkdown))
	registry.register(typed("CareerPaths", pathsText), typed("CareerPaths", pathsMarkdown))
	registry.register(typed("JobTrends", trendsText), typed("JobTrends", trendsMarkdown))
	registry.register(typed("ChannelRecommendations", channelsText), typed("ChannelRecommendations", channelsMarkdown))
	registry.register(typed("MentorReply", mentorText), typed("MentorReply", mentorMarkdown))
	registry.register(typed("Snapshot", interviewText), typed("Snapshot", interviewMarkdown))

	return registry
}

func (fr *FormatterRegistry) register(text, markdown Formatter) {
	fr.RegisterFormatter("text", text.SupportedType(), text)
	fr.RegisterFormatter("markdown", markdown.SupportedType(), markdown)
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}
	if formatter, exists := fr.formatters["json"]["any"]; exists && format != "json" {
		// Types without a text rendering fall back to JSON
		if _, known := fr.formatters[format]; known {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all registered formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	return slices.Sorted(maps.Keys(fr.formatters))
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ResumeAnalysis:
		return "ResumeAnalysis"
	case types.CareerPaths:
		return "CareerPaths"
	case types.JobTrends:
		return "JobTrends"
	case types.ChannelRecommendations:
		return "ChannelRecommendations"
	case types.MentorReply:
		return "MentorReply"
	case interview.Snapshot:
		return "Snapshot"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// typedFormatter renders one concrete type
type typedFormatter[T any] struct {
	name   string
	render func(T, *strings.Builder)
}

func typed[T any](name string, render func(T, *strings.Builder)) *typedFormatter[T] {
	return &typedFormatter[T]{name: name, render: render}
}

func (f *typedFormatter[T]) Format(data any) (string, error) {
	v, ok := data.(T)
	if !ok {
		return "", fmt.Errorf("expected %s, got %T", f.name, data)
	}
	var b strings.Builder
	f.render(v, &b)
	return b.String(), nil
}

func (f *typedFormatter[T]) SupportedType() string {
	return f.name
}

func analysisText(a types.ResumeAnalysis, b *strings.Builder) {
	b.WriteString("=== SKILL SUMMARY ===\n")
	b.WriteString(a.SkillSummary)
	b.WriteString("\n\n=== EXTRACTED SKILLS ===\n")
	for _, s := range a.ExtractedSkills {
		fmt.Fprintf(b, "- %s (%s, %s)\n", s.Name, s.Category, s.Proficiency)
	}
	b.WriteString("\n=== MARKET COMPARISON ===\n")
	for _, s := range a.MarketSkillsComparison {
		mark := " "
		if s.InResume {
			mark = "x"
		}
		fmt.Fprintf(b, "[%s] %s\n", mark, s.Name)
	}
	b.WriteString("\n=== IMPROVEMENT INSIGHTS ===\n")
	for i, insight := range a.ImprovementInsights {
		fmt.Fprintf(b, "%d. %s\n", i+1, insight)
	}
}

func analysisMarkdown(a types.ResumeAnalysis, b *strings.Builder) {
	b.WriteString("# Résumé Analysis\n\n## Skill Summary\n\n")
	b.WriteString(a.SkillSummary)
	b.WriteString("\n\n## Extracted Skills\n\n| Skill | Category | Proficiency |\n|---|---|---|\n")
	for _, s := range a.ExtractedSkills {
		fmt.Fprintf(b, "| %s | %s | %s |\n", s.Name, s.Category, s.Proficiency)
	}
	b.WriteString("\n## Market Comparison\n\n")
	for _, s := range a.MarketSkillsComparison {
		mark := " "
		if s.InResume {
			mark = "x"
		}
		fmt.Fprintf(b, "- [%s] %s\n", mark, s.Name)
	}
	b.WriteString("\n## Improvement Insights\n\n")
	for _, insight := range a.ImprovementInsights {
		fmt.Fprintf(b, "- %s\n", insight)
	}
}

func pathsText(p types.CareerPaths, b *strings.Builder) {
	for i, cp := range p.CareerPaths {
		fmt.Fprintf(b, "=== %d. %s ===\n", i+1, strings.ToUpper(cp.Title))
		b.WriteString(cp.Description)
		fmt.Fprintf(b, "\nDemand: %d/10\nSalary: %s\nSkill match: %d%%\n", cp.DemandScore, cp.SalaryRange, cp.Progress)
		fmt.Fprintf(b, "Skills: %s\n", strings.Join(cp.Skills, ", "))
		if cp.RoadmapURL != "" {
			fmt.Fprintf(b, "Roadmap: %s\n", cp.RoadmapURL)
		}
		b.WriteString("\n")
	}
}

func pathsMarkdown(p types.CareerPaths, b *strings.Builder) {
	b.WriteString("# Career Paths\n")
	for _, cp := range p.CareerPaths {
		fmt.Fprintf(b, "\n## %s\n\n%s\n\n", cp.Title, cp.Description)
		fmt.Fprintf(b, "- **Demand:** %d/10\n- **Salary:** %s\n- **Skill match:** %d%%\n", cp.DemandScore, cp.SalaryRange, cp.Progress)
		fmt.Fprintf(b, "- **Skills:** %s\n", strings.Join(cp.Skills, ", "))
		if cp.RoadmapURL != "" {
			fmt.Fprintf(b, "- **Roadmap:** [%s](%s)\n", cp.RoadmapURL, cp.RoadmapURL)
		}
	}
}

func trendsText(t types.JobTrends, b *strings.Builder) {
	b.WriteString("=== AVERAGE SALARIES ===\n")
	fmt.Fprintf(b, "%-10s %12s %12s %12s\n", "Month", "SWE", "Data Sci", "PM")
	for _, p := range t.SalaryTrends {
		fmt.Fprintf(b, "%-10s %12d %12d %12d\n", p.Month, p.SoftwareEngineer, p.DataScientist, p.ProductManager)
	}
	b.WriteString("\n=== MARKET DEMAND ===\n")
	for _, d := range t.MarketDemand {
		fmt.Fprintf(b, "%-28s %3d %s\n", d.Role, d.Demand, strings.Repeat("#", d.Demand/5))
	}
}

func trendsMarkdown(t types.JobTrends, b *strings.Builder) {
	b.WriteString("# Job Market Trends\n\n## Average Salaries\n\n")
	b.WriteString("| Month | Software Engineer | Data Scientist | Product Manager |\n|---|---|---|---|\n")
	for _, p := range t.SalaryTrends {
		fmt.Fprintf(b, "| %s | %d | %d | %d |\n", p.Month, p.SoftwareEngineer, p.DataScientist, p.ProductManager)
	}
	b.WriteString("\n## Market Demand\n\n| Role | Demand |\n|---|---|\n")
	for _, d := range t.MarketDemand {
		fmt.Fprintf(b, "| %s | %d |\n", d.Role, d.Demand)
	}
}

func channelsText(c types.ChannelRecommendations, b *strings.Builder) {
	for _, ch := range c.Channels {
		fmt.Fprintf(b, "=== %s ===\n%s\n%s\n", ch.ChannelName, ch.ChannelLink, ch.Description)
		fmt.Fprintf(b, "Why: %s\n", ch.RecommendationReason)
		for _, v := range ch.ExampleVideos {
			fmt.Fprintf(b, "  - %s\n", v)
		}
		b.WriteString("\n")
	}
}

func channelsMarkdown(c types.ChannelRecommendations, b *strings.Builder) {
	b.WriteString("# Recommended Channels\n")
	for _, ch := range c.Channels {
		fmt.Fprintf(b, "\n## [%s](%s)\n\n%s\n\n**Why:** %s\n", ch.ChannelName, ch.ChannelLink, ch.Description, ch.RecommendationReason)
		if len(ch.ExampleVideos) > 0 {
			b.WriteString("\nExample videos:\n\n")
			for _, v := range ch.ExampleVideos {
				fmt.Fprintf(b, "- %s\n", v)
			}
		}
	}
}

func mentorText(m types.MentorReply, b *strings.Builder) {
	b.WriteString(m.Response)
	b.WriteString("\n")
	if len(m.KeyPoints) > 0 {
		b.WriteString("\nKey points:\n")
		for _, p := range m.KeyPoints {
			fmt.Fprintf(b, "  * %s\n", p)
		}
	}
	if len(m.SuggestedResources) > 0 {
		b.WriteString("\nResources:\n")
		for _, r := range m.SuggestedResources {
			fmt.Fprintf(b, "  - %s <%s>\n", r.Title, r.URL)
		}
	}
}

func mentorMarkdown(m types.MentorReply, b *strings.Builder) {
	b.WriteString(m.Response)
	b.WriteString("\n")
	if len(m.KeyPoints) > 0 {
		b.WriteString("\n## Key Points\n\n")
		for _, p := range m.KeyPoints {
			fmt.Fprintf(b, "- %s\n", p)
		}
	}
	if len(m.SuggestedResources) > 0 {
		b.WriteString("\n## Resources\n\n")
		for _, r := range m.SuggestedResources {
			fmt.Fprintf(b, "- [%s](%s)", r.Title, r.URL)
			if r.Description != "" {
				fmt.Fprintf(b, ": %s", r.Description)
			}
			b.WriteString("\n")
		}
	}
}

func interviewText(s interview.Snapshot, b *strings.Builder) {
	fmt.Fprintf(b, "=== INTERVIEW: %s (%s) ===\n\n", s.Domain, s.ExperienceLevel)
	for i, qa := range s.History {
		fmt.Fprintf(b, "Q%d: %s\nA: %s\n", i+1, qa.Question, qa.Answer)
		if fb := qa.Feedback; fb != nil {
			fmt.Fprintf(b, "Score: %d/100\nClarity: %s\nContent: %s\nTips: %s\n", fb.Score, fb.ClarityNote, fb.ContentNote, fb.ImprovementTips)
		}
		b.WriteString("\n")
	}
	if avg, ok := averageScore(s.History); ok {
		fmt.Fprintf(b, "Average score: %d/100\n", avg)
	}
}

func interviewMarkdown(s interview.Snapshot, b *strings.Builder) {
	fmt.Fprintf(b, "# Mock Interview: %s\n\nLevel: %s\n", s.Domain, s.ExperienceLevel)
	for i, qa := range s.History {
		fmt.Fprintf(b, "\n## Question %d\n\n%s\n\n**Answer:** %s\n", i+1, qa.Question, qa.Answer)
		if fb := qa.Feedback; fb != nil {
			fmt.Fprintf(b, "\n- **Score:** %d/100\n- **Clarity:** %s\n- **Content:** %s\n- **Tips:** %s\n",
				fb.Score, fb.ClarityNote, fb.ContentNote, fb.ImprovementTips)
		}
	}
	if avg, ok := averageScore(s.History); ok {
		fmt.Fprintf(b, "\n**Average score:** %d/100\n", avg)
	}
}

func averageScore(history []interview.QAPair) (int, bool) {
	total, n := 0, 0
	for _, qa := range history {
		if qa.Feedback != nil {
			total += qa.Feedback.Score
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / n, true
}
