package ai

import (
	"fmt"
	"strings"

	"careercoach/internal/config"
	"careercoach/internal/types"
)

// DefaultPrompt is the built-in system and user prompt of one operation. User
// templates are fmt.Sprintf formats; the verbs each one expects are listed on
// the operation's builder below.
type DefaultPrompt struct {
	System string
	User   string
}

// DefaultPrompts holds the built-in prompts per operation
var DefaultPrompts = map[config.Operation]DefaultPrompt{
	config.OpInterviewQuestion: {
		System: `You are a technical interviewer running a mock interview. You ask one question at a time.

- Ground every question in the candidate's resume and the chosen domain
- Match the difficulty to the stated experience level
- Never repeat a question that was already asked in this session
- Ask open questions that can be answered in a few minutes, spoken or typed`,
		User: `Generate the next interview question.

**Domain:** %s
**Experience Level:** %s

**Questions already asked:**
%s

**Resume:**
-----
%s
-----

Return only the question text in the "question" field.`,
	},

	config.OpAnswerCritique: {
		System: `You are an experienced interviewer giving candid, constructive feedback on a single answer.
Judge the answer only against the question that was asked.`,
		User: `Review the candidate's answer.

**Question:** %s

**Candidate's Answer:**
-----
%s
-----

Provide:
1. **clarityNote**: how well structured and easy to follow the answer was
2. **contentNote**: how relevant, accurate and complete the content was
3. **score**: an overall score from 0 to 100 covering clarity, content, relevance and confidence
4. **improvementTips**: specific, actionable advice to improve this answer`,
	},

	config.OpResumeAnalysis: {
		System: `You are a career coach and technical recruiter. You read resumes carefully and never invent skills
that are not supported by the text.`,
		User: `Analyze the resume below.

1. **extractedSkills**: every technical skill, with a category (for example "Programming Language",
   "Framework", "Cloud", "Database") and a proficiency of exactly one of Beginner, Intermediate, Advanced
   or Expert, judged from years of use and project depth.
2. **marketSkillsComparison**: infer the candidate's most likely role, list the ten most in-demand skills
   for that role today and mark whether each appears in the resume.
3. **skillSummary**: a short summary of the candidate's strengths and technical profile.
4. **improvementInsights**: a short list of concrete ways to improve the resume.

**Resume:**
-----
%s
-----`,
	},

	config.OpCareerPaths: {
		System: `You are a career advisor who knows the current technology job market.`,
		User: `Recommend exactly 3 career paths for someone with these skills:

%s

For each path give a title, a description, a demandScore from 1 to 10, an estimated salaryRange,
exactly 5 key skills, progress as the percentage (0-100) of those skills the person already has, and
roadmapUrl: an absolute https link to a learning roadmap or certification page.`,
	},

	config.OpJobTrends: {
		System: `You are a job market analyst producing illustrative market data.`,
		User: `Produce realistic trend data for the last 12 months, ending with %s, for three roles:
Software Engineer, Data Scientist and Product Manager.

1. **salaryTrends**: exactly 12 entries, oldest first, months abbreviated (Jan, Feb, ...), with the
   average yearly salary in USD as a plain integer for softwareEngineer, dataScientist and productManager.
   Show plausible small rises and dips.
2. **marketDemand**: exactly 3 entries, one per role, each with a demand score from 1 to 100.`,
	},

	config.OpChannels: {
		System: `You are a mentor for people learning software development. You only recommend YouTube channels
that are active and that you are confident exist.`,
		User: `Recommend the best YouTube channels for learning: %s

For each channel give channelName, channelLink (the full channel URL), a description of its style and
audience level, recommendationReason and a few exampleVideos titles.

Prefer channels that publish regularly, teach through projects, have an engaged audience and use modern
tooling.`,
	},

	config.OpMentor: {
		System: `You are a career mentor. You give personalized guidance on career direction, skill growth
and the job market. Reply in the language the user writes in. Keep the response conversational and concise,
and put the main takeaways in keyPoints. When useful, suggest resources, preferring free courses and
certifications.`,
		User: `%s%s**User Query:** %s`,
	},
}

// resolvePrompt selects a prompt by priority: file, then config, then default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

// promptSource returns the system prompt and user template for an operation.
type promptSource func(op config.Operation) (system, user string)

func (g *GeminiProvider) prompts(op config.Operation) (string, string) {
	var loaded config.LoadedPrompt
	if g.cfg != nil {
		loaded = g.cfg.LoadedPrompts(op)
	}
	custom := g.runtime(op).config.Prompts
	def := DefaultPrompts[op]
	return resolvePrompt(loaded.System, custom.System, def.System),
		resolvePrompt(loaded.User, custom.User, def.User)
}

func bulletList(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Builders return the system prompt and the formatted user prompt.

func buildQuestionPrompt(src promptSource, in types.InterviewQuestionInput) (string, string) {
	system, user := src(config.OpInterviewQuestion)
	return system, fmt.Sprintf(user, in.Domain, in.ExperienceLevel,
		bulletList(in.PreviousQuestions, "(none)"), in.ResumeText)
}

func buildCritiquePrompt(src promptSource, in types.CritiqueInput) (string, string) {
	system, user := src(config.OpAnswerCritique)
	return system, fmt.Sprintf(user, in.Question, in.Answer)
}

func buildAnalysisPrompt(src promptSource, in types.ResumeAnalysisInput) (string, string) {
	system, user := src(config.OpResumeAnalysis)
	return system, fmt.Sprintf(user, in.ResumeText)
}

func buildPathsPrompt(src promptSource, in types.CareerPathsInput) (string, string) {
	system, user := src(config.OpCareerPaths)
	return system, fmt.Sprintf(user, bulletList(in.Skills, ""))
}

func buildTrendsPrompt(src promptSource, currentMonth string) (string, string) {
	system, user := src(config.OpJobTrends)
	return system, fmt.Sprintf(user, currentMonth)
}

func buildChannelsPrompt(src promptSource, in types.ChannelsInput) (string, string) {
	system, user := src(config.OpChannels)
	return system, fmt.Sprintf(user, in.Topic)
}

func buildMentorPrompt(src promptSource, in types.MentorInput) (string, string) {
	system, user := src(config.OpMentor)

	var resume string
	if strings.TrimSpace(in.Resume) != "" {
		resume = "**User Resume:**\n-----\n" + in.Resume + "\n-----\n\n"
	}

	var history string
	if len(in.History) > 0 {
		var b strings.Builder
		b.WriteString("**Chat History:**\n")
		for _, m := range in.History {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
		history = b.String()
	}

	return system, fmt.Sprintf(user, resume, history, in.Query)
}
