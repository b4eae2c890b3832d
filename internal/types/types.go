package types

// ResumeRef is an uploaded résumé as held by the profile store. Text is the
// extracted plain text sent to the model; Content is the original upload.
type ResumeRef struct {
	Content     []byte `json:"-"`
	MediaType   string `json:"mediaType"`
	Fingerprint string `json:"fingerprint"`
	Text        string `json:"text,omitempty"`
	Filename    string `json:"filename,omitempty"`
	BlobKey     string `json:"blobKey,omitempty"`
}

// ExperienceLevel of the interview candidate
type ExperienceLevel string

const (
	LevelEntry  ExperienceLevel = "entry"
	LevelMid    ExperienceLevel = "mid"
	LevelSenior ExperienceLevel = "senior"
)

// Valid reports whether l is one of the known levels
func (l ExperienceLevel) Valid() bool {
	switch l {
	case LevelEntry, LevelMid, LevelSenior:
		return true
	}
	return false
}

// InterviewQuestionInput represents the input for generating an interview question
type InterviewQuestionInput struct {
	Domain          string          `json:"domain"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
	ResumeText      string          `json:"resumeText"`
	// PreviousQuestions are not asked again
	PreviousQuestions []string `json:"previousQuestions,omitempty"`
}

// InterviewQuestion represents a generated interview question
type InterviewQuestion struct {
	Question string `json:"question"`
}

// CritiqueInput represents a question and the candidate's answer
type CritiqueInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Feedback is the critique of one answer
type Feedback struct {
	ClarityNote     string `json:"clarityNote"`
	ContentNote     string `json:"contentNote"`
	Score           int    `json:"score"` // 0-100
	ImprovementTips string `json:"improvementTips"`
}

// ResumeAnalysisInput represents the input for analyzing a resume
type ResumeAnalysisInput struct {
	ResumeText string `json:"resumeText"`
}

// Proficiency levels used in skill extraction
const (
	ProficiencyBeginner     = "Beginner"
	ProficiencyIntermediate = "Intermediate"
	ProficiencyAdvanced     = "Advanced"
	ProficiencyExpert       = "Expert"
)

// ExtractedSkill is one technical skill found in the resume
type ExtractedSkill struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Proficiency string `json:"proficiency"`
}

// MarketSkill is one in-demand skill for the inferred role
type MarketSkill struct {
	Name     string `json:"name"`
	InResume bool   `json:"inResume"`
}

// ResumeAnalysis represents the output of resume analysis
type ResumeAnalysis struct {
	SkillSummary           string           `json:"skillSummary"`
	ImprovementInsights    []string         `json:"improvementInsights"`
	ExtractedSkills        []ExtractedSkill `json:"extractedSkills"`
	MarketSkillsComparison []MarketSkill    `json:"marketSkillsComparison"`
}

// SkillNames returns the names of the extracted skills
func (a ResumeAnalysis) SkillNames() []string {
	names := make([]string, 0, len(a.ExtractedSkills))
	for _, s := range a.ExtractedSkills {
		names = append(names, s.Name)
	}
	return names
}

// CareerPathsInput represents the skills to base recommendations on
type CareerPathsInput struct {
	Skills []string `json:"skills"`
}

// CareerPath is one recommended career path
type CareerPath struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DemandScore int      `json:"demandScore"` // 1-10
	SalaryRange string   `json:"salaryRange"`
	Skills      []string `json:"skills"`   // exactly 5
	Progress    int      `json:"progress"` // 0-100 skill match
	RoadmapURL  string   `json:"roadmapUrl"`
}

// CareerPaths represents exactly three recommended paths
type CareerPaths struct {
	CareerPaths []CareerPath `json:"careerPaths"`
}

// SalaryPoint is one month of average salaries
type SalaryPoint struct {
	Month            string `json:"month"`
	SoftwareEngineer int    `json:"softwareEngineer"`
	DataScientist    int    `json:"dataScientist"`
	ProductManager   int    `json:"productManager"`
}

// RoleDemand is the current demand score for a role
type RoleDemand struct {
	Role   string `json:"role"`
	Demand int    `json:"demand"` // 1-100
}

// JobTrends represents twelve months of salary data and current demand
type JobTrends struct {
	SalaryTrends []SalaryPoint `json:"salaryTrends"`
	MarketDemand []RoleDemand  `json:"marketDemand"`
}

// ChannelsInput represents the learning topic
type ChannelsInput struct {
	Topic string `json:"topic"`
}

// Channel is one recommended YouTube channel
type Channel struct {
	ChannelName          string   `json:"channelName"`
	ChannelLink          string   `json:"channelLink"`
	Description          string   `json:"description"`
	RecommendationReason string   `json:"recommendationReason"`
	ExampleVideos        []string `json:"exampleVideos"`
}

// ChannelRecommendations represents the recommended channels
type ChannelRecommendations struct {
	Channels []Channel `json:"channels"`
}

// Chat roles
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatMessage is one turn of the mentor conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MentorInput represents a mentor query with optional context
type MentorInput struct {
	Query   string        `json:"query"`
	Resume  string        `json:"resume,omitempty"`
	History []ChatMessage `json:"history,omitempty"`
}

// Resource is a suggested learning resource
type Resource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// MentorReply represents the mentor's structured answer
type MentorReply struct {
	Response           string     `json:"response"`
	KeyPoints          []string   `json:"keyPoints,omitempty"`
	SuggestedResources []Resource `json:"suggestedResources,omitempty"`
}
