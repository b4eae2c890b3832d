package config

// Operation names one structured AI call.
type Operation string

const (
	OpInterviewQuestion Operation = "interviewQuestion"
	OpAnswerCritique    Operation = "answerCritique"
	OpResumeAnalysis    Operation = "resumeAnalysis"
	OpCareerPaths       Operation = "careerPaths"
	OpJobTrends         Operation = "jobTrends"
	OpChannels          Operation = "channels"
	OpMentor            Operation = "mentor"
)

// Operations lists every operation in a stable order.
var Operations = []Operation{
	OpInterviewQuestion,
	OpAnswerCritique,
	OpResumeAnalysis,
	OpCareerPaths,
	OpJobTrends,
	OpChannels,
	OpMentor,
}

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// operationField returns the config block backing op, or nil for an unknown op.
func (c *Config) operationField(op Operation) *OperationAIConfig {
	switch op {
	case OpInterviewQuestion:
		return &c.AI.InterviewQuestion
	case OpAnswerCritique:
		return &c.AI.AnswerCritique
	case OpResumeAnalysis:
		return &c.AI.ResumeAnalysis
	case OpCareerPaths:
		return &c.AI.CareerPaths
	case OpJobTrends:
		return &c.AI.JobTrends
	case OpChannels:
		return &c.AI.Channels
	case OpMentor:
		return &c.AI.Mentor
	default:
		return nil
	}
}

// GetOperationConfig returns the AI configuration for op with fallback to global config
func (c *Config) GetOperationConfig(op Operation) OperationAIConfig {
	var config OperationAIConfig
	if field := c.operationField(op); field != nil {
		config = *field
	}

	c.applyOperationDefaults(&config)

	return config
}
