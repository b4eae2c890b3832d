package ai

import (
	"careercoach/internal/config"

	"google.golang.org/genai"
)

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func integer() *genai.Schema { return &genai.Schema{Type: genai.TypeInteger} }

func arrayOf(items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: items}
}

func object(props map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

// responseSchemas describes the JSON each operation must return
var responseSchemas = map[config.Operation]*genai.Schema{
	config.OpInterviewQuestion: object(map[string]*genai.Schema{
		"question": str(),
	}, "question"),

	config.OpAnswerCritique: object(map[string]*genai.Schema{
		"clarityNote":     str(),
		"contentNote":     str(),
		"score":           integer(),
		"improvementTips": str(),
	}, "clarityNote", "contentNote", "score", "improvementTips"),

	config.OpResumeAnalysis: object(map[string]*genai.Schema{
		"skillSummary":        str(),
		"improvementInsights": arrayOf(str()),
		"extractedSkills": arrayOf(object(map[string]*genai.Schema{
			"name":     str(),
			"category": str(),
			"proficiency": {
				Type: genai.TypeString,
				Enum: []string{"Beginner", "Intermediate", "Advanced", "Expert"},
			},
		}, "name", "category", "proficiency")),
		"marketSkillsComparison": arrayOf(object(map[string]*genai.Schema{
			"name":     str(),
			"inResume": {Type: genai.TypeBoolean},
		}, "name", "inResume")),
	}, "skillSummary", "improvementInsights", "extractedSkills", "marketSkillsComparison"),

	config.OpCareerPaths: object(map[string]*genai.Schema{
		"careerPaths": arrayOf(object(map[string]*genai.Schema{
			"title":       str(),
			"description": str(),
			"demandScore": integer(),
			"salaryRange": str(),
			"skills":      arrayOf(str()),
			"progress":    integer(),
			"roadmapUrl":  str(),
		}, "title", "description", "demandScore", "salaryRange", "skills", "progress", "roadmapUrl")),
	}, "careerPaths"),

	config.OpJobTrends: object(map[string]*genai.Schema{
		"salaryTrends": arrayOf(object(map[string]*genai.Schema{
			"month":            str(),
			"softwareEngineer": integer(),
			"dataScientist":    integer(),
			"productManager":   integer(),
		}, "month", "softwareEngineer", "dataScientist", "productManager")),
		"marketDemand": arrayOf(object(map[string]*genai.Schema{
			"role":   str(),
			"demand": integer(),
		}, "role", "demand")),
	}, "salaryTrends", "marketDemand"),

	config.OpChannels: object(map[string]*genai.Schema{
		"channels": arrayOf(object(map[string]*genai.Schema{
			"channelName":          str(),
			"channelLink":          str(),
			"description":          str(),
			"recommendationReason": str(),
			"exampleVideos":        arrayOf(str()),
		}, "channelName", "channelLink", "description", "recommendationReason", "exampleVideos")),
	}, "channels"),

	config.OpMentor: object(map[string]*genai.Schema{
		"response":  str(),
		"keyPoints": arrayOf(str()),
		"suggestedResources": arrayOf(object(map[string]*genai.Schema{
			"title":       str(),
			"url":         str(),
			"description": str(),
		}, "title", "url")),
	}, "response"),
}

// buildGenerateConfig creates the request config for an operation
func buildGenerateConfig(op config.Operation, temperature *float32) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchemas[op],
	}

	// Apply temperature configuration if set
	if temperature != nil && *temperature > 0 {
		t := *temperature
		cfg.Temperature = &t
	}

	return cfg
}
