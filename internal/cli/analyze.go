package cli

import (
	"context"
	"fmt"

	"careercoach/internal/ai"
	"careercoach/internal/common"
	"careercoach/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]",
	Short: "Analyze a résumé against the current job market",
	Long: `Analyze a résumé (PDF, DOCX or plain text) and report:
- A short summary of the candidate's skill set
- Extracted skills with category and proficiency
- How the résumé compares with skills in demand
- Concrete improvement insights`,
	Args:    cobra.ExactArgs(1),
	PreRunE: outputPreRun(&analyzeConfig),
	RunE:    runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer aiService.Close()

	files := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	createInput := func(args []string) (types.ResumeAnalysisInput, error) {
		ref, err := files.ReadDocument(args[0])
		if err != nil {
			return types.ResumeAnalysisInput{}, err
		}
		return types.ResumeAnalysisInput{ResumeText: ref.Text}, nil
	}

	logDetails := func(input types.ResumeAnalysisInput, cc common.CommandConfig) {
		logger.Info("Starting résumé analysis",
			"resume_chars", len(input.ResumeText),
			"output_format", cc.OutputFormat)
	}

	analyzeOperation := func(ctx context.Context, input types.ResumeAnalysisInput) (types.ResumeAnalysis, *ai.TokenUsage, error) {
		return aiService.Provider.AnalyzeResume(ctx, input)
	}

	if err := common.RunAICommand(cmd.Context(), logger, analyzeConfig, args, createInput, analyzeOperation, logDetails); err != nil {
		return fmt.Errorf("failed to analyze résumé: %w", err)
	}
	logger.Info("Résumé analysis completed successfully")
	return nil
}
