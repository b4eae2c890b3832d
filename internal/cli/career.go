package cli

import (
	"context"
	"fmt"
	"strings"

	"careercoach/internal/ai"
	"careercoach/internal/common"
	"careercoach/internal/errors"
	"careercoach/internal/types"

	"github.com/spf13/cobra"
)

var (
	pathsConfig    common.CommandConfig
	trendsConfig   common.CommandConfig
	channelsConfig common.CommandConfig
	mentorConfig   common.CommandConfig

	mentorResumeFile string
)

var pathsCmd = &cobra.Command{
	Use:     "paths [skill...]",
	Short:   "Recommend career paths for a set of skills",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: outputPreRun(&pathsConfig),
	RunE:    runPaths,
}

var trendsCmd = &cobra.Command{
	Use:     "trends",
	Short:   "Show salary trends and role demand",
	Args:    cobra.NoArgs,
	PreRunE: outputPreRun(&trendsConfig),
	RunE:    runTrends,
}

var channelsCmd = &cobra.Command{
	Use:     "channels [topic]",
	Short:   "Recommend YouTube channels for a learning topic",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: outputPreRun(&channelsConfig),
	RunE:    runChannels,
}

var mentorCmd = &cobra.Command{
	Use:   "mentor [question]",
	Short: "Ask the AI mentor for career guidance",
	Long: `Ask the AI mentor a career question. With --resume the mentor tailors its
advice to the résumé in the given file.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: outputPreRun(&mentorConfig),
	RunE:    runMentor,
}

func init() {
	addOutputFlags(pathsCmd, &pathsConfig)
	addOutputFlags(trendsCmd, &trendsConfig)
	addOutputFlags(channelsCmd, &channelsConfig)
	addOutputFlags(mentorCmd, &mentorConfig)
	mentorCmd.Flags().StringVar(&mentorResumeFile, "resume", "", "Résumé file to ground the advice in")
}

// runCareerCommand creates the AI service and runs one operation through the shared pipeline
func runCareerCommand[Input, Output any](
	cmd *cobra.Command,
	args []string,
	cc common.CommandConfig,
	createInput common.CreateInputFunc[Input],
	operation func(ai.AIProvider) common.AIOperationFunc[Input, Output],
	logDetails common.LogDetailsFunc[Input],
) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer aiService.Close()

	return common.RunAICommand(cmd.Context(), logger, cc, args, createInput, operation(aiService.Provider), logDetails)
}

func runPaths(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	createInput := func(args []string) (types.CareerPathsInput, error) {
		var skills []string
		for _, a := range args {
			for _, s := range strings.Split(a, ",") {
				if s = strings.TrimSpace(s); s != "" {
					skills = append(skills, s)
				}
			}
		}
		if len(skills) == 0 {
			return types.CareerPathsInput{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "at least one skill is required", nil)
		}
		return types.CareerPathsInput{Skills: skills}, nil
	}
	logDetails := func(input types.CareerPathsInput, cc common.CommandConfig) {
		logger.Info("Recommending career paths", "skills", len(input.Skills), "output_format", cc.OutputFormat)
	}
	return runCareerCommand(cmd, args, pathsConfig, createInput,
		func(p ai.AIProvider) common.AIOperationFunc[types.CareerPathsInput, types.CareerPaths] {
			return p.RecommendCareerPaths
		}, logDetails)
}

func runTrends(cmd *cobra.Command, args []string) error {
	createInput := func([]string) (struct{}, error) { return struct{}{}, nil }
	return runCareerCommand(cmd, args, trendsConfig, createInput,
		func(p ai.AIProvider) common.AIOperationFunc[struct{}, types.JobTrends] {
			return func(ctx context.Context, _ struct{}) (types.JobTrends, *ai.TokenUsage, error) {
				return p.GetJobTrends(ctx)
			}
		}, nil)
}

func runChannels(cmd *cobra.Command, args []string) error {
	createInput := func(args []string) (types.ChannelsInput, error) {
		topic := strings.TrimSpace(strings.Join(args, " "))
		if topic == "" {
			return types.ChannelsInput{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "topic is required", nil)
		}
		return types.ChannelsInput{Topic: topic}, nil
	}
	return runCareerCommand(cmd, args, channelsConfig, createInput,
		func(p ai.AIProvider) common.AIOperationFunc[types.ChannelsInput, types.ChannelRecommendations] {
			return p.RecommendChannels
		}, nil)
}

func runMentor(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	createInput := func(args []string) (types.MentorInput, error) {
		input := types.MentorInput{Query: strings.TrimSpace(strings.Join(args, " "))}
		if input.Query == "" {
			return input, errors.NewValidationError(errors.ErrCodeInvalidRequest, "question is required", nil)
		}
		if mentorResumeFile != "" {
			ref, err := common.NewFileProcessor(logger, cfg.App.MaxFileSize).ReadDocument(mentorResumeFile)
			if err != nil {
				return input, err
			}
			input.Resume = ref.Text
		}
		return input, nil
	}
	logDetails := func(input types.MentorInput, cc common.CommandConfig) {
		logger.Info("Asking mentor", "query_chars", len(input.Query), "with_resume", input.Resume != "")
	}
	return runCareerCommand(cmd, args, mentorConfig, createInput,
		func(p ai.AIProvider) common.AIOperationFunc[types.MentorInput, types.MentorReply] {
			return p.MentorGuidance
		}, logDetails)
}
