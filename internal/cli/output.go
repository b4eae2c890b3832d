package cli

import (
	"careercoach/internal/ai"
	"careercoach/internal/common"
	"careercoach/internal/config"
	"careercoach/internal/errors"

	"github.com/spf13/cobra"
)

// newAIService is swapped in tests
var newAIService = func(cfg *config.Config, logger *errors.Logger) (*ai.Service, error) {
	return ai.NewService(cfg, logger)
}

// addOutputFlags registers the shared --output and --format flags
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

// outputPreRun applies the default format and rejects unsupported ones
func outputPreRun(cc *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if cc.OutputFormat == "" {
			cc.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(cc.OutputFormat, cfg.App.SupportedFormats)
	}
}
