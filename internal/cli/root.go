package cli

import (
	"context"

	"careercoach/internal/config"
	"careercoach/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "careercoach",
	Short: "An AI career coach for interview practice and career planning",
	Long: `careercoach runs mock interviews with AI feedback, analyzes résumés against
the job market, and recommends career paths, learning channels and mentoring
advice. Use "serve" to expose everything over HTTP or the individual commands
to work from the terminal.`,
	SilenceUsage:      true,
	PersistentPreRunE: applyGlobalFlags,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// applyGlobalFlags reloads the configuration from --config and rebuilds the
// logger for --log-level, replacing what main put in the context.
func applyGlobalFlags(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)

	configFile, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	if configFile == "" && logLevel == "" {
		return nil
	}

	if configFile != "" {
		loaded, err := config.LoadConfigFrom(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	cmd.SetContext(ctx)
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./config.yaml, $HOME/.config/careercoach, /etc/careercoach)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(channelsCmd)
	rootCmd.AddCommand(mentorCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
