package common

import (
	"fmt"
	"io"
	"os"

	"careercoach/internal/errors"
	"careercoach/internal/formatters"
)

// CommandConfig holds the output flags shared by commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler renders results and writes them to a file or stdout
type OutputHandler struct {
	files    *FileProcessor
	registry *formatters.FormatterRegistry
	stdout   io.Writer
	logger   *errors.Logger
}

// NewOutputHandler creates an output handler writing to os.Stdout
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	if logger == nil {
		logger = errors.Discard()
	}
	return &OutputHandler{
		files:    NewFileProcessor(logger, 0),
		registry: formatters.GlobalRegistry,
		stdout:   os.Stdout,
		logger:   logger,
	}
}

// WithStdout replaces the writer used when no output file is set
func (oh *OutputHandler) WithStdout(w io.Writer) *OutputHandler {
	oh.stdout = w
	return oh
}

// HandleOutput formats data and writes it where cc points
func (oh *OutputHandler) HandleOutput(data any, cc CommandConfig) error {
	if err := oh.files.ValidateOutputFile(cc.OutputFile); err != nil {
		return err
	}

	output, err := oh.registry.Format(data, cc.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", cc.OutputFormat), err)
	}

	if cc.OutputFile == "" {
		_, err = io.WriteString(oh.stdout, output)
		return err
	}

	if err := oh.files.WriteFile(cc.OutputFile, output); err != nil {
		return err
	}
	oh.logger.Info("Output written successfully", "file", cc.OutputFile, "format", cc.OutputFormat)
	return nil
}
