package common

import (
	"fmt"
	"slices"

	"careercoach/internal/errors"
	"careercoach/internal/formatters"
)

// ValidateOutputFormat checks format against the configured formats. An
// empty list accepts anything the formatter registry knows.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 || slices.Contains(supportedFormats, format) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats), nil)
}

// GetSupportedFormats returns the formats offered for shell completion
func GetSupportedFormats(supportedFormats []string) []string {
	if len(supportedFormats) == 0 {
		return formatters.GlobalRegistry.GetSupportedFormats()
	}
	return supportedFormats
}
