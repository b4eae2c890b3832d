package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"careercoach/internal/errors"

	"github.com/dustin/go-humanize"
)

// ValidateInputFile checks that filename names a readable regular file
func ValidateInputFile(filename string) error {
	if filename == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "filename cannot be empty", nil)
	}

	info, err := os.Stat(filename)
	switch {
	case os.IsNotExist(err):
		return errors.NewIOError(errors.ErrCodeFileNotFound, fmt.Sprintf("file does not exist: %s", filename), err)
	case err != nil:
		return errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("cannot access file %s", filename), err)
	case info.IsDir():
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, fmt.Sprintf("path is a directory, not a file: %s", filename), nil)
	}

	file, err := os.Open(filename)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("cannot read file %s", filename), err)
	}
	return file.Close()
}

// ValidateOutputFile makes sure the directory of filename exists. An empty
// name means stdout.
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}

	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}
