package common

import (
	"fmt"
	"os"
	"path/filepath"

	"careercoach/internal/document"
	"careercoach/internal/errors"
	"careercoach/internal/types"
	"careercoach/internal/utils"
)

// FileProcessor reads résumé documents and writes command output
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a new file processor instance. A maxFileSize of
// zero disables the size check.
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	if logger == nil {
		logger = errors.Discard()
	}
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadFile reads a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return nil, err
	}

	info, err := os.Stat(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("File not found: %s", filename), err)
	}
	if fp.maxFileSize > 0 && info.Size() > fp.maxFileSize {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("File %s is %s, the limit is %s", filename,
				utils.FormatFileSize(info.Size()), utils.FormatFileSize(fp.maxFileSize)), nil)
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	return content, nil
}

// ReadDocument reads a résumé in any supported format and extracts its text
func (fp *FileProcessor) ReadDocument(filename string) (*types.ResumeRef, error) {
	content, err := fp.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	mediaType := document.MediaTypeFor(filename, content)
	fp.logger.Debug("Extracting document text", "filename", filename,
		"media_type", mediaType, "size", utils.FormatFileSize(int64(len(content))))

	text, err := document.Extract(mediaType, content)
	if err != nil {
		return nil, err
	}
	return &types.ResumeRef{
		Content:     content,
		MediaType:   mediaType,
		Fingerprint: document.Fingerprint(content),
		Text:        text,
		Filename:    filepath.Base(filename),
	}, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
