package utils

import (
	"os"
	"path/filepath"
	"testing"

	"careercoach/internal/errors"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "resume.txt")
	if err := os.WriteFile(file, []byte("Go developer"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		filename string
		code     string
	}{
		{"readable file", file, ""},
		{"empty name", "", errors.ErrCodeInvalidRequest},
		{"missing", filepath.Join(dir, "nope.txt"), errors.ErrCodeFileNotFound},
		{"directory", dir, errors.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputFile(tt.filename)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.HasCode(err, tt.code) {
				t.Errorf("expected code %s, got %v", tt.code, err)
			}
		})
	}
}

func TestValidateOutputFileCreatesDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "reports", "nested", "out.json")
	if err := ValidateOutputFile(target); err != nil {
		t.Fatalf("ValidateOutputFile failed: %v", err)
	}
	if info, err := os.Stat(filepath.Dir(target)); err != nil || !info.IsDir() {
		t.Errorf("directory was not created: %v", err)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{-1, "0 B"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
