package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LoadedPrompt holds prompt text read from files for one operation. Empty
// fields mean no file was configured.
type LoadedPrompt struct {
	System string
	User   string
}

// PromptSet is the set of file-backed prompts. It can be reloaded while the
// server is running, so reads go through the lock.
type PromptSet struct {
	mu     sync.RWMutex
	byOp   map[Operation]LoadedPrompt
	loaded int
}

// Get returns the file-backed prompts of op.
func (p *PromptSet) Get(op Operation) LoadedPrompt {
	if p == nil {
		return LoadedPrompt{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byOp[op]
}

// Count returns the number of prompt files currently loaded.
func (p *PromptSet) Count() int {
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// LoadedPrompts returns the file-backed prompts of op.
func (c *Config) LoadedPrompts(op Operation) LoadedPrompt {
	return c.prompts.Get(op)
}

// LoadPrompts (re)reads every configured prompt file. On error the previous
// set stays active.
func (c *Config) LoadPrompts() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	next := make(map[Operation]LoadedPrompt, len(Operations))
	count := 0
	for _, op := range Operations {
		prompts := c.operationField(op).Prompts
		var lp LoadedPrompt
		if prompts.SystemFile != "" {
			content, err := loadPromptFromFile(prompts.SystemFile, "system", op)
			if err != nil {
				return err
			}
			lp.System = content
			count++
		}
		if prompts.UserFile != "" {
			content, err := loadPromptFromFile(prompts.UserFile, "user", op)
			if err != nil {
				return err
			}
			lp.User = content
			count++
		}
		next[op] = lp
	}

	if c.prompts == nil {
		c.prompts = &PromptSet{}
	}
	c.prompts.mu.Lock()
	c.prompts.byOp = next
	c.prompts.loaded = count
	c.prompts.mu.Unlock()

	if count == 0 {
		log.Println("[CONFIG] No custom prompt files loaded - using configured or built-in prompts")
	} else {
		log.Printf("[CONFIG] Total custom prompt files loaded: %d", count)
	}
	return nil
}

// PromptFiles returns the absolute paths of all configured prompt files.
func (c *Config) PromptFiles() []string {
	var files []string
	for _, op := range Operations {
		prompts := c.operationField(op).Prompts
		for _, f := range []string{prompts.SystemFile, prompts.UserFile} {
			if f == "" {
				continue
			}
			if abs, err := filepath.Abs(f); err == nil {
				files = append(files, abs)
			}
		}
	}
	return files
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType string, op Operation) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, op, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, op, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, op, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, op, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)",
		promptType, op, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	validateFile := func(filePath, promptType string, op Operation) {
		if filePath == "" {
			return
		}

		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", promptType, op, filePath))
			return
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", promptType, op, absPath))
		}
	}

	for _, op := range Operations {
		prompts := c.operationField(op).Prompts
		validateFile(prompts.SystemFile, "system", op)
		validateFile(prompts.UserFile, "user", op)
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}
