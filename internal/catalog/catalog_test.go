package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"careercoach/internal/errors"
)

const sampleYAML = `
domains:
  - name: Software Engineering
    description: Backend and systems
    topics: [concurrency, databases]
  - name: "  Data Science  "
  - name: Marketing
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(c.Domains) != 3 {
		t.Fatalf("Expected 3 domains, got %d", len(c.Domains))
	}
	if c.Domains[1].Name != "Data Science" {
		t.Errorf("Expected trimmed name, got %q", c.Domains[1].Name)
	}
	if got := c.Domains[0].Topics; len(got) != 2 || got[0] != "concurrency" {
		t.Errorf("Unexpected topics %v", got)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "domains: [unclosed"},
		{"empty", "domains: []"},
		{"missing name", "domains:\n  - description: nameless"},
		{"duplicate", "domains:\n  - name: QA\n  - name: qa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Expected invalid config error, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Strict || len(c.Names()) != 3 {
		t.Errorf("Unexpected catalog %+v", c)
	}

	def, err := Load("", false)
	if err != nil || len(def.Domains) == 0 {
		t.Errorf("Expected default catalog, got %v, %v", def, err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false); !errors.HasCode(err, errors.ErrCodeFileNotReadable) {
		t.Errorf("Expected read error, got %v", err)
	}
}

func TestCheckDomain(t *testing.T) {
	strict := Default()
	strict.Strict = true
	lenient := Default()

	tests := []struct {
		name    string
		catalog *Catalog
		domain  string
		wantErr bool
	}{
		{"strict known", strict, "Software Engineering", false},
		{"strict case insensitive", strict, "software engineering", false},
		{"strict unknown", strict, "Underwater Basket Weaving", true},
		{"lenient unknown", lenient, "Underwater Basket Weaving", false},
		{"empty", lenient, "   ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.CheckDomain(tt.domain)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckDomain(%q) error = %v, wantErr %v", tt.domain, err, tt.wantErr)
			}
		})
	}
}
