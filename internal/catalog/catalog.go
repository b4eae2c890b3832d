// Package catalog lists the interview domains a deployment offers.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"careercoach/internal/errors"

	"gopkg.in/yaml.v3"
)

// Domain is one interview domain with optional focus topics
type Domain struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Topics      []string `yaml:"topics,omitempty" json:"topics,omitempty"`
}

// Catalog is the list of domains. In strict mode CheckDomain rejects
// anything not listed; otherwise any non-empty domain is accepted and the
// list only serves as suggestions.
type Catalog struct {
	Domains []Domain `yaml:"domains" json:"domains"`
	Strict  bool     `yaml:"-" json:"strict"`
}

// Default returns the built-in catalog
func Default() *Catalog {
	return &Catalog{Domains: []Domain{
		{Name: "Software Engineering", Description: "Coding, system design and engineering practices",
			Topics: []string{"data structures", "system design", "testing", "debugging"}},
		{Name: "Data Science", Description: "Statistics, machine learning and data analysis",
			Topics: []string{"statistics", "feature engineering", "model evaluation"}},
		{Name: "Product Management", Description: "Product strategy, prioritization and delivery",
			Topics: []string{"roadmaps", "metrics", "stakeholder management"}},
		{Name: "DevOps", Description: "Infrastructure, CI/CD and reliability",
			Topics: []string{"containers", "observability", "incident response"}},
		{Name: "Frontend Development", Description: "Web UI engineering",
			Topics: []string{"JavaScript", "accessibility", "performance"}},
		{Name: "Cybersecurity", Description: "Application and infrastructure security",
			Topics: []string{"threat modeling", "authentication", "vulnerability management"}},
		{Name: "Marketing", Description: "Digital marketing and growth",
			Topics: []string{"campaigns", "analytics", "branding"}},
	}}
}

// Load reads a catalog from a YAML file. An empty path returns Default.
func Load(path string, strict bool) (*Catalog, error) {
	if path == "" {
		c := Default()
		c.Strict = strict
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("failed to read domain catalog %s", path), err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.Strict = strict
	return c, nil
}

// Parse decodes and validates catalog YAML
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to parse domain catalog", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Domains) == 0 {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "domain catalog is empty", nil)
	}
	seen := make(map[string]bool, len(c.Domains))
	for i := range c.Domains {
		d := &c.Domains[i]
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("domain %d has no name", i+1), nil)
		}
		key := strings.ToLower(d.Name)
		if seen[key] {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("duplicate domain %q", d.Name), nil)
		}
		seen[key] = true
	}
	return nil
}

// Find looks up a domain by name, ignoring case
func (c *Catalog) Find(name string) (Domain, bool) {
	name = strings.TrimSpace(name)
	for _, d := range c.Domains {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Domain{}, false
}

// Names returns the domain names in catalog order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Domains))
	for i, d := range c.Domains {
		names[i] = d.Name
	}
	return names
}

// CheckDomain implements interview.DomainChecker
func (c *Catalog) CheckDomain(domain string) error {
	if strings.TrimSpace(domain) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "domain is required", nil)
	}
	if !c.Strict {
		return nil
	}
	if _, ok := c.Find(domain); !ok {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown interview domain %q", domain), nil).
			WithContext("available", c.Names())
	}
	return nil
}
