// Package prompts holds the named, versioned prompt templates used by the
// analyzer, relevance calculator, and quality reviewer. The bundle hash over
// all current templates lets the analysis cache invalidate itself whenever a
// prompt changes.
package prompts

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"newswatch/internal/errkind"
	"newswatch/internal/llm"
	"newswatch/internal/logger"
)

// Template names known to the registry.
const (
	TitleExtraction   = "title_extraction"
	ContentAnalysis   = "content_analysis"
	RelevanceAnalysis = "relevance_analysis"
	DateExtraction    = "date_extraction"
	QualityReview     = "quality_review"
)

// Template is one named prompt pair.
type Template struct {
	Name         string `json:"name"`
	Version      int    `json:"version"`
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
}

// Registry is a thread-safe template store seeded with the built-in set.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry returns a registry holding the default templates.
func NewRegistry() *Registry {
	r := &Registry{templates: map[string]Template{}}
	for _, t := range defaultTemplates() {
		r.templates[t.Name] = t
	}
	return r
}

// Current returns the active version of a named template.
func (r *Registry) Current(name string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("prompt template %q: %w", name, errkind.ErrNotFound)
	}
	return t, nil
}

// Save writes a new version of a named template.
func (r *Registry) Save(name, systemPrompt, userPrompt string) error {
	if name == "" || userPrompt == "" {
		return fmt.Errorf("%w: template name and user prompt are required", errkind.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	version := 1
	if existing, ok := r.templates[name]; ok {
		version = existing.Version + 1
	}
	r.templates[name] = Template{
		Name:         name,
		Version:      version,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
	}
	return nil
}

// BundleHash fingerprints the full current template set: SHA-256 over the
// canonical JSON of all templates, truncated to 16 hex characters. Any
// template change changes the hash.
func (r *Registry) BundleHash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]Template, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, r.templates[name])
	}
	payload, err := json.Marshal(ordered)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%x", sum)[:16]
}

// LoadCustomTemplates merges templates from a JSON file into the registry.
// The file holds a list of {name, system_prompt, user_prompt} objects;
// invalid entries are skipped with a warning.
func (r *Registry) LoadCustomTemplates(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read custom templates: %w", err)
	}
	var entries []Template
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("failed to parse custom templates: %w", err)
	}
	for _, entry := range entries {
		if entry.Name == "" || entry.UserPrompt == "" {
			logger.Warn("skipping invalid custom template", map[string]any{"name": entry.Name})
			continue
		}
		if err := r.Save(entry.Name, entry.SystemPrompt, entry.UserPrompt); err != nil {
			logger.Warn("skipping custom template", map[string]any{"name": entry.Name, "error": err.Error()})
		}
	}
	return nil
}

// render fills a template's {{slot}} placeholders and builds the two-message
// list. Every placeholder must be bound and non-empty; a missing slot is a
// hard error.
func (r *Registry) render(name string, slots map[string]string) ([]llm.Message, error) {
	t, err := r.Current(name)
	if err != nil {
		return nil, err
	}

	fill := func(text string) (string, error) {
		for slot, value := range slots {
			if value == "" {
				return "", fmt.Errorf("%w: template %q slot %q is empty", errkind.ErrValidation, name, slot)
			}
			text = strings.ReplaceAll(text, "{{"+slot+"}}", value)
		}
		if start := strings.Index(text, "{{"); start >= 0 {
			if end := strings.Index(text[start:], "}}"); end >= 0 {
				return "", fmt.Errorf("%w: template %q slot %q is unbound",
					errkind.ErrValidation, name, text[start+2:start+end])
			}
		}
		return text, nil
	}

	system, err := fill(t.SystemPrompt)
	if err != nil {
		return nil, err
	}
	user, err := fill(t.UserPrompt)
	if err != nil {
		return nil, err
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, nil
}
