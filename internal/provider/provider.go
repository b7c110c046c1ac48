// Package provider resolves per-provider settings (endpoint, credentials,
// model list) from configuration.
package provider

import (
	"fmt"
	"strings"

	"github.com/proofstream/proofstream/internal/config"
)

// Settings is a fully resolved provider: ready to use, or carrying a
// validation error explaining why it cannot be.
type Settings struct {
	Name     string
	Enabled  bool
	APIKey   string
	Endpoint string
	Models   []string
}

// FromConfig resolves a provider section into usable settings.
func FromConfig(name string, cfg config.ProviderConfig) Settings {
	return Settings{
		Name:     name,
		Enabled:  cfg.Enabled,
		APIKey:   cfg.APIKey,
		Endpoint: ChatCompletionsURL(cfg.Endpoint, cfg.BaseURL),
		Models:   ParseModels(cfg.Models),
	}
}

// Validate reports why the provider cannot be used, or nil. Disabled
// providers are always valid; callers skip them before validating.
func (s Settings) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.APIKey == "" {
		return fmt.Errorf("%s: API key not set", s.Name)
	}
	if len(s.Models) == 0 {
		return fmt.Errorf("%s: no models configured", s.Name)
	}
	return nil
}

// ChatCompletionsURL derives the chat completions endpoint. An explicit
// endpoint wins; otherwise the base URL gets the standard path appended
// unless it already ends with it.
func ChatCompletionsURL(endpoint, baseURL string) string {
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		return endpoint
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return ""
	}
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

// ParseModels splits a comma or newline separated model list, trimming
// whitespace and dropping duplicates while preserving order.
func ParseModels(raw string) []string {
	seen := make(map[string]struct{})
	var models []string
	for _, entry := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		models = append(models, entry)
	}
	return models
}
