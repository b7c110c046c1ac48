// Package config loads configuration from an optional YAML file layered
// under PROOF_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/proofstream/proofstream/internal/bench"
)

type Config struct {
	Ambient  ProviderConfig        `koanf:"ambient"`
	OpenAI   ProviderConfig        `koanf:"openai"`
	Request  RequestConfig         `koanf:"request"`
	Bench    BenchConfig           `koanf:"bench"`
	Receipts ReceiptConfig         `koanf:"receipts"`
	Review   ReviewConfig          `koanf:"review"`
	Server   ServerConfig          `koanf:"server"`
	Storage  StorageConfig         `koanf:"storage"`
	Rates    map[string]bench.Rate `koanf:"rates"`
}

type ProviderConfig struct {
	Enabled bool   `koanf:"enabled"`
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	// Endpoint is the full chat completions URL; it wins over BaseURL.
	Endpoint string `koanf:"endpoint"`
	// Models is a comma or newline separated list.
	Models string `koanf:"models"`
}

type RequestConfig struct {
	// Sampling parameters are pointers: unset means "do not send".
	Temperature *float64 `koanf:"temperature"`
	MaxTokens   *int     `koanf:"max_tokens"`
	TopP        *float64 `koanf:"top_p"`
	Prompt      string   `koanf:"prompt"`
	Verbose     bool     `koanf:"verbose"`
}

type BenchConfig struct {
	Warmup           int     `koanf:"warmup"`
	Runs             int     `koanf:"runs"`
	StallThresholdMS float64 `koanf:"stall_threshold_ms"`
	Output           string  `koanf:"output"`
}

type ReceiptConfig struct {
	Dir  string `koanf:"dir"`
	Save bool   `koanf:"save"`
}

type ReviewConfig struct {
	Queue string `koanf:"queue"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	// Path is the SQLite run-log location; empty disables the run log.
	Path string `koanf:"path"`
}

// Load reads the optional config file at path (skipped when absent), then
// overlays PROOF_-prefixed environment variables and applies defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		switch _, err := os.Stat(path); {
		case err == nil:
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// The config file is optional; absence falls through to env and
			// defaults.
		default:
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	// Double underscore separates path segments so single underscores
	// survive in leaf names: PROOF_AMBIENT__API_KEY -> ambient.api_key.
	if err := k.Load(env.Provider("PROOF_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PROOF_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"ambient.enabled":          true,
		"ambient.models":           "zai-org/GLM-4.6",
		"openai.models":            "gpt-4o-mini",
		"request.verbose":          true,
		"request.prompt":           "What is compound interest? Give a brief definition and a worked example.",
		"bench.warmup":             1,
		"bench.runs":               3,
		"bench.stall_threshold_ms": 2000.0,
		"bench.output":             "data/bench.jsonl",
		"receipts.dir":             "data/receipts",
		"review.queue":             "data/human_review.jsonl",
		"server.port":              8080,
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
	if !k.Exists("ambient.base_url") && !k.Exists("ambient.endpoint") {
		k.Set("ambient.base_url", "https://api.ambient.xyz/v1")
	}
	if !k.Exists("openai.base_url") && !k.Exists("openai.endpoint") {
		k.Set("openai.base_url", "https://api.openai.com/v1")
	}
}
