package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	return nil
}

// RequireAPIKey reports a helpful error when no recognition service key is
// configured. Commands that do not call the service skip this check.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/cadet/config.toml"
	}
	return fmt.Errorf("llm.api_key is required. Set CADET_API_KEY env var or edit %s (create with 'cadet config init')", defaultPath)
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		return errors.New("paths.input_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.ContainsAny(c.Paths.IgnoreDir, `/\`) {
		return errors.New("paths.ignore_dir must be a directory name, not a path")
	}
	seen := map[string]string{}
	for key, value := range map[string]string{
		"paths.pending_file":   c.Paths.PendingFile,
		"paths.processed_file": c.Paths.ProcessedFile,
		"paths.records_file":   c.Paths.RecordsFile,
		"paths.errors_file":    c.Paths.ErrorsFile,
	} {
		if value == "" {
			continue
		}
		if other, ok := seen[value]; ok {
			return fmt.Errorf("%s and %s must point at different files", other, key)
		}
		seen[value] = key
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"pipeline.pool_size":  c.Pipeline.PoolSize,
		"pipeline.batch_size": c.Pipeline.BatchSize,
	}); err != nil {
		return err
	}
	if c.Pipeline.CooldownSeconds < 0 {
		return errors.New("pipeline.cooldown_seconds must not be negative")
	}
	if c.Pipeline.RequestsPerMinute < 0 {
		return errors.New("pipeline.requests_per_minute must not be negative (0 disables the shared limiter)")
	}
	if c.Pipeline.CallBudget < 0 {
		return errors.New("pipeline.call_budget must not be negative (0 disables the ceiling)")
	}
	switch c.Pipeline.LedgerKey {
	case LedgerKeyFilename, LedgerKeyUnitFile:
	default:
		return fmt.Errorf("pipeline.ledger_key must be %q or %q", LedgerKeyFilename, LedgerKeyUnitFile)
	}
	return nil
}

func (c *Config) validateLLM() error {
	parsed, err := url.Parse(c.LLM.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("llm.base_url must be an absolute URL, got %q", c.LLM.BaseURL)
	}
	if c.LLM.MaxAttempts > 10 {
		return errors.New("llm.max_attempts must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.Scale <= 0 || c.Extraction.Scale > 1 {
		return errors.New("extraction.scale must be greater than 0 and at most 1")
	}
	if c.Extraction.JPEGQuality < 1 || c.Extraction.JPEGQuality > 100 {
		return errors.New("extraction.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
