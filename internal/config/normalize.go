package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeLLM()
	c.normalizeExtraction()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(strings.TrimSpace(c.Paths.InputDir)); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	stateFiles := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.pending_file", &c.Paths.PendingFile, defaultPendingName},
		{"paths.processed_file", &c.Paths.ProcessedFile, defaultProcessedName},
		{"paths.records_file", &c.Paths.RecordsFile, defaultRecordsName},
		{"paths.errors_file", &c.Paths.ErrorsFile, defaultErrorsName},
	}
	for _, file := range stateFiles {
		value := strings.TrimSpace(*file.value)
		if value == "" {
			value = filepath.Join(c.Paths.StateDir, file.fallback)
		}
		if *file.value, err = expandPath(value); err != nil {
			return fmt.Errorf("%s: %w", file.key, err)
		}
	}
	if metrics := strings.TrimSpace(c.Paths.MetricsFile); metrics != "" {
		if c.Paths.MetricsFile, err = expandPath(metrics); err != nil {
			return fmt.Errorf("paths.metrics_file: %w", err)
		}
	} else {
		c.Paths.MetricsFile = ""
	}

	c.Paths.IgnoreDir = strings.TrimSpace(c.Paths.IgnoreDir)
	ext := strings.ToLower(strings.TrimSpace(c.Paths.ImageExtension))
	if ext == "" {
		ext = defaultImageExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Paths.ImageExtension = ext
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.PoolSize == 0 {
		c.Pipeline.PoolSize = defaultPoolSize
	}
	if c.Pipeline.BatchSize == 0 {
		c.Pipeline.BatchSize = defaultBatchSize
	}
	c.Pipeline.LedgerKey = strings.ToLower(strings.TrimSpace(c.Pipeline.LedgerKey))
	if c.Pipeline.LedgerKey == "" {
		c.Pipeline.LedgerKey = defaultLedgerKey
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = defaultLLMMaxAttempts
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("CADET_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeExtraction() {
	if c.Extraction.Scale == 0 {
		c.Extraction.Scale = defaultScale
	}
	if c.Extraction.JPEGQuality == 0 {
		c.Extraction.JPEGQuality = defaultJPEGQuality
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
