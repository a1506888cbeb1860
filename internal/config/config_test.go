package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/manolodalbo/nurse-cadet/internal/config"
)

func TestLoadDefaultConfigUsesEnvAPIKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("CADET_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "cadet")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.PendingFile != filepath.Join(wantState, "unprocessed_folders.txt") {
		t.Fatalf("unexpected pending file: %q", cfg.Paths.PendingFile)
	}
	if cfg.Paths.ProcessedFile != filepath.Join(wantState, "processed_folders.txt") {
		t.Fatalf("unexpected processed file: %q", cfg.Paths.ProcessedFile)
	}
	if cfg.Paths.RecordsFile != filepath.Join(wantState, "nurses_office.csv") {
		t.Fatalf("unexpected records file: %q", cfg.Paths.RecordsFile)
	}
	if cfg.Paths.ErrorsFile != filepath.Join(wantState, "errors_office.csv") {
		t.Fatalf("unexpected errors file: %q", cfg.Paths.ErrorsFile)
	}
	if cfg.Paths.InputDir != filepath.Join(tempHome, "cadet", "cards") {
		t.Fatalf("unexpected input dir: %q", cfg.Paths.InputDir)
	}
	if cfg.Paths.MetricsFile != "" {
		t.Fatalf("expected metrics file disabled by default, got %q", cfg.Paths.MetricsFile)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Pipeline.PoolSize != 200 || cfg.Pipeline.CooldownSeconds != 30 {
		t.Fatalf("unexpected pacing defaults: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.BatchSize != 100 {
		t.Fatalf("expected batch size 100, got %d", cfg.Pipeline.BatchSize)
	}
	if cfg.Pipeline.LedgerKey != config.LedgerKeyFilename {
		t.Fatalf("expected filename ledger key by default, got %q", cfg.Pipeline.LedgerKey)
	}
	if cfg.LLM.MaxAttempts != 1 {
		t.Fatalf("expected single attempt per call by default, got %d", cfg.LLM.MaxAttempts)
	}
	if cfg.Extraction.Scale != 0.5 {
		t.Fatalf("expected 0.5 scale, got %v", cfg.Extraction.Scale)
	}
	if cfg.Paths.ImageExtension != ".jpg" {
		t.Fatalf("unexpected image extension: %q", cfg.Paths.ImageExtension)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "cadet.toml")

	type payload struct {
		Paths struct {
			InputDir       string `toml:"input_dir"`
			StateDir       string `toml:"state_dir"`
			RecordsFile    string `toml:"records_file"`
			ImageExtension string `toml:"image_extension"`
		} `toml:"paths"`
		Pipeline struct {
			PoolSize        int    `toml:"pool_size"`
			CooldownSeconds int    `toml:"cooldown_seconds"`
			CallBudget      int    `toml:"call_budget"`
			LedgerKey       string `toml:"ledger_key"`
		} `toml:"pipeline"`
		LLM struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"llm"`
	}
	custom := payload{}
	custom.Paths.InputDir = filepath.Join(tempDir, "cards")
	custom.Paths.StateDir = filepath.Join(tempDir, "state")
	custom.Paths.RecordsFile = filepath.Join(tempDir, "out", "records.csv")
	custom.Paths.ImageExtension = "JPG"
	custom.Pipeline.PoolSize = 4
	custom.Pipeline.CooldownSeconds = 0
	custom.Pipeline.CallBudget = 25
	custom.Pipeline.LedgerKey = "Unit_File"
	custom.LLM.APIKey = "abc123"
	custom.LLM.BaseURL = "https://example.com/v1/chat/completions"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.LLM.APIKey != "abc123" {
		t.Fatalf("expected API key from file, got %q", cfg.LLM.APIKey)
	}
	if cfg.Pipeline.PoolSize != 4 || cfg.Pipeline.CallBudget != 25 {
		t.Fatalf("unexpected pipeline settings: %+v", cfg.Pipeline)
	}
	if cfg.Cooldown() != 0 {
		t.Fatalf("expected zero cooldown, got %s", cfg.Cooldown())
	}
	if cfg.Pipeline.LedgerKey != config.LedgerKeyUnitFile {
		t.Fatalf("expected ledger key normalized to unit_file, got %q", cfg.Pipeline.LedgerKey)
	}
	if cfg.Paths.ImageExtension != ".jpg" {
		t.Fatalf("expected extension normalized to .jpg, got %q", cfg.Paths.ImageExtension)
	}
	if cfg.Paths.RecordsFile != filepath.Join(tempDir, "out", "records.csv") {
		t.Fatalf("expected explicit records file kept, got %q", cfg.Paths.RecordsFile)
	}
	if cfg.Paths.ErrorsFile != filepath.Join(tempDir, "state", "errors_office.csv") {
		t.Fatalf("expected errors file derived from state dir, got %q", cfg.Paths.ErrorsFile)
	}
	if cfg.LockPath() != filepath.Join(tempDir, "state", "cadet.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "out")); err != nil {
		t.Fatalf("expected records directory to be created: %v", err)
	}
	if _, err := os.Stat(custom.Paths.InputDir); !os.IsNotExist(err) {
		t.Fatalf("input dir must not be created, stat err=%v", err)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestFileAPIKeyWinsOverEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cadet.toml")
	if err := os.WriteFile(configPath, []byte("[llm]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CADET_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("expected file key to win, got %q", cfg.LLM.APIKey)
	}
}

func TestRequireAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	err := cfg.RequireAPIKey()
	if err == nil {
		t.Fatal("expected error without api key")
	}
	if !strings.Contains(err.Error(), "CADET_API_KEY") {
		t.Fatalf("expected hint about env var, got %v", err)
	}
	cfg.LLM.APIKey = "k"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "call_budget") {
		t.Fatalf("sample config missing call_budget: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Pipeline.PoolSize != 200 {
		t.Fatalf("expected sample pool size 200, got %d", cfg.Pipeline.PoolSize)
	}
	if !strings.Contains(cfg.Paths.StateDir, "cadet") {
		t.Fatalf("expected state dir to contain cadet, got %q", cfg.Paths.StateDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero pool", func(c *config.Config) { c.Pipeline.PoolSize = 0 }},
		{"zero batch", func(c *config.Config) { c.Pipeline.BatchSize = 0 }},
		{"negative cooldown", func(c *config.Config) { c.Pipeline.CooldownSeconds = -1 }},
		{"negative budget", func(c *config.Config) { c.Pipeline.CallBudget = -5 }},
		{"unknown ledger key", func(c *config.Config) { c.Pipeline.LedgerKey = "path" }},
		{"relative base url", func(c *config.Config) { c.LLM.BaseURL = "/v1/chat" }},
		{"scale above one", func(c *config.Config) { c.Extraction.Scale = 1.5 }},
		{"quality out of range", func(c *config.Config) { c.Extraction.JPEGQuality = 101 }},
		{"ignore dir path", func(c *config.Config) { c.Paths.IgnoreDir = "a/b" }},
		{"shared state files", func(c *config.Config) {
			c.Paths.RecordsFile = "/tmp/same.csv"
			c.Paths.ErrorsFile = "/tmp/same.csv"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	cfg.Pipeline.CallBudget = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero budget means unlimited, got %v", err)
	}
}
