package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/manolodalbo/nurse-cadet/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a normalized config seeded with unique temp directories
// per test. Pacing is zeroed so tests never sleep; the call budget is
// unlimited unless an option sets one.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "cards")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Pipeline.PoolSize = 4
	cfgVal.Pipeline.CooldownSeconds = 0
	cfgVal.Pipeline.CallBudget = 0
	cfgVal.Pipeline.BatchSize = 2
	cfgVal.LLM.APIKey = "test"
	cfgVal.LLM.MaxAttempts = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Normalize(); err != nil {
		t.Fatalf("normalize test config: %v", err)
	}
	return builder.cfg
}

// WithCallBudget sets the per-run call ceiling.
func WithCallBudget(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.CallBudget = n
	}
}

// WithPoolSize sets the number of concurrent workers.
func WithPoolSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.PoolSize = n
	}
}

// WithBatchSize sets the records buffer size.
func WithBatchSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.BatchSize = n
	}
}

// WithLLMBaseURL points the recognition client at a test server.
func WithLLMBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithLedgerKey selects the ledger keying strategy.
func WithLedgerKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.LedgerKey = key
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
