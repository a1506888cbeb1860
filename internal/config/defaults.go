package config

const (
	defaultInputDir        = "~/cadet/cards"
	defaultStateDir        = "~/.local/share/cadet"
	defaultLogDir          = "~/.local/share/cadet/logs"
	defaultPendingName     = "unprocessed_folders.txt"
	defaultProcessedName   = "processed_folders.txt"
	defaultRecordsName     = "nurses_office.csv"
	defaultErrorsName      = "errors_office.csv"
	defaultIgnoreDir       = "trash"
	defaultImageExtension  = ".jpg"
	defaultPoolSize        = 200
	defaultCooldownSeconds = 30
	defaultCallBudget      = 1500
	defaultBatchSize       = 100
	defaultLedgerKey       = LedgerKeyFilename
	defaultLLMBaseURL      = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel        = "google/gemini-2.0-flash-001"
	defaultLLMReferer      = "https://github.com/manolodalbo/nurse-cadet"
	defaultLLMTitle        = "Nurse Cadet Card Extraction"
	defaultLLMTimeout      = 120
	defaultLLMMaxAttempts  = 1
	defaultScale           = 0.5
	defaultJPEGQuality     = 85
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultRetentionDays   = 30
	defaultNtfyTimeout     = 10
)

// Ledger keying modes.
const (
	LedgerKeyFilename = "filename"
	LedgerKeyUnitFile = "unit_file"
)

// Default returns a Config populated with repository defaults. State file
// paths are left empty so normalize can derive them from StateDir.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:       defaultInputDir,
			StateDir:       defaultStateDir,
			LogDir:         defaultLogDir,
			IgnoreDir:      defaultIgnoreDir,
			ImageExtension: defaultImageExtension,
		},
		Pipeline: Pipeline{
			PoolSize:        defaultPoolSize,
			CooldownSeconds: defaultCooldownSeconds,
			CallBudget:      defaultCallBudget,
			BatchSize:       defaultBatchSize,
			LedgerKey:       defaultLedgerKey,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeout,
			MaxAttempts:    defaultLLMMaxAttempts,
		},
		Extraction: Extraction{
			Scale:          defaultScale,
			JPEGQuality:    defaultJPEGQuality,
			ValidateSchema: true,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNtfyTimeout,
			RunCompleted:    true,
			BudgetExhausted: true,
			Errors:          true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
	}
}
