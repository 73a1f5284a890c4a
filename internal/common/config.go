package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	LLM         LLMConfig       `toml:"llm"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	Llama       LlamaConfig     `toml:"llama"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Fetch       FetchConfig     `toml:"fetch"`
	Market      MarketConfig    `toml:"market"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level   string   `toml:"level"`   // "debug", "info", "warn", "error"
	Format  string   `toml:"format"`  // "json" or "text"
	Output  []string `toml:"output"`  // "stdout", "file"
	Journal string   `toml:"journal"` // Run event journal file, empty disables
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderLlama uses a locally hosted llama-server
	LLMProviderLlama LLMProvider = "llama"
	// LLMProviderMock uses the deterministic in-process backend
	LLMProviderMock LLMProvider = "mock"
)

func (p LLMProvider) String() string {
	return string(p)
}

// LLMConfig selects which backends serve completions and embeddings.
// The choice is made at construction time; nothing switches at runtime.
type LLMConfig struct {
	Provider          LLMProvider `toml:"provider"`           // "gemini", "claude", "llama" or "mock" (default: "gemini")
	EmbeddingProvider LLMProvider `toml:"embedding_provider"` // "gemini", "llama" or "mock" (default: follows Provider where possible)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`         // Google Gemini API key
	Model          string  `toml:"model"`           // Model for completions (default: "gemini-3-flash-preview")
	EmbeddingModel string  `toml:"embedding_model"` // Model for embeddings (default: "gemini-embedding-001")
	Timeout        string  `toml:"timeout"`         // Operation timeout as duration string (default: "2m")
	RateLimit      string  `toml:"rate_limit"`      // Minimum time between requests (default: "4s" for 15 RPM)
	Temperature    float32 `toml:"temperature"`     // Completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for completions (default: "claude-3-5-haiku-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum time between requests (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// LlamaConfig contains locally hosted llama-server configuration
type LlamaConfig struct {
	ChatURL  string `toml:"chat_url"`  // Chat completion endpoint (default: "http://127.0.0.1:8087")
	EmbedURL string `toml:"embed_url"` // Embedding endpoint (default: "http://127.0.0.1:8086")
	Model    string `toml:"model"`     // Model name reported to the server
	Timeout  string `toml:"timeout"`   // HTTP timeout as duration string (default: "2m")
}

// PipelineConfig tunes the forecast pipeline.
type PipelineConfig struct {
	RunBudget           string  `toml:"run_budget"`           // Wall-clock budget per run (default: "5m")
	MaxRetries          int     `toml:"max_retries"`          // Transport attempts per logical model call (default: 3)
	RetryBaseDelay      string  `toml:"retry_base_delay"`     // Linear backoff base (default: "5s", wait = base * attempt)
	SynthesisRecovery   int     `toml:"synthesis_recovery"`   // Extra corrective synthesis prompts (default: 2)
	SimilarityThreshold float64 `toml:"similarity_threshold"` // Theme clustering threshold (default: 0.60)
	ChunkWords          int     `toml:"chunk_words"`          // Transcript chunk size in words (default: 300)
	ChunkOverlap        float64 `toml:"chunk_overlap"`        // Chunk overlap fraction (default: 0.15)
	MaxParallelExtracts int     `toml:"max_parallel_extracts"` // Concurrent per-document extractions (default: 4)
}

// FetchConfig tunes the document fetch service.
type FetchConfig struct {
	CacheDir       string     `toml:"cache_dir"`        // On-disk document cache (default: "./data/cache")
	RequestTimeout string     `toml:"request_timeout"`  // Per-request timeout (default: "30s")
	MaxAttempts    int        `toml:"max_attempts"`     // Fetch attempts before cache fallback (default: 3)
	RetryDelay     string     `toml:"retry_delay"`      // Delay between fetch attempts (default: "2s")
	RateLimit      string     `toml:"rate_limit"`       // Minimum time between requests per host (default: "1s")
	UserAgent      string     `toml:"user_agent"`       // HTTP user agent
	EnableBrowser  bool       `toml:"enable_browser"`   // Render JS-heavy pages with chromedp when plain HTTP yields nothing
	BrowserWait    string     `toml:"browser_wait"`     // Wait for JS rendering (default: "3s")
	IRPages        map[string]string `toml:"ir_pages"`  // Ticker to investor-relations page, for the company-ir source
	IMAP           IMAPConfig `toml:"imap"`
}

// MarketConfig configures the optional EODHD market data provider.
// Runs that set include_market use it for a price and news snapshot.
type MarketConfig struct {
	Enabled   bool   `toml:"enabled"`
	APIKey    string `toml:"api_key"`    // EODHD API key
	BaseURL   string `toml:"base_url"`   // Override for tests, empty uses the public API
	Exchange  string `toml:"exchange"`   // Exchange suffix for symbols (default: "NSE")
	RateLimit int    `toml:"rate_limit"` // Requests per second (default: 10)
}

// IMAPConfig configures the announcement mailbox source.
type IMAPConfig struct {
	Enabled  bool   `toml:"enabled"`
	Server   string `toml:"server"`  // host:port, TLS assumed
	Username string `toml:"username"`
	Password string `toml:"password"`
	Folder   string `toml:"folder"` // default: "INBOX"
	Limit    int    `toml:"limit"`  // max messages scanned per fetch (default: 20)
}

// SchedulerConfig configures background maintenance and refreshes.
type SchedulerConfig struct {
	Enabled       bool           `toml:"enabled"`
	CacheSweep    string         `toml:"cache_sweep"`     // Cron schedule for cache sweeps (default: "0 0 3 * * *")
	CacheMaxAge   string         `toml:"cache_max_age"`   // Cached documents older than this are swept (default: "720h")
	Refreshes     []RefreshEntry `toml:"refreshes"`       // Scheduled forecast refreshes
}

// RefreshEntry describes one scheduled forecast refresh.
type RefreshEntry struct {
	Ticker        string   `toml:"ticker"`
	Quarters      int      `toml:"quarters"`
	Sources       []string `toml:"sources"`
	IncludeMarket bool     `toml:"include_market"`
	Schedule      string   `toml:"schedule"` // Cron schedule format
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in augur.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Output:  []string{"stdout", "file"},
			Journal: "./data/logs/run-events.jsonl",
		},
		LLM: LLMConfig{
			Provider:          LLMProviderGemini,
			EmbeddingProvider: LLMProviderGemini,
		},
		Gemini: GeminiConfig{
			APIKey:         "", // User must provide API key (no fallback)
			Model:          "gemini-3-flash-preview",
			EmbeddingModel: "gemini-embedding-001",
			Timeout:        "2m",
			RateLimit:      "4s", // Default to 4s (15 RPM) for free tier
			Temperature:    0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-3-5-haiku-20241022",
			MaxTokens:   8192,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		Llama: LlamaConfig{
			ChatURL:  "http://127.0.0.1:8087",
			EmbedURL: "http://127.0.0.1:8086",
			Model:    "local",
			Timeout:  "2m",
		},
		Pipeline: PipelineConfig{
			RunBudget:           "5m",
			MaxRetries:          3,
			RetryBaseDelay:      "5s",
			SynthesisRecovery:   2,
			SimilarityThreshold: 0.60,
			ChunkWords:          300,
			ChunkOverlap:        0.15,
			MaxParallelExtracts: 4,
		},
		Fetch: FetchConfig{
			CacheDir:       "./data/cache",
			RequestTimeout: "30s",
			MaxAttempts:    3,
			RetryDelay:     "2s",
			RateLimit:      "1s",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			EnableBrowser:  false,
			BrowserWait:    "3s",
			IRPages: map[string]string{
				"TCS": "https://www.tcs.com/investor-relations/financial-statements",
			},
			IMAP: IMAPConfig{
				Folder: "INBOX",
				Limit:  20,
			},
		},
		Market: MarketConfig{
			Enabled:   false,
			Exchange:  "NSE",
			RateLimit: 10,
		},
		Scheduler: SchedulerConfig{
			Enabled:     false,
			CacheSweep:  "0 0 3 * * *", // 3am daily
			CacheMaxAge: "720h",        // 30 days
		},
	}
}

// LoadFromFile loads configuration from a single file.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files; CLI flags are applied
// last via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AUGUR_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("AUGUR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("AUGUR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("AUGUR_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("AUGUR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("AUGUR_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if journal := os.Getenv("AUGUR_LOG_JOURNAL"); journal != "" {
		config.Logging.Journal = journal
	}
	if output := os.Getenv("AUGUR_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// LLM configuration
	if provider := os.Getenv("AUGUR_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(provider)
	}
	if provider := os.Getenv("AUGUR_LLM_EMBEDDING_PROVIDER"); provider != "" {
		config.LLM.EmbeddingProvider = LLMProvider(provider)
	}
	if key := os.Getenv("AUGUR_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("AUGUR_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("AUGUR_EODHD_API_KEY"); key != "" {
		config.Market.APIKey = key
	}
	if url := os.Getenv("AUGUR_LLAMA_CHAT_URL"); url != "" {
		config.Llama.ChatURL = url
	}
	if url := os.Getenv("AUGUR_LLAMA_EMBED_URL"); url != "" {
		config.Llama.EmbedURL = url
	}

	// Pipeline configuration
	if budget := os.Getenv("AUGUR_RUN_BUDGET"); budget != "" {
		if _, err := time.ParseDuration(budget); err == nil {
			config.Pipeline.RunBudget = budget
		}
	}

	// Fetch configuration
	if cacheDir := os.Getenv("AUGUR_FETCH_CACHE_DIR"); cacheDir != "" {
		config.Fetch.CacheDir = cacheDir
	}
}

// ApplyFlagOverrides applies command-line flag overrides. Flags have
// the highest priority.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable
// priority: environment variables -> config fallback -> error.
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key": {"AUGUR_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"claude_api_key": {"AUGUR_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"eodhd_api_key":  {"AUGUR_EODHD_API_KEY", "EODHD_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// ParseDurationOr parses a duration string, returning the fallback on
// empty or invalid input. Config durations are stored as strings so the
// TOML stays readable.
func ParseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Budget returns the parsed wall-clock budget for one run.
func (c *PipelineConfig) Budget() time.Duration {
	return ParseDurationOr(c.RunBudget, 5*time.Minute)
}

// BaseDelay returns the parsed linear backoff base delay.
func (c *PipelineConfig) BaseDelay() time.Duration {
	return ParseDurationOr(c.RetryBaseDelay, 5*time.Second)
}

// ValidateSchedule validates a cron schedule string using the same
// parser the scheduler runs with (seconds field included).
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("schedule cannot be empty")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
