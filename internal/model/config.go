package model

import "time"

// Config holds the full runtime configuration
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Cache  CacheConfig  `yaml:"cache"`
	Oracle OracleConfig `yaml:"oracle"`
	Engine EngineConfig `yaml:"engine"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Output OutputConfig `yaml:"output"`
}

// StoreConfig configures the SQLite-backed opinion/citation store
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite database path
}

// CacheConfig configures response and verdict caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`        // Disk cache directory
	MemoryTTL time.Duration `yaml:"memory_ttl"` // In-memory entry lifetime
	DiskTTL   time.Duration `yaml:"disk_ttl"`   // On-disk entry lifetime
}

// OracleConfig configures the per-node quality oracle
type OracleConfig struct {
	Provider  string        `yaml:"provider"` // rules, openai, anthropic, ollama
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key,omitempty"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
	Version   int           `yaml:"version"` // Analysis version; bumping it supersedes cached verdicts
}

// EngineConfig configures the recursive citation risk engine
type EngineConfig struct {
	Workers              int           `yaml:"workers"`                 // Concurrent assessments within a level
	MaxCitationsPerLevel int           `yaml:"max_citations_per_level"` // Hard cap per level, first-N deterministic
	HighRiskThreshold    float64       `yaml:"high_risk_threshold"`     // Risk scores at or above are high risk
	ReEvalThreshold      float64       `yaml:"re_eval_threshold"`       // Deep citations at or above trigger parent annotation
	MaxFailureFraction   float64       `yaml:"max_failure_fraction"`    // Level failure rate that fails the traversal
	NodeTimeout          time.Duration `yaml:"node_timeout"`            // Per-node oracle deadline
}

// FetchConfig configures the remote opinion API client
type FetchConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIToken          string        `yaml:"api_token,omitempty"`
	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
}

// OutputConfig controls CLI output behavior
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "shepard.db",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".shepard-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Oracle: OracleConfig{
			Provider:  "rules",
			Timeout:   30 * time.Second,
			MaxTokens: 1000,
			Version:   1,
		},
		Engine: EngineConfig{
			Workers:              4,
			MaxCitationsPerLevel: 100,
			HighRiskThreshold:    60,
			ReEvalThreshold:      70,
			MaxFailureFraction:   0.5,
			NodeTimeout:          30 * time.Second,
		},
		Fetch: FetchConfig{
			BaseURL:           "https://www.courtlistener.com/api/rest/v4",
			UserAgent:         "Shepard/0.1 (+https://github.com/mlawson/shepard)",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 2,
			Burst:             5,
			MaxBodyBytes:      2_000_000,
		},
		Output: OutputConfig{
			Verbose: false,
		},
	}
}
