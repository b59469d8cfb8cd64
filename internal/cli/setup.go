package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/mlawson/shepard/internal/cache"
	"github.com/mlawson/shepard/internal/engine"
	"github.com/mlawson/shepard/internal/fetch"
	"github.com/mlawson/shepard/internal/model"
	"github.com/mlawson/shepard/internal/oracle"
	"github.com/mlawson/shepard/internal/store"
)

// loadConfig builds runtime configuration: defaults, overridden by the
// config file and SHEPARD_* environment (via viper), then flags.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()

	if v := viper.GetString("store.path"); v != "" {
		cfg.Store.Path = v
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetString("oracle.provider"); v != "" {
		cfg.Oracle.Provider = v
	}
	if v := viper.GetString("oracle.model"); v != "" {
		cfg.Oracle.Model = v
	}
	if v := viper.GetString("oracle.base_url"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if v := viper.GetInt("oracle.version"); v > 0 {
		cfg.Oracle.Version = v
	}
	if v := viper.GetInt("engine.workers"); v > 0 {
		cfg.Engine.Workers = v
	}
	if v := viper.GetInt("engine.max_citations_per_level"); v > 0 {
		cfg.Engine.MaxCitationsPerLevel = v
	}
	if v := viper.GetString("fetch.base_url"); v != "" {
		cfg.Fetch.BaseURL = v
	}
	if v := viper.GetString("fetch.api_token"); v != "" {
		cfg.Fetch.APIToken = v
	}
	if v := os.Getenv("COURTLISTENER_API_TOKEN"); v != "" {
		cfg.Fetch.APIToken = v
	}

	cfg.Output.Verbose = verbose
	return cfg
}

// resolveAPIKey pulls the oracle API key from the environment for
// providers that need one
func resolveAPIKey(cfg *model.OracleConfig) error {
	switch cfg.Provider {
	case "openai":
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.BaseURL = baseURL
		}
	}
	return nil
}

// app is the assembled runtime: store, caches, oracle, and analyzer
type app struct {
	cfg      *model.Config
	db       *store.SQLite
	analyzer *engine.Analyzer
}

// newApp wires the full analysis stack from configuration
func newApp(cfg *model.Config, remote bool) (*app, error) {
	if err := resolveAPIKey(&cfg.Oracle); err != nil {
		return nil, err
	}

	db, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var byteCache cache.Cache
	if cfg.Cache.Enabled {
		byteCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	base, err := oracle.New(cfg.Oracle)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create oracle: %w", err)
	}
	cached := oracle.NewCached(base, db, byteCache, cfg.Oracle.Version)

	var graph store.GraphStore = db
	if remote {
		fetcher := fetch.NewFetcher(cfg.Fetch, byteCache)
		graph = fetch.NewEnsuringGraph(db, fetcher)
	}

	assessor := oracle.NewNodeAssessor(graph, cached)
	analyzer := engine.NewAnalyzer(graph, db, assessor, cfg.Engine)
	analyzer.SetVerbose(cfg.Output.Verbose)

	return &app{cfg: cfg, db: db, analyzer: analyzer}, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
