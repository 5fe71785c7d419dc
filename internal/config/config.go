package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverBadger = "badger"
)

// Access store kinds.
const (
	AccessStoreMemory   = "memory"
	AccessStoreDatabase = "database"
)

// Config holds the scaledex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Search    SearchConfig    `yaml:"search"`
	Access    AccessConfig    `yaml:"access"`
	Usage     UsageConfig     `yaml:"usage"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds caller authentication settings.
type AuthConfig struct {
	APIKeys    []string `yaml:"api_keys"`
	// UserHeader names a header set by a trusted proxy. Empty disables it;
	// when set, the proxy must strip it from client requests.
	UserHeader string `yaml:"user_header"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds storage backend settings.
type DatabaseConfig struct {
	Driver           string       `yaml:"driver"` // redis, badger (default: redis)
	Addrs            []string     `yaml:"addrs"`
	Password         string       `yaml:"password"`
	DB               int          `yaml:"db"`
	ReadinessTimeout int          `yaml:"readiness_timeout_sec"`
	Badger           BadgerConfig `yaml:"badger"`
	CatalogPath      string       `yaml:"catalog_path"` // optional JSON catalog imported on startup
}

// BadgerConfig holds embedded store settings.
type BadgerConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// EmbeddingConfig holds query embedding settings. An empty APIKey disables embeddings.
type EmbeddingConfig struct {
	APIKey     string      `yaml:"api_key"`
	BaseURL    string      `yaml:"base_url"`
	Model      string      `yaml:"model"`
	Dimensions int         `yaml:"dimensions"`
	TimeoutMs  int         `yaml:"timeout_ms"`
	Cache      CacheConfig `yaml:"cache"`

	// QueryInstruction is prepended to query text for asymmetric embedding models.
	QueryInstruction string `yaml:"query_instruction"`
}

// Enabled reports whether a provider is configured.
func (e EmbeddingConfig) Enabled() bool { return e.APIKey != "" }

// Timeout returns the per-query embedding budget.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"`
}

// WeightsConfig is a keyword/semantic weight pair.
type WeightsConfig struct {
	Keyword  float64 `yaml:"keyword"`
	Semantic float64 `yaml:"semantic"`
}

// BoostsConfig holds the deterministic fusion boosts.
type BoostsConfig struct {
	UsageFactor     float64 `yaml:"usage_factor"`
	UsageCapText    float64 `yaml:"usage_cap_text"`
	UsageCapBlended float64 `yaml:"usage_cap_blended"`
	StatusBoost     float64 `yaml:"status_boost"`
	VectorScale     float64 `yaml:"vector_scale"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	MaxExpansionTerms int                      `yaml:"max_expansion_terms"`
	ScoringWorkers    int                      `yaml:"scoring_workers"`
	ChunkSize         int                      `yaml:"chunk_size"`
	ThesaurusPath     string                   `yaml:"thesaurus_path"` // empty: built-in thesaurus
	SnapshotTTLSec    int                      `yaml:"snapshot_ttl_sec"`
	Weights           map[string]WeightsConfig `yaml:"weights"` // per mode, overrides defaults
	Boosts            *BoostsConfig            `yaml:"boosts"`  // nil: defaults
}

// AccessConfig holds anonymous admission settings.
type AccessConfig struct {
	Quota            int64  `yaml:"quota"`
	WindowHours      int    `yaml:"window_hours"`
	AnonymousLimit   int    `yaml:"anonymous_limit"`
	Store            string `yaml:"store"` // memory, database (default: memory)
	EvictIntervalSec int    `yaml:"evict_interval_sec"`
}

// UsageConfig holds usage recording settings.
type UsageConfig struct {
	Enabled      bool `yaml:"enabled"`
	Workers      int  `yaml:"workers"`
	GraceMs      int  `yaml:"grace_ms"`
	DailyTTLDays int  `yaml:"daily_ttl_days"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

var modes = map[string]bool{"keyword": true, "semantic": true, "hybrid": true, "vector": true, "advanced": true}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 800
	}
	if c.Embedding.Cache.TTLHours <= 0 {
		c.Embedding.Cache.TTLHours = 24 * 7
	}
	if c.Search.MaxExpansionTerms <= 0 {
		c.Search.MaxExpansionTerms = 5
	}
	if c.Search.ChunkSize <= 0 {
		c.Search.ChunkSize = 64
	}
	if c.Search.SnapshotTTLSec <= 0 {
		c.Search.SnapshotTTLSec = 30
	}
	if c.Access.Quota <= 0 {
		c.Access.Quota = 3
	}
	if c.Access.WindowHours <= 0 {
		c.Access.WindowHours = 24
	}
	if c.Access.AnonymousLimit <= 0 {
		c.Access.AnonymousLimit = 5
	}
	if c.Access.Store == "" {
		c.Access.Store = AccessStoreMemory
	}
	if c.Access.EvictIntervalSec <= 0 {
		c.Access.EvictIntervalSec = 60
	}
	if c.Usage.Workers <= 0 {
		c.Usage.Workers = 4
	}
	if c.Usage.GraceMs <= 0 {
		c.Usage.GraceMs = 2000
	}
	if c.Usage.DailyTTLDays <= 0 {
		c.Usage.DailyTTLDays = 90
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "scaledex"
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", DriverRedis)
		}
	case DriverBadger:
		if c.Database.Badger.Path == "" && !c.Database.Badger.InMemory {
			return fmt.Errorf("database.badger.path is required unless in_memory is set")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverBadger, c.Database.Driver)
	}
	if c.Embedding.Enabled() && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required when embedding.api_key is set")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must be >= 0, got %d", c.Embedding.Dimensions)
	}
	for name, w := range c.Search.Weights {
		if !modes[name] {
			return fmt.Errorf("search.weights.%s: unknown mode", name)
		}
		if w.Keyword < 0 || w.Keyword > 1 || w.Semantic < 0 || w.Semantic > 1 {
			return fmt.Errorf("search.weights.%s must be within [0,1], got %v/%v", name, w.Keyword, w.Semantic)
		}
	}
	if c.Search.ScoringWorkers < 0 {
		return fmt.Errorf("search.scoring_workers must be >= 0, got %d", c.Search.ScoringWorkers)
	}
	switch c.Access.Store {
	case AccessStoreMemory, AccessStoreDatabase:
	default:
		return fmt.Errorf(
			"access.store must be %q or %q, got %q",
			AccessStoreMemory, AccessStoreDatabase, c.Access.Store,
		)
	}
	if c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within (0,1], got %v", c.Tracing.SampleRatio)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
