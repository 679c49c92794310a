package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source kinds understood by internal/sources.
const (
	SourceCSV  = "csv"
	SourceXLSX = "xlsx"
	SourceSQL  = "sql"
)

// Config is the runtime configuration of the server.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Cache struct {
		TTL          time.Duration `yaml:"ttl"`
		CleanupEvery time.Duration `yaml:"cleanup_every"`
		RedisAddr    string        `yaml:"redis_addr"`
		RedisDB      int           `yaml:"redis_db"`
	} `yaml:"cache"`

	Limits struct {
		MaxConcurrentRequests int           `yaml:"max_concurrent_requests"`
		MaxConcurrentLoads    int           `yaml:"max_concurrent_loads"`
		OperationTimeout      time.Duration `yaml:"operation_timeout"`
		FetchTimeout          time.Duration `yaml:"fetch_timeout"`
	} `yaml:"limits"`

	HTTP struct {
		Addr       string `yaml:"addr"`
		CORSOrigin string `yaml:"cors_origin"`
		AdminKey   string `yaml:"admin_key"`
	} `yaml:"http"`

	AllowedDirs []string `yaml:"allowed_dirs"`
	EnableAdmin bool     `yaml:"enable_admin"`
	RefreshCron string   `yaml:"refresh_cron"`

	Sources     []SourceConfig `yaml:"sources"`
	Reports     []ReportSpec   `yaml:"reports"`
	ReasonRules []ReasonRule   `yaml:"reason_rules"`
	Radar       []string       `yaml:"radar"`
}

// SourceConfig declares one raw dataset. Credentials stay opaque inside URL/DSN.
type SourceConfig struct {
	ID      string                    `yaml:"id"`
	Kind    string                    `yaml:"kind"`
	Path    string                    `yaml:"path"`
	URL     string                    `yaml:"url"`
	SheetID string                    `yaml:"sheet_id"`
	Tab     string                    `yaml:"tab"`
	Sheet   string                    `yaml:"sheet"`
	Driver  string                    `yaml:"driver"`
	DSN     string                    `yaml:"dsn"`
	Query   string                    `yaml:"query"`
	Columns map[string]ColumnOverride `yaml:"columns"`
}

// ColumnOverride replaces the aliases and/or fallback position of a logical field.
type ColumnOverride struct {
	Names    []string `yaml:"names"`
	Position *int     `yaml:"position"`
}

// ReportSpec is the YAML form of a declarative report.
type ReportSpec struct {
	Name                  string   `yaml:"name"`
	Title                 string   `yaml:"title"`
	Sections              []string `yaml:"sections"`
	DateMode              string   `yaml:"date_mode"`
	AgentScope            string   `yaml:"agent_scope"`
	GeneratedExcludesPaid bool     `yaml:"generated_excludes_paid"`
	TopN                  int      `yaml:"top_n"`
	RequireAgent          bool     `yaml:"require_agent"`
	Window                string   `yaml:"window"`
}

// ReasonRule maps a rejection-reason substring onto a category.
type ReasonRule struct {
	Contains string `yaml:"contains"`
	Category string `yaml:"category"`
}

// Load reads the YAML file at path (a missing file is not an error), loads
// .env when present, applies COMMANDCENTER_* overrides and fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load(".env")

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := env("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := env("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sCACHE_TTL: %w", EnvPrefix, err)
		}
		c.Cache.TTL = d
	}
	if v := env("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := env("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sREDIS_DB: %w", EnvPrefix, err)
		}
		c.Cache.RedisDB = n
	}
	if v := env("MAX_CONCURRENT_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sMAX_CONCURRENT_REQUESTS: %w", EnvPrefix, err)
		}
		c.Limits.MaxConcurrentRequests = n
	}
	if v := env("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := env("CORS_ORIGIN"); v != "" {
		c.HTTP.CORSOrigin = v
	}
	if v := env("ADMIN_KEY"); v != "" {
		c.HTTP.AdminKey = v
	}
	if v := env("ALLOWED_DIRS"); v != "" {
		c.AllowedDirs = filepath.SplitList(v)
	}
	if v := env("ENABLE_ADMIN"); v != "" {
		c.EnableAdmin = truthy(v)
	}
	if v := env("REFRESH_CRON"); v != "" {
		c.RefreshCron = v
	}
	// A bare sheet id is enough to run against the shared Google export.
	if v := env("SHEET_ID"); v != "" && len(c.Sources) == 0 {
		c.Sources = append(c.Sources, SourceConfig{ID: "topa", Kind: SourceCSV, SheetID: v, Tab: env("SHEET_TAB")})
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultSnapshotTTL
	}
	if c.Cache.CleanupEvery <= 0 {
		c.Cache.CleanupEvery = DefaultSnapshotCleanupPeriod
	}
	if c.Limits.MaxConcurrentRequests <= 0 {
		c.Limits.MaxConcurrentRequests = DefaultMaxConcurrentRequests
	}
	if c.Limits.MaxConcurrentLoads <= 0 {
		c.Limits.MaxConcurrentLoads = DefaultMaxConcurrentLoads
	}
	if c.Limits.OperationTimeout <= 0 {
		c.Limits.OperationTimeout = DefaultOperationTimeout
	}
	if c.Limits.FetchTimeout <= 0 {
		c.Limits.FetchTimeout = DefaultFetchTimeout
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.HTTP.CORSOrigin == "" {
		c.HTTP.CORSOrigin = "*"
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
		if s.Kind == SourceCSV && s.SheetID != "" && s.Tab == "" {
			s.Tab = DefaultSheetTab
		}
	}
}

// Validate checks structural consistency of sources and report names.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("config: no sources configured")
	}
	seen := map[string]struct{}{}
	for _, s := range c.Sources {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return errors.New("config: source id is required")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("config: duplicate source id %q", id)
		}
		seen[id] = struct{}{}
		switch s.Kind {
		case SourceCSV:
			if s.Path == "" && s.URL == "" && s.SheetID == "" {
				return fmt.Errorf("config: source %q needs path, url or sheet_id", id)
			}
		case SourceXLSX:
			if s.Path == "" {
				return fmt.Errorf("config: source %q needs path", id)
			}
		case SourceSQL:
			if s.Driver == "" || s.DSN == "" || s.Query == "" {
				return fmt.Errorf("config: source %q needs driver, dsn and query", id)
			}
		default:
			return fmt.Errorf("config: source %q has unknown kind %q", id, s.Kind)
		}
	}
	names := map[string]struct{}{}
	for _, r := range c.Reports {
		if strings.TrimSpace(r.Name) == "" {
			return errors.New("config: report name is required")
		}
		if _, dup := names[r.Name]; dup {
			return fmt.Errorf("config: duplicate report %q", r.Name)
		}
		names[r.Name] = struct{}{}
	}
	for i, r := range c.ReasonRules {
		if r.Contains == "" || r.Category == "" {
			return fmt.Errorf("config: reason rule %d needs contains and category", i+1)
		}
	}
	return nil
}

// NeedsFiles reports whether any source reads from the local filesystem.
func (c *Config) NeedsFiles() bool {
	for _, s := range c.Sources {
		if (s.Kind == SourceCSV && s.Path != "") || s.Kind == SourceXLSX {
			return true
		}
	}
	return false
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func truthy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes"
}
