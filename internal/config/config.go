package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultQueryTimeout  = 2 * time.Minute
	DefaultUploadTimeout = 5 * time.Minute
)

// Config represents runtime configuration for both the client and the backend.
type Config struct {
	Client      ClientConfig              `json:"client"`
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DBConfig       `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
}

// ClientConfig drives the interactive client.
type ClientConfig struct {
	QueryURL      string   `json:"query_url"`
	UploadURL     string   `json:"upload_url"`
	QueryTimeout  Duration `json:"query_timeout"`
	UploadTimeout Duration `json:"upload_timeout"`
	Accept        []string `json:"accept"`
	LogFile       string   `json:"log_file"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type BasicConfig struct {
	ServerAddress     string   `json:"server_address"`
	Database          string   `json:"database"`
	Provider          string   `json:"provider"`
	UploadDir         string   `json:"upload_dir"`
	AllowedOrigins    []string `json:"allowed_origins"`
	MinWorkers        int      `json:"min_workers"`
	MaxWorkers        int      `json:"max_workers"`
	QueueSize         int      `json:"queue_size"`
	WorkerIdleTimeout int      `json:"worker_idle_timeout"` // minutes
	HistoryWindow     int      `json:"history_window"`
	TopK              int      `json:"top_k"`
	OrphanTTL         int      `json:"orphan_ttl"`            // minutes
	OrphanCleanPeriod int      `json:"orphan_clean_interval"` // minutes
}

type DBConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Duration decodes Go duration strings ("90s", "2m") from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		var secs float64
		if err2 := json.Unmarshal(b, &secs); err2 != nil {
			return fmt.Errorf("duration must be a string or seconds: %w", err)
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns a configuration usable against a backend on localhost.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			QueryURL:      "http://localhost:8000/query",
			UploadURL:     "http://localhost:8000/upload",
			QueryTimeout:  Duration(DefaultQueryTimeout),
			UploadTimeout: Duration(DefaultUploadTimeout),
			Accept:        []string{".pdf"},
			LogFile:       "docchat.log",
		},
		BasicConfig: BasicConfig{
			ServerAddress:     ":8000",
			Database:          "sqlite3",
			Provider:          "gemini",
			UploadDir:         "./data",
			AllowedOrigins:    []string{"*"},
			MinWorkers:        1,
			MaxWorkers:        4,
			QueueSize:         16,
			WorkerIdleTimeout: 5,
			HistoryWindow:     6,
			TopK:              4,
		},
		Databases: map[string]DBConfig{
			"sqlite3": {DSN: "docchat.db"},
		},
		Providers: map[string]ProviderConfig{
			"gemini": {Model: "gemini-2.5-flash"},
		},
	}
}

// Load reads configuration from the provided path (defaults to config.json),
// then applies .env and environment overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	explicit := path != ""
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	cfg := Default()
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		resolveRelative(cfg, filepath.Dir(absPath))
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values both binaries depend on.
func (c *Config) Validate() error {
	if c.Client.QueryURL == "" {
		return errors.New("client.query_url must be configured")
	}
	if c.Client.UploadURL == "" {
		return errors.New("client.upload_url must be configured")
	}
	if c.Client.QueryTimeout <= 0 {
		c.Client.QueryTimeout = Duration(DefaultQueryTimeout)
	}
	if c.Client.UploadTimeout <= 0 {
		c.Client.UploadTimeout = Duration(DefaultUploadTimeout)
	}
	if c.BasicConfig.MaxWorkers < c.BasicConfig.MinWorkers {
		return fmt.Errorf("max_workers (%d) must be >= min_workers (%d)", c.BasicConfig.MaxWorkers, c.BasicConfig.MinWorkers)
	}
	return nil
}

func resolveRelative(cfg *Config, base string) {
	if cfg.BasicConfig.UploadDir != "" && !filepath.IsAbs(cfg.BasicConfig.UploadDir) {
		cfg.BasicConfig.UploadDir = filepath.Join(base, cfg.BasicConfig.UploadDir)
	}
	if db, ok := cfg.Databases["sqlite3"]; ok && db.DSN != "" && !filepath.IsAbs(db.DSN) && db.DSN[0] != ':' && !hasScheme(db.DSN) {
		db.DSN = filepath.Join(base, db.DSN)
		cfg.Databases["sqlite3"] = db
	}
}

func hasScheme(dsn string) bool {
	return len(dsn) > 5 && dsn[:5] == "file:"
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCCHAT_QUERY_URL"); v != "" {
		cfg.Client.QueryURL = v
	}
	if v := os.Getenv("DOCCHAT_UPLOAD_URL"); v != "" {
		cfg.Client.UploadURL = v
	}
	if v := os.Getenv("DOCCHAT_SERVER_ADDR"); v != "" {
		cfg.BasicConfig.ServerAddress = v
	}
	if v := os.Getenv("DOCCHAT_DB"); v != "" {
		cfg.BasicConfig.Database = v
	}
	if v := os.Getenv("DOCCHAT_PROVIDER"); v != "" {
		cfg.BasicConfig.Provider = v
	}
	if v := os.Getenv("DOCCHAT_API_KEY"); v != "" {
		provider := cfg.BasicConfig.Provider
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]ProviderConfig)
		}
		p := cfg.Providers[provider]
		p.APIKey = v
		cfg.Providers[provider] = p
	}
	if v := os.Getenv("DOCCHAT_REDIS_ADDR"); v != "" {
		host, port := splitHostPort(v)
		cfg.Redis.Host = host
		if port > 0 {
			cfg.Redis.Port = port
		}
	}
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
