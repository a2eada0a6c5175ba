package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath    = "config.yaml"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-2.0-flash"
)

type Config struct {
	Server struct {
		Port            int      `yaml:"port"`
		ReadTimeoutSec  int      `yaml:"readTimeoutSec"`
		WriteTimeoutSec int      `yaml:"writeTimeoutSec"`
		CORSOrigins     []string `yaml:"corsOrigins"`
		// APIKeys maps a client name to its key. Empty disables auth.
		APIKeys        map[string]string `yaml:"apiKeys"`
		RateLimitBurst int               `yaml:"rateLimitBurst"`
		RateLimitRPS   int               `yaml:"rateLimitRPS"`
	} `yaml:"server"`

	AI struct {
		APIKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseURL"`
		Model   string `yaml:"model"`
	} `yaml:"ai"`

	Cache struct {
		Dir     string `yaml:"dir"`
		TTLDays int    `yaml:"ttlDays"`
	} `yaml:"cache"`

	Pipeline struct {
		ResolveTimeoutSec  int `yaml:"resolveTimeoutSec"`
		ClassifyTimeoutSec int `yaml:"classifyTimeoutSec"`
		SuggestTimeoutSec  int `yaml:"suggestTimeoutSec"`
	} `yaml:"pipeline"`

	Probe struct {
		TimeoutSec       int    `yaml:"timeoutSec"`
		KEVURL           string `yaml:"kevURL"`
		KEVTimeoutSec    int    `yaml:"kevTimeoutSec"`
		KEVRefreshMinute int    `yaml:"kevRefreshMinutes"`
	} `yaml:"probe"`

	Database struct {
		Driver   string `yaml:"driver"` // "", "sqlite", "mysql" or "postgres"
		Path     string `yaml:"path"`   // sqlite file
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Slack struct {
		Token   string `yaml:"token"`
		Channel string `yaml:"channel"`
		APIURL  string `yaml:"apiURL"`
	} `yaml:"slack"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
}

// Load baca .env, file config (opsional) lalu override dari environment.
// A missing file is fine; defaults and env vars still apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("config file not found, using defaults", "path", path)
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns CONFIG_PATH or the default file name.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) applyEnv() {
	str(&c.AI.APIKey, "GEMINI_API_KEY", "OPENAI_API_KEY", "AI_API_KEY")
	str(&c.AI.BaseURL, "AI_BASE_URL")
	str(&c.AI.Model, "AI_MODEL")

	num(&c.Server.Port, "PORT")
	str(&c.Cache.Dir, "CACHE_DIR")
	num(&c.Cache.TTLDays, "CACHE_TTL_DAYS")
	str(&c.Probe.KEVURL, "KEV_URL")

	str(&c.Log.Level, "LOG_LEVEL")
	str(&c.Log.Format, "LOG_FORMAT")
	str(&c.Log.File, "LOG_FILE")

	str(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	str(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	str(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	str(&c.Minio.BucketName, "MINIO_BUCKET")
	str(&c.Minio.Region, "MINIO_REGION")
	if v, ok := os.LookupEnv("MINIO_USE_SSL"); ok {
		c.Minio.UseSSL, _ = strconv.ParseBool(v)
	}

	str(&c.Database.Driver, "DB_DRIVER")
	str(&c.Database.Path, "DB_PATH")
	str(&c.Database.Host, "DB_HOST")
	num(&c.Database.Port, "DB_PORT")
	str(&c.Database.User, "DB_USER")
	str(&c.Database.Password, "DB_PASSWORD")
	str(&c.Database.Name, "DB_NAME")

	str(&c.Slack.Token, "SLACK_BOT_TOKEN")
	str(&c.Slack.Channel, "SLACK_CHANNEL")
	str(&c.Slack.APIURL, "SLACK_API_URL")
}

func (c *Config) applyDefaults() {
	def(&c.Server.Port, 8080)
	def(&c.Server.ReadTimeoutSec, 15)
	def(&c.Server.WriteTimeoutSec, 300)
	def(&c.Server.RateLimitBurst, 20)
	def(&c.Server.RateLimitRPS, 2)

	if c.AI.BaseURL == "" {
		c.AI.BaseURL = DefaultBaseURL
	}
	if c.AI.Model == "" {
		c.AI.Model = DefaultModel
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = ".cache/trustbrief"
	}
	def(&c.Cache.TTLDays, 7)

	def(&c.Pipeline.ResolveTimeoutSec, 120)
	def(&c.Pipeline.ClassifyTimeoutSec, 60)
	def(&c.Pipeline.SuggestTimeoutSec, 60)

	def(&c.Probe.TimeoutSec, 10)
	def(&c.Probe.KEVTimeoutSec, 15)
	def(&c.Probe.KEVRefreshMinute, 360)

	if c.Minio.Region == "" {
		c.Minio.Region = "us-east-1"
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "trustbrief-cache"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = c.Cache.Dir + "/history.db"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks ranges and enum values. It does not require an AI key so
// cache administration works offline; see RequireAI.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Cache.TTLDays < 0 {
		errs = append(errs, fmt.Errorf("cache.ttlDays must not be negative: %d", c.Cache.TTLDays))
	}
	switch c.Database.Driver {
	case "", "sqlite", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite, mysql or postgres, got %q", c.Database.Driver))
	}
	if c.Minio.Endpoint != "" && (c.Minio.AccessKey == "" || c.Minio.SecretKey == "") {
		errs = append(errs, errors.New("minio.accessKey and minio.secretKey are required when minio.endpoint is set"))
	}
	if (c.Slack.Token == "") != (c.Slack.Channel == "") {
		errs = append(errs, errors.New("slack.token and slack.channel must be set together"))
	}
	return errors.Join(errs...)
}

// RequireAI reports a missing model API key.
func (c *Config) RequireAI() error {
	if c.AI.APIKey == "" {
		return errors.New("no model API key: set GEMINI_API_KEY or OPENAI_API_KEY")
	}
	return nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLDays) * 24 * time.Hour
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c *Config) ResolveTimeout() time.Duration  { return seconds(c.Pipeline.ResolveTimeoutSec) }
func (c *Config) ClassifyTimeout() time.Duration { return seconds(c.Pipeline.ClassifyTimeoutSec) }
func (c *Config) SuggestTimeout() time.Duration  { return seconds(c.Pipeline.SuggestTimeoutSec) }
func (c *Config) ProbeTimeout() time.Duration    { return seconds(c.Probe.TimeoutSec) }
func (c *Config) KEVTimeout() time.Duration      { return seconds(c.Probe.KEVTimeoutSec) }
func (c *Config) KEVRefresh() time.Duration {
	return time.Duration(c.Probe.KEVRefreshMinute) * time.Minute
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Public is the non-secret view served by the config endpoint.
type Public struct {
	Model           string `json:"model"`
	BaseURL         string `json:"base_url"`
	AIConfigured    bool   `json:"ai_configured"`
	CacheDir        string `json:"cache_dir"`
	CacheTTLDays    int    `json:"cache_ttl_days"`
	ObjectStore     bool   `json:"object_store"`
	HistoryDriver   string `json:"history_driver,omitempty"`
	SlackAlerts     bool   `json:"slack_alerts"`
	ProbeTimeoutSec int    `json:"probe_timeout_sec"`
	KEVURL          string `json:"kev_url,omitempty"`
}

func (c *Config) Public() Public {
	return Public{
		Model:           c.AI.Model,
		BaseURL:         c.AI.BaseURL,
		AIConfigured:    c.AI.APIKey != "",
		CacheDir:        c.Cache.Dir,
		CacheTTLDays:    c.Cache.TTLDays,
		ObjectStore:     c.Minio.Endpoint != "",
		HistoryDriver:   c.Database.Driver,
		SlackAlerts:     c.Slack.Token != "",
		ProbeTimeoutSec: c.Probe.TimeoutSec,
		KEVURL:          c.Probe.KEVURL,
	}
}

func str(dst *string, keys ...string) {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			*dst = v
			return
		}
	}
}

func num(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring non-numeric env var", "key", key, "value", v)
		return
	}
	*dst = n
}

func def(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}
