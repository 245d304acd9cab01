package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Email     EmailConfig     `mapstructure:"email"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JobsConfig selects the background executor. Backend is "local" for the
// in-process worker pool or "asynq" for the redis-backed queue.
type JobsConfig struct {
	Backend     string        `mapstructure:"backend"`
	Workers     int           `mapstructure:"workers"`
	BufferSize  int           `mapstructure:"buffer_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type EmailConfig struct {
	Provider     string `mapstructure:"provider"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	ResendURL    string `mapstructure:"resend_url"`
	From         string `mapstructure:"from"`
	FromName     string `mapstructure:"from_name"`
	SupportFrom  string `mapstructure:"support_from"`
	SMTP         struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
	} `mapstructure:"smtp"`
}

type WebhookConfig struct {
	Secret           string `mapstructure:"secret"`
	FetchMissingBody bool   `mapstructure:"fetch_missing_body"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "suntvalg")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "suntvalg")
	v.SetDefault("database.user", "suntvalg")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("jobs.backend", "local")
	v.SetDefault("jobs.workers", 4)
	v.SetDefault("jobs.buffer_size", 100)
	v.SetDefault("jobs.timeout", 2*time.Minute)
	v.SetDefault("jobs.max_attempts", 5)

	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.max_tokens", 1000)

	v.SetDefault("email.provider", "resend")
	v.SetDefault("email.resend_url", "https://api.resend.com")
	v.SetDefault("email.from", "hello@suntvalg.app")
	v.SetDefault("email.from_name", "SuntValg Support")
	v.SetDefault("email.smtp.port", 587)

	v.SetDefault("webhook.fetch_missing_body", true)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.db", 0)
}

// Unmarshal only sees environment overrides for keys viper already knows.
func bindSecrets(v *viper.Viper) {
	for _, key := range []string{
		"database.dsn", "database.password",
		"redis.password",
		"openai.api_key", "openai.base_url",
		"email.resend_api_key", "email.support_from",
		"email.smtp.host", "email.smtp.user", "email.smtp.password",
		"webhook.secret",
	} {
		_ = v.BindEnv(key)
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("SUNTVALG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindSecrets(v)
	return v
}

// Load initializes the configuration with hot reload support. A config.yaml in
// configPath is optional; defaults and SUNTVALG_* environment variables always apply.
func Load(configPath string) error {
	var err error
	once.Do(func() {
		v := newViper()
		v.SetConfigName("config")
		v.AddConfigPath(configPath)

		fileLoaded := true
		if err = v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				err = fmt.Errorf("failed to read config: %w", err)
				return
			}
			fileLoaded = false
			err = nil
		}

		loaded := &Config{}
		if err = v.Unmarshal(loaded); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", err)
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()

		if !fileLoaded {
			return
		}

		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			newCfg := &Config{}
			if err := v.Unmarshal(newCfg); err != nil {
				notifyReload(e.Name, err)
				return
			}

			mu.Lock()
			cfg = newCfg
			mu.Unlock()
			notifyReload(e.Name, nil)
		})
	})

	return err
}

var (
	reloadHooksMu sync.Mutex
	reloadHooks   []func(name string, err error)
)

// OnReload registers a callback invoked after every hot reload attempt.
func OnReload(fn func(name string, err error)) {
	reloadHooksMu.Lock()
	defer reloadHooksMu.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

func notifyReload(name string, err error) {
	reloadHooksMu.Lock()
	hooks := append([]func(string, error){}, reloadHooks...)
	reloadHooksMu.Unlock()
	for _, fn := range hooks {
		fn(name, err)
	}
}

// Get returns the current configuration (thread-safe)
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// LoadFromFile loads configuration from a specific file (useful for testing)
func LoadFromFile(configFile string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mu.Lock()
	cfg = loaded
	mu.Unlock()

	return loaded, nil
}

// Defaults returns a configuration populated only from defaults and environment.
func Defaults() (*Config, error) {
	loaded := &Config{}
	if err := newViper().Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return loaded, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetServerAddr returns the server listen address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction returns true if running in production mode
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsDevelopment returns true if running in development mode
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// SenderAddress formats the From header used for support replies.
func (c *EmailConfig) SenderAddress() string {
	if c.SupportFrom != "" {
		return c.SupportFrom
	}
	if c.FromName == "" {
		return c.From
	}
	return fmt.Sprintf("%s <%s>", c.FromName, c.From)
}
