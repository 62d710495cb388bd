package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Sync     SyncConfig
	Queue    QueueConfig
	Alert    AlertConfig
	HTTP     HTTPConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// SyncConfig holds the sync-control tunables
type SyncConfig struct {
	// DefaultCutDt is the cold-start watermark used when a (frontend, task)
	// pair has no ledger history yet
	DefaultCutDt string
	// FlushGrace protects recently completed runs from being flushed while a
	// duplicate dispatch may still be finalizing
	FlushGrace time.Duration
	// MaxPollAttempts bounds how often the aggregator re-polls one entity
	// before marking it unknown
	MaxPollAttempts int
	// BackOfficeMaxTaskAgents / FrontEndMaxTaskAgents bound drain concurrency
	// per area
	BackOfficeMaxTaskAgents int
	FrontEndMaxTaskAgents   int
	// ReceiveBatchSize bounds how many messages one drain pass takes
	ReceiveBatchSize int
	// DrainBackoff is the pause between drain passes while the queue is
	// non-empty; DrainErrorBackoff the longer pause after a drain error
	DrainBackoff      time.Duration
	DrainErrorBackoff time.Duration
	// LedgerPageSize is the page size for exhaustive ledger scans
	LedgerPageSize int
}

// QueueConfig selects and configures the work-queue backend
type QueueConfig struct {
	// Backend is "sqs" or "memory"
	Backend string
	// Region / Endpoint configure the SQS client; Endpoint is for local
	// stacks and stays empty in production
	Region   string
	Endpoint string
	// VisibilityTimeout is how long a received message stays invisible
	VisibilityTimeout time.Duration
}

// AlertConfig configures the out-of-band failure channel
type AlertConfig struct {
	// Backend is "sns" or "noop"
	Backend  string
	Region   string
	TopicARN string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DW_ prefix (e.g. DW_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("DW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Sync: SyncConfig{
			DefaultCutDt:            v.GetString("sync.default_cut_dt"),
			FlushGrace:              v.GetDuration("sync.flush_grace"),
			MaxPollAttempts:         v.GetInt("sync.max_poll_attempts"),
			BackOfficeMaxTaskAgents: v.GetInt("sync.backoffice_max_task_agents"),
			FrontEndMaxTaskAgents:   v.GetInt("sync.frontend_max_task_agents"),
			ReceiveBatchSize:        v.GetInt("sync.receive_batch_size"),
			DrainBackoff:            v.GetDuration("sync.drain_backoff"),
			DrainErrorBackoff:       v.GetDuration("sync.drain_error_backoff"),
			LedgerPageSize:          v.GetInt("sync.ledger_page_size"),
		},
		Queue: QueueConfig{
			Backend:           v.GetString("queue.backend"),
			Region:            v.GetString("queue.region"),
			Endpoint:          v.GetString("queue.endpoint"),
			VisibilityTimeout: v.GetDuration("queue.visibility_timeout"),
		},
		Alert: AlertConfig{
			Backend:  v.GetString("alert.backend"),
			Region:   v.GetString("alert.region"),
			TopicARN: v.GetString("alert.topic_arn"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "datawald-hub"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "datawald"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Sync.DefaultCutDt == "" {
		cfg.Sync.DefaultCutDt = "2000-01-01 00:00:00"
	}
	if cfg.Sync.FlushGrace == 0 {
		cfg.Sync.FlushGrace = 5 * time.Minute
	}
	if cfg.Sync.MaxPollAttempts == 0 {
		cfg.Sync.MaxPollAttempts = 6
	}
	if cfg.Sync.BackOfficeMaxTaskAgents == 0 {
		cfg.Sync.BackOfficeMaxTaskAgents = 1
	}
	if cfg.Sync.FrontEndMaxTaskAgents == 0 {
		cfg.Sync.FrontEndMaxTaskAgents = 1
	}
	if cfg.Sync.ReceiveBatchSize == 0 {
		cfg.Sync.ReceiveBatchSize = 10
	}
	if cfg.Sync.DrainBackoff == 0 {
		cfg.Sync.DrainBackoff = 5 * time.Second
	}
	if cfg.Sync.DrainErrorBackoff == 0 {
		cfg.Sync.DrainErrorBackoff = 15 * time.Second
	}
	if cfg.Sync.LedgerPageSize == 0 {
		cfg.Sync.LedgerPageSize = 100
	}
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = "memory"
	}
	if cfg.Queue.Region == "" {
		cfg.Queue.Region = "us-east-1"
	}
	if cfg.Queue.VisibilityTimeout == 0 {
		cfg.Queue.VisibilityTimeout = 10 * time.Minute
	}
	if cfg.Alert.Backend == "" {
		cfg.Alert.Backend = "noop"
	}
	if cfg.Alert.Region == "" {
		cfg.Alert.Region = cfg.Queue.Region
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if _, err := time.Parse("2006-01-02 15:04:05", c.Sync.DefaultCutDt); err != nil {
		return fmt.Errorf("sync.default_cut_dt must be formatted as 2006-01-02 15:04:05: %w", err)
	}
	if c.Sync.MaxPollAttempts < 1 {
		return fmt.Errorf("sync.max_poll_attempts must be at least 1")
	}

	switch c.Queue.Backend {
	case "sqs", "memory":
	default:
		return fmt.Errorf("queue.backend must be \"sqs\" or \"memory\", got %q", c.Queue.Backend)
	}
	switch c.Alert.Backend {
	case "sns", "noop":
	default:
		return fmt.Errorf("alert.backend must be \"sns\" or \"noop\", got %q", c.Alert.Backend)
	}
	if c.Alert.Backend == "sns" && c.Alert.TopicARN == "" {
		return fmt.Errorf("alert.topic_arn is required when alert.backend is \"sns\"")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Queue.Backend == "memory" {
			return fmt.Errorf("queue.backend \"memory\" is single-node only and not allowed in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
