package config

import (
	"os"
	"regexp"
	"time"

	"github.com/catalogpilot/catalogpilot/pkg/helper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// APIServerConfig is the root configuration of the apiserver binary
	APIServerConfig struct {
		Server      ServerConfig      `yaml:"server"`
		Database    DatabaseConfig    `yaml:"database"`
		Logger      LoggerConfig      `yaml:"logger"`
		JWT         JWTConfig         `yaml:"jwt"`
		Session     SessionConfig     `yaml:"session"`
		Redis       RedisConfig       `yaml:"redis"`
		Firebase    FirebaseConfig    `yaml:"firebase"`
		BigCommerce BigCommerceConfig `yaml:"bigcommerce"`
		Stripe      StripeConfig      `yaml:"stripe"`
		SendGrid    SendGridConfig    `yaml:"sendgrid"`
		Invitations InvitationConfig  `yaml:"invitations"`
		Executor    ExecutorConfig    `yaml:"executor"`
		Catalog     CatalogConfig     `yaml:"catalog"`
		Metrics     MetricsConfig     `yaml:"metrics"`
		Tracing     TracingConfig     `yaml:"tracing"`
		I18n        I18nConfig        `yaml:"i18n"`
	}

	ServerConfig struct {
		Port            int           `yaml:"port"`
		Mode            string        `yaml:"mode"`            // gin mode: debug, release, test
		AppURL          string        `yaml:"app_url"`         // frontend base url used in emails
		AllowedOrigins  []string      `yaml:"allowed_origins"` // CORS allow list
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	}

	DatabaseConfig struct {
		Type     string `yaml:"type"`     // mysql, postgres, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 3306 (for mysql), 5432 (for postgres)
		User     string `yaml:"user"`     // root (for mysql), postgres (for postgres)
		Password string `yaml:"password"` // password
		DBName   string `yaml:"dbname"`   // database name, file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (for postgres)
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}

	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// SessionConfig selects the server-side session store
	SessionConfig struct {
		Type          string        `yaml:"type"` // db or redis
		TTL           time.Duration `yaml:"ttl"`
		Prefix        string        `yaml:"prefix"` // redis key prefix
		PurgeInterval time.Duration `yaml:"purge_interval"`
	}

	RedisConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	}

	FirebaseConfig struct {
		ProjectID   string        `yaml:"project_id"`
		APIKey      string        `yaml:"api_key"`
		IdentityURL string        `yaml:"identity_url"`
		CertsURL    string        `yaml:"certs_url"`
		Timeout     time.Duration `yaml:"timeout"`
	}

	BigCommerceConfig struct {
		BaseURL              string        `yaml:"base_url"`
		Timeout              time.Duration `yaml:"timeout"`
		PageSize             int           `yaml:"page_size"`
		MaxRetries           uint          `yaml:"max_retries"`
		RetryInitialInterval time.Duration `yaml:"retry_initial_interval"`
	}

	StripeConfig struct {
		SecretKey  string            `yaml:"secret_key"`
		BaseURL    string            `yaml:"base_url"`
		SuccessURL string            `yaml:"success_url"`
		CancelURL  string            `yaml:"cancel_url"`
		Prices     map[string]string `yaml:"prices"` // plan -> stripe price id
		Timeout    time.Duration     `yaml:"timeout"`
	}

	SendGridConfig struct {
		APIKey    string `yaml:"api_key"`
		Host      string `yaml:"host"`
		FromEmail string `yaml:"from_email"`
		FromName  string `yaml:"from_name"`
	}

	InvitationConfig struct {
		TTL time.Duration `yaml:"ttl"`
	}

	ExecutorConfig struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
	}

	CatalogConfig struct {
		CategoryCacheTTL  time.Duration      `yaml:"category_cache_ttl"`
		CatchAllNames     []string           `yaml:"catch_all_names"`
		CategoryFallbacks []CategoryFallback `yaml:"category_fallbacks"`
	}

	// CategoryFallback names a category id that upstream references but never returns
	CategoryFallback struct {
		ID       int64  `yaml:"id"`
		Name     string `yaml:"name"`
		ParentID int64  `yaml:"parent_id"`
	}

	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Path      string    `yaml:"path"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}

	// TracingConfig represents OpenTelemetry tracing configuration
	TracingConfig struct {
		Enabled     bool              `yaml:"enabled"`
		ServiceName string            `yaml:"service_name"`
		Endpoint    string            `yaml:"endpoint"`     // e.g. localhost:4317 or http://localhost:4318
		Protocol    string            `yaml:"protocol"`     // grpc or http
		Insecure    bool              `yaml:"insecure"`     // allow insecure connection
		SamplerRate float64           `yaml:"sampler_rate"` // 0.0~1.0
		Environment string            `yaml:"environment"`  // env tag: dev/staging/prod
		Headers     map[string]string `yaml:"headers"`
	}

	// I18nConfig represents the internationalization configuration
	I18nConfig struct {
		Path        string `yaml:"path"` // optional directory with translation overrides
		DefaultLang string `yaml:"default_lang"`
	}
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*APIServerConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	data = resolveEnv(data)
	var cfg APIServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	setDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, cfgPath, err
	}
	return &cfg, cfgPath, nil
}

var envPattern = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	return envPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := envPattern.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
