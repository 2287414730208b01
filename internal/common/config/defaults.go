package config

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnsupportedDatabase = errors.New("unsupported database type")
	ErrWeakJWTSecret       = errors.New("jwt secret key must be at least 32 characters")
	ErrSessionNeedsRedis   = errors.New("redis session store requires redis.addr")
)

// setDefaults fills zero values after unmarshalling
func setDefaults(cfg *APIServerConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5235
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
		if cfg.Database.DBName == "" {
			cfg.Database.DBName = "./data/catalogpilot.db"
		}
	}
	if cfg.JWT.Duration <= 0 {
		cfg.JWT.Duration = 24 * time.Hour
	}
	if cfg.Session.Type == "" {
		cfg.Session.Type = "db"
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = cfg.JWT.Duration
	}
	if cfg.Session.Prefix == "" {
		cfg.Session.Prefix = "catalogpilot:session:"
	}
	if cfg.Session.PurgeInterval <= 0 {
		cfg.Session.PurgeInterval = time.Hour
	}
	if cfg.Firebase.Timeout <= 0 {
		cfg.Firebase.Timeout = 10 * time.Second
	}
	if cfg.BigCommerce.BaseURL == "" {
		cfg.BigCommerce.BaseURL = "https://api.bigcommerce.com"
	}
	if cfg.BigCommerce.Timeout <= 0 {
		cfg.BigCommerce.Timeout = 30 * time.Second
	}
	if cfg.BigCommerce.PageSize <= 0 {
		cfg.BigCommerce.PageSize = 250
	}
	if cfg.BigCommerce.MaxRetries == 0 {
		cfg.BigCommerce.MaxRetries = 4
	}
	if cfg.BigCommerce.RetryInitialInterval <= 0 {
		cfg.BigCommerce.RetryInitialInterval = 500 * time.Millisecond
	}
	if cfg.Stripe.BaseURL == "" {
		cfg.Stripe.BaseURL = "https://api.stripe.com"
	}
	if cfg.Stripe.Timeout <= 0 {
		cfg.Stripe.Timeout = 15 * time.Second
	}
	if cfg.Invitations.TTL <= 0 {
		cfg.Invitations.TTL = 7 * 24 * time.Hour
	}
	if cfg.Executor.Interval <= 0 {
		cfg.Executor.Interval = time.Minute
	}
	if cfg.Catalog.CategoryCacheTTL <= 0 {
		cfg.Catalog.CategoryCacheTTL = 30 * time.Minute
	}
	if len(cfg.Catalog.CatchAllNames) == 0 {
		cfg.Catalog.CatchAllNames = []string{"Shop All"}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "catalogpilot"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "catalogpilot-apiserver"
	}
	if cfg.I18n.DefaultLang == "" {
		cfg.I18n.DefaultLang = "en"
	}
}

// Validate checks settings that cannot be defaulted
func Validate(cfg *APIServerConfig) error {
	switch cfg.Database.Type {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDatabase, cfg.Database.Type)
	}
	if len(cfg.JWT.SecretKey) < 32 {
		return ErrWeakJWTSecret
	}
	switch cfg.Session.Type {
	case "db":
	case "redis":
		if cfg.Redis.Addr == "" {
			return ErrSessionNeedsRedis
		}
	default:
		return fmt.Errorf("unsupported session store type: %s", cfg.Session.Type)
	}
	return nil
}
