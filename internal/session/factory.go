package session

import (
	"context"
	"fmt"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	TypeDB    = "db"
	TypeRedis = "redis"
)

// NewStore builds the session store selected by cfg.Session.Type
func NewStore(ctx context.Context, logger *zap.Logger, cfg *config.APIServerConfig, db database.Database) (Store, error) {
	sc := cfg.Session
	logger.Info("Creating session store", zap.String("type", sc.Type), zap.Duration("ttl", sc.TTL))

	switch sc.Type {
	case TypeDB, "":
		return NewDBStore(db, sc.TTL, sc.PurgeInterval, logger), nil
	case TypeRedis:
		return NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, sc.Prefix, sc.TTL)
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", sc.Type)
	}
}
