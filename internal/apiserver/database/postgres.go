package database

import (
	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(cfg *config.DatabaseConfig) gorm.Dialector {
	return postgres.Open(cfg.GetDSN())
}
