package database

import (
	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openSQLite(cfg *config.DatabaseConfig) gorm.Dialector {
	return sqlite.Open(cfg.GetDSN())
}
