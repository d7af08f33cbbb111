// Package database opens GORM connections to PostgreSQL.
package database

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CreateConnection opens a GORM handle whose query log goes through zap
func CreateConnection(connectionString string, zl *zap.Logger) (*gorm.DB, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(zl),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Lookups of unknown users are routine
			Colorful:                  false,
		},
	)

	zl.Info("connecting to PostgreSQL...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		zl.Warn("unable to create a PostgreSQL connection", zap.Error(err))
		return nil, err
	}
	zl.Info("PostgreSQL connection successful")

	return db, nil
}
