package database

import (
	"fmt"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Models lists every table owned by the service, in dependency order
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Medicine{},
		&model.Supplier{},
		&model.InventoryBatch{},
		&model.InventoryTransaction{},
		&model.Billing{},
		&model.BillingLineItem{},
		&model.InvoiceReview{},
		&model.ReviewCandidate{},
		&model.AuditLog{},
		&model.Admission{},
	}
}

// Migrate auto-migrates the core models
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		log.Warn().Err(err).Msg("could not ensure pgcrypto extension")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
