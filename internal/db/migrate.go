package db

import (
	"gorm.io/gorm"

	"github.com/Skssssee/Musict/internal/models"
)

// Migrate applies schema migrations for the persisted collections.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.SudoUser{},
		&models.KnownChat{},
		&models.AuditConfig{},
	)
}
