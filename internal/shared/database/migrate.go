package database

import (
	"gorm.io/gorm"
)

// Migrate creates tables for the given models and then the indexes and
// checks that guard concurrent writes.
func Migrate(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}
	return MigrateConstraints(db)
}
