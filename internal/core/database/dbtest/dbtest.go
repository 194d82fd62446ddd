// Package dbtest opens throwaway SQLite databases carrying the production schema.
package dbtest

import (
	"fmt"

	approvalDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/approval"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	tenantDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/tenant"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a fresh in-memory database with every table migrated.
func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every :memory: connection is its own database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&tenantDatamodel.Company{},
		&tenantDatamodel.Role{},
		&tenantDatamodel.User{},
		&expenseDatamodel.Expense{},
		&approvalDatamodel.Approval{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
