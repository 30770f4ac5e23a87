// Package dbtest открывает файловую SQLite базу с полной схемой для тестов.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"leasekeeper/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open создает базу во временном каталоге теста. Соединение в пуле одно:
// SQLite не допускает параллельных писателей, поэтому транзакции выполняются
// по очереди, как под блокировкой строки в Postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lease.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)

	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(false))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
