// Package testutil opens throwaway sqlite databases for service and handler
// tests and seeds the rows most tests start from. NewPostgresDB connects to
// TEST_DATABASE_DSN for the tests that need real concurrent writers.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lager-backend/internal/database"
	"lager-backend/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const Password = "correct-horse-battery"

// NewDB returns a migrated database file inside t.TempDir().
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "lager.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn,
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewPostgresDB opens TEST_DATABASE_DSN with a pool wide enough for
// concurrent transactions and migrates it. The test is skipped when the
// variable is unset or the server is unreachable. Rows are not removed;
// seed them with Unique names.
func NewPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		t.Skipf("postgres not reachable: %v", err)
	}
	sqlDB.SetMaxOpenConns(32)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Unique suffixes name so repeated runs against a shared database do not
// collide on unique indexes.
func Unique(name string) string {
	return fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
}

func CreateUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	u := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// CreateLager writes a warehouse and its owner membership row directly.
func CreateLager(t *testing.T, db *gorm.DB, owner models.User, name string) models.Lager {
	t.Helper()

	l := models.Lager{Name: name, OwnerID: owner.ID}
	require.NoError(t, db.Create(&l).Error)
	require.NoError(t, db.Create(&models.LagerMember{LagerID: l.ID, UserID: owner.ID}).Error)
	return l
}

func AddMember(t *testing.T, db *gorm.DB, l models.Lager, u models.User) {
	t.Helper()
	require.NoError(t, db.Create(&models.LagerMember{LagerID: l.ID, UserID: u.ID}).Error)
	require.NoError(t, db.Create(&models.LagerAccess{LagerID: l.ID, UserID: u.ID, GrantedByID: l.OwnerID}).Error)
}
