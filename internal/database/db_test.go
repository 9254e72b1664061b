package database_test

import (
	"testing"

	"lager-backend/internal/database"
	"lager-backend/internal/models"
	"lager-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMigrate(t *testing.T) {
	db := testutil.NewDB(t)

	// running it again on a migrated schema is a no-op
	require.NoError(t, database.Migrate(db))

	for _, table := range []string{"users", "lagers", "lager_members", "lager_accesses", "artikels", "stock_transactions", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestLagerSchema(t *testing.T) {
	db := testutil.NewDB(t)

	stmt := &gorm.Statement{DB: db}
	require.NoError(t, stmt.Parse(&models.Lager{}))
	assert.Empty(t, stmt.Schema.Relationships.HasMany)
	assert.Contains(t, stmt.Schema.Relationships.Relations, "Owner")
}
