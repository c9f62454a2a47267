package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrate_SQLite(t *testing.T) {
	db, err := NewSQLiteDB("file::memory:", "test")
	require.NoError(t, err)
	defer CloseDB(db)

	n, err := AutoMigrate(db, DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, table := range []string{"analysis_jobs", "analysis_answers", "analysis_progress"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	n, err = AutoMigrate(db, DialectSQLite)
	require.NoError(t, err)
	assert.Zero(t, n, "migrations are applied once")
}

func TestRollback_SQLite(t *testing.T) {
	db, err := NewSQLiteDB("file::memory:", "test")
	require.NoError(t, err)
	defer CloseDB(db)

	_, err = AutoMigrate(db, DialectSQLite)
	require.NoError(t, err)

	applied, err := AppliedMigrations(db, DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_analysis.sql"}, applied)

	n, err := Rollback(db, DialectSQLite, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, db.Migrator().HasTable("analysis_jobs"))

	applied, err = AppliedMigrations(db, DialectSQLite)
	require.NoError(t, err)
	assert.Empty(t, applied)
}
