package database

import (
	"fmt"
	"log"
	"time"

	migrate "github.com/rubenv/sql-migrate"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/persona-panel/migrations"
	"github.com/johnquangdev/persona-panel/pkg/config"
)

// Dialects understood by sql-migrate
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// Open connects to the configured database and returns the sql-migrate dialect
func Open(cfg *config.Config) (*gorm.DB, string, error) {
	if cfg.Database.Driver == "sqlite" {
		db, err := NewSQLiteDB(cfg.GetDatabaseDSN(), cfg.Server.Environment)
		return db, DialectSQLite, err
	}
	db, err := NewPostgresDB(cfg)
	return db, DialectPostgres, err
}

func gormConfig(environment string) *gorm.Config {
	// Configure GORM logger
	gormLogger := logger.Default.LogMode(logger.Warn)
	if environment == "production" {
		gormLogger = logger.Default.LogMode(logger.Error)
	}
	return &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewPostgresDB creates a new PostgreSQL database connection using GORM
func NewPostgresDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), gormConfig(cfg.Server.Environment))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get generic database object to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxOpenConns(cfg.Database.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MinConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connected successfully")

	return db, nil
}

// NewSQLiteDB opens a file or in-memory SQLite database, used by the CLI and tests
func NewSQLiteDB(dsn, environment string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(environment))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}
	// a single writer avoids "database is locked" under concurrent saves
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func migrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations.FS,
		Root:       ".",
	}
}

// AutoMigrate applies the embedded migrations
func AutoMigrate(db *gorm.DB, dialect string) (int, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get db connection during migrate up: %w", err)
	}

	n, err := migrate.Exec(sqlDB, dialect, migrationSource(), migrate.Up)
	if err != nil {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return n, nil
}

// Rollback reverts up to max applied migrations, newest first. max 0 reverts all.
func Rollback(db *gorm.DB, dialect string, max int) (int, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get db connection during migrate down: %w", err)
	}

	n, err := migrate.ExecMax(sqlDB, dialect, migrationSource(), migrate.Down, max)
	if err != nil {
		return 0, fmt.Errorf("failed to revert migrations: %w", err)
	}
	return n, nil
}

// AppliedMigrations lists the ids of applied migrations
func AppliedMigrations(db *gorm.DB, dialect string) ([]string, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get db connection: %w", err)
	}

	records, err := migrate.GetMigrationRecords(sqlDB, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration records: %w", err)
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Id)
	}
	return ids, nil
}

// CloseDB closes the database connection
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
