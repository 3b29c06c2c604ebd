package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// MemoryPath is the sqlite path for a private in-memory database.
const MemoryPath = ":memory:"

// NewSQLite opens a sqlite database file, creating its directory if needed.
// path is what follows "sqlite://": "./data/app.db" and "/data/app.db" are
// relative (sqlite:///data/app.db), "//abs/app.db" is absolute and an empty
// path or ":memory:" is an in-memory database.
func NewSQLite(path string, cfg *gorm.Config) (*gorm.DB, error) {
	path = sqlitePath(path)
	memory := path == MemoryPath || strings.Contains(path, "mode=memory")

	if !memory {
		file, _, _ := strings.Cut(path, "?")
		if dir := filepath.Dir(file); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	// sqlite allows a single writer; each in-memory connection is its own database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	return db, nil
}

// NewSQLiteMemory opens an empty in-memory database. Used by tests and the admin CLI.
func NewSQLiteMemory(cfg *gorm.Config) (*gorm.DB, error) {
	if cfg == nil {
		cfg = Config(nil)
	}
	return NewSQLite(MemoryPath, cfg)
}

func sqlitePath(p string) string {
	switch {
	case p == "" || p == "/":
		return MemoryPath
	case strings.HasPrefix(p, "/"):
		return p[1:]
	default:
		return p
	}
}
