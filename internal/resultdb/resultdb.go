// Package resultdb archives study runs in SQLite: the run metadata, every
// committed experiment row, and the boxes discovery produced, so a study
// can be reloaded and re-analysed without re-running the model.
package resultdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type RunDB struct {
	*sql.DB
}

// Open opens (creating if needed) the archive at path and brings its
// schema up to date.
func Open(path string) (*RunDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open result database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	rdb := &RunDB{db}
	if err := rdb.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return rdb, nil
}
