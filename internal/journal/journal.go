// Package journal persists decoded bridge events into a local SQLite
// database, so a long-running `huelink events` session leaves an
// inspectable trace.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dokzlo13/huelink/bridge"
)

// Journal wraps the SQLite connection
type Journal struct {
	db *sql.DB
}

// Open opens the journal database and initializes the schema
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	// append-only; one row per resource carried by an event
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bridge_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			received_at INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id TEXT,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_bridge_events_type_ts ON bridge_events(event_type, received_at);
		CREATE INDEX IF NOT EXISTS idx_bridge_events_resource ON bridge_events(resource_type, resource_id);
	`)
	if err != nil {
		return fmt.Errorf("create bridge_events table: %w", err)
	}
	return nil
}

// Record appends one decoded event batch
func (j *Journal) Record(batch []bridge.Event) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO bridge_events (received_at, event_type, resource_type, resource_id, payload)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, event := range batch {
		for _, data := range event.Data {
			var payload []byte
			if res := data.Resource(); res != nil {
				if payload, err = json.Marshal(res); err != nil {
					return fmt.Errorf("marshal %s payload: %w", data.Type, err)
				}
			}
			if _, err := stmt.Exec(now, string(event.Type), data.Type, data.ResourceID(), string(payload)); err != nil {
				return fmt.Errorf("insert event: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Count returns the number of journaled rows, optionally filtered by event
// type ("" counts everything).
func (j *Journal) Count(eventType string) (int, error) {
	var n int
	var err error
	if eventType == "" {
		err = j.db.QueryRow(`SELECT COUNT(*) FROM bridge_events`).Scan(&n)
	} else {
		err = j.db.QueryRow(`SELECT COUNT(*) FROM bridge_events WHERE event_type = ?`, eventType).Scan(&n)
	}
	return n, err
}

// Close closes the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}
