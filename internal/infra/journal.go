package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

const defaultRecentLimit = 20

// Journal implements domain.InstallJournal in a SQLite database.
// With a key the file is encrypted via SQLCipher.
type Journal struct {
	db     *sql.DB
	dbPath string
}

// NewJournal opens (or creates) the journal at dbPath. key may be nil.
func NewJournal(dbPath string, key []byte) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := dbPath
	if len(key) > 0 {
		dsn = fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	j := &Journal{db: db, dbPath: dbPath}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

func (j *Journal) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		at INTEGER NOT NULL
	);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends one outcome. A zero At is stamped with the current time.
func (j *Journal) Record(entry domain.JournalEntry) error {
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	succeeded := 0
	if entry.Succeeded {
		succeeded = 1
	}
	_, err := j.db.Exec(`INSERT INTO journal (action, path, succeeded, at) VALUES (?, ?, ?, ?)`,
		string(entry.Action), entry.Path, succeeded, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to record %s of %s: %w", entry.Action, entry.Path, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := j.db.Query(`SELECT id, action, path, succeeded, at FROM journal ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var (
			e         domain.JournalEntry
			action    string
			succeeded int
			at        int64
		)
		if err := rows.Scan(&e.ID, &action, &e.Path, &succeeded, &at); err != nil {
			return nil, err
		}
		e.Action = domain.JournalAction(action)
		e.Succeeded = succeeded != 0
		e.At = time.Unix(at, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.dbPath
}

// Close releases the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

var _ domain.InstallJournal = (*Journal)(nil)
