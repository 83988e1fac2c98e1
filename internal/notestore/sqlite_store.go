package notestore

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/localrivet/neurogalaxy/internal/errortypes"
)

var errNotInitialized = errors.New("note store is not initialized")

// SQLiteNoteStore is an implementation of NoteStore that uses SQLite.
// A single connection is shared and guarded by a mutex.
type SQLiteNoteStore struct {
	conn   *sqlite.Conn
	dbPath string
	mu     sync.Mutex
}

// NewSQLiteNoteStore creates a new SQLiteNoteStore instance.
func NewSQLiteNoteStore() *SQLiteNoteStore {
	return &SQLiteNoteStore{}
}

// Initialize initializes the store with the given database path.
func (s *SQLiteNoteStore) Initialize(dbPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dbPath = dbPath

	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to open SQLite database").WithField("path", dbPath)
	}
	s.conn = conn

	if err := s.createTable(); err != nil {
		s.conn.Close()
		s.conn = nil
		return errortypes.DatabaseError(err, "failed to create notes table")
	}

	return nil
}

// createTable creates the notes table if it doesn't exist.
func (s *SQLiteNoteStore) createTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS notes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	stmt, err := s.conn.Prepare(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare create table statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to execute create table statement: %w", err)
	}
	return nil
}

// Close closes the store and releases any resources.
func (s *SQLiteNoteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// Append adds notes in a single transaction and returns the new total.
func (s *SQLiteNoteStore) Append(notes []string) (total int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return 0, errortypes.DatabaseError(errNotInitialized, "cannot append notes")
	}

	release := sqlitex.Save(s.conn)
	defer release(&err)

	insertSQL := `INSERT INTO notes (content, created_at) VALUES (?, ?);`
	now := time.Now().Unix()
	for i, note := range notes {
		stmt, perr := s.conn.Prepare(insertSQL)
		if perr != nil {
			return 0, errortypes.DatabaseError(perr, "failed to prepare insert statement")
		}
		stmt.BindText(1, note)
		stmt.BindInt64(2, now)
		_, serr := stmt.Step()
		stmt.Reset()
		if serr != nil {
			return 0, errortypes.DatabaseError(serr, "failed to insert note").WithField("index", i)
		}
	}

	total, err = s.count()
	return total, err
}

// List returns every note in insertion order.
func (s *SQLiteNoteStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, errortypes.DatabaseError(errNotInitialized, "cannot list notes")
	}

	stmt, err := s.conn.Prepare(`SELECT content FROM notes ORDER BY seq ASC;`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	notes := make([]string, 0)
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, errortypes.DatabaseError(err, "failed to read notes")
		}
		if !hasRow {
			break
		}
		notes = append(notes, stmt.ColumnText(0))
	}
	return notes, nil
}

// Count returns the number of stored notes.
func (s *SQLiteNoteStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return 0, errortypes.DatabaseError(errNotInitialized, "cannot count notes")
	}
	return s.count()
}

func (s *SQLiteNoteStore) count() (int, error) {
	stmt, err := s.conn.Prepare(`SELECT COUNT(*) FROM notes;`)
	if err != nil {
		return 0, errortypes.DatabaseError(err, "failed to prepare count statement")
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return 0, errortypes.DatabaseError(err, "failed to count notes")
	}
	return int(stmt.ColumnInt64(0)), nil
}

// Clear removes every note and returns how many were removed.
func (s *SQLiteNoteStore) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return 0, errortypes.DatabaseError(errNotInitialized, "cannot clear notes")
	}

	stmt, err := s.conn.Prepare(`DELETE FROM notes;`)
	if err != nil {
		return 0, errortypes.DatabaseError(err, "failed to prepare delete statement")
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return 0, errortypes.DatabaseError(err, "failed to clear notes")
	}
	return s.conn.Changes(), nil
}
