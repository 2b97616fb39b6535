package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DocStore persists one opaque document per session id.
type DocStore interface {
	// Put replaces the whole document stored under id.
	Put(id string, doc []byte) error
	// Get returns ErrNotFound when nothing is stored under id.
	Get(id string) ([]byte, error)
	// List returns every stored document.
	List() ([][]byte, error)
	Close() error
}

// FileDocStore keeps each document in <dir>/<id>.json.
type FileDocStore struct {
	dir string
}

// NewFileDocStore creates a file-backed document store.
// dataDir is typically ~/.config/dodo-plan; documents live under its sessions/ folder.
func NewFileDocStore(dataDir string) *FileDocStore {
	return &FileDocStore{dir: filepath.Join(dataDir, "sessions")}
}

func (f *FileDocStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", ErrNotFound
	}
	return filepath.Join(f.dir, id+".json"), nil
}

// Put writes to a temp file and renames it over the old document so readers
// never see a partial write.
func (f *FileDocStore) Put(id string, doc []byte) error {
	filename, err := f.path(id)
	if err != nil {
		return fmt.Errorf("invalid session id %q", id)
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set session file mode: %w", err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (f *FileDocStore) Get(id string) ([]byte, error) {
	filename, err := f.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return data, nil
}

func (f *FileDocStore) List() ([][]byte, error) {
	entries, err := os.ReadDir(f.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list session directory: %w", err)
	}

	var docs [][]byte
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read session file %s: %w", entry.Name(), err)
		}
		docs = append(docs, data)
	}
	return docs, nil
}

func (f *FileDocStore) Close() error { return nil }

// SQLiteDocStore keeps documents in a single SQLite table.
type SQLiteDocStore struct {
	db *sql.DB
}

// NewSQLiteDocStore opens (or creates) the database at dbPath.
func NewSQLiteDocStore(dbPath string) (*SQLiteDocStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // one writer per session by construction

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id  TEXT PRIMARY KEY,
		doc TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteDocStore{db: db}, nil
}

func (s *SQLiteDocStore) Put(id string, doc []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, doc) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`,
		id, string(doc),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteDocStore) Get(id string) ([]byte, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM sessions WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	return []byte(doc), nil
}

func (s *SQLiteDocStore) List() ([][]byte, error) {
	rows, err := s.db.Query(`SELECT doc FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		docs = append(docs, []byte(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return docs, nil
}

func (s *SQLiteDocStore) Close() error {
	return s.db.Close()
}
