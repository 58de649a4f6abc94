// Package store is the content store: uploaded scans and rendered
// reports as blobs keyed by opaque identifiers, backed by SQLite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/gradescan/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		format TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put stores a document and returns its opaque identifier.
func (s *Store) Put(name, contentType string, data []byte) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO files (id, name, content_type, size, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, contentType, len(data), data, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("store file %s: %w", name, err)
	}
	return id, nil
}

// Get returns a stored document's metadata and bytes.
func (s *Store) Get(id string) (model.FileInfo, []byte, error) {
	var info model.FileInfo
	var data []byte
	err := s.db.QueryRow(
		`SELECT id, name, content_type, data, created_at FROM files WHERE id = ?`, id,
	).Scan(&info.ID, &info.Name, &info.ContentType, &data, &info.CreatedAt)
	if err != nil {
		return model.FileInfo{}, nil, err
	}
	return info, data, nil
}

// List returns metadata for all stored documents, newest first.
func (s *Store) List() ([]model.FileInfo, error) {
	rows, err := s.db.Query(
		`SELECT id, name, content_type, created_at FROM files ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []model.FileInfo
	for rows.Next() {
		var f model.FileInfo
		if err := rows.Scan(&f.ID, &f.Name, &f.ContentType, &f.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// SaveReport stores a rendered report artifact for later retrieval.
func (s *Store) SaveReport(sourceName, format string, data []byte) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO reports (id, source_name, format, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, sourceName, format, data, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("store report for %s: %w", sourceName, err)
	}
	return id, nil
}

// GetReport returns a stored report's format and bytes.
func (s *Store) GetReport(id string) (format string, data []byte, err error) {
	err = s.db.QueryRow(
		`SELECT format, data FROM reports WHERE id = ?`, id,
	).Scan(&format, &data)
	return format, data, err
}
