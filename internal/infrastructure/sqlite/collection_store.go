// Package sqlite persiste las colecciones en un archivo SQLite (driver puro Go, sin cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // driver sqlite puro Go

	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
)

var _ repository.CollectionStore = (*CollectionStore)(nil)

// CollectionStore guarda cada colección como un blob JSON versionado en la tabla collections.
// SQLite admite un único escritor; mu serializa los commits de este proceso.
type CollectionStore struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewCollectionStore abre (o crea) la base de datos en path y asegura la tabla.
func NewCollectionStore(path string) (*CollectionStore, error) {
	if path == "" {
		path = "portfolio.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		key        TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		version    INTEGER NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create collections table: %w", err)
	}
	return &CollectionStore{db: db, path: path}, nil
}

// Load lee las claves pedidas con una única consulta.
func (s *CollectionStore) Load(ctx context.Context, keys ...string) (map[string]repository.Snapshot, error) {
	out := make(map[string]repository.Snapshot, len(keys))
	for _, k := range keys {
		out[k] = repository.Snapshot{Key: k}
	}
	if len(keys) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key, payload, version FROM collections WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("select collections: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var snap repository.Snapshot
		if err := rows.Scan(&snap.Key, &snap.Payload, &snap.Version); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[snap.Key] = snap
	}
	return out, rows.Err()
}

// Commit comprueba versiones y escribe dentro de una transacción.
func (s *CollectionStore) Commit(ctx context.Context, writes ...repository.Write) (_ map[string]int64, retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	versions := make(map[string]int64, len(writes))
	for _, w := range writes {
		var current int64
		err := tx.QueryRowContext(ctx, `SELECT version FROM collections WHERE key = ?`, w.Key).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("read version %s: %w", w.Key, err)
		}
		if w.ExpectedVersion != repository.AnyVersion && current != w.ExpectedVersion {
			return nil, fmt.Errorf("commit %s: esperada v%d, actual v%d: %w", w.Key, w.ExpectedVersion, current, domain.ErrConflict)
		}
		if w.Payload == nil {
			continue
		}
		next := current + 1
		if _, err := tx.ExecContext(ctx, `INSERT INTO collections(key, payload, version, updated_at)
			VALUES(?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, version = excluded.version, updated_at = excluded.updated_at`,
			w.Key, w.Payload, next); err != nil {
			return nil, fmt.Errorf("upsert %s: %w", w.Key, err)
		}
		versions[w.Key] = next
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return versions, nil
}

// Close cierra la base de datos.
func (s *CollectionStore) Close() error { return s.db.Close() }

// Path devuelve la ruta configurada.
func (s *CollectionStore) Path() string { return s.path }
