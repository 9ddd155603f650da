package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
)

var _ repository.CollectionStore = (*CollectionStore)(nil)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS collections (
	key        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	version    BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Querier abstrae pool o tx para ejecutar consultas.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CollectionStore implementación del puerto CollectionStore sobre una tabla JSONB versionada.
type CollectionStore struct {
	pool *pgxpool.Pool
}

// NewCollectionStore construye el adaptador y asegura que la tabla exista.
func NewCollectionStore(ctx context.Context, pool *pgxpool.Pool) (*CollectionStore, error) {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("ensure collections table: %w", err)
	}
	return &CollectionStore{pool: pool}, nil
}

// Load lee todas las claves con una sola sentencia, lo que da una instantánea consistente.
func (s *CollectionStore) Load(ctx context.Context, keys ...string) (map[string]repository.Snapshot, error) {
	return load(ctx, s.pool, keys)
}

func load(ctx context.Context, q Querier, keys []string) (map[string]repository.Snapshot, error) {
	out := make(map[string]repository.Snapshot, len(keys))
	for _, k := range keys {
		out[k] = repository.Snapshot{Key: k}
	}
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `SELECT key, payload::text, version FROM collections WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("select collections: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key     string
			payload string
			version int64
		)
		if err := rows.Scan(&key, &payload, &version); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out[key] = repository.Snapshot{Key: key, Payload: []byte(payload), Version: version}
	}
	return out, rows.Err()
}

// Commit aplica las escrituras en una transacción. Las condiciones de versión se evalúan en la
// propia sentencia (UPDATE ... WHERE version = $n), así que dos commits concurrentes no se pisan.
func (s *CollectionStore) Commit(ctx context.Context, writes ...repository.Write) (map[string]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	versions := make(map[string]int64, len(writes))
	for _, w := range writes {
		next, err := applyWrite(ctx, tx, w)
		if err != nil {
			if isUniqueViolation(err) || isSerializationFailure(err) {
				return nil, fmt.Errorf("commit %s: %v: %w", w.Key, err, domain.ErrConflict)
			}
			return nil, err
		}
		if w.Payload != nil {
			versions[w.Key] = next
		}
	}
	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return nil, fmt.Errorf("commit transaction: %v: %w", err, domain.ErrConflict)
		}
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return versions, nil
}

func applyWrite(ctx context.Context, q Querier, w repository.Write) (int64, error) {
	if w.Payload == nil {
		return 0, assertVersion(ctx, q, w)
	}
	var (
		next int64
		err  error
	)
	switch {
	case w.ExpectedVersion == repository.AnyVersion:
		err = q.QueryRow(ctx, `
			INSERT INTO collections (key, payload, version, updated_at) VALUES ($1, $2::jsonb, 1, now())
			ON CONFLICT (key) DO UPDATE
			SET payload = excluded.payload, version = collections.version + 1, updated_at = now()
			RETURNING version`, w.Key, string(w.Payload)).Scan(&next)
	case w.ExpectedVersion == 0:
		err = q.QueryRow(ctx, `
			INSERT INTO collections (key, payload, version, updated_at) VALUES ($1, $2::jsonb, 1, now())
			ON CONFLICT (key) DO NOTHING
			RETURNING version`, w.Key, string(w.Payload)).Scan(&next)
	default:
		err = q.QueryRow(ctx, `
			UPDATE collections SET payload = $2::jsonb, version = version + 1, updated_at = now()
			WHERE key = $1 AND version = $3
			RETURNING version`, w.Key, string(w.Payload), w.ExpectedVersion).Scan(&next)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("commit %s: versión esperada v%d obsoleta: %w", w.Key, w.ExpectedVersion, domain.ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("write collection %s: %w", w.Key, err)
	}
	return next, nil
}

// assertVersion bloquea la fila en modo compartido hasta el fin de la tx para que nadie la cambie
// entre la comprobación y el commit.
func assertVersion(ctx context.Context, q Querier, w repository.Write) error {
	if w.ExpectedVersion == repository.AnyVersion {
		return nil
	}
	var current int64
	err := q.QueryRow(ctx, `SELECT version FROM collections WHERE key = $1 FOR SHARE`, w.Key).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		current = 0
	} else if err != nil {
		return fmt.Errorf("assert collection %s: %w", w.Key, err)
	}
	if current != w.ExpectedVersion {
		return fmt.Errorf("assert %s: esperada v%d, actual v%d: %w", w.Key, w.ExpectedVersion, current, domain.ErrConflict)
	}
	return nil
}

// Close cierra el pool.
func (s *CollectionStore) Close() error {
	s.pool.Close()
	return nil
}
