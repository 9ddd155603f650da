// Package memory implementa el puerto CollectionStore en memoria del proceso.
// Sirve para tests y para despliegues de una sola instancia sin persistencia.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
)

var _ repository.CollectionStore = (*CollectionStore)(nil)

type entry struct {
	payload []byte
	version int64
}

// CollectionStore store versionado protegido por un RWMutex. Commit es atómico respecto a Load.
type CollectionStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewCollectionStore construye un store vacío.
func NewCollectionStore() *CollectionStore {
	return &CollectionStore{entries: make(map[string]entry)}
}

// Load devuelve copias de los payloads para que el llamador pueda mutarlos sin afectar al store.
func (s *CollectionStore) Load(ctx context.Context, keys ...string) (map[string]repository.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]repository.Snapshot, len(keys))
	for _, k := range keys {
		e := s.entries[k]
		out[k] = repository.Snapshot{Key: k, Payload: clone(e.payload), Version: e.version}
	}
	return out, nil
}

// Commit valida todas las versiones esperadas antes de aplicar cualquier escritura.
func (s *CollectionStore) Commit(ctx context.Context, writes ...repository.Write) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		if w.ExpectedVersion == repository.AnyVersion {
			continue
		}
		if cur := s.entries[w.Key].version; cur != w.ExpectedVersion {
			return nil, fmt.Errorf("commit %s: esperada v%d, actual v%d: %w", w.Key, w.ExpectedVersion, cur, domain.ErrConflict)
		}
	}
	versions := make(map[string]int64, len(writes))
	for _, w := range writes {
		if w.Payload == nil {
			continue
		}
		next := s.entries[w.Key].version + 1
		s.entries[w.Key] = entry{payload: clone(w.Payload), version: next}
		versions[w.Key] = next
	}
	return versions, nil
}

// Close no hace nada; existe para cumplir el puerto.
func (s *CollectionStore) Close() error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
