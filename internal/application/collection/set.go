package collection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

// Decode interpreta el payload como arreglo de T. Ausente o ilegible devuelve un slice vacío;
// lo ilegible se registra en warn.
func Decode[T any](snap repository.Snapshot, log *logger.Logger) []T {
	if len(snap.Payload) == 0 {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(snap.Payload, &items); err != nil {
		if log != nil {
			log.Warn().Err(err).Str("key", snap.Key).Int64("version", snap.Version).Msg("colección ilegible, se trata como vacía")
		}
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// Encode serializa siempre un arreglo JSON (nunca null).
func Encode[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("serializar colección: %w", err)
	}
	return b, nil
}

// Set instantánea de varias colecciones más las escrituras pendientes, con la versión leída
// de cada clave como ExpectedVersion.
type Set struct {
	snaps  map[string]repository.Snapshot
	writes map[string]repository.Write
	order  []string
	log    *logger.Logger
}

func newSet(snaps map[string]repository.Snapshot, log *logger.Logger) *Set {
	return &Set{snaps: snaps, writes: map[string]repository.Write{}, log: log}
}

// Snapshot devuelve la instantánea leída de key.
func (s *Set) Snapshot(key string) repository.Snapshot {
	snap, ok := s.snaps[key]
	if !ok {
		return repository.Snapshot{Key: key}
	}
	return snap
}

// Version versión leída de key (0 si ausente).
func (s *Set) Version(key string) int64 { return s.Snapshot(key).Version }

// Versions versiones leídas de keys.
func (s *Set) Versions(keys ...string) map[string]int64 {
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		out[k] = s.Version(k)
	}
	return out
}

// Get decodifica la colección key.
func Get[T any](s *Set, key string) []T {
	return Decode[T](s.Snapshot(key), s.log)
}

// Put deja pendiente la escritura de key condicionada a la versión leída.
func Put[T any](s *Set, key string, items []T) error {
	payload, err := Encode(items)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	s.stage(repository.Write{Key: key, Payload: payload, ExpectedVersion: s.Version(key)})
	return nil
}

// Assert exige que keys no cambien hasta el commit, sin escribirlas.
func (s *Set) Assert(keys ...string) {
	for _, k := range keys {
		if _, staged := s.writes[k]; staged {
			continue
		}
		s.stage(repository.Write{Key: k, ExpectedVersion: s.Version(k)})
	}
}

func (s *Set) stage(w repository.Write) {
	if _, ok := s.writes[w.Key]; !ok {
		s.order = append(s.order, w.Key)
	}
	s.writes[w.Key] = w
}

// Dirty informa si hay escrituras con payload pendientes.
func (s *Set) Dirty() bool {
	for _, w := range s.writes {
		if w.Payload != nil {
			return true
		}
	}
	return false
}

// Writes escrituras pendientes en el orden en que se registraron.
func (s *Set) Writes() []repository.Write {
	out := make([]repository.Write, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.writes[k])
	}
	return out
}

// Load lee keys en una sola instantánea.
func Load(ctx context.Context, store repository.CollectionStore, log *logger.Logger, keys ...string) (*Set, error) {
	snaps, err := store.Load(ctx, keys...)
	if err != nil {
		return nil, err
	}
	return newSet(snaps, log), nil
}
