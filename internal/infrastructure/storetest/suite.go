// Package storetest contiene la batería de contrato que toda implementación de
// repository.CollectionStore debe pasar. La usan los tests de memory, sqlite y postgres.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
)

// Factory construye un store vacío para cada subtest.
type Factory func(t *testing.T) repository.CollectionStore

// Run ejecuta todos los casos de contrato.
func Run(t *testing.T, newStore Factory) {
	t.Run("LoadClaveAusente", func(t *testing.T) { testLoadMissing(t, newStore(t)) })
	t.Run("CreaYLee", func(t *testing.T) { testCreateAndLoad(t, newStore(t)) })
	t.Run("VersionObsoletaEsConflicto", func(t *testing.T) { testStaleVersion(t, newStore(t)) })
	t.Run("CommitAtomicoEntreClaves", func(t *testing.T) { testAtomicBatch(t, newStore(t)) })
	t.Run("EscrituraIncondicional", func(t *testing.T) { testAnyVersion(t, newStore(t)) })
	t.Run("AsercionSinPayload", func(t *testing.T) { testAssertion(t, newStore(t)) })
	t.Run("IncrementosConcurrentesSinPerdidas", func(t *testing.T) { testConcurrentCAS(t, newStore(t)) })
}

func testLoadMissing(t *testing.T, s repository.CollectionStore) {
	snaps, err := s.Load(context.Background(), "countries", "products")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Nil(t, snaps["countries"].Payload)
	assert.Equal(t, int64(0), snaps["countries"].Version)
	assert.False(t, snaps["products"].Exists())
}

func testCreateAndLoad(t *testing.T, s repository.CollectionStore) {
	ctx := context.Background()
	versions, err := s.Commit(ctx, repository.Write{Key: "countries", Payload: []byte(`[{"id":"c1"}]`), ExpectedVersion: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(1), versions["countries"])

	snaps, err := s.Load(ctx, "countries")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"c1"}]`, string(snaps["countries"].Payload))
	assert.Equal(t, int64(1), snaps["countries"].Version)

	versions, err = s.Commit(ctx, repository.Write{Key: "countries", Payload: []byte(`[]`), ExpectedVersion: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), versions["countries"])
}

func testStaleVersion(t *testing.T, s repository.CollectionStore) {
	ctx := context.Background()
	_, err := s.Commit(ctx, repository.Write{Key: "statuses", Payload: []byte(`[]`), ExpectedVersion: 0})
	require.NoError(t, err)

	_, err = s.Commit(ctx, repository.Write{Key: "statuses", Payload: []byte(`[{"id":"x"}]`), ExpectedVersion: 0})
	assert.ErrorIs(t, err, domain.ErrConflict, "crear sobre clave existente debe fallar")

	_, err = s.Commit(ctx, repository.Write{Key: "statuses", Payload: []byte(`[{"id":"x"}]`), ExpectedVersion: 7})
	assert.ErrorIs(t, err, domain.ErrConflict)

	snaps, err := s.Load(ctx, "statuses")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(snaps["statuses"].Payload))
	assert.Equal(t, int64(1), snaps["statuses"].Version)
}

func testAtomicBatch(t *testing.T, s repository.CollectionStore) {
	ctx := context.Background()
	_, err := s.Commit(ctx,
		repository.Write{Key: "statusPortfolios", Payload: []byte(`[]`), ExpectedVersion: 0},
		repository.Write{Key: "portfolioStatusView", Payload: []byte(`[]`), ExpectedVersion: 0},
	)
	require.NoError(t, err)

	// La segunda escritura tiene versión obsoleta: la primera tampoco debe aplicarse.
	_, err = s.Commit(ctx,
		repository.Write{Key: "statusPortfolios", Payload: []byte(`[{"id":"sp-1"}]`), ExpectedVersion: 1},
		repository.Write{Key: "portfolioStatusView", Payload: []byte(`[{"productId":"p1"}]`), ExpectedVersion: 3},
	)
	require.ErrorIs(t, err, domain.ErrConflict)

	snaps, err := s.Load(ctx, "statusPortfolios", "portfolioStatusView")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(snaps["statusPortfolios"].Payload))
	assert.Equal(t, int64(1), snaps["statusPortfolios"].Version)
	assert.Equal(t, int64(1), snaps["portfolioStatusView"].Version)
}

func testAnyVersion(t *testing.T, s repository.CollectionStore) {
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		versions, err := s.Commit(ctx, repository.Write{
			Key: "lastUpdate", Payload: []byte(fmt.Sprintf(`["%d"]`, i)), ExpectedVersion: repository.AnyVersion,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i), versions["lastUpdate"])
	}
	snaps, err := s.Load(ctx, "lastUpdate")
	require.NoError(t, err)
	assert.JSONEq(t, `["3"]`, string(snaps["lastUpdate"].Payload))
}

func testAssertion(t *testing.T, s repository.CollectionStore) {
	ctx := context.Background()
	_, err := s.Commit(ctx, repository.Write{Key: "products", Payload: []byte(`[]`), ExpectedVersion: 0})
	require.NoError(t, err)

	versions, err := s.Commit(ctx,
		repository.Write{Key: "products", ExpectedVersion: 1},
		repository.Write{Key: "portfolioStatusView", Payload: []byte(`[]`), ExpectedVersion: 0},
	)
	require.NoError(t, err)
	_, asserted := versions["products"]
	assert.False(t, asserted, "las aserciones no escriben")

	snaps, err := s.Load(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snaps["products"].Version)

	_, err = s.Commit(ctx,
		repository.Write{Key: "products", ExpectedVersion: 0},
		repository.Write{Key: "portfolioStatusView", Payload: []byte(`[1]`), ExpectedVersion: 1},
	)
	require.ErrorIs(t, err, domain.ErrConflict)
	snaps, err = s.Load(ctx, "portfolioStatusView")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snaps["portfolioStatusView"].Version)
}

// testConcurrentCAS: varios escritores hacen leer-modificar-escribir con reintento sobre la misma
// clave; ninguna escritura se pierde.
func testConcurrentCAS(t *testing.T, s repository.CollectionStore) {
	ctx := context.Background()
	const writers = 8
	const perWriter = 5

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := increment(ctx, s); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	snaps, err := s.Load(ctx, "counter")
	require.NoError(t, err)
	var values []int
	require.NoError(t, json.Unmarshal(snaps["counter"].Payload, &values))
	assert.Len(t, values, writers*perWriter)
}

func increment(ctx context.Context, s repository.CollectionStore) error {
	for attempt := 0; attempt < 1000; attempt++ {
		snaps, err := s.Load(ctx, "counter")
		if err != nil {
			return err
		}
		snap := snaps["counter"]
		var values []int
		if snap.Payload != nil {
			if err := json.Unmarshal(snap.Payload, &values); err != nil {
				return err
			}
		}
		values = append(values, len(values))
		payload, _ := json.Marshal(values)
		_, err = s.Commit(ctx, repository.Write{Key: "counter", Payload: payload, ExpectedVersion: snap.Version})
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("demasiados conflictos")
}
