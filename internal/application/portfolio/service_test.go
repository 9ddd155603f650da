package portfolio_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/memory"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.CollectionStore
	svc   *portfolio.Service
}

func put[T any](t *testing.T, store repository.CollectionStore, key string, items []T) {
	t.Helper()
	payload, err := collection.Encode(items)
	require.NoError(t, err)
	_, err = store.Commit(context.Background(), repository.Write{Key: key, Payload: payload, ExpectedVersion: repository.AnyVersion})
	require.NoError(t, err)
}

func read[T any](t *testing.T, store repository.CollectionStore, key string) []T {
	t.Helper()
	snaps, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	return collection.Decode[T](snaps[key], nil)
}

func version(t *testing.T, store repository.CollectionStore, key string) int64 {
	t.Helper()
	snaps, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	return snaps[key].Version
}

// newFixture siembra el escenario base: p1 (ACDF / Plate), país c1 y estado s1. Caché desactivada.
func newFixture(t *testing.T, opts ...portfolio.Option) *fixture {
	t.Helper()
	store := memory.NewCollectionStore()
	put(t, store, collection.Products, []entity.Product{
		{ID: "p1", Name: "Cervical Plate", ProcedureID: "proc1", ProductTypeID: "pt1", ProductTier: entity.TierOne, ProductLifeCycle: entity.LifeCycleFlagship, IsActive: true},
	})
	put(t, store, collection.Procedures, []entity.Procedure{{ID: "proc1", Name: "ACDF", Category: "CERVICAL", IsActive: true}})
	put(t, store, collection.ProductTypes, []entity.ProductType{{ID: "pt1", Name: "Plate", IsActive: true}})
	put(t, store, collection.StatusPortfolios, []entity.StatusPortfolio{})
	put(t, store, collection.Countries, []entity.Country{
		{ID: "c1", Name: "Colombia", Code: "CO", IsActive: true},
		{ID: "c2", Name: "Mexico", Code: "MX", IsActive: true},
	})
	put(t, store, collection.Statuses, []entity.Status{
		{ID: "s1", Code: "AVAILABLE", Name: "Available", Color: "#00FF00", IsActive: true},
		{ID: "s2", Code: "RA_SUBMITTED", Name: "RA Submitted", Color: "#0000FF", IsActive: true},
		entity.NoneStatus(),
	})

	base := []portfolio.Option{portfolio.WithClock(func() time.Time { return fixedNow }), portfolio.WithCacheTTL(0)}
	return &fixture{store: store, svc: portfolio.NewService(store, append(base, opts...)...)}
}

// assertViewMatchesRebuild comprueba que la vista persistida es idéntica a una reconstrucción pura.
func assertViewMatchesRebuild(t *testing.T, store repository.CollectionStore) {
	t.Helper()
	snaps, err := store.Load(context.Background(), collection.ViewSources...)
	require.NoError(t, err)
	src := portfolio.Sources{
		Products:         collection.Decode[entity.Product](snaps[collection.Products], nil),
		Procedures:       collection.Decode[entity.Procedure](snaps[collection.Procedures], nil),
		ProductTypes:     collection.Decode[entity.ProductType](snaps[collection.ProductTypes], nil),
		StatusPortfolios: collection.Decode[entity.StatusPortfolio](snaps[collection.StatusPortfolios], nil),
		Countries:        collection.Decode[entity.Country](snaps[collection.Countries], nil),
		Statuses:         collection.Decode[entity.Status](snaps[collection.Statuses], nil),
	}
	want, err := collection.Encode(portfolio.BuildView(src).Rows)
	require.NoError(t, err)

	stored := read[entity.PortfolioStatusView](t, store, collection.PortfolioStatusView)
	got, err := collection.Encode(stored)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

// ─── Escenarios de ejemplo ───────────────────────────────────────────────────

func TestScenario_RebuildLuegoUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.RebuildPortfolioStatusView(ctx)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "p1", res.Rows[0].ProductID)
	assert.Equal(t, "CERVICAL", res.Rows[0].Category)
	assert.Equal(t, "ACDF", res.Rows[0].Procedure)
	assert.Equal(t, "Plate", res.Rows[0].ProductType)
	assert.Empty(t, res.Rows[0].CountryStatuses)

	_, err = f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "p1", CountryID: "c1", StatusID: "s1", SetsQty: "4"})
	require.NoError(t, err)

	view, err := f.svc.GetPortfolioStatusView(ctx)
	require.NoError(t, err)
	require.Len(t, view, 1)
	require.Len(t, view[0].CountryStatuses, 1)
	cs := view[0].CountryStatuses[0]
	assert.Equal(t, "c1", cs.CountryID)
	assert.Equal(t, "Colombia", cs.CountryName)
	assert.Equal(t, "s1", cs.StatusID)
	assert.Equal(t, "AVAILABLE", cs.StatusCode)
	assert.Equal(t, "#00FF00", cs.StatusColor)
	assert.Equal(t, "4", cs.SetsQty)
	assert.True(t, fixedNow.Equal(cs.LastUpdated))
	assertViewMatchesRebuild(t, f.store)
}

func TestScenario_BulkDeleteEliminaAsignacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "p1", CountryID: "c1", StatusID: "s1", SetsQty: "4"})
	require.NoError(t, err)

	res, err := f.svc.BulkUpdateStatus(ctx, []portfolio.StatusUpdate{{ProductID: "p1", CountryID: "c1", StatusID: ""}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	assert.Empty(t, read[entity.StatusPortfolio](t, f.store, collection.StatusPortfolios))
	view, err := f.svc.GetPortfolioStatusView(ctx)
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Empty(t, view[0].CountryStatuses)
	assertViewMatchesRebuild(t, f.store)
}

// ─── Propiedades ─────────────────────────────────────────────────────────────

func TestRebuild_Idempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.BulkUpdateStatus(ctx, []portfolio.StatusUpdate{
		{ProductID: "p1", CountryID: "c1", StatusID: "s1", SetsQty: "2"},
		{ProductID: "p1", CountryID: "c2", StatusID: "s2"},
	})
	require.NoError(t, err)

	_, err = f.svc.RebuildPortfolioStatusView(ctx)
	require.NoError(t, err)
	first, err := f.store.Load(ctx, collection.PortfolioStatusView)
	require.NoError(t, err)

	_, err = f.svc.RebuildPortfolioStatusView(ctx)
	require.NoError(t, err)
	second, err := f.store.Load(ctx, collection.PortfolioStatusView)
	require.NoError(t, err)

	assert.Equal(t, first[collection.PortfolioStatusView].Payload, second[collection.PortfolioStatusView].Payload)
}

func TestUpdate_UpsertUnaFilaPorPar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "p1", CountryID: "c1", StatusID: "s1", SetsQty: "4", Notes: "inicial"})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "p1", CountryID: "c1", StatusID: "s2", SetsQty: "6"})
	require.NoError(t, err)

	rows := read[entity.StatusPortfolio](t, f.store, collection.StatusPortfolios)
	require.Len(t, rows, 1)
	assert.Equal(t, "s2", rows[0].StatusID)
	assert.Equal(t, "6", rows[0].SetsQty)
	assert.Empty(t, rows[0].Notes, "notes se sobrescribe siempre")
	assert.Regexp(t, `^sp-\d+-[0-9a-f]{8}$`, rows[0].ID)
	assertViewMatchesRebuild(t, f.store)
}

func TestBulk_UltimaEscrituraGanaDentroDelLote(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.BulkUpdateStatus(context.Background(), []portfolio.StatusUpdate{
		{ProductID: "p1", CountryID: "c1", StatusID: "s1", SetsQty: "1"},
		{ProductID: "p1", CountryID: "c1", StatusID: "s2", SetsQty: "9"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)

	rows := read[entity.StatusPortfolio](t, f.store, collection.StatusPortfolios)
	require.Len(t, rows, 1)
	assert.Equal(t, "s2", rows[0].StatusID)
	assert.Equal(t, "9", rows[0].SetsQty)

	view := read[entity.PortfolioStatusView](t, f.store, collection.PortfolioStatusView)
	require.Len(t, view, 1)
	require.Len(t, view[0].CountryStatuses, 1)
	assert.Equal(t, "s2", view[0].CountryStatuses[0].StatusID)
}

func TestRebuild_OmiteReferenciasColgantes(t *testing.T) {
	f := newFixture(t)
	put(t, f.store, collection.Products, []entity.Product{
		{ID: "p1", Name: "Cervical Plate", ProcedureID: "proc1", ProductTypeID: "pt1", IsActive: true},
		{ID: "p2", Name: "Orphan", ProcedureID: "ghost", ProductTypeID: "pt1", IsActive: true},
		{ID: "p3", Name: "Sin tipo", ProcedureID: "proc1", ProductTypeID: "ghost", IsActive: true},
		{ID: "p4", Name: "Inactivo", ProcedureID: "proc1", ProductTypeID: "pt1", IsActive: false},
	})
	put(t, f.store, collection.StatusPortfolios, []entity.StatusPortfolio{
		{ID: "sp-1", ProductID: "p1", CountryID: "c1", StatusID: "s1"},
		{ID: "sp-2", ProductID: "p1", CountryID: "zz", StatusID: "s1"},
		{ID: "sp-3", ProductID: "p1", CountryID: "c2", StatusID: "nope"},
	})

	res, err := f.svc.RebuildPortfolioStatusView(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "p1", res.Rows[0].ProductID)
	require.Len(t, res.Rows[0].CountryStatuses, 1)
	assert.Equal(t, "c1", res.Rows[0].CountryStatuses[0].CountryID)

	reasons := map[string]string{}
	for _, sk := range res.Skipped {
		reasons[sk.ID] = sk.Reason
	}
	assert.Equal(t, map[string]string{
		"p2":   portfolio.ReasonMissingProcedure,
		"p3":   portfolio.ReasonMissingProductType,
		"sp-2": portfolio.ReasonMissingCountry,
		"sp-3": portfolio.ReasonMissingStatus,
	}, reasons)
}

func TestBootstrap_Idempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.EnsureReadyToOrderStatus(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	for i := 0; i < 5; i++ {
		created, err = f.svc.EnsureReadyToOrderStatus(ctx)
		require.NoError(t, err)
		assert.False(t, created)
		_, err = f.svc.GetStatuses(ctx)
		require.NoError(t, err)
	}

	statuses := read[entity.Status](t, f.store, collection.Statuses)
	n := 0
	for _, st := range statuses {
		if st.IsReadyToOrder() {
			n++
			assert.Equal(t, fmt.Sprintf("status-available-to-order-%d", fixedNow.UnixMilli()), st.ID)
			assert.Equal(t, "#FFA500", st.Color)
			assert.True(t, st.IsActive)
		}
	}
	assert.Equal(t, 1, n)
}

func TestBootstrap_ReconocePorCodigo(t *testing.T) {
	f := newFixture(t)
	put(t, f.store, collection.Statuses, []entity.Status{{ID: "custom", Code: entity.ReadyToOrderCode, Name: "Listo"}})

	require.NoError(t, f.svc.Migrate(context.Background()))
	statuses := read[entity.Status](t, f.store, collection.Statuses)
	require.Len(t, statuses, 2, "solo se agrega el centinela None")
	assert.Equal(t, entity.NoneStatusID, statuses[1].ID)
}

func TestGetters_NoEscriben(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.RebuildPortfolioStatusView(ctx)
	require.NoError(t, err)
	before := version(t, f.store, collection.PortfolioStatusView)
	statusesBefore := version(t, f.store, collection.Statuses)

	for i := 0; i < 3; i++ {
		_, err = f.svc.GetProcedures(ctx)
		require.NoError(t, err)
		_, err = f.svc.GetStatuses(ctx)
		require.NoError(t, err)
		_, err = f.svc.GetPortfolioStatusView(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, before, version(t, f.store, collection.PortfolioStatusView))
	assert.Equal(t, statusesBefore, version(t, f.store, collection.Statuses))
}

func TestView_ObsoletaSeReconstruyeAlLeer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "p1", CountryID: "c1", StatusID: "s1"})
	require.NoError(t, err)

	// Cambio de una fuente por fuera del servicio.
	put(t, f.store, collection.Countries, []entity.Country{{ID: "c1", Name: "Colombia (CO)", Code: "CO", IsActive: true}})

	view, err := f.svc.GetPortfolioStatusView(ctx)
	require.NoError(t, err)
	require.Len(t, view[0].CountryStatuses, 1)
	assert.Equal(t, "Colombia (CO)", view[0].CountryStatuses[0].CountryName)
	assertViewMatchesRebuild(t, f.store)
}

func TestBulk_VistaObsoletaSeRecalculaEnElCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Vista escrita a mano, sin meta: obsoleta.
	put(t, f.store, collection.PortfolioStatusView, []entity.PortfolioStatusView{{ProductID: "ghost"}})

	_, err := f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "p1", CountryID: "c2", StatusID: "s2", SetsQty: "1"})
	require.NoError(t, err)
	assertViewMatchesRebuild(t, f.store)
}

func TestUpdate_CreaFilaDeVistaYEntradaFaltantes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.RebuildPortfolioStatusView(ctx)
	require.NoError(t, err)

	// Producto nuevo activo, la vista todavía no tiene su fila.
	put(t, f.store, collection.Products, []entity.Product{
		{ID: "p1", Name: "Cervical Plate", ProcedureID: "proc1", ProductTypeID: "pt1", IsActive: true},
		{ID: "p2", Name: "Retractor X", ProcedureID: "proc1", ProductTypeID: "pt1", IsActive: true},
	})
	_, err = f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "p2", CountryID: "c1", StatusID: "s1"})
	require.NoError(t, err)

	view := read[entity.PortfolioStatusView](t, f.store, collection.PortfolioStatusView)
	require.Len(t, view, 2)
	assert.Equal(t, "p2", view[1].ProductID)
	require.Len(t, view[1].CountryStatuses, 1)
	assertViewMatchesRebuild(t, f.store)
}

func TestUpdate_ProductoInactivoGuardaFilaSinVista(t *testing.T) {
	f := newFixture(t)
	put(t, f.store, collection.Products, []entity.Product{
		{ID: "p1", Name: "Cervical Plate", ProcedureID: "proc1", ProductTypeID: "pt1", IsActive: false},
	})
	res, err := f.svc.UpdateStatus(context.Background(), portfolio.StatusUpdate{ProductID: "p1", CountryID: "c1", StatusID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	assert.Len(t, read[entity.StatusPortfolio](t, f.store, collection.StatusPortfolios), 1)
	assert.Empty(t, read[entity.PortfolioStatusView](t, f.store, collection.PortfolioStatusView))
}

func TestUpdate_ReferenciasFaltantesGuardanFila(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "p1", CountryID: "c9", StatusID: "s1", SetsQty: "4"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	require.Len(t, res.Dangling, 1)
	assert.Equal(t, portfolio.ReasonMissingCountry, res.Dangling[0].Reason)

	rows := read[entity.StatusPortfolio](t, f.store, collection.StatusPortfolios)
	require.Len(t, rows, 1, "la fila se guarda aunque el país no exista")
	assert.Equal(t, "c9", rows[0].CountryID)
	assert.Equal(t, "4", rows[0].SetsQty)

	view := read[entity.PortfolioStatusView](t, f.store, collection.PortfolioStatusView)
	require.Len(t, view, 1)
	assert.Empty(t, view[0].CountryStatuses, "la vista omite la referencia colgante")
	assertViewMatchesRebuild(t, f.store)

	_, err = f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "", CountryID: "c1", StatusID: "s1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBulk_ReferenciasFaltantesSeInformanComoAviso(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "p1", CountryID: "c1", StatusID: "s1"})
	require.NoError(t, err)

	res, err := f.svc.BulkUpdateStatus(ctx, []portfolio.StatusUpdate{
		{ProductID: "nope", CountryID: "c1", StatusID: "s1"},
		{ProductID: "p1", CountryID: "c1", StatusID: "s-new"},
		{ProductID: "", CountryID: "c1", StatusID: "s1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, portfolio.ReasonInvalidRequest, res.Skipped[0].Reason)
	require.Len(t, res.Dangling, 2)
	assert.Equal(t, portfolio.SkippedUpdate{Index: 0, ProductID: "nope", CountryID: "c1", Reason: portfolio.ReasonMissingProduct}, res.Dangling[0])
	assert.Equal(t, portfolio.ReasonMissingStatus, res.Dangling[1].Reason)

	rows := read[entity.StatusPortfolio](t, f.store, collection.StatusPortfolios)
	require.Len(t, rows, 2)
	var p1 entity.StatusPortfolio
	for _, sp := range rows {
		if sp.ProductID == "p1" {
			p1 = sp
		}
	}
	assert.Equal(t, "s-new", p1.StatusID, "exactamente una fila por par con el último estado")

	view := read[entity.PortfolioStatusView](t, f.store, collection.PortfolioStatusView)
	require.Len(t, view, 1)
	assert.Empty(t, view[0].CountryStatuses, "la entrada anterior desaparece al quedar sin estado válido")
	assertViewMatchesRebuild(t, f.store)
}

func TestBulk_BorradoSinCoincidenciasEsNoop(t *testing.T) {
	f := newFixture(t)
	before := version(t, f.store, collection.StatusPortfolios)
	res, err := f.svc.BulkUpdateStatus(context.Background(), []portfolio.StatusUpdate{{ProductID: "p1", CountryID: "c2"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Removed)
	assert.Equal(t, before, version(t, f.store, collection.StatusPortfolios))
	assert.Equal(t, int64(0), version(t, f.store, collection.LastUpdate))
}

func TestBulk_EscribeMarcaLastUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.UpdateStatus(ctx, portfolio.StatusUpdate{ProductID: "p1", CountryID: "c1", StatusID: "s1"})
	require.NoError(t, err)

	last, err := f.svc.GetLastUpdate(ctx)
	require.NoError(t, err)
	assert.True(t, fixedNow.Equal(last))
}

func TestUpdate_MezclaDeOperacionesCoincideConRebuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.RebuildPortfolioStatusView(ctx)
	require.NoError(t, err)

	steps := [][]portfolio.StatusUpdate{
		{{ProductID: "p1", CountryID: "c1", StatusID: "s1", SetsQty: "1"}},
		{{ProductID: "p1", CountryID: "c2", StatusID: "s2", SetsQty: "2"}},
		{{ProductID: "p1", CountryID: "c1", StatusID: "s2"}, {ProductID: "p1", CountryID: "c2"}},
		{{ProductID: "p1", CountryID: "c2", StatusID: entity.NoneStatusID}},
	}
	for _, batch := range steps {
		_, err := f.svc.BulkUpdateStatus(ctx, batch)
		require.NoError(t, err)
		assertViewMatchesRebuild(t, f.store)
	}
	view := read[entity.PortfolioStatusView](t, f.store, collection.PortfolioStatusView)
	require.Len(t, view[0].CountryStatuses, 2)
	assert.Equal(t, "None", view[0].CountryStatuses[1].StatusName, "el centinela es un estado normal")
}

// ─── Concurrencia ────────────────────────────────────────────────────────────

func TestBulk_ConcurrentesNoPierdenEscrituras(t *testing.T) {
	store := memory.NewCollectionStore()
	const products = 6
	var ps []entity.Product
	for i := 0; i < products; i++ {
		ps = append(ps, entity.Product{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("P%d", i), ProcedureID: "proc1", ProductTypeID: "pt1", IsActive: true})
	}
	put(t, store, collection.Products, ps)
	put(t, store, collection.Procedures, []entity.Procedure{{ID: "proc1", Name: "ACDF", Category: "CERVICAL"}})
	put(t, store, collection.ProductTypes, []entity.ProductType{{ID: "pt1", Name: "Plate"}})
	put(t, store, collection.Countries, []entity.Country{{ID: "c1", Name: "Colombia"}, {ID: "c2", Name: "Mexico"}})
	put(t, store, collection.Statuses, []entity.Status{{ID: "s1", Name: "Available"}})

	svc := portfolio.NewService(store, portfolio.WithConflictRetries(1000), portfolio.WithCacheTTL(0))

	var wg sync.WaitGroup
	errs := make(chan error, products*2)
	for i := 0; i < products; i++ {
		for _, c := range []string{"c1", "c2"} {
			wg.Add(1)
			go func(p, c string) {
				defer wg.Done()
				_, err := svc.UpdateStatus(context.Background(), portfolio.StatusUpdate{ProductID: p, CountryID: c, StatusID: "s1"})
				errs <- err
			}(fmt.Sprintf("p%d", i), c)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, read[entity.StatusPortfolio](t, store, collection.StatusPortfolios), products*2)
	view, err := svc.GetPortfolioStatusView(context.Background())
	require.NoError(t, err)
	for _, row := range view {
		assert.Len(t, row.CountryStatuses, 2, row.ProductID)
	}
	assertViewMatchesRebuild(t, store)
}

// ─── Errores del store ───────────────────────────────────────────────────────

type brokenStore struct{ memory.CollectionStore }

func (*brokenStore) Load(context.Context, ...string) (map[string]repository.Snapshot, error) {
	return nil, fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
}

func TestGetters_DistinguenStoreCaido(t *testing.T) {
	svc := portfolio.NewService(&brokenStore{})
	_, err := svc.GetCountries(context.Background())
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	_, err = svc.BulkUpdateStatus(context.Background(), []portfolio.StatusUpdate{{ProductID: "p1", CountryID: "c1", StatusID: "s1"}})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
