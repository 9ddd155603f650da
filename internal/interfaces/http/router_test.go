package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/portfolio-status-api/internal/application/auth"
	"github.com/jhoicas/portfolio-status-api/internal/application/catalog"
	"github.com/jhoicas/portfolio-status-api/internal/application/dto"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/memory"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/observability"
	apphttp "github.com/jhoicas/portfolio-status-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Servidor completo sobre el store en memoria
// ──────────────────────────────────────────────────────────────────────────────

type server struct {
	app *fiber.App
	svc *portfolio.Service
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()
	metrics := observability.NewMetrics()
	store := observability.NewStore(memory.NewCollectionStore(), metrics)
	svc := portfolio.NewService(store, portfolio.WithMetrics(metrics), portfolio.WithCacheTTL(0))
	require.NoError(t, svc.Migrate(ctx))

	authUC := auth.NewAuthUseCase(svc.Runner(), auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: 5, Issuer: testIssuer}, nil)
	created, err := authUC.EnsureAdmin(ctx, "admin", "admin-password")
	require.NoError(t, err)
	require.True(t, created)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Catalog:     catalog.NewService(svc, nil),
		Portfolio:   svc,
		AuthUC:      authUC,
		JWTSecret:   testJWTSecret,
		StoreDriver: "memory",
		Metrics:     metrics.Handler(),
	})
	return &server{app: app, svc: svc}
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (s *server) login(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

// seedCatalog crea procedimiento, tipo, producto, país y estado vía API.
func (s *server) seedCatalog(t *testing.T, token string) (productID, countryID, statusID string) {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/procedures", token, dto.ProcedureRequest{Name: "ACDF", Category: "CERVICAL"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	proc := decode[entity.Procedure](t, body)

	resp, body = s.do(t, http.MethodPost, "/api/product-types", token, dto.ProductTypeRequest{Name: "Plate"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	pt := decode[entity.ProductType](t, body)

	resp, body = s.do(t, http.MethodPost, "/api/products", token, dto.ProductRequest{
		Name: "Cervical Plate", ProcedureID: proc.ID, ProductTypeID: pt.ID,
		ProductTier: entity.TierOne, ProductLifeCycle: entity.LifeCycleFlagship,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	product := decode[entity.Product](t, body)

	resp, body = s.do(t, http.MethodPost, "/api/countries", token, dto.CountryRequest{Name: "Colombia", Code: "CO"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	country := decode[entity.Country](t, body)

	resp, body = s.do(t, http.MethodPost, "/api/statuses", token, dto.StatusRequest{Code: "AVAILABLE", Name: "Available", Color: "#00FF00"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	status := decode[entity.Status](t, body)

	return product.ID, country.ID, status.ID
}

// ──────────────────────────────────────────────────────────────────────────────
// Rutas públicas
// ──────────────────────────────────────────────────────────────────────────────

func TestHealthYMetrics(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	h := decode[dto.HealthResponse](t, body)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "memory", h.Store)

	resp, body = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "portfolio_store_operations_total")
}

func TestLogin_CredencialesInvalidas(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Username: "admin", Password: "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "UNAUTHORIZED")

	resp, _ = s.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Username: "nadie", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "password")
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo: catálogo → estado → vista → exportaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestFlujo_ActualizarEstadoYLeerVista(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "admin", "admin-password")
	productID, countryID, statusID := s.seedCatalog(t, token)

	resp, body := s.do(t, http.MethodPut, "/api/portfolio/status", token, dto.StatusUpdateRequest{
		ProductID: productID, CountryID: countryID, StatusID: statusID, SetsQty: "12",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	res := decode[portfolio.BulkResult](t, body)
	assert.Equal(t, 1, res.Applied)

	resp, body = s.do(t, http.MethodGet, "/api/portfolio/view", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[dto.PortfolioViewResponse](t, body)
	require.Len(t, view.Items, 1)
	require.Len(t, view.Items[0].CountryStatuses, 1)
	assert.Equal(t, "AVAILABLE", view.Items[0].CountryStatuses[0].StatusCode)
	assert.Equal(t, "12", view.Items[0].CountryStatuses[0].SetsQty)
	assert.NotNil(t, view.LastUpdate)

	resp, body = s.do(t, http.MethodGet, "/api/status-portfolios", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sp := decode[dto.ListResponse[entity.StatusPortfolio]](t, body)
	assert.Equal(t, 1, sp.Total)

	resp, body = s.do(t, http.MethodGet, "/api/portfolio/export.csv", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Colombia")

	// statusId vacío elimina la asignación
	resp, body = s.do(t, http.MethodPost, "/api/portfolio/status/bulk", token, dto.BulkStatusUpdateRequest{
		Updates: []dto.StatusUpdateRequest{{ProductID: productID, CountryID: countryID}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 1, decode[portfolio.BulkResult](t, body).Removed)

	resp, body = s.do(t, http.MethodPost, "/api/portfolio/rebuild", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	rebuilt := decode[portfolio.RebuildResult](t, body)
	require.Len(t, rebuilt.Rows, 1)
	assert.Empty(t, rebuilt.Rows[0].CountryStatuses)
}

func TestUpdateStatus_ReferenciaInexistenteSeGuardaConAviso(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "admin", "admin-password")
	_, countryID, statusID := s.seedCatalog(t, token)

	resp, body := s.do(t, http.MethodPut, "/api/portfolio/status", token, dto.StatusUpdateRequest{
		ProductID: "no-existe", CountryID: countryID, StatusID: statusID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decode[portfolio.BulkResult](t, body)
	assert.Equal(t, 1, out.Applied)
	require.Len(t, out.Dangling, 1)
	assert.Equal(t, portfolio.ReasonMissingProduct, out.Dangling[0].Reason)

	resp, body = s.do(t, http.MethodGet, "/api/status-portfolios", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "no-existe")

	resp, body = s.do(t, http.MethodPost, "/api/portfolio/status/bulk", token, dto.BulkStatusUpdateRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "updates")
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores de catálogo
// ──────────────────────────────────────────────────────────────────────────────

func TestCatalogo_ErroresMapeados(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "admin", "admin-password")
	productID, _, _ := s.seedCatalog(t, token)

	resp, body := s.do(t, http.MethodPost, "/api/countries", token, dto.CountryRequest{Code: "PE"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "VALIDATION")
	assert.Contains(t, string(body), "name")

	resp, body = s.do(t, http.MethodPost, "/api/countries", token, dto.CountryRequest{Name: "colombia", Code: "CO2"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "DUPLICATE")

	resp, body = s.do(t, http.MethodGet, "/api/products", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	products := decode[dto.ListResponse[entity.Product]](t, body)
	require.Len(t, products.Items, 1)

	resp, body = s.do(t, http.MethodDelete, "/api/procedures/"+products.Items[0].ProcedureID, token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "IN_USE")

	resp, _ = s.do(t, http.MethodDelete, "/api/countries/no-existe", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/products/"+productID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = s.do(t, http.MethodPut, "/api/products", token, "no es un arreglo")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "INVALID_BODY")
}

// ──────────────────────────────────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────────────────────────────────

func TestRoles_ViewerSoloLectura(t *testing.T) {
	s := newServer(t)
	admin := s.login(t, "admin", "admin-password")
	productID, countryID, statusID := s.seedCatalog(t, admin)

	resp, body := s.do(t, http.MethodPost, "/api/users", admin, dto.CreateUserRequest{
		Username: "lector", Password: "lector-password", Name: "Lector", Role: entity.RoleViewer,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = s.do(t, http.MethodPost, "/api/users", admin, dto.CreateUserRequest{
		Username: "editor1", Password: "editor-password", Name: "Editor", Role: entity.RoleEditor,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	viewer := s.login(t, "lector", "lector-password")
	editor := s.login(t, "editor1", "editor-password")

	resp, _ = s.do(t, http.MethodGet, "/api/portfolio/view", viewer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	update := dto.StatusUpdateRequest{ProductID: productID, CountryID: countryID, StatusID: statusID}
	resp, _ = s.do(t, http.MethodPut, "/api/portfolio/status", viewer, update)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPut, "/api/portfolio/status", editor, update)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/portfolio/rebuild", editor, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/countries/"+countryID, editor, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/users", editor, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/users", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decode[dto.ListResponse[dto.UserResponse]](t, body)
	assert.Equal(t, 3, users.Total)
	assert.NotContains(t, string(body), "passwordHash")

	resp, _ = s.do(t, http.MethodGet, "/api/portfolio/view", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSnapshot_SinDestinoEs503(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "admin", "admin-password")

	resp, body := s.do(t, http.MethodPost, "/api/portfolio/snapshots", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "EXPORT_DISABLED")
}
