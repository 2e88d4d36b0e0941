package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/ec-inventory/internal/auth"
	"github.com/example/ec-inventory/internal/command"
	"github.com/example/ec-inventory/internal/domain/inventory"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/example/ec-inventory/internal/projection"
	"github.com/example/ec-inventory/internal/query"
	"github.com/example/ec-inventory/internal/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

type testServer struct {
	handler    http.Handler
	jwtService *auth.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	readStore := store.NewReadStore()
	projector := projection.NewProjector(readStore, logger)
	eventStore := store.NewEventStore(projector)

	operator := inventory.NewOperator(logger, noop.NewMeterProvider().Meter("test"))
	service := inventory.NewService(eventStore, operator, logger, 3)
	handlers := NewHandlers(command.NewHandler(service, logger), query.NewHandler(readStore), logger)

	jwtService := auth.NewJWTService("test-secret-key-at-least-32-characters", "ec-inventory", time.Hour)
	return &testServer{
		handler:    NewRouter(handlers, jwtService, logger),
		jwtService: jwtService,
	}
}

func (s *testServer) do(t *testing.T, role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if role != "" {
		token, _, err := s.jwtService.IssueToken("tester", role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, code string, tracked bool, onHand int) {
	t.Helper()
	rec := s.do(t, auth.RoleAdmin, http.MethodPost, "/variants", command.RegisterVariant{
		Code: code, Name: code + " name", Tracked: tracked, OnHand: onHand,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func orderBody(state inventory.PaymentState, code string, quantity int) map[string]any {
	return map[string]any{
		"payment_state": state,
		"items":         []map[string]any{{"variant_code": code, "quantity": quantity}},
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAPI_Healthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "", http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "", http.MethodGet, "/variants", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_MutationsRequireAdmin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, auth.RoleViewer, http.MethodPost, "/variants", command.RegisterVariant{Code: "SKU-1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, auth.RoleService, http.MethodPost, "/variants", command.RegisterVariant{Code: "SKU-1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_RegisterAndRead(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "SKU-1", true, 10)

	rec := s.do(t, auth.RoleViewer, http.MethodGet, "/variants/SKU-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeBody[readmodel.VariantReadModel](t, rec)
	assert.Equal(t, "SKU-1 name", v.Name)
	assert.Equal(t, 10, v.Available)

	rec = s.do(t, auth.RoleViewer, http.MethodGet, "/variants/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, auth.RoleAdmin, http.MethodPost, "/variants", command.RegisterVariant{Code: "SKU-1", Name: "dup"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_ListVariantsFilters(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "A", true, 0)
	s.register(t, "B", false, 5)
	s.register(t, "C", true, 50)

	rec := s.do(t, auth.RoleViewer, http.MethodGet, "/variants?tracked=true&low_stock=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]readmodel.VariantReadModel](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Code)

	rec = s.do(t, auth.RoleViewer, http.MethodGet, "/variants?low_stock=lots", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RestockAndTracking(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "SKU-1", true, 10)

	rec := s.do(t, auth.RoleAdmin, http.MethodPost, "/variants/SKU-1/restock", map[string]int{"quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 15, decodeBody[inventory.Variant](t, rec).OnHand)

	rec = s.do(t, auth.RoleAdmin, http.MethodPost, "/variants/SKU-1/restock", map[string]int{"quantity": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, auth.RoleAdmin, http.MethodPost, "/variants/nope/restock", map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, auth.RoleAdmin, http.MethodPost, "/variants/SKU-1/tracking", map[string]bool{"tracked": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[inventory.Variant](t, rec).Tracked)
}

func TestAPI_OrderLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "SKU-1", true, 10)

	rec := s.do(t, auth.RoleService, http.MethodPost, "/orders/o-1/hold", orderBody(inventory.PaymentStateAwaitingPayment, "SKU-1", 3))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	held := decodeBody[inventory.OrderResult](t, rec)
	assert.Equal(t, "o-1", held.OrderID)
	assert.Equal(t, 3, held.Variants[0].OnHold)

	rec = s.do(t, auth.RoleService, http.MethodPost, "/orders/o-1/sell", orderBody(inventory.PaymentStatePaid, "SKU-1", 3))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, auth.RoleAdmin, http.MethodPost, "/orders/o-1/cancel", orderBody(inventory.PaymentStatePaid, "SKU-1", 3))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, auth.RoleViewer, http.MethodGet, "/variants/SKU-1", nil)
	v := decodeBody[readmodel.VariantReadModel](t, rec)
	assert.Equal(t, 10, v.OnHand)
	assert.Equal(t, 0, v.OnHold)
	assert.Equal(t, 4, v.Version)
}

func TestAPI_SellReportsClamps(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "SKU-1", true, 1)

	rec := s.do(t, auth.RoleService, http.MethodPost, "/orders/o-1/sell", orderBody(inventory.PaymentStatePaid, "SKU-1", 2))

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[inventory.OrderResult](t, rec)
	assert.Len(t, result.Clamps, 2)
}

func TestAPI_CancelUnpaidOrderReleasesHold(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "SKU-1", true, 10)

	rec := s.do(t, auth.RoleService, http.MethodPost, "/orders/o-1/hold", orderBody(inventory.PaymentStateUnpaid, "SKU-1", 3))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, auth.RoleService, http.MethodPost, "/orders/o-1/cancel", orderBody("unpaid", "SKU-1", 3))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody[inventory.OrderResult](t, rec)
	assert.Equal(t, 10, result.Variants[0].OnHand)
	assert.Equal(t, 0, result.Variants[0].OnHold)
}

func TestAPI_CancelWithoutHoldIsUnprocessable(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "SKU-1", true, 10)

	rec := s.do(t, auth.RoleService, http.MethodPost, "/orders/o-1/cancel", orderBody(inventory.PaymentStateUnpaid, "SKU-1", 2))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, `not enough units to decrease on hold quantity from the inventory of a variant "SKU-1 name"`, body["error"])
}

func TestAPI_RejectsMalformedBodies(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "SKU-1", true, 10)

	rec := s.do(t, auth.RoleService, http.MethodPost, "/orders/o-1/hold", map[string]any{"unexpected": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, auth.RoleService, http.MethodPost, "/orders/o-1/hold", map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
