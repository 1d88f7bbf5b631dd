package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/finchat/finchat/internal/auth"
	"github.com/finchat/finchat/internal/config"
	"github.com/finchat/finchat/internal/storage"
)

func TestHealthEndpoint(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})

	h := NewHandler(cfg, Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["service"] != "finchat-api" {
		t.Fatalf("service = %v", body["service"])
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})

	h := NewHandler(cfg, Dependencies{
		Readiness: func(rctx context.Context) error {
			return errors.New("dependency down")
		},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error_code"] != "NOT_READY" || body["retryable"] != true {
		t.Fatalf("body = %#v", body)
	}
}

func TestReadyEndpointUsesStoreHealthCheck(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	store := newMemoryConversationStore()
	store.healthErr = errors.New("store down")

	h := NewHandler(cfg, Dependencies{Readiness: CombineReadinessChecks(CheckStore(store))})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}

	store.healthErr = nil
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"FINCHAT_AUTH_REQUIRED": "true"})
	validator, err := auth.NewStaticAPIKeyValidator("k1:web:chat_user,k2:audit:history_reader")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{
		AuthMiddleware: auth.Middleware(nil, validator),
		Conversations:  newMemoryConversationStore(),
	})

	unauthResp := httptest.NewRecorder()
	h.ServeHTTP(unauthResp, httptest.NewRequest(http.MethodGet, "/v1/conversations", nil))
	if unauthResp.Code != http.StatusUnauthorized {
		t.Fatalf("unauth status = %d", unauthResp.Code)
	}

	authReq := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	authReq.Header.Set("X-API-Key", "k2")
	authResp := httptest.NewRecorder()
	h.ServeHTTP(authResp, authReq)
	if authResp.Code != http.StatusOK {
		t.Fatalf("auth status = %d", authResp.Code)
	}
}

func TestHistoryReaderCannotMutateConversations(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"FINCHAT_AUTH_REQUIRED": "true"})
	validator, err := auth.NewStaticAPIKeyValidator("k2:audit:history_reader")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}
	h := NewHandler(cfg, Dependencies{
		AuthMiddleware: auth.Middleware(nil, validator),
		Conversations:  newMemoryConversationStore(),
		Pipeline:       &fakePipeline{},
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/v1/conversations", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q","account_type":"conta-corrente"}`)),
		httptest.NewRequest(http.MethodDelete, "/v1/conversations/1", nil),
	} {
		req.Header.Set("X-API-Key", "k2")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("%s %s status = %d", req.Method, req.URL.Path, rr.Code)
		}
	}
}

func TestAuthRequiredWithoutMiddlewareFailsClosed(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"FINCHAT_AUTH_REQUIRED": "true"})
	h := NewHandler(cfg, Dependencies{Conversations: newMemoryConversationStore()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/conversations", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "AUTH_MIDDLEWARE_MISSING" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestCORSPreflightAllowsConfiguredOrigin(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"FINCHAT_HTTP_CORS_ORIGINS": "https://chat.example.com"})
	h := NewHandler(cfg, Dependencies{Conversations: newMemoryConversationStore()})

	req := httptest.NewRequest(http.MethodOptions, "/v1/conversations", nil)
	req.Header.Set("Origin", "https://chat.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://chat.example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/v1/conversations", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Access-Control-Allow-Origin = %q for unknown origin", got)
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	err := combined(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}

func TestConfigReadinessChecks(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"FINCHAT_OBJECTSTORE_ENDPOINT": "",
		"FINCHAT_AI_API_KEY":           "",
	})
	if err := CheckObjectStoreConfig(cfg)(context.Background()); err == nil {
		t.Fatal("expected object store config error for duckdb warehouse")
	}
	if err := CheckModelConfig(cfg)(context.Background()); err == nil {
		t.Fatal("expected model config error")
	}

	cfg.Warehouse.Driver = config.WarehouseDriverDatabricks
	if err := CheckObjectStoreConfig(cfg)(context.Background()); err != nil {
		t.Fatalf("databricks warehouse should not need object store: %v", err)
	}
	cfg.AI.APIKey = "key"
	if err := CheckModelConfig(cfg)(context.Background()); err != nil {
		t.Fatalf("CheckModelConfig() error = %v", err)
	}
}

type probedObjectStore struct {
	storage.ObjectStore
	err error
}

func (s probedObjectStore) HealthCheck(context.Context) error { return s.err }

func TestCheckObjectStore(t *testing.T) {
	if err := CheckObjectStore(nil)(context.Background()); err != nil {
		t.Fatalf("nil store should be ready: %v", err)
	}
	if err := CheckObjectStore(probedObjectStore{err: errors.New("no bucket")})(context.Background()); err == nil {
		t.Fatal("expected object store probe failure")
	}
	if err := CheckObjectStore(probedObjectStore{})(context.Background()); err != nil {
		t.Fatalf("CheckObjectStore() error = %v", err)
	}
}

func TestUIHandlerServesNonAPIRoutes(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})

	h := NewHandler(cfg, Dependencies{
		UI: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "<html>ok</html>")
		}),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
}

func TestErrorEnvelopeCarriesTraceID(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	h := NewHandler(cfg, Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["trace_id"] != "trace-123" {
		t.Fatalf("trace_id = %v", body["trace_id"])
	}
	if body["error_code"] != "CONVERSATIONS_NOT_CONFIGURED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func loadConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load("finchat-api", mapLookup(env))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v, body=%s", err, rr.Body.String())
	}
	return body
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
