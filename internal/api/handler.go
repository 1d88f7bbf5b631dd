package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/finchat/finchat/internal/auth"
	"github.com/finchat/finchat/internal/config"
	"github.com/finchat/finchat/internal/conversation"
	"github.com/finchat/finchat/internal/observability"
	"github.com/finchat/finchat/internal/pipeline"
	"github.com/finchat/finchat/internal/schema"
	"github.com/finchat/finchat/internal/storage"
)

type ReadinessCheck func(ctx context.Context) error

// Pipeline answers one question against the table of an account type.
type Pipeline interface {
	Run(ctx context.Context, question string, accountType schema.AccountType) (pipeline.Result, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Pipeline          Pipeline
	Conversations     conversation.Store
	Schemas           *schema.Registry
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	chatUser := auth.RequireRole(auth.RoleChatUser)
	historyReader := auth.RequireRole(auth.RoleHistoryReader, auth.RoleChatUser)

	protected := http.NewServeMux()
	protected.Handle("POST /v1/ask", chatUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})))
	protected.Handle("GET /v1/account-types", historyReader(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleListAccountTypes(deps, w, r)
	})))
	protected.Handle("GET /v1/conversations", historyReader(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleListConversations(deps, w, r)
	})))
	protected.Handle("POST /v1/conversations", chatUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCreateConversation(deps, w, r)
	})))
	protected.Handle("PATCH /v1/conversations/{id}", chatUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRenameConversation(deps, w, r)
	})))
	protected.Handle("DELETE /v1/conversations/{id}", chatUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDeleteConversation(deps, w, r)
	})))
	protected.Handle("GET /v1/conversations/{id}/messages", historyReader(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleListMessages(deps, w, r)
	})))

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/ask", protectedHandler)
	mux.Handle("GET /v1/account-types", protectedHandler)
	mux.Handle("GET /v1/conversations", protectedHandler)
	mux.Handle("POST /v1/conversations", protectedHandler)
	mux.Handle("PATCH /v1/conversations/{id}", protectedHandler)
	mux.Handle("DELETE /v1/conversations/{id}", protectedHandler)
	mux.Handle("GET /v1/conversations/{id}/messages", protectedHandler)
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		corsMiddleware(cfg.HTTP.CORSOrigins),
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// corsMiddleware lets the browser UI call the API from another origin. An
// empty origin list disables cross-origin access.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", "X-Trace-ID"},
		ExposedHeaders: []string{"X-Trace-ID"},
		MaxAge:         600,
	})
	return c.Handler
}

// CheckStore pings the conversation store.
func CheckStore(store conversation.Store) ReadinessCheck {
	return func(ctx context.Context) error {
		if store == nil {
			return errors.New("conversation store is not configured")
		}
		return store.HealthCheck(ctx)
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Warehouse.Driver != config.WarehouseDriverDuckDB {
			return nil
		}
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

// CheckObjectStore probes the warehouse object store. A nil store means the
// warehouse does not read from one.
func CheckObjectStore(store storage.ObjectStore) ReadinessCheck {
	return func(ctx context.Context) error {
		checker, ok := store.(storage.HealthChecker)
		if !ok {
			return nil
		}
		return checker.HealthCheck(ctx)
	}
}

func CheckModelConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.AI.APIKey == "" {
			return errors.New("language model api key is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
