package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"platecost/internal/handlers"
	applog "platecost/internal/log"
	"platecost/internal/metrics"
	"platecost/internal/service"
)

const requestIDHeader = "X-Request-ID"

func newRouter(cfg Config) http.Handler {
	ctx := context.Background()
	m := metrics.New()

	router := mux.NewRouter()
	router.Use(requestLogger)
	router.Use(m.Middleware)

	applog.Debug(ctx, "registering http routes")

	var ping handlers.Pinger
	if cfg.Database != nil {
		ping = func(ctx context.Context) error {
			sqlDB, err := cfg.Database.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	router.HandleFunc("/healthz", handlers.Health(ping)).Methods(http.MethodGet)
	applog.Debug(ctx, "route registered", "path", "/healthz")
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	applog.Debug(ctx, "route registered", "path", "/metrics")

	api := router.PathPrefix("/api").Subrouter()
	if cfg.Database == nil {
		api.PathPrefix("/").HandlerFunc(handlers.Unavailable)
		applog.Debug(ctx, "route registered", "path", "/api/", "available", false)
	} else {
		handlers.NewAPI(
			service.NewIngredientService(cfg.Database),
			service.NewRecipeService(cfg.Database),
		).Register(api)
		applog.Debug(ctx, "route registered", "path", "/api/", "available", true)
	}

	return corsHandler(cfg.AllowedOrigins).Handler(withRequestID(router))
}

func corsHandler(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
}

// withRequestID tags the request context with the caller's X-Request-ID or a fresh one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(applog.WithRequestID(r.Context(), id)))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		applog.Info(r.Context(), "request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
