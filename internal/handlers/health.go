package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	applog "platecost/internal/log"
)

type healthResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database,omitempty"`
	Time     time.Time `json:"time"`
}

// Pinger probes a dependency for readiness.
type Pinger func(ctx context.Context) error

// Health is a simple readiness handler suitable for infrastructure probes. A nil ping
// skips the database probe; a failing one answers 503.
func Health(ping Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applog.Debug(r.Context(), "health check requested", "method", r.Method)
		resp := healthResponse{
			Status: "ok",
			Time:   time.Now().UTC(),
		}
		status := http.StatusOK

		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := ping(ctx)
			cancel()
			if err != nil {
				applog.Error(r.Context(), "database ping failed", "error", err)
				resp.Status = "degraded"
				resp.Database = "unreachable"
				status = http.StatusServiceUnavailable
			} else {
				resp.Database = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			applog.Error(r.Context(), "failed to encode health response", "error", err)
			return
		}
		applog.Debug(r.Context(), "health check responded", "status", resp.Status)
	}
}
