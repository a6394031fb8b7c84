// Package health exposes liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/fedgate/fedgate/internal/http/helpers"
	"github.com/fedgate/fedgate/internal/observability/logger"
)

// Pinger is anything whose backend reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controllers serves /healthz and /readyz.
type Controllers struct {
	Store Pinger
	Cache Pinger
}

// Healthz reports process liveness. Always 200 while we can serve it.
func (c *Controllers) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports whether the backing services answer.
func (c *Controllers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if c.Store != nil {
		if err := c.Store.Ping(ctx); err != nil {
			logger.From(ctx).Warn("store not ready", logger.Err(err))
			checks["store"] = "down"
			healthy = false
		} else {
			checks["store"] = "ok"
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Ping(ctx); err != nil {
			logger.From(ctx).Warn("cache not ready", logger.Err(err))
			checks["cache"] = "down"
			healthy = false
		} else {
			checks["cache"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, status, checks)
}
