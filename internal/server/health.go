// health.go - Component health checks.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ComponentStatus represents the health of an individual component.
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

type componentHealth struct {
	Status ComponentStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

type healthResp struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentHealth `json:"components"`
}

// checker is implemented by blob backends that can probe their storage.
type checker interface {
	Check(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]componentHealth{}
	healthy := true

	if err := s.db.PingContext(ctx); err != nil {
		components["database"] = componentHealth{Status: ComponentStatusDown, Error: err.Error()}
		healthy = false
	} else {
		components["database"] = componentHealth{Status: ComponentStatusUp}
	}

	if c, ok := s.blobs.(checker); ok {
		if err := c.Check(ctx); err != nil {
			components["blob_store"] = componentHealth{Status: ComponentStatusDown, Error: err.Error()}
			healthy = false
		} else {
			components["blob_store"] = componentHealth{Status: ComponentStatusUp}
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthResp{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Version:    s.cfg.Build.Version,
		Components: components,
	})
}
