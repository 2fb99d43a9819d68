package rest

import (
	"context"
	"net/http"
	"time"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db      dbPinger
	version string
}

func NewHealthHandler(db dbPinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
}

type componentStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
}

// Live always answers 200 while the process serves requests.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: time.Now()})
}

// Ready answers 503 when the database cannot be reached.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status, comp := h.checkDB(r.Context())
	writeJSON(w, status, healthResponse{Status: comp.Status, Timestamp: time.Now()})
}

// Health reports the version and per-component status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, comp := h.checkDB(r.Context())
	writeJSON(w, status, healthResponse{
		Status:     comp.Status,
		Version:    h.version,
		Components: map[string]componentStatus{"database": comp},
		Timestamp:  time.Now(),
	})
}

func (h *HealthHandler) checkDB(ctx context.Context) (int, componentStatus) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		return http.StatusServiceUnavailable, componentStatus{Status: "down"}
	}
	return http.StatusOK, componentStatus{Status: "ok", Latency: time.Since(start).String()}
}
