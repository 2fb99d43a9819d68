package rest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"journal-digest/internal/transport/middleware"
)

type tokenValidator interface {
	ValidateToken(token string) (uuid.UUID, error)
}

// RouterDeps are the handlers and collaborators NewRouter wires together.
type RouterDeps struct {
	Summaries *SummaryHandler
	Health    *HealthHandler
	Tokens    tokenValidator
	Log       logrus.FieldLogger
}

// NewRouter builds the HTTP handler. Health probes are public; every
// /summaries route requires a bearer token.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", deps.Health.Health)
	mux.HandleFunc("GET /health/live", deps.Health.Live)
	mux.HandleFunc("GET /health/ready", deps.Health.Ready)

	protected := middleware.Chain(
		middleware.RequireAuth(deps.Tokens, deps.Log),
		middleware.Timezone,
	)
	mux.Handle("POST /summaries/generate", protected(http.HandlerFunc(deps.Summaries.GenerateDaily)))
	mux.Handle("POST /summaries/generate/weekly", protected(http.HandlerFunc(deps.Summaries.GenerateWeekly)))
	mux.Handle("POST /summaries/generate/monthly", protected(http.HandlerFunc(deps.Summaries.GenerateMonthly)))
	mux.Handle("GET /summaries", protected(http.HandlerFunc(deps.Summaries.List)))

	return middleware.Chain(
		middleware.RequestID,
		middleware.Recovery(deps.Log),
		middleware.Logger(deps.Log),
	)(mux)
}
