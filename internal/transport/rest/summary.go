package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"journal-digest/internal/domain"
	"journal-digest/internal/period"
	"journal-digest/internal/summary"
	"journal-digest/pkg/ctxutil"
)

const maxBodyBytes = 64 << 10

// summaryService is what SummaryHandler needs from the pipeline.
type summaryService interface {
	Generate(ctx context.Context, in summary.GenerateInput) (*summary.Result, error)
	List(ctx context.Context, userID uuid.UUID, filter domain.SummaryFilter) ([]domain.Summary, error)
}

// SummaryHandler serves the /summaries endpoints.
type SummaryHandler struct {
	svc      summaryService
	location *time.Location // used when the caller sends no X-Timezone
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewSummaryHandler(svc summaryService, location *time.Location, log logrus.FieldLogger) *SummaryHandler {
	if location == nil {
		location = time.Local
	}
	return &SummaryHandler{svc: svc, location: location, now: time.Now, log: log.WithField("handler", "summary")}
}

type generateDailyRequest struct {
	Date      *string `json:"date"`
	AIContext string  `json:"ai_context"`
	Locale    string  `json:"locale"`
}

type generateWeeklyRequest struct {
	WeekStart *string `json:"week_start"`
	AIContext string  `json:"ai_context"`
	Locale    string  `json:"locale"`
}

type generateMonthlyRequest struct {
	MonthStart *string `json:"month_start"`
	MonthEnd   *string `json:"month_end"`
	AIContext  string  `json:"ai_context"`
	Locale     string  `json:"locale"`
}

type generateResponse struct {
	Summary   *domain.Summary   `json:"summary"`
	Sentences []domain.Sentence `json:"sentences"`
}

func (h *SummaryHandler) resolver(ctx context.Context) *period.Resolver {
	return &period.Resolver{Location: ctxutil.LocationFromCtx(ctx, h.location), Now: h.now}
}

// GenerateDaily handles POST /summaries/generate.
func (h *SummaryHandler) GenerateDaily(w http.ResponseWriter, r *http.Request) {
	var req generateDailyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := optionalDate("date", req.Date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	rng, err := h.resolver(r.Context()).Resolve(period.Daily, date)
	if err != nil {
		h.writeServiceError(w, r, domain.NewValidationError("date", err.Error()))
		return
	}
	h.generate(w, r, rng, req.Locale, req.AIContext)
}

// GenerateWeekly handles POST /summaries/generate/weekly. Any date of the
// week may be sent as week_start; the week always starts on its Monday.
func (h *SummaryHandler) GenerateWeekly(w http.ResponseWriter, r *http.Request) {
	var req generateWeeklyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := optionalDate("week_start", req.WeekStart)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	rng, err := h.resolver(r.Context()).Resolve(period.Weekly, date)
	if err != nil {
		h.writeServiceError(w, r, domain.NewValidationError("week_start", err.Error()))
		return
	}
	h.generate(w, r, rng, req.Locale, req.AIContext)
}

// GenerateMonthly handles POST /summaries/generate/monthly. Without
// month_start and month_end the current calendar month of the caller is used.
func (h *SummaryHandler) GenerateMonthly(w http.ResponseWriter, r *http.Request) {
	var req generateMonthlyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var start, end time.Time
	switch {
	case req.MonthStart == nil && req.MonthEnd == nil:
		start, end = period.CalendarMonth(h.resolver(r.Context()).Today())
	case req.MonthStart == nil || req.MonthEnd == nil:
		h.writeServiceError(w, r, domain.NewValidationError("month_start", "month_start and month_end must be given together"))
		return
	default:
		s, err := optionalDate("month_start", req.MonthStart)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		e, err := optionalDate("month_end", req.MonthEnd)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		start, end = *s, *e
	}

	rng, err := period.Month(start, end)
	if err != nil {
		h.writeServiceError(w, r, domain.NewValidationError("month_end", err.Error()))
		return
	}
	h.generate(w, r, rng, req.Locale, req.AIContext)
}

func (h *SummaryHandler) generate(w http.ResponseWriter, r *http.Request, rng period.Range, locale, aiContext string) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	res, err := h.svc.Generate(r.Context(), summary.GenerateInput{
		UserID:      userID,
		Range:       rng,
		Locale:      locale,
		ContextHint: aiContext,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sentences := res.Sentences
	if sentences == nil {
		sentences = []domain.Sentence{}
	}
	writeJSON(w, http.StatusCreated, generateResponse{Summary: res.Summary, Sentences: sentences})
}

// List handles GET /summaries?period=&date=.
func (h *SummaryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var filter domain.SummaryFilter
	q := r.URL.Query()
	if v := q.Get("period"); v != "" {
		p, err := period.ParseType(v)
		if err != nil {
			h.writeServiceError(w, r, domain.NewValidationError("period", err.Error()))
			return
		}
		filter.Period = &p
	}
	if v := q.Get("date"); v != "" {
		d, err := period.ParseDate(v)
		if err != nil {
			h.writeServiceError(w, r, domain.NewValidationError("date", "expected YYYY-MM-DD"))
			return
		}
		filter.PeriodStart = &d
	}

	summaries, err := h.svc.List(r.Context(), userID, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []domain.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func optionalDate(field string, v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	d, err := period.ParseDate(*v)
	if err != nil {
		return nil, domain.NewValidationError(field, "expected YYYY-MM-DD")
	}
	return &d, nil
}

// decodeBody reads an optional JSON body holding a single object. An empty
// body decodes to the zero value; unknown keys are ignored.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return true
	}
	if err == nil {
		if _, err = dec.Token(); errors.Is(err, io.EOF) {
			return true
		}
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}

// writeServiceError maps pipeline errors to HTTP statuses.
func (h *SummaryHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.log.WithError(err).WithField("request_id", ctxutil.RequestIDFromCtx(r.Context()))

	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, domain.ErrNoEntries):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrModelUnavailable):
		log.Warn("Summarization model unavailable")
		writeError(w, http.StatusInternalServerError, "summarization model unavailable, try again later")
	case errors.Is(err, domain.ErrInvalidModelOutput):
		log.Warn("Summarization model returned invalid output")
		writeError(w, http.StatusInternalServerError, "summarization model returned invalid output, try again later")
	case errors.Is(err, context.Canceled):
		log.Info("Request cancelled")
		writeError(w, http.StatusInternalServerError, "request cancelled")
	default:
		log.Error("Summary request failed")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %s", publicMessage(err)))
	}
}

func publicMessage(err error) string {
	if errors.Is(err, domain.ErrStorage) {
		return "storage failure"
	}
	return "unexpected failure"
}
