package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-digest/internal/domain"
	"journal-digest/internal/period"
	"journal-digest/internal/summary"
)

type summaryServiceMock struct {
	GenerateFunc func(ctx context.Context, in summary.GenerateInput) (*summary.Result, error)
	ListFunc     func(ctx context.Context, userID uuid.UUID, filter domain.SummaryFilter) ([]domain.Summary, error)

	generateCalls []summary.GenerateInput
}

func (m *summaryServiceMock) Generate(ctx context.Context, in summary.GenerateInput) (*summary.Result, error) {
	m.generateCalls = append(m.generateCalls, in)
	return m.GenerateFunc(ctx, in)
}

func (m *summaryServiceMock) List(ctx context.Context, userID uuid.UUID, filter domain.SummaryFilter) ([]domain.Summary, error) {
	return m.ListFunc(ctx, userID, filter)
}

type validatorMock struct {
	userID uuid.UUID
}

func (v validatorMock) ValidateToken(token string) (uuid.UUID, error) {
	if token == "good" {
		return v.userID, nil
	}
	return uuid.Nil, errors.New("bad token")
}

type pingerMock struct{ err error }

func (p pingerMock) Ping(context.Context) error { return p.err }

// 2025-01-05 20:30 UTC, already Monday 2025-01-06 in Tokyo.
var fixedNow = time.Date(2025, 1, 5, 20, 30, 0, 0, time.UTC)

func newTestRouter(t *testing.T, svc *summaryServiceMock, userID uuid.UUID) http.Handler {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewSummaryHandler(svc, time.UTC, log)
	h.now = func() time.Time { return fixedNow }

	return NewRouter(RouterDeps{
		Summaries: h,
		Health:    NewHealthHandler(pingerMock{}, "test"),
		Tokens:    validatorMock{userID: userID},
		Log:       log,
	})
}

func echoResult(in summary.GenerateInput) *summary.Result {
	return &summary.Result{
		Summary: &domain.Summary{
			ID:          uuid.New(),
			UserID:      in.UserID,
			Period:      in.Range.Type,
			PeriodStart: in.Range.Start,
			PeriodEnd:   in.Range.End,
			Text:        "You fixed a bug.\nYou met Alex.",
			EntryLinks:  []string{"e1", "e2"},
			CreatedAt:   fixedNow,
		},
		Sentences: []domain.Sentence{
			{Text: "You fixed a bug.", EntryIDs: []string{"e1"}},
			{Text: "You met Alex.", EntryIDs: []string{"e2", "e1"}},
		},
	}
}

func do(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Authorization", "Bearer good")
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerateDaily_Created(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := &summaryServiceMock{GenerateFunc: func(_ context.Context, in summary.GenerateInput) (*summary.Result, error) {
		return echoResult(in), nil
	}}
	router := newTestRouter(t, svc, userID)

	rec := do(t, router, http.MethodPost, "/summaries/generate", `{"date":"2025-01-06","ai_context":"on call","locale":"de"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, svc.generateCalls, 1)
	in := svc.generateCalls[0]
	assert.Equal(t, userID, in.UserID)
	assert.Equal(t, period.Daily, in.Range.Type)
	assert.Equal(t, "2025-01-06", period.FormatDate(in.Range.Start))
	assert.Equal(t, "on call", in.ContextHint)
	assert.Equal(t, "de", in.Locale)

	var body struct {
		Summary struct {
			Period      string   `json:"period"`
			PeriodStart string   `json:"period_start"`
			Text        string   `json:"text"`
			EntryLinks  []string `json:"entry_links"`
		} `json:"summary"`
		Sentences []domain.Sentence `json:"sentences"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "daily", body.Summary.Period)
	assert.Equal(t, "2025-01-06", body.Summary.PeriodStart)
	assert.Equal(t, []string{"e1", "e2"}, body.Summary.EntryLinks)
	assert.Equal(t, "You fixed a bug.\nYou met Alex.", body.Summary.Text)
	assert.Len(t, body.Sentences, 2)
}

func TestGenerateDaily_TodayFollowsCallerTimezone(t *testing.T) {
	t.Parallel()

	svc := &summaryServiceMock{GenerateFunc: func(_ context.Context, in summary.GenerateInput) (*summary.Result, error) {
		return echoResult(in), nil
	}}
	router := newTestRouter(t, svc, uuid.New())

	rec := do(t, router, http.MethodPost, "/summaries/generate", "", map[string]string{"X-Timezone": "Asia/Tokyo"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2025-01-06", period.FormatDate(svc.generateCalls[0].Range.Start))

	rec = do(t, router, http.MethodPost, "/summaries/generate", `{}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2025-01-05", period.FormatDate(svc.generateCalls[1].Range.Start), "server default zone is UTC")
}

func TestGenerateWeekly_NormalizesToMonday(t *testing.T) {
	t.Parallel()

	svc := &summaryServiceMock{GenerateFunc: func(_ context.Context, in summary.GenerateInput) (*summary.Result, error) {
		return echoResult(in), nil
	}}
	router := newTestRouter(t, svc, uuid.New())

	rec := do(t, router, http.MethodPost, "/summaries/generate/weekly", `{"week_start":"2025-01-09"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	r := svc.generateCalls[0].Range
	assert.Equal(t, period.Weekly, r.Type)
	assert.Equal(t, "2025-01-06", period.FormatDate(r.Start))
	assert.Equal(t, "2025-01-13", period.FormatDate(r.End))
}

func TestGenerateMonthly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantStart  string
		wantEnd    string
	}{
		{"explicit range", `{"month_start":"2024-12-15","month_end":"2025-01-14"}`, http.StatusCreated, "2024-12-15", "2025-01-15"},
		{"current calendar month", `{}`, http.StatusCreated, "2025-01-01", "2025-02-01"},
		{"only start", `{"month_start":"2025-01-01"}`, http.StatusBadRequest, "", ""},
		{"end before start", `{"month_start":"2025-01-10","month_end":"2025-01-01"}`, http.StatusBadRequest, "", ""},
		{"malformed date", `{"month_start":"2025/01/01","month_end":"2025-01-31"}`, http.StatusBadRequest, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &summaryServiceMock{GenerateFunc: func(_ context.Context, in summary.GenerateInput) (*summary.Result, error) {
				return echoResult(in), nil
			}}
			router := newTestRouter(t, svc, uuid.New())

			rec := do(t, router, http.MethodPost, "/summaries/generate/monthly", tt.body, nil)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusCreated {
				assert.Empty(t, svc.generateCalls)
				return
			}
			r := svc.generateCalls[0].Range
			assert.Equal(t, period.Monthly, r.Type)
			assert.Equal(t, tt.wantStart, period.FormatDate(r.Start))
			assert.Equal(t, tt.wantEnd, period.FormatDate(r.End))
		})
	}
}

func TestGenerate_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"no entries", &domain.NoEntriesError{Period: "daily", Start: "2025-01-06"}, http.StatusBadRequest, "no entries"},
		{"model unavailable", &domain.ModelUnavailableError{StatusCode: 503, Err: errors.New("overloaded")}, http.StatusInternalServerError, "model unavailable"},
		{"invalid output", domain.NewMalformedOutputError(-1, "missing sentences"), http.StatusInternalServerError, "invalid output"},
		{"storage", &domain.StorageError{Op: "insert summary", Err: errors.New("disk I/O error")}, http.StatusInternalServerError, "storage failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &summaryServiceMock{GenerateFunc: func(context.Context, summary.GenerateInput) (*summary.Result, error) {
				return nil, tt.err
			}}
			rec := do(t, newTestRouter(t, svc, uuid.New()), http.MethodPost, "/summaries/generate", `{"date":"2025-01-06"}`, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["error"], tt.wantError)
			assert.NotContains(t, body["error"], "disk I/O")
		})
	}
}

func TestGenerate_IgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	svc := &summaryServiceMock{GenerateFunc: func(_ context.Context, in summary.GenerateInput) (*summary.Result, error) {
		return echoResult(in), nil
	}}
	router := newTestRouter(t, svc, uuid.New())

	rec := do(t, router, http.MethodPost, "/summaries/generate", `{"date":"2025-01-06","week_start":"2025-01-06","mood":"x"}`+"\n", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, svc.generateCalls, 1)
	assert.Equal(t, "2025-01-06", period.FormatDate(svc.generateCalls[0].Range.Start))
}

func TestGenerate_BadInput(t *testing.T) {
	t.Parallel()

	svc := &summaryServiceMock{GenerateFunc: func(context.Context, summary.GenerateInput) (*summary.Result, error) {
		t.Error("service must not be called")
		return nil, nil
	}}
	router := newTestRouter(t, svc, uuid.New())

	for _, body := range []string{
		`{"date":"06/01/2025"}`,
		`not json`,
		`{"date":"2025-01-06"}junk`,
		`{"date":"2025-01-06"}{"date":"2025-01-07"}`,
		`{"date":"2025-01-06"}}`,
	} {
		rec := do(t, router, http.MethodPost, "/summaries/generate", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := do(t, router, http.MethodPost, "/summaries/generate", `{}`, map[string]string{"X-Timezone": "Nowhere/Atlantis"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaries_RequireAuth(t *testing.T) {
	t.Parallel()

	svc := &summaryServiceMock{}
	router := newTestRouter(t, svc, uuid.New())

	for _, target := range []string{"/summaries/generate", "/summaries/generate/weekly", "/summaries/generate/monthly"} {
		rec := do(t, router, http.MethodPost, target, `{}`, map[string]string{"Authorization": ""})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
	rec := do(t, router, http.MethodGet, "/summaries", "", map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestList(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	var gotFilter domain.SummaryFilter
	svc := &summaryServiceMock{ListFunc: func(_ context.Context, id uuid.UUID, filter domain.SummaryFilter) ([]domain.Summary, error) {
		assert.Equal(t, userID, id)
		gotFilter = filter
		if filter.Period != nil && *filter.Period == period.Monthly {
			return nil, nil
		}
		start, _ := period.ParseDate("2025-01-06")
		return []domain.Summary{{
			ID: uuid.New(), UserID: id, Period: period.Weekly,
			PeriodStart: start, PeriodEnd: start.AddDate(0, 0, 7),
			Text: "A week.", EntryLinks: []string{"e1"}, CreatedAt: fixedNow,
		}}, nil
	}}
	router := newTestRouter(t, svc, userID)

	rec := do(t, router, http.MethodGet, "/summaries?period=weekly&date=2025-01-06", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotFilter.Period)
	assert.Equal(t, period.Weekly, *gotFilter.Period)
	require.NotNil(t, gotFilter.PeriodStart)
	assert.Equal(t, "2025-01-06", period.FormatDate(*gotFilter.PeriodStart))

	var list []domain.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2025-01-13", period.FormatDate(list[0].PeriodEnd))

	rec = do(t, router, http.MethodGet, "/summaries?period=monthly", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/summaries?period=yearly", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodGet, "/summaries?date=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
