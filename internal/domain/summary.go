package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"journal-digest/internal/period"
)

// Entry is a journal entry owned by the entry store. The pipeline only reads it.
type Entry struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	RawText   string    `json:"raw_text"`
	Date      time.Time `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON renders Date as a calendar date.
func (e Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(e), Date: period.FormatDate(e.Date)})
}

// Summary is the stored narrative of one (user, period, period_start).
type Summary struct {
	ID          uuid.UUID   `json:"-"`
	UserID      uuid.UUID   `json:"-"`
	Period      period.Type `json:"-"`
	PeriodStart time.Time   `json:"-"`
	PeriodEnd   time.Time   `json:"-"`
	Text        string      `json:"-"`
	EntryLinks  []string    `json:"-"`
	CreatedAt   time.Time   `json:"-"`
}

type summaryJSON struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Period      period.Type `json:"period"`
	PeriodStart string      `json:"period_start"`
	PeriodEnd   string      `json:"period_end"`
	Text        string      `json:"text"`
	EntryLinks  []string    `json:"entry_links"`
	CreatedAt   time.Time   `json:"created_at"`
}

// MarshalJSON renders period dates as YYYY-MM-DD and never emits a null entry_links.
func (s Summary) MarshalJSON() ([]byte, error) {
	links := s.EntryLinks
	if links == nil {
		links = []string{}
	}
	return json.Marshal(summaryJSON{
		ID:          s.ID,
		UserID:      s.UserID,
		Period:      s.Period,
		PeriodStart: period.FormatDate(s.PeriodStart),
		PeriodEnd:   period.FormatDate(s.PeriodEnd),
		Text:        s.Text,
		EntryLinks:  links,
		CreatedAt:   s.CreatedAt,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var raw summaryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := period.ParseDate(raw.PeriodStart)
	if err != nil {
		return err
	}
	var end time.Time
	if raw.PeriodEnd != "" {
		if end, err = period.ParseDate(raw.PeriodEnd); err != nil {
			return err
		}
	}
	*s = Summary{
		ID:          raw.ID,
		UserID:      raw.UserID,
		Period:      raw.Period,
		PeriodStart: start,
		PeriodEnd:   end,
		Text:        raw.Text,
		EntryLinks:  raw.EntryLinks,
		CreatedAt:   raw.CreatedAt,
	}
	return nil
}

// Range returns the period range the summary covers.
func (s Summary) Range() period.Range {
	return period.Range{Type: s.Period, Start: s.PeriodStart, End: s.PeriodEnd}
}

// Sentence is one sentence of a generated summary with the entries it cites.
// Only the derived text and entry links are persisted.
type Sentence struct {
	Text     string   `json:"text"`
	EntryIDs []string `json:"entry_ids"`
}

// SummaryRequest is what the summarization model receives.
type SummaryRequest struct {
	Range       period.Range
	Entries     []Entry
	Locale      string
	ContextHint string
}

// SummaryFilter narrows a summary listing. Nil fields match everything.
type SummaryFilter struct {
	Period      *period.Type
	PeriodStart *time.Time
}
