package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/sirupsen/logrus"

	"journal-digest/internal/domain"
	"journal-digest/internal/period"
)

const (
	DefaultModel           = "gpt-4o-mini"
	DefaultMaxOutputTokens = 1200
	DefaultLocale          = "en"
)

// Config is everything the summarizer needs; nothing is read from globals.
type Config struct {
	APIKey          string
	BaseURL         string // optional, for OpenAI-compatible endpoints
	Model           string
	MaxOutputTokens int
	Locale          string // used when a request carries none
	Prompts         Prompts
}

// OpenAI summarizes journal entries with the Responses API and strict structured output.
type OpenAI struct {
	client          *openai.Client
	model           string
	maxOutputTokens int
	locale          string
	prompts         Prompts
	log             logrus.FieldLogger
}

// summaryResponse is the shape the model must return.
type summaryResponse struct {
	Sentences []summarySentence `json:"sentences" jsonschema:"required,description=Narrative sentences in reading order"`
}

type summarySentence struct {
	Text     string   `json:"text" jsonschema:"required,description=One sentence of the summary"`
	EntryIDs []string `json:"entry_ids" jsonschema:"required,description=Ids of the entries supporting this sentence"`
}

var summarySchema = GenerateSchema[summaryResponse]()

type summaryPayload struct {
	Period      string         `json:"period"`
	PeriodStart string         `json:"period_start"`
	PeriodEnd   string         `json:"period_end"`
	Entries     []payloadEntry `json:"entries"`
}

type payloadEntry struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Text string `json:"text"`
}

// NewOpenAI builds a summarizer. The SDK's own retries are disabled:
// retrying a failed generation is the caller's decision.
func NewOpenAI(cfg Config, log logrus.FieldLogger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is empty")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	o := &OpenAI{
		client:          &client,
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
		locale:          cfg.Locale,
		prompts:         cfg.Prompts,
		log:             log.WithField("component", "summarizer"),
	}
	if o.model == "" {
		o.model = DefaultModel
	}
	if o.maxOutputTokens <= 0 {
		o.maxOutputTokens = DefaultMaxOutputTokens
	}
	if o.locale == "" {
		o.locale = DefaultLocale
	}
	return o, nil
}

// Summarize asks the model for an attributed narrative of req.Entries.
// The returned sentences are structurally valid; entry ids are not checked
// against the request here.
func (o *OpenAI) Summarize(ctx context.Context, req domain.SummaryRequest) ([]domain.Sentence, error) {
	if len(req.Entries) == 0 {
		return nil, &domain.NoEntriesError{Period: string(req.Range.Type), Start: period.FormatDate(req.Range.Start)}
	}

	payload, err := buildPayload(req)
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(o.maxOutputTokens)),
		Instructions:    openai.String(o.buildInstructions(req)),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(string(payload), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "JournalSummary",
					Schema:      summarySchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Journal summary sentences with supporting entry ids"),
					Type:        "json_schema",
				},
			},
		},
	}

	logger := o.log.WithFields(logrus.Fields{
		"period":  req.Range.Type,
		"start":   period.FormatDate(req.Range.Start),
		"entries": len(req.Entries),
	})
	logger.Debug("Requesting summary from model")

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	if string(resp.Status) == "incomplete" {
		return nil, domain.NewMalformedOutputError(-1, "response incomplete")
	}

	sentences, err := DecodeSentences(resp.OutputText())
	if err != nil {
		logger.WithError(err).Warn("Model returned malformed summary")
		return nil, err
	}
	logger.WithField("sentences", len(sentences)).Debug("Model summary decoded")
	return sentences, nil
}

func (o *OpenAI) buildInstructions(req domain.SummaryRequest) string {
	locale := req.Locale
	if locale == "" {
		locale = o.locale
	}

	var b strings.Builder
	b.WriteString(o.prompts.instructions(req.Range.Type))
	fmt.Fprintf(&b, "\n\nWrite every sentence in the language of locale %q.", locale)
	if hint := strings.TrimSpace(req.ContextHint); hint != "" {
		b.WriteString("\nAdditional context from the user (do not cite it as an entry):\n")
		b.WriteString(hint)
	}
	return b.String()
}

func buildPayload(req domain.SummaryRequest) ([]byte, error) {
	p := summaryPayload{
		Period:      string(req.Range.Type),
		PeriodStart: period.FormatDate(req.Range.Start),
		PeriodEnd:   period.FormatDate(req.Range.LastDay()),
		Entries:     make([]payloadEntry, 0, len(req.Entries)),
	}
	for _, e := range req.Entries {
		p.Entries = append(p.Entries, payloadEntry{ID: e.ID, Date: period.FormatDate(e.Date), Text: e.RawText})
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary payload: %w", err)
	}
	return b, nil
}

func classifyError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.ModelUnavailableError{Err: ctxErr}
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &domain.ModelUnavailableError{StatusCode: apiErr.StatusCode, Err: err}
	}
	return &domain.ModelUnavailableError{Err: err}
}

type rawResponse struct {
	Sentences *[]rawSentence `json:"sentences"`
}

type rawSentence struct {
	Text     *string   `json:"text"`
	EntryIDs *[]string `json:"entry_ids"`
}

// DecodeSentences parses model output strictly. Missing or unknown fields,
// an empty sentence list and blank sentences are all rejected.
func DecodeSentences(output string) ([]domain.Sentence, error) {
	s := strings.TrimSpace(output)
	if s == "" {
		return nil, domain.NewMalformedOutputError(-1, "empty output")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.DisallowUnknownFields()
	var raw rawResponse
	if err := dec.Decode(&raw); err != nil {
		return nil, domain.NewMalformedOutputError(-1, "not a summary object: "+err.Error())
	}
	if dec.More() {
		return nil, domain.NewMalformedOutputError(-1, "trailing data after summary object")
	}
	if raw.Sentences == nil {
		return nil, domain.NewMalformedOutputError(-1, "missing sentences")
	}
	if len(*raw.Sentences) == 0 {
		return nil, domain.NewMalformedOutputError(-1, "no sentences")
	}

	out := make([]domain.Sentence, 0, len(*raw.Sentences))
	for i, rs := range *raw.Sentences {
		if rs.Text == nil {
			return nil, domain.NewMalformedOutputError(i, "missing text")
		}
		if rs.EntryIDs == nil {
			return nil, domain.NewMalformedOutputError(i, "missing entry_ids")
		}
		// One sentence per stored line.
		text := strings.Join(strings.Fields(*rs.Text), " ")
		if text == "" {
			return nil, domain.NewMalformedOutputError(i, "blank text")
		}
		ids := make([]string, len(*rs.EntryIDs))
		copy(ids, *rs.EntryIDs)
		out = append(out, domain.Sentence{Text: text, EntryIDs: ids})
	}
	return out, nil
}
