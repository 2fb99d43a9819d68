package analyzer

import (
	"strings"

	"journal-digest/internal/period"
)

// Prompts holds instruction templates. Empty fields fall back to the built-in text.
// Main is prepended to every period prompt when set.
type Prompts struct {
	Main    string
	Daily   string
	Weekly  string
	Monthly string
}

const defaultMainPrompt = `You summarize a person's private journal for them.
You receive a JSON object with the period and the journal entries, each with an "id" and its "text", oldest first.
Write a short narrative in the second person, one sentence per item of "sentences".
For every sentence list in "entry_ids" the ids of the entries that support it, using only ids present in the input.
A sentence may have an empty "entry_ids" only when no single entry supports it.
Do not invent events that are not in the entries.`

const defaultDailyPrompt = `Summarize this single day in 2 to 5 sentences, following the order in which things happened.`

const defaultWeeklyPrompt = `Summarize this week (Monday to Sunday) in 3 to 7 sentences.
Group related events, mention recurring themes and how the week evolved.`

const defaultMonthlyPrompt = `Summarize this month in 4 to 10 sentences.
Focus on the main themes, notable changes and the overall direction of the month rather than single days.`

func (p Prompts) instructions(t period.Type) string {
	main := strings.TrimSpace(p.Main)
	if main == "" {
		main = defaultMainPrompt
	}

	var specific string
	switch t {
	case period.Daily:
		specific = firstNonEmpty(p.Daily, defaultDailyPrompt)
	case period.Weekly:
		specific = firstNonEmpty(p.Weekly, defaultWeeklyPrompt)
	case period.Monthly:
		specific = firstNonEmpty(p.Monthly, defaultMonthlyPrompt)
	}

	return main + "\n\n" + specific
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
