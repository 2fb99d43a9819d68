package summary

import (
	"strings"

	"journal-digest/internal/domain"
)

// ValidateSentences drops every entry id that was not supplied to the model.
// Each dropped reference is returned as a non-fatal InvalidModelOutputError.
// Sentence order and the order of the remaining ids are preserved.
func ValidateSentences(sentences []domain.Sentence, entries []domain.Entry) ([]domain.Sentence, []*domain.InvalidModelOutputError) {
	known := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		known[e.ID] = struct{}{}
	}

	var violations []*domain.InvalidModelOutputError
	out := make([]domain.Sentence, len(sentences))
	for i, s := range sentences {
		ids := make([]string, 0, len(s.EntryIDs))
		for _, id := range s.EntryIDs {
			if _, ok := known[id]; !ok {
				violations = append(violations, &domain.InvalidModelOutputError{
					SentenceIndex: i,
					EntryID:       id,
					Reason:        "unknown entry id",
				})
				continue
			}
			ids = append(ids, id)
		}
		out[i] = domain.Sentence{Text: s.Text, EntryIDs: ids}
	}
	return out, violations
}

// Link joins sentence texts with newlines in model order and collects the
// entry ids in first-occurrence order, each exactly once.
func Link(sentences []domain.Sentence) (string, []string) {
	texts := make([]string, len(sentences))
	seen := make(map[string]struct{})
	links := []string{}

	for i, s := range sentences {
		texts[i] = s.Text
		for _, id := range s.EntryIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			links = append(links, id)
		}
	}
	return strings.Join(texts, "\n"), links
}
