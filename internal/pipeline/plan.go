package pipeline

import "fmt"

// PlanUpdates builds the ordered update plan from the extraction output, the
// deduplication result and the translation result. Every fragment position
// appears exactly once, in extraction order. Empty fragments pass their
// original text through; everything else must have a translation or the plan
// fails with ErrMissingTranslation.
func PlanUpdates(fragments []Fragment, dedupe *DedupeResult, result TranslationResult) ([]UpdateRequest, error) {
	updates := make([]UpdateRequest, 0, len(fragments))

	for _, f := range fragments {
		if f.Text == "" {
			updates = append(updates, UpdateRequest{
				Position: f.Position,
				Text:     f.Text,
				StyleRef: f.StyleRef,
			})
			continue
		}

		id, ok := dedupe.IDFor(f.Text)
		if !ok {
			return nil, fmt.Errorf("%w: fragment at %s was never deduplicated", ErrMissingTranslation, f.Position.Key())
		}
		translated, ok := result[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s (position %s)", ErrMissingTranslation, id, f.Position.Key())
		}

		updates = append(updates, UpdateRequest{
			Position:   f.Position,
			Text:       translated,
			StyleRef:   f.StyleRef,
			Translated: true,
		})
	}

	return updates, nil
}
