package pipeline

import "fmt"

// DedupeResult holds the outcome of deduplication: the unique units to
// translate (first-appearance order) and the reverse index from unique
// content back to every original position.
type DedupeResult struct {
	// Units lists every distinct non-empty fragment text exactly once, in
	// order of first appearance.
	Units []Unit
	// Positions maps each unique content ID to the ordered positions of all
	// fragments carrying that text.
	Positions map[UniqueContentID][]PositionRef

	byText map[string]UniqueContentID
}

// Dedupe maps fragment text to canonical unique-content identifiers.
// Empty-string fragments are excluded from translation entirely; they never
// receive an ID and are passed through untouched by PlanUpdates. Matching is
// exact string equality: case and whitespace differences are distinct
// content.
func Dedupe(fragments []Fragment) *DedupeResult {
	res := &DedupeResult{
		Positions: make(map[UniqueContentID][]PositionRef),
		byText:    make(map[string]UniqueContentID),
	}

	for _, f := range fragments {
		if f.Text == "" {
			continue
		}
		id, ok := res.byText[f.Text]
		if !ok {
			id = UniqueContentID(fmt.Sprintf("u%04d", len(res.Units)+1))
			res.byText[f.Text] = id
			res.Units = append(res.Units, Unit{ID: id, Text: f.Text})
		}
		res.Positions[id] = append(res.Positions[id], f.Position)
	}

	return res
}

// IDFor returns the unique content ID assigned to text, if any.
func (r *DedupeResult) IDFor(text string) (UniqueContentID, bool) {
	id, ok := r.byText[text]
	return id, ok
}

// UniqueCount returns the number of distinct non-empty texts.
func (r *DedupeResult) UniqueCount() int {
	return len(r.Units)
}
