package pipeline

const (
	// DefaultMaxBatchItems bounds how many unique strings go into one
	// translation request.
	DefaultMaxBatchItems = 100
	// DefaultMaxBatchChars bounds the total character budget of one
	// translation request.
	DefaultMaxBatchChars = 20000
)

// MakeBatches packs units into translation batches greedily: a unit is added
// to the current batch unless doing so would exceed the item-count limit or
// the character budget, in which case a new batch starts. Units are never
// reordered, so two runs over the same units with the same limits produce
// identical batch boundaries.
//
// A single unit whose text alone exceeds maxChars still forms its own batch;
// it is never dropped or truncated here.
func MakeBatches(units []Unit, maxItems, maxChars int) []TranslationBatch {
	if maxItems <= 0 {
		maxItems = DefaultMaxBatchItems
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxBatchChars
	}

	var batches []TranslationBatch
	var current TranslationBatch

	for _, u := range units {
		chars := len(u.Text)
		full := len(current.Units) >= maxItems || current.Chars+chars > maxChars
		if full && len(current.Units) > 0 {
			batches = append(batches, current)
			current = TranslationBatch{}
		}
		current.Units = append(current.Units, u)
		current.Chars += chars
	}

	if len(current.Units) > 0 {
		batches = append(batches, current)
	}

	return batches
}
