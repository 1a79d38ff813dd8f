// Package pipeline implements the content deduplication and reassembly
// pipeline: extracted text fragments are mapped to unique translation units,
// translated in batches, and reassembled into an update plan that targets
// every original position exactly once.
package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline failures. All of them move the driver to the
// Failed state; only ErrTranslateFailed is retried per batch before that.
var (
	ErrAuthFailed         = errors.New("authentication failed")
	ErrSourceRead         = errors.New("failed to read source presentation")
	ErrNoTranslatableText = errors.New("no translatable text found")
	ErrTranslateFailed    = errors.New("translation failed")
	ErrStructuralMismatch = errors.New("translation response does not match request structure")
	ErrMissingTranslation = errors.New("missing translation for submitted content")
	ErrTargetWrite        = errors.New("failed to write target presentation")
	ErrCanceled           = errors.New("pipeline canceled")
)

// CellLocation addresses a table cell inside a table element.
type CellLocation struct {
	Row    int64 `json:"row"`
	Column int64 `json:"column"`
}

// PositionRef locates a text-bearing node well enough to write a replacement
// back later. Cell is nil when the text lives directly on a shape.
type PositionRef struct {
	SlideID  string        `json:"slide_id"`
	ObjectID string        `json:"object_id"`
	Cell     *CellLocation `json:"cell,omitempty"`
}

// Key returns a stable string form of the position, usable as a map key and
// as a recovery-store document field.
func (p PositionRef) Key() string {
	if p.Cell != nil {
		return fmt.Sprintf("%s/%s@r%d_c%d", p.SlideID, p.ObjectID, p.Cell.Row, p.Cell.Column)
	}
	return p.SlideID + "/" + p.ObjectID
}

// Fragment is one unit of translatable text produced by extraction. It is
// read-only after extraction and consumed when the update plan is built.
type Fragment struct {
	Position PositionRef
	Text     string
	// StyleRef is opaque to the pipeline and carried through unchanged;
	// styling is owned entirely by the presentation collaborator.
	StyleRef string
}

// UniqueContentID is the canonical key for one distinct fragment text. Two
// fragments share an ID iff their texts are byte-for-byte equal; the ID
// carries no meaning beyond avoiding retranslation of identical text.
type UniqueContentID string

// Unit pairs a UniqueContentID with its original text. Units preserve
// first-appearance order so downstream batching stays deterministic.
type Unit struct {
	ID   UniqueContentID
	Text string
}

// TranslationBatch is an ordered group of units submitted together to the
// translation collaborator, bounded by item count and character budget.
type TranslationBatch struct {
	Units []Unit
	Chars int
}

// TranslationResult maps unique content to its translated text. Every
// submitted UniqueContentID must be present before rewriting begins.
type TranslationResult map[UniqueContentID]string

// Merge copies all entries of other into r.
func (r TranslationResult) Merge(other TranslationResult) {
	for id, text := range other {
		r[id] = text
	}
}

// UpdateRequest targets one original position with its final text. For
// fragments excluded from translation the original text passes through.
type UpdateRequest struct {
	Position   PositionRef
	Text       string
	StyleRef   string
	Translated bool
}
