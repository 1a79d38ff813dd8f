package slides

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/slides/v1"

	"github.com/eprouveze/gslides-translator/internal/pipeline"
)

// Extractor walks a presentation's structural tree and produces the ordered
// fragment sequence the pipeline deduplicates and later rewrites. It visits
// shapes, table cells, grouped elements and speaker notes.
type Extractor struct {
	factory     SlidesServiceFactory
	tokenSource oauth2.TokenSource
	logger      *slog.Logger
}

// NewExtractor creates an extractor bound to a token source.
func NewExtractor(factory SlidesServiceFactory, tokenSource oauth2.TokenSource, logger *slog.Logger) *Extractor {
	if factory == nil {
		factory = NewRealSlidesServiceFactory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{factory: factory, tokenSource: tokenSource, logger: logger}
}

// Extract reads the presentation and returns its text fragments in document
// order: slide by slide, page elements first, then speaker notes.
func (e *Extractor) Extract(ctx context.Context, presentationID string) ([]pipeline.Fragment, error) {
	service, err := e.factory(ctx, e.tokenSource)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create slides service: %v", ErrSlidesAPIError, err)
	}

	presentation, err := service.GetPresentation(ctx, presentationID)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrPresentationNotFound
		}
		if isForbiddenError(err) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("%w: %v", ErrSlidesAPIError, err)
	}

	var fragments []pipeline.Fragment
	for _, slide := range presentation.Slides {
		if slide == nil {
			continue
		}
		fragments = append(fragments, collectFragments(slide.PageElements, slide.ObjectId, "")...)

		if slide.SlideProperties != nil && slide.SlideProperties.NotesPage != nil {
			notes := collectFragments(slide.SlideProperties.NotesPage.PageElements, slide.ObjectId, "SPEAKER_NOTES:")
			fragments = append(fragments, notes...)
		}
	}

	e.logger.Info("extracted presentation text",
		slog.String("presentation_id", presentationID),
		slog.Int("slides", len(presentation.Slides)),
		slog.Int("fragments", len(fragments)),
	)
	return fragments, nil
}

// collectFragments gathers fragments from page elements, recursing into
// element groups and visiting every table cell individually.
func collectFragments(elements []*slides.PageElement, slideID, stylePrefix string) []pipeline.Fragment {
	var fragments []pipeline.Fragment

	for _, element := range elements {
		if element == nil {
			continue
		}

		if element.Shape != nil && element.Shape.Text != nil {
			text := joinTextRuns(element.Shape.Text)
			if text != "" {
				fragments = append(fragments, pipeline.Fragment{
					Position: pipeline.PositionRef{SlideID: slideID, ObjectID: element.ObjectId},
					Text:     text,
					StyleRef: stylePrefix + shapeType(element.Shape),
				})
			}
		}

		if element.Table != nil {
			for rowIdx, row := range element.Table.TableRows {
				if row == nil {
					continue
				}
				for colIdx, cell := range row.TableCells {
					if cell == nil || cell.Text == nil {
						continue
					}
					text := joinTextRuns(cell.Text)
					if text == "" {
						continue
					}
					fragments = append(fragments, pipeline.Fragment{
						Position: pipeline.PositionRef{
							SlideID:  slideID,
							ObjectID: element.ObjectId,
							Cell:     &pipeline.CellLocation{Row: int64(rowIdx), Column: int64(colIdx)},
						},
						Text:     text,
						StyleRef: stylePrefix + "TABLE_CELL",
					})
				}
			}
		}

		if element.ElementGroup != nil {
			fragments = append(fragments, collectFragments(element.ElementGroup.Children, slideID, stylePrefix)...)
		}
	}

	return fragments
}

// joinTextRuns concatenates the text runs of one text-bearing node.
func joinTextRuns(content *slides.TextContent) string {
	if content == nil || len(content.TextElements) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, element := range content.TextElements {
		if element.TextRun != nil && element.TextRun.Content != "" {
			builder.WriteString(element.TextRun.Content)
		}
	}
	return strings.TrimSpace(builder.String())
}

func shapeType(shape *slides.Shape) string {
	if shape.ShapeType != "" {
		return shape.ShapeType
	}
	return "SHAPE"
}
