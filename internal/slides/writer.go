package slides

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/slides/v1"

	"github.com/eprouveze/gslides-translator/internal/pipeline"
)

// maxRequestsPerCall bounds how many requests go into one batchUpdate call,
// matching the Slides API request-size limits.
const maxRequestsPerCall = 100

// Writer duplicates the source presentation and applies the translated
// update plan to the duplicate. The original is never modified.
type Writer struct {
	slidesFactory SlidesServiceFactory
	driveFactory  DriveServiceFactory
	tokenSource   oauth2.TokenSource
	logger        *slog.Logger
}

// NewWriter creates a writer bound to a token source.
func NewWriter(slidesFactory SlidesServiceFactory, driveFactory DriveServiceFactory, tokenSource oauth2.TokenSource, logger *slog.Logger) *Writer {
	if slidesFactory == nil {
		slidesFactory = NewRealSlidesServiceFactory()
	}
	if driveFactory == nil {
		driveFactory = NewRealDriveServiceFactory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		slidesFactory: slidesFactory,
		driveFactory:  driveFactory,
		tokenSource:   tokenSource,
		logger:        logger,
	}
}

// Duplicate copies the presentation via the Drive API, titling the copy
// "<original title> - <target language>", and returns the new presentation's
// ID and edit link.
func (w *Writer) Duplicate(ctx context.Context, presentationID, targetLang string) (string, string, error) {
	slidesService, err := w.slidesFactory(ctx, w.tokenSource)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to create slides service: %v", ErrSlidesAPIError, err)
	}

	presentation, err := slidesService.GetPresentation(ctx, presentationID)
	if err != nil {
		if isNotFoundError(err) {
			return "", "", ErrPresentationNotFound
		}
		if isForbiddenError(err) {
			return "", "", ErrAccessDenied
		}
		return "", "", fmt.Errorf("%w: %v", ErrSlidesAPIError, err)
	}

	title := presentation.Title
	if title == "" {
		title = "Presentation"
	}
	newTitle := fmt.Sprintf("%s - %s", title, targetLang)

	driveService, err := w.driveFactory(ctx, w.tokenSource)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to create drive service: %v", ErrDriveAPIError, err)
	}

	copied, err := driveService.CopyFile(ctx, presentationID, &drive.File{Name: newTitle})
	if err != nil {
		if isForbiddenError(err) {
			return "", "", ErrAccessDenied
		}
		return "", "", fmt.Errorf("%w: copy failed: %v", ErrDriveAPIError, err)
	}

	link := fmt.Sprintf("https://docs.google.com/presentation/d/%s/edit", copied.Id)
	w.logger.Info("presentation duplicated",
		slog.String("source_id", presentationID),
		slog.String("new_id", copied.Id),
		slog.String("title", newTitle),
	)
	return copied.Id, link, nil
}

// ApplyUpdates turns the update plan into deleteText/insertText request
// pairs and executes them in bounded batchUpdate calls. Fragments whose text
// passed through untranslated are skipped; cancellation is honored between
// calls, never mid-request.
func (w *Writer) ApplyUpdates(ctx context.Context, presentationID string, updates []pipeline.UpdateRequest) error {
	service, err := w.slidesFactory(ctx, w.tokenSource)
	if err != nil {
		return fmt.Errorf("%w: failed to create slides service: %v", ErrSlidesAPIError, err)
	}

	requests := buildTextRequests(updates)
	if len(requests) == 0 {
		return nil
	}

	calls := 0
	for start := 0; start < len(requests); start += maxRequestsPerCall {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + maxRequestsPerCall
		if end > len(requests) {
			end = len(requests)
		}
		if _, err := service.BatchUpdate(ctx, presentationID, requests[start:end]); err != nil {
			if isNotFoundError(err) {
				return ErrPresentationNotFound
			}
			if isForbiddenError(err) {
				return ErrAccessDenied
			}
			return fmt.Errorf("%w: batch %d: %v", ErrSlidesAPIError, calls+1, err)
		}
		calls++
	}

	w.logger.Info("applied text updates",
		slog.String("presentation_id", presentationID),
		slog.Int("requests", len(requests)),
		slog.Int("api_calls", calls),
	)
	return nil
}

// buildTextRequests produces a deleteText(ALL)+insertText pair per translated
// update, addressing table cells through their cell location.
func buildTextRequests(updates []pipeline.UpdateRequest) []*slides.Request {
	requests := make([]*slides.Request, 0, len(updates)*2)

	for _, u := range updates {
		if !u.Translated || u.Text == "" {
			continue
		}

		var cell *slides.TableCellLocation
		if u.Position.Cell != nil {
			cell = &slides.TableCellLocation{
				RowIndex:    u.Position.Cell.Row,
				ColumnIndex: u.Position.Cell.Column,
			}
		}

		requests = append(requests,
			&slides.Request{
				DeleteText: &slides.DeleteTextRequest{
					ObjectId:     u.Position.ObjectID,
					CellLocation: cell,
					TextRange:    &slides.Range{Type: "ALL"},
				},
			},
			&slides.Request{
				InsertText: &slides.InsertTextRequest{
					ObjectId:       u.Position.ObjectID,
					CellLocation:   cell,
					InsertionIndex: 0,
					Text:           u.Text,
				},
			},
		)
	}

	return requests
}
