package slides

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/slides/v1"

	"github.com/eprouveze/gslides-translator/internal/pipeline"
)

func update(objectID, text string) pipeline.UpdateRequest {
	return pipeline.UpdateRequest{
		Position:   pipeline.PositionRef{SlideID: "slide1", ObjectID: objectID},
		Text:       text,
		Translated: true,
	}
}

func TestDuplicate_TitlesCopyWithTargetLanguage(t *testing.T) {
	slidesService := &mockSlidesService{
		GetPresentationFunc: func(ctx context.Context, presentationID string) (*slides.Presentation, error) {
			return &slides.Presentation{PresentationId: presentationID, Title: "Quarterly Review"}, nil
		},
	}
	var copiedName string
	driveService := &mockDriveService{
		CopyFileFunc: func(ctx context.Context, fileID string, file *drive.File) (*drive.File, error) {
			if fileID != "src-id" {
				t.Errorf("expected copy of src-id, got %s", fileID)
			}
			copiedName = file.Name
			return &drive.File{Id: "copy-id", Name: file.Name}, nil
		},
	}
	writer := NewWriter(slidesFactory(slidesService), driveFactory(driveService), &mockTokenSource{}, nil)

	newID, link, err := writer.Duplicate(context.Background(), "src-id", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newID != "copy-id" {
		t.Errorf("expected copy-id, got %s", newID)
	}
	if copiedName != "Quarterly Review - fr" {
		t.Errorf("expected 'Quarterly Review - fr', got %q", copiedName)
	}
	if link != "https://docs.google.com/presentation/d/copy-id/edit" {
		t.Errorf("unexpected link %q", link)
	}
}

func TestDuplicate_DefaultsUntitledPresentations(t *testing.T) {
	slidesService := &mockSlidesService{
		GetPresentationFunc: func(ctx context.Context, presentationID string) (*slides.Presentation, error) {
			return &slides.Presentation{PresentationId: presentationID}, nil
		},
	}
	driveService := &mockDriveService{
		CopyFileFunc: func(ctx context.Context, fileID string, file *drive.File) (*drive.File, error) {
			if file.Name != "Presentation - ja" {
				t.Errorf("expected 'Presentation - ja', got %q", file.Name)
			}
			return &drive.File{Id: "copy-id"}, nil
		},
	}
	writer := NewWriter(slidesFactory(slidesService), driveFactory(driveService), &mockTokenSource{}, nil)

	if _, _, err := writer.Duplicate(context.Background(), "src-id", "ja"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDuplicate_SourceNotFound(t *testing.T) {
	slidesService := &mockSlidesService{
		GetPresentationFunc: func(ctx context.Context, presentationID string) (*slides.Presentation, error) {
			return nil, errors.New("googleapi: Error 404: notFound")
		},
	}
	writer := NewWriter(slidesFactory(slidesService), driveFactory(&mockDriveService{}), &mockTokenSource{}, nil)

	_, _, err := writer.Duplicate(context.Background(), "missing", "fr")
	if !errors.Is(err, ErrPresentationNotFound) {
		t.Errorf("expected ErrPresentationNotFound, got %v", err)
	}
}

func TestDuplicate_CopyForbidden(t *testing.T) {
	slidesService := &mockSlidesService{
		GetPresentationFunc: func(ctx context.Context, presentationID string) (*slides.Presentation, error) {
			return &slides.Presentation{Title: "Locked"}, nil
		},
	}
	driveService := &mockDriveService{
		CopyFileFunc: func(ctx context.Context, fileID string, file *drive.File) (*drive.File, error) {
			return nil, errors.New("googleapi: Error 403: forbidden")
		},
	}
	writer := NewWriter(slidesFactory(slidesService), driveFactory(driveService), &mockTokenSource{}, nil)

	_, _, err := writer.Duplicate(context.Background(), "src-id", "fr")
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}

func TestApplyUpdates_BuildsDeleteInsertPairs(t *testing.T) {
	var received []*slides.Request
	service := &mockSlidesService{
		BatchUpdateFunc: func(ctx context.Context, presentationID string, requests []*slides.Request) (*slides.BatchUpdatePresentationResponse, error) {
			received = append(received, requests...)
			return &slides.BatchUpdatePresentationResponse{}, nil
		},
	}
	writer := NewWriter(slidesFactory(service), driveFactory(&mockDriveService{}), &mockTokenSource{}, nil)

	updates := []pipeline.UpdateRequest{
		update("title1", "Bonjour"),
		{
			Position: pipeline.PositionRef{
				SlideID:  "slide1",
				ObjectID: "table1",
				Cell:     &pipeline.CellLocation{Row: 2, Column: 1},
			},
			Text:       "Chiffre",
			Translated: true,
		},
	}
	if err := writer.ApplyUpdates(context.Background(), "copy-id", updates); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(received) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(received))
	}

	del := received[0].DeleteText
	if del == nil || del.ObjectId != "title1" || del.TextRange.Type != "ALL" {
		t.Errorf("unexpected delete request: %+v", received[0])
	}
	ins := received[1].InsertText
	if ins == nil || ins.Text != "Bonjour" || ins.InsertionIndex != 0 {
		t.Errorf("unexpected insert request: %+v", received[1])
	}

	cellIns := received[3].InsertText
	if cellIns == nil || cellIns.CellLocation == nil {
		t.Fatal("expected cell location on table insert")
	}
	if cellIns.CellLocation.RowIndex != 2 || cellIns.CellLocation.ColumnIndex != 1 {
		t.Errorf("expected cell (2,1), got (%d,%d)", cellIns.CellLocation.RowIndex, cellIns.CellLocation.ColumnIndex)
	}
}

func TestApplyUpdates_SkipsPassthroughAndEmpty(t *testing.T) {
	calls := 0
	service := &mockSlidesService{
		BatchUpdateFunc: func(ctx context.Context, presentationID string, requests []*slides.Request) (*slides.BatchUpdatePresentationResponse, error) {
			calls++
			return &slides.BatchUpdatePresentationResponse{}, nil
		},
	}
	writer := NewWriter(slidesFactory(service), driveFactory(&mockDriveService{}), &mockTokenSource{}, nil)

	updates := []pipeline.UpdateRequest{
		{Position: pipeline.PositionRef{ObjectID: "a"}, Text: "kept as is", Translated: false},
		{Position: pipeline.PositionRef{ObjectID: "b"}, Text: "", Translated: true},
	}
	if err := writer.ApplyUpdates(context.Background(), "copy-id", updates); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no API calls, got %d", calls)
	}
}

func TestApplyUpdates_ChunksLargePlans(t *testing.T) {
	var sizes []int
	service := &mockSlidesService{
		BatchUpdateFunc: func(ctx context.Context, presentationID string, requests []*slides.Request) (*slides.BatchUpdatePresentationResponse, error) {
			sizes = append(sizes, len(requests))
			return &slides.BatchUpdatePresentationResponse{}, nil
		},
	}
	writer := NewWriter(slidesFactory(service), driveFactory(&mockDriveService{}), &mockTokenSource{}, nil)

	// 120 updates produce 240 requests: 100 + 100 + 40.
	var updates []pipeline.UpdateRequest
	for i := 0; i < 120; i++ {
		updates = append(updates, update(fmt.Sprintf("obj-%d", i), fmt.Sprintf("text-%d", i)))
	}
	if err := writer.ApplyUpdates(context.Background(), "copy-id", updates); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{100, 100, 40}
	if len(sizes) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(sizes))
	}
	for i, n := range want {
		if sizes[i] != n {
			t.Errorf("call %d: expected %d requests, got %d", i, n, sizes[i])
		}
	}
}

func TestApplyUpdates_HonorsCancellationBetweenCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	service := &mockSlidesService{
		BatchUpdateFunc: func(ctx context.Context, presentationID string, requests []*slides.Request) (*slides.BatchUpdatePresentationResponse, error) {
			calls++
			cancel()
			return &slides.BatchUpdatePresentationResponse{}, nil
		},
	}
	writer := NewWriter(slidesFactory(service), driveFactory(&mockDriveService{}), &mockTokenSource{}, nil)

	var updates []pipeline.UpdateRequest
	for i := 0; i < 120; i++ {
		updates = append(updates, update(fmt.Sprintf("obj-%d", i), "x"))
	}
	err := writer.ApplyUpdates(ctx, "copy-id", updates)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestApplyUpdates_TargetVanished(t *testing.T) {
	service := &mockSlidesService{
		BatchUpdateFunc: func(ctx context.Context, presentationID string, requests []*slides.Request) (*slides.BatchUpdatePresentationResponse, error) {
			return nil, errors.New("googleapi: Error 404: notFound")
		},
	}
	writer := NewWriter(slidesFactory(service), driveFactory(&mockDriveService{}), &mockTokenSource{}, nil)

	err := writer.ApplyUpdates(context.Background(), "gone", []pipeline.UpdateRequest{update("a", "x")})
	if !errors.Is(err, ErrPresentationNotFound) {
		t.Errorf("expected ErrPresentationNotFound, got %v", err)
	}
}
