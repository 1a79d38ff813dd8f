// Package slides adapts the Google Slides and Drive APIs into the source and
// target collaborators of the translation pipeline.
package slides

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/slides/v1"
)

// Sentinel errors surfaced by the collaborator adapters.
var (
	ErrPresentationNotFound = errors.New("presentation not found")
	ErrAccessDenied         = errors.New("access denied to presentation")
	ErrSlidesAPIError       = errors.New("slides API error")
	ErrDriveAPIError        = errors.New("drive API error")
)

// SlidesService abstracts the Google Slides API for testing.
type SlidesService interface {
	GetPresentation(ctx context.Context, presentationID string) (*slides.Presentation, error)
	BatchUpdate(ctx context.Context, presentationID string, requests []*slides.Request) (*slides.BatchUpdatePresentationResponse, error)
}

// DriveService abstracts the Google Drive API for testing.
type DriveService interface {
	CopyFile(ctx context.Context, fileID string, file *drive.File) (*drive.File, error)
}

// SlidesServiceFactory creates a Slides service from a token source.
type SlidesServiceFactory func(ctx context.Context, tokenSource oauth2.TokenSource) (SlidesService, error)

// DriveServiceFactory creates a Drive service from a token source.
type DriveServiceFactory func(ctx context.Context, tokenSource oauth2.TokenSource) (DriveService, error)

// realSlidesService wraps the actual Google Slides API.
type realSlidesService struct {
	service *slides.Service
}

func (s *realSlidesService) GetPresentation(ctx context.Context, presentationID string) (*slides.Presentation, error) {
	return s.service.Presentations.Get(presentationID).Context(ctx).Do()
}

func (s *realSlidesService) BatchUpdate(ctx context.Context, presentationID string, requests []*slides.Request) (*slides.BatchUpdatePresentationResponse, error) {
	return s.service.Presentations.BatchUpdate(presentationID, &slides.BatchUpdatePresentationRequest{
		Requests: requests,
	}).Context(ctx).Do()
}

// NewRealSlidesServiceFactory returns a factory that creates real Slides
// services.
func NewRealSlidesServiceFactory() SlidesServiceFactory {
	return func(ctx context.Context, tokenSource oauth2.TokenSource) (SlidesService, error) {
		service, err := slides.NewService(ctx, option.WithTokenSource(tokenSource))
		if err != nil {
			return nil, err
		}
		return &realSlidesService{service: service}, nil
	}
}

// realDriveService wraps the actual Google Drive API.
type realDriveService struct {
	service *drive.Service
}

func (s *realDriveService) CopyFile(ctx context.Context, fileID string, file *drive.File) (*drive.File, error) {
	return s.service.Files.Copy(fileID, file).Context(ctx).Do()
}

// NewRealDriveServiceFactory returns a factory that creates real Drive
// services.
func NewRealDriveServiceFactory() DriveServiceFactory {
	return func(ctx context.Context, tokenSource oauth2.TokenSource) (DriveService, error) {
		service, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
		if err != nil {
			return nil, err
		}
		return &realDriveService{service: service}, nil
	}
}

// isNotFoundError checks if an error indicates the resource was not found.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "notFound") ||
		strings.Contains(errStr, "not found")
}

// isForbiddenError checks if an error indicates access was denied.
func isForbiddenError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "permission denied")
}
