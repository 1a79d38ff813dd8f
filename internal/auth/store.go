package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
)

// CredentialRecord maps an API key to the refresh token obtained through the
// OAuth flow. The server mode uses it to mint per-job token sources.
type CredentialRecord struct {
	APIKey       string    `firestore:"api_key"`
	RefreshToken string    `firestore:"refresh_token"`
	UserEmail    string    `firestore:"user_email,omitempty"`
	CreatedAt    time.Time `firestore:"created_at"`
	LastUsed     time.Time `firestore:"last_used"`
}

// CredentialStore persists credential records.
// The Firestore implementation keys documents by the API key itself.
type CredentialStore interface {
	Store(ctx context.Context, record *CredentialRecord) error
	Get(ctx context.Context, apiKey string) (*CredentialRecord, error)
	UpdateLastUsed(ctx context.Context, apiKey string) error
	Delete(ctx context.Context, apiKey string) error
	Close() error
}

// FirestoreCredentialStore stores credential records in Firestore.
type FirestoreCredentialStore struct {
	client     *firestore.Client
	collection string
}

var _ CredentialStore = (*FirestoreCredentialStore)(nil)

// NewFirestoreCredentialStore creates a store with its own Firestore client.
func NewFirestoreCredentialStore(ctx context.Context, projectID, collection string) (*FirestoreCredentialStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreCredentialStore{client: client, collection: collection}, nil
}

// NewFirestoreCredentialStoreWithClient creates a store over an existing
// client, for testing and dependency injection.
func NewFirestoreCredentialStoreWithClient(client *firestore.Client, collection string) *FirestoreCredentialStore {
	return &FirestoreCredentialStore{client: client, collection: collection}
}

// Close closes the Firestore client.
func (s *FirestoreCredentialStore) Close() error {
	return s.client.Close()
}

// Store writes a credential record, keyed by the API key.
func (s *FirestoreCredentialStore) Store(ctx context.Context, record *CredentialRecord) error {
	_, err := s.client.Collection(s.collection).Doc(record.APIKey).Set(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Get retrieves a credential record by API key.
func (s *FirestoreCredentialStore) Get(ctx context.Context, apiKey string) (*CredentialRecord, error) {
	doc, err := s.client.Collection(s.collection).Doc(apiKey).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	var record CredentialRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential record: %w", err)
	}
	return &record, nil
}

// UpdateLastUsed bumps the last_used timestamp for an API key.
func (s *FirestoreCredentialStore) UpdateLastUsed(ctx context.Context, apiKey string) error {
	_, err := s.client.Collection(s.collection).Doc(apiKey).Update(ctx, []firestore.Update{
		{Path: "last_used", Value: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to update last_used: %w", err)
	}
	return nil
}

// Delete removes a credential record.
func (s *FirestoreCredentialStore) Delete(ctx context.Context, apiKey string) error {
	_, err := s.client.Collection(s.collection).Doc(apiKey).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is a Firestore "document not found" error.
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}
