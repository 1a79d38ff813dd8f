package jobs

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/eprouveze/gslides-translator/internal/auth"
	"github.com/eprouveze/gslides-translator/internal/pipeline"
)

// FirestoreRecoveryStore persists per-job translation results so a rerun of
// an interrupted job does not retranslate batches that already completed.
// Documents are keyed by job ID.
type FirestoreRecoveryStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreRecoveryStore creates a recovery store with its own client.
func NewFirestoreRecoveryStore(ctx context.Context, projectID, collection string) (*FirestoreRecoveryStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreRecoveryStore{client: client, collection: collection}, nil
}

// NewFirestoreRecoveryStoreWithClient creates a recovery store over an
// existing client.
func NewFirestoreRecoveryStoreWithClient(client *firestore.Client, collection string) *FirestoreRecoveryStore {
	return &FirestoreRecoveryStore{client: client, collection: collection}
}

// Close closes the Firestore client.
func (s *FirestoreRecoveryStore) Close() error {
	return s.client.Close()
}

// ForJob returns a pipeline.RecoveryStore view bound to one job.
func (s *FirestoreRecoveryStore) ForJob(jobID string) pipeline.RecoveryStore {
	return &jobRecovery{store: s, jobID: jobID}
}

// recoveryDocument is the Firestore shape of one job's recovery state.
type recoveryDocument struct {
	Items     map[string]string `firestore:"items"`
	UpdatedAt time.Time         `firestore:"updated_at"`
}

type jobRecovery struct {
	store *FirestoreRecoveryStore
	jobID string
}

// Load returns the translations persisted so far for this job. A missing
// document means a fresh job, not an error.
func (r *jobRecovery) Load(ctx context.Context) (pipeline.TranslationResult, error) {
	doc, err := r.store.client.Collection(r.store.collection).Doc(r.jobID).Get(ctx)
	if err != nil {
		if auth.IsNotFound(err) {
			return pipeline.TranslationResult{}, nil
		}
		return nil, fmt.Errorf("failed to load recovery state: %w", err)
	}

	var state recoveryDocument
	if err := doc.DataTo(&state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recovery state: %w", err)
	}

	result := make(pipeline.TranslationResult, len(state.Items))
	for id, text := range state.Items {
		result[pipeline.UniqueContentID(id)] = text
	}
	return result, nil
}

// SaveBatch merges one batch's translations into the job document.
func (r *jobRecovery) SaveBatch(ctx context.Context, batch pipeline.TranslationResult) error {
	items := make(map[string]string, len(batch))
	for id, text := range batch {
		items[string(id)] = text
	}

	_, err := r.store.client.Collection(r.store.collection).Doc(r.jobID).Set(ctx, map[string]any{
		"items":      items,
		"updated_at": time.Now(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to persist batch result: %w", err)
	}
	return nil
}
