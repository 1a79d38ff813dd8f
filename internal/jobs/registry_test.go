package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eprouveze/gslides-translator/internal/pipeline"
)

func TestRegistryCreateAndGet(t *testing.T) {
	registry := NewRegistry(nil)

	job, ctx := registry.Create("pres-1", "en", "fr")
	require.NotNil(t, job)
	require.NotNil(t, ctx)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "pres-1", job.PresentationID)
	assert.Equal(t, "en", job.SourceLang)
	assert.Equal(t, "fr", job.TargetLang)
	assert.NotNil(t, job.Progress)
	assert.False(t, job.CreatedAt.IsZero())

	got, ok := registry.Get(job.ID)
	require.True(t, ok)
	assert.Same(t, job, got)

	_, ok = registry.Get("unknown")
	assert.False(t, ok)

	assert.Equal(t, 1, registry.Len())
}

func TestRegistryJobsAreIsolated(t *testing.T) {
	registry := NewRegistry(nil)

	a, _ := registry.Create("pres-a", "en", "fr")
	b, _ := registry.Create("pres-b", "en", "ja")

	assert.NotEqual(t, a.ID, b.ID)

	a.Progress.SetPercent(50)
	snapA, _ := registry.Snapshot(a.ID)
	snapB, _ := registry.Snapshot(b.ID)
	assert.Equal(t, 50, snapA.Percent)
	assert.Equal(t, 0, snapB.Percent)
}

func TestRegistryCancelStopsOnlyOwnContext(t *testing.T) {
	registry := NewRegistry(nil)

	a, ctxA := registry.Create("pres-a", "en", "fr")
	_, ctxB := registry.Create("pres-b", "en", "fr")

	a.Cancel()

	assert.Error(t, ctxA.Err())
	assert.NoError(t, ctxB.Err())

	// Cancel is safe to call twice.
	a.Cancel()
}

func TestRegistrySnapshotUnknownJob(t *testing.T) {
	registry := NewRegistry(nil)

	snap, ok := registry.Snapshot("missing")
	assert.False(t, ok)
	assert.Equal(t, pipeline.Snapshot{}, snap)
}
