package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(id, text string) Unit {
	return Unit{ID: UniqueContentID(id), Text: text}
}

func TestMakeBatches_ItemLimit(t *testing.T) {
	units := []Unit{
		unit("u1", "a"),
		unit("u2", "b"),
		unit("u3", "c"),
		unit("u4", "d"),
		unit("u5", "e"),
	}

	batches := MakeBatches(units, 2, 1000)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Units, 2)
	assert.Len(t, batches[1].Units, 2)
	assert.Len(t, batches[2].Units, 1)
}

func TestMakeBatches_CharBudget(t *testing.T) {
	units := []Unit{
		unit("u1", strings.Repeat("a", 60)),
		unit("u2", strings.Repeat("b", 60)),
		unit("u3", strings.Repeat("c", 60)),
	}

	batches := MakeBatches(units, 100, 100)

	require.Len(t, batches, 3)
	for i, b := range batches {
		assert.Len(t, b.Units, 1, "batch %d", i)
		assert.Equal(t, 60, b.Chars)
	}
}

func TestMakeBatches_OversizedEntryOwnBatch(t *testing.T) {
	units := []Unit{
		unit("u1", "small"),
		unit("u2", strings.Repeat("x", 500)),
		unit("u3", "tiny"),
	}

	batches := MakeBatches(units, 100, 100)

	require.Len(t, batches, 3)
	assert.Equal(t, UniqueContentID("u2"), batches[1].Units[0].ID,
		"oversized entry still forms its own batch, never dropped")
}

func TestMakeBatches_PreservesOrder(t *testing.T) {
	units := []Unit{
		unit("u1", "one"),
		unit("u2", "two"),
		unit("u3", "three"),
		unit("u4", "four"),
	}

	batches := MakeBatches(units, 3, 1000)

	var got []UniqueContentID
	for _, b := range batches {
		for _, u := range b.Units {
			got = append(got, u.ID)
		}
	}
	assert.Equal(t, []UniqueContentID{"u1", "u2", "u3", "u4"}, got)
}

func TestMakeBatches_Deterministic(t *testing.T) {
	units := []Unit{
		unit("u1", strings.Repeat("a", 30)),
		unit("u2", strings.Repeat("b", 45)),
		unit("u3", strings.Repeat("c", 10)),
		unit("u4", strings.Repeat("d", 80)),
		unit("u5", strings.Repeat("e", 5)),
	}

	first := MakeBatches(units, 2, 60)
	second := MakeBatches(units, 2, 60)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Units, second[i].Units, "batch %d boundaries must be identical", i)
		assert.Equal(t, first[i].Chars, second[i].Chars)
	}
}

func TestMakeBatches_Empty(t *testing.T) {
	assert.Nil(t, MakeBatches(nil, 10, 100))
}

func TestMakeBatches_DefaultLimits(t *testing.T) {
	units := []Unit{unit("u1", "text")}
	batches := MakeBatches(units, 0, 0)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Units, 1)
}
