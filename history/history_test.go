package history

import (
	"testing"
	"time"

	"codesuggest/suggestion"
	"codesuggest/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(id uint64) *suggestion.Point {
	return suggestion.New(id, types.DocumentInfo{Path: "a.go"}, types.Position{Line: int(id)}, types.Prompt{}, types.TriggerAuto, time.Unix(0, 0))
}

func ids(points []*suggestion.Point) []uint64 {
	out := make([]uint64, 0, len(points))
	for _, p := range points {
		out = append(out, p.ID())
	}
	return out
}

func TestAppendAndMostRecent(t *testing.T) {
	h := New(0)
	assert.Nil(t, h.MostRecent(), "empty history")

	h.Append(point(1))
	h.Append(point(2))
	h.Append(point(3))

	require.NotNil(t, h.MostRecent())
	assert.Equal(t, uint64(3), h.MostRecent().ID(), "tail")
	assert.Equal(t, []uint64{1, 2, 3}, ids(h.All()), "insertion order")
	assert.Equal(t, 3, h.Len())
}

func TestAllIsSnapshot(t *testing.T) {
	h := New(0)
	h.Append(point(1))
	snap := h.All()

	h.Append(point(2))
	require.NoError(t, h.PruneFirst(1))

	assert.Equal(t, []uint64{1}, ids(snap), "snapshot unaffected by later mutation")
	assert.Equal(t, []uint64{2}, ids(h.All()))
}

func TestPruneFirst(t *testing.T) {
	h := New(0)
	for i := uint64(1); i <= 4; i++ {
		h.Append(point(i))
	}

	require.NoError(t, h.PruneFirst(2))
	assert.Equal(t, []uint64{3, 4}, ids(h.All()))

	require.NoError(t, h.PruneFirst(0))
	assert.Equal(t, 2, h.Len())

	err := h.PruneFirst(3)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, []uint64{3, 4}, ids(h.All()), "failed prune leaves history intact")

	assert.ErrorIs(t, h.PruneFirst(-1), ErrOutOfRange)

	require.NoError(t, h.PruneFirst(2))
	assert.Nil(t, h.MostRecent())
}

func TestAppendEvictsOldestBeyondCapacity(t *testing.T) {
	h := New(3)
	evicted := 0
	for i := uint64(1); i <= 5; i++ {
		evicted += h.Append(point(i))
	}

	assert.Equal(t, 2, evicted)
	assert.Equal(t, []uint64{3, 4, 5}, ids(h.All()))
}

func TestFind(t *testing.T) {
	h := New(0)
	for _, id := range []uint64{2, 5, 9} {
		h.Append(point(id))
	}

	require.NotNil(t, h.Find(5))
	assert.Equal(t, uint64(5), h.Find(5).ID())
	assert.Nil(t, h.Find(3), "missing id")
	assert.Nil(t, h.Find(10), "beyond tail")

	require.NoError(t, h.PruneFirst(1))
	assert.Nil(t, h.Find(2), "pruned id")
}
