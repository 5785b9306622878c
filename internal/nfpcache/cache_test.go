package nfpcache

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/polynest/nester/internal/geometry"
	"github.com/polynest/nester/internal/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyCanonicalizesRotation(t *testing.T) {
	k1 := NewKey(1, 2, 370)
	k2 := NewKey(1, 2, 10)
	assert.Equal(t, k1, k2)
}

func TestMustGetMissReturnsErrCacheMiss(t *testing.T) {
	c := New()
	_, err := c.MustGet(NewKey(0, 1, 0))
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestFillComputesOnlyMissingKeysOnce(t *testing.T) {
	c := New()
	pool := workerpool.New(4)
	var calls int64

	compute := func(k Key) Entry {
		atomic.AddInt64(&calls, 1)
		return Entry{Polygon: geometry.NewPolygon([]geometry.Point{{X: 0, Y: 0}}), Valid: true}
	}

	keys := []Key{NewKey(0, 1, 0), NewKey(0, 2, 0), NewKey(1, 2, 0)}
	require.NoError(t, c.Fill(context.Background(), pool, keys, compute))
	assert.EqualValues(t, 3, calls)
	assert.Equal(t, 3, c.Len())

	// Second fill with an overlapping key set should not recompute
	// anything already cached.
	keys2 := append(keys, NewKey(0, 3, 0))
	require.NoError(t, c.Fill(context.Background(), pool, keys2, compute))
	assert.EqualValues(t, 4, calls)
	assert.Equal(t, 4, c.Len())
}

func TestFillDeduplicatesRepeatedKeys(t *testing.T) {
	c := New()
	pool := workerpool.New(4)
	var calls int64
	compute := func(k Key) Entry {
		atomic.AddInt64(&calls, 1)
		return Entry{Valid: false}
	}
	k := NewKey(0, 1, 0)
	require.NoError(t, c.Fill(context.Background(), pool, []Key{k, k, k}, compute))
	assert.EqualValues(t, 1, calls)
}
