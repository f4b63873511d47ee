package dedup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruvnet/crdtcheck/internal/dedup"
)

// TestCacheMarkVisited requires a Redis instance reachable at
// localhost:6379; it skips when one is not available, matching the rest of
// this codebase's pattern for tests that need a live external dependency.
func TestCacheMarkVisited(t *testing.T) {
	cache, err := dedup.New(dedup.Config{Host: "localhost", Port: 6379, RunID: "dedup-test"})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	var digest [32]byte
	digest[0] = 1

	first, err := cache.MarkVisited(ctx, digest)
	require.NoError(t, err)
	require.True(t, first, "first mark of a digest should report newly-added")

	second, err := cache.MarkVisited(ctx, digest)
	require.NoError(t, err)
	require.False(t, second, "re-marking the same digest should report already-present")

	n, err := cache.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
