package explorer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvnet/crdtcheck/applications/counter"
	"github.com/ruvnet/crdtcheck/internal/actor"
	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc/fake"
	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/explorer"
	"github.com/ruvnet/crdtcheck/internal/model"
	"github.com/ruvnet/crdtcheck/internal/properties"
)

// memCache is an in-process stand-in for a Redis-backed dedup.Cache,
// satisfying explorer.DedupCache without needing a live Redis instance.
type memCache struct {
	mu   sync.Mutex
	seen map[[32]byte]bool
}

func newMemCache() *memCache {
	return &memCache{seen: map[[32]byte]bool{}}
}

func (c *memCache) MarkVisited(_ context.Context, digest [32]byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[digest] {
		return false, nil
	}
	c.seen[digest] = true
	return true, nil
}

func buildCounterTopology(t *testing.T) *model.Topology {
	t.Helper()
	backend := fake.New()
	cfg := model.Config{
		Servers:    2,
		SyncMethod: actor.SyncMessages,
		AppFactory: func(document.ReplicaID) app.Application {
			return counter.CRDT{Backend: backend}
		},
		DriverFactory: func(document.ReplicaID) []app.Driver {
			return []app.Driver{
				counter.SingleShotDriver{Send: counter.Increment},
			}
		},
		UserProperties: []properties.Property{counter.ExpectedValueProperty(0)},
	}
	top, err := cfg.Build()
	require.NoError(t, err)
	return top
}

// RunDistributed with an empty cache must visit exactly as many states as
// plain Run, since nothing has been claimed yet.
func TestRunDistributedWithEmptyCacheMatchesRun(t *testing.T) {
	plain := explorer.Run(buildCounterTopology(t), 20)
	distributed := explorer.RunDistributed(buildCounterTopology(t), 20, nil, newMemCache())
	assert.Equal(t, plain.StatesVisited, distributed.StatesVisited)
}

// A state pre-claimed in the cache is skipped even though the local digest
// map has never seen it, mirroring a worker picking up where a peer left off.
func TestRunDistributedSkipsStatesClaimedByCache(t *testing.T) {
	top := buildCounterTopology(t)
	cache := newMemCache()

	full := explorer.RunDistributed(top, 20, nil, cache)
	require.Greater(t, full.StatesVisited, 0)

	// Every digest RunDistributed visited is now marked in the shared cache;
	// a second pass over a fresh topology instance must skip all of them.
	secondTop := buildCounterTopology(t)
	rerun := explorer.RunDistributed(secondTop, 20, nil, cache)
	assert.Equal(t, 0, rerun.StatesVisited, "second worker should find nothing left unclaimed")
}
