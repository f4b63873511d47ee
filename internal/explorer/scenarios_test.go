package explorer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvnet/crdtcheck/applications/counter"
	"github.com/ruvnet/crdtcheck/applications/listmoves"
	"github.com/ruvnet/crdtcheck/applications/todo"
	"github.com/ruvnet/crdtcheck/internal/actor"
	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc/fake"
	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/explorer"
	"github.com/ruvnet/crdtcheck/internal/history"
	"github.com/ruvnet/crdtcheck/internal/model"
	"github.com/ruvnet/crdtcheck/internal/properties"
)

func discoveryNamed(r *explorer.Report, name string) (explorer.Discovery, bool) {
	for _, d := range r.Discoveries {
		if d.Property == name {
			return d, true
		}
	}
	return explorer.Discovery{}, false
}

// Scenario 1: naive counter encoding must fail -- concurrent increments race
// and lose an update.
func TestScenarioNaiveCounterMustFail(t *testing.T) {
	backend := fake.New()
	cfg := model.Config{
		Servers:    2,
		SyncMethod: actor.SyncMessages,
		AppFactory: func(replica document.ReplicaID) app.Application {
			return counter.Naive{Backend: backend}
		},
		DriverFactory: func(server document.ReplicaID) []app.Driver {
			return []app.Driver{
				counter.SingleShotDriver{Send: counter.Increment},
				counter.SingleShotDriver{Send: counter.Decrement},
			}
		},
		UserProperties: []properties.Property{counter.ExpectedValueProperty(0)},
	}
	top, err := cfg.Build()
	require.NoError(t, err)

	report := explorer.Run(top, 20)
	_, violated := discoveryNamed(report, "counter-value-matches-net-ops")
	assert.True(t, violated, "naive LWW counter must lose an update under concurrency")
}

// Scenario 2: CRDT counter type with a seeded initial change must pass.
func TestScenarioCRDTCounterMustPass(t *testing.T) {
	backend := fake.New()
	cfg := model.Config{
		Servers:    2,
		SyncMethod: actor.SyncMessages,
		AppFactory: func(replica document.ReplicaID) app.Application {
			return counter.CRDT{Backend: backend}
		},
		DriverFactory: func(server document.ReplicaID) []app.Driver {
			return []app.Driver{
				counter.SingleShotDriver{Send: counter.Increment},
				counter.SingleShotDriver{Send: counter.Decrement},
			}
		},
		UserProperties: []properties.Property{counter.ExpectedValueProperty(0)},
	}
	top, err := cfg.Build()
	require.NoError(t, err)

	report := explorer.Run(top, 20)
	_, violated := discoveryNamed(report, "counter-value-matches-net-ops")
	assert.False(t, violated, "CRDT counter must converge to the correct net total")
}

// Scenario 3: concurrent list moves of the same element must produce a
// duplicate.
func TestScenarioListMoveDuplicatesMustFail(t *testing.T) {
	backend := fake.New()
	cfg := model.Config{
		Servers:    2,
		SyncMethod: actor.SyncMessages,
		AppFactory: func(replica document.ReplicaID) app.Application {
			return listmoves.Application{Backend: backend}
		},
		DriverFactory: func(server document.ReplicaID) []app.Driver {
			return []app.Driver{
				listmoves.MoveDriver{From: "b", NewIDSeq: 1},
			}
		},
		UserProperties: []properties.Property{listmoves.NoDuplicatesProperty()},
	}
	top, err := cfg.Build()
	require.NoError(t, err)

	report := explorer.Run(top, 20)
	_, violated := discoveryNamed(report, "no-duplicates-when-in-sync")
	assert.True(t, violated, "concurrent moves of the same element must duplicate it")
}

// Scenario 4: each server creates one todo, then deletes it by the
// just-created id. Non-random sequential ids collide across replicas, so two
// completed creates collapse into one document entry and the live count
// falls short of what the recorded history says ought to be present.
func TestScenarioTodoIntegerIDsMustFail(t *testing.T) {
	backend := fake.New()
	cfg := model.Config{
		Servers:    2,
		SyncMethod: actor.SyncMessages,
		AppFactory: func(replica document.ReplicaID) app.Application {
			return todo.Application{Backend: backend, IDs: todo.IntegerIDs}
		},
		DriverFactory: func(server document.ReplicaID) []app.Driver {
			return []app.Driver{todo.CreateThenDeleteDriver{Text: "buy milk"}}
		},
		History:        history.Default{},
		UserProperties: []properties.Property{todo.CountProperty()},
	}
	top, err := cfg.Build()
	require.NoError(t, err)

	report := explorer.Run(top, 20)
	_, violated := discoveryNamed(report, "todo-count")
	assert.True(t, violated, "sequential per-replica ids must collide across replicas")
}

// Scenario 5: same create-then-delete drivers, but replica-seeded ids never
// collide, so the live todo count always matches the history-derived count.
func TestScenarioTodoRandomIDsMustPass(t *testing.T) {
	backend := fake.New()
	cfg := model.Config{
		Servers:    2,
		SyncMethod: actor.SyncMessages,
		AppFactory: func(replica document.ReplicaID) app.Application {
			return todo.Application{Backend: backend, IDs: todo.ReplicaSeededIDs}
		},
		DriverFactory: func(server document.ReplicaID) []app.Driver {
			return []app.Driver{todo.CreateThenDeleteDriver{Text: "buy milk"}}
		},
		History:        history.Default{},
		UserProperties: []properties.Property{todo.CountProperty()},
	}
	top, err := cfg.Build()
	require.NoError(t, err)

	report := explorer.Run(top, 20)
	_, violated := discoveryNamed(report, "todo-count")
	assert.False(t, violated, "replica-seeded ids must never collide")
}

// Scenario 6: save-load invariance holds across every visited state,
// regardless of which driver mix is running.
func TestScenarioSaveLoadInvariantAlwaysHolds(t *testing.T) {
	backend := fake.New()
	cfg := model.Config{
		Servers:           2,
		SyncMethod:        actor.SyncSnapshot,
		RestartEnabled:    true,
		WithSaveLoadCheck: true,
		AppFactory: func(replica document.ReplicaID) app.Application {
			return counter.CRDT{Backend: backend}
		},
		DriverFactory: func(server document.ReplicaID) []app.Driver {
			return []app.Driver{counter.SingleShotDriver{Send: counter.Increment}}
		},
	}
	top, err := cfg.Build()
	require.NoError(t, err)

	report := explorer.Run(top, 15)
	_, violated := discoveryNamed(report, "save-load")
	assert.False(t, violated, "save->load must reproduce the same heads in every visited state")
}
