package todo

import (
	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/history"
	"github.com/ruvnet/crdtcheck/internal/properties"
)

// CreateThenDeleteDriver creates exactly one todo at actor start, then
// deletes that same todo once the create completes.
type CreateThenDeleteDriver struct {
	Text string
}

// Init dispatches the one Create input.
func (d CreateThenDeleteDriver) Init(replica document.ReplicaID) (app.DriverState, []app.Input) {
	return app.NoopDriverState{}, []app.Input{Create{Text: d.Text}}
}

// HandleOutput follows a Created reply with a Delete of the same id.
func (d CreateThenDeleteDriver) HandleOutput(state app.DriverState, output app.Output) []app.Input {
	created, ok := output.(Created)
	if !ok {
		return nil
	}
	return []app.Input{Delete{ID: created.ID}}
}

// expectedLiveCount replays a recorded history to determine how many todos
// ought to be live: it pushes the id from every Created reply onto a running
// list (without deduplicating -- two completed creates are two completed
// creates, whatever id each one reports) and removes one matching entry per
// completed Delete. This is the oracle two buggy id generators diverge from:
// under IntegerIDs, two replicas creating concurrently each locally believe
// they produced a distinct id, so the trace counts two creates, but the
// document itself only ever held one entry because the second create's id
// collided with and overwrote the first.
func expectedLiveCount(h history.History) int {
	var present []string
	for _, p := range h {
		if created, ok := p.Output.(Created); ok && p.HasOutput {
			present = append(present, created.ID)
			continue
		}
		if del, ok := p.Input.(Delete); ok {
			for i, id := range present {
				if id == del.ID {
					present = append(present[:i], present[i+1:]...)
					break
				}
			}
		}
	}
	return len(present)
}

// CountProperty checks that once sync traffic is quiescent, every server
// agrees on the live todo count, and that count matches the count
// expectedLiveCount derives from the recorded history. Requires a History
// recorder to be configured on the model; without one the trace is always
// empty and the property is vacuous.
func CountProperty() properties.Property {
	return properties.Property{
		Name:        "todo-count",
		Expectation: properties.Always,
		Condition: func(s properties.Snapshot) bool {
			if !properties.SyncingDone(s) {
				return true
			}
			expected := expectedLiveCount(s.History())
			for _, sv := range s.Servers() {
				list, _ := sv.Values["list:root"].([]string)
				if len(list) != expected {
					return false
				}
			}
			return true
		},
	}
}
