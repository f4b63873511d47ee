package counter

import (
	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/properties"
)

// SingleShotDriver sends exactly one input at actor start and never reacts
// to the reply. One Increment driver and one Decrement driver per server
// reproduces the scenario's "one Increment, one Decrement per server" setup.
type SingleShotDriver struct {
	Send app.Input
}

// Init dispatches the configured input and nothing else.
func (d SingleShotDriver) Init(replica document.ReplicaID) (app.DriverState, []app.Input) {
	return app.NoopDriverState{}, []app.Input{d.Send}
}

// HandleOutput never produces follow-up inputs.
func (d SingleShotDriver) HandleOutput(state app.DriverState, output app.Output) []app.Input {
	return nil
}

// ExpectedValueProperty checks that once sync traffic is quiescent, every
// server's counter equals the net total of increments minus decrements
// dispatched across the whole model. This is the property the naive
// encoding violates and the CRDT encoding satisfies.
func ExpectedValueProperty(expected int64) properties.Property {
	return properties.Property{
		Name:        "counter-value-matches-net-ops",
		Expectation: properties.Always,
		Condition: func(s properties.Snapshot) bool {
			if !properties.SyncingDone(s) {
				return true
			}
			for _, sv := range s.Servers() {
				v, _ := sv.Values[counterKey].(int64)
				if v != expected {
					return false
				}
			}
			return true
		},
	}
}
