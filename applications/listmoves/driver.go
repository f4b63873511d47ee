package listmoves

import (
	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/document"
)

// MoveDriver issues exactly one move at actor start.
type MoveDriver struct {
	From     string
	NewIDSeq uint64
}

// Init dispatches the one Move input.
func (d MoveDriver) Init(replica document.ReplicaID) (app.DriverState, []app.Input) {
	return app.NoopDriverState{}, []app.Input{Move{From: d.From, NewIDSeq: d.NewIDSeq}}
}

// HandleOutput never follows up: each driver moves exactly once.
func (d MoveDriver) HandleOutput(state app.DriverState, output app.Output) []app.Input {
	return nil
}
