// Package app defines the two user-supplied contracts every model plugs in:
// the Application running inside each server, and the Driver feeding it
// inputs from each client. Everything here must be a pure, deterministic
// function of its arguments -- the exploration graph replays the same inputs
// against cloned state and expects identical results every time.
package app

import "github.com/ruvnet/crdtcheck/internal/document"

// ReplicaID identifies a server (and, by extension, the clients bound to it).
type ReplicaID = document.ReplicaID

// Input is one client-to-server request. Concrete types must be comparable
// (no slices or maps) so the exploration graph can deduplicate states that
// carry them in a message queue or a history.
type Input interface{}

// Output is one server-to-client reply. Same comparability requirement as Input.
type Output interface{}

// State is one application's server-side state. Exactly one *document.Document
// must be reachable through it.
type State interface {
	// Clone returns an independent deep copy for copy-on-write state mutation.
	Clone() State
	// Equal reports observable equality between two states of the same application.
	Equal(other State) bool
	// Hash returns a deterministic digest folded into the state graph's dedup key.
	Hash() [32]byte
	// Document exposes the inner document to the server actor's sync machinery.
	Document() *document.Document
}

// Application is user-supplied deterministic business logic running inside
// one server.
type Application interface {
	// Init builds the initial state for a replica. Must be a pure function of
	// replica so independent runs converge on identical initial states.
	Init(replica ReplicaID) State
	// Execute runs one input against state -- atomically with respect to sync
	// traffic -- and optionally produces a reply to the input's sender.
	Execute(state State, input Input) (output Output, hasOutput bool)
}

// DriverState is one client's driver-side state.
type DriverState interface {
	Clone() DriverState
	Equal(other DriverState) bool
	Hash() [32]byte
}

// Driver is user-supplied logic that decides what inputs a client sends and
// how it reacts to replies.
type Driver interface {
	// Init builds driver state and the ordered inputs to dispatch at actor start.
	Init(replica ReplicaID) (DriverState, []Input)
	// HandleOutput reacts to one reply, producing follow-up inputs (possibly none).
	HandleOutput(state DriverState, output Output) []Input
}
