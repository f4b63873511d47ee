// Package properties implements the reusable invariant library evaluated
// against every state the exploration harness visits: built-in convergence
// and safety properties, plus the contract user-supplied properties follow.
package properties

import (
	"reflect"

	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/history"
)

// Expectation classifies how a property's truth value across the whole
// reachable state space determines success or failure.
type Expectation int

const (
	// Always requires the condition to hold at every visited state.
	Always Expectation = iota
	// Eventually requires at least one visited state (on some path) where the
	// condition holds.
	Eventually
	// Sometimes is purely informational: it never fails a run, and the
	// explorer's Report does not say whether it was ever observed.
	Sometimes
)

func (e Expectation) String() string {
	switch e {
	case Always:
		return "always"
	case Eventually:
		return "eventually"
	case Sometimes:
		return "sometimes"
	default:
		return "unknown"
	}
}

// ServerView is the read-only per-server projection a Snapshot exposes.
type ServerView struct {
	Replica       document.ReplicaID
	Values        map[string]interface{}
	Heads         string
	LastSentHeads string
	HasError      bool
	// SaveLoadHeadsMatch is precomputed by the harness building the snapshot:
	// whether save(doc)->load(doc) reproduces the same heads.
	SaveLoadHeadsMatch bool
}

// Snapshot is the read-only view of one visited global state a Property
// evaluates against.
type Snapshot interface {
	Servers() []ServerView
	// ServerToServerTrafficInFlight reports whether any server-to-server
	// message is still queued for delivery.
	ServerToServerTrafficInFlight() bool
	// History returns the recorded input/output trace, empty unless the
	// model's Config.History recorder is set.
	History() history.History
}

// Property is a named predicate over a Snapshot plus the expectation that
// classifies how its truth values across the state space are judged.
type Property struct {
	Name        string
	Expectation Expectation
	Condition   func(Snapshot) bool
}

func allHeadsEqual(servers []ServerView) bool {
	if len(servers) == 0 {
		return true
	}
	first := servers[0].Heads
	for _, s := range servers[1:] {
		if s.Heads != first {
			return false
		}
	}
	return true
}

func valuesEqual(a, b map[string]interface{}) bool {
	return reflect.DeepEqual(a, b)
}

func allValuesEqual(servers []ServerView) bool {
	if len(servers) == 0 {
		return true
	}
	first := servers[0].Values
	for _, s := range servers[1:] {
		if !valuesEqual(s.Values, first) {
			return false
		}
	}
	return true
}

// SyncingDone reports the "quiescent" predicate used by several properties
// and available to user-defined ones: every replica shares identical heads
// and no server-to-server message remains in flight.
func SyncingDone(s Snapshot) bool {
	return !s.ServerToServerTrafficInFlight() && allHeadsEqual(s.Servers())
}

// SameState: eventually, every server pair has identical observable document
// content.
func SameState() Property {
	return Property{
		Name:        "same-state",
		Expectation: Eventually,
		Condition: func(s Snapshot) bool {
			return allValuesEqual(s.Servers())
		},
	}
}

// InSyncWhenQuiet: always, if no server-to-server sync traffic remains
// deliverable and every replica's heads agree, the documents must also agree
// value-wise. Vacuously true otherwise.
func InSyncWhenQuiet() Property {
	return Property{
		Name:        "in-sync-when-quiet",
		Expectation: Always,
		Condition: func(s Snapshot) bool {
			if !SyncingDone(s) {
				return true
			}
			return allValuesEqual(s.Servers())
		},
	}
}

// SaveLoad: always, every server's save->load round trip reproduces the same heads.
func SaveLoad() Property {
	return Property{
		Name:        "save-load",
		Expectation: Always,
		Condition: func(s Snapshot) bool {
			for _, server := range s.Servers() {
				if !server.SaveLoadHeadsMatch {
					return false
				}
			}
			return true
		},
	}
}

// ErrorFree: always, no server's document has its error bit set.
func ErrorFree() Property {
	return Property{
		Name:        "error-free",
		Expectation: Always,
		Condition: func(s Snapshot) bool {
			for _, server := range s.Servers() {
				if server.HasError {
					return false
				}
			}
			return true
		},
	}
}

// Defaults returns the four opt-in built-in properties.
func Defaults() []Property {
	return []Property{SameState(), InSyncWhenQuiet(), SaveLoad(), ErrorFree()}
}

// WithSameState appends SameState to props, for callers building up a
// property list one check at a time instead of taking the Defaults bundle.
func WithSameState(props []Property) []Property { return append(props, SameState()) }

// WithInSyncCheck appends InSyncWhenQuiet to props.
func WithInSyncCheck(props []Property) []Property { return append(props, InSyncWhenQuiet()) }

// WithSaveLoadCheck appends SaveLoad to props.
func WithSaveLoadCheck(props []Property) []Property { return append(props, SaveLoad()) }

// WithErrorFreeCheck appends ErrorFree to props.
func WithErrorFreeCheck(props []Property) []Property { return append(props, ErrorFree()) }

// WithDefaultProperties appends all four built-ins to props in one call.
func WithDefaultProperties(props []Property) []Property { return append(props, Defaults()...) }
