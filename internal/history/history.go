// Package history implements the optional input/output trace recorder: a
// pure accumulator that participates in global-state equality and hashing so
// linearizability-style properties can be expressed over request/response
// order.
package history

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/ruvnet/crdtcheck/internal/actor"
	"github.com/ruvnet/crdtcheck/internal/app"
)

// Pair is one recorded request paired with its (possibly not-yet-known) reply.
type Pair struct {
	Input  app.Input
	Output app.Output
	// HasOutput is false until record-output fills in Output.
	HasOutput bool
}

// History is an ordered, per-trace log of request/response pairs.
type History []Pair

// Clone returns an independent copy.
func (h History) Clone() History {
	cp := make(History, len(h))
	copy(cp, h)
	return cp
}

// Equal reports whether two histories are identical in order and content.
func (h History) Equal(o History) bool {
	if len(h) != len(o) {
		return false
	}
	for i := range h {
		if h[i] != o[i] {
			return false
		}
	}
	return true
}

// Hash returns a deterministic digest of the history.
func (h History) Hash() [32]byte {
	hasher, _ := blake2b.New256(nil)
	for _, p := range h {
		fmt.Fprintf(hasher, "%v|%v|%t\n", p.Input, p.Output, p.HasOutput)
	}
	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// Recorder hooks into message delivery and emission to build a History. Both
// hooks may decline to record (return ok=false), in which case the state's
// history is left unchanged and the state hash does not diverge -- this
// keeps envelopes the user doesn't care about from inflating the state space.
type Recorder interface {
	// RecordInput runs on delivery of an envelope to a server. If it returns
	// ok=true, the returned history replaces the trace's current one.
	RecordInput(current History, msg actor.Msg) (next History, ok bool)
	// RecordOutput runs on emission of an envelope from a server. If it
	// returns ok=true, the returned history replaces the trace's current one.
	RecordOutput(current History, msg actor.Msg) (next History, ok bool)
}

// Default is the recorder described by the design notes: append (input,
// input) on every Input delivery, then overwrite the last pair's output slot
// on the matching Output emission. Good enough for simple request/response
// pairing; applications with overlapping concurrent requests per client will
// want a custom Recorder keyed by request id instead.
type Default struct{}

// RecordInput appends (msg, msg) whenever the envelope carries an Input.
func (Default) RecordInput(current History, msg actor.Msg) (History, bool) {
	input, ok := msg.AsInput()
	if !ok {
		return nil, false
	}
	next := append(current.Clone(), Pair{Input: input, Output: input, HasOutput: false})
	return next, true
}

// RecordOutput fills in the last recorded pair's output slot whenever the
// envelope carries an Output.
func (Default) RecordOutput(current History, msg actor.Msg) (History, bool) {
	output, ok := msg.AsOutput()
	if !ok || len(current) == 0 {
		return nil, false
	}
	next := current.Clone()
	next[len(next)-1].Output = output
	next[len(next)-1].HasOutput = true
	return next, true
}
