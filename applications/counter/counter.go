// Package counter implements the two reference counter applications used to
// demonstrate the difference between a naive last-writer-wins register and a
// real CRDT counter under concurrent increments: Naive loses updates under
// concurrency, CRDT converges correctly.
package counter

import (
	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc"
	"github.com/ruvnet/crdtcheck/internal/document"
)

// Input selects which direction to move the counter.
type Input int

const (
	Increment Input = iota
	Decrement
)

// Output reports the counter's value as observed immediately after applying
// one input.
type Output struct {
	Value int64
}

const counterKey = "counter"

// Naive stores the counter as a plain last-writer-wins register, read and
// rewritten on every input. Concurrent increments from different replicas
// race: whichever write the CRDT's tie-break picks wins, silently discarding
// the other.
type Naive struct {
	Backend crdtdoc.Backend
}

type naiveState struct {
	doc *document.Document
}

func (s *naiveState) Clone() app.State                   { return &naiveState{doc: s.doc.Clone()} }
func (s *naiveState) Equal(other app.State) bool          { return s.doc.Equal(other.(*naiveState).doc) }
func (s *naiveState) Hash() [32]byte                      { return s.doc.Hash() }
func (s *naiveState) Document() *document.Document        { return s.doc }

// Init creates a fresh document; the naive encoding needs no shared seed.
func (a Naive) Init(replica document.ReplicaID) app.State {
	return &naiveState{doc: document.New(a.Backend, replica)}
}

// Execute performs an explicit read-modify-write on the counter register.
func (a Naive) Execute(state app.State, input app.Input) (app.Output, bool) {
	s := state.(*naiveState)
	delta := direction(input)
	_ = s.doc.Transact(func(tx crdtdoc.Tx) {
		cur, _ := tx.GetRegister(counterKey)
		tx.PutRegister(counterKey, cur+delta)
	})
	return readValue(s.doc), true
}

// CRDT stores the counter as a CRDT grow/shrink-counter register, seeded with
// a shared initial change so every replica starts from the same root. Every
// replica's contribution is tracked independently and summed, so concurrent
// increments never lose an update.
type CRDT struct {
	Backend crdtdoc.Backend
}

type crdtState struct {
	doc *document.Document
}

func (s *crdtState) Clone() app.State            { return &crdtState{doc: s.doc.Clone()} }
func (s *crdtState) Equal(other app.State) bool  { return s.doc.Equal(other.(*crdtState).doc) }
func (s *crdtState) Hash() [32]byte              { return s.doc.Hash() }
func (s *crdtState) Document() *document.Document { return s.doc }

// Init creates a document seeded with a shared initial change that
// initializes the CRDT counter register, so independently-created documents
// have a common root to merge from.
func (a CRDT) Init(replica document.ReplicaID) app.State {
	d := document.New(a.Backend, replica)
	d.WithInitialChange(func(tx crdtdoc.Tx) { tx.EnsureCounter(counterKey) })
	return &crdtState{doc: d}
}

// Execute applies a CRDT counter delta; every replica's contribution is
// summed independently of arrival order.
func (a CRDT) Execute(state app.State, input app.Input) (app.Output, bool) {
	s := state.(*crdtState)
	delta := direction(input)
	_ = s.doc.Transact(func(tx crdtdoc.Tx) { tx.IncrementCounter(counterKey, delta) })
	return readValue(s.doc), true
}

func direction(input app.Input) int64 {
	if input.(Input) == Decrement {
		return -1
	}
	return 1
}

func readValue(doc *document.Document) Output {
	v, _ := doc.Values()[counterKey].(int64)
	return Output{Value: v}
}
