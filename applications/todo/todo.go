// Package todo implements the reference todo-list application used to show
// how non-random, per-replica-sequential ids silently collapse concurrent
// creates from different replicas into a single surviving entry, and how
// seeding the id from the replica id fixes it.
package todo

import (
	"fmt"

	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc"
	"github.com/ruvnet/crdtcheck/internal/document"
)

// Create adds one todo with the given text.
type Create struct {
	Text string
}

// Created reports the id the application assigned to a Create.
type Created struct {
	ID string
}

// Delete removes the todo with the given id. Deleting an id that does not
// resolve to a live element (already deleted, or never assigned because of
// an id collision) is a no-op.
type Delete struct {
	ID string
}

// Deleted reports the id a Delete was applied to.
type Deleted struct {
	ID string
}

// IDGenerator deterministically produces the id for the nth todo created by
// replica. Per the "deterministic randomness" pattern, any apparent
// randomness must be a pure function of the replica id, never the clock or
// an OS RNG.
type IDGenerator func(replica document.ReplicaID, seq uint64) string

// IntegerIDs assigns "1", "2", ... independently per replica: two replicas
// both creating their first todo collide on id "1".
func IntegerIDs(_ document.ReplicaID, seq uint64) string {
	return fmt.Sprintf("%d", seq)
}

// ReplicaSeededIDs assigns "<replica>-<seq>": replicas never collide because
// the replica id is baked into every generated id.
func ReplicaSeededIDs(replica document.ReplicaID, seq uint64) string {
	return fmt.Sprintf("%d-%d", replica, seq)
}

// Application is the todo list. Todos are id-keyed elements that Create
// inserts and Delete tombstones; they are counted through the document's live
// "list:root" values, not by position, so this app exercises an id-keyed CRDT
// set rather than an ordered list.
type Application struct {
	Backend crdtdoc.Backend
	IDs     IDGenerator
}

type state struct {
	doc *document.Document
	seq uint64
}

func (s *state) Clone() app.State           { return &state{doc: s.doc.Clone(), seq: s.seq} }
func (s *state) Equal(other app.State) bool { o := other.(*state); return s.seq == o.seq && s.doc.Equal(o.doc) }
func (s *state) Hash() [32]byte {
	h := s.doc.Hash()
	h[0] ^= byte(s.seq)
	return h
}
func (s *state) Document() *document.Document { return s.doc }

// Init creates a fresh document.
func (a Application) Init(replica document.ReplicaID) app.State {
	return &state{doc: document.New(a.Backend, replica)}
}

// Execute dispatches on input type: Create assigns the next id for this
// replica and inserts the todo; Delete removes the named id.
func (a Application) Execute(st app.State, input app.Input) (app.Output, bool) {
	s := st.(*state)
	switch in := input.(type) {
	case Create:
		s.seq++
		id := a.IDs(s.doc.ReplicaID(), s.seq)
		_ = s.doc.Transact(func(tx crdtdoc.Tx) { tx.InsertElement(id, in.Text) })
		return Created{ID: id}, true
	case Delete:
		_ = s.doc.Transact(func(tx crdtdoc.Tx) { tx.DeleteElement(in.ID) })
		return Deleted{ID: in.ID}, true
	default:
		panic(fmt.Sprintf("todo: unknown input %T", input))
	}
}
