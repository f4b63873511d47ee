// Package listmoves implements the reference application demonstrating the
// classic CRDT list-move pitfall: a "move" modeled as delete-old +
// insert-new-copy is not commutative. Two replicas concurrently moving the
// same element each delete the old copy successfully but insert their own
// distinct replacement, so after merge both replacements survive: the
// element is duplicated rather than moved.
package listmoves

import (
	"fmt"

	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc"
	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/properties"
)

// Move asks the application to relocate the live element currently
// identified by From, replacing it with a fresh element carrying the same
// value under a new, replica-seeded id (NewIDSeq identifies which move this
// replica has issued, keeping id generation a pure function of replica id).
type Move struct {
	From      string
	NewIDSeq  uint64
}

// Moved reports whether the move found its source element.
type Moved struct {
	OK bool
}

// Application hosts a small id-keyed element set seeded with two initial
// elements, "a" and "b".
type Application struct {
	Backend crdtdoc.Backend
}

type state struct {
	doc *document.Document
}

func (s *state) Clone() app.State            { return &state{doc: s.doc.Clone()} }
func (s *state) Equal(other app.State) bool  { return s.doc.Equal(other.(*state).doc) }
func (s *state) Hash() [32]byte              { return s.doc.Hash() }
func (s *state) Document() *document.Document { return s.doc }

// Init seeds the document with two shared elements under a common root, so
// independently-built documents still merge from the same starting list.
func (a Application) Init(replica document.ReplicaID) app.State {
	d := document.New(a.Backend, replica)
	d.WithInitialChange(func(tx crdtdoc.Tx) {
		tx.InsertElement("a", "a")
		tx.InsertElement("b", "b")
	})
	return &state{doc: d}
}

// Execute deletes the source element (if still live) and inserts a fresh
// replacement carrying the same value under a new id.
func (a Application) Execute(st app.State, input app.Input) (app.Output, bool) {
	s := st.(*state)
	move := input.(Move)
	var found bool
	_ = s.doc.Transact(func(tx crdtdoc.Tx) {
		value, ok := tx.GetElement(move.From)
		if !ok {
			return
		}
		found = true
		newID := fmt.Sprintf("%d:%d:%s", s.doc.ReplicaID(), move.NewIDSeq, move.From)
		tx.DeleteElement(move.From)
		tx.InsertElement(newID, value)
	})
	return Moved{OK: found}, true
}

// NoDuplicatesProperty checks that once sync traffic is quiescent, no value
// appears more than once among the live elements.
func NoDuplicatesProperty() properties.Property {
	return properties.Property{
		Name:        "no-duplicates-when-in-sync",
		Expectation: properties.Always,
		Condition: func(s properties.Snapshot) bool {
			if !properties.SyncingDone(s) {
				return true
			}
			for _, sv := range s.Servers() {
				values, _ := sv.Values["list:root"].([]string)
				seen := map[string]bool{}
				for _, v := range values {
					if seen[v] {
						return false
					}
					seen[v] = true
				}
			}
			return true
		},
	}
}
