// Package crdtdoc defines the narrow CRDT surface this checker depends on.
//
// Per the design's external-interfaces boundary, the CRDT itself (construction,
// change application, sync-message generation, save/load/merge) is an external,
// trusted library. This package pins that boundary down to a Go interface so the
// rest of the module (internal/document and up) never imports a concrete CRDT
// implementation directly. Two implementations exist: internal/crdtdoc/automergebackend
// (a thin binding over github.com/automerge/automerge-go, the real CRDT) and
// internal/crdtdoc/fake (a small deterministic in-memory CRDT used by tests so
// they don't require cgo).
package crdtdoc

// Heads is a canonical, comparable digest of a document's current version
// vector. Two documents with equal Heads are considered to hold the same CRDT
// state for the purposes of dedup and the properties library.
type Heads string

// SyncState is the opaque, per-peer resumable state used by the "Messages" sync
// protocol. Backends define their own concrete type; callers never inspect it.
type SyncState interface{}

// Backend constructs and loads documents.
type Backend interface {
	// New creates an empty document with the given actor id.
	New(actorID []byte) Doc
	// Load deserializes a previously saved document.
	Load(data []byte) (Doc, error)
}

// Tx is a mutation scope for a single atomic application transaction.
type Tx interface {
	// GetRegister reads a scalar register, returning ok=false if unset.
	GetRegister(key string) (int64, bool)
	// PutRegister performs a last-writer-wins write of a scalar register.
	PutRegister(key string, value int64)
	// EnsureCounter initializes a CRDT counter register to zero if unset.
	EnsureCounter(key string)
	// IncrementCounter applies a CRDT grow/shrink-counter delta.
	IncrementCounter(key string, delta int64)
	// InsertElement adds a new list/set element with a fresh unique id.
	InsertElement(id string, value string)
	// DeleteElement tombstones a list/set element.
	DeleteElement(id string)
	// SetField sets a named field on a previously inserted element (e.g. a todo's text).
	SetField(id, field, value string)
	// ListValues returns the live (non-tombstoned) element values, order unspecified.
	ListValues() []string
	// ListIDs returns the live element ids, order unspecified.
	ListIDs() []string
	// GetElement returns a live element's value, ok=false if absent or tombstoned.
	GetElement(id string) (value string, ok bool)
}

// Doc is one CRDT document instance plus the operations the checker needs from it.
type Doc interface {
	// Clone returns a deep, independent copy.
	Clone() Doc
	// SetActor rebinds the actor id used to author subsequent changes.
	SetActor(id []byte)
	// Actor returns the current actor id.
	Actor() []byte
	// Heads returns the current version-vector digest.
	Heads() Heads
	// HasChanges reports whether any change has ever been applied.
	HasChanges() bool
	// Transact runs fn atomically against the document, committing its mutations
	// as one new change authored by the current actor.
	Transact(fn func(Tx)) error
	// ApplyChange decodes and applies one encoded change authored elsewhere.
	ApplyChange(raw []byte) error
	// ChangesSince returns the encoded changes causally after the given heads.
	ChangesSince(heads Heads) [][]byte
	// ChangeAuthor returns the actor id that authored an encoded change.
	ChangeAuthor(raw []byte) ([]byte, error)
	// Save serializes the full document.
	Save() []byte
	// Merge incorporates another document's state into this one.
	Merge(other Doc) error
	// NewSyncState returns a fresh per-peer sync session.
	NewSyncState() SyncState
	// GenerateSyncMessage produces the next outbound sync message for a peer session, if any.
	GenerateSyncMessage(state SyncState) ([]byte, bool)
	// ReceiveSyncMessage applies an inbound sync message to a peer session.
	ReceiveSyncMessage(state SyncState, message []byte) error
	// CloneSyncState returns an independent deep copy of a sync session, for
	// the copy-on-write state cloning the exploration graph needs.
	CloneSyncState(state SyncState) SyncState
	// SyncStateDigest returns a canonical, comparable encoding of a sync
	// session, used for Document equality and hashing.
	SyncStateDigest(state SyncState) string
	// Values returns a materialized, read-only view of the root registers, for
	// properties and tests. Keys beginning with "list:" expose ordered/live list
	// contents as a []string value.
	Values() map[string]interface{}
}
