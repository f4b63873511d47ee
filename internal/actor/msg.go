// Package actor implements the sum-type global actor (client or server), its
// message envelope, and the synchronous step functions the exploration
// harness drives. Every entry point is a pure, straight-line function of
// (state, event) -> (new state, effects): there is no goroutine, channel, or
// blocking call anywhere in this package, matching the single-threaded
// cooperative scheduling the model requires.
package actor

import "github.com/ruvnet/crdtcheck/internal/app"

// ID identifies one actor, server or client, in a shared numbering space.
type ID = app.ReplicaID

// MsgKind tags which arm of the envelope a Msg carries.
type MsgKind int

const (
	// KindChangeBatch carries server-to-server incremental changes.
	KindChangeBatch MsgKind = iota
	// KindSyncSession carries one server-to-server sync-protocol message.
	KindSyncSession
	// KindSnapshot carries a full server-to-server saved document.
	KindSnapshot
	// KindInput carries one client-to-server application request.
	KindInput
	// KindOutput carries one server-to-client application reply.
	KindOutput
)

func (k MsgKind) String() string {
	switch k {
	case KindChangeBatch:
		return "ChangeBatch"
	case KindSyncSession:
		return "SyncSession"
	case KindSnapshot:
		return "Snapshot"
	case KindInput:
		return "Input"
	case KindOutput:
		return "Output"
	default:
		return "Unknown"
	}
}

// Msg is the global message envelope: exactly one of its two arms
// (ServerToServer: ChangeBatch/SyncSession/Snapshot, or ClientToServer:
// Input/Output) is populated, selected by Kind.
type Msg struct {
	Kind MsgKind

	Changes     [][]byte   // KindChangeBatch: one encoded change per entry.
	SyncMessage []byte     // KindSyncSession: one encoded sync message.
	Snapshot    []byte     // KindSnapshot: one saved document.
	Input       app.Input  // KindInput.
	Output      app.Output // KindOutput.
}

// ChangeBatch builds a server-to-server change batch envelope.
func ChangeBatch(changes [][]byte) Msg { return Msg{Kind: KindChangeBatch, Changes: changes} }

// SyncSession builds a server-to-server sync-protocol message envelope.
func SyncSession(message []byte) Msg { return Msg{Kind: KindSyncSession, SyncMessage: message} }

// SnapshotMsg builds a server-to-server snapshot envelope.
func SnapshotMsg(data []byte) Msg { return Msg{Kind: KindSnapshot, Snapshot: data} }

// InputMsg builds a client-to-server input envelope.
func InputMsg(i app.Input) Msg { return Msg{Kind: KindInput, Input: i} }

// OutputMsg builds a server-to-client output envelope.
func OutputMsg(o app.Output) Msg { return Msg{Kind: KindOutput, Output: o} }

// AsInput returns the envelope's input, if it carries one.
func (m Msg) AsInput() (app.Input, bool) {
	if m.Kind == KindInput {
		return m.Input, true
	}
	return nil, false
}

// AsOutput returns the envelope's output, if it carries one.
func (m Msg) AsOutput() (app.Output, bool) {
	if m.Kind == KindOutput {
		return m.Output, true
	}
	return nil, false
}

// TimerKind identifies which of a server's timers fired.
type TimerKind int

const (
	// TimerSync drives the sync protocol; always armed on a server.
	TimerSync TimerKind = iota
	// TimerRestart models a simulated process restart; armed only if configured.
	TimerRestart
)

// Effect is one side effect an actor step requests: sending a message, or
// (re)arming a timer. The exploration harness is responsible for actually
// scheduling timer fires and message deliveries as graph transitions.
type Effect struct {
	Send     *SendEffect
	SetTimer *SetTimerEffect
}

// SendEffect requests delivery of msg to dst, appended to the dst-ordered,
// per-pair FIFO queue.
type SendEffect struct {
	Dst ID
	Msg Msg
}

// SetTimerEffect arms (or re-arms) a timer on the actor that produced it.
type SetTimerEffect struct {
	Which TimerKind
}

func send(dst ID, msg Msg) Effect         { return Effect{Send: &SendEffect{Dst: dst, Msg: msg}} }
func armTimer(which TimerKind) Effect     { return Effect{SetTimer: &SetTimerEffect{Which: which}} }
