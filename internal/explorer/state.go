// Package explorer is a small, deliberately non-authoritative breadth-first
// state-space search sufficient to reproduce the checker's end-to-end
// scenarios in tests. It is not the generalized, multi-threaded BFS/DFS
// engine with path-minimisation that a production model checker would ship
// (that remains an external dependency); it exists to give the rest of this
// module something executable to drive.
package explorer

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/ruvnet/crdtcheck/internal/actor"
	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/history"
	"github.com/ruvnet/crdtcheck/internal/model"
)

type edge struct {
	Src, Dst document.ReplicaID
}

// EventKind tags what kind of transition an Event represents.
type EventKind int

const (
	// EventDeliver delivers the head-of-queue message on one ordered pair.
	EventDeliver EventKind = iota
	// EventTimer fires one armed timer on one actor.
	EventTimer
)

// Event is one observable transition: Deliver{src,dst} of the head-of-queue
// message on that pair, or Timer{target,which}.
type Event struct {
	Kind   EventKind
	Edge   edge
	Target document.ReplicaID
	Which  actor.TimerKind
}

func (e Event) String() string {
	switch e.Kind {
	case EventDeliver:
		return fmt.Sprintf("deliver(%d->%d)", e.Edge.Src, e.Edge.Dst)
	case EventTimer:
		return fmt.Sprintf("timer(%d,%v)", e.Target, e.Which)
	default:
		return "unknown-event"
	}
}

// networkState is one node of the exploration graph: every actor's state,
// the in-flight message queues, which timers are currently armed, and the
// optional recorded history.
type networkState struct {
	actors  []*actor.GlobalState
	queues  map[edge][]actor.Msg
	timers  map[document.ReplicaID]map[actor.TimerKind]bool
	history history.History
	depth   int
	path    []Event
}

func initialState(top *model.Topology) *networkState {
	s := &networkState{
		actors: make([]*actor.GlobalState, len(top.Actors)),
		queues: map[edge][]actor.Msg{},
		timers: map[document.ReplicaID]map[actor.TimerKind]bool{},
	}
	for i, a := range top.Actors {
		id := document.ReplicaID(i)
		st, effects := a.OnStart(id)
		s.actors[id] = st
		applyEffects(top, s, id, effects)
	}
	return s
}

func (s *networkState) clone() *networkState {
	actors := make([]*actor.GlobalState, len(s.actors))
	for i, a := range s.actors {
		actors[i] = a.Clone()
	}
	queues := make(map[edge][]actor.Msg, len(s.queues))
	for k, v := range s.queues {
		cp := make([]actor.Msg, len(v))
		copy(cp, v)
		queues[k] = cp
	}
	timers := make(map[document.ReplicaID]map[actor.TimerKind]bool, len(s.timers))
	for k, v := range s.timers {
		cp := make(map[actor.TimerKind]bool, len(v))
		for tk, tv := range v {
			cp[tk] = tv
		}
		timers[k] = cp
	}
	path := make([]Event, len(s.path))
	copy(path, s.path)
	return &networkState{actors: actors, queues: queues, timers: timers, history: s.history, depth: s.depth, path: path}
}

func legalEvents(s *networkState) []Event {
	var events []Event
	edges := make([]edge, 0, len(s.queues))
	for e, q := range s.queues {
		if len(q) > 0 {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		return edges[i].Dst < edges[j].Dst
	})
	for _, e := range edges {
		events = append(events, Event{Kind: EventDeliver, Edge: e})
	}

	targets := make([]document.ReplicaID, 0, len(s.timers))
	for t := range s.timers {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	for _, t := range targets {
		kinds := make([]actor.TimerKind, 0, 2)
		for k, armed := range s.timers[t] {
			if armed {
				kinds = append(kinds, k)
			}
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, k := range kinds {
			events = append(events, Event{Kind: EventTimer, Target: t, Which: k})
		}
	}
	return events
}

func applyEffects(top *model.Topology, s *networkState, src document.ReplicaID, effects []actor.Effect) {
	for _, eff := range effects {
		if eff.Send != nil {
			e := edge{Src: src, Dst: eff.Send.Dst}
			s.queues[e] = append(s.queues[e], eff.Send.Msg)
			if top.History != nil {
				if h, ok := top.History.RecordOutput(s.history, eff.Send.Msg); ok {
					s.history = h
				}
			}
		}
		if eff.SetTimer != nil {
			if s.timers[src] == nil {
				s.timers[src] = map[actor.TimerKind]bool{}
			}
			s.timers[src][eff.SetTimer.Which] = true
		}
	}
}

func applyEvent(top *model.Topology, cur *networkState, ev Event) *networkState {
	next := cur.clone()
	next.depth = cur.depth + 1
	next.path = append(next.path, ev)

	switch ev.Kind {
	case EventDeliver:
		q := next.queues[ev.Edge]
		msg := q[0]
		if len(q) == 1 {
			delete(next.queues, ev.Edge)
		} else {
			next.queues[ev.Edge] = q[1:]
		}
		if top.History != nil {
			if h, ok := top.History.RecordInput(next.history, msg); ok {
				next.history = h
			}
		}
		effects := top.Actors[ev.Edge.Dst].OnMsg(ev.Edge.Dst, next.actors[ev.Edge.Dst], ev.Edge.Src, msg)
		applyEffects(top, next, ev.Edge.Dst, effects)

	case EventTimer:
		if next.timers[ev.Target] == nil {
			next.timers[ev.Target] = map[actor.TimerKind]bool{}
		}
		next.timers[ev.Target][ev.Which] = false
		effects := top.Actors[ev.Target].OnTimer(ev.Target, next.actors[ev.Target], ev.Which)
		applyEffects(top, next, ev.Target, effects)
	}
	return next
}

// digest returns a deterministic content-addressed key used for dedup in the
// search graph: per-actor state hashes, queue contents, armed timers, and the
// recorded history.
func (s *networkState) digest() [32]byte {
	h, _ := blake2b.New256(nil)
	for i, a := range s.actors {
		fmt.Fprintf(h, "actor%d:%x\n", i, a.Hash())
	}

	edges := make([]edge, 0, len(s.queues))
	for e := range s.queues {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		return edges[i].Dst < edges[j].Dst
	})
	for _, e := range edges {
		fmt.Fprintf(h, "q%d->%d:", e.Src, e.Dst)
		for _, m := range s.queues[e] {
			fmt.Fprintf(h, "[%d %x %x %v %v]", m.Kind, m.SyncMessage, m.Snapshot, m.Input, m.Output)
			for _, c := range m.Changes {
				fmt.Fprintf(h, "<%x>", c)
			}
		}
		fmt.Fprint(h, "\n")
	}

	targets := make([]document.ReplicaID, 0, len(s.timers))
	for t := range s.timers {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	for _, t := range targets {
		fmt.Fprintf(h, "t%d:sync=%t,restart=%t\n", t, s.timers[t][actor.TimerSync], s.timers[t][actor.TimerRestart])
	}

	fmt.Fprintf(h, "history:%x\n", s.history.Hash())

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
