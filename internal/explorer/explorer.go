package explorer

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/history"
	"github.com/ruvnet/crdtcheck/internal/model"
	"github.com/ruvnet/crdtcheck/internal/properties"
	"github.com/ruvnet/crdtcheck/internal/telemetry"
)

// DedupCache is the subset of internal/dedup.Cache the explorer needs to
// share visited-state digests across processes exploring the same topology.
// Declared here, rather than importing internal/dedup directly, so the
// explorer's core loop has no dependency on Redis.
type DedupCache interface {
	MarkVisited(ctx context.Context, digest [32]byte) (bool, error)
}

// Discovery is one property violation (Always) or missing witness
// (Eventually), together with the shortest replay path the search found to it.
type Discovery struct {
	Property    string
	Expectation properties.Expectation
	Path        []Event
}

// Report summarizes one exploration run.
type Report struct {
	StatesVisited int
	Discoveries   []Discovery
}

// Passed reports whether the run found no violations.
func (r *Report) Passed() bool { return len(r.Discoveries) == 0 }

// snapshotView adapts one networkState into the read-only view
// properties.Property conditions evaluate against.
type snapshotView struct {
	top   *model.Topology
	state *networkState
}

func (v snapshotView) Servers() []properties.ServerView {
	out := make([]properties.ServerView, 0, v.top.NumServers)
	for i := 0; i < v.top.NumServers; i++ {
		gs := v.state.actors[i]
		doc := gs.Server.App.Document()
		out = append(out, properties.ServerView{
			Replica:            document.ReplicaID(i),
			Values:             doc.Values(),
			Heads:              string(doc.Heads()),
			LastSentHeads:      string(doc.LastSentHeads()),
			HasError:           doc.HasError(),
			SaveLoadHeadsMatch: doc.SaveLoadRoundTripOK(),
		})
	}
	return out
}

func (v snapshotView) History() history.History { return v.state.history }

func (v snapshotView) ServerToServerTrafficInFlight() bool {
	n := document.ReplicaID(v.top.NumServers)
	for e, q := range v.state.queues {
		if len(q) > 0 && e.Src < n && e.Dst < n {
			return true
		}
	}
	return false
}

// Run explores every state reachable from the topology's initial state, up
// to maxDepth transitions per path (0 means unbounded), checking every
// configured property at every newly-visited state.
func Run(top *model.Topology, maxDepth int) *Report {
	return RunObserved(top, maxDepth, nil)
}

// RunObserved behaves like Run but, when reporter is non-nil, records state
// counts, frontier size, step timing, and violation counters as it goes.
func RunObserved(top *model.Topology, maxDepth int, reporter *telemetry.Reporter) *Report {
	return RunDistributed(top, maxDepth, reporter, nil)
}

// RunDistributed behaves like RunObserved but, when cache is non-nil, checks
// and records every visited state's digest in it so a fleet of workers
// exploring the same topology can skip states another worker already
// claimed. A state already marked visited in cache is treated exactly like
// one already visited locally: skipped, and counted as a dedup hit.
func RunDistributed(top *model.Topology, maxDepth int, reporter *telemetry.Reporter, cache DedupCache) *Report {
	return RunThrottled(top, maxDepth, reporter, cache, nil)
}

// RunThrottled behaves like RunDistributed but, when limiter is non-nil,
// blocks on it once per newly-visited state. This exists to keep the
// explorer from overwhelming an attached dedup cache, run store, or
// discovery publisher when one of those optional sinks is live traffic
// rather than an in-process stub.
func RunThrottled(top *model.Topology, maxDepth int, reporter *telemetry.Reporter, cache DedupCache, limiter *rate.Limiter) *Report {
	report := &Report{}
	violated := map[string]bool{}
	witnessed := map[string]bool{}

	visited := map[[32]byte]bool{}
	var queue []*networkState

	check := func(s *networkState) {
		start := time.Now()
		view := snapshotView{top: top, state: s}
		for _, p := range top.Properties {
			ok := p.Condition(view)
			switch p.Expectation {
			case properties.Always:
				if !ok && !violated[p.Name] {
					violated[p.Name] = true
					if reporter != nil {
						reporter.RecordViolation(p.Name)
					}
					report.Discoveries = append(report.Discoveries, Discovery{
						Property: p.Name, Expectation: p.Expectation, Path: s.path,
					})
				}
			case properties.Eventually, properties.Sometimes:
				if ok {
					witnessed[p.Name] = true
				}
			}
		}
		if reporter != nil {
			reporter.ObserveStep(time.Since(start))
		}
	}

	push := func(s *networkState) {
		d := s.digest()
		if visited[d] {
			if reporter != nil {
				reporter.Dedup()
			}
			return
		}
		if cache != nil {
			isNew, err := cache.MarkVisited(context.Background(), d)
			if err == nil && !isNew {
				visited[d] = true
				if reporter != nil {
					reporter.Dedup()
				}
				return
			}
		}
		if limiter != nil {
			limiter.Wait(context.Background())
		}
		visited[d] = true
		report.StatesVisited++
		if reporter != nil {
			reporter.VisitState(s.depth)
		}
		check(s)
		queue = append(queue, s)
	}

	push(initialState(top))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if reporter != nil {
			reporter.SetFrontier(len(queue))
		}
		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}
		for _, ev := range legalEvents(cur) {
			push(applyEvent(top, cur, ev))
		}
	}

	for _, p := range top.Properties {
		if p.Expectation == properties.Eventually && !witnessed[p.Name] {
			report.Discoveries = append(report.Discoveries, Discovery{
				Property: p.Name, Expectation: p.Expectation, Path: nil,
			})
		}
	}

	return report
}
