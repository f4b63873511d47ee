// Package model builds the actor graph the exploration harness walks: server
// actors 0..N-1 with a full peer mesh, one client actor per driver bound to
// its server, and the property list each visited state is checked against.
package model

import (
	"fmt"

	"github.com/ruvnet/crdtcheck/internal/actor"
	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/history"
	"github.com/ruvnet/crdtcheck/internal/properties"
)

// Config describes one model to build: server count, sync method, the
// application and driver factories, and which properties to check.
type Config struct {
	Servers                  int
	SyncMethod               actor.SyncMethod
	RestartEnabled           bool
	ResetSyncStatesOnRestart bool

	// AppFactory builds the Application instance hosted by server i.
	AppFactory func(replica document.ReplicaID) app.Application
	// DriverFactory returns the drivers to run against server i, one client
	// actor per returned driver.
	DriverFactory func(server document.ReplicaID) []app.Driver
	// RepeaterLimit, if > 0, wraps every driver in app.Repeater with this limit.
	RepeaterLimit int

	WithSameState      bool
	WithInSyncCheck    bool
	WithSaveLoadCheck  bool
	WithErrorFreeCheck bool
	UserProperties     []properties.Property

	// History, if non-nil, enables the optional input/output trace recorder.
	History history.Recorder
}

// Topology is the built actor graph, ready for the exploration harness.
type Topology struct {
	Actors     []*actor.Global
	NumServers int
	Properties []properties.Property
	History    history.Recorder
}

// Build validates Config and constructs the Topology.
func (c Config) Build() (*Topology, error) {
	if c.Servers < 1 {
		return nil, fmt.Errorf("model: Servers must be >= 1, got %d", c.Servers)
	}
	if c.AppFactory == nil {
		return nil, fmt.Errorf("model: AppFactory is required")
	}

	actors := make([]*actor.Global, 0, c.Servers)
	for i := 0; i < c.Servers; i++ {
		id := document.ReplicaID(i)
		peers := make([]document.ReplicaID, 0, c.Servers-1)
		for j := 0; j < c.Servers; j++ {
			if j != i {
				peers = append(peers, document.ReplicaID(j))
			}
		}
		srv := &actor.Server{
			App: c.AppFactory(id),
			Config: actor.ServerConfig{
				SyncMethod:               c.SyncMethod,
				Peers:                    peers,
				RestartEnabled:           c.RestartEnabled,
				ResetSyncStatesOnRestart: c.ResetSyncStatesOnRestart,
			},
		}
		actors = append(actors, actor.NewServerActor(srv))
	}

	if c.DriverFactory != nil {
		for i := 0; i < c.Servers; i++ {
			serverID := document.ReplicaID(i)
			for _, drv := range c.DriverFactory(serverID) {
				d := drv
				if c.RepeaterLimit > 0 {
					d = &app.Repeater{Inner: drv, Limit: c.RepeaterLimit}
				}
				actors = append(actors, actor.NewClientActor(&actor.Client{Driver: d, Server: serverID}))
			}
		}
	}

	var props []properties.Property
	if c.WithSameState {
		props = append(props, properties.SameState())
	}
	if c.WithInSyncCheck {
		props = append(props, properties.InSyncWhenQuiet())
	}
	if c.WithSaveLoadCheck {
		props = append(props, properties.SaveLoad())
	}
	if c.WithErrorFreeCheck {
		props = append(props, properties.ErrorFree())
	}
	props = append(props, c.UserProperties...)

	return &Topology{
		Actors:     actors,
		NumServers: c.Servers,
		Properties: props,
		History:    c.History,
	}, nil
}

// WithDefaultProperties returns a copy of c with all four built-in
// properties enabled.
func (c Config) WithDefaultProperties() Config {
	c.WithSameState = true
	c.WithInSyncCheck = true
	c.WithSaveLoadCheck = true
	c.WithErrorFreeCheck = true
	return c
}
