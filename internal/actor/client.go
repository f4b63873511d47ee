package actor

import (
	"github.com/ruvnet/crdtcheck/internal/amcerrors"
	"github.com/ruvnet/crdtcheck/internal/app"
)

// Client is bound to exactly one server and runs one Driver.
type Client struct {
	Driver app.Driver
	Server ID
}

// ClientState is a client actor's state: just the driver's.
type ClientState struct {
	Driver app.DriverState
}

// Clone returns an independent copy for copy-on-write mutation.
func (s *ClientState) Clone() *ClientState { return &ClientState{Driver: s.Driver.Clone()} }

// OnStart builds driver state and dispatches its initial inputs to the bound server.
func (c *Client) OnStart(self ID) (*ClientState, []Effect) {
	driverState, inputs := c.Driver.Init(self)
	st := &ClientState{Driver: driverState}
	effects := make([]Effect, 0, len(inputs))
	for _, in := range inputs {
		effects = append(effects, send(c.Server, InputMsg(in)))
	}
	return st, effects
}

// OnMsg handles one inbound envelope, which must carry an Output.
func (c *Client) OnMsg(self ID, state *ClientState, src ID, msg Msg) []Effect {
	output, ok := msg.AsOutput()
	if !ok {
		amcerrors.Unreachable("client %d received a non-Output envelope of kind %v", self, msg.Kind)
		return nil
	}
	inputs := c.Driver.HandleOutput(state.Driver, output)
	effects := make([]Effect, 0, len(inputs))
	for _, in := range inputs {
		effects = append(effects, send(c.Server, InputMsg(in)))
	}
	return effects
}
