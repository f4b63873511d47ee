package actor

// Kind tags which variant a Global actor (or its state) is.
type Kind int

const (
	// KindServer tags a server actor/state.
	KindServer Kind = iota
	// KindClient tags a client actor/state.
	KindClient
)

// Global is a tagged variant over Client or Server: the root actor type every
// model is built from.
type Global struct {
	Kind   Kind
	Server *Server
	Client *Client
}

// NewServerActor wraps a Server as a Global actor.
func NewServerActor(s *Server) *Global { return &Global{Kind: KindServer, Server: s} }

// NewClientActor wraps a Client as a Global actor.
func NewClientActor(c *Client) *Global { return &Global{Kind: KindClient, Client: c} }

// GlobalState is the root actor state: exactly one of Server/Client is set,
// matching the Global actor's Kind.
type GlobalState struct {
	Kind   Kind
	Server *ServerState
	Client *ClientState
}

// Clone returns an independent deep copy.
func (s *GlobalState) Clone() *GlobalState {
	switch s.Kind {
	case KindServer:
		return &GlobalState{Kind: KindServer, Server: s.Server.Clone()}
	case KindClient:
		return &GlobalState{Kind: KindClient, Client: s.Client.Clone()}
	default:
		return &GlobalState{Kind: s.Kind}
	}
}

// Equal reports observable equality between two global actor states.
func (s *GlobalState) Equal(o *GlobalState) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case KindServer:
		return s.Server.App.Equal(o.Server.App)
	case KindClient:
		return s.Client.Driver.Equal(o.Client.Driver)
	default:
		return true
	}
}

// Hash returns a deterministic digest for the exploration graph's dedup key.
func (s *GlobalState) Hash() [32]byte {
	switch s.Kind {
	case KindServer:
		return s.Server.App.Hash()
	case KindClient:
		return s.Client.Driver.Hash()
	default:
		return [32]byte{}
	}
}

// OnStart routes to the inner actor, lifting its state into the tagged variant.
func (g *Global) OnStart(self ID) (*GlobalState, []Effect) {
	switch g.Kind {
	case KindServer:
		st, eff := g.Server.OnStart(self)
		return &GlobalState{Kind: KindServer, Server: st}, eff
	case KindClient:
		st, eff := g.Client.OnStart(self)
		return &GlobalState{Kind: KindClient, Client: st}, eff
	default:
		return &GlobalState{Kind: g.Kind}, nil
	}
}

// OnMsg routes to the inner actor if (actor, state) variants match.
// Mismatched pairs are unreachable by construction and ignored defensively.
func (g *Global) OnMsg(self ID, state *GlobalState, src ID, msg Msg) []Effect {
	switch {
	case g.Kind == KindServer && state.Kind == KindServer:
		return g.Server.OnMsg(self, state.Server, src, msg)
	case g.Kind == KindClient && state.Kind == KindClient:
		return g.Client.OnMsg(self, state.Client, src, msg)
	default:
		return nil
	}
}

// OnTimer routes to the inner actor if (actor, state) variants match. Only
// servers own timers; a mismatched pair is ignored defensively.
func (g *Global) OnTimer(self ID, state *GlobalState, which TimerKind) []Effect {
	if g.Kind == KindServer && state.Kind == KindServer {
		return g.Server.OnTimer(self, state.Server, which)
	}
	return nil
}
