package app

// Repeater wraps any Driver, replaying its init-phase inputs up to Limit
// additional times whenever HandleOutput yields no follow-ups. This lets a
// single-shot driver (one that only ever reacts to its own init inputs) keep
// exercising the system without rewriting it.
type Repeater struct {
	Inner Driver
	Limit int
}

type repeaterState struct {
	inner   DriverState
	initial []Input
	repeats int
}

func (s *repeaterState) Clone() DriverState {
	return &repeaterState{inner: s.inner.Clone(), initial: s.initial, repeats: s.repeats}
}

func (s *repeaterState) Equal(other DriverState) bool {
	o, ok := other.(*repeaterState)
	return ok && s.repeats == o.repeats && s.inner.Equal(o.inner)
}

func (s *repeaterState) Hash() [32]byte {
	h := s.inner.Hash()
	h[0] ^= byte(s.repeats)
	h[1] ^= byte(s.repeats >> 8)
	return h
}

// Init delegates to the wrapped driver.
func (r *Repeater) Init(replica ReplicaID) (DriverState, []Input) {
	inner, initial := r.Inner.Init(replica)
	return &repeaterState{inner: inner, initial: initial}, initial
}

// HandleOutput delegates first; if that yields nothing and the repeat budget
// isn't spent, it replays the original init inputs instead.
func (r *Repeater) HandleOutput(state DriverState, output Output) []Input {
	s := state.(*repeaterState)
	followups := r.Inner.HandleOutput(s.inner, output)
	if len(followups) > 0 {
		return followups
	}
	if s.repeats >= r.Limit {
		return nil
	}
	s.repeats++
	return s.initial
}
