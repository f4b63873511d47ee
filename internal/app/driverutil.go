package app

// NoopDriverState is a zero-size DriverState for drivers that need no state
// of their own beyond what Init/HandleOutput compute on the fly.
type NoopDriverState struct{}

// Clone returns itself: there is nothing to copy.
func (NoopDriverState) Clone() DriverState { return NoopDriverState{} }

// Equal is always true: every NoopDriverState is interchangeable.
func (NoopDriverState) Equal(other DriverState) bool {
	_, ok := other.(NoopDriverState)
	return ok
}

// Hash is constant: NoopDriverState carries no information.
func (NoopDriverState) Hash() [32]byte { return [32]byte{} }
