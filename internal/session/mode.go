package session

// Mode decides which simulator passes and command clauses a session uses.
// It is chosen once in Build; later steps switch on it.
type Mode int

const (
	// ModeBare runs the debugger with no persisted state.
	ModeBare Mode = iota
	// ModeWithState persists constructor side effects to the state path.
	ModeWithState
	// ModeWithStorageOverrides seeds storage through a synthetic
	// constructor and persists it to the state path.
	ModeWithStorageOverrides
)

func (m Mode) String() string {
	switch m {
	case ModeBare:
		return "bare"
	case ModeWithState:
		return "with_state"
	case ModeWithStorageOverrides:
		return "with_storage_overrides"
	default:
		return "unknown"
	}
}

// UsesState reports whether the session deploys into and debugs against
// the persisted state directory.
func (m Mode) UsesState() bool {
	switch m {
	case ModeWithState, ModeWithStorageOverrides:
		return true
	default:
		return false
	}
}

// SelectMode picks the mode for a set of options. Storage overrides take
// priority over a plain preserve-state request.
func SelectMode(o Options) Mode {
	switch {
	case len(o.Storage) > 0:
		return ModeWithStorageOverrides
	case o.PreserveState:
		return ModeWithState
	default:
		return ModeBare
	}
}
