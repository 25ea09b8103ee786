package plugin

// State represents the lifecycle state of a plugin descriptor.
type State int

// Plugin states.
const (
	// StateUnloaded - The entry point is resolved but the module is not
	// imported.
	StateUnloaded State = iota

	// StateLoaded - The module is imported and the initializer extracted.
	StateLoaded

	// StateInitialized - The initializer has run.
	StateInitialized

	// StateError - Loading or initialization failed.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateInitialized:
		return "initialized"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
