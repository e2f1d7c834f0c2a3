package statemachine // import "github.com/attachkit/statemachine"

// State is the constraint for the values a Machine tracks.  States are
// opaque to the machine: it only ever compares them for equality, so any
// comparable type works, but the intended use is a small closed set of
// discrete values -- typically a defined type over int or string with
// const members.
type State interface {
	comparable
}

// Handler is notified when a machine enters or leaves a state.  Handlers
// receive the state being left in from and the state being entered in to.
// On Start and Stop there is no counterpart state and both arguments
// carry the same value.
//
// Handlers run synchronously, inline with the call that triggered them,
// in no particular order.  A handler may itself drive the machine to
// another state; the machine does not guard against the recursion.
type Handler[T State] func(from, to T)

// Logger is the interface used by the module to log information
type Logger interface {
	Debug(string, ...interface{})
	Error(string, ...interface{})
	Info(string, ...interface{})
}

// Option configures a Machine at construction.
type Option[T State] func(*Machine[T])

// WithLogger directs the machine's lifecycle and transition logging to l.
// The default discards everything.
func WithLogger[T State](l Logger) Option[T] {
	return func(m *Machine[T]) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStateNames supplies friendly names for states, used in error
// messages, log lines and StateStringer.  States missing from the table
// fall back to their %v formatting.
func WithStateNames[T State](names map[T]string) Option[T] {
	return func(m *Machine[T]) {
		m.stateNames = names
	}
}
