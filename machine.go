package statemachine // import "github.com/attachkit/statemachine"

import (
	"fmt"
	"reflect"
)

// Machine enforces a caller-defined transition graph over a closed set of
// states and notifies registered handlers on entry and exit.  It has two
// modes of its own: stopped and started.  All structural configuration
// (constraints, handlers) requires the stopped mode and is frozen for the
// whole running lifetime; all state operations require the started mode.
// That freeze is the machine's only locking discipline -- it has no
// internal synchronization and expects to be driven from one logical
// thread of control.
//
// In strict mode a state may only be left through an explicitly declared
// constraint.  In non-strict mode a state with no declared constraint can
// transition anywhere, but a declared constraint still restricts to its
// list.  The asymmetry is deliberate: declaring a constraint is opting in
// to enforcement, regardless of mode.
type Machine[T State] struct {

	// OnDebugStateChange, when set, is invoked with a (from, to) pair
	// immediately before Start and Stop (from == to == current state)
	// and before every transition.  Strictly for tracing, never for
	// control flow.
	OnDebugStateChange func(from, to T)

	strict  bool
	running bool
	current T

	transitions map[T][]T
	enter       map[T]*handlerSet[T]
	leave       map[T]*handlerSet[T]

	logger     Logger
	stateNames map[T]string
}

// New returns a stopped machine with no current state.  The strict flag
// is fixed for the machine's lifetime.
func New[T State](strict bool, opts ...Option[T]) *Machine[T] {
	m := &Machine[T]{
		strict:      strict,
		transitions: map[T][]T{},
		enter:       map[T]*handlerSet[T]{},
		leave:       map[T]*handlerSet[T]{},
		logger:      &nilLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetTransitionConstraint replaces the allowed-destination list for
// transitions out of from.  An empty list makes from a dead end until the
// constraint is reset.
func (m *Machine[T]) SetTransitionConstraint(from T, to ...T) error {
	if m.running {
		return ErrMachineStarted{Op: "SetTransitionConstraint"}
	}
	m.transitions[from] = append([]T{}, to...)
	return nil
}

// ResetTransitionConstraint removes the constraint for from.  In
// non-strict mode the state becomes fully unconstrained as a source; in
// strict mode it can no longer be left at all except by ForceSetState.
func (m *Machine[T]) ResetTransitionConstraint(from T) error {
	if m.running {
		return ErrMachineStarted{Op: "ResetTransitionConstraint"}
	}
	delete(m.transitions, from)
	return nil
}

// AddStateHandlers registers an enter and/or a leave handler for state.
// Either handler may be nil.  Registration has set semantics: re-adding a
// handler that is already registered is a no-op.
func (m *Machine[T]) AddStateHandlers(state T, enter, leave Handler[T]) error {
	if m.running {
		return ErrMachineStarted{Op: "AddStateHandlers"}
	}
	if enter != nil {
		m.handlers(m.enter, state).add(enter)
	}
	if leave != nil {
		m.handlers(m.leave, state).add(leave)
	}
	return nil
}

// RemoveStateHandlers removes the given handlers for state if they are
// registered.  Removing a handler that was never added is safe.
func (m *Machine[T]) RemoveStateHandlers(state T, enter, leave Handler[T]) error {
	if m.running {
		return ErrMachineStarted{Op: "RemoveStateHandlers"}
	}
	if enter != nil {
		if set, has := m.enter[state]; has {
			set.remove(enter)
		}
	}
	if leave != nil {
		if set, has := m.leave[state]; has {
			set.remove(leave)
		}
	}
	return nil
}

// Start moves the machine to its running mode in the given initial state
// and fires the enter handlers registered for it.  Handlers receive the
// initial state as both arguments.
func (m *Machine[T]) Start(initial T) error {
	if m.running {
		return ErrMachineStarted{Op: "Start"}
	}
	m.trace(initial, initial)
	m.current = initial
	m.running = true
	m.logger.Info("started: state=%v", m.stateName(initial))
	m.fire(m.enter, initial, initial, initial)
	return nil
}

// Stop fires the leave handlers for the current state and returns the
// machine to its stopped mode.  Calling Stop on a machine that was never
// started does nothing.
func (m *Machine[T]) Stop() {
	if !m.running {
		return
	}
	m.trace(m.current, m.current)
	m.fire(m.leave, m.current, m.current, m.current)
	m.running = false
	m.logger.Info("stopped: state=%v", m.stateName(m.current))
}

// Running returns true between Start and Stop.
func (m *Machine[T]) Running() bool {
	return m.running
}

// State returns the current state.  Before Start the result is the zero
// value of T and carries no meaning; gate on Running.
func (m *Machine[T]) State() T {
	return m.current
}

// SetState transitions to the given state.  Setting the current state
// again is a no-op and fires nothing.  Any other destination is checked
// against the constraint table via CheckCanSwitchTo; a disallowed
// transition is rejected with no state change and no handlers fired.
func (m *Machine[T]) SetState(to T) error {
	if !m.running {
		return ErrMachineStopped{Op: "SetState"}
	}
	if to == m.current {
		return nil
	}
	if !m.CheckCanSwitchTo(to) {
		return ErrTransitionRejected{From: m.stateName(m.current), To: m.stateName(to)}
	}
	m.set(to)
	return nil
}

// ForceSetState transitions to the given state without consulting the
// constraint table, firing leave handlers for the current state and enter
// handlers for the new one.  Intended for recovery paths and for
// transitions already validated by the caller.
func (m *Machine[T]) ForceSetState(to T) error {
	if !m.running {
		return ErrMachineStopped{Op: "ForceSetState"}
	}
	m.set(to)
	return nil
}

// CheckCanSwitchTo reports whether a transition from the current state to
// the given state would be allowed.  Pure predicate, no side effects.
func (m *Machine[T]) CheckCanSwitchTo(to T) bool {
	allowed, declared := m.transitions[m.current]
	if !declared {
		return !m.strict
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateStringer returns the state in printable form
func (m *Machine[T]) StateStringer(state T) fmt.GoStringer {
	return stringer(m.stateName(state))
}

type stringer string

func (s stringer) GoString() string {
	return string(s)
}

func (m *Machine[T]) set(to T) {
	from := m.current
	m.trace(from, to)
	m.logger.Debug("transition: %v -> %v", m.stateName(from), m.stateName(to))
	m.fire(m.leave, from, from, to)
	m.current = to
	m.fire(m.enter, to, from, to)
}

func (m *Machine[T]) trace(from, to T) {
	if m.OnDebugStateChange != nil {
		m.OnDebugStateChange(from, to)
	}
}

func (m *Machine[T]) fire(reg map[T]*handlerSet[T], state T, from, to T) {
	if set, has := reg[state]; has {
		set.fire(from, to)
	}
}

func (m *Machine[T]) handlers(reg map[T]*handlerSet[T], state T) *handlerSet[T] {
	set, has := reg[state]
	if !has {
		set = &handlerSet[T]{}
		reg[state] = set
	}
	return set
}

// stateName returns the friendly name of the state, if defined
func (m *Machine[T]) stateName(state T) (name string) {
	name = fmt.Sprintf("%v", state)
	if m.stateNames == nil {
		return
	}
	if v, has := m.stateNames[state]; has {
		name = v
	}
	return
}

// handlerSet is a deduplicating collection of handlers.  Identity is the
// handler's code pointer, so two closures built from the same function
// literal count as the same handler even when they capture different
// variables.  Register distinct named functions (or methods) when that
// distinction matters.
type handlerSet[T State] struct {
	keys     []uintptr
	handlers []Handler[T]
}

func (s *handlerSet[T]) add(h Handler[T]) {
	key := reflect.ValueOf(h).Pointer()
	for _, k := range s.keys {
		if k == key {
			return
		}
	}
	s.keys = append(s.keys, key)
	s.handlers = append(s.handlers, h)
}

func (s *handlerSet[T]) remove(h Handler[T]) {
	key := reflect.ValueOf(h).Pointer()
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
			return
		}
	}
}

func (s *handlerSet[T]) fire(from, to T) {
	for _, h := range s.handlers {
		h(from, to)
	}
}
