package statemachine // import "github.com/attachkit/statemachine"

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation is the base error for every precondition violation
// raised by a Machine: structural mutation while running, state mutation
// while stopped, and a transition rejected by the constraint table.  The
// concrete Err* types below all unwrap to it.
var ErrInvalidOperation = errors.New("invalid operation")

// ErrMachineStarted is raised when a configuration call is made on a
// running machine.
type ErrMachineStarted struct {
	Op string
}

func (e ErrMachineStarted) Error() string {
	return fmt.Sprintf("%v: machine is already started", e.Op)
}

func (e ErrMachineStarted) Unwrap() error { return ErrInvalidOperation }

// ErrMachineStopped is raised when a state operation is made on a machine
// that has not been started.
type ErrMachineStopped struct {
	Op string
}

func (e ErrMachineStopped) Error() string {
	return fmt.Sprintf("%v: machine is not started", e.Op)
}

func (e ErrMachineStopped) Unwrap() error { return ErrInvalidOperation }

// ErrTransitionRejected is raised by SetState when the constraint table
// does not allow the requested transition.  From and To carry the
// friendly state names when a name table was configured.
type ErrTransitionRejected struct {
	From string
	To   string
}

func (e ErrTransitionRejected) Error() string {
	return fmt.Sprintf("transition rejected: %v -> %v", e.From, e.To)
}

func (e ErrTransitionRejected) Unwrap() error { return ErrInvalidOperation }
