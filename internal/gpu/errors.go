package gpu

import "fmt"

// ResourceCreationError reports a GPU object that failed to allocate.
// It unwraps to the HAL error (for example hal.ErrDeviceOutOfMemory).
type ResourceCreationError struct {
	Kind  ObjectKind
	Label string
	Err   error
}

func (e *ResourceCreationError) Error() string {
	return fmt.Sprintf("gpu: create %s %q: %v", e.Kind, e.Label, e.Err)
}

func (e *ResourceCreationError) Unwrap() error { return e.Err }

// BindingViolation reports an illegal render-target state transition, such
// as binding a target readable while it is still bound as an attachment.
type BindingViolation struct {
	Target string
	From   BindState
	To     BindState
}

func (e *BindingViolation) Error() string {
	return fmt.Sprintf("gpu: target %q cannot go from %s to %s", e.Target, e.From, e.To)
}
