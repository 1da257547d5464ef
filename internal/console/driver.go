package console

import "errors"

// ErrAlreadyInitialized is returned by Driver.Start on a driver that has
// already surrendered its resources once. Drivers are one-shot.
var ErrAlreadyInitialized = errors.New("console: driver already initialized")

// Resource is the tagged union of values a Driver can surface. Display is
// the only tag in scope.
type Resource struct {
	Display Sink
}

// Driver is the lifecycle contract every board driver implements. Stop is
// optional; a driver that does not override it panics if Stop is called,
// matching the original's unimplemented!() default.
type Driver interface {
	Name() string
	Start() ([]Resource, error)
	Stop() error
}

// BaseDriver provides the default Stop behaviour (unimplemented, fatal)
// for drivers that embed it and only override Start.
type BaseDriver struct{}

// Stop panics: stopping a driver is not implemented in this scope.
func (BaseDriver) Stop() error {
	panic("console: driver Stop is not implemented")
}
