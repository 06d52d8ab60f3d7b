package engine

import (
	"errors"
	"fmt"
)

// ModuleError reports a module failure together with its position.
type ModuleError struct {
	Pipeline string
	Module   string
	Path     string
	Err      error
	Panicked bool
}

func (e *ModuleError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("module %s (%s) panicked: %v", e.Path, e.Module, e.Err)
	}
	return fmt.Sprintf("module %s (%s): %v", e.Path, e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// AsModuleError extracts the innermost ModuleError from err.
func AsModuleError(err error) (*ModuleError, bool) {
	var me *ModuleError
	if !errors.As(err, &me) {
		return nil, false
	}
	for {
		var inner *ModuleError
		if !errors.As(me.Err, &inner) {
			return me, true
		}
		me = inner
	}
}

// ErrPipelineNotFound is returned when a named pipeline does not exist.
var ErrPipelineNotFound = errors.New("pipeline not found")
