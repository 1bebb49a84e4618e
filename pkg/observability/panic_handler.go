package observability

import (
	"fmt"
	"runtime/debug"
)

// PanicError is a recovered panic turned into an error
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// RecoverPanic logs a panic of the calling goroutine with its stack and
// swallows it. It must be deferred directly:
//
//	go func() {
//	    defer observability.RecoverPanic(logger, "audit write")
//	    ...
//	}()
func RecoverPanic(logger *Logger, name string) {
	r := recover()
	if r == nil {
		return
	}
	logger.WithFields(map[string]interface{}{
		"panic":     fmt.Sprint(r),
		"stack":     string(debug.Stack()),
		"goroutine": name,
	}).Error("panic recovered")
}

// MustRecover converts a value returned by recover into a *PanicError,
// nil when r is nil.
func MustRecover(r any) error {
	if r == nil {
		return nil
	}
	return &PanicError{Value: r, Stack: debug.Stack()}
}
