package xerrors

import (
	"fmt"
	"runtime"
)

// wrap annotates an error with a message and the PC of the wrap site, so the
// logger can report where in the code a failure was handled.
type wrap struct {
	err error
	msg string
	pc  uintptr
}

func (w *wrap) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrap) Unwrap() error { return w.err }
func (w *wrap) PC() uintptr   { return w.pc }

func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	// 2 skips runtime.Callers + callerPC
	if n := runtime.Callers(2+skip, pcs[:]); n == 0 {
		return 0
	}
	return pcs[0]
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrap{err: err, msg: msg, pc: callerPC(1)}
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrap{err: err, msg: fmt.Sprintf(format, args...), pc: callerPC(1)}
}

type withPC struct {
	err error
	pc  uintptr
}

func (w *withPC) Error() string { return w.err.Error() }
func (w *withPC) Unwrap() error { return w.err }
func (w *withPC) PC() uintptr   { return w.pc }

func New(msg string) error {
	return &withPC{err: fmt.Errorf("%s", msg), pc: callerPC(1)}
}

func Newf(format string, args ...any) error {
	return &withPC{err: fmt.Errorf(format, args...), pc: callerPC(1)}
}
