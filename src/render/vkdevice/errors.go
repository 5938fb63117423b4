package vkdevice

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/vulkan-go/vulkan"
)

// stackFrame is the caller of a failed Vulkan call.
type stackFrame struct {
	file string
	line int
	fn   string
}

func newStackFrame(pc uintptr) stackFrame {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return stackFrame{fn: "unknown"}
	}
	file, line := fn.FileLine(pc)
	return stackFrame{file: filepath.Base(file), line: line, fn: fn.Name()}
}

func (f stackFrame) String() string {
	return fmt.Sprintf("%s:%d %s", f.file, f.line, f.fn)
}

// NewError converts a Vulkan result into an error, nil on success.
func NewError(retVal vulkan.Result) error {
	if retVal != vulkan.Success {
		pc, _, _, ok := runtime.Caller(1)
		if !ok {
			return fmt.Errorf("vulkan error: %w (%d)", vulkan.Error(retVal), retVal)
		}
		frame := newStackFrame(pc)
		return fmt.Errorf("vulkan error: %w (%d) on %s",
			vulkan.Error(retVal), retVal, frame.String())
	}
	return nil
}

func IsError(retVal vulkan.Result) bool {
	return retVal != vulkan.Success
}

// OrPanic runs the finalizers and panics when err is set. Pair it with a
// deferred CheckError.
func OrPanic(err error, finalizers ...func()) {
	if err == nil {
		return
	}
	for _, fn := range finalizers {
		fn()
	}
	panic(err)
}

// CheckError recovers a panic raised by OrPanic into *err.
func CheckError(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = e
			return
		}
		*err = fmt.Errorf("%+v", v)
	}
}

var (
	ErrNoPhysicalDevice = errors.New("vkdevice: no suitable physical device")
	ErrForeignObject    = errors.New("vkdevice: object was not created by this device")
)
