// Package vm implements the Diannex stack machine: instruction dispatch,
// call/return frames, choice/choose state machines, string interpolation,
// and definition resolution (spec.md §4).
package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDebugAborted is returned by Update when an attached, enabled Debugger's
// InteractivePrompt returns false (the "quit" command, or stdin closing).
var ErrDebugAborted = errors.New("vm: execution aborted from debugger")

// StackFrame captures one entry of the call stack at the time an error was
// raised, for inclusion in a RuntimeError's trace.
type StackFrame struct {
	Name string // scene or function name
	IP   int    // instruction pointer within that frame at the time of the error
}

// RuntimeError reports a VM-state error (spec.md §7): a malformed
// instruction sequence or an out-of-protocol call, as opposed to an
// ordinary opcode type-mismatch no-op, which is never an error.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.StackTrace) > 0 {
		b.WriteString("\n\nStack trace:")
		for i := len(e.StackTrace) - 1; i >= 0; i-- {
			f := e.StackTrace[i]
			fmt.Fprintf(&b, "\n  at %s [ip=%d]", f.Name, f.IP)
		}
	}
	return b.String()
}

func newRuntimeError(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack}
}

// trace snapshots the VM's current call stack (outermost first, innermost
// last; Error prints it innermost first) plus the active frame, for
// attachment to a RuntimeError raised at the current ip. Each frame pairs a
// scene or function name with the ip within that same frame.
func (vm *VM) trace() []StackFrame {
	frames := make([]StackFrame, 0, len(vm.callStack)+1)
	name := vm.currentScene
	if name == "" {
		name = "<unknown>"
	}
	for _, f := range vm.callStack {
		frames = append(frames, StackFrame{Name: name, IP: int(f.returnIP)})
		name = f.name
	}
	frames = append(frames, StackFrame{Name: name, IP: int(vm.ip)})
	return frames
}

// runtimeErrorf raises a VM-state error (spec.md §7) at the VM's current
// position, with the call stack attached.
func (vm *VM) runtimeErrorf(format string, args ...any) *RuntimeError {
	return newRuntimeError(fmt.Sprintf(format, args...), vm.trace())
}
