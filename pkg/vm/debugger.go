package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/diannexlang/dx/pkg/bytecode"
)

// Debugger provides interactive debugging of a VM: breakpoints, single
// stepping, and inspection of the stack, locals, globals, and call stack.
// It is attached explicitly (NewDebugger), never created implicitly by the
// VM, so embedding a Debugger has no effect on a VM's behavior until a host
// opts in via Enable and AddBreakpoint/SetStepMode.
type Debugger struct {
	vm          *VM
	in          *bufio.Scanner
	out         io.Writer
	breakpoints map[int]bool
	stepMode    bool
	enabled     bool
}

// NewDebugger creates a debugger attached to vm and wires it into vm.Update
// (spec.md §4.8): once Enabled, Update consults ShouldPause before
// executing each instruction. Input/output default to stdin/stdout; SetIO
// overrides them (tests use an in-memory reader/writer).
func NewDebugger(vm *VM) *Debugger {
	d := &Debugger{
		vm:          vm,
		in:          bufio.NewScanner(os.Stdin),
		out:         os.Stdout,
		breakpoints: make(map[int]bool),
	}
	vm.debugger = d
	return d
}

// SetIO redirects the debugger's prompt input/output, e.g. to drive it from
// tests or from a host's own terminal abstraction instead of os.Stdin/Stdout.
func (d *Debugger) SetIO(in io.Reader, out io.Writer) {
	d.in = bufio.NewScanner(in)
	d.out = out
}

// Enable activates the debugger.
func (d *Debugger) Enable() { d.enabled = true }

// Disable deactivates the debugger.
func (d *Debugger) Disable() { d.enabled = false }

// Enabled reports whether the debugger is active.
func (d *Debugger) Enabled() bool { return d.enabled }

// SetStepMode enables or disables step mode (pause after every instruction).
func (d *Debugger) SetStepMode(enabled bool) { d.stepMode = enabled }

// AddBreakpoint adds a breakpoint at instruction offset ip.
func (d *Debugger) AddBreakpoint(ip int) { d.breakpoints[ip] = true }

// RemoveBreakpoint removes a breakpoint at instruction offset ip.
func (d *Debugger) RemoveBreakpoint(ip int) { delete(d.breakpoints, ip) }

// ClearBreakpoints removes all breakpoints.
func (d *Debugger) ClearBreakpoints() { d.breakpoints = make(map[int]bool) }

// ShouldPause reports whether execution should halt before the instruction
// at the VM's current ip. Called by VM.Update once per instruction while a
// debugger is attached and enabled.
func (d *Debugger) ShouldPause() bool {
	if !d.enabled {
		return false
	}
	if d.stepMode {
		return true
	}
	return d.breakpoints[int(d.vm.ip)]
}

// ShowCurrentInstruction prints the instruction at the VM's current ip.
func (d *Debugger) ShowCurrentInstruction() {
	code := d.vm.binary.Instructions
	ip := int(d.vm.ip)
	if ip < 0 || ip >= len(code) {
		fmt.Fprintln(d.out, "No current instruction")
		return
	}
	inst, _, err := bytecode.DecodeAt(code, ip)
	if err != nil {
		fmt.Fprintf(d.out, "  %4d: <error: %v>\n", ip, err)
		return
	}
	fmt.Fprintf(d.out, "  %4d: %s\n", ip, formatOperand(inst))
}

func formatOperand(inst bytecode.Instruction) string {
	switch inst.Op.Shape() {
	case bytecode.OperandI32:
		return fmt.Sprintf("%s %d", inst.Op, inst.I32)
	case bytecode.OperandF64:
		return fmt.Sprintf("%s %g", inst.Op, inst.F64)
	case bytecode.OperandI32I32:
		return fmt.Sprintf("%s %d, %d", inst.Op, inst.I32, inst.I32B)
	default:
		return inst.Op.String()
	}
}

// ShowStack prints the VM's current operand stack, top first.
func (d *Debugger) ShowStack() {
	fmt.Fprintln(d.out, "Stack (top to bottom):")
	if len(d.vm.stack) == 0 {
		fmt.Fprintln(d.out, "  (empty)")
		return
	}
	for i := len(d.vm.stack) - 1; i >= 0; i-- {
		fmt.Fprintf(d.out, "  [%d] %s\n", i, d.vm.stack[i].String())
	}
}

// ShowLocals prints the active frame's local slots.
func (d *Debugger) ShowLocals() {
	fmt.Fprintln(d.out, "Local variables:")
	if d.vm.locals == nil || d.vm.locals.Count() == 0 {
		fmt.Fprintln(d.out, "  (none set)")
		return
	}
	for i := 0; i < d.vm.locals.Count(); i++ {
		fmt.Fprintf(d.out, "  [%d] %s\n", i, d.vm.locals.Get(i, d.vm).String())
	}
}

// ShowGlobals prints every global variable, sorted by name (VM.GlobalNames).
func (d *Debugger) ShowGlobals() {
	fmt.Fprintln(d.out, "Global variables:")
	names := d.vm.GlobalNames()
	if len(names) == 0 {
		fmt.Fprintln(d.out, "  (none)")
		return
	}
	for _, name := range names {
		fmt.Fprintf(d.out, "  %s = %s\n", name, d.vm.globals[name].String())
	}
}

// ShowCallStack prints the VM's call stack, innermost first.
func (d *Debugger) ShowCallStack() {
	fmt.Fprintln(d.out, "Call stack (top to bottom):")
	if len(d.vm.callStack) == 0 {
		fmt.Fprintln(d.out, "  (empty)")
		return
	}
	for i := len(d.vm.callStack) - 1; i >= 0; i-- {
		f := d.vm.callStack[i]
		fmt.Fprintf(d.out, "  %s [return ip: %d]\n", f.name, f.returnIP)
	}
}

// InteractivePrompt reads and handles debugger commands until the user
// resumes (continue/step/next) or quits. It is called by VM.Update when
// ShouldPause returns true; a false return aborts the run.
func (d *Debugger) InteractivePrompt() (continueExecution bool) {
	fmt.Fprintln(d.out, "\n=== Debugger Paused ===")
	d.ShowCurrentInstruction()

	for {
		fmt.Fprint(d.out, "debug> ")
		if !d.in.Scan() {
			return false
		}

		line := strings.TrimSpace(d.in.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		command := parts[0]

		switch command {
		case "help", "h", "?":
			d.printHelp()
		case "continue", "c":
			d.SetStepMode(false)
			return true
		case "step", "s":
			d.SetStepMode(true)
			return true
		case "next", "n":
			return true
		case "stack", "st":
			d.ShowStack()
		case "locals", "l":
			d.ShowLocals()
		case "globals", "g":
			d.ShowGlobals()
		case "callstack", "cs":
			d.ShowCallStack()
		case "instruction", "i":
			d.ShowCurrentInstruction()
		case "breakpoint", "b":
			if len(parts) < 2 {
				fmt.Fprintln(d.out, "Usage: breakpoint <instruction_offset>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Fprintln(d.out, "Invalid instruction offset")
				continue
			}
			d.AddBreakpoint(ip)
			fmt.Fprintf(d.out, "Breakpoint added at instruction %d\n", ip)
		case "delete", "d":
			if len(parts) < 2 {
				fmt.Fprintln(d.out, "Usage: delete <instruction_offset>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Fprintln(d.out, "Invalid instruction offset")
				continue
			}
			d.RemoveBreakpoint(ip)
			fmt.Fprintf(d.out, "Breakpoint removed at instruction %d\n", ip)
		case "list", "ls":
			fmt.Fprint(d.out, bytecode.Disassemble(d.vm.binary.Instructions))
		case "quit", "q":
			return false
		default:
			fmt.Fprintf(d.out, "Unknown command: %s (type 'help' for commands)\n", command)
		}
	}
}

func (d *Debugger) printHelp() {
	fmt.Fprintln(d.out, "Debugger Commands:")
	fmt.Fprintln(d.out, "  help, h, ?           Show this help")
	fmt.Fprintln(d.out, "  continue, c          Continue execution")
	fmt.Fprintln(d.out, "  step, s              Enable step mode (pause after each instruction)")
	fmt.Fprintln(d.out, "  next, n              Execute next instruction")
	fmt.Fprintln(d.out, "  stack, st            Show VM stack")
	fmt.Fprintln(d.out, "  locals, l            Show local variables")
	fmt.Fprintln(d.out, "  globals, g           Show global variables")
	fmt.Fprintln(d.out, "  callstack, cs        Show call stack")
	fmt.Fprintln(d.out, "  instruction, i       Show current instruction")
	fmt.Fprintln(d.out, "  breakpoint <n>, b    Add breakpoint at instruction n")
	fmt.Fprintln(d.out, "  delete <n>, d        Remove breakpoint at instruction n")
	fmt.Fprintln(d.out, "  list, ls             Disassemble the full instruction stream")
	fmt.Fprintln(d.out, "  quit, q              Quit debugging (abort execution)")
}
