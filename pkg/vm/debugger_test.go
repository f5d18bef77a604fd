package vm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/diannexlang/dx/pkg/container"
	"github.com/diannexlang/dx/pkg/value"
)

func TestShouldPauseRequiresEnabled(t *testing.T) {
	m := New(container.New(nil, nil, []byte{0}, nil, nil, nil, nil), nil)
	m.ip = 0
	d := NewDebugger(m)
	d.AddBreakpoint(0)
	if d.ShouldPause() {
		t.Fatal("disabled debugger must never pause")
	}
	d.Enable()
	if !d.ShouldPause() {
		t.Fatal("expected pause at a breakpoint ip")
	}
}

func TestShouldPauseStepMode(t *testing.T) {
	m := New(container.New(nil, nil, []byte{0}, nil, nil, nil, nil), nil)
	d := NewDebugger(m)
	d.Enable()
	if d.ShouldPause() {
		t.Fatal("no breakpoint and no step mode should not pause")
	}
	d.SetStepMode(true)
	if !d.ShouldPause() {
		t.Fatal("step mode should pause on every instruction")
	}
}

func TestBreakpointAddRemoveClear(t *testing.T) {
	m := New(container.New(nil, nil, []byte{0}, nil, nil, nil, nil), nil)
	d := NewDebugger(m)
	d.Enable()
	d.AddBreakpoint(5)
	m.ip = 5
	if !d.ShouldPause() {
		t.Fatal("expected pause at breakpoint 5")
	}
	d.RemoveBreakpoint(5)
	if d.ShouldPause() {
		t.Fatal("expected no pause after removing the only breakpoint")
	}
	d.AddBreakpoint(1)
	d.AddBreakpoint(2)
	d.ClearBreakpoints()
	m.ip = 1
	if d.ShouldPause() {
		t.Fatal("expected no pause after ClearBreakpoints")
	}
}

func TestShowStack(t *testing.T) {
	m := New(container.New(nil, nil, []byte{0}, nil, nil, nil, nil), nil)
	d := NewDebugger(m)
	var out bytes.Buffer
	d.SetIO(strings.NewReader(""), &out)

	d.ShowStack()
	if !strings.Contains(out.String(), "(empty)") {
		t.Fatalf("expected empty-stack message, got %q", out.String())
	}

	out.Reset()
	m.pushStack(value.NewInt(1))
	m.pushStack(value.NewInt(2))
	d.ShowStack()
	text := out.String()
	if !strings.Contains(text, "[1] 2") || !strings.Contains(text, "[0] 1") {
		t.Fatalf("expected top-first stack dump, got %q", text)
	}
}

func TestShowLocals(t *testing.T) {
	m := New(container.New(nil, nil, []byte{0}, nil, nil, nil, nil), nil)
	m.resetRunState()
	m.locals.Set(0, value.NewString("hi"), m)
	d := NewDebugger(m)
	var out bytes.Buffer
	d.SetIO(strings.NewReader(""), &out)
	d.ShowLocals()
	if !strings.Contains(out.String(), "[0] hi") {
		t.Fatalf("expected local slot dump, got %q", out.String())
	}
}

func TestShowGlobalsSorted(t *testing.T) {
	m := New(container.New(nil, nil, []byte{0}, nil, nil, nil, nil), nil)
	m.globals["zebra"] = value.NewInt(1)
	m.globals["apple"] = value.NewInt(2)
	d := NewDebugger(m)
	var out bytes.Buffer
	d.SetIO(strings.NewReader(""), &out)
	d.ShowGlobals()
	text := out.String()
	if strings.Index(text, "apple") > strings.Index(text, "zebra") {
		t.Fatalf("expected globals sorted by name, got %q", text)
	}
}

func TestShowCallStack(t *testing.T) {
	m := New(container.New(nil, nil, []byte{0}, nil, nil, nil, nil), nil)
	m.callStack = []frame{{returnIP: 3, name: "outer"}}
	d := NewDebugger(m)
	var out bytes.Buffer
	d.SetIO(strings.NewReader(""), &out)
	d.ShowCallStack()
	if !strings.Contains(out.String(), "outer [return ip: 3]") {
		t.Fatalf("expected call frame dump, got %q", out.String())
	}
}

func TestInteractivePromptContinue(t *testing.T) {
	a := new(asm)
	a.pushInt(1).exit()
	bin := container.New([]string{"intro"}, nil, a.bytes(), []container.SceneFunc{{Symbol: 0, InstructionIndices: []int32{0}}}, nil, nil, nil)
	m := New(bin, nil)
	ctx := context.Background()
	_ = m.RunScene(ctx, "intro")

	d := NewDebugger(m)
	var out bytes.Buffer
	d.SetIO(strings.NewReader("stack\ncontinue\n"), &out)
	if !d.InteractivePrompt() {
		t.Fatal("expected continue command to resume execution")
	}
	if d.stepMode {
		t.Fatal("continue should clear step mode")
	}
	if !strings.Contains(out.String(), "Stack (top to bottom):") {
		t.Fatalf("expected stack command output, got %q", out.String())
	}
}

func TestInteractivePromptStep(t *testing.T) {
	a := new(asm)
	a.pushInt(1).exit()
	bin := container.New([]string{"intro"}, nil, a.bytes(), []container.SceneFunc{{Symbol: 0, InstructionIndices: []int32{0}}}, nil, nil, nil)
	m := New(bin, nil)
	_ = m.RunScene(context.Background(), "intro")

	d := NewDebugger(m)
	d.SetIO(strings.NewReader("step\n"), &bytes.Buffer{})
	if !d.InteractivePrompt() {
		t.Fatal("expected step command to resume execution")
	}
	if !d.stepMode {
		t.Fatal("expected step command to enable step mode")
	}
}

func TestInteractivePromptQuit(t *testing.T) {
	m := New(container.New(nil, nil, []byte{0}, nil, nil, nil, nil), nil)
	d := NewDebugger(m)
	d.SetIO(strings.NewReader("quit\n"), &bytes.Buffer{})
	if d.InteractivePrompt() {
		t.Fatal("expected quit command to abort")
	}
}

func TestInteractivePromptEOFAborts(t *testing.T) {
	m := New(container.New(nil, nil, []byte{0}, nil, nil, nil, nil), nil)
	d := NewDebugger(m)
	d.SetIO(strings.NewReader(""), &bytes.Buffer{})
	if d.InteractivePrompt() {
		t.Fatal("expected closed stdin to abort like quit")
	}
}

func TestInteractivePromptBreakpointCommands(t *testing.T) {
	m := New(container.New(nil, nil, []byte{0}, nil, nil, nil, nil), nil)
	d := NewDebugger(m)
	var out bytes.Buffer
	d.SetIO(strings.NewReader("breakpoint 4\ndelete 4\nquit\n"), &out)
	d.InteractivePrompt()
	text := out.String()
	if !strings.Contains(text, "Breakpoint added at instruction 4") {
		t.Fatalf("expected breakpoint-added message, got %q", text)
	}
	if !strings.Contains(text, "Breakpoint removed at instruction 4") {
		t.Fatalf("expected breakpoint-removed message, got %q", text)
	}
	if len(d.breakpoints) != 0 {
		t.Fatalf("expected no breakpoints left, have %v", d.breakpoints)
	}
}

// TestDebuggerAbortsUpdate wires a Debugger onto a VM end-to-end (spec.md
// §4.8's Update loop): an enabled debugger with a breakpoint at the entry ip
// pauses Update before the first instruction executes, and a "quit" reply
// surfaces as ErrDebugAborted rather than silently stopping.
func TestDebuggerAbortsUpdate(t *testing.T) {
	a := new(asm)
	a.pushInt(1).exit()
	bin := container.New([]string{"intro"}, nil, a.bytes(), []container.SceneFunc{{Symbol: 0, InstructionIndices: []int32{0}}}, nil, nil, nil)
	m := New(bin, nil)
	ctx := context.Background()
	if err := m.RunScene(ctx, "intro"); err != nil {
		t.Fatal(err)
	}

	d := NewDebugger(m)
	d.Enable()
	d.AddBreakpoint(0)
	d.SetIO(strings.NewReader("quit\n"), &bytes.Buffer{})

	err := m.Update(ctx)
	if err != ErrDebugAborted {
		t.Fatalf("Update error = %v, want ErrDebugAborted", err)
	}
}

// TestDebuggerStepModeAdvancesOneInstructionAtATime drives a two-instruction
// program under step mode, replying "next" at each prompt, and confirms the
// VM actually makes progress (ip advances) between prompts.
func TestDebuggerStepModeAdvancesOneInstructionAtATime(t *testing.T) {
	a := new(asm)
	a.pushInt(1).pushInt(2).exit()
	bin := container.New([]string{"intro"}, nil, a.bytes(), []container.SceneFunc{{Symbol: 0, InstructionIndices: []int32{0}}}, nil, nil, nil)
	m := New(bin, nil)
	ctx := context.Background()
	_ = m.RunScene(ctx, "intro")

	d := NewDebugger(m)
	d.Enable()
	d.SetStepMode(true)
	d.SetIO(strings.NewReader("next\nnext\nnext\nnext\n"), &bytes.Buffer{})

	seen := map[int32]bool{}
	for !m.SceneCompleted() {
		seen[m.ip] = true
		if err := m.Update(ctx); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if len(seen) < 2 {
		t.Fatalf("expected step mode to pause at multiple distinct ips, saw %v", seen)
	}
}
