package lisp

import (
	"bytes"
	"fmt"
	"io"
)

// CallFrame is one frame of a CallStack.
type CallFrame struct {
	Name     string
	Terminal bool // true if this frame's call is in tail position
	Traced   bool
}

// CallStack is the evaluator's function call stack, used for the trace
// primitive and for diagnostics. It is not consulted for control flow: the
// tail-call loop in eval.go is a plain Go loop, not stack-driven recursion.
type CallStack struct {
	Frames []CallFrame
}

// Push records entry into a call, named name.
func (s *CallStack) Push(name string, traced bool) {
	s.Frames = append(s.Frames, CallFrame{Name: name, Traced: traced})
}

// Pop removes and returns the top frame.
func (s *CallStack) Pop() CallFrame {
	f := s.Frames[len(s.Frames)-1]
	s.Frames = s.Frames[:len(s.Frames)-1]
	return f
}

// MarkTerminal marks the top frame as being a tail call, so that later
// frames pushed for the recycled operator chain report correctly during
// tracing.
func (s *CallStack) MarkTerminal() {
	if len(s.Frames) == 0 {
		return
	}
	s.Frames[len(s.Frames)-1].Terminal = true
}

// Depth returns the current stack height.
func (s *CallStack) Depth() int { return len(s.Frames) }

// DebugPrint writes a human-readable trace of the stack, entrypoint last.
func (s *CallStack) DebugPrint(w io.Writer) {
	fmt.Fprintf(w, "call stack (%d frames, entrypoint last):\n", len(s.Frames))
	for i := len(s.Frames) - 1; i >= 0; i-- {
		f := s.Frames[i]
		var mod bytes.Buffer
		if f.Terminal {
			mod.WriteString(" [tail]")
		}
		fmt.Fprintf(w, "  #%d %s%s\n", i, f.Name, mod.String())
	}
}
