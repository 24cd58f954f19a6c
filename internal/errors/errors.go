// Package errors formats Jactl's three error families — compile-time,
// runtime, and checkpoint — with source context, line/column
// information, and a caret pointing at the offending position.
package errors

import (
	"fmt"
	"strings"

	"github.com/jactl-lang/jactl/internal/token"
)

// CompileError is one lexing/parsing/resolution/analysis diagnostic.
type CompileError struct {
	Message string
	Source  string
	File    string
	Pos     token.Position
}

func NewCompileError(pos token.Position, message, source, file string) *CompileError {
	return &CompileError{Pos: pos, Message: message, Source: source, File: file}
}

func (e *CompileError) Error() string { return e.Format(false) }

// Format renders the error with its source line and a caret; color adds
// ANSI codes for terminal output.
func (e *CompileError) Format(color bool) string {
	var sb strings.Builder
	if e.File != "" {
		fmt.Fprintf(&sb, "Error in %s:%d:%d\n", e.File, e.Pos.Line, e.Pos.Column)
	} else {
		fmt.Fprintf(&sb, "Error at line %d:%d\n", e.Pos.Line, e.Pos.Column)
	}

	if line := sourceLine(e.Source, e.Pos.Line); line != "" {
		prefix := fmt.Sprintf("%4d | ", e.Pos.Line)
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(prefix)+e.Pos.Column-1))
		writeCaret(&sb, color)
	}

	writeMessage(&sb, e.Message, color)
	return sb.String()
}

// RuntimeError is raised by `die`/`throw` or by a builtin operation
// failing (e.g. a bad cast, a null-safe chain bottoming out where the
// language requires a value). It carries the call stack captured at the
// point of the raise, the way a host-visible exception needs to for
// useful diagnostics across a suspended-and-resumed script.
type RuntimeError struct {
	Message string
	Pos     token.Position
	Stack   []StackFrame
}

// StackFrame names one call-stack entry at the moment a RuntimeError was
// raised, innermost first.
type StackFrame struct {
	FuncName string
	Pos      token.Position
}

func (e *RuntimeError) Error() string { return e.Format(false) }

func (e *RuntimeError) Format(color bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "RuntimeError at line %d:%d: ", e.Pos.Line, e.Pos.Column)
	writeMessage(&sb, e.Message, color)
	for _, f := range e.Stack {
		fmt.Fprintf(&sb, "\n    at %s (line %d:%d)", f.FuncName, f.Pos.Line, f.Pos.Column)
	}
	return sb.String()
}

// CheckpointError signals that saving, loading, or resuming a suspended
// script's continuation state failed — a corrupt wire payload, a version
// mismatch, or an I/O failure from the host's checkpoint store.
type CheckpointError struct {
	Message string
	Cause   error
}

func (e *CheckpointError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("checkpoint error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("checkpoint error: %s", e.Message)
}

func (e *CheckpointError) Unwrap() error { return e.Cause }

func sourceLine(source string, lineNum int) string {
	if source == "" {
		return ""
	}
	lines := strings.Split(source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

func writeCaret(sb *strings.Builder, color bool) {
	if color {
		sb.WriteString("\033[1;31m")
	}
	sb.WriteString("^\n")
	if color {
		sb.WriteString("\033[0m")
	}
}

func writeMessage(sb *strings.Builder, msg string, color bool) {
	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(msg)
	if color {
		sb.WriteString("\033[0m")
	}
}

// FormatErrors renders a batch of compile errors the way a CLI reports a
// failed compilation: a summary count followed by each error in turn.
func FormatErrors(errs []*CompileError, color bool) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Format(color)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Compilation failed with %d error(s):\n\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(&sb, "[Error %d of %d]\n", i+1, len(errs))
		sb.WriteString(e.Format(color))
		if i < len(errs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
