// log/stack.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"fmt"
	"runtime"
)

// StackFrames holds a formatted call stack, most-recent call first.
type StackFrames []string

// Strings returns the frames as a plain []string for attaching to a slog
// attribute.
func (s StackFrames) Strings() []string {
	return []string(s)
}

// Callstack captures the call stack of the caller's caller, skipping the
// logging shims in this package. If existing is non-nil, it is returned
// unchanged; this lets callers who already captured a stack (e.g. a mutex
// acquired earlier) avoid paying for a second capture.
func Callstack(existing StackFrames) StackFrames {
	if existing != nil {
		return existing
	}

	const maxFrames = 32
	var pcs [maxFrames]uintptr
	// Skip Callers, Callstack, and the Logger method that called us.
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	var s StackFrames
	for {
		frame, more := frames.Next()
		s = append(s, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		if !more {
			break
		}
	}
	return s
}
