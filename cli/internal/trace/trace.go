// Package trace provides a small Tracer for writing internal step output to
// stderr when --trace is set. All methods no-op on a nil writer or nil
// receiver, so call sites never guard.
package trace

import (
	"fmt"
	"io"
)

// Tracer writes sectioned trace output.
type Tracer struct {
	w io.Writer
}

// New returns a Tracer writing to w. If w is nil, all methods no-op.
func New(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// Enabled reports whether trace output is going anywhere.
func (t *Tracer) Enabled() bool {
	return t != nil && t.w != nil
}

// Section writes a section header: "\n[codefixer:trace] === name ===\n".
func (t *Tracer) Section(name string) {
	if !t.Enabled() {
		return
	}
	fmt.Fprintf(t.w, "\n[codefixer:trace] === %s ===\n", name)
}

// Printf writes to the trace writer when enabled.
func (t *Tracer) Printf(format string, args ...interface{}) {
	if !t.Enabled() {
		return
	}
	fmt.Fprintf(t.w, format, args...)
}
