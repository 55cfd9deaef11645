// Package obslog wraps the standard library logger with a per-component
// tag, matching the teacher's log.Printf call-site style but threading the
// logger itself as an explicit value instead of a package-level global —
// per §9's note that a global singleton logger should not survive a
// rewrite.
package obslog

import (
	"io"
	"log"
	"os"
)

// Logger tags every line written through it with a component name.
type Logger struct {
	base      *log.Logger
	component string
}

// New builds a Logger writing to w (os.Stderr if w is nil), tagged with
// component.
func New(w io.Writer, component string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		base:      log.New(w, "", log.LstdFlags),
		component: component,
	}
}

// With returns a Logger writing to the same destination under a different
// component tag, for subsystems handed their own tagged logger by a
// caller that owns the underlying writer.
func (l *Logger) With(component string) *Logger {
	return &Logger{base: l.base, component: component}
}

func (l *Logger) Printf(format string, args ...any) {
	l.base.Printf("["+l.component+"] "+format, args...)
}

func (l *Logger) Println(args ...any) {
	args = append([]any{"[" + l.component + "]"}, args...)
	l.base.Println(args...)
}

// Warnf logs a warning-level line through this logger; the engine uses
// this for worker exceptions and m-reduction notices per §7, rather than
// killing the run.
func (l *Logger) Warnf(format string, args ...any) {
	l.Printf("WARN "+format, args...)
}

// Fatalf logs then calls os.Exit(1), matching the teacher's log.Fatal use
// at CLI boundaries.
func (l *Logger) Fatalf(format string, args ...any) {
	l.base.Fatalf("["+l.component+"] "+format, args...)
}
