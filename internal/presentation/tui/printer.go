// Package tui formats command output for terminals.
package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Printer writes replay progress. Colour is used only when the writer is a terminal.
type Printer struct {
	mu  sync.Mutex
	w   io.Writer
	out *termenv.Output
}

// NewPrinter creates a printer over w, or os.Stdout if w is nil.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	profile := termenv.Ascii
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		profile = termenv.EnvColorProfile()
	}
	return &Printer{w: w, out: termenv.NewOutput(w, termenv.WithProfile(profile))}
}

// Colored reports whether output carries ANSI sequences.
func (p *Printer) Colored() bool {
	return p.out.Profile != termenv.Ascii
}

func (p *Printer) paint(color, s string) string {
	return p.out.String(s).Foreground(p.out.Color(color)).String()
}

func (p *Printer) line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

// Step prints the header of a replayed step.
func (p *Printer) Step(n int, kind, detail string) {
	head := p.paint("#818cf8", fmt.Sprintf("[%02d] %s", n, kind))
	if detail != "" {
		head += " " + detail
	}
	p.line(head)
}

// Console prints UI console text. An empty text marks the automatic clear.
func (p *Printer) Console(text string) {
	if text == "" {
		p.line(p.paint("#6b7280", "     console cleared"))
		return
	}
	for _, l := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		p.line(p.paint("#fbbf24", "     > ") + l)
	}
}

// Info prints a system message.
func (p *Printer) Info(format string, args ...any) {
	p.line(">>> " + fmt.Sprintf(format, args...))
}

// Error prints a failure.
func (p *Printer) Error(err error) {
	p.line(p.paint("#f87171", "error: ") + err.Error())
}

// Field prints one aligned key/value line of a summary.
func (p *Printer) Field(key string, value any) {
	p.line(fmt.Sprintf("    %-12s %v", key, value))
}
