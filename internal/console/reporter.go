// Package console prints single-line, human-facing status messages for the
// CLI and daemon bootstrap. It is deliberately separate from the structured
// log stream: operators tail the log, users watch the console.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// Reporter writes user-facing status lines to a single output stream.
type Reporter struct {
	out      io.Writer
	colorize bool
}

// New returns a reporter writing to w. Color is enabled only when w is a
// terminal and NO_COLOR is unset.
func New(w io.Writer) *Reporter {
	return &Reporter{out: w, colorize: shouldColorize(w)}
}

// NewPlain returns a reporter with color forced off, for tests and pipes.
func NewPlain(w io.Writer) *Reporter {
	return &Reporter{out: w}
}

// Info prints a neutral progress line.
func (r *Reporter) Info(format string, args ...any) {
	r.print("", format, args...)
}

// Success prints a confirmation line.
func (r *Reporter) Success(format string, args ...any) {
	r.print(ansiGreen, format, args...)
}

// Warn prints a cautionary line.
func (r *Reporter) Warn(format string, args ...any) {
	r.print(ansiYellow, "Warning: "+format, args...)
}

// Failure prints an error line prefixed so scripts can grep for it.
func (r *Reporter) Failure(format string, args ...any) {
	r.print(ansiRed, "Error: "+format, args...)
}

func (r *Reporter) print(color, format string, args ...any) {
	if r == nil || r.out == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	if r.colorize && color != "" {
		fmt.Fprintln(r.out, color+line+ansiReset)
		return
	}
	fmt.Fprintln(r.out, line)
}

func shouldColorize(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
