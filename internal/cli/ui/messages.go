package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Printer writes one-line status messages
type Printer struct {
	out     io.Writer
	noColor bool
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer, noColor bool) *Printer {
	return &Printer{out: out, noColor: noColor}
}

// Success prints a green check line
func (p *Printer) Success(format string, args ...interface{}) {
	p.line(color.FgGreen, "✓", format, args...)
}

// Info prints a cyan informational line
func (p *Printer) Info(format string, args ...interface{}) {
	p.line(color.FgCyan, "→", format, args...)
}

// Warn prints a yellow warning line
func (p *Printer) Warn(format string, args ...interface{}) {
	p.line(color.FgYellow, "!", format, args...)
}

func (p *Printer) line(attr color.Attribute, symbol, format string, args ...interface{}) {
	c := color.New(attr)
	if p.noColor {
		c.DisableColor()
	}
	c.Fprint(p.out, symbol+" ")
	fmt.Fprintf(p.out, format+"\n", args...)
}
