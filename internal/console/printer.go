// Package console renders the human-readable lines the cleaner emits.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Printer writes one line per deletion attempt. The path is highlighted when
// colour is enabled.
type Printer struct {
	out  io.Writer
	path *color.Color
}

// NewPrinter creates a printer writing to out. Colour is used only when out is
// a terminal and noColor is false.
func NewPrinter(out io.Writer, noColor bool) *Printer {
	p := &Printer{
		out:  out,
		path: color.New(color.FgRed),
	}
	if noColor || !isTerminal(out) {
		p.path.DisableColor()
	} else {
		p.path.EnableColor()
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Deleted reports a performed deletion
func (p *Printer) Deleted(path string) {
	fmt.Fprintf(p.out, "[Delete] %s has been deleted\n", p.path.Sprint(path))
}

// DryRun reports a deletion that a real run would perform
func (p *Printer) DryRun(path string) {
	fmt.Fprintf(p.out, "[Dry Run] %s will been deleted without '--dry-run'\n", p.path.Sprint(path))
}

// Start announces the root a run is cleaning
func (p *Printer) Start(root string) {
	fmt.Fprintf(p.out, "Starts to clean directories and files from %s\n\n", root)
}
