package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/nodescan/internal/model"
	"github.com/nao1215/nodescan/internal/pipeline"
)

// console prints scan events. The scheduler serializes observer calls.
type console struct {
	out         io.Writer
	lastPercent int
}

// newConsoleObserver returns an observer printing to out.
func newConsoleObserver(out io.Writer) pipeline.Observer {
	c := &console{out: out, lastPercent: -1}
	return pipeline.Observer{
		OnProgress: c.progress,
		OnLog:      c.log,
		OnOutcome:  c.outcome,
	}
}

// progress prints a line each time the completed percentage changes.
func (c *console) progress(completed, total int) {
	if total <= 0 {
		return
	}
	percent := completed * 100 / total
	if percent == c.lastPercent {
		return
	}
	c.lastPercent = percent
	fmt.Fprintf(c.out, "Progress: %d/%d (%d%%)\n", completed, total, percent)
}

func (c *console) log(line string) {
	fmt.Fprintln(c.out, line)
}

// outcome prints the findings of a node in mode all.
func (c *console) outcome(o model.NodeOutcome) {
	fmt.Fprintf(c.out, "%s\n", o.BaseURL)
	fmt.Fprintf(c.out, "  Accessibility Problems: %s\n", formatList(o.Accessibility()))
	fmt.Fprintf(c.out, "  Broken URLs: %s\n", formatList(o.Broken()))
}

func formatList(urls []string) string {
	if len(urls) == 0 {
		return "none"
	}
	return strings.Join(urls, ", ")
}
