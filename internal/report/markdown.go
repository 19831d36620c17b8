package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/nodescan/internal/model"
)

// MarkdownWriter exports a recorded run as GitHub Flavored Markdown.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// WriteRun writes the run summary followed by one section per node with issues.
func (w *MarkdownWriter) WriteRun(run *model.ScanRun) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSummary(md, run)
	w.writeNodes(md, run)
	w.writeFooter(md)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.ScanRun) {
	md.H1("nodescan Report")
	md.PlainText("")

	finished := "-"
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Format("2006-01-02 15:04:05 MST")
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + run.Site + "`"},
			{"Node Range", itoa(run.StartNode) + " - " + itoa(run.EndNode-1)},
			{"Mode", run.Mode.String()},
			{"Strategy", run.Strategy.String()},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Finished", finished},
			{"Status", string(run.Status)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, run *model.ScanRun) {
	missingAlt, emptyText, broken := 0, 0, 0
	for _, o := range run.Outcomes {
		for _, issue := range o.Issues {
			switch issue.Kind {
			case model.IssueMissingAltText:
				missingAlt++
			case model.IssueEmptyLinkText:
				emptyText++
			case model.IssueBroken:
				broken++
			}
		}
	}

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Issue", "Count"},
		Rows: [][]string{
			{"Missing alt text", itoa(missingAlt)},
			{"Empty link text", itoa(emptyText)},
			{"Broken links", itoa(broken)},
			{"Nodes recorded", itoa(len(run.Outcomes))},
		},
	})
	md.PlainText("")

	total := missingAlt + emptyText + broken
	if total == 0 {
		md.Tip("No accessibility problems or broken links recorded.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Issue Distribution"),
		piechart.WithShowData(true),
	)
	for _, slice := range []struct {
		label string
		count int
	}{
		{"Missing alt text", missingAlt},
		{"Empty link text", emptyText},
		{"Broken links", broken},
	} {
		if slice.count > 0 {
			chart.LabelAndIntValue(slice.label, uint64(slice.count)) //nolint:gosec // counts are non-negative
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	if broken > 0 {
		md.Warningf("%d broken link(s) found.", broken)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeNodes(md *markdown.Markdown, run *model.ScanRun) {
	md.H2("Nodes")
	md.PlainText("")

	written := 0
	for _, o := range run.Outcomes {
		if len(o.Issues) == 0 {
			continue
		}
		written++
		md.H3("Node " + itoa(o.NodeID))
		md.PlainText("")
		md.PlainText(o.BaseURL)
		md.PlainText("")

		rows := make([][]string, 0, len(o.Issues))
		for _, issue := range o.Issues {
			rows = append(rows, []string{issue.Kind.String(), issue.URL})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Issue", "URL"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if written == 0 {
		md.PlainText("No nodes with issues.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [nodescan](https://github.com/nao1215/nodescan)*")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
