package report

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/nao1215/nodescan/internal/model"
)

// csvRow is one issue of a recorded run.
type csvRow struct {
	RunID   int64  `csv:"run_id"`
	NodeID  int    `csv:"node_id"`
	BaseURL string `csv:"base_url"`
	Kind    string `csv:"kind"`
	URL     string `csv:"url"`
}

// CSVWriter exports one row per issue.
type CSVWriter struct {
	output io.Writer
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{output: output}
}

// WriteRun writes the issues of run as CSV with a header row.
// Nodes without issues produce no rows.
func (w *CSVWriter) WriteRun(run *model.ScanRun) error {
	rows := make([]*csvRow, 0)
	for _, o := range run.Outcomes {
		for _, issue := range o.Issues {
			rows = append(rows, &csvRow{
				RunID:   run.ID,
				NodeID:  o.NodeID,
				BaseURL: o.BaseURL,
				Kind:    issue.Kind.String(),
				URL:     issue.URL,
			})
		}
	}
	if len(rows) == 0 {
		// Keep the header so empty exports still parse.
		_, err := io.WriteString(w.output, "run_id,node_id,base_url,kind,url\n")
		return err
	}
	return gocsv.Marshal(rows, w.output)
}
