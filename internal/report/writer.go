package report

import "github.com/nao1215/nodescan/internal/model"

// Writer exports a recorded scan run.
type Writer interface {
	// WriteRun writes run and its outcomes to the configured destination.
	WriteRun(run *model.ScanRun) error
}

// MultiWriter writes a run to several Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteRun writes run to every writer and stops at the first error.
func (m *MultiWriter) WriteRun(run *model.ScanRun) error {
	for _, w := range m.writers {
		if err := w.WriteRun(run); err != nil {
			return err
		}
	}
	return nil
}
