package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// nodeIDPattern extracts the node id of a block from its first /node/<id>/ segment.
var nodeIDPattern = regexp.MustCompile(`/node/(\d+)/`)

// FileSink appends report blocks to a per-day text file.
// It is safe for concurrent use.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// FileName returns the report file name for prefix on the day of started.
func FileName(prefix string, started time.Time) string {
	return prefix + "result_" + started.Format("20060102") + ".txt"
}

// NewFileSink creates a sink writing to dir/FileName(prefix, started).
// The file is created on the first append.
func NewFileSink(dir, prefix string, started time.Time) *FileSink {
	return &FileSink{path: filepath.Join(dir, FileName(prefix, started))}
}

// Path returns the report file path.
func (s *FileSink) Path() string {
	return s.path
}

// Append appends block to the report. Existing content is never truncated.
func (s *FileSink) Append(block Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // report path is built from configuration
	if err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}
	if _, err := f.WriteString(block.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to report: %w", err)
	}
	return f.Close()
}

// SortByNode rewrites the report with its blocks in ascending node id order.
// Blocks without a node id keep their relative order after all others.
// A missing report is not an error.
func (s *FileSink) SortByNode() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read report: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil
	}
	blocks := strings.Split(content, "\n\n")
	slices.SortStableFunc(blocks, func(a, b string) int {
		return compareNodeIDs(blockNodeID(a), blockNodeID(b))
	})

	sorted := strings.Join(blocks, "\n\n") + "\n\n"
	tmp := s.path + ".sorting"
	if err := os.WriteFile(tmp, []byte(sorted), 0o600); err != nil {
		return fmt.Errorf("failed to write sorted report: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace report: %w", err)
	}
	return nil
}

// blockNodeID returns the node id of a block, or -1 when it has none.
func blockNodeID(block string) int {
	m := nodeIDPattern.FindStringSubmatch(block)
	if m == nil {
		return -1
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return id
}

func compareNodeIDs(a, b int) int {
	switch {
	case a == b:
		return 0
	case a < 0:
		return 1
	case b < 0:
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}
