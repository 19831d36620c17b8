package progress

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/nodescan/internal/model"
)

const (
	// TextFileName is the file holding the checkpoint record.
	TextFileName = "progress.txt"

	// BitmapFileName is the file holding the parallel completion bitmap.
	BitmapFileName = "progress.bin"
)

// FileStore stores checkpoints in a directory.
// At most one checkpoint exists at a time.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a store rooted at dir. The directory is created on
// the first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) textPath() string   { return filepath.Join(s.dir, TextFileName) }
func (s *FileStore) bitmapPath() string { return filepath.Join(s.dir, BitmapFileName) }

// Load returns the persisted checkpoint, or nil if none exists.
func (s *FileStore) Load() (model.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.textPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read checkpoint: %w", err)
		}
		if _, statErr := os.Stat(s.bitmapPath()); statErr == nil {
			return nil, fmt.Errorf("%w: %s exists without %s", ErrMalformedCheckpoint, BitmapFileName, TextFileName)
		}
		return nil, nil
	}

	rec, err := parseRecord(string(data))
	if err != nil {
		return nil, err
	}

	if rec.strategy == model.StrategySequential {
		if rec.cursor < rec.startNode-1 || rec.cursor >= rec.endNode {
			return nil, fmt.Errorf("%w: last completed node %d outside [%d, %d)",
				ErrMalformedCheckpoint, rec.cursor, rec.startNode, rec.endNode)
		}
		return &model.SequentialCheckpoint{
			Site:              rec.site,
			StartNode:         rec.startNode,
			EndNode:           rec.endNode,
			LastCompletedNode: rec.cursor,
		}, nil
	}

	raw, err := os.ReadFile(s.bitmapPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: parallel checkpoint without %s", ErrMalformedCheckpoint, BitmapFileName)
		}
		return nil, fmt.Errorf("failed to read bitmap: %w", err)
	}
	bits, err := decodeBits(raw, rec.endNode+1)
	if err != nil {
		return nil, err
	}
	return &model.BitmapCheckpoint{
		Site:      rec.site,
		StartNode: rec.startNode,
		EndNode:   rec.endNode,
		Completed: rec.cursor,
		Bits:      bits,
	}, nil
}

// Save atomically replaces the persisted checkpoint with cp.
func (s *FileStore) Save(cp model.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	switch c := cp.(type) {
	case *model.SequentialCheckpoint:
		rec := record{
			strategy:  model.StrategySequential,
			site:      c.Site,
			startNode: c.StartNode,
			endNode:   c.EndNode,
			cursor:    c.LastCompletedNode,
		}
		if err := writeFileAtomic(s.textPath(), []byte(rec.String())); err != nil {
			return err
		}
		return removeIfExists(s.bitmapPath())

	case *model.BitmapCheckpoint:
		if err := writeFileAtomic(s.bitmapPath(), encodeBits(c.Bits, c.Size())); err != nil {
			return err
		}
		rec := record{
			strategy:  model.StrategyParallel,
			site:      c.Site,
			startNode: c.StartNode,
			endNode:   c.EndNode,
			cursor:    c.Completed,
		}
		return writeFileAtomic(s.textPath(), []byte(rec.String()))

	default:
		return fmt.Errorf("unsupported checkpoint type %T", cp)
	}
}

// Clear removes any persisted checkpoint. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := removeIfExists(s.bitmapPath()); err != nil {
		return err
	}
	return removeIfExists(s.textPath())
}

// writeFileAtomic writes data to a temporary file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
