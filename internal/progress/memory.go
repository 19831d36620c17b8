package progress

import (
	"sync"

	"github.com/nao1215/nodescan/internal/model"
)

// MemoryStore keeps the checkpoint in memory. Single node checks use it so
// they never disturb the checkpoint of a paused range scan.
type MemoryStore struct {
	mu sync.Mutex
	cp model.Checkpoint
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored checkpoint, or nil.
func (s *MemoryStore) Load() (model.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCheckpoint(s.cp), nil
}

// Save replaces the stored checkpoint with a copy of cp.
func (s *MemoryStore) Save(cp model.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cp = cloneCheckpoint(cp)
	return nil
}

// Clear drops the stored checkpoint.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cp = nil
	return nil
}

func cloneCheckpoint(cp model.Checkpoint) model.Checkpoint {
	switch c := cp.(type) {
	case *model.SequentialCheckpoint:
		clone := *c
		return &clone
	case *model.BitmapCheckpoint:
		clone := *c
		clone.Bits = c.Bits.Clone()
		return &clone
	default:
		return nil
	}
}
