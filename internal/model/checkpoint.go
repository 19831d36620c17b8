package model

import "github.com/bits-and-blooms/bitset"

// Checkpoint is persisted scan progress. It is either a
// *SequentialCheckpoint or a *BitmapCheckpoint.
type Checkpoint interface {
	// Strategy returns the strategy that produced the checkpoint.
	Strategy() Strategy

	// Matches reports whether the checkpoint belongs to a scan of r.
	Matches(r ScanRange) bool

	// Range returns the site and node range recorded in the checkpoint.
	Range() (site string, startNode, endNode int)

	isCheckpoint()
}

// SequentialCheckpoint records the last node a sequential scan finished.
type SequentialCheckpoint struct {
	Site              string
	StartNode         int
	EndNode           int
	LastCompletedNode int
}

// NewSequentialCheckpoint returns a checkpoint for r with no node completed.
func NewSequentialCheckpoint(r ScanRange) *SequentialCheckpoint {
	return &SequentialCheckpoint{
		Site:              r.Site,
		StartNode:         r.StartNode,
		EndNode:           r.EndNode,
		LastCompletedNode: r.StartNode - 1,
	}
}

// Strategy returns StrategySequential.
func (c *SequentialCheckpoint) Strategy() Strategy { return StrategySequential }

// Range returns the recorded site and node range.
func (c *SequentialCheckpoint) Range() (string, int, int) {
	return c.Site, c.StartNode, c.EndNode
}

// Matches reports whether the checkpoint was written for r.
func (c *SequentialCheckpoint) Matches(r ScanRange) bool {
	return r.Strategy == StrategySequential && c.Site == r.Site &&
		c.StartNode == r.StartNode && c.EndNode == r.EndNode
}

// NextNode returns the node the scan resumes at.
func (c *SequentialCheckpoint) NextNode() int {
	return c.LastCompletedNode + 1
}

func (c *SequentialCheckpoint) isCheckpoint() {}

// BitmapCheckpoint records per-node completion of a parallel scan.
// Bit i is set once node i has been processed. The bitmap covers
// [0, EndNode] so that node ids index it directly.
type BitmapCheckpoint struct {
	Site      string
	StartNode int
	EndNode   int

	// Completed is the completion counter persisted with the bitmap.
	Completed int

	// Bits holds one bit per node id.
	Bits *bitset.BitSet
}

// NewBitmapCheckpoint returns an all-clear bitmap checkpoint for r.
func NewBitmapCheckpoint(r ScanRange) *BitmapCheckpoint {
	return &BitmapCheckpoint{
		Site:      r.Site,
		StartNode: r.StartNode,
		EndNode:   r.EndNode,
		Bits:      bitset.New(uint(r.EndNode + 1)), //nolint:gosec // EndNode is validated non-negative
	}
}

// Strategy returns StrategyParallel.
func (c *BitmapCheckpoint) Strategy() Strategy { return StrategyParallel }

// Range returns the recorded site and node range.
func (c *BitmapCheckpoint) Range() (string, int, int) {
	return c.Site, c.StartNode, c.EndNode
}

// Matches reports whether the checkpoint was written for r.
func (c *BitmapCheckpoint) Matches(r ScanRange) bool {
	return r.Strategy == StrategyParallel && c.Site == r.Site &&
		c.StartNode == r.StartNode && c.EndNode == r.EndNode
}

// Size returns the number of bits in the bitmap, EndNode+1.
func (c *BitmapCheckpoint) Size() int {
	return c.EndNode + 1
}

// Pending reports whether node id has not been processed yet.
func (c *BitmapCheckpoint) Pending(id int) bool {
	return !c.Bits.Test(uint(id)) //nolint:gosec // node ids are non-negative
}

// MarkDone sets the bit of node id.
func (c *BitmapCheckpoint) MarkDone(id int) {
	c.Bits.Set(uint(id)) //nolint:gosec // node ids are non-negative
}

// DoneCount returns the number of processed nodes inside [StartNode, EndNode).
func (c *BitmapCheckpoint) DoneCount() int {
	count := 0
	for i, ok := c.Bits.NextSet(uint(c.StartNode)); ok && int(i) < c.EndNode; i, ok = c.Bits.NextSet(i + 1) { //nolint:gosec // bounded by EndNode
		count++
	}
	return count
}

// PendingNodes returns the unprocessed node ids inside [StartNode, EndNode) in ascending order.
func (c *BitmapCheckpoint) PendingNodes() []int {
	var pending []int
	for id := c.StartNode; id < c.EndNode; id++ {
		if c.Pending(id) {
			pending = append(pending, id)
		}
	}
	return pending
}

func (c *BitmapCheckpoint) isCheckpoint() {}
