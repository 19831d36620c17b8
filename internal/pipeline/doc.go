// Package pipeline schedules the nodes of a scan range and runs each one
// through probe, analysis, filtering and output.
//
// A Scheduler supports two strategies:
//   - Sequential: nodes are processed in ascending order and the id of the
//     last finished node is checkpointed after every node
//   - Parallel: the range is split into contiguous shards, one goroutine per
//     shard, and completion is tracked in a per-node bitmap
//
// In the parallel strategy a single mutex guards the bitmap, the completion
// counter, the progress callback and the checkpoint write. Shards are
// disjoint, so a pending node is only ever processed by the goroutine that
// owns it.
//
// Both strategies check the context between nodes. A cancelled scan keeps
// its checkpoint and resumes from it on the next Run with the same range.
package pipeline
