// Package progress persists scan checkpoints so that an interrupted scan
// resumes where it stopped.
//
// A sequential scan is stored as a single text record in progress.txt:
//
//	speedFlag,site,startNode,endNode,lastCompletedNode
//
// A parallel scan stores the same record, with the completion counter in the
// last field, plus progress.bin: one bit per node id, most significant bit
// first, ⌈(endNode+1)/8⌉ bytes in total.
//
// Every save replaces the files atomically, so a crash leaves either the old
// or the new checkpoint on disk, never a torn one.
package progress
