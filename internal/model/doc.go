// Package model defines the core data structures shared by the nodescan
// packages.
//
// This package contains the following main types:
//   - ScanRange: The immutable description of one scan (site, node range, mode, strategy)
//   - Checkpoint: Persisted scan progress, either SequentialCheckpoint or BitmapCheckpoint
//   - Issue and NodeOutcome: What the analysis found on a single node page
//   - FilterMode and Strategy: Which findings are reported and how nodes are scheduled
//
// Keeping these types in their own package lets the scheduler, the progress
// store, the report sink and the history database share them without import
// cycles.
package model
