// Package action implements the rule-based transformation scheduler that
// drives simplification of a lifted function toward a fixed point.
//
// This package contains:
//   - The resumable Action state machine (Group, RestartGroup, Pool, Task)
//   - Per-opcode Rule dispatch with breakpoint-aware cursors
//   - The clone/derivation protocol that filters the universal tree
//     into named pipelines by group selector
//   - The pipeline Registry with dotted name-path configuration
package action
