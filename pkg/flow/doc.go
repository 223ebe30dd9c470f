// Package flow provides a minimal public façade over the flow editor core for
// callers outside this module. It re-exports the graph types, the undo/redo
// history manager and the flow extractor, and exposes an Editor that runs
// sessions with in-memory checkpoints.
package flow
