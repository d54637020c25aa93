// Package progress reports render progress and coordinates cancellation.
//
// [Tracker] turns the compositor's source-time cursor into a percentage that never
// decreases and stays below 100 until [Tracker.Complete]. [Controller] holds the single
// cancellation flag of a run (a context) and a registry of release callbacks that run
// exactly once, whichever of success, abort or error ends the run.
package progress
