// Package pipeline drives a run stage by stage. Each stage builds its task
// descriptors and submits them to the engine, blocking until the engine
// reports completion or failure.
//
// The stages a run may use, and the order they must follow, come from a Plan
// derived from the run configuration. A stage whose prerequisites have not
// completed is rejected before anything is submitted.
package pipeline
