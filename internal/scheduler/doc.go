// Package scheduler decides which nodes of the execution graph may run.
//
// A node is ready once every dependency is Completed. The scheduler streams
// ready nodes over a channel, releases dependents as nodes complete, skips
// the transitive dependents of failed nodes, and closes the channel once every
// node has reached a terminal state.
package scheduler
