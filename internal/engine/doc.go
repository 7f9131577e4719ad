// Package engine builds a set of tasks: it picks the session backend for the
// configured scheduler mode, runs the executor and closes the session.
package engine
