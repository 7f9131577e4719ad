// Package app wires the loaded run configuration to the pipeline driver and
// runs one command: a pipeline run, a dependency check or the central
// scheduler.
package app
