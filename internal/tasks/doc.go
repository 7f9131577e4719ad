// Package tasks defines the task descriptors of every pipeline stage.
//
// Most tasks wrap an external tool through a launcher.Launcher; the mapping
// summary, novel region discovery and annotation merge are computed natively
// from BAM and GFF files. A task is complete when all of its outputs exist,
// which is what lets a rerun skip finished work.
package tasks
