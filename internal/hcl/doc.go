// Package hcl implements config.Loader for HCL run files.
//
// Run files may reference the process environment as env.NAME, and relative
// paths are resolved against the directory holding the run file.
package hcl
