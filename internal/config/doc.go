// Package config defines the format-agnostic run configuration of a pipeline
// run and the Loader interface implemented by the HCL loader.
//
// A RunConfig is validated once by New and never changes afterwards; every
// stage of a run reads the same values.
package config
