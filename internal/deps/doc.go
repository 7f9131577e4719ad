// Package deps verifies that the external tools and R packages a run needs
// are installed before any stage starts.
package deps
