// Package launcher runs external bioinformatics tools. Executables are
// resolved on an explicit search path that is handed to each child through
// its own environment, so the parent process environment is never changed.
package launcher
