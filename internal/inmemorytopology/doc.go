// Package inmemorytopology provides a thread-safe, in-memory implementation of
// topologystore.Store. One store lives for the duration of a single build.
package inmemorytopology
