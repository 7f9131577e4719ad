// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of nodestore.Store used by local and remote sessions alike;
// the state of a build never outlives the process. Completion across runs is
// tracked by task outputs on disk, not by this store.
package inmemorystore
