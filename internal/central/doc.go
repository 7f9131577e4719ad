// Package central implements the central scheduler used in distributed mode.
//
// Several rnaflow processes pointed at the same working directory and the same
// central scheduler cooperate on one build: before running a task a worker
// claims it; the scheduler grants each task to one worker at a time and tells
// later claimants when it is done. The transport is socket.io.
//
// Events (client → server): `claim`, `done`, `failed`, each carrying
// {"task": id, "worker": id}. The server answers `claim` with `claim_result`
// {"task", "granted", "state", "owner"}.
package central
