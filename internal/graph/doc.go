// Package graph provides a facade over the execution graph that combines the
// static topology (topologystore) with the mutable node state (nodestore).
//
// The scheduler and executor only talk to Graph; neither knows that two
// stores sit underneath.
//
//	┌─────────────────────────────┐
//	│        Graph Facade         │
//	└──────────┬────────┬─────────┘
//	           ▼        ▼
//	   ┌──────────┐  ┌──────────┐
//	   │ Topology │  │  State   │
//	   └──────────┘  └──────────┘
package graph
