/*
Package builder turns a list of root tasks into a populated, validated
topology.

Construction runs in three phases:

 1. Discovery: starting from the roots, Requires() is walked depth-first and
    every task reachable becomes a node. Tasks are deduplicated by ID, so two
    stages that require the same index task share one node.

 2. Linking: one edge is added per requirement.

 3. Initialization: each node's dependency counter is set from its edges.

A requirement chain that returns to a task already on the current path is
rejected as a cycle.
*/
package builder
