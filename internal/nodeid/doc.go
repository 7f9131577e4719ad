/*
Package nodeid provides the structured identifier used for every task in the
execution graph.

An identifier is a dot-separated path of segments such as `map_star.migun`.
Stage tasks are addressed as `<stage>.<sample>` and whole-run tasks as a
single `<stage>` segment. Feature-type variants append one more segment, as in
`feature_counts.updated.gene`.
*/
package nodeid
