// Package graph provides a small sparse directed-graph container with
// labeled edges, ordered per-node render attributes, and deterministic DOT
// serialization. It is a disposable view: built fresh from a parsed report
// for each render and discarded afterwards.
package graph
