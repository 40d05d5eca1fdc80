// Package deadlock derives the blocked-on graph from a parsed dump and finds
// the threads trapped in a cycle of monitor waits.
package deadlock

import "github.com/jstackviz/jstackviz/pkg/dump"

// Element is one blocked-on edge that lies on a deadlock cycle: Blocked is
// stuck acquiring Lock, which Owner currently holds.
type Element struct {
	Blocked *dump.Thread
	Lock    dump.LockID
	Owner   *dump.Thread
}

// Edge is one blocked-on relation: From awaits Lock, which To holds.
// Edges exist only for acquire-waits with a resolvable owner; notify-waits
// release the monitor and never block.
type Edge struct {
	From *dump.Thread
	Lock dump.LockID
	To   *dump.Thread
}

// Edges builds the blocked-on edge set for the report, in deterministic
// order: threads in report order, waits in order of appearance.
func Edges(r *dump.Report) []Edge {
	var edges []Edge
	for _, t := range r.Threads {
		for _, w := range t.Waits {
			if w.Kind != dump.WaitAcquire {
				continue
			}
			owner := r.Holder(w.Lock.Addr)
			if owner == nil || owner == t {
				continue
			}
			edges = append(edges, Edge{From: t, Lock: w.Lock, To: owner})
		}
	}
	return edges
}

// Detect computes the deadlock elements for the report: every blocked-on edge
// whose endpoints belong to the same strongly connected component of size two
// or more. It runs Tarjan's algorithm over the blocked-on graph, so the cost
// is linear in threads plus edges, and the traversal order is fixed by report
// order, making the result stable for identical input. A report with no
// cycles yields nil.
func Detect(r *dump.Report) []Element {
	edges := Edges(r)
	if len(edges) == 0 {
		return nil
	}

	index := make(map[*dump.Thread]int, len(r.Threads))
	for i, t := range r.Threads {
		index[t] = i
	}
	adj := make([][]int, len(r.Threads))
	for _, e := range edges {
		from := index[e.From]
		adj[from] = append(adj[from], index[e.To])
	}

	comp := components(adj)

	size := make(map[int]int)
	for _, c := range comp {
		size[c]++
	}

	var elems []Element
	for _, e := range edges {
		from, to := comp[index[e.From]], comp[index[e.To]]
		if from == to && size[from] >= 2 {
			elems = append(elems, Element{Blocked: e.From, Lock: e.Lock, Owner: e.To})
		}
	}
	return elems
}

// Deadlocked returns the set of threads that appear in any element, keyed by
// thread. The facade uses this to decide which nodes to highlight.
func Deadlocked(elems []Element) map[*dump.Thread]bool {
	set := make(map[*dump.Thread]bool, len(elems))
	for _, e := range elems {
		set[e.Blocked] = true
		set[e.Owner] = true
	}
	return set
}

// components assigns a strongly-connected-component id to every node using
// Tarjan's algorithm with an explicit stack. Nodes are visited in index
// order, so component ids are deterministic.
func components(adj [][]int) []int {
	n := len(adj)
	const unvisited = -1

	comp := make([]int, n)
	low := make([]int, n)
	num := make([]int, n)
	onStack := make([]bool, n)
	for i := range num {
		num[i] = unvisited
		comp[i] = unvisited
	}

	var (
		stack   []int
		counter int
		ncomp   int
	)

	var strongconnect func(v int)
	strongconnect = func(v int) {
		num[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if num[w] == unvisited {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && num[w] < low[v] {
				low[v] = num[w]
			}
		}

		if low[v] == num[v] {
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp[w] = ncomp
				if w == v {
					break
				}
			}
			ncomp++
		}
	}

	for v := 0; v < n; v++ {
		if num[v] == unvisited {
			strongconnect(v)
		}
	}
	return comp
}
