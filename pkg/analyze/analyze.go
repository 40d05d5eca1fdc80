// Package analyze composes the dump parser, the deadlock detector and the
// graph engine into the single entry point a presentation layer calls:
// dump text in, DOT text (or a parse failure) out.
package analyze

import (
	"github.com/jstackviz/jstackviz/pkg/deadlock"
	"github.com/jstackviz/jstackviz/pkg/dump"
	"github.com/jstackviz/jstackviz/pkg/graph"
)

// Default highlight colors for threads on a deadlock cycle.
const (
	DefaultHighlightFill = "red"
	DefaultHighlightFont = "white"
)

// AttrFunc maps a thread name to the ordered render attributes of its node.
// Returning nil leaves the node unstyled.
type AttrFunc func(thread string) []graph.Attr

// Analysis is a parsed report together with its cached deadlock elements.
// Both are computed once and never mutated afterwards, so an Analysis may be
// shared freely between readers.
type Analysis struct {
	Report   *dump.Report
	Elements []deadlock.Element
}

// Deadlocked reports whether the named thread participates in any cycle.
func (a *Analysis) Deadlocked(thread string) bool {
	for _, e := range a.Elements {
		if e.Blocked.Name == thread || e.Owner.Name == thread {
			return true
		}
	}
	return false
}

// Analyze parses the dump text and runs deadlock detection on the result.
// The returned error is always a *dump.ParseFailure; detection itself cannot
// fail.
func Analyze(text string) (*Analysis, error) {
	report, err := dump.Parse(text)
	if err != nil {
		return nil, err
	}
	return &Analysis{Report: report, Elements: deadlock.Detect(report)}, nil
}

// Highlight returns an AttrFunc that marks every thread appearing in elems
// with the given fill and font colors and leaves all other nodes unstyled.
func Highlight(elems []deadlock.Element, fill, font string) AttrFunc {
	hot := make(map[string]bool, len(elems))
	for _, e := range elems {
		hot[e.Blocked.Name] = true
		hot[e.Owner.Name] = true
	}
	return func(thread string) []graph.Attr {
		if !hot[thread] {
			return nil
		}
		return []graph.Attr{{Key: "fillcolor", Value: fill}, {Key: "fontcolor", Value: font}}
	}
}

// BuildGraph builds the blocked-on graph for an analysis.
//
// Threads with no lock relations at all never appear. When includeIsolated
// is false, only threads sitting on at least one blocked-on edge appear;
// when true, threads with lock relations but no edge are kept as well.
// Node order follows report order and edge order follows detection order,
// so output is deterministic. attrs may be nil.
func BuildGraph(a *Analysis, includeIsolated bool, attrs AttrFunc) *graph.Graph {
	edges := deadlock.Edges(a.Report)

	onEdge := make(map[*dump.Thread]bool, len(edges)*2)
	for _, e := range edges {
		onEdge[e.From] = true
		onEdge[e.To] = true
	}

	g := graph.New()
	for _, t := range a.Report.Threads {
		if !onEdge[t] && !(includeIsolated && t.HoldsLocks()) {
			continue
		}
		_ = g.AddNode(t.Name)
		if attrs != nil {
			g.SetAttrs(t.Name, attrs(t.Name))
		}
	}
	for _, e := range edges {
		_ = g.AddEdge(e.From.Name, e.To.Name, e.Lock.Label())
	}
	return g
}

// ProcessReport is the facade contract: it parses text, detects deadlocks,
// highlights cycle members with the default colors and returns the DOT
// serialization of the blocked-on graph. On a parse failure it returns the
// failure as its error; there is no partial output. It is pure and safe to
// call concurrently.
func ProcessReport(text string, includeIsolated bool) (string, error) {
	a, err := Analyze(text)
	if err != nil {
		return "", err
	}
	attrs := Highlight(a.Elements, DefaultHighlightFill, DefaultHighlightFont)
	return BuildGraph(a, includeIsolated, attrs).DOT(), nil
}
