// Package production provides integrations around a running machine: transition
// publishing, record logs and visualization.
package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/vertexfsm"
)

const wildcardNode = "*"

// Edge represents a transition edge.
type Edge struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Event string `json:"event" yaml:"event"`
	// Stay marks a transition without a declared target.
	Stay bool `json:"stay,omitempty" yaml:"stay,omitempty"`
	Task bool `json:"task,omitempty" yaml:"task,omitempty"`
}

// Node is one state of a Graph.
type Node struct {
	ID      string `json:"id" yaml:"id"`
	Active  bool   `json:"active,omitempty" yaml:"active,omitempty"`
	Arrival bool   `json:"arrival,omitempty" yaml:"arrival,omitempty"`
	Exit    bool   `json:"exit,omitempty" yaml:"exit,omitempty"`
}

// Graph is a serializable view of a definition. Wildcard edges use "*" as their
// source.
type Graph struct {
	Initial string `json:"initial" yaml:"initial"`
	Nodes   []Node `json:"nodes" yaml:"nodes"`
	Edges   []Edge `json:"edges" yaml:"edges"`
}

// NewGraph builds the graph of def, marking the given states active.
func NewGraph[S comparable, X any, E vertexfsm.Event](def *vertexfsm.Definition[S, X, E], active []S) Graph {
	on := make(map[S]bool, len(active))
	for _, s := range active {
		on[s] = true
	}
	g := Graph{Initial: fmt.Sprint(def.StartingState())}
	for _, s := range def.States() {
		v, _ := def.Vertex(s)
		g.Nodes = append(g.Nodes, Node{
			ID:      fmt.Sprint(s),
			Active:  on[s],
			Arrival: v.HasArrival(),
			Exit:    v.HasExit(),
		})
		g.Edges = append(g.Edges, edgesOf(v, fmt.Sprint(s))...)
	}
	g.Edges = append(g.Edges, edgesOf(def.Wildcard(), wildcardNode)...)
	return g
}

func edgesOf[S comparable, X any, E vertexfsm.Event](v *vertexfsm.Vertex[S, X, E], from string) []Edge {
	var edges []Edge
	for _, et := range v.EventTypes() {
		t, _ := v.Transition(et)
		e := Edge{From: from, Event: string(et), Task: t.HasTask()}
		if next, ok := t.Next(); ok {
			e.To = fmt.Sprint(next)
		} else {
			e.To, e.Stay = from, true
		}
		edges = append(edges, e)
	}
	return edges
}

// ExportDOT generates Graphviz DOT source for def, highlighting active states.
func ExportDOT[S comparable, X any, E vertexfsm.Event](def *vertexfsm.Definition[S, X, E], active []S) string {
	g := NewGraph(def, active)

	var buf bytes.Buffer
	buf.WriteString(`digraph StateMachine {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)
	fmt.Fprintf(&buf, "  __start [shape=point];\n  __start -> %q;\n", g.Initial)
	for _, n := range g.Nodes {
		style := ""
		if n.Active {
			style = ` style="rounded,filled" fillcolor=lightgreen`
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", n.ID, n.ID, style)
	}

	hasWildcard := false
	for _, e := range g.Edges {
		attrs := fmt.Sprintf("label=%q", e.Event)
		if e.From == wildcardNode {
			hasWildcard = true
			attrs += " style=dashed"
		}
		if e.Stay {
			attrs += " arrowhead=odot"
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, attrs)
	}
	if hasWildcard {
		fmt.Fprintf(&buf, "  %q [shape=diamond label=\"any state\"];\n", wildcardNode)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the graph of def to indented JSON.
func ExportJSON[S comparable, X any, E vertexfsm.Event](def *vertexfsm.Definition[S, X, E], active []S) ([]byte, error) {
	return json.MarshalIndent(NewGraph(def, active), "", "  ")
}

// ExportYAML serializes the graph of def to YAML.
func ExportYAML[S comparable, X any, E vertexfsm.Event](def *vertexfsm.Definition[S, X, E], active []S) ([]byte, error) {
	return yaml.Marshal(NewGraph(def, active))
}
