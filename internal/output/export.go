// # internal/output/export.go
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/resolver"

	"gopkg.in/yaml.v3"
)

// Document is the serializable form of a frozen call graph.
type Document struct {
	Root        string           `json:"root,omitempty" yaml:"root,omitempty"`
	Fingerprint string           `json:"fingerprint" yaml:"fingerprint"`
	Nodes       []Node           `json:"nodes" yaml:"nodes"`
	Edges       []Edge           `json:"edges" yaml:"edges"`
	Resolution  *ResolutionStats `json:"resolution,omitempty" yaml:"resolution,omitempty"`
}

type Node struct {
	ID         string `json:"id" yaml:"id"`
	File       string `json:"file" yaml:"file"`
	Path       string `json:"path" yaml:"path"`
	Kind       string `json:"kind" yaml:"kind"`
	Visibility string `json:"visibility" yaml:"visibility"`
	Line       int    `json:"line" yaml:"line"`
	Trait      string `json:"trait,omitempty" yaml:"trait,omitempty"`
	EntryPoint bool   `json:"entry_point,omitempty" yaml:"entry_point,omitempty"`
	Test       bool   `json:"test,omitempty" yaml:"test,omitempty"`
	FanIn      int    `json:"fan_in" yaml:"fan_in"`
	FanOut     int    `json:"fan_out" yaml:"fan_out"`
}

type Edge struct {
	Caller      string `json:"caller" yaml:"caller"`
	Callee      string `json:"callee" yaml:"callee"`
	Count       int    `json:"count" yaml:"count"`
	Approximate bool   `json:"approximate,omitempty" yaml:"approximate,omitempty"`
}

type ResolutionStats struct {
	Calls       int            `json:"calls" yaml:"calls"`
	Resolved    int            `json:"resolved" yaml:"resolved"`
	Deferred    int            `json:"deferred" yaml:"deferred"`
	Dropped     int            `json:"dropped" yaml:"dropped"`
	SuccessRate float64        `json:"success_rate" yaml:"success_rate"`
	Hits        map[string]int `json:"hits" yaml:"hits"`
	DropReasons map[string]int `json:"drop_reasons,omitempty" yaml:"drop_reasons,omitempty"`
}

// NewDocument flattens g in node and edge order. stats may be nil.
func NewDocument(root string, g *callgraph.Graph, stats *resolver.Stats) Document {
	doc := Document{
		Root:        root,
		Fingerprint: fmt.Sprintf("%016x", g.Fingerprint()),
		Nodes:       make([]Node, 0, g.NodeCount()),
		Edges:       make([]Edge, 0, g.EdgeCount()),
	}
	for _, id := range g.Nodes() {
		def, _ := g.Definition(id)
		doc.Nodes = append(doc.Nodes, Node{
			ID:         id.String(),
			File:       id.File,
			Path:       id.Path,
			Kind:       string(def.Kind),
			Visibility: string(def.Visibility),
			Line:       def.Location.Line,
			Trait:      def.Trait,
			EntryPoint: def.IsEntryPoint,
			Test:       def.IsTest,
			FanIn:      g.FanIn(id),
			FanOut:     g.FanOut(id),
		})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, Edge{
			Caller:      e.Caller.String(),
			Callee:      e.Callee.String(),
			Count:       e.Count,
			Approximate: e.Approximate,
		})
	}
	if stats != nil {
		rs := &ResolutionStats{
			Calls:       stats.Calls,
			Resolved:    stats.Resolved(),
			Deferred:    stats.Deferred,
			Dropped:     stats.DroppedTotal(),
			SuccessRate: stats.SuccessRate(),
			Hits:        make(map[string]int, len(resolver.Strategies)),
		}
		for _, s := range resolver.Strategies {
			rs.Hits[string(s)] = stats.Hits[s]
		}
		for _, r := range stats.Reasons() {
			if rs.DropReasons == nil {
				rs.DropReasons = make(map[string]int)
			}
			rs.DropReasons[string(r)] = stats.Dropped[r]
		}
		doc.Resolution = rs
	}
	return doc
}

func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
