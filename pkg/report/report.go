// Package report renders lowered forests for people and tools: a text
// listing of blocks and def-use paths, Graphviz DOT, JSON and msgpack.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-cflow/pkg/cfg"
)

// Options controls the text report.
type Options struct {
	ShowCode bool   // Print each block's code lines
	Var      string // Restrict def-use paths to one variable; empty prints all
}

// Document is the machine-readable report of one source file.
type Document struct {
	File   string       `json:"file" msgpack:"file"`
	Units  []UnitReport `json:"units" msgpack:"units"`
	Failed int          `json:"failed" msgpack:"failed"`
}

// UnitReport adds derived facts to a unit.
type UnitReport struct {
	Unit       *cfg.Unit  `json:"unit" msgpack:"unit"`
	Edges      []cfg.Edge `json:"edges" msgpack:"edges"`
	Complexity int        `json:"complexity" msgpack:"complexity"`
}

// NewDocument builds the machine-readable report of a forest.
func NewDocument(file string, forest *cfg.Forest) *Document {
	doc := &Document{File: file, Units: make([]UnitReport, 0, len(forest.Units))}
	for _, u := range forest.Units {
		ur := UnitReport{Unit: u, Edges: []cfg.Edge{}}
		if u.OK() {
			ur.Edges = u.Edges()
			ur.Complexity = u.CyclomaticComplexity()
		} else {
			doc.Failed++
		}
		doc.Units = append(doc.Units, ur)
	}
	return doc
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding JSON report: %w", err)
	}
	return nil
}

// WriteMsgpack writes the document in msgpack encoding.
func WriteMsgpack(w io.Writer, doc *Document) error {
	if err := msgpack.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encoding msgpack report: %w", err)
	}
	return nil
}

// ReadMsgpack decodes a document written by WriteMsgpack.
func ReadMsgpack(r io.Reader) (*Document, error) {
	var doc Document
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding msgpack report: %w", err)
	}
	return &doc, nil
}

// WriteText lists every unit with its blocks followed by the def-use path of
// each variable, one `name:<tab><tab>path` line per variable.
func WriteText(w io.Writer, forest *cfg.Forest, opts Options) error {
	bw := bufio.NewWriter(w)
	for i, u := range forest.Units {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintln(bw, header(u))
		if !u.OK() {
			fmt.Fprintf(bw, "error: %s\n", u.Error)
			continue
		}
		for _, b := range u.Blocks {
			writeBlock(bw, b, opts.ShowCode)
		}
		if u.Kind == cfg.UnitFunction {
			fmt.Fprintf(bw, "complexity: %d\n", u.CyclomaticComplexity())
		}
		fmt.Fprintln(bw, "du-paths:")
		writePaths(bw, u, opts.Var)
	}
	return bw.Flush()
}

// WritePaths prints only the def-use paths, grouped by unit.
func WritePaths(w io.Writer, forest *cfg.Forest, variable string) error {
	bw := bufio.NewWriter(w)
	for i, u := range forest.Units {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintln(bw, header(u))
		if !u.OK() {
			fmt.Fprintf(bw, "error: %s\n", u.Error)
			continue
		}
		writePaths(bw, u, variable)
	}
	return bw.Flush()
}

func header(u *cfg.Unit) string {
	if u.Name != "" {
		return fmt.Sprintf("=== %s %s (line %d) ===", u.Kind, u.Name, u.Line)
	}
	return fmt.Sprintf("=== %s (line %d) ===", u.Kind, u.Line)
}

func writeBlock(w io.Writer, b *cfg.Block, showCode bool) {
	fmt.Fprintf(w, "[%d] %s", b.ID, b.Type)
	if len(b.Succs) > 0 {
		succs := make([]string, len(b.Succs))
		for i, s := range b.Succs {
			succs[i] = fmt.Sprint(s)
		}
		fmt.Fprintf(w, " -> %s", strings.Join(succs, ", "))
	}
	fmt.Fprintln(w)
	if showCode {
		for _, line := range b.Code {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	fmt.Fprintf(w, "    d: %s\n    u: %s\n", names(b.Defs), names(b.Uses))
}

func writePaths(w io.Writer, u *cfg.Unit, variable string) {
	for _, v := range u.Paths.Vars() {
		if variable != "" && v != variable {
			continue
		}
		fmt.Fprintf(w, "%s:\t\t%s\n", v, u.Paths[v])
	}
}

func names(list []string) string {
	if len(list) == 0 {
		return "None"
	}
	return strings.Join(list, ", ")
}
