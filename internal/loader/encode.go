package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/kolah/sdkprep/internal/model"
	"github.com/moby/sys/atomicwriter"
	"go.yaml.in/yaml/v4"
)

// DefaultEmptyArrayKeys names nodes that must stay empty arrays.
var DefaultEmptyArrayKeys = []string{"security"}

type SaveOptions struct {
	// EmptyArrayKeys is matched against the last path segment of empty
	// collections; matches are written as [] rather than {}.
	EmptyArrayKeys []string
	// Indent is the number of spaces per level. Zero means 4.
	Indent int
}

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Materialize settles every structurally empty collection before encoding.
// Empty mappings stay objects; empty collections whose key is listed in
// emptyArrayKeys become arrays. It returns the number of nodes converted.
func Materialize(root *yaml.Node, emptyArrayKeys []string) int {
	converted := 0
	model.Walk(root, func(path []string, n *yaml.Node) bool {
		if !model.IsEmpty(n) {
			return true
		}
		if slices.Contains(emptyArrayKeys, model.LastSegment(path)) {
			if n.Kind != yaml.SequenceNode {
				n.Kind = yaml.SequenceNode
				n.Tag = "!!seq"
				converted++
			}
			return false
		}
		if n.Kind == yaml.MappingNode {
			n.Tag = "!!map"
		}
		return false
	})
	return converted
}

// Marshal materializes empty collections and encodes doc as indented JSON.
func Marshal(doc *model.Document, opts SaveOptions) ([]byte, error) {
	Materialize(doc.Root, opts.EmptyArrayKeys)

	var buf bytes.Buffer
	if err := Encode(&buf, doc.Root, opts.Indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes doc to path atomically, so a failed write leaves no partial output.
func Save(doc *model.Document, path string, opts SaveOptions) error {
	data, err := Marshal(doc, opts)
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

func WriteFile(path string, data []byte) error {
	if err := atomicwriter.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", cerrdefs.ErrUnavailable, path, err)
	}
	return nil
}

// Encode writes n as JSON, keeping mapping order, without escaping slashes
// or HTML characters.
func Encode(w io.Writer, n *yaml.Node, indent int) error {
	if indent <= 0 {
		indent = 4
	}
	e := &encoder{w: bufio.NewWriter(w), indent: strings.Repeat(" ", indent)}
	e.node(n, 0)
	e.write("\n")
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

type encoder struct {
	w      *bufio.Writer
	indent string
	err    error
}

func (e *encoder) write(s string) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s)
}

func (e *encoder) newline(depth int) {
	e.write("\n")
	e.write(strings.Repeat(e.indent, depth))
}

func (e *encoder) node(n *yaml.Node, depth int) {
	if n == nil {
		e.write("null")
		return
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			e.write("null")
			return
		}
		e.node(n.Content[0], depth)
	case yaml.AliasNode:
		e.node(n.Alias, depth)
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			e.write("{}")
			return
		}
		e.write("{")
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				e.write(",")
			}
			e.newline(depth + 1)
			e.write(quote(n.Content[i].Value))
			e.write(": ")
			e.node(n.Content[i+1], depth+1)
		}
		e.newline(depth)
		e.write("}")
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			e.write("[]")
			return
		}
		e.write("[")
		for i, c := range n.Content {
			if i > 0 {
				e.write(",")
			}
			e.newline(depth + 1)
			e.node(c, depth+1)
		}
		e.newline(depth)
		e.write("]")
	case yaml.ScalarNode:
		e.write(scalar(n))
	default:
		e.err = fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func scalar(n *yaml.Node) string {
	switch n.ShortTag() {
	case "!!null":
		return "null"
	case "!!bool":
		if b, err := strconv.ParseBool(n.Value); err == nil {
			return strconv.FormatBool(b)
		}
	case "!!int":
		if jsonNumber.MatchString(n.Value) {
			return n.Value
		}
		if i, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
	case "!!float":
		if jsonNumber.MatchString(n.Value) {
			return n.Value
		}
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	return quote(n.Value)
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
