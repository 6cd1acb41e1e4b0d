package model

import (
	"strconv"

	"go.yaml.in/yaml/v4"
)

// VisitFunc is called for every node reached by Walk. path holds the mapping
// keys and sequence indices leading to node. Returning false skips the
// node's children.
type VisitFunc func(path []string, node *yaml.Node) bool

// Walk visits node and its descendants depth first. Children are read after
// the visit returns, so a visitor may replace node.Content in place.
func Walk(node *yaml.Node, visit VisitFunc) {
	walk(nil, node, visit)
}

func walk(path []string, node *yaml.Node, visit VisitFunc) {
	if node == nil {
		return
	}
	if !visit(path, node) {
		return
	}

	switch node.Kind {
	case yaml.DocumentNode:
		for _, c := range node.Content {
			walk(path, c, visit)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			walk(child(path, node.Content[i].Value), node.Content[i+1], visit)
		}
	case yaml.SequenceNode:
		for i, c := range node.Content {
			walk(child(path, strconv.Itoa(i)), c, visit)
		}
	case yaml.AliasNode:
		walk(path, node.Alias, visit)
	}
}

func child(path []string, seg string) []string {
	return append(path[:len(path):len(path)], seg)
}

// LastSegment returns the final element of a walk path.
func LastSegment(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}
