package passes

import (
	"context"
	"strings"

	"github.com/kolah/sdkprep/internal/model"
	"go.yaml.in/yaml/v4"
)

// RefNormalizer moves keys that sit next to a $ref into an allOf, since
// generators ignore siblings of a reference:
//
//	{"$ref": R, "description": D} -> {"allOf": [{"$ref": R}, {"description": D}]}
type RefNormalizer struct{}

func (RefNormalizer) Name() string { return "normalize-refs" }

func (RefNormalizer) Apply(_ context.Context, doc *model.Document) (int, error) {
	return normalizeRefs(doc.Root, false), nil
}

// normalizeRefs rewrites n and its descendants. inProperties is set only for
// the value of a schema's properties keyword, whose keys are property names
// rather than schema keywords.
func normalizeRefs(n *yaml.Node, inProperties bool) int {
	count := 0
	switch n.Kind {
	case yaml.MappingNode:
		if inProperties {
			for i := 1; i < len(n.Content); i += 2 {
				count += normalizeRefs(n.Content[i], false)
			}
			return count
		}

		if model.Ref(n) != "" && model.Len(n) > 1 {
			var ref, extras []*yaml.Node
			for i := 0; i+1 < len(n.Content); i += 2 {
				if n.Content[i].Value == "$ref" {
					ref = n.Content[i : i+2]
				} else {
					extras = append(extras, n.Content[i], n.Content[i+1])
				}
			}
			refNode := model.NewMapping()
			refNode.Content = append(refNode.Content, ref...)
			extrasNode := model.NewMapping()
			extrasNode.Content = extras

			n.Content = nil
			model.Set(n, model.AllOf, model.NewSequence(refNode, extrasNode))
			count++
		}

		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i].Value, n.Content[i+1]
			if isLiteral(k, v) {
				continue
			}
			count += normalizeRefs(v, k == "properties" && model.IsMapping(v))
		}
	case yaml.SequenceNode:
		for _, c := range n.Content {
			count += normalizeRefs(c, false)
		}
	}
	return count
}

// isLiteral reports whether the value under k is instance data rather than
// schema, so a "$ref" inside it is just a string.
func isLiteral(k string, v *yaml.Node) bool {
	switch k {
	case "example", "default", "enum", "const":
		return true
	case "examples":
		return model.IsSequence(v)
	}
	return strings.HasPrefix(k, "x-")
}
