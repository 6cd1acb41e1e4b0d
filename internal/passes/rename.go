package passes

import (
	"context"

	"github.com/containerd/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kolah/sdkprep/internal/model"
	"github.com/kolah/sdkprep/internal/naming"
	"go.yaml.in/yaml/v4"
)

// SchemaRenamer gives every component schema its canonical name and rewrites
// references to renamed schemas across the whole document.
type SchemaRenamer struct {
	Names *naming.Canonicalizer
}

func (*SchemaRenamer) Name() string { return "rename-schemas" }

func (r *SchemaRenamer) Apply(ctx context.Context, doc *model.Document) (int, error) {
	schemas := doc.Schemas()
	if schemas == nil {
		softSkip(ctx, log.Fields{"bucket": "components.schemas"}, "no component schemas")
		return 0, nil
	}

	existing := mapset.NewThreadUnsafeSet(model.Keys(schemas)...)
	renames := make(map[string]string)

	for i := 0; i+1 < len(schemas.Content); i += 2 {
		keyNode := schemas.Content[i]
		name := keyNode.Value
		canonical := r.Names.Canonical(name)
		if canonical == name {
			continue
		}
		if existing.Contains(canonical) {
			softSkip(ctx, log.Fields{"schema": name, "target": canonical}, "rename target already exists")
			continue
		}
		keyNode.Value = canonical
		existing.Remove(name)
		existing.Add(canonical)
		renames[name] = canonical
	}

	if len(renames) == 0 {
		return 0, nil
	}

	rewritten := rewriteSchemaRefs(doc.Root, renames)
	log.G(ctx).WithFields(log.Fields{"schemas": len(renames), "references": rewritten}).Info("renamed schemas")
	return len(renames) + rewritten, nil
}

// rewriteSchemaRefs replaces every $ref and discriminator mapping value that
// points at a renamed schema.
func rewriteSchemaRefs(root *yaml.Node, renames map[string]string) int {
	count := 0
	rewrite := func(n *yaml.Node) {
		name, ok := model.SchemaName(n.Value)
		if !ok {
			return
		}
		if to, ok := renames[name]; ok {
			n.Value = model.SchemaRef(to)
			count++
		}
	}

	model.Walk(root, func(path []string, n *yaml.Node) bool {
		if !model.IsMapping(n) {
			return true
		}
		if ref := model.Get(n, "$ref"); ref != nil && ref.Kind == yaml.ScalarNode {
			rewrite(ref)
		}
		if len(path) >= 2 && path[len(path)-1] == "mapping" && path[len(path)-2] == "discriminator" {
			for _, v := range model.Pairs(n) {
				if v.Kind == yaml.ScalarNode {
					rewrite(v)
				}
			}
		}
		return true
	})
	return count
}

// TagRenamer canonicalizes tag names in the top-level tag list and on every
// operation.
type TagRenamer struct {
	Names *naming.Canonicalizer
}

func (*TagRenamer) Name() string { return "rename-tags" }

func (r *TagRenamer) Apply(ctx context.Context, doc *model.Document) (int, error) {
	count := 0

	if tags := model.Get(doc.Root, "tags"); model.IsSequence(tags) {
		seen := mapset.NewThreadUnsafeSet[string]()
		kept := tags.Content[:0]
		for _, tag := range tags.Content {
			nameNode := model.Get(tag, "name")
			if nameNode == nil {
				kept = append(kept, tag)
				continue
			}
			canonical := r.Names.Canonical(nameNode.Value)
			if canonical != nameNode.Value {
				nameNode.Value = canonical
				count++
			}
			if !seen.Add(canonical) {
				log.G(ctx).WithField("tag", canonical).Info("dropping duplicate tag definition")
				count++
				continue
			}
			kept = append(kept, tag)
		}
		tags.Content = kept
	}

	for _, op := range doc.Operations() {
		tags := op.Tags()
		if !model.IsSequence(tags) {
			continue
		}
		seen := mapset.NewThreadUnsafeSet[string]()
		kept := tags.Content[:0]
		for _, t := range tags.Content {
			if t.Kind != yaml.ScalarNode {
				kept = append(kept, t)
				continue
			}
			canonical := r.Names.Canonical(t.Value)
			if canonical != t.Value {
				t.Value = canonical
				count++
			}
			if !seen.Add(canonical) {
				count++
				continue
			}
			kept = append(kept, t)
		}
		tags.Content = kept
	}

	return count, nil
}
