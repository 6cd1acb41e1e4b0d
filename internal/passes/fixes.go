package passes

import (
	"context"

	"github.com/containerd/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kolah/sdkprep/internal/model"
	"go.yaml.in/yaml/v4"
)

// NullableRefFixer turns the normalized form of a nullable reference,
//
//	{"allOf": [{"$ref": R}, {"nullable": true, ...}]}
//
// into a union generators understand,
//
//	{"anyOf": [{"$ref": R}, {"type": "null"}], "nullable": true, ...}
//
// and drops required names that have no matching property.
type NullableRefFixer struct{}

func (NullableRefFixer) Name() string { return "fix-nullable-refs" }

func (NullableRefFixer) Apply(_ context.Context, doc *model.Document) (int, error) {
	count := 0
	eachDocumentSchema(doc, func(n *yaml.Node) {
		if fixNullableRef(n) {
			count++
		}
		count += dropDanglingRequired(n)
	})
	return count, nil
}

func fixNullableRef(n *yaml.Node) bool {
	allOf := model.Get(n, model.AllOf)
	if !model.IsSequence(allOf) || len(allOf.Content) != 2 {
		return false
	}
	ref, extras := allOf.Content[0], allOf.Content[1]
	if !model.IsPureRef(ref) || !model.IsMapping(extras) || !model.BoolValue(model.Get(extras, "nullable")) {
		return false
	}

	rest := n.Content
	n.Content = nil
	union := model.NullableRef(ref)
	n.Content = append(n.Content, union.Content...)
	for k, v := range model.Pairs(extras) {
		if k != "nullable" {
			model.Set(n, k, v)
		}
	}
	for i := 0; i+1 < len(rest); i += 2 {
		if k := rest[i].Value; k != model.AllOf && !model.Has(n, k) {
			n.Content = append(n.Content, rest[i], rest[i+1])
		}
	}
	return true
}

func dropDanglingRequired(n *yaml.Node) int {
	required := model.Get(n, "required")
	props := model.Get(n, "properties")
	if !model.IsSequence(required) || !model.IsMapping(props) {
		return 0
	}
	count := 0
	kept := required.Content[:0]
	for _, r := range required.Content {
		if !model.Has(props, r.Value) {
			count++
			continue
		}
		kept = append(kept, r)
	}
	required.Content = kept
	if len(kept) == 0 {
		model.Delete(n, "required")
	}
	return count
}

// DiscriminatorDeduper removes repeated members of polymorphic schemas. A
// generator emits one type per member, so duplicates become name clashes.
type DiscriminatorDeduper struct{}

func (DiscriminatorDeduper) Name() string { return "dedupe-discriminators" }

func (DiscriminatorDeduper) Apply(ctx context.Context, doc *model.Document) (int, error) {
	count := 0
	eachComponentSchema(doc, func(n *yaml.Node) {
		disc := model.Get(n, "discriminator")
		if !model.IsMapping(disc) {
			return
		}

		for _, c := range []string{model.OneOf, model.AnyOf} {
			members := model.Get(n, c)
			if !model.IsSequence(members) {
				continue
			}
			seen := mapset.NewThreadUnsafeSet[string]()
			kept := members.Content[:0]
			for _, m := range members.Content {
				if ref := model.Ref(m); ref != "" && model.IsPureRef(m) && !seen.Add(ref) {
					log.G(ctx).WithField("ref", ref).Debug("dropping duplicate member")
					count++
					continue
				}
				kept = append(kept, m)
			}
			members.Content = kept
		}

		mapping := model.Get(disc, "mapping")
		if !model.IsMapping(mapping) {
			return
		}
		targets := mapset.NewThreadUnsafeSet[string]()
		kept := mapping.Content[:0]
		for i := 0; i+1 < len(mapping.Content); i += 2 {
			if !targets.Add(mapping.Content[i+1].Value) {
				log.G(ctx).WithField("key", mapping.Content[i].Value).Debug("dropping duplicate mapping key")
				count++
				continue
			}
			kept = append(kept, mapping.Content[i], mapping.Content[i+1])
		}
		mapping.Content = kept
	})
	return count, nil
}
