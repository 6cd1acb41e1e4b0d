package passes

import (
	"context"

	"github.com/containerd/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kolah/sdkprep/internal/model"
	"go.yaml.in/yaml/v4"
)

// VariantGroup names sibling schemas that model one resource, for example
// the read, create and update shapes of a server. Every variant must end
// up with the same property surface.
type VariantGroup []string

type variant struct {
	name  string
	props *yaml.Node
}

// variants returns the group's schemas that have a properties map.
func variants(ctx context.Context, doc *model.Document, group VariantGroup) []variant {
	var out []variant
	for _, name := range group {
		schema := doc.Schema(name)
		if schema == nil {
			softSkip(ctx, log.Fields{"schema": name}, "variant schema not found")
			continue
		}
		props := model.Get(schema, "properties")
		if !model.IsMapping(props) {
			softSkip(ctx, log.Fields{"schema": name}, "variant schema has no properties")
			continue
		}
		out = append(out, variant{name: name, props: props})
	}
	return out
}

// NullabilityPropagator unifies the property surface of each variant group.
// A property missing from a variant is cloned from the first variant that
// defines it and marked nullable. A property declared nullable by any
// variant becomes nullable in all of them, and id is always nullable.
type NullabilityPropagator struct {
	Groups []VariantGroup
}

func (*NullabilityPropagator) Name() string { return "propagate-nullability" }

func (p *NullabilityPropagator) Apply(ctx context.Context, doc *model.Document) (int, error) {
	count := 0
	for _, group := range p.Groups {
		count += p.apply(ctx, doc, group)
	}
	return count, nil
}

func (p *NullabilityPropagator) apply(ctx context.Context, doc *model.Document, group VariantGroup) int {
	vs := variants(ctx, doc, group)
	if len(vs) < 2 {
		return 0
	}

	// Nullability is read before any clone is added, so a clone never makes
	// its donor nullable.
	var union []string
	seen := mapset.NewThreadUnsafeSet[string]()
	nullable := mapset.NewThreadUnsafeSet("id")
	donors := make(map[string]*yaml.Node)
	for _, v := range vs {
		for name, def := range model.Pairs(v.props) {
			if seen.Add(name) {
				union = append(union, name)
				donors[name] = def
			}
			if isNullable(def) {
				nullable.Add(name)
			}
		}
	}

	count := 0
	for _, v := range vs {
		for _, name := range union {
			if model.Has(v.props, name) {
				continue
			}
			clone := model.Clone(donors[name])
			model.Set(v.props, name, clone)
			markNullable(v.props, name)
			log.G(ctx).WithFields(log.Fields{"schema": v.name, "property": name}).Debug("added missing property")
			count++
		}
	}

	for _, name := range union {
		if !nullable.Contains(name) {
			continue
		}
		for _, v := range vs {
			if markNullable(v.props, name) {
				count++
			}
		}
	}
	return count
}

// RequiredCleaner drops required entries whose property is nullable in the
// variant schemas. An emptied list is removed, since OpenAPI 3.0 forbids
// an empty required array.
type RequiredCleaner struct {
	Groups []VariantGroup
}

func (*RequiredCleaner) Name() string { return "clean-required" }

func (c *RequiredCleaner) Apply(ctx context.Context, doc *model.Document) (int, error) {
	count := 0
	done := mapset.NewThreadUnsafeSet[string]()
	for _, group := range c.Groups {
		for _, name := range group {
			if !done.Add(name) {
				continue
			}
			schema := doc.Schema(name)
			required := model.Get(schema, "required")
			if !model.IsSequence(required) {
				continue
			}
			props := model.Get(schema, "properties")

			kept := required.Content[:0]
			for _, r := range required.Content {
				def := model.Get(props, r.Value)
				if model.KindOf(def) == model.KindReference {
					// One hop: the flag lives on the target schema.
					if target := doc.SchemaByRef(model.Ref(def)); target != nil {
						def = target
					}
				}
				if isNullable(def) {
					log.G(ctx).WithFields(log.Fields{"schema": name, "property": r.Value}).Debug("dropping nullable required entry")
					count++
					continue
				}
				kept = append(kept, r)
			}
			required.Content = kept
			if len(kept) == 0 {
				model.Delete(schema, "required")
			}
		}
	}
	return count, nil
}

// DateTimeFlagger marks date-time strings in component schemas so
// generators can map them to a date type.
type DateTimeFlagger struct{}

func (DateTimeFlagger) Name() string { return "flag-datetime" }

func (DateTimeFlagger) Apply(_ context.Context, doc *model.Document) (int, error) {
	count := 0
	eachComponentSchema(doc, func(n *yaml.Node) {
		if model.TypeOf(n) != model.TypeString || model.Format(n) != "date-time" {
			return
		}
		if model.BoolValue(model.Get(n, "x-datetime")) {
			return
		}
		model.Set(n, "x-datetime", model.NewBool(true))
		count++
	})
	return count, nil
}
