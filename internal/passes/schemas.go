package passes

import (
	"github.com/kolah/sdkprep/internal/model"
	"go.yaml.in/yaml/v4"
)

// eachSchema visits n and every schema nested under it through properties,
// items, additionalProperties, not and the combinators. Children are read
// after visit returns, so visit may rewrite the node in place.
func eachSchema(n *yaml.Node, visit func(*yaml.Node)) {
	seen := make(map[*yaml.Node]bool)
	var rec func(*yaml.Node)
	rec = func(n *yaml.Node) {
		if !model.IsMapping(n) || seen[n] {
			return
		}
		seen[n] = true
		visit(n)

		for _, p := range model.Pairs(model.Get(n, "properties")) {
			rec(p)
		}
		rec(model.Get(n, "items"))
		rec(model.Get(n, "additionalProperties"))
		rec(model.Get(n, "not"))
		for _, c := range model.Combinators {
			if seq := model.Get(n, c); model.IsSequence(seq) {
				for _, m := range seq.Content {
					rec(m)
				}
			}
		}
	}
	rec(n)
}

// eachComponentSchema runs eachSchema over every entry of components.schemas.
func eachComponentSchema(doc *model.Document, visit func(*yaml.Node)) {
	for _, s := range model.Pairs(doc.Schemas()) {
		eachSchema(s, visit)
	}
}

// eachDocumentSchema covers component schemas and every schema embedded in
// parameters, request bodies and responses, both inline and in components.
func eachDocumentSchema(doc *model.Document, visit func(*yaml.Node)) {
	eachComponentSchema(doc, visit)

	for _, root := range schemaHolders(doc) {
		eachSchema(root, visit)
	}
}

func schemaHolders(doc *model.Document) []*yaml.Node {
	var roots []*yaml.Node

	fromContent := func(holder *yaml.Node) {
		for _, mt := range model.Pairs(model.Get(holder, "content")) {
			if s := model.Get(mt, "schema"); s != nil {
				roots = append(roots, s)
			}
		}
	}
	fromParams := func(params *yaml.Node) {
		if !model.IsSequence(params) {
			return
		}
		for _, p := range params.Content {
			if s := model.Get(p, "schema"); s != nil {
				roots = append(roots, s)
			}
		}
	}

	for _, item := range model.Pairs(doc.Paths()) {
		fromParams(model.Get(item, "parameters"))
	}
	for _, op := range doc.Operations() {
		fromParams(model.Get(op.Node, "parameters"))
		fromContent(model.Get(op.Node, "requestBody"))
		for _, resp := range model.Pairs(op.Responses()) {
			fromContent(resp)
		}
	}

	components := doc.Components()
	for _, p := range model.Pairs(model.Get(components, "parameters")) {
		if s := model.Get(p, "schema"); s != nil {
			roots = append(roots, s)
		}
	}
	for _, rb := range model.Pairs(model.Get(components, "requestBodies")) {
		fromContent(rb)
	}
	for _, resp := range model.Pairs(model.Get(components, "responses")) {
		fromContent(resp)
	}
	return roots
}

// isNullable extends model.IsNullable to the allOf extras member that ref
// normalization produces for a nullable reference.
func isNullable(n *yaml.Node) bool {
	if model.IsNullable(n) {
		return true
	}
	if seq := model.Get(n, model.AllOf); model.IsSequence(seq) {
		for _, m := range seq.Content {
			if model.KindOf(m) != model.KindReference && model.BoolValue(model.Get(m, "nullable")) {
				return true
			}
		}
	}
	return false
}

// markNullable makes the property under name nullable. References are
// wrapped rather than mutated. It reports whether anything changed.
func markNullable(props *yaml.Node, name string) bool {
	def := model.Get(props, name)
	if !model.IsMapping(def) || isNullable(def) {
		return false
	}
	if model.KindOf(def) == model.KindReference {
		model.Set(props, name, model.NullableRef(def))
		return true
	}
	model.Set(def, "nullable", model.NewBool(true))
	return true
}
