package passes

import (
	"context"
	"slices"
	"strings"

	"github.com/containerd/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kolah/sdkprep/internal/model"
	"go.yaml.in/yaml/v4"
)

// Return type names that are not schema names.
const (
	returnVoid   = "void"
	returnNull   = "null"
	returnFile   = "file"
	returnMixed  = "mixed"
	returnObject = "object"
	returnArray  = "array"
	returnString = "string"
	returnFloat  = "float"
)

// Annotation keys written on operations.
const (
	keyReturnTypes   = "x-return-types"
	keyReturnable    = "x-returnable"
	keyDisplayReturn = "x-return-types-displayReturn"
	keyUnion         = "x-return-types-union"
	keyPHPDoc        = "x-phpdoc"
)

var (
	jsonMediaTypes   = []string{"application/json", "application/problem+json"}
	binaryMediaTypes = []string{"application/pdf", "application/octet-stream"}
)

// DefaultPaginationMetaKeys are envelope keys that do not count as payload
// when detecting a list response.
var DefaultPaginationMetaKeys = []string{"meta", "links"}

// ReturnTypeAnnotator records what each operation returns on success, so
// generators can type their return values without resolving schemas.
type ReturnTypeAnnotator struct {
	MetaKeys []string
}

func (*ReturnTypeAnnotator) Name() string { return "annotate-return-types" }

func (a *ReturnTypeAnnotator) Apply(ctx context.Context, doc *model.Document) (int, error) {
	metaKeys := a.MetaKeys
	if metaKeys == nil {
		metaKeys = DefaultPaginationMetaKeys
	}
	r := &returnTypes{doc: doc, metaKeys: metaKeys}

	count := 0
	for _, op := range doc.Operations() {
		if r.annotate(ctx, op) {
			count++
		}
		count += dropBodyRefDefaults(doc, op)
	}
	return count, nil
}

type returnTypes struct {
	doc      *model.Document
	metaKeys []string
}

func (r *returnTypes) annotate(ctx context.Context, op model.Operation) bool {
	var types []string
	seen := mapset.NewThreadUnsafeSet[string]()
	returnable := false
	qualifying := false

	for code, resp := range model.Pairs(op.Responses()) {
		if !model.IsSuccessCode(code) {
			continue
		}
		qualifying = true

		t := returnVoid
		if resolved := r.doc.Resolve(resp); resolved != nil {
			content := model.Get(resolved, "content")
			if model.Len(content) > 0 {
				returnable = true
			}
			t = r.contentType(content)
		}
		if seen.Add(t) {
			types = append(types, t)
		}
	}

	if !qualifying {
		log.G(ctx).WithField("operation", op.String()).Debug("no success response")
		return false
	}

	if len(types) > 1 && seen.Contains(returnVoid) {
		types = collapseVoid(types)
	}

	display := !(len(types) == 1 && types[0] == returnVoid)

	model.Set(op.Node, keyReturnTypes, model.NewStrings(types))
	model.Set(op.Node, keyReturnable, model.NewBool(returnable))
	model.Set(op.Node, keyDisplayReturn, model.NewBool(display))
	if union := unionOf(types); union != returnObject {
		model.Set(op.Node, keyUnion, model.NewString(union))
	} else {
		model.Delete(op.Node, keyUnion)
	}
	if display {
		phpdoc := model.NewMapping()
		model.Set(phpdoc, "return", model.NewString(strings.Join(types, "|")))
		model.Set(op.Node, keyPHPDoc, phpdoc)
	}
	return true
}

// collapseVoid rewrites void to null when other types are present.
func collapseVoid(types []string) []string {
	out := make([]string, 0, len(types))
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, t := range types {
		if t == returnVoid {
			t = returnNull
		}
		if seen.Add(t) {
			out = append(out, t)
		}
	}
	return out
}

// unionOf collapses list types to "array" and joins the distinct names.
func unionOf(types []string) string {
	var parts []string
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, t := range types {
		if strings.HasSuffix(t, "[]") {
			t = returnArray
		}
		if seen.Add(t) {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "|")
}

func (r *returnTypes) contentType(content *yaml.Node) string {
	if model.Len(content) == 0 {
		return returnVoid
	}
	for _, mt := range jsonMediaTypes {
		if media := model.Get(content, mt); media != nil {
			schema := model.Get(media, "schema")
			if schema == nil {
				return returnMixed
			}
			return r.classify(schema)
		}
	}
	for _, mt := range binaryMediaTypes {
		if media := model.Get(content, mt); media != nil {
			schema := model.Get(media, "schema")
			if schema == nil || model.Format(schema) == "binary" {
				return returnFile
			}
		}
	}
	for mt := range model.Pairs(content) {
		if strings.HasPrefix(mt, "text/") {
			return returnString
		}
	}
	return returnMixed
}

func (r *returnTypes) classify(schema *yaml.Node) string {
	switch model.KindOf(schema) {
	case model.KindReference:
		return r.classifyRef(schema)

	case model.KindComposition:
		// allOf may carry extras next to its reference; a union must
		// reduce to the reference once null is removed.
		combinator, members := model.Composition(schema)
		var refs, others []*yaml.Node
		for _, m := range members {
			switch {
			case model.IsNullType(m):
			case model.KindOf(m) == model.KindReference:
				refs = append(refs, m)
			default:
				others = append(others, m)
			}
		}
		if len(refs) == 1 && (combinator == model.AllOf || len(others) == 0) {
			return r.classifyRef(refs[0])
		}
		return returnObject

	case model.KindObject:
		if t, ok := r.listEnvelope(schema); ok {
			return t
		}
		return returnObject

	case model.KindArray:
		return returnArray

	case model.KindPrimitive:
		if model.TypeOf(schema) == model.TypeNumber {
			return returnFloat
		}
		return string(model.TypeOf(schema))
	}
	return returnMixed
}

func (r *returnTypes) classifyRef(ref *yaml.Node) string {
	target := r.doc.Resolve(ref)
	if target == nil {
		return returnVoid
	}
	if model.KindOf(target) == model.KindArray {
		if ref, ok := elementRef(model.Get(target, "items")); ok {
			return refName(ref) + "[]"
		}
		return returnArray
	}
	return refName(model.Ref(ref))
}

// listEnvelope detects {"items": [Ref]} objects, ignoring pagination metadata.
func (r *returnTypes) listEnvelope(schema *yaml.Node) (string, bool) {
	props := model.Get(schema, "properties")
	var meaningful []string
	for name := range model.Pairs(props) {
		if !slices.Contains(r.metaKeys, name) {
			meaningful = append(meaningful, name)
		}
	}
	if len(meaningful) != 1 || meaningful[0] != "items" {
		return "", false
	}
	items := model.Get(props, "items")
	if model.KindOf(items) != model.KindArray {
		return "", false
	}
	ref, ok := elementRef(model.Get(items, "items"))
	if !ok {
		return "", false
	}
	return refName(ref) + "[]", true
}

// elementRef returns the reference an array element stands for: a bare
// reference, or an allOf whose only reference member is a pure one, which
// is how a reference with siblings looks after normalization.
func elementRef(n *yaml.Node) (string, bool) {
	if model.KindOf(n) == model.KindReference {
		return model.Ref(n), true
	}
	allOf := model.Get(n, model.AllOf)
	if !model.IsSequence(allOf) {
		return "", false
	}
	ref := ""
	for _, m := range allOf.Content {
		if model.KindOf(m) != model.KindReference {
			continue
		}
		if ref != "" || !model.IsPureRef(m) {
			return "", false
		}
		ref = model.Ref(m)
	}
	return ref, ref != ""
}

func refName(ref string) string {
	if name, ok := model.SchemaName(ref); ok {
		return name
	}
	return ref[strings.LastIndex(ref, "/")+1:]
}

// dropBodyRefDefaults removes a default sitting next to a referenced
// request body property, in both the raw and the normalized allOf form.
func dropBodyRefDefaults(doc *model.Document, op model.Operation) int {
	body := doc.Resolve(model.Get(op.Node, "requestBody"))
	count := 0
	for _, media := range model.Pairs(model.Get(body, "content")) {
		schema := model.Get(media, "schema")
		if model.KindOf(schema) == model.KindReference {
			schema = doc.SchemaByRef(model.Ref(schema))
		}
		props := model.Get(schema, "properties")
		if !model.IsMapping(props) {
			continue
		}
		for i := 1; i < len(props.Content); i += 2 {
			prop := props.Content[i]
			if model.KindOf(prop) == model.KindReference {
				if model.Delete(prop, "default") {
					count++
				}
				continue
			}
			allOf := model.Get(prop, model.AllOf)
			if !model.IsSequence(allOf) || len(allOf.Content) != 2 || !model.IsPureRef(allOf.Content[0]) {
				continue
			}
			extras := allOf.Content[1]
			if !model.Delete(extras, "default") {
				continue
			}
			count++
			if model.Len(extras) > 0 {
				continue
			}
			allOf.Content = allOf.Content[:1]
			if model.Len(prop) == 1 {
				props.Content[i] = allOf.Content[0]
			}
		}
	}
	return count
}
