package model

import (
	"strings"

	"go.yaml.in/yaml/v4"
)

// SchemaKind classifies a schema node. Nodes that match none of the known
// shapes are KindUnknown and pass through untouched.
type SchemaKind int

const (
	KindUnknown SchemaKind = iota
	KindReference
	KindComposition
	KindObject
	KindArray
	KindPrimitive
)

func (k SchemaKind) String() string {
	switch k {
	case KindReference:
		return "reference"
	case KindComposition:
		return "composition"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindPrimitive:
		return "primitive"
	default:
		return "unknown"
	}
}

type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
	TypeNull    SchemaType = "null"
)

const (
	AllOf = "allOf"
	AnyOf = "anyOf"
	OneOf = "oneOf"
)

// Combinators lists the composition keywords in the order they are checked.
var Combinators = []string{AllOf, AnyOf, OneOf}

// SchemaRefPrefix is the JSON pointer prefix of component schema references.
const SchemaRefPrefix = "#/components/schemas/"

func KindOf(n *yaml.Node) SchemaKind {
	if !IsMapping(n) {
		return KindUnknown
	}
	if Has(n, "$ref") {
		return KindReference
	}
	for _, c := range Combinators {
		if IsSequence(Get(n, c)) {
			return KindComposition
		}
	}

	switch TypeOf(n) {
	case TypeObject:
		return KindObject
	case TypeArray:
		return KindArray
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeNull:
		return KindPrimitive
	}

	if IsMapping(Get(n, "properties")) {
		return KindObject
	}
	if IsMapping(Get(n, "items")) {
		return KindArray
	}
	return KindUnknown
}

// TypeOf returns the declared type. For a type list, the first non-null entry wins.
func TypeOf(n *yaml.Node) SchemaType {
	t := Get(n, "type")
	if t == nil {
		return ""
	}
	if s, ok := StringValue(t); ok {
		return SchemaType(s)
	}
	for _, s := range Strings(t) {
		if s != string(TypeNull) {
			return SchemaType(s)
		}
	}
	return ""
}

// Format returns the format keyword of a schema node.
func Format(n *yaml.Node) string {
	s, _ := StringValue(Get(n, "format"))
	return s
}

// Composition returns the first combinator present on n and its members.
func Composition(n *yaml.Node) (string, []*yaml.Node) {
	for _, c := range Combinators {
		if seq := Get(n, c); IsSequence(seq) {
			return c, seq.Content
		}
	}
	return "", nil
}

// Ref returns the $ref target of n, or "".
func Ref(n *yaml.Node) string {
	s, _ := StringValue(Get(n, "$ref"))
	return s
}

// IsPureRef reports whether n holds a $ref and nothing else.
func IsPureRef(n *yaml.Node) bool {
	return IsMapping(n) && len(n.Content) == 2 && n.Content[0].Value == "$ref"
}

// SchemaName returns the component name a schema reference points to.
func SchemaName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, SchemaRefPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(ref, SchemaRefPrefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return unescapePointer(name), true
}

// SchemaRef builds the reference for a component schema name.
func SchemaRef(name string) string {
	return SchemaRefPrefix + escapePointer(name)
}

// IsNullType reports whether n is the {"type": "null"} member of a nullable union.
func IsNullType(n *yaml.Node) bool {
	return KindOf(n) == KindPrimitive && TypeOf(n) == TypeNull && Len(n) == 1
}

// IsNullable reports whether n admits null: an explicit nullable flag, a
// type list containing null, or a null member in anyOf/oneOf.
func IsNullable(n *yaml.Node) bool {
	if !IsMapping(n) {
		return false
	}
	if BoolValue(Get(n, "nullable")) {
		return true
	}
	for _, s := range Strings(Get(n, "type")) {
		if s == string(TypeNull) {
			return true
		}
	}
	for _, c := range []string{AnyOf, OneOf} {
		seq := Get(n, c)
		if !IsSequence(seq) {
			continue
		}
		for _, m := range seq.Content {
			if IsNullType(m) {
				return true
			}
		}
	}
	return false
}

// NullableRef wraps a reference so it can carry a nullable flag.
func NullableRef(ref *yaml.Node) *yaml.Node {
	n := NewMapping()
	nullType := NewMapping()
	Set(nullType, "type", NewString(string(TypeNull)))
	Set(n, AnyOf, NewSequence(ref, nullType))
	Set(n, "nullable", NewBool(true))
	return n
}
