package model

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v4"
)

func parse(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &n))
	return n.Content[0]
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want SchemaKind
	}{
		{"reference", `{"$ref": "#/components/schemas/Foo"}`, KindReference},
		{"reference with siblings", `{"$ref": "#/components/schemas/Foo", "description": "x"}`, KindReference},
		{"allOf", `{"allOf": [{"type": "string"}]}`, KindComposition},
		{"oneOf", `{"oneOf": []}`, KindComposition},
		{"object", `{"type": "object"}`, KindObject},
		{"untyped object", `{"properties": {"a": {"type": "string"}}}`, KindObject},
		{"array", `{"type": "array", "items": {"type": "string"}}`, KindArray},
		{"untyped array", `{"items": {"type": "string"}}`, KindArray},
		{"string", `{"type": "string"}`, KindPrimitive},
		{"number", `{"type": "number"}`, KindPrimitive},
		{"null", `{"type": "null"}`, KindPrimitive},
		{"type list", `{"type": ["null", "integer"]}`, KindPrimitive},
		{"unknown", `{"description": "anything"}`, KindUnknown},
		{"scalar", `"text"`, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, KindOf(parse(t, tt.src)))
		})
	}
}

func TestIsNullable(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"flag", `{"type": "string", "nullable": true}`, true},
		{"flag false", `{"type": "string", "nullable": false}`, false},
		{"quoted flag", `{"type": "string", "nullable": "true"}`, false},
		{"type list", `{"type": ["string", "null"]}`, true},
		{"anyOf null", `{"anyOf": [{"$ref": "#/components/schemas/A"}, {"type": "null"}]}`, true},
		{"plain", `{"type": "string"}`, false},
		{"reference", `{"$ref": "#/components/schemas/A"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsNullable(parse(t, tt.src)))
		})
	}
}

func TestMappingHelpers(t *testing.T) {
	m := parse(t, `{"b": 1, "a": 2, "c": 3}`)

	require.Equal(t, []string{"b", "a", "c"}, Keys(m))
	require.True(t, Delete(m, "a"))
	require.False(t, Delete(m, "a"))
	require.Equal(t, []string{"b", "c"}, Keys(m))

	Set(m, "d", NewString("x"))
	Set(m, "b", NewBool(true))
	require.Equal(t, []string{"b", "c", "d"}, Keys(m))
	require.True(t, BoolValue(Get(m, "b")))

	require.Equal(t, 3, Len(m))
}

func TestClone(t *testing.T) {
	m := parse(t, `{"type": "object", "properties": {"id": {"type": "integer"}}}`)
	c := Clone(m)

	Set(GetPath(c, "properties", "id"), "nullable", NewBool(true))

	require.False(t, Has(GetPath(m, "properties", "id"), "nullable"))
	require.True(t, IsNullable(GetPath(c, "properties", "id")))
}

func TestSchemaName(t *testing.T) {
	name, ok := SchemaName("#/components/schemas/api_token")
	require.True(t, ok)
	require.Equal(t, "api_token", name)

	_, ok = SchemaName("#/components/responses/NotFound")
	require.False(t, ok)

	_, ok = SchemaName("other.json#/components/schemas/Foo")
	require.False(t, ok)

	require.Equal(t, "#/components/schemas/a~1b", SchemaRef("a/b"))
	name, ok = SchemaName(SchemaRef("a/b"))
	require.True(t, ok)
	require.Equal(t, "a/b", name)
}

const petstore = `{
  "openapi": "3.0.3",
  "paths": {
    "/pets": {
      "parameters": [],
      "get": {"operationId": "listPets", "responses": {"200": {"$ref": "#/components/responses/Pets"}}},
      "post": {"operationId": "createPet"}
    },
    "/pets/{id}": {
      "delete": {"operationId": "deletePet"}
    }
  },
  "components": {
    "schemas": {
      "Pet": {"type": "object"},
      "PetAlias": {"$ref": "#/components/schemas/Pet"},
      "Loop": {"$ref": "#/components/schemas/Loop"}
    },
    "responses": {
      "Pets": {"description": "ok"}
    }
  }
}`

func TestDocument(t *testing.T) {
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(petstore), &n))
	doc, err := NewDocument(&n)
	require.NoError(t, err)

	require.Equal(t, "3.0.3", doc.Version())

	ops := doc.Operations()
	require.Len(t, ops, 3)
	require.Equal(t, "GET /pets", ops[0].String())
	require.Equal(t, "createPet", ops[1].ID())
	require.Equal(t, MethodDelete, ops[2].Method)

	require.NotNil(t, doc.SchemaByRef("#/components/schemas/Pet"))
	require.Nil(t, doc.SchemaByRef("#/components/schemas/Missing"))

	resp := doc.Lookup("#/components/responses/Pets")
	require.NotNil(t, resp)
	require.Equal(t, "ok", Get(resp, "description").Value)
	require.Nil(t, doc.Lookup("#/paths/~1pets/parameters/0"))
	require.NotNil(t, doc.Lookup("#/paths/~1pets/get"))

	resolved := doc.Resolve(doc.Schema("PetAlias"))
	require.Equal(t, KindObject, KindOf(resolved))
	require.Nil(t, doc.Resolve(doc.Schema("Loop")))
}

func TestNewDocumentRejectsNonObject(t *testing.T) {
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(`[1, 2]`), &n))
	_, err := NewDocument(&n)
	require.Error(t, err)
}

func TestWalkPaths(t *testing.T) {
	root := parse(t, `{"a": {"b": [{"c": 1}]}}`)

	var seen []string
	Walk(root, func(path []string, n *yaml.Node) bool {
		if n.Kind == yaml.ScalarNode {
			seen = append(seen, LastSegment(path))
		}
		return true
	})
	require.Equal(t, []string{"c"}, seen)
}

func TestIsSuccessCode(t *testing.T) {
	for code, want := range map[string]bool{
		"200": true, "204": true, "2XX": true, "default": true,
		"302": false, "404": false, "20": false, "2ab": false, "2X0": false, "2xx": false,
	} {
		require.Equal(t, want, IsSuccessCode(code), code)
	}
}

func TestParseMethod(t *testing.T) {
	require.Equal(t, MethodGet, ParseMethod("GET"))
	require.Equal(t, MethodDelete, ParseMethod(" delete "))
	require.Equal(t, Method(""), ParseMethod(""))
	require.True(t, IsMethod(string(ParseMethod("Patch"))))
}
