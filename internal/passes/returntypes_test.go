package passes

import (
	"testing"

	"github.com/kolah/sdkprep/internal/model"
	"github.com/stretchr/testify/require"
)

const returnTypesFixture = `{
  "openapi": "3.0.3",
  "paths": {
    "/users": {
      "get": {"responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {
        "type": "object",
        "properties": {
          "items": {"type": "array", "items": {"$ref": "#/components/schemas/User"}},
          "meta": {"type": "object"},
          "links": {"type": "object"}
        }
      }}}}}},
      "post": {"responses": {"201": {"description": "created", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/User"}}}}, "422": {"description": "bad"}}}
    },
    "/users/{id}": {
      "delete": {"responses": {"204": {"description": "gone"}}},
      "patch": {"responses": {
        "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/User"}}}},
        "204": {"description": "unchanged"}
      }},
      "put": {"responses": {"200": {"$ref": "#/components/responses/UserList"}}}
    },
    "/reports/{id}": {
      "get": {"responses": {"200": {"description": "pdf", "content": {"application/pdf": {}}}}}
    },
    "/problems": {
      "get": {"responses": {"default": {"description": "problem", "content": {"application/problem+json": {"schema": {"type": "object"}}}}}}
    },
    "/stats": {
      "get": {"responses": {
        "200": {"description": "ok", "content": {"application/json": {"schema": {"type": "number"}}}},
        "202": {"description": "ok", "content": {"application/json": {"schema": {"type": "integer"}}}},
        "203": {"description": "ok", "content": {"application/json": {"schema": {"description": "anything"}}}},
        "206": {"description": "ok", "content": {"text/plain": {"schema": {"type": "string"}}}}
      }}
    },
    "/unions": {
      "get": {"responses": {
        "200": {"description": "ok", "content": {"application/json": {"schema": {"anyOf": [{"$ref": "#/components/schemas/User"}, {"type": "null"}]}}}},
        "201": {"description": "ok", "content": {"application/json": {"schema": {"oneOf": [{"$ref": "#/components/schemas/User"}, {"$ref": "#/components/schemas/Team"}]}}}},
        "202": {"description": "ok", "content": {"application/json": {"schema": {"allOf": [{"$ref": "#/components/schemas/Team"}, {"description": "x"}]}}}},
        "203": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Missing"}}}}
      }}
    },
    "/errors": {
      "get": {"responses": {"404": {"description": "nope"}}}
    }
  },
  "components": {
    "schemas": {
      "User": {"type": "object", "properties": {"id": {"type": "integer"}}},
      "Team": {"type": "object"},
      "Users": {"type": "array", "items": {"$ref": "#/components/schemas/User"}}
    },
    "responses": {
      "UserList": {"description": "list", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Users"}}}}
    }
  }
}`

func TestReturnTypeAnnotator(t *testing.T) {
	doc := load(t, returnTypesFixture)
	require.Equal(t, 9, apply(t, &ReturnTypeAnnotator{}, doc))

	tests := []struct {
		op          string
		types       []string
		returnable  bool
		display     bool
		union       string
		phpdoc      string
		unannotated bool
	}{
		{op: "users/get", types: []string{"User[]"}, returnable: true, display: true, union: "array", phpdoc: "User[]"},
		{op: "users/post", types: []string{"User"}, returnable: true, display: true, union: "User", phpdoc: "User"},
		{op: "users~1{id}/delete", types: []string{"void"}, display: false, union: "void"},
		{op: "users~1{id}/patch", types: []string{"User", "null"}, returnable: true, display: true, union: "User|null", phpdoc: "User|null"},
		{op: "users~1{id}/put", types: []string{"User[]"}, returnable: true, display: true, union: "array", phpdoc: "User[]"},
		{op: "reports~1{id}/get", types: []string{"file"}, returnable: true, display: true, union: "file", phpdoc: "file"},
		{op: "problems/get", types: []string{"object"}, returnable: true, display: true, phpdoc: "object"},
		{op: "stats/get", types: []string{"float", "integer", "mixed", "string"}, returnable: true, display: true,
			union: "float|integer|mixed|string", phpdoc: "float|integer|mixed|string"},
		{op: "unions/get", types: []string{"User", "object", "Team", "null"}, returnable: true, display: true,
			union: "User|object|Team|null", phpdoc: "User|object|Team|null"},
		{op: "errors/get", unannotated: true},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			op := lookup(t, doc, "#/paths/~1"+tt.op)
			if tt.unannotated {
				require.False(t, model.Has(op, keyReturnTypes))
				return
			}
			require.Equal(t, tt.types, model.Strings(model.Get(op, keyReturnTypes)))
			require.Equal(t, tt.returnable, model.BoolValue(model.Get(op, keyReturnable)))
			require.Equal(t, tt.display, model.BoolValue(model.Get(op, keyDisplayReturn)))
			if tt.union == "" {
				require.False(t, model.Has(op, keyUnion))
			} else {
				require.Equal(t, tt.union, model.Get(op, keyUnion).Value)
			}
			if tt.phpdoc == "" {
				require.False(t, model.Has(op, keyPHPDoc))
			} else {
				require.Equal(t, tt.phpdoc, model.GetPath(op, keyPHPDoc, "return").Value)
			}
		})
	}
}

func TestReturnTypeAnnotatorPaginationKeys(t *testing.T) {
	doc := load(t, returnTypesFixture)
	apply(t, &ReturnTypeAnnotator{MetaKeys: []string{"meta"}}, doc)

	// With links counted as payload, the envelope is a plain object.
	require.Equal(t, []string{"object"}, model.Strings(lookup(t, doc, "#/paths/~1users/get/"+keyReturnTypes)))
}

func TestDropBodyRefDefaults(t *testing.T) {
	doc := load(t, `{
  "openapi": "3.0.3",
  "paths": {
    "/servers": {"post": {"requestBody": {"content": {"application/json": {"schema": {
      "type": "object",
      "properties": {
        "raw": {"$ref": "#/components/schemas/Size", "default": "small"},
        "wrapped": {"allOf": [{"$ref": "#/components/schemas/Size"}, {"default": "small"}]},
        "described": {"allOf": [{"$ref": "#/components/schemas/Size"}, {"default": "small", "description": "d"}]},
        "inline": {"type": "string", "default": "keep"}
      }
    }}}}, "responses": {"204": {"description": "ok"}}}},
    "/plans": {"post": {"requestBody": {"$ref": "#/components/requestBodies/Plan"}, "responses": {"204": {"description": "ok"}}}}
  },
  "components": {
    "schemas": {
      "Size": {"type": "string", "default": "large"},
      "PlanInput": {"type": "object", "properties": {"size": {"$ref": "#/components/schemas/Size", "default": "small"}}}
    },
    "requestBodies": {
      "Plan": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/PlanInput"}}}}
    }
  }
}`)

	// Two annotated operations plus four dropped defaults.
	require.Equal(t, 2+4, apply(t, &ReturnTypeAnnotator{}, doc))

	props := "#/paths/~1servers/post/requestBody/content/application~1json/schema/properties/"
	requireJSON(t, `{"$ref": "#/components/schemas/Size"}`, lookup(t, doc, props+"raw"))
	requireJSON(t, `{"$ref": "#/components/schemas/Size"}`, lookup(t, doc, props+"wrapped"))
	requireJSON(t, `{"allOf": [{"$ref": "#/components/schemas/Size"}, {"description": "d"}]}`, lookup(t, doc, props+"described"))
	requireJSON(t, `{"type": "string", "default": "keep"}`, lookup(t, doc, props+"inline"))
	requireJSON(t, `{"$ref": "#/components/schemas/Size"}`, lookup(t, doc, "#/components/schemas/PlanInput/properties/size"))
	require.Equal(t, "large", lookup(t, doc, "#/components/schemas/Size/default").Value)
}

func TestReturnTypeAnnotatorAfterRefNormalizer(t *testing.T) {
	doc := load(t, `{
  "openapi": "3.0.3",
  "paths": {
    "/users": {"get": {"responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {
      "type": "object",
      "properties": {
        "items": {"type": "array", "items": {"$ref": "#/components/schemas/User", "description": "A user"}},
        "meta": {"type": "object"}
      }
    }}}}}}},
    "/teams": {"get": {"responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {
      "$ref": "#/components/schemas/Users"
    }}}}}}},
    "/mixed": {"get": {"responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {
      "type": "object",
      "properties": {
        "items": {"type": "array", "items": {"allOf": [{"$ref": "#/components/schemas/User"}, {"$ref": "#/components/schemas/Team"}]}}
      }
    }}}}}}}
  },
  "components": {"schemas": {
    "User": {"type": "object"},
    "Team": {"type": "object"},
    "Users": {"type": "array", "items": {"$ref": "#/components/schemas/User", "readOnly": true}}
  }}
}`)

	ctx, _ := testContext(t)
	_, err := NewPipeline(RefNormalizer{}, &ReturnTypeAnnotator{}).Run(ctx, doc, nil)
	require.NoError(t, err)

	tests := []struct {
		op   string
		want []string
	}{
		{"users", []string{"User[]"}},
		{"teams", []string{"User[]"}},
		{"mixed", []string{"object"}},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			require.Equal(t, tt.want, model.Strings(lookup(t, doc, "#/paths/~1"+tt.op+"/get/"+keyReturnTypes)))
		})
	}
}

func TestElementRef(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
		ok   bool
	}{
		{"bare reference", `{"$ref": "#/components/schemas/User"}`, "#/components/schemas/User", true},
		{"normalized siblings", `{"allOf": [{"$ref": "#/components/schemas/User"}, {"description": "x"}]}`, "#/components/schemas/User", true},
		{"two references", `{"allOf": [{"$ref": "#/components/schemas/A"}, {"$ref": "#/components/schemas/B"}]}`, "", false},
		{"no reference", `{"allOf": [{"type": "object"}]}`, "", false},
		{"inline", `{"type": "string"}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := elementRef(fragment(t, tt.src))
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, ref)
		})
	}
}
