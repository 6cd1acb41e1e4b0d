package passes

import (
	"testing"

	"github.com/kolah/sdkprep/internal/model"
	"github.com/kolah/sdkprep/internal/naming"
	"github.com/stretchr/testify/require"
)

const renameFixture = `{
  "openapi": "3.0.3",
  "tags": [{"name": "ssh_keys"}, {"name": "servers"}, {"name": "Servers", "description": "dup"}],
  "paths": {
    "/tokens": {"get": {
      "tags": ["ssh_keys", "SSHKeys"],
      "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/api_token"}}}}}
    }}
  },
  "components": {"schemas": {
    "api_token": {"type": "object", "properties": {"owner": {"$ref": "#/components/schemas/ssh_key"}}},
    "ssh_key": {"type": "object", "example": {"ref": "#/components/schemas/api_token"}},
    "ApiToken2": {"type": "object"},
    "pet": {
      "oneOf": [{"$ref": "#/components/schemas/ssh_key"}],
      "discriminator": {"propertyName": "kind", "mapping": {"key": "#/components/schemas/ssh_key"}}
    },
    "Pet": {"type": "object"}
  }}
}`

func TestSchemaRenamer(t *testing.T) {
	doc := load(t, renameFixture)
	r := &SchemaRenamer{Names: naming.NewCanonicalizer(naming.DefaultAcronyms)}

	ctx, hook := testContext(t)
	n, err := r.Apply(ctx, doc)
	require.NoError(t, err)

	// api_token and ssh_key renamed, three $refs and one mapping value rewritten.
	require.Equal(t, 2+4, n)
	require.Equal(t, []string{"ApiToken", "SSHKey", "ApiToken2", "pet", "Pet"}, model.Keys(doc.Schemas()))
	require.Equal(t, []string{"rename target already exists"}, skips(hook))

	require.Equal(t, "#/components/schemas/ApiToken",
		model.Ref(lookup(t, doc, "#/paths/~1tokens/get/responses/200/content/application~1json/schema")))
	require.Equal(t, "#/components/schemas/SSHKey",
		model.Ref(lookup(t, doc, "#/components/schemas/ApiToken/properties/owner")))
	require.Equal(t, "#/components/schemas/SSHKey",
		lookup(t, doc, "#/components/schemas/pet/discriminator/mapping/key").Value)
	require.Equal(t, "#/components/schemas/api_token",
		lookup(t, doc, "#/components/schemas/SSHKey/example/ref").Value, "only $ref keys are references")

	n, err = r.Apply(ctx, doc)
	require.NoError(t, err)
	require.Zero(t, n, "renaming must be idempotent")
}

func TestSchemaRenamerWithoutSchemas(t *testing.T) {
	doc := load(t, `{"openapi": "3.0.3", "paths": {}}`)
	r := &SchemaRenamer{Names: naming.NewCanonicalizer(nil)}

	ctx, hook := testContext(t)
	n, err := r.Apply(ctx, doc)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, skips(hook), 1)
}

func TestTagRenamer(t *testing.T) {
	doc := load(t, renameFixture)
	r := &TagRenamer{Names: naming.NewCanonicalizer(naming.DefaultAcronyms)}

	n := apply(t, r, doc)
	// ssh_keys and servers renamed, duplicate Servers dropped, one op tag
	// renamed and the resulting duplicate dropped.
	require.Equal(t, 5, n)

	requireJSON(t, `[{"name": "SSHKeys"}, {"name": "Servers"}]`, model.Get(doc.Root, "tags"))
	require.Equal(t, []string{"SSHKeys"}, model.Strings(lookup(t, doc, "#/paths/~1tokens/get/tags")))

	require.Zero(t, apply(t, r, doc))
}
