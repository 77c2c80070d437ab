package openapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func petDocument(t *testing.T) *Document {
	t.Helper()
	b := NewBuilder(testInfo)
	registerPetRoutes(t, b)
	doc, err := b.Finalize()
	require.NoError(t, err)
	return doc
}

func TestSerialize(t *testing.T) {
	t.Run("nil document", func(t *testing.T) {
		_, err := Serialize(nil)
		assert.Error(t, err)
	})

	t.Run("indented json", func(t *testing.T) {
		data, err := Serialize(petDocument(t))
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
		assert.True(t, strings.HasPrefix(string(data), "{\n  \"openapi\": \"3.0.3\""))
	})

	t.Run("components keep discovery order", func(t *testing.T) {
		data, err := Serialize(petDocument(t))
		require.NoError(t, err)
		s := string(data)
		assert.Less(t, strings.Index(s, `"PagePet": {`), strings.Index(s, `"Pet": {`))
		assert.Less(t, strings.Index(s, `"Pet": {`), strings.Index(s, `"Owner": {`))
		assert.Less(t, strings.Index(s, `"APIError": {`), strings.Index(s, `"TreeNode": {`))
	})

	t.Run("json helpers agree", func(t *testing.T) {
		doc := petDocument(t)
		indented, err := doc.JSON()
		require.NoError(t, err)
		compact, err := json.Marshal(doc)
		require.NoError(t, err)
		assert.JSONEq(t, string(indented), string(compact))
	})
}

func TestDocumentYAML(t *testing.T) {
	doc := petDocument(t)
	data, err := doc.YAML()
	require.NoError(t, err)
	out := string(data)

	t.Run("block style", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(out, "openapi: 3.0.3\n"))
		assert.Contains(t, out, "info:\n  title: Test API\n  version: 1.0.0\n")
		assert.NotContains(t, out, ": {")
		assert.NotContains(t, out, `"openapi"`)
	})

	t.Run("same key order as json", func(t *testing.T) {
		assert.Less(t, strings.Index(out, "info:"), strings.Index(out, "paths:"))
		assert.Less(t, strings.Index(out, "paths:"), strings.Index(out, "components:"))
		assert.Less(t, strings.Index(out, "    PagePet:"), strings.Index(out, "    Pet:"))
	})

	t.Run("round trip", func(t *testing.T) {
		var parsed map[string]any
		require.NoError(t, yaml.Unmarshal(data, &parsed))

		paths := parsed["paths"].(map[string]any)
		assert.Contains(t, paths, "/pets")
		assert.Contains(t, paths, "/pets/{id}")

		created := paths["/pets"].(map[string]any)["post"].(map[string]any)["responses"].(map[string]any)["201"].(map[string]any)
		schema := created["content"].(map[string]any)["application/json"].(map[string]any)["schema"].(map[string]any)
		assert.Equal(t, "#/components/schemas/Pet", schema["$ref"])
	})
}

func TestDocumentImmutable(t *testing.T) {
	doc := petDocument(t)
	before, err := Serialize(doc)
	require.NoError(t, err)

	info := doc.Info()
	info.Title = "changed"
	tags := doc.Tags()
	tags[0].Name = "changed"
	item, _ := doc.PathItem("/pets")
	item.Get = nil
	scheme, _ := doc.SecurityScheme("bearer")
	scheme.Scheme = "basic"

	after, err := Serialize(doc)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestDocumentOperationLookup(t *testing.T) {
	doc := petDocument(t)

	op, ok := doc.Operation("/pets", "post")
	require.True(t, ok)
	assert.Equal(t, "createPet", op.OperationID)

	item, ok := doc.PathItem("/pets")
	require.True(t, ok)
	assert.NotNil(t, item.Get)
	assert.NotNil(t, item.Post)
	assert.Nil(t, item.Delete)

	_, ok = doc.Operation("/pets", http.MethodTrace)
	assert.False(t, ok)
}

func TestEmptyDocumentAccessors(t *testing.T) {
	doc, err := NewBuilder(testInfo).Finalize()
	require.NoError(t, err)

	assert.Nil(t, doc.SchemaNames())
	assert.Nil(t, doc.SecuritySchemeNames())
	assert.Empty(t, doc.Paths())
	assert.Empty(t, doc.Tags())
	assert.Empty(t, doc.Servers())

	_, ok := doc.Schema("Pet")
	assert.False(t, ok)
}

func TestValidateDocument(t *testing.T) {
	components := &Components{Schemas: NewSchemaMap()}
	components.Schemas.Set("Node", &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"next": {AllOf: []*Schema{RefSchema("Node")}, Nullable: true},
		},
	})

	t.Run("valid", func(t *testing.T) {
		sp := &spec{
			Paths: map[string]*PathItem{
				"/nodes": {Get: &Operation{Responses: Responses{
					"200": {Content: map[string]*MediaType{contentTypeJSON: {Schema: &Schema{Type: "array", Items: RefSchema("Node")}}}},
				}}},
			},
			Components: components,
		}
		assert.NoError(t, validateDocument(sp))
	})

	t.Run("dangling reference in component", func(t *testing.T) {
		broken := &Components{Schemas: NewSchemaMap()}
		broken.Schemas.Set("A", &Schema{Type: "object", Properties: map[string]*Schema{"b": RefSchema("B")}})
		err := validateDocument(&spec{Components: broken})
		assert.ErrorIs(t, err, ErrUnresolvedReference)
		assert.Contains(t, err.Error(), "components.schemas.A")
	})

	t.Run("dangling reference in header", func(t *testing.T) {
		sp := &spec{
			Paths: map[string]*PathItem{
				"/a": {Get: &Operation{Responses: Responses{
					"200": {Headers: map[string]*Header{"X-Next": {Schema: RefSchema("Cursor")}}},
				}}},
			},
			Components: components,
		}
		assert.ErrorIs(t, validateDocument(sp), ErrUnresolvedReference)
	})

	t.Run("dangling reference in path item parameter", func(t *testing.T) {
		sp := &spec{
			Paths: map[string]*PathItem{
				"/a": {Parameters: []*Parameter{{Name: "id", In: InPath, Required: true, Schema: RefSchema("ID")}}},
			},
		}
		assert.ErrorIs(t, validateDocument(sp), ErrUnresolvedReference)
	})
}
