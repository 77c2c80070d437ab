package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoContent(t *testing.T) {
	t.Run("maps to 204 without content", func(t *testing.T) {
		assert.JSONEq(t, `{"204": {}}`, mustJSON(t, NoContent{}.OpenAPIResponses(0)))
	})

	t.Run("emits no schema", func(t *testing.T) {
		name, s := NoContent{}.OpenAPISchema()
		assert.Empty(t, name)
		assert.Nil(t, s)
		assert.Nil(t, NoContent{}.OpenAPIChildren())
	})

	t.Run("status override", func(t *testing.T) {
		assert.JSONEq(t, `{"205": {}}`, mustJSON(t, NoContent{}.OpenAPIResponses(205)))
	})
}

func TestBodyResponders(t *testing.T) {
	tests := []struct {
		name   string
		r      Responder
		status string
	}{
		{"OK", OK[Test]{}, "200"},
		{"Created", Created[Test]{}, "201"},
		{"Accepted", Accepted[Test]{}, "202"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := `{"` + tt.status + `": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Test"}}}}}`
			assert.JSONEq(t, want, mustJSON(t, tt.r.OpenAPIResponses(0)))

			name, s := tt.r.OpenAPISchema()
			assert.Equal(t, "Test", name)
			assert.Contains(t, s.Properties, "test")
		})
	}

	t.Run("inline body", func(t *testing.T) {
		assert.JSONEq(t,
			`{"201": {"content": {"application/json": {"schema": {"type": "array", "items": {"type": "string"}}}}}}`,
			mustJSON(t, Created[[]string]{}.OpenAPIResponses(0)))
	})

	t.Run("status override", func(t *testing.T) {
		out := Accepted[Test]{}.OpenAPIResponses(207)
		assert.Contains(t, out, "207")
		assert.Len(t, out, 1)
	})

	t.Run("delegates children", func(t *testing.T) {
		reg := NewRegistry()
		_, err := reg.Resolve(OK[[]Pet]{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Pet", "PetKind", "Owner"}, reg.Names())
	})
}

func TestRequestBodies(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		rb := Body[CreatePet]{}.OpenAPIRequestBody()
		assert.JSONEq(t,
			`{"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/CreatePet"}}}}`,
			mustJSON(t, rb))
	})

	t.Run("form body", func(t *testing.T) {
		rb := Form[CreatePet]{}.OpenAPIRequestBody()
		require.Contains(t, rb.Content, "application/x-www-form-urlencoded")
		assert.Equal(t, "CreatePet", rb.Content["application/x-www-form-urlencoded"].Schema.RefName())
		assert.True(t, rb.Required)
	})
}
