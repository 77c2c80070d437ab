package openapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Test struct {
	Test string `json:"test"`
}

type PetKind string

func (PetKind) OpenAPIEnum() []any { return []any{"cat", "dog"} }

type Owner struct {
	Name string `json:"name"`
}

type Pet struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name" openapi:"minLength=1,maxLength=64"`
	Kind   PetKind   `json:"kind"`
	Owner  *Owner    `json:"owner,omitempty"`
	Tags   []string  `json:"tags,omitempty"`
	BornAt time.Time `json:"bornAt"`
}

type CreatePet struct {
	Name string  `json:"name"`
	Kind PetKind `json:"kind"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (APIError) OpenAPIErrors() []ErrorStatus {
	return []ErrorStatus{
		{Code: 404, Description: "Pet not found"},
		{Code: 409, Description: "Pet already exists"},
		{Code: 500},
	}
}

type TreeNode struct {
	Value    int        `json:"value"`
	Children []TreeNode `json:"children,omitempty"`
}

type Employee struct {
	Name       string      `json:"name"`
	Department *Department `json:"department,omitempty"`
}

type Department struct {
	Manager *Employee  `json:"manager,omitempty"`
	Staff   []Employee `json:"staff"`
}

type PetFilter struct {
	Limit int     `query:"limit,omitempty" openapi:"minimum=1,maximum=100,description=Page size"`
	Kind  PetKind `json:"kind,omitempty"`
}

type PetID struct {
	ID uuid.UUID `path:"id"`
}

type RequestMeta struct {
	RequestID string `header:"X-Request-ID"`
	Trace     string `header:"X-Trace,omitempty"`
}

type bearerAuth struct{}

func (bearerAuth) OpenAPISecurity() (string, *SecurityScheme) {
	return "bearer", &SecurityScheme{Type: "http", Scheme: "bearer", BearerFormat: "JWT"}
}

type oauthAuth struct{}

func (oauthAuth) OpenAPISecurity() (string, *SecurityScheme) {
	return "oauth", &SecurityScheme{
		Type: "oauth2",
		Flows: &OAuthFlows{ClientCredentials: &OAuthFlow{
			TokenURL: "https://auth.example.com/token",
			Scopes:   map[string]string{"pets:write": "Modify pets"},
		}},
	}
}

func (oauthAuth) OpenAPIScopes() []string { return []string{"pets:write"} }

// testInfo is the info block shared by builder tests.
var testInfo = Info{Title: "Test API", Version: "1.0.0"}

// toMap decodes the JSON form of v into a generic map.
func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

// mustJSON returns the compact JSON form of v.
func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
