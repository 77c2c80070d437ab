package openapi

// Component is implemented by types that contribute a schema to the document.
// Most types never implement it by hand: Describe derives it from the Go type
// via reflection. Implement it to take full control of a type's schema.
//
// OpenAPISchema returns the type's own schema together with its component
// name. An empty name marks the schema as anonymous: it is inlined where the
// type is used and never stored in components. A nil schema means the type
// emits no schema of its own (pass-through wrappers).
//
// OpenAPIChildren returns the components directly contained by the type.
// Implementations must not expand children transitively: the walk is driven
// by the Registry, which stops at names already in progress, so recursive
// types stay finite.
//
// See: https://spec.openapis.org/oas/v3.0.3#components-object (schemas)
type Component interface {
	OpenAPISchema() (string, *Schema)
	OpenAPIChildren() []Component
}

// Responder is implemented by types that represent a response payload.
// OpenAPIResponses returns the responses the type produces. A non-zero
// status overrides the status the type would pick on its own.
//
// See: https://spec.openapis.org/oas/v3.0.3#responses-object
type Responder interface {
	Component
	OpenAPIResponses(status int) Responses
}

// ErrorStatus declares one status code a fallible error type can produce.
type ErrorStatus struct {
	Code        int
	Description string
}

// ErrorResponder is implemented by error types returned by handlers. Each
// declared status becomes one response of the operation. When the type also
// has a schema, the responses carry it as JSON content.
type ErrorResponder interface {
	OpenAPIErrors() []ErrorStatus
}

// ParameterComponent is implemented by handler inputs that map to
// parameters rather than to a request body.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-object
type ParameterComponent interface {
	Component
	OpenAPIParameters() []*Parameter
}

// RequestBodyComponent is implemented by handler inputs that describe their
// own request body.
//
// See: https://spec.openapis.org/oas/v3.0.3#request-body-object
type RequestBodyComponent interface {
	Component
	OpenAPIRequestBody() *RequestBody
}

// SecurityComponent is implemented by handler inputs that represent an
// authentication scheme. The scheme is contributed to components and the
// operation requires it by name.
//
// See: https://spec.openapis.org/oas/v3.0.3#security-scheme-object
type SecurityComponent interface {
	OpenAPISecurity() (string, *SecurityScheme)
}

// SecurityScoper is optionally implemented by a SecurityComponent to list
// the scopes an operation requires.
type SecurityScoper interface {
	OpenAPIScopes() []string
}

// Exampler can be implemented by types to provide an example value for
// their component schema.
//
//	func (u User) OpenAPIExample() any {
//	    return User{ID: "550e8400-e29b-41d4-a716-446655440000", Name: "Alice"}
//	}
type Exampler interface {
	OpenAPIExample() any
}

// SchemaNamer can be implemented by types to choose their component name.
type SchemaNamer interface {
	OpenAPISchemaName() string
}

// Enumer can be implemented by named types to restrict their values. Such
// types become enum components.
//
//	type Status string
//
//	func (Status) OpenAPIEnum() []any { return []any{"active", "disabled"} }
type Enumer interface {
	OpenAPIEnum() []any
}

// OneOfer can be implemented by named types whose value is one of several
// variants. Each returned value stands for one variant type.
type OneOfer interface {
	OpenAPIOneOf() []any
}

// NamedSchema pairs a component name with its schema.
type NamedSchema struct {
	Name   string
	Schema *Schema
}

// ChildSchemas returns every named schema nested anywhere inside c, in
// discovery order, excluding c itself. Each name and shape pair appears once,
// so the walk ends on recursive types. A name listed twice carries two
// different shapes, which the Registry rejects as a conflict.
func ChildSchemas(c Component) []NamedSchema {
	if c == nil {
		return nil
	}

	seen := map[string][]*Schema{}
	visited := func(name string, schema *Schema) bool {
		for _, s := range seen[name] {
			if sameShape(s, schema) {
				return true
			}
		}
		seen[name] = append(seen[name], schema)
		return false
	}

	if self, schema := c.OpenAPISchema(); self != "" {
		visited(self, schema)
	}

	var out []NamedSchema
	var walk func(children []Component)
	walk = func(children []Component) {
		for _, child := range children {
			if child == nil {
				continue
			}
			name, schema := child.OpenAPISchema()
			if name != "" {
				if visited(name, schema) {
					continue
				}
				if schema != nil {
					out = append(out, NamedSchema{Name: name, Schema: schema})
				}
			}
			walk(child.OpenAPIChildren())
		}
	}
	walk(c.OpenAPIChildren())

	return out
}

// usage returns the schema to embed where c is used: a reference for named
// components, the inline schema otherwise.
func usage(c Component) *Schema {
	if c == nil {
		return nil
	}
	name, schema := c.OpenAPISchema()
	if schema == nil {
		return nil
	}
	if name != "" {
		return RefSchema(name)
	}
	return schema
}
