package openapi

import (
	"encoding/json"
	"log/slog"
)

// Registry stores named component schemas and resolves contributed
// components into references.
//
// A Registry is owned by a single Builder and is not safe for concurrent use.
//
// See: https://spec.openapis.org/oas/v3.0.3#components-object (schemas)
type Registry struct {
	schemas    *SchemaMap
	inProgress map[string]bool
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas:    NewSchemaMap(),
		inProgress: make(map[string]bool),
		logger:     slog.New(slog.DiscardHandler),
	}
}

// Lookup returns the schema stored under name.
func (r *Registry) Lookup(name string) (*Schema, bool) {
	return r.schemas.Get(name)
}

// Names returns the stored schema names in first-discovery order.
func (r *Registry) Names() []string {
	return r.schemas.Keys()
}

// Len returns the number of stored schemas.
func (r *Registry) Len() int {
	return r.schemas.Len()
}

// Resolve walks c into the registry and returns the schema callers should
// embed where c is used:
//
//   - anonymous schemas are returned inline and never stored; their children
//     are still resolved so nested references stay valid
//   - a name already stored with an equal shape yields a reference
//   - a name already stored with a different shape yields a
//     *SchemaConflictError and leaves the stored entry untouched
//   - a new name is stored and marked in progress, every child is resolved,
//     then a reference is returned
//
// Re-entering a name that is still in progress is checked against the stored
// entry like any other use, then yields a reference, which ends the walk over
// recursive types. A component without a schema of its own yields nil after
// its children are resolved.
func (r *Registry) Resolve(c Component) (*Schema, error) {
	if c == nil {
		return nil, nil
	}

	name, schema := c.OpenAPISchema()

	if name == "" {
		if err := r.resolveChildren(c); err != nil {
			return nil, err
		}
		return schema, nil
	}

	if schema == nil {
		if err := r.resolveChildren(c); err != nil {
			return nil, err
		}
		return nil, nil
	}

	// An in-progress name is already stored, so a recursive re-entry is
	// compared like any other contribution.
	if existing, ok := r.schemas.Get(name); ok {
		if !sameShape(existing, schema) {
			return nil, &SchemaConflictError{Name: name, Existing: existing, Incoming: schema}
		}
		if r.inProgress[name] {
			r.logger.Debug("schema reference to in-progress component", "schema", name)
		}
		return RefSchema(name), nil
	}

	r.schemas.Set(name, schema)
	r.inProgress[name] = true
	r.logger.Debug("schema registered", "schema", name)

	err := r.resolveChildren(c)
	delete(r.inProgress, name)
	if err != nil {
		return nil, err
	}

	return RefSchema(name), nil
}

func (r *Registry) resolveChildren(c Component) error {
	for _, child := range c.OpenAPIChildren() {
		if _, err := r.Resolve(child); err != nil {
			return err
		}
	}
	return nil
}

// snapshot returns a deep copy of the stored schemas.
func (r *Registry) snapshot() (*SchemaMap, error) {
	out := NewSchemaMap()
	data, err := json.Marshal(r.schemas)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// sameShape reports whether two schemas serialize identically. Map keys are
// sorted by encoding/json, so the comparison does not depend on map order.
func sameShape(a, b *Schema) bool {
	return sameJSON(a, b)
}
