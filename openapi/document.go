package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a finalized OpenAPI document. It is produced by
// Builder.Finalize, never changes afterwards and is safe for concurrent
// reads. Accessors return copies.
//
// See: https://spec.openapis.org/oas/v3.0.3#openapi-object
type Document struct {
	spec *spec
}

// Serialize renders the document as indented JSON. Output is deterministic:
// component schemas keep first-discovery order and all other maps are
// emitted with sorted keys.
func Serialize(doc *Document) ([]byte, error) {
	if doc == nil || doc.spec == nil {
		return nil, fmt.Errorf("openapi: serialize nil document")
	}
	return json.MarshalIndent(doc.spec, "", "  ")
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.spec)
}

// JSON is a shorthand for Serialize.
func (d *Document) JSON() ([]byte, error) {
	return Serialize(d)
}

// YAML renders the document as YAML with the same key order as JSON.
func (d *Document) YAML() ([]byte, error) {
	data, err := json.Marshal(d.spec)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	plainStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// plainStyle drops the flow and quoting styles inherited from JSON input so
// the encoder emits block YAML, quoting only where a value requires it.
func plainStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		plainStyle(c)
	}
}

// Version returns the OpenAPI version of the document.
func (d *Document) Version() string {
	return d.spec.OpenAPI
}

// Info returns a copy of the document info.
func (d *Document) Info() Info {
	var info Info
	_ = cloneJSON(d.spec.Info, &info)
	return info
}

// Servers returns a copy of the document-level servers.
func (d *Document) Servers() []Server {
	var servers []Server
	_ = cloneJSON(d.spec.Servers, &servers)
	return servers
}

// Tags returns a copy of the document tags, sorted by name.
func (d *Document) Tags() []Tag {
	var tags []Tag
	_ = cloneJSON(d.spec.Tags, &tags)
	return tags
}

// Security returns a copy of the document-level security requirements.
func (d *Document) Security() []SecurityRequirement {
	var reqs []SecurityRequirement
	_ = cloneJSON(d.spec.Security, &reqs)
	return reqs
}

// Paths returns the documented paths in sorted order.
func (d *Document) Paths() []string {
	paths := make([]string, 0, len(d.spec.Paths))
	for p := range d.spec.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// PathItem returns a copy of the path item for an OpenAPI path.
func (d *Document) PathItem(path string) (*PathItem, bool) {
	item, ok := d.spec.Paths[path]
	if !ok {
		return nil, false
	}
	out := &PathItem{}
	if err := cloneJSON(item, out); err != nil {
		return nil, false
	}
	return out, true
}

// Operation returns a copy of the operation for method on an OpenAPI path.
func (d *Document) Operation(path, method string) (*Operation, bool) {
	item, ok := d.PathItem(path)
	if !ok {
		return nil, false
	}
	op := operationFor(item, strings.ToUpper(method))
	return op, op != nil
}

// SchemaNames returns the component schema names in first-discovery order.
func (d *Document) SchemaNames() []string {
	if d.spec.Components == nil || d.spec.Components.Schemas == nil {
		return nil
	}
	return d.spec.Components.Schemas.Keys()
}

// Schema returns a copy of the named component schema.
func (d *Document) Schema(name string) (*Schema, bool) {
	if d.spec.Components == nil || d.spec.Components.Schemas == nil {
		return nil, false
	}
	s, ok := d.spec.Components.Schemas.Get(name)
	if !ok {
		return nil, false
	}
	out := &Schema{}
	if err := cloneJSON(s, out); err != nil {
		return nil, false
	}
	return out, true
}

// SecuritySchemeNames returns the security scheme names in sorted order.
func (d *Document) SecuritySchemeNames() []string {
	if d.spec.Components == nil {
		return nil
	}
	names := make([]string, 0, len(d.spec.Components.SecuritySchemes))
	for name := range d.spec.Components.SecuritySchemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SecurityScheme returns a copy of the named security scheme.
func (d *Document) SecurityScheme(name string) (*SecurityScheme, bool) {
	if d.spec.Components == nil {
		return nil, false
	}
	s, ok := d.spec.Components.SecuritySchemes[name]
	if !ok {
		return nil, false
	}
	out := &SecurityScheme{}
	if err := cloneJSON(s, out); err != nil {
		return nil, false
	}
	return out, true
}

// validateDocument checks that every schema reference points to a stored
// component and every security requirement names a declared scheme.
func validateDocument(sp *spec) error {
	var schemas *SchemaMap
	var schemes map[string]*SecurityScheme
	if sp.Components != nil {
		schemas = sp.Components.Schemas
		schemes = sp.Components.SecuritySchemes
	}

	checkRef := func(where string) func(*Schema) error {
		return func(s *Schema) error {
			if s.Ref == "" {
				return nil
			}
			name := s.RefName()
			if name == "" {
				return fmt.Errorf("%w: %s: %q is not a component schema reference", ErrUnresolvedReference, where, s.Ref)
			}
			if schemas == nil {
				return fmt.Errorf("%w: %s: %q", ErrUnresolvedReference, where, s.Ref)
			}
			if _, ok := schemas.Get(name); !ok {
				return fmt.Errorf("%w: %s: %q", ErrUnresolvedReference, where, s.Ref)
			}
			return nil
		}
	}

	checkSecurity := func(where string, reqs []SecurityRequirement) error {
		for _, req := range reqs {
			for name := range req {
				if _, ok := schemes[name]; !ok {
					return fmt.Errorf("%w: %s: security scheme %q", ErrUnresolvedReference, where, name)
				}
			}
		}
		return nil
	}

	if err := checkSecurity("document", sp.Security); err != nil {
		return err
	}

	if schemas != nil {
		for _, name := range schemas.Keys() {
			s, _ := schemas.Get(name)
			if err := walkSchema(s, checkRef("components.schemas."+name)); err != nil {
				return err
			}
		}
	}

	paths := make([]string, 0, len(sp.Paths))
	for p := range sp.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := sp.Paths[path]
		for _, p := range item.Parameters {
			if err := walkSchema(p.Schema, checkRef(path)); err != nil {
				return err
			}
		}
		for _, op := range item.operations() {
			if op == nil {
				continue
			}
			if err := walkOperation(op, checkRef(path)); err != nil {
				return err
			}
			if err := checkSecurity(path, op.Security); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkOperation(op *Operation, fn func(*Schema) error) error {
	for _, p := range op.Parameters {
		if err := walkSchema(p.Schema, fn); err != nil {
			return err
		}
	}
	if op.RequestBody != nil {
		for _, mt := range op.RequestBody.Content {
			if err := walkSchema(mt.Schema, fn); err != nil {
				return err
			}
		}
	}
	for _, resp := range op.Responses {
		for _, mt := range resp.Content {
			if err := walkSchema(mt.Schema, fn); err != nil {
				return err
			}
		}
		for _, h := range resp.Headers {
			if err := walkSchema(h.Schema, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// walkSchema calls fn for s and every schema nested in it.
func walkSchema(s *Schema, fn func(*Schema) error) error {
	if s == nil {
		return nil
	}
	if err := fn(s); err != nil {
		return err
	}

	nested := []*Schema{s.Items, s.AdditionalProperties, s.Not}
	nested = append(nested, s.AllOf...)
	nested = append(nested, s.OneOf...)
	nested = append(nested, s.AnyOf...)
	for _, p := range s.Properties {
		nested = append(nested, p)
	}
	for _, n := range nested {
		if err := walkSchema(n, fn); err != nil {
			return err
		}
	}
	return nil
}

// cloneJSON deep copies src into dst through its JSON form.
func cloneJSON(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// sameJSON reports whether a and b serialize identically.
func sameJSON(a, b any) bool {
	da, err := json.Marshal(a)
	if err != nil {
		return false
	}
	db, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(da, db)
}
