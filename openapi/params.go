package openapi

import "reflect"

// Parameter locations.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-locations
const (
	InQuery  = "query"
	InPath   = "path"
	InHeader = "header"
	InCookie = "cookie"
)

// QueryParams describes query parameters taken from the fields of struct T. The
// name comes from the `query` tag, then the `json` tag, then the field name.
type QueryParams[T any] struct {
	Value T
}

// OpenAPISchema implements Component. Parameter wrappers emit no schema.
func (QueryParams[T]) OpenAPISchema() (string, *Schema) { return "", nil }

// OpenAPIChildren implements Component.
func (QueryParams[T]) OpenAPIChildren() []Component { return parameterChildren(structType[T](), InQuery) }

// OpenAPIParameters implements ParameterComponent.
func (QueryParams[T]) OpenAPIParameters() []*Parameter { return structParameters(structType[T](), InQuery) }

// PathParams describes path parameters taken from the fields of struct T. Path
// parameters are always required.
type PathParams[T any] struct {
	Value T
}

// OpenAPISchema implements Component. Parameter wrappers emit no schema.
func (PathParams[T]) OpenAPISchema() (string, *Schema) { return "", nil }

// OpenAPIChildren implements Component.
func (PathParams[T]) OpenAPIChildren() []Component { return parameterChildren(structType[T](), InPath) }

// OpenAPIParameters implements ParameterComponent.
func (PathParams[T]) OpenAPIParameters() []*Parameter { return structParameters(structType[T](), InPath) }

// HeaderParams describes header parameters taken from the fields of struct T.
type HeaderParams[T any] struct {
	Value T
}

// OpenAPISchema implements Component. Parameter wrappers emit no schema.
func (HeaderParams[T]) OpenAPISchema() (string, *Schema) { return "", nil }

// OpenAPIChildren implements Component.
func (HeaderParams[T]) OpenAPIChildren() []Component { return parameterChildren(structType[T](), InHeader) }

// OpenAPIParameters implements ParameterComponent.
func (HeaderParams[T]) OpenAPIParameters() []*Parameter { return structParameters(structType[T](), InHeader) }

// CookieParams describes cookie parameters taken from the fields of struct T.
type CookieParams[T any] struct {
	Value T
}

// OpenAPISchema implements Component. Parameter wrappers emit no schema.
func (CookieParams[T]) OpenAPISchema() (string, *Schema) { return "", nil }

// OpenAPIChildren implements Component.
func (CookieParams[T]) OpenAPIChildren() []Component { return parameterChildren(structType[T](), InCookie) }

// OpenAPIParameters implements ParameterComponent.
func (CookieParams[T]) OpenAPIParameters() []*Parameter { return structParameters(structType[T](), InCookie) }

func structType[T any]() reflect.Type {
	return deref(reflect.TypeFor[T]())
}

// structParameters builds one parameter per exported field of t. Non-struct
// types yield no parameters. Fields of untagged embedded structs are
// promoted and names are resolved like encoding/json does.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-object
func structParameters(t reflect.Type, in string) []*Parameter {
	if t.Kind() != reflect.Struct {
		return nil
	}

	var params []*Parameter
	for _, f := range dominantFields(parameterFields(t, in, 0, map[reflect.Type]bool{}, nil)) {
		schema := fieldSchema(f.field.Type)
		if schema == nil {
			continue
		}
		schema = applyOpenAPITag(schema, f.field.Tag.Get("openapi"))

		param := &Parameter{
			Name:        f.name,
			In:          in,
			Description: schema.Description,
			Deprecated:  schema.Deprecated,
			Required:    in == InPath || (!f.opts.omitempty && f.field.Type.Kind() != reflect.Pointer),
			Schema:      schema,
		}
		schema.Description = ""
		schema.Deprecated = false

		params = append(params, param)
	}
	return params
}

// parameterChildren returns the components used by the parameters of t.
func parameterChildren(t reflect.Type, in string) []Component {
	if t.Kind() != reflect.Struct {
		return nil
	}

	var out []Component
	for _, f := range dominantFields(parameterFields(t, in, 0, map[reflect.Type]bool{}, nil)) {
		out = appendChild(out, f.field.Type)
	}
	return out
}

func parameterFields(t reflect.Type, in string, depth int, embedding map[reflect.Type]bool, out []jsonField) []jsonField {
	if embedding[t] {
		return out
	}
	embedding[t] = true
	defer delete(embedding, t)

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() && !field.Anonymous {
			continue
		}

		if field.Anonymous && field.Tag.Get(in) == "" && field.Tag.Get("json") == "" {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if promoted(ft) {
				out = parameterFields(ft, in, depth+1, embedding, out)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}

		name, tagged, omit := parameterName(field, in)
		if name == "-" {
			continue
		}
		out = append(out, jsonField{
			name:   name,
			field:  field,
			opts:   jsonTagOpts{omitempty: omit},
			depth:  depth,
			tagged: tagged,
		})
	}
	return out
}

// parameterName returns the parameter name of field, whether a tag chose
// it and whether the parameter is optional according to its tags.
func parameterName(field reflect.StructField, in string) (string, bool, bool) {
	if tag := field.Tag.Get(in); tag != "" {
		name, opts := parseJSONTag(tag)
		if name != "" {
			return name, true, opts.omitempty
		}
	}
	name, opts := parseJSONTag(field.Tag.Get("json"))
	if name == "" {
		return field.Name, false, opts.omitempty
	}
	return name, true, opts.omitempty
}
