package openapi

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	componentType   = reflect.TypeFor[Component]()
	enumerType      = reflect.TypeFor[Enumer]()
	oneOferType     = reflect.TypeFor[OneOfer]()
	namerType       = reflect.TypeFor[SchemaNamer]()
	examplerType    = reflect.TypeFor[Exampler]()
	timeType        = reflect.TypeFor[time.Time]()
	uuidType        = reflect.TypeFor[uuid.UUID]()
	rawMessageType  = reflect.TypeFor[json.RawMessage]()
	recursiveTypes  sync.Map // reflect.Type -> bool
	primitiveTitles = map[string]string{
		"int": "Int", "int8": "Int8", "int16": "Int16", "int32": "Int32", "int64": "Int64",
		"uint": "Uint", "uint8": "Uint8", "uint16": "Uint16", "uint32": "Uint32", "uint64": "Uint64",
		"float32": "Float32", "float64": "Float64", "string": "String", "bool": "Bool",
		"interface {}": "Any", "any": "Any",
	}
)

// TypeOf returns the Component describing T.
func TypeOf[T any]() Component {
	return DescribeType(reflect.TypeFor[T]())
}

// Describe returns the Component describing the type of v. Values that
// implement Component are returned unchanged; nil yields nil.
func Describe(v any) Component {
	if v == nil {
		return nil
	}
	if c, ok := v.(Component); ok {
		return c
	}
	return DescribeType(reflect.TypeOf(v))
}

// DescribeType returns the Component describing t. Pointer types describe
// their element type. If t (or *t) implements Component, that
// implementation is used; otherwise the schema is derived by reflection:
//
//   - named struct types become named components referenced via $ref
//   - named types implementing Enumer or OneOfer become named components
//   - named maps, slices, arrays and pointers that contain themselves become
//     named components
//   - other primitives, slices, maps and anonymous structs are inlined
//
// Derivation is stateless: every call computes one level of the type graph.
func DescribeType(t reflect.Type) Component {
	if t == nil {
		return nil
	}
	t = deref(t)
	if c, ok := implementer(t); ok {
		return c
	}
	return typeComponent{t: t}
}

// typeComponent derives the contribution protocol from a Go type.
type typeComponent struct {
	t reflect.Type
}

// OpenAPISchema implements Component.
func (c typeComponent) OpenAPISchema() (string, *Schema) {
	if name := schemaName(c.t); name != "" {
		return name, ownSchema(c.t)
	}
	return "", inlineSchema(c.t)
}

// OpenAPIChildren implements Component.
func (c typeComponent) OpenAPIChildren() []Component {
	return childrenOf(c.t)
}

// implementer returns the Component implemented by t or *t, if any.
func implementer(t reflect.Type) (Component, bool) {
	if t.Kind() == reflect.Interface {
		return nil, false
	}
	if t.Implements(componentType) {
		if t.Kind() == reflect.Pointer {
			return reflect.New(t.Elem()).Interface().(Component), true
		}
		return reflect.Zero(t).Interface().(Component), true
	}
	if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(componentType) {
		return reflect.New(t).Interface().(Component), true
	}
	return nil, false
}

// asInterface returns the value of t as iface when t or *t implements it.
func asInterface(t, iface reflect.Type) (any, bool) {
	if t.Kind() == reflect.Interface {
		return nil, false
	}
	if t.Implements(iface) {
		return reflect.Zero(t).Interface(), true
	}
	if reflect.PointerTo(t).Implements(iface) {
		return reflect.New(t).Interface(), true
	}
	return nil, false
}

func isSpecial(t reflect.Type) bool {
	return t == timeType || t == uuidType || t == rawMessageType
}

// deref strips pointer indirections. It stops at a named pointer type that
// is a component of its own.
func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		if t.Name() != "" && schemaName(t) != "" {
			break
		}
		t = t.Elem()
	}
	return t
}

// schemaName returns the component name for t, or "" when t is inlined.
//
// See: https://spec.openapis.org/oas/v3.0.3#components-object (schemas)
func schemaName(t reflect.Type) string {
	if name := declaredName(t); name != "" {
		return name
	}
	if t.Name() == "" || t.PkgPath() == "" || isSpecial(t) {
		return ""
	}
	switch t.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer:
		if selfReferential(t) {
			return sanitizeSchemaName(t.Name())
		}
	}
	return ""
}

// declaredName returns the component name of types that are always
// components: SchemaNamer implementations, named structs and named types
// implementing Enumer or OneOfer.
func declaredName(t reflect.Type) string {
	if v, ok := asInterface(t, namerType); ok {
		if name := v.(SchemaNamer).OpenAPISchemaName(); name != "" {
			return name
		}
	}
	if t.Name() == "" || t.PkgPath() == "" || isSpecial(t) {
		return ""
	}

	named := t.Kind() == reflect.Struct
	if _, ok := asInterface(t, enumerType); ok {
		named = true
	}
	if _, ok := asInterface(t, oneOferType); ok {
		named = true
	}
	if !named {
		return ""
	}
	return sanitizeSchemaName(t.Name())
}

// selfReferential reports whether t can be reached again from its own
// element or field types without passing through another component.
func selfReferential(t reflect.Type) bool {
	if v, ok := recursiveTypes.Load(t); ok {
		return v.(bool)
	}
	found := reaches(t, t, map[reflect.Type]bool{})
	recursiveTypes.Store(t, found)
	return found
}

func reaches(from, target reflect.Type, visited map[reflect.Type]bool) bool {
	var next []reflect.Type
	switch from.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer:
		next = append(next, from.Elem())
	case reflect.Struct:
		for _, f := range structFields(from) {
			next = append(next, f.field.Type)
		}
	}

	for _, t := range next {
		if t == target {
			return true
		}
		if visited[t] || isSpecial(t) || declaredName(t) != "" {
			continue
		}
		if _, ok := implementer(t); ok {
			continue
		}
		visited[t] = true
		if reaches(t, target, visited) {
			return true
		}
	}
	return false
}

// sanitizeSchemaName cleans up Go type names for use as component keys.
// Generic instantiations are flattened: "Page[pkg.User]" becomes "PageUser",
// "Page[[]pkg.User]" becomes "PageUserList" and "Pair[int,string]" becomes
// "PairIntString".
func sanitizeSchemaName(name string) string {
	idx := strings.IndexByte(name, '[')
	if idx < 0 || !strings.HasSuffix(name, "]") {
		return name
	}

	var sb strings.Builder
	sb.WriteString(name[:idx])
	for _, arg := range splitTypeArgs(name[idx+1 : len(name)-1]) {
		sb.WriteString(typeArgName(arg))
	}
	return sb.String()
}

// splitTypeArgs splits a type argument list on top-level commas.
func splitTypeArgs(s string) []string {
	var (
		args  []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	return append(args, s[start:])
}

// closingBracket returns the index of the ']' matching the '[' at open, or
// -1 when brackets are unbalanced.
func closingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// typeArgName renders one type argument as a name fragment.
func typeArgName(arg string) string {
	arg = strings.TrimSpace(arg)

	var suffix string
	for {
		switch {
		case strings.HasPrefix(arg, "[]"):
			arg = arg[2:]
			suffix += "List"
			continue
		case strings.HasPrefix(arg, "*"):
			arg = arg[1:]
			continue
		case strings.HasPrefix(arg, "map["):
			if end := closingBracket(arg, len("map[")-1); end > 0 {
				arg = arg[end+1:]
				suffix += "Map"
				continue
			}
		}
		break
	}

	if title, ok := primitiveTitles[arg]; ok {
		return title + suffix
	}

	// Strip the package path, keeping nested type arguments intact.
	base, rest := arg, ""
	if idx := strings.IndexByte(arg, '['); idx >= 0 {
		base, rest = arg[:idx], arg[idx:]
	}
	if dot := strings.LastIndexByte(base, '.'); dot >= 0 {
		base = base[dot+1:]
	}

	// Casers are stateful, so each call gets its own.
	return cases.Title(language.Und, cases.NoLower).String(sanitizeSchemaName(base+rest)) + suffix
}

// ownSchema builds the stored schema of a named component type.
func ownSchema(t reflect.Type) *Schema {
	var schema *Schema

	switch {
	case implements(t, oneOferType):
		v, _ := asInterface(t, oneOferType)
		schema = &Schema{}
		for _, variant := range v.(OneOfer).OpenAPIOneOf() {
			if variant == nil {
				continue
			}
			if s := fieldSchema(reflect.TypeOf(variant)); s != nil {
				schema.OneOf = append(schema.OneOf, s)
			}
		}
	case t.Kind() == reflect.Struct:
		schema = structSchema(t)
	default:
		schema = kindSchema(t)
		if schema == nil {
			schema = &Schema{}
		}
	}

	if v, ok := asInterface(t, enumerType); ok {
		schema.Enum = v.(Enumer).OpenAPIEnum()
	}
	if v, ok := asInterface(t, examplerType); ok {
		schema.Example = v.(Exampler).OpenAPIExample()
	}

	return schema
}

func implements(t, iface reflect.Type) bool {
	_, ok := asInterface(t, iface)
	return ok
}

// fieldSchema returns the schema used where a value of type t appears:
// references for named components, inline schemas otherwise. Pointers are
// marked nullable; a nullable reference is wrapped in allOf because OpenAPI
// 3.0 ignores siblings of $ref.
//
// See: https://spec.openapis.org/oas/v3.0.3#fixed-fields-19 (nullable)
func fieldSchema(t reflect.Type) *Schema {
	nullable := false
	if t.Kind() == reflect.Pointer {
		nullable = true
		t = deref(t)
	}

	var schema *Schema
	if c, ok := implementer(t); ok {
		if schema = usage(c); schema != nil {
			cp := *schema
			schema = &cp
		}
	} else if name := schemaName(t); name != "" {
		schema = RefSchema(name)
	} else {
		schema = inlineSchema(t)
	}

	if schema == nil || !nullable {
		return schema
	}
	if schema.Ref != "" {
		return &Schema{Nullable: true, AllOf: []*Schema{schema}}
	}
	schema.Nullable = true
	return schema
}

// inlineSchema maps an unnamed (or not separately named) type to a schema.
//
// See: https://spec.openapis.org/oas/v3.0.3#data-types
func inlineSchema(t reflect.Type) *Schema {
	if t.Kind() == reflect.Struct && !isSpecial(t) {
		return structSchema(t)
	}
	return kindSchema(t)
}

// kindSchema maps special and primitive types, slices and maps to schemas.
func kindSchema(t reflect.Type) *Schema {
	switch t {
	case timeType:
		return &Schema{Type: "string", Format: "date-time"}
	case uuidType:
		return &Schema{Type: "string", Format: "uuid"}
	case rawMessageType:
		return &Schema{}
	}

	switch t.Kind() {
	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Uint, reflect.Uint8, reflect.Uint16:
		return &Schema{Type: "integer"}

	case reflect.Int32, reflect.Uint32:
		return &Schema{Type: "integer", Format: "int32"}

	case reflect.Int64, reflect.Uint64:
		return &Schema{Type: "integer", Format: "int64"}

	case reflect.Float32:
		return &Schema{Type: "number", Format: "float"}

	case reflect.Float64:
		return &Schema{Type: "number", Format: "double"}

	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: "string", Format: "byte"}
		}
		return &Schema{Type: "array", Items: fieldSchema(t.Elem())}

	case reflect.Array:
		n := t.Len()
		return &Schema{Type: "array", Items: fieldSchema(t.Elem()), MinItems: &n, MaxItems: &n}

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return &Schema{Type: "object"}
		}
		return &Schema{Type: "object", AdditionalProperties: fieldSchema(t.Elem())}

	case reflect.Struct:
		return structSchema(t)

	case reflect.Interface:
		return &Schema{}

	case reflect.Pointer:
		return fieldSchema(reflect.PointerTo(t.Elem()))
	}

	return nil
}

// structSchema builds an object schema from struct fields.
//
// See: https://spec.openapis.org/oas/v3.0.3#schema-object (properties)
func structSchema(t reflect.Type) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	for _, f := range structFields(t) {
		fieldSch := fieldSchema(f.field.Type)
		if fieldSch == nil {
			continue
		}

		if f.opts.stringEncode && fieldSch.Ref == "" && len(fieldSch.AllOf) == 0 {
			fieldSch.Type = "string"
			fieldSch.Format = ""
		}
		fieldSch = applyOpenAPITag(fieldSch, f.field.Tag.Get("openapi"))

		schema.Properties[f.name] = fieldSch

		if !f.opts.omitempty && !f.optional && f.field.Type.Kind() != reflect.Pointer {
			schema.Required = append(schema.Required, f.name)
		}
	}

	if len(schema.Properties) == 0 {
		schema.Properties = nil
	}
	return schema
}

// jsonField is a struct field encoded as an object member.
type jsonField struct {
	name     string
	field    reflect.StructField
	opts     jsonTagOpts
	depth    int
	tagged   bool
	optional bool
}

// structFields returns the fields encoding/json encodes for t, in field
// order.
func structFields(t reflect.Type) []jsonField {
	return dominantFields(collectFields(t, 0, false, map[reflect.Type]bool{}, nil))
}

// dominantFields resolves fields sharing a name the way encoding/json does:
// the shallowest wins; at equal depth a single tagged field wins, otherwise
// the name is dropped.
func dominantFields(fields []jsonField) []jsonField {
	byName := make(map[string][]jsonField, len(fields))
	var order []string
	for _, f := range fields {
		if _, ok := byName[f.name]; !ok {
			order = append(order, f.name)
		}
		byName[f.name] = append(byName[f.name], f)
	}

	out := make([]jsonField, 0, len(order))
	for _, name := range order {
		if f, ok := dominantField(byName[name]); ok {
			out = append(out, f)
		}
	}
	return out
}

func dominantField(fields []jsonField) (jsonField, bool) {
	depth := fields[0].depth
	for _, f := range fields[1:] {
		depth = min(depth, f.depth)
	}

	var shallow, tagged []jsonField
	for _, f := range fields {
		if f.depth != depth {
			continue
		}
		shallow = append(shallow, f)
		if f.tagged {
			tagged = append(tagged, f)
		}
	}

	switch {
	case len(shallow) == 1:
		return shallow[0], true
	case len(tagged) == 1:
		return tagged[0], true
	}
	return jsonField{}, false
}

// collectFields appends the candidate fields of t. Embedded structs without
// a json name are inlined one level deeper; fields of pointer-embedded
// structs are all optional.
func collectFields(t reflect.Type, depth int, optional bool, embedding map[reflect.Type]bool, out []jsonField) []jsonField {
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

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name, opts := parseJSONTag(jsonTag)

		if field.Anonymous && name == "" {
			ft := field.Type
			isPtr := ft.Kind() == reflect.Pointer
			if isPtr {
				ft = ft.Elem()
			}
			if promoted(ft) {
				out = collectFields(ft, depth+1, optional || isPtr, embedding, out)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}

		f := jsonField{
			name:     name,
			field:    field,
			opts:     opts,
			depth:    depth,
			tagged:   name != "",
			optional: optional,
		}
		if f.name == "" {
			f.name = field.Name
		}
		out = append(out, f)
	}
	return out
}

// childrenOf returns the components directly contained in t.
func childrenOf(t reflect.Type) []Component {
	var out []Component

	if v, ok := asInterface(t, oneOferType); ok {
		for _, variant := range v.(OneOfer).OpenAPIOneOf() {
			if variant != nil {
				out = appendChild(out, reflect.TypeOf(variant))
			}
		}
		return out
	}
	if isSpecial(t) {
		return nil
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return nil
		}
		return appendChild(out, t.Elem())

	case reflect.Struct:
		for _, f := range structFields(t) {
			out = appendChild(out, f.field.Type)
		}
	}

	return out
}

// promoted reports whether the fields of an embedded type t are promoted
// into the embedding struct, as encoding/json does.
func promoted(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || isSpecial(t) {
		return false
	}
	_, ok := implementer(t)
	return !ok
}

// appendChild appends the component for t, or the children of t when t is
// an inline container.
func appendChild(out []Component, t reflect.Type) []Component {
	t = deref(t)
	if c, ok := implementer(t); ok {
		return append(out, c)
	}
	if schemaName(t) != "" {
		return append(out, typeComponent{t: t})
	}
	return append(out, childrenOf(t)...)
}

type jsonTagOpts struct {
	omitempty    bool
	stringEncode bool
}

func parseJSONTag(tag string) (string, jsonTagOpts) {
	if tag == "" {
		return "", jsonTagOpts{}
	}
	name, rest, _ := strings.Cut(tag, ",")
	var opts jsonTagOpts
	for opt := range strings.SplitSeq(rest, ",") {
		switch opt {
		case "omitempty", "omitzero":
			opts.omitempty = true
		case "string":
			opts.stringEncode = true
		}
	}
	return name, opts
}

// applyOpenAPITag parses the `openapi` struct tag and applies it to the
// schema. A tagged reference is wrapped in allOf so the keywords survive.
//
// See: https://spec.openapis.org/oas/v3.0.3#properties
func applyOpenAPITag(schema *Schema, tag string) *Schema {
	if tag == "" {
		return schema
	}
	if schema.Ref != "" {
		schema = &Schema{AllOf: []*Schema{schema}}
	}

	for part := range strings.SplitSeq(tag, ",") {
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if hasValue {
			value = strings.TrimSpace(value)
		}

		switch key {
		case "description":
			schema.Description = value
		case "title":
			schema.Title = value
		case "example":
			schema.Example = parseTagValue(schema, value)
		case "default":
			schema.Default = parseTagValue(schema, value)
		case "format":
			schema.Format = value
		case "minimum":
			schema.Minimum = parseFloat(value)
		case "maximum":
			schema.Maximum = parseFloat(value)
		case "exclusiveMinimum":
			if v := parseFloat(value); v != nil {
				schema.Minimum = v
				schema.ExclusiveMinimum = true
			}
		case "exclusiveMaximum":
			if v := parseFloat(value); v != nil {
				schema.Maximum = v
				schema.ExclusiveMaximum = true
			}
		case "multipleOf":
			schema.MultipleOf = parseFloat(value)
		case "minLength":
			schema.MinLength = parseInt(value)
		case "maxLength":
			schema.MaxLength = parseInt(value)
		case "pattern":
			schema.Pattern = value
		case "minItems":
			schema.MinItems = parseInt(value)
		case "maxItems":
			schema.MaxItems = parseInt(value)
		case "uniqueItems":
			schema.UniqueItems = true
		case "minProperties":
			schema.MinProperties = parseInt(value)
		case "maxProperties":
			schema.MaxProperties = parseInt(value)
		case "enum":
			values := strings.Split(value, "|")
			schema.Enum = make([]any, len(values))
			for i, v := range values {
				schema.Enum[i] = parseTagValue(schema, v)
			}
		case "nullable":
			schema.Nullable = true
		case "deprecated":
			schema.Deprecated = true
		case "readOnly":
			schema.ReadOnly = true
		case "writeOnly":
			schema.WriteOnly = true
		}
	}

	return schema
}

func parseFloat(value string) *float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(value string) *int {
	v, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &v
}

// parseTagValue converts a string tag value to the Go type matching the
// schema type.
func parseTagValue(schema *Schema, value string) any {
	switch schema.Type {
	case "integer":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case "number":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	case "boolean":
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return value
}
