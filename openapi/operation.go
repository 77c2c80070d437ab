package openapi

import (
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"strconv"

	"golang.org/x/net/http/httpguts"
)

var errorResponderType = reflect.TypeFor[ErrorResponder]()

// responseDecl is one declared response status.
type responseDecl struct {
	key      string
	contents []contentDecl
	noBody   bool
}

// contentDecl is one content type of a declared response or request body.
type contentDecl struct {
	contentType string
	body        any
}

// errorDecl is a declared fallible error type with an optional status filter.
type errorDecl struct {
	value any
	codes []int
}

// operationMeta stores metadata collected via the fluent builder before the
// operation is registered. Fields correspond to the Operation Object.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object
type operationMeta struct {
	operationID  string
	summary      string
	description  string
	tags         []string
	deprecated   bool
	parameters   []*Parameter
	security     []SecurityRequirement
	securitySet  bool
	externalDocs *ExternalDocs
	servers      []Server

	inputs             []any
	requestContents    []contentDecl
	requestDescription string
	requestRequired    *bool

	output       any
	outputStatus int
	hasOutput    bool
	errors       []errorDecl

	responses            []*responseDecl
	responseDescriptions map[string]string             // statusKey -> custom description
	responseHeaders      map[string]map[string]*Header // statusKey -> headerName -> header
}

// OperationBuilder provides a fluent API describing one route handler: its
// explicit metadata, its input types, its success output type and its error
// type. The builder is turned into an Operation Object when it is passed to
// Builder.RegisterOperation; later changes to the builder do not affect
// operations already registered.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object
type OperationBuilder struct {
	meta *operationMeta
}

// NewOperation creates an empty operation descriptor.
func NewOperation() *OperationBuilder {
	return &OperationBuilder{meta: &operationMeta{}}
}

// OperationID sets the operation ID. IDs must be unique across the document.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object (operationId)
func (b *OperationBuilder) OperationID(id string) *OperationBuilder {
	b.meta.operationID = id
	return b
}

// Summary sets the operation summary.
func (b *OperationBuilder) Summary(s string) *OperationBuilder {
	b.meta.summary = s
	return b
}

// Description sets the operation description.
func (b *OperationBuilder) Description(d string) *OperationBuilder {
	b.meta.description = d
	return b
}

// Tags adds one or more tags to the operation.
func (b *OperationBuilder) Tags(tags ...string) *OperationBuilder {
	b.meta.tags = append(b.meta.tags, tags...)
	return b
}

// Deprecated marks the operation as deprecated.
func (b *OperationBuilder) Deprecated() *OperationBuilder {
	b.meta.deprecated = true
	return b
}

// ExternalDocs sets external documentation for the operation.
func (b *OperationBuilder) ExternalDocs(url, description string) *OperationBuilder {
	b.meta.externalDocs = &ExternalDocs{URL: url, Description: description}
	return b
}

// Server adds a server override for the operation.
func (b *OperationBuilder) Server(server Server) *OperationBuilder {
	b.meta.servers = append(b.meta.servers, server)
	return b
}

// Parameter adds an explicit parameter to the operation.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-object
func (b *OperationBuilder) Parameter(param *Parameter) *OperationBuilder {
	b.meta.parameters = append(b.meta.parameters, param)
	return b
}

// Input declares handler input types. Each input is classified when the
// operation is registered:
//
//   - SecurityComponent: the scheme is contributed and required
//   - ParameterComponent: its parameters are added (Query, Path, Header, Cookie)
//   - RequestBodyComponent: its request body is used (Body, Form)
//   - anything else: a required JSON request body of that type
//
// An operation has at most one request body.
func (b *OperationBuilder) Input(inputs ...any) *OperationBuilder {
	b.meta.inputs = append(b.meta.inputs, inputs...)
	return b
}

// RequestContent adds a request body content type. The body can be a Go
// value (schema derived from its type), a Component, or a *Schema used as is.
// Several content types may be added to the same request body.
//
// See: https://spec.openapis.org/oas/v3.0.3#request-body-object
func (b *OperationBuilder) RequestContent(contentType string, body any) *OperationBuilder {
	b.meta.requestContents = append(b.meta.requestContents, contentDecl{contentType: contentType, body: body})
	return b
}

// RequestDescription sets the description for the request body.
func (b *OperationBuilder) RequestDescription(desc string) *OperationBuilder {
	b.meta.requestDescription = desc
	return b
}

// RequestRequired sets whether the request body is required. By default,
// request bodies are required.
func (b *OperationBuilder) RequestRequired(required bool) *OperationBuilder {
	b.meta.requestRequired = &required
	return b
}

// Output declares the success output type. Responder types choose their own
// status (NoContent: 204, Created: 201, Accepted: 202); other types produce a
// 200 JSON response. A nil output produces an empty 200 response.
func (b *OperationBuilder) Output(v any) *OperationBuilder {
	b.meta.output = v
	b.meta.outputStatus = 0
	b.meta.hasOutput = true
	return b
}

// OutputStatus declares the success output type under an explicit status.
func (b *OperationBuilder) OutputStatus(statusCode int, v any) *OperationBuilder {
	b.meta.output = v
	b.meta.outputStatus = statusCode
	b.meta.hasOutput = true
	return b
}

// Errors declares the fallible error type of the handler. The type's
// ErrorResponder statuses become responses; when codes are given only those
// statuses are documented. Types that are not ErrorResponders need codes.
func (b *OperationBuilder) Errors(v any, codes ...int) *OperationBuilder {
	b.meta.errors = append(b.meta.errors, errorDecl{value: v, codes: codes})
	return b
}

// Response declares a JSON response for the given status code. Pass a nil
// body for a response without content. Declaring the same status twice is
// reported when the operation is registered.
//
// See: https://spec.openapis.org/oas/v3.0.3#response-object
func (b *OperationBuilder) Response(statusCode int, body any) *OperationBuilder {
	decl := &responseDecl{key: strconv.Itoa(statusCode)}
	if body == nil {
		decl.noBody = true
	} else {
		decl.contents = []contentDecl{{contentType: contentTypeJSON, body: body}}
	}
	b.meta.responses = append(b.meta.responses, decl)
	return b
}

// ResponseContent adds a content type to the response for the given status
// code, declaring the response if needed. Use it for non-JSON payloads.
func (b *OperationBuilder) ResponseContent(statusCode int, contentType string, body any) *OperationBuilder {
	return b.responseContent(strconv.Itoa(statusCode), contentType, body)
}

// DefaultResponse declares a JSON response for the "default" key.
//
// See: https://spec.openapis.org/oas/v3.0.3#responses-object (default)
func (b *OperationBuilder) DefaultResponse(body any) *OperationBuilder {
	decl := &responseDecl{key: "default"}
	if body == nil {
		decl.noBody = true
	} else {
		decl.contents = []contentDecl{{contentType: contentTypeJSON, body: body}}
	}
	b.meta.responses = append(b.meta.responses, decl)
	return b
}

func (b *OperationBuilder) responseContent(key, contentType string, body any) *OperationBuilder {
	for _, decl := range b.meta.responses {
		if decl.key == key {
			decl.noBody = false
			decl.contents = append(decl.contents, contentDecl{contentType: contentType, body: body})
			return b
		}
	}
	b.meta.responses = append(b.meta.responses, &responseDecl{
		key:      key,
		contents: []contentDecl{{contentType: contentType, body: body}},
	})
	return b
}

// ResponseDescription overrides the description of a response. By default,
// descriptions come from the error declaration or the HTTP status text.
func (b *OperationBuilder) ResponseDescription(statusCode int, desc string) *OperationBuilder {
	if b.meta.responseDescriptions == nil {
		b.meta.responseDescriptions = make(map[string]string)
	}
	b.meta.responseDescriptions[strconv.Itoa(statusCode)] = desc
	return b
}

// ResponseHeader adds a header to the response for the given status code.
func (b *OperationBuilder) ResponseHeader(statusCode int, name string, h *Header) *OperationBuilder {
	key := strconv.Itoa(statusCode)
	if b.meta.responseHeaders == nil {
		b.meta.responseHeaders = make(map[string]map[string]*Header)
	}
	if b.meta.responseHeaders[key] == nil {
		b.meta.responseHeaders[key] = make(map[string]*Header)
	}
	b.meta.responseHeaders[key][name] = h
	return b
}

// Security sets explicit security requirements. Requirements derived from
// SecurityComponent inputs are appended to them. Call with no arguments to
// mark the operation as public (overrides document-level security). Every
// scheme name must be contributed to the builder before the document is
// finalized.
//
// See: https://spec.openapis.org/oas/v3.0.3#security-requirement-object
func (b *OperationBuilder) Security(reqs ...SecurityRequirement) *OperationBuilder {
	if reqs == nil {
		reqs = []SecurityRequirement{}
	}
	b.meta.security = reqs
	b.meta.securitySet = true
	return b
}

// contributedScheme is a security scheme discovered while building an
// operation.
type contributedScheme struct {
	name   string
	scheme *SecurityScheme
}

// operationBuild carries the state of one buildOperation call.
type operationBuild struct {
	reg      *Registry
	op       *Operation
	schemes  []contributedScheme
	bodySeen bool
}

// buildOperation converts the collected metadata into an Operation Object,
// resolving every contributed type into the registry. Group defaults apply
// with lower precedence than the operation's own declarations.
func (b *OperationBuilder) buildOperation(reg *Registry, pathParams []*Parameter, defaults *groupDefaults) (*Operation, []contributedScheme, error) {
	m := b.meta
	if defaults == nil {
		defaults = &groupDefaults{}
	}

	ob := &operationBuild{
		reg: reg,
		op: &Operation{
			OperationID:  m.operationID,
			Summary:      m.summary,
			Description:  m.description,
			Tags:         append(slices.Clone(defaults.tags), m.tags...),
			Deprecated:   m.deprecated || defaults.deprecated,
			ExternalDocs: m.externalDocs,
			Servers:      append(slices.Clone(defaults.servers), m.servers...),
			Responses:    make(Responses),
		},
	}
	if ob.op.ExternalDocs == nil {
		ob.op.ExternalDocs = defaults.externalDocs
	}

	custom := append(slices.Clone(defaults.parameters), m.parameters...)

	var inputSecurity []SecurityRequirement
	for _, in := range m.inputs {
		params, req, err := ob.input(in)
		if err != nil {
			return nil, nil, err
		}
		custom = append(custom, params...)
		if req != nil {
			inputSecurity = append(inputSecurity, req)
		}
	}

	if err := ob.requestContents(m); err != nil {
		return nil, nil, err
	}

	params, err := mergeParameters(pathParams, custom)
	if err != nil {
		return nil, nil, err
	}
	ob.op.Parameters = params

	if err := ob.responses(m, defaults); err != nil {
		return nil, nil, err
	}

	switch {
	case m.securitySet:
		ob.op.Security = append(slices.Clone(m.security), inputSecurity...)
	case defaults.securitySet:
		ob.op.Security = append(slices.Clone(defaults.security), inputSecurity...)
	default:
		ob.op.Security = inputSecurity
	}

	return ob.op, ob.schemes, nil
}

// input classifies one declared input.
func (ob *operationBuild) input(v any) ([]*Parameter, SecurityRequirement, error) {
	if v == nil {
		return nil, nil, nil
	}

	if sc, ok := v.(SecurityComponent); ok {
		name, scheme := sc.OpenAPISecurity()
		if name == "" || scheme == nil {
			return nil, nil, fmt.Errorf("%w: security input %T has no scheme", ErrInvalidOperation, v)
		}
		ob.schemes = append(ob.schemes, contributedScheme{name: name, scheme: scheme})
		scopes := []string{}
		if scoper, ok := v.(SecurityScoper); ok {
			scopes = append(scopes, scoper.OpenAPIScopes()...)
		}
		return nil, SecurityRequirement{name: scopes}, nil
	}

	c := Describe(v)
	switch in := c.(type) {
	case ParameterComponent:
		if _, err := ob.reg.Resolve(in); err != nil {
			return nil, nil, err
		}
		return in.OpenAPIParameters(), nil, nil

	case RequestBodyComponent:
		if _, err := ob.reg.Resolve(in); err != nil {
			return nil, nil, err
		}
		return nil, nil, ob.setBody(in.OpenAPIRequestBody())
	}

	schema, err := ob.reg.Resolve(c)
	if err != nil {
		return nil, nil, err
	}
	return nil, nil, ob.setBody(&RequestBody{
		Required: true,
		Content:  map[string]*MediaType{contentTypeJSON: {Schema: schema}},
	})
}

func (ob *operationBuild) setBody(body *RequestBody) error {
	if body == nil {
		return nil
	}
	if ob.bodySeen {
		return ErrDuplicateRequestBody
	}
	ob.bodySeen = true
	ob.op.RequestBody = body
	return nil
}

// requestContents merges explicit request content types into the body.
func (ob *operationBuild) requestContents(m *operationMeta) error {
	for _, rc := range m.requestContents {
		schema, err := ob.schemaFor(rc.body)
		if err != nil {
			return err
		}
		if ob.op.RequestBody == nil {
			ob.op.RequestBody = &RequestBody{Required: true, Content: make(map[string]*MediaType)}
		}
		ob.op.RequestBody.Content[rc.contentType] = &MediaType{Schema: schema}
	}

	if ob.op.RequestBody != nil {
		if m.requestDescription != "" {
			ob.op.RequestBody.Description = m.requestDescription
		}
		if m.requestRequired != nil {
			ob.op.RequestBody.Required = *m.requestRequired
		}
	}
	return nil
}

// responses assembles the Responses Object. Every status is declared once:
// the success output, each error status and each explicit response.
func (ob *operationBuild) responses(m *operationMeta, defaults *groupDefaults) error {
	declared := make(map[string]bool)
	add := func(key string, resp *Response) error {
		if declared[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateResponseStatus, key)
		}
		declared[key] = true
		ob.op.Responses[key] = resp
		return nil
	}

	if m.hasOutput {
		out, err := ob.outputResponses(m.output, m.outputStatus)
		if err != nil {
			return err
		}
		for _, key := range sortedKeys(out) {
			if err := add(key, out[key]); err != nil {
				return err
			}
		}
	}

	for _, decl := range m.errors {
		out, err := ob.errorResponses(decl)
		if err != nil {
			return err
		}
		for _, key := range sortedKeys(out) {
			if err := add(key, out[key]); err != nil {
				return err
			}
		}
	}

	for _, decl := range m.responses {
		resp, err := ob.declaredResponse(decl)
		if err != nil {
			return err
		}
		if err := add(decl.key, resp); err != nil {
			return err
		}
	}

	// Group responses only fill statuses the operation leaves open.
	for _, decl := range defaults.errors {
		out, err := ob.errorResponses(decl)
		if err != nil {
			return err
		}
		for key, resp := range out {
			if !declared[key] {
				declared[key] = true
				ob.op.Responses[key] = resp
			}
		}
	}
	for _, decl := range defaults.responses {
		if declared[decl.key] {
			continue
		}
		resp, err := ob.declaredResponse(decl)
		if err != nil {
			return err
		}
		declared[decl.key] = true
		ob.op.Responses[decl.key] = resp
	}

	for key, resp := range ob.op.Responses {
		if desc, ok := m.responseDescriptions[key]; ok {
			resp.Description = desc
		} else if desc, ok := defaults.responseDescriptions[key]; ok && resp.Description == "" {
			resp.Description = desc
		}
		if resp.Description == "" {
			resp.Description = responseDescription(key)
		}
		for name, h := range defaults.responseHeaders[key] {
			setHeader(resp, name, h)
		}
		for name, h := range m.responseHeaders[key] {
			setHeader(resp, name, h)
		}
	}
	return nil
}

func setHeader(resp *Response, name string, h *Header) {
	if resp.Headers == nil {
		resp.Headers = make(map[string]*Header)
	}
	resp.Headers[name] = h
}

// outputResponses asks the success output type for its response shape.
func (ob *operationBuild) outputResponses(v any, status int) (Responses, error) {
	if v == nil {
		if status == 0 {
			status = http.StatusOK
		}
		return Responses{strconv.Itoa(status): &Response{}}, nil
	}

	c := Describe(v)
	schema, err := ob.reg.Resolve(c)
	if err != nil {
		return nil, err
	}
	if r, ok := c.(Responder); ok {
		return r.OpenAPIResponses(status), nil
	}

	if status == 0 {
		status = http.StatusOK
	}
	resp := &Response{}
	if schema != nil {
		resp.Content = map[string]*MediaType{contentTypeJSON: {Schema: schema}}
	}
	return Responses{strconv.Itoa(status): resp}, nil
}

// errorResponses asks the error type for one response per declared status.
func (ob *operationBuild) errorResponses(decl errorDecl) (Responses, error) {
	if decl.value == nil {
		return nil, fmt.Errorf("%w: nil error type", ErrInvalidOperation)
	}

	var statuses []ErrorStatus
	if v, ok := asInterface(reflect.TypeOf(decl.value), errorResponderType); ok {
		statuses = v.(ErrorResponder).OpenAPIErrors()
	}

	if len(decl.codes) > 0 {
		filtered := make([]ErrorStatus, 0, len(decl.codes))
		for _, code := range decl.codes {
			st := ErrorStatus{Code: code}
			for _, declared := range statuses {
				if declared.Code == code {
					st = declared
					break
				}
			}
			filtered = append(filtered, st)
		}
		statuses = filtered
	}
	if len(statuses) == 0 {
		return nil, fmt.Errorf("%w: error type %T declares no status", ErrInvalidOperation, decl.value)
	}

	schema, err := ob.reg.Resolve(Describe(decl.value))
	if err != nil {
		return nil, err
	}

	out := make(Responses, len(statuses))
	for _, st := range statuses {
		key := strconv.Itoa(st.Code)
		if _, ok := out[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateResponseStatus, key)
		}
		resp := &Response{Description: st.Description}
		if schema != nil {
			resp.Content = map[string]*MediaType{contentTypeJSON: {Schema: schema}}
		}
		out[key] = resp
	}
	return out, nil
}

func (ob *operationBuild) declaredResponse(decl *responseDecl) (*Response, error) {
	resp := &Response{}
	if decl.noBody {
		return resp, nil
	}
	for _, cd := range decl.contents {
		schema, err := ob.schemaFor(cd.body)
		if err != nil {
			return nil, err
		}
		if resp.Content == nil {
			resp.Content = make(map[string]*MediaType)
		}
		resp.Content[cd.contentType] = &MediaType{Schema: schema}
	}
	return resp, nil
}

// schemaFor returns the schema for an explicit body value. A *Schema is used
// directly; anything else is resolved into the registry.
func (ob *operationBuild) schemaFor(body any) (*Schema, error) {
	if body == nil {
		return nil, nil
	}
	if s, ok := body.(*Schema); ok {
		return s, nil
	}
	return ob.reg.Resolve(Describe(body))
}

// mergeParameters combines auto-generated path parameters with declared
// parameters. Declared parameters with the same name and location override
// the auto-generated ones; two declared parameters with the same name and
// location are an error.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object (parameters)
func mergeParameters(auto, custom []*Parameter) ([]*Parameter, error) {
	if len(auto) == 0 && len(custom) == 0 {
		return nil, nil
	}

	overrides := make(map[[2]string]struct{}, len(custom))
	for _, p := range custom {
		if err := validateParameter(p); err != nil {
			return nil, err
		}
		key := [2]string{p.Name, p.In}
		if _, ok := overrides[key]; ok {
			return nil, fmt.Errorf("%w: %s parameter %q declared twice", ErrInvalidParameter, p.In, p.Name)
		}
		overrides[key] = struct{}{}
	}

	var merged []*Parameter
	for _, p := range auto {
		if _, ok := overrides[[2]string{p.Name, p.In}]; !ok {
			merged = append(merged, p)
		}
	}

	return append(merged, custom...), nil
}

// validateParameter checks the fields OpenAPI requires of a parameter.
func validateParameter(p *Parameter) error {
	if p == nil {
		return fmt.Errorf("%w: nil parameter", ErrInvalidParameter)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidParameter)
	}
	switch p.In {
	case InQuery, InCookie:
	case InPath:
		if !p.Required {
			return fmt.Errorf("%w: path parameter %q must be required", ErrInvalidParameter, p.Name)
		}
	case InHeader:
		if !httpguts.ValidHeaderFieldName(p.Name) {
			return fmt.Errorf("%w: %q is not a valid header name", ErrInvalidParameter, p.Name)
		}
	default:
		return fmt.Errorf("%w: parameter %q has unknown location %q", ErrInvalidParameter, p.Name, p.In)
	}
	return nil
}

// responseDescription returns a human-readable description for a response key.
func responseDescription(key string) string {
	if key == "default" {
		return "Default response"
	}
	code, err := strconv.Atoi(key)
	if err == nil {
		if text := http.StatusText(code); text != "" {
			return text
		}
	}
	return key
}

func sortedKeys(r Responses) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
