package openapi

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// macroTypeMap maps route macros to OpenAPI type and format.
var macroTypeMap = map[string][2]string{
	"uuid":     {"string", "uuid"},
	"int":      {"integer", ""},
	"float":    {"number", ""},
	"slug":     {"string", ""},
	"alpha":    {"string", ""},
	"alphanum": {"string", ""},
	"date":     {"string", "date"},
	"hex":      {"string", ""},
	"domain":   {"string", "hostname"},
}

// pathVarRegexp matches route variables in the form {name} or {name:macro}.
var pathVarRegexp = regexp.MustCompile(`\{([^}]+)\}`)

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for debug records during registration
// and finalization. By default, nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithServers sets the document-level servers.
func WithServers(servers ...Server) Option {
	return func(b *Builder) {
		b.servers = append(b.servers, servers...)
	}
}

// Builder collects operations, security schemes and document metadata and
// assembles them into a Document.
//
// Registration errors are returned to the caller and remembered; Finalize
// refuses to produce a document while any is outstanding. A Builder is not
// safe for concurrent use.
type Builder struct {
	info         Info
	servers      []Server
	security     []SecurityRequirement
	tags         []Tag
	externalDocs *ExternalDocs

	paths            map[string]*PathItem
	pathSummaries    map[string]string // keyed by OpenAPI path
	pathDescriptions map[string]string // keyed by OpenAPI path

	registry        *Registry
	securitySchemes map[string]*SecurityScheme
	operationIDs    map[string]string // operationId -> "METHOD path"

	errs   []error
	logger *slog.Logger
}

// NewBuilder creates a new document builder with the given API info.
func NewBuilder(info Info, opts ...Option) *Builder {
	b := &Builder{
		info:            info,
		paths:           make(map[string]*PathItem),
		registry:        NewRegistry(),
		securitySchemes: make(map[string]*SecurityScheme),
		operationIDs:    make(map[string]string),
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.registry.logger = b.logger
	return b
}

// AddServer adds a server to the document.
func (b *Builder) AddServer(server Server) *Builder {
	b.servers = append(b.servers, server)
	return b
}

// SetPathSummary sets the summary of the path item for the given path.
func (b *Builder) SetPathSummary(path, summary string) *Builder {
	if b.pathSummaries == nil {
		b.pathSummaries = make(map[string]string)
	}
	openAPIPath, _ := parsePath(path)
	b.pathSummaries[openAPIPath] = summary
	return b
}

// SetPathDescription sets the description of the path item for the given path.
func (b *Builder) SetPathDescription(path, description string) *Builder {
	if b.pathDescriptions == nil {
		b.pathDescriptions = make(map[string]string)
	}
	openAPIPath, _ := parsePath(path)
	b.pathDescriptions[openAPIPath] = description
	return b
}

// SetExternalDocs sets document-level external documentation.
func (b *Builder) SetExternalDocs(url, description string) *Builder {
	b.externalDocs = &ExternalDocs{URL: url, Description: description}
	return b
}

// SetSecurity sets document-level security requirements. Every scheme name
// must be contributed before the document is finalized.
func (b *Builder) SetSecurity(reqs ...SecurityRequirement) *Builder {
	b.security = reqs
	return b
}

// AddTag adds a tag definition with optional description and external docs.
func (b *Builder) AddTag(tag Tag) *Builder {
	b.tags = append(b.tags, tag)
	return b
}

// Registry returns the schema registry the builder resolves components into.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// Err returns the registration errors recorded so far, joined, or nil.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

func (b *Builder) fail(err error) error {
	b.errs = append(b.errs, err)
	return err
}

// RegisterSchema resolves the type of v into the component registry without
// attaching it to an operation.
func (b *Builder) RegisterSchema(v any) error {
	if _, err := b.registry.Resolve(Describe(v)); err != nil {
		return b.fail(err)
	}
	return nil
}

// ContributeSecurityScheme adds a named security scheme. Contributing the
// same definition twice is a no-op; a different definition under a known
// name is an ErrSecuritySchemeConflict.
//
// See: https://spec.openapis.org/oas/v3.0.3#security-scheme-object
func (b *Builder) ContributeSecurityScheme(name string, scheme *SecurityScheme) error {
	if err := b.contributeSecurityScheme(name, scheme); err != nil {
		return b.fail(err)
	}
	return nil
}

func (b *Builder) contributeSecurityScheme(name string, scheme *SecurityScheme) error {
	return b.addSecurityScheme(b.securitySchemes, name, scheme)
}

// addSecurityScheme stores scheme under name in into, which is either the
// builder's own set or a copy staged by a pending registration.
func (b *Builder) addSecurityScheme(into map[string]*SecurityScheme, name string, scheme *SecurityScheme) error {
	if name == "" || scheme == nil {
		return fmt.Errorf("%w: security scheme %q has no definition", ErrInvalidOperation, name)
	}
	if scheme.Type == "apiKey" && scheme.In == InHeader && !httpguts.ValidHeaderFieldName(scheme.Name) {
		return fmt.Errorf("%w: security scheme %q: %q is not a valid header name", ErrInvalidParameter, name, scheme.Name)
	}

	if existing, ok := into[name]; ok {
		if !sameJSON(existing, scheme) {
			return fmt.Errorf("%w: %q registered as %s, contributed again as %s",
				ErrSecuritySchemeConflict, name, compactJSON(existing), compactJSON(scheme))
		}
		return nil
	}

	into[name] = scheme
	b.logger.Debug("security scheme registered", "scheme", name, "type", scheme.Type)
	return nil
}

// RegisterOperation describes the handler for method on path. Path
// variables in the form {name} or {name:macro} become required path
// parameters unless the operation declares them itself. All schemas the
// operation contributes are resolved into the component registry.
func (b *Builder) RegisterOperation(path, method string, op *OperationBuilder) error {
	return b.register(path, method, op, nil)
}

func (b *Builder) register(path, method string, op *OperationBuilder, defaults *groupDefaults) error {
	method = strings.ToUpper(method)
	wrap := func(err error) error {
		err = &RegistrationError{Method: method, Path: path, Err: err}
		b.logger.Debug("operation rejected", "method", method, "path", path, "error", err)
		return b.fail(err)
	}

	switch {
	case op == nil:
		return wrap(fmt.Errorf("%w: nil operation", ErrInvalidOperation))
	case !strings.HasPrefix(path, "/"):
		return wrap(fmt.Errorf("%w: path must start with /", ErrInvalidOperation))
	case !validMethod(method):
		return wrap(fmt.Errorf("%w: unknown method %q", ErrInvalidOperation, method))
	}

	openAPIPath, pathParams := parsePath(path)

	pathItem, ok := b.paths[openAPIPath]
	if ok && operationFor(pathItem, method) != nil {
		return wrap(ErrDuplicateOperation)
	}

	operation, schemes, err := op.buildOperation(b.registry, pathParams, defaults)
	if err != nil {
		return wrap(err)
	}

	id := operation.OperationID
	if prev, dup := b.operationIDs[id]; id != "" && dup {
		return wrap(fmt.Errorf("%w: %q already used by %s", ErrDuplicateOperationID, id, prev))
	}

	// Schemes are staged so a rejected operation contributes none of them.
	staged := maps.Clone(b.securitySchemes)
	for _, cs := range schemes {
		if err := b.addSecurityScheme(staged, cs.name, cs.scheme); err != nil {
			return wrap(err)
		}
	}
	b.securitySchemes = staged
	if id != "" {
		b.operationIDs[id] = method + " " + openAPIPath
	}

	if !ok {
		pathItem = &PathItem{}
		b.paths[openAPIPath] = pathItem
	}
	assignOperation(pathItem, method, operation)

	b.logger.Debug("operation registered",
		"method", method,
		"path", openAPIPath,
		"operationId", operation.OperationID,
		"responses", len(operation.Responses),
	)
	return nil
}

// Finalize assembles the document. It fails with every recorded
// registration error joined together; otherwise it returns a Document that
// shares no state with the builder, so the builder may keep registering.
func (b *Builder) Finalize() (*Document, error) {
	if len(b.errs) > 0 {
		return nil, b.Err()
	}

	schemas, err := b.registry.snapshot()
	if err != nil {
		return nil, err
	}

	sp := &spec{
		OpenAPI:      Version,
		Info:         b.info,
		Servers:      b.servers,
		Paths:        b.paths,
		Security:     b.security,
		ExternalDocs: b.externalDocs,
	}
	if schemas.Len() > 0 || len(b.securitySchemes) > 0 {
		sp.Components = &Components{SecuritySchemes: b.securitySchemes}
		if schemas.Len() > 0 {
			sp.Components.Schemas = schemas
		}
		if len(b.securitySchemes) == 0 {
			sp.Components.SecuritySchemes = nil
		}
	}

	// Deep copy everything the builder still owns.
	out := &spec{}
	if err := cloneJSON(sp, out); err != nil {
		return nil, err
	}

	for path, item := range out.Paths {
		if summary, ok := b.pathSummaries[path]; ok {
			item.Summary = summary
		}
		if desc, ok := b.pathDescriptions[path]; ok {
			item.Description = desc
		}
	}
	out.Tags = mergeTags(b.tags, out.Paths)

	if err := validateDocument(out); err != nil {
		return nil, err
	}

	b.logger.Debug("document finalized",
		"paths", len(out.Paths),
		"schemas", schemas.Len(),
		"securitySchemes", len(b.securitySchemes),
	)
	return &Document{spec: out}, nil
}

// mergeTags combines auto-collected tags from operations with user-defined tags.
// User-defined tags take precedence (their description and externalDocs are kept).
// Tags not seen in operations but defined by the user are still included.
// The result is sorted alphabetically.
func mergeTags(userDefined []Tag, paths map[string]*PathItem) []Tag {
	userTags := make(map[string]Tag, len(userDefined))
	for _, tag := range userDefined {
		userTags[tag.Name] = tag
	}

	seen := make(map[string]bool)
	var tags []Tag

	for _, pathItem := range paths {
		for _, op := range pathItem.operations() {
			if op == nil {
				continue
			}
			for _, tagName := range op.Tags {
				if seen[tagName] {
					continue
				}
				seen[tagName] = true
				if userTag, ok := userTags[tagName]; ok {
					tags = append(tags, userTag)
				} else {
					tags = append(tags, Tag{Name: tagName})
				}
			}
		}
	}

	for _, tag := range userDefined {
		if !seen[tag.Name] {
			seen[tag.Name] = true
			tags = append(tags, tag)
		}
	}

	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Name < tags[j].Name
	})

	return tags
}

func validMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete,
		http.MethodOptions, http.MethodHead, http.MethodPatch, http.MethodTrace:
		return true
	}
	return false
}

// assignOperation assigns an operation to the correct HTTP method field
// on the path item.
func assignOperation(pathItem *PathItem, method string, op *Operation) {
	switch method {
	case http.MethodGet:
		pathItem.Get = op
	case http.MethodPost:
		pathItem.Post = op
	case http.MethodPut:
		pathItem.Put = op
	case http.MethodDelete:
		pathItem.Delete = op
	case http.MethodPatch:
		pathItem.Patch = op
	case http.MethodHead:
		pathItem.Head = op
	case http.MethodOptions:
		pathItem.Options = op
	case http.MethodTrace:
		pathItem.Trace = op
	}
}

// operationFor returns the operation stored for method on the path item.
func operationFor(pathItem *PathItem, method string) *Operation {
	switch method {
	case http.MethodGet:
		return pathItem.Get
	case http.MethodPost:
		return pathItem.Post
	case http.MethodPut:
		return pathItem.Put
	case http.MethodDelete:
		return pathItem.Delete
	case http.MethodPatch:
		return pathItem.Patch
	case http.MethodHead:
		return pathItem.Head
	case http.MethodOptions:
		return pathItem.Options
	case http.MethodTrace:
		return pathItem.Trace
	}
	return nil
}

// parsePath extracts variables from a route template, converts it to
// OpenAPI format, and generates parameter objects.
func parsePath(tpl string) (string, []*Parameter) {
	var params []*Parameter

	openAPIPath := pathVarRegexp.ReplaceAllStringFunc(tpl, func(match string) string {
		inner := match[1 : len(match)-1]
		varName, macroName, _ := strings.Cut(inner, ":")

		param := &Parameter{
			Name:     varName,
			In:       InPath,
			Required: true,
			Schema:   &Schema{Type: "string"},
		}

		if macroName != "" {
			if typeInfo, ok := macroTypeMap[macroName]; ok {
				param.Schema = &Schema{Type: typeInfo[0], Format: typeInfo[1]}
			}
		}

		params = append(params, param)
		return "{" + varName + "}"
	})

	return openAPIPath, params
}
