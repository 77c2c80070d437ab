package openapi

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// groupDefaults holds the default metadata that a Group applies to every
// operation registered through it. Operation values take precedence.
type groupDefaults struct {
	tags         []string
	security     []SecurityRequirement
	securitySet  bool // distinguishes nil (inherit) from empty (public)
	deprecated   bool
	servers      []Server
	parameters   []*Parameter
	externalDocs *ExternalDocs

	errors               []errorDecl
	responses            []*responseDecl
	responseDescriptions map[string]string             // statusKey -> custom description
	responseHeaders      map[string]map[string]*Header // statusKey -> headerName -> header
}

// clone returns a copy that can be extended without touching d.
func (d groupDefaults) clone() groupDefaults {
	out := d
	out.tags = slices.Clone(d.tags)
	out.security = slices.Clone(d.security)
	out.servers = slices.Clone(d.servers)
	out.parameters = slices.Clone(d.parameters)
	out.errors = slices.Clone(d.errors)
	out.responses = slices.Clone(d.responses)
	out.responseDescriptions = maps.Clone(d.responseDescriptions)
	if d.responseHeaders != nil {
		out.responseHeaders = make(map[string]map[string]*Header, len(d.responseHeaders))
		for key, headers := range d.responseHeaders {
			out.responseHeaders[key] = maps.Clone(headers)
		}
	}
	return out
}

// Group registers operations under a shared path prefix with shared
// metadata defaults. Groups nest: a child group starts from a copy of its
// parent's prefix and defaults.
type Group struct {
	builder  *Builder
	prefix   string
	defaults groupDefaults
}

// Group creates a new Group rooted at prefix.
func (b *Builder) Group(prefix string) *Group {
	return &Group{builder: b, prefix: joinPath("", prefix)}
}

// Group creates a nested group. Defaults set on the parent afterwards do
// not propagate to the child.
func (g *Group) Group(prefix string) *Group {
	return &Group{
		builder:  g.builder,
		prefix:   joinPath(g.prefix, prefix),
		defaults: g.defaults.clone(),
	}
}

// Prefix returns the path prefix of the group.
func (g *Group) Prefix() string {
	return g.prefix
}

// Tags appends tags to the group defaults. Operations registered through
// this group inherit these tags and may add more via their own Tags call.
func (g *Group) Tags(tags ...string) *Group {
	g.defaults.tags = append(g.defaults.tags, tags...)
	return g
}

// Security sets the group-level security requirements. Operations
// registered through this group inherit these requirements unless they call
// Security themselves, which replaces the group value. Call with no
// arguments to mark the group as public.
func (g *Group) Security(reqs ...SecurityRequirement) *Group {
	if reqs == nil {
		reqs = []SecurityRequirement{}
	}
	g.defaults.security = reqs
	g.defaults.securitySet = true
	return g
}

// Deprecated marks all operations in this group as deprecated. This is a
// one-way latch: individual operations cannot undo group deprecation.
func (g *Group) Deprecated() *Group {
	g.defaults.deprecated = true
	return g
}

// Server adds a server override to the group defaults.
func (g *Group) Server(server Server) *Group {
	g.defaults.servers = append(g.defaults.servers, server)
	return g
}

// Parameter adds a common parameter to the group defaults.
func (g *Group) Parameter(param *Parameter) *Group {
	g.defaults.parameters = append(g.defaults.parameters, param)
	return g
}

// ExternalDocs sets external documentation for the group. Operations
// inherit it unless they call ExternalDocs themselves.
func (g *Group) ExternalDocs(url, description string) *Group {
	g.defaults.externalDocs = &ExternalDocs{URL: url, Description: description}
	return g
}

// Errors declares a shared error type. Its statuses are added to every
// operation that does not declare the same status itself.
func (g *Group) Errors(v any, codes ...int) *Group {
	g.defaults.errors = append(g.defaults.errors, errorDecl{value: v, codes: codes})
	return g
}

// Response adds a shared application/json response for the given HTTP status
// code. An operation-level response for the same status code overrides the
// group default.
func (g *Group) Response(statusCode int, body any) *Group {
	decl := &responseDecl{key: strconv.Itoa(statusCode)}
	if body == nil {
		decl.noBody = true
	} else {
		decl.contents = []contentDecl{{contentType: contentTypeJSON, body: body}}
	}
	g.defaults.responses = append(g.defaults.responses, decl)
	return g
}

// DefaultResponse adds a shared application/json default response.
func (g *Group) DefaultResponse(body any) *Group {
	decl := &responseDecl{key: "default"}
	if body == nil {
		decl.noBody = true
	} else {
		decl.contents = []contentDecl{{contentType: contentTypeJSON, body: body}}
	}
	g.defaults.responses = append(g.defaults.responses, decl)
	return g
}

// ResponseDescription sets a custom description for a shared response.
func (g *Group) ResponseDescription(statusCode int, desc string) *Group {
	if g.defaults.responseDescriptions == nil {
		g.defaults.responseDescriptions = make(map[string]string)
	}
	g.defaults.responseDescriptions[strconv.Itoa(statusCode)] = desc
	return g
}

// ResponseHeader adds a shared header to the response for the given HTTP
// status code.
func (g *Group) ResponseHeader(statusCode int, name string, h *Header) *Group {
	key := strconv.Itoa(statusCode)
	if g.defaults.responseHeaders == nil {
		g.defaults.responseHeaders = make(map[string]map[string]*Header)
	}
	if g.defaults.responseHeaders[key] == nil {
		g.defaults.responseHeaders[key] = make(map[string]*Header)
	}
	g.defaults.responseHeaders[key][name] = h
	return g
}

// RegisterOperation registers op for method on the group prefix joined
// with path, applying the group defaults.
func (g *Group) RegisterOperation(path, method string, op *OperationBuilder) error {
	defaults := g.defaults.clone()
	return g.builder.register(joinPath(g.prefix, path), method, op, &defaults)
}

// joinPath joins a prefix and a path with exactly one slash between them.
func joinPath(prefix, path string) string {
	prefix = strings.TrimRight(prefix, "/")
	path = strings.Trim(path, "/")
	switch {
	case path == "" && prefix == "":
		return "/"
	case path == "":
		return prefix
	case strings.HasPrefix(prefix, "/") || prefix == "":
		return prefix + "/" + path
	default:
		return "/" + prefix + "/" + path
	}
}
