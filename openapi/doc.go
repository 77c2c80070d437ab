// Package openapi assembles OpenAPI v3.0.3 documents from the types that
// route handlers consume and produce.
//
// Every type that appears in a handler signature contributes a piece of the
// document: a named component schema, parameters, a request body, responses
// or a security scheme. Contributions are resolved into a shared component
// registry; named schemas are stored once and referenced everywhere else with
// "#/components/schemas/<Name>".
//
// See: https://spec.openapis.org/oas/v3.0.3
//
// # Builder
//
// Create a builder, describe each operation and finalize the document:
//
//	b := openapi.NewBuilder(openapi.Info{Title: "Pets", Version: "1.0.0"},
//	    openapi.WithLogger(slog.Default()),
//	)
//
//	err := b.RegisterOperation("/pets/{id:uuid}", http.MethodGet, openapi.NewOperation().
//	    OperationID("getPet").
//	    Summary("Get a pet").
//	    Tags("pets").
//	    Output(Pet{}).
//	    Errors(APIError{}))
//
//	doc, err := b.Finalize()
//	data, err := openapi.Serialize(doc)
//
// RegisterOperation returns errors immediately and also remembers them;
// Finalize reports every remembered error joined together and never returns
// a partial document. A Builder is not safe for concurrent use. A Document is
// immutable and safe for concurrent reads; its accessors return copies.
//
// # Path Parameters
//
// Path variables in the form {name} or {name:macro} become required path
// parameters automatically. Macros select the schema:
//
//	uuid     -> string/uuid
//	int      -> integer
//	float    -> number
//	date     -> string/date
//	domain   -> string/hostname
//	slug, alpha, alphanum, hex -> string
//
// Parameters declared on the operation with the same name and location
// override the generated ones.
//
// # Inputs
//
// Input declares what the handler consumes. Each value is classified:
//
//	openapi.PathParams[T]    -> path parameters from the fields of T
//	openapi.QueryParams[T]   -> query parameters
//	openapi.HeaderParams[T]  -> header parameters
//	openapi.CookieParams[T]  -> cookie parameters
//	openapi.Body[T]          -> required application/json request body
//	openapi.Form[T]          -> required form-urlencoded request body
//	SecurityComponent        -> security scheme plus requirement
//	any other value          -> required application/json request body
//
// An operation has at most one request body. Parameter names come from the
// location tag (query, path, header, cookie), then the json tag, then the
// field name.
//
// # Outputs and Errors
//
// Output declares the success type. Responder types choose their own status:
//
//	openapi.NoContent    -> 204, no content
//	openapi.OK[T]        -> 200, JSON body of T
//	openapi.Created[T]   -> 201, JSON body of T
//	openapi.Accepted[T]  -> 202, JSON body of T
//	any other value      -> 200, JSON body
//
// Errors declares the error type. Types implementing ErrorResponder list the
// statuses they can produce; pass status codes to document a subset:
//
//	op.Errors(APIError{}, http.StatusNotFound, http.StatusConflict)
//
// Every status appears once per operation. Declaring a status twice, from
// any combination of Output, Errors and Response, is an
// ErrDuplicateResponseStatus. Responses without an explicit description use
// the HTTP status text.
//
// # Schema Derivation
//
// Types without their own Component implementation are described by
// reflection:
//
//   - named structs become component schemas named after the type
//   - generic instantiations get sanitized names (Page[pkg.User] -> PageUser)
//   - types implementing Enumer become enum components
//   - types implementing OneOfer become oneOf components
//   - pointer fields become nullable; a nullable reference is wrapped in allOf
//   - time.Time is string/date-time, uuid.UUID is string/uuid, []byte is
//     string/byte, json.RawMessage is an unconstrained schema
//   - fields without omitempty and not pointers are required
//
// Struct field tags refine the derived schema:
//
//	type CreatePet struct {
//	    Name string `json:"name" openapi:"description=Pet name,minLength=1,maxLength=64"`
//	    Age  int    `json:"age,omitempty" openapi:"minimum=0,maximum=40,example=3"`
//	    Kind string `json:"kind" openapi:"enum=cat|dog|bird"`
//	}
//
// Supported openapi tag keys: description, title, example, default, format,
// minimum, maximum, exclusiveMinimum, exclusiveMaximum, multipleOf,
// minLength, maxLength, pattern, minItems, maxItems, uniqueItems,
// minProperties, maxProperties, enum, nullable, deprecated, readOnly,
// writeOnly.
//
// SchemaNamer overrides the component name and Exampler attaches an example.
//
// # Contribution Protocol
//
// A type can describe itself by implementing Component:
//
//	func (Money) OpenAPISchema() (string, *openapi.Schema) {
//	    return "Money", &openapi.Schema{Type: "string", Pattern: `^\d+\.\d{2}$`}
//	}
//
//	func (Money) OpenAPIChildren() []openapi.Component { return nil }
//
// The name is the component key; an empty name means the schema is inlined
// wherever the type is used. OpenAPIChildren returns the direct children
// only; the registry walks them transitively, stops at names it is already
// resolving, and so terminates on recursive types.
//
// # Schema Conflicts
//
// Two contributions under the same name with the same shape share one
// component. Different shapes under one name are a *SchemaConflictError
// carrying both shapes; the registry keeps the first. Names are never
// renamed automatically: rename one type or implement SchemaNamer.
//
// # Groups
//
// Group registers operations under a path prefix with shared defaults:
//
//	admin := b.Group("/admin").
//	    Tags("admin").
//	    Security(openapi.SecurityRequirement{"bearer": {}}).
//	    Errors(APIError{}, http.StatusUnauthorized, http.StatusForbidden)
//
//	err := admin.RegisterOperation("/users", http.MethodGet, openapi.NewOperation().
//	    Output([]User{}))
//
// Operation values take precedence over group defaults; group responses only
// fill statuses the operation does not declare.
//
// # Security
//
// Security schemes are contributed explicitly or by SecurityComponent
// inputs:
//
//	err := b.ContributeSecurityScheme("bearer", &openapi.SecurityScheme{
//	    Type:         "http",
//	    Scheme:       "bearer",
//	    BearerFormat: "JWT",
//	})
//
// Contributing an equal scheme twice is a no-op; a different scheme under a
// known name is an ErrSecuritySchemeConflict. Every requirement must name a
// contributed scheme when the document is finalized.
//
// # Serving
//
// NewHandler serves a finalized document as JSON, YAML and an interactive
// documentation page (Swagger UI, RapiDoc or Redoc):
//
//	h, err := openapi.NewHandler(doc, "/docs", &openapi.HandleConfig{UI: openapi.DocsRedoc})
//	mux.Handle("/docs/", h)
//
// See: https://spec.openapis.org/oas/v3.0.3#openapi-object
package openapi
