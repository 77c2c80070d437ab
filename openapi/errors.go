package openapi

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrSchemaNameConflict is returned when two different schema shapes are
	// contributed under one component name.
	ErrSchemaNameConflict = errors.New("openapi: schema name conflict")

	// ErrDuplicateResponseStatus is returned when an operation declares the
	// same response status more than once.
	ErrDuplicateResponseStatus = errors.New("openapi: duplicate response status")

	// ErrUnresolvedReference is returned by Finalize when a reference in the
	// assembled document points to a missing component. It indicates a broken
	// internal invariant rather than a user error.
	ErrUnresolvedReference = errors.New("openapi: unresolved reference")

	// ErrSecuritySchemeConflict is returned when a security scheme name is
	// contributed twice with different definitions.
	ErrSecuritySchemeConflict = errors.New("openapi: security scheme conflict")

	// ErrDuplicateOperation is returned when a path and method pair is
	// registered twice.
	ErrDuplicateOperation = errors.New("openapi: duplicate operation")

	// ErrDuplicateOperationID is returned when two operations share an
	// operation ID.
	ErrDuplicateOperationID = errors.New("openapi: duplicate operation id")

	// ErrDuplicateRequestBody is returned when an operation declares more
	// than one request body.
	ErrDuplicateRequestBody = errors.New("openapi: duplicate request body")

	// ErrInvalidParameter is returned for parameters with an invalid name or
	// location.
	ErrInvalidParameter = errors.New("openapi: invalid parameter")

	// ErrInvalidOperation is returned for malformed registrations such as an
	// empty path, an unknown method or a nil descriptor.
	ErrInvalidOperation = errors.New("openapi: invalid operation")
)

// SchemaConflictError describes two structurally different schemas
// contributed under the same component name. It matches
// ErrSchemaNameConflict with errors.Is.
type SchemaConflictError struct {
	Name     string
	Existing *Schema
	Incoming *Schema
}

// Error implements the error interface and includes both shapes.
func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("%s: %q registered as %s, contributed again as %s",
		ErrSchemaNameConflict, e.Name, compactJSON(e.Existing), compactJSON(e.Incoming))
}

// Is reports whether target is ErrSchemaNameConflict.
func (e *SchemaConflictError) Is(target error) bool {
	return target == ErrSchemaNameConflict
}

// RegistrationError locates an error raised while registering an operation.
type RegistrationError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
