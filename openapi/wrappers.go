package openapi

import (
	"net/http"
	"strconv"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// NoContent describes an empty response. It maps to 204 with no content.
type NoContent struct{}

// OpenAPISchema implements Component. NoContent emits no schema.
func (NoContent) OpenAPISchema() (string, *Schema) { return "", nil }

// OpenAPIChildren implements Component.
func (NoContent) OpenAPIChildren() []Component { return nil }

// OpenAPIResponses implements Responder.
func (NoContent) OpenAPIResponses(status int) Responses {
	if status == 0 {
		status = http.StatusNoContent
	}
	return Responses{strconv.Itoa(status): &Response{}}
}

// OK describes a 200 response with a JSON body of type T.
type OK[T any] struct {
	Body T
}

// OpenAPISchema implements Component by delegating to T.
func (OK[T]) OpenAPISchema() (string, *Schema) { return TypeOf[T]().OpenAPISchema() }

// OpenAPIChildren implements Component by delegating to T.
func (OK[T]) OpenAPIChildren() []Component { return TypeOf[T]().OpenAPIChildren() }

// OpenAPIResponses implements Responder.
func (OK[T]) OpenAPIResponses(status int) Responses {
	return jsonResponses(TypeOf[T](), status, http.StatusOK)
}

// Created describes a 201 response with a JSON body of type T.
type Created[T any] struct {
	Body T
}

// OpenAPISchema implements Component by delegating to T.
func (Created[T]) OpenAPISchema() (string, *Schema) { return TypeOf[T]().OpenAPISchema() }

// OpenAPIChildren implements Component by delegating to T.
func (Created[T]) OpenAPIChildren() []Component { return TypeOf[T]().OpenAPIChildren() }

// OpenAPIResponses implements Responder.
func (Created[T]) OpenAPIResponses(status int) Responses {
	return jsonResponses(TypeOf[T](), status, http.StatusCreated)
}

// Accepted describes a 202 response with a JSON body of type T.
type Accepted[T any] struct {
	Body T
}

// OpenAPISchema implements Component by delegating to T.
func (Accepted[T]) OpenAPISchema() (string, *Schema) { return TypeOf[T]().OpenAPISchema() }

// OpenAPIChildren implements Component by delegating to T.
func (Accepted[T]) OpenAPIChildren() []Component { return TypeOf[T]().OpenAPIChildren() }

// OpenAPIResponses implements Responder.
func (Accepted[T]) OpenAPIResponses(status int) Responses {
	return jsonResponses(TypeOf[T](), status, http.StatusAccepted)
}

// Body describes a required JSON request body of type T.
type Body[T any] struct {
	Value T
}

// OpenAPISchema implements Component by delegating to T.
func (Body[T]) OpenAPISchema() (string, *Schema) { return TypeOf[T]().OpenAPISchema() }

// OpenAPIChildren implements Component by delegating to T.
func (Body[T]) OpenAPIChildren() []Component { return TypeOf[T]().OpenAPIChildren() }

// OpenAPIRequestBody implements RequestBodyComponent.
func (Body[T]) OpenAPIRequestBody() *RequestBody {
	return contentBody(contentTypeJSON, TypeOf[T]())
}

// Form describes a required form-urlencoded request body of type T.
type Form[T any] struct {
	Value T
}

// OpenAPISchema implements Component by delegating to T.
func (Form[T]) OpenAPISchema() (string, *Schema) { return TypeOf[T]().OpenAPISchema() }

// OpenAPIChildren implements Component by delegating to T.
func (Form[T]) OpenAPIChildren() []Component { return TypeOf[T]().OpenAPIChildren() }

// OpenAPIRequestBody implements RequestBodyComponent.
func (Form[T]) OpenAPIRequestBody() *RequestBody {
	return contentBody(contentTypeForm, TypeOf[T]())
}

// jsonResponses builds a single JSON response for c under status, or under
// def when status is zero.
func jsonResponses(c Component, status, def int) Responses {
	if status == 0 {
		status = def
	}
	resp := &Response{}
	if s := usage(c); s != nil {
		resp.Content = map[string]*MediaType{contentTypeJSON: {Schema: s}}
	}
	return Responses{strconv.Itoa(status): resp}
}

func contentBody(contentType string, c Component) *RequestBody {
	mt := &MediaType{Schema: usage(c)}
	return &RequestBody{
		Required: true,
		Content:  map[string]*MediaType{contentType: mt},
	}
}
