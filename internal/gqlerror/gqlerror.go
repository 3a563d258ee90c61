// Package gqlerror defines the error taxonomy shared across the gateway
// pipeline: one struct per problem, carrying a message, a code, and a
// location, used as the request-facing error model for operation
// preparation, planning, and execution.
package gqlerror

import "fmt"

// Code classifies a gateway error for HTTP status mapping and client
// extensions.code reporting.
type Code string

const (
	CodeBadRequest                  Code = "BAD_REQUEST"
	CodeUnauthenticated             Code = "UNAUTHENTICATED"
	CodeUnauthorized                Code = "UNAUTHORIZED"
	CodePersistedQueryNotFound      Code = "PERSISTED_QUERY_NOT_FOUND"
	CodePersistedQueryError         Code = "PERSISTED_QUERY_ERROR"
	CodeOperationValidationError    Code = "OPERATION_VALIDATION_ERROR"
	CodeOperationPlanningError      Code = "OPERATION_PLANNING_ERROR"
	CodeSubgraphRequestError        Code = "SUBGRAPH_REQUEST_ERROR"
	CodeSubgraphInvalidResponse     Code = "SUBGRAPH_INVALID_RESPONSE_ERROR"
	CodeSubgraphError               Code = "SUBGRAPH_ERROR"
	CodeRateLimited                 Code = "RATE_LIMITED"
	CodeGatewayTimeout              Code = "GATEWAY_TIMEOUT"
	CodeInternalServerError         Code = "INTERNAL_SERVER_ERROR"
	CodeIntrospectionIsDisabled     Code = "INTROSPECTION_IS_DISABLED"
)

// Location identifies a position within a GraphQL document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Error is a single GraphQL-over-HTTP error entry.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Code returns the error's code extension, or "" if unset.
func (e *Error) Code() Code {
	if e == nil || e.Extensions == nil {
		return ""
	}
	if c, ok := e.Extensions["code"].(Code); ok {
		return c
	}
	if c, ok := e.Extensions["code"].(string); ok {
		return Code(c)
	}
	return ""
}

// New builds an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Message:    fmt.Sprintf(format, args...),
		Extensions: map[string]any{"code": code},
	}
}

// WithPath returns a copy of e with path set.
func WithPath(e *Error, path []any) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// WithLocation returns a copy of e with a single location set.
func WithLocation(e *Error, line, column int) *Error {
	cp := *e
	cp.Locations = []Location{{Line: line, Column: column}}
	return &cp
}

// List is an ordered collection of Errors, satisfying the error interface
// so it can be returned from functions that fail with zero, one, or many
// problems at once.
type List []*Error

func (l List) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	if len(l) == 1 {
		return l[0].Message
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0].Message, len(l)-1)
}

// HTTPStatus maps a Code to the status code spec.md §7 requires.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeOperationValidationError, CodePersistedQueryError:
		return 400
	case CodeUnauthenticated:
		return 401
	case CodeUnauthorized:
		return 403
	case CodePersistedQueryNotFound:
		return 200 // client is expected to retry with the full document
	case CodeRateLimited:
		return 429
	case CodeGatewayTimeout:
		return 504
	case CodeIntrospectionIsDisabled:
		return 200 // surfaced as a document-located GraphQL error, not an HTTP failure
	case CodeOperationPlanningError, CodeSubgraphRequestError, CodeSubgraphInvalidResponse, CodeSubgraphError, CodeInternalServerError:
		return 200 // partial or total failure reported in the response body per GraphQL-over-HTTP
	default:
		return 500
	}
}
