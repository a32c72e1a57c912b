package couch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/futonlabs/couchstream/pkg/transport"
)

// Category sentinels for the store's HTTP error responses. StatusError
// matches these through errors.Is, so callers can write
// errors.Is(err, couch.ErrNotFound) without inspecting status codes.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("resource not found")
	ErrMethodNotAllowed    = errors.New("method not allowed")
	ErrConflict            = errors.New("resource conflict")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrRangeNotSatisfiable = errors.New("requested range not satisfiable")
	ErrServerError         = errors.New("server error")
)

// StatusError is an error response from the store: the HTTP status plus
// the machine-readable error id and human reason the server put in the
// JSON body.
type StatusError struct {
	Status  int
	ErrorID string
	Reason  string
}

func (e *StatusError) Error() string {
	if e.ErrorID == "" {
		return fmt.Sprintf("couch: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("couch: %d %s: %s", e.Status, e.ErrorID, e.Reason)
}

// Is maps the status code to its category sentinel.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrMethodNotAllowed:
		return e.Status == http.StatusMethodNotAllowed
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrPreconditionFailed:
		return e.Status == http.StatusPreconditionFailed
	case ErrRangeNotSatisfiable:
		return e.Status == http.StatusRequestedRangeNotSatisfiable
	case ErrServerError:
		return e.Status >= 500
	}
	return false
}

// errorBody is the JSON shape of the store's error responses.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// ResponseError inspects a response and, for statuses >= 400, consumes
// the body and returns a StatusError. The response is released on the
// error path so the connection is never left mid-body.
func ResponseError(resp *transport.Response) error {
	if resp.StatusCode() < 400 {
		return nil
	}
	var body errorBody
	// Best effort: an unparseable error body still yields the status.
	_ = resp.JSON(&body)
	_ = resp.Release()
	return &StatusError{
		Status:  resp.StatusCode(),
		ErrorID: body.Error,
		Reason:  body.Reason,
	}
}
