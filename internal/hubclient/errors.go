package hubclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call for the caller's user-facing handling.
type Kind int

const (
	// KindTransport covers network failures and anything unexpected.
	KindTransport Kind = iota
	KindValidation
	KindConflict
	KindAuthorization
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "transport"
	}
}

// uniqueViolation is the Postgres SQLSTATE some backends forward verbatim.
const uniqueViolation = "23505"

// APIError is a non-2xx response from the hub.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("hub: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("hub: %d %s", e.Status, e.Code)
}

func (e *APIError) Kind() Kind {
	switch {
	case e.Status == http.StatusConflict || e.Code == uniqueViolation:
		return KindConflict
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return KindValidation
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return KindAuthorization
	case e.Status == http.StatusNotFound:
		return KindNotFound
	default:
		return KindTransport
	}
}

// ValidationError is returned before any request is sent when input is
// rejected locally.
type ValidationError struct {
	Code string
}

func (e *ValidationError) Error() string { return e.Code }

func (e *ValidationError) Kind() Kind { return KindValidation }

// ErrNoSession is returned by calls that need a signed-in user.
var ErrNoSession = errors.New("no_session")

type kinded interface {
	Kind() Kind
}

// KindOf classifies err. Errors that carry no classification, including
// context cancellation and network failures, are KindTransport.
func KindOf(err error) Kind {
	if err == nil {
		return KindTransport
	}
	if errors.Is(err, ErrNoSession) {
		return KindAuthorization
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransport
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindTransport
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func errorFromResponse(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: "request_failed"}
	if resp.Body != nil {
		var payload struct {
			Error   string `json:"error"`
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := decodeBody(resp.Body, &payload); err == nil {
			switch {
			case payload.Error != "":
				apiErr.Code = payload.Error
			case payload.Code != "":
				apiErr.Code = payload.Code
			}
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}
