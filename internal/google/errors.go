package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Kind names a class of provider failure.
type Kind string

const (
	KindHTTP                    Kind = "GoogleAPIHttpError"
	KindMissingFolderStructure  Kind = "MissingFolderStructure"
	KindStructureCreationFailed Kind = "StructureCreationFailed"
	KindStructureDeletionFailed Kind = "StructureDeletionFailed"
	KindSocialTokenNotFound     Kind = "SocialTokenNotFound"
	KindFileToDeleteNotFound    Kind = "FileToDeleteNotFound"
	KindInvalidData             Kind = "InvalidData"
)

// Reason refines KindHTTP errors with the remediation the user needs.
type Reason string

const (
	ReasonAuthExpired Reason = "auth_expired"
	ReasonForbidden   Reason = "forbidden"
	ReasonTransport   Reason = "transport"
	ReasonUpstream    Reason = "upstream"
)

const (
	msgAuthExpired = "Google credentials have expired. The owner of the space should be notified to re-login to the portal with Google."
	msgRefreshFail = msgAuthExpired + " If the issue persists, contact the portal admin."
	msgForbidden   = "No valid permissions to access the user's space at Google. The owner of the space should be notified to re-login to the portal with Google by checking all the checkboxes of Google Permissions."
	msgUpstream    = "Invalid response from google API while communicating. Please notify portal admin."
	msgTransport   = "The server could not communicate with the google API. Retry after some time or contact portal admin."
)

// Error is a provider facing failure tagged with a correlation id.
type Error struct {
	Kind    Kind
	Reason  Reason
	ErrorID string
	Message string
	Row     int
	Err     error
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, ErrorID: uuid.NewString(), Message: message, Err: err}
}

func httpError(reason Reason, message string, err error) *Error {
	e := newError(KindHTTP, message, err)
	e.Reason = reason
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: (errorId: %s) %s", e.Kind, e.ErrorID, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts the provider error from err.
func AsError(err error) (*Error, bool) {
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr, true
	}
	return nil, false
}

// IsKind reports whether err carries a provider error of the given kind.
func IsKind(err error, kind Kind) bool {
	gErr, ok := AsError(err)
	return ok && gErr.Kind == kind
}

// classify maps a raw client error into the provider taxonomy. With passNotFound
// a 404 is returned untouched so the caller can translate it.
func classify(err error, passNotFound bool) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return httpError(ReasonAuthExpired, msgRefreshFail, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound && passNotFound:
			return err
		case apiErr.Code == http.StatusUnauthorized:
			return httpError(ReasonAuthExpired, msgAuthExpired, err)
		case apiErr.Code == http.StatusForbidden:
			return httpError(ReasonForbidden, msgForbidden, err)
		default:
			return httpError(ReasonUpstream, msgUpstream, err)
		}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return httpError(ReasonTransport, msgTransport, err)
	}

	return httpError(ReasonUpstream, msgUpstream, err)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if gErr, ok := AsError(err); ok {
		if gErr.Reason != "" {
			return string(gErr.Reason)
		}
		return string(gErr.Kind)
	}
	if isNotFound(err) {
		return "not_found"
	}
	return "error"
}
