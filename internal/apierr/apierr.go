// Package apierr normalizes every failure returned by the remote generation
// service into one error shape with a numeric status, a human readable message
// and a small closed classification.
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a normalized failure.
type Kind string

const (
	KindPermissionDenied Kind = "permission_denied"
	KindTransient        Kind = "transient"
	KindUnknown          Kind = "unknown"
)

const (
	DefaultStatus  = http.StatusInternalServerError
	DefaultMessage = "An unknown error occurred"

	// PermissionDeniedMessage replaces whatever the service said when the
	// credential is not allowed to use the requested model.
	PermissionDeniedMessage = "ACCESS_DENIED: High-tier models require a Billing-enabled API key from Google AI Studio."

	permissionMarker = "PERMISSION_DENIED"
)

// Presentation hints returned by Error.Action.
const (
	ActionChangeCredential = "change_credential"
	ActionDismiss          = "dismiss"
)

// ErrNoCredential reports that no usable credential could be resolved. The
// gateway never contacts the remote service when it sees this condition.
var ErrNoCredential = errors.New("no api credential configured")

// Error is the only failure shape that crosses the gateway boundary.
type Error struct {
	StatusCode int
	Message    string
	Kind       Kind
	cause      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// PermissionDenied reports whether the credential lacks access to the model.
func (e *Error) PermissionDenied() bool {
	return e != nil && e.Kind == KindPermissionDenied
}

// Action tells the presentation layer which affordance to offer.
func (e *Error) Action() string {
	if e.PermissionDenied() {
		return ActionChangeCredential
	}
	return ActionDismiss
}

// MarshalJSON renders the error the way the presentation layer consumes it.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Kind    Kind   `json:"kind"`
		Action  string `json:"action"`
	}{e.StatusCode, e.Message, e.Kind, e.Action()})
}

// Envelope is the "error" object of a remote response body.
type Envelope struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Raw mirrors a failure as observed at the remote boundary: the transport
// status and message, plus whatever error envelope the body carried.
type Raw struct {
	Status   int
	Message  string
	Envelope Envelope
}

func (r *Raw) Error() string {
	status := r.Status
	if status == 0 {
		status = r.Envelope.Code
	}
	msg := firstNonEmpty(r.Message, r.Envelope.Message)
	if msg == "" {
		return fmt.Sprintf("remote status %d", status)
	}
	return fmt.Sprintf("remote status %d: %s", status, msg)
}

type statusCoder interface {
	StatusCode() int
}

// Normalize converts err into an *Error. A nil error stays nil and an error
// that is already normalized is returned untouched.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var normalized *Error
	if errors.As(err, &normalized) {
		return normalized
	}

	status, marker := statusOf(err)
	message := messageOf(err)

	if status == http.StatusForbidden ||
		strings.Contains(message, permissionMarker) ||
		strings.Contains(marker, permissionMarker) {
		return &Error{
			StatusCode: http.StatusForbidden,
			Message:    PermissionDeniedMessage,
			Kind:       KindPermissionDenied,
			cause:      err,
		}
	}

	return &Error{
		StatusCode: status,
		Message:    message,
		Kind:       classify(err, status),
		cause:      err,
	}
}

// New builds an already normalized error, used for failures detected locally
// while unwrapping a response (missing image part, missing video uri, ...).
func New(status int, message string) *Error {
	return Normalize(&Raw{Status: status, Message: message})
}

// Invalid wraps a caller input problem found before any remote call.
func Invalid(err error) *Error {
	return Normalize(&Raw{Status: http.StatusBadRequest, Message: err.Error()})
}

func statusOf(err error) (int, string) {
	if errors.Is(err, ErrNoCredential) {
		return http.StatusUnauthorized, ""
	}
	var raw *Raw
	if errors.As(err, &raw) {
		if raw.Status > 0 {
			return raw.Status, raw.Envelope.Status
		}
		if raw.Envelope.Code > 0 {
			return raw.Envelope.Code, raw.Envelope.Status
		}
		return DefaultStatus, raw.Envelope.Status
	}
	var coder statusCoder
	if errors.As(err, &coder) && coder.StatusCode() > 0 {
		return coder.StatusCode(), ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ""
	}
	return DefaultStatus, ""
}

func messageOf(err error) string {
	var raw *Raw
	if errors.As(err, &raw) {
		if msg := firstNonEmpty(raw.Message, raw.Envelope.Message); msg != "" {
			return msg
		}
		return DefaultMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return DefaultMessage
}

func classify(err error, status int) Kind {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	return KindUnknown
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
