package dispatch

import (
	"fmt"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ErrorKind is the closed set of failures a dispatch operation can report.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindTemplateNotFound
	KindTemplateParse
	KindOrchestratorRejected
	KindQueryFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindTemplateNotFound:
		return "TemplateNotFound"
	case KindTemplateParse:
		return "TemplateParseError"
	case KindOrchestratorRejected:
		return "OrchestratorRejected"
	case KindQueryFailed:
		return "QueryFailed"
	}
	return "InternalError"
}

// Error is returned by every dispatch operation. Detail is safe to hand back
// to API clients verbatim.
type Error struct {
	Kind   ErrorKind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether repeating the same call may succeed without any
// change on the caller side.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindQueryFailed:
		return true
	case KindOrchestratorRejected:
		return apierrors.IsTooManyRequests(e.cause) ||
			apierrors.IsServerTimeout(e.cause) ||
			apierrors.IsTimeout(e.cause) ||
			apierrors.IsServiceUnavailable(e.cause) ||
			apierrors.IsInternalError(e.cause)
	}
	return false
}

func newError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf extracts the ErrorKind of err, defaulting to KindInternal for errors
// that did not originate here.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Detail returns the client facing detail of err.
func Detail(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Detail
	}
	return err.Error()
}

// orchestratorDetail prefers the message from the API status body, falling
// back to the error text.
func orchestratorDetail(err error) string {
	var status apierrors.APIStatus
	if errors.As(err, &status) {
		if msg := status.Status().Message; msg != "" {
			return msg
		}
	}
	return err.Error()
}
