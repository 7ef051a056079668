package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind classifies why an account attempt failed. The orchestrator
// decides retry-with-new-proxy versus stop based on this structured kind, not
// on error text.
type FailureKind string

const (
	// KindTransientSelector marks an element that never became interactable
	// after all single-action retries.
	KindTransientSelector FailureKind = "transient-selector"
	// KindProxyConnectivity marks transport-level failures attributable to
	// the assigned proxy endpoint.
	KindProxyConnectivity FailureKind = "proxy-connectivity"
	// KindInputValidation marks malformed workflow input (code, birthdate).
	KindInputValidation FailureKind = "input-validation"
	// KindCodeTimeout marks a verification code that never arrived after all
	// resend attempts.
	KindCodeTimeout FailureKind = "code-timeout"
	// KindUnverified marks a workflow that ran to the end without the final
	// page confirming success.
	KindUnverified FailureKind = "unverified-completion"
	// KindBrowser covers everything else that went wrong in the session.
	KindBrowser FailureKind = "browser"
)

// FailureError is a classified workflow failure. It wraps the underlying
// cause so errors.Is/As still sees the original error chain.
type FailureError struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (e *FailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *FailureError) Unwrap() error { return e.Err }

// newFailure builds a classified failure with a formatted detail.
func newFailure(kind FailureKind, err error, format string, args ...any) *FailureError {
	return &FailureError{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// InputValidationError marks malformed workflow input; it is fatal for the
// attempt and never retried.
func InputValidationError(format string, args ...any) *FailureError {
	return newFailure(KindInputValidation, nil, format, args...)
}

// proxyMarkers are transport failure fingerprints from the CDP layer and the
// proxy itself. Typed classification is preferred; this text heuristic only
// catches errors that arrive from the transport untyped.
var proxyMarkers = []string{
	"403",
	"forbidden",
	"proxy",
	"connection",
	"-32000",
	"failed to open",
	"net::err",
	"tunnel",
}

// Classify assigns a FailureKind to an arbitrary error. Already-classified
// failures keep their kind; unclassified transport errors are matched against
// known proxy failure fingerprints; the remainder is a generic browser fault.
func Classify(err error) FailureKind {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range proxyMarkers {
		if strings.Contains(msg, marker) {
			return KindProxyConnectivity
		}
	}
	return KindBrowser
}

// Status is the coarse verdict of one workflow attempt.
type Status int

const (
	StatusSuccess Status = iota
	StatusRetryableFailure
	StatusFatalFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRetryableFailure:
		return "retryable-failure"
	case StatusFatalFailure:
		return "fatal-failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the tagged result a workflow instance reports to the
// orchestrator.
type Outcome struct {
	Status Status
	Kind   FailureKind
	Detail string
}

// Success is the terminal happy outcome.
func Success() Outcome {
	return Outcome{Status: StatusSuccess}
}

// FailureFromError converts a step error into an outcome. Proxy-class
// failures are retryable (the orchestrator swaps the endpoint and restarts);
// everything else ends the account attempt.
func FailureFromError(err error) Outcome {
	kind := Classify(err)
	status := StatusFatalFailure
	if kind == KindProxyConnectivity {
		status = StatusRetryableFailure
	}
	return Outcome{Status: status, Kind: kind, Detail: err.Error()}
}

// Failure builds an explicit failure outcome.
func Failure(kind FailureKind, detail string) Outcome {
	status := StatusFatalFailure
	if kind == KindProxyConnectivity {
		status = StatusRetryableFailure
	}
	return Outcome{Status: status, Kind: kind, Detail: detail}
}

// Retryable reports whether the orchestrator should re-run the account with
// a different proxy.
func (o Outcome) Retryable() bool { return o.Status == StatusRetryableFailure }

// Succeeded reports terminal success.
func (o Outcome) Succeeded() bool { return o.Status == StatusSuccess }
