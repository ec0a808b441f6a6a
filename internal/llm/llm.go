package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client issues a single completion request. Implementations do not retry
// or cache; each call is independent.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is one prompt plus its sampling configuration.
type Request struct {
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

const defaultTimeout = 60 * time.Second

func (r Request) timeout() time.Duration {
	if r.Timeout <= 0 {
		return defaultTimeout
	}
	return r.Timeout
}

// Kind classifies why a completion produced no usable text.
type Kind string

const (
	KindTransport Kind = "transport" // connection error or timeout
	KindService   Kind = "service"   // non-success status from the service
	KindEmpty     Kind = "empty"     // success with blank text
)

// StatusTransport is the status carried by failures that never got a response.
const StatusTransport = -1

// Failure is the error type returned by every Client implementation.
type Failure struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("llm %s failure (status %d): %s", f.Kind, f.Status, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// TransportFailure wraps a connection-level error.
func TransportFailure(err error) *Failure {
	msg := "transport error"
	if err != nil {
		msg = err.Error()
	}
	return &Failure{Kind: KindTransport, Status: StatusTransport, Message: msg, Err: err}
}

// ServiceFailure records a non-success response.
func ServiceFailure(status int, message string, err error) *Failure {
	return &Failure{Kind: KindService, Status: status, Message: message, Err: err}
}

// AsFailure extracts a *Failure from err. Errors that are not failures are
// reported as transport failures so callers only ever branch on one type.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return TransportFailure(err)
}

// Classify trims the text of a completion and folds a blank success into a
// KindEmpty failure.
func Classify(text string, err error) (string, *Failure) {
	if err != nil {
		return "", AsFailure(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &Failure{Kind: KindEmpty, Status: 200, Message: "no content returned"}
	}
	return text, nil
}
