package v0

import (
	"errors"
	"fmt"
)

// classifies transport failures. ReadTimeout and IncompleteStream are
// ambiguous: the remote side may have completed the side-effecting work even
// though the terminal frame was never observed locally, so they must pass
// through reconciliation before anyone treats them as failures.
type ErrorKind string

const (
	KindReadTimeout      ErrorKind = "read_timeout"      // no bytes within the inactivity window
	KindIncompleteStream ErrorKind = "incomplete_stream" // stream closed without a terminal frame
	KindHTTP             ErrorKind = "http"              // connection or protocol failure
	KindParse            ErrorKind = "parse"             // malformed frame payload
	KindRemote           ErrorKind = "remote"            // error frame or non-2xx response
)

type TransportError struct {
	Kind    ErrorKind
	Message string
	Err     error

	// remote HTTP status for KindRemote failures, zero otherwise
	StatusCode int
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transport %s: %s", e.Kind, e.Message)
	}

	return fmt.Sprintf("transport %s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// reports whether the failure leaves the remote outcome unknown
func IsAmbiguous(err error) bool {
	var terr *TransportError
	if !errors.As(err, &terr) {
		return false
	}

	return terr.Kind == KindReadTimeout || terr.Kind == KindIncompleteStream
}

// extracts the transport error kind, or empty when err is not one
func Kind(err error) ErrorKind {
	var terr *TransportError
	if !errors.As(err, &terr) {
		return ""
	}

	return terr.Kind
}
