package upstream

import "fmt"

// TransportError covers network failures and unparseable responses. Callers
// may retry these; the request may never have reached the upstream.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-200 answer from the upstream, carrying its status code
// and message verbatim.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}
