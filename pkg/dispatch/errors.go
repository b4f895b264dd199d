package dispatch

import "fmt"

// Kind enumerates the transport failure kinds.
type Kind string

const (
	KindTimeout           Kind = "timeout"
	KindConnectionRefused Kind = "connection_refused"
	KindDNSFailure        Kind = "dns_failure"
	KindTLSFailure        Kind = "tls_failure"
	KindTooManyRedirects  Kind = "too_many_redirects"
	KindProtocolError     Kind = "protocol_error"
	KindCancelled         Kind = "cancelled"
)

// TransportError is the typed dispatch failure; the executor captures it
// into an ExecutionResult rather than letting it unwind.
type TransportError struct {
	Kind    Kind
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("dispatch: %s: %s", e.Kind, e.Message)
}
