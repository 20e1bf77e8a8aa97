package source

// Kind classifies a fetch failure. Only transport failures are
// retryable; everything else terminates the fetch attempt.
type Kind string

const (
	// KindCredentialMissing means no API key was provided; no network
	// call was attempted.
	KindCredentialMissing Kind = "credential_missing"

	// KindCredentialRejected means the upstream returned 401.
	KindCredentialRejected Kind = "credential_rejected"

	// KindRateLimited means the upstream returned 429.
	KindRateLimited Kind = "rate_limited"

	// KindHTTPStatus covers any other non-200 response.
	KindHTTPStatus Kind = "http_status"

	// KindUpstream means the upstream answered 200 with an error
	// payload of its own.
	KindUpstream Kind = "upstream"

	// KindEmptyResult means a well-formed response contained no
	// matching articles. A soft failure, not a retry trigger.
	KindEmptyResult Kind = "empty_result"

	// KindTransport covers network failures, timeouts and malformed
	// bodies. The only retryable kind.
	KindTransport Kind = "transport"
)

// Error is a classified fetch failure
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may succeed on a retry
func (e *Error) Retryable() bool {
	return e.Kind == KindTransport
}

// CredentialProblem reports whether the failure points at the API key
func (e *Error) CredentialProblem() bool {
	return e.Kind == KindCredentialMissing || e.Kind == KindCredentialRejected
}
