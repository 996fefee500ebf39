package ensemble

// upstreamError wraps a failed external call (generate, similarity,
// summarize, feedback store). Any such failure aborts the whole run; the
// HTTP layer maps it to 502 when the stream has not started yet.
type upstreamError struct {
	op  string
	err error
}

func (e upstreamError) Error() string { return e.op + ": " + e.err.Error() }

func (e upstreamError) Unwrap() error { return e.err }

// ErrUpstream constructs an upstreamError.
func ErrUpstream(op string, err error) error { return upstreamError{op: op, err: err} }

// IsUpstream reports whether err indicates a failed external call.
func IsUpstream(err error) bool {
	_, ok := err.(upstreamError)
	return ok
}
