package narrative

import "fmt"

// ClientError is a non-retryable rejection (4xx) of the narrative request.
type ClientError struct {
	Attempts int
	Err      error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("narrative request rejected: %v", e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// TransportError reports that every attempt failed with a transport or server error.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("narrative request failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
