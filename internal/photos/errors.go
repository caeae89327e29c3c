package photos

import "fmt"

// AuthError indicates missing, expired, or rejected remote credentials.
// Callers surface it distinctly so the user can be prompted to re-authorize.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authorization required: " + e.Reason
}

// RemoteError indicates a transport or remote-service failure. Pages carries
// the number of pages fetched before a paginated call failed, for diagnostics.
type RemoteError struct {
	Op         string
	StatusCode int
	Pages      int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
