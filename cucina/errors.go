package cucina

import (
	"errors"
	"fmt"
)

// ErrKitchenUnreachable wraps transport-level failures. Callers surface
// a generic message; the cause stays attached for logs.
var ErrKitchenUnreachable = errors.New("kitchen backend unreachable")

// AuthError is a 401 from the backend. The session that carried the
// token is no longer valid and must be torn down.
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return "kitchen rejected credentials"
	}
	return e.Detail
}

// BackendError is any other non-2xx response. Detail is the backend's
// own message and is shown to the user verbatim.
type BackendError struct {
	StatusCode int
	Detail     string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("kitchen returned %d: %s", e.StatusCode, e.Detail)
}

func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
