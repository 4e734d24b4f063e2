package backend

import (
	"errors"
	"fmt"
)

// ErrNoToken is returned by every request when no API token is configured.
var ErrNoToken = errors.New("no API token configured; set token in config.toml or TASKCLOCK_TOKEN")

// APIError describes a failed backend call. Status is zero when no response
// arrived; Err then holds the transport error.
type APIError struct {
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("api %s: %s: %v", e.Path, e.Message, e.Err)
		}
		return fmt.Sprintf("api %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Message returns the user-facing text for err: the backend's own message
// when err is an *APIError, otherwise err's text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
