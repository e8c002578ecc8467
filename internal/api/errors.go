package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrConnection marks failures where no HTTP response was received.
var ErrConnection = errors.New("connection error")

// StatusError is returned when the server answered with a non-200 status.
type StatusError struct {
	Op     string // "list", "upload", "download"
	Code   int
	Status string // reason phrase, e.g. "Not Found"
	Body   string // response body, verbatim
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.Code, strings.TrimSpace(e.Body))
}

// IsConnectionError reports whether err is a network-level failure.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

// AsStatusError extracts a *StatusError from err.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// statusText returns the reason phrase of a response status line
// ("404 Not Found" -> "Not Found").
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		return status
	}
	return text
}
