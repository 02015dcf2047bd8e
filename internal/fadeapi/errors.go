package fadeapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPStatusError reports a 4xx/5xx response, after any refresh retry.
type HTTPStatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	if body := strings.TrimSpace(string(e.Body)); body != "" {
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		msg += ": " + body
	}
	return msg
}

// IsUnauthorized reports whether err is a 401 HTTPStatusError.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
