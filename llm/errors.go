package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is an HTTP-level failure from the endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: http %d: %s", e.Code, e.Body)
}

func statusError(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return &StatusError{Code: code, Body: msg}
}

// IsFatal reports whether an error is non-retryable: authentication and
// request-shape failures won't succeed on retry, while 429 and 5xx might.
func IsFatal(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case http.StatusTooManyRequests:
		return false
	}
	return se.Code >= 400 && se.Code < 500
}
