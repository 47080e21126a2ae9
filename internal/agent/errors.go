// internal/agent/errors.go
package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means the stock file could not be read this cycle,
	// typically because the ERP still holds it open.
	ErrSourceUnavailable = errors.New("stock source unavailable")
	ErrInvalidSource     = errors.New("stock file is not a valid export")
	ErrNoValidRows       = errors.New("stock file has no valid rows")
)

// ConnectivityError covers failures where the server may never have seen the
// batch: dial errors, timeouts and 5xx answers. The same file is resent on the
// next cycle.
type ConnectivityError struct {
	StatusCode int
	Err        error
}

func (e *ConnectivityError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("server error %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("connectivity error: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// RejectedError is a 4xx answer. Resending the same file cannot succeed.
type RejectedError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rejected with %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("rejected with %d", e.StatusCode)
}
