package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
)

// ConnectionError reports a failure to establish a connection to a target
// deployment. It carries the upstream cause and is returned to callers
// as-is: the pool never retries internally.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to deployment: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// connectionErrorPatterns contains common error substrings that indicate a
// connection problem. Used by IsConnectionError to decide whether a pooled
// connection should be invalidated after a failed operation.
var connectionErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"connection closed",
	"broken pipe",
	"eof",
	"no such host",
	"network is unreachable",
	"server selection error",
	"context deadline exceeded",
	"i/o timeout",
	"use of closed network connection",
	"topology is closed",
}

// IsConnectionError reports whether an error from a database operation looks
// like a connection problem rather than a bad request. Callers use it to
// invalidate the pooled connection so the next Acquire dials a fresh one.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var ce *ConnectionError
	if errors.As(err, &ce) {
		return true
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range connectionErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
