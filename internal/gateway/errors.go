package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/unilove/ridersync/internal/fault"
)

// classifyTransportError maps failures that happened before the server
// produced an HTTP response.
func classifyTransportError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fault.Wrap(fault.CodeTransportUnreachable, "Cannot reach server. Check internet and retry.", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fault.Wrap(fault.CodeTimeout, "Request timed out. Please retry.", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fault.Wrap(fault.CodeTimeout, "Request timed out. Please retry.", err)
	}
	if errors.Is(err, context.Canceled) {
		return fault.Wrap(fault.CodeTransportUnreachable, "Request cancelled.", err)
	}
	return fault.Wrap(fault.CodeTransportUnreachable, "Server connection failed.", err)
}

// classifyHTTPStatus maps a non-2xx response to the taxonomy. 401 must
// force the caller to clear the session; 429 asks for patience; anything
// else surfaces the server's own message when the body carries one.
func classifyHTTPStatus(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return fault.New(fault.CodeSessionExpired, "Session expired. Sign in again.")
	case http.StatusTooManyRequests:
		return fault.New(fault.CodeRateLimited, "Too many requests. Please wait and retry.")
	default:
		msg := extractErrorMessage(body)
		if msg == "" {
			msg = fmt.Sprintf("Server rejected the request (HTTP %d).", status)
		}
		return fault.New(fault.CodeServerRejected, msg)
	}
}

func rejectedFault(msg string, cause error) error {
	return fault.Wrap(fault.CodeServerRejected, msg, cause)
}

var errorFieldPattern = regexp.MustCompile(`"error"\s*:\s*"([^"]+)"`)

// extractErrorMessage pulls the "error" field out of a failure body
// without assuming the rest of the payload parses.
func extractErrorMessage(body []byte) string {
	m := errorFieldPattern.FindSubmatch(body)
	if m == nil {
		return ""
	}
	msg := strings.TrimSpace(string(m[1]))
	msg = strings.ReplaceAll(msg, `\n`, " ")
	msg = strings.ReplaceAll(msg, `\"`, `"`)
	return strings.TrimSpace(msg)
}
