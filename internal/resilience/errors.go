package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// TransientError marks an upstream failure that says nothing about the
// request itself: Yahoo throttling, a 5xx from the search index, a dropped
// connection. Permanent failures such as an unknown ticker stay unwrapped.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError marks err as transient. statusCode is 0 for failures
// that never produced an HTTP response.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// transientStatus lists the HTTP statuses market data and document search
// return when overloaded or mid-deploy.
var transientStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsTransientHTTPStatus reports whether statusCode is worth counting against
// a provider's circuit breaker.
func IsTransientHTTPStatus(statusCode int) bool {
	return transientStatus[statusCode]
}

// dialFailures are substrings of net/http transport errors that reach us
// already flattened to text by eris wrapping.
var dialFailures = []string{
	"connection reset by peer",
	"broken pipe",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
}

// IsTransient reports whether err came from the upstream rather than the
// request. A per-call timeout (context.DeadlineExceeded) is transient; a
// caller cancellation is not, so an abandoned analysis never trips a breaker.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) || errors.As(eris.Cause(err), &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range dialFailures {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// TripOnTransient is the BreakerConfig.ShouldTrip used for market data: a
// Yahoo 404 for a delisted ticker must not open the circuit for every other
// comparable.
func TripOnTransient(err error) bool {
	return IsTransient(err)
}
