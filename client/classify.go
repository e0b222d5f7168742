package client

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/apiharness/api-contract-tests/retry"
)

// Failure kinds attached to request errors, matching what retry policies in
// the suites select on.
const (
	KindConnection  retry.Kind = "connection"
	KindTimeout     retry.Kind = "timeout"
	KindServerError retry.Kind = "server_error"
	KindRateLimited retry.Kind = "rate_limited"
	KindClientError retry.Kind = "client_error"
)

// TransientKinds is the usual retryable set: failures that may resolve on
// their own, as opposed to 4xx responses that will keep happening.
var TransientKinds = []retry.Kind{KindConnection, KindTimeout, KindServerError, KindRateLimited}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retry.Classified(KindTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return retry.Classified(KindTimeout, err)
	}
	return retry.Classified(KindConnection, err)
}

// ClassifyStatus returns the failure kind for an HTTP status code, or the
// empty kind for success statuses.
func ClassifyStatus(status int) retry.Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServerError
	case status >= 400:
		return KindClientError
	default:
		return ""
	}
}

// EnsureSuccess converts a non-2xx response into a classified error so the
// retry executor can decide whether to try again. Transport errors pass
// through unchanged; the response, when there is one, is returned alongside
// the error for inspection.
func EnsureSuccess(resp *Response, err error) (*Response, error) {
	if err != nil {
		return resp, err
	}
	if kind := ClassifyStatus(resp.StatusCode); kind != "" {
		return resp, retry.Errorf(kind, "%s %s returned HTTP %d", resp.Method, resp.URL, resp.StatusCode)
	}
	return resp, nil
}
