package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Response is a fully buffered HTTP response plus the request metadata needed
// for diagnostics. The body has already been read and closed.
type Response struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration

	jsonOnce  sync.Once
	jsonValue ldvalue.Value
	jsonErr   error
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// ContentType returns the media type of the response without parameters such
// as charset.
func (r *Response) ContentType() string {
	contentType := r.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}

// JSON parses the response body as a JSON document. The result is cached, so
// repeated calls are cheap and always identical.
func (r *Response) JSON() (ldvalue.Value, error) {
	r.jsonOnce.Do(func() {
		if len(r.Body) == 0 {
			r.jsonErr = errors.New("response body is empty")
			return
		}
		var value ldvalue.Value
		if err := json.Unmarshal(r.Body, &value); err != nil {
			r.jsonErr = fmt.Errorf("response body is not valid JSON: %w", err)
			return
		}
		r.jsonValue = value
	})
	return r.jsonValue, r.jsonErr
}

// String is a one-line summary used in failure messages.
func (r *Response) String() string {
	return fmt.Sprintf("%s %s -> HTTP %d (%d bytes)", r.Method, r.URL, r.StatusCode, len(r.Body))
}
