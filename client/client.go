package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/apiharness/api-contract-tests/framework"
	"github.com/apiharness/api-contract-tests/retry"
)

const defaultTimeout = 10 * time.Second

// Client manages communication with the API under test. One Client is built
// per target environment; the suites share it. Default headers (including
// authorization) can change between requests, everything else is immutable
// after New.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	logger       framework.Logger
	headers      http.Header
	lastResponse *Response
	lock         sync.Mutex
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithHTTPClient substitutes the underlying *http.Client. Tests use this
// with handler-backed clients so no network listener is needed.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTimeout sets the per-request timeout. Ignored when WithHTTPClient is
// also given.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithHeader adds a default header sent on every request.
func WithHeader(name, value string) Option {
	return func(c *Client) { c.headers.Set(name, value) }
}

// WithLogger directs the client's debug output (request and response lines)
// to a logger, typically the per-test capturing logger.
func WithLogger(logger framework.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the given base URL. Trailing slashes on the base
// URL and leading slashes on request paths are normalized, so both sides may
// include them freely.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  framework.NullLogger(),
		headers: make(http.Header),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// BaseURL returns the normalized base URL this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins path onto the client's base URL.
func (c *Client) URL(path string) string {
	if path == "" {
		return c.baseURL
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// SetAuthorization sets the Authorization header sent with every subsequent
// request, for example SetAuthorization("Bearer", token).
func (c *Client) SetAuthorization(scheme, credentials string) {
	c.lock.Lock()
	c.headers.Set("Authorization", scheme+" "+credentials)
	c.lock.Unlock()
}

// ClearAuthorization removes any default Authorization header.
func (c *Client) ClearAuthorization() {
	c.lock.Lock()
	c.headers.Del("Authorization")
	c.lock.Unlock()
}

// LastResponse returns the most recent response received by this client, or
// nil if none. It is kept for post-hoc inspection in test diagnostics.
func (c *Client) LastResponse() *Response {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lastResponse
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, opts...)
}

func (c *Client) Post(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, opts...)
}

func (c *Client) Put(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, opts...)
}

// Do performs one request. The response is fully buffered before Do returns;
// transport failures come back as classified errors (connection or timeout
// kinds) for the retry package. Response statuses are not errors here; use
// EnsureSuccess or RetryableRequest when a non-2xx status should fail.
func (c *Client) Do(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error) {
	var params requestParams
	for _, opt := range opts {
		opt(&params)
	}
	if params.bodyErr != nil {
		return nil, fmt.Errorf("encoding request body: %w", params.bodyErr)
	}

	reqURL := c.URL(path)
	if len(params.query) > 0 {
		sep := "?"
		if strings.Contains(reqURL, "?") {
			sep = "&"
		}
		reqURL += sep + params.query.Encode()
	}

	var bodyReader io.Reader
	if params.body != nil {
		bodyReader = bytes.NewReader(params.body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building %s request for %s: %w", method, reqURL, err)
	}

	for name, values := range c.defaultHeaders() {
		req.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	if params.contentType != "" {
		req.Header.Set("Content-Type", params.contentType)
	}
	for name, values := range params.headers {
		req.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}

	c.logger.Printf("%s", curlCommand(method, reqURL, req.Header, params.body))

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		classified := classifyTransportError(err)
		c.logger.Printf("request failed: %s", classified)
		return nil, classified
	}
	body, err := io.ReadAll(httpResp.Body)
	_ = httpResp.Body.Close()
	if err != nil {
		classified := retry.Classified(KindConnection, fmt.Errorf("reading response body: %w", err))
		c.logger.Printf("request failed: %s", classified)
		return nil, classified
	}

	resp := &Response{
		Method:     method,
		URL:        reqURL,
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		Elapsed:    time.Since(start),
	}
	c.logger.Printf("HTTP %d from %s %s (%d bytes in %s)",
		resp.StatusCode, method, reqURL, len(body), resp.Elapsed.Round(time.Millisecond))

	c.lock.Lock()
	c.lastResponse = resp
	c.lock.Unlock()

	return resp, nil
}

// RetryableRequest returns an operation for retry.Execute that performs this
// request and reports any non-2xx status as a classified failure.
func (c *Client) RetryableRequest(method, path string, opts ...RequestOption) retry.Operation[*Response] {
	return func(ctx context.Context) (*Response, error) {
		return EnsureSuccess(c.Do(ctx, method, path, opts...))
	}
}

func (c *Client) defaultHeaders() http.Header {
	c.lock.Lock()
	defer c.lock.Unlock()
	snapshot := make(http.Header, len(c.headers))
	for name, values := range c.headers {
		snapshot[name] = append([]string(nil), values...)
	}
	return snapshot
}

// requestParams collects the effect of RequestOptions for one request.
type requestParams struct {
	query       url.Values
	headers     http.Header
	body        []byte
	contentType string
	bodyErr     error
}

// RequestOption customizes a single request.
type RequestOption func(*requestParams)

// WithQuery adds one query string parameter.
func WithQuery(name, value string) RequestOption {
	return func(p *requestParams) {
		if p.query == nil {
			p.query = url.Values{}
		}
		p.query.Add(name, value)
	}
}

// WithQueryParams adds a set of query string parameters.
func WithQueryParams(values url.Values) RequestOption {
	return func(p *requestParams) {
		if p.query == nil {
			p.query = url.Values{}
		}
		for name, vs := range values {
			for _, v := range vs {
				p.query.Add(name, v)
			}
		}
	}
}

// WithRequestHeader sets a header on this request only, overriding any
// default header of the same name.
func WithRequestHeader(name, value string) RequestOption {
	return func(p *requestParams) {
		if p.headers == nil {
			p.headers = make(http.Header)
		}
		p.headers.Set(name, value)
	}
}

// WithJSONBody marshals body as the JSON request body. ldvalue.Value, maps,
// and tagged structs all work.
func WithJSONBody(body any) RequestOption {
	return func(p *requestParams) {
		data, err := json.Marshal(body)
		if err != nil {
			p.bodyErr = err
			return
		}
		p.body = data
		p.contentType = "application/json"
	}
}

// WithRawBody sets the request body and content type verbatim.
func WithRawBody(contentType string, data []byte) RequestOption {
	return func(p *requestParams) {
		p.body = data
		p.contentType = contentType
	}
}
