package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/go-resty/resty/v2"
	"github.com/kindledger/ledgercheck/internal/common"
	"github.com/kindledger/ledgercheck/internal/httpc"
	"github.com/tidwall/gjson"
)

// ErrUnsupportedMethod is returned when a check asks for anything other than
// GET or POST. This is a programming error in the check, not a test failure.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// Envelope is the normalized outcome of exactly one HTTP call. A transport
// failure (refused connection, timeout, other I/O error) is represented as
// StatusCode 0 with a diagnostic in Err, never as a Go error, so scenario
// checks can treat it like any other unexpected status.
type Envelope struct {
	StatusCode int
	Headers    http.Header
	Body       string
	// JSON holds the parsed body when it was valid JSON. Parsing is
	// best-effort: a non-JSON body leaves HasJSON false and raises nothing.
	JSON    gjson.Result
	HasJSON bool
	Err     string
}

// Field looks up a gjson path in the parsed body. It returns a non-existent
// result when the body was not JSON.
func (e *Envelope) Field(path string) gjson.Result {
	if e == nil || !e.HasJSON {
		return gjson.Result{}
	}
	return e.JSON.Get(path)
}

// Client issues requests against one base URL. Two instances exist per run,
// one for the gateway and one for the explorer; they share this contract.
type Client struct {
	baseURL string
	rc      *resty.Client
	logger  *common.Logger
}

// New returns a Client bound to baseURL. hc may be nil for defaults.
func New(baseURL string, hc *httpc.Httpc) *Client {
	if hc == nil {
		hc = &httpc.Httpc{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rc:      hc.New(),
		logger:  common.GetLogger().WithComponent("client"),
	}
}

// BaseURL returns the base URL this client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs one GET or POST against baseURL+endpoint and returns the
// normalized envelope. body, when non-nil, is sent as JSON. The returned
// error is non-nil only for ErrUnsupportedMethod.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, headers map[string]string) (*Envelope, error) {
	url := c.baseURL + endpoint
	req := c.rc.R().SetContext(ctx).SetHeaders(headers)
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}

	var resp *resty.Response
	var err error
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodGet:
		resp, err = req.Get(url)
	case http.MethodPost:
		resp, err = req.Post(url)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	if err != nil {
		diag := classifyTransportError(err)
		c.logger.WithRequest(method, url).Debug("transport failure", "error", diag)
		return &Envelope{StatusCode: 0, Body: "", Err: diag}, nil
	}

	env := &Envelope{
		StatusCode: resp.StatusCode(),
		Headers:    resp.Header(),
		Body:       string(resp.Body()),
	}
	if gjson.Valid(env.Body) {
		env.JSON = gjson.Parse(env.Body)
		env.HasJSON = true
	}
	c.logger.WithRequest(method, url).Debug("response received",
		"status_code", env.StatusCode, "response_size", len(env.Body))
	return env, nil
}

// Get is shorthand for Request with http.MethodGet and no body.
func (c *Client) Get(ctx context.Context, endpoint string, headers map[string]string) (*Envelope, error) {
	return c.Request(ctx, http.MethodGet, endpoint, nil, headers)
}

// Post is shorthand for Request with http.MethodPost and a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (*Envelope, error) {
	return c.Request(ctx, http.MethodPost, endpoint, body, nil)
}

// classifyTransportError maps transport-level failures to the fixed
// diagnostics the runner keys on.
func classifyTransportError(err error) string {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "connection refused"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}
