package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/poller"
	"github.com/desertthunder/brewq/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	PendingOrdersPath = "/api/orders/pending"
	OrderCountPath    = "/api/order-count"
	ThresholdsPath    = "/api/wait-time-thresholds"
	LoginPath         = "/login"

	csrfCookie = "csrf_token"
	csrfHeader = "X-CSRFToken"
)

// ClientOpts configures a [Client].
type ClientOpts struct {
	BaseURL    string
	Token      string        // optional bearer token
	Timeout    time.Duration // default: 15s
	ActionRate float64       // status/delete requests per second, default: 2
	Transport  http.RoundTripper
	Logger     *log.Logger
}

// Client talks to the order server. It keeps the session and CSRF cookies in a jar.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        http.CookieJar
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewClient creates a Client for opts.BaseURL.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://127.0.0.1:5000"
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("%w: base url %q", shared.ErrInvalidConfig, opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.ActionRate <= 0 {
		opts.ActionRate = 2
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"}),
			Base:   transport,
		}
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Jar: jar, Timeout: opts.Timeout, Transport: transport},
		jar:        jar,
		limiter:    rate.NewLimiter(rate.Limit(opts.ActionRate), 1),
		logger:     opts.Logger,
	}, nil
}

// BaseURL returns the server root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) resolve(endpoint string, params url.Values) string {
	ref, err := url.Parse(endpoint)
	if err != nil {
		ref = &url.URL{Path: endpoint}
	}
	u := c.baseURL.ResolveReference(ref)
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.Request != nil && resp.Request.URL.Path == LoginPath && req.URL.Path != LoginPath {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: redirected to login", shared.ErrNotAuthenticated)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	path := resp.Request.URL.Path
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s returned %d", shared.ErrNotAuthenticated, path, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s returned %d", shared.ErrOrderNotFound, path, resp.StatusCode)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return fmt.Errorf("%w: %w: %s returned %d", shared.ErrAPIRequest, shared.ErrServiceUnavailable, path, resp.StatusCode)
	default:
		return fmt.Errorf("%w: %s returned %d", shared.ErrAPIRequest, path, resp.StatusCode)
	}
}

// Fetch performs a conditional GET for the poller. An empty etag sends no validator.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values, etag string) (*poller.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(endpoint, params), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &poller.FetchResult{NotModified: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	payload, err := models.NewPayload(endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidPayload, err)
	}
	if !payload.HasHash() {
		payload.Hash = strings.Trim(resp.Header.Get("ETag"), `"`)
	}
	return &poller.FetchResult{Payload: payload}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, v any) error {
	res, err := c.Fetch(ctx, endpoint, params, "")
	if err != nil {
		return err
	}
	if err := res.Payload.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidPayload, err)
	}
	return nil
}

// PendingOrders fetches the active orders snapshot.
func (c *Client) PendingOrders(ctx context.Context) (*models.OrdersPayload, error) {
	var p models.OrdersPayload
	if err := c.getJSON(ctx, PendingOrdersPath, url.Values{"status": {"active"}}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// OrderCounts fetches per-status counts.
func (c *Client) OrderCounts(ctx context.Context) (models.Counts, error) {
	res, err := c.Fetch(ctx, OrderCountPath, nil, "")
	if err != nil {
		return models.Counts{}, err
	}
	counts, err := models.DecodeCounts(res.Payload.Body)
	if err != nil {
		return models.Counts{}, fmt.Errorf("%w: %w", shared.ErrInvalidPayload, err)
	}
	return counts, nil
}

// WaitTimeThresholds fetches the colouring thresholds. On any failure it returns the defaults with the error.
func (c *Client) WaitTimeThresholds(ctx context.Context) (models.Thresholds, error) {
	var t models.Thresholds
	if err := c.getJSON(ctx, ThresholdsPath, nil, &t); err != nil {
		return models.DefaultThresholds(), err
	}
	if !t.Valid() {
		return models.DefaultThresholds(), fmt.Errorf("%w: thresholds %+v", shared.ErrInvalidPayload, t)
	}
	return t, nil
}

// CSRFToken returns the csrf_token cookie issued by the server, if any.
func (c *Client) CSRFToken() string {
	for _, ck := range c.jar.Cookies(c.baseURL) {
		if ck.Name == csrfCookie {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token := c.CSRFToken(); token != "" {
		req.Header.Set(csrfHeader, token)
	} else {
		c.logger.Debug("no csrf cookie, posting without token", "path", path)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return nil
}

// UpdateStatus moves an order to in_progress or completed.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status models.Status) error {
	if status != models.StatusInProgress && status != models.StatusCompleted {
		return fmt.Errorf("%w: %q", shared.ErrInvalidStatus, status)
	}
	path := "/update_status/" + strconv.FormatInt(id, 10)
	if err := c.postForm(ctx, path, url.Values{"status": {string(status)}}); err != nil {
		return fmt.Errorf("failed to update order %d: %w", id, err)
	}
	c.logger.Debug("order status updated", "order", id, "status", status)
	return nil
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	path := "/delete_order/" + strconv.FormatInt(id, 10)
	if err := c.postForm(ctx, path, url.Values{}); err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	c.logger.Debug("order deleted", "order", id)
	return nil
}

// LabelURL is the absolute address of an order's printable label.
func (c *Client) LabelURL(id int64) string {
	return c.resolve("/create_label/"+strconv.FormatInt(id, 10), nil)
}

// DownloadLabel streams the label document for id into w.
func (c *Client) DownloadLabel(ctx context.Context, id int64, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.LabelURL(id), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read label: %w", err)
	}
	return nil
}

// Login seeds the CSRF cookie from the login page, then submits the credentials to establish a session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" {
		return fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(LoginPath, nil), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	form := url.Values{"username": {username}, "password": {password}}
	if token := c.CSRFToken(); token != "" {
		form.Set(csrfCookie, token)
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(LoginPath, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err = c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, statusError(resp))
	}
	if resp.Request.URL.Path == LoginPath {
		return fmt.Errorf("%w: invalid credentials", shared.ErrAuthFailed)
	}
	c.logger.Info("logged in", "user", username, "server", c.BaseURL())
	return nil
}

// Ping checks the server is reachable and the session is valid.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.OrderCounts(ctx)
	return err
}

// RawJSON fetches endpoint and returns the decoded JSON value.
func (c *Client) RawJSON(ctx context.Context, endpoint string) (any, error) {
	var v any
	if err := c.getJSON(ctx, endpoint, nil, &v); err != nil {
		return nil, err
	}
	return v, nil
}
