// Package gateway is the single chokepoint for authenticated calls to the
// storefront API. It attaches the bearer credential, refuses to send without
// one, and turns every failure into a *storefront.Error. It never retries.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-storefront"
)

const (
	defaultTimeout  = 30 * time.Second
	maxBodyBytes    = 8 << 20
	requestIDHeader = "X-Request-ID"
)

// Config holds client settings. BaseURL is required.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// RateLimit caps requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	UserAgent string
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

// Request describes one API call. Body is JSON encoded when not nil.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a successful (2xx) API response.
type Response struct {
	Status    int
	Body      []byte
	Header    http.Header
	RequestID string
}

// Data returns the "data" envelope of the body.
func (r *Response) Data() gjson.Result {
	return r.Get("data")
}

// Get reads a gjson path from the body.
func (r *Response) Get(path string) gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Body, path)
}

// Client sends requests to the storefront API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     logrus.FieldLogger
	now        func() time.Time
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("gateway: base URL %q must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		baseURL:    base,
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		logger:     logger,
		now:        now,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// Do sends req with cred attached. A missing or expired credential fails with
// KindUnauthorized before anything touches the network.
func (c *Client) Do(ctx context.Context, req Request, cred *storefront.Credential) (*Response, error) {
	if !cred.Usable(c.now()) {
		reason := "no credential"
		if cred != nil && cred.Token != "" {
			reason = "credential expired"
		}
		return nil, &storefront.Error{Kind: storefront.KindUnauthorized, Message: reason}
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, &storefront.Error{Kind: storefront.KindUnknown, Message: "invalid request path", Err: err}
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &storefront.Error{Kind: storefront.KindUnknown, Message: "encode request body", Err: err}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, Normalize(errors.Wrap(err, "build request"))
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Authorization", "Bearer "+cred.Token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestIDHeader, requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.send(httpReq, requestID)
	if err != nil {
		return nil, err
	}
	resp.RequestID = requestID
	return resp, nil
}

// Upload PUTs body to a signed URL. No bearer token is sent and no
// credential is required: the URL itself carries the authorization, and it
// can only be obtained through Do, which refuses to run logged out.
func (c *Client) Upload(ctx context.Context, signedURL string, body io.Reader, size int64, mimeType string) error {
	target, err := url.Parse(signedURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		return &storefront.Error{Kind: storefront.KindValidationFailed, Message: "invalid signed URL", Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), body)
	if err != nil {
		return Normalize(errors.Wrap(err, "build upload request"))
	}
	if size > 0 {
		httpReq.ContentLength = size
	}
	httpReq.Header.Set("Content-Type", mimeType)

	_, err = c.send(httpReq, "")
	return err
}

func (c *Client) send(httpReq *http.Request, requestID string) (*Response, error) {
	ctx := httpReq.Context()
	log := c.logger.WithFields(logrus.Fields{
		"method": httpReq.Method,
		"path":   httpReq.URL.Path,
	})
	if requestID != "" {
		log = log.WithField("request_id", requestID)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &storefront.Error{Kind: storefront.KindNetwork, Message: "rate limit wait aborted", Err: err}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		normalized := Normalize(errors.Wrapf(err, "%s %s", httpReq.Method, httpReq.URL.Path))
		log.WithError(err).Warn("request failed")
		return nil, normalized
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, Normalize(errors.Wrap(err, "read response body"))
	}
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": time.Since(start)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		normalized := StatusError(resp.StatusCode, raw)
		log.WithField("kind", normalized.Kind).Info("request rejected")
		return nil, normalized
	}
	log.Debug("request completed")
	return &Response{Status: resp.StatusCode, Body: raw, Header: resp.Header.Clone()}, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	rel, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	if rel.IsAbs() || rel.Host != "" {
		return "", fmt.Errorf("path %q must be relative", path)
	}
	target := c.baseURL.ResolveReference(rel)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	return target.String(), nil
}
