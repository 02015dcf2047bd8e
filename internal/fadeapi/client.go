package fadeapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/fadea/fadeclient/internal/credstore"
)

// API defines the operations callers need from the FADEAPI server.
// This interface is implemented by *Client and can be used for testing.
type API interface {
	GetRecords(ctx context.Context, query RecordQuery) ([]Record, error)
	DownloadCSV(ctx context.Context) ([]byte, error)
	DeleteAllRecords(ctx context.Context) (Info, error)
	GetCurrentUser(ctx context.Context) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, payload UserCreate) (User, error)
	UpdateUser(ctx context.Context, id int64, payload UserUpdate) (User, error)
	Status(ctx context.Context) (Info, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "https://fadeapi-498d1e85e7e4.herokuapp.com/"

	defaultUserAgent = "fadeclient/1.0"
	defaultTimeout   = 60 * time.Second
)

// Options configure a Client.
type Options struct {
	BaseURL    string
	Username   string
	Store      credstore.Store // nil uses an in-memory store
	Timeout    time.Duration   // zero uses 60s
	HTTPClient *http.Client    // overrides Timeout when set
	Logger     *zerolog.Logger
	UserAgent  string
}

// Client talks to the FADEAPI HTTP API on behalf of one user. It is safe for
// concurrent use; token refreshes are shared between concurrent callers.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	timeout   time.Duration
	userAgent string
	username  string
	store     credstore.Store
	log       zerolog.Logger

	mu        sync.RWMutex
	tokens    credstore.Credentials
	refreshes singleflight.Group
}

// NewClient builds a Client and loads any stored tokens for opts.Username.
func NewClient(opts Options) (*Client, error) {
	base, err := ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		store = credstore.NewMemory()
	}

	username := strings.TrimSpace(opts.Username)
	var tokens credstore.Credentials
	if username != "" {
		tokens, err = store.Load(username)
		if err != nil {
			return nil, fmt.Errorf("load credentials: %w", err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	} else if httpClient.Timeout > 0 {
		timeout = httpClient.Timeout
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	return &Client{
		baseURL:   base,
		http:      httpClient,
		timeout:   timeout,
		userAgent: userAgent,
		username:  username,
		store:     store,
		log:       log,
		tokens:    tokens,
	}, nil
}

// Username returns the user the client authenticates as.
func (c *Client) Username() string {
	return c.username
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Tokens returns a copy of the current token pair.
func (c *Client) Tokens() credstore.Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// HasSession reports whether any token is available.
func (c *Client) HasSession() bool {
	return !c.Tokens().IsZero()
}

// RequestOptions carry the optional parts of a request. At most one of JSON
// and Form may be set.
type RequestOptions struct {
	Query  url.Values
	JSON   any
	Form   url.Values
	Header http.Header
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the body into dest.
func (r *Response) DecodeJSON(dest any) error {
	if err := json.Unmarshal(r.Body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Request performs an authenticated call. A 401 is answered by refreshing the
// token pair once and repeating the call once; any other failure, or a failure
// of the repeat, is returned as is.
func (c *Client) Request(ctx context.Context, method, path string, opts RequestOptions) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	sent := c.Tokens()
	resp, err := c.send(ctx, method, path, opts, body, contentType, sent.AccessToken)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && sent.RefreshToken != "" {
		c.log.Debug().Str("method", method).Str("path", path).Msg("access token rejected, refreshing")
		fresh, err := c.refreshFrom(ctx, sent)
		if err != nil {
			return nil, err
		}
		resp, err = c.send(ctx, method, path, opts, body, contentType, fresh.AccessToken)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPStatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, opts RequestOptions, dest any) error {
	resp, err := c.Request(ctx, method, path, opts)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return resp.DecodeJSON(dest)
}

func (c *Client) send(ctx context.Context, method, path string, opts RequestOptions, body []byte, contentType, access string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path, opts.Query), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Msg("request")

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	rel := &url.URL{Path: strings.TrimLeft(path, "/")}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	return c.baseURL.ResolveReference(rel).String()
}

func encodeBody(opts RequestOptions) ([]byte, string, error) {
	switch {
	case opts.JSON != nil && opts.Form != nil:
		return nil, "", fmt.Errorf("request cannot carry both json and form bodies")
	case opts.JSON != nil:
		data, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode request: %w", err)
		}
		return data, "application/json", nil
	case opts.Form != nil:
		return []byte(opts.Form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", nil
	}
}

// ParseBaseURL normalizes a configured base URL: https is assumed when no
// scheme is given, query and fragment are dropped and the path always ends
// with a slash so relative endpoints resolve beneath it.
func ParseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
