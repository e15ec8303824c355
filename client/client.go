// Package client is a Go client of the covalic REST API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ctfer-io/covalic/pkg/auth"
)

// Client reaches a covalic API, e.g. "http://localhost:8080/api/v1".
type Client struct {
	base  string
	token string
	http  *http.Client
}

type Option func(*Client)

// WithToken authenticates every request with the token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the token the client authenticates with.
func (c *Client) Token() string {
	return c.token
}

// APIError is the error body returned by the API.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
}

func (err APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", err.Status, err.Type, err.Message)
}

type request struct {
	method string
	path   string
	params url.Values
	body   io.Reader
	ctype  string
	out    any
}

// jsonBody encodes the value as a request body.
func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

func (c *Client) open(ctx context.Context, r request) (*http.Response, error) {
	u := c.base + r.path
	if len(r.params) != 0 {
		u += "?" + r.params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set(auth.TokenHeader, c.token)
	}
	if r.ctype != "" {
		req.Header.Set("Content-Type", r.ctype)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", r.method, r.path)
	}
	if res.StatusCode >= 400 {
		defer res.Body.Close()
		apiErr := &APIError{Status: res.StatusCode}
		b, _ := io.ReadAll(res.Body)
		if err := json.Unmarshal(b, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(b))
		}
		return nil, apiErr
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, r request) error {
	res, err := c.open(ctx, r)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if r.out == nil {
		_, err := io.Copy(io.Discard, res.Body)
		return err
	}
	return json.NewDecoder(res.Body).Decode(r.out)
}
