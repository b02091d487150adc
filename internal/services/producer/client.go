package producer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/domain/settings"
)

type ClientConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
}

// APIError is a non-2xx answer from the producer API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("producer api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusBadRequest {
		return notification.ErrValidation
	}
	return nil
}

// Client talks to the producer HTTP API.
type Client struct {
	c    *http.Client
	base string
}

func NewHTTPClient(cfg ClientConfig) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
			MinVersion:         tls.VersionTLS12,
		},
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(transport),
	}
}

func NewClient(cfg ClientConfig) *Client {
	return &Client{c: NewHTTPClient(cfg), base: strings.TrimRight(cfg.BaseURL, "/")}
}

// WithHTTPClient swaps the underlying client, e.g. for httptest servers.
func (cl *Client) WithHTTPClient(c *http.Client) *Client {
	cl.c = c
	return cl
}

func (cl *Client) Create(ctx context.Context, s Spec) (Result, error) {
	var res Result
	err := cl.do(ctx, http.MethodPost, "/v1/notifications", s, &res)
	return res, err
}

func (cl *Client) Settings(ctx context.Context, userID string) (*settings.Settings, error) {
	var st settings.Settings
	if err := cl.do(ctx, http.MethodGet, settingsPath(userID), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (cl *Client) UpdateSettings(ctx context.Context, userID string, p settings.Patch) (*settings.Settings, error) {
	var st settings.Settings
	if err := cl.do(ctx, http.MethodPatch, settingsPath(userID), settingsPatch{Enabled: p}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func settingsPath(userID string) string {
	return "/v1/users/" + url.PathEscape(userID) + "/settings"
}

func (cl *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, cl.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cl.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
