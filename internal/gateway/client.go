// Package gateway talks to the chat-relay gateway (Evolution API) that backs the
// personal notification channel, and keeps its instance session provisioned.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxLoggedBody = 500

// CreateInstanceRequest provisions a new instance with QR pairing.
type CreateInstanceRequest struct {
	InstanceName string `json:"instanceName"`
	Token        string `json:"token"`
	QRCode       bool   `json:"qrcode"`
	Integration  string `json:"integration"`
}

type SendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
	Delay  int    `json:"delay"`
}

// StatusError is returned for non-2xx gateway responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    NewHTTPClient(timeout),
		log:     log,
	}
}

// NewHTTPClient returns a client with bounded dial and handshake times.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// InstanceExists reports whether the gateway's registry lists instance.
func (c *Client) InstanceExists(ctx context.Context, instance string) (bool, error) {
	body, err := c.do(ctx, http.MethodGet, "/instance/fetchInstances", nil)
	if err != nil {
		return false, err
	}
	c.log.Debug().Int("bytes", len(body)).Str("body", truncate(body)).Msg("fetched gateway instances")
	return instanceListed(body, instance)
}

// ConnectionState returns the raw state string reported for instance, or "" when the
// response carries none.
func (c *Client) ConnectionState(ctx context.Context, instance string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/instance/connectionState/"+url.PathEscape(instance), nil)
	if err != nil {
		return "", err
	}
	return connectionState(body)
}

func (c *Client) CreateInstance(ctx context.Context, req CreateInstanceRequest) error {
	body, err := c.do(ctx, http.MethodPost, "/instance/create", req)
	if err != nil {
		return err
	}
	c.log.Info().Str("instance", req.InstanceName).Str("response", truncate(body)).Msg("gateway instance created")
	return nil
}

// Connect asks the gateway to start pairing (QR code) for instance.
func (c *Client) Connect(ctx context.Context, instance string) error {
	_, err := c.do(ctx, http.MethodGet, "/instance/connect/"+url.PathEscape(instance), nil)
	if err != nil {
		return err
	}
	c.log.Info().Str("instance", instance).Msg("gateway pairing requested, scan the QR code in the gateway manager")
	return nil
}

func (c *Client) SendText(ctx context.Context, instance string, req SendTextRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/message/sendText/"+url.PathEscape(instance), req)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(respBody),
		}
	}
	return respBody, nil
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}
