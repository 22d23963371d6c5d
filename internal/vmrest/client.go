package vmrest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faize-ai/guestdir/internal/config"
	"github.com/faize-ai/guestdir/internal/logging"
)

// SessionHeader carries the API session token on every authenticated request.
const SessionHeader = "vmware-api-session-id"

const redacted = "**REDACTED**"

// Keys whose values never reach the REST log.
var secretKeys = map[string]bool{
	"password":   true,
	"saml_token": true,
}

// Requester issues one HTTP request against the vCenter host.
type Requester interface {
	Do(ctx context.Context, method, path string, body any) (*Response, error)
}

// Response is a decoded vCenter response.
type Response struct {
	Status int
	Header http.Header
	// Body is the decoded JSON document, or an empty object when the
	// response is not JSON.
	Body any
	Text string
}

// Client talks to a single vCenter host. It performs one request at a time
// and is not safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
	token    string
	endpoint string // "api" or "rest"
	restLog  *zap.Logger
	closeLog func() error
}

// NewClient builds an unauthenticated client for conn. OpenSession is the
// usual way to obtain one.
func NewClient(conn *config.Connection) (*Client, error) {
	restLog, closeLog, err := logging.NewRESTLogger(conn.RestLogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open REST log file: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !conn.ValidateCerts {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via vcenter_validate_certs
	}

	return &Client{
		baseURL:  "https://" + conn.Hostname,
		http:     &http.Client{Transport: transport, Timeout: conn.Timeout},
		username: conn.Username,
		password: conn.Password,
		endpoint: endpointAPI,
		restLog:  restLog,
		closeLog: closeLog,
	}, nil
}

// Token returns the current API session token.
func (c *Client) Token() string {
	return c.token
}

// Close flushes and closes the REST log. The API session stays valid so a
// cached token can be reused by a later invocation.
func (c *Client) Close() error {
	if c.closeLog == nil {
		return nil
	}
	return c.closeLog()
}

// Get issues an authenticated GET.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do sends a request to path on the vCenter host. Transport errors are
// returned unmodified; HTTP error statuses are not errors here.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	return c.send(ctx, method, path, body, false)
}

func (c *Client) send(ctx context.Context, method, path string, body any, basicAuth bool) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if basicAuth {
		req.SetBasicAuth(c.username, c.password)
	} else if c.token != "" {
		req.Header.Set(SessionHeader, c.token)
	}

	logging.S().Debugf("%s %s (request %s)", method, req.URL.Path, requestID)

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.restLog.Error("http",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Text:   string(raw),
		Body:   decodeBody(httpResp.Header.Get("Content-Type"), raw),
	}

	logged := redact(raw)
	if basicAuth {
		// login responses carry the session token
		logged = redacted
	}
	c.restLog.Info("http",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.Status),
		zap.Duration("duration", time.Since(start)),
		zap.Any("request", redact(payload)),
		zap.Any("response", logged),
	)

	return resp, nil
}

// decodeBody returns the JSON document in raw, or an empty object when the
// content type is not JSON or the document cannot be parsed.
func decodeBody(contentType string, raw []byte) any {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return map[string]any{}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	return v
}

// redact decodes a JSON document and masks secrets for logging. Non-JSON
// input is returned as a string.
func redact(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return maskSecrets(v)
}

func maskSecrets(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if secretKeys[k] {
				t[k] = redacted
				continue
			}
			t[k] = maskSecrets(inner)
		}
		return t
	case []any:
		for i := range t {
			t[i] = maskSecrets(t[i])
		}
		return t
	default:
		return v
	}
}
