// Package carrier talks to the telephony provider's REST API. Recording
// media sits behind HTTP basic auth, so playback for the vault owner goes
// through a server-side fetch with the account credentials.
package carrier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const maxRecordingBytes = 16 << 20

// credentialsPayload is the JSON shape stored in SSM for the carrier account.
type credentialsPayload struct {
	AccountSID string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("carrier: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client downloads carrier-hosted voicemail recordings.
type Client struct {
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	credOnce sync.Once
	creds    credentialsPayload
	credErr  error
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client backed by the given paramstore.Getter for
// credential retrieval. Credentials are fetched from SSM on the first call
// to FetchRecording and reused for the lifetime of the process.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("carrier: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("carrier: parameter prefix must not be empty")
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveCredentials(ctx context.Context) (credentialsPayload, error) {
	c.credOnce.Do(func() {
		c.creds, c.credErr = fetchCredentialsFromParamStore(ctx, c.getter, c.credentialsParameterName())
	})
	return c.creds, c.credErr
}

func (c *Client) credentialsParameterName() string {
	return c.paramPrefix + "/carrier-credentials"
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// FetchRecording downloads the recording at url with the account credentials
// and returns the audio bytes and the upstream content type.
func (c *Client) FetchRecording(ctx context.Context, url string) ([]byte, string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, "", errors.New("carrier: recording url must not be empty")
	}

	creds, err := c.resolveCredentials(ctx)
	if err != nil {
		return nil, "", err
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if reqErr != nil {
		return nil, "", fmt.Errorf("carrier: create request: %w", reqErr)
	}
	req.SetBasicAuth(creds.AccountSID, creds.AuthToken)

	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, "", fmt.Errorf("carrier: request failed: %w", doErr)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, "", &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxRecordingBytes))
	if err != nil {
		return nil, "", fmt.Errorf("carrier: read recording body: %w", err)
	}
	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return body, contentType, nil
}

func fetchCredentialsFromParamStore(ctx context.Context, getter Getter, name string) (credentialsPayload, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return credentialsPayload{}, fmt.Errorf("carrier: fetch credentials from paramstore: %w", err)
	}
	var creds credentialsPayload
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return credentialsPayload{}, fmt.Errorf("carrier: unmarshal paramstore credentials as JSON: %w", err)
	}
	if creds.AccountSID == "" || creds.AuthToken == "" {
		return credentialsPayload{}, errors.New("carrier: account credentials are incomplete")
	}
	return creds, nil
}
