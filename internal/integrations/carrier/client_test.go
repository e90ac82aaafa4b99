package carrier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeGetter is a minimal paramstore.Getter stub for use within this package.
type fakeGetter struct {
	val    string
	err    error
	onCall func() // optional; called on each GetParameter invocation
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

const testCredentials = `{"account_sid":"AC123","auth_token":"secret-token"}`

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(
		&fakeGetter{val: testCredentials},
		"/contact-vault",
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func TestNewClient_NilGetter(t *testing.T) {
	_, err := NewClient(nil, "/contact-vault")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestNewClient_EmptyPrefix(t *testing.T) {
	_, err := NewClient(&fakeGetter{}, "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestResolveCredentials_FetchedOnFirstCall(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: testCredentials}
	g.onCall = func() { calls++ }
	c, err := NewClient(g, "/contact-vault")
	require.NoError(t, err)

	creds, err := c.resolveCredentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, "AC123", creds.AccountSID)
	require.Equal(t, 1, calls)

	// subsequent calls must never hit SSM again
	_, _ = c.resolveCredentials(context.Background())
	_, _ = c.resolveCredentials(context.Background())
	require.Equal(t, 1, calls, "SSM must only be called once per process lifetime")
}

func TestFetchCredentials_MalformedJSON(t *testing.T) {
	g := &fakeGetter{val: `{"broken`}
	_, err := fetchCredentialsFromParamStore(context.Background(), g, "/contact-vault/carrier-credentials")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal")
}

func TestFetchCredentials_MissingFields(t *testing.T) {
	g := &fakeGetter{val: `{"account_sid":"AC123"}`}
	_, err := fetchCredentialsFromParamStore(context.Background(), g, "/contact-vault/carrier-credentials")
	require.Error(t, err)
	require.Contains(t, err.Error(), "incomplete")
}

func TestFetchCredentials_GetterError(t *testing.T) {
	g := &fakeGetter{err: errors.New("ssm unavailable")}
	_, err := fetchCredentialsFromParamStore(context.Background(), g, "/contact-vault/carrier-credentials")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")
}

func TestFetchRecording_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "basic auth must be set")
		require.Equal(t, "AC123", user)
		require.Equal(t, "secret-token", pass)
		w.Header().Set("Content-Type", "audio/wav")
		w.WriteHeader(200)
		_, _ = w.Write([]byte("RIFF-audio-bytes"))
	}))
	defer srv.Close()

	c := newTestClient(t)
	body, contentType, err := c.FetchRecording(context.Background(), srv.URL+"/rec/abc")
	require.NoError(t, err)
	require.Equal(t, []byte("RIFF-audio-bytes"), body)
	require.Equal(t, "audio/wav", contentType)
}

func TestFetchRecording_DefaultsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.WriteHeader(200)
		_, _ = w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	c := newTestClient(t)
	_, contentType, err := c.FetchRecording(context.Background(), srv.URL+"/rec/abc")
	require.NoError(t, err)
	require.Equal(t, "audio/mpeg", contentType)
}

func TestFetchRecording_EmptyURL(t *testing.T) {
	c := newTestClient(t)
	_, _, err := c.FetchRecording(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestFetchRecording_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		_, _ = w.Write([]byte(`not found`))
	}))
	defer srv.Close()

	c := newTestClient(t)
	_, _, err := c.FetchRecording(context.Background(), srv.URL+"/rec/missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status")
	require.Contains(t, err.Error(), "404")

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 404, statusErr.HTTPStatusCode())
}

func TestFetchRecording_CredentialError(t *testing.T) {
	c, err := NewClient(&fakeGetter{err: errors.New("ssm unavailable")}, "/contact-vault")
	require.NoError(t, err)

	_, _, err = c.FetchRecording(context.Background(), "http://127.0.0.1:1/rec/abc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")
}

func TestFetchRecording_NetworkError(t *testing.T) {
	c, err := NewClient(
		&fakeGetter{val: testCredentials},
		"/contact-vault",
		WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}),
	)
	require.NoError(t, err)

	_, _, err = c.FetchRecording(context.Background(), "http://127.0.0.1:1/rec/abc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestFetchRecording_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := newTestClient(t)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, _, err := c.FetchRecording(context.Background(), srv.URL+"/rec/abc")
	require.Error(t, err)
}
