package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/imroc/req/v3"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailprobe/internal/ratelimit"
)

const resolverURL = "https://resolver.example/dns-query"

// pacedClient returns a paced client whose transport answers with responses
// in order, repeating the last one.
func pacedClient(t *testing.T, responses ...func() (*http.Response, error)) (*req.Client, *int) {
	t.Helper()
	client, err := New(Options{})
	require.NoError(t, err)
	Pace(client, ratelimit.New(1000, 1000))

	httpmock.ActivateNonDefault(client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, resolverURL, func(*http.Request) (*http.Response, error) {
		i := min(calls, len(responses)-1)
		calls++
		return responses[i]()
	})
	return client, &calls
}

func status(code int, retryAfter string) func() (*http.Response, error) {
	return func() (*http.Response, error) {
		resp := httpmock.NewStringResponse(code, http.StatusText(code))
		if retryAfter != "" {
			resp.Header.Set("Retry-After", retryAfter)
		}
		return resp, nil
	}
}

func TestPace_RetriesThrottledResponses(t *testing.T) {
	for _, code := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			client, calls := pacedClient(t, status(code, "0"), status(http.StatusOK, ""))
			resp, err := client.R().Get(resolverURL)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, 2, *calls)
		})
	}
}

func TestPace_GivesUpAfterMaxRetries(t *testing.T) {
	client, calls := pacedClient(t, status(http.StatusTooManyRequests, "0"))
	resp, err := client.R().Get(resolverURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, maxRetries+1, *calls)
}

func TestPace_ServerErrorNotRetried(t *testing.T) {
	client, calls := pacedClient(t, status(http.StatusBadGateway, ""))
	resp, err := client.R().Get(resolverURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 1, *calls)
}

func TestPace_TransportErrorRetried(t *testing.T) {
	client, calls := pacedClient(t,
		func() (*http.Response, error) { return nil, errors.New("connection reset by peer") },
		status(http.StatusOK, ""),
	)
	resp, err := client.R().Get(resolverURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, *calls)
}

func TestPace_ContextCancelNotRetried(t *testing.T) {
	client, calls := pacedClient(t, func() (*http.Response, error) { return nil, context.Canceled })
	_, err := client.R().Get(resolverURL)
	require.Error(t, err)
	assert.Equal(t, 1, *calls)
}

func TestPace_NilLimiterIsUnlimited(t *testing.T) {
	client, err := New(Options{})
	require.NoError(t, err)
	Pace(client, nil)
	httpmock.ActivateNonDefault(client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodGet, resolverURL, httpmock.NewStringResponder(http.StatusOK, "ok"))

	resp, err := client.R().Get(resolverURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBackoff(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", defaultBackoff},
		{"3", 3 * time.Second},
		{"600", maxBackoff},
		{"-1", defaultBackoff},
		{"soon", defaultBackoff},
		{"Wed, 01 May 2024 12:00:10 GMT", 10 * time.Second},
		{"Wed, 01 May 2024 11:00:00 GMT", 0},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, backoff(tt.header, now))
		})
	}
}
