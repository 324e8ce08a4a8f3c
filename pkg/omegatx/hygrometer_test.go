package omegatx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusPage = "header\nTemp C 23.5\nHumid % 45.2\nDew C 10.1"

// newTestHygrometer points a Hygrometer at the httptest server srv.
func newTestHygrometer(t *testing.T, srv *httptest.Server, opts ...Option) *Hygrometer {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	h, err := NewHygrometer(host, append([]Option{WithPort(port), WithTimeout(time.Second)}, opts...)...)
	require.NoError(t, err)
	return h
}

func pageServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/postReadHtml" || r.URL.RawQuery != "a=" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewHygrometer_URL(t *testing.T) {
	h, err := NewHygrometer("192.168.1.61")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.61/postReadHtml?a=", h.URL())

	h, err = NewHygrometer("192.168.1.61", WithPort(8080))
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.61:8080/postReadHtml?a=", h.URL())
}

func TestNewHygrometer_IPv6URL(t *testing.T) {
	h, err := NewHygrometer("fe80::1")
	require.NoError(t, err)
	assert.Equal(t, "http://[fe80::1]/postReadHtml?a=", h.URL())

	_, err = url.Parse(h.URL())
	assert.NoError(t, err)

	h, err = NewHygrometer("fe80::1", WithPort(8080))
	require.NoError(t, err)
	assert.Equal(t, "http://[fe80::1]:8080/postReadHtml?a=", h.URL())

	h, err = NewHygrometer("ithx.local")
	require.NoError(t, err)
	assert.Equal(t, "http://ithx.local/postReadHtml?a=", h.URL())
}

func TestParseStatusPage(t *testing.T) {
	temp, humid, dew, err := ParseStatusPage(statusPage)
	require.NoError(t, err)
	assert.Equal(t, 23.5, temp)
	assert.Equal(t, 45.2, humid)
	assert.Equal(t, 10.1, dew)
}

func TestParseStatusPage_CRLF(t *testing.T) {
	temp, humid, dew, err := ParseStatusPage("<html>\r\nTemp C 21.0\r\nHumid % 40\r\nDew C 7.3\r\n</html>\r\n")
	require.NoError(t, err)
	assert.Equal(t, 21.0, temp)
	assert.Equal(t, 40.0, humid)
	assert.Equal(t, 7.3, dew)
}

func TestParseStatusPage_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"too few lines", "header\nTemp C 23.5\nHumid % 45.2"},
		{"missing token", "header\nTemp C\nHumid % 45.2\nDew C 10.1"},
		{"not a number", "header\nTemp C 23.5\nHumid % high\nDew C 10.1"},
		{"html only", "<html>\n<body>\n</body>\n</html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ParseStatusPage(tt.body)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestHygrometer_Get(t *testing.T) {
	srv := pageServer(t, http.StatusOK, statusPage)
	h := newTestHygrometer(t, srv)
	ctx := context.Background()

	require.NoError(t, h.Connect(ctx))
	defer h.Close()

	before := time.Now().UnixMilli()
	r, err := h.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{LabelTemperatureC, LabelHumidity, LabelDewpointC}, r.Labels())
	v, _ := r.Lookup(LabelTemperatureC)
	assert.Equal(t, Present(23.5), v)
	v, _ = r.Lookup(LabelHumidity)
	assert.Equal(t, Present(45.2), v)
	v, _ = r.Lookup(LabelDewpointC)
	assert.Equal(t, Present(10.1), v)
	assert.GreaterOrEqual(t, r.TimeMillis(), before)

	// Get is repeatable on one session.
	r, err = h.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
}

func TestHygrometer_GetBeforeConnect(t *testing.T) {
	srv := pageServer(t, http.StatusOK, statusPage)
	h := newTestHygrometer(t, srv)

	r, err := h.Get(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.True(t, r.Empty())
}

func TestHygrometer_Non200(t *testing.T) {
	srv := pageServer(t, http.StatusInternalServerError, statusPage)
	h := newTestHygrometer(t, srv)
	ctx := context.Background()

	require.NoError(t, h.Connect(ctx))
	defer h.Close()

	r, err := h.Get(ctx)
	require.NoError(t, err)
	assert.True(t, r.Empty())
}

func TestHygrometer_MalformedBody(t *testing.T) {
	srv := pageServer(t, http.StatusOK, "header\nTemp C 23.5")
	h := newTestHygrometer(t, srv)
	ctx := context.Background()

	require.NoError(t, h.Connect(ctx))
	defer h.Close()

	r, err := h.Get(ctx)
	require.NoError(t, err)
	assert.True(t, r.Empty())
}

func TestHygrometer_Unreachable(t *testing.T) {
	srv := pageServer(t, http.StatusOK, statusPage)
	h := newTestHygrometer(t, srv)
	srv.Close()
	ctx := context.Background()

	// Connect does no I/O, so it succeeds against a dead host.
	require.NoError(t, h.Connect(ctx))
	defer h.Close()

	r, err := h.Get(ctx)
	require.NoError(t, err)
	assert.True(t, r.Empty())
}

func TestHygrometer_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	h := newTestHygrometer(t, srv, WithTimeout(100*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, h.Connect(ctx))
	defer h.Close()

	start := time.Now()
	r, err := h.Get(ctx)
	require.NoError(t, err)
	assert.True(t, r.Empty())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHygrometer_HTTPClientTemplate(t *testing.T) {
	var called bool
	srv := pageServer(t, http.StatusOK, statusPage)
	base := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			called = true
			return http.DefaultTransport.RoundTrip(req)
		}),
		Timeout: time.Hour,
	}
	h := newTestHygrometer(t, srv, WithHTTPClient(base))
	ctx := context.Background()

	require.NoError(t, h.Connect(ctx))
	defer h.Close()

	r, err := h.Get(ctx)
	require.NoError(t, err)
	assert.False(t, r.Empty())
	assert.True(t, called)
	// The template itself is left untouched.
	assert.Equal(t, time.Hour, base.Timeout)
}

func TestHygrometer_CloseIdempotent(t *testing.T) {
	srv := pageServer(t, http.StatusOK, statusPage)
	h := newTestHygrometer(t, srv)
	ctx := context.Background()

	assert.NoError(t, h.Close())
	require.NoError(t, h.Connect(ctx))
	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())

	_, err := h.Get(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
