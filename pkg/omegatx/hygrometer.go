package omegatx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxPageSize caps how much of the status page is read.
const maxPageSize = 64 << 10

// Hygrometer is a client for the iTHX-W transmitter, which publishes its
// readings on a small HTML status page.
//
// A Hygrometer is not safe for concurrent use.
type Hygrometer struct {
	session  *http.Client
	template *http.Client
	url      string
	timeout  time.Duration
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewHygrometer creates a client for the iTHX-W at address.
func NewHygrometer(address string, opts ...Option) (*Hygrometer, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	// JoinHostPort brackets IPv6 literals; the default port is left implicit.
	port := strconv.Itoa(cfg.portOr(DefaultHygrometerPort))
	host := strings.TrimSuffix(net.JoinHostPort(address, port), ":"+strconv.Itoa(DefaultHygrometerPort))

	return &Hygrometer{
		template: cfg.httpClient,
		url:      "http://" + host + StatusPath,
		timeout:  cfg.timeout,
		logger:   cfg.logger,
	}, nil
}

// URL returns the status page address.
func (h *Hygrometer) URL() string {
	return h.url
}

// Connect creates the HTTP session. No request is made until Get.
func (h *Hygrometer) Connect(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session != nil {
		return nil
	}

	session := &http.Client{}
	if h.template != nil {
		*session = *h.template
	}
	session.Timeout = h.timeout
	h.session = session

	if h.logger != nil {
		h.logger.Debug("http session created", "url", h.url)
	}
	return nil
}

// Close releases the session's idle connections. Closing twice is a no-op.
func (h *Hygrometer) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil
	}
	h.session.CloseIdleConnections()
	h.session = nil
	if h.logger != nil {
		h.logger.Debug("http session closed", "url", h.url)
	}
	return nil
}

// Get fetches and parses the status page.
//
// Failure is all or nothing: an unreachable host, a non-200 status or a
// page that does not parse yields an empty Reading and a nil error. The
// only error returned is ErrNotConnected.
func (h *Hygrometer) Get(ctx context.Context) (Reading, error) {
	h.mu.Lock()
	session := h.session
	h.mu.Unlock()
	if session == nil {
		if h.logger != nil {
			h.logger.Error("HTTP session not created before the request", "url", h.url)
		}
		return Reading{}, ErrNotConnected
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		h.fail("failed to build request", err)
		return Reading{}, nil
	}

	resp, err := session.Do(req)
	if err != nil {
		h.fail("failed to reach transmitter", err)
		return Reading{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if h.logger != nil {
			h.logger.Error("failed to read from transmitter HTML page", "url", h.url, "status", resp.StatusCode)
		}
		return Reading{}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		h.fail("failed to read page body", err)
		return Reading{}, nil
	}

	temp, humid, dew, err := ParseStatusPage(string(body))
	if err != nil {
		h.fail("failed to properly parse the HTML", err)
		return Reading{}, nil
	}

	return Reading{
		Time: start,
		Channels: []Channel{
			{Label: LabelTemperatureC, Value: Present(temp)},
			{Label: LabelHumidity, Value: Present(humid)},
			{Label: LabelDewpointC, Value: Present(dew)},
		},
	}, nil
}

func (h *Hygrometer) fail(msg string, err error) {
	if h.logger != nil {
		h.logger.Error(msg, "url", h.url, "error", err)
	}
}

// ParseStatusPage extracts temperature, humidity and dewpoint from the
// iTHX-W status page. Lines 1 to 3 each hold a label followed by
// whitespace-separated tokens; the third token is the value.
func ParseStatusPage(body string) (temp, humid, dew float64, err error) {
	lines := strings.Split(body, "\n")
	if len(lines) < 4 {
		return 0, 0, 0, fmt.Errorf("%w: expected at least 4 lines, got %d", ErrMalformedResponse, len(lines))
	}

	var vals [3]float64
	for i := range vals {
		line := strings.TrimRight(lines[i+1], "\r")
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return 0, 0, 0, fmt.Errorf("%w: line %d %q has fewer than 3 fields", ErrMalformedResponse, i+1, line)
		}
		v, perr := strconv.ParseFloat(fields[2], 64)
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("%w: line %d value %q", ErrMalformedResponse, i+1, fields[2])
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}
