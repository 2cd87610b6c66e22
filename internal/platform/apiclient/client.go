// Package apiclient is the REST client every state slice talks to. It applies
// the request conventions of the backend (Bearer auth with a single shared
// refresh on 401, the global loading counter, request ids, client-side rate
// limiting) and turns responses into typed values or *Error.
package apiclient

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ehr/maternity/internal/platform/loading"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maternity_api_requests_total",
		Help: "Remote API requests by method and status code",
	}, []string{"method", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maternity_api_request_duration_seconds",
		Help:    "Remote API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	refreshReplays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maternity_api_auth_replays_total",
		Help: "Requests replayed after a 401, by outcome",
	}, []string{"outcome"})
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Authenticator supplies bearer tokens. Refresh is called with the token that
// was rejected; implementations share a single refresh between concurrent
// callers.
type Authenticator interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context, stale string) (string, error)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond enables a client-side limiter when positive.
	RequestsPerSecond float64
	Burst             int
}

// Client sends requests to the backend.
type Client struct {
	http    *resty.Client
	auth    Authenticator
	tracker *loading.Tracker
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New creates a Client. auth and tracker may be nil.
func New(opts Options, auth Authenticator, tracker *loading.Tracker, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		http:    httpClient,
		auth:    auth,
		tracker: tracker,
		limiter: limiter,
		logger:  logger.With().Str("component", "apiclient").Logger(),
	}
}

// Do sends one request and returns the body of a 2xx response. prepare sets
// query, body and headers; it is called again when the request is replayed
// after a token refresh, so any readers it attaches must be fresh each call.
func (c *Client) Do(ctx context.Context, method, path string, prepare func(*resty.Request)) ([]byte, error) {
	if c.tracker != nil {
		end := c.tracker.Begin()
		defer end()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, newTransportError(err)
		}
	}

	token := ""
	if c.auth != nil {
		t, err := c.auth.Token(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("no usable access token, sending anonymously")
		}
		token = t
	}

	resp, err := c.send(ctx, method, path, token, prepare)
	if err != nil {
		return nil, newTransportError(err)
	}

	if resp.StatusCode() == http.StatusUnauthorized && c.auth != nil {
		rejected := NewStatusError(resp.StatusCode(), resp.Body())
		fresh, rerr := c.auth.Refresh(ctx, token)
		if rerr != nil {
			refreshReplays.WithLabelValues("refresh_failed").Inc()
			c.logger.Warn().Err(rerr).Str("path", path).Msg("token refresh failed")
			return nil, rejected
		}
		resp, err = c.send(ctx, method, path, fresh, prepare)
		if err != nil {
			refreshReplays.WithLabelValues("transport_error").Inc()
			return nil, newTransportError(err)
		}
		refreshReplays.WithLabelValues("replayed").Inc()
	}

	if resp.StatusCode() >= 300 {
		return nil, NewStatusError(resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}

func (c *Client) send(ctx context.Context, method, path, token string, prepare func(*resty.Request)) (*resty.Response, error) {
	requestID := uuid.NewString()
	req := c.http.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID)
	if token != "" {
		req.SetAuthToken(token)
	}
	if prepare != nil {
		prepare(req)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	elapsed := time.Since(start)
	requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())

	if err != nil {
		requestsTotal.WithLabelValues(method, "error").Inc()
		c.logger.Error().Err(err).
			Str("method", method).
			Str("path", path).
			Str("request_id", requestID).
			Dur("latency", elapsed).
			Msg("request failed")
		return nil, err
	}

	requestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode())).Inc()
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode()).
		Dur("latency", elapsed).
		Msg("request")
	return resp, nil
}
