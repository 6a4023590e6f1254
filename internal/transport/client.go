package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/corelinkhq/kernelmgr/internal/infrastructure/config"
	"github.com/corelinkhq/kernelmgr/internal/infrastructure/logging"
	"github.com/corelinkhq/kernelmgr/internal/infrastructure/resilience"
	"github.com/corelinkhq/kernelmgr/internal/infrastructure/tracing"
)

// Client talks to the kernel service REST API. It wraps resty over a
// retryable transport, guarded by a circuit breaker and an optional rate
// limiter. Safe for concurrent use.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	baseURL *url.URL
	token   string
	log     *logging.Logger
}

// New creates a production-ready client for the given service endpoint.
func New(cfg config.ServiceConfig, log *logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.Nop()
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", cfg.BaseURL)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil // retries are logged by us, not by the library

	restyClient := resty.New()
	restyClient.
		SetBaseURL(base.String()).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryMax).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("User-Agent", "kernelmgr/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	if cfg.Token != "" {
		restyClient.SetHeader("Authorization", "token "+cfg.Token)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), int(cfg.RateLimitRPS)+1)
	}

	breaker := resilience.New("kernel-api", resilience.Settings{
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.5)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		baseURL: base,
		token:   cfg.Token,
		log:     log.Named("transport"),
	}, nil
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// request builds a resty request after clearing the breaker and limiter.
// Every request carries a correlation id header for server-side log
// matching.
func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	if c.breaker.State() == resilience.StateOpen {
		return nil, &Error{Op: "request", Err: resilience.ErrCircuitOpen}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Op: "request", Err: err}
	}
	ctx, rid := tracing.Ensure(ctx)
	return c.resty.R().
		SetContext(ctx).
		SetHeader(tracing.Header, rid.String()), nil
}

// execute runs fn under the breaker and normalizes transport failures.
func (c *Client) execute(op string, fn func() (*resty.Response, error)) (*resty.Response, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		// 5xx counts against the breaker; 4xx is a caller problem, not a
		// service health signal.
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, &Error{Op: op, StatusCode: resp.StatusCode(), Err: errServerStatus}
		}
		return resp, nil
	})
	if err != nil {
		if resp, ok := result.(*resty.Response); ok {
			return resp, wrapError(op, err)
		}
		return nil, wrapError(op, err)
	}
	return result.(*resty.Response), nil
}
