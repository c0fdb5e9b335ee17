// Package catalog talks to the remote volumes API.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-bookbase/config"
	"github.com/aluiziolira/go-bookbase/models"
	"github.com/aluiziolira/go-bookbase/parser"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	opSearch = "search"
	opFetch  = "fetch"
)

// Client performs catalog lookups. It keeps no per-call state and is safe for concurrent use.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	Metrics *Metrics
}

// Option customises a Client.
type Option func(*Client)

// WithTransport swaps the HTTP transport, mainly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.SetTransport(rt)
	}
}

// WithMetrics shares an existing metrics bundle instead of creating one.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.Metrics = m
	}
}

// NewClient builds a catalog client configured from cfg.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetLogger(disableLogger{})
	httpClient.SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	c := &Client{
		http:    httpClient,
		limiter: limiter,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Metrics == nil {
		c.Metrics = NewMetrics()
	}
	return c, nil
}

// Search returns up to maxResults records matching query. maxResults is
// clamped to the remote page limit. No match is an empty slice, not an error.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.BookRecord, error) {
	start := time.Now()
	books, err := c.search(ctx, query, clampResults(maxResults))
	c.Metrics.ObserveRequest(opSearch, time.Since(start), err)
	if err != nil {
		slog.Debug("catalog search failed",
			slog.String("query", query),
			slog.String("category", ErrorType(err)),
			slog.Any("error", err),
		)
		return nil, err
	}
	return books, nil
}

func (c *Client) search(ctx context.Context, query string, maxResults int) ([]models.BookRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, NetworkError{Op: opSearch, Err: err}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":          query,
			"maxResults": strconv.Itoa(maxResults),
		}).
		Get("/volumes")
	if err != nil {
		return nil, NetworkError{Op: opSearch, Err: err}
	}
	if !isSuccess(resp.StatusCode()) {
		return nil, classifyStatus(opSearch, "", resp.StatusCode(), parser.ErrorMessage(resp.Body()))
	}

	books, err := parser.DecodeVolumes(resp.Body())
	if err != nil {
		return nil, RemoteError{Op: opSearch, StatusCode: resp.StatusCode(), Message: "malformed response: " + err.Error()}
	}
	return books, nil
}

// FetchByID resolves a single volume. An unknown id yields NotFoundError.
func (c *Client) FetchByID(ctx context.Context, id string) (models.BookRecord, error) {
	start := time.Now()
	book, err := c.fetch(ctx, strings.TrimSpace(id))
	c.Metrics.ObserveRequest(opFetch, time.Since(start), err)
	if err != nil {
		slog.Debug("catalog fetch failed",
			slog.String("id", id),
			slog.String("category", ErrorType(err)),
			slog.Any("error", err),
		)
		return models.BookRecord{}, err
	}
	return book, nil
}

func (c *Client) fetch(ctx context.Context, id string) (models.BookRecord, error) {
	if id == "" {
		return models.BookRecord{}, NotFoundError{ID: id}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return models.BookRecord{}, NetworkError{Op: opFetch, Err: err}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get("/volumes/{id}")
	if err != nil {
		return models.BookRecord{}, NetworkError{Op: opFetch, Err: err}
	}
	if !isSuccess(resp.StatusCode()) {
		return models.BookRecord{}, classifyStatus(opFetch, id, resp.StatusCode(), parser.ErrorMessage(resp.Body()))
	}

	book, err := parser.DecodeVolume(resp.Body())
	if err != nil {
		return models.BookRecord{}, RemoteError{Op: opFetch, StatusCode: resp.StatusCode(), Message: "malformed response: " + err.Error()}
	}
	return book, nil
}

func clampResults(n int) int {
	if n <= 0 {
		return 1
	}
	if n > config.MaxResultsLimit {
		return config.MaxResultsLimit
	}
	return n
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// disableLogger silences resty's internal logger; failures are logged through slog.
type disableLogger struct{}

func (disableLogger) Errorf(string, ...interface{}) {}
func (disableLogger) Warnf(string, ...interface{})  {}
func (disableLogger) Debugf(string, ...interface{}) {}
