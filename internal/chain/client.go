package chain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"stacksIndexer/internal/metrics"
	"stacksIndexer/internal/model"
)

const (
	eventsPath      = "/extended/v1/contract/{contractId}/events"
	transactionPath = "/extended/v1/tx/{txId}"

	defaultTxCacheSize = 10000
	maxErrorBody       = 256
)

// Config controls the upstream API client.
type Config struct {
	BaseURL        string
	MaxRetries     int
	RetryBackoff   time.Duration
	RateLimit      float64
	RequestTimeout time.Duration
	TxCacheSize    int
}

// Client reads contract events and transaction details from the extended API.
type Client struct {
	cfg     Config
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	mu      sync.RWMutex
	txCache map[string]model.TransactionDetail
}

// NewClient creates a client for the API at cfg.BaseURL.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TxCacheSize <= 0 {
		cfg.TxCacheSize = defaultTxCacheSize
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if cfg.RequestTimeout > 0 {
		httpClient.SetTimeout(cfg.RequestTimeout)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
		txCache: make(map[string]model.TransactionDetail),
	}, nil
}

// FetchEvents returns one page of events for contractID. A 404 means there is
// nothing to read and yields an empty page with no error.
func (c *Client) FetchEvents(ctx context.Context, contractID string, offset, limit int) ([]model.RawEvent, error) {
	var page model.EventsPage
	err := withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
		page = model.EventsPage{}
		err := c.get(ctx, "events", eventsPath,
			map[string]string{"contractId": contractID},
			map[string]string{
				"limit":  strconv.Itoa(limit),
				"offset": strconv.Itoa(offset),
			},
			&page,
		)
		if err != nil && !IsNotFound(err) {
			c.logger.Warn("fetch events failed",
				zap.Error(err),
				zap.String("contract_id", contractID),
				zap.Int("offset", offset),
			)
		}
		return err
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return page.Results, nil
}

// FetchTransaction returns the detail for txID. Lookups are best effort: any
// failure is logged and an empty detail is returned.
func (c *Client) FetchTransaction(ctx context.Context, txID string) model.TransactionDetail {
	c.mu.RLock()
	cached, ok := c.txCache[txID]
	c.mu.RUnlock()
	if ok {
		return cached
	}

	var detail model.TransactionDetail
	err := withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
		detail = model.TransactionDetail{}
		return c.get(ctx, "tx", transactionPath, map[string]string{"txId": txID}, nil, &detail)
	})
	if err != nil {
		c.logger.Warn("fetch transaction detail failed", zap.Error(err), zap.String("tx_id", txID))
		metrics.ErrorsTotal.WithLabelValues("upstream", "tx_detail").Inc()
		return model.TransactionDetail{}
	}

	if detail.Confirmed() {
		c.mu.Lock()
		if len(c.txCache) >= c.cfg.TxCacheSize {
			c.txCache = make(map[string]model.TransactionDetail)
		}
		c.txCache[txID] = detail
		c.mu.Unlock()
	}
	return detail
}

func (c *Client) get(ctx context.Context, endpoint, path string, pathParams, query map[string]string, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req := c.http.R().
		SetContext(ctx).
		SetPathParams(pathParams).
		ForceContentType("application/json").
		SetResult(result)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("get %s: %w", endpoint, err)
	}
	metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode())).Inc()

	if resp.IsError() {
		body := resp.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &StatusError{Code: resp.StatusCode(), URL: resp.Request.URL, Body: body}
	}
	return nil
}
