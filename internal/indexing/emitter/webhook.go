// Package emitter delivers notification payloads to webhook endpoints.
//
// Each delivery is a bounded state machine: a task starts at attempt 0, every
// failed post (any non-2xx status or transport error) increments the attempt,
// and once MaxRetries retries are spent the task is dropped, so an endpoint
// that always fails sees exactly MaxRetries+1 posts. Between attempts the
// client waits either the endpoint's retry-after hint (HTTP 429) or a jittered
// exponential backoff. A hint longer than MaxRetryAfter is waited out in
// MaxRetryAfter slices, each spending one retry, so the client never posts
// before the endpoint allows it.
package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/lottowatch/internal/core/domain"
	"github.com/vietddude/lottowatch/internal/indexing/metrics"
)

// Config holds webhook delivery settings.
type Config struct {
	URLs           map[domain.Channel]string
	MaxRetries     int
	BackoffBase    time.Duration
	MaxBackoff     time.Duration
	MaxRetryAfter  time.Duration // longest single wait; longer hints spend extra retries
	RetryAfterUnit time.Duration // unit of the retry_after body field
	MinInterval    time.Duration // minimum spacing between posts
	Timeout        time.Duration
}

// DefaultConfig returns the delivery defaults.
func DefaultConfig() Config {
	return Config{
		URLs:           map[domain.Channel]string{},
		MaxRetries:     3,
		BackoffBase:    time.Second,
		MaxBackoff:     30 * time.Second,
		MaxRetryAfter:  60 * time.Second,
		RetryAfterUnit: time.Millisecond,
		MinInterval:    time.Second,
		Timeout:        10 * time.Second,
	}
}

// task is one payload moving through the retry state machine.
type task struct {
	channel domain.Channel
	url     string
	title   string
	body    []byte
	attempt int
}

// DeliveryClient posts payloads to per-channel webhooks.
type DeliveryClient struct {
	cfg        Config
	httpClient *http.Client
	pace       *rate.Limiter
	log        *slog.Logger

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	// jitter returns a random duration in [0, n).
	jitter func(n time.Duration) time.Duration
}

// NewDeliveryClient creates a webhook client.
func NewDeliveryClient(cfg Config) *DeliveryClient {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.MaxBackoff < cfg.BackoffBase {
		cfg.MaxBackoff = cfg.BackoffBase
	}
	if cfg.RetryAfterUnit <= 0 {
		cfg.RetryAfterUnit = time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &DeliveryClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		pace:       rate.NewLimiter(limit, 1),
		log:        slog.Default().With("component", "emitter"),
		sleep:      sleepContext,
		jitter: func(n time.Duration) time.Duration {
			if n <= 0 {
				return 0
			}
			return time.Duration(rand.Int64N(int64(n)))
		},
	}
}

// Deliver posts payload to its channel's webhook, retrying per the configured budget.
func (c *DeliveryClient) Deliver(ctx context.Context, payload domain.Payload) Result {
	url, ok := c.cfg.URLs[payload.Channel]
	if !ok || url == "" {
		c.log.Error("No webhook configured for channel, dropping", "channel", payload.Channel, "title", payload.Title)
		metrics.NotificationsTotal.WithLabelValues(payload.Channel.String(), ResultDropped.String()).Inc()
		return ResultDropped
	}

	body, err := payload.Body()
	if err != nil {
		c.log.Error("Failed to render payload, dropping", "channel", payload.Channel, "title", payload.Title, "error", err)
		metrics.NotificationsTotal.WithLabelValues(payload.Channel.String(), ResultDropped.String()).Inc()
		return ResultDropped
	}

	t := &task{channel: payload.Channel, url: url, title: payload.Title, body: body}
	result := c.run(ctx, t)
	metrics.NotificationsTotal.WithLabelValues(t.channel.String(), result.String()).Inc()
	return result
}

func (c *DeliveryClient) run(ctx context.Context, t *task) Result {
	for {
		if err := c.waitTurn(ctx); err != nil {
			return c.drop(t, err)
		}

		retryAfter, err := c.post(ctx, t)
		if err == nil {
			if t.attempt > 0 {
				c.log.Info("Webhook delivered after retry", "channel", t.channel, "title", t.title, "attempts", t.attempt+1)
			}
			return ResultSent
		}

		if t.attempt >= c.cfg.MaxRetries {
			return c.drop(t, err)
		}

		delay := retryAfter
		if delay <= 0 {
			delay = c.backoff(t.attempt)
		}

		// Each slice spends a retry and the post after the last slice needs one too.
		for c.cfg.MaxRetryAfter > 0 && delay > c.cfg.MaxRetryAfter {
			if t.attempt+1 >= c.cfg.MaxRetries {
				return c.drop(t, fmt.Errorf("retry-after of %s outlasts the retry budget: %w", delay, err))
			}
			c.log.Warn("Retry-after exceeds max wait, spending a retry",
				"channel", t.channel,
				"title", t.title,
				"remaining", delay,
				"max_wait", c.cfg.MaxRetryAfter,
			)
			t.attempt++
			if err := c.sleep(ctx, c.cfg.MaxRetryAfter); err != nil {
				return c.drop(t, err)
			}
			delay -= c.cfg.MaxRetryAfter
		}
		c.log.Warn("Webhook attempt failed, retrying",
			"channel", t.channel,
			"title", t.title,
			"attempt", t.attempt+1,
			"delay", delay,
			"error", err,
		)

		t.attempt++
		if err := c.sleep(ctx, delay); err != nil {
			return c.drop(t, err)
		}
	}
}

// post performs one attempt. On 429 it returns the endpoint's retry-after hint.
func (c *DeliveryClient) post(ctx context.Context, t *task) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(t.body))
	if err != nil {
		return 0, &domain.DeliveryError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.WebhookAttempts.WithLabelValues(t.channel.String(), "error").Inc()
		return 0, &domain.DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	metrics.WebhookAttempts.WithLabelValues(t.channel.String(), strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return 0, nil
	}

	derr := &domain.DeliveryError{StatusCode: resp.StatusCode}
	if len(respBody) > 0 {
		derr.Err = fmt.Errorf("%s", strings.TrimSpace(string(respBody)))
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return c.retryAfter(resp.Header, respBody), derr
	}
	return 0, derr
}

// retryAfter reads the wait hint of a 429 response: the JSON body field
// retry_after first, then the Retry-After header in seconds.
func (c *DeliveryClient) retryAfter(header http.Header, body []byte) time.Duration {
	var hint struct {
		RetryAfter *float64 `json:"retry_after"`
	}
	var wait time.Duration
	if err := json.Unmarshal(body, &hint); err == nil && hint.RetryAfter != nil && *hint.RetryAfter > 0 {
		wait = time.Duration(*hint.RetryAfter * float64(c.cfg.RetryAfterUnit))
	} else if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			wait = time.Duration(secs * float64(time.Second))
		}
	}
	return wait
}

// backoff returns BackoffBase * 2^attempt capped at MaxBackoff, plus jitter in [0, BackoffBase).
func (c *DeliveryClient) backoff(attempt int) time.Duration {
	delay := c.cfg.MaxBackoff
	if attempt < 32 {
		if d := c.cfg.BackoffBase << uint(attempt); d > 0 && d < c.cfg.MaxBackoff {
			delay = d
		}
	}
	return delay + c.jitter(c.cfg.BackoffBase)
}

// waitTurn spaces posts by MinInterval.
func (c *DeliveryClient) waitTurn(ctx context.Context) error {
	r := c.pace.Reserve()
	if !r.OK() {
		return errors.New("rate: cannot reserve token")
	}
	if delay := r.Delay(); delay > 0 {
		if err := c.sleep(ctx, delay); err != nil {
			r.Cancel()
			return err
		}
	}
	return nil
}

func (c *DeliveryClient) drop(t *task, err error) Result {
	c.log.Error("Webhook delivery dropped",
		"channel", t.channel,
		"title", t.title,
		"attempts", t.attempt+1,
		"error", err,
		"payload", string(t.body),
	)
	return ResultDropped
}

// Close releases idle connections.
func (c *DeliveryClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
