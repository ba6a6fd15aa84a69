package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// StatusError は再試行し尽くしたレスポンスのステータスを表します。
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.URL)
}

// RetryTransport は一時的な失敗を指数バックオフで再試行する http.RoundTripper です。
// 再試行対象は通信エラー、5xx、408、429、404 です。
type RetryTransport struct {
	Base            http.RoundTripper
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// AttemptTimeout が正の場合、各試行にこの期限を設定します。
	AttemptTimeout time.Duration
}

var _ http.RoundTripper = (*RetryTransport)(nil)

// NewRetryTransport は 2 秒から倍々に待機する RetryTransport を生成します。
func NewRetryTransport(base http.RoundTripper, retries int) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{
		Base:            base,
		MaxRetries:      retries,
		InitialInterval: 2 * time.Second,
		MaxInterval:     2 * time.Minute,
	}
}

func retryableStatus(code int) bool {
	switch {
	case code >= 500:
		return true
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code == http.StatusNotFound:
		return true
	}
	return false
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// 再送できないボディは1回だけ送る
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return t.attempt(req)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.InitialInterval
	b.MaxInterval = t.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0

	attempt := 0
	op := func() (*http.Response, error) {
		attempt++
		r, err := cloneRequest(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		res, err := t.attempt(r)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, backoff.Permanent(err)
			}
			slog.Warn("http request failed", "url", req.URL.Redacted(), "attempt", attempt, "error", err)
			return nil, err
		}
		if retryableStatus(res.StatusCode) {
			discard(res)
			slog.Warn("http request returned retryable status",
				"url", req.URL.Redacted(), "attempt", attempt, "status", res.StatusCode)
			return nil, &StatusError{StatusCode: res.StatusCode, URL: req.URL.Redacted()}
		}
		return res, nil
	}

	return backoff.Retry(req.Context(), op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(t.MaxRetries+1)),
	)
}

func (t *RetryTransport) attempt(req *http.Request) (*http.Response, error) {
	if t.AttemptTimeout <= 0 {
		return t.Base.RoundTrip(req)
	}
	ctx, cancel := context.WithTimeout(req.Context(), t.AttemptTimeout)
	res, err := t.Base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	res.Body = &cancelOnClose{ReadCloser: res.Body, cancel: cancel}
	return res, nil
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}

func discard(res *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
	if err := res.Body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err)
	}
}

// cancelOnClose は試行ごとの context をボディのクローズ時に解放します。
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
