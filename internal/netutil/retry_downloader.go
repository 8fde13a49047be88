package netutil

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryDownloader decorates a Downloader with bounded retries.
type RetryDownloader struct {
	Next Downloader
	// Retries is the number of extra attempts after the first failure.
	Retries int
	// Backoff is multiplied by the attempt number before each retry.
	Backoff time.Duration
	Logger  logrus.FieldLogger
}

// Download calls Next and retries transient failures.
func (r *RetryDownloader) Download(ctx context.Context, req Request) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := r.Next.Download(ctx, req)
	for attempt := 1; err != nil && attempt <= r.Retries; attempt++ {
		// Respect caller cancellation/deadline: don't extend lifecycle beyond caller ctx.
		if ctx.Err() != nil || !shouldRetry(err) {
			return nil, err
		}
		if r.Logger != nil {
			r.Logger.WithError(err).WithFields(logrus.Fields{
				"upstream": UpstreamDomain(req.URL),
				"attempt":  attempt,
			}).Debug("retrying subscription fetch")
		}
		if !sleepContext(ctx, r.Backoff*time.Duration(attempt)) {
			return nil, err
		}
		body, err = r.Next.Download(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}

	var nonRetryable *NonRetryableError
	return !errors.As(err, &nonRetryable)
}

// sleepContext waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
