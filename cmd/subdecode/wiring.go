package main

import (
	"github.com/sirupsen/logrus"

	"github.com/Resinat/subdecode/internal/config"
	"github.com/Resinat/subdecode/internal/metrics"
	"github.com/Resinat/subdecode/internal/netutil"
	"github.com/Resinat/subdecode/internal/service"
	"github.com/Resinat/subdecode/internal/subscription"
)

// newDownloader stacks direct fetch, retries and the response cache.
// The returned func releases the cache and is never nil.
func newDownloader(cfg *config.EnvConfig, logger logrus.FieldLogger) (netutil.Downloader, func()) {
	var dl netutil.Downloader = netutil.NewDirectDownloader(cfg.FetchTimeout, cfg.UserAgent, cfg.FetchMaxBodyBytes)
	if cfg.FetchRetries > 0 {
		dl = &netutil.RetryDownloader{
			Next:    dl,
			Retries: cfg.FetchRetries,
			Backoff: cfg.FetchRetryBackoff,
			Logger:  logger,
		}
	}
	dl = netutil.NewCachingDownloader(dl, cfg.CacheTTL, cfg.CacheMaxEntries)
	if cached, ok := dl.(*netutil.CachingDownloader); ok {
		return dl, cached.Close
	}
	return dl, func() {}
}

// newSubscriptionService wires the fetch and parse pipeline. collector may be
// nil, in which case nothing is recorded.
func newSubscriptionService(cfg *config.EnvConfig, logger logrus.FieldLogger, collector *metrics.Collector) (*service.SubscriptionService, func()) {
	dl, closeFn := newDownloader(cfg, logger)

	opts := []subscription.Option{subscription.WithLogger(logger)}
	svc := &service.SubscriptionService{
		Downloader: dl,
		Logger:     logger,
	}
	if collector != nil {
		opts = append(opts, subscription.WithRecorder(collector))
		svc.Recorder = collector
	}
	svc.Parser = subscription.NewParser(opts...)
	return svc, closeFn
}
