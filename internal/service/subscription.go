package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Resinat/subdecode/internal/netutil"
	"github.com/Resinat/subdecode/internal/subscription"
)

// FetchRequest names a subscription to download and the options for the
// upstream request.
type FetchRequest struct {
	URL       string
	Method    string
	Headers   map[string]string
	Body      string
	UserAgent string
	Timeout   time.Duration
	NoCache   bool
}

// FetchResult is the decoded document and the nodes parsed from it.
type FetchResult struct {
	URL        string
	RawContent string
	Nodes      *subscription.Result
	Summary    subscription.Summary
}

// Recorder receives fetch and parse outcomes. metrics.Collector implements it.
type Recorder interface {
	RecordFetch(upstream string, success bool, latency time.Duration)
	RecordParse()
}

// SubscriptionService downloads, decodes and parses subscription documents.
type SubscriptionService struct {
	Downloader netutil.Downloader
	Parser     *subscription.Parser
	Recorder   Recorder
	Logger     logrus.FieldLogger
}

// FetchAndParse downloads req.URL, decodes the base64 body and parses it.
// Errors are *ServiceError.
func (s *SubscriptionService) FetchAndParse(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, invalidArg(ErrURLRequired.Error(), ErrURLRequired)
	}
	if s.Downloader == nil {
		return nil, internal("no downloader configured", nil)
	}

	dlReq := netutil.Request{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   req.Headers,
		Body:      req.Body,
		UserAgent: req.UserAgent,
		Timeout:   req.Timeout,
		NoCache:   req.NoCache,
	}
	if err := dlReq.Validate(); err != nil {
		return nil, invalidArg(err.Error(), err)
	}

	upstream := netutil.UpstreamDomain(req.URL)
	start := time.Now()
	body, err := s.Downloader.Download(ctx, dlReq)
	if s.Recorder != nil {
		s.Recorder.RecordFetch(upstream, err == nil, time.Since(start))
	}
	if err != nil {
		s.logger().WithError(err).WithField("upstream", upstream).Warn("subscription fetch failed")
		return nil, upstreamError(err)
	}

	content, err := subscription.DecodeDocument(body)
	if err != nil {
		s.logger().WithError(err).WithField("upstream", upstream).Warn("subscription body is not base64")
		return nil, decodeFailed(err)
	}

	res := s.parse(content)
	res.URL = req.URL
	return res, nil
}

// ParseContent parses a document the caller already holds. With encoded set
// the content is base64-decoded first.
func (s *SubscriptionService) ParseContent(content string, encoded bool) (*FetchResult, error) {
	if encoded {
		decoded, err := subscription.DecodeDocument([]byte(content))
		if err != nil {
			return nil, decodeFailed(err)
		}
		content = decoded
	}
	return s.parse(content), nil
}

func (s *SubscriptionService) parse(content string) *FetchResult {
	parser := s.Parser
	if parser == nil {
		parser = subscription.NewParser()
	}
	if s.Recorder != nil {
		s.Recorder.RecordParse()
	}
	nodes := parser.Parse(content)
	return &FetchResult{
		RawContent: content,
		Nodes:      nodes,
		Summary:    nodes.Summary(),
	}
}

func (s *SubscriptionService) logger() logrus.FieldLogger {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}
