// Package metrics keeps in-process counters for fetches and parsed lines.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/Resinat/subdecode/internal/subscription"
)

// Collector holds lock-free counters. The zero value is not usable; call
// NewCollector.
type Collector struct {
	startedAt  time.Time
	parseCalls atomic.Int64
	fetch      *fetchCounters
	upstreams  *xsync.Map[string, *fetchCounters]
	accepted   *xsync.Map[subscription.Protocol, *atomic.Int64]
	rejected   *xsync.Map[subscription.Protocol, *atomic.Int64]
}

type fetchCounters struct {
	total    atomic.Int64
	failures atomic.Int64

	// Each regular bucket[i] counts fetches with latency in
	// [i*binMs, (i+1)*binMs). The last bucket is overflow (>= overMs).
	latencyBuckets []atomic.Int64
	binMs          int
	overMs         int
}

// FetchSnapshot is a point-in-time copy of fetch counters.
type FetchSnapshot struct {
	Total          int64   `json:"total"`
	Failures       int64   `json:"failures"`
	LatencyBuckets []int64 `json:"latency_buckets"`
	LatencyBinMs   int     `json:"latency_bin_ms"`
	LatencyOverMs  int     `json:"latency_overflow_ms"`
}

// LineSnapshot counts accepted and rejected lines for one protocol.
type LineSnapshot struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	StartedAt  time.Time                              `json:"started_at"`
	ParseCalls int64                                  `json:"parse_calls"`
	Fetch      FetchSnapshot                          `json:"fetch"`
	Upstreams  map[string]FetchSnapshot               `json:"upstreams"`
	Lines      map[subscription.Protocol]LineSnapshot `json:"lines"`
}

// NewCollector creates a Collector with the given fetch latency histogram
// parameters.
func NewCollector(latencyBinMs, latencyOverflowMs int) *Collector {
	if latencyBinMs <= 0 {
		latencyBinMs = 100
	}
	if latencyOverflowMs <= 0 {
		latencyOverflowMs = 10000
	}
	return &Collector{
		startedAt: time.Now(),
		fetch:     newFetchCounters(latencyBinMs, latencyOverflowMs),
		upstreams: xsync.NewMap[string, *fetchCounters](),
		accepted:  xsync.NewMap[subscription.Protocol, *atomic.Int64](),
		rejected:  xsync.NewMap[subscription.Protocol, *atomic.Int64](),
	}
}

func newFetchCounters(binMs, overMs int) *fetchCounters {
	regular := (overMs + binMs - 1) / binMs
	if regular <= 0 {
		regular = 1
	}
	return &fetchCounters{
		latencyBuckets: make([]atomic.Int64, regular+1),
		binMs:          binMs,
		overMs:         overMs,
	}
}

// RecordLine implements subscription.Recorder.
func (c *Collector) RecordLine(protocol subscription.Protocol, accepted bool) {
	m := c.rejected
	if accepted {
		m = c.accepted
	}
	ctr, _ := m.LoadOrStore(protocol, new(atomic.Int64))
	ctr.Add(1)
}

// RecordParse counts one document handed to the parser.
func (c *Collector) RecordParse() {
	c.parseCalls.Add(1)
}

// RecordFetch records one completed upstream fetch. An empty upstream only
// updates the global counters.
func (c *Collector) RecordFetch(upstream string, success bool, latency time.Duration) {
	c.fetch.record(success, latency)
	if upstream == "" {
		return
	}
	uc, ok := c.upstreams.Load(upstream)
	if !ok {
		uc, _ = c.upstreams.LoadOrStore(upstream, newFetchCounters(c.fetch.binMs, c.fetch.overMs))
	}
	uc.record(success, latency)
}

func (fc *fetchCounters) record(success bool, latency time.Duration) {
	fc.total.Add(1)
	if !success {
		fc.failures.Add(1)
	}

	ms := latency.Milliseconds()
	overflowIdx := len(fc.latencyBuckets) - 1
	if ms >= int64(fc.overMs) {
		fc.latencyBuckets[overflowIdx].Add(1)
		return
	}
	idx := 0
	if ms > 0 {
		idx = int(ms / int64(fc.binMs))
	}
	if idx >= overflowIdx {
		idx = overflowIdx - 1
	}
	fc.latencyBuckets[idx].Add(1)
}

func (fc *fetchCounters) snapshot() FetchSnapshot {
	s := FetchSnapshot{
		Total:          fc.total.Load(),
		Failures:       fc.failures.Load(),
		LatencyBuckets: make([]int64, len(fc.latencyBuckets)),
		LatencyBinMs:   fc.binMs,
		LatencyOverMs:  fc.overMs,
	}
	for i := range fc.latencyBuckets {
		s.LatencyBuckets[i] = fc.latencyBuckets[i].Load()
	}
	return s
}

// Snapshot returns a best-effort point-in-time copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		StartedAt:  c.startedAt,
		ParseCalls: c.parseCalls.Load(),
		Fetch:      c.fetch.snapshot(),
		Upstreams:  make(map[string]FetchSnapshot),
		Lines:      make(map[subscription.Protocol]LineSnapshot),
	}
	c.upstreams.Range(func(upstream string, fc *fetchCounters) bool {
		s.Upstreams[upstream] = fc.snapshot()
		return true
	})
	c.accepted.Range(func(p subscription.Protocol, ctr *atomic.Int64) bool {
		ls := s.Lines[p]
		ls.Accepted = ctr.Load()
		s.Lines[p] = ls
		return true
	})
	c.rejected.Range(func(p subscription.Protocol, ctr *atomic.Int64) bool {
		ls := s.Lines[p]
		ls.Rejected = ctr.Load()
		s.Lines[p] = ls
		return true
	})
	return s
}
