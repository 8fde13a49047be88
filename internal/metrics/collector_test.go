package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/Resinat/subdecode/internal/subscription"
)

var _ subscription.Recorder = (*Collector)(nil)

func TestCollector_FetchLatency_BoundaryAndOverflowBuckets(t *testing.T) {
	c := NewCollector(100, 3000)

	// Strictly below overflow_ms stays in the last regular bucket.
	c.RecordFetch("", true, 2999*time.Millisecond)
	// overflow_ms itself goes to the overflow bucket.
	c.RecordFetch("", true, 3000*time.Millisecond)
	// Lower boundary for second bucket.
	c.RecordFetch("", false, 100*time.Millisecond)
	// Negative latencies clamp into the first bucket.
	c.RecordFetch("", true, -time.Second)

	snap := c.Snapshot().Fetch
	regularBins := (3000 + 100 - 1) / 100
	if len(snap.LatencyBuckets) != regularBins+1 {
		t.Fatalf("bucket count: got %d, want %d", len(snap.LatencyBuckets), regularBins+1)
	}
	if snap.LatencyBuckets[0] != 1 {
		t.Fatalf("first bucket count: got %d, want 1", snap.LatencyBuckets[0])
	}
	if snap.LatencyBuckets[1] != 1 {
		t.Fatalf("second bucket count: got %d, want 1", snap.LatencyBuckets[1])
	}
	if snap.LatencyBuckets[regularBins-1] != 1 {
		t.Fatalf("last regular bucket count: got %d, want 1", snap.LatencyBuckets[regularBins-1])
	}
	if snap.LatencyBuckets[regularBins] != 1 {
		t.Fatalf("overflow bucket count: got %d, want 1", snap.LatencyBuckets[regularBins])
	}
	if snap.Total != 4 || snap.Failures != 1 {
		t.Fatalf("total=%d failures=%d, want 4 and 1", snap.Total, snap.Failures)
	}
}

func TestCollector_PerUpstream(t *testing.T) {
	c := NewCollector(0, 0)
	c.RecordFetch("example.com", true, time.Millisecond)
	c.RecordFetch("example.com", false, time.Millisecond)
	c.RecordFetch("other.org", true, time.Millisecond)
	c.RecordFetch("", true, time.Millisecond)

	snap := c.Snapshot()
	if snap.Fetch.Total != 4 {
		t.Fatalf("global total = %d, want 4", snap.Fetch.Total)
	}
	if len(snap.Upstreams) != 2 {
		t.Fatalf("upstreams = %v, want 2 entries", snap.Upstreams)
	}
	if got := snap.Upstreams["example.com"]; got.Total != 2 || got.Failures != 1 {
		t.Fatalf("example.com = %+v", got)
	}
}

func TestCollector_RecordLineConcurrent(t *testing.T) {
	c := NewCollector(0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordLine(subscription.ProtocolSS, true)
				c.RecordLine(subscription.ProtocolVmess, j%2 == 0)
			}
		}()
	}
	wg.Wait()
	c.RecordParse()

	snap := c.Snapshot()
	if snap.ParseCalls != 1 {
		t.Fatalf("ParseCalls = %d, want 1", snap.ParseCalls)
	}
	if got := snap.Lines[subscription.ProtocolSS]; got.Accepted != 800 || got.Rejected != 0 {
		t.Fatalf("ss lines = %+v", got)
	}
	if got := snap.Lines[subscription.ProtocolVmess]; got.Accepted != 400 || got.Rejected != 400 {
		t.Fatalf("vmess lines = %+v", got)
	}
	if _, ok := snap.Lines[subscription.ProtocolTrojan]; ok {
		t.Fatal("unused protocol should not appear")
	}
}
