package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/knwebagency/backend/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectorMock struct {
	collects atomic.Int32
	// allows the test to hold a refresh open to force overlaps
	block chan struct{}
}

func (c *collectorMock) Collect(context.Context) *Stats {
	n := c.collects.Add(1)
	if c.block != nil {
		<-c.block
	}
	return &Stats{TotalMessages: int(n)}
}

type broadcasterMock struct {
	mutex    sync.Mutex
	payloads [][]byte
}

func (b *broadcasterMock) Broadcast(payload []byte) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.payloads = append(b.payloads, append([]byte(nil), payload...))
}

func (b *broadcasterMock) count() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.payloads)
}

func (b *broadcasterMock) last(t *testing.T) Payload {
	t.Helper()
	b.mutex.Lock()
	defer b.mutex.Unlock()
	require.NotEmpty(t, b.payloads)
	var p Payload
	require.NoError(t, json.Unmarshal(b.payloads[len(b.payloads)-1], &p))
	return p
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestSyncer_TriggerRefresh(t *testing.T) {
	collector := &collectorMock{}
	hub := &broadcasterMock{}
	syncer := NewSyncer(nil, collector, hub, metrics.NewTestManager())

	syncer.TriggerRefresh(context.Background())
	waitFor(t, func() bool { return hub.count() == 1 })

	payload := hub.last(t)
	assert.Equal(t, "stats", payload.Type)
	assert.Equal(t, StatusSubscribed, payload.Status)
	require.NotNil(t, payload.Stats)
	assert.Equal(t, 1, payload.Stats.TotalMessages)
}

func TestSyncer_TriggerRefresh_coalescesBursts(t *testing.T) {
	collector := &collectorMock{block: make(chan struct{})}
	hub := &broadcasterMock{}
	metricsManager := metrics.NewTestManager()
	syncer := NewSyncer(nil, collector, hub, metricsManager)
	ctx := context.Background()

	// first trigger starts a refresh and blocks inside Collect
	syncer.TriggerRefresh(ctx)
	waitFor(t, func() bool { return collector.collects.Load() == 1 })

	// a burst while the first refresh is in flight
	for i := 0; i < 10; i++ {
		syncer.TriggerRefresh(ctx)
	}

	// release the first refresh and the single trailing one
	collector.block <- struct{}{}
	collector.block <- struct{}{}

	waitFor(t, func() bool { return hub.count() == 2 })

	// 11 triggers, exactly 2 collects: the in-flight one and one trailing
	assert.Equal(t, int32(2), collector.collects.Load())

	// a later trigger starts fresh again
	go func() { collector.block <- struct{}{} }()
	syncer.TriggerRefresh(ctx)
	waitFor(t, func() bool { return hub.count() == 3 })
	assert.Equal(t, int32(3), collector.collects.Load())
}
