package dashboard

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/knwebagency/backend/internal/realtime"
	"github.com/knwebagency/backend/internal/telemetry/metrics"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// Sync payload connection states pushed alongside the stats.
const (
	StatusSubscribed   = "subscribed"
	StatusError        = "error"
	StatusDisconnected = "disconnected"
)

type Payload struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Stats  *Stats `json:"stats,omitempty"`
}

type statsCollector interface {
	Collect(ctx context.Context) *Stats
}

type broadcaster interface {
	Broadcast(payload []byte)
}

// Syncer listens for table change notifications and pushes fresh dashboard
// stats to connected clients. A change always triggers a full re-collect,
// never an incremental patch; bursts of notifications collapse into at most
// one in-flight refresh plus one trailing refresh.
type Syncer struct {
	rdb     *redis.Client
	stats   statsCollector
	hub     broadcaster
	metrics *metrics.Manager

	mu         sync.Mutex
	refreshing bool
	pending    bool
}

func NewSyncer(
	rdb *redis.Client,
	stats statsCollector,
	hub broadcaster,
	metricsManager *metrics.Manager,
) *Syncer {
	return &Syncer{
		rdb:     rdb,
		stats:   stats,
		hub:     hub,
		metrics: metricsManager,
	}
}

// Run blocks until the context is done, releasing all subscriptions on the
// way out. Redis handles pub/sub reconnects internally.
func (s *Syncer) Run(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, realtime.WatchedChannels...)
	defer func() {
		if err := pubsub.Close(); err != nil {
			log.Errorf("dashboard syncer, close pubsub: %s", err)
		}
	}()

	log.Debugf("dashboard syncer subscribed to %d channels", len(realtime.WatchedChannels))
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			s.hub.Broadcast(mustMarshalPayload(Payload{Type: "stats", Status: StatusDisconnected}))
			return
		case msg, ok := <-ch:
			if !ok {
				s.hub.Broadcast(mustMarshalPayload(Payload{Type: "stats", Status: StatusError}))
				return
			}
			log.Tracef("dashboard syncer, change on %s", msg.Channel)
			s.TriggerRefresh(ctx)
		}
	}
}

// TriggerRefresh requests a stats push. While a refresh is running, further
// triggers only mark it stale; the worker re-runs once more and stops.
func (s *Syncer) TriggerRefresh(ctx context.Context) {
	s.mu.Lock()
	if s.refreshing {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.refreshing = true
	s.mu.Unlock()

	go func() {
		for {
			s.refresh(ctx)

			s.mu.Lock()
			if !s.pending {
				s.refreshing = false
				s.mu.Unlock()
				return
			}
			s.pending = false
			s.mu.Unlock()
		}
	}()
}

func (s *Syncer) refresh(ctx context.Context) {
	stats := s.stats.Collect(ctx)
	s.metrics.CounterDashboardRefreshes.Inc()
	s.hub.Broadcast(mustMarshalPayload(Payload{
		Type:   "stats",
		Status: StatusSubscribed,
		Stats:  stats,
	}))
}

func mustMarshalPayload(p Payload) []byte {
	payload, err := json.Marshal(p)
	if err != nil {
		// Payload has no unmarshalable fields, this cannot happen
		log.Errorf("marshal dashboard payload: %s", err)
		return []byte(`{"type":"stats","status":"error"}`)
	}
	return payload
}
