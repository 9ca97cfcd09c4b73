package dashboard

import (
	"context"
	"time"

	"github.com/knwebagency/backend/internal/offers"
	"github.com/knwebagency/backend/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

// Stats is the KPI set shown on the admin dashboard.
type Stats struct {
	TotalMessages         int       `json:"total_messages"`
	TotalLeads            int       `json:"total_leads"`
	RemainingStarterSlots int       `json:"remaining_starter_slots"`
	MessagesLast30d       int       `json:"messages_last_30d"`
	ViewsLast7d           int       `json:"views_last_7d"`
	CTAClicksLast7d       int       `json:"cta_clicks_last_7d"`
	GeneratedAt           time.Time `json:"generated_at"`
}

type messagesCounter interface {
	CountAll(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type leadsCounter interface {
	CountAll(ctx context.Context) (int, error)
}

type slotsReader interface {
	Get(ctx context.Context) (*offers.StarterSlots, error)
}

type metricsReader interface {
	PageViewsSince(ctx context.Context, since time.Time) (int, error)
	CTAClicksSince(ctx context.Context, since time.Time) (int, error)
}

type StatsService struct {
	messages    messagesCounter
	leads       leadsCounter
	slots       slotsReader
	siteMetrics metricsReader
	nowFunc     func() time.Time
}

func NewStatsService(
	messages messagesCounter,
	leads leadsCounter,
	slots slotsReader,
	siteMetrics metricsReader,
) *StatsService {
	return &StatsService{
		messages:    messages,
		leads:       leads,
		slots:       slots,
		siteMetrics: siteMetrics,
		nowFunc:     time.Now,
	}
}

// Collect assembles the dashboard counters. Each counter degrades to zero on
// its own failure so one broken query never blanks the whole dashboard.
func (s *StatsService) Collect(ctx context.Context) *Stats {
	ctx, span := tracing.GlobalTracer.Start(ctx, "dashboard.collectStats")
	defer span.End()

	now := s.nowFunc()
	stats := &Stats{GeneratedAt: now}

	var err error
	if stats.TotalMessages, err = s.messages.CountAll(ctx); err != nil {
		log.Errorf("dashboard stats, total messages: %s", err)
	}
	if stats.MessagesLast30d, err = s.messages.CountSince(ctx, now.AddDate(0, 0, -30)); err != nil {
		log.Errorf("dashboard stats, messages last 30d: %s", err)
	}
	if stats.TotalLeads, err = s.leads.CountAll(ctx); err != nil {
		log.Errorf("dashboard stats, total leads: %s", err)
	}
	if slots, err := s.slots.Get(ctx); err != nil {
		log.Errorf("dashboard stats, starter slots: %s", err)
	} else {
		stats.RemainingStarterSlots = slots.RemainingSlots
	}
	weekAgo := now.AddDate(0, 0, -7)
	if stats.ViewsLast7d, err = s.siteMetrics.PageViewsSince(ctx, weekAgo); err != nil {
		log.Errorf("dashboard stats, views last 7d: %s", err)
	}
	if stats.CTAClicksLast7d, err = s.siteMetrics.CTAClicksSince(ctx, weekAgo); err != nil {
		log.Errorf("dashboard stats, cta clicks last 7d: %s", err)
	}

	return stats
}
