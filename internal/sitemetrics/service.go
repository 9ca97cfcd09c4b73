package sitemetrics

import (
	"context"
	"time"

	"github.com/knwebagency/backend/internal/telemetry/metrics"
	"github.com/knwebagency/backend/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type eventsRepo interface {
	AddEvent(ctx context.Context, event *Event) error
	CountEventsSince(ctx context.Context, eventType string, since time.Time) (int, error)
}

// countryResolver maps a visitor IP to a country name.
type countryResolver interface {
	CountryForIP(ctx context.Context, ip string) (string, error)
}

// Service is the write side of visitor analytics. Tracking must never break
// the feature that triggered it, so all errors end here, logged.
type Service struct {
	repo    eventsRepo
	geoIP   countryResolver
	metrics *metrics.Manager
}

func NewService(repo eventsRepo, geoIP countryResolver, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:    repo,
		geoIP:   geoIP,
		metrics: metricsManager,
	}
}

func (s *Service) TrackEvent(ctx context.Context, eventType, page string, metadata map[string]any) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "siteMetrics.trackEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.type", eventType))

	// page views get the visitor country instead of the raw address
	if ip, ok := metadata["ip"].(string); ok {
		delete(metadata, "ip")
		if eventType == EventPageView && s.geoIP != nil {
			country, err := s.geoIP.CountryForIP(ctx, ip)
			if err != nil {
				log.Tracef("track event, resolve country for %s: %s", ip, err)
			} else if country != "" {
				metadata["country"] = country
			}
		}
	}

	event := &Event{
		EventType: eventType,
		Page:      page,
		Metadata:  metadata,
	}
	if err := s.repo.AddEvent(ctx, event); err != nil {
		log.Errorf("track event [%s] on [%s]: %s", eventType, page, err)
		span.RecordError(err)
		return
	}

	s.metrics.CounterTrackedEvents.WithLabelValues(eventType).Inc()
}

func (s *Service) PageViewsSince(ctx context.Context, since time.Time) (int, error) {
	return s.repo.CountEventsSince(ctx, EventPageView, since)
}

func (s *Service) CTAClicksSince(ctx context.Context, since time.Time) (int, error) {
	return s.repo.CountEventsSince(ctx, EventCTAClick, since)
}
