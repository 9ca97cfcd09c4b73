package sitemetrics

import (
	"context"
	"time"

	"github.com/knwebagency/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var _ eventsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) AddEvent(ctx context.Context, event *Event) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "siteMetricsRepo.addEvent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("event.type", event.EventType))

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO site_metrics (event_type, page, metadata) VALUES ($1, $2, $3) RETURNING id, created_at;`,
		event.EventType, event.Page, event.Metadata,
	).Scan(&event.ID, &event.CreatedAt)
	return err
}

func (r *Repo) CountEventsSince(ctx context.Context, eventType string, since time.Time) (count int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "siteMetricsRepo.countEventsSince")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("event.type", eventType))

	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM site_metrics WHERE event_type = $1 AND created_at >= $2;`,
		eventType, since,
	).Scan(&count)
	return count, err
}
