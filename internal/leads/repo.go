package leads

import (
	"context"
	"errors"

	"github.com/knwebagency/backend/internal/realtime"
	"github.com/knwebagency/backend/internal/telemetry/tracing"
	"github.com/knwebagency/backend/pkg"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAlreadySubscribed - the email hit the unique constraint on leads.email.
var ErrAlreadySubscribed = errors.New("email already subscribed")

var _ leadsRepo = (*Repo)(nil)

type Repo struct {
	db       *pgxpool.Pool
	notifier realtime.ChangeNotifier
}

func NewRepo(db *pgxpool.Pool, notifier realtime.ChangeNotifier) *Repo {
	return &Repo{
		db:       db,
		notifier: notifier,
	}
}

func (r *Repo) Add(ctx context.Context, lead *Lead) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "leadsRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO leads (email, source, tags) VALUES ($1, $2, $3) RETURNING id, created_at;`,
		lead.Email, lead.Source, lead.Tags,
	).Scan(&lead.ID, &lead.CreatedAt)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrAlreadySubscribed
		}
		return err
	}

	r.notifier.NotifyChange(ctx, realtime.ChannelLeads)
	return nil
}

func (r *Repo) List(ctx context.Context, limit int) (_ []Lead, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "leadsRepo.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, COALESCE(source, '') as source, COALESCE(tags, '{}') as tags, created_at
		FROM leads
		ORDER BY created_at DESC
		LIMIT $1;`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ID, &l.Email, &l.Source, &l.Tags, &l.CreatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}

	return leads, rows.Err()
}

func (r *Repo) CountAll(ctx context.Context) (count int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "leadsRepo.countAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM leads;`).Scan(&count)
	return count, err
}
