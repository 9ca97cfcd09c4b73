package contact

import (
	"context"
	"errors"
	"time"

	"github.com/knwebagency/backend/internal/realtime"
	"github.com/knwebagency/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrMessageNotFound = errors.New("contact message not found")

var _ messagesRepo = (*Repo)(nil)

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

func (r *Repo) Add(ctx context.Context, m *Message) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "contactRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO contact_messages
			(full_name, email, company_name, project_type, estimated_budget, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at;`,
		m.FullName, m.Email, m.CompanyName, m.ProjectType, m.EstimatedBudget, m.Message,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return err
	}

	r.notifier.NotifyChange(ctx, realtime.ChannelContactMessages)
	return nil
}

func (r *Repo) List(ctx context.Context, limit int) (_ []Message, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "contactRepo.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", limit))

	rows, err := r.db.Query(
		ctx,
		`SELECT
			id, full_name, email,
			COALESCE(company_name, '') as company_name,
			COALESCE(project_type, '') as project_type,
			COALESCE(estimated_budget, '') as estimated_budget,
			message, created_at
		FROM contact_messages
		ORDER BY created_at DESC
		LIMIT $1;`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.FullName, &m.Email,
			&m.CompanyName, &m.ProjectType, &m.EstimatedBudget,
			&m.Message, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "contactRepo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("message.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM contact_messages WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	r.notifier.NotifyChange(ctx, realtime.ChannelContactMessages)
	return nil
}

func (r *Repo) CountAll(ctx context.Context) (count int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "contactRepo.countAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM contact_messages;`).Scan(&count)
	return count, err
}

func (r *Repo) CountSince(ctx context.Context, since time.Time) (count int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "contactRepo.countSince")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM contact_messages WHERE created_at >= $1;`,
		since,
	).Scan(&count)
	return count, err
}
