package settings

import (
	"context"
	"errors"

	"github.com/knwebagency/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const settingsRowID = 1

var ErrSettingsNotFound = errors.New("site settings not found")

var _ settingsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Get(ctx context.Context) (_ *Settings, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "settingsRepo.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var s Settings
	err = r.db.QueryRow(
		ctx,
		`SELECT
			starter_original_price, starter_current_price, starter_total_slots,
			pro_original_price, pro_current_price,
			stats_projects_completed, stats_satisfied_clients,
			stats_years_experience, stats_technologies_used,
			COALESCE(contact_phone, ''), COALESCE(contact_email, ''), COALESCE(contact_address, ''),
			COALESCE(social_twitter, ''), COALESCE(social_linkedin, ''), COALESCE(social_facebook, ''),
			updated_at, COALESCE(updated_by, '')
		FROM site_settings WHERE id = $1;`,
		settingsRowID,
	).Scan(
		&s.StarterOriginalPrice, &s.StarterCurrentPrice, &s.StarterTotalSlots,
		&s.ProOriginalPrice, &s.ProCurrentPrice,
		&s.StatsProjectsCompleted, &s.StatsSatisfiedClients,
		&s.StatsYearsExperience, &s.StatsTechnologiesUsed,
		&s.ContactPhone, &s.ContactEmail, &s.ContactAddress,
		&s.SocialTwitter, &s.SocialLinkedin, &s.SocialFacebook,
		&s.UpdatedAt, &s.UpdatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// Update writes the whole settings row, stamping who changed it.
func (r *Repo) Update(ctx context.Context, s *Settings, updatedBy string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "settingsRepo.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO site_settings (
			id,
			starter_original_price, starter_current_price, starter_total_slots,
			pro_original_price, pro_current_price,
			stats_projects_completed, stats_satisfied_clients,
			stats_years_experience, stats_technologies_used,
			contact_phone, contact_email, contact_address,
			social_twitter, social_linkedin, social_facebook,
			updated_at, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), $17)
		ON CONFLICT (id) DO UPDATE SET
			starter_original_price = $2, starter_current_price = $3, starter_total_slots = $4,
			pro_original_price = $5, pro_current_price = $6,
			stats_projects_completed = $7, stats_satisfied_clients = $8,
			stats_years_experience = $9, stats_technologies_used = $10,
			contact_phone = $11, contact_email = $12, contact_address = $13,
			social_twitter = $14, social_linkedin = $15, social_facebook = $16,
			updated_at = NOW(), updated_by = $17
		RETURNING updated_at;`,
		settingsRowID,
		s.StarterOriginalPrice, s.StarterCurrentPrice, s.StarterTotalSlots,
		s.ProOriginalPrice, s.ProCurrentPrice,
		s.StatsProjectsCompleted, s.StatsSatisfiedClients,
		s.StatsYearsExperience, s.StatsTechnologiesUsed,
		s.ContactPhone, s.ContactEmail, s.ContactAddress,
		s.SocialTwitter, s.SocialLinkedin, s.SocialFacebook,
		updatedBy,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return err
	}

	s.UpdatedBy = updatedBy
	return nil
}
