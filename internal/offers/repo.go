package offers

import (
	"context"
	"errors"
	"time"

	"github.com/knwebagency/backend/internal/realtime"
	"github.com/knwebagency/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The starter offer has a single row with a fixed id.
const starterSlotsRowID = 1

const defaultTotalSlots = 10

var ErrNoSlotsLeft = errors.New("no starter offer slots left")

type StarterSlots struct {
	TotalSlots     int       `json:"total_slots"`
	RemainingSlots int       `json:"remaining_slots"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var _ slotsRepo = (*Repo)(nil)

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

// Get returns the starter slots row, falling back to defaults when it was
// never written yet.
func (r *Repo) Get(ctx context.Context) (_ *StarterSlots, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "offersRepo.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var slots StarterSlots
	err = r.db.QueryRow(
		ctx,
		`SELECT total_slots, remaining_slots, updated_at FROM starter_offer_slots WHERE id = $1;`,
		starterSlotsRowID,
	).Scan(&slots.TotalSlots, &slots.RemainingSlots, &slots.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &StarterSlots{
			TotalSlots:     defaultTotalSlots,
			RemainingSlots: defaultTotalSlots,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &slots, nil
}

// Decrement takes one slot, seeding the row with the defaults when it was
// never written yet. The guard in the WHERE clause keeps the counter from
// going below zero under concurrent decrements.
func (r *Repo) Decrement(ctx context.Context) (_ *StarterSlots, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "offersRepo.decrement")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var slots StarterSlots
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO starter_offer_slots (id, total_slots, remaining_slots, updated_at)
		VALUES ($1, $2, $2 - 1, NOW())
		ON CONFLICT (id) DO UPDATE
			SET remaining_slots = starter_offer_slots.remaining_slots - 1, updated_at = NOW()
			WHERE starter_offer_slots.remaining_slots > 0
		RETURNING total_slots, remaining_slots, updated_at;`,
		starterSlotsRowID, defaultTotalSlots,
	).Scan(&slots.TotalSlots, &slots.RemainingSlots, &slots.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSlotsLeft
	}
	if err != nil {
		return nil, err
	}

	r.notifier.NotifyChange(ctx, realtime.ChannelStarterSlots)
	return &slots, nil
}

// Reset restores remaining slots to the given total, creating the row if needed.
func (r *Repo) Reset(ctx context.Context, totalSlots int) (_ *StarterSlots, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "offersRepo.reset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var slots StarterSlots
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO starter_offer_slots (id, total_slots, remaining_slots, updated_at)
		VALUES ($1, $2, $2, NOW())
		ON CONFLICT (id) DO UPDATE
			SET total_slots = $2, remaining_slots = $2, updated_at = NOW()
		RETURNING total_slots, remaining_slots, updated_at;`,
		starterSlotsRowID, totalSlots,
	).Scan(&slots.TotalSlots, &slots.RemainingSlots, &slots.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.notifier.NotifyChange(ctx, realtime.ChannelStarterSlots)
	return &slots, nil
}
