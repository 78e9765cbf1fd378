package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/tripfund-bot/internal/database"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

const savedOfferColumns = `id::text, user_id, destination, principal, emi, annual_rate, tenure_months, created_at, reminded_at`

// SavedOfferRepository stores offers a user walked away from after pre-approval.
type SavedOfferRepository struct {
	db database.PGXDB
}

// NewSavedOfferRepository creates a new SavedOfferRepository.
func NewSavedOfferRepository(db database.PGXDB) *SavedOfferRepository {
	return &SavedOfferRepository{db: db}
}

// Save inserts offer. An empty ID is filled with a fresh UUID; saving the same ID twice is a no-op.
func (r *SavedOfferRepository) Save(ctx context.Context, offer *models.SavedOffer) error {
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO saved_offers (id, user_id, destination, principal, emi, annual_rate, tenure_months, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, offer.ID, offer.UserID, offer.Destination, offer.Principal, offer.EMI,
		offer.AnnualRatePercent, offer.TenureMonths, offer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save offer: %w", err)
	}
	return nil
}

// GetByID returns one of userID's saved offers.
func (r *SavedOfferRepository) GetByID(ctx context.Context, userID int64, id string) (*models.SavedOffer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to get saved offer: %w", ErrNotFound)
	}
	offer, err := scanSavedOffer(r.db.QueryRow(ctx, `
		SELECT `+savedOfferColumns+`
		FROM saved_offers WHERE id = $1::uuid AND user_id = $2
	`, id, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get saved offer: %w", notFound(err))
	}
	return offer, nil
}

// ListByUser returns userID's saved offers, newest first.
func (r *SavedOfferRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.SavedOffer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+savedOfferColumns+`
		FROM saved_offers WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved offers: %w", err)
	}
	return collectSavedOffers(rows)
}

// PendingReminders returns offers saved at or before cutoff that were never reminded, oldest first.
func (r *SavedOfferRepository) PendingReminders(ctx context.Context, cutoff time.Time, limit int) ([]models.SavedOffer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+savedOfferColumns+`
		FROM saved_offers WHERE reminded_at IS NULL AND created_at <= $1
		ORDER BY created_at, id
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reminders: %w", err)
	}
	return collectSavedOffers(rows)
}

// MarkReminded records that the reminder for id was sent. It reports false if it was already marked.
func (r *SavedOfferRepository) MarkReminded(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE saved_offers SET reminded_at = $2
		WHERE id = $1::uuid AND reminded_at IS NULL
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark offer reminded: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes one of userID's saved offers.
func (r *SavedOfferRepository) Delete(ctx context.Context, userID int64, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM saved_offers WHERE id = $1::uuid AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete saved offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete saved offer: %w", ErrNotFound)
	}
	return nil
}

func scanSavedOffer(row pgx.Row) (*models.SavedOffer, error) {
	var o models.SavedOffer
	err := row.Scan(&o.ID, &o.UserID, &o.Destination, &o.Principal, &o.EMI,
		&o.AnnualRatePercent, &o.TenureMonths, &o.CreatedAt, &o.RemindedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collectSavedOffers(rows pgx.Rows) ([]models.SavedOffer, error) {
	defer rows.Close()

	var offers []models.SavedOffer
	for rows.Next() {
		o, err := scanSavedOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved offer: %w", err)
		}
		offers = append(offers, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved offers: %w", err)
	}
	return offers, nil
}
