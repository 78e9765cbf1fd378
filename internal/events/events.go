// Package events publishes journey outcomes to downstream systems.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// Event kinds, also used as subject suffixes.
const (
	KindCompleted = "completed"
	KindDismissed = "dismissed"
)

// Publisher announces completed disbursements and dismissed offers.
type Publisher interface {
	PublishCompleted(ctx context.Context, userID int64, ev models.CompletionEvent) error
	PublishDismissed(ctx context.Context, userID int64, offer models.SavedOffer) error
	Close() error
}

// CompletedPayload is the wire form of a completion event. Money is a decimal string.
type CompletedPayload struct {
	Kind              string    `json:"kind"`
	UserID            int64     `json:"user_id"`
	JourneyID         string    `json:"journey_id"`
	AccountNumber     string    `json:"account_number"`
	Destination       string    `json:"destination"`
	Principal         string    `json:"principal"`
	TenureMonths      int       `json:"tenure_months"`
	EMI               string    `json:"emi"`
	AnnualRatePercent string    `json:"annual_rate_percent"`
	Currency          string    `json:"currency"`
	DisbursedAt       time.Time `json:"disbursed_at"`
}

// DismissedPayload is the wire form of a saved offer.
type DismissedPayload struct {
	Kind              string    `json:"kind"`
	UserID            int64     `json:"user_id"`
	OfferID           string    `json:"offer_id"`
	Destination       string    `json:"destination"`
	Principal         string    `json:"principal"`
	TenureMonths      int       `json:"tenure_months"`
	EMI               string    `json:"emi"`
	AnnualRatePercent string    `json:"annual_rate_percent"`
	Currency          string    `json:"currency"`
	SavedAt           time.Time `json:"saved_at"`
}

func completedPayload(userID int64, ev models.CompletionEvent) CompletedPayload {
	return CompletedPayload{
		Kind:              KindCompleted,
		UserID:            userID,
		JourneyID:         ev.JourneyID,
		AccountNumber:     ev.AccountNumber,
		Destination:       ev.Destination,
		Principal:         ev.Principal.String(),
		TenureMonths:      ev.TenureMonths,
		EMI:               ev.EMI.String(),
		AnnualRatePercent: ev.AnnualRatePercent.String(),
		Currency:          models.DefaultCurrency,
		DisbursedAt:       ev.DisbursedAt.UTC(),
	}
}

func dismissedPayload(userID int64, offer models.SavedOffer) DismissedPayload {
	return DismissedPayload{
		Kind:              KindDismissed,
		UserID:            userID,
		OfferID:           offer.ID,
		Destination:       offer.Destination,
		Principal:         offer.Principal.String(),
		TenureMonths:      offer.TenureMonths,
		EMI:               offer.EMI.String(),
		AnnualRatePercent: offer.AnnualRatePercent.String(),
		Currency:          models.DefaultCurrency,
		SavedAt:           offer.CreatedAt.UTC(),
	}
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return data, nil
}
