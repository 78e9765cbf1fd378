package events

import (
	"context"

	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// LogPublisher records events in the application log only. It is used when NATS_URL is unset.
type LogPublisher struct{}

// PublishCompleted logs a completion with the account number masked.
func (LogPublisher) PublishCompleted(_ context.Context, userID int64, ev models.CompletionEvent) error {
	logger.Log.Info().
		Str("user_id", logger.HashUserID(userID)).
		Str("journey_id", ev.JourneyID).
		Str("account", logger.MaskAccountNumber(ev.AccountNumber)).
		Str("principal", ev.Principal.String()).
		Int("tenure_months", ev.TenureMonths).
		Msg("Loan disbursed")
	return nil
}

// PublishDismissed logs a saved offer.
func (LogPublisher) PublishDismissed(_ context.Context, userID int64, offer models.SavedOffer) error {
	logger.Log.Info().
		Str("user_id", logger.HashUserID(userID)).
		Str("offer_id", offer.ID).
		Str("destination", offer.Destination).
		Str("principal", offer.Principal.String()).
		Msg("Offer saved for later")
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error { return nil }
