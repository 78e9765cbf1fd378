package bot

import (
	"context"
	"fmt"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
)

const (
	// ReminderCheckInterval is how often the reminder loop looks for saved offers to nudge.
	ReminderCheckInterval = 30 * time.Minute
	// ReminderTimeout is the maximum time a single reminder check can take.
	ReminderTimeout = 2 * time.Minute
	// reminderBatchSize caps the offers reminded per check.
	reminderBatchSize = 50
)

// startOfferReminderLoop periodically reminds users about offers they saved and
// did not resume. Each offer is reminded at most once.
func (b *Bot) startOfferReminderLoop(ctx context.Context) {
	if !b.cfg.OfferReminderEnabled || b.offerRepo == nil {
		logger.Log.Info().Msg("Offer reminder is disabled")
		return
	}

	logger.Log.Info().
		Dur("after", b.cfg.OfferReminderAfter).
		Msg("Offer reminder loop started")

	ticker := time.NewTicker(ReminderCheckInterval)
	defer ticker.Stop()

	select {
	case <-ctx.Done():
		logger.Log.Info().Msg("Offer reminder loop stopped")
		return
	default:
	}

	b.sendOfferReminders(ctx, b.now())

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("Offer reminder loop stopped")
			return
		case <-ticker.C:
			b.sendOfferReminders(ctx, b.now())
		}
	}
}

// sendOfferReminders nudges every offer saved before now minus OfferReminderAfter.
// An offer is marked before sending so two instances never remind it twice.
func (b *Bot) sendOfferReminders(ctx context.Context, now time.Time) {
	checkCtx, cancel := context.WithTimeout(ctx, ReminderTimeout)
	defer cancel()

	offers, err := b.offerRepo.PendingReminders(checkCtx, now.Add(-b.cfg.OfferReminderAfter), reminderBatchSize)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch offers for reminder")
		return
	}

	for _, offer := range offers {
		claimed, err := b.offerRepo.MarkReminded(checkCtx, offer.ID, now)
		if err != nil {
			logger.Log.Warn().Err(err).Str("offer_id", offer.ID).Msg("Failed to mark offer reminded")
			continue
		}
		if !claimed {
			continue
		}

		text := fmt.Sprintf(
			"✈️ %sStill dreaming of <b>%s</b>?\n\nYour saved offer of %s over %d months (EMI %s) is waiting.",
			b.reminderGreeting(checkCtx, offer.UserID), escapeHTML(offer.Destination), formatINR(offer.Principal), offer.TenureMonths, formatINR(offer.EMI),
		)
		_, err = b.messageSender.SendMessage(checkCtx, &tgbot.SendMessageParams{
			ChatID:    offer.UserID,
			Text:      text,
			ParseMode: tgmodels.ParseModeHTML,
			ReplyMarkup: &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
				button("▶️ Resume", callbackOffer+"resume:"+offer.ID),
				button("🗑 Not interested", callbackOffer+"delete:"+offer.ID),
			}}},
		})
		if err != nil {
			logger.Log.Warn().Err(err).Str("user_hash", logger.HashUserID(offer.UserID)).Msg("Failed to send offer reminder")
			continue
		}

		logger.Log.Debug().Str("user_hash", logger.HashUserID(offer.UserID)).Msg("Sent offer reminder")
	}
}

// reminderGreeting addresses the traveler by first name when the bot has seen one.
func (b *Bot) reminderGreeting(ctx context.Context, userID int64) string {
	if b.userRepo == nil {
		return ""
	}
	user, err := b.userRepo.GetUserByID(ctx, userID)
	if err != nil || user.FirstName == "" {
		return ""
	}
	return "Hi " + escapeHTML(user.FirstName) + "! "
}
