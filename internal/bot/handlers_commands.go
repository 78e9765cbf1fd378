package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/tripfund-bot/internal/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/repository"
)

// offersListLimit caps how many saved offers /offers shows.
const offersListLimit = 5

// extractCommandArgs extracts arguments from a command, handling @botname suffix.
// e.g., "/trip@mybot Japan" -> "Japan", "/trip Japan" -> "Japan".
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// handleTrip handles the /trip command.
func (b *Bot) handleTrip(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleTripCore(ctx, tgBot, update)
}

// handleTripCore starts a journey, optionally jumping past the destination question.
func (b *Bot) handleTripCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	b.startTrip(ctx, tg, msg.Chat.ID, senderID(msg), senderFirstName(msg), extractCommandArgs(msg.Text, "/trip"))
}

// startTrip opens a journey and submits destination when it is not empty.
func (b *Bot) startTrip(ctx context.Context, tg TelegramAPI, chatID, userID int64, firstName, destination string) {
	sess := b.startSession(ctx, chatID, userID, firstName)
	if destination != "" {
		if name, ok := b.catalog.Match(destination); ok {
			destination = name
		}
		if err := sess.journey.SubmitDestination(destination); err != nil {
			logger.Log.Debug().Err(err).Msg("Destination from command rejected")
		}
	}
	b.showCard(ctx, tg, sess, sess.journey.Snapshot(), 0)
}

// handleOffers handles the /offers command.
func (b *Bot) handleOffers(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleOffersCore(ctx, tgBot, update)
}

// handleOffersCore lists the user's saved offers with resume and delete buttons.
func (b *Bot) handleOffersCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := senderID(update.Message)

	if b.offerRepo == nil {
		sendHTML(ctx, tg, chatID, "Saved offers are not available right now.")
		return
	}

	offers, err := b.offerRepo.ListByUser(ctx, userID, offersListLimit)
	if err != nil {
		logger.Log.Error().Err(err).Str("user_hash", logger.HashUserID(userID)).Msg("Failed to list saved offers")
		sendHTML(ctx, tg, chatID, "❌ Failed to load your saved offers. Please try again.")
		return
	}
	if len(offers) == 0 {
		sendHTML(ctx, tg, chatID, "You have no saved offers. Send /trip to plan a trip.")
		return
	}

	text, kb := renderOffers(offers)
	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: kb,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send saved offers")
	}
}

func renderOffers(offers []appmodels.SavedOffer) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("💾 <b>Your saved offers</b>\n")
	rows := make([][]models.InlineKeyboardButton, 0, len(offers))
	for i, offer := range offers {
		fmt.Fprintf(&sb, "\n%d. <b>%s</b>: %s over %d months, EMI %s (saved %s)",
			i+1, escapeHTML(offer.Destination), formatINR(offer.Principal), offer.TenureMonths,
			formatINR(offer.EMI), offer.CreatedAt.Format("2 Jan"))
		rows = append(rows, []models.InlineKeyboardButton{
			button(fmt.Sprintf("▶️ Resume %d", i+1), callbackOffer+"resume:"+offer.ID),
			button(fmt.Sprintf("🗑 Delete %d", i+1), callbackOffer+"delete:"+offer.ID),
		})
	}
	return sb.String(), &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// handleOfferCallback handles saved-offer buttons.
func (b *Bot) handleOfferCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleOfferCallbackCore(ctx, tgBot, update)
}

// handleOfferCallbackCore resumes or deletes a saved offer. Resuming starts a new journey
// at the saved destination; the offer itself is re-derived from fresh costs.
func (b *Bot) handleOfferCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil || cq.Message.Message == nil {
		return
	}
	chatID := cq.Message.Message.Chat.ID
	userID := cq.From.ID

	action, id, _ := strings.Cut(strings.TrimPrefix(cq.Data, callbackOffer), ":")
	if b.offerRepo == nil || id == "" {
		answerCallback(ctx, tg, cq.ID, "This offer is no longer available.")
		return
	}

	offer, err := b.offerRepo.GetByID(ctx, userID, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Log.Error().Err(err).Str("offer_id", id).Msg("Failed to load saved offer")
		}
		answerCallback(ctx, tg, cq.ID, "This offer is no longer available.")
		return
	}

	switch action {
	case "resume":
		answerCallback(ctx, tg, cq.ID, "Resuming "+offer.Destination)
		b.startTrip(ctx, tg, chatID, userID, cq.From.FirstName, offer.Destination)
		if err := b.offerRepo.Delete(ctx, userID, offer.ID); err != nil {
			logger.Log.Warn().Err(err).Str("offer_id", offer.ID).Msg("Failed to delete resumed offer")
		}
	case "delete":
		if err := b.offerRepo.Delete(ctx, userID, offer.ID); err != nil {
			logger.Log.Error().Err(err).Str("offer_id", offer.ID).Msg("Failed to delete saved offer")
			answerCallback(ctx, tg, cq.ID, "Failed to delete. Please try again.")
			return
		}
		answerCallback(ctx, tg, cq.ID, "Offer deleted")
		_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: cq.Message.Message.ID,
			Text:      fmt.Sprintf("🗑 Deleted your saved offer for %s.", escapeHTML(offer.Destination)),
			ParseMode: models.ParseModeHTML,
		})
	default:
		answerCallback(ctx, tg, cq.ID, "")
	}
}

// handleSchedule handles the /schedule command.
func (b *Bot) handleSchedule(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleScheduleCore(ctx, tgBot, update)
}

// handleScheduleCore sends the repayment schedule of the user's latest loan as CSV and iCalendar.
func (b *Bot) handleScheduleCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := senderID(update.Message)

	if number := extractCommandArgs(update.Message.Text, "/schedule"); number != "" {
		acct, ok := b.loanByNumber(ctx, userID, strings.ToUpper(number))
		if !ok {
			sendHTML(ctx, tg, chatID, "I couldn't find a loan with that account number.")
			return
		}
		b.sendSchedule(ctx, tg, chatID, acct, exportCSV)
		b.sendSchedule(ctx, tg, chatID, acct, exportICS)
		return
	}

	acct, ok := b.latestLoan(ctx, chatID, userID)
	if !ok {
		sendHTML(ctx, tg, chatID, "You have no disbursed loans yet. Send /trip to plan a trip.")
		return
	}
	b.sendSchedule(ctx, tg, chatID, acct, exportCSV)
	b.sendSchedule(ctx, tg, chatID, acct, exportICS)
}

// loanByNumber returns the caller's own loan with the given account number.
func (b *Bot) loanByNumber(ctx context.Context, userID int64, number string) (*appmodels.LoanAccount, bool) {
	if b.acctRepo == nil {
		return nil, false
	}
	acct, err := b.acctRepo.GetByAccountNumber(ctx, number)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Log.Error().Err(err).Str("account", logger.MaskAccountNumber(number)).Msg("Failed to load loan")
		}
		return nil, false
	}
	if acct.UserID != userID {
		return nil, false
	}
	return acct, true
}

// latestLoan prefers the stored account and falls back to a journey disbursed in this chat.
func (b *Bot) latestLoan(ctx context.Context, chatID, userID int64) (*appmodels.LoanAccount, bool) {
	if b.acctRepo != nil {
		acct, err := b.acctRepo.LatestByUser(ctx, userID)
		if err == nil {
			return acct, true
		}
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Log.Error().Err(err).Str("user_hash", logger.HashUserID(userID)).Msg("Failed to load latest loan")
		}
	}

	sess := b.lastSession(chatID)
	if sess == nil {
		return nil, false
	}
	ev := sess.completion()
	if ev == nil {
		return nil, false
	}
	return &appmodels.LoanAccount{
		UserID:            userID,
		AccountNumber:     ev.AccountNumber,
		JourneyID:         ev.JourneyID,
		Destination:       ev.Destination,
		Principal:         ev.Principal,
		TenureMonths:      ev.TenureMonths,
		EMI:               ev.EMI,
		AnnualRatePercent: ev.AnnualRatePercent,
		DisbursedAt:       ev.DisbursedAt,
	}, true
}

func answerCallback(ctx context.Context, tg TelegramAPI, callbackID, text string) {
	_, err := tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		logger.Log.Debug().Err(err).Msg("Failed to answer callback query")
	}
}
