package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/journey"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
)

const helpText = `📚 <b>Available Commands</b>

<b>Trip financing:</b>
• <code>/trip [destination]</code> - Plan a trip and see a loan offer
• <code>/status</code> - Show where your current trip stands
• <code>/cancel</code> - Stop the current trip (offers are saved)

<b>Saved offers and loans:</b>
• <code>/offers</code> - Resume an offer you saved earlier
• <code>/schedule [account]</code> - Repayment schedule for your latest loan, or the one given

<b>Shortcuts:</b>
• Just say where you want to go, e.g. <i>thinking of Japan in spring</i>
• Send a voice note instead of typing
• Upload an itinerary (PDF or photo) to skip the questions

<b>Other:</b>
• <code>/help</code> - Show this help message`

func senderFirstName(msg *models.Message) string {
	if msg.From == nil {
		return ""
	}
	return msg.From.FirstName
}

func senderID(msg *models.Message) int64 {
	if msg.From == nil {
		return msg.Chat.ID
	}
	return msg.From.ID
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore greets the user and opens a journey at the destination step.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	sendHTML(ctx, tg, msg.Chat.ID, `✈️ <b>Welcome to TripFund!</b>

I'll estimate what your trip costs, show how much your savings cover, and offer a pre-approved travel loan for the rest.

Use /help to see everything I can do.`)

	sess := b.startSession(ctx, msg.Chat.ID, senderID(msg), senderFirstName(msg))
	b.showCard(ctx, tg, sess, sess.journey.Snapshot(), 0)
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	text := helpText
	if names := b.catalog.Names(); len(names) > 0 {
		text += "\n\n<b>Destinations I know:</b>\n" + escapeHTML(strings.Join(names, ", "))
	}
	sendHTML(ctx, tg, update.Message.Chat.ID, text)
}

// handleStatus handles the /status command.
func (b *Bot) handleStatus(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStatusCore(ctx, tgBot, update)
}

// handleStatusCore re-sends the journey card so it is at the bottom of the chat.
func (b *Bot) handleStatusCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sess := b.lastSession(chatID)
	if sess == nil {
		sendHTML(ctx, tg, chatID, "No trip in progress. Send /trip to start one.")
		return
	}

	snap := sess.journey.Snapshot()
	phase := fmt.Sprintf("📍 Step %d of %d: <b>%s</b>", snap.Phase.Index()+1, len(journey.AllPhases()), phaseLabel(snap.Phase))
	if snap.Dismissed {
		phase = "📍 Cancelled"
	}
	sendHTML(ctx, tg, chatID, phase)
	b.showCard(ctx, tg, sess, snap, 0)
}

func phaseLabel(p journey.Phase) string {
	switch p {
	case journey.PhaseIntake:
		return "Trip details"
	case journey.PhaseGapAnalysis:
		return "Cost and savings"
	case journey.PhasePreApproved:
		return "Pre-approved offer"
	case journey.PhaseCustomization:
		return "Customize loan"
	case journey.PhaseCompliance:
		return "Sign and authorize"
	case journey.PhaseDisbursement:
		return "Disbursed"
	}
	return string(p)
}

// handleCancel handles the /cancel command.
func (b *Bot) handleCancel(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCancelCore(ctx, tgBot, update)
}

func (b *Bot) handleCancelCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sess := b.activeSession(chatID)
	if sess == nil {
		sendHTML(ctx, tg, chatID, "Nothing to cancel. Send /trip to plan a trip.")
		return
	}
	if _, err := sess.journey.Dismiss(); err != nil {
		if !errors.Is(err, journey.ErrClosed) {
			logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to dismiss journey")
		}
		sendHTML(ctx, tg, chatID, "Nothing to cancel. Send /trip to plan a trip.")
		return
	}
	b.showCard(ctx, tg, sess, sess.journey.Snapshot(), 0)
}
