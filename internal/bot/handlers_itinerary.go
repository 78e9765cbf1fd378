package bot

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/gemini"
	"gitlab.com/yelinaung/tripfund-bot/internal/journey"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
)

// handleItineraryCore reads a trip from an uploaded document or photo and fills in intake.
func (b *Bot) handleItineraryCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	var fileID, mimeType string
	switch {
	case msg.Document != nil:
		fileID, mimeType = msg.Document.FileID, strings.ToLower(msg.Document.MimeType)
	case len(msg.Photo) > 0:
		fileID, mimeType = msg.Photo[len(msg.Photo)-1].FileID, "image/jpeg"
	default:
		return
	}

	logger.Log.Info().
		Str("chat_hash", logger.HashChatID(chatID)).
		Str("mime", mimeType).
		Msg("Received itinerary upload")

	if b.assistant == nil {
		sendHTML(ctx, tg, chatID, "📎 Itinerary upload is not configured. Send /trip and answer a few questions instead.")
		return
	}
	if !slices.Contains(gemini.SupportedItineraryTypes, mimeType) {
		sendHTML(ctx, tg, chatID, "📎 I can read PDF, text and image itineraries. Please send one of those.")
		return
	}

	sess := b.activeSession(chatID)
	if sess != nil {
		snap := sess.journey.Snapshot()
		if snap.Phase != journey.PhaseIntake || snap.IntakeStep != journey.StepDestination {
			sendHTML(ctx, tg, chatID, "📎 Your current trip is past the planning step. Send /cancel first to start over with this itinerary.")
			return
		}
	}

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "📎 Reading your itinerary...",
	})

	data, err := b.downloadFile(ctx, tg, fileID)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to download itinerary")
		sendHTML(ctx, tg, chatID, "❌ Failed to download your file. Please try again.")
		return
	}

	itinerary, err := b.assistant.ParseItinerary(ctx, data, mimeType)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to parse itinerary")
		sendItineraryError(ctx, tg, chatID, err)
		return
	}

	logger.Log.Info().
		Str("chat_hash", logger.HashChatID(chatID)).
		Str("destination", logger.SanitizeText(itinerary.Destination)).
		Int("travelers", itinerary.Travelers).
		Int("days", itinerary.Days).
		Str("notes", logger.SanitizeNotes(itinerary.Notes)).
		Float64("confidence", itinerary.Confidence).
		Msg("Itinerary parsed")

	if sess == nil {
		sess = b.startSession(ctx, chatID, senderID(msg), senderFirstName(msg))
	}

	spec := itinerary.Spec()
	if name, ok := b.catalog.Match(spec.Destination); ok {
		spec.Destination = name
	}
	if err := sess.journey.SubmitItinerary(spec); err != nil {
		logger.Log.Debug().Err(err).Msg("Itinerary rejected by journey")
		sendHTML(ctx, tg, chatID, "🤔 I couldn't find a destination in that file. Pick one below instead.")
	}
	b.showCard(ctx, tg, sess, sess.journey.Snapshot(), 0)
}

func sendItineraryError(ctx context.Context, tg TelegramAPI, chatID int64, err error) {
	text := "❌ Failed to read your itinerary. Please try again or send /trip."
	if errors.Is(err, gemini.ErrItineraryTimeout) {
		text = "⏱️ Reading your itinerary timed out. Please try again or send /trip."
	}
	if errors.Is(err, gemini.ErrNoItinerary) {
		text = "🤔 I couldn't find trip details in that file. Send /trip to enter them instead."
	}
	sendHTML(ctx, tg, chatID, text)
}
