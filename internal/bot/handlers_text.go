package bot

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"
	"gitlab.com/yelinaung/tripfund-bot/internal/catalog"
	"gitlab.com/yelinaung/tripfund-bot/internal/journey"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
)

// minIntentConfidence is the Gemini confidence needed to open a journey from chat.
const minIntentConfidence = 0.6

var travelWords = []string{
	"trip", "travel", "travelling", "traveling", "vacation", "holiday", "holidays",
	"getaway", "honeymoon", "flight", "flights", "visit", "tour", "abroad",
}

// defaultHandler handles messages no command matched: free text, voice notes and uploads.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	switch {
	case msg.Voice != nil:
		b.handleVoiceCore(ctx, tg, update)
		return
	case msg.Document != nil || len(msg.Photo) > 0:
		b.handleItineraryCore(ctx, tg, update)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	logger.Log.Debug().
		Str("chat_hash", logger.HashChatID(msg.Chat.ID)).
		Str("text", logger.SanitizeText(text)).
		Msg("Default handler triggered")

	b.handleFreeText(ctx, tg, msg, text)
}

// handleFreeText routes typed or transcribed text: to the open journey first, otherwise
// to travel-intent detection.
func (b *Bot) handleFreeText(ctx context.Context, tg TelegramAPI, msg *models.Message, text string) {
	chatID := msg.Chat.ID

	if sess := b.activeSession(chatID); sess != nil {
		if sess.bridge.HandleCommand(text) {
			b.showCard(ctx, tg, sess, sess.journey.Snapshot(), 0)
			return
		}
		snap := sess.journey.Snapshot()
		if snap.Phase == journey.PhaseIntake && snap.IntakeStep == journey.StepCities && len(text) > 3 {
			if err := sess.journey.SetNotes(text); err == nil {
				sendHTML(ctx, tg, chatID, "📝 Noted. Tap <b>Analyze my trip</b> when you're ready.")
				b.showCard(ctx, tg, sess, sess.journey.Snapshot(), 0)
				return
			}
		}
		sendHTML(ctx, tg, chatID, stepHint(snap))
		return
	}

	destination, ok := detectTravelIntent(b.catalog, text)
	if !ok {
		destination, ok = b.classifyIntent(ctx, text)
	}
	if ok {
		if destination != "" {
			b.startTrip(ctx, tg, chatID, senderID(msg), senderFirstName(msg), destination)
			return
		}
		// "trip to <somewhere new>" still names a destination the catalog lacks.
		sess := b.startSession(ctx, chatID, senderID(msg), senderFirstName(msg))
		sess.bridge.HandleCommand(text)
		b.showCard(ctx, tg, sess, sess.journey.Snapshot(), 0)
		return
	}

	sendHTML(ctx, tg, chatID,
		"I didn't understand that. Tell me where you'd like to travel, e.g. <i>planning a trip to Bali</i>, or use /help.")
}

// classifyIntent asks the assistant whether text is about planning a trip.
func (b *Bot) classifyIntent(ctx context.Context, text string) (string, bool) {
	if b.assistant == nil {
		return "", false
	}
	intent, err := b.assistant.ClassifyIntent(ctx, text)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to classify intent")
		return "", false
	}
	if !intent.Travel || intent.Confidence < minIntentConfidence {
		return "", false
	}
	destination := strings.TrimSpace(intent.Destination)
	if name, ok := b.catalog.Match(destination); ok {
		destination = name
	}
	return destination, true
}

// detectTravelIntent reports whether text mentions a catalog destination or a travel word.
// The destination is empty when only a travel word was found.
func detectTravelIntent(cat *catalog.Catalog, text string) (string, bool) {
	if name, ok := cat.Match(text); ok {
		return name, true
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	return "", lo.Some(words, travelWords)
}

// stepHint tells the user what the journey is waiting for.
func stepHint(snap journey.Snapshot) string {
	if snap.Pending {
		return "⏳ One moment, still working on it."
	}
	switch snap.Phase {
	case journey.PhaseIntake:
		switch snap.IntakeStep {
		case journey.StepDestination:
			return "Where would you like to go? Pick a button or type e.g. <i>trip to Japan</i>."
		case journey.StepTravelers:
			return "How many travelers and days? e.g. <i>2 people, 7 days</i>."
		case journey.StepCities:
			return "Name the places you'd like to see, or tap them on the card."
		}
	case journey.PhaseGapAnalysis:
		return "Say <i>continue</i> to see your loan offer, or <i>not now</i> to stop."
	case journey.PhasePreApproved:
		return "Say <i>I consent</i> to run the credit check."
	case journey.PhaseCustomization:
		return "Type an amount or tenure, e.g. <i>1 lakh for 36 months</i>, or say <i>accept</i>."
	case journey.PhaseCompliance:
		return "Use the buttons on the card to continue, or say <i>yes</i>."
	}
	return "Use /help to see what I can do."
}
