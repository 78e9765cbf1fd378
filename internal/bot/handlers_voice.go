package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/gemini"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
)

// handleVoiceCore transcribes a voice note and applies it like typed text.
func (b *Bot) handleVoiceCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.Voice == nil {
		return
	}

	msg := update.Message
	chatID := msg.Chat.ID

	logger.Log.Info().
		Str("chat_hash", logger.HashChatID(chatID)).
		Int("duration", msg.Voice.Duration).
		Msg("Received voice message")

	if b.assistant == nil {
		sendHTML(ctx, tg, chatID, "🎙️ Voice input is not configured. Please type your reply instead.")
		return
	}

	_, _ = tg.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	audioBytes, err := b.downloadFile(ctx, tg, msg.Voice.FileID)
	if err != nil {
		logger.Log.Error().Err(err).
			Str("chat_hash", logger.HashChatID(chatID)).
			Msg("Failed to download voice file")
		sendHTML(ctx, tg, chatID, "❌ Failed to download voice message. Please try again.")
		return
	}

	mimeType := msg.Voice.MimeType
	if mimeType == "" {
		mimeType = "audio/ogg"
	}

	transcript, err := b.assistant.TranscribeVoice(ctx, audioBytes, mimeType)
	if err != nil {
		logger.Log.Error().Err(err).
			Str("chat_hash", logger.HashChatID(chatID)).
			Msg("Failed to transcribe voice message")
		sendVoiceError(ctx, tg, chatID, err)
		return
	}

	logger.Log.Info().
		Str("chat_hash", logger.HashChatID(chatID)).
		Str("text", logger.SanitizeText(transcript.Text)).
		Str("language", transcript.Language).
		Float64("confidence", transcript.Confidence).
		Msg("Voice message transcribed")

	sendHTML(ctx, tg, chatID, fmt.Sprintf("🎙️ I heard: <i>%s</i>", escapeHTML(transcript.Text)))
	b.handleFreeText(ctx, tg, msg, transcript.Text)
}

func sendVoiceError(ctx context.Context, tg TelegramAPI, chatID int64, err error) {
	text := "❌ Failed to process voice message. Please try again or type your reply."
	if errors.Is(err, gemini.ErrVoiceTimeout) {
		text = "⏱️ Voice processing timed out. Please try again or type your reply."
	}
	if errors.Is(err, gemini.ErrNoSpeech) {
		text = "🤔 I couldn't make out any words. Please try again or type your reply."
	}
	sendHTML(ctx, tg, chatID, text)
}
