package mocks

import (
	"github.com/go-telegram/bot/models"
)

// UpdateBuilder constructs Telegram updates for handler tests.
type UpdateBuilder struct {
	update *models.Update
}

// NewUpdateBuilder creates a new UpdateBuilder.
func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{update: &models.Update{}}
}

func testUser(userID int64) models.User {
	return models.User{
		ID:        userID,
		FirstName: "Asha",
		LastName:  "Rao",
		Username:  "asha",
	}
}

// WithMessage sets a private-chat text message on the update.
func (b *UpdateBuilder) WithMessage(chatID, userID int64, text string) *UpdateBuilder {
	from := testUser(userID)
	b.update.Message = &models.Message{
		ID:   1,
		Chat: models.Chat{ID: chatID, Type: "private"},
		From: &from,
		Text: text,
	}
	return b
}

// WithFrom overrides the sender of the message or callback.
func (b *UpdateBuilder) WithFrom(userID int64, username, firstName string) *UpdateBuilder {
	user := models.User{ID: userID, Username: username, FirstName: firstName}
	if b.update.Message != nil {
		b.update.Message.From = &user
	}
	if b.update.CallbackQuery != nil {
		b.update.CallbackQuery.From = user
	}
	return b
}

// WithCallbackQuery sets an inline-button press on the update.
func (b *UpdateBuilder) WithCallbackQuery(callbackID string, chatID, userID int64, messageID int, data string) *UpdateBuilder {
	b.update.CallbackQuery = &models.CallbackQuery{
		ID:   callbackID,
		From: testUser(userID),
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{
				ID:   messageID,
				Chat: models.Chat{ID: chatID, Type: "private"},
			},
		},
		Data: data,
	}
	return b
}

// WithPhoto attaches a photo in two sizes; the larger one is last.
func (b *UpdateBuilder) WithPhoto(fileID string) *UpdateBuilder {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	b.update.Message.Photo = []models.PhotoSize{
		{FileID: fileID + "_small", Width: 320, Height: 240},
		{FileID: fileID, Width: 1280, Height: 960},
	}
	return b
}

// WithDocument attaches a document.
func (b *UpdateBuilder) WithDocument(fileID, fileName, mimeType string) *UpdateBuilder {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	b.update.Message.Document = &models.Document{
		FileID:   fileID,
		FileName: fileName,
		MimeType: mimeType,
	}
	return b
}

// WithVoice attaches a voice note.
func (b *UpdateBuilder) WithVoice(fileID string, duration int) *UpdateBuilder {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	b.update.Message.Voice = &models.Voice{
		FileID:   fileID,
		Duration: duration,
		MimeType: "audio/ogg",
	}
	return b
}

// Build returns the constructed Update.
func (b *UpdateBuilder) Build() *models.Update {
	return b.update
}

// MessageUpdate creates a text message update.
func MessageUpdate(chatID, userID int64, text string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, text).Build()
}

// CallbackQueryUpdate creates a button press update.
func CallbackQueryUpdate(chatID, userID int64, messageID int, data string) *models.Update {
	return NewUpdateBuilder().
		WithCallbackQuery("callback-query-id", chatID, userID, messageID, data).
		Build()
}

// VoiceUpdate creates a voice message update.
func VoiceUpdate(chatID, userID int64, fileID string, duration int) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, "").WithVoice(fileID, duration).Build()
}

// DocumentUpdate creates a document upload update.
func DocumentUpdate(chatID, userID int64, fileID, fileName, mimeType string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, "").WithDocument(fileID, fileName, mimeType).Build()
}

// PhotoUpdate creates a photo upload update.
func PhotoUpdate(chatID, userID int64, fileID string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, "").WithPhoto(fileID).Build()
}
