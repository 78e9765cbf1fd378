// Package mocks provides a recording Telegram client and update fixtures for bot tests.
package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramAPI is the subset of the Telegram client the bot calls.
// It lives here so bot and mocks do not import each other.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
}

// SentMessage captures a message sent via MockBot.
type SentMessage struct {
	ChatID      any
	Text        string
	ParseMode   models.ParseMode
	ReplyMarkup models.ReplyMarkup
}

// EditedMessage captures an edited message via MockBot.
type EditedMessage struct {
	ChatID      any
	MessageID   int
	Text        string
	ParseMode   models.ParseMode
	ReplyMarkup models.ReplyMarkup
}

// AnsweredCallback captures a callback query answer via MockBot.
type AnsweredCallback struct {
	CallbackQueryID string
	Text            string
	ShowAlert       bool
}

// SentUpload captures a document or photo sent via MockBot.
type SentUpload struct {
	ChatID   any
	Filename string
	Data     []byte
	Caption  string
}

var _ TelegramAPI = (*MockBot)(nil)

// MockBot records Telegram calls for assertions. It is safe for concurrent use.
type MockBot struct {
	mu sync.RWMutex

	SentMessages      []SentMessage
	EditedMessages    []EditedMessage
	AnsweredCallbacks []AnsweredCallback
	SentDocuments     []SentUpload
	SentPhotos        []SentUpload
	ChatActions       []models.ChatAction

	SendMessageError  error
	EditMessageError  error
	GetFileError      error
	SendDocumentError error
	SendPhotoError    error

	// FileToReturn is returned by GetFile.
	FileToReturn *models.File
	// FileDownloadLinkToReturn is returned by FileDownloadLink.
	FileDownloadLinkToReturn string

	// NextMessageID is auto-incremented for each sent message.
	NextMessageID int

	lastText   string
	lastMarkup models.ReplyMarkup
}

// NewMockBot creates a new MockBot instance.
func NewMockBot() *MockBot {
	return &MockBot{NextMessageID: 1000}
}

func (m *MockBot) nextIDLocked() int {
	id := m.NextMessageID
	m.NextMessageID++
	return id
}

// SendMessage records a message.
func (m *MockBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendMessageError != nil {
		return nil, m.SendMessageError
	}
	m.SentMessages = append(m.SentMessages, SentMessage{
		ChatID:      params.ChatID,
		Text:        params.Text,
		ParseMode:   params.ParseMode,
		ReplyMarkup: params.ReplyMarkup,
	})
	m.lastText = params.Text
	m.lastMarkup = params.ReplyMarkup
	return &models.Message{
		ID:   m.nextIDLocked(),
		Chat: models.Chat{ID: chatIDToInt64(params.ChatID)},
		Text: params.Text,
	}, nil
}

// EditMessageText records an edit.
func (m *MockBot) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EditMessageError != nil {
		return nil, m.EditMessageError
	}
	m.EditedMessages = append(m.EditedMessages, EditedMessage{
		ChatID:      params.ChatID,
		MessageID:   params.MessageID,
		Text:        params.Text,
		ParseMode:   params.ParseMode,
		ReplyMarkup: params.ReplyMarkup,
	})
	m.lastText = params.Text
	m.lastMarkup = params.ReplyMarkup
	return &models.Message{
		ID:   params.MessageID,
		Chat: models.Chat{ID: chatIDToInt64(params.ChatID)},
		Text: params.Text,
	}, nil
}

// AnswerCallbackQuery records a callback answer.
func (m *MockBot) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AnsweredCallbacks = append(m.AnsweredCallbacks, AnsweredCallback{
		CallbackQueryID: params.CallbackQueryID,
		Text:            params.Text,
		ShowAlert:       params.ShowAlert,
	})
	return true, nil
}

// SendChatAction records a chat action such as "typing".
func (m *MockBot) SendChatAction(_ context.Context, params *bot.SendChatActionParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatActions = append(m.ChatActions, params.Action)
	return true, nil
}

// GetFile returns FileToReturn or a placeholder file.
func (m *MockBot) GetFile(_ context.Context, params *bot.GetFileParams) (*models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetFileError != nil {
		return nil, m.GetFileError
	}
	if m.FileToReturn != nil {
		return m.FileToReturn, nil
	}
	return &models.File{FileID: params.FileID, FilePath: "documents/" + params.FileID}, nil
}

// FileDownloadLink returns FileDownloadLinkToReturn or a placeholder URL.
func (m *MockBot) FileDownloadLink(f *models.File) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FileDownloadLinkToReturn != "" {
		return m.FileDownloadLinkToReturn
	}
	return "https://api.telegram.org/file/bot123/" + f.FilePath
}

// SendDocument records an uploaded document.
func (m *MockBot) SendDocument(_ context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendDocumentError != nil {
		return nil, m.SendDocumentError
	}
	upload := recordUpload(params.ChatID, params.Document, params.Caption)
	m.SentDocuments = append(m.SentDocuments, upload)
	return &models.Message{
		ID:       m.nextIDLocked(),
		Chat:     models.Chat{ID: chatIDToInt64(params.ChatID)},
		Caption:  params.Caption,
		Document: &models.Document{FileID: "mock_file_id", FileName: upload.Filename},
	}, nil
}

// SendPhoto records an uploaded photo.
func (m *MockBot) SendPhoto(_ context.Context, params *bot.SendPhotoParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendPhotoError != nil {
		return nil, m.SendPhotoError
	}
	m.SentPhotos = append(m.SentPhotos, recordUpload(params.ChatID, params.Photo, params.Caption))
	return &models.Message{
		ID:      m.nextIDLocked(),
		Chat:    models.Chat{ID: chatIDToInt64(params.ChatID)},
		Caption: params.Caption,
	}, nil
}

func recordUpload(chatID any, file models.InputFile, caption string) SentUpload {
	upload := SentUpload{ChatID: chatID, Caption: caption}
	if f, ok := file.(*models.InputFileUpload); ok {
		upload.Filename = f.Filename
		if f.Data != nil {
			upload.Data, _ = io.ReadAll(f.Data)
		}
	}
	return upload
}

// Reset clears all recorded interactions and injected errors.
func (m *MockBot) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentMessages = nil
	m.EditedMessages = nil
	m.AnsweredCallbacks = nil
	m.SentDocuments = nil
	m.SentPhotos = nil
	m.ChatActions = nil
	m.SendMessageError = nil
	m.EditMessageError = nil
	m.GetFileError = nil
	m.SendDocumentError = nil
	m.SendPhotoError = nil
	m.lastText = ""
	m.lastMarkup = nil
}

// LastSentMessage returns the most recently sent message, or nil if none.
func (m *MockBot) LastSentMessage() *SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.SentMessages) == 0 {
		return nil
	}
	msg := m.SentMessages[len(m.SentMessages)-1]
	return &msg
}

// LastEditedMessage returns the most recently edited message, or nil if none.
func (m *MockBot) LastEditedMessage() *EditedMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.EditedMessages) == 0 {
		return nil
	}
	msg := m.EditedMessages[len(m.EditedMessages)-1]
	return &msg
}

// LastText returns the text of the latest message, sent or edited, in call order.
func (m *MockBot) LastText() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastText
}

// LastReplyMarkup returns the markup of the latest message, sent or edited, in call order.
func (m *MockBot) LastReplyMarkup() models.ReplyMarkup {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastMarkup
}

// SentMessageCount returns the number of messages sent.
func (m *MockBot) SentMessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentMessages)
}

// SentDocumentCount returns the number of documents sent.
func (m *MockBot) SentDocumentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentDocuments)
}

// SentPhotoCount returns the number of photos sent.
func (m *MockBot) SentPhotoCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentPhotos)
}

// chatIDToInt64 converts a ChatID to int64.
func chatIDToInt64(chatID any) int64 {
	switch v := chatID.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
