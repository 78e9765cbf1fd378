// Package bot provides the Telegram surface that embeds the trip-financing journey.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/tripfund-bot/internal/catalog"
	"gitlab.com/yelinaung/tripfund-bot/internal/config"
	"gitlab.com/yelinaung/tripfund-bot/internal/events"
	"gitlab.com/yelinaung/tripfund-bot/internal/exchange"
	"gitlab.com/yelinaung/tripfund-bot/internal/gemini"
	"gitlab.com/yelinaung/tripfund-bot/internal/journey"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "gitlab.com/yelinaung/tripfund-bot/internal/bot"

// TelegramAPI is the slice of the Bot API the handlers call. It lives in mocks
// so the fake can implement it without an import cycle.
type TelegramAPI = mocks.TelegramAPI

var _ TelegramAPI = (*bot.Bot)(nil)

// UserStore records the Telegram users that talk to the bot.
type UserStore interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// OfferStore keeps offers saved on dismissal.
type OfferStore interface {
	Save(ctx context.Context, offer *models.SavedOffer) error
	GetByID(ctx context.Context, userID int64, id string) (*models.SavedOffer, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.SavedOffer, error)
	PendingReminders(ctx context.Context, cutoff time.Time, limit int) ([]models.SavedOffer, error)
	MarkReminded(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, userID int64, id string) error
}

// AccountStore records disbursed loans.
type AccountStore interface {
	Create(ctx context.Context, acct *models.LoanAccount) error
	GetByAccountNumber(ctx context.Context, accountNumber string) (*models.LoanAccount, error)
	LatestByUser(ctx context.Context, userID int64) (*models.LoanAccount, error)
}

// Assistant is the generative-AI collaborator. A nil Assistant disables voice,
// itinerary upload and intent classification.
type Assistant interface {
	TranscribeVoice(ctx context.Context, audio []byte, mimeType string) (*gemini.Transcript, error)
	ParseItinerary(ctx context.Context, data []byte, mimeType string) (*gemini.Itinerary, error)
	ClassifyIntent(ctx context.Context, message string) (*gemini.Intent, error)
}

// Deps are the collaborators the bot is built from. Only Catalog is required;
// nil stores and services switch off the features that need them.
type Deps struct {
	Catalog   *catalog.Catalog
	Users     UserStore
	Offers    OfferStore
	Accounts  AccountStore
	Publisher events.Publisher
	Metrics   *telemetry.Metrics
	Assistant Assistant
	Exchange  exchange.Converter
	Scheduler journey.Scheduler
	Personas  Personas
}

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot *bot.Bot
	cfg *config.Config

	catalog   *catalog.Catalog
	userRepo  UserStore
	offerRepo OfferStore
	acctRepo  AccountStore
	publisher events.Publisher
	metrics   *telemetry.Metrics
	assistant Assistant
	exchange  exchange.Converter
	scheduler journey.Scheduler
	personas  Personas

	// messageSender is used outside update handlers (journey hooks, reminders).
	messageSender TelegramAPI
	httpClient    *http.Client
	tracer        trace.Tracer
	now           func() time.Time

	baseCtx context.Context

	sessionsMu sync.Mutex
	sessions   map[int64]*session
}

// New creates a new Bot instance.
func New(cfg *config.Config, deps Deps) (*Bot, error) {
	b := newBot(cfg, deps)

	opts := []bot.Option{
		bot.WithMiddlewares(b.whitelistMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.messageSender = telegramBot
	b.registerHandlers()

	return b, nil
}

// newBot wires everything except the Telegram client.
func newBot(cfg *config.Config, deps Deps) *Bot {
	if deps.Catalog == nil {
		deps.Catalog = catalog.New(nil)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.LogPublisher{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = journey.TimerScheduler{}
	}
	if deps.Personas == nil {
		deps.Personas = DefaultPersonas()
	}
	return &Bot{
		cfg:        cfg,
		catalog:    deps.Catalog,
		userRepo:   deps.Users,
		offerRepo:  deps.Offers,
		acctRepo:   deps.Accounts,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		assistant:  deps.Assistant,
		exchange:   deps.Exchange,
		scheduler:  deps.Scheduler,
		personas:   deps.Personas,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: downloadTimeout},
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		baseCtx:    context.Background(),
		sessions:   make(map[int64]*session),
	}
}

// Start begins polling for updates. Journeys started by the bot are cancelled with ctx.
func (b *Bot) Start(ctx context.Context) {
	b.baseCtx = ctx
	go b.startOfferReminderLoop(ctx)

	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// registerHandlers sets up command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleHelp)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/trip", bot.MatchTypePrefix, b.handleTrip)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypePrefix, b.handleStatus)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypePrefix, b.handleCancel)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/offers", bot.MatchTypePrefix, b.handleOffers)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/schedule", bot.MatchTypePrefix, b.handleSchedule)

	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackJourney, bot.MatchTypePrefix, b.handleJourneyCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackOffer, bot.MatchTypePrefix, b.handleOfferCallback)
}

// whitelistMiddleware checks if the user is whitelisted before processing.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		userID := extractUserID(update)
		if userID == 0 {
			return
		}

		username := extractUsername(update)
		logUserAction(userID, update)

		if !b.cfg.IsUserWhitelisted(userID, username) {
			logger.Log.Warn().
				Str("user_hash", logger.HashUserID(userID)).
				Msg("Blocked non-whitelisted user")
			if update.Message != nil {
				_, _ = tgBot.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: update.Message.Chat.ID,
					Text:   "⛔ Sorry, you are not authorized to use this bot.",
				})
			}
			return
		}

		ctx, span := b.tracer.Start(ctx, "telegram.update",
			trace.WithAttributes(attribute.String("update.kind", updateKind(update))))
		defer span.End()

		if err := b.ensureUserRegistered(ctx, update); err != nil {
			logger.Log.Error().
				Str("user_hash", logger.HashUserID(userID)).
				Err(err).
				Msg("Failed to register user")
		}

		next(ctx, tgBot, update)
	}
}

func updateKind(update *tgmodels.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message == nil:
		return "other"
	case update.Message.Voice != nil:
		return "voice"
	case update.Message.Document != nil, len(update.Message.Photo) > 0:
		return "upload"
	default:
		return "text"
	}
}

// logUserAction logs the user's input without its content.
func logUserAction(userID int64, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("chat_hash", logger.HashChatID(msg.Chat.ID))

		if msg.Text != "" {
			event = event.Str("text", logger.SanitizeText(msg.Text))
		}
		if len(msg.Photo) > 0 {
			event = event.Str("type", "photo")
		}
		if msg.Document != nil {
			event = event.Str("type", "document").Str("mime", msg.Document.MimeType)
		}
		if msg.Voice != nil {
			event = event.Str("type", "voice").Int("duration", msg.Voice.Duration)
		}

		event.Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	return ""
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// ensureUserRegistered creates or updates the user record.
func (b *Bot) ensureUserRegistered(ctx context.Context, update *tgmodels.Update) error {
	if b.userRepo == nil {
		return nil
	}

	var from *tgmodels.User
	switch {
	case update.Message != nil && update.Message.From != nil:
		from = update.Message.From
	case update.CallbackQuery != nil:
		from = &update.CallbackQuery.From
	default:
		return nil
	}

	user := &models.User{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
	if err := b.userRepo.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// sendHTML sends an HTML message and logs failures.
func sendHTML(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to send message")
	}
}
