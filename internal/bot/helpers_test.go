package bot

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/tripfund-bot/internal/config"
	"gitlab.com/yelinaung/tripfund-bot/internal/exchange"
	"gitlab.com/yelinaung/tripfund-bot/internal/gemini"
	"gitlab.com/yelinaung/tripfund-bot/internal/journey"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/repository"
)

const (
	testChatID = int64(12345)
	testUserID = int64(67890)
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type memUsers struct {
	mu    sync.Mutex
	users map[int64]models.User
}

func (s *memUsers) UpsertUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = map[int64]models.User{}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *memUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

type memOffers struct {
	mu     sync.Mutex
	offers []models.SavedOffer
	err    error
}

func (s *memOffers) Save(_ context.Context, offer *models.SavedOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}
	s.offers = append(s.offers, *offer)
	return nil
}

func (s *memOffers) GetByID(_ context.Context, userID int64, id string) (*models.SavedOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.offers {
		if o.ID == id && o.UserID == userID {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memOffers) ListByUser(_ context.Context, userID int64, limit int) ([]models.SavedOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.SavedOffer
	for _, o := range slices.Backward(s.offers) {
		if o.UserID == userID && len(out) < limit {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memOffers) PendingReminders(_ context.Context, cutoff time.Time, limit int) ([]models.SavedOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SavedOffer
	for _, o := range s.offers {
		if o.RemindedAt == nil && o.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memOffers) MarkReminded(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.offers {
		if s.offers[i].ID == id && s.offers[i].RemindedAt == nil {
			s.offers[i].RemindedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (s *memOffers) Delete(_ context.Context, userID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers = slices.DeleteFunc(s.offers, func(o models.SavedOffer) bool {
		return o.ID == id && o.UserID == userID
	})
	return nil
}

func (s *memOffers) all() []models.SavedOffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.offers)
}

type memAccounts struct {
	mu       sync.Mutex
	accounts []models.LoanAccount
}

func (s *memAccounts) Create(_ context.Context, acct *models.LoanAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.AccountNumber == acct.AccountNumber {
			return repository.ErrDuplicateAccount
		}
	}
	acct.ID = len(s.accounts) + 1
	s.accounts = append(s.accounts, *acct)
	return nil
}

func (s *memAccounts) LatestByUser(_ context.Context, userID int64) (*models.LoanAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range slices.Backward(s.accounts) {
		if a.UserID == userID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memAccounts) GetByAccountNumber(_ context.Context, number string) (*models.LoanAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.AccountNumber == number {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memAccounts) all() []models.LoanAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.accounts)
}

type recordingPublisher struct {
	mu        sync.Mutex
	completed []models.CompletionEvent
	dismissed []models.SavedOffer
}

func (p *recordingPublisher) PublishCompleted(_ context.Context, _ int64, ev models.CompletionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, ev)
	return nil
}

func (p *recordingPublisher) PublishDismissed(_ context.Context, _ int64, offer models.SavedOffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissed = append(p.dismissed, offer)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) counts() (completed, dismissed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.completed), len(p.dismissed)
}

type fakeAssistant struct {
	transcript *gemini.Transcript
	itinerary  *gemini.Itinerary
	intent     *gemini.Intent
	err        error
}

func (a *fakeAssistant) TranscribeVoice(context.Context, []byte, string) (*gemini.Transcript, error) {
	return a.transcript, a.err
}

func (a *fakeAssistant) ParseItinerary(context.Context, []byte, string) (*gemini.Itinerary, error) {
	return a.itinerary, a.err
}

func (a *fakeAssistant) ClassifyIntent(context.Context, string) (*gemini.Intent, error) {
	return a.intent, a.err
}

type fixedRate struct {
	rate decimal.Decimal
}

func (f fixedRate) Convert(_ context.Context, amount decimal.Decimal, _, _ string) (exchange.ConversionResult, error) {
	return exchange.ConversionResult{Amount: amount.Mul(f.rate), Rate: f.rate, RateDate: testNow}, nil
}

type testEnv struct {
	b         *Bot
	tg        *mocks.MockBot
	sched     *journey.ManualScheduler
	offers    *memOffers
	accounts  *memAccounts
	publisher *recordingPublisher
}

func testConfig() *config.Config {
	return &config.Config{
		TelegramBotToken:   "test-token",
		DatabaseURL:        "test-url",
		WhitelistedUserIDs: []int64{testUserID},
		BaseCurrency:       "INR",
		LoanAnnualRate:     decimal.RequireFromString("10.49"),
		LoanProcessingFee:  decimal.NewFromInt(1499),
		DemoLiquidCash:     decimal.NewFromInt(1240500),
		OfferReminderAfter: 24 * time.Hour,
	}
}

// setupTestBot builds a bot over in-memory stores with a manual scheduler.
func setupTestBot(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()

	env := &testEnv{
		tg:        mocks.NewMockBot(),
		sched:     journey.NewManualScheduler(),
		offers:    &memOffers{},
		accounts:  &memAccounts{},
		publisher: &recordingPublisher{},
	}
	deps := Deps{
		Users:     &memUsers{},
		Offers:    env.offers,
		Accounts:  env.accounts,
		Publisher: env.publisher,
		Scheduler: env.sched,
	}
	for _, m := range mutate {
		m(&deps)
	}
	env.b = newBot(testConfig(), deps)
	env.b.messageSender = env.tg
	env.b.now = func() time.Time { return testNow }
	return env
}

func (e *testEnv) snapshot(t *testing.T) journey.Snapshot {
	t.Helper()
	sess := e.b.lastSession(testChatID)
	if sess == nil {
		t.Fatal("no session for test chat")
	}
	return sess.journey.Snapshot()
}

func (e *testEnv) send(text string) {
	update := mocks.MessageUpdate(testChatID, testUserID, text)
	switch {
	case text == "/start":
		e.b.handleStartCore(context.Background(), e.tg, update)
	case strings.HasPrefix(text, "/trip"):
		e.b.handleTripCore(context.Background(), e.tg, update)
	default:
		e.b.defaultHandlerCore(context.Background(), e.tg, update)
	}
}

func (e *testEnv) press(data string) {
	sess := e.b.lastSession(testChatID)
	messageID := 1
	if sess != nil {
		messageID = sess.card()
	}
	update := mocks.CallbackQueryUpdate(testChatID, testUserID, messageID, data)
	if strings.HasPrefix(data, callbackOffer) {
		e.b.handleOfferCallbackCore(context.Background(), e.tg, update)
		return
	}
	e.b.handleJourneyCallbackCore(context.Background(), e.tg, update)
}

// toGapAnalysis drives a Japan trip through intake by button presses.
func (e *testEnv) toGapAnalysis(t *testing.T) {
	t.Helper()
	e.send("/start")
	e.press("j:dest:0")
	e.press("j:trav:ok")
	e.press("j:city:0")
	e.press("j:int:2")
	e.press("j:cities:ok")
	e.sched.RunAll()
	if got := e.snapshot(t).Phase; got != journey.PhaseGapAnalysis {
		t.Fatalf("phase = %s, want %s", got, journey.PhaseGapAnalysis)
	}
}

func (e *testEnv) toCustomization(t *testing.T) {
	t.Helper()
	e.toGapAnalysis(t)
	e.press("j:gap:ok")
	e.press("j:consent")
}
