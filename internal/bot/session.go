package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"gitlab.com/yelinaung/tripfund-bot/internal/journey"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/repository"
)

// hookTimeout bounds the Telegram and storage calls made from journey hooks.
const hookTimeout = 10 * time.Second

// session is one chat's journey and the message that shows it. mu guards the surface
// state only; it is never held across journey transitions or Telegram calls.
type session struct {
	chatID  int64
	userID  int64
	journey *journey.Journey
	bridge  *journey.Bridge

	mu        sync.Mutex
	cardID    int
	lastPhase journey.Phase
	travelers int
	days      int
	completed *models.CompletionEvent
}

func (s *session) card() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cardID
}

func (s *session) setCard(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardID = id
}

// draft returns the traveler and day counts being edited with the +/- buttons,
// seeded from the journey's defaults.
func (s *session) draft(snap journey.Snapshot) (travelers, days int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.travelers == 0 {
		s.travelers = snap.Spec.TravelerCount
	}
	if s.days == 0 {
		s.days = snap.Spec.Days
	}
	return s.travelers, s.days
}

// nudgeDraft moves the draft within the trip bounds.
func (s *session) nudgeDraft(snap journey.Snapshot, dTravelers, dDays int) {
	s.draft(snap)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.travelers = min(max(s.travelers+dTravelers, models.MinTravelers), models.MaxTravelers)
	s.days = min(max(s.days+dDays, models.MinTripDays), models.MaxTripDays)
}

func (s *session) completion() *models.CompletionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// enteredPhase reports whether phase differs from the last one observed.
func (s *session) enteredPhase(phase journey.Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastPhase == phase {
		return false
	}
	s.lastPhase = phase
	return true
}

// activeSession returns the chat's journey, or nil when there is none or it has closed.
func (b *Bot) activeSession(chatID int64) *session {
	b.sessionsMu.Lock()
	sess := b.sessions[chatID]
	b.sessionsMu.Unlock()
	if sess == nil || sess.journey.Snapshot().Closed() {
		return nil
	}
	return sess
}

// lastSession returns the chat's most recent journey, open or closed.
func (b *Bot) lastSession(chatID int64) *session {
	b.sessionsMu.Lock()
	defer b.sessionsMu.Unlock()
	return b.sessions[chatID]
}

// startSession opens a new journey for the chat, dismissing any open one first.
func (b *Bot) startSession(ctx context.Context, chatID, userID int64, firstName string) *session {
	if prev := b.activeSession(chatID); prev != nil {
		if _, err := prev.journey.Dismiss(); err != nil && !errors.Is(err, journey.ErrClosed) {
			logger.Log.Warn().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to dismiss previous journey")
		}
	}

	persona := b.personas.Resolve(b.cfg.DefaultPersona, firstName)
	sess := &session{chatID: chatID, userID: userID}
	sess.journey = journey.New(b.baseCtx, journey.Options{
		Catalog: b.catalog,
		Finances: models.FinancialSnapshot{
			LiquidCash:    b.cfg.DemoLiquidCash,
			ImmediateNeed: b.cfg.DemoImmediateNeed,
			LongTermGoal:  b.cfg.DemoLongTermGoal,
		},
		Persona:  persona,
		Defaults: b.personas.JourneyDefaults(),
		Policy: journey.Policy{
			AnnualRatePercent: b.cfg.LoanAnnualRate,
			ProcessingFee:     b.cfg.LoanProcessingFee,
			AnalysisDelay:     b.cfg.AnalysisDelay,
			OTPDeliveryDelay:  b.cfg.OTPDeliveryDelay,
			OTPAutofillDelay:  b.cfg.OTPAutofillDelay,
			OTPVerifyDelay:    b.cfg.OTPVerifyDelay,
		},
		Scheduler:  b.scheduler,
		OnProgress: func(snap journey.Snapshot) { b.onProgress(sess, snap) },
		OnComplete: func(ev models.CompletionEvent) { b.onComplete(sess, ev) },
		OnDismiss:  func(offer *models.SavedOffer) { b.onDismiss(sess, offer) },
	})
	sess.bridge = journey.NewBridge(sess.journey)
	sess.enteredPhase(journey.PhaseIntake)

	b.sessionsMu.Lock()
	b.sessions[chatID] = sess
	b.sessionsMu.Unlock()

	if b.metrics != nil {
		b.metrics.JourneyStarted(ctx, persona.ID)
	}
	logger.Log.Info().
		Str("chat_hash", logger.HashChatID(chatID)).
		Str("journey_id", sess.journey.ID()).
		Str("persona", persona.ID).
		Msg("Session started")
	return sess
}

// onProgress redraws the card when a simulated step resolves.
func (b *Bot) onProgress(sess *session, snap journey.Snapshot) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(b.baseCtx), hookTimeout)
	defer cancel()
	b.showCard(ctx, b.messageSender, sess, snap, sess.card())
}

// onComplete records the disbursed loan and announces it.
func (b *Bot) onComplete(sess *session, ev models.CompletionEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(b.baseCtx), hookTimeout)
	defer cancel()

	sess.mu.Lock()
	sess.completed = &ev
	sess.mu.Unlock()

	if b.acctRepo != nil {
		acct := &models.LoanAccount{
			UserID:            sess.userID,
			AccountNumber:     ev.AccountNumber,
			JourneyID:         ev.JourneyID,
			Destination:       ev.Destination,
			Principal:         ev.Principal,
			TenureMonths:      ev.TenureMonths,
			EMI:               ev.EMI,
			AnnualRatePercent: ev.AnnualRatePercent,
			DisbursedAt:       ev.DisbursedAt,
		}
		if err := b.acctRepo.Create(ctx, acct); err != nil && !errors.Is(err, repository.ErrDuplicateAccount) {
			logger.Log.Error().Err(err).
				Str("account", logger.MaskAccountNumber(ev.AccountNumber)).
				Msg("Failed to record loan account")
		}
	}

	if err := b.publisher.PublishCompleted(ctx, sess.userID, ev); err != nil {
		logger.Log.Error().Err(err).Str("journey_id", ev.JourneyID).Msg("Failed to publish completion")
	}
	if b.metrics != nil {
		b.metrics.Completed(ctx, ev.Destination, ev.Principal, ev.TenureMonths)
	}
}

// onDismiss keeps the offer, if any, so the user can resume it from /offers.
func (b *Bot) onDismiss(sess *session, offer *models.SavedOffer) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(b.baseCtx), hookTimeout)
	defer cancel()

	phase := sess.journey.Snapshot().Phase
	if b.metrics != nil {
		b.metrics.Dismissed(ctx, string(phase), offer != nil)
	}
	if offer == nil {
		return
	}
	offer.UserID = sess.userID

	if b.offerRepo != nil {
		if err := b.offerRepo.Save(ctx, offer); err != nil {
			logger.Log.Error().Err(err).Str("user_hash", logger.HashUserID(sess.userID)).Msg("Failed to save offer")
		}
	}
	if err := b.publisher.PublishDismissed(ctx, sess.userID, *offer); err != nil {
		logger.Log.Error().Err(err).Str("offer_id", offer.ID).Msg("Failed to publish dismissal")
	}
}
