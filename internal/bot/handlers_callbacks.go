package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/journey"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/tripfund-bot/internal/models"
)

const tripEndedMsg = "This trip has ended. Send /trip to start a new one."

var (
	errUnknownAction = errors.New("unknown action")
	errUnknownPick   = errors.New("unknown selection")
)

// handleJourneyCallback handles the buttons on the journey card.
func (b *Bot) handleJourneyCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleJourneyCallbackCore(ctx, tgBot, update)
}

// handleJourneyCallbackCore is the testable implementation of handleJourneyCallback.
func (b *Bot) handleJourneyCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil || cq.Message.Message == nil {
		return
	}
	chatID := cq.Message.Message.Chat.ID
	messageID := cq.Message.Message.ID
	action, arg, _ := strings.Cut(strings.TrimPrefix(cq.Data, callbackJourney), ":")

	sess := b.lastSession(chatID)
	if sess == nil {
		answerCallback(ctx, tg, cq.ID, tripEndedMsg)
		return
	}

	switch action {
	case "noop":
		answerCallback(ctx, tg, cq.ID, "")
		return
	case "sched":
		answerCallback(ctx, tg, cq.ID, "")
		acct, ok := b.latestLoan(ctx, chatID, cq.From.ID)
		if !ok {
			sendHTML(ctx, tg, chatID, "You have no disbursed loans yet.")
			return
		}
		format := exportCSV
		if arg == string(exportICS) {
			format = exportICS
		}
		b.sendSchedule(ctx, tg, chatID, acct, format)
		return
	case "chart":
		answerCallback(ctx, tg, cq.ID, "")
		snap := sess.journey.Snapshot()
		b.sendTripCharts(ctx, tg, chatID, snap.Trip, snap.Gap)
		return
	}

	if sess.journey.Snapshot().Closed() {
		answerCallback(ctx, tg, cq.ID, tripEndedMsg)
		return
	}

	if err := b.applyAction(sess, action, arg); err != nil {
		logger.Log.Debug().Err(err).Str("action", action).Str("journey_id", sess.journey.ID()).Msg("Journey action rejected")
		answerCallback(ctx, tg, cq.ID, rejectionText(err))
		return
	}
	answerCallback(ctx, tg, cq.ID, "")
	b.showCard(ctx, tg, sess, sess.journey.Snapshot(), messageID)
}

// applyAction maps a card button onto a journey transition.
func (b *Bot) applyAction(sess *session, action, arg string) error {
	j := sess.journey
	snap := j.Snapshot()

	switch action {
	case "dest":
		if arg == "default" {
			return j.SubmitDestination(snap.Defaults.Destination)
		}
		name, ok := pick(b.catalog.Popular(), arg)
		if !ok {
			return errUnknownPick
		}
		return j.SubmitDestination(name)

	case "trav", "days":
		if arg == "ok" {
			if snap.Phase != journey.PhaseIntake || snap.IntakeStep != journey.StepTravelers {
				return journey.ErrWrongPhase
			}
			travelers, days := sess.draft(snap)
			return j.SubmitTravelDetails(travelers, days)
		}
		delta, err := strconv.Atoi(arg)
		if err != nil {
			return errUnknownAction
		}
		if snap.IntakeStep != journey.StepTravelers {
			return journey.ErrWrongPhase
		}
		if action == "trav" {
			sess.nudgeDraft(snap, delta, 0)
		} else {
			sess.nudgeDraft(snap, 0, delta)
		}
		return nil

	case "city":
		city, ok := pick(snap.SuggestedCities, arg)
		if !ok {
			return errUnknownPick
		}
		return j.ToggleCity(city)

	case "int":
		interest, ok := pick(appmodels.Interests, arg)
		if !ok {
			return errUnknownPick
		}
		return j.ToggleInterest(interest)

	case "cities":
		return j.ConfirmInterests()

	case "gap":
		return j.AcceptGap()

	case "consent":
		if err := j.GiveCreditConsent(); err != nil {
			return err
		}
		return j.ProceedToCustomization()

	case "amt":
		delta, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return errUnknownAction
		}
		principal := snap.Offer.Principal.Add(decimal.NewFromInt(delta))
		return j.AdjustLoan(journey.LoanAdjustment{Principal: &principal})

	case "ten":
		delta, err := strconv.Atoi(arg)
		if err != nil {
			return errUnknownAction
		}
		months := snap.Offer.TenureMonths + delta
		return j.AdjustLoan(journey.LoanAdjustment{TenureMonths: &months})

	case "accept":
		return j.AcceptOffer()
	case "terms":
		return j.AcceptTerms()
	case "otp":
		return j.SendOTP()
	case "mandate":
		return j.ConfirmMandate()
	case "dismiss":
		_, err := j.Dismiss()
		return err
	}
	return errUnknownAction
}

// pick returns items[i] for a decimal index string.
func pick(items []string, index string) (string, bool) {
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 || i >= len(items) {
		return "", false
	}
	return items[i], true
}

// rejectionText turns a rejected transition into a short callback notice.
func rejectionText(err error) string {
	switch {
	case errors.Is(err, journey.ErrBusy):
		return "⏳ One moment, still working on it."
	case errors.Is(err, journey.ErrClosed):
		return tripEndedMsg
	case errors.Is(err, journey.ErrWrongPhase):
		return "That step is already done."
	case errors.Is(err, journey.ErrInvalidInput):
		if strings.Contains(err.Error(), "pick a city") {
			return "Pick at least one place first."
		}
		return "That value isn't allowed."
	}
	return "Sorry, that didn't work."
}
