package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/exchange"
	"gitlab.com/yelinaung/tripfund-bot/internal/finance"
	"gitlab.com/yelinaung/tripfund-bot/internal/journey"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// Callback data prefixes.
const (
	callbackJourney = "j:"
	callbackOffer   = "o:"
)

// Step sizes for the customization buttons.
const (
	principalStep = 10000
	tenureStep    = journey.TenureStepMonths
)

func button(text, data string) tgmodels.InlineKeyboardButton {
	return tgmodels.InlineKeyboardButton{Text: text, CallbackData: data}
}

func dismissRow(label string) []tgmodels.InlineKeyboardButton {
	return []tgmodels.InlineKeyboardButton{button(label, callbackJourney+"dismiss")}
}

// showCard draws the journey card, editing editID in place when possible.
func (b *Bot) showCard(ctx context.Context, tg TelegramAPI, sess *session, snap journey.Snapshot, editID int) {
	if sess.enteredPhase(snap.Phase) && b.metrics != nil {
		b.metrics.PhaseReached(ctx, string(snap.Phase))
	}

	text, kb := b.renderCard(ctx, sess, snap)

	if editID != 0 {
		params := &bot.EditMessageTextParams{
			ChatID:    sess.chatID,
			MessageID: editID,
			Text:      text,
			ParseMode: tgmodels.ParseModeHTML,
		}
		if kb != nil {
			params.ReplyMarkup = kb
		}
		_, err := tg.EditMessageText(ctx, params)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			sess.setCard(editID)
			return
		}
		logger.Log.Debug().Err(err).Msg("Failed to edit journey card, sending a new one")
	}

	params := &bot.SendMessageParams{
		ChatID:    sess.chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	msg, err := tg.SendMessage(ctx, params)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(sess.chatID)).Msg("Failed to send journey card")
		return
	}
	sess.setCard(msg.ID)
}

// renderCard returns the HTML text and keyboard for the journey's current step.
// The keyboard is nil when the user has nothing to press.
func (b *Bot) renderCard(ctx context.Context, sess *session, snap journey.Snapshot) (string, *tgmodels.InlineKeyboardMarkup) {
	switch {
	case snap.Dismissed:
		return renderDismissed(snap), nil
	case snap.Disbursed:
		return renderDisbursed(snap)
	}

	switch snap.Phase {
	case journey.PhaseIntake:
		switch snap.IntakeStep {
		case journey.StepDestination:
			return b.renderDestination(snap)
		case journey.StepTravelers:
			travelers, days := sess.draft(snap)
			return b.renderTravelers(snap, travelers, days)
		case journey.StepCities:
			return b.renderCities(snap)
		default:
			return b.renderAnalyzing(snap), nil
		}
	case journey.PhaseGapAnalysis:
		var quote *exchange.Quote
		if q, ok := b.localQuote(ctx, snap.Trip); ok {
			quote = &q
		}
		return renderGap(snap, quote)
	case journey.PhasePreApproved:
		return renderPreApproved(snap)
	case journey.PhaseCustomization:
		return renderCustomization(snap)
	case journey.PhaseCompliance:
		return renderCompliance(snap)
	}
	return "Use /trip to start planning.", nil
}

func (b *Bot) destinationEmoji(name string) string {
	if !b.catalog.Contains(name) {
		return "🌍"
	}
	return b.catalog.Lookup(name).Emoji
}

func (b *Bot) renderDestination(snap journey.Snapshot) (string, *tgmodels.InlineKeyboardMarkup) {
	text := fmt.Sprintf(`👋 Hi %s! Let's plan your trip and see how to fund it.

<b>Where would you like to go?</b>
Pick a destination, type one (e.g. <i>trip to Iceland</i>), or upload an itinerary.`,
		escapeHTML(snap.Persona.Salutation))

	var rows [][]tgmodels.InlineKeyboardButton
	if d := snap.Defaults.Destination; d != "" {
		rows = append(rows, []tgmodels.InlineKeyboardButton{
			button("✨ "+d+" (suggested for you)", callbackJourney+"dest:default"),
		})
	}
	buttons := make([]tgmodels.InlineKeyboardButton, 0, len(b.catalog.Popular()))
	for i, name := range b.catalog.Popular() {
		buttons = append(buttons, button(b.destinationEmoji(name)+" "+name, callbackJourney+"dest:"+strconv.Itoa(i)))
	}
	rows = append(rows, lo.Chunk(buttons, 2)...)
	return text, &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (b *Bot) renderTravelers(snap journey.Snapshot, travelers, days int) (string, *tgmodels.InlineKeyboardMarkup) {
	dest := snap.Spec.Destination
	text := fmt.Sprintf(`%s <b>%s</b>

Who's going and for how long?
👥 Travelers: <b>%d</b> (%s)
📅 Days: <b>%d</b>

Adjust below or type e.g. <i>4 people, 10 days</i>.`,
		b.destinationEmoji(dest), escapeHTML(dest),
		travelers, finance.DescribeTravelers(travelers), days)

	kb := &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
		{
			button("➖", callbackJourney+"trav:-1"),
			button(fmt.Sprintf("👥 %d", travelers), callbackJourney+"noop"),
			button("➕", callbackJourney+"trav:+1"),
		},
		{
			button("➖", callbackJourney+"days:-1"),
			button(fmt.Sprintf("📅 %d days", days), callbackJourney+"noop"),
			button("➕", callbackJourney+"days:+1"),
		},
		{button("Continue ➡️", callbackJourney+"trav:ok")},
		dismissRow("Cancel"),
	}}
	return text, kb
}

func (b *Bot) renderCities(snap journey.Snapshot) (string, *tgmodels.InlineKeyboardMarkup) {
	spec := snap.Spec
	selected := func(list []string) string {
		if len(list) == 0 {
			return "<i>none yet</i>"
		}
		return escapeHTML(strings.Join(list, ", "))
	}
	text := fmt.Sprintf(`%s <b>%s</b> · %s · %d days

Which places and what are you into? Tap to select, then analyze.
🏙 Cities: %s
🎯 Interests: %s`,
		b.destinationEmoji(spec.Destination), escapeHTML(spec.Destination),
		finance.DescribeTravelers(spec.TravelerCount), spec.Days,
		selected(spec.Cities), selected(spec.Interests))

	mark := func(label string, on bool) string {
		if on {
			return "✅ " + label
		}
		return label
	}
	cities := make([]tgmodels.InlineKeyboardButton, 0, len(snap.SuggestedCities))
	for i, city := range snap.SuggestedCities {
		cities = append(cities, button(mark(city, lo.Contains(spec.Cities, city)), callbackJourney+"city:"+strconv.Itoa(i)))
	}
	interests := make([]tgmodels.InlineKeyboardButton, 0, len(models.Interests))
	for i, interest := range models.Interests {
		interests = append(interests, button(mark(interest, lo.Contains(spec.Interests, interest)), callbackJourney+"int:"+strconv.Itoa(i)))
	}

	rows := lo.Chunk(cities, 2)
	rows = append(rows, lo.Chunk(interests, 2)...)
	rows = append(rows,
		[]tgmodels.InlineKeyboardButton{button("🔍 Analyze my trip", callbackJourney+"cities:ok")},
		dismissRow("Cancel"),
	)
	return text, &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (b *Bot) renderAnalyzing(snap journey.Snapshot) string {
	spec := snap.Spec
	return fmt.Sprintf("⏳ Estimating costs for %s <b>%s</b>...\nChecking flights, stays and activities for %s, %d days.",
		b.destinationEmoji(spec.Destination), escapeHTML(spec.Destination),
		strings.ToLower(finance.DescribeTravelers(spec.TravelerCount)), spec.Days)
}

func renderGap(snap journey.Snapshot, quote *exchange.Quote) (string, *tgmodels.InlineKeyboardMarkup) {
	trip, gap := snap.Trip, snap.Gap
	if trip == nil || gap == nil {
		return "⏳ Preparing your estimate...", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>%s trip estimate</b>\n", trip.Emoji, escapeHTML(trip.Destination))
	fmt.Fprintf(&sb, "%s · %d days", trip.TravelerDescription, trip.Days)
	if len(trip.Cities) > 0 {
		fmt.Fprintf(&sb, " · %s", escapeHTML(strings.Join(trip.Cities, ", ")))
	}
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "✈️ Flights: %s\n", formatINR(trip.Breakdown.Flights))
	fmt.Fprintf(&sb, "🏨 Hotels: %s\n", formatINR(trip.Breakdown.Hotels))
	fmt.Fprintf(&sb, "🎟 Activities: %s\n", formatINR(trip.Breakdown.Activities))
	fmt.Fprintf(&sb, "🍜 Food: %s\n", formatINR(trip.Breakdown.Food))
	fmt.Fprintf(&sb, "🛂 Visa: %s\n", formatINR(trip.Breakdown.Visa))
	fmt.Fprintf(&sb, "💰 <b>Total: %s</b>\n", formatINR(trip.EstimatedCost))
	if quote != nil {
		fmt.Fprintf(&sb, "≈ %s (rate of %s)\n", formatLocal(quote.Local, quote.LocalCode), quote.RateDate.Format("2 Jan 2006"))
	}
	sb.WriteString("\n<b>How your savings stack up</b>\n")
	fmt.Fprintf(&sb, "✅ Covered: %s (%d%%)\n%s\n", formatINR(gap.CoveredAmount), gap.CoveredPercent, progressBar(gap.CoveredPercent))
	fmt.Fprintf(&sb, "⚠️ Shortfall: %s (%d%%)\n%s", formatINR(gap.ShortfallAmount), gap.ShortfallPercent, progressBar(gap.ShortfallPercent))

	kb := &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
		{button("📊 Show chart", callbackJourney+"chart")},
		{button("💳 Fund the gap", callbackJourney+"gap:ok")},
		dismissRow("Not now"),
	}}
	return sb.String(), kb
}

func renderPreApproved(snap journey.Snapshot) (string, *tgmodels.InlineKeyboardMarkup) {
	offer, terms := snap.Offer, snap.Terms
	text := fmt.Sprintf(`🎉 <b>Good news, %s!</b>
You're pre-approved for a travel loan of up to <b>%s</b>.

Suggested: <b>%s</b> over %s at %s
EMI from <b>%s</b>/month
Processing fee: %s

To continue we need your consent for a credit bureau check.`,
		escapeHTML(snap.Persona.Salutation), formatINR(offer.MaxPrincipal),
		formatINR(offer.Principal), formatTenure(offer.TenureMonths), formatRate(offer.AnnualRatePercent),
		formatINR(terms.EMI), formatINR(offer.ProcessingFee))

	kb := &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
		{button("✅ I consent", callbackJourney+"consent")},
		dismissRow("Not now"),
	}}
	return text, kb
}

func renderCustomization(snap journey.Snapshot) (string, *tgmodels.InlineKeyboardMarkup) {
	offer, terms := snap.Offer, snap.Terms
	text := fmt.Sprintf(`🛠 <b>Customize your loan</b>

Amount: <b>%s</b> (%s to %s)
Tenure: <b>%s</b>
Rate: %s

EMI: <b>%s</b>/month
Total interest: %s
Total payable: %s

Use the buttons or type e.g. <i>1 lakh for 36 months</i>.`,
		formatINR(offer.Principal), formatINR(offer.MinPrincipal), formatINR(offer.MaxPrincipal),
		formatTenure(offer.TenureMonths), formatRate(offer.AnnualRatePercent),
		formatINR(terms.EMI), formatINR(terms.TotalInterest), formatINR(terms.TotalPayable))

	step := formatINR(decimal.NewFromInt(principalStep))
	kb := &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
		{
			button("➖ "+step, fmt.Sprintf("%samt:-%d", callbackJourney, principalStep)),
			button("➕ "+step, fmt.Sprintf("%samt:+%d", callbackJourney, principalStep)),
		},
		{
			button(fmt.Sprintf("➖ %d mo", tenureStep), fmt.Sprintf("%sten:-%d", callbackJourney, tenureStep)),
			button(fmt.Sprintf("➕ %d mo", tenureStep), fmt.Sprintf("%sten:+%d", callbackJourney, tenureStep)),
		},
		{button("✅ Accept offer", callbackJourney+"accept")},
		dismissRow("Not now"),
	}}
	return text, kb
}

func renderCompliance(snap journey.Snapshot) (string, *tgmodels.InlineKeyboardMarkup) {
	offer, terms := snap.Offer, snap.Terms
	switch snap.ComplianceStep {
	case journey.StepTerms:
		text := fmt.Sprintf(`📄 <b>Loan agreement</b>

%s at %s for %s
EMI %s · Processing fee %s
Total payable %s

By agreeing you accept the key fact statement and the loan terms.`,
			formatINR(offer.Principal), formatRate(offer.AnnualRatePercent), formatTenure(offer.TenureMonths),
			formatINR(terms.EMI), formatINR(offer.ProcessingFee), formatINR(terms.TotalPayable))
		return text, &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{button("✅ I agree", callbackJourney+"terms")},
			dismissRow("Cancel"),
		}}

	case journey.StepAadhaar:
		switch snap.Compliance.OTPStage {
		case models.OTPStageSending:
			return "📨 Sending an OTP to your Aadhaar-linked mobile...", nil
		case models.OTPStageAutofilling:
			return "🔢 OTP received. Filling it in for you...", nil
		case models.OTPStageVerifying:
			return "🔐 Verifying OTP ••••••", nil
		}
		return "✍️ <b>Aadhaar e-sign</b>\nWe'll send a one-time password to your Aadhaar-linked mobile to sign the agreement.",
			&tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
				{button("📲 Send OTP", callbackJourney+"otp")},
				dismissRow("Cancel"),
			}}

	case journey.StepENach:
		text := fmt.Sprintf("✅ Agreement signed.\n\n🏦 <b>Set up e-NACH auto-debit</b>\nYour EMI of %s will be debited every month for %s.",
			formatINR(terms.EMI), formatTenure(offer.TenureMonths))
		return text, &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{button("🏦 Authorize mandate", callbackJourney+"mandate")},
			dismissRow("Cancel"),
		}}
	}
	return "📄 Preparing your agreement...", nil
}

func renderDisbursed(snap journey.Snapshot) (string, *tgmodels.InlineKeyboardMarkup) {
	emoji := "✈️"
	if snap.Trip != nil && snap.Trip.Emoji != "" {
		emoji = snap.Trip.Emoji
	}
	text := fmt.Sprintf(`🎊 <b>%s disbursed!</b>

Loan account: <code>%s</code>
EMI: %s × %d
First EMI is due one month from today.

Enjoy %s %s`,
		formatINR(snap.Offer.Principal), escapeHTML(snap.AccountNumber),
		formatINR(snap.Terms.EMI), snap.Offer.TenureMonths,
		escapeHTML(snap.Spec.Destination), emoji)
	return text, &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
		button("📄 Schedule (CSV)", callbackJourney+"sched:csv"),
		button("📅 Calendar (.ics)", callbackJourney+"sched:ics"),
	}}}
}

func renderDismissed(snap journey.Snapshot) string {
	if snap.Phase.Index() >= journey.PhasePreApproved.Index() {
		return fmt.Sprintf("👋 No problem. Your offer of %s for %s is saved. Use /offers to pick it up later.",
			formatINR(snap.Offer.Principal), escapeHTML(snap.Spec.Destination))
	}
	return "👋 Trip planning cancelled. Send /trip whenever you're ready."
}

// localQuote converts the trip total into the destination currency when a rate is available.
func (b *Bot) localQuote(ctx context.Context, trip *models.TripDetails) (exchange.Quote, bool) {
	if trip == nil || b.exchange == nil {
		return exchange.Quote{}, false
	}
	base := b.cfg.BaseCurrency
	if base == "" {
		base = models.DefaultCurrency
	}
	q, ok, err := exchange.QuoteLocal(ctx, b.exchange, trip.EstimatedCost, base, b.catalog.Lookup(trip.Destination).Currency)
	if err != nil {
		logger.Log.Warn().Err(err).Str("destination", trip.Destination).Msg("Failed to quote trip in local currency")
		return exchange.Quote{}, false
	}
	return q, ok
}
