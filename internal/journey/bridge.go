package journey

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/catalog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Bridge maps free text (typed or transcribed) onto journey transitions,
// so the chat surface does not need to know the current phase.
type Bridge struct {
	j *Journey
}

// NewBridge creates a bridge for j.
func NewBridge(j *Journey) *Bridge {
	return &Bridge{j: j}
}

// HandleCommand applies text to the journey. It returns true when the text was recognized
// and a transition succeeded; false means the caller should treat it as ordinary chat.
func (b *Bridge) HandleCommand(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	snap := b.j.Snapshot()
	if snap.Closed() {
		return false
	}
	if IsCancel(text) {
		_, err := b.j.Dismiss()
		return err == nil
	}
	if snap.Pending {
		return false
	}

	switch snap.Phase {
	case PhaseIntake:
		return b.handleIntake(snap, text)
	case PhaseGapAnalysis:
		return IsAffirmative(text) && b.j.AcceptGap() == nil
	case PhasePreApproved:
		if !IsAffirmative(text) && !hasWord(strings.ToLower(text), "consent") {
			return false
		}
		return b.j.GiveCreditConsent() == nil && b.j.ProceedToCustomization() == nil
	case PhaseCustomization:
		return b.handleCustomization(text)
	case PhaseCompliance:
		return b.handleCompliance(snap, text)
	}
	return false
}

func (b *Bridge) handleIntake(snap Snapshot, text string) bool {
	switch snap.IntakeStep {
	case StepDestination:
		if name, ok := b.destinationFrom(snap, text); ok {
			return b.j.SubmitDestination(name) == nil
		}
		return false

	case StepTravelers:
		travelers, days := ParseTravelDetails(text)
		if travelers == 0 && days == 0 {
			if !IsAffirmative(text) {
				return false
			}
		}
		if travelers == 0 {
			travelers = snap.Spec.TravelerCount
		}
		if days == 0 {
			days = snap.Spec.Days
		}
		return b.j.SubmitTravelDetails(travelers, days) == nil

	case StepCities:
		applied := false
		// A mention selects; it never deselects something already chosen.
		for _, city := range catalog.MatchAll(snap.SuggestedCities, text) {
			if lo.Contains(snap.Spec.Cities, city) || b.j.ToggleCity(city) == nil {
				applied = true
			}
		}
		for _, interest := range ParseInterests(text) {
			if lo.Contains(snap.Spec.Interests, interest) || b.j.ToggleInterest(interest) == nil {
				applied = true
			}
		}
		if IsAffirmative(text) {
			return b.j.ConfirmInterests() == nil || applied
		}
		return applied
	}
	return false
}

// destinationFrom resolves a destination from a numeric pick, a catalog mention,
// an explicit "trip to X" phrase, or a bare affirmative accepting the persona default.
func (b *Bridge) destinationFrom(snap Snapshot, text string) (string, bool) {
	cat := b.j.Catalog()
	if integerPattern.MatchString(text) {
		n, err := strconv.Atoi(text)
		popular := cat.Popular()
		if err == nil && n >= 1 && n <= len(popular) {
			return popular[n-1], true
		}
		return "", false
	}
	if name, ok := cat.Match(text); ok {
		return name, true
	}
	if m := destPattern.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" && len(name) <= 60 {
			return cases.Title(language.English).String(name), true
		}
	}
	if snap.Defaults.Destination != "" && IsAffirmative(text) {
		return snap.Defaults.Destination, true
	}
	return "", false
}

func (b *Bridge) handleCustomization(text string) bool {
	var adj LoanAdjustment
	rest := text

	if months, ok := ParseTenure(text); ok {
		adj.TenureMonths = &months
		rest = tenurePattern.ReplaceAllString(text, " ")
	}
	if amount, ok := ParseAmount(rest); ok {
		switch {
		case amount.GreaterThanOrEqual(decimal.NewFromInt(1000)):
			adj.Principal = &amount
		case adj.TenureMonths == nil && amount.LessThanOrEqual(decimal.NewFromInt(MaxTenureMonths)):
			months := int(amount.IntPart())
			adj.TenureMonths = &months
		}
	}

	if adj.Principal != nil || adj.TenureMonths != nil {
		return b.j.AdjustLoan(adj) == nil
	}
	if IsAffirmative(text) {
		return b.j.AcceptOffer() == nil
	}
	return false
}

func (b *Bridge) handleCompliance(snap Snapshot, text string) bool {
	lower := strings.ToLower(text)
	switch snap.ComplianceStep {
	case StepTerms:
		if IsAffirmative(text) {
			return b.j.AcceptTerms() == nil
		}
	case StepAadhaar:
		if hasWord(lower, "otp", "send", "verify", "sign", "esign", "e sign") || IsAffirmative(text) {
			return b.j.SendOTP() == nil
		}
	case StepENach:
		if hasWord(lower, "mandate", "authorize", "authorise", "disburse") || IsAffirmative(text) {
			return b.j.ConfirmMandate() == nil
		}
	}
	return false
}
