package journey

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/tripfund-bot/internal/catalog"
	"gitlab.com/yelinaung/tripfund-bot/internal/finance"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type recorder struct {
	mu        sync.Mutex
	progress  []Snapshot
	completed []models.CompletionEvent
	dismissed []*models.SavedOffer
	dismisses int
}

func (r *recorder) options(o *Options) {
	o.OnProgress = func(s Snapshot) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.progress = append(r.progress, s)
	}
	o.OnComplete = func(e models.CompletionEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.completed = append(r.completed, e)
	}
	o.OnDismiss = func(s *models.SavedOffer) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.dismissed = append(r.dismissed, s)
		r.dismisses++
	}
}

type fixture struct {
	j     *Journey
	sched *ManualScheduler
	rec   *recorder
}

func newFixture(t *testing.T, mutate ...func(*Options)) fixture {
	t.Helper()
	sched := NewManualScheduler()
	rec := &recorder{}
	opts := Options{
		Catalog:          catalog.New(nil),
		Finances:         models.FinancialSnapshot{LiquidCash: decimal.NewFromInt(1240500)},
		Persona:          models.Persona{ID: "p1", Name: "Asha"},
		Policy:           DefaultPolicy(),
		Scheduler:        sched,
		Now:              func() time.Time { return fixedNow },
		NewID:            func() string { return "journey-1" },
		NewAccountNumber: func() string { return "TRV1234567" },
		NewOTP:           func() string { return "482913" },
	}
	rec.options(&opts)
	for _, m := range mutate {
		m(&opts)
	}
	return fixture{j: New(context.Background(), opts), sched: sched, rec: rec}
}

// toGapAnalysis drives the Japan scenario to the gap analysis.
func (f fixture) toGapAnalysis(t *testing.T) {
	t.Helper()
	require.NoError(t, f.j.SubmitDestination("Japan"))
	require.NoError(t, f.j.SubmitTravelDetails(2, 7))
	require.NoError(t, f.j.SubmitInterests([]string{"Tokyo", "Kyoto"}, []string{models.InterestFood}, ""))
	require.True(t, f.sched.RunNext())
	require.Equal(t, PhaseGapAnalysis, f.j.Snapshot().Phase)
}

func (f fixture) toCustomization(t *testing.T) {
	t.Helper()
	f.toGapAnalysis(t)
	require.NoError(t, f.j.AcceptGap())
	require.NoError(t, f.j.GiveCreditConsent())
	require.NoError(t, f.j.ProceedToCustomization())
}

func (f fixture) toMandate(t *testing.T) {
	t.Helper()
	f.toCustomization(t)
	require.NoError(t, f.j.AcceptOffer())
	require.NoError(t, f.j.AcceptTerms())
	require.NoError(t, f.j.SendOTP())
	f.sched.RunAll()
	require.Equal(t, StepENach, f.j.Snapshot().ComplianceStep)
}

func TestJourney_FullRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.toMandate(t)
	require.NoError(t, f.j.ConfirmMandate())

	snap := f.j.Snapshot()
	require.Equal(t, PhaseDisbursement, snap.Phase)
	require.True(t, snap.Disbursed)
	require.True(t, snap.Closed())
	require.Equal(t, "TRV1234567", snap.AccountNumber)
	require.True(t, snap.Compliance.TermsAccepted)
	require.True(t, snap.Compliance.OTPSent)
	require.True(t, snap.Compliance.OTPVerified)
	require.True(t, snap.Compliance.MandateConfirmed)
	require.Equal(t, "482913", snap.Compliance.OTP)

	require.Equal(t, AllPhases(), f.j.Phases())

	require.Len(t, f.rec.completed, 1)
	event := f.rec.completed[0]
	require.Equal(t, "journey-1", event.JourneyID)
	require.Equal(t, "Japan", event.Destination)
	require.Equal(t, "TRV1234567", event.AccountNumber)
	require.True(t, event.Principal.Equal(decimal.NewFromInt(86496)))
	require.Equal(t, DefaultTenureMonths, event.TenureMonths)
	require.True(t, event.EMI.Equal(finance.EMI(event.Principal, 24, decimal.RequireFromString("10.49"))))
	require.True(t, event.AnnualRatePercent.Equal(decimal.RequireFromString("10.49")))
	require.Equal(t, fixedNow, event.DisbursedAt)
	require.Empty(t, f.rec.dismissed)
}

func TestJourney_AnalysisScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.toGapAnalysis(t)
	snap := f.j.Snapshot()

	require.NotNil(t, snap.Trip)
	require.True(t, snap.Trip.EstimatedCost.Equal(decimal.NewFromInt(216240)))
	require.Equal(t, "Couple", snap.Trip.TravelerDescription)
	require.Equal(t, "🗾", snap.Trip.Emoji)

	require.NotNil(t, snap.Gap)
	require.True(t, snap.Gap.CoveredAmount.Equal(decimal.NewFromInt(129744)))
	require.True(t, snap.Gap.ShortfallAmount.Equal(decimal.NewFromInt(86496)))

	require.True(t, snap.Offer.Principal.Equal(decimal.NewFromInt(86496)))
	require.True(t, snap.Offer.MinPrincipal.Equal(decimal.NewFromInt(25000)))
	require.True(t, snap.Offer.MaxPrincipal.Equal(decimal.NewFromInt(172992)))
	require.Equal(t, 24, snap.Offer.TenureMonths)
	require.True(t, snap.Offer.ProcessingFee.Equal(decimal.NewFromInt(1499)))
	require.False(t, snap.Terms.EMI.IsZero())
	require.False(t, snap.Pending)

	require.Len(t, f.rec.progress, 1)
	require.Equal(t, PhaseGapAnalysis, f.rec.progress[0].Phase)
	require.Equal(t, []time.Duration{2 * time.Second}, f.sched.Delays())
}

func TestJourney_AnalysisIsPendingUntilResolved(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.j.SubmitDestination("Japan"))
	require.NoError(t, f.j.SubmitTravelDetails(2, 7))
	require.NoError(t, f.j.SubmitInterests([]string{"Tokyo"}, nil, ""))

	snap := f.j.Snapshot()
	require.True(t, snap.Pending)
	require.Equal(t, StepAnalyzing, snap.IntakeStep)
	require.Nil(t, snap.Trip)

	require.ErrorIs(t, f.j.AcceptGap(), ErrBusy)
	require.ErrorIs(t, f.j.SubmitInterests([]string{"Osaka"}, nil, ""), ErrBusy)

	f.sched.RunAll()
	require.NoError(t, f.j.AcceptGap())
}

func TestJourney_TransitionsOutOfOrderAreRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	before := f.j.Snapshot()

	require.ErrorIs(t, f.j.SubmitTravelDetails(2, 7), ErrWrongPhase)
	require.ErrorIs(t, f.j.AcceptGap(), ErrWrongPhase)
	require.ErrorIs(t, f.j.GiveCreditConsent(), ErrWrongPhase)
	require.ErrorIs(t, f.j.ProceedToCustomization(), ErrWrongPhase)
	require.ErrorIs(t, f.j.AdjustLoan(LoanAdjustment{TenureMonths: new(36)}), ErrWrongPhase)
	require.ErrorIs(t, f.j.AcceptOffer(), ErrWrongPhase)
	require.ErrorIs(t, f.j.AcceptTerms(), ErrWrongPhase)
	require.ErrorIs(t, f.j.SendOTP(), ErrWrongPhase)
	require.ErrorIs(t, f.j.ConfirmMandate(), ErrWrongPhase)

	require.Equal(t, before, f.j.Snapshot())
	require.Equal(t, []Phase{PhaseIntake}, f.j.Phases())
}

func TestJourney_IntakeValidation(t *testing.T) {
	t.Parallel()

	t.Run("empty destination", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.ErrorIs(t, f.j.SubmitDestination("   "), ErrInvalidInput)
		require.Equal(t, StepDestination, f.j.Snapshot().IntakeStep)
	})

	tests := []struct {
		name      string
		travelers int
		days      int
	}{
		{"zero travelers", 0, 7},
		{"too many travelers", 11, 7},
		{"too few days", 2, 2},
		{"too many days", 2, 46},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			require.NoError(t, f.j.SubmitDestination("Japan"))
			require.ErrorIs(t, f.j.SubmitTravelDetails(tt.travelers, tt.days), ErrInvalidInput)
			require.Equal(t, StepTravelers, f.j.Snapshot().IntakeStep)
		})
	}

	t.Run("bounds are inclusive", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.j.SubmitDestination("Japan"))
		require.NoError(t, f.j.SubmitTravelDetails(10, 45))
	})

	t.Run("interests need city or notes", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.j.SubmitDestination("Japan"))
		require.NoError(t, f.j.SubmitTravelDetails(1, 3))
		require.ErrorIs(t, f.j.SubmitInterests(nil, []string{models.InterestFood}, "  "), ErrInvalidInput)
		require.ErrorIs(t, f.j.ConfirmInterests(), ErrInvalidInput)
		require.ErrorIs(t, f.j.SubmitInterests(nil, []string{"Skydiving"}, "a note"), ErrInvalidInput)
		require.Empty(t, f.j.Snapshot().Spec.Interests)

		require.NoError(t, f.j.SubmitInterests(nil, nil, "anniversary trip"))
		require.True(t, f.j.Snapshot().Pending)
	})
}

func TestJourney_UnknownDestinationIsRegistered(t *testing.T) {
	t.Parallel()

	cat := catalog.New(nil)
	f := newFixture(t, func(o *Options) { o.Catalog = cat })
	require.NoError(t, f.j.SubmitDestination("Iceland"))
	require.True(t, cat.Contains("Iceland"))

	require.NoError(t, f.j.SubmitTravelDetails(1, 5))
	require.Equal(t, catalog.GenericCities, f.j.Snapshot().SuggestedCities)
}

func TestJourney_DraftSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.j.SubmitDestination("Japan"))
	require.NoError(t, f.j.SubmitTravelDetails(2, 7))

	require.NoError(t, f.j.ToggleCity("Tokyo"))
	require.NoError(t, f.j.ToggleCity("Kyoto"))
	require.NoError(t, f.j.ToggleCity("Tokyo"))
	require.NoError(t, f.j.ToggleInterest(models.InterestFood))
	require.ErrorIs(t, f.j.ToggleInterest("Gambling"), ErrInvalidInput)
	require.ErrorIs(t, f.j.ToggleCity(""), ErrInvalidInput)
	require.NoError(t, f.j.SetNotes("  "))

	snap := f.j.Snapshot()
	require.Equal(t, []string{"Kyoto"}, snap.Spec.Cities)
	require.Equal(t, []string{models.InterestFood}, snap.Spec.Interests)
	require.Empty(t, snap.Spec.Notes)

	snap.Spec.Cities[0] = "mutated"
	require.Equal(t, []string{"Kyoto"}, f.j.Snapshot().Spec.Cities)

	require.NoError(t, f.j.ConfirmInterests())
	f.sched.RunAll()
	require.Equal(t, PhaseGapAnalysis, f.j.Snapshot().Phase)
}

func TestJourney_PersonaDefaultsSeedIntake(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(o *Options) {
		o.Persona = models.Persona{ID: "family"}
		o.Defaults = PersonaDefaults{"family": {Destination: "Singapore", Travelers: 4, Days: 6}}
	})
	snap := f.j.Snapshot()
	require.Equal(t, "Singapore", snap.Defaults.Destination)

	require.NoError(t, f.j.SubmitDestination("Singapore"))
	snap = f.j.Snapshot()
	require.Equal(t, 4, snap.Spec.TravelerCount)
	require.Equal(t, 6, snap.Spec.Days)
}

func TestJourney_ItineraryShortcut(t *testing.T) {
	t.Parallel()

	t.Run("complete itinerary starts analysis", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.j.SubmitItinerary(models.TripSpecification{
			Destination:   " Japan ",
			TravelerCount: 2,
			Days:          7,
			Cities:        []string{"Tokyo", "Kyoto", "Tokyo", ""},
			Interests:     []string{models.InterestFood, "Unknown"},
		}))
		snap := f.j.Snapshot()
		require.Equal(t, StepAnalyzing, snap.IntakeStep)
		require.Equal(t, []string{"Tokyo", "Kyoto"}, snap.Spec.Cities)
		require.Equal(t, []string{models.InterestFood}, snap.Spec.Interests)

		f.sched.RunAll()
		snap = f.j.Snapshot()
		require.Equal(t, PhaseGapAnalysis, snap.Phase)
		require.True(t, snap.Trip.EstimatedCost.Equal(decimal.NewFromInt(216240)))
		require.Equal(t, []Phase{PhaseIntake, PhaseGapAnalysis}, f.j.Phases())
	})

	t.Run("partial itinerary continues intake", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.j.SubmitItinerary(models.TripSpecification{
			Destination: "Bali",
			Days:        10,
			Cities:      []string{"Ubud"},
		}))
		snap := f.j.Snapshot()
		require.Equal(t, StepTravelers, snap.IntakeStep)
		require.Equal(t, DefaultTravelers, snap.Spec.TravelerCount)
		require.Equal(t, 10, snap.Spec.Days)
		require.Equal(t, []string{"Ubud"}, snap.Spec.Cities)
	})

	t.Run("itinerary without destination is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.ErrorIs(t, f.j.SubmitItinerary(models.TripSpecification{TravelerCount: 2, Days: 5}), ErrInvalidInput)
		require.Equal(t, StepDestination, f.j.Snapshot().IntakeStep)
	})
}

func TestJourney_ConsentGatesCustomization(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.toGapAnalysis(t)
	require.NoError(t, f.j.AcceptGap())
	require.ErrorIs(t, f.j.ProceedToCustomization(), ErrInvalidInput)
	require.Equal(t, PhasePreApproved, f.j.Snapshot().Phase)

	require.NoError(t, f.j.GiveCreditConsent())
	require.True(t, f.j.Snapshot().CreditConsent)
	require.NoError(t, f.j.ProceedToCustomization())
	require.Equal(t, PhaseCustomization, f.j.Snapshot().Phase)
}

func TestJourney_AdjustLoan(t *testing.T) {
	t.Parallel()

	rate := decimal.RequireFromString("10.49")

	tests := []struct {
		name          string
		adj           LoanAdjustment
		wantPrincipal int64
		wantTenure    int
	}{
		{"principal within bounds", LoanAdjustment{Principal: new(decimal.NewFromInt(90000))}, 90000, 24},
		{"principal below floor", LoanAdjustment{Principal: new(decimal.NewFromInt(1000))}, 25000, 24},
		{"principal above cap", LoanAdjustment{Principal: new(decimal.NewFromInt(500000))}, 172992, 24},
		{"principal rounded", LoanAdjustment{Principal: new(decimal.RequireFromString("90000.6"))}, 90001, 24},
		{"tenure snapped", LoanAdjustment{TenureMonths: new(34)}, 86496, 36},
		{"tenure below min", LoanAdjustment{TenureMonths: new(1)}, 86496, 6},
		{"tenure above max", LoanAdjustment{TenureMonths: new(120)}, 86496, 60},
		{"both", LoanAdjustment{Principal: new(decimal.NewFromInt(60000)), TenureMonths: new(48)}, 60000, 48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.toCustomization(t)
			require.NoError(t, f.j.AdjustLoan(tt.adj))

			snap := f.j.Snapshot()
			require.True(t, snap.Offer.Principal.Equal(decimal.NewFromInt(tt.wantPrincipal)), snap.Offer.Principal.String())
			require.Equal(t, tt.wantTenure, snap.Offer.TenureMonths)
			require.Equal(t, finance.Terms(snap.Offer.Principal, tt.wantTenure, rate), snap.Terms)
			require.True(t, snap.Offer.MaxPrincipal.Equal(decimal.NewFromInt(172992)))
		})
	}

	t.Run("empty adjustment rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.toCustomization(t)
		require.ErrorIs(t, f.j.AdjustLoan(LoanAdjustment{}), ErrInvalidInput)
	})
}

func TestSnapTenure(t *testing.T) {
	t.Parallel()

	tests := map[int]int{-5: 6, 0: 6, 6: 6, 8: 6, 9: 12, 24: 24, 27: 30, 59: 60, 60: 60, 61: 60}
	for in, want := range tests {
		require.Equal(t, want, SnapTenure(in), "input %d", in)
	}
}

func TestJourney_OTPSequence(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.toCustomization(t)
	require.NoError(t, f.j.AcceptOffer())
	require.ErrorIs(t, f.j.SendOTP(), ErrWrongPhase)
	require.NoError(t, f.j.AcceptTerms())
	require.NoError(t, f.j.SendOTP())

	snap := f.j.Snapshot()
	require.Equal(t, models.OTPStageSending, snap.Compliance.OTPStage)
	require.True(t, snap.Pending)
	require.ErrorIs(t, f.j.SendOTP(), ErrBusy)
	require.ErrorIs(t, f.j.ConfirmMandate(), ErrBusy)

	stages := []struct {
		stage    models.OTPStage
		sent     bool
		otp      string
		verified bool
		step     ComplianceStep
	}{
		{models.OTPStageAutofilling, true, "", false, StepAadhaar},
		{models.OTPStageVerifying, true, "482913", false, StepAadhaar},
		{models.OTPStageVerified, true, "482913", true, StepENach},
	}
	for _, want := range stages {
		require.Equal(t, 1, f.sched.Pending(), "steps must be chained, not scheduled together")
		require.True(t, f.sched.RunNext())
		snap = f.j.Snapshot()
		require.Equal(t, want.stage, snap.Compliance.OTPStage)
		require.Equal(t, want.sent, snap.Compliance.OTPSent)
		require.Equal(t, want.otp, snap.Compliance.OTP)
		require.Equal(t, want.verified, snap.Compliance.OTPVerified)
		require.Equal(t, want.step, snap.ComplianceStep)
	}
	require.False(t, snap.Pending)
	require.Zero(t, f.sched.Pending())

	require.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 1500 * time.Millisecond, 1200 * time.Millisecond}, f.sched.Delays())
	// analysis + three otp steps
	require.Len(t, f.rec.progress, 4)
}

func TestJourney_DismissPayload(t *testing.T) {
	t.Parallel()

	t.Run("intake has no payload", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.j.SubmitDestination("Japan"))
		saved, err := f.j.Dismiss()
		require.NoError(t, err)
		require.Nil(t, saved)
		require.Equal(t, 1, f.rec.dismisses)
		require.Nil(t, f.rec.dismissed[0])
	})

	t.Run("gap analysis has no payload", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.toGapAnalysis(t)
		saved, err := f.j.Dismiss()
		require.NoError(t, err)
		require.Nil(t, saved)
	})

	t.Run("pre-approved returns current offer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.toGapAnalysis(t)
		require.NoError(t, f.j.AcceptGap())
		saved, err := f.j.Dismiss()
		require.NoError(t, err)
		require.NotNil(t, saved)
		require.Equal(t, "Japan", saved.Destination)
		require.True(t, saved.Principal.Equal(decimal.NewFromInt(86496)))
		require.Equal(t, 24, saved.TenureMonths)
		require.Equal(t, fixedNow, saved.CreatedAt)
		require.NotEmpty(t, saved.ID)
	})

	t.Run("customization returns adjusted offer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.toCustomization(t)
		require.NoError(t, f.j.AdjustLoan(LoanAdjustment{Principal: new(decimal.NewFromInt(100000)), TenureMonths: new(36)}))
		saved, err := f.j.Dismiss()
		require.NoError(t, err)

		snap := f.j.Snapshot()
		require.True(t, saved.Principal.Equal(snap.Offer.Principal))
		require.Equal(t, snap.Offer.TenureMonths, saved.TenureMonths)
		require.True(t, saved.EMI.Equal(snap.Terms.EMI))
		require.True(t, saved.AnnualRatePercent.Equal(snap.Offer.AnnualRatePercent))

		require.Len(t, f.rec.dismissed, 1)
		require.Equal(t, *saved, *f.rec.dismissed[0])
	})
}

func TestJourney_DismissClosesJourney(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.toGapAnalysis(t)
	_, err := f.j.Dismiss()
	require.NoError(t, err)

	require.True(t, f.j.Snapshot().Closed())
	require.ErrorIs(t, f.j.AcceptGap(), ErrClosed)
	_, err = f.j.Dismiss()
	require.ErrorIs(t, err, ErrClosed)
	require.Equal(t, 1, f.rec.dismisses)
}

func TestJourney_DismissCancelsPendingAnalysis(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.j.SubmitDestination("Japan"))
	require.NoError(t, f.j.SubmitTravelDetails(2, 7))
	require.NoError(t, f.j.SubmitInterests([]string{"Tokyo"}, nil, ""))
	require.True(t, f.j.Snapshot().Pending)

	saved, err := f.j.Dismiss()
	require.NoError(t, err)
	require.Nil(t, saved)

	f.sched.RunAll()
	snap := f.j.Snapshot()
	require.Equal(t, PhaseIntake, snap.Phase)
	require.Nil(t, snap.Trip)
	require.False(t, snap.Pending)
	require.Empty(t, f.rec.progress)
}

func TestJourney_DismissMidOTPStopsTimers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.toCustomization(t)
	require.NoError(t, f.j.AcceptOffer())
	require.NoError(t, f.j.AcceptTerms())
	require.NoError(t, f.j.SendOTP())
	require.True(t, f.sched.RunNext())
	progressBefore := len(f.rec.progress)

	saved, err := f.j.Dismiss()
	require.NoError(t, err)
	require.NotNil(t, saved)

	f.sched.RunAll()
	snap := f.j.Snapshot()
	require.Equal(t, models.OTPStageAutofilling, snap.Compliance.OTPStage)
	require.False(t, snap.Compliance.OTPVerified)
	require.Empty(t, snap.Compliance.OTP)
	require.Equal(t, StepAadhaar, snap.ComplianceStep)
	require.Len(t, f.rec.progress, progressBefore)
}

func TestJourney_DisbursementIsTerminal(t *testing.T) {
	t.Parallel()

	calls := 0
	f := newFixture(t, func(o *Options) {
		o.NewAccountNumber = func() string {
			calls++
			return "TRV7654321"
		}
	})
	f.toMandate(t)
	require.NoError(t, f.j.ConfirmMandate())

	require.ErrorIs(t, f.j.ConfirmMandate(), ErrClosed)
	require.ErrorIs(t, f.j.AdjustLoan(LoanAdjustment{TenureMonths: new(12)}), ErrClosed)
	_, err := f.j.Dismiss()
	require.ErrorIs(t, err, ErrClosed)

	snap := f.j.Snapshot()
	require.Equal(t, "TRV7654321", snap.AccountNumber)
	require.Equal(t, snap.AccountNumber, f.j.Snapshot().AccountNumber)
	require.Equal(t, 1, calls)
	require.Len(t, f.rec.completed, 1)
	require.Zero(t, f.rec.dismisses)
}

func TestJourney_ParentContextCancellationStopsTimers(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	sched := NewManualScheduler()
	j := New(ctx, Options{
		Finances:  models.FinancialSnapshot{LiquidCash: decimal.NewFromInt(100000)},
		Scheduler: sched,
	})
	require.NoError(t, j.SubmitDestination("Thailand"))
	require.NoError(t, j.SubmitTravelDetails(1, 5))
	require.NoError(t, j.SubmitInterests([]string{"Bangkok"}, nil, ""))

	cancel()
	sched.RunAll()
	require.Nil(t, j.Snapshot().Trip)
}

func TestJourney_WithImmediateScheduler(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(o *Options) { o.Scheduler = ImmediateScheduler{} })
	require.NoError(t, f.j.SubmitDestination("Japan"))
	require.NoError(t, f.j.SubmitTravelDetails(2, 7))
	require.NoError(t, f.j.SubmitInterests([]string{"Tokyo"}, nil, ""))
	require.Equal(t, PhaseGapAnalysis, f.j.Snapshot().Phase)

	require.NoError(t, f.j.AcceptGap())
	require.NoError(t, f.j.GiveCreditConsent())
	require.NoError(t, f.j.ProceedToCustomization())
	require.NoError(t, f.j.AcceptOffer())
	require.NoError(t, f.j.AcceptTerms())
	require.NoError(t, f.j.SendOTP())
	require.Equal(t, StepENach, f.j.Snapshot().ComplianceStep)
	require.NoError(t, f.j.ConfirmMandate())
	require.Equal(t, AllPhases(), f.j.Phases())
}

func TestJourney_WithTimerScheduler(t *testing.T) {
	t.Parallel()

	done := make(chan Snapshot, 1)
	j := New(context.Background(), Options{
		Finances: models.FinancialSnapshot{LiquidCash: decimal.NewFromInt(500000)},
		Policy: Policy{
			AnnualRatePercent: decimal.NewFromInt(12),
			AnalysisDelay:     5 * time.Millisecond,
		},
		OnProgress: func(s Snapshot) { done <- s },
	})
	require.NoError(t, j.SubmitDestination("Dubai"))
	require.NoError(t, j.SubmitTravelDetails(2, 5))
	require.NoError(t, j.SubmitInterests(nil, nil, "desert safari"))

	select {
	case snap := <-done:
		require.Equal(t, PhaseGapAnalysis, snap.Phase)
	case <-time.After(2 * time.Second):
		t.Fatal("analysis did not resolve")
	}
}

func TestPhaseIndex(t *testing.T) {
	t.Parallel()

	for i, p := range AllPhases() {
		require.Equal(t, i, p.Index())
	}
	require.Equal(t, -1, Phase("UNKNOWN").Index())
}

func TestPersonaDefaults(t *testing.T) {
	t.Parallel()

	defaults := PersonaDefaults{
		"solo":   {Destination: "Vietnam", Travelers: 1, Days: 10},
		"broken": {Travelers: 40, Days: 1},
	}
	require.Equal(t, Defaults{Destination: "Vietnam", Travelers: 1, Days: 10}, defaults.For("solo"))
	require.Equal(t, Defaults{Travelers: DefaultTravelers, Days: DefaultDays}, defaults.For("broken"))
	require.Equal(t, Defaults{Travelers: DefaultTravelers, Days: DefaultDays}, defaults.For("missing"))
	require.Equal(t, Defaults{Travelers: DefaultTravelers, Days: DefaultDays}, PersonaDefaults(nil).For("x"))
}

func TestIDs(t *testing.T) {
	t.Parallel()

	acct := NewAccountNumber()
	require.Regexp(t, `^TRV\d{7}$`, acct)
	require.Regexp(t, `^\d{6}$`, NewOTP())
	require.NotEqual(t, NewJourneyID(), NewJourneyID())
}
