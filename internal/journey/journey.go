// Package journey implements the trip-financing loan journey: a forward-only phase machine
// from trip intake to disbursement, with simulated asynchronous steps that can be cancelled.
package journey

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/catalog"
	"gitlab.com/yelinaung/tripfund-bot/internal/finance"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// Tenure bounds in months.
const (
	MinTenureMonths     = 6
	MaxTenureMonths     = 60
	TenureStepMonths    = 6
	DefaultTenureMonths = 24
)

// Policy holds the configurable loan pricing and simulated delays.
type Policy struct {
	AnnualRatePercent decimal.Decimal
	ProcessingFee     decimal.Decimal
	AnalysisDelay     time.Duration
	OTPDeliveryDelay  time.Duration
	OTPAutofillDelay  time.Duration
	OTPVerifyDelay    time.Duration
}

// DefaultPolicy returns the reference pricing and delays.
func DefaultPolicy() Policy {
	return Policy{
		AnnualRatePercent: decimal.RequireFromString("10.49"),
		ProcessingFee:     decimal.NewFromInt(1499),
		AnalysisDelay:     2 * time.Second,
		OTPDeliveryDelay:  2 * time.Second,
		OTPAutofillDelay:  1500 * time.Millisecond,
		OTPVerifyDelay:    1200 * time.Millisecond,
	}
}

// Options configures a Journey. Zero values get working defaults.
type Options struct {
	Catalog   *catalog.Catalog
	Finances  models.FinancialSnapshot
	Persona   models.Persona
	Defaults  PersonaDefaults
	Policy    Policy
	Scheduler Scheduler
	Now       func() time.Time

	NewID            func() string
	NewAccountNumber func() string
	NewOTP           func() string

	// OnProgress is called after a simulated delay resolves.
	OnProgress func(Snapshot)
	// OnComplete is called once, after disbursement.
	OnComplete func(models.CompletionEvent)
	// OnDismiss is called once on dismissal. The offer is nil before PRE_APPROVED.
	OnDismiss func(*models.SavedOffer)
}

// LoanAdjustment changes the offer during customization. Nil fields are left alone.
type LoanAdjustment struct {
	Principal    *decimal.Decimal
	TenureMonths *int
}

// Snapshot is a copy of the journey state. Mutating it has no effect on the journey.
type Snapshot struct {
	ID             string
	Phase          Phase
	IntakeStep     IntakeStep
	ComplianceStep ComplianceStep
	Persona        models.Persona
	Defaults       Defaults
	Spec           models.TripSpecification
	Trip           *models.TripDetails
	Gap            *models.GapAnalysis
	Offer          models.LoanOffer
	Terms          models.LoanTerms
	Compliance     models.ComplianceState
	CreditConsent  bool
	AccountNumber  string
	Disbursed      bool
	Dismissed      bool
	Pending        bool
	// SuggestedCities is filled while the journey waits for city selection.
	SuggestedCities []string
}

// Closed reports whether the journey accepts no further transitions.
func (s Snapshot) Closed() bool {
	return s.Disbursed || s.Dismissed
}

// Journey is one trip-financing request. All methods are safe for concurrent use;
// transitions are serialized and re-validated on every call.
type Journey struct {
	mu sync.Mutex

	id       string
	catalog  *catalog.Catalog
	finances models.FinancialSnapshot
	persona  models.Persona
	defaults Defaults
	policy   Policy
	sched    Scheduler
	now      func() time.Time

	newAccountNumber func() string
	newOTP           func() string

	onProgress func(Snapshot)
	onComplete func(models.CompletionEvent)
	onDismiss  func(*models.SavedOffer)

	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	// pending is the token of the in-flight simulated step, zero when idle.
	pending uint64
	seq     uint64
	// outbox holds work to run after the lock is released.
	outbox []func()

	phase            Phase
	intakeStep       IntakeStep
	complianceStep   ComplianceStep
	history          []Phase
	spec             models.TripSpecification
	profile          models.DestinationProfile
	trip             *models.TripDetails
	gap              *models.GapAnalysis
	offer            models.LoanOffer
	terms            models.LoanTerms
	compliance       models.ComplianceState
	consent          bool
	initialShortfall decimal.Decimal
	accountNumber    string
	disbursed        bool
	dismissed        bool
}

// New starts a journey at the destination step. Cancelling ctx stops any pending simulated step.
func New(ctx context.Context, opts Options) *Journey {
	if opts.Catalog == nil {
		opts.Catalog = catalog.New(nil)
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = NewJourneyID
	}
	if opts.NewAccountNumber == nil {
		opts.NewAccountNumber = NewAccountNumber
	}
	if opts.NewOTP == nil {
		opts.NewOTP = NewOTP
	}
	if opts.Policy.AnnualRatePercent.IsZero() {
		opts.Policy.AnnualRatePercent = DefaultPolicy().AnnualRatePercent
	}

	j := &Journey{
		id:               opts.NewID(),
		catalog:          opts.Catalog,
		finances:         opts.Finances,
		persona:          opts.Persona,
		defaults:         opts.Defaults.For(opts.Persona.ID),
		policy:           opts.Policy,
		sched:            opts.Scheduler,
		now:              opts.Now,
		newAccountNumber: opts.NewAccountNumber,
		newOTP:           opts.NewOTP,
		onProgress:       opts.OnProgress,
		onComplete:       opts.OnComplete,
		onDismiss:        opts.OnDismiss,
		phase:            PhaseIntake,
		intakeStep:       StepDestination,
		history:          []Phase{PhaseIntake},
		compliance:       models.ComplianceState{OTPStage: models.OTPStageIdle},
	}
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.log = logger.ForJourney(j.id)
	j.log.Info().Str("phase", string(j.phase)).Str("step", string(j.intakeStep)).Msg("Journey started")
	return j
}

// ID returns the journey identifier.
func (j *Journey) ID() string {
	return j.id
}

// Catalog returns the destination catalog the journey costs trips against.
func (j *Journey) Catalog() *catalog.Catalog {
	return j.catalog
}

// Snapshot returns a copy of the current state.
func (j *Journey) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

// Phases returns every phase visited so far, in order.
func (j *Journey) Phases() []Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.history)
}

func (j *Journey) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:             j.id,
		Phase:          j.phase,
		IntakeStep:     j.intakeStep,
		ComplianceStep: j.complianceStep,
		Persona:        j.persona,
		Defaults:       j.defaults,
		Spec:           cloneSpec(j.spec),
		Offer:          j.offer,
		Terms:          j.terms,
		Compliance:     j.compliance,
		CreditConsent:  j.consent,
		AccountNumber:  j.accountNumber,
		Disbursed:      j.disbursed,
		Dismissed:      j.dismissed,
		Pending:        j.pending != 0,
	}
	if j.trip != nil {
		trip := *j.trip
		trip.Cities = slices.Clone(trip.Cities)
		trip.Interests = slices.Clone(trip.Interests)
		s.Trip = &trip
	}
	if j.gap != nil {
		gap := *j.gap
		s.Gap = &gap
	}
	if j.phase == PhaseIntake && j.intakeStep == StepCities {
		s.SuggestedCities = j.catalog.SuggestedCities(j.spec.Destination, catalog.DefaultCityCount)
	}
	return s
}

func cloneSpec(spec models.TripSpecification) models.TripSpecification {
	spec.Cities = slices.Clone(spec.Cities)
	spec.Interests = slices.Clone(spec.Interests)
	return spec
}

// transition runs fn under the lock, then flushes the outbox. Rejections are logged at debug.
func (j *Journey) transition(op string, fn func() error) error {
	j.mu.Lock()
	err := fn()
	outbox := j.outbox
	j.outbox = nil
	j.mu.Unlock()

	for _, f := range outbox {
		f()
	}
	if err != nil {
		j.log.Debug().Str("op", op).Err(err).Msg("Transition rejected")
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ready checks the preconditions shared by every transition except dismissal.
func (j *Journey) ready(phase Phase) error {
	if j.disbursed || j.dismissed {
		return ErrClosed
	}
	if j.pending != 0 {
		return ErrBusy
	}
	if j.phase != phase {
		return fmt.Errorf("%w: in %s, need %s", ErrWrongPhase, j.phase, phase)
	}
	return nil
}

func (j *Journey) readyIntake(step IntakeStep) error {
	if err := j.ready(PhaseIntake); err != nil {
		return err
	}
	if j.intakeStep != step {
		return fmt.Errorf("%w: at step %s, need %s", ErrWrongPhase, j.intakeStep, step)
	}
	return nil
}

func (j *Journey) readyCompliance(step ComplianceStep) error {
	if err := j.ready(PhaseCompliance); err != nil {
		return err
	}
	if j.complianceStep != step {
		return fmt.Errorf("%w: at step %s, need %s", ErrWrongPhase, j.complianceStep, step)
	}
	return nil
}

func (j *Journey) enterPhase(p Phase) {
	j.phase = p
	j.history = append(j.history, p)
	j.logState("Journey phase changed")
}

func (j *Journey) logState(msg string) {
	ev := j.log.Info().Str("phase", string(j.phase))
	switch j.phase {
	case PhaseIntake:
		ev = ev.Str("step", string(j.intakeStep))
	case PhaseCompliance:
		ev = ev.Str("step", string(j.complianceStep))
	}
	ev.Msg(msg)
}

// schedule queues a simulated step guarded by token. The step is dropped if the journey
// was dismissed or moved on before it fires.
func (j *Journey) schedule(token uint64, delay time.Duration, step func()) {
	ctx := j.ctx
	j.outbox = append(j.outbox, func() {
		j.sched.Schedule(ctx, delay, func() {
			j.mu.Lock()
			if j.pending != token || j.dismissed || j.disbursed {
				j.mu.Unlock()
				return
			}
			step()
			snap := j.snapshotLocked()
			outbox := j.outbox
			j.outbox = nil
			j.mu.Unlock()

			if j.onProgress != nil {
				j.onProgress(snap)
			}
			for _, f := range outbox {
				f()
			}
		})
	})
}

func (j *Journey) beginPending() uint64 {
	j.seq++
	j.pending = j.seq
	return j.pending
}

// SubmitDestination records the destination and moves to traveler details.
// Unknown destinations are added to the catalog with the default profile.
func (j *Journey) SubmitDestination(name string) error {
	return j.transition("submit destination", func() error {
		if err := j.readyIntake(StepDestination); err != nil {
			return err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("%w: destination is required", ErrInvalidInput)
		}
		j.profile = j.catalog.Lookup(name)
		j.spec.Destination = name
		j.spec.TravelerCount = j.defaults.Travelers
		j.spec.Days = j.defaults.Days
		j.intakeStep = StepTravelers
		j.logState("Destination submitted")
		return nil
	})
}

// SubmitItinerary applies a specification parsed from an uploaded itinerary. A complete
// specification starts the analysis directly; otherwise intake resumes at traveler details
// with the usable fields kept.
func (j *Journey) SubmitItinerary(spec models.TripSpecification) error {
	return j.transition("submit itinerary", func() error {
		if err := j.readyIntake(StepDestination); err != nil {
			return err
		}
		spec = cloneSpec(spec)
		spec.Destination = strings.TrimSpace(spec.Destination)
		if spec.Destination == "" {
			return fmt.Errorf("%w: itinerary has no destination", ErrInvalidInput)
		}
		spec.Cities = cleanSet(spec.Cities)
		spec.Interests = lo.Filter(cleanSet(spec.Interests), func(s string, _ int) bool {
			return lo.Contains(models.Interests, s)
		})
		spec.Notes = strings.TrimSpace(spec.Notes)

		j.profile = j.catalog.Lookup(spec.Destination)
		if spec.IsComplete() {
			j.spec = spec
			j.startAnalysis()
			return nil
		}
		if !spec.HasValidTravelers() {
			spec.TravelerCount = j.defaults.Travelers
		}
		if !spec.HasValidDays() {
			spec.Days = j.defaults.Days
		}
		j.spec = spec
		j.intakeStep = StepTravelers
		j.logState("Itinerary incomplete, continuing intake")
		return nil
	})
}

// SubmitTravelDetails records traveler count and trip length and moves to city selection.
func (j *Journey) SubmitTravelDetails(travelers, days int) error {
	return j.transition("submit travel details", func() error {
		if err := j.readyIntake(StepTravelers); err != nil {
			return err
		}
		candidate := models.TripSpecification{TravelerCount: travelers, Days: days}
		if !candidate.HasValidTravelers() {
			return fmt.Errorf("%w: travelers must be %d-%d", ErrInvalidInput, models.MinTravelers, models.MaxTravelers)
		}
		if !candidate.HasValidDays() {
			return fmt.Errorf("%w: days must be %d-%d", ErrInvalidInput, models.MinTripDays, models.MaxTripDays)
		}
		j.spec.TravelerCount = travelers
		j.spec.Days = days
		j.intakeStep = StepCities
		j.logState("Travel details submitted")
		return nil
	})
}

// ToggleCity adds or removes a city from the draft selection.
func (j *Journey) ToggleCity(city string) error {
	return j.transition("toggle city", func() error {
		if err := j.readyIntake(StepCities); err != nil {
			return err
		}
		city = strings.TrimSpace(city)
		if city == "" {
			return fmt.Errorf("%w: city is required", ErrInvalidInput)
		}
		j.spec.Cities = toggle(j.spec.Cities, city)
		return nil
	})
}

// ToggleInterest adds or removes an interest from the draft selection.
func (j *Journey) ToggleInterest(interest string) error {
	return j.transition("toggle interest", func() error {
		if err := j.readyIntake(StepCities); err != nil {
			return err
		}
		if !lo.Contains(models.Interests, interest) {
			return fmt.Errorf("%w: unknown interest %q", ErrInvalidInput, interest)
		}
		j.spec.Interests = toggle(j.spec.Interests, interest)
		return nil
	})
}

// SetNotes replaces the free-text trip notes in the draft.
func (j *Journey) SetNotes(notes string) error {
	return j.transition("set notes", func() error {
		if err := j.readyIntake(StepCities); err != nil {
			return err
		}
		j.spec.Notes = strings.TrimSpace(notes)
		j.log.Debug().Str("notes", logger.SanitizeNotes(j.spec.Notes)).Msg("Trip notes updated")
		return nil
	})
}

// ConfirmInterests submits the draft selection and starts the analysis.
func (j *Journey) ConfirmInterests() error {
	return j.transition("confirm interests", func() error {
		if err := j.readyIntake(StepCities); err != nil {
			return err
		}
		if len(j.spec.Cities) == 0 && j.spec.Notes == "" {
			return fmt.Errorf("%w: pick a city or add notes", ErrInvalidInput)
		}
		j.startAnalysis()
		return nil
	})
}

// SubmitInterests replaces the selection in one call and starts the analysis.
func (j *Journey) SubmitInterests(cities, interests []string, notes string) error {
	return j.transition("submit interests", func() error {
		if err := j.readyIntake(StepCities); err != nil {
			return err
		}
		cities = cleanSet(cities)
		interests = cleanSet(interests)
		notes = strings.TrimSpace(notes)
		if len(cities) == 0 && notes == "" {
			return fmt.Errorf("%w: pick a city or add notes", ErrInvalidInput)
		}
		for _, interest := range interests {
			if !lo.Contains(models.Interests, interest) {
				return fmt.Errorf("%w: unknown interest %q", ErrInvalidInput, interest)
			}
		}
		j.spec.Cities = cities
		j.spec.Interests = interests
		j.spec.Notes = notes
		j.startAnalysis()
		return nil
	})
}

// startAnalysis moves to ANALYZING and schedules the costing. Caller holds the lock.
func (j *Journey) startAnalysis() {
	j.intakeStep = StepAnalyzing
	j.logState("Analysis started")
	token := j.beginPending()
	j.schedule(token, j.policy.AnalysisDelay, j.finishAnalysis)
}

func (j *Journey) finishAnalysis() {
	details := finance.Estimate(j.spec, j.profile)
	gap := finance.Analyze(details.EstimatedCost, j.finances.LiquidCash)

	j.trip = &details
	j.gap = &gap
	j.initialShortfall = gap.ShortfallAmount
	j.offer = models.LoanOffer{
		Principal:         gap.ShortfallAmount,
		TenureMonths:      DefaultTenureMonths,
		AnnualRatePercent: j.policy.AnnualRatePercent,
		ProcessingFee:     j.policy.ProcessingFee,
		MinPrincipal:      finance.MinLoanAmount,
		MaxPrincipal:      gap.ShortfallAmount.Mul(decimal.NewFromInt(2)),
	}
	j.terms = finance.Terms(j.offer.Principal, j.offer.TenureMonths, j.offer.AnnualRatePercent)
	j.pending = 0

	j.log.Info().
		Str("total", details.EstimatedCost.String()).
		Str("shortfall", gap.ShortfallAmount.String()).
		Msg("Analysis complete")
	j.enterPhase(PhaseGapAnalysis)
}

// AcceptGap acknowledges the gap analysis and shows the pre-approved offer.
func (j *Journey) AcceptGap() error {
	return j.transition("accept gap", func() error {
		if err := j.ready(PhaseGapAnalysis); err != nil {
			return err
		}
		j.enterPhase(PhasePreApproved)
		return nil
	})
}

// GiveCreditConsent records the credit-check consent required before customization.
func (j *Journey) GiveCreditConsent() error {
	return j.transition("give credit consent", func() error {
		if err := j.ready(PhasePreApproved); err != nil {
			return err
		}
		j.consent = true
		return nil
	})
}

// ProceedToCustomization opens loan customization once consent is given.
func (j *Journey) ProceedToCustomization() error {
	return j.transition("proceed to customization", func() error {
		if err := j.ready(PhasePreApproved); err != nil {
			return err
		}
		if !j.consent {
			return fmt.Errorf("%w: credit consent required", ErrInvalidInput)
		}
		j.enterPhase(PhaseCustomization)
		return nil
	})
}

// AdjustLoan changes principal and/or tenure. Values are clamped to the offer bounds;
// tenure snaps to the nearest step.
func (j *Journey) AdjustLoan(adj LoanAdjustment) error {
	return j.transition("adjust loan", func() error {
		if err := j.ready(PhaseCustomization); err != nil {
			return err
		}
		if adj.Principal == nil && adj.TenureMonths == nil {
			return fmt.Errorf("%w: nothing to adjust", ErrInvalidInput)
		}
		if adj.Principal != nil {
			j.offer.Principal = clampPrincipal(*adj.Principal, j.offer.MinPrincipal, j.offer.MaxPrincipal)
		}
		if adj.TenureMonths != nil {
			j.offer.TenureMonths = SnapTenure(*adj.TenureMonths)
		}
		j.terms = finance.Terms(j.offer.Principal, j.offer.TenureMonths, j.offer.AnnualRatePercent)
		j.log.Debug().
			Str("principal", j.offer.Principal.String()).
			Int("tenure", j.offer.TenureMonths).
			Msg("Loan adjusted")
		return nil
	})
}

// AcceptOffer locks in the customized offer and starts compliance.
func (j *Journey) AcceptOffer() error {
	return j.transition("accept offer", func() error {
		if err := j.ready(PhaseCustomization); err != nil {
			return err
		}
		j.complianceStep = StepTerms
		j.enterPhase(PhaseCompliance)
		return nil
	})
}

// Dismiss cancels the journey in any phase before disbursement. Pending simulated steps
// are stopped. From PRE_APPROVED onward the current offer is returned for later resumption.
func (j *Journey) Dismiss() (*models.SavedOffer, error) {
	var saved *models.SavedOffer
	err := j.transition("dismiss", func() error {
		if j.disbursed || j.dismissed {
			return ErrClosed
		}
		j.cancel()
		j.pending = 0
		j.dismissed = true

		if j.phase.Index() >= PhasePreApproved.Index() {
			saved = &models.SavedOffer{
				ID:                NewJourneyID(),
				Destination:       j.spec.Destination,
				Principal:         j.offer.Principal,
				EMI:               j.terms.EMI,
				AnnualRatePercent: j.offer.AnnualRatePercent,
				TenureMonths:      j.offer.TenureMonths,
				CreatedAt:         j.now(),
			}
		}
		j.log.Info().Str("phase", string(j.phase)).Bool("saved_offer", saved != nil).Msg("Journey dismissed")

		if j.onDismiss != nil {
			payload := saved
			if payload != nil {
				copied := *payload
				payload = &copied
			}
			j.outbox = append(j.outbox, func() { j.onDismiss(payload) })
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SnapTenure clamps months to the tenure bounds and rounds to the nearest step.
func SnapTenure(months int) int {
	months = lo.Clamp(months, MinTenureMonths, MaxTenureMonths)
	snapped := (months + TenureStepMonths/2) / TenureStepMonths * TenureStepMonths
	return lo.Clamp(snapped, MinTenureMonths, MaxTenureMonths)
}

func clampPrincipal(p, lower, upper decimal.Decimal) decimal.Decimal {
	p = p.Round(0)
	if p.LessThan(lower) {
		return lower
	}
	if p.GreaterThan(upper) {
		return upper
	}
	return p
}

func toggle(set []string, item string) []string {
	if lo.Contains(set, item) {
		return lo.Without(set, item)
	}
	return append(slices.Clone(set), item)
}

func cleanSet(items []string) []string {
	out := lo.Uniq(lo.FilterMap(items, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	}))
	if len(out) == 0 {
		return nil
	}
	return out
}
