// Package models defines the domain entities for the trip-financing assistant.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency every loan and estimate is denominated in.
const DefaultCurrency = "INR"

// Bounds for a trip specification.
const (
	MinTravelers = 1
	MaxTravelers = 10
	MinTripDays  = 3
	MaxTripDays  = 45
)

// Interest tags that change the cost estimate.
const (
	InterestRelaxation = "Relaxation & Spa"
	InterestShopping   = "Shopping"
	InterestNightlife  = "Nightlife"
	InterestFood       = "Food & Cuisine"
)

// Interests lists the interest tags offered during intake, in display order.
var Interests = []string{
	"Sightseeing",
	"Adventure",
	InterestFood,
	"Culture & History",
	InterestRelaxation,
	InterestShopping,
	InterestNightlife,
	"Nature & Wildlife",
}

// DestinationProfile is the reference cost data for one destination.
type DestinationProfile struct {
	Name            string
	Emoji           string
	PerPersonPerDay decimal.Decimal
	FlightBase      decimal.Decimal
	VisaCost        decimal.Decimal
	// Currency is the destination's local ISO currency code, empty when unknown.
	Currency string
}

// TripSpecification is the user's trip request, built up during intake.
type TripSpecification struct {
	Destination   string
	TravelerCount int
	Days          int
	Cities        []string
	Interests     []string
	Notes         string
}

// HasValidTravelers reports whether the traveler count is within bounds.
func (s TripSpecification) HasValidTravelers() bool {
	return s.TravelerCount >= MinTravelers && s.TravelerCount <= MaxTravelers
}

// HasValidDays reports whether the trip length is within bounds.
func (s TripSpecification) HasValidDays() bool {
	return s.Days >= MinTripDays && s.Days <= MaxTripDays
}

// IsComplete reports whether the specification can be costed without further intake.
func (s TripSpecification) IsComplete() bool {
	return s.Destination != "" && s.HasValidTravelers() && s.HasValidDays()
}

// CostBreakdown itemizes an estimated trip cost.
type CostBreakdown struct {
	Flights    decimal.Decimal
	Hotels     decimal.Decimal
	Activities decimal.Decimal
	Food       decimal.Decimal
	Visa       decimal.Decimal
}

// Total returns the sum of all components.
func (b CostBreakdown) Total() decimal.Decimal {
	return b.Flights.Add(b.Hotels).Add(b.Activities).Add(b.Food).Add(b.Visa)
}

// TripDetails is the costed trip, derived once per journey from a TripSpecification.
type TripDetails struct {
	Destination         string
	Emoji               string
	Travelers           int
	TravelerDescription string
	Days                int
	Cities              []string
	Interests           []string
	EstimatedCost       decimal.Decimal
	Breakdown           CostBreakdown
	Currency            string
}

// GapAnalysis splits an estimated cost into the part savings can cover and the shortfall.
type GapAnalysis struct {
	CoveredAmount    decimal.Decimal
	ShortfallAmount  decimal.Decimal
	CoveredPercent   int
	ShortfallPercent int
}

// LoanOffer is the pre-approved loan and its adjustable parameters.
type LoanOffer struct {
	Principal         decimal.Decimal
	TenureMonths      int
	AnnualRatePercent decimal.Decimal
	ProcessingFee     decimal.Decimal
	// MinPrincipal and MaxPrincipal are fixed when the offer is made.
	MinPrincipal decimal.Decimal
	MaxPrincipal decimal.Decimal
}

// LoanTerms are the repayment figures for a LoanOffer.
type LoanTerms struct {
	EMI           decimal.Decimal
	TotalPayable  decimal.Decimal
	TotalInterest decimal.Decimal
}

// OTPStage tracks the simulated e-sign verification.
type OTPStage string

// OTP stages in the order they are visited.
const (
	OTPStageIdle        OTPStage = "idle"
	OTPStageSending     OTPStage = "sending"
	OTPStageAutofilling OTPStage = "autofilling"
	OTPStageVerifying   OTPStage = "verifying"
	OTPStageVerified    OTPStage = "verified"
)

// ComplianceState records the terms, e-sign and mandate sequence. Flags never revert.
type ComplianceState struct {
	TermsAccepted    bool
	OTP              string
	OTPSent          bool
	OTPVerified      bool
	OTPStage         OTPStage
	MandateConfirmed bool
}

// FinancialSnapshot is the customer's position supplied by the embedding system.
type FinancialSnapshot struct {
	LiquidCash    decimal.Decimal
	ImmediateNeed decimal.Decimal
	LongTermGoal  decimal.Decimal
}

// Persona describes the customer for tone and default seeding only.
type Persona struct {
	ID         string
	Name       string
	Salutation string
}

// SavedOffer is handed to the embedding system when a journey with an offer is dismissed.
type SavedOffer struct {
	ID                string
	UserID            int64
	Destination       string
	Principal         decimal.Decimal
	EMI               decimal.Decimal
	AnnualRatePercent decimal.Decimal
	TenureMonths      int
	CreatedAt         time.Time
	RemindedAt        *time.Time
}

// CompletionEvent is emitted once when a loan is disbursed.
type CompletionEvent struct {
	JourneyID         string
	Principal         decimal.Decimal
	TenureMonths      int
	EMI               decimal.Decimal
	AnnualRatePercent decimal.Decimal
	AccountNumber     string
	Destination       string
	DisbursedAt       time.Time
}

// User represents a Telegram user.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LoanAccount is a disbursed loan as recorded by the embedding system.
type LoanAccount struct {
	ID                int
	UserID            int64
	AccountNumber     string
	JourneyID         string
	Destination       string
	Principal         decimal.Decimal
	TenureMonths      int
	EMI               decimal.Decimal
	AnnualRatePercent decimal.Decimal
	DisbursedAt       time.Time
}
