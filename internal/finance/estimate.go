// Package finance holds the pure trip-costing and loan arithmetic used by the journey.
//
// All amounts are whole currency units. Multipliers are applied before rounding and
// each component is rounded exactly once, so results are reproducible across runs.
package finance

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

var (
	hotelShare     = decimal.RequireFromString("0.4")
	activityShare  = decimal.RequireFromString("0.25")
	foodShare      = decimal.RequireFromString("0.2")
	perCityBoost   = decimal.RequireFromString("0.05")
	luxuryBoost    = decimal.RequireFromString("1.15")
	notesBoost     = decimal.RequireFromString("1.05")
	foodieBoost    = decimal.RequireFromString("1.1")
	decimalOne     = decimal.NewFromInt(1)
	luxuryInterest = []string{models.InterestRelaxation, models.InterestShopping, models.InterestNightlife}
)

// Estimate costs a trip specification against a destination profile.
func Estimate(spec models.TripSpecification, profile models.DestinationProfile) models.TripDetails {
	travelers := decimal.NewFromInt(int64(spec.TravelerCount))
	days := decimal.NewFromInt(int64(spec.Days))
	cities := lo.Uniq(spec.Cities)
	interests := lo.Uniq(spec.Interests)

	dailyCost := profile.PerPersonPerDay.Mul(travelers)

	luxury := decimalOne
	if lo.SomeBy(interests, func(i string) bool { return slices.Contains(luxuryInterest, i) }) {
		luxury = luxuryBoost
	}
	notes := decimalOne
	if strings.TrimSpace(spec.Notes) != "" {
		notes = notesBoost
	}
	foodie := decimalOne
	if slices.Contains(interests, models.InterestFood) {
		foodie = foodieBoost
	}
	cityFactor := decimalOne.Add(perCityBoost.Mul(decimal.NewFromInt(int64(len(cities)))))

	breakdown := models.CostBreakdown{
		Flights:    profile.FlightBase.Mul(travelers).Round(0),
		Hotels:     dailyCost.Mul(hotelShare).Mul(days).Round(0),
		Activities: dailyCost.Mul(activityShare).Mul(days).Mul(cityFactor).Mul(luxury).Mul(notes).Round(0),
		Food:       dailyCost.Mul(foodShare).Mul(days).Mul(foodie).Round(0),
		Visa:       profile.VisaCost.Mul(travelers).Round(0),
	}

	return models.TripDetails{
		Destination:         spec.Destination,
		Emoji:               profile.Emoji,
		Travelers:           spec.TravelerCount,
		TravelerDescription: DescribeTravelers(spec.TravelerCount),
		Days:                spec.Days,
		Cities:              cities,
		Interests:           interests,
		EstimatedCost:       breakdown.Total(),
		Breakdown:           breakdown,
		Currency:            profile.Currency,
	}
}

// DescribeTravelers returns a short label for a party size.
func DescribeTravelers(count int) string {
	switch {
	case count <= 1:
		return "Solo traveler"
	case count == 2:
		return "Couple"
	case count <= 5:
		return fmt.Sprintf("Family of %d", count)
	default:
		return fmt.Sprintf("Group of %d", count)
	}
}
