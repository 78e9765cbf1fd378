package finance

import (
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// MinLoanAmount is the smallest loan ever offered, even for cheap trips.
var MinLoanAmount = decimal.NewFromInt(25000)

var (
	// liquidityCap is the share of liquid savings a customer is assumed willing to deploy.
	liquidityCap = decimal.RequireFromString("0.4")
	// costCap is the share of the trip cost savings may cover.
	costCap = decimal.RequireFromString("0.6")

	hundred = decimal.NewFromInt(100)
)

// Analyze splits an estimated trip cost into the part covered by savings and the loan shortfall.
func Analyze(estimatedCost, liquidity decimal.Decimal) models.GapAnalysis {
	covered := decimal.Min(liquidity.Mul(liquidityCap), estimatedCost.Mul(costCap)).Round(0)
	if covered.IsNegative() {
		covered = decimal.Zero
	}

	shortfall := decimal.Max(estimatedCost.Sub(covered), MinLoanAmount)

	coveredPercent := 0
	if estimatedCost.IsPositive() {
		coveredPercent = int(covered.Div(estimatedCost).Mul(hundred).Round(0).IntPart())
	}

	return models.GapAnalysis{
		CoveredAmount:    covered,
		ShortfallAmount:  shortfall,
		CoveredPercent:   coveredPercent,
		ShortfallPercent: 100 - coveredPercent,
	}
}
