package finance

import (
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// workingPrecision is the number of decimal places kept in intermediate rate math.
const workingPrecision = 28

var monthsTimesPercent = decimal.NewFromInt(1200)

// monthlyRate converts an annual percentage into a monthly fraction.
func monthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.DivRound(monthsTimesPercent, workingPrecision)
}

// compound returns (1+r)^n.
func compound(r decimal.Decimal, n int) decimal.Decimal {
	base := decimalOne.Add(r)
	result := decimalOne
	for range n {
		result = result.Mul(base).Round(workingPrecision)
	}
	return result
}

// EMI returns the equated monthly installment for an amortizing loan, rounded to a whole unit.
// It returns zero when the principal or tenure is not positive.
func EMI(principal decimal.Decimal, tenureMonths int, annualRatePercent decimal.Decimal) decimal.Decimal {
	if tenureMonths <= 0 || !principal.IsPositive() {
		return decimal.Zero
	}

	r := monthlyRate(annualRatePercent)
	if r.IsZero() {
		return principal.DivRound(decimal.NewFromInt(int64(tenureMonths)), workingPrecision).Round(0)
	}

	factor := compound(r, tenureMonths)
	return principal.Mul(r).Mul(factor).DivRound(factor.Sub(decimalOne), workingPrecision).Round(0)
}

// Terms computes EMI, total payable and total interest for a loan.
func Terms(principal decimal.Decimal, tenureMonths int, annualRatePercent decimal.Decimal) models.LoanTerms {
	emi := EMI(principal, tenureMonths, annualRatePercent)
	total := emi.Mul(decimal.NewFromInt(int64(tenureMonths)))
	interest := decimal.Zero
	if total.IsPositive() {
		interest = total.Sub(principal)
	}
	return models.LoanTerms{
		EMI:           emi,
		TotalPayable:  total,
		TotalInterest: interest,
	}
}

// Installment is one row of a repayment schedule.
type Installment struct {
	Number    int
	DueDate   time.Time
	EMI       decimal.Decimal
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Balance   decimal.Decimal
}

// Schedule builds the month-by-month repayment plan. The first installment falls due one
// month after disbursedAt; the final installment absorbs rounding so the balance closes at zero.
func Schedule(principal decimal.Decimal, tenureMonths int, annualRatePercent decimal.Decimal, disbursedAt time.Time) []Installment {
	emi := EMI(principal, tenureMonths, annualRatePercent)
	if emi.IsZero() {
		return nil
	}

	r := monthlyRate(annualRatePercent)
	balance := principal
	rows := make([]Installment, 0, tenureMonths)
	for i := 1; i <= tenureMonths; i++ {
		interest := balance.Mul(r).Round(2)
		payment := emi
		principalPart := payment.Sub(interest)
		if i == tenureMonths || principalPart.GreaterThan(balance) {
			principalPart = balance
			payment = principalPart.Add(interest)
		}
		balance = balance.Sub(principalPart)

		rows = append(rows, Installment{
			Number:    i,
			DueDate:   disbursedAt.AddDate(0, i, 0),
			EMI:       payment,
			Principal: principalPart,
			Interest:  interest,
			Balance:   balance,
		})
		if balance.IsZero() {
			break
		}
	}
	return rows
}
