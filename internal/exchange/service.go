// Package exchange converts rupee amounts into a destination's local currency.
package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var errInvalidNonPositiveRate = errors.New("conversion rate must be positive")

// ConversionResult contains converted amount details.
type ConversionResult struct {
	Amount   decimal.Decimal
	Rate     decimal.Decimal
	RateDate time.Time
}

// Converter converts amounts between currencies.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, fromCurrency, toCurrency string) (ConversionResult, error)
}

// Quote is a trip total expressed in the destination's currency.
type Quote struct {
	Base      decimal.Decimal
	BaseCode  string
	Local     decimal.Decimal
	LocalCode string
	Rate      decimal.Decimal
	RateDate  time.Time
}

// QuoteLocal converts a base-currency amount into localCode, rounded to whole units.
// It reports false when there is nothing to convert or the rate source does not
// publish localCode.
func QuoteLocal(
	ctx context.Context,
	conv Converter,
	amount decimal.Decimal,
	baseCode, localCode string,
) (Quote, bool, error) {
	base, local := normalizeCode(baseCode), normalizeCode(localCode)
	if conv == nil || local == "" || local == base || !amount.IsPositive() {
		return Quote{}, false, nil
	}

	res, err := conv.Convert(ctx, amount, base, local)
	if errors.Is(err, ErrUnsupportedCurrency) {
		return Quote{}, false, nil
	}
	if err != nil {
		return Quote{}, false, err
	}
	return Quote{
		Base:      amount,
		BaseCode:  base,
		Local:     res.Amount.Round(0),
		LocalCode: local,
		Rate:      res.Rate,
		RateDate:  res.RateDate,
	}, true, nil
}

func validateConversionRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return errInvalidNonPositiveRate
	}
	return nil
}
