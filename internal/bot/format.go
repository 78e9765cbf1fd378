package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	rupeeLocale = language.MustParse("en-IN")
	localLocale = language.English
)

// formatINR renders whole rupees with Indian digit grouping, e.g. ₹2,16,240.
func formatINR(d decimal.Decimal) string {
	return "₹" + message.NewPrinter(rupeeLocale).Sprintf("%d", d.Round(0).IntPart())
}

// formatLocal renders an amount in a foreign currency, e.g. 384,907 JPY.
func formatLocal(d decimal.Decimal, code string) string {
	return message.NewPrinter(localLocale).Sprintf("%d", d.Round(0).IntPart()) + " " + code
}

func formatRate(annualRatePercent decimal.Decimal) string {
	return annualRatePercent.StringFixed(2) + "% p.a."
}

func formatTenure(months int) string {
	if months%12 == 0 {
		years := months / 12
		if years == 1 {
			return "12 months (1 year)"
		}
		return fmt.Sprintf("%d months (%d years)", months, years)
	}
	return fmt.Sprintf("%d months", months)
}

// progressBar draws a fixed-width bar for a percentage in [0, 100].
func progressBar(percent int) string {
	const width = 10
	filled := min(max(percent, 0), 100) * width / 100
	return strings.Repeat("▓", filled) + strings.Repeat("░", width-filled)
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
