package journey

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

var (
	amountPattern    = regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)?\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*(crores?|cr|lakhs?|lacs?|l|thousand|k)?\b`)
	tenurePattern    = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(months?|mos?|years?|yrs?)\b`)
	travelersPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:travell?ers?|people|persons?|pax|adults?|of us)\b`)
	daysPattern      = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:days?|nights?)\b`)
	destPattern      = regexp.MustCompile(`(?i)^(?:destination|go to|going to|trip to|travel to|fly to|visit|visiting)\s+(.+?)[.!]*$`)
	integerPattern   = regexp.MustCompile(`^\d{1,9}$`)
)

var unitMultipliers = map[string]int64{
	"crore":    10_000_000,
	"crores":   10_000_000,
	"cr":       10_000_000,
	"lakh":     100_000,
	"lakhs":    100_000,
	"lac":      100_000,
	"lacs":     100_000,
	"l":        100_000,
	"thousand": 1_000,
	"k":        1_000,
}

// ParseAmount extracts the first currency amount from text, understanding thousands
// separators and the k, lakh and crore suffixes. The result is rounded to whole units.
func ParseAmount(text string) (decimal.Decimal, bool) {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	if mult, ok := unitMultipliers[strings.ToLower(m[2])]; ok {
		value = value.Mul(decimal.NewFromInt(mult))
	}
	return value.Round(0), true
}

// ParseTenure extracts a tenure in months from phrases like "36 months" or "3 years".
func ParseTenure(text string) (int, bool) {
	m := tenurePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "y") {
		n *= 12
	}
	return n, true
}

// ParseTravelDetails extracts traveler count and days. Missing values are returned as 0.
func ParseTravelDetails(text string) (travelers, days int) {
	lower := strings.ToLower(text)
	if m := travelersPattern.FindStringSubmatch(lower); m != nil {
		travelers, _ = strconv.Atoi(m[1])
	} else if hasWord(lower, "solo", "alone", "myself") {
		travelers = 1
	} else if hasWord(lower, "couple", "two of us", "both of us") {
		travelers = 2
	}
	if m := daysPattern.FindStringSubmatch(lower); m != nil {
		days, _ = strconv.Atoi(m[1])
	} else if hasWord(lower, "a week", "one week") {
		days = 7
	} else if hasWord(lower, "two weeks", "fortnight") {
		days = 14
	}
	return travelers, days
}

var interestAliases = map[string]string{
	"food":        models.InterestFood,
	"cuisine":     models.InterestFood,
	"spa":         models.InterestRelaxation,
	"relax":       models.InterestRelaxation,
	"relaxation":  models.InterestRelaxation,
	"shopping":    models.InterestShopping,
	"nightlife":   models.InterestNightlife,
	"party":       models.InterestNightlife,
	"sightseeing": "Sightseeing",
	"adventure":   "Adventure",
	"culture":     "Culture & History",
	"history":     "Culture & History",
	"nature":      "Nature & Wildlife",
	"wildlife":    "Nature & Wildlife",
}

// ParseInterests returns the interests mentioned in text, in display order.
func ParseInterests(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	found := map[string]bool{}
	for _, w := range words {
		if interest, ok := interestAliases[w]; ok {
			found[interest] = true
		}
	}
	return lo.Filter(models.Interests, func(i string, _ int) bool { return found[i] })
}

var (
	affirmatives = []string{"yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "confirmed", "proceed", "continue", "accept", "agree", "approve", "done", "go ahead", "sounds good"}
	negations    = []string{"no", "not", "don't", "dont", "never"}
	cancelWords  = []string{"cancel", "dismiss", "stop", "not now", "maybe later", "later", "abort"}
)

// IsAffirmative reports whether text is an acceptance like "yes" or "confirm".
func IsAffirmative(text string) bool {
	lower := strings.ToLower(text)
	return hasWord(lower, affirmatives...) && !hasWord(lower, negations...)
}

// IsCancel reports whether text asks to stop the journey.
func IsCancel(text string) bool {
	return hasWord(strings.ToLower(text), cancelWords...)
}

// hasWord reports whether any phrase occurs in text on word boundaries. text must be lowercase.
func hasWord(text string, phrases ...string) bool {
	padded := " " + strings.Map(func(r rune) rune {
		if r == '\'' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127 {
			return r
		}
		return ' '
	}, text) + " "
	padded = " " + strings.Join(strings.Fields(padded), " ") + " "
	return lo.SomeBy(phrases, func(p string) bool {
		return strings.Contains(padded, " "+p+" ")
	})
}
