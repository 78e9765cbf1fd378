package catalog

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

func profile(name, emoji string, perDay, flight, visa int64, currency string) models.DestinationProfile {
	return models.DestinationProfile{
		Name:            name,
		Emoji:           emoji,
		PerPersonPerDay: decimal.NewFromInt(perDay),
		FlightBase:      decimal.NewFromInt(flight),
		VisaCost:        decimal.NewFromInt(visa),
		Currency:        currency,
	}
}

var seed = []Entry{
	{
		Profile: profile("Japan", "🗾", 8000, 55000, 3000, "JPY"),
		Cities:  []string{"Tokyo", "Kyoto", "Osaka", "Hiroshima", "Nara", "Hakone", "Sapporo"},
	},
	{
		Profile: profile("Thailand", "🏝️", 4500, 18000, 2500, "THB"),
		Cities:  []string{"Bangkok", "Phuket", "Chiang Mai", "Krabi", "Pattaya", "Koh Samui"},
	},
	{
		Profile: profile("Dubai", "🏙️", 9000, 22000, 6500, "AED"),
		Cities:  []string{"Dubai", "Abu Dhabi", "Sharjah", "Ras Al Khaimah"},
	},
	{
		Profile: profile("Singapore", "🦁", 8500, 24000, 2800, "SGD"),
		Cities:  []string{"Marina Bay", "Sentosa", "Chinatown", "Little India", "Orchard Road"},
	},
	{
		Profile: profile("Bali", "🌺", 5000, 28000, 3500, "IDR"),
		Cities:  []string{"Ubud", "Seminyak", "Kuta", "Nusa Dua", "Canggu", "Uluwatu"},
	},
	{
		Profile: profile("Maldives", "🐠", 15000, 26000, 0, "MVR"),
		Cities:  []string{"Malé", "Maafushi", "Addu Atoll", "Baa Atoll"},
	},
	{
		Profile: profile("Switzerland", "🏔️", 14000, 65000, 7500, "CHF"),
		Cities:  []string{"Zurich", "Lucerne", "Interlaken", "Geneva", "Zermatt", "Bern"},
	},
	{
		Profile: profile("France", "🗼", 11000, 60000, 7500, "EUR"),
		Cities:  []string{"Paris", "Nice", "Lyon", "Bordeaux", "Marseille", "Strasbourg"},
	},
	{
		Profile: profile("Vietnam", "🏮", 3500, 20000, 2000, "VND"),
		Cities:  []string{"Hanoi", "Ho Chi Minh City", "Da Nang", "Hoi An", "Ha Long Bay"},
	},
	{
		Profile: profile("Australia", "🦘", 12000, 75000, 9000, "AUD"),
		Cities:  []string{"Sydney", "Melbourne", "Gold Coast", "Cairns", "Perth", "Brisbane"},
	},
}

// normalizeWords lowercases s and replaces punctuation with spaces, padding both ends
// so whole-word containment can be checked with strings.Contains.
func normalizeWords(s string) string {
	var b strings.Builder
	b.WriteByte(' ')
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte(' ')
	return strings.Join(strings.Fields(b.String()), " ")
}

// matchName returns the longest name that appears as whole words in text.
func matchName(names []string, text string) (string, bool) {
	haystack := " " + normalizeWords(text) + " "
	best := ""
	for _, name := range names {
		needle := normalizeWords(name)
		if needle == "" {
			continue
		}
		if strings.Contains(haystack, " "+needle+" ") && len(name) > len(best) {
			best = name
		}
	}
	return best, best != ""
}

// MatchAll returns every candidate mentioned in text, in candidate order.
func MatchAll(candidates []string, text string) []string {
	haystack := " " + normalizeWords(text) + " "
	var found []string
	for _, c := range candidates {
		needle := normalizeWords(c)
		if needle != "" && strings.Contains(haystack, " "+needle+" ") {
			found = append(found, c)
		}
	}
	return found
}
