package finance

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var defaultRate = decimal.RequireFromString("10.49")

// referenceEMI is the float64 textbook formula used to cross-check the decimal implementation.
func referenceEMI(principal float64, tenure int, annualRate float64) float64 {
	r := annualRate / 12 / 100
	f := math.Pow(1+r, float64(tenure))
	return math.Round(principal * r * f / (f - 1))
}

func TestEMI_MatchesReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		principal int64
		tenure    int
		rate      string
	}{
		{"scenario shortfall", 86496, 24, "10.49"},
		{"rounded principal", 90000, 24, "10.49"},
		{"short tenure", 25000, 6, "10.49"},
		{"long tenure", 500000, 60, "10.49"},
		{"high rate", 150000, 36, "24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rate := decimal.RequireFromString(tt.rate)
			got := EMI(decimal.NewFromInt(tt.principal), tt.tenure, rate)
			want := referenceEMI(float64(tt.principal), tt.tenure, rate.InexactFloat64())
			require.InDelta(t, want, got.InexactFloat64(), 1)
			require.True(t, got.Equal(got.Round(0)))
		})
	}
}

func TestEMI_DegenerateInputs(t *testing.T) {
	t.Parallel()

	require.True(t, EMI(decimal.NewFromInt(100000), 0, defaultRate).IsZero())
	require.True(t, EMI(decimal.NewFromInt(100000), -6, defaultRate).IsZero())
	require.True(t, EMI(decimal.Zero, 24, defaultRate).IsZero())
	require.True(t, EMI(decimal.NewFromInt(-1), 24, defaultRate).IsZero())
}

func TestEMI_ZeroRate(t *testing.T) {
	t.Parallel()

	got := EMI(decimal.NewFromInt(120000), 12, decimal.Zero)
	requireAmount(t, 10000, got)
}

func TestEMI_Monotonicity(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		rate := decimal.NewFromFloat(rapid.Float64Range(0.5, 30).Draw(t, "rate")).Round(2)
		tenure := rapid.IntRange(1, 120).Draw(t, "tenure")
		p1 := rapid.Int64Range(1, 5_000_000).Draw(t, "p1")
		p2 := rapid.Int64Range(p1, 5_000_000).Draw(t, "p2")

		low := EMI(decimal.NewFromInt(p1), tenure, rate)
		high := EMI(decimal.NewFromInt(p2), tenure, rate)
		if low.GreaterThan(high) {
			t.Fatalf("EMI decreased with principal: %s > %s", low, high)
		}

		longer := rapid.IntRange(tenure, 120).Draw(t, "longer")
		short := EMI(decimal.NewFromInt(p1), tenure, rate)
		long := EMI(decimal.NewFromInt(p1), longer, rate)
		if long.GreaterThan(short) {
			t.Fatalf("EMI increased with tenure: %s > %s", long, short)
		}
	})
}

func TestTerms(t *testing.T) {
	t.Parallel()

	terms := Terms(decimal.NewFromInt(86496), 24, defaultRate)

	require.True(t, terms.TotalPayable.Equal(terms.EMI.Mul(decimal.NewFromInt(24))))
	require.True(t, terms.TotalInterest.Equal(terms.TotalPayable.Sub(decimal.NewFromInt(86496))))
	require.True(t, terms.TotalInterest.IsPositive())

	empty := Terms(decimal.Zero, 24, defaultRate)
	require.True(t, empty.EMI.IsZero())
	require.True(t, empty.TotalPayable.IsZero())
	require.True(t, empty.TotalInterest.IsZero())
}

func TestSchedule(t *testing.T) {
	t.Parallel()

	disbursed := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	principal := decimal.NewFromInt(90000)

	rows := Schedule(principal, 24, defaultRate, disbursed)
	require.Len(t, rows, 24)

	require.Equal(t, 1, rows[0].Number)
	require.Equal(t, time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC), rows[0].DueDate)
	require.True(t, rows[len(rows)-1].Balance.IsZero())

	repaid := decimal.Zero
	for i, row := range rows {
		repaid = repaid.Add(row.Principal)
		require.True(t, row.EMI.Equal(row.Principal.Add(row.Interest)), "row %d", i+1)
		if i > 0 {
			require.True(t, row.Interest.LessThanOrEqual(rows[i-1].Interest), "interest should shrink")
		}
	}
	require.True(t, repaid.Equal(principal))

	require.Nil(t, Schedule(decimal.Zero, 24, defaultRate, disbursed))
}
