package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLookup_SeededDestination(t *testing.T) {
	t.Parallel()

	c := New(nil)
	p := c.Lookup("Japan")

	require.Equal(t, "Japan", p.Name)
	require.Equal(t, "🗾", p.Emoji)
	require.True(t, p.PerPersonPerDay.Equal(decimal.NewFromInt(8000)))
	require.True(t, p.FlightBase.Equal(decimal.NewFromInt(55000)))
	require.True(t, p.VisaCost.Equal(decimal.NewFromInt(3000)))
	require.Equal(t, "JPY", p.Currency)
}

func TestLookup_UnknownDestinationIsRegistered(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	c := New(store)
	require.False(t, c.Contains("Iceland"))

	p := c.Lookup("Iceland")
	require.Equal(t, "Iceland", p.Name)
	require.Equal(t, "🌍", p.Emoji)
	require.True(t, p.PerPersonPerDay.Equal(decimal.NewFromInt(7000)))
	require.True(t, p.FlightBase.Equal(decimal.NewFromInt(40000)))
	require.True(t, p.VisaCost.Equal(decimal.NewFromInt(4000)))

	require.True(t, c.Contains("Iceland"))
	require.Equal(t, p, c.Lookup("Iceland"))
	require.Equal(t, GenericCities, c.SuggestedCities("Iceland", 10))

	stored, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "Iceland", stored[0].Profile.Name)
}

func TestLookup_IsCaseSensitive(t *testing.T) {
	t.Parallel()

	c := New(nil)
	p := c.Lookup("japan")
	require.Equal(t, "🌍", p.Emoji)
	require.True(t, c.Contains("japan"))
	require.True(t, c.Contains("Japan"))
}

func TestLookup_ConcurrentRegistrationIsStable(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	c := New(store)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Lookup("Peru")
		}()
	}
	wg.Wait()

	names := c.Names()
	count := 0
	for _, n := range names {
		if n == "Peru" {
			count++
		}
	}
	require.Equal(t, 1, count)

	stored, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

type failingStore struct{}

func (failingStore) AddIfAbsent(context.Context, Entry) (bool, error) {
	return false, errors.New("store unavailable")
}

func (failingStore) LoadAll(context.Context) ([]Entry, error) {
	return nil, errors.New("store unavailable")
}

func TestLookup_StoreFailureKeepsLookupTotal(t *testing.T) {
	t.Parallel()

	c := New(failingStore{})
	p := c.Lookup("Kenya")
	require.Equal(t, "Kenya", p.Name)
	require.True(t, c.Contains("Kenya"))
	require.Error(t, c.Sync(context.Background()))
}

func TestSuggestedCities(t *testing.T) {
	t.Parallel()

	c := New(nil)

	t.Run("first n in stable order", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, []string{"Tokyo", "Kyoto", "Osaka"}, c.SuggestedCities("Japan", 3))
		require.Equal(t, c.SuggestedCities("Japan", 3), c.SuggestedCities("Japan", 3))
	})

	t.Run("non-positive n uses default count", func(t *testing.T) {
		t.Parallel()
		require.Len(t, c.SuggestedCities("Japan", 0), DefaultCityCount)
	})

	t.Run("unknown destination gets generic list without registering", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, GenericCities, c.SuggestedCities("Atlantis", 6))
		require.False(t, c.Contains("Atlantis"))
	})

	t.Run("result is a copy", func(t *testing.T) {
		t.Parallel()
		cities := c.SuggestedCities("Thailand", 2)
		cities[0] = "changed"
		require.Equal(t, "Bangkok", c.SuggestedCities("Thailand", 2)[0])
	})
}

func TestPopularAndNames(t *testing.T) {
	t.Parallel()

	c := New(nil)
	popular := c.Popular()
	require.Equal(t, "Japan", popular[0])
	require.Len(t, popular, len(seed))

	c.Lookup("Mongolia")
	require.Len(t, c.Popular(), len(seed))
	names := c.Names()
	require.Equal(t, "Mongolia", names[len(names)-1])
}

func TestSync(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	other := New(store)
	other.Lookup("Chile")

	c := New(store)
	require.False(t, c.Contains("Chile"))
	require.NoError(t, c.Sync(context.Background()))
	require.True(t, c.Contains("Chile"))

	require.NoError(t, c.Sync(context.Background()))
	require.Len(t, c.Names(), len(seed)+1)
}

func TestMatch(t *testing.T) {
	t.Parallel()

	c := New(nil)

	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"I want to go to Japan next month", "Japan", true},
		{"planning a trip to BALI!", "Bali", true},
		{"dubai or singapore?", "Dubai", true},
		{"somewhere warm", "", false},
		{"japanese food", "", false},
	}
	for _, tt := range tests {
		got, ok := c.Match(tt.text)
		require.Equal(t, tt.wantOK, ok, tt.text)
		if tt.wantOK {
			require.Contains(t, []string{"Dubai", "Singapore", tt.want}, got)
		}
	}
}

func TestMatchAll(t *testing.T) {
	t.Parallel()

	got := MatchAll([]string{"Tokyo", "Kyoto", "Ho Chi Minh City"}, "tokyo, kyoto and ho chi minh city please")
	require.Equal(t, []string{"Tokyo", "Kyoto", "Ho Chi Minh City"}, got)
	require.Empty(t, MatchAll([]string{"Tokyo"}, "nothing here"))
}
