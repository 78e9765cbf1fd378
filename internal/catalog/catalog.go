// Package catalog provides the destination reference data used to cost trips.
//
// The catalog is shared by every journey. It only ever grows: an unknown destination is
// registered with a default profile the first time it is looked up.
package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// DefaultCityCount is how many cities SuggestedCities returns when asked for zero or fewer.
const DefaultCityCount = 6

// storeTimeout bounds a single write-through to the backing store.
const storeTimeout = 3 * time.Second

// GenericCities is offered for destinations the catalog has never seen.
var GenericCities = []string{"Capital City", "Old Town", "Coastal Retreat", "Countryside"}

// DefaultProfile returns the profile assigned to an unlisted destination.
func DefaultProfile(name string) models.DestinationProfile {
	return models.DestinationProfile{
		Name:            name,
		Emoji:           "🌍",
		PerPersonPerDay: decimal.NewFromInt(7000),
		FlightBase:      decimal.NewFromInt(40000),
		VisaCost:        decimal.NewFromInt(4000),
	}
}

// Entry is a destination profile with its suggested cities.
type Entry struct {
	Profile models.DestinationProfile `json:"profile"`
	Cities  []string                  `json:"cities"`
}

// Store persists destinations added at runtime so other processes see them.
type Store interface {
	// AddIfAbsent stores the entry unless one already exists under the same name.
	// It reports whether the entry was written.
	AddIfAbsent(ctx context.Context, entry Entry) (bool, error)
	// LoadAll returns every stored entry.
	LoadAll(ctx context.Context) ([]Entry, error)
}

// Catalog maps destination names to cost profiles. Names match exactly.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
	seeded  int
	store   Store
}

// New creates a catalog seeded with the built-in destinations.
// A nil store keeps runtime additions in memory only.
func New(store Store) *Catalog {
	c := &Catalog{
		entries: make(map[string]Entry, len(seed)),
		store:   store,
	}
	for _, e := range seed {
		c.entries[e.Profile.Name] = e
		c.order = append(c.order, e.Profile.Name)
	}
	c.seeded = len(c.order)
	return c
}

// Sync pulls entries added by other processes from the store.
func (c *Catalog) Sync(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	entries, err := c.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for _, e := range entries {
		if _, ok := c.entries[e.Profile.Name]; ok || e.Profile.Name == "" {
			continue
		}
		c.entries[e.Profile.Name] = e
		c.order = append(c.order, e.Profile.Name)
		added++
	}
	logger.Log.Debug().Int("added", added).Msg("Destination catalog synced")
	return nil
}

// Lookup returns the profile for name. A miss registers and returns the default profile,
// so repeated lookups of the same name are stable.
func (c *Catalog) Lookup(name string) models.DestinationProfile {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return entry.Profile
	}

	c.mu.Lock()
	// Re-check under write lock in case another journey registered it.
	if entry, ok = c.entries[name]; ok {
		c.mu.Unlock()
		return entry.Profile
	}
	entry = Entry{Profile: DefaultProfile(name), Cities: slices.Clone(GenericCities)}
	c.entries[name] = entry
	c.order = append(c.order, name)
	c.mu.Unlock()

	logger.Log.Info().Str("destination", logger.SanitizeText(name)).Msg("Registered new destination")
	c.persist(entry)
	return entry.Profile
}

func (c *Catalog) persist(entry Entry) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if _, err := c.store.AddIfAbsent(ctx, entry); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to persist destination, keeping in memory only")
	}
}

// Contains reports whether name is already in the catalog.
func (c *Catalog) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]
	return ok
}

// SuggestedCities returns up to n cities for the destination in a stable order.
// Unknown destinations get the generic list without being registered.
func (c *Catalog) SuggestedCities(name string, n int) []string {
	if n <= 0 {
		n = DefaultCityCount
	}
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()

	cities := GenericCities
	if ok {
		cities = entry.Cities
	}
	cities = lo.Uniq(cities)
	if len(cities) > n {
		cities = cities[:n]
	}
	return slices.Clone(cities)
}

// Popular returns the built-in destinations in display order.
func (c *Catalog) Popular() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order[:c.seeded])
}

// Names returns every destination, built-in first, then runtime additions in insertion order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// Match finds a catalog destination mentioned in free text, case-insensitively.
func (c *Catalog) Match(text string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return matchName(c.order, text)
}
