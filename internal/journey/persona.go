package journey

import "gitlab.com/yelinaung/tripfund-bot/internal/models"

// Fallback intake values when a persona has no seed.
const (
	DefaultTravelers = 2
	DefaultDays      = 7
)

// Defaults pre-fills intake for a persona. Zero fields mean no preference.
type Defaults struct {
	Destination string
	Travelers   int
	Days        int
}

// PersonaDefaults maps an opaque persona ID to its intake seeds.
type PersonaDefaults map[string]Defaults

// For returns the seeds for the persona, with out-of-range values replaced by the fallbacks.
func (p PersonaDefaults) For(personaID string) Defaults {
	d := p[personaID]
	spec := models.TripSpecification{TravelerCount: d.Travelers, Days: d.Days}
	if !spec.HasValidTravelers() {
		d.Travelers = DefaultTravelers
	}
	if !spec.HasValidDays() {
		d.Days = DefaultDays
	}
	return d
}
