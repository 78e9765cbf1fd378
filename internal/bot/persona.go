package bot

import (
	"strings"

	"gitlab.com/yelinaung/tripfund-bot/internal/journey"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// PersonaProfile is a demo customer segment: how the bot addresses the user and
// what it pre-fills during intake.
type PersonaProfile struct {
	Salutation string
	Defaults   journey.Defaults
}

// Personas maps a persona ID to its profile.
type Personas map[string]PersonaProfile

// DefaultPersonas returns the built-in demo segments.
func DefaultPersonas() Personas {
	return Personas{
		"young-professional": {
			Defaults: journey.Defaults{Destination: "Japan", Travelers: 2, Days: 7},
		},
		"family": {
			Defaults: journey.Defaults{Destination: "Thailand", Travelers: 4, Days: 6},
		},
		"solo": {
			Defaults: journey.Defaults{Destination: "Bali", Travelers: 1, Days: 5},
		},
		"premium": {
			Salutation: "Mr./Ms.",
			Defaults:   journey.Defaults{Destination: "Switzerland", Travelers: 2, Days: 10},
		},
	}
}

// Resolve builds the persona for a Telegram user. An unknown persona ID keeps the
// user's name and gets no seeds.
func (p Personas) Resolve(personaID, firstName string) models.Persona {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "there"
	}
	persona := models.Persona{Name: name, Salutation: name}
	if profile, ok := p[personaID]; ok {
		persona.ID = personaID
		if profile.Salutation != "" {
			persona.Salutation = profile.Salutation + " " + name
		}
	}
	return persona
}

// JourneyDefaults returns the intake seeds in the form the journey expects.
func (p Personas) JourneyDefaults() journey.PersonaDefaults {
	out := make(journey.PersonaDefaults, len(p))
	for id, profile := range p {
		out[id] = profile.Defaults
	}
	return out
}
