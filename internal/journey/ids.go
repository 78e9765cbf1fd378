package journey

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// AccountPrefix starts every generated loan account number.
const AccountPrefix = "TRV"

// NewJourneyID returns a random journey identifier.
func NewJourneyID() string {
	return uuid.NewString()
}

// NewAccountNumber returns AccountPrefix followed by 7 random digits.
func NewAccountNumber() string {
	return fmt.Sprintf("%s%07d", AccountPrefix, rand.IntN(10_000_000))
}

// NewOTP returns a 6-digit one-time code for the simulated e-sign.
func NewOTP() string {
	return fmt.Sprintf("%06d", rand.IntN(1_000_000))
}
