package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const minSaltLength = 32

var hashSalt string

// InitHashSalt loads the salt used to hash IDs from LOG_HASH_SALT.
// It panics if the salt is missing or shorter than 32 characters.
func InitHashSalt() {
	salt := os.Getenv("LOG_HASH_SALT")
	if len(salt) < minSaltLength {
		panic(fmt.Sprintf("LOG_HASH_SALT must be set to at least %d characters", minSaltLength))
	}
	hashSalt = salt
}

// InitHashSaltForTesting sets the salt without validation.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

func hashID(id int64) string {
	hash := sha256.Sum256(fmt.Appendf(nil, "%d:%s", id, hashSalt))
	return hex.EncodeToString(hash[:])[:8]
}

// HashUserID creates a privacy-preserving hash of a user ID.
// This allows tracking user actions without exposing actual user IDs.
func HashUserID(userID int64) string {
	return hashID(userID)
}

// HashChatID creates a privacy-preserving hash of a chat ID.
func HashChatID(chatID int64) string {
	return hashID(chatID)
}

// SanitizeNotes redacts free-text trip notes, keeping word and character counts.
func SanitizeNotes(notes string) string {
	if notes == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(strings.Fields(notes)), len(notes))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	runes := []rune(text)
	if len(runes) <= 10 {
		return fmt.Sprintf("<%d chars>", len(runes))
	}

	return fmt.Sprintf("%s...<%d chars>", string(runes[:3]), len(runes))
}

// MaskAccountNumber hides all but the last 4 characters of a loan account number.
func MaskAccountNumber(account string) string {
	if account == "" {
		return "<empty>"
	}
	runes := []rune(account)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
