package gemini

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Length limits for text embedded in prompts or returned from the model.
const (
	MaxTextLength        = 500
	MaxNameLength        = 60
	maxTranscriptLength  = 1000
	maxReasoningLength   = 300
	maxItineraryCityList = 12
)

// SanitizeForPrompt sanitizes user input to prevent prompt injection attacks.
// It removes or escapes characters that could break prompt structure,
// and truncates to the given maxLength.
func SanitizeForPrompt(input string, maxLength int) string {
	// Remove or escape quotes that could break prompt structure.
	input = strings.ReplaceAll(input, `"`, `'`)
	input = strings.ReplaceAll(input, "`", "'")

	// Remove null bytes and other control characters.
	input = strings.ReplaceAll(input, "\x00", "")

	// Collapses newlines, tabs and repeated spaces.
	input = strings.Join(strings.Fields(input), " ")

	// Trim after truncation to avoid trailing whitespace from mid-word cuts.
	if runes := []rune(input); len(runes) > maxLength {
		input = strings.TrimSpace(string(runes[:maxLength]))
	}

	return input
}

// SanitizeName sanitizes a short name (destination, city) for prompts and display.
func SanitizeName(name string) string {
	return SanitizeForPrompt(name, MaxNameLength)
}

// stripFences removes a surrounding markdown code fence.
func stripFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// extractJSON extracts a JSON object from text that may contain preamble.
// Gemini sometimes returns responses like "Here is the JSON:\n{...}" even
// when ResponseMIMEType is set to application/json.
func extractJSON(text string) string {
	text = stripFences(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(text, "}")
	if end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}

// hashText creates a short SHA256 hash of user text for secure logging.
func hashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:8])
}
