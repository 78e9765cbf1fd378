package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"google.golang.org/genai"
)

// ClassifyIntentTimeout bounds a single intent classification call.
const ClassifyIntentTimeout = 10 * time.Second

// Intent is Gemini's reading of whether a chat message is about planning a trip.
type Intent struct {
	Travel      bool    `json:"travel"`
	Destination string  `json:"destination"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// ClassifyIntent decides whether a message expresses travel intent and, if so, names the destination.
func (c *Client) ClassifyIntent(ctx context.Context, message string) (*Intent, error) {
	msgHash := hashText(message)
	logger.Log.Debug().Str("message_hash", msgHash).Msg("ClassifyIntent called")

	if message == "" {
		return nil, fmt.Errorf("message is required")
	}

	prompt := buildIntentPrompt(SanitizeForPrompt(message, MaxTextLength))

	timeoutCtx, cancel := context.WithTimeout(ctx, ClassifyIntentTimeout)
	defer cancel()

	config := jsonConfig(0.2, 300, &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"travel": {
				Type:        genai.TypeBoolean,
				Description: "True if the customer wants to plan or pay for a trip",
			},
			"destination": {
				Type:        genai.TypeString,
				Description: "The destination named in the message, empty if none",
			},
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "Confidence score between 0 and 1",
			},
			"reasoning": {
				Type:        genai.TypeString,
				Description: "Brief explanation",
			},
		},
		Required: []string{"travel", "destination", "confidence"},
	})

	text, err := c.generateText(timeoutCtx, []*genai.Part{{Text: prompt}}, config)
	if err != nil {
		logger.Log.Error().Err(err).Str("message_hash", msgHash).Msg("ClassifyIntent: Gemini API call failed")
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	intent, err := parseIntentResponse(text)
	if err != nil {
		logger.Log.Warn().Err(err).Str("message_hash", msgHash).Msg("ClassifyIntent: unusable response")
		return nil, err
	}

	logger.Log.Debug().
		Str("message_hash", msgHash).
		Bool("travel", intent.Travel).
		Float64("confidence", intent.Confidence).
		Msg("ClassifyIntent: classified message")

	return intent, nil
}

func buildIntentPrompt(message string) string {
	return fmt.Sprintf(`A banking customer sent this chat message: "%s"

Decide whether they are expressing intent to take or plan a trip (vacation, holiday, travel abroad).
Questions about account balances, card payments or unrelated topics are NOT travel intent.
If a destination (country or city) is named, return it in its common English form.

Return JSON only:
{"travel": true/false, "destination": "name or empty", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`, message)
}

func parseIntentResponse(response string) (*Intent, error) {
	jsonText := extractJSON(response)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var intent Intent
	if err := json.Unmarshal([]byte(jsonText), &intent); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if intent.Confidence < 0 || intent.Confidence > 1 {
		return nil, fmt.Errorf("confidence out of range: %f", intent.Confidence)
	}

	intent.Destination = SanitizeName(intent.Destination)
	intent.Reasoning = SanitizeForPrompt(intent.Reasoning, maxReasoningLength)
	if !intent.Travel {
		intent.Destination = ""
	}
	return &intent, nil
}
