package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// TranscribeVoiceTimeout is the timeout for voice transcription.
const TranscribeVoiceTimeout = 15 * time.Second

// ErrVoiceTimeout indicates the Gemini API call for voice timed out.
var ErrVoiceTimeout = errors.New("voice transcription timed out")

// ErrNoSpeech indicates no speech could be recognized in the voice message.
var ErrNoSpeech = errors.New("no speech recognized in voice message")

// Transcript is the text recognized in a voice message.
type Transcript struct {
	Text       string
	Language   string
	Confidence float64
}

type transcriptResponse struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// TranscribeVoice converts a voice message into text the command bridge can apply.
func (c *Client) TranscribeVoice(ctx context.Context, audioBytes []byte, mimeType string) (*Transcript, error) {
	if len(audioBytes) == 0 {
		return nil, fmt.Errorf("audio data is required")
	}

	if mimeType == "" {
		mimeType = "audio/ogg"
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, TranscribeVoiceTimeout)
	defer cancel()

	text, err := c.generateText(timeoutCtx, []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: audioBytes}},
		{Text: voicePrompt},
	}, jsonConfig(0, 1024, transcriptSchema))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrVoiceTimeout
		}
		if errors.Is(err, ErrNoResponse) || errors.Is(err, ErrBlocked) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	transcript, err := parseTranscriptResponse(text)
	if err != nil {
		return nil, err
	}
	if transcript.Text == "" {
		return nil, ErrNoSpeech
	}
	return transcript, nil
}

var transcriptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"text":       {Type: genai.TypeString, Description: "The spoken words, verbatim"},
		"language":   {Type: genai.TypeString, Description: "BCP-47 language code"},
		"confidence": {Type: genai.TypeNumber, Description: "Confidence score between 0 and 1"},
	},
	Required: []string{"text", "confidence"},
}

const voicePrompt = `Transcribe this voice message from a banking customer planning a trip.
Return ONLY a JSON object with no additional text or markdown formatting.

Required fields:
- text: The spoken words, verbatim. Write numbers as digits (e.g., "two people" = "2 people", "one lakh" = "1 lakh").
- language: The BCP-47 language code of the speech (e.g., "en", "hi").
- confidence: Your confidence in the transcription accuracy (0.0 to 1.0)

If nothing intelligible is said, use an empty string for text.

Example response:
{"text": "2 travelers for 7 days", "language": "en", "confidence": 0.92}`

func parseTranscriptResponse(response string) (*Transcript, error) {
	var tr transcriptResponse
	if err := json.Unmarshal([]byte(stripFences(response)), &tr); err != nil {
		return nil, fmt.Errorf("failed to parse transcript response: %w", err)
	}

	confidence := tr.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = 0
	}

	return &Transcript{
		Text:       SanitizeForPrompt(tr.Text, maxTranscriptLength),
		Language:   SanitizeForPrompt(tr.Language, 10),
		Confidence: confidence,
	}, nil
}
