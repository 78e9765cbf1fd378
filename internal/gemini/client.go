// Package gemini reads trip details from voice notes, itinerary uploads and chat
// messages using the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ModelName is the default Gemini model for transcription, itinerary parsing and intent detection.
const ModelName = "gemini-2.5-flash"

const jsonOnlyInstruction = "You are a JSON API. You MUST respond with ONLY valid JSON, no preamble or explanation. Output a single JSON object."

var (
	// ErrNoResponse indicates Gemini returned no usable text.
	ErrNoResponse = errors.New("no response from Gemini")
	// ErrBlocked indicates Gemini refused the request or its answer on safety grounds.
	ErrBlocked = errors.New("gemini blocked the request")
)

// ContentGenerator is the part of the genai models API the client calls.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

type modelsAdapter struct {
	models *genai.Models
}

func (m *modelsAdapter) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	resp, err := m.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("genai.GenerateContent: %w", err)
	}
	return resp, nil
}

// Client calls Gemini for the bot's language tasks.
type Client struct {
	client    *genai.Client
	generator ContentGenerator
	model     string
}

// Option customizes a Client.
type Option func(*Client)

// WithModel overrides ModelName.
func WithModel(model string) Option {
	return func(c *Client) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

// NewClient creates a Gemini API client with the provided API key.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{client: client, generator: &modelsAdapter{models: client.Models}, model: ModelName}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientWithGenerator creates a Client over generator, for tests.
func NewClientWithGenerator(generator ContentGenerator, opts ...Option) *Client {
	c := &Client{generator: generator, model: ModelName}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the Gemini model the client calls.
func (c *Client) Model() string {
	return c.model
}

// jsonConfig asks for a single JSON object, optionally constrained by schema.
func jsonConfig(temperature float32, maxTokens int32, schema *genai.Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxTokens,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: jsonOnlyInstruction}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

// generateText sends a single user turn and returns the text of the first candidate.
func (c *Client) generateText(ctx context.Context, parts []*genai.Part, config *genai.GenerateContentConfig) (string, error) {
	if c.generator == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}
	model := c.model
	if model == "" {
		model = ModelName
	}

	resp, err := c.generator.GenerateContent(ctx, model, []*genai.Content{
		{Role: genai.RoleUser, Parts: parts},
	}, config)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrNoResponse
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt %s", ErrBlocked, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoResponse
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent:
		return "", fmt.Errorf("%w: %s", ErrBlocked, candidate.FinishReason)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", ErrNoResponse
	}
	return sb.String(), nil
}
