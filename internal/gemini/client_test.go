package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), "")
	require.ErrorContains(t, err, "API key is required")

	client, err := NewClient(context.Background(), "test-api-key", WithModel("gemini-2.5-pro"))
	require.NoError(t, err)
	require.Equal(t, "gemini-2.5-pro", client.Model())

	client, err = NewClient(context.Background(), "test-api-key", WithModel("  "))
	require.NoError(t, err)
	require.Equal(t, ModelName, client.Model())
}

func TestGenerateText(t *testing.T) {
	t.Parallel()

	call := func(t *testing.T, mock *mockGenerator, opts ...Option) (string, error) {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return NewClientWithGenerator(mock, opts...).generateText(ctx, []*genai.Part{{Text: "hi"}}, nil)
	}

	t.Run("joins text parts with the configured model", func(t *testing.T) {
		t.Parallel()
		mock := &mockGenerator{response: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: `{"a":`}, {Text: `1}`}}}}},
		}}
		text, err := call(t, mock, WithModel("gemini-test"))
		require.NoError(t, err)
		require.Equal(t, `{"a":1}`, text)
		require.Equal(t, "gemini-test", mock.model)
		require.Equal(t, genai.RoleUser, mock.contents[0].Role)
	})

	t.Run("blocked prompt", func(t *testing.T) {
		t.Parallel()
		mock := &mockGenerator{response: &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
		}}
		_, err := call(t, mock)
		require.ErrorIs(t, err, ErrBlocked)
	})

	t.Run("blocked candidate", func(t *testing.T) {
		t.Parallel()
		mock := &mockGenerator{response: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonSafety,
				Content:      &genai.Content{Parts: []*genai.Part{{Text: "partial"}}},
			}},
		}}
		_, err := call(t, mock)
		require.ErrorIs(t, err, ErrBlocked)
	})

	t.Run("empty responses", func(t *testing.T) {
		t.Parallel()
		for _, resp := range []*genai.GenerateContentResponse{
			nil,
			{},
			{Candidates: []*genai.Candidate{{}}},
			textResponse(""),
		} {
			_, err := call(t, &mockGenerator{response: resp})
			require.ErrorIs(t, err, ErrNoResponse)
		}
	})

	t.Run("generator error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("quota exceeded")
		_, err := call(t, &mockGenerator{err: boom})
		require.ErrorIs(t, err, boom)
	})

	t.Run("uninitialized client", func(t *testing.T) {
		t.Parallel()
		_, err := (&Client{}).generateText(context.Background(), nil, nil)
		require.ErrorContains(t, err, "not initialized")
	})
}

func TestJSONConfig(t *testing.T) {
	t.Parallel()

	schema := &genai.Schema{Type: genai.TypeObject}
	cfg := jsonConfig(0.3, 256, schema)
	require.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.InDelta(t, 0.3, *cfg.Temperature, 1e-6)
	require.EqualValues(t, 256, cfg.MaxOutputTokens)
	require.Same(t, schema, cfg.ResponseSchema)
	require.Equal(t, jsonOnlyInstruction, cfg.SystemInstruction.Parts[0].Text)
}
