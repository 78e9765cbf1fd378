package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestParseIntentResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		want     *Intent
		wantErr  bool
	}{
		{
			name:     "travel with destination",
			response: `{"travel": true, "destination": "Bali", "confidence": 0.9, "reasoning": "mentions a holiday"}`,
			want:     &Intent{Travel: true, Destination: "Bali", Confidence: 0.9, Reasoning: "mentions a holiday"},
		},
		{
			name:     "non travel clears destination",
			response: `{"travel": false, "destination": "Paris", "confidence": 0.7}`,
			want:     &Intent{Travel: false, Confidence: 0.7},
		},
		{
			name:     "preamble is ignored",
			response: "Sure!\n{\"travel\": true, \"destination\": \"\", \"confidence\": 0.6}",
			want:     &Intent{Travel: true, Confidence: 0.6},
		},
		{
			name:     "confidence out of range",
			response: `{"travel": true, "destination": "", "confidence": 1.5}`,
			wantErr:  true,
		},
		{
			name:     "no json",
			response: "travel: yes",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseIntentResponse(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIntent(t *testing.T) {
	t.Parallel()

	t.Run("sends schema and sanitized prompt", func(t *testing.T) {
		t.Parallel()

		mock := &mockGenerator{response: textResponse(`{"travel": true, "destination": "Japan", "confidence": 0.95}`)}
		got, err := NewClientWithGenerator(mock).ClassifyIntent(context.Background(), "thinking of \"Japan\"\nin april")
		require.NoError(t, err)
		require.True(t, got.Travel)
		require.Equal(t, "Japan", got.Destination)

		require.NotNil(t, mock.config)
		require.Equal(t, "application/json", mock.config.ResponseMIMEType)
		require.Equal(t, genai.TypeBoolean, mock.config.ResponseSchema.Properties["travel"].Type)
		prompt := mock.contents[0].Parts[0].Text
		require.Contains(t, prompt, "thinking of 'Japan' in april")
		require.False(t, strings.Contains(prompt, "\"Japan\"\nin"))
	})

	t.Run("empty message", func(t *testing.T) {
		t.Parallel()

		mock := &mockGenerator{}
		_, err := NewClientWithGenerator(mock).ClassifyIntent(context.Background(), "")
		require.Error(t, err)
		require.Zero(t, mock.calls)
	})

	t.Run("api failure", func(t *testing.T) {
		t.Parallel()

		_, err := NewClientWithGenerator(&mockGenerator{err: errors.New("boom")}).ClassifyIntent(context.Background(), "hi")
		require.ErrorContains(t, err, "gemini API call failed")
	})
}

func TestSanitizeForPrompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"quotes replaced", `say "hi" and ` + "`run`", 100, "say 'hi' and 'run'"},
		{"control chars removed", "a\x00b", 100, "ab"},
		{"whitespace collapsed", "a\n\tb   c", 100, "a b c"},
		{"truncated on runes", "東京東京東京", 4, "東京東京"},
		{"trailing space trimmed", "abc def", 4, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, SanitizeForPrompt(tt.input, tt.max))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	require.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":{"b":2}}`, extractJSON(`prefix {"a":{"b":2}} suffix`))
	require.Empty(t, extractJSON("no braces"))
	require.Empty(t, extractJSON("} {"))
}
