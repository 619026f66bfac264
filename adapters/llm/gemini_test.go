package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/satriahrh/soundalike/internal/resilience"
)

func TestValidateGeminiConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GeminiConfig
		wantErr bool
	}{
		{"missing key", GeminiConfig{}, true},
		{"valid", GeminiConfig{APIKey: "k"}, false},
		{"temperature too high", GeminiConfig{APIKey: "k", Temperature: 1.5}, true},
		{"negative tokens", GeminiConfig{APIKey: "k", MaxOutputTokens: -1}, true},
		{"negative timeout", GeminiConfig{APIKey: "k", TimeoutSeconds: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeminiConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewGeminiAnalyzerDefaults(t *testing.T) {
	g, err := NewGeminiAnalyzer(context.Background(), GeminiConfig{APIKey: "test-key"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, defaultModel, g.model)
	assert.Equal(t, float32(defaultTemperature), g.temperature)
	assert.Equal(t, defaultMaxTokens, g.maxOutputTokens)
}

func TestClassify(t *testing.T) {
	err := classify(genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"})
	var statusErr *resilience.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.True(t, resilience.IsRetryable(err))

	err = classify(genai.APIError{Code: http.StatusUnauthorized, Message: "bad key"})
	assert.False(t, resilience.IsRetryable(err))

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
}

func TestMockAnalyzer(t *testing.T) {
	m := NewMockAnalyzer()
	require.NoError(t, m.Ping(context.Background()))

	out, err := m.AnalyzeJSON(context.Background(), "system", "instrumental music with melody and rhythm")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "C major", got["key"])
	assert.Equal(t, false, got["vocals"])
}
