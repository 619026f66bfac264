package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/satriahrh/soundalike/domain/repositories"
)

// MockAnalyzer is a placeholder MusicAnalyzer for local development
type MockAnalyzer struct {
	Characteristics map[string]any
}

var _ repositories.MusicAnalyzer = (*MockAnalyzer)(nil)

// NewMockAnalyzer creates an analyzer that answers with a fixed, plausible
// set of characteristics
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{Characteristics: map[string]any{
		"tempo": 120,
		"key":   "C major",
		"mood":  "upbeat",
		"genre": "pop",
	}}
}

func (m *MockAnalyzer) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MockAnalyzer) AnalyzeJSON(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	characteristics := make(map[string]any, len(m.Characteristics)+1)
	for k, v := range m.Characteristics {
		characteristics[k] = v
	}
	if strings.Contains(strings.ToLower(user), "instrumental") {
		characteristics["vocals"] = false
	}
	out, err := json.Marshal(characteristics)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
