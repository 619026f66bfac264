package entities

import (
	"fmt"
	"time"
)

// Transcription is the text approximation of an audio source
type Transcription struct {
	Text string `json:"text"`
}

// MusicCharacteristics is the free-form analysis returned by the remote model.
// Only tempo, key, mood and genre are commonly present.
type MusicCharacteristics map[string]any

// Tempo returns the tempo attribute, if any
func (m MusicCharacteristics) Tempo() string { return m.attr("tempo") }

// Key returns the musical key attribute, if any
func (m MusicCharacteristics) Key() string { return m.attr("key") }

// Mood returns the mood attribute, if any
func (m MusicCharacteristics) Mood() string { return m.attr("mood") }

// Genre returns the genre attribute, if any
func (m MusicCharacteristics) Genre() string { return m.attr("genre") }

func (m MusicCharacteristics) attr(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

// GeneratedTrack describes one output file of a generation request
type GeneratedTrack struct {
	FilePath string `json:"filePath"` // absolute or working-dir relative path of the output
	Duration string `json:"duration"` // m:ss
	Variant  string `json:"variant"`  // preset name the output was rendered with
}

// GenerationResult is everything a generation request produced
type GenerationResult struct {
	Tracks          []GeneratedTrack     `json:"tracks"`
	Transcript      string               `json:"transcript,omitempty"`
	Characteristics MusicCharacteristics `json:"characteristics,omitempty"`
	// Remote reports whether the remote analysis path was taken
	Remote bool `json:"remote"`
}

// FormatDuration renders a duration as m:ss, rounding to the nearest second
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
