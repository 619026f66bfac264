package entities

import (
	"errors"
	"strings"
	"time"
)

// GeneratedNamePrefix is prepended to the source name of every generated track
const GeneratedNamePrefix = "AI Generated - "

// Track represents a stored audio track, uploaded or generated
type Track struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	FilePath     string    `json:"filePath" bson:"file_path"` // relative to the uploads root
	IsGenerated  bool      `json:"isGenerated" bson:"is_generated"`
	Duration     string    `json:"duration" bson:"duration"`
	WaveformData *string   `json:"waveformData" bson:"waveform_data,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// NewTrack creates an uploaded (non generated) track
func NewTrack(name, filePath, duration string) *Track {
	return &Track{
		Name:     name,
		FilePath: filePath,
		Duration: duration,
	}
}

// NewGeneratedTrack creates the track persisted for one generation output
func NewGeneratedTrack(source *Track, generated GeneratedTrack) *Track {
	return &Track{
		Name:        GeneratedNamePrefix + source.Name,
		FilePath:    generated.FilePath,
		IsGenerated: true,
		Duration:    generated.Duration,
	}
}

// SetWaveform stores serialized waveform peaks, empty clears it
func (t *Track) SetWaveform(data string) {
	if data == "" {
		t.WaveformData = nil
		return
	}
	t.WaveformData = &data
}

// Validate validates the track data
func (t *Track) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(t.FilePath) == "" {
		return errors.New("file_path is required")
	}
	if t.Duration == "" {
		return errors.New("duration is required")
	}
	return nil
}
