package audio

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/soundalike/domain/entities"
)

// Measurer extracts the duration and waveform stored with a track. Only
// MP3 can be decoded; other formats get UnknownDuration and no waveform.
type Measurer struct {
	prober  Prober
	buckets int
	logger  *zap.Logger
}

// NewMeasurer creates a Measurer. A nil prober uses MP3Prober.
func NewMeasurer(prober Prober, buckets int, logger *zap.Logger) *Measurer {
	if prober == nil {
		prober = MP3Prober{}
	}
	if buckets <= 0 {
		buckets = DefaultWaveformBuckets
	}
	return &Measurer{prober: prober, buckets: buckets, logger: logger}
}

// Measure returns the m:ss duration and the serialized waveform of path,
// which is empty when it cannot be computed
func (m *Measurer) Measure(path string) (duration string, waveform string) {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return UnknownDuration, ""
	}

	duration = UnknownDuration
	if d, err := m.prober.Probe(path); err != nil {
		m.logger.Warn("Failed to probe duration", zap.String("path", path), zap.Error(err))
	} else {
		duration = entities.FormatDuration(d)
	}

	waveform, err := Waveform(path, m.buckets)
	if err != nil {
		m.logger.Warn("Failed to compute waveform", zap.String("path", path), zap.Error(err))
		return duration, ""
	}
	return duration, waveform
}
