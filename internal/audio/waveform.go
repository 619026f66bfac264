package audio

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultWaveformBuckets is the number of peaks stored per track
const DefaultWaveformBuckets = 100

// Peaks reduces samples to n absolute peak values normalized to [0, 1]
func Peaks(samples []float64, n int) []float64 {
	if n <= 0 || len(samples) == 0 {
		return nil
	}
	if n > len(samples) {
		n = len(samples)
	}

	abs := make([]float64, len(samples))
	for i, s := range samples {
		abs[i] = math.Abs(s)
	}

	peaks := make([]float64, n)
	size := float64(len(abs)) / float64(n)
	for i := range n {
		lo := int(float64(i) * size)
		hi := int(float64(i+1) * size)
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(abs) {
			hi = len(abs)
		}
		peaks[i] = floats.Max(abs[lo:hi])
	}

	if top := floats.Max(peaks); top > 0 {
		floats.Scale(1/top, peaks)
	}
	return peaks
}

// Waveform decodes an MP3 file and returns its serialized peaks
func Waveform(path string, buckets int) (string, error) {
	samples, _, err := LoadMP3Mono(path)
	if err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return "", fmt.Errorf("no audio decoded from %s", path)
	}

	peaks := Peaks(samples, buckets)
	for i := range peaks {
		peaks[i] = math.Round(peaks[i]*1000) / 1000
	}

	data, err := json.Marshal(peaks)
	if err != nil {
		return "", fmt.Errorf("marshal waveform: %w", err)
	}
	return string(data), nil
}
