package audio

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// DefaultSampleRate is the rate sources are normalized to before asetrate
const DefaultSampleRate = 44100

// Echo parameters for ffmpeg's aecho filter
type Echo struct {
	InGain  float64
	OutGain float64
	DelayMs int
	Decay   float64
}

// Preset is a named filter chain applied to produce one variant
type Preset struct {
	Name       string
	Tempo      float64 // atempo factor
	RateFactor float64 // asetrate multiplier, shifts pitch and speed together
	Echo       Echo
}

// Fixed presets, one per variant index
var (
	PresetSlowReverb = Preset{
		Name:       "slow-reverb",
		Tempo:      0.8,
		RateFactor: 0.89,
		Echo:       Echo{InGain: 0.8, OutGain: 0.88, DelayMs: 60, Decay: 0.4},
	}
	PresetFastPitchUp = Preset{
		Name:       "fast-pitch-up",
		Tempo:      1.2,
		RateFactor: 1.1,
		Echo:       Echo{InGain: 0.6, OutGain: 0.68, DelayMs: 40, Decay: 0.4},
	}
	PresetNeutralEcho = Preset{
		Name:       "neutral-echo",
		Tempo:      1.0,
		RateFactor: 0.95,
		Echo:       Echo{InGain: 0.9, OutGain: 0.98, DelayMs: 80, Decay: 0.4},
	}
)

// Presets returns the fixed presets in variant order
func Presets() []Preset {
	return []Preset{PresetSlowReverb, PresetFastPitchUp, PresetNeutralEcho}
}

// Ranges for the randomized policy
const (
	minRandomTempo = 0.8
	maxRandomTempo = 1.2
	minRandomRate  = 0.89
	maxRandomRate  = 1.11
)

// RandomPreset draws tempo and rate uniformly with a fixed echo
func RandomPreset(r *rand.Rand) Preset {
	tempo := minRandomTempo + r.Float64()*(maxRandomTempo-minRandomTempo)
	rate := minRandomRate + r.Float64()*(maxRandomRate-minRandomRate)
	return Preset{
		Name:       fmt.Sprintf("random-t%.2f-r%.2f", tempo, rate),
		Tempo:      tempo,
		RateFactor: rate,
		Echo:       Echo{InGain: 0.8, OutGain: 0.88, DelayMs: 60, Decay: 0.4},
	}
}

// FilterGraph renders the preset as an ffmpeg -af argument. Input is
// resampled to sampleRate first so asetrate scales a known rate whatever the
// source uses, then resampled back so players see a standard rate.
func (p Preset) FilterGraph(sampleRate int) string {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return fmt.Sprintf("aresample=%d,asetrate=%d*%s,aresample=%d,atempo=%s,aecho=%s:%s:%d:%s",
		sampleRate,
		sampleRate, ftoa(p.RateFactor),
		sampleRate,
		ftoa(p.Tempo),
		ftoa(p.Echo.InGain), ftoa(p.Echo.OutGain), p.Echo.DelayMs, ftoa(p.Echo.Decay),
	)
}

// Validate checks the preset against ffmpeg filter limits
func (p Preset) Validate() error {
	if p.Tempo < 0.5 || p.Tempo > 2.0 {
		return fmt.Errorf("preset %s: tempo %v outside [0.5, 2.0]", p.Name, p.Tempo)
	}
	if p.RateFactor <= 0 {
		return fmt.Errorf("preset %s: rate factor must be positive", p.Name)
	}
	if p.Echo.DelayMs <= 0 {
		return fmt.Errorf("preset %s: echo delay must be positive", p.Name)
	}
	if p.Echo.Decay <= 0 || p.Echo.Decay > 1 {
		return fmt.Errorf("preset %s: echo decay %v outside (0, 1]", p.Name, p.Echo.Decay)
	}
	return nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
