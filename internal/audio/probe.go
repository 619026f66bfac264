package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit stereo
const bytesPerFrame = 4

// Prober measures the playback length of an encoded file
type Prober interface {
	Probe(path string) (time.Duration, error)
}

// MP3Prober reads duration from the decoded PCM length
type MP3Prober struct{}

// Probe implements Prober
func (MP3Prober) Probe(path string) (time.Duration, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".mp3" {
		return 0, fmt.Errorf("unsupported audio format: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	frames := decoder.Length() / bytesPerFrame
	if decoder.SampleRate() <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", decoder.SampleRate())
	}
	return time.Duration(frames) * time.Second / time.Duration(decoder.SampleRate()), nil
}

// LoadMP3Mono decodes an MP3 file to mono samples normalized to [-1, 1]
func LoadMP3Mono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3: %w", err)
	}

	n := len(pcm) / bytesPerFrame
	samples := make([]float64, n)
	for i := range n {
		off := i * bytesPerFrame
		left := int16(binary.LittleEndian.Uint16(pcm[off:]))
		right := int16(binary.LittleEndian.Uint16(pcm[off+2:]))
		samples[i] = (float64(left) + float64(right)) / 2 / 32768
	}
	return samples, decoder.SampleRate(), nil
}
