package audio

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/soundalike/domain"
)

// copyRenderer writes the preset name to dst and records calls
type copyRenderer struct {
	mu      sync.Mutex
	presets []string
	failOn  string
}

func (r *copyRenderer) Render(ctx context.Context, src, dst string, preset Preset) error {
	r.mu.Lock()
	r.presets = append(r.presets, preset.Name)
	r.mu.Unlock()
	if preset.Name == r.failOn {
		return errors.New("encoder crashed")
	}
	return os.WriteFile(dst, []byte(preset.Name), 0o644)
}

type fixedProber struct {
	d   time.Duration
	err error
}

func (p fixedProber) Probe(path string) (time.Duration, error) { return p.d, p.err }

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	src := filepath.Join(dir, "input.mp3")
	require.NoError(t, os.WriteFile(src, []byte("not really audio"), 0o644))
	return src
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProcessThreeDistinctVariants(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	renderer := &copyRenderer{}
	p := NewProcessor(Config{OutputDir: dir}, renderer, fixedProber{d: 150 * time.Second}, zaptest.NewLogger(t))

	tracks, err := p.Process(context.Background(), src, 3)
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	seen := map[string]bool{src: true}
	for i, track := range tracks {
		assert.False(t, seen[track.FilePath], "output %d collides: %s", i, track.FilePath)
		seen[track.FilePath] = true
		assert.Equal(t, "2:30", track.Duration)
		assert.FileExists(t, track.FilePath)
	}

	assert.Equal(t, PresetSlowReverb.Name, tracks[0].Variant)
	assert.Equal(t, PresetFastPitchUp.Name, tracks[1].Variant)
	assert.Equal(t, PresetNeutralEcho.Name, tracks[2].Variant)
}

func TestProcessCallsDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	p := NewProcessor(Config{OutputDir: dir}, &copyRenderer{}, fixedProber{}, zaptest.NewLogger(t))

	first, err := p.Process(context.Background(), src, 1)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), src, 1)
	require.NoError(t, err)

	assert.NotEqual(t, first[0].FilePath, second[0].FilePath)
}

func TestProcessMissingSource(t *testing.T) {
	dir := t.TempDir()
	renderer := &copyRenderer{}
	p := NewProcessor(Config{OutputDir: dir}, renderer, fixedProber{}, zaptest.NewLogger(t))

	tracks, err := p.Process(context.Background(), filepath.Join(dir, "missing.mp3"), 3)

	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	assert.Nil(t, tracks)
	assert.Empty(t, renderer.presets)
	assert.Empty(t, listDir(t, dir))
}

func TestProcessDirectoryAsSource(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(Config{OutputDir: dir}, &copyRenderer{}, fixedProber{}, zaptest.NewLogger(t))

	_, err := p.Process(context.Background(), dir, 1)

	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestCheckSourceUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	locked := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))
	src := filepath.Join(locked, "song.mp3")
	require.NoError(t, os.WriteFile(src, []byte("ID3"), 0o644))
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	err := CheckSource(src)

	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	assert.Equal(t, domain.KindSourceNotFound, domain.KindOf(err))
}

func TestProcessFailureRemovesAllOutputs(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	renderer := &copyRenderer{failOn: PresetFastPitchUp.Name}
	p := NewProcessor(Config{OutputDir: dir}, renderer, fixedProber{}, zaptest.NewLogger(t))

	tracks, err := p.Process(context.Background(), src, 3)

	assert.ErrorIs(t, err, domain.ErrProcessingFailed)
	assert.Nil(t, tracks)
	assert.Equal(t, []string{"input.mp3"}, listDir(t, dir))
}

func TestProcessInvalidVariantCount(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	p := NewProcessor(Config{OutputDir: dir}, &copyRenderer{}, fixedProber{}, zaptest.NewLogger(t))

	_, err := p.Process(context.Background(), src, 0)

	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestProcessProbeFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	p := NewProcessor(Config{OutputDir: dir}, &copyRenderer{}, fixedProber{err: errors.New("bad frame")}, zaptest.NewLogger(t))

	tracks, err := p.Process(context.Background(), src, 1)

	require.NoError(t, err)
	assert.Equal(t, UnknownDuration, tracks[0].Duration)
}

func TestProcessCyclesPresetsBeyondThree(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	p := NewProcessor(Config{OutputDir: dir}, &copyRenderer{}, fixedProber{}, zaptest.NewLogger(t))

	tracks, err := p.Process(context.Background(), src, 4)

	require.NoError(t, err)
	assert.Equal(t, PresetSlowReverb.Name, tracks[3].Variant)
}

func TestProcessRandomPolicy(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	renderer := &copyRenderer{}
	p := NewProcessor(Config{
		OutputDir: dir,
		Policy:    PolicyRandom,
		Rand:      rand.New(rand.NewPCG(1, 2)),
	}, renderer, fixedProber{}, zaptest.NewLogger(t))

	tracks, err := p.Process(context.Background(), src, 1)

	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Contains(t, tracks[0].Variant, "random-")
}
