package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Renderer writes one filtered variant of src to dst
type Renderer interface {
	Render(ctx context.Context, src, dst string, preset Preset) error
}

// FFmpegRenderer shells out to ffmpeg and encodes MP3 output
type FFmpegRenderer struct {
	Path       string // ffmpeg binary, defaults to "ffmpeg"
	SampleRate int
}

// NewFFmpegRenderer creates a renderer using the given binary path
func NewFFmpegRenderer(path string) *FFmpegRenderer {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegRenderer{Path: path, SampleRate: DefaultSampleRate}
}

// Render runs the preset's filter graph over src
func (r *FFmpegRenderer) Render(ctx context.Context, src, dst string, preset Preset) error {
	if err := preset.Validate(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.Path,
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", src,
		"-af", preset.FilterGraph(r.SampleRate),
		"-ar", fmt.Sprint(r.SampleRate),
		"-codec:a", "libmp3lame",
		"-q:a", "4",
		dst,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", preset.Name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
