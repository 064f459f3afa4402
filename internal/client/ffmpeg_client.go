package client

import (
	"context"
	"strconv"

	"github.com/midirender/api/internal/config"
)

// Transcoder converts a waveform file to a compressed format
type Transcoder interface {
	TranscodeMP3(ctx context.Context, wavPath, mp3Path string) error
}

// FFmpegClient implements Transcoder with the ffmpeg CLI
type FFmpegClient struct {
	runner  Runner
	binary  string
	quality int
}

// NewFFmpegClient creates a new ffmpeg-backed transcoder.
// quality is the LAME VBR index, 0 (best) to 9 (smallest).
func NewFFmpegClient(runner Runner, tools *config.ToolsConfig, render *config.RenderConfig) *FFmpegClient {
	quality := render.MP3Quality
	if quality < 0 || quality > 9 {
		quality = 4
	}
	return &FFmpegClient{
		runner:  runner,
		binary:  tools.FFmpeg,
		quality: quality,
	}
}

// TranscodeMP3 encodes wavPath to mp3Path, overwriting any existing file
func (c *FFmpegClient) TranscodeMP3(ctx context.Context, wavPath, mp3Path string) error {
	_, err := c.runner.Run(ctx, c.binary,
		"-y",
		"-i", wavPath,
		"-codec:a", "libmp3lame",
		"-q:a", strconv.Itoa(c.quality),
		mp3Path,
	)
	return err
}

// IsConfigured returns true if the ffmpeg binary resolves
func (c *FFmpegClient) IsConfigured() bool {
	return LookPath(c.binary)
}
