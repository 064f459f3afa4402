package client

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/midirender/api/internal/config"
)

// Prober reads media metadata
type Prober interface {
	DurationSeconds(ctx context.Context, path string) int
}

// FFprobeClient implements Prober with the ffprobe CLI
type FFprobeClient struct {
	runner Runner
	binary string
}

// NewFFprobeClient creates a new ffprobe-backed prober
func NewFFprobeClient(runner Runner, tools *config.ToolsConfig) *FFprobeClient {
	return &FFprobeClient{
		runner: runner,
		binary: tools.FFprobe,
	}
}

// DurationSeconds returns the container duration rounded to whole seconds.
// Any failure (missing tool, non-zero exit, unparsable output) yields 0.
func (c *FFprobeClient) DurationSeconds(ctx context.Context, path string) int {
	out, err := c.runner.Run(ctx, c.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0
	}
	return parseDuration(string(out.Stdout))
}

func parseDuration(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	// ffprobe may print one value per stream/format; the first line is the format duration
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	dur, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(dur) || math.IsInf(dur, 0) || dur < 0 {
		return 0
	}
	return int(math.RoundToEven(dur))
}

// IsConfigured returns true if the ffprobe binary resolves
func (c *FFprobeClient) IsConfigured() bool {
	return LookPath(c.binary)
}
