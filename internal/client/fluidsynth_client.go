package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/midirender/api/internal/config"
)

// ErrSoundfontMissing means the configured soundfont file does not exist
var ErrSoundfontMissing = errors.New("soundfont not found")

// Synthesizer renders a MIDI file to a waveform file
type Synthesizer interface {
	Synthesize(ctx context.Context, midiPath, wavPath string) error
	SoundfontPath() string
	CheckSoundfont() error
}

// FluidsynthClient implements Synthesizer with the fluidsynth CLI
type FluidsynthClient struct {
	runner     Runner
	binary     string
	soundfont  string
	sampleRate int
}

// NewFluidsynthClient creates a new fluidsynth-backed synthesizer
func NewFluidsynthClient(runner Runner, tools *config.ToolsConfig, render *config.RenderConfig) *FluidsynthClient {
	sampleRate := render.SampleRate
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &FluidsynthClient{
		runner:     runner,
		binary:     tools.Fluidsynth,
		soundfont:  render.SoundfontPath,
		sampleRate: sampleRate,
	}
}

// SoundfontPath returns the configured soundfont location
func (c *FluidsynthClient) SoundfontPath() string {
	return c.soundfont
}

// CheckSoundfont verifies the soundfont exists on the local filesystem
func (c *FluidsynthClient) CheckSoundfont() error {
	info, err := os.Stat(c.soundfont)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w (%s)", ErrSoundfontMissing, c.soundfont)
	}
	return nil
}

// Synthesize renders midiPath into a waveform at wavPath
func (c *FluidsynthClient) Synthesize(ctx context.Context, midiPath, wavPath string) error {
	if err := c.CheckSoundfont(); err != nil {
		return err
	}

	// -n: no MIDI input driver, -i: no interactive shell
	_, err := c.runner.Run(ctx, c.binary,
		"-ni",
		c.soundfont,
		midiPath,
		"-F", wavPath,
		"-r", strconv.Itoa(c.sampleRate),
	)
	return err
}

// IsConfigured returns true if the soundfont and binary are present
func (c *FluidsynthClient) IsConfigured() bool {
	return c.CheckSoundfont() == nil && LookPath(c.binary)
}
