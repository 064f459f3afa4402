package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/midirender/api/internal/client"
	"github.com/midirender/api/internal/model"
)

// RenderInput is a single render request after form parsing
type RenderInput struct {
	MIDI    io.Reader
	Format  string
	Program int
}

// RenderOptions tunes pipeline behavior
type RenderOptions struct {
	// Timeout bounds each external process; zero leaves them unbounded
	Timeout time.Duration
	// CleanupOnComplete removes the job directory once the artifact is released
	CleanupOnComplete bool
}

// RenderService runs the MIDI to audio pipeline
type RenderService struct {
	workspace  *Workspace
	synth      client.Synthesizer
	transcoder client.Transcoder
	prober     client.Prober
	opts       RenderOptions
}

func NewRenderService(
	workspace *Workspace,
	synth client.Synthesizer,
	transcoder client.Transcoder,
	prober client.Prober,
	opts RenderOptions,
) *RenderService {
	return &RenderService{
		workspace:  workspace,
		synth:      synth,
		transcoder: transcoder,
		prober:     prober,
		opts:       opts,
	}
}

// Validate checks client-supplied parameters and deployment preconditions.
// It touches neither the filesystem namespace nor any external process.
func (s *RenderService) Validate(format string, program int) (model.OutputFormat, error) {
	f := model.NormalizeFormat(format)
	if !f.IsValid() {
		return "", ErrInvalidFormat
	}

	if err := ValidateProgram(program); err != nil {
		return "", err
	}

	if err := s.synth.CheckSoundfont(); err != nil {
		return "", err
	}

	return f, nil
}

// Render validates the input, allocates a job directory, applies the
// instrument, synthesizes a waveform, transcodes it when mp3 was requested
// and probes the final artifact.
func (s *RenderService) Render(ctx context.Context, in *RenderInput) (*model.RenderResult, error) {
	format, err := s.Validate(in.Format, in.Program)
	if err != nil {
		return nil, err
	}

	job, err := s.workspace.NewJob()
	if err != nil {
		return nil, err
	}
	log.Printf("Starting render job: %s (format=%s program=%d)", job.ID, format, in.Program)
	started := time.Now()

	// Step 1: persist the upload
	data, err := io.ReadAll(in.MIDI)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := os.WriteFile(job.Path(InputMIDIName), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	// Step 2: inject the program change
	instrumented, err := ApplyInstrument(data, in.Program)
	if err != nil {
		log.Printf("Render job %s rejected: %v", job.ID, err)
		return nil, err
	}
	midiPath := job.Path(InstrumentMIDIName)
	if err := os.WriteFile(midiPath, instrumented, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save instrumented MIDI: %w", err)
	}

	// Step 3: MIDI -> WAV, always
	wavPath := job.Path(WaveformName)
	if err := s.runStep(ctx, func(ctx context.Context) error {
		return s.synth.Synthesize(ctx, midiPath, wavPath)
	}); err != nil {
		log.Printf("Render job %s synthesis failed: %v", job.ID, err)
		if errors.Is(err, ErrSoundfontMissing) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}

	// Step 4: WAV -> MP3 when requested
	finalPath := wavPath
	if format == model.FormatMP3 {
		mp3Path := job.Path(CompressedName)
		if err := s.runStep(ctx, func(ctx context.Context) error {
			return s.transcoder.TranscodeMP3(ctx, wavPath, mp3Path)
		}); err != nil {
			log.Printf("Render job %s transcode failed: %v", job.ID, err)
			return nil, fmt.Errorf("%w: %w", ErrTranscodeFailed, err)
		}
		finalPath = mp3Path
	}

	// Step 5: metadata from the final artifact
	var duration int
	_ = s.runStep(ctx, func(ctx context.Context) error {
		duration = s.prober.DurationSeconds(ctx, finalPath)
		return nil
	})

	log.Printf("Render job %s completed in %s (%ds of audio)", job.ID, time.Since(started).Round(time.Millisecond), duration)

	return &model.RenderResult{
		JobID:          job.ID,
		WorkDir:        job.Dir,
		Path:           finalPath,
		Format:         format,
		DurationSecs:   duration,
		Program:        in.Program,
		InstrumentName: model.InstrumentName(in.Program),
	}, nil
}

// Release is called once the artifact has been handed to the caller
func (s *RenderService) Release(result *model.RenderResult) {
	if !s.opts.CleanupOnComplete || result == nil || result.WorkDir == "" {
		return
	}
	if err := os.RemoveAll(result.WorkDir); err != nil {
		log.Printf("Failed to remove job directory %s: %v", result.WorkDir, err)
	}
}

// CleanupOnComplete reports whether released jobs are removed
func (s *RenderService) CleanupOnComplete() bool {
	return s.opts.CleanupOnComplete
}

func (s *RenderService) runStep(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.opts.Timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return fn(ctx)
}
