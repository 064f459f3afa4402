package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/midirender/api/internal/config"
)

// recordingRunner captures invocations and returns canned output
type recordingRunner struct {
	name   string
	args   []string
	stdout string
	err    error
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) (*ProcessOutput, error) {
	r.name = name
	r.args = args
	return &ProcessOutput{Stdout: []byte(r.stdout)}, r.err
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestExecRunner_CapturesOutput(t *testing.T) {
	script := writeScript(t, t.TempDir(), "tool", `echo "hello $1"; echo "warn" 1>&2`)

	out, err := NewExecRunner().Run(context.Background(), script, "world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(string(out.Stdout)) != "hello world" {
		t.Errorf("unexpected stdout %q", out.Stdout)
	}
	if strings.TrimSpace(string(out.Stderr)) != "warn" {
		t.Errorf("unexpected stderr %q", out.Stderr)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	script := writeScript(t, t.TempDir(), "tool", `echo "bad soundfont" 1>&2; exit 3`)

	_, err := NewExecRunner().Run(context.Background(), script)
	var perr *ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProcessError, got %v", err)
	}
	if perr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", perr.ExitCode)
	}
	if !strings.Contains(perr.Error(), "bad soundfont") {
		t.Errorf("expected stderr in message, got %q", perr.Error())
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	var perr *ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProcessError, got %v", err)
	}
	if perr.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", perr.ExitCode)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	script := writeScript(t, t.TempDir(), "tool", `exec sleep 5`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewExecRunner().Run(ctx, script)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFluidsynthClient_Args(t *testing.T) {
	soundfont := filepath.Join(t.TempDir(), "gm.sf2")
	if err := os.WriteFile(soundfont, []byte("sfbk"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &recordingRunner{}
	c := NewFluidsynthClient(runner,
		&config.ToolsConfig{Fluidsynth: "fluidsynth"},
		&config.RenderConfig{SoundfontPath: soundfont, SampleRate: 44100},
	)

	if err := c.Synthesize(context.Background(), "/job/instrument.mid", "/job/output.wav"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"-ni", soundfont, "/job/instrument.mid", "-F", "/job/output.wav", "-r", "44100"}
	if runner.name != "fluidsynth" || !reflect.DeepEqual(runner.args, want) {
		t.Errorf("unexpected invocation %s %v", runner.name, runner.args)
	}
}

func TestFluidsynthClient_MissingSoundfont(t *testing.T) {
	runner := &recordingRunner{}
	c := NewFluidsynthClient(runner,
		&config.ToolsConfig{Fluidsynth: "fluidsynth"},
		&config.RenderConfig{SoundfontPath: filepath.Join(t.TempDir(), "missing.sf2")},
	)

	err := c.Synthesize(context.Background(), "in.mid", "out.wav")
	if !errors.Is(err, ErrSoundfontMissing) {
		t.Fatalf("expected ErrSoundfontMissing, got %v", err)
	}
	if runner.name != "" {
		t.Error("synthesizer must not run without a soundfont")
	}
}

func TestFFmpegClient_Args(t *testing.T) {
	runner := &recordingRunner{}
	c := NewFFmpegClient(runner, &config.ToolsConfig{FFmpeg: "ffmpeg"}, &config.RenderConfig{MP3Quality: 4})

	if err := c.TranscodeMP3(context.Background(), "/job/output.wav", "/job/output.mp3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"-y", "-i", "/job/output.wav", "-codec:a", "libmp3lame", "-q:a", "4", "/job/output.mp3"}
	if !reflect.DeepEqual(runner.args, want) {
		t.Errorf("unexpected args %v", runner.args)
	}
}

func TestFFmpegClient_QualityOutOfRange(t *testing.T) {
	runner := &recordingRunner{}
	c := NewFFmpegClient(runner, &config.ToolsConfig{FFmpeg: "ffmpeg"}, &config.RenderConfig{MP3Quality: 12})

	_ = c.TranscodeMP3(context.Background(), "a.wav", "a.mp3")
	if runner.args[6] != "4" {
		t.Errorf("expected fallback quality 4, got %s", runner.args[6])
	}
}

func TestFFprobeClient_Duration(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		err    error
		want   int
	}{
		{"whole", "12.000000\n", nil, 12},
		{"round up", "3.6\n", nil, 4},
		{"round down", "3.4", nil, 3},
		{"half to even", "2.5", nil, 2},
		{"multi line", "7.2\n7.1\n", nil, 7},
		{"empty", "", nil, 0},
		{"na", "N/A\n", nil, 0},
		{"negative", "-1.0", nil, 0},
		{"tool failed", "9.0", &ProcessError{Tool: "ffprobe", ExitCode: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &recordingRunner{stdout: tt.stdout, err: tt.err}
			c := NewFFprobeClient(runner, &config.ToolsConfig{FFprobe: "ffprobe"})
			if got := c.DurationSeconds(context.Background(), "x.wav"); got != tt.want {
				t.Errorf("DurationSeconds = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFFprobeClient_Args(t *testing.T) {
	runner := &recordingRunner{stdout: "1.0"}
	c := NewFFprobeClient(runner, &config.ToolsConfig{FFprobe: "ffprobe"})
	c.DurationSeconds(context.Background(), "/job/output.mp3")

	want := []string{"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", "/job/output.mp3"}
	if !reflect.DeepEqual(runner.args, want) {
		t.Errorf("unexpected args %v", runner.args)
	}
}

func TestFFprobeClient_UnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.wav")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	text := filepath.Join(dir, "notes.wav")
	if err := os.WriteFile(text, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Behaves like ffprobe on unreadable input: diagnostic on stderr, exit 1
	probe := writeScript(t, dir, "ffprobe", `echo "Invalid data found when processing input" 1>&2; exit 1`)
	c := NewFFprobeClient(NewExecRunner(), &config.ToolsConfig{FFprobe: probe})

	for _, path := range []string{filepath.Join(dir, "missing.wav"), empty, text} {
		if got := c.DurationSeconds(context.Background(), path); got != 0 {
			t.Errorf("DurationSeconds(%s) = %d, want 0", path, got)
		}
	}

	missingTool := NewFFprobeClient(NewExecRunner(), &config.ToolsConfig{FFprobe: filepath.Join(dir, "nope")})
	if got := missingTool.DurationSeconds(context.Background(), empty); got != 0 {
		t.Errorf("expected 0 when the tool is missing, got %d", got)
	}
}
