package service

import (
	"bytes"
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var endOfTrack = []byte{0xFF, 0x2F, 0x00}

// buildMIDI writes a small format 1 file with the requested number of tracks
func buildMIDI(t *testing.T, tracks int) []byte {
	t.Helper()

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	for i := 0; i < tracks; i++ {
		var tr smf.Track
		if i == 0 {
			tr.Add(0, smf.MetaTempo(120))
		}
		ch := uint8(i % 16)
		tr.Add(0, midi.NoteOn(ch, 60+uint8(i), 100))
		tr.Add(96, midi.NoteOff(ch, 60+uint8(i)))
		tr.Add(0, midi.NoteOn(ch, 64, 90))
		tr.Add(48, midi.NoteOff(ch, 64))
		tr.Close(0)
		if err := s.Add(tr); err != nil {
			t.Fatalf("failed to add track: %v", err)
		}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("failed to write MIDI: %v", err)
	}
	return buf.Bytes()
}

func readMIDI(t *testing.T, data []byte) *smf.SMF {
	t.Helper()
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to read MIDI: %v", err)
	}
	return s
}

func assertTracksEqual(t *testing.T, got, want smf.Track) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("track has %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Delta != want[i].Delta || !bytes.Equal([]byte(got[i].Message), []byte(want[i].Message)) {
			t.Errorf("event %d differs: got %v/%X, want %v/%X",
				i, got[i].Delta, []byte(got[i].Message), want[i].Delta, []byte(want[i].Message))
		}
	}
}

func TestApplyInstrument_InsertsProgramTrack(t *testing.T) {
	for _, program := range []int{0, 1, 40, 64, 127} {
		for _, tracks := range []int{1, 3} {
			input := buildMIDI(t, tracks)
			src := readMIDI(t, input)

			output, err := ApplyInstrument(input, program)
			if err != nil {
				t.Fatalf("ApplyInstrument(%d) failed: %v", program, err)
			}
			dst := readMIDI(t, output)

			if len(dst.Tracks) != len(src.Tracks)+1 {
				t.Fatalf("expected %d tracks, got %d", len(src.Tracks)+1, len(dst.Tracks))
			}

			first := dst.Tracks[0]
			if len(first) == 0 {
				t.Fatal("program track is empty")
			}
			var ch, prog uint8
			if !midi.Message(first[0].Message).GetProgramChange(&ch, &prog) {
				t.Fatalf("first event is not a program change: %X", []byte(first[0].Message))
			}
			if ch != 0 || int(prog) != program || first[0].Delta != 0 {
				t.Errorf("program change = ch %d prog %d delta %d, want ch 0 prog %d delta 0", ch, prog, first[0].Delta, program)
			}
			for _, ev := range first[1:] {
				if !bytes.Equal([]byte(ev.Message), endOfTrack) {
					t.Errorf("unexpected extra event in program track: %X", []byte(ev.Message))
				}
			}

			for i := range src.Tracks {
				assertTracksEqual(t, dst.Tracks[i+1], src.Tracks[i])
			}

			if dst.TimeFormat != src.TimeFormat {
				t.Errorf("time format changed: %v -> %v", src.TimeFormat, dst.TimeFormat)
			}
		}
	}
}

func TestApplyInstrument_InvalidProgram(t *testing.T) {
	input := buildMIDI(t, 1)
	for _, program := range []int{-1, 128, 1000} {
		if _, err := ApplyInstrument(input, program); !errors.Is(err, ErrInvalidProgram) {
			t.Errorf("ApplyInstrument(%d) error = %v, want ErrInvalidProgram", program, err)
		}
	}
}

func TestApplyInstrument_ProgramCheckedBeforeParse(t *testing.T) {
	if _, err := ApplyInstrument([]byte("garbage"), 200); !errors.Is(err, ErrInvalidProgram) {
		t.Errorf("expected ErrInvalidProgram, got %v", err)
	}
}

func TestApplyInstrument_MalformedInput(t *testing.T) {
	inputs := map[string][]byte{
		"empty":     nil,
		"text":      []byte("this is not a midi file"),
		"truncated": []byte("MThd\x00\x00"),
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := ApplyInstrument(input, 0); !errors.Is(err, ErrMalformedMIDI) {
				t.Errorf("expected ErrMalformedMIDI, got %v", err)
			}
		})
	}
}

func TestApplyInstrument_Deterministic(t *testing.T) {
	input := buildMIDI(t, 2)
	a, err := ApplyInstrument(input, 40)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ApplyInstrument(input, 40)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("expected identical output for identical input")
	}
}
