package service

import (
	"bytes"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/midirender/api/internal/model"
)

// programChannel is the channel the injected program change targets
const programChannel = 0

// ValidateProgram checks that a program number is a General MIDI program
func ValidateProgram(program int) error {
	if program < model.MinProgram || program > model.MaxProgram {
		return fmt.Errorf("%w (got %d)", ErrInvalidProgram, program)
	}
	return nil
}

// ApplyInstrument returns a copy of the MIDI document with a new first track
// holding a single program change (channel 0, delta 0). The original tracks
// follow unchanged and in order. The result is always written as format 1,
// since a format 0 file cannot carry more than one track.
func ApplyInstrument(data []byte, program int) ([]byte, error) {
	if err := ValidateProgram(program); err != nil {
		return nil, err
	}

	src, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMIDI, err)
	}

	var programTrack smf.Track
	programTrack.Add(0, midi.ProgramChange(programChannel, uint8(program)))
	programTrack.Close(0)

	dst := smf.New()
	dst.TimeFormat = src.TimeFormat
	dst.Tracks = make([]smf.Track, 0, len(src.Tracks)+1)
	dst.Tracks = append(dst.Tracks, programTrack)
	dst.Tracks = append(dst.Tracks, src.Tracks...)

	var buf bytes.Buffer
	if _, err := dst.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI file: %w", err)
	}

	return buf.Bytes(), nil
}
