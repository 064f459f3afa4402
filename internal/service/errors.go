package service

import (
	"errors"

	"github.com/midirender/api/internal/client"
)

// Render pipeline errors, classified by the handler with errors.Is
var (
	ErrInvalidFormat    = errors.New("format must be mp3 or wav")
	ErrInvalidProgram   = errors.New("program must be between 0 and 127")
	ErrMalformedMIDI    = errors.New("invalid MIDI file")
	ErrSoundfontMissing = client.ErrSoundfontMissing
	ErrSynthesisFailed  = errors.New("synthesis failed")
	ErrTranscodeFailed  = errors.New("transcode failed")
)
