package model

import "strings"

// Output formats
type OutputFormat string

const (
	FormatMP3 OutputFormat = "mp3"
	FormatWAV OutputFormat = "wav"
)

var ValidFormats = []OutputFormat{FormatMP3, FormatWAV}

// DefaultFormat is used when the request carries no format field
const DefaultFormat = FormatMP3

// NormalizeFormat lowercases and trims a requested format string.
// The result is not guaranteed to be valid; see IsValid.
func NormalizeFormat(s string) OutputFormat {
	return OutputFormat(strings.ToLower(strings.TrimSpace(s)))
}

// IsValid reports whether f is one of the recognized output formats
func (f OutputFormat) IsValid() bool {
	for _, v := range ValidFormats {
		if f == v {
			return true
		}
	}
	return false
}

// ContentType returns the response media type for the format
func (f OutputFormat) ContentType() string {
	if f == FormatWAV {
		return "audio/wav"
	}
	return "audio/mpeg"
}

// Filename returns the artifact file name inside a job directory
func (f OutputFormat) Filename() string {
	return "output." + string(f)
}

// Program number bounds (General MIDI)
const (
	MinProgram = 0
	MaxProgram = 127
)
