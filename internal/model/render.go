package model

// RenderRequest represents the form fields of a render upload
type RenderRequest struct {
	Format  OutputFormat `validate:"required,oneof=mp3 wav"`
	Program int          `validate:"min=0,max=127"`
}

// RenderResult describes a finished render job
type RenderResult struct {
	JobID          string       `json:"jobId"`
	WorkDir        string       `json:"-"`
	Path           string       `json:"-"`
	Format         OutputFormat `json:"format"`
	DurationSecs   int          `json:"durationSeconds"`
	Program        int          `json:"program"`
	InstrumentName string       `json:"instrumentName"`
}

// ContentType returns the media type of the rendered artifact
func (r *RenderResult) ContentType() string {
	return r.Format.ContentType()
}

// Filename returns the download filename of the rendered artifact
func (r *RenderResult) Filename() string {
	return r.Format.Filename()
}

// InstrumentInfo is a single entry of the instrument listing
type InstrumentInfo struct {
	Program int    `json:"program"`
	Name    string `json:"name"`
}
