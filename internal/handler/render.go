package handler

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/midirender/api/internal/client"
	"github.com/midirender/api/internal/model"
	"github.com/midirender/api/internal/service"
	"github.com/midirender/api/pkg/response"
)

// Response headers carrying render metadata
const (
	HeaderDuration   = "X-Duration-Seconds"
	HeaderProgram    = "X-Program"
	HeaderInstrument = "X-Instrument-Name"
	HeaderJobID      = "X-Job-Id"
)

type RenderHandler struct {
	service   *service.RenderService
	validator *validator.Validate
}

func NewRenderHandler(svc *service.RenderService, v *validator.Validate) *RenderHandler {
	return &RenderHandler{
		service:   svc,
		validator: v,
	}
}

// Render handles POST /render
// @Summary      Render MIDI to audio
// @Description  Apply a General MIDI instrument to an uploaded MIDI file and render it with fluidsynth
// @Tags         Render
// @Accept       multipart/form-data
// @Produce      audio/mpeg,audio/wav,json
// @Param        midi    formData file   true  "MIDI file"
// @Param        format  formData string false "mp3 (default) or wav"
// @Param        program formData int    false "General MIDI program 0-127 (default 0)"
// @Success      200 {file} binary
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /render [post]
func (h *RenderHandler) Render(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return response.ValidationError(c, "Request must be multipart/form-data", nil)
	}

	files := form.File["midi"]
	if len(files) == 0 {
		return response.ValidationError(c, "midi file is required", nil)
	}

	format := string(model.DefaultFormat)
	if values, ok := form.Value["format"]; ok && len(values) > 0 {
		format = values[0]
	}

	program := 0
	if values, ok := form.Value["program"]; ok && len(values) > 0 {
		program, err = strconv.Atoi(strings.TrimSpace(values[0]))
		if err != nil {
			return response.ValidationError(c, "program must be an integer", map[string]interface{}{
				"program": values[0],
			})
		}
	}

	req := model.RenderRequest{
		Format:  model.NormalizeFormat(format),
		Program: program,
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, validationMessage(err), formatValidationErrors(err))
	}

	f, err := files[0].Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.service.Render(c.Context(), &service.RenderInput{
		MIDI:    f,
		Format:  string(req.Format),
		Program: req.Program,
	})
	if err != nil {
		return renderError(c, err)
	}

	data, err := os.ReadFile(result.Path)
	h.service.Release(result)
	if err != nil {
		return response.ServiceError(c, "Failed to read rendered audio")
	}

	c.Attachment(result.Filename())
	c.Set(fiber.HeaderContentType, result.ContentType())
	c.Set(HeaderDuration, strconv.Itoa(result.DurationSecs))
	c.Set(HeaderProgram, strconv.Itoa(result.Program))
	c.Set(HeaderInstrument, result.InstrumentName)
	c.Set(HeaderJobID, result.JobID)

	return c.Send(data)
}

// renderError maps pipeline errors onto the error envelope
func renderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidFormat), errors.Is(err, service.ErrInvalidProgram):
		return response.ValidationError(c, err.Error(), nil)
	case errors.Is(err, service.ErrMalformedMIDI):
		return response.InvalidMIDI(c, err.Error())
	case errors.Is(err, service.ErrSoundfontMissing):
		return response.ConfigError(c, err.Error())
	case errors.Is(err, service.ErrSynthesisFailed):
		return response.SynthesisFailed(c, processMessage(err))
	case errors.Is(err, service.ErrTranscodeFailed):
		return response.TranscodeFailed(c, processMessage(err))
	default:
		return response.ServiceError(c, err.Error())
	}
}

// processMessage prefers the tool diagnostic ("fluidsynth failed: ...")
func processMessage(err error) string {
	var perr *client.ProcessError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	return err.Error()
}

// validationMessage picks a human-readable message for the first failing field
func validationMessage(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		switch validationErrors[0].Field() {
		case "Format":
			return service.ErrInvalidFormat.Error()
		case "Program":
			return service.ErrInvalidProgram.Error()
		}
	}
	return "Validation failed"
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
