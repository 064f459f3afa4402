package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/midirender/api/internal/model"
	"github.com/midirender/api/pkg/response"
)

// HealthCheck reports whether a dependency is usable
type HealthCheck func() bool

type SystemHandler struct {
	serviceName string
	checks      map[string]HealthCheck
}

func NewSystemHandler(serviceName string, checks map[string]HealthCheck) *SystemHandler {
	return &SystemHandler{
		serviceName: serviceName,
		checks:      checks,
	}
}

// Root handles GET /
func (h *SystemHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ok":      true,
		"service": h.serviceName,
	})
}

// Health handles GET /health
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	services := fiber.Map{}
	for name, check := range h.checks {
		services[name] = check()
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"services": services,
	})
}

// Instruments handles GET /instruments
func (h *SystemHandler) Instruments(c *fiber.Ctx) error {
	return response.OK(c, model.Instruments())
}
