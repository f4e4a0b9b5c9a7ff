package audit

import (
	"farm-agent/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for audit polling.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the audit routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/audit")
	group.Get("/positions", h.HandlePositions)
	group.Get("/sources", h.HandleSources)
	group.Post("/poll", h.HandlePoll)
}

// HandlePositions returns the position of every tracked source.
// @Summary Audit Positions
// @Description Last delivered timestamp and tie-break digests per source.
// @Tags audit
// @Produce json
// @Success 200 {array} audit.SourcePosition "Positions"
// @Router /audit/positions [get]
func (h *Handler) HandlePositions(c *fiber.Ctx) error {
	return c.JSON(h.service.Tracker().Positions())
}

// HandleSources returns the discovered sources and their last poll.
// @Summary Audit Sources
// @Description Discovered audit sources with the outcome of their last poll.
// @Tags audit
// @Produce json
// @Success 200 {array} audit.SourceStatus "Sources"
// @Router /audit/sources [get]
func (h *Handler) HandleSources(c *fiber.Ctx) error {
	return c.JSON(h.service.Sources())
}

// HandlePoll polls every source now.
// @Summary Poll Audit Sources
// @Description Poll every audit source immediately.
// @Tags audit
// @Produce json
// @Success 200 {object} audit.PollResult "Result"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /audit/poll [post]
func (h *Handler) HandlePoll(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	res, err := h.service.PollAll(c.Context())
	if err != nil {
		l.Error("Audit poll failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  err.Error(),
			"result": res,
		})
	}
	return c.JSON(res)
}
