package inventory

import (
	"farm-agent/core/logger"
	"farm-agent/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultRecordLimit = 500

// Handler handles HTTP requests for the inventory.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the inventory routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/inventory")
	group.Get("/summary", h.HandleSummary)
	group.Get("/records", h.HandleRecords)
	group.Post("/cycle", h.HandleCycle)
}

// SummaryResponse is returned by GET /inventory/summary.
type SummaryResponse struct {
	Status Status         `json:"status"`
	Counts map[string]int `json:"counts"`
}

// HandleSummary returns the last cycle status and record counts per category.
// @Summary Inventory Summary
// @Description Last cycle status and cached record counts per category.
// @Tags inventory
// @Produce json
// @Success 200 {object} inventory.SummaryResponse "Summary"
// @Router /inventory/summary [get]
func (h *Handler) HandleSummary(c *fiber.Ctx) error {
	counts := make(map[string]int)
	for category, n := range h.service.Cache().Counts() {
		counts[string(category)] = n
	}
	return c.JSON(SummaryResponse{Status: h.service.Status(), Counts: counts})
}

// HandleRecords lists cached records.
// @Summary List Records
// @Description List cached records, optionally filtered by category and parent.
// @Tags inventory
// @Produce json
// @Param category query string false "Category (e.g. 'Site')"
// @Param parent query string false "Parent identifier"
// @Param limit query int false "Maximum number of records" default(500)
// @Success 200 {array} reconcile.Record "Records"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /inventory/records [get]
func (h *Handler) HandleRecords(c *fiber.Ctx) error {
	var category reconcile.Category
	if raw := c.Query("category"); raw != "" {
		parsed, err := reconcile.ParseCategory(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		category = parsed
	}
	parent := c.Query("parent")
	limit := c.QueryInt("limit", defaultRecordLimit)
	if limit <= 0 {
		limit = defaultRecordLimit
	}

	records := make([]reconcile.Record, 0)
	for _, rec := range h.service.Cache().Records() {
		if category != "" && rec.Category != category {
			continue
		}
		if parent != "" && reconcile.ParentOf(rec.ID) != parent {
			continue
		}
		records = append(records, rec)
		if len(records) == limit {
			break
		}
	}
	return c.JSON(records)
}

// HandleCycle runs an inventory cycle now.
// @Summary Run Cycle
// @Description Collect the latest snapshot and reconcile it immediately.
// @Tags inventory
// @Produce json
// @Success 200 {object} reconcile.Result "Result"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /inventory/cycle [post]
func (h *Handler) HandleCycle(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	res, err := h.service.RunCycle(c.Context())
	if err != nil {
		l.Error("Inventory cycle failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  err.Error(),
			"result": res,
		})
	}
	return c.JSON(res)
}
