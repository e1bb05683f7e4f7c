package controller

import (
	"time"

	"design-analysis-be/internal/dto"
	"design-analysis-be/internal/pkg/serverutils"
	"design-analysis-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IMaintenanceController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	ResetStuck(ctx *fiber.Ctx) error
	BackfillMaturity(ctx *fiber.Ctx) error
}

type maintenanceController struct {
	service service.IMaintenanceService
}

func NewMaintenanceController(service service.IMaintenanceService) IMaintenanceController {
	return &maintenanceController{service: service}
}

func (c *maintenanceController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/maintenance/v1")
	h.Use(auth, serverutils.RequireRole(serverutils.RoleAdmin))
	h.Post("reset-stuck", c.ResetStuck)
	h.Post("backfill-maturity", c.BackfillMaturity)
}

func (c *maintenanceController) ResetStuck(ctx *fiber.Ctx) error {
	var req dto.ResetStuckRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	count, err := c.service.ResetStuckSessions(ctx.UserContext(), time.Duration(req.StaleAfterSeconds)*time.Second)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reset stuck sessions", dto.ResetStuckResponse{Reset: count}))
}

func (c *maintenanceController) BackfillMaturity(ctx *fiber.Ctx) error {
	report, err := c.service.BackfillMaturity(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success backfill maturity", dto.BackfillMaturityResponse{
		Scanned: report.Scanned,
		Created: report.Created,
		Skipped: report.Skipped,
		Failed:  report.Failed,
	}))
}
