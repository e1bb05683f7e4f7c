package controller

import (
	"design-analysis-be/internal/dto"
	"design-analysis-be/internal/pkg/serverutils"
	"design-analysis-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAnalysisController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Create(ctx *fiber.Ctx) error
	Run(ctx *fiber.Ctx) error
	Retry(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
}

type analysisController struct {
	service service.IAnalysisService
}

func NewAnalysisController(service service.IAnalysisService) IAnalysisController {
	return &analysisController{service: service}
}

func (c *analysisController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/analysis/v1")
	h.Use(auth)
	h.Get("", c.GetAll)
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Post(":id/run", c.Run)
	h.Post(":id/retry", c.Retry)
	h.Post(":id/cancel", c.Cancel)
}

func (c *analysisController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateAnalysisRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create analysis", res))
}

func (c *analysisController) Run(ctx *fiber.Ctx) error {
	userId, id, err := ids(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Run(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Analysis queued", res))
}

func (c *analysisController) Retry(ctx *fiber.Ctx) error {
	userId, id, err := ids(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Retry(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Analysis retry queued", res))
}

func (c *analysisController) Cancel(ctx *fiber.Ctx) error {
	userId, id, err := ids(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Cancel(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success cancel analysis", res))
}

func (c *analysisController) Show(ctx *fiber.Ctx) error {
	userId, id, err := ids(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Show(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show analysis", res))
}

func (c *analysisController) GetAll(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetAll(ctx.UserContext(), userId, ctx.QueryInt("limit", 20), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all analysis", res))
}
