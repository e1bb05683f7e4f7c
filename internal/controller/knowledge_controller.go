package controller

import (
	"design-analysis-be/internal/dto"
	"design-analysis-be/internal/pkg/serverutils"
	"design-analysis-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Ingest(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	service service.IKnowledgeService
}

func NewKnowledgeController(service service.IKnowledgeService) IKnowledgeController {
	return &knowledgeController{service: service}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/knowledge/v1")
	h.Use(auth)
	h.Post("", c.Ingest)
	h.Get("search", c.Search)
	h.Delete(":id", c.Delete)
}

func (c *knowledgeController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestKnowledgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Ingest(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success ingest knowledge", res))
}

func (c *knowledgeController) Delete(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.service.Delete(ctx.UserContext(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete knowledge", nil))
}

func (c *knowledgeController) Search(ctx *fiber.Ctx) error {
	var req dto.SearchKnowledgeRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Search(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search knowledge", res))
}
