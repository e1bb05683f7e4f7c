package controller

import (
	"design-analysis-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func ids(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userId, id, nil
}
