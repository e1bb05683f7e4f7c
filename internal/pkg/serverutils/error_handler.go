package serverutils

import (
	"errors"

	"design-analysis-be/pkg/embedding"
	"design-analysis-be/pkg/llm"
	"design-analysis-be/pkg/pipeline"
	"design-analysis-be/pkg/rag/retriever"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware renders errors returned by handlers as the standard envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code, body := Classify(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error(), body))
	}
}

// Classify maps a domain error to an HTTP status and user guidance.
func Classify(err error) (int, *ErrorBody) {
	var fe *fiber.Error
	var ve *ValidationError
	var se *pipeline.StageError

	switch {
	case errors.As(err, &fe):
		return fe.Code, nil
	case errors.As(err, &ve):
		return fiber.StatusUnprocessableEntity, &ErrorBody{Kind: "validation", Fields: ve.Fields}
	case errors.Is(err, ErrMissingUser):
		return fiber.StatusUnauthorized, nil
	case errors.Is(err, pipeline.ErrSessionNotFound):
		return fiber.StatusNotFound, nil
	case errors.Is(err, pipeline.ErrAccessDenied):
		return fiber.StatusForbidden, nil
	case errors.Is(err, pipeline.ErrSessionBusy),
		errors.Is(err, pipeline.ErrSessionNotRunnable),
		errors.Is(err, pipeline.ErrRunSuperseded),
		errors.Is(err, pipeline.ErrCancellationRejected):
		return fiber.StatusConflict, nil
	case errors.Is(err, pipeline.ErrInvalidConfig),
		errors.Is(err, retriever.ErrInvalidQuery),
		errors.Is(err, embedding.ErrEmptyInput):
		return fiber.StatusBadRequest, nil
	case errors.As(err, &se):
		return fiber.StatusBadGateway, &ErrorBody{Kind: string(se.Kind), Guidance: se.Kind.Guidance()}
	case errors.Is(err, embedding.ErrEmbeddingUnavailable):
		return fiber.StatusServiceUnavailable, &ErrorBody{Kind: string(llm.KindNetwork), Guidance: llm.KindNetwork.Guidance()}
	}

	if kind := llm.Classify(err); kind != llm.KindUnknown {
		return fiber.StatusBadGateway, &ErrorBody{Kind: string(kind), Guidance: kind.Guidance()}
	}
	return fiber.StatusInternalServerError, nil
}
