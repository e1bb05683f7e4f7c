package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrMissingUser = errors.New("missing authenticated user")

const RoleAdmin = "admin"

// NewJwtMiddleware verifies an HS256 token and stores its user_id and role claims in Locals.
// The token comes from the Authorization header, or the "token" query parameter
// for browser websocket handshakes.
func NewJwtMiddleware(secret string) fiber.Handler {
	key := []byte(secret)
	return func(ctx *fiber.Ctx) error {
		tokenStr := ""
		if authHeader := ctx.Get("Authorization"); len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		} else {
			tokenStr = ctx.Query("token")
		}
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
		}
		userId, ok := claims["user_id"].(string)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
		}

		ctx.Locals("user_id", userId)
		if role, ok := claims["role"].(string); ok {
			ctx.Locals("role", role)
		}
		return ctx.Next()
	}
}

// RequireRole runs after the JWT middleware and answers 403 unless the token
// carries the given role claim.
func RequireRole(role string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		got, _ := ctx.Locals("role").(string)
		if got != role {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(fiber.StatusForbidden, "Access denied: "+role+" only", nil))
		}
		return ctx.Next()
	}
}

// UserId returns the authenticated user set by the JWT middleware.
func UserId(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, ErrMissingUser
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrMissingUser
	}
	return id, nil
}

// ParamUUID parses a uuid path parameter, answering 400 when malformed.
func ParamUUID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
