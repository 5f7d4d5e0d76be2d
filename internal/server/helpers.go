package server

import (
	"errors"

	"feedhub/internal/models"
	"feedhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// identityLocalsKey is where the identity guard stores the resolved identity.
const identityLocalsKey = "identity"

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// identity returns the identity resolved by the guard for this request.
// Routes not behind the guard see an anonymous identity.
func (s *Server) identity(c *fiber.Ctx) models.Identity {
	if ident, ok := c.Locals(identityLocalsKey).(models.Identity); ok {
		return ident
	}
	return models.Identity{}
}

// parsePagination extracts page and limit query parameters.
func parsePagination(c *fiber.Ctx) service.ListPostsInput {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	limit := c.QueryInt("limit", service.DefaultPageSize)
	if limit <= 0 {
		limit = service.DefaultPageSize
	}
	if limit > service.MaxPageSize {
		limit = service.MaxPageSize
	}

	return service.ListPostsInput{Page: page, PageSize: limit}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 404 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, models.NewNotFoundError("Post", c.Params(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}
