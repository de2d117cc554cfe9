package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/service"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// ResolutionsHandler exposes the stateless resolution endpoint: submit
// incident fields, get an answer, persist nothing.
type ResolutionsHandler struct {
	resolution *service.ResolutionService
}

// NewResolutionsHandler constructs handler.
func NewResolutionsHandler(resolution *service.ResolutionService) *ResolutionsHandler {
	return &ResolutionsHandler{resolution: resolution}
}

// Resolve POST /api/v1/resolutions.
func (h *ResolutionsHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.Description == "" {
		return apperrors.NewValidationError("title and description required", nil)
	}

	result, err := h.resolution.Resolve(c.UserContext(), domain.TicketInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Severity:      domain.TicketSeverity(strings.ToUpper(req.Severity)),
		Application:   req.Application,
		Environment:   domain.TicketEnvironment(strings.ToUpper(req.Environment)),
		AffectedUsers: req.AffectedUsers,
	}, service.ResolveOptions{
		UseVectorSearch: boolOrDefault(req.UseVectorSearch, true),
		UseWebSearch:    boolOrDefault(req.UseWebSearch, false),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResolutionResponse(result)})
}
