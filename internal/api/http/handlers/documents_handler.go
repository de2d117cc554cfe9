package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/service"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// DocumentsHandler manages knowledge-base document endpoints.
type DocumentsHandler struct {
	service *service.DocumentService
}

// NewDocumentsHandler constructs handler.
func NewDocumentsHandler(documentService *service.DocumentService) *DocumentsHandler {
	return &DocumentsHandler{service: documentService}
}

// CreateDocument POST /api/v1/documents.
func (h *DocumentsHandler) CreateDocument(c *fiber.Ctx) error {
	var req dto.CreateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	doc, err := h.service.Create(c.UserContext(), service.DocumentCreateInput{
		Title:   req.Title,
		Content: req.Content,
		Source:  req.Source,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewDocumentResponse(doc)})
}

// GetDocument GET /api/v1/documents/:id.
func (h *DocumentsHandler) GetDocument(c *fiber.Ctx) error {
	doc, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDocumentResponse(doc)})
}

// ListDocuments GET /api/v1/documents.
func (h *DocumentsHandler) ListDocuments(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	docs, err := h.service.List(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.DocumentResponse, 0, len(docs))
	for i := range docs {
		items = append(items, dto.NewDocumentResponse(&docs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteDocument DELETE /api/v1/documents/:id.
func (h *DocumentsHandler) DeleteDocument(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SearchDocuments GET /api/v1/documents/search.
func (h *DocumentsHandler) SearchDocuments(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return apperrors.NewValidationError("query parameter q required", nil)
	}
	limit, _ := strconv.Atoi(c.Query("limit", "5"))

	matches, err := h.service.Search(c.UserContext(), query, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": matches})
}
