package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// SubmitTicket POST /api/v1/tickets.
func (h *TicketsHandler) SubmitTicket(c *fiber.Ctx) error {
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.Description == "" {
		return apperrors.NewValidationError("title and description required", nil)
	}

	ticket, err := h.service.Submit(c.UserContext(), service.TicketSubmitInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Severity:      domain.TicketSeverity(strings.ToUpper(req.Severity)),
		Application:   req.Application,
		Environment:   domain.TicketEnvironment(strings.ToUpper(req.Environment)),
		AffectedUsers: req.AffectedUsers,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /api/v1/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SearchTickets GET /api/v1/tickets/search.
func (h *TicketsHandler) SearchTickets(c *fiber.Ctx) error {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		return apperrors.NewValidationError("query parameter q required", nil)
	}
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	matches, err := h.service.SearchSimilar(c.UserContext(), query, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": matches})
}

// GetTicket GET /api/v1/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// DeleteTicket DELETE /api/v1/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResolveTicket POST /api/v1/tickets/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	var req dto.ResolveTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	options := service.ResolveOptions{
		UseVectorSearch: boolOrDefault(req.UseVectorSearch, true),
		UseWebSearch:    boolOrDefault(req.UseWebSearch, false),
	}
	ticket, result, err := h.service.Resolve(c.UserContext(), c.Params("id"), options)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket":     ticketDetail(ticket),
		"resolution": dto.NewResolutionResponse(result),
	}})
}

// IngestBatch POST /api/v1/tickets/batch.
func (h *TicketsHandler) IngestBatch(c *fiber.Ctx) error {
	var req []dto.HistoricalTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req) == 0 {
		return apperrors.NewValidationError("at least one ticket required", nil)
	}

	items := make([]service.HistoricalTicket, 0, len(req))
	for _, r := range req {
		items = append(items, service.HistoricalTicket{
			TicketID:      r.TicketID,
			Title:         r.Title,
			Description:   r.Description,
			Category:      r.Category,
			Severity:      strings.ToUpper(r.Severity),
			Application:   r.Application,
			Environment:   strings.ToUpper(r.Environment),
			AffectedUsers: r.AffectedUsers,
			Reasoning:     r.Reasoning,
			Solution:      r.Solution,
		})
	}

	result := h.service.IngestBatch(c.UserContext(), items)
	resp := dto.BatchIngestResponse{Total: result.Total, Uploaded: result.Uploaded}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, dto.BatchIngestFailure{TicketID: f.TicketID, Error: f.Error})
	}
	return c.JSON(fiber.Map{"data": resp})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{Limit: 50}

	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}
	if raw := c.Query("severity"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Severities = append(filter.Severities, domain.TicketSeverity(strings.ToUpper(strings.TrimSpace(s))))
		}
	}
	if raw := c.Query("category"); raw != "" {
		filter.Category = &raw
	}
	if raw := c.Query("q"); raw != "" {
		filter.SearchTerm = &raw
	}
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Offset = parsed
		}
	}
	return filter
}

func ticketSummary(t *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          t.ID,
		ExternalKey: t.ExternalKey,
		Title:       t.Title,
		Category:    t.Category,
		Severity:    t.Severity,
		Environment: t.Environment,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
}

func ticketDetail(t *domain.Ticket) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		ID:            t.ID,
		ExternalKey:   t.ExternalKey,
		Title:         t.Title,
		Description:   t.Description,
		Category:      t.Category,
		Severity:      t.Severity,
		Application:   t.Application,
		Environment:   t.Environment,
		AffectedUsers: t.AffectedUsers,
		Status:        t.Status,
		Reasoning:     t.Reasoning,
		Solution:      t.Solution,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ResolvedAt:    t.ResolvedAt,
	}
}

func boolOrDefault(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
