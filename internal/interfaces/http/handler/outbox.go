package handler

import (
	"context"

	"github.com/coopmarket/backend/internal/application/event"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxService exposes operator actions on the event outbox
type OutboxService interface {
	GetDeadLetterEntries(ctx context.Context, filter event.OutboxFilter) (shared.Paginated[event.OutboxEntryDTO], error)
	GetEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryDeadEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryAllDeadEntries(ctx context.Context) (int64, error)
	GetStats(ctx context.Context) (*event.OutboxStatsDTO, error)
}

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outboxService OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outboxService OutboxService) *OutboxHandler {
	return &OutboxHandler{
		outboxService: outboxService,
	}
}

// RetryAllResponse represents the response for retry all operation
type RetryAllResponse struct {
	Count int64 `json:"count"`
}

// GetDeadLetterEntries godoc
// @Summary      List dead letter entries
// @Tags         outbox
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Security     BearerAuth
// @Router       /admin/outbox/dead [get]
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	var filter event.OutboxFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	result, err := h.outboxService.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// GetEntry godoc
// @Summary      Get an outbox entry by ID
// @Tags         outbox
// @Security     BearerAuth
// @Router       /admin/outbox/{id} [get]
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryDeadEntry godoc
// @Summary      Retry a dead letter entry
// @Tags         outbox
// @Security     BearerAuth
// @Router       /admin/outbox/{id}/retry [post]
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryAllDeadEntries godoc
// @Summary      Retry all dead letter entries
// @Tags         outbox
// @Security     BearerAuth
// @Router       /admin/outbox/dead/retry-all [post]
func (h *OutboxHandler) RetryAllDeadEntries(c *gin.Context) {
	count, err := h.outboxService.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RetryAllResponse{Count: count})
}

// GetStats godoc
// @Summary      Get outbox statistics
// @Tags         outbox
// @Security     BearerAuth
// @Router       /admin/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outboxService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
