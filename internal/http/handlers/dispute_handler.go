package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/StuffMaster78/acad-system-backend/internal/http/handlers/common"
	"github.com/StuffMaster78/acad-system-backend/internal/service"
)

// DisputeHandler предоставляет HTTP слой для споров по заказам.
type DisputeHandler struct {
	disputes *service.DisputeService
	users    UserGetter
}

// NewDisputeHandler создаёт хэндлер.
func NewDisputeHandler(disputes *service.DisputeService, users UserGetter) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, users: users}
}

// Raise обрабатывает POST /orders/:id/dispute.
func (h *DisputeHandler) Raise(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	actor, err := currentActor(c, h.users)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.RaiseDispute(c.Request.Context(), orderID, actor, req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// ListByOrder обрабатывает GET /orders/:id/disputes.
func (h *DisputeHandler) ListByOrder(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	disputes, err := h.disputes.ListOrderDisputes(c.Request.Context(), orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, disputes)
}

// StartReview обрабатывает POST /disputes/:id/review.
func (h *DisputeHandler) StartReview(c *gin.Context) {
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	actor, err := currentActor(c, h.users)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	if !actor.IsStaff() {
		common.RespondForbidden(c, "разбор спора доступен только персоналу")
		return
	}

	dispute, err := h.disputes.StartReview(c.Request.Context(), disputeID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// Escalate обрабатывает POST /disputes/:id/escalate.
func (h *DisputeHandler) Escalate(c *gin.Context) {
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	actor, err := currentActor(c, h.users)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	if !actor.IsStaff() {
		common.RespondForbidden(c, "эскалация спора доступна только персоналу")
		return
	}

	dispute, err := h.disputes.Escalate(c.Request.Context(), disputeID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// Resolve обрабатывает POST /disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	actor, err := currentActor(c, h.users)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	if !actor.IsStaff() {
		common.RespondForbidden(c, "разрешение спора доступно только персоналу")
		return
	}

	var req struct {
		Outcome          string     `json:"outcome" binding:"required"`
		Notes            string     `json:"notes"`
		ExtendedDeadline *time.Time `json:"extended_deadline"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.ResolveDispute(c.Request.Context(), service.ResolveDisputeInput{
		DisputeID:        disputeID,
		Outcome:          req.Outcome,
		ResolvedBy:       actor,
		Notes:            req.Notes,
		ExtendedDeadline: req.ExtendedDeadline,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}
