package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StuffMaster78/acad-system-backend/internal/http/handlers/common"
	"github.com/StuffMaster78/acad-system-backend/internal/repository"
	"github.com/StuffMaster78/acad-system-backend/internal/service"
)

// OrderHandler отвечает за чтение заказов и смену их статуса.
type OrderHandler struct {
	orders      *repository.OrderRepository
	logs        *repository.TransitionLogRepository
	transitions *service.TransitionService
	users       UserGetter
}

// NewOrderHandler создаёт хэндлер.
func NewOrderHandler(orders *repository.OrderRepository, logs *repository.TransitionLogRepository, transitions *service.TransitionService, users UserGetter) *OrderHandler {
	return &OrderHandler{
		orders:      orders,
		logs:        logs,
		transitions: transitions,
		users:       users,
	}
}

// GetOrder обрабатывает GET /orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// AvailableTransitions обрабатывает GET /orders/:id/transitions.
// Возвращает статусы, в которые заказ может перейти для текущего актора.
func (h *OrderHandler) AvailableTransitions(c *gin.Context) {
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

	order, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	available := h.transitions.AvailableTransitions(c.Request.Context(), order, actor)
	if available == nil {
		available = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      order.Status,
		"transitions": available,
	})
}

// Transition обрабатывает POST /orders/:id/transition.
func (h *OrderHandler) Transition(c *gin.Context) {
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
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.transitions.Transition(c.Request.Context(), orderID, service.TransitionInput{
		TargetStatus: req.Status,
		Actor:        actor,
		Reason:       req.Reason,
		Action:       "manual_transition",
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListLogs обрабатывает GET /orders/:id/logs.
// Журнал переходов доступен только персоналу.
func (h *OrderHandler) ListLogs(c *gin.Context) {
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
	if !actor.IsStaff() {
		common.RespondForbidden(c, "журнал переходов доступен только персоналу")
		return
	}

	entries, err := h.logs.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
