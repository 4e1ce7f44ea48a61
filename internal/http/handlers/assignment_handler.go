package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/StuffMaster78/acad-system-backend/internal/http/handlers/common"
	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/service"
)

// AssignmentHandler отвечает за назначение писателей и очередь заявок.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	priority    *service.PriorityService
	users       UserGetter
}

// NewAssignmentHandler создаёт хэндлер.
func NewAssignmentHandler(assignments *service.AssignmentService, priority *service.PriorityService, users UserGetter) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
		priority:    priority,
		users:       users,
	}
}

// Assign обрабатывает POST /orders/:id/assign.
func (h *AssignmentHandler) Assign(c *gin.Context) {
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
		WriterID        string   `json:"writer_id" binding:"required"`
		Reason          string   `json:"reason"`
		PaymentOverride *float64 `json:"payment_override"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	writerID, err := uuid.Parse(req.WriterID)
	if err != nil {
		common.RespondBadRequest(c, "некорректный writer_id")
		return
	}

	order, err := h.assignments.AssignWriter(c.Request.Context(), service.AssignWriterInput{
		OrderID:               orderID,
		WriterID:              writerID,
		Actor:                 actor,
		Reason:                req.Reason,
		PaymentOverrideAmount: req.PaymentOverride,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// Unassign обрабатывает POST /orders/:id/unassign.
func (h *AssignmentHandler) Unassign(c *gin.Context) {
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
		common.RespondForbidden(c, "снять писателя может только персонал")
		return
	}

	order, err := h.assignments.UnassignWriter(c.Request.Context(), orderID, actor)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// CreateRequest обрабатывает POST /orders/:id/requests.
// Писатель подаёт заявку на доступный заказ.
func (h *AssignmentHandler) CreateRequest(c *gin.Context) {
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
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := h.assignments.RequestOrder(c.Request.Context(), orderID, actor, req.Message)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// ListRequests обрабатывает GET /orders/:id/requests.
// Возвращает заявки писателей, отсортированные по приоритету.
func (h *AssignmentHandler) ListRequests(c *gin.Context) {
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
		common.RespondForbidden(c, "очередь заявок доступна только персоналу")
		return
	}

	scored, err := h.priority.PrioritizedRequests(c.Request.Context(), orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if scored == nil {
		scored = []models.ScoredRequest{}
	}

	c.JSON(http.StatusOK, scored)
}

// ListReassignments обрабатывает GET /orders/:id/reassignments.
// История переназначений доступна только персоналу.
func (h *AssignmentHandler) ListReassignments(c *gin.Context) {
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
		common.RespondForbidden(c, "история переназначений доступна только персоналу")
		return
	}

	entries, err := h.assignments.ListReassignments(c.Request.Context(), orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if entries == nil {
		entries = []models.ReassignmentLog{}
	}

	c.JSON(http.StatusOK, entries)
}

// AssignFromQueue обрабатывает POST /orders/:id/assign-from-queue.
func (h *AssignmentHandler) AssignFromQueue(c *gin.Context) {
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
		common.RespondForbidden(c, "назначение из очереди доступно только персоналу")
		return
	}

	var req struct {
		UsePriority *bool `json:"use_priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		common.RespondBadRequest(c, err.Error())
		return
	}

	usePriority := req.UsePriority == nil || *req.UsePriority
	order, err := h.priority.AssignFromQueue(c.Request.Context(), orderID, actor, usePriority)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// RespondAcceptance обрабатывает POST /orders/:id/acceptance.
// Назначенный писатель принимает или отклоняет заказ.
func (h *AssignmentHandler) RespondAcceptance(c *gin.Context) {
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
		Accept *bool  `json:"accept" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.assignments.RespondAcceptance(c.Request.Context(), orderID, actor, *req.Accept, req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, order)
}
