package handlers

import (
	"net/http"

	"github.com/Freeeeeet/auditorium_booking/internal/controller/middleware"
	"github.com/Freeeeeet/auditorium_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SubmitBooking POST /api/booking и POST /api/booking/admin-book.
// Бронь администратора подтверждается сразу, заявка HOD уходит на рассмотрение
func (h *Handlers) SubmitBooking(c *gin.Context) {
	requester, ok := middleware.RequesterFrom(c)
	if !ok {
		h.respondError(c, service.ErrForbidden)
		return
	}

	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	window, err := req.window()
	if err != nil {
		h.respondError(c, err)
		return
	}
	details, err := req.details()
	if err != nil {
		h.respondError(c, err)
		return
	}

	booking, err := h.bookingService.RequestBooking(c.Request.Context(), requester, window, details)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(booking))
}

// UpdateStatus PUT /api/booking/:id/status, решение администратора по заявке
func (h *Handlers) UpdateStatus(c *gin.Context) {
	admin, _ := middleware.RequesterFrom(c)

	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	decision, err := service.ParseDecision(req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	booking, err := h.bookingService.Decide(c.Request.Context(), id, decision, admin)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(booking))
}

// CancelAdminBooking DELETE /api/booking/admin-cancel/:id
func (h *Handlers) CancelAdminBooking(c *gin.Context) {
	admin, _ := middleware.RequesterFrom(c)

	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	if err := h.bookingService.CancelAdminBooking(c.Request.Context(), id, admin); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled", "id": id})
}

// GetBooking GET /api/booking/id/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (h *Handlers) bookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.badRequest(c, "invalid booking id")
		return uuid.Nil, false
	}
	return id, true
}
