package handlers

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/auditorium_booking/internal/controller/middleware"
	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/Freeeeeet/auditorium_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// conflictResponse ошибка занятого окна с указанием мешающей брони
type conflictResponse struct {
	middleware.ErrorResponse
	ConflictingBookingID uuid.UUID `json:"conflicting_booking_id"`
	ConflictingStart     string    `json:"conflicting_start"`
	ConflictingEnd       string    `json:"conflicting_end"`
}

// respondError переводит ошибку сервиса в HTTP-статус и вид ошибки
func (h *Handlers) respondError(c *gin.Context, err error) {
	status, kind := classify(err)

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		middleware.Abort(c, status, kind, "internal server error")
		return
	}

	var ce *service.ConflictError
	if errors.As(err, &ce) {
		c.AbortWithStatusJSON(status, conflictResponse{
			ErrorResponse:        middleware.ErrorResponse{ErrorKind: kind, Message: err.Error()},
			ConflictingBookingID: ce.ConflictingID,
			ConflictingStart:     ce.Conflicting.Start(),
			ConflictingEnd:       ce.Conflicting.End(),
		})
		return
	}

	middleware.Abort(c, status, kind, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSlotTaken):
		return http.StatusConflict, "slot_taken"
	case errors.Is(err, service.ErrSlotNoLongerAvailable):
		return http.StatusConflict, "slot_no_longer_available"
	case errors.Is(err, service.ErrBookingNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "validation"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handlers) badRequest(c *gin.Context, message string) {
	middleware.Abort(c, http.StatusBadRequest, "validation", message)
}
