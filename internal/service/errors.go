package service

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/google/uuid"
)

// Ошибки бизнес-правил. Ошибки валидации окна и полей живут в model
var (
	ErrSlotTaken             = errors.New("slot is already booked")
	ErrSlotNoLongerAvailable = errors.New("slot is no longer available")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrInvalidState          = errors.New("booking is not in a state that allows this action")
	ErrForbidden             = errors.New("action is allowed for admin only")
	ErrUnknownDecision       = fmt.Errorf("%w: unknown decision", model.ErrValidation)
)

// ConflictError окно занято подтверждённой бронью. Разворачивается в
// ErrSlotTaken при подаче заявки и в ErrSlotNoLongerAvailable при одобрении
type ConflictError struct {
	Requested     model.TimeWindow
	ConflictingID uuid.UUID
	Conflicting   model.TimeWindow
	kind          error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s-%s on %s overlaps a confirmed booking at %s-%s",
		e.kind,
		e.Requested.Start(), e.Requested.End(), e.Requested.Date,
		e.Conflicting.Start(), e.Conflicting.End(),
	)
}

func (e *ConflictError) Unwrap() error {
	return e.kind
}
