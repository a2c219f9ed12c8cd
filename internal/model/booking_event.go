package model

import "time"

// BookingEventType тип события для уведомлений
type BookingEventType string

const (
	EventBookingSubmitted      BookingEventType = "booking.submitted"
	EventBookingAdminConfirmed BookingEventType = "booking.admin_confirmed"
	EventBookingApproved       BookingEventType = "booking.approved"
	EventBookingRejected       BookingEventType = "booking.rejected"
	EventBookingCancelled      BookingEventType = "booking.cancelled"
)

// BookingEvent уведомление о смене состояния брони
type BookingEvent struct {
	Type       BookingEventType `json:"type"`
	Booking    *Booking         `json:"booking"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// EventTypeFor событие, соответствующее новому статусу
func EventTypeFor(status BookingStatus) BookingEventType {
	switch status {
	case BookingStatusAdminConfirmed:
		return EventBookingAdminConfirmed
	case BookingStatusApproved:
		return EventBookingApproved
	case BookingStatusRejected:
		return EventBookingRejected
	case BookingStatusCancelled:
		return EventBookingCancelled
	default:
		return EventBookingSubmitted
	}
}
