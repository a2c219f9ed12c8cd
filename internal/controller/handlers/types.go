package handlers

import (
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/Freeeeeet/auditorium_booking/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости HTTP-обработчиков
type Handlers struct {
	bookingService *service.BookingService
	queryService   *service.QueryService
	logger         *zap.Logger
}

// NewHandlers создаёт обработчики HTTP
func NewHandlers(
	bookingService *service.BookingService,
	queryService *service.QueryService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		bookingService: bookingService,
		queryService:   queryService,
		logger:         logger,
	}
}

// bookingRequest форма заявки. Время в формате HH:MM, дата YYYY-MM-DD
type bookingRequest struct {
	Date            string   `json:"date" binding:"required"`
	Start           string   `json:"start" binding:"required"`
	End             string   `json:"end" binding:"required"`
	EventName       string   `json:"event_name"`
	EventType       string   `json:"event_type"`
	CustomEventType string   `json:"custom_event_type"`
	Comments        string   `json:"comments"`
	Requirements    []string `json:"requirements"`
}

func (r bookingRequest) window() (model.TimeWindow, error) {
	date, err := model.ParseDate(r.Date)
	if err != nil {
		return model.TimeWindow{}, err
	}
	return model.NewTimeWindow(date, r.Start, r.End)
}

func (r bookingRequest) details() (model.BookingDetails, error) {
	eventType, err := model.ParseEventType(r.EventType, r.CustomEventType)
	if err != nil {
		return model.BookingDetails{}, err
	}

	reqs := make([]model.Requirement, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		reqs = append(reqs, model.Requirement(req))
	}

	return model.BookingDetails{
		EventName:    r.EventName,
		EventType:    eventType,
		Comments:     r.Comments,
		Requirements: reqs,
	}, nil
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type bookingResponse struct {
	ID            uuid.UUID           `json:"id"`
	Date          model.Date          `json:"date"`
	Start         string              `json:"start"`
	End           string              `json:"end"`
	EventName     string              `json:"event_name"`
	EventType     string              `json:"event_type"`
	Department    string              `json:"department"`
	RequestedBy   string              `json:"requested_by"`
	BookedByAdmin bool                `json:"booked_by_admin"`
	Requirements  []model.Requirement `json:"requirements"`
	Comments      string              `json:"comments,omitempty"`
	Status        model.BookingStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	DecidedAt     *time.Time          `json:"decided_at,omitempty"`
	DecidedBy     *string             `json:"decided_by,omitempty"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	reqs := b.Requirements
	if reqs == nil {
		reqs = []model.Requirement{}
	}
	return bookingResponse{
		ID:            b.ID,
		Date:          b.Window.Date,
		Start:         b.Window.Start(),
		End:           b.Window.End(),
		EventName:     b.EventName,
		EventType:     b.EventType.Label(),
		Department:    b.Requester.Department.Label(),
		RequestedBy:   b.Requester.ID,
		BookedByAdmin: b.Requester.IsAdmin(),
		Requirements:  reqs,
		Comments:      b.Comments,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
		DecidedAt:     b.DecidedAt,
		DecidedBy:     b.DecidedBy,
	}
}

func toBookingResponses(bookings []*model.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

type freeWindowResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
