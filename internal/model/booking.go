package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus статус брони
type BookingStatus string

const (
	BookingStatusPending        BookingStatus = "pending"         // Ожидает решения администратора
	BookingStatusApproved       BookingStatus = "approved"        // Одобрено администратором
	BookingStatusRejected       BookingStatus = "rejected"        // Отклонено администратором
	BookingStatusAdminConfirmed BookingStatus = "admin_confirmed" // Бронь администратора, без одобрения
	BookingStatusCancelled      BookingStatus = "cancelled"       // Бронь администратора отменена
)

// IsConfirmed true для статусов, которые занимают аудиторию
func (s BookingStatus) IsConfirmed() bool {
	return s == BookingStatusApproved || s == BookingStatusAdminConfirmed
}

// IsValid статус входит в известный набор
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusApproved, BookingStatusRejected,
		BookingStatusAdminConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

// ConfirmedStatuses статусы, входящие в индекс конфликтов
var ConfirmedStatuses = []BookingStatus{BookingStatusApproved, BookingStatusAdminConfirmed}

// Requirement оборудование, которое просит HOD
type Requirement string

const (
	RequirementMic      Requirement = "mic"
	RequirementBottles  Requirement = "bottles"
	RequirementCamera   Requirement = "camera"
	RequirementSpeakers Requirement = "speakers"
)

// IsValid требование из списка формы заявки
func (r Requirement) IsValid() bool {
	switch r {
	case RequirementMic, RequirementBottles, RequirementCamera, RequirementSpeakers:
		return true
	}
	return false
}

// BookingDetails описание мероприятия, которое передаёт заявитель
type BookingDetails struct {
	EventName    string        `json:"event_name"`
	EventType    EventType     `json:"event_type"`
	Comments     string        `json:"comments,omitempty"`
	Requirements []Requirement `json:"requirements,omitempty"`
}

// Normalize обрезает пробелы, убирает дубликаты требований и проверяет поля
func (d BookingDetails) Normalize(kind RequesterKind) (BookingDetails, error) {
	out := BookingDetails{
		EventName: strings.TrimSpace(d.EventName),
		EventType: d.EventType,
		Comments:  strings.TrimSpace(d.Comments),
	}
	if out.EventName == "" {
		return BookingDetails{}, fmt.Errorf("event name is required: %w", ErrInvalidDetails)
	}
	if err := out.EventType.Validate(); err != nil {
		return BookingDetails{}, err
	}

	if len(d.Requirements) > 0 && kind != RequesterHOD {
		return BookingDetails{}, fmt.Errorf("requirements are accepted on HOD requests only: %w", ErrInvalidDetails)
	}
	for _, r := range d.Requirements {
		if !r.IsValid() {
			return BookingDetails{}, fmt.Errorf("requirement %q: %w", r, ErrInvalidDetails)
		}
		if !slices.Contains(out.Requirements, r) {
			out.Requirements = append(out.Requirements, r)
		}
	}
	slices.Sort(out.Requirements)

	return out, nil
}

// Booking заявка или бронь аудитории
type Booking struct {
	ID        uuid.UUID `json:"id"`
	Requester Requester `json:"requester"`
	BookingDetails
	Window    TimeWindow    `json:"window"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	DecidedAt *time.Time    `json:"decided_at,omitempty"` // Когда администратор одобрил, отклонил или отменил
	DecidedBy *string       `json:"decided_by,omitempty"` // Кто из администраторов это сделал
}

// Clone глубокая копия записи, чтобы хранилища не делили срезы и указатели с вызывающим
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.Requirements = slices.Clone(b.Requirements)
	if b.DecidedAt != nil {
		at := *b.DecidedAt
		c.DecidedAt = &at
	}
	if b.DecidedBy != nil {
		by := *b.DecidedBy
		c.DecidedBy = &by
	}
	return &c
}

// Decide отмечает решение администратора
func (b *Booking) Decide(status BookingStatus, admin string, at time.Time) {
	b.Status = status
	b.DecidedAt = &at
	b.DecidedBy = &admin
}
