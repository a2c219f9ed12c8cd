// Package memory хранит брони в памяти процесса. Используется, когда DB_DSN
// не задан, и в тестах. Наружу всегда отдаются копии записей, поэтому
// читатель не видит наполовину обновлённую бронь.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/Freeeeeet/auditorium_booking/internal/repository"
	"github.com/google/uuid"
)

var ErrDuplicateID = errors.New("booking id already exists")

// BookingStore брони в памяти процесса
type BookingStore struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*model.Booking
}

// NewBookingStore создаёт пустое хранилище
func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[uuid.UUID]*model.Booking)}
}

// Create сохраняет копию брони. Подтверждённые окна не должны пересекаться
func (s *BookingStore) Create(ctx context.Context, booking *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[booking.ID]; ok {
		return fmt.Errorf("create booking %s: %w", booking.ID, ErrDuplicateID)
	}
	if booking.Status.IsConfirmed() && s.overlapsConfirmedLocked(booking) {
		return fmt.Errorf("create booking: %w", repository.ErrOverlap)
	}

	s.bookings[booking.ID] = booking.Clone()
	return nil
}

// GetByID копия брони или nil, nil
func (s *BookingStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bookings[id].Clone(), nil
}

// UpdateStatus меняет статус, только если текущий равен from
func (s *BookingStore) UpdateStatus(ctx context.Context, booking *model.Booking, from model.BookingStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[booking.ID]
	if !ok || current.Status != from {
		return fmt.Errorf("update booking %s from %s: %w", booking.ID, from, repository.ErrStatusChanged)
	}

	decision := booking.Clone()
	updated := current.Clone()
	updated.Status = decision.Status
	updated.DecidedAt = decision.DecidedAt
	updated.DecidedBy = decision.DecidedBy

	if updated.Status.IsConfirmed() && s.overlapsConfirmedLocked(updated) {
		return fmt.Errorf("update booking status: %w", repository.ErrOverlap)
	}

	s.bookings[booking.ID] = updated
	return nil
}

// ListPending заявки на рассмотрении, старые первыми
func (s *BookingStore) ListPending(ctx context.Context) ([]*model.Booking, error) {
	out, err := s.filter(ctx, func(b *model.Booking) bool {
		return b.Status == model.BookingStatusPending
	})
	slices.SortFunc(out, byCreatedAsc)
	return out, err
}

// ListConfirmedByDate подтверждённые брони даты по времени начала
func (s *BookingStore) ListConfirmedByDate(ctx context.Context, date model.Date) ([]*model.Booking, error) {
	out, err := s.filter(ctx, func(b *model.Booking) bool {
		return b.Status.IsConfirmed() && b.Window.Date == date
	})
	slices.SortFunc(out, byWindow)
	return out, err
}

func (s *BookingStore) ListConfirmedSince(ctx context.Context, from model.Date) ([]*model.Booking, error) {
	out, err := s.filter(ctx, func(b *model.Booking) bool {
		return b.Status.IsConfirmed() && !b.Window.Date.Before(from)
	})
	slices.SortFunc(out, byWindow)
	return out, err
}

func (s *BookingStore) ListByRequester(ctx context.Context, requesterID string) ([]*model.Booking, error) {
	out, err := s.filter(ctx, func(b *model.Booking) bool {
		return b.Requester.ID == requesterID
	})
	slices.SortFunc(out, byCreatedDesc)
	return out, err
}

func (s *BookingStore) ListAll(ctx context.Context) ([]*model.Booking, error) {
	out, err := s.filter(ctx, func(*model.Booking) bool { return true })
	slices.SortFunc(out, byCreatedDesc)
	return out, err
}

func (s *BookingStore) ListCreatedSince(ctx context.Context, since time.Time) ([]*model.Booking, error) {
	out, err := s.filter(ctx, func(b *model.Booking) bool {
		return !b.CreatedAt.Before(since)
	})
	slices.SortFunc(out, byCreatedDesc)
	return out, err
}

// CountByStatus количество броней в каждом статусе
func (s *BookingStore) CountByStatus(ctx context.Context) (map[model.BookingStatus]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.BookingStatus]int)
	for _, b := range s.bookings {
		counts[b.Status]++
	}
	return counts, nil
}

func (s *BookingStore) filter(ctx context.Context, keep func(*model.Booking) bool) ([]*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

// то же, что EXCLUDE-ограничение в PostgreSQL
func (s *BookingStore) overlapsConfirmedLocked(candidate *model.Booking) bool {
	for id, b := range s.bookings {
		if id == candidate.ID || !b.Status.IsConfirmed() {
			continue
		}
		if b.Window.Overlaps(candidate.Window) {
			return true
		}
	}
	return false
}

func byCreatedAsc(a, b *model.Booking) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

func byCreatedDesc(a, b *model.Booking) int {
	return byCreatedAsc(b, a)
}

func byWindow(a, b *model.Booking) int {
	if c := a.Window.Date.Compare(b.Window.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Window.StartMinute, b.Window.StartMinute); c != 0 {
		return c
	}
	return byCreatedAsc(a, b)
}
