package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/conflict"
	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/Freeeeeet/auditorium_booking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	notifyTimeout = 5 * time.Second

	// пауза перед повторным сбросом кэша
	invalidateRetryDelay = 50 * time.Millisecond
)

// BookingStore хранилище броней. Реализации: repository.BookingRepository
// (PostgreSQL) и memory.BookingStore. GetByID возвращает nil, nil если брони нет,
// UpdateStatus пишет статус только если текущий статус равен from
type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	UpdateStatus(ctx context.Context, booking *model.Booking, from model.BookingStatus) error
	ListPending(ctx context.Context) ([]*model.Booking, error)
	ListConfirmedByDate(ctx context.Context, date model.Date) ([]*model.Booking, error)
	ListConfirmedSince(ctx context.Context, from model.Date) ([]*model.Booking, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*model.Booking, error)
	ListAll(ctx context.Context) ([]*model.Booking, error)
	ListCreatedSince(ctx context.Context, since time.Time) ([]*model.Booking, error)
	CountByStatus(ctx context.Context) (map[model.BookingStatus]int, error)
}

// Notifier доставляет события о бронях (Telegram, RabbitMQ)
type Notifier interface {
	Notify(ctx context.Context, event model.BookingEvent) error
}

// Invalidator сбрасывает закэшированные проекции
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Clock источник текущего времени
type Clock interface {
	Now() time.Time
}

// SystemClock системные часы
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Decision решение администратора по заявке
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision принимает и глагол, и итоговый статус: "approve"/"approved"
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return DecisionApprove, nil
	case "reject", "rejected":
		return DecisionReject, nil
	default:
		return "", fmt.Errorf("decision %q: %w", s, ErrUnknownDecision)
	}
}

// BookingService единственный, кто создаёт брони и меняет их статус.
// Все изменения идут через mu, индекс и хранилище меняются вместе
type BookingService struct {
	mu sync.Mutex

	store    BookingStore
	index    *conflict.Index
	notifier Notifier
	cache    Invalidator
	clock    Clock
	logger   *zap.Logger
}

// NewBookingService создаёт сервис броней. clock по умолчанию системный
func NewBookingService(
	store BookingStore,
	index *conflict.Index,
	notifier Notifier,
	cache Invalidator,
	clock Clock,
	logger *zap.Logger,
) *BookingService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &BookingService{
		store:    store,
		index:    index,
		notifier: notifier,
		cache:    cache,
		clock:    clock,
		logger:   logger,
	}
}

// RequestBooking подаёт заявку. Бронь администратора подтверждается сразу,
// заявка HOD ждёт решения и окно не занимает
func (s *BookingService) RequestBooking(ctx context.Context, requester model.Requester, window model.TimeWindow, details model.BookingDetails) (*model.Booking, error) {
	if err := requester.Validate(); err != nil {
		return nil, err
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	details, err := details.Normalize(requester.Kind)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if window.Date.Before(model.DateOf(now)) {
		return nil, fmt.Errorf("booking date %s: %w", window.Date, model.ErrPastDate)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate booking id: %w", err)
	}

	booking := &model.Booking{
		ID:             id,
		Requester:      requester,
		BookingDetails: details,
		Window:         window,
		Status:         model.BookingStatusPending,
		CreatedAt:      now,
	}
	if requester.IsAdmin() {
		booking.Status = model.BookingStatusAdminConfirmed
	}

	if err := s.create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info("Booking requested",
		zap.String("booking_id", booking.ID.String()),
		zap.String("requester", requester.ID),
		zap.String("requester_kind", string(requester.Kind)),
		zap.String("window", window.String()),
		zap.String("status", string(booking.Status)),
	)

	s.afterMutation(ctx, booking)

	return booking, nil
}

func (s *BookingService) create(ctx context.Context, booking *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Заявка HOD проверяется только против подтверждённых броней,
	// пересечения заявок между собой разбирает администратор
	if !booking.Status.IsConfirmed() {
		if entry, ok := s.index.Conflict(booking.Window); ok {
			return s.conflictError(ErrSlotTaken, booking.Window, entry)
		}

		if err := s.store.Create(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	}

	if err := s.reserve(ErrSlotTaken, booking); err != nil {
		return err
	}

	if err := s.store.Create(ctx, booking); err != nil {
		s.index.Release(booking.ID)
		if errors.Is(err, repository.ErrOverlap) {
			return fmt.Errorf("%w: %w", ErrSlotTaken, err)
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// Decide одобряет или отклоняет заявку в статусе pending
func (s *BookingService) Decide(ctx context.Context, bookingID uuid.UUID, decision Decision, admin model.Requester) (*model.Booking, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}

	var (
		booking *model.Booking
		err     error
	)
	switch decision {
	case DecisionApprove:
		booking, err = s.approve(ctx, bookingID, admin)
	case DecisionReject:
		booking, err = s.reject(ctx, bookingID, admin)
	default:
		return nil, fmt.Errorf("decision %q: %w", decision, ErrUnknownDecision)
	}

	if err != nil {
		if errors.Is(err, ErrSlotNoLongerAvailable) {
			s.logger.Warn("Booking approval conflicts with a confirmed booking",
				zap.String("booking_id", bookingID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("Booking decided",
		zap.String("booking_id", booking.ID.String()),
		zap.String("admin", admin.ID),
		zap.String("status", string(booking.Status)),
	)

	s.afterMutation(ctx, booking)

	return booking, nil
}

func (s *BookingService) approve(ctx context.Context, bookingID uuid.UUID, admin model.Requester) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, err := s.pendingBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if booking.Window.Date.Before(model.DateOf(now)) {
		return nil, fmt.Errorf("booking %s date %s has passed: %w", bookingID, booking.Window.Date, ErrInvalidState)
	}

	// Заявка могла быть подана до того, как пересекающуюся одобрили
	if err := s.reserve(ErrSlotNoLongerAvailable, booking); err != nil {
		return nil, err
	}

	booking.Decide(model.BookingStatusApproved, admin.ID, now)

	if err := s.store.UpdateStatus(ctx, booking, model.BookingStatusPending); err != nil {
		s.index.Release(booking.ID)
		switch {
		case errors.Is(err, repository.ErrOverlap):
			return nil, fmt.Errorf("%w: %w", ErrSlotNoLongerAvailable, err)
		case errors.Is(err, repository.ErrStatusChanged):
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		default:
			return nil, fmt.Errorf("approve booking: %w", err)
		}
	}

	return booking, nil
}

func (s *BookingService) reject(ctx context.Context, bookingID uuid.UUID, admin model.Requester) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, err := s.pendingBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	booking.Decide(model.BookingStatusRejected, admin.ID, s.clock.Now())

	if err := s.store.UpdateStatus(ctx, booking, model.BookingStatusPending); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		return nil, fmt.Errorf("reject booking: %w", err)
	}

	return booking, nil
}

// CancelAdminBooking отменяет бронь администратора и сразу освобождает окно
func (s *BookingService) CancelAdminBooking(ctx context.Context, bookingID uuid.UUID, admin model.Requester) error {
	if !admin.IsAdmin() {
		return ErrForbidden
	}

	booking, err := s.cancel(ctx, bookingID, admin)
	if err != nil {
		return err
	}

	s.logger.Info("Admin booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("admin", admin.ID),
		zap.String("window", booking.Window.String()),
	)

	s.afterMutation(ctx, booking)

	return nil
}

func (s *BookingService) cancel(ctx context.Context, bookingID uuid.UUID, admin model.Requester) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}
	if booking.Status != model.BookingStatusAdminConfirmed {
		return nil, fmt.Errorf("cancel booking %s in status %s: %w", bookingID, booking.Status, ErrInvalidState)
	}

	booking.Decide(model.BookingStatusCancelled, admin.ID, s.clock.Now())

	if err := s.store.UpdateStatus(ctx, booking, model.BookingStatusAdminConfirmed); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	// Окна могло не быть в индексе, если дата уже вычищена
	s.index.Release(booking.ID)

	return booking, nil
}

// GetByID бронь по ID
func (s *BookingService) GetByID(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}
	return booking, nil
}

// ListPending заявки на рассмотрении в порядке подачи
func (s *BookingService) ListPending(ctx context.Context) ([]*model.Booking, error) {
	return s.store.ListPending(ctx)
}

// ListForDate подтверждённые брони даты по времени начала, при равенстве по порядку подачи
func (s *BookingService) ListForDate(ctx context.Context, date model.Date) ([]*model.Booking, error) {
	return s.store.ListConfirmedByDate(ctx, date)
}

// LoadIndex заполняет индекс подтверждёнными бронями начиная с сегодняшнего дня
func (s *BookingService) LoadIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := model.DateOf(s.clock.Now())
	bookings, err := s.store.ListConfirmedSince(ctx, today)
	if err != nil {
		return fmt.Errorf("load confirmed bookings: %w", err)
	}

	entries := make([]conflict.Entry, 0, len(bookings))
	for _, b := range bookings {
		entries = append(entries, conflict.Entry{BookingID: b.ID, Window: b.Window})
	}

	if err := s.index.Load(entries); err != nil {
		return fmt.Errorf("load conflict index: %w", err)
	}

	s.logger.Info("Conflict index loaded",
		zap.Int("bookings", len(entries)),
		zap.String("from", today.String()),
	)

	return nil
}

// PruneIndex убирает из индекса прошедшие даты
func (s *BookingService) PruneIndex() int {
	today := model.DateOf(s.clock.Now())
	removed := s.index.PruneBefore(today)

	s.logger.Info("Conflict index pruned",
		zap.Int("removed", removed),
		zap.String("before", today.String()),
	)

	return removed
}

func (s *BookingService) pendingBooking(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}
	if booking.Status != model.BookingStatusPending {
		return nil, fmt.Errorf("booking %s is %s: %w", bookingID, booking.Status, ErrInvalidState)
	}
	return booking, nil
}

func (s *BookingService) reserve(kind error, booking *model.Booking) error {
	err := s.index.Reserve(booking.ID, booking.Window)
	if err == nil {
		return nil
	}

	var overlap *conflict.OverlapError
	if errors.As(err, &overlap) {
		return s.conflictError(kind, booking.Window, overlap.With)
	}
	return fmt.Errorf("reserve window: %w", err)
}

func (s *BookingService) conflictError(kind error, requested model.TimeWindow, with conflict.Entry) error {
	s.logger.Warn("Requested window is taken",
		zap.String("window", requested.String()),
		zap.String("conflicting_booking_id", with.BookingID.String()),
	)
	return &ConflictError{
		Requested:     requested,
		ConflictingID: with.BookingID,
		Conflicting:   with.Window,
		kind:          kind,
	}
}

// afterMutation сбрасывает кэш проекций и рассылает уведомление.
// Ошибки здесь только логируются: изменение уже сохранено
func (s *BookingService) afterMutation(ctx context.Context, booking *model.Booking) {
	ctx = context.WithoutCancel(ctx)

	if s.cache != nil {
		if err := s.invalidateCache(ctx); err != nil {
			s.logger.Error("Failed to invalidate projection cache, projections may be stale until TTL",
				zap.String("booking_id", booking.ID.String()),
				zap.Error(err),
			)
		}
	}

	if s.notifier == nil {
		return
	}

	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	event := model.BookingEvent{
		Type:       model.EventTypeFor(booking.Status),
		Booking:    booking.Clone(),
		OccurredAt: s.clock.Now(),
	}
	if err := s.notifier.Notify(notifyCtx, event); err != nil {
		s.logger.Warn("Failed to deliver booking notification",
			zap.String("booking_id", booking.ID.String()),
			zap.String("event", string(event.Type)),
			zap.Error(err),
		)
	}
}

// invalidateCache сбрасывает кэш проекций, при ошибке пробует ещё раз
func (s *BookingService) invalidateCache(ctx context.Context) error {
	err := s.cache.Invalidate(ctx)
	if err == nil {
		return nil
	}
	s.logger.Warn("Projection cache invalidation failed, retrying", zap.Error(err))

	select {
	case <-time.After(invalidateRetryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.cache.Invalidate(ctx)
}
