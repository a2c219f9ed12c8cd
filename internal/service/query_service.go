package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/conflict"
	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRecentDays = 30
	maxRecentDays     = 366

	// Диапазон календаря по умолчанию и максимальный, в днях
	defaultDatesSpan = 31
	maxDatesSpan     = 366
)

// ProjectionCache кэш проекций. Ключи живут внутри поколения: Invalidate
// начинает новое поколение, и всё посчитанное до него больше не читается
type ProjectionCache interface {
	Invalidator
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, key string, dst any) (bool, error)
	Set(ctx context.Context, gen int64, key string, value any) error
}

// UserCounter количество пользователей из сервиса аутентификации
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

// SlotSummary строка календаря на выбранную дату
type SlotSummary struct {
	BookingID     uuid.UUID           `json:"booking_id"`
	Date          model.Date          `json:"date"`
	Start         string              `json:"start"`
	End           string              `json:"end"`
	EventName     string              `json:"event_name"`
	EventType     string              `json:"event_type"`
	Department    string              `json:"department"`
	Status        model.BookingStatus `json:"status"`
	BookedByAdmin bool                `json:"booked_by_admin"`
}

// CalendarDates занятые даты в диапазоне [From, To]
type CalendarDates struct {
	From  model.Date   `json:"from"`
	To    model.Date   `json:"to"`
	Dates []model.Date `json:"dates"`
}

// Metrics счётчики панели администратора
type Metrics struct {
	TotalBookings int                         `json:"total_bookings"`
	TotalUsers    int                         `json:"total_users"`
	ByStatus      map[model.BookingStatus]int `json:"by_status"`
}

// QueryService проекции только для чтения, ничего не меняет
type QueryService struct {
	store  BookingStore
	index  *conflict.Index
	users  UserCounter
	cache  ProjectionCache
	clock  Clock
	logger *zap.Logger
}

// NewQueryService создаёт сервис проекций. clock по умолчанию системный
func NewQueryService(
	store BookingStore,
	index *conflict.Index,
	users UserCounter,
	cache ProjectionCache,
	clock Clock,
	logger *zap.Logger,
) *QueryService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &QueryService{
		store:  store,
		index:  index,
		users:  users,
		cache:  cache,
		clock:  clock,
		logger: logger,
	}
}

// PendingBookings заявки на рассмотрении в порядке подачи
func (q *QueryService) PendingBookings(ctx context.Context) ([]*model.Booking, error) {
	return cached(ctx, q, "pending", func() ([]*model.Booking, error) {
		bookings, err := q.store.ListPending(ctx)
		if err != nil {
			return nil, fmt.Errorf("list pending bookings: %w", err)
		}
		return bookings, nil
	})
}

// PendingCount счётчик для значка на панели администратора
func (q *QueryService) PendingCount(ctx context.Context) (int, error) {
	pending, err := q.PendingBookings(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// BookingsForDate занятые слоты даты по времени начала
func (q *QueryService) BookingsForDate(ctx context.Context, date model.Date) ([]SlotSummary, error) {
	return cached(ctx, q, "date:"+date.String(), func() ([]SlotSummary, error) {
		bookings, err := q.store.ListConfirmedByDate(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("list bookings for %s: %w", date, err)
		}

		summaries := make([]SlotSummary, 0, len(bookings))
		for _, b := range bookings {
			summaries = append(summaries, Summarize(b))
		}
		return summaries, nil
	})
}

// BookedDates даты в диапазоне [from, to], на которые есть подтверждённые брони.
// Нулевой from означает сегодня, нулевой to означает from плюс месяц
func (q *QueryService) BookedDates(ctx context.Context, from, to model.Date) (CalendarDates, error) {
	if from.IsZero() {
		from = model.DateOf(q.clock.Now())
	}
	if to.IsZero() {
		to = model.DateOf(from.Time(time.UTC).AddDate(0, 0, defaultDatesSpan))
	}

	if to.Before(from) {
		return CalendarDates{}, fmt.Errorf("range %s..%s: %w", from, to, model.ErrInvertedRange)
	}
	if limit := model.DateOf(from.Time(time.UTC).AddDate(0, 0, maxDatesSpan)); limit.Before(to) {
		return CalendarDates{}, fmt.Errorf("range %s..%s exceeds %d days: %w", from, to, maxDatesSpan, model.ErrValidation)
	}

	key := fmt.Sprintf("dates:%s:%s", from, to)
	dates, err := cached(ctx, q, key, func() ([]model.Date, error) {
		bookings, err := q.store.ListConfirmedSince(ctx, from)
		if err != nil {
			return nil, fmt.Errorf("list booked dates: %w", err)
		}

		dates := []model.Date{}
		for _, b := range bookings {
			d := b.Window.Date
			if to.Before(d) {
				break
			}
			if len(dates) == 0 || dates[len(dates)-1] != d {
				dates = append(dates, d)
			}
		}
		return dates, nil
	})
	if err != nil {
		return CalendarDates{}, err
	}

	return CalendarDates{From: from, To: to, Dates: dates}, nil
}

// FreeWindows свободные промежутки даты по индексу конфликтов
func (q *QueryService) FreeWindows(date model.Date) []model.TimeWindow {
	return q.index.FreeWindows(date)
}

// RequestsBy заявки одного заявителя, новые первыми
func (q *QueryService) RequestsBy(ctx context.Context, requesterID string) ([]*model.Booking, error) {
	bookings, err := q.store.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests of %s: %w", requesterID, err)
	}
	return bookings, nil
}

// History все брони для истории и выгрузок, новые первыми
func (q *QueryService) History(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := q.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list booking history: %w", err)
	}
	return bookings, nil
}

// RecentBookings брони, поданные за последние days дней. 0 означает 30 дней
func (q *QueryService) RecentBookings(ctx context.Context, days int) ([]*model.Booking, error) {
	if days == 0 {
		days = defaultRecentDays
	}
	if days < 0 || days > maxRecentDays {
		return nil, fmt.Errorf("days %d must be between 1 and %d: %w", days, maxRecentDays, model.ErrValidation)
	}

	since := q.clock.Now().AddDate(0, 0, -days)
	bookings, err := q.store.ListCreatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list recent bookings: %w", err)
	}
	return bookings, nil
}

// Metrics счётчики для панели администратора. Пользователей считает внешний сервис
func (q *QueryService) Metrics(ctx context.Context) (Metrics, error) {
	counts, err := q.store.CountByStatus(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("count bookings: %w", err)
	}

	m := Metrics{ByStatus: counts}
	for _, n := range counts {
		m.TotalBookings += n
	}

	if q.users != nil {
		m.TotalUsers, err = q.users.CountUsers(ctx)
		if err != nil {
			return Metrics{}, fmt.Errorf("count users: %w", err)
		}
	}

	return m, nil
}

// Summarize приводит бронь к строке календаря. Здесь же нормализуется кафедра
func Summarize(b *model.Booking) SlotSummary {
	return SlotSummary{
		BookingID:     b.ID,
		Date:          b.Window.Date,
		Start:         b.Window.Start(),
		End:           b.Window.End(),
		EventName:     b.EventName,
		EventType:     b.EventType.Label(),
		Department:    b.Requester.Department.Label(),
		Status:        b.Status,
		BookedByAdmin: b.Requester.IsAdmin(),
	}
}

// cached читает проекцию из кэша или считает её через load.
// Ошибки кэша не мешают ответу, проекция просто считается заново
func cached[T any](ctx context.Context, q *QueryService, key string, load func() (T, error)) (T, error) {
	if q.cache == nil {
		return load()
	}

	gen, err := q.cache.Generation(ctx)
	if err != nil {
		q.logger.Warn("Projection cache unavailable", zap.String("key", key), zap.Error(err))
		return load()
	}

	var hit T
	ok, err := q.cache.Get(ctx, gen, key, &hit)
	if err != nil {
		q.logger.Warn("Failed to read projection cache", zap.String("key", key), zap.Error(err))
	}
	if ok {
		return hit, nil
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if err := q.cache.Set(ctx, gen, key, value); err != nil {
		q.logger.Warn("Failed to write projection cache", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
