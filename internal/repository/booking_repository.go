package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/Freeeeeet/auditorium_booking/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `
	id, requester_kind, requester_id, department_id, department_name, department_text,
	event_name, event_tag, event_other, comments, requirements,
	booking_date, start_minute, end_minute, status, created_at, decided_at, decided_by
`

// BookingRepository брони в PostgreSQL
type BookingRepository struct {
	*base.Repository
}

// NewBookingRepository создаёт репозиторий броней
func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет новую бронь. ID и CreatedAt выставляет сервис
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.ExecAffected(
		ctx, query,
		booking.ID,
		booking.Requester.Kind,
		booking.Requester.ID,
		booking.Requester.Department.ID,
		booking.Requester.Department.Name,
		booking.Requester.Department.Literal,
		booking.EventName,
		booking.EventType.Tag,
		booking.EventType.Other,
		booking.Comments,
		requirementsToStrings(booking.Requirements),
		booking.Window.Date.Time(time.UTC),
		booking.Window.StartMinute,
		booking.Window.EndMinute,
		booking.Status,
		booking.CreatedAt,
		booking.DecidedAt,
		booking.DecidedBy,
	)

	if err != nil {
		return fmt.Errorf("create booking: %w", translateWriteError(err))
	}

	return nil
}

// GetByID получает бронь по ID. nil, nil если брони нет
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// UpdateStatus записывает статус и решение, только если текущий статус равен from
func (r *BookingRepository) UpdateStatus(ctx context.Context, booking *model.Booking, from model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, decided_at = $2, decided_by = $3
		WHERE id = $4 AND status = $5
	`

	affected, err := r.ExecAffected(ctx, query, booking.Status, booking.DecidedAt, booking.DecidedBy, booking.ID, from)
	if err != nil {
		return fmt.Errorf("update booking status: %w", translateWriteError(err))
	}

	if affected == 0 {
		return fmt.Errorf("update booking %s from %s: %w", booking.ID, from, ErrStatusChanged)
	}

	return nil
}

// ListPending получает все заявки на рассмотрении, старые первыми
func (r *BookingRepository) ListPending(ctx context.Context) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, "list pending bookings", query)
}

// ListConfirmedByDate подтверждённые брони даты по времени начала
func (r *BookingRepository) ListConfirmedByDate(ctx context.Context, date model.Date) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_date = $1 AND status IN ('approved', 'admin_confirmed')
		ORDER BY start_minute ASC, created_at ASC, id ASC
	`
	return r.list(ctx, "list confirmed bookings by date", query, date.Time(time.UTC))
}

// ListConfirmedSince подтверждённые брони начиная с даты from включительно
func (r *BookingRepository) ListConfirmedSince(ctx context.Context, from model.Date) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_date >= $1 AND status IN ('approved', 'admin_confirmed')
		ORDER BY booking_date ASC, start_minute ASC, created_at ASC, id ASC
	`
	return r.list(ctx, "list confirmed bookings", query, from.Time(time.UTC))
}

// ListByRequester все заявки одного заявителя, новые первыми
func (r *BookingRepository) ListByRequester(ctx context.Context, requesterID string) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE requester_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, "list bookings by requester", query, requesterID)
}

// ListAll вся история броней, новые первыми
func (r *BookingRepository) ListAll(ctx context.Context) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, "list bookings", query)
}

// ListCreatedSince брони, созданные не раньше since
func (r *BookingRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE created_at >= $1
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, "list recent bookings", query, since)
}

// CountByStatus количество броней в каждом статусе
func (r *BookingRepository) CountByStatus(ctx context.Context) (map[model.BookingStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM bookings GROUP BY status`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.BookingStatus]int)
	for rows.Next() {
		var (
			status model.BookingStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan booking count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	return counts, nil
}

func (r *BookingRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Booking, error) {
	bookings, err := base.Collect(ctx, r.Repository, scanBooking, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bookings, nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		booking      model.Booking
		requirements []string
		date         time.Time
	)

	err := row.Scan(
		&booking.ID,
		&booking.Requester.Kind,
		&booking.Requester.ID,
		&booking.Requester.Department.ID,
		&booking.Requester.Department.Name,
		&booking.Requester.Department.Literal,
		&booking.EventName,
		&booking.EventType.Tag,
		&booking.EventType.Other,
		&booking.Comments,
		&requirements,
		&date,
		&booking.Window.StartMinute,
		&booking.Window.EndMinute,
		&booking.Status,
		&booking.CreatedAt,
		&booking.DecidedAt,
		&booking.DecidedBy,
	)
	if err != nil {
		return nil, err
	}

	booking.Window.Date = model.DateOf(date)
	for _, r := range requirements {
		booking.Requirements = append(booking.Requirements, model.Requirement(r))
	}

	return &booking, nil
}

// Ограничения таблицы bookings, которые означают ошибку в данных заявки
const (
	constraintOperatingHours = "bookings_operating_hours"
	constraintWindowOrder    = "bookings_window_order"
)

// translateWriteError переводит нарушения ограничений таблицы в ошибки домена.
// Остальные нарушения CHECK остаются внутренними ошибками
func translateWriteError(err error) error {
	if base.IsExclusionViolation(err) {
		return ErrOverlap
	}

	constraint, ok := base.CheckViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case constraintOperatingHours:
		return fmt.Errorf("%w: %w", model.ErrOutOfHours, err)
	case constraintWindowOrder:
		return fmt.Errorf("%w: %w", model.ErrInvertedRange, err)
	default:
		return fmt.Errorf("constraint %s: %w", constraint, err)
	}
}

func requirementsToStrings(reqs []model.Requirement) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, string(r))
	}
	return out
}
