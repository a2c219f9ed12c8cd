package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticUsers int

func (u staticUsers) CountUsers(context.Context) (int, error) { return int(u), nil }

func TestBookingsForDate_DepartmentLabels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	linked := f.book(t, model.HOD("h1", model.Department{ID: "d1", Name: "Physics", Literal: "PHY"}), window(t, "09:00", "10:00"), "Linked")
	literal := f.book(t, model.HOD("h2", model.Department{Literal: "Chemistry"}), window(t, "10:00", "11:00"), "Literal")
	bare := f.book(t, model.HOD("h3", model.Department{ID: "d9"}), window(t, "11:00", "12:00"), "Bare")
	for _, b := range []*model.Booking{linked, literal, bare} {
		_, err := f.bookings.Decide(ctx, b.ID, DecisionApprove, admin)
		require.NoError(t, err)
	}

	b, err := f.bookings.RequestBooking(ctx, admin, window(t, "13:00", "14:00"), model.BookingDetails{
		EventName: "Alumni meet",
		EventType: model.OtherEvent("Alumni"),
	})
	require.NoError(t, err)

	slots, err := f.queries.BookingsForDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, slots, 4)

	assert.Equal(t, "Physics", slots[0].Department)
	assert.Equal(t, "Chemistry", slots[1].Department)
	assert.Equal(t, model.UnknownDepartment, slots[2].Department)
	assert.Equal(t, model.UnknownDepartment, slots[3].Department)

	assert.Equal(t, SlotSummary{
		BookingID:     b.ID,
		Date:          day,
		Start:         "13:00",
		End:           "14:00",
		EventName:     "Alumni meet",
		EventType:     "Alumni",
		Department:    model.UnknownDepartment,
		Status:        model.BookingStatusAdminConfirmed,
		BookedByAdmin: true,
	}, slots[3])
	assert.False(t, slots[0].BookedByAdmin)
	assert.Equal(t, "Academic", slots[0].EventType)
}

func TestQueryService_CachedProjectionsAreInvalidatedByMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, hod, window(t, "10:00", "11:00"), "Seminar")

	first, err := f.queries.PendingBookings(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 0, f.cache.Hits())

	again, err := f.queries.PendingBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 1)
	assert.Equal(t, 1, f.cache.Hits())

	// запись в обход сервиса не видна, пока проекция в кэше
	sneaky := &model.Booking{
		ID:             uuid.Must(uuid.NewV7()),
		Requester:      hod,
		BookingDetails: details("Sneaky"),
		Window:         window(t, "12:00", "13:00"),
		Status:         model.BookingStatusPending,
		CreatedAt:      now,
	}
	require.NoError(t, f.store.Create(ctx, sneaky))
	stale, err := f.queries.PendingBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	// любая мутация через сервис начинает новое поколение
	f.book(t, hod, window(t, "14:00", "15:00"), "Another")
	fresh, err := f.queries.PendingBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 3)

	count, err := f.queries.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestQueryService_CacheOutageFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	f.cache.failGen = true
	f.book(t, hod, window(t, "10:00", "11:00"), "Seminar")

	pending, err := f.queries.PendingBookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, 0, f.cache.Hits())
}

func TestQueryService_WithoutCache(t *testing.T) {
	f := newFixture(t)
	q := NewQueryService(f.store, f.index, nil, nil, f.clock, zaptest.NewLogger(t))
	f.book(t, admin, window(t, "10:00", "11:00"), "Meeting")

	slots, err := q.BookingsForDate(context.Background(), day)
	require.NoError(t, err)
	assert.Len(t, slots, 1)
}

func TestBookedDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := func(dd int) model.Date { return model.Date{Year: 2030, Month: time.May, Day: dd} }

	f.book(t, admin, windowOn(t, d(10), "09:00", "10:00"), "a")
	f.book(t, admin, windowOn(t, d(10), "11:00", "12:00"), "b")
	f.book(t, admin, windowOn(t, d(12), "09:00", "10:00"), "c")
	f.book(t, admin, windowOn(t, d(20), "09:00", "10:00"), "d")
	f.book(t, hod, windowOn(t, d(14), "09:00", "10:00"), "pending only")

	got, err := f.queries.BookedDates(ctx, d(6), d(14))
	require.NoError(t, err)
	assert.Equal(t, []model.Date{d(10), d(12)}, got.Dates)
	assert.Equal(t, d(6), got.From)
	assert.Equal(t, d(14), got.To)

	got, err = f.queries.BookedDates(ctx, d(11), d(11))
	require.NoError(t, err)
	assert.Empty(t, got.Dates)

	_, err = f.queries.BookedDates(ctx, d(14), d(6))
	assert.ErrorIs(t, err, model.ErrInvertedRange)
}

func TestBookedDates_DefaultRangeFollowsClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inRange := model.Date{Year: 2030, Month: time.June, Day: 1}
	tooLate := model.Date{Year: 2030, Month: time.June, Day: 20}
	f.book(t, admin, windowOn(t, inRange, "09:00", "10:00"), "in range")
	f.book(t, admin, windowOn(t, tooLate, "09:00", "10:00"), "after the default window")

	got, err := f.queries.BookedDates(ctx, model.Date{}, model.Date{})
	require.NoError(t, err)
	assert.Equal(t, model.DateOf(now), got.From)
	assert.Equal(t, model.Date{Year: 2030, Month: time.June, Day: 6}, got.To)
	assert.Equal(t, []model.Date{inRange}, got.Dates)

	// время идёт только по часам сервиса
	f.clock.Advance(30 * 24 * time.Hour)
	got, err = f.queries.BookedDates(ctx, model.Date{}, model.Date{})
	require.NoError(t, err)
	assert.Equal(t, model.Date{Year: 2030, Month: time.June, Day: 5}, got.From)
	assert.Equal(t, []model.Date{tooLate}, got.Dates)
}

func TestBookedDates_RangeTooWide(t *testing.T) {
	f := newFixture(t)
	from := model.Date{Year: 2030, Month: time.May, Day: 10}

	_, err := f.queries.BookedDates(context.Background(), from, model.Date{Year: 2031, Month: time.May, Day: 12})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.queries.BookedDates(context.Background(), from, model.Date{Year: 2031, Month: time.May, Day: 11})
	assert.NoError(t, err)
}

func TestFreeWindows(t *testing.T) {
	f := newFixture(t)
	f.book(t, admin, window(t, "10:00", "11:00"), "a")
	f.book(t, hod, window(t, "12:00", "13:00"), "pending does not block")

	free := f.queries.FreeWindows(day)
	assert.Equal(t, []model.TimeWindow{
		window(t, "09:00", "10:00"),
		window(t, "11:00", "16:30"),
	}, free)
}

func TestRequestsBy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := model.HOD("hod-me", model.Department{Name: "ME"})

	older := f.book(t, hod, window(t, "10:00", "11:00"), "older")
	f.clock.Advance(time.Minute)
	newer := f.book(t, hod, window(t, "12:00", "13:00"), "newer")
	f.book(t, other, window(t, "14:00", "15:00"), "not mine")

	mine, err := f.queries.RequestsBy(ctx, hod.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)
}

func TestRecentBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.book(t, hod, window(t, "10:00", "11:00"), "old")
	f.clock.Advance(40 * 24 * time.Hour)
	recent := f.book(t, hod, windowOn(t, model.DateOf(f.clock.Now()), "10:00", "11:00"), "recent")

	got, err := f.queries.RecentBookings(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, recent.ID, got[0].ID)

	got, err = f.queries.RecentBookings(ctx, 60)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, old.ID, got[1].ID)

	for _, bad := range []int{-1, 367} {
		_, err := f.queries.RecentBookings(ctx, bad)
		assert.ErrorIs(t, err, model.ErrValidation)
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, hod, window(t, "09:00", "10:00"), "a")
	b := f.book(t, hod, window(t, "10:00", "11:00"), "b")
	f.book(t, hod, window(t, "11:00", "12:00"), "c")
	adminBooking := f.book(t, admin, window(t, "13:00", "14:00"), "d")

	_, err := f.bookings.Decide(ctx, a.ID, DecisionApprove, admin)
	require.NoError(t, err)
	_, err = f.bookings.Decide(ctx, b.ID, DecisionReject, admin)
	require.NoError(t, err)
	require.NoError(t, f.bookings.CancelAdminBooking(ctx, adminBooking.ID, admin))

	m, err := f.queries.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, m.TotalBookings)
	assert.Equal(t, 0, m.TotalUsers)
	assert.Equal(t, map[model.BookingStatus]int{
		model.BookingStatusApproved:  1,
		model.BookingStatusRejected:  1,
		model.BookingStatusPending:   1,
		model.BookingStatusCancelled: 1,
	}, m.ByStatus)

	withUsers := NewQueryService(f.store, f.index, staticUsers(12), nil, f.clock, zaptest.NewLogger(t))
	m, err = withUsers.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, m.TotalUsers)
}
