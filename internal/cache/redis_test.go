package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/conflict"
	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/Freeeeeet/auditorium_booking/internal/repository/memory"
	"github.com/Freeeeeet/auditorium_booking/internal/service"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const ttl = time.Minute

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, ttl), mr
}

type slot struct {
	Date  model.Date `json:"date"`
	Start string     `json:"start"`
}

func TestRedisCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)

	var got []slot
	ok, err := c.Get(ctx, gen, "date:2030-05-10", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []slot{
		{Date: model.Date{Year: 2030, Month: time.May, Day: 10}, Start: "09:00"},
		{Date: model.Date{Year: 2030, Month: time.May, Day: 10}, Start: "13:30"},
	}
	require.NoError(t, c.Set(ctx, gen, "date:2030-05-10", want))

	ok, err = c.Get(ctx, gen, "date:2030-05-10", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	assert.True(t, mr.Exists("auditorium:projections:0:date:2030-05-10"))
	assert.Equal(t, ttl, mr.TTL("auditorium:projections:0:date:2030-05-10"))
}

func TestRedisCache_InvalidateStartsNewGeneration(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.Set(ctx, 0, "pending", []string{"a"}))
	require.NoError(t, c.Invalidate(ctx))

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	var got []string
	ok, err := c.Get(ctx, gen, "pending", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Invalidate(ctx))
	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
}

func TestRedisCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(ctx, 0, "pending", []string{"a"}))
	mr.FastForward(ttl + time.Second)

	var got []string
	ok, err := c.Get(ctx, 0, "pending", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_CorruptedValue(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("auditorium:projections:0:pending", "{not json"))

	var got []string
	ok, err := c.Get(context.Background(), 0, "pending", &got)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Outage(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.Generation(ctx)
	assert.Error(t, err)
	assert.Error(t, c.Invalidate(ctx))
	assert.Error(t, c.Set(ctx, 0, "pending", []string{"a"}))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = NewRedisClient(context.Background(), mr.Addr(), "", 0)
	assert.Error(t, err)
}

// Проекции сервиса проходят через JSON и сбрасываются мутациями
func TestRedisCache_BackingQueryService(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	logger := zaptest.NewLogger(t)

	store := memory.NewBookingStore()
	index := conflict.NewIndex()
	bookings := service.NewBookingService(store, index, nil, c, nil, logger)
	queries := service.NewQueryService(store, index, nil, c, nil, logger)

	day := model.DateOf(time.Now().AddDate(0, 0, 7))
	hod := model.HOD("hod-1", model.Department{ID: "d1", Name: "CSE"})
	details := model.BookingDetails{EventName: "Seminar", EventType: model.PredefinedEvent(model.EventAcademic)}

	w, err := model.NewTimeWindow(day, "10:00", "11:00")
	require.NoError(t, err)
	first, err := bookings.RequestBooking(ctx, hod, w, details)
	require.NoError(t, err)

	pending, err := queries.PendingBookings(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, mr.Exists("auditorium:projections:1:pending"))

	// запись в обход сервиса не видна, пока проекция лежит в Redis
	sneakyWindow, err := model.NewTimeWindow(day, "12:00", "13:00")
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, &model.Booking{
		ID:             uuid.Must(uuid.NewV7()),
		Requester:      hod,
		BookingDetails: details,
		Window:         sneakyWindow,
		Status:         model.BookingStatusPending,
		CreatedAt:      time.Now(),
	}))

	cachedPending, err := queries.PendingBookings(ctx)
	require.NoError(t, err)
	require.Len(t, cachedPending, 1)
	assert.Equal(t, first.ID, cachedPending[0].ID)
	assert.Equal(t, "CSE", cachedPending[0].Requester.Department.Label())
	assert.Equal(t, first.Window, cachedPending[0].Window)

	_, err = bookings.Decide(ctx, first.ID, service.DecisionApprove, model.Admin("root"))
	require.NoError(t, err)

	pending, err = queries.PendingBookings(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.NotEqual(t, first.ID, pending[0].ID)

	slots, err := queries.BookingsForDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, slots, 1)

	again, err := queries.BookingsForDate(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, slots, again)
	assert.Equal(t, "CSE", again[0].Department)

	dates, err := queries.BookedDates(ctx, day, day)
	require.NoError(t, err)
	assert.Equal(t, []model.Date{day}, dates.Dates)
}
