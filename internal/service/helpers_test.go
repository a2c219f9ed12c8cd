package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/conflict"
	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/Freeeeeet/auditorium_booking/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	// "сегодня" во всех тестах сервиса
	now      = time.Date(2030, time.May, 6, 8, 30, 0, 0, time.UTC)
	day      = model.Date{Year: 2030, Month: time.May, Day: 10}
	errStore = errors.New("store is down")
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.BookingEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event model.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) Types() []model.BookingEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.BookingEventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

// mapCache ProjectionCache в памяти с поколениями, как у Redis
type mapCache struct {
	mu             sync.Mutex
	gen            int64
	values         map[string]any
	invalidated    int
	gets, hits     int
	failGen        bool
	failInvalidate int // столько следующих вызовов Invalidate завершатся ошибкой
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]any)}
}

func (c *mapCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failInvalidate > 0 {
		c.failInvalidate--
		return errors.New("cache is down")
	}
	c.gen++
	c.invalidated++
	return nil
}

func (c *mapCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGen {
		return 0, errors.New("cache is down")
	}
	return c.gen, nil
}

func (c *mapCache) Get(_ context.Context, gen int64, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++

	v, ok := c.values[cacheKey(gen, key)]
	if !ok {
		return false, nil
	}
	c.hits++

	switch d := dst.(type) {
	case *[]*model.Booking:
		*d = v.([]*model.Booking)
	case *[]SlotSummary:
		*d = v.([]SlotSummary)
	case *[]model.Date:
		*d = v.([]model.Date)
	default:
		return false, errors.New("unexpected projection type")
	}
	return true, nil
}

func (c *mapCache) Set(_ context.Context, gen int64, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[cacheKey(gen, key)] = value
	return nil
}

func (c *mapCache) failNextInvalidations(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failInvalidate = n
}

func (c *mapCache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func (c *mapCache) Invalidated() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated
}

func cacheKey(gen int64, key string) string {
	return fmt.Sprintf("%d:%s", gen, key)
}

// flakyStore хранилище в памяти, которое можно заставить падать на записи
type flakyStore struct {
	*memory.BookingStore

	mu         sync.Mutex
	failCreate bool
	failUpdate bool
}

func (s *flakyStore) Create(ctx context.Context, booking *model.Booking) error {
	s.mu.Lock()
	fail := s.failCreate
	s.mu.Unlock()

	if fail {
		return errStore
	}
	return s.BookingStore.Create(ctx, booking)
}

func (s *flakyStore) UpdateStatus(ctx context.Context, booking *model.Booking, from model.BookingStatus) error {
	s.mu.Lock()
	fail := s.failUpdate
	s.mu.Unlock()

	if fail {
		return errStore
	}
	return s.BookingStore.UpdateStatus(ctx, booking, from)
}

func (s *flakyStore) set(create, update bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate = create
	s.failUpdate = update
}

type fixture struct {
	store    *flakyStore
	index    *conflict.Index
	clock    *fixedClock
	notifier *recordingNotifier
	cache    *mapCache
	bookings *BookingService
	queries  *QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    &flakyStore{BookingStore: memory.NewBookingStore()},
		index:    conflict.NewIndex(),
		clock:    &fixedClock{now: now},
		notifier: &recordingNotifier{},
		cache:    newMapCache(),
	}
	logger := zaptest.NewLogger(t)
	f.bookings = NewBookingService(f.store, f.index, f.notifier, f.cache, f.clock, logger)
	f.queries = NewQueryService(f.store, f.index, nil, f.cache, f.clock, logger)
	return f
}

var (
	admin = model.Admin("root")
	hod   = model.HOD("hod-cse", model.Department{ID: "d1", Name: "CSE"})
)

func window(t *testing.T, start, end string) model.TimeWindow {
	t.Helper()
	return windowOn(t, day, start, end)
}

func windowOn(t *testing.T, date model.Date, start, end string) model.TimeWindow {
	t.Helper()
	w, err := model.NewTimeWindow(date, start, end)
	require.NoError(t, err)
	return w
}

func details(name string) model.BookingDetails {
	return model.BookingDetails{
		EventName: name,
		EventType: model.PredefinedEvent(model.EventAcademic),
	}
}

func (f *fixture) book(t *testing.T, requester model.Requester, w model.TimeWindow, name string) *model.Booking {
	t.Helper()
	b, err := f.bookings.RequestBooking(context.Background(), requester, w, details(name))
	require.NoError(t, err)
	return b
}
