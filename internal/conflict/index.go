// Package conflict хранит занятые окна аудитории по датам.
//
// В индекс попадают только подтверждённые брони (approved и admin_confirmed).
// Для каждой даты окна лежат отсортированными по началу и не пересекаются,
// поэтому вместе с началами отсортированы и концы, и поиск пересечения
// сводится к бинарному поиску.
package conflict

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/google/uuid"
)

var ErrAlreadyIndexed = errors.New("booking already indexed")

// Entry занятое окно и бронь, которой оно принадлежит
type Entry struct {
	BookingID uuid.UUID        `json:"booking_id"`
	Window    model.TimeWindow `json:"window"`
}

// OverlapError окно пересекается с уже занятым
type OverlapError struct {
	With Entry
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("window overlaps booking %s (%s)", e.With.BookingID, e.With.Window)
}

// Index занятые окна аудитории, безопасен для конкурентного доступа
type Index struct {
	mu     sync.RWMutex
	byDate map[model.Date][]Entry
	byID   map[uuid.UUID]model.Date
}

// NewIndex создаёт пустой индекс
func NewIndex() *Index {
	return &Index{
		byDate: make(map[model.Date][]Entry),
		byID:   make(map[uuid.UUID]model.Date),
	}
}

// Conflict возвращает занятое окно, пересекающееся с w
func (ix *Index) Conflict(w model.TimeWindow) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return findOverlap(ix.byDate[w.Date], w)
}

// Reserve атомарно проверяет окно и занимает его за бронью id
func (ix *Index) Reserve(id uuid.UUID, w model.TimeWindow) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	return ix.reserveLocked(id, w)
}

func (ix *Index) reserveLocked(id uuid.UUID, w model.TimeWindow) error {
	if _, ok := ix.byID[id]; ok {
		return fmt.Errorf("reserve %s: %w", id, ErrAlreadyIndexed)
	}

	entries := ix.byDate[w.Date]
	if with, ok := findOverlap(entries, w); ok {
		return &OverlapError{With: with}
	}

	pos := sort.Search(len(entries), func(i int) bool {
		return entries[i].Window.StartMinute >= w.StartMinute
	})
	ix.byDate[w.Date] = slices.Insert(entries, pos, Entry{BookingID: id, Window: w})
	ix.byID[id] = w.Date

	return nil
}

// Release освобождает окно брони. false если брони не было в индексе
func (ix *Index) Release(id uuid.UUID) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	date, ok := ix.byID[id]
	if !ok {
		return false
	}
	delete(ix.byID, id)

	entries := ix.byDate[date]
	for i, e := range entries {
		if e.BookingID == id {
			entries = slices.Delete(entries, i, i+1)
			break
		}
	}
	if len(entries) == 0 {
		delete(ix.byDate, date)
	} else {
		ix.byDate[date] = entries
	}
	return true
}

// Contains true если бронь занимает окно в индексе
func (ix *Index) Contains(id uuid.UUID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	_, ok := ix.byID[id]
	return ok
}

// Entries занятые окна даты по возрастанию начала. Возвращается копия
func (ix *Index) Entries(date model.Date) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return slices.Clone(ix.byDate[date])
}

// Dates даты, на которые есть хотя бы одно занятое окно
func (ix *Index) Dates() []model.Date {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	dates := make([]model.Date, 0, len(ix.byDate))
	for d := range ix.byDate {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b model.Date) int { return a.Compare(b) })
	return dates
}

// FreeWindows свободные промежутки даты в пределах рабочих часов
func (ix *Index) FreeWindows(date model.Date) []model.TimeWindow {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var free []model.TimeWindow
	cursor := model.OperatingOpen
	for _, e := range ix.byDate[date] {
		if e.Window.StartMinute > cursor {
			free = append(free, model.TimeWindow{Date: date, StartMinute: cursor, EndMinute: e.Window.StartMinute})
		}
		if e.Window.EndMinute > cursor {
			cursor = e.Window.EndMinute
		}
	}
	if cursor < model.OperatingClose {
		free = append(free, model.TimeWindow{Date: date, StartMinute: cursor, EndMinute: model.OperatingClose})
	}
	return free
}

// Load заменяет содержимое индекса. При пересечении индекс остаётся прежним
func (ix *Index) Load(entries []Entry) error {
	fresh := NewIndex()
	for _, e := range entries {
		if err := fresh.reserveLocked(e.BookingID, e.Window); err != nil {
			return fmt.Errorf("load booking %s: %w", e.BookingID, err)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.byDate = fresh.byDate
	ix.byID = fresh.byID
	return nil
}

// PruneBefore выбрасывает даты раньше date и возвращает число удалённых окон
func (ix *Index) PruneBefore(date model.Date) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	removed := 0
	for d, entries := range ix.byDate {
		if !d.Before(date) {
			continue
		}
		for _, e := range entries {
			delete(ix.byID, e.BookingID)
		}
		removed += len(entries)
		delete(ix.byDate, d)
	}
	return removed
}

// Len количество занятых окон во всех датах
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return len(ix.byID)
}

func findOverlap(entries []Entry, w model.TimeWindow) (Entry, bool) {
	// первое окно, которое заканчивается позже начала w
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Window.EndMinute > w.StartMinute
	})
	if i < len(entries) && entries[i].Window.Overlaps(w) {
		return entries[i], true
	}
	return Entry{}, false
}
