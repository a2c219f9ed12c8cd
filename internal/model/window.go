package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// OperatingOpen начало рабочего дня аудитории (09:00) в минутах от полуночи
	OperatingOpen = 9 * 60
	// OperatingClose конец рабочего дня аудитории (16:30)
	OperatingClose = 16*60 + 30

	minutesPerDay = 24 * 60
	dateLayout    = "2006-01-02"
	clockLayout   = "15:04"
)

// Ошибки валидации окна. Все они оборачивают ErrValidation
var (
	ErrValidation     = errors.New("validation error")
	ErrMalformedTime  = fmt.Errorf("%w: malformed time", ErrValidation)
	ErrMalformedDate  = fmt.Errorf("%w: malformed date", ErrValidation)
	ErrOutOfHours     = fmt.Errorf("%w: bookings can only be made between 09:00 and 16:30", ErrValidation)
	ErrInvertedRange  = fmt.Errorf("%w: start time must be before end time", ErrValidation)
	ErrPastDate       = fmt.Errorf("%w: date is in the past", ErrValidation)
	ErrInvalidDetails = fmt.Errorf("%w: invalid booking details", ErrValidation)
)

// Date календарный день без времени и часового пояса
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate разбирает дату в формате YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("date %q: %w", s, ErrMalformedDate)
	}
	return DateOf(t), nil
}

// DateOf возвращает календарный день момента t в его собственной локации
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time полночь этого дня в указанной локации
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero дата не задана
func (d Date) IsZero() bool {
	return d == Date{}
}

// Compare возвращает -1, 0 или 1
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

// Before true, если d раньше other
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", ErrMalformedDate)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeWindow интервал [StartMinute, EndMinute) в пределах одного дня
type TimeWindow struct {
	Date        Date
	StartMinute int
	EndMinute   int
}

// NewTimeWindow строит окно из строк "HH:MM" и проверяет рабочие часы.
// Начало проверяется раньше конца, поэтому окно с началом после закрытия
// отклоняется как ErrOutOfHours независимо от значения конца.
func NewTimeWindow(date Date, start, end string) (TimeWindow, error) {
	startMinute, err := ParseClock(start)
	if err != nil {
		return TimeWindow{}, err
	}
	if startMinute < OperatingOpen || startMinute > OperatingClose {
		return TimeWindow{}, fmt.Errorf("start %s: %w", start, ErrOutOfHours)
	}

	endMinute, err := ParseClock(end)
	if err != nil {
		return TimeWindow{}, err
	}

	w := TimeWindow{Date: date, StartMinute: startMinute, EndMinute: endMinute}
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// Validate проверяет инварианты окна
func (w TimeWindow) Validate() error {
	if w.Date.IsZero() {
		return fmt.Errorf("window date: %w", ErrMalformedDate)
	}
	if w.StartMinute < 0 || w.EndMinute > minutesPerDay {
		return fmt.Errorf("window %s: %w", w, ErrMalformedTime)
	}
	if w.StartMinute < OperatingOpen || w.StartMinute > OperatingClose ||
		w.EndMinute < OperatingOpen || w.EndMinute > OperatingClose {
		return fmt.Errorf("window %s: %w", w, ErrOutOfHours)
	}
	if w.StartMinute >= w.EndMinute {
		return fmt.Errorf("window %s: %w", w, ErrInvertedRange)
	}
	return nil
}

// Overlaps true если окна в один день и пересекаются. Касание границ не пересечение
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	if w.Date != other.Date {
		return false
	}
	return !(w.EndMinute <= other.StartMinute || w.StartMinute >= other.EndMinute)
}

// Less упорядочивает окна по дате, затем по началу, затем по концу
func (w TimeWindow) Less(other TimeWindow) bool {
	if c := w.Date.Compare(other.Date); c != 0 {
		return c < 0
	}
	if w.StartMinute != other.StartMinute {
		return w.StartMinute < other.StartMinute
	}
	return w.EndMinute < other.EndMinute
}

// Start начало окна в формате HH:MM
func (w TimeWindow) Start() string { return FormatClock(w.StartMinute) }
func (w TimeWindow) End() string   { return FormatClock(w.EndMinute) }

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s %s-%s", w.Date, w.Start(), w.End())
}

type windowJSON struct {
	Date  Date   `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w TimeWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(windowJSON{Date: w.Date, Start: w.Start(), End: w.End()})
}

func (w *TimeWindow) UnmarshalJSON(data []byte) error {
	var raw windowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewTimeWindow(raw.Date, raw.Start, raw.End)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseClock переводит "HH:MM" в минуты от полуночи
func ParseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("time %q: %w", s, ErrMalformedTime)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock обратное к ParseClock
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
