package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RequesterKind роль автора заявки
type RequesterKind string

const (
	RequesterAdmin RequesterKind = "admin"
	RequesterHOD   RequesterKind = "hod"
)

// UnknownDepartment подпись, когда о кафедре ничего не известно
const UnknownDepartment = "Unknown"

// Requester уже аутентифицированный автор заявки или действия
type Requester struct {
	Kind       RequesterKind `json:"kind"`
	ID         string        `json:"id"` // идентификатор администратора или HOD
	Department Department    `json:"department"`
}

// Admin создаёт администратора с идентификатором id
func Admin(id string) Requester {
	return Requester{Kind: RequesterAdmin, ID: id}
}

// HOD создаёт заведующего кафедрой
func HOD(id string, department Department) Requester {
	return Requester{Kind: RequesterHOD, ID: id, Department: department}
}

// IsAdmin true для администратора
func (r Requester) IsAdmin() bool { return r.Kind == RequesterAdmin }

// Validate проверяет роль и идентификатор
func (r Requester) Validate() error {
	switch r.Kind {
	case RequesterAdmin, RequesterHOD:
	default:
		return fmt.Errorf("requester kind %q: %w", r.Kind, ErrInvalidDetails)
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("requester id is required: %w", ErrInvalidDetails)
	}
	return nil
}

// Department ссылка на кафедру. Внешние данные приходят то строкой,
// то объектом с полем name, поэтому храним оба представления
type Department struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`    // имя из связанного объекта
	Literal string `json:"literal,omitempty"` // строка, если пришла строка
}

// Label имя связанного объекта, иначе строка, иначе "Unknown"
func (d Department) Label() string {
	if name := strings.TrimSpace(d.Name); name != "" {
		return name
	}
	if lit := strings.TrimSpace(d.Literal); lit != "" {
		return lit
	}
	return UnknownDepartment
}

// UnmarshalJSON принимает и "CSE", и {"id": "...", "name": "CSE"}
func (d *Department) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = Department{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Department{Literal: s}
		return nil
	}

	var obj struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
		Name    string `json:"name"`
		Literal string `json:"literal"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("department: %w", err)
	}
	id := obj.ID
	if id == "" {
		id = obj.MongoID
	}
	*d = Department{ID: id, Name: obj.Name, Literal: obj.Literal}
	return nil
}

// EventTag тип мероприятия из формы
type EventTag string

const (
	EventAcademic      EventTag = "Academic"
	EventNonAcademic   EventTag = "Non-Academic"
	EventCurriculum    EventTag = "Curriculum"
	EventNonCurriculum EventTag = "Non-Curriculum"
	EventOther         EventTag = "Other"
)

var predefinedEventTags = []EventTag{EventAcademic, EventNonAcademic, EventCurriculum, EventNonCurriculum}

// EventType либо предопределённый тег, либо Other со свободным текстом
type EventType struct {
	Tag   EventTag `json:"tag"`
	Other string   `json:"other,omitempty"`
}

// PredefinedEvent тип мероприятия из предопределённого списка
func PredefinedEvent(tag EventTag) EventType { return EventType{Tag: tag} }

// OtherEvent тип Other со своим текстом
func OtherEvent(text string) EventType { return EventType{Tag: EventOther, Other: text} }

// ParseEventType как в форме заявки: выбранный тег и текст для "Other".
// Неизвестный тег трактуется как свободный текст
func ParseEventType(tag, custom string) (EventType, error) {
	tag = strings.TrimSpace(tag)
	custom = strings.TrimSpace(custom)

	if tag == "" {
		return EventType{}, fmt.Errorf("event type is required: %w", ErrInvalidDetails)
	}
	if strings.EqualFold(tag, string(EventOther)) {
		et := OtherEvent(custom)
		return et, et.Validate()
	}
	for _, t := range predefinedEventTags {
		if strings.EqualFold(tag, string(t)) {
			return PredefinedEvent(t), nil
		}
	}
	return OtherEvent(tag), nil
}

// Validate проверяет тег и текст для Other
func (e EventType) Validate() error {
	if e.Tag == EventOther {
		if strings.TrimSpace(e.Other) == "" {
			return fmt.Errorf("event type Other needs a description: %w", ErrInvalidDetails)
		}
		return nil
	}
	for _, t := range predefinedEventTags {
		if e.Tag == t {
			return nil
		}
	}
	return fmt.Errorf("event type %q: %w", e.Tag, ErrInvalidDetails)
}

// Label текст для отображения и выгрузок
func (e EventType) Label() string {
	if e.Tag == EventOther {
		return e.Other
	}
	return string(e.Tag)
}
