// Package notify доставляет события о бронях во внешние каналы
package notify

import (
	"context"
	"errors"

	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/Freeeeeet/auditorium_booking/internal/service"
)

// Multi рассылает событие во все каналы. Отказ одного канала не мешает остальным
type Multi []service.Notifier

// Notify отправляет событие во все каналы и собирает ошибки
func (m Multi) Notify(ctx context.Context, event model.BookingEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
