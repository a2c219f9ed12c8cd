package repository

import "errors"

var (
	// ErrOverlap хранилище отказалось записать пересекающуюся подтверждённую бронь
	ErrOverlap = errors.New("confirmed bookings overlap")
	// ErrStatusChanged статус записи изменился между чтением и обновлением
	ErrStatusChanged = errors.New("booking status changed concurrently")
)
