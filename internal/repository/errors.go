package repository

import "errors"

var (
	// ErrWindowTaken возвращается, когда на окно уже есть активное бронирование
	ErrWindowTaken = errors.New("window already has an active booking")
	// ErrStaleBooking возвращается, когда бронирование изменили параллельно
	ErrStaleBooking = errors.New("booking was modified concurrently")
)

// activeWindowIndex имя частичного уникального индекса из миграций
const activeWindowIndex = "bookings_active_window_uq"
