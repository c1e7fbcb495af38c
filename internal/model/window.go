package model

import "time"

// Window окно доступности, опубликованное ментором
type Window struct {
	ID        int64     `json:"id"`
	MentorID  int64     `json:"mentor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// StartsAfter проверяет, что окно начинается строго после t
func (w *Window) StartsAfter(t time.Time) bool {
	return w.StartTime.After(t)
}

// Intersects проверяет пересечение отрезков [StartTime, EndTime] и [from, to]
func (w *Window) Intersects(from, to time.Time) bool {
	return !w.StartTime.After(to) && !w.EndTime.Before(from)
}

// Overlaps проверяет, что окна пересекаются по времени. Соприкосновение концами не считается
func (w *Window) Overlaps(start, end time.Time) bool {
	return w.StartTime.Before(end) && start.Before(w.EndTime)
}

// OpenWindow свободное окно из каталога доступности
type OpenWindow struct {
	WindowID  int64     `json:"window_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
