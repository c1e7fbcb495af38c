package model

import "time"

type Course struct {
	ID        int64     `json:"id"`
	MentorID  int64     `json:"mentor_id"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
