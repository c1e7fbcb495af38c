package model

import "time"

type Role string

const (
	RoleMentor  Role = "mentor"
	RoleLearner Role = "learner"
)

// Valid проверяет, что роль известна
func (r Role) Valid() bool {
	switch r {
	case RoleMentor, RoleLearner:
		return true
	}
	return false
}

type User struct {
	ID             int64     `json:"id"`
	Role           Role      `json:"role"`
	DisplayName    string    `json:"display_name"`
	ContactAddress string    `json:"contact_address"` // адрес доставки уведомлений (chat id, email)
	CreatedAt      time.Time `json:"created_at"`
}

// IsMentor проверяет, публикует ли пользователь окна
func (u *User) IsMentor() bool {
	return u.Role == RoleMentor
}

// Actor вызывающий операцию пользователь, как его определил слой идентификации
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}
