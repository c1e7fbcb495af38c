package service

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует ожидаемые нарушения бизнес-правил
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindConflict
	KindPermissionDenied
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindValidation:
		return "Validation"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error - нарушение бизнес-правила. Code - стабильный машиночитаемый тег:
// для NotFound это отсутствующая сущность, для остальных нарушенное правило.
// Любая другая ошибка сервиса считается инфраструктурной.
type Error struct {
	Kind   ErrorKind
	Code   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s(%s): %s", e.Kind, e.Code, e.Reason)
}

// Is сравнивает по виду и коду, чтобы работал errors.Is с ошибками ниже
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Коды ошибок
const (
	CodeUser    = "user"
	CodeMentor  = "mentor"
	CodeBooking = "booking"
	CodeWindow  = "window"
	CodeCourse  = "course"

	CodeAlreadyBooked     = "already_booked"
	CodeWrongStatus       = "wrong_status"
	CodeConcurrentUpdate  = "concurrent_update"
	CodeWindowOverlap     = "window_overlap"
	CodePermissionDenied  = "permission_denied"
	CodeWindowNotInFuture = "window_not_in_future"
	CodeInvalidRange      = "invalid_range"
	CodeInvalidWindow     = "invalid_window"
	CodeMentorMismatch    = "mentor_mismatch"
	CodeCourseInactive    = "course_inactive"
	CodeSessionType       = "invalid_session_type"
	CodeNotesTooLong      = "notes_too_long"
	CodeInvalidPage       = "invalid_page"
)

// Общие ошибки
var (
	ErrUserNotFound     = notFound(CodeUser, "user not found")
	ErrMentorNotFound   = notFound(CodeMentor, "mentor not found")
	ErrBookingNotFound  = notFound(CodeBooking, "booking not found")
	ErrWindowNotFound   = notFound(CodeWindow, "window not found")
	ErrCourseNotFound   = notFound(CodeCourse, "course not found")
	ErrAlreadyBooked    = conflict(CodeAlreadyBooked, "window already has an active booking")
	ErrConcurrentUpdate = conflict(CodeConcurrentUpdate, "booking was changed by another request")
	ErrWindowOverlap    = conflict(CodeWindowOverlap, "window overlaps another window of this mentor")
	ErrWindowInPast     = validation(CodeWindowNotInFuture, "window start time is not in the future")
	ErrInvalidRange     = validation(CodeInvalidRange, "range end must be after range start")
	ErrPageOutOfRange   = validation(CodeInvalidPage, "page is too large")
)

func notFound(code, reason string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Reason: reason}
}

func conflict(code, reason string) *Error {
	return &Error{Kind: KindConflict, Code: code, Reason: reason}
}

func validation(code, reason string) *Error {
	return &Error{Kind: KindValidation, Code: code, Reason: reason}
}

func permissionDenied(reason string) *Error {
	return &Error{Kind: KindPermissionDenied, Code: CodePermissionDenied, Reason: reason}
}

// KindOf возвращает вид бизнес-ошибки либо false для инфраструктурных ошибок
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
