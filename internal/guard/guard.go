// Package guard решает, может ли актор выполнить переход бронирования.
//
// Каждая допустимая комбинация перехода, роли, отношения к бронированию и статуса
// это строка одной таблицы. Всё остальное запрещено. Если для перехода у актора
// нет ни одной строки, это PermissionDenied. Если строка есть, но бронирование
// в другом статусе, это конфликт статуса.
package guard

import (
	"fmt"

	"github.com/Freeeeeet/mentorbook/internal/model"
)

// Relation отношение актора к бронированию
type Relation int

const (
	RelationNone    Relation = iota
	RelationLearner          // ученик, создавший бронирование
	RelationMentor           // ментор, которому принадлежит окно
)

func (r Relation) String() string {
	switch r {
	case RelationNone:
		return "none"
	case RelationLearner:
		return "learner"
	case RelationMentor:
		return "mentor"
	}
	return fmt.Sprintf("relation(%d)", int(r))
}

// RelationOf определяет отношение актора к бронированию
func RelationOf(actor model.Actor, learnerID, mentorID int64) Relation {
	switch {
	case actor.Role == model.RoleLearner && actor.ID == learnerID:
		return RelationLearner
	case actor.Role == model.RoleMentor && actor.ID == mentorID:
		return RelationMentor
	}
	return RelationNone
}

type Outcome int

const (
	Allow Outcome = iota
	DenyPermission
	DenyStatus
)

// Request входные данные проверки. Для create Status пустой.
type Request struct {
	Transition model.Transition
	Role       model.Role
	Relation   Relation
	Status     model.BookingStatus
}

// Decision результат проверки. Target заполнен только при разрешении.
type Decision struct {
	Outcome Outcome
	Target  model.BookingStatus
	Reason  string
}

func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Rule строка таблицы решений
type Rule struct {
	Transition model.Transition
	Role       model.Role
	Relation   Relation
	From       model.BookingStatus
	To         model.BookingStatus
}

var rules = []Rule{
	{model.TransitionCreate, model.RoleLearner, RelationNone, "", model.BookingStatusPending},
	{model.TransitionApprove, model.RoleMentor, RelationMentor, model.BookingStatusPending, model.BookingStatusScheduled},
	{model.TransitionApprove, model.RoleLearner, RelationLearner, model.BookingStatusRescheduling, model.BookingStatusScheduled},
	{model.TransitionRejectReschedule, model.RoleLearner, RelationLearner, model.BookingStatusRescheduling, model.BookingStatusCancelled},
	{model.TransitionProposeReschedule, model.RoleMentor, RelationMentor, model.BookingStatusPending, model.BookingStatusRescheduling},
	{model.TransitionComplete, model.RoleMentor, RelationMentor, model.BookingStatusScheduled, model.BookingStatusCompleted},
}

// Rules возвращает копию таблицы решений
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Check применяет таблицу решений к req
func Check(req Request) Decision {
	var permitted bool
	for _, r := range rules {
		if r.Transition != req.Transition || r.Role != req.Role || r.Relation != req.Relation {
			continue
		}
		permitted = true
		if r.From == req.Status {
			return Decision{Outcome: Allow, Target: r.To}
		}
	}

	if !permitted {
		return Decision{
			Outcome: DenyPermission,
			Reason:  fmt.Sprintf("%s (%s) may not %s this booking", req.Role, req.Relation, req.Transition),
		}
	}

	return Decision{
		Outcome: DenyStatus,
		Reason:  fmt.Sprintf("cannot %s a booking in status %s", req.Transition, req.Status),
	}
}
