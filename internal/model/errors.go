package model

import (
	"errors"
	"fmt"
)

// Доменные ошибки. Текст ошибки показывается пользователю как есть.
var (
	ErrPlanNotFound      = errors.New("Plan not found")
	ErrPlanAlreadyExists = errors.New("Plan already exists")
	ErrPlanEmpty         = errors.New("Plan is empty")
	ErrInvalidPlanName   = errors.New("Invalid plan name")
	ErrLessonNotFound    = errors.New("Lesson not found")
	ErrNoLessons         = errors.New("No lessons found")
	ErrNoPlans           = errors.New("No plans found")
	ErrNoStudents        = errors.New("No students in the plan")
	ErrPlanOwnership     = errors.New("You are not the owner of this plan")
	ErrPlanTransfer      = errors.New("Plan cannot be transferred")
	ErrDoesNotBelong     = errors.New("You do not belong to any plan")
	ErrInvalidValue      = errors.New("Invalid value")
)

var domainKinds = []error{
	ErrPlanNotFound,
	ErrPlanAlreadyExists,
	ErrPlanEmpty,
	ErrInvalidPlanName,
	ErrLessonNotFound,
	ErrNoLessons,
	ErrNoPlans,
	ErrNoStudents,
	ErrPlanOwnership,
	ErrPlanTransfer,
	ErrDoesNotBelong,
	ErrInvalidValue,
}

// DomainError уточняет доменную ошибку конкретным сообщением,
// оставаясь сравнимой через errors.Is с базовым видом.
type DomainError struct {
	Kind   error
	Detail string
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Kind.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

// Errorf создаёт доменную ошибку вида kind с форматированным текстом
func Errorf(kind error, format string, args ...any) error {
	return &DomainError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsDomain сообщает, относится ли ошибка к доменной таксономии
func IsDomain(err error) bool {
	if err == nil {
		return false
	}
	for _, kind := range domainKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Message возвращает текст доменной ошибки для ответа пользователю
func Message(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Error()
	}
	for _, kind := range domainKinds {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return err.Error()
}
