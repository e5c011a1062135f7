package model

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// PlanNameMaxLength ограничивает длину имени плана
const PlanNameMaxLength = 32

// Admins - множество администраторов, задаётся извне
type Admins map[int64]struct{}

// NewAdmins строит множество администраторов из списка id
func NewAdmins(ids ...int64) Admins {
	admins := make(Admins, len(ids))
	for _, id := range ids {
		admins[id] = struct{}{}
	}
	return admins
}

func (a Admins) Contains(userID int64) bool {
	_, ok := a[userID]
	return ok
}

// Student - участник плана. Совпадение имён допустимо, различает ID.
type Student struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Plan - недельное расписание, привязанное к имени внутри чата
type Plan struct {
	Owner    *int64               `json:"owner,omitempty"`
	Students []Student            `json:"students"`
	Week     [DaysInWeek][]Lesson `json:"week"`
}

// NewPlan создаёт пустой план с собственными контейнерами
func NewPlan(owner *int64) *Plan {
	p := &Plan{Students: make([]Student, 0)}
	if owner != nil {
		id := *owner
		p.Owner = &id
	}
	for d := range p.Week {
		p.Week[d] = make([]Lesson, 0)
	}
	return p
}

// ValidatePlanName проверяет имя плана
func ValidatePlanName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed != name {
		return Errorf(ErrInvalidPlanName, "Invalid plan name %q", name)
	}
	if utf8.RuneCountInString(name) > PlanNameMaxLength {
		return Errorf(ErrInvalidPlanName, "Plan name must be at most %d characters", PlanNameMaxLength)
	}
	if strings.ContainsAny(name, "\n\r\t") {
		return Errorf(ErrInvalidPlanName, "Plan name must be a single line")
	}
	return nil
}

// IsOwner - владелец плана или администратор
func (p *Plan) IsOwner(userID int64, admins Admins) bool {
	if admins.Contains(userID) {
		return true
	}
	return p.Owner != nil && *p.Owner == userID
}

// IsEmpty сообщает, что все пять дней пусты
func (p *Plan) IsEmpty() bool {
	for _, lessons := range p.Week {
		if len(lessons) > 0 {
			return false
		}
	}
	return true
}

// Lessons возвращает копию занятий дня
func (p *Plan) Lessons(day Weekday) []Lesson {
	if !day.Valid() {
		return nil
	}
	out := make([]Lesson, len(p.Week[day]))
	copy(out, p.Week[day])
	return out
}

// AddLesson вставляет занятие в свой день, сохраняя сортировку по началу
func (p *Plan) AddLesson(l Lesson) error {
	if err := l.Validate(); err != nil {
		return err
	}
	lessons := append(p.Week[l.Day], l)
	sort.SliceStable(lessons, func(i, j int) bool {
		return lessons[i].Start < lessons[j].Start
	})
	p.Week[l.Day] = lessons
	return nil
}

// RemoveLesson удаляет занятие по позиции в дне
func (p *Plan) RemoveLesson(day Weekday, idx int) (Lesson, error) {
	if !day.Valid() {
		return Lesson{}, Errorf(ErrInvalidValue, "Day must be between 0 and 4")
	}
	lessons := p.Week[day]
	if idx < 0 || idx >= len(lessons) {
		return Lesson{}, Errorf(ErrLessonNotFound, "Lesson %d not found on %s", idx, day)
	}
	removed := lessons[idx]
	p.Week[day] = append(lessons[:idx:idx], lessons[idx+1:]...)
	return removed, nil
}

// ReplaceLesson заменяет занятие; при ошибке валидации план не меняется
func (p *Plan) ReplaceLesson(day Weekday, idx int, l Lesson) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if _, err := p.RemoveLesson(day, idx); err != nil {
		return err
	}
	return p.AddLesson(l)
}

func (p *Plan) ClearDay(day Weekday) error {
	if !day.Valid() {
		return Errorf(ErrInvalidValue, "Day must be between 0 and 4")
	}
	p.Week[day] = make([]Lesson, 0)
	return nil
}

func (p *Plan) ClearAll() {
	for d := range p.Week {
		p.Week[d] = make([]Lesson, 0)
	}
}

// CurrentLesson - занятие сегодняшнего дня, интервал которого содержит now
func (p *Plan) CurrentLesson(now time.Time) (Lesson, bool) {
	day, ok := WeekdayOf(now)
	if !ok {
		return Lesson{}, false
	}
	clock := ClockOf(now)
	for _, l := range p.Week[day] {
		if l.Contains(clock) {
			return l, true
		}
	}
	return Lesson{}, false
}

// NextLesson - самое раннее сегодняшнее занятие с началом позже now
func (p *Plan) NextLesson(now time.Time) (Lesson, bool) {
	day, ok := WeekdayOf(now)
	if !ok {
		return Lesson{}, false
	}
	clock := ClockOf(now)
	for _, l := range p.Week[day] {
		if l.Start > clock {
			return l, true
		}
	}
	return Lesson{}, false
}

func (p *Plan) IsFree(now time.Time) bool {
	_, busy := p.CurrentLesson(now)
	return !busy
}

func (p *Plan) HasStudent(userID int64) bool {
	for _, s := range p.Students {
		if s.ID == userID {
			return true
		}
	}
	return false
}

func (p *Plan) AddStudent(s Student) error {
	if strings.TrimSpace(s.Name) == "" {
		return Errorf(ErrInvalidValue, "Student name is required")
	}
	if p.HasStudent(s.ID) {
		return Errorf(ErrInvalidValue, "%s is already a student of this plan", s.Name)
	}
	p.Students = append(p.Students, s)
	return nil
}

func (p *Plan) RemoveStudent(userID int64) error {
	for i, s := range p.Students {
		if s.ID == userID {
			p.Students = append(p.Students[:i:i], p.Students[i+1:]...)
			return nil
		}
	}
	return Errorf(ErrDoesNotBelong, "You are not a student of this plan")
}

// StudentNames возвращает имена участников в порядке вступления
func (p *Plan) StudentNames() []string {
	names := make([]string, 0, len(p.Students))
	for _, s := range p.Students {
		names = append(names, s.Name)
	}
	return names
}

// Clone возвращает глубокую копию плана
func (p *Plan) Clone() *Plan {
	c := NewPlan(p.Owner)
	c.Students = append(c.Students, p.Students...)
	for d := range p.Week {
		c.Week[d] = append(c.Week[d], p.Week[d]...)
	}
	return c
}

// ReplaceWeek копирует занятия из src, владелец и состав не меняются
func (p *Plan) ReplaceWeek(src *Plan) {
	for d := range p.Week {
		p.Week[d] = append(make([]Lesson, 0, len(src.Week[d])), src.Week[d]...)
	}
}

// Normalize восстанавливает пустые контейнеры после декодирования
func (p *Plan) Normalize() {
	if p.Students == nil {
		p.Students = make([]Student, 0)
	}
	for d := range p.Week {
		if p.Week[d] == nil {
			p.Week[d] = make([]Lesson, 0)
		}
	}
}
