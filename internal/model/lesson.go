package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DaysInWeek - количество учебных дней в плане (Пн-Пт)
const DaysInWeek = 5

// SubjectMaxLength ограничивает длину названия предмета
const SubjectMaxLength = 20

// Weekday - индекс учебного дня, 0 = понедельник, 4 = пятница
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var weekdayNames = [DaysInWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Friday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return "Unknown"
	}
	return weekdayNames[d]
}

// Short возвращает трёхбуквенное название дня
func (d Weekday) Short() string {
	if !d.Valid() {
		return "?"
	}
	return weekdayNames[d][:3]
}

// ParseWeekday принимает индекс (0-4) или английское название дня
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		d := Weekday(n)
		if !d.Valid() {
			return 0, Errorf(ErrInvalidValue, "Day must be between 0 and 4, got %d", n)
		}
		return d, nil
	}
	for i, name := range weekdayNames {
		lower := strings.ToLower(name)
		if s != "" && (s == lower || s == lower[:3]) {
			return Weekday(i), nil
		}
	}
	return 0, Errorf(ErrInvalidValue, "Unknown day %q", s)
}

// WeekdayOf переводит дату в учебный день; для выходных ok = false
func WeekdayOf(t time.Time) (Weekday, bool) {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return 0, false
	default:
		return Weekday(int(t.Weekday()) - 1), true
	}
}

// ClockTime - время суток в минутах от полуночи
type ClockTime int

// NewClockTime собирает время из часов и минут
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ClockOf возвращает время суток момента t
func ClockOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute())
}

// ParseClock разбирает время в формате HH:MM
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, Errorf(ErrInvalidValue, "Invalid time %q, expected HH:MM", s)
	}
	return NewClockTime(t.Hour(), t.Minute()), nil
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Repeat - периодичность занятия. Хранится, но во временных запросах не учитывается.
type Repeat string

const (
	RepeatAlways Repeat = "always"
	RepeatOdd    Repeat = "odd"
	RepeatEven   Repeat = "even"
)

// ParseRepeat принимает odd, even, not/always или пустую строку
func ParseRepeat(s string) (Repeat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "not", "always":
		return RepeatAlways, nil
	case "odd":
		return RepeatOdd, nil
	case "even":
		return RepeatEven, nil
	default:
		return "", Errorf(ErrInvalidValue, "Repeat must be odd, even or not, got %q", s)
	}
}

type Lesson struct {
	Subject string    `json:"subject"`
	Teacher string    `json:"teacher"`
	Room    string    `json:"room"`
	Start   ClockTime `json:"start"`
	End     ClockTime `json:"end"`
	Day     Weekday   `json:"day"`
	Type    string    `json:"type"`
	Repeat  Repeat    `json:"repeat"`
}

// Validate проверяет инварианты занятия
func (l Lesson) Validate() error {
	if strings.TrimSpace(l.Subject) == "" {
		return Errorf(ErrInvalidValue, "Subject is required")
	}
	if utf8.RuneCountInString(l.Subject) > SubjectMaxLength {
		return Errorf(ErrInvalidValue, "Subject must be at most %d characters", SubjectMaxLength)
	}
	if !l.Day.Valid() {
		return Errorf(ErrInvalidValue, "Day must be between 0 and 4")
	}
	if l.Start < 0 || l.End >= NewClockTime(24, 0) {
		return Errorf(ErrInvalidValue, "Lesson time is out of range")
	}
	if l.End <= l.Start {
		return Errorf(ErrInvalidValue, "Lesson must end after it starts")
	}
	switch l.Repeat {
	case RepeatAlways, RepeatOdd, RepeatEven:
	default:
		return Errorf(ErrInvalidValue, "Unknown repeat %q", l.Repeat)
	}
	return nil
}

// Contains сообщает, идёт ли занятие в момент c (границы включаются)
func (l Lesson) Contains(c ClockTime) bool {
	return l.Start <= c && c <= l.End
}

// Label - короткая подпись занятия для кнопок и списков
func (l Lesson) Label() string {
	return fmt.Sprintf("%s-%s %s", l.Start, l.End, l.Subject)
}
