package handlers

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/Freeeeeet/planbot/internal/service"
)

// FormatPlanList выводит планы чата с владельцами и составом
func FormatPlanList(entries []service.PlanEntry) string {
	var sb strings.Builder
	sb.WriteString("Plans in this chat:\n")
	for _, e := range entries {
		sb.WriteString("\n")
		sb.WriteString(e.Name)
		if e.Plan.Owner != nil {
			fmt.Fprintf(&sb, " (owner %d)", *e.Plan.Owner)
		}
		sb.WriteString("\n")
		sb.WriteString(FormatStudents(e.Plan.StudentNames()))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatStudents выводит состав плана
func FormatStudents(students []string) string {
	if len(students) == 0 {
		return model.ErrNoStudents.Error()
	}
	return "Students: " + strings.Join(students, ", ")
}

// FormatLesson - подробное описание занятия
func FormatLesson(l model.Lesson) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s-%s %s", l.Day.Short(), l.Start, l.End, l.Subject)
	if l.Room != "" {
		fmt.Fprintf(&sb, ", room %s", l.Room)
	}
	if l.Teacher != "" {
		fmt.Fprintf(&sb, ", %s", l.Teacher)
	}
	if l.Type != "" {
		fmt.Fprintf(&sb, " [%s]", l.Type)
	}
	if l.Repeat != model.RepeatAlways {
		fmt.Fprintf(&sb, " (%s weeks)", l.Repeat)
	}
	return sb.String()
}

// FormatStatus выводит текущее и следующее занятие
func FormatStatus(s service.Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan %s\n", s.PlanName)
	if s.Free() {
		sb.WriteString("Free now")
	} else {
		sb.WriteString("Now: " + FormatLesson(*s.Current))
	}
	if s.Next != nil {
		sb.WriteString("\nNext: " + FormatLesson(*s.Next))
	} else {
		sb.WriteString("\nNo more lessons today")
	}
	return sb.String()
}

// FormatWeekInfo выводит номер и чётность недели
func FormatWeekInfo(info model.WeekInfo) string {
	return fmt.Sprintf("Week %d (%s), today is %s", info.Number, info.Parity, info.Today)
}
