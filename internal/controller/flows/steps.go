package flows

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/planbot/internal/controller/dispatcher"
	"github.com/Freeeeeet/planbot/internal/controller/handlers"
	"github.com/Freeeeeet/planbot/internal/controller/picker"
	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/Freeeeeet/planbot/internal/service"
	"go.uber.org/zap"
)

// deletePlan: план -> удаление
func (f *Flows) deletePlan(ctx context.Context, s dispatcher.Step) error {
	name, err := planName(s)
	if err != nil {
		return err
	}
	if err := f.svc.DeletePlan(ctx, s.Press.ChatID, s.Press.UserID, name); err != nil {
		return err
	}
	return f.finish(ctx, s, fmt.Sprintf("Plan %q deleted", name))
}

// removeLesson: план -> день -> занятие. Список занятий строится по текущему состоянию плана.
func (f *Flows) removeLesson(ctx context.Context, s dispatcher.Step) error {
	name, err := planName(s)
	if err != nil {
		return err
	}
	day, hasDay, err := payloadDay(s)
	if err != nil {
		return err
	}
	if !hasDay {
		if _, err := f.svc.GetPlan(ctx, s.Press.ChatID, name); err != nil {
			return err
		}
		return f.next(ctx, s, fmt.Sprintf("Plan %s: choose a day", name), dayOptions(), model.DaysInWeek)
	}

	lessons, err := f.svc.Lessons(ctx, s.Press.ChatID, name, day)
	if err != nil {
		return err
	}

	rawIdx, hasIdx := s.Token.Payload.String(KeyIndex)
	if !hasIdx {
		options := make([]picker.Option, 0, len(lessons))
		for i, l := range lessons {
			options = append(options, picker.Option{
				Label:   l.Label(),
				Payload: map[string]any{KeyIndex: strconv.Itoa(i), KeyLesson: l.Label()},
			})
		}
		return f.next(ctx, s, fmt.Sprintf("Plan %s, %s: choose a lesson", name, day), options, 1)
	}

	idx, err := strconv.Atoi(rawIdx)
	if err != nil {
		return model.Errorf(model.ErrInvalidValue, "Invalid lesson index %q", rawIdx)
	}
	// Позиция могла сдвинуться, пока пикер висел в чате
	expected, _ := s.Token.Payload.String(KeyLesson)
	if idx < 0 || idx >= len(lessons) || lessons[idx].Label() != expected {
		return model.Errorf(model.ErrLessonNotFound, "Lesson %s is no longer on %s", expected, day)
	}

	removed, err := f.svc.RemoveLesson(ctx, s.Press.ChatID, s.Press.UserID, name, day, idx)
	if err != nil {
		return err
	}
	return f.finish(ctx, s, "Lesson removed: "+handlers.FormatLesson(removed))
}

// clearDay: план -> день -> очистка
func (f *Flows) clearDay(ctx context.Context, s dispatcher.Step) error {
	name, err := planName(s)
	if err != nil {
		return err
	}
	day, hasDay, err := payloadDay(s)
	if err != nil {
		return err
	}
	if !hasDay {
		// план мог исчезнуть до выбора дня
		if _, err := f.svc.GetPlan(ctx, s.Press.ChatID, name); err != nil {
			return err
		}
		return f.next(ctx, s, fmt.Sprintf("Plan %s: which day should be cleared?", name), dayOptions(), model.DaysInWeek)
	}

	if err := f.svc.ClearDay(ctx, s.Press.ChatID, s.Press.UserID, name, day); err != nil {
		return err
	}
	return f.finish(ctx, s, fmt.Sprintf("%s cleared in plan %q", day, name))
}

// clearAll: план -> очистка всех дней
func (f *Flows) clearAll(ctx context.Context, s dispatcher.Step) error {
	name, err := planName(s)
	if err != nil {
		return err
	}
	if err := f.svc.ClearAll(ctx, s.Press.ChatID, s.Press.UserID, name); err != nil {
		return err
	}
	return f.finish(ctx, s, fmt.Sprintf("All lessons removed from plan %q", name))
}

// joinPlan: план -> вступление, прежнее членство в чате снимается
func (f *Flows) joinPlan(ctx context.Context, s dispatcher.Step) error {
	name, err := planName(s)
	if err != nil {
		return err
	}
	m := service.Member{ID: s.Press.UserID, Name: s.Press.UserName}
	previous, err := f.svc.JoinPlan(ctx, s.Press.ChatID, m, name)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("%s joined plan %q", m.Name, name)
	if previous != "" {
		text += fmt.Sprintf(" and left plan %q", previous)
	}
	return f.finish(ctx, s, text)
}

// getStudents: план -> состав
func (f *Flows) getStudents(ctx context.Context, s dispatcher.Step) error {
	name, err := planName(s)
	if err != nil {
		return err
	}
	students, err := f.svc.Students(ctx, s.Press.ChatID, name)
	if err != nil {
		return err
	}
	return f.finish(ctx, s, fmt.Sprintf("Students of plan %s:\n%s", name, strings.Join(students, "\n")))
}

// getPlan: план -> картинка
func (f *Flows) getPlan(ctx context.Context, s dispatcher.Step) error {
	name, err := planName(s)
	if err != nil {
		return err
	}
	if err := f.sendPlan(ctx, s.Press.ChatID, name); err != nil {
		return err
	}
	if err := f.messenger.Delete(ctx, s.Press.Message); err != nil {
		f.logger.Warn("Failed to delete picker message", zap.Error(err))
	}
	return nil
}

// GetPlanCommand рисует план сразу, если имя указано, иначе предлагает выбрать
func (f *Flows) GetPlanCommand(ctx context.Context, req *handlers.Request) error {
	if len(req.Args) == 0 {
		return f.anyTrigger(FlowGetPlan, "Which plan should be shown?")(ctx, req)
	}
	name, err := handlers.PlanName(req.Args)
	if err != nil {
		return err
	}
	return f.sendPlan(ctx, req.ChatID, name)
}

func (f *Flows) sendPlan(ctx context.Context, chatID int64, name string) error {
	img, err := f.svc.RenderPlan(ctx, chatID, name)
	if err != nil {
		return err
	}
	_, err = f.messenger.SendPhoto(ctx, chatID, "plan.png", img, "Plan "+name)
	return err
}
