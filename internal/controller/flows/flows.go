package flows

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/planbot/internal/callback"
	"github.com/Freeeeeet/planbot/internal/controller/dispatcher"
	"github.com/Freeeeeet/planbot/internal/controller/handlers"
	"github.com/Freeeeeet/planbot/internal/controller/messenger"
	"github.com/Freeeeeet/planbot/internal/controller/picker"
	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/Freeeeeet/planbot/internal/service"
	"go.uber.org/zap"
)

// Идентификаторы флоу
const (
	FlowDeletePlan   = "delete_plan"
	FlowRemoveLesson = "remove_lesson"
	FlowClearDay     = "clear_day"
	FlowClearAll     = "clear_all"
	FlowJoinPlan     = "join_plan"
	FlowGetStudents  = "get_students"
	FlowGetPlan      = "get_plan"
)

// Ключи payload
const (
	KeyPlan   = "plan_name"
	KeyDay    = "day"
	KeyIndex  = "idx"
	KeyLesson = "lesson"
)

// Flows - интерактивные команды, которые уточняют аргументы через пикеры
type Flows struct {
	svc       *service.PlanService
	issuer    *callback.Issuer
	messenger messenger.Messenger
	logger    *zap.Logger
}

func New(svc *service.PlanService, issuer *callback.Issuer, gateway messenger.Messenger, logger *zap.Logger) *Flows {
	return &Flows{
		svc:       svc,
		issuer:    issuer,
		messenger: gateway,
		logger:    logger,
	}
}

// Commands возвращает команды, запускающие флоу
func (f *Flows) Commands() []handlers.Command {
	return []handlers.Command{
		{Name: FlowDeletePlan, Description: "Delete one of your plans", Handler: f.ownedTrigger(FlowDeletePlan, "Which plan should be deleted?")},
		{Name: FlowRemoveLesson, Description: "Remove a lesson from your plan", Handler: f.ownedTrigger(FlowRemoveLesson, "Remove a lesson from which plan?")},
		{Name: FlowClearDay, Description: "Remove all lessons of one day", Handler: f.ownedTrigger(FlowClearDay, "Clear a day in which plan?")},
		{Name: FlowClearAll, Description: "Remove all lessons of a plan", Handler: f.ownedTrigger(FlowClearAll, "Which plan should be cleared?")},
		{Name: FlowJoinPlan, Description: "Join a plan as a student", Handler: f.anyTrigger(FlowJoinPlan, "Which plan do you want to join?")},
		{Name: FlowGetStudents, Description: "Show students of a plan", Handler: f.anyTrigger(FlowGetStudents, "Students of which plan?")},
		{Name: FlowGetPlan, Args: "[name]", Description: "Show a plan as an image", Handler: f.GetPlanCommand},
	}
}

// Register связывает флоу с диспетчером
func (f *Flows) Register(d *dispatcher.Dispatcher) error {
	steps := map[string]dispatcher.FlowHandler{
		FlowDeletePlan:   f.deletePlan,
		FlowRemoveLesson: f.removeLesson,
		FlowClearDay:     f.clearDay,
		FlowClearAll:     f.clearAll,
		FlowJoinPlan:     f.joinPlan,
		FlowGetStudents:  f.getStudents,
		FlowGetPlan:      f.getPlan,
	}
	for flow, h := range steps {
		if err := d.Register(flow, f.step(h)); err != nil {
			return err
		}
	}
	return nil
}

// ownedTrigger предлагает только планы, которыми вызывающий может управлять
func (f *Flows) ownedTrigger(flow, prompt string) handlers.HandlerFunc {
	return func(ctx context.Context, req *handlers.Request) error {
		names, err := f.svc.OwnedPlans(ctx, req.ChatID, req.UserID)
		if err != nil {
			return err
		}
		return f.start(ctx, req, flow, prompt, names)
	}
}

// anyTrigger предлагает все планы чата
func (f *Flows) anyTrigger(flow, prompt string) handlers.HandlerFunc {
	return func(ctx context.Context, req *handlers.Request) error {
		names, err := f.svc.PlanNames(ctx, req.ChatID)
		if err != nil {
			return err
		}
		return f.start(ctx, req, flow, prompt, names)
	}
}

func (f *Flows) start(ctx context.Context, req *handlers.Request, flow, prompt string, names []string) error {
	options := make([]picker.Option, 0, len(names))
	for _, name := range names {
		options = append(options, picker.Choice(name, KeyPlan, name))
	}

	p := picker.New(flow, req.UserID, options)
	if p.IsEmpty() {
		return model.ErrNoPlans
	}
	kb, err := p.Render(ctx, f.issuer)
	if err != nil {
		return err
	}
	_, err = f.messenger.Send(ctx, req.ChatID, prompt, kb)
	return err
}

// step показывает доменную ошибку шага в сообщении пикера
func (f *Flows) step(h dispatcher.FlowHandler) dispatcher.FlowHandler {
	return func(ctx context.Context, s dispatcher.Step) error {
		err := h(ctx, s)
		if err == nil || !model.IsDomain(err) {
			return err
		}
		return f.messenger.Edit(ctx, s.Press.Message, model.Message(err), nil)
	}
}

// next перерисовывает то же сообщение следующим пикером
func (f *Flows) next(ctx context.Context, s dispatcher.Step, text string, options []picker.Option, columns int) error {
	p := picker.NewFrom(s.Token, options).Columns(columns)
	kb, err := p.Render(ctx, f.issuer)
	if err != nil {
		return err
	}
	return f.messenger.Edit(ctx, s.Press.Message, text, kb)
}

// finish заменяет пикер итоговым сообщением
func (f *Flows) finish(ctx context.Context, s dispatcher.Step, text string) error {
	return f.messenger.Edit(ctx, s.Press.Message, text, nil)
}

func planName(s dispatcher.Step) (string, error) {
	name, ok := s.Token.Payload.String(KeyPlan)
	if !ok {
		return "", fmt.Errorf("flow %s: payload has no %s", s.Token.Flow, KeyPlan)
	}
	return name, nil
}

func payloadDay(s dispatcher.Step) (model.Weekday, bool, error) {
	raw, ok := s.Token.Payload.String(KeyDay)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || !model.Weekday(n).Valid() {
		return 0, false, model.Errorf(model.ErrInvalidValue, "Invalid day %q", raw)
	}
	return model.Weekday(n), true, nil
}

func dayOptions() []picker.Option {
	options := make([]picker.Option, 0, model.DaysInWeek)
	for d := model.Monday; d <= model.Friday; d++ {
		options = append(options, picker.Choice(d.Short(), KeyDay, strconv.Itoa(int(d))))
	}
	return options
}
