package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/planbot/internal/controller/messenger"
	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/Freeeeeet/planbot/internal/service"
	"go.uber.org/zap"
)

// Commands - неинтерактивные команды: все аргументы приходят в тексте команды
type Commands struct {
	svc       *service.PlanService
	messenger messenger.Messenger
	registry  *Registry
	logger    *zap.Logger
}

func NewCommands(svc *service.PlanService, gateway messenger.Messenger, registry *Registry, logger *zap.Logger) *Commands {
	return &Commands{
		svc:       svc,
		messenger: gateway,
		registry:  registry,
		logger:    logger,
	}
}

// List возвращает таблицу команд для регистрации
func (c *Commands) List() []Command {
	return []Command{
		{Name: "start", Description: "Start working with the bot", Hidden: true, Handler: c.Help},
		{Name: "help", Description: "Show available commands", Handler: c.Help},
		{Name: "create_plan", Args: "<name>", Description: "Create a new plan", Handler: c.CreatePlan},
		{Name: "get_plans", Description: "List plans of this chat", Handler: c.GetPlans},
		{Name: "delete_all", Description: "Delete every plan in this chat", AdminOnly: true, Hidden: true, Handler: c.DeleteAll},
		{
			Name:        "add_lesson",
			Args:        "<plan> day=d subject=s teacher=t room=r start=hh:mm end=hh:mm type=t [repeat=odd|even|not]",
			Description: "Add a lesson",
			Handler:     c.AddLesson,
		},
		{
			Name:        "edit_lesson",
			Args:        "<plan> idx=i day=d [new_day=d] [subject=s] [teacher=t] [room=r] [start=hh:mm] [end=hh:mm] [type=t] [repeat=r]",
			Description: "Edit a lesson",
			Handler:     c.EditLesson,
		},
		{Name: "edit_plan", Args: "<plan> new_name=n", Description: "Rename a plan", Handler: c.EditPlan},
		{Name: "transfer_plan_ownership", Args: "<plan> new_owner=id", Description: "Give a plan to another user", Handler: c.TransferOwnership},
		{Name: "copy_plan", Args: "<plan>", Description: "Copy lessons of a plan", Handler: c.CopyPlan},
		{Name: "paste_plan", Args: "<plan>", Description: "Replace lessons of a plan with the copied ones", Handler: c.PastePlan},
		{Name: "leave_plan", Description: "Leave the plan you joined", Handler: c.LeavePlan},
		{Name: "now", Description: "Current and next lesson of your plan", Handler: c.Now},
		{Name: "next", Description: "Next lesson of your plan today", Handler: c.Next},
		{Name: "week_info", Description: "Week number and parity", Handler: c.WeekInfo},
	}
}

func member(req *Request) service.Member {
	return service.Member{ID: req.UserID, Name: req.UserName}
}

func (c *Commands) reply(ctx context.Context, req *Request, text string) error {
	_, err := c.messenger.Send(ctx, req.ChatID, text, nil)
	return err
}

// Help выводит список команд
func (c *Commands) Help(ctx context.Context, req *Request) error {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, cmd := range c.registry.Commands() {
		sb.WriteString("\n/" + cmd.Name)
		if cmd.Args != "" {
			sb.WriteString(" " + cmd.Args)
		}
		sb.WriteString(" - " + cmd.Description)
	}
	return c.reply(ctx, req, sb.String())
}

func (c *Commands) CreatePlan(ctx context.Context, req *Request) error {
	name, err := PlanName(req.Args)
	if err != nil {
		return err
	}
	if err := c.svc.CreatePlan(ctx, req.ChatID, req.UserID, name); err != nil {
		return err
	}
	return c.reply(ctx, req, fmt.Sprintf("Plan %q created", name))
}

func (c *Commands) GetPlans(ctx context.Context, req *Request) error {
	entries, err := c.svc.ListPlans(ctx, req.ChatID)
	if err != nil {
		return err
	}
	return c.reply(ctx, req, FormatPlanList(entries))
}

func (c *Commands) DeleteAll(ctx context.Context, req *Request) error {
	deleted, err := c.svc.DeleteAll(ctx, req.ChatID, req.UserID)
	if err != nil {
		return err
	}
	return c.reply(ctx, req, fmt.Sprintf("Deleted %d plans", deleted))
}

var lessonOptions = []string{"day", "subject", "teacher", "room", "start", "end", "type", "repeat"}

func (c *Commands) AddLesson(ctx context.Context, req *Request) error {
	positional, opts, err := SplitOptions(req.Args)
	if err != nil {
		return err
	}
	name, err := PlanName(positional)
	if err != nil {
		return err
	}
	if err := opts.Allow(lessonOptions...); err != nil {
		return err
	}

	lesson, err := parseLesson(opts)
	if err != nil {
		return err
	}
	if err := c.svc.AddLesson(ctx, req.ChatID, req.UserID, name, lesson); err != nil {
		return err
	}
	return c.reply(ctx, req, "Lesson added: "+FormatLesson(lesson))
}

func parseLesson(opts Options) (model.Lesson, error) {
	var (
		l   model.Lesson
		err error
	)
	if l.Day, err = opts.Day("day"); err != nil {
		return l, err
	}
	if l.Start, err = opts.Clock("start"); err != nil {
		return l, err
	}
	if l.End, err = opts.Clock("end"); err != nil {
		return l, err
	}
	if l.Subject, err = opts.Require("subject"); err != nil {
		return l, err
	}
	if l.Teacher, err = opts.Require("teacher"); err != nil {
		return l, err
	}
	if l.Room, err = opts.Require("room"); err != nil {
		return l, err
	}
	if l.Type, err = opts.Require("type"); err != nil {
		return l, err
	}
	if l.Repeat, err = model.ParseRepeat(opts["repeat"]); err != nil {
		return l, err
	}
	return l, l.Validate()
}

func (c *Commands) EditLesson(ctx context.Context, req *Request) error {
	positional, opts, err := SplitOptions(req.Args)
	if err != nil {
		return err
	}
	name, err := PlanName(positional)
	if err != nil {
		return err
	}
	if err := opts.Allow(append([]string{"idx", "new_day"}, lessonOptions...)...); err != nil {
		return err
	}

	day, err := opts.Day("day")
	if err != nil {
		return err
	}
	idx, err := opts.Int("idx")
	if err != nil {
		return err
	}
	edit, err := parseLessonEdit(opts)
	if err != nil {
		return err
	}

	lesson, err := c.svc.EditLesson(ctx, req.ChatID, req.UserID, name, day, int(idx), edit)
	if err != nil {
		return err
	}
	return c.reply(ctx, req, "Lesson updated: "+FormatLesson(lesson))
}

func parseLessonEdit(opts Options) (service.LessonEdit, error) {
	var edit service.LessonEdit
	changed := false

	if _, ok := opts["new_day"]; ok {
		d, err := opts.Day("new_day")
		if err != nil {
			return edit, err
		}
		edit.NewDay, changed = &d, true
	}
	for key, dst := range map[string]**string{
		"subject": &edit.Subject,
		"teacher": &edit.Teacher,
		"room":    &edit.Room,
		"type":    &edit.Type,
	} {
		if v, ok := opts[key]; ok {
			value := v
			*dst, changed = &value, true
		}
	}
	for key, dst := range map[string]**model.ClockTime{
		"start": &edit.Start,
		"end":   &edit.End,
	} {
		if _, ok := opts[key]; ok {
			t, err := opts.Clock(key)
			if err != nil {
				return edit, err
			}
			*dst, changed = &t, true
		}
	}
	if v, ok := opts["repeat"]; ok {
		r, err := model.ParseRepeat(v)
		if err != nil {
			return edit, err
		}
		edit.Repeat, changed = &r, true
	}

	if !changed {
		return edit, model.Errorf(model.ErrInvalidValue, "Nothing to change")
	}
	return edit, nil
}

func (c *Commands) EditPlan(ctx context.Context, req *Request) error {
	positional, opts, err := SplitOptions(req.Args)
	if err != nil {
		return err
	}
	name, err := PlanName(positional)
	if err != nil {
		return err
	}
	if err := opts.Allow("new_name"); err != nil {
		return err
	}
	newName, err := opts.Require("new_name")
	if err != nil {
		return err
	}

	if err := c.svc.RenamePlan(ctx, req.ChatID, req.UserID, name, newName); err != nil {
		return err
	}
	return c.reply(ctx, req, fmt.Sprintf("Plan %q renamed to %q", name, newName))
}

func (c *Commands) TransferOwnership(ctx context.Context, req *Request) error {
	positional, opts, err := SplitOptions(req.Args)
	if err != nil {
		return err
	}
	name, err := PlanName(positional)
	if err != nil {
		return err
	}
	if err := opts.Allow("new_owner"); err != nil {
		return err
	}
	newOwner, err := opts.Int("new_owner")
	if err != nil {
		return err
	}

	if err := c.svc.TransferOwnership(ctx, req.ChatID, req.UserID, name, newOwner); err != nil {
		return err
	}
	return c.reply(ctx, req, fmt.Sprintf("Plan %q now belongs to %d", name, newOwner))
}

func (c *Commands) CopyPlan(ctx context.Context, req *Request) error {
	name, err := PlanName(req.Args)
	if err != nil {
		return err
	}
	if err := c.svc.CopyPlan(ctx, req.ChatID, req.UserID, name); err != nil {
		return err
	}
	return c.reply(ctx, req, fmt.Sprintf("Plan %q copied, use /paste_plan to apply it", name))
}

func (c *Commands) PastePlan(ctx context.Context, req *Request) error {
	name, err := PlanName(req.Args)
	if err != nil {
		return err
	}
	if err := c.svc.PastePlan(ctx, req.ChatID, req.UserID, name); err != nil {
		return err
	}
	return c.reply(ctx, req, fmt.Sprintf("Lessons pasted into plan %q", name))
}

func (c *Commands) LeavePlan(ctx context.Context, req *Request) error {
	name, err := c.svc.LeavePlan(ctx, req.ChatID, member(req))
	if err != nil {
		return err
	}
	return c.reply(ctx, req, fmt.Sprintf("You left plan %q", name))
}

func (c *Commands) Now(ctx context.Context, req *Request) error {
	status, err := c.svc.Status(ctx, req.ChatID, member(req))
	if err != nil {
		return err
	}
	return c.reply(ctx, req, FormatStatus(status))
}

func (c *Commands) Next(ctx context.Context, req *Request) error {
	status, err := c.svc.Status(ctx, req.ChatID, member(req))
	if err != nil {
		return err
	}
	if status.Next == nil {
		return c.reply(ctx, req, "No more lessons today")
	}
	return c.reply(ctx, req, "Next: "+FormatLesson(*status.Next))
}

func (c *Commands) WeekInfo(ctx context.Context, req *Request) error {
	return c.reply(ctx, req, FormatWeekInfo(c.svc.WeekInfo()))
}
