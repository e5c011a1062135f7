package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/Freeeeeet/planbot/internal/repository"
	"go.uber.org/zap"
)

// Clock возвращает текущее время; подменяется в тестах
type Clock func() time.Time

// Renderer рисует план в картинку
type Renderer interface {
	Render(plan *model.Plan, title string) ([]byte, error)
}

// Member - участник чата, от имени которого выполняется операция
type Member struct {
	ID   int64
	Name string
}

// PlanEntry - план вместе с его именем в чате
type PlanEntry struct {
	Name string
	Plan *model.Plan
}

// LessonEdit - частичное изменение занятия; nil-поля не меняются
type LessonEdit struct {
	NewDay  *model.Weekday
	Subject *string
	Teacher *string
	Room    *string
	Start   *model.ClockTime
	End     *model.ClockTime
	Type    *string
	Repeat  *model.Repeat
}

// Status - состояние присоединённого плана на текущий момент
type Status struct {
	PlanName string
	Current  *model.Lesson
	Next     *model.Lesson
}

// Free сообщает, что сейчас занятия нет
func (s Status) Free() bool {
	return s.Current == nil
}

type PlanService struct {
	repo     repository.Repository
	renderer Renderer
	admins   model.Admins
	clock    Clock
	location *time.Location
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewPlanService(
	repo repository.Repository,
	renderer Renderer,
	admins model.Admins,
	location *time.Location,
	logger *zap.Logger,
) *PlanService {
	if location == nil {
		location = time.UTC
	}
	return &PlanService{
		repo:     repo,
		renderer: renderer,
		admins:   admins,
		clock:    time.Now,
		location: location,
		logger:   logger,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// WithClock подменяет источник времени
func (s *PlanService) WithClock(clock Clock) *PlanService {
	s.clock = clock
	return s
}

// IsAdmin проверяет, входит ли пользователь в список администраторов
func (s *PlanService) IsAdmin(userID int64) bool {
	return s.admins.Contains(userID)
}

// Now возвращает текущее время в часовом поясе бота
func (s *PlanService) Now() time.Time {
	return s.clock().In(s.location)
}

// chatLock возвращает мьютекс чата; все изменения планов чата идут под ним
func (s *PlanService) chatLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[chatID] = lock
	}
	return lock
}

// mutate читает планы чата, применяет fn и сохраняет результат, если fn не вернула ошибку
func (s *PlanService) mutate(ctx context.Context, chatID int64, fn func(plans map[string]*model.Plan) error) error {
	lock := s.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	plans, err := s.repo.GetPlans(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load plans: %w", err)
	}
	if err := fn(plans); err != nil {
		return err
	}
	if err := s.repo.PutPlans(ctx, chatID, plans); err != nil {
		return fmt.Errorf("store plans: %w", err)
	}
	return nil
}

func (s *PlanService) load(ctx context.Context, chatID int64) (map[string]*model.Plan, error) {
	plans, err := s.repo.GetPlans(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load plans: %w", err)
	}
	return plans, nil
}

func findPlan(plans map[string]*model.Plan, name string) (*model.Plan, error) {
	plan, ok := plans[name]
	if !ok {
		return nil, model.Errorf(model.ErrPlanNotFound, "Plan %q not found", name)
	}
	return plan, nil
}

func (s *PlanService) ownedPlan(plans map[string]*model.Plan, name string, userID int64) (*model.Plan, error) {
	plan, err := findPlan(plans, name)
	if err != nil {
		return nil, err
	}
	if !plan.IsOwner(userID, s.admins) {
		return nil, model.Errorf(model.ErrPlanOwnership, "You are not the owner of plan %q", name)
	}
	return plan, nil
}

// CreatePlan создаёт пустой план, владельцем становится вызывающий
func (s *PlanService) CreatePlan(ctx context.Context, chatID, userID int64, name string) error {
	if err := model.ValidatePlanName(name); err != nil {
		return err
	}

	err := s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		if _, exists := plans[name]; exists {
			return model.Errorf(model.ErrPlanAlreadyExists, "Plan %q already exists", name)
		}
		plans[name] = model.NewPlan(&userID)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Plan created",
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
		zap.String("plan", name))
	return nil
}

// DeletePlan удаляет план; доступно владельцу и администраторам
func (s *PlanService) DeletePlan(ctx context.Context, chatID, userID int64, name string) error {
	err := s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		if _, err := s.ownedPlan(plans, name, userID); err != nil {
			return err
		}
		delete(plans, name)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Plan deleted",
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
		zap.String("plan", name))
	return nil
}

// DeleteAll удаляет все планы чата; только для администраторов
func (s *PlanService) DeleteAll(ctx context.Context, chatID, userID int64) (int, error) {
	if !s.IsAdmin(userID) {
		return 0, model.Errorf(model.ErrPlanOwnership, "Only administrators can delete all plans")
	}

	var deleted int
	err := s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		if len(plans) == 0 {
			return model.ErrNoPlans
		}
		deleted = len(plans)
		for name := range plans {
			delete(plans, name)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Warn("All plans deleted",
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
		zap.Int("count", deleted))
	return deleted, nil
}

// GetPlan возвращает копию плана
func (s *PlanService) GetPlan(ctx context.Context, chatID int64, name string) (*model.Plan, error) {
	plans, err := s.load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return findPlan(plans, name)
}

// ListPlans возвращает планы чата, отсортированные по имени
func (s *PlanService) ListPlans(ctx context.Context, chatID int64) ([]PlanEntry, error) {
	plans, err := s.load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, model.ErrNoPlans
	}

	entries := make([]PlanEntry, 0, len(plans))
	for name, plan := range plans {
		entries = append(entries, PlanEntry{Name: name, Plan: plan})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// PlanNames возвращает имена всех планов чата
func (s *PlanService) PlanNames(ctx context.Context, chatID int64) ([]string, error) {
	return s.planNames(ctx, chatID, func(*model.Plan) bool { return true })
}

// OwnedPlans возвращает имена планов, которыми пользователь может управлять
func (s *PlanService) OwnedPlans(ctx context.Context, chatID, userID int64) ([]string, error) {
	return s.planNames(ctx, chatID, func(p *model.Plan) bool {
		return p.IsOwner(userID, s.admins)
	})
}

func (s *PlanService) planNames(ctx context.Context, chatID int64, keep func(*model.Plan) bool) ([]string, error) {
	plans, err := s.load(ctx, chatID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(plans))
	for name, plan := range plans {
		if keep(plan) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// AddLesson добавляет занятие в план
func (s *PlanService) AddLesson(ctx context.Context, chatID, userID int64, planName string, lesson model.Lesson) error {
	return s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		plan, err := s.ownedPlan(plans, planName, userID)
		if err != nil {
			return err
		}
		return plan.AddLesson(lesson)
	})
}

// Lessons возвращает текущие занятия дня; пустой день даёт ErrNoLessons
func (s *PlanService) Lessons(ctx context.Context, chatID int64, planName string, day model.Weekday) ([]model.Lesson, error) {
	if !day.Valid() {
		return nil, model.Errorf(model.ErrInvalidValue, "Day must be between 0 and 4")
	}
	plan, err := s.GetPlan(ctx, chatID, planName)
	if err != nil {
		return nil, err
	}
	lessons := plan.Lessons(day)
	if len(lessons) == 0 {
		return nil, model.Errorf(model.ErrNoLessons, "No lessons found on %s", day)
	}
	return lessons, nil
}

// RemoveLesson удаляет занятие по позиции в дне
func (s *PlanService) RemoveLesson(ctx context.Context, chatID, userID int64, planName string, day model.Weekday, idx int) (model.Lesson, error) {
	var removed model.Lesson
	err := s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		plan, err := s.ownedPlan(plans, planName, userID)
		if err != nil {
			return err
		}
		removed, err = plan.RemoveLesson(day, idx)
		return err
	})
	return removed, err
}

// EditLesson изменяет поля занятия и при необходимости переносит его на другой день
func (s *PlanService) EditLesson(ctx context.Context, chatID, userID int64, planName string, day model.Weekday, idx int, edit LessonEdit) (model.Lesson, error) {
	var edited model.Lesson
	err := s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		plan, err := s.ownedPlan(plans, planName, userID)
		if err != nil {
			return err
		}
		if !day.Valid() {
			return model.Errorf(model.ErrInvalidValue, "Day must be between 0 and 4")
		}
		lessons := plan.Lessons(day)
		if idx < 0 || idx >= len(lessons) {
			return model.Errorf(model.ErrLessonNotFound, "Lesson %d not found on %s", idx, day)
		}

		edited = edit.apply(lessons[idx])
		return plan.ReplaceLesson(day, idx, edited)
	})
	return edited, err
}

func (e LessonEdit) apply(l model.Lesson) model.Lesson {
	if e.NewDay != nil {
		l.Day = *e.NewDay
	}
	if e.Subject != nil {
		l.Subject = *e.Subject
	}
	if e.Teacher != nil {
		l.Teacher = *e.Teacher
	}
	if e.Room != nil {
		l.Room = *e.Room
	}
	if e.Start != nil {
		l.Start = *e.Start
	}
	if e.End != nil {
		l.End = *e.End
	}
	if e.Type != nil {
		l.Type = *e.Type
	}
	if e.Repeat != nil {
		l.Repeat = *e.Repeat
	}
	return l
}

// ClearDay удаляет все занятия дня
func (s *PlanService) ClearDay(ctx context.Context, chatID, userID int64, planName string, day model.Weekday) error {
	return s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		plan, err := s.ownedPlan(plans, planName, userID)
		if err != nil {
			return err
		}
		return plan.ClearDay(day)
	})
}

// ClearAll удаляет все занятия плана
func (s *PlanService) ClearAll(ctx context.Context, chatID, userID int64, planName string) error {
	return s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		plan, err := s.ownedPlan(plans, planName, userID)
		if err != nil {
			return err
		}
		plan.ClearAll()
		return nil
	})
}

// RenamePlan переносит план под новое имя
func (s *PlanService) RenamePlan(ctx context.Context, chatID, userID int64, oldName, newName string) error {
	if err := model.ValidatePlanName(newName); err != nil {
		return err
	}

	err := s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		plan, err := s.ownedPlan(plans, oldName, userID)
		if err != nil {
			return err
		}
		if _, exists := plans[newName]; exists {
			return model.Errorf(model.ErrPlanAlreadyExists, "Plan %q already exists", newName)
		}
		delete(plans, oldName)
		plans[newName] = plan
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Plan renamed",
		zap.Int64("chat_id", chatID),
		zap.String("old_name", oldName),
		zap.String("new_name", newName))
	return nil
}

// TransferOwnership передаёт план другому пользователю
func (s *PlanService) TransferOwnership(ctx context.Context, chatID, userID int64, planName string, newOwner int64) error {
	return s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		plan, err := s.ownedPlan(plans, planName, userID)
		if err != nil {
			return err
		}
		if plan.Owner != nil && *plan.Owner == newOwner {
			return model.Errorf(model.ErrPlanTransfer, "Plan %q already belongs to %d", planName, newOwner)
		}
		owner := newOwner
		plan.Owner = &owner
		return nil
	})
}

// JoinPlan записывает участника в план. Прежнее членство в другом плане чата снимается.
// Возвращает имя плана, из которого участник был удалён, либо пустую строку.
func (s *PlanService) JoinPlan(ctx context.Context, chatID int64, member Member, planName string) (string, error) {
	var previous string
	err := s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		target, err := findPlan(plans, planName)
		if err != nil {
			return err
		}
		if target.HasStudent(member.ID) {
			return model.Errorf(model.ErrInvalidValue, "You are already a student of plan %q", planName)
		}

		for name, plan := range plans {
			if name != planName && plan.HasStudent(member.ID) {
				if err := plan.RemoveStudent(member.ID); err != nil {
					return err
				}
				previous = name
			}
		}
		return target.AddStudent(model.Student{ID: member.ID, Name: member.Name})
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.PutUserField(ctx, chatID, member.ID, repository.FieldJoinedPlan, planName); err != nil {
		return "", fmt.Errorf("store joined plan: %w", err)
	}
	return previous, nil
}

// LeavePlan удаляет участника из плана, к которому он присоединился
func (s *PlanService) LeavePlan(ctx context.Context, chatID int64, member Member) (string, error) {
	var left string
	err := s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		name, plan, err := s.joined(ctx, chatID, member, plans)
		if err != nil {
			return err
		}
		left = name
		return plan.RemoveStudent(member.ID)
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.PutUserField(ctx, chatID, member.ID, repository.FieldJoinedPlan, ""); err != nil {
		return "", fmt.Errorf("clear joined plan: %w", err)
	}
	return left, nil
}

// JoinedPlan возвращает план, в составе которого находится участник
func (s *PlanService) JoinedPlan(ctx context.Context, chatID int64, member Member) (string, *model.Plan, error) {
	plans, err := s.load(ctx, chatID)
	if err != nil {
		return "", nil, err
	}
	return s.joined(ctx, chatID, member, plans)
}

// joined сначала проверяет сохранённое имя плана, затем ищет участника по составам:
// план мог быть переименован или удалён
func (s *PlanService) joined(ctx context.Context, chatID int64, member Member, plans map[string]*model.Plan) (string, *model.Plan, error) {
	hint, ok, err := s.repo.GetUserField(ctx, chatID, member.ID, repository.FieldJoinedPlan)
	if err != nil {
		return "", nil, fmt.Errorf("load joined plan: %w", err)
	}
	if ok {
		if plan, exists := plans[hint]; exists && plan.HasStudent(member.ID) {
			return hint, plan, nil
		}
	}

	names := make([]string, 0, len(plans))
	for name := range plans {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if plans[name].HasStudent(member.ID) {
			return name, plans[name], nil
		}
	}
	return "", nil, model.ErrDoesNotBelong
}

// Students возвращает состав плана
func (s *PlanService) Students(ctx context.Context, chatID int64, planName string) ([]string, error) {
	plan, err := s.GetPlan(ctx, chatID, planName)
	if err != nil {
		return nil, err
	}
	if len(plan.Students) == 0 {
		return nil, model.ErrNoStudents
	}
	return plan.StudentNames(), nil
}

// CopyPlan кладёт копию плана в буфер пользователя
func (s *PlanService) CopyPlan(ctx context.Context, chatID, userID int64, planName string) error {
	plan, err := s.GetPlan(ctx, chatID, planName)
	if err != nil {
		return err
	}
	if plan.IsEmpty() {
		return model.Errorf(model.ErrPlanEmpty, "Plan %q is empty", planName)
	}
	if err := s.repo.PutClipboard(ctx, userID, plan); err != nil {
		return fmt.Errorf("store clipboard: %w", err)
	}
	return nil
}

// PastePlan заменяет занятия плана содержимым буфера
func (s *PlanService) PastePlan(ctx context.Context, chatID, userID int64, planName string) error {
	copied, err := s.repo.GetClipboard(ctx, userID)
	if err != nil {
		return fmt.Errorf("load clipboard: %w", err)
	}
	if copied == nil {
		return model.Errorf(model.ErrInvalidValue, "Nothing to paste, copy a plan first")
	}

	return s.mutate(ctx, chatID, func(plans map[string]*model.Plan) error {
		plan, err := s.ownedPlan(plans, planName, userID)
		if err != nil {
			return err
		}
		plan.ReplaceWeek(copied)
		return nil
	})
}

// RenderPlan рисует план; пустой план не рисуется
func (s *PlanService) RenderPlan(ctx context.Context, chatID int64, planName string) ([]byte, error) {
	plan, err := s.GetPlan(ctx, chatID, planName)
	if err != nil {
		return nil, err
	}
	if plan.IsEmpty() {
		return nil, model.Errorf(model.ErrPlanEmpty, "Plan %q is empty", planName)
	}

	img, err := s.renderer.Render(plan, planName)
	if err != nil {
		return nil, fmt.Errorf("render plan: %w", err)
	}
	return img, nil
}

// Status возвращает текущее и следующее занятие присоединённого плана
func (s *PlanService) Status(ctx context.Context, chatID int64, member Member) (Status, error) {
	name, plan, err := s.JoinedPlan(ctx, chatID, member)
	if err != nil {
		return Status{}, err
	}

	now := s.Now()
	status := Status{PlanName: name}
	if current, ok := plan.CurrentLesson(now); ok {
		status.Current = &current
	}
	if next, ok := plan.NextLesson(now); ok {
		status.Next = &next
	}
	return status, nil
}

// WeekInfo возвращает сведения о текущей неделе
func (s *PlanService) WeekInfo() model.WeekInfo {
	return model.WeekInfoAt(s.Now())
}
