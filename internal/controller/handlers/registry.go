package handlers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Freeeeeet/planbot/internal/metrics"
	"go.uber.org/zap"
)

// ErrDuplicateCommand - команда с таким именем уже зарегистрирована
var ErrDuplicateCommand = errors.New("command already registered")

// Command - описание текстовой команды
type Command struct {
	Name        string
	Args        string
	Description string
	AdminOnly   bool
	Hidden      bool
	Handler     HandlerFunc
}

// Registry - статическая таблица команд. Каждая команда оборачивается
// одной и той же цепочкой: WithErrorReply, Recover, IgnoreEdited, Logging, [AdminOnly].
type Registry struct {
	commands map[string]Command
	wrapped  map[string]HandlerFunc

	replier *ErrorReplier
	isAdmin func(userID int64) bool
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRegistry(replier *ErrorReplier, isAdmin func(userID int64) bool, m *metrics.Metrics, logger *zap.Logger) *Registry {
	return &Registry{
		commands: make(map[string]Command),
		wrapped:  make(map[string]HandlerFunc),
		replier:  replier,
		isAdmin:  isAdmin,
		metrics:  m,
		logger:   logger,
	}
}

// Register добавляет команду
func (r *Registry) Register(cmd Command) error {
	if cmd.Name == "" || cmd.Handler == nil {
		return fmt.Errorf("invalid command %q", cmd.Name)
	}
	if _, exists := r.commands[cmd.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd.Name)
	}

	mws := []Middleware{
		WithErrorReply(r.replier),
		Recover(r.logger),
		IgnoreEdited,
		Logging(r.logger, r.metrics),
	}
	if cmd.AdminOnly {
		mws = append(mws, AdminOnly(r.isAdmin))
	}

	r.commands[cmd.Name] = cmd
	r.wrapped[cmd.Name] = Chain(cmd.Handler, mws...)
	return nil
}

// MustRegister регистрирует команды и паникует при ошибке
func (r *Registry) MustRegister(cmds ...Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
}

// Commands возвращает видимые команды, отсортированные по имени
func (r *Registry) Commands() []Command {
	list := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		if cmd.Hidden {
			continue
		}
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Handle выполняет команду. Неизвестные команды игнорируются: в группе они могут быть адресованы другим ботам.
func (r *Registry) Handle(ctx context.Context, req *Request) bool {
	h, ok := r.wrapped[req.Command]
	if !ok {
		return false
	}
	// Ошибки уже обработаны WithErrorReply
	_ = h(ctx, req)
	return true
}
