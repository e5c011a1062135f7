package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/planbot/internal/callback"
	"github.com/Freeeeeet/planbot/internal/controller/messenger"
	"github.com/Freeeeeet/planbot/internal/metrics"
	"go.uber.org/zap"
)

// StaleText - ответ на нажатие устаревшей кнопки
const StaleText = "This request was too old"

// Outcome - итог обработки нажатия
type Outcome string

const (
	Authorized Outcome = "authorized"
	Rejected   Outcome = "rejected"
	Stale      Outcome = "stale"
	Cancelled  Outcome = "cancelled"
)

// ErrDuplicateFlow - флоу с таким именем уже зарегистрирован
var ErrDuplicateFlow = errors.New("flow already registered")

// Step - авторизованный шаг флоу
type Step struct {
	Token callback.Token
	Press messenger.Press
}

// FlowHandler обрабатывает очередной шаг флоу
type FlowHandler func(ctx context.Context, step Step) error

// ErrorReporter показывает ошибку шага пользователю
type ErrorReporter func(ctx context.Context, chatID int64, err error)

// Dispatcher проверяет нажатия и передаёт их обработчику флоу.
// Проверка вызывающего выполняется здесь и только здесь.
type Dispatcher struct {
	issuer    *callback.Issuer
	messenger messenger.Messenger
	report    ErrorReporter
	metrics   *metrics.Metrics
	logger    *zap.Logger

	mu    sync.RWMutex
	flows map[string]FlowHandler
}

func New(
	issuer *callback.Issuer,
	gateway messenger.Messenger,
	report ErrorReporter,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		issuer:    issuer,
		messenger: gateway,
		report:    report,
		metrics:   m,
		logger:    logger,
		flows:     make(map[string]FlowHandler),
	}
}

// Register связывает флоу с обработчиком
func (d *Dispatcher) Register(flow string, h FlowHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.flows[flow]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFlow, flow)
	}
	d.flows[flow] = h
	return nil
}

// Flows возвращает число зарегистрированных флоу
func (d *Dispatcher) Flows() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.flows)
}

func (d *Dispatcher) handler(flow string) (FlowHandler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.flows[flow]
	return h, ok
}

// Dispatch проводит нажатие через проверки: токен, вызывающий, партия, отмена
func (d *Dispatcher) Dispatch(ctx context.Context, press messenger.Press) (Outcome, error) {
	start := time.Now()
	outcome, err := d.dispatch(ctx, press)
	d.metrics.RecordProcessingDuration(time.Since(start))
	if outcome != "" {
		d.metrics.RecordPress(string(outcome))
	}
	return outcome, err
}

func (d *Dispatcher) dispatch(ctx context.Context, press messenger.Press) (Outcome, error) {
	logger := d.logger.With(
		zap.Int64("chat_id", press.ChatID),
		zap.Int64("user_id", press.UserID),
		zap.String("flow", callback.FlowOfData(press.Data)),
	)

	resolved, err := d.issuer.Resolve(ctx, press.Data)
	if errors.Is(err, callback.ErrDecode) {
		logger.Debug("Stale callback", zap.Error(err))
		d.delete(ctx, press, logger)
		d.answer(ctx, press, StaleText, logger)
		return Stale, nil
	}
	if err != nil {
		d.answer(ctx, press, "", logger)
		return "", fmt.Errorf("resolve callback: %w", err)
	}
	tok := resolved.Token

	// Чужой флоу: молча подтверждаем нажатие и ничего не делаем
	if tok.Caller != press.UserID {
		logger.Debug("Press by non-initiator ignored", zap.Int64("caller", tok.Caller))
		d.answer(ctx, press, "", logger)
		return Rejected, nil
	}

	first, err := d.issuer.Consume(ctx, resolved.Batch)
	if err != nil {
		d.answer(ctx, press, "", logger)
		return "", fmt.Errorf("consume callback batch: %w", err)
	}
	if !first {
		// Сообщение уже показывает следующий шаг, поэтому не удаляем его
		logger.Debug("Callback batch already used")
		d.answer(ctx, press, StaleText, logger)
		return Stale, nil
	}

	if tok.Cancel {
		d.delete(ctx, press, logger)
		d.answer(ctx, press, "", logger)
		return Cancelled, nil
	}

	h, ok := d.handler(tok.Flow)
	if !ok {
		logger.Warn("No handler for flow")
		d.delete(ctx, press, logger)
		d.answer(ctx, press, StaleText, logger)
		return Stale, nil
	}

	d.answer(ctx, press, "", logger)
	d.metrics.RecordFlowStep(tok.Flow)
	if err := h(ctx, Step{Token: tok, Press: press}); err != nil {
		d.report(ctx, press.ChatID, err)
	}
	return Authorized, nil
}

func (d *Dispatcher) answer(ctx context.Context, press messenger.Press, text string, logger *zap.Logger) {
	if err := d.messenger.AnswerPress(ctx, press, text, false); err != nil {
		logger.Warn("Failed to answer callback", zap.Error(err))
	}
}

func (d *Dispatcher) delete(ctx context.Context, press messenger.Press, logger *zap.Logger) {
	if err := d.messenger.Delete(ctx, press.Message); err != nil {
		logger.Warn("Failed to delete picker message", zap.Error(err))
	}
}
