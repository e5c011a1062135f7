package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/planbot/internal/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper удаляет просроченные записи и возвращает их количество
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	cron    *cron.Cron
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewScheduler(loc *time.Location, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		metrics: m,
		logger:  logger,
	}
}

// ScheduleSweep регистрирует очистку хранилища кнопок по cron-выражению spec
func (s *Scheduler) ScheduleSweep(ctx context.Context, spec string, store Sweeper) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.sweep(ctx, store)
	})
	if err != nil {
		return fmt.Errorf("schedule sweep %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) sweep(ctx context.Context, store Sweeper) {
	removed := store.Sweep(ctx)
	s.metrics.RecordTokensSwept(removed)
	if removed > 0 {
		s.logger.Debug("Callback store swept", zap.Int("removed", removed))
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start() {
	s.logger.Info("Starting background scheduler", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop останавливает планировщик и ждёт завершения текущих задач
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}
