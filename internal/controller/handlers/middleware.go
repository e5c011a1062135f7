package handlers

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Freeeeeet/planbot/internal/metrics"
	"github.com/Freeeeeet/planbot/internal/model"
	"go.uber.org/zap"
)

// Middleware оборачивает обработчик
type Middleware func(next HandlerFunc) HandlerFunc

// Chain применяет middleware так, что первая оказывается внешней
func Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover перехватывает панику обработчика и превращает её в ошибку
func Recover(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Panic recovered",
						zap.String("command", req.Command),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())))
					err = fmt.Errorf("panic in %s: %v", req.Command, r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// IgnoreEdited пропускает отредактированные сообщения
func IgnoreEdited(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, req *Request) error {
		if req.Edited {
			return nil
		}
		return next(ctx, req)
	}
}

// AdminOnly пропускает только администраторов
func AdminOnly(isAdmin func(userID int64) bool) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if !isAdmin(req.UserID) {
				return model.Errorf(model.ErrPlanOwnership, "This command is available to administrators only")
			}
			return next(ctx, req)
		}
	}
}

// Logging пишет строку на каждую команду и считает метрики
func Logging(logger *zap.Logger, m *metrics.Metrics) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			m.RecordCommandUsed(req.Command)

			err := next(ctx, req)

			m.RecordProcessingDuration(time.Since(start))
			logger.Debug("Command handled",
				zap.String("command", req.Command),
				zap.Int64("chat_id", req.ChatID),
				zap.Int64("user_id", req.UserID),
				zap.Duration("took", time.Since(start)),
				zap.Bool("failed", err != nil))
			return err
		}
	}
}

// WithErrorReply - внешняя граница обработки ошибок команды
func WithErrorReply(replier *ErrorReplier) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if err := next(ctx, req); err != nil {
				replier.Reply(ctx, req.ChatID, err)
			}
			return nil
		}
	}
}
