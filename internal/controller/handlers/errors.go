package handlers

import (
	"context"

	"github.com/Freeeeeet/planbot/internal/controller/messenger"
	"github.com/Freeeeeet/planbot/internal/metrics"
	"github.com/Freeeeeet/planbot/internal/model"
	"go.uber.org/zap"
)

// GenericErrorText - ответ на непредвиденную ошибку
const GenericErrorText = "Something went wrong, please try again later"

// ErrorReplier показывает ошибки пользователю. Доменные ошибки уходят в чат как есть,
// остальные логируются и заменяются общим сообщением.
type ErrorReplier struct {
	messenger messenger.Messenger
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewErrorReplier(gateway messenger.Messenger, m *metrics.Metrics, logger *zap.Logger) *ErrorReplier {
	return &ErrorReplier{messenger: gateway, metrics: m, logger: logger}
}

// Reply отправляет текст ошибки в чат
func (r *ErrorReplier) Reply(ctx context.Context, chatID int64, err error) {
	text := GenericErrorText
	if model.IsDomain(err) {
		r.metrics.RecordCommandFailed("domain")
		text = model.Message(err)
		r.logger.Debug("Domain error", zap.Int64("chat_id", chatID), zap.String("reason", text))
	} else {
		r.metrics.RecordCommandFailed("internal")
		r.logger.Error("Failed to handle update", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	if _, sendErr := r.messenger.Send(ctx, chatID, text, nil); sendErr != nil {
		r.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(sendErr))
	}
}
