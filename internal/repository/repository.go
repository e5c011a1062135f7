package repository

import (
	"context"

	"github.com/Freeeeeet/planbot/internal/model"
)

// Поля пользователя внутри чата
const (
	// FieldJoinedPlan - имя плана, к которому присоединился пользователь
	FieldJoinedPlan = "joined_plan"
)

// Repository - хранилище планов по чатам.
// Отсутствие данных чата не ошибка: GetPlans возвращает пустую map.
type Repository interface {
	GetPlans(ctx context.Context, chatID int64) (map[string]*model.Plan, error)
	PutPlans(ctx context.Context, chatID int64, plans map[string]*model.Plan) error

	GetUserField(ctx context.Context, chatID, userID int64, key string) (string, bool, error)
	PutUserField(ctx context.Context, chatID, userID int64, key, value string) error

	GetClipboard(ctx context.Context, userID int64) (*model.Plan, error)
	PutClipboard(ctx context.Context, userID int64, plan *model.Plan) error
}
