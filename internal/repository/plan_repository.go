package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/Freeeeeet/planbot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PlanRepository хранит планы в PostgreSQL (документы JSONB)
type PlanRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewPlanRepository(pool *pgxpool.Pool, logger *zap.Logger) *PlanRepository {
	return &PlanRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// GetPlans получает все планы чата
func (r *PlanRepository) GetPlans(ctx context.Context, chatID int64) (map[string]*model.Plan, error) {
	query := `
		SELECT name, data
		FROM chat_plans
		WHERE chat_id = $1
	`

	rows, err := r.Query(ctx, query, chatID)
	if err != nil {
		r.logger.Error("Failed to query plans",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return nil, fmt.Errorf("get plans: %w", err)
	}
	defer rows.Close()

	plans := make(map[string]*model.Plan)
	for rows.Next() {
		var (
			name string
			data []byte
		)
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}

		plan := model.NewPlan(nil)
		if err := json.Unmarshal(data, plan); err != nil {
			return nil, fmt.Errorf("decode plan %q: %w", name, err)
		}
		plan.Normalize()
		plans[name] = plan
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	return plans, nil
}

// PutPlans заменяет все планы чата одним снимком
func (r *PlanRepository) PutPlans(ctx context.Context, chatID int64, plans map[string]*model.Plan) error {
	return r.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chat_plans WHERE chat_id = $1`, chatID); err != nil {
			return fmt.Errorf("clear plans: %w", err)
		}

		batch := &pgx.Batch{}
		for name, plan := range plans {
			data, err := json.Marshal(plan)
			if err != nil {
				return fmt.Errorf("encode plan %q: %w", name, err)
			}
			batch.Queue(`
				INSERT INTO chat_plans (chat_id, name, data, updated_at)
				VALUES ($1, $2, $3, NOW())
			`, chatID, name, data)
		}
		if batch.Len() == 0 {
			return nil
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			r.logger.Error("Failed to store plans",
				zap.Int64("chat_id", chatID),
				zap.Int("count", batch.Len()),
				zap.Error(err))
			return fmt.Errorf("put plans: %w", err)
		}
		return nil
	})
}

// GetUserField получает поле пользователя в чате
func (r *PlanRepository) GetUserField(ctx context.Context, chatID, userID int64, key string) (string, bool, error) {
	query := `
		SELECT value
		FROM user_fields
		WHERE chat_id = $1 AND user_id = $2 AND key = $3
	`

	var value string
	err := r.QueryRow(ctx, query, chatID, userID, key).Scan(&value)
	if err != nil {
		if base.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get user field: %w", err)
	}
	return value, true, nil
}

// PutUserField сохраняет поле пользователя; пустое значение удаляет поле
func (r *PlanRepository) PutUserField(ctx context.Context, chatID, userID int64, key, value string) error {
	if value == "" {
		_, err := r.ExecAffected(ctx, `
			DELETE FROM user_fields
			WHERE chat_id = $1 AND user_id = $2 AND key = $3
		`, chatID, userID, key)
		if err != nil {
			return fmt.Errorf("delete user field: %w", err)
		}
		return nil
	}

	_, err := r.ExecAffected(ctx, `
		INSERT INTO user_fields (chat_id, user_id, key, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, user_id, key) DO UPDATE SET value = EXCLUDED.value
	`, chatID, userID, key, value)
	if err != nil {
		return fmt.Errorf("put user field: %w", err)
	}
	return nil
}

// GetClipboard получает скопированный план пользователя
func (r *PlanRepository) GetClipboard(ctx context.Context, userID int64) (*model.Plan, error) {
	var data []byte
	err := r.QueryRow(ctx, `SELECT data FROM clipboards WHERE user_id = $1`, userID).Scan(&data)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get clipboard: %w", err)
	}

	plan := model.NewPlan(nil)
	if err := json.Unmarshal(data, plan); err != nil {
		return nil, fmt.Errorf("decode clipboard: %w", err)
	}
	plan.Normalize()
	return plan, nil
}

// PutClipboard сохраняет план в буфер пользователя; nil очищает буфер
func (r *PlanRepository) PutClipboard(ctx context.Context, userID int64, plan *model.Plan) error {
	if plan == nil {
		if _, err := r.ExecAffected(ctx, `DELETE FROM clipboards WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear clipboard: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode clipboard: %w", err)
	}
	_, err = r.ExecAffected(ctx, `
		INSERT INTO clipboards (user_id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, userID, data)
	if err != nil {
		return fmt.Errorf("put clipboard: %w", err)
	}
	return nil
}
