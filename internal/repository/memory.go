package repository

import (
	"context"
	"sync"

	"github.com/Freeeeeet/planbot/internal/model"
)

type userFieldKey struct {
	chatID int64
	userID int64
	key    string
}

// MemoryRepository хранит планы в памяти процесса.
// Наружу всегда отдаются копии, чтобы вызывающий не менял хранилище напрямую.
type MemoryRepository struct {
	mu         sync.RWMutex
	plans      map[int64]map[string]*model.Plan // chatID -> name -> plan
	userFields map[userFieldKey]string
	clipboards map[int64]*model.Plan
}

// NewMemoryRepository создаёт пустое хранилище
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		plans:      make(map[int64]map[string]*model.Plan),
		userFields: make(map[userFieldKey]string),
		clipboards: make(map[int64]*model.Plan),
	}
}

func (r *MemoryRepository) GetPlans(_ context.Context, chatID int64) (map[string]*model.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.plans[chatID]
	out := make(map[string]*model.Plan, len(stored))
	for name, plan := range stored {
		out[name] = plan.Clone()
	}
	return out, nil
}

func (r *MemoryRepository) PutPlans(_ context.Context, chatID int64, plans map[string]*model.Plan) error {
	snapshot := make(map[string]*model.Plan, len(plans))
	for name, plan := range plans {
		snapshot[name] = plan.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(snapshot) == 0 {
		delete(r.plans, chatID)
		return nil
	}
	r.plans[chatID] = snapshot
	return nil
}

func (r *MemoryRepository) GetUserField(_ context.Context, chatID, userID int64, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.userFields[userFieldKey{chatID, userID, key}]
	return value, ok, nil
}

func (r *MemoryRepository) PutUserField(_ context.Context, chatID, userID int64, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := userFieldKey{chatID, userID, key}
	if value == "" {
		delete(r.userFields, k)
		return nil
	}
	r.userFields[k] = value
	return nil
}

func (r *MemoryRepository) GetClipboard(_ context.Context, userID int64) (*model.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plan, ok := r.clipboards[userID]
	if !ok {
		return nil, nil
	}
	return plan.Clone(), nil
}

func (r *MemoryRepository) PutClipboard(_ context.Context, userID int64, plan *model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if plan == nil {
		delete(r.clipboards, userID)
		return nil
	}
	r.clipboards[userID] = plan.Clone()
	return nil
}
