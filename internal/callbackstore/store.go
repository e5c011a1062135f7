package callbackstore

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound - запись не найдена или истёк её TTL
var ErrNotFound = errors.New("callback entry not found or expired")

// Entry - закодированный токен и партия кнопок, к которой он относится
type Entry struct {
	Batch string `json:"b"`
	Data  []byte `json:"d"`
}

// Store хранит токены кнопок на стороне транспорта.
// В кнопку уходит только короткий ключ, сам токен живёт TTL.
type Store interface {
	// Save сохраняет токен и возвращает ключ для callback data
	Save(ctx context.Context, batch string, data []byte) (string, error)
	// Load возвращает запись по ключу или ErrNotFound
	Load(ctx context.Context, key string) (Entry, error)
	// Consume помечает партию использованной; true только для первого вызова
	Consume(ctx context.Context, batch string) (bool, error)
}

// NewKey генерирует короткий ключ (22 символа) из UUID
func NewKey() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// NewBatch генерирует идентификатор партии кнопок
func NewBatch() string {
	return uuid.NewString()
}
