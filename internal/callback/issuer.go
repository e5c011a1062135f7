package callback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/planbot/internal/callbackstore"
)

// MaxCallbackData - лимит Telegram на размер callback data
const MaxCallbackData = 64

const dataSeparator = ":"

// Resolved - токен, восстановленный из нажатия
type Resolved struct {
	Token Token
	Batch string
}

// Issuer выдаёт кнопкам короткие ключи и восстанавливает токены по нажатию.
// В callback data кнопки лежит "<flow>:<key>".
type Issuer struct {
	codec *Codec
	store callbackstore.Store
}

func NewIssuer(codec *Codec, store callbackstore.Store) *Issuer {
	return &Issuer{codec: codec, store: store}
}

// Issue кодирует токен, сохраняет его в партии batch и возвращает callback data
func (i *Issuer) Issue(ctx context.Context, batch string, t Token) (string, error) {
	encoded, err := i.codec.Encode(t)
	if err != nil {
		return "", err
	}
	key, err := i.store.Save(ctx, batch, encoded)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	data := t.Flow + dataSeparator + key
	if len(data) > MaxCallbackData {
		return "", fmt.Errorf("issue token: callback data of %d bytes exceeds %d", len(data), MaxCallbackData)
	}
	return data, nil
}

// Resolve восстанавливает токен. Неизвестный, просроченный или подделанный
// ключ даёт ErrDecode; ошибки самого хранилища возвращаются как есть.
func (i *Issuer) Resolve(ctx context.Context, data string) (Resolved, error) {
	flow, key, ok := strings.Cut(data, dataSeparator)
	if !ok || flow == "" || key == "" {
		return Resolved{}, fmt.Errorf("%w: malformed callback data", ErrDecode)
	}

	entry, err := i.store.Load(ctx, key)
	if errors.Is(err, callbackstore.ErrNotFound) {
		return Resolved{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve token: %w", err)
	}

	tok, err := i.codec.Decode(entry.Data)
	if err != nil {
		return Resolved{}, err
	}
	if tok.Flow != flow {
		return Resolved{}, fmt.Errorf("%w: flow mismatch", ErrDecode)
	}
	return Resolved{Token: tok, Batch: entry.Batch}, nil
}

// Consume помечает партию кнопок использованной
func (i *Issuer) Consume(ctx context.Context, batch string) (bool, error) {
	return i.store.Consume(ctx, batch)
}

// FlowOfData возвращает flow из callback data без обращения к хранилищу
func FlowOfData(data string) string {
	flow, _, _ := strings.Cut(data, dataSeparator)
	return flow
}
