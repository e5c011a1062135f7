package callback

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrKeyExists    = errors.New("callback: payload key already set")
	ErrInvalidValue = errors.New("callback: payload value must be string or bool")
)

// Payload хранит накопленные шагами флоу значения (string или bool)
type Payload map[string]any

// Has сообщает, есть ли ключ в payload
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String возвращает строковое значение ключа
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Bool возвращает булево значение ключа, false если ключа нет
func (p Payload) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// Keys возвращает отсортированные ключи
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Payload) clone() Payload {
	c := make(Payload, len(p)+1)
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Token - адресуемое состояние многошагового флоу.
// Значение никогда не меняется на месте: каждый шаг получает новый токен.
type Token struct {
	Flow    string
	Caller  int64
	Payload Payload
	Cancel  bool
}

// New создаёт базовый токен флоу для пользователя caller
func New(flow string, caller int64) Token {
	return Token{Flow: flow, Caller: caller, Payload: make(Payload)}
}

// AddValue возвращает новый токен с ещё одним ключом payload.
// Перезапись существующего ключа запрещена.
func (t Token) AddValue(key string, value any) (Token, error) {
	if t.Payload.Has(key) {
		return Token{}, fmt.Errorf("%w: %s", ErrKeyExists, key)
	}
	switch value.(type) {
	case string, bool:
	default:
		return Token{}, fmt.Errorf("%w: %s=%T", ErrInvalidValue, key, value)
	}
	next := t
	next.Payload = t.Payload.clone()
	next.Payload[key] = value
	return next, nil
}

// Merge добавляет все значения partial, соблюдая правило AddValue
func (t Token) Merge(partial map[string]any) (Token, error) {
	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := t
	for _, k := range keys {
		var err error
		if next, err = next.AddValue(k, partial[k]); err != nil {
			return Token{}, err
		}
	}
	return next, nil
}

// WithCancel возвращает токен отмены того же флоу
func (t Token) WithCancel() Token {
	next := t
	next.Payload = t.Payload.clone()
	next.Cancel = true
	return next
}
