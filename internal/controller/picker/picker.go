package picker

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/planbot/internal/callback"
	"github.com/Freeeeeet/planbot/internal/callbackstore"
	"github.com/Freeeeeet/planbot/internal/controller/keyboard"
	"github.com/Freeeeeet/planbot/internal/controller/messenger"
)

// DefaultColumns - ширина сетки по умолчанию
const DefaultColumns = 2

// Option - вариант выбора: подпись кнопки и значения, которые она добавит в payload
type Option struct {
	Label   string
	Payload map[string]any
}

// Choice - вариант со строковым значением под ключом key
func Choice(label, key, value string) Option {
	return Option{Label: label, Payload: map[string]any{key: value}}
}

// Picker строит сетку кнопок, каждая из которых несёт свой токен
type Picker struct {
	base    callback.Token
	options []Option
	columns int
}

// New создаёт пикер для первого шага флоу
func New(flow string, caller int64, options []Option) *Picker {
	return NewFrom(callback.New(flow, caller), options)
}

// NewFrom создаёт пикер следующего шага поверх уже накопленного токена
func NewFrom(base callback.Token, options []Option) *Picker {
	base.Cancel = false
	return &Picker{base: base, options: options, columns: DefaultColumns}
}

// Columns задаёт ширину сетки
func (p *Picker) Columns(n int) *Picker {
	if n > 0 {
		p.columns = n
	}
	return p
}

// IsEmpty сообщает, что выбирать не из чего
func (p *Picker) IsEmpty() bool {
	return len(p.options) == 0
}

// Tokens возвращает токены кнопок в порядке вариантов
func (p *Picker) Tokens() ([]callback.Token, error) {
	tokens := make([]callback.Token, 0, len(p.options))
	for _, opt := range p.options {
		tok, err := p.base.Merge(opt.Payload)
		if err != nil {
			return nil, fmt.Errorf("picker option %q: %w", opt.Label, err)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// CancelToken - токен универсальной кнопки отмены
func (p *Picker) CancelToken() callback.Token {
	return p.base.WithCancel()
}

// Render выпускает токены одной партией и собирает клавиатуру с кнопкой отмены
func (p *Picker) Render(ctx context.Context, issuer *callback.Issuer) (messenger.Keyboard, error) {
	tokens, err := p.Tokens()
	if err != nil {
		return nil, err
	}

	batch := callbackstore.NewBatch()
	buttons := make([]messenger.Button, 0, len(tokens))
	for i, tok := range tokens {
		data, err := issuer.Issue(ctx, batch, tok)
		if err != nil {
			return nil, err
		}
		buttons = append(buttons, keyboard.Button(p.options[i].Label, data))
	}

	cancelData, err := issuer.Issue(ctx, batch, p.CancelToken())
	if err != nil {
		return nil, err
	}

	return keyboard.NewBuilder().
		Grid(buttons, p.columns).
		Row(keyboard.CancelButton(cancelData)).
		Build(), nil
}
