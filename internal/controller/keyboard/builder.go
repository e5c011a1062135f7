package keyboard

import "github.com/Freeeeeet/planbot/internal/controller/messenger"

// Builder упрощает создание inline клавиатур
type Builder struct {
	rows messenger.Keyboard
}

// NewBuilder создаёт новый builder клавиатуры
func NewBuilder() *Builder {
	return &Builder{
		rows: make(messenger.Keyboard, 0),
	}
}

// Button создаёт кнопку
func Button(text, data string) messenger.Button {
	return messenger.Button{Text: text, Data: data}
}

// CancelButton создаёт кнопку "Cancel"
func CancelButton(data string) messenger.Button {
	return Button("❌ Cancel", data)
}

// Row добавляет новый ряд кнопок
func (b *Builder) Row(buttons ...messenger.Button) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Grid раскладывает кнопки по рядам заданной ширины
func (b *Builder) Grid(buttons []messenger.Button, columns int) *Builder {
	if columns <= 0 {
		columns = 1
	}
	for start := 0; start < len(buttons); start += columns {
		end := start + columns
		if end > len(buttons) {
			end = len(buttons)
		}
		row := make([]messenger.Button, end-start)
		copy(row, buttons[start:end])
		b.rows = append(b.rows, row)
	}
	return b
}

// Build создаёт финальную клавиатуру
func (b *Builder) Build() messenger.Keyboard {
	return b.rows
}
