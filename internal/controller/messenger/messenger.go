// Package messenger описывает шлюз к мессенджеру, которым пользуется ядро бота.
package messenger

import "context"

// Button - кнопка с непрозрачными данными нажатия
type Button struct {
	Text string
	Data string
}

// Keyboard - ряды inline-кнопок
type Keyboard [][]Button

// MessageRef указывает на отправленное сообщение
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Press - нажатие inline-кнопки
type Press struct {
	ID       string
	Data     string
	UserID   int64
	UserName string
	ChatID   int64
	Message  MessageRef
}

// Messenger - операции транспорта, нужные ядру
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, text string, kb Keyboard) error
	Delete(ctx context.Context, ref MessageRef) error
	SendPhoto(ctx context.Context, chatID int64, filename string, data []byte, caption string) (MessageRef, error)
	AnswerPress(ctx context.Context, press Press, text string, alert bool) error
}
