package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/Freeeeeet/planbot/internal/controller/messenger"
)

// Request - текстовая команда пользователя
type Request struct {
	ChatID   int64
	UserID   int64
	UserName string
	Command  string
	Raw      string
	Args     []string
	Edited   bool
	Message  messenger.MessageRef
}

// ErrNotCommand - сообщение не является командой
var ErrNotCommand = errors.New("message is not a command")

// HandlerFunc обрабатывает команду
type HandlerFunc func(ctx context.Context, req *Request) error

// ParseCommand разбирает "/name@bot args" на имя команды и хвост
func ParseCommand(text string) (name, raw string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

// NewRequest собирает запрос из текста сообщения
func NewRequest(chatID, userID int64, userName, text string, edited bool, ref messenger.MessageRef) (*Request, error) {
	name, raw, ok := ParseCommand(text)
	if !ok {
		return nil, ErrNotCommand
	}
	args, err := ParseArgs(raw)
	if err != nil {
		return nil, err
	}
	return &Request{
		ChatID:   chatID,
		UserID:   userID,
		UserName: userName,
		Command:  name,
		Raw:      raw,
		Args:     args,
		Edited:   edited,
		Message:  ref,
	}, nil
}
