package messenger

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ErrNoMessage - у нажатия нет исходного сообщения
var ErrNoMessage = errors.New("message not available")

// Telegram реализует Messenger поверх go-telegram/bot
type Telegram struct {
	bot *bot.Bot
}

func NewTelegram(b *bot.Bot) *Telegram {
	return &Telegram{bot: b}
}

// Send отправляет новое сообщение
func (t *Telegram) Send(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error) {
	msg, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup(kb),
	})
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

// Edit редактирует сообщение
func (t *Telegram) Edit(ctx context.Context, ref MessageRef, text string, kb Keyboard) error {
	if ref.MessageID == 0 {
		return ErrNoMessage
	}

	_, err := t.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      ref.ChatID,
		MessageID:   ref.MessageID,
		Text:        text,
		ReplyMarkup: markup(kb),
	})

	// Игнорируем ошибку "message is not modified" - это не настоящая ошибка
	if IsMessageNotModifiedError(err) {
		return nil
	}
	return err
}

// Delete удаляет сообщение
func (t *Telegram) Delete(ctx context.Context, ref MessageRef) error {
	if ref.MessageID == 0 {
		return ErrNoMessage
	}

	_, err := t.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    ref.ChatID,
		MessageID: ref.MessageID,
	})
	return err
}

// SendPhoto отправляет картинку файлом
func (t *Telegram) SendPhoto(ctx context.Context, chatID int64, filename string, data []byte, caption string) (MessageRef, error) {
	msg, err := t.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader(data),
		},
		Caption: caption,
	})
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

// AnswerPress отвечает на callback query; с alert текст показывается всплывающим окном
func (t *Telegram) AnswerPress(ctx context.Context, press Press, text string, alert bool) error {
	_, err := t.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: press.ID,
		Text:            text,
		ShowAlert:       alert,
	})
	return err
}

// PressFromCallback переводит callback query в Press
func PressFromCallback(cq *models.CallbackQuery) Press {
	press := Press{
		ID:       cq.ID,
		Data:     cq.Data,
		UserID:   cq.From.ID,
		UserName: DisplayName(&cq.From),
	}

	switch {
	case cq.Message.Message != nil:
		press.ChatID = cq.Message.Message.Chat.ID
		press.Message = MessageRef{ChatID: press.ChatID, MessageID: cq.Message.Message.ID}
	case cq.Message.InaccessibleMessage != nil:
		press.ChatID = cq.Message.InaccessibleMessage.Chat.ID
		press.Message = MessageRef{ChatID: press.ChatID, MessageID: cq.Message.InaccessibleMessage.MessageID}
	}
	return press
}

// DisplayName - имя пользователя для состава плана: username, иначе имя, иначе id
func DisplayName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return "id" + strconv.FormatInt(u.ID, 10)
}

// IsMessageNotModifiedError проверяет ошибку редактирования без изменений
func IsMessageNotModifiedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// markup возвращает nil-интерфейс для пустой клавиатуры
func markup(kb Keyboard) models.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, models.InlineKeyboardButton{
				Text:         b.Text,
				CallbackData: b.Data,
			})
		}
		rows = append(rows, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
