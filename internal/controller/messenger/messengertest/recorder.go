// Package messengertest содержит записывающую реализацию Messenger для тестов.
package messengertest

import (
	"context"
	"sync"

	"github.com/Freeeeeet/planbot/internal/controller/messenger"
)

// Sent - отправленное или отредактированное сообщение
type Sent struct {
	Ref      messenger.MessageRef
	Text     string
	Keyboard messenger.Keyboard
}

// Answer - ответ на нажатие
type Answer struct {
	Press messenger.Press
	Text  string
	Alert bool
}

// Recorder запоминает все вызовы транспорта
type Recorder struct {
	mu      sync.Mutex
	nextID  int
	Sent    []Sent
	Edited  []Sent
	Deleted []messenger.MessageRef
	Photos  []Sent
	Answers []Answer
}

func New() *Recorder {
	return &Recorder{nextID: 100}
}

func (r *Recorder) Send(_ context.Context, chatID int64, text string, kb messenger.Keyboard) (messenger.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	ref := messenger.MessageRef{ChatID: chatID, MessageID: r.nextID}
	r.Sent = append(r.Sent, Sent{Ref: ref, Text: text, Keyboard: kb})
	return ref, nil
}

func (r *Recorder) Edit(_ context.Context, ref messenger.MessageRef, text string, kb messenger.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Edited = append(r.Edited, Sent{Ref: ref, Text: text, Keyboard: kb})
	return nil
}

func (r *Recorder) Delete(_ context.Context, ref messenger.MessageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Deleted = append(r.Deleted, ref)
	return nil
}

func (r *Recorder) SendPhoto(_ context.Context, chatID int64, filename string, _ []byte, caption string) (messenger.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	ref := messenger.MessageRef{ChatID: chatID, MessageID: r.nextID}
	r.Photos = append(r.Photos, Sent{Ref: ref, Text: filename + ": " + caption})
	return ref, nil
}

func (r *Recorder) AnswerPress(_ context.Context, press messenger.Press, text string, alert bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Answers = append(r.Answers, Answer{Press: press, Text: text, Alert: alert})
	return nil
}

// LastSent возвращает последнее отправленное сообщение
func (r *Recorder) LastSent() (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Sent) == 0 {
		return Sent{}, false
	}
	return r.Sent[len(r.Sent)-1], true
}

// LastEdited возвращает последнее отредактированное сообщение
func (r *Recorder) LastEdited() (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Edited) == 0 {
		return Sent{}, false
	}
	return r.Edited[len(r.Edited)-1], true
}

// Calls возвращает общее число вызовов, кроме ответов на нажатия
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.Sent) + len(r.Edited) + len(r.Deleted) + len(r.Photos)
}
