// Package notify: уведомления пользователей.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Notifier отправляет пользователю текстовое сообщение.
type Notifier interface {
	Notify(ctx context.Context, partyID int64, text string) error
}

// Send отправляет сообщение и только логирует ошибку: уведомление не должно срывать операцию.
func Send(ctx context.Context, n Notifier, log *zap.Logger, partyID int64, text string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, partyID, text); err != nil {
		log.Warn("уведомление не доставлено", zap.Int64("party_id", partyID), zap.Error(err))
	}
}

// Message: отправленное уведомление.
type Message struct {
	PartyID int64
	Text    string
}

// Recorder запоминает уведомления.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Notify(_ context.Context, partyID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{PartyID: partyID, Text: text})
	return nil
}

// For возвращает уведомления одного пользователя.
func (r *Recorder) For(partyID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.messages {
		if m.PartyID == partyID {
			out = append(out, m.Text)
		}
	}
	return out
}
