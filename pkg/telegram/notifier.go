package telegram

import (
	"context"
	"fmt"
	"math/rand"

	"tgads_go/models"
	"tgads_go/pkg/storage"

	"github.com/gotd/td/tg"
)

// Notifier отправляет уведомления личным сообщением от имени бота.
type Notifier struct {
	bot   *Bot
	store storage.Store
}

func NewNotifier(bot *Bot, store storage.Store) *Notifier {
	return &Notifier{bot: bot, store: store}
}

func (n *Notifier) Notify(ctx context.Context, partyID int64, text string) error {
	var party *models.Party
	err := n.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		party, err = tx.GetParty(partyID)
		return err
	})
	if err != nil {
		return fmt.Errorf("получатель %d: %w", partyID, err)
	}
	_, err = n.bot.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     &tg.InputPeerUser{UserID: party.ID, AccessHash: party.AccessHash},
		Message:  text,
		RandomID: int64(rand.Uint64()),
	})
	return err
}
