package telegram

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"tgads_go/models"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"
)

// ErrUnreachable: канал недоступен боту. Наличие поста установить нельзя.
var ErrUnreachable = errors.New("канал недоступен")

// Markup строит клавиатуру с кнопкой-ссылкой. nil, если кнопки нет.
func Markup(c models.Content) tg.ReplyMarkupClass {
	if !c.HasButton() {
		return nil
	}
	return &tg.ReplyInlineMarkup{Rows: []tg.KeyboardButtonRow{{
		Buttons: []tg.KeyboardButtonClass{&tg.KeyboardButtonURL{Text: c.ButtonText, URL: c.ButtonURL}},
	}}}
}

// Media строит вложение по внешней ссылке.
func Media(c models.Content) tg.InputMediaClass {
	if !c.HasMedia() {
		return nil
	}
	switch c.MediaType {
	case models.MediaPhoto:
		return &tg.InputMediaPhotoExternal{URL: c.MediaURL}
	case models.MediaVideo, models.MediaDocument:
		return &tg.InputMediaDocumentExternal{URL: c.MediaURL}
	}
	return nil
}

// SentMessageID находит идентификатор отправленного сообщения в ответе сервера.
func SentMessageID(u tg.UpdatesClass, randomID int64) (int, error) {
	switch v := u.(type) {
	case *tg.UpdateShortSentMessage:
		return v.ID, nil
	case *tg.Updates:
		fallback := 0
		for _, upd := range v.Updates {
			switch x := upd.(type) {
			case *tg.UpdateMessageID:
				if x.RandomID == randomID {
					return x.ID, nil
				}
			case *tg.UpdateNewChannelMessage:
				if m, ok := x.Message.(*tg.Message); ok && fallback == 0 {
					fallback = m.ID
				}
			}
		}
		if fallback != 0 {
			return fallback, nil
		}
	}
	return 0, fmt.Errorf("в ответе нет отправленного сообщения (%T)", u)
}

// Publish отправляет пост в канал и возвращает его идентификатор.
func (b *Bot) Publish(ctx context.Context, dest models.Destination, c models.Content) (int, error) {
	peer := inputPeer(dest.ChannelID, dest.AccessHash)
	randomID := int64(rand.Uint64())
	var (
		upd tg.UpdatesClass
		err error
	)
	if media := Media(c); media != nil {
		upd, err = b.api.MessagesSendMedia(ctx, &tg.MessagesSendMediaRequest{
			Peer:        peer,
			Media:       media,
			Message:     c.Text,
			RandomID:    randomID,
			ReplyMarkup: Markup(c),
		})
	} else {
		upd, err = b.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
			Peer:        peer,
			Message:     c.Text,
			RandomID:    randomID,
			ReplyMarkup: Markup(c),
		})
	}
	if err != nil {
		return 0, err
	}
	id, err := SentMessageID(upd, randomID)
	if err != nil {
		return 0, err
	}
	b.log.Info("пост опубликован", zap.Int64("channel_id", dest.ChannelID), zap.Int("message_id", id))
	return id, nil
}

// Pin закрепляет пост без уведомления подписчиков.
func (b *Bot) Pin(ctx context.Context, dest models.Destination, handle int) error {
	_, err := b.api.MessagesUpdatePinnedMessage(ctx, &tg.MessagesUpdatePinnedMessageRequest{
		Silent: true,
		Peer:   inputPeer(dest.ChannelID, dest.AccessHash),
		ID:     handle,
	})
	return err
}

// Remove удаляет пост из канала.
func (b *Bot) Remove(ctx context.Context, dest models.Destination, handle int) error {
	_, err := b.api.ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{
		Channel: inputChannel(dest.ChannelID, dest.AccessHash),
		ID:      []int{handle},
	})
	return err
}

// Probe проверяет, на месте ли пост. Любая ошибка даёт ContentUnknown.
func (b *Bot) Probe(ctx context.Context, dest models.Destination, handle int) (models.ContentState, error) {
	res, err := b.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
		Channel: inputChannel(dest.ChannelID, dest.AccessHash),
		ID:      []tg.InputMessageClass{&tg.InputMessageID{ID: handle}},
	})
	if tgerr.Is(err, "CHANNEL_PRIVATE", "CHANNEL_INVALID", "CHAT_ADMIN_REQUIRED") {
		return models.ContentUnknown, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err != nil {
		return models.ContentUnknown, err
	}
	return ProbeState(res, handle), nil
}

// ProbeState разбирает ответ на запрос сообщения по идентификатору.
func ProbeState(res tg.MessagesMessagesClass, handle int) models.ContentState {
	var msgs []tg.MessageClass
	switch r := res.(type) {
	case *tg.MessagesChannelMessages:
		msgs = r.Messages
	case *tg.MessagesMessages:
		msgs = r.Messages
	case *tg.MessagesMessagesSlice:
		msgs = r.Messages
	default:
		return models.ContentUnknown
	}
	for _, raw := range msgs {
		switch m := raw.(type) {
		case *tg.MessageEmpty:
			if m.ID == handle {
				return models.ContentAbsent
			}
		case *tg.Message:
			if m.ID == handle {
				return models.ContentPresent
			}
		case *tg.MessageService:
			if m.ID == handle {
				return models.ContentPresent
			}
		}
	}
	return models.ContentUnknown
}
