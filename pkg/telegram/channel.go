package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"tgads_go/models"
	"tgads_go/pkg/slots"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)

// ParseChannelRef извлекает username из @name, t.me/name или https://t.me/name.
func ParseChannelRef(ref string) (string, error) {
	s := strings.TrimSpace(ref)
	for _, p := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, p)
	}
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "telegram.me/")
	s = strings.TrimPrefix(s, "@")
	s = strings.TrimSuffix(s, "/")
	if i := strings.IndexAny(s, "/?"); i >= 0 {
		s = s[:i]
	}
	if !usernameRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", slots.ErrChannelNotFound, ref)
	}
	return s, nil
}

// FindBroadcast возвращает первый вещательный канал из списка чатов.
func FindBroadcast(chats []tg.ChatClass) (*tg.Channel, error) {
	for _, peer := range chats {
		if ch, ok := peer.(*tg.Channel); ok && ch.Broadcast && !ch.Megagroup {
			return ch, nil
		}
	}
	return nil, slots.ErrChannelNotFound
}

// Resolve находит канал по ссылке.
func (b *Bot) Resolve(ctx context.Context, ref string) (*slots.ChannelInfo, error) {
	username, err := ParseChannelRef(ref)
	if err != nil {
		return nil, err
	}
	resolved, err := b.api.ContactsResolveUsername(ctx, username)
	if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID") {
		return nil, slots.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	ch, err := FindBroadcast(resolved.GetChats())
	if err != nil {
		return nil, err
	}
	return &slots.ChannelInfo{ChannelID: ch.ID, AccessHash: ch.AccessHash, Title: ch.Title, Username: ch.Username}, nil
}

// IsBotAdmin проверяет, что бот: администратор или создатель канала.
func (b *Bot) IsBotAdmin(ctx context.Context, dest models.Destination) (bool, error) {
	res, err := b.api.ChannelsGetParticipant(ctx, &tg.ChannelsGetParticipantRequest{
		Channel:     inputChannel(dest.ChannelID, dest.AccessHash),
		Participant: &tg.InputPeerSelf{},
	})
	if tgerr.Is(err, "USER_NOT_PARTICIPANT", "CHAT_ADMIN_REQUIRED", "CHANNEL_PRIVATE") {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch res.Participant.(type) {
	case *tg.ChannelParticipantAdmin, *tg.ChannelParticipantCreator:
		return true, nil
	}
	return false, nil
}

// AudienceSize возвращает число подписчиков канала.
func (b *Bot) AudienceSize(ctx context.Context, dest models.Destination) (int, error) {
	full, err := b.api.ChannelsGetFullChannel(ctx, inputChannel(dest.ChannelID, dest.AccessHash))
	if err != nil {
		return 0, err
	}
	cf, ok := full.GetFullChat().(*tg.ChannelFull)
	if !ok {
		return 0, fmt.Errorf("unexpected full chat type %T", full.GetFullChat())
	}
	count, _ := cf.GetParticipantsCount()
	return count, nil
}

// RecentViews возвращает просмотры последних limit постов.
func (b *Bot) RecentViews(ctx context.Context, dest models.Destination, limit int) ([]int, error) {
	history, err := b.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  inputPeer(dest.ChannelID, dest.AccessHash),
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	messages, ok := history.(*tg.MessagesChannelMessages)
	if !ok {
		return nil, errors.New("unexpected messages type")
	}
	return PostViews(messages.Messages, limit), nil
}

// PostViews собирает просмотры обычных сообщений, не более limit.
func PostViews(msgs []tg.MessageClass, limit int) []int {
	views := make([]int, 0, limit)
	for _, raw := range msgs {
		m, ok := raw.(*tg.Message)
		if !ok {
			continue
		}
		views = append(views, m.Views)
		if len(views) == limit {
			break
		}
	}
	return views
}
