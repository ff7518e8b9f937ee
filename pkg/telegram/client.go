package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
	"golang.org/x/net/proxy"
)

// Config: параметры подключения бота.
type Config struct {
	APIID    int
	APIHash  string
	BotToken string
	Proxy    string // host:port или user:pass@host:port
}

// Bot: MTProto-клиент бота: публикация постов, проверка каналов, личные сообщения.
type Bot struct {
	client *telegram.Client
	api    *tg.Client
	token  string
	log    *zap.Logger
}

// BotID извлекает идентификатор бота из токена вида 123456:ABC.
func BotID(token string) (int64, error) {
	id, _, ok := strings.Cut(token, ":")
	if !ok {
		return 0, errors.New("некорректный токен бота")
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.New("некорректный токен бота")
	}
	return n, nil
}

// ParseProxy разбирает адрес SOCKS5-прокси. Пустая строка: без прокси.
func ParseProxy(s string) (addr string, auth *proxy.Auth, err error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "socks5://")
	if s == "" {
		return "", nil, nil
	}
	if creds, host, ok := strings.Cut(s, "@"); ok {
		user, pass, _ := strings.Cut(creds, ":")
		auth = &proxy.Auth{User: user, Password: pass}
		s = host
	}
	if _, _, err := net.SplitHostPort(s); err != nil {
		return "", nil, fmt.Errorf("адрес прокси %q: %w", s, err)
	}
	return s, auth, nil
}

// NewBot создаёт клиента с хранилищем сессии и, при необходимости, SOCKS5-прокси.
func NewBot(cfg Config, sessions session.Storage, log *zap.Logger) (*Bot, error) {
	if sessions == nil {
		sessions = &session.StorageMemory{}
	}
	opts := telegram.Options{SessionStorage: sessions, Logger: log.Named("mtproto")}

	addr, auth, err := ParseProxy(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	if addr != "" {
		d, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("proxy dialer: %w", err)
		}
		dc, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("proxy dialer missing context")
		}
		opts.Resolver = dcs.Plain(dcs.PlainOptions{Dial: dc.DialContext})
		log.Info("подключение через прокси", zap.String("proxy", addr))
	}

	client := telegram.NewClient(cfg.APIID, cfg.APIHash, opts)
	return &Bot{client: client, api: client.API(), token: cfg.BotToken, log: log}, nil
}

// Run держит соединение до отмены ctx. ready закрывается после авторизации.
func (b *Bot) Run(ctx context.Context, ready chan<- struct{}) error {
	return b.client.Run(ctx, func(ctx context.Context) error {
		status, err := b.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("статус авторизации: %w", err)
		}
		if !status.Authorized {
			if _, err := b.client.Auth().Bot(ctx, b.token); err != nil {
				return fmt.Errorf("авторизация бота: %w", err)
			}
		}
		b.log.Info("бот подключён")
		close(ready)
		<-ctx.Done()
		return ctx.Err()
	})
}

func inputChannel(channelID, accessHash int64) *tg.InputChannel {
	return &tg.InputChannel{ChannelID: channelID, AccessHash: accessHash}
}

func inputPeer(channelID, accessHash int64) *tg.InputPeerChannel {
	return &tg.InputPeerChannel{ChannelID: channelID, AccessHash: accessHash}
}
