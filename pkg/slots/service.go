// Package slots: каналы владельцев: подключение, прайс и статистика для каталога.
package slots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecentPosts: сколько последних постов учитывается в статистике.
const RecentPosts = 5

// ErrChannelNotFound возвращает Inspector, если канал не удалось найти по ссылке.
var ErrChannelNotFound = errors.New("канал не найден")

// ChannelInfo: канал, найденный на площадке.
type ChannelInfo struct {
	ChannelID  int64
	AccessHash int64
	Title      string
	Username   string
}

func (c ChannelInfo) Destination() models.Destination {
	return models.Destination{ChannelID: c.ChannelID, AccessHash: c.AccessHash}
}

// Inspector читает сведения о канале на площадке.
type Inspector interface {
	Resolve(ctx context.Context, ref string) (*ChannelInfo, error)
	IsBotAdmin(ctx context.Context, dest models.Destination) (bool, error)
	AudienceSize(ctx context.Context, dest models.Destination) (int, error)
	RecentViews(ctx context.Context, dest models.Destination, limit int) ([]int, error)
}

type Service struct {
	store     storage.Store
	inspector Inspector
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store storage.Store, inspector Inspector, log *zap.Logger) *Service {
	return &Service{store: store, inspector: inspector, log: log, now: time.Now}
}

// Register подключает канал владельца. Бот должен быть администратором канала.
func (s *Service) Register(ctx context.Context, ownerID int64, ref string) (*models.Slot, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.Validation("укажите @username или ссылку на канал")
	}
	if err := s.store.InTx(ctx, func(tx storage.Tx) error {
		_, err := tx.GetParty(ownerID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("пользователь", ownerID)
		}
		return err
	}); err != nil {
		return nil, err
	}

	info, err := s.inspector.Resolve(ctx, ref)
	if errors.Is(err, ErrChannelNotFound) {
		return nil, apperr.Validation("канал %s не найден", ref)
	}
	if err != nil {
		return nil, apperr.External("поиск канала", err)
	}
	dest := info.Destination()
	admin, err := s.inspector.IsBotAdmin(ctx, dest)
	if err != nil {
		return nil, apperr.External("проверка прав бота", err)
	}
	if !admin {
		return nil, apperr.Validation("бот не является администратором канала")
	}
	stats, err := s.collect(ctx, dest)
	if err != nil {
		return nil, err
	}

	slot := &models.Slot{
		ChannelID:     info.ChannelID,
		AccessHash:    info.AccessHash,
		OwnerID:       ownerID,
		Title:         info.Title,
		Username:      info.Username,
		PriceStandard: stats.SuggestedPost,
		PricePinned:   stats.SuggestedPin,
		Status:        models.SlotActive,
		IsBotAdmin:    true,
		Stats:         stats,
	}
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		existing, err := tx.GetSlotByChannel(info.ChannelID)
		if err == nil {
			return apperr.Conflict(fmt.Errorf("канал уже подключён (слот %d)", existing.ID))
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return tx.CreateSlot(slot)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("канал подключён", zap.Int64("slot_id", slot.ID), zap.Int64("channel_id", slot.ChannelID),
		zap.Int("subscribers", stats.Subscribers), zap.Float64("err", stats.ERR), zap.Bool("suspicious", stats.IsSuspicious))
	return slot, nil
}

func (s *Service) collect(ctx context.Context, dest models.Destination) (models.SlotStats, error) {
	subscribers, err := s.inspector.AudienceSize(ctx, dest)
	if err != nil {
		return models.SlotStats{}, apperr.External("число подписчиков", err)
	}
	views, err := s.inspector.RecentViews(ctx, dest, RecentPosts)
	if err != nil {
		return models.SlotStats{}, apperr.External("просмотры постов", err)
	}
	return Analyze(subscribers, views, s.now()), nil
}

// SetPrices меняет цены за день. Чужой канал выглядит как отсутствующий.
func (s *Service) SetPrices(ctx context.Context, ownerID, slotID int64, standard, pinned decimal.Decimal) (*models.Slot, error) {
	if !standard.IsPositive() || !pinned.IsPositive() {
		return nil, apperr.Validation("цены должны быть больше 0")
	}
	standard, pinned = standard.Round(2), pinned.Round(2)
	var slot *models.Slot
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		sl, err := owned(tx, ownerID, slotID)
		if err != nil {
			return err
		}
		if err := tx.UpdateSlotPrices(sl.ID, standard, pinned); err != nil {
			return err
		}
		sl.PriceStandard, sl.PricePinned = standard, pinned
		slot = sl
		return nil
	})
	return slot, err
}

func owned(tx storage.Tx, ownerID, slotID int64) (*models.Slot, error) {
	sl, err := tx.GetSlot(slotID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && sl.OwnerID != ownerID) {
		return nil, apperr.NotFound("канал", slotID)
	}
	return sl, err
}

// RefreshStats пересчитывает статистику канала владельца.
func (s *Service) RefreshStats(ctx context.Context, ownerID, slotID int64) (*models.Slot, error) {
	var slot *models.Slot
	if err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		slot, err = owned(tx, ownerID, slotID)
		return err
	}); err != nil {
		return nil, err
	}
	return s.refresh(ctx, slot)
}

func (s *Service) refresh(ctx context.Context, slot *models.Slot) (*models.Slot, error) {
	stats, err := s.collect(ctx, slot.Destination())
	if err != nil {
		return nil, err
	}
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		return tx.UpdateSlotStats(slot.ID, stats)
	})
	if err != nil {
		return nil, err
	}
	slot.Stats = stats
	return slot, nil
}

// RefreshAll пересчитывает статистику всех каналов. Ошибка по одному каналу не прерывает обход.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	var list []models.Slot
	if err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		list, err = tx.ListSlots(storage.SlotFilter{})
		return err
	}); err != nil {
		return 0, err
	}
	done := 0
	for i := range list {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := s.refresh(ctx, &list[i]); err != nil {
			s.log.Warn("обновление статистики канала", zap.Int64("slot_id", list[i].ID), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

// Catalog: активные каналы без признаков накрутки.
func (s *Service) Catalog(ctx context.Context) ([]models.Slot, error) {
	return s.list(ctx, storage.SlotFilter{OnlyListed: true})
}

// Mine: каналы владельца.
func (s *Service) Mine(ctx context.Context, ownerID int64) ([]models.Slot, error) {
	return s.list(ctx, storage.SlotFilter{OwnerID: ownerID})
}

func (s *Service) list(ctx context.Context, f storage.SlotFilter) ([]models.Slot, error) {
	var list []models.Slot
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		list, err = tx.ListSlots(f)
		return err
	})
	return list, err
}

// Get возвращает канал по идентификатору.
func (s *Service) Get(ctx context.Context, slotID int64) (*models.Slot, error) {
	var slot *models.Slot
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		slot, err = tx.GetSlot(slotID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("канал", slotID)
		}
		return err
	})
	return slot, err
}
