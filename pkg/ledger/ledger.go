// Package ledger: операции над балансами пользователей.
// Все функции работают внутри транзакции storage.Tx: изменение баланса и смена статуса,
// ради которой оно делается, фиксируются вместе или не фиксируются вовсе.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/storage"

	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds: на балансе меньше, чем нужно списать. Ничего не изменено.
var ErrInsufficientFunds = apperr.Guard("недостаточно средств на балансе")

var errNegativeAmount = errors.New("сумма не может быть отрицательной")

// LockParties блокирует пользователей в порядке возрастания id, чтобы параллельные
// транзакции не взаимоблокировались.
func LockParties(tx storage.Tx, ids ...int64) (map[int64]*models.Party, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	locked := make(map[int64]*models.Party, len(sorted))
	for _, id := range sorted {
		if _, ok := locked[id]; ok {
			continue
		}
		p, err := tx.LockParty(id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("пользователь", id)
		}
		if err != nil {
			return nil, fmt.Errorf("lock party %d: %w", id, err)
		}
		locked[id] = p
	}
	return locked, nil
}

// Credit зачисляет amount. Если earned, сумма попадает и в total_earned.
func Credit(tx storage.Tx, partyID int64, amount decimal.Decimal, earned bool) error {
	if amount.IsNegative() {
		return errNegativeAmount
	}
	adj := models.BalanceAdjustment{Balance: amount}
	if earned {
		adj.TotalEarned = amount
	}
	return adjust(tx, partyID, adj)
}

// Debit списывает amount, если баланс не меньше суммы; иначе возвращает ErrInsufficientFunds.
func Debit(tx storage.Tx, partyID int64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errNegativeAmount
	}
	p, err := lockOne(tx, partyID)
	if err != nil {
		return err
	}
	if p.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return adjust(tx, partyID, models.BalanceAdjustment{Balance: amount.Neg()})
}

// Transfer переводит amount от одного пользователя другому.
func Transfer(tx storage.Tx, from, to int64, amount decimal.Decimal) error {
	if _, err := LockParties(tx, from, to); err != nil {
		return err
	}
	if err := Debit(tx, from, amount); err != nil {
		return err
	}
	return Credit(tx, to, amount, false)
}

// Withdraw списывает выведенную сумму и увеличивает total_withdrawn.
func Withdraw(tx storage.Tx, partyID int64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errNegativeAmount
	}
	p, err := lockOne(tx, partyID)
	if err != nil {
		return err
	}
	if p.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return adjust(tx, partyID, models.BalanceAdjustment{Balance: amount.Neg(), TotalWithdrawn: amount})
}

// Summary возвращает баланс с учётом замороженных средств и незавершённых выводов.
func Summary(tx storage.Tx, partyID int64) (*models.BalanceSummary, error) {
	p, err := tx.GetParty(partyID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("пользователь", partyID)
	}
	if err != nil {
		return nil, err
	}
	pending, err := tx.SumPendingWithdrawals(partyID)
	if err != nil {
		return nil, err
	}
	return &models.BalanceSummary{
		PartyID:            p.ID,
		Balance:            p.Balance,
		FrozenBalance:      p.FrozenBalance,
		PendingWithdrawals: pending,
		Available:          p.Balance.Sub(p.FrozenBalance).Sub(pending),
		TotalEarned:        p.TotalEarned,
		TotalWithdrawn:     p.TotalWithdrawn,
	}, nil
}

// Available = balance - frozen_balance - сумма незавершённых выводов.
func Available(tx storage.Tx, partyID int64) (decimal.Decimal, error) {
	s, err := Summary(tx, partyID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Available, nil
}

func lockOne(tx storage.Tx, partyID int64) (*models.Party, error) {
	p, err := tx.LockParty(partyID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("пользователь", partyID)
	}
	return p, err
}

func adjust(tx storage.Tx, partyID int64, adj models.BalanceAdjustment) error {
	err := tx.AdjustParty(partyID, adj)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("пользователь", partyID)
	}
	return err
}

// Service даёт доступ к балансу вне других операций.
type Service struct {
	store storage.Store
}

func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Balance возвращает сводку баланса пользователя.
func (s *Service) Balance(ctx context.Context, partyID int64) (*models.BalanceSummary, error) {
	var sum *models.BalanceSummary
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		sum, err = Summary(tx, partyID)
		return err
	})
	return sum, err
}

// Register создаёт пользователя или обновляет профиль.
func (s *Service) Register(ctx context.Context, p models.Party) (*models.Party, error) {
	if p.ID <= 0 {
		return nil, apperr.Validation("некорректный идентификатор пользователя")
	}
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		return tx.UpsertParty(&p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// OwnerStats возвращает статистику владельца каналов.
func (s *Service) OwnerStats(ctx context.Context, ownerID int64) (*models.OwnerStats, error) {
	var st *models.OwnerStats
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		st, err = tx.OwnerStats(ownerID)
		return err
	})
	return st, err
}
