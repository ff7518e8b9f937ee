// Package withdrawal выводит баланс пользователя чеком в выбранной криптовалюте.
// Каждая заявка к моменту возврата из Confirm завершена либо отклонена.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/cryptopay"
	"tgads_go/pkg/events"
	"tgads_go/pkg/ledger"
	"tgads_go/pkg/rates"
	"tgads_go/pkg/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Причины отклонения заявки.
const (
	ReasonMethodDisabled = "выплата чеками отключена в платёжном сервисе"
	ReasonChequeFailed   = "не удалось выпустить чек"
	ReasonInsufficient   = "недостаточно средств на момент списания"
	ReasonDebitFailed    = "ошибка списания, чек отозван"
)

// ErrBusy: у пользователя уже выполняется вывод.
var ErrBusy = apperr.Conflict(errors.New("вывод уже выполняется, дождитесь результата"))

// ChequeIssuer выпускает и отзывает чеки.
type ChequeIssuer interface {
	CreateCheque(ctx context.Context, asset string, amount decimal.Decimal) (*cryptopay.Cheque, error)
	DeleteCheque(ctx context.Context, chequeID int64) error
}

// Quoter считает сумму вывода в валютах.
type Quoter interface {
	Quote(ctx context.Context, usd decimal.Decimal) []rates.Quote
	QuoteOne(ctx context.Context, c rates.Currency, usd decimal.Decimal) rates.Quote
}

type Processor struct {
	store   storage.Store
	cheques ChequeIssuer
	quoter  Quoter
	events  events.Publisher
	min     decimal.Decimal
	locks   *partyLocks
	log     *zap.Logger
	now     func() time.Time
}

// NewProcessor создаёт обработчик выводов. min: минимальная сумма вывода в долларах.
func NewProcessor(store storage.Store, cheques ChequeIssuer, q Quoter, pub events.Publisher, min decimal.Decimal, log *zap.Logger) *Processor {
	return &Processor{
		store:   store,
		cheques: cheques,
		quoter:  q,
		events:  pub,
		min:     min,
		locks:   newPartyLocks(log),
		log:     log,
		now:     time.Now,
	}
}

// QuoteResult: доступные варианты вывода суммы.
type QuoteResult struct {
	AmountUSD decimal.Decimal `json:"amount_usd"`
	Available decimal.Decimal `json:"available"`
	Quotes    []rates.Quote   `json:"quotes"`
}

// Quote проверяет сумму и считает её во всех валютах.
func (p *Processor) Quote(ctx context.Context, partyID int64, amountUSD decimal.Decimal) (*QuoteResult, error) {
	available, err := p.checkAmount(ctx, partyID, amountUSD)
	if err != nil {
		return nil, err
	}
	quotes := p.quoter.Quote(ctx, amountUSD)
	if len(quotes) == 0 {
		return nil, apperr.Validation("сумма меньше минимальной для всех валют")
	}
	return &QuoteResult{AmountUSD: amountUSD, Available: available, Quotes: quotes}, nil
}

// checkAmount проверяет минимум и доступный баланс. Вызывается до любых внешних запросов.
func (p *Processor) checkAmount(ctx context.Context, partyID int64, amountUSD decimal.Decimal) (decimal.Decimal, error) {
	if amountUSD.LessThan(p.min) {
		return decimal.Zero, apperr.Validation("минимальная сумма вывода %s $", p.min.StringFixed(2))
	}
	if !amountUSD.Round(2).Equal(amountUSD) {
		return decimal.Zero, apperr.Validation("сумма указывается с точностью до центов")
	}
	var available decimal.Decimal
	err := p.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		available, err = ledger.Available(tx, partyID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	if amountUSD.GreaterThan(available) {
		return decimal.Zero, fmt.Errorf("%w: доступно %s $", ledger.ErrInsufficientFunds, available.StringFixed(2))
	}
	return available, nil
}

// Confirm выполняет вывод: заявка, чек, списание. Доступный баланс перепроверяется,
// так как между расчётом и подтверждением мог пройти любой срок.
func (p *Processor) Confirm(ctx context.Context, partyID int64, amountUSD decimal.Decimal, code string) (*models.WithdrawalRequest, error) {
	currency, ok := rates.Lookup(code)
	if !ok {
		return nil, apperr.Validation("валюта %q не поддерживается", code)
	}
	if !p.locks.tryLock(partyID) {
		return nil, ErrBusy
	}
	defer p.locks.unlock(partyID)

	if _, err := p.checkAmount(ctx, partyID, amountUSD); err != nil {
		return nil, err
	}
	quote := p.quoter.QuoteOne(ctx, currency, amountUSD)
	if quote.Amount.LessThan(currency.Min) {
		return nil, apperr.Validation("сумма в %s меньше минимальной %s", currency.Code, currency.Min)
	}

	req := &models.WithdrawalRequest{
		PartyID:      partyID,
		AmountUSD:    amountUSD,
		Currency:     currency.Code,
		CryptoAmount: quote.Amount,
		Rate:         quote.Rate,
		Status:       models.WithdrawalPending,
	}
	err := p.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.LockParty(partyID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.NotFound("пользователь", partyID)
			}
			return err
		}
		available, err := ledger.Available(tx, partyID)
		if err != nil {
			return err
		}
		if amountUSD.GreaterThan(available) {
			return fmt.Errorf("%w: доступно %s $", ledger.ErrInsufficientFunds, available.StringFixed(2))
		}
		return tx.CreateWithdrawal(req)
	})
	if err != nil {
		return nil, err
	}

	// Заявка уже в pending: дальше она обязана закрыться completed или rejected,
	// даже если клиент ушёл и ctx отменён.
	rctx := context.WithoutCancel(ctx)
	cheque, err := p.cheques.CreateCheque(rctx, currency.Code, quote.Amount)
	if err != nil {
		reason := ReasonChequeFailed
		if errors.Is(err, cryptopay.ErrMethodDisabled) {
			reason = ReasonMethodDisabled
		}
		p.log.Error("выпуск чека", zap.Int64("withdrawal_id", req.ID), zap.Int64("party_id", partyID), zap.Error(err))
		if rejectErr := p.reject(rctx, req, reason); rejectErr != nil {
			return nil, rejectErr
		}
		return req, apperr.External("выпуск чека", err)
	}

	req.ChequeID = &cheque.ID
	req.ChequeURL = cheque.URL
	err = p.store.InTx(rctx, func(tx storage.Tx) error {
		if err := ledger.Withdraw(tx, partyID, amountUSD); err != nil {
			return err
		}
		now := p.now()
		req.Status = models.WithdrawalCompleted
		req.ProcessedAt = &now
		return tx.UpdateWithdrawal(req, models.WithdrawalPending)
	})
	if err != nil {
		reason := ReasonDebitFailed
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			reason = ReasonInsufficient
		}
		p.log.Error("списание после выпуска чека", zap.Int64("withdrawal_id", req.ID), zap.Int64("cheque_id", cheque.ID), zap.Error(err))
		if delErr := p.cheques.DeleteCheque(rctx, cheque.ID); delErr != nil {
			p.log.Error("не удалось отозвать чек", zap.Int64("withdrawal_id", req.ID), zap.Int64("cheque_id", cheque.ID), zap.Error(delErr))
		}
		req.ChequeID = nil
		req.ChequeURL = ""
		if rejectErr := p.reject(rctx, req, reason); rejectErr != nil {
			return nil, rejectErr
		}
		return req, err
	}

	p.log.Info("вывод выполнен", zap.Int64("withdrawal_id", req.ID), zap.Int64("party_id", partyID),
		zap.String("amount_usd", amountUSD.String()), zap.String("currency", currency.Code), zap.String("amount", quote.Amount.String()))
	events.Emit(rctx, p.events, p.log, events.New(events.WithdrawalCompleted, 0, partyID).WithAmount(amountUSD))
	return req, nil
}

// reject закрывает заявку с причиной. Баланс не меняется.
func (p *Processor) reject(ctx context.Context, req *models.WithdrawalRequest, reason string) error {
	err := p.store.InTx(ctx, func(tx storage.Tx) error {
		now := p.now()
		req.Status = models.WithdrawalRejected
		req.Reason = reason
		req.ProcessedAt = &now
		return tx.UpdateWithdrawal(req, models.WithdrawalPending)
	})
	if err != nil {
		p.log.Error("не удалось отклонить заявку", zap.Int64("withdrawal_id", req.ID), zap.Error(err))
		return err
	}
	events.Emit(ctx, p.events, p.log, events.New(events.WithdrawalRejected, 0, req.PartyID).WithAmount(req.AmountUSD))
	return nil
}

// List возвращает заявки пользователя.
func (p *Processor) List(ctx context.Context, partyID int64) ([]models.WithdrawalRequest, error) {
	var list []models.WithdrawalRequest
	err := p.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		list, err = tx.ListWithdrawals(partyID)
		return err
	})
	return list, err
}
