package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Quote: сумма вывода в одной валюте.
type Quote struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
	Amount   decimal.Decimal `json:"amount"`
	Fallback bool            `json:"fallback"` // использован резервный курс
}

// Quoter получает курсы через кэш и подставляет резервный курс при сбое источника.
type Quoter struct {
	oracle Oracle
	cache  Cache
	ttl    time.Duration
	log    *zap.Logger
}

func NewQuoter(o Oracle, c Cache, ttl time.Duration, log *zap.Logger) *Quoter {
	if c == nil {
		c = NewMemoryCache()
	}
	return &Quoter{oracle: o, cache: c, ttl: ttl, log: log}
}

// Rate возвращает курс валюты. Ошибка источника не прерывает расчёт: берётся резервный курс.
func (q *Quoter) Rate(ctx context.Context, c Currency) (decimal.Decimal, bool) {
	if rate, ok, err := q.cache.Get(ctx, c.Code); err != nil {
		q.log.Warn("кэш курсов недоступен", zap.String("currency", c.Code), zap.Error(err))
	} else if ok {
		return rate, false
	}
	rate, err := q.oracle.Rate(ctx, c.Code)
	if err != nil {
		q.log.Warn("курс недоступен, используется резервный", zap.String("currency", c.Code),
			zap.String("fallback", c.Fallback.String()), zap.Error(err))
		return c.Fallback, true
	}
	if err := q.cache.Set(ctx, c.Code, rate, q.ttl); err != nil {
		q.log.Warn("не удалось сохранить курс", zap.String("currency", c.Code), zap.Error(err))
	}
	return rate, false
}

// QuoteOne считает сумму в одной валюте.
func (q *Quoter) QuoteOne(ctx context.Context, c Currency, usd decimal.Decimal) Quote {
	rate, fallback := q.Rate(ctx, c)
	return Quote{Currency: c.Code, Rate: rate, Amount: c.Convert(usd, rate), Fallback: fallback}
}

// Quote считает сумму во всех валютах и отбрасывает те, где она меньше минимальной.
func (q *Quoter) Quote(ctx context.Context, usd decimal.Decimal) []Quote {
	var out []Quote
	for _, c := range Supported {
		qt := q.QuoteOne(ctx, c, usd)
		if qt.Amount.LessThan(c.Min) {
			continue
		}
		out = append(out, qt)
	}
	return out
}
