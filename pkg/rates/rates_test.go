package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubOracle struct {
	rates map[string]decimal.Decimal
	calls int
}

func (o *stubOracle) Rate(_ context.Context, code string) (decimal.Decimal, error) {
	o.calls++
	r, ok := o.rates[code]
	if !ok {
		return decimal.Zero, errors.New("источник недоступен")
	}
	return r, nil
}

// TestHTTPOracle разбирает ответы tonapi и coingecko.
func TestHTTPOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ton/rates":
			assert.Equal(t, "ton", r.URL.Query().Get("tokens"))
			_, _ = w.Write([]byte(`{"rates":{"TON":{"prices":{"USD":2.75}}}}`))
		case "/cg/simple/price":
			switch r.URL.Query().Get("ids") {
			case "bitcoin":
				_, _ = w.Write([]byte(`{"bitcoin":{"usd":64000.5}}`))
			case "ethereum":
				w.WriteHeader(http.StatusTooManyRequests)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL+"/ton", srv.URL+"/cg")
	ctx := context.Background()

	usdt, err := o.Rate(ctx, "USDT")
	require.NoError(t, err)
	assert.Equal(t, "1", usdt.String())

	ton, err := o.Rate(ctx, "TON")
	require.NoError(t, err)
	assert.Equal(t, "2.75", ton.String())

	btc, err := o.Rate(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, "64000.5", btc.String())

	_, err = o.Rate(ctx, "ETH")
	require.Error(t, err, "429 от источника: ошибка")

	_, err = o.Rate(ctx, "DOGE")
	require.Error(t, err)
}

// TestQuoteFallbackAndFilter: сбой источника заменяется резервным курсом, мелкие суммы отбрасываются.
func TestQuoteFallbackAndFilter(t *testing.T) {
	oracle := &stubOracle{rates: map[string]decimal.Decimal{
		"USDT": decimal.NewFromInt(1),
		"TON":  decimal.RequireFromString("2.5"),
		"BTC":  decimal.NewFromInt(60000),
	}}
	q := NewQuoter(oracle, nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	quotes := q.Quote(ctx, decimal.NewFromInt(5))
	byCode := map[string]Quote{}
	for _, qt := range quotes {
		byCode[qt.Currency] = qt
	}
	assert.Equal(t, "5", byCode["USDT"].Amount.String())
	assert.Equal(t, "2", byCode["TON"].Amount.String())
	_, hasBTC := byCode["BTC"]
	assert.False(t, hasBTC, "5 $ в BTC меньше минимума 0.0001")

	eth, ok := byCode["ETH"]
	require.True(t, ok)
	assert.True(t, eth.Fallback)
	assert.Equal(t, "3000", eth.Rate.String())
	assert.Equal(t, "0.001667", eth.Amount.String())

	calls := oracle.calls
	q.Quote(ctx, decimal.NewFromInt(5))
	assert.Equal(t, calls+1, oracle.calls, "повторно запрашивается только ETH, остальные из кэша")
}

// TestConvertPrecision проверяет округление по точности валюты.
func TestConvertPrecision(t *testing.T) {
	ton, _ := Lookup("ton")
	assert.Equal(t, "4.35", ton.Convert(decimal.NewFromInt(10), decimal.RequireFromString("2.3")).String())
	btc, _ := Lookup("BTC")
	assert.Equal(t, "0.002", btc.Convert(decimal.NewFromInt(100), decimal.NewFromInt(50000)).String())
	assert.True(t, btc.Convert(decimal.NewFromInt(1), decimal.Zero).IsZero())
	_, ok := Lookup("XRP")
	assert.False(t, ok)
}

// TestMemoryCacheExpiry: запись перестаёт читаться после истечения срока.
func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "TON", decimal.NewFromInt(3), time.Minute))
	v, ok, err := c.Get(ctx, "TON")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3", v.String())

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "TON")
	require.NoError(t, err)
	assert.False(t, ok)
}
