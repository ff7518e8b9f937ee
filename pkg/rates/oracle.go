package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultTonAPI    = "https://tonapi.io/v2"
	DefaultCoinGecko = "https://api.coingecko.com/api/v3"
)

// Oracle возвращает курс валюты в долларах.
type Oracle interface {
	Rate(ctx context.Context, code string) (decimal.Decimal, error)
}

// HTTPOracle берёт курс TON из tonapi, BTC и ETH из coingecko. USDT всегда 1.
type HTTPOracle struct {
	tonAPI    string
	coinGecko string
	http      *http.Client
}

func NewHTTPOracle(tonAPI, coinGecko string) *HTTPOracle {
	if tonAPI == "" {
		tonAPI = DefaultTonAPI
	}
	if coinGecko == "" {
		coinGecko = DefaultCoinGecko
	}
	return &HTTPOracle{tonAPI: tonAPI, coinGecko: coinGecko, http: &http.Client{Timeout: 10 * time.Second}}
}

var coinGeckoIDs = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
}

func (o *HTTPOracle) Rate(ctx context.Context, code string) (decimal.Decimal, error) {
	switch code {
	case "USDT":
		return decimal.NewFromInt(1), nil
	case "TON":
		var body struct {
			Rates map[string]struct {
				Prices map[string]decimal.Decimal `json:"prices"`
			} `json:"rates"`
		}
		if err := o.get(ctx, o.tonAPI+"/rates?tokens=ton&currencies=usd", &body); err != nil {
			return decimal.Zero, err
		}
		return positive(body.Rates["TON"].Prices["USD"], code)
	}
	id, ok := coinGeckoIDs[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("валюта %s не поддерживается", code)
	}
	var body map[string]map[string]decimal.Decimal
	if err := o.get(ctx, o.coinGecko+"/simple/price?ids="+id+"&vs_currencies=usd", &body); err != nil {
		return decimal.Zero, err
	}
	return positive(body[id]["usd"], code)
}

func (o *HTTPOracle) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := o.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("курс: статус %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func positive(v decimal.Decimal, code string) (decimal.Decimal, error) {
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("нет курса %s в ответе", code)
	}
	return v, nil
}
