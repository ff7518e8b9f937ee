// Package rates: курсы криптовалют к доллару для вывода средств.
package rates

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency: валюта вывода: резервный курс, минимальная сумма и точность.
type Currency struct {
	Code     string
	Fallback decimal.Decimal
	Min      decimal.Decimal
	Decimals int32
}

// Supported: поддерживаемые валюты в порядке показа.
var Supported = []Currency{
	{Code: "USDT", Fallback: decimal.NewFromInt(1), Min: decimal.NewFromInt(1), Decimals: 2},
	{Code: "TON", Fallback: decimal.RequireFromString("2.3"), Min: decimal.RequireFromString("0.5"), Decimals: 2},
	{Code: "BTC", Fallback: decimal.NewFromInt(50000), Min: decimal.RequireFromString("0.0001"), Decimals: 8},
	{Code: "ETH", Fallback: decimal.NewFromInt(3000), Min: decimal.RequireFromString("0.001"), Decimals: 6},
}

// Lookup ищет валюту по коду без учёта регистра.
func Lookup(code string) (Currency, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range Supported {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// Convert переводит сумму в долларах в валюту по курсу с округлением до точности валюты.
func (c Currency) Convert(usd, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	return usd.DivRound(rate, c.Decimals+4).Round(c.Decimals)
}
