package cryptopay

import (
	"context"
	"encoding/json"
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

func newServer(t *testing.T, handler func(method string, params map[string]any) (int, string)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Crypto-Pay-API-Token"))
		var params map[string]any
		_ = json.NewDecoder(r.Body).Decode(&params)
		status, body := handler(r.URL.Path[len("/api/"):], params)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New("secret", srv.URL+"/api", zap.NewNop())
}

func TestCreateInvoice(t *testing.T) {
	c := newServer(t, func(method string, params map[string]any) (int, string) {
		assert.Equal(t, "createInvoice", method)
		assert.Equal(t, "30.90", params["amount"])
		assert.Equal(t, "USDT", params["asset"])
		assert.EqualValues(t, 3600, params["expires_in"])
		return 200, `{"ok":true,"result":{"invoice_id":77,"status":"active","asset":"USDT","amount":"30.9","bot_invoice_url":"https://t.me/CryptoBot?start=IV77"}}`
	})
	inv, err := c.CreateInvoice(context.Background(), decimal.RequireFromString("30.9"), "USDT", "Реклама #1", "order:1", time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(77), inv.ID)
	require.Equal(t, "https://t.me/CryptoBot?start=IV77", inv.PayURL)
}

func TestInvoiceStatus(t *testing.T) {
	c := newServer(t, func(method string, params map[string]any) (int, string) {
		assert.Equal(t, "getInvoices", method)
		assert.Equal(t, "77", params["invoice_ids"])
		return 200, `{"ok":true,"result":{"items":[{"invoice_id":77,"status":"paid"}]}}`
	})
	st, err := c.InvoiceStatus(context.Background(), 77)
	require.NoError(t, err)
	require.Equal(t, InvoicePaid, st)
}

func TestCreateChequeMethodDisabled(t *testing.T) {
	c := newServer(t, func(method string, params map[string]any) (int, string) {
		return 403, `{"ok":false,"error":{"code":403,"name":"METHOD_DISABLED"}}`
	})
	_, err := c.CreateCheque(context.Background(), "TON", decimal.RequireFromString("4.35"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMethodDisabled))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 403, apiErr.Code)
}

func TestCreateChequeGenericError(t *testing.T) {
	c := newServer(t, func(method string, params map[string]any) (int, string) {
		return 400, `{"ok":false,"error":{"code":400,"name":"NOT_ENOUGH_COINS"}}`
	})
	_, err := c.CreateCheque(context.Background(), "USDT", decimal.NewFromInt(5))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrMethodDisabled))
}

func TestCreateCheque(t *testing.T) {
	c := newServer(t, func(method string, params map[string]any) (int, string) {
		assert.Equal(t, "createCheck", method)
		assert.Equal(t, "0.0002", params["amount"])
		return 200, `{"ok":true,"result":{"check_id":5,"asset":"BTC","amount":"0.0002","bot_check_url":"https://t.me/CryptoBot?start=CQ5"}}`
	})
	ch, err := c.CreateCheque(context.Background(), "BTC", decimal.RequireFromString("0.0002"))
	require.NoError(t, err)
	require.Equal(t, int64(5), ch.ID)
	require.Equal(t, "https://t.me/CryptoBot?start=CQ5", ch.URL)
}

func TestDeleteInvoice(t *testing.T) {
	c := newServer(t, func(method string, params map[string]any) (int, string) {
		assert.Equal(t, "deleteInvoice", method)
		assert.EqualValues(t, 77, params["invoice_id"])
		return 200, `{"ok":true,"result":true}`
	})
	require.NoError(t, c.DeleteInvoice(context.Background(), 77))
}
