// Package cryptopay: клиент Crypto Pay API: счета на оплату заказов и чеки для вывода средств.
package cryptopay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://pay.crypt.bot/api"

// ErrMethodDisabled: метод отключён в настройках приложения (например, чеки).
var ErrMethodDisabled = errors.New("METHOD_DISABLED")

// APIError: ошибка, которую вернул сам API.
type APIError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crypto pay: %d %s", e.Code, e.Name)
}

func (e *APIError) Is(target error) bool {
	return target == ErrMethodDisabled && e.Name == "METHOD_DISABLED"
}

type InvoiceStatus string

const (
	InvoiceActive  InvoiceStatus = "active"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceExpired InvoiceStatus = "expired"
)

type Invoice struct {
	ID     int64           `json:"invoice_id"`
	Status InvoiceStatus   `json:"status"`
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	PayURL string          `json:"bot_invoice_url"`
}

type Cheque struct {
	ID     int64           `json:"check_id"`
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	URL    string          `json:"bot_check_url"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func New(token, baseURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *APIError       `json:"error"`
}

// call отправляет POST-запрос к методу API и разбирает result в out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", method, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: status %d: decode: %w", method, resp.StatusCode, err)
	}
	if !env.OK {
		if env.Error != nil {
			return env.Error
		}
		return fmt.Errorf("%s: status %d without error body", method, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// CreateInvoice выставляет счёт. payload возвращается в вебхуках и помогает сопоставить счёт с заказом.
func (c *Client) CreateInvoice(ctx context.Context, amount decimal.Decimal, asset, description, payload string, ttl time.Duration) (*Invoice, error) {
	params := map[string]any{
		"asset":           asset,
		"amount":          amount.StringFixed(2),
		"description":     description,
		"payload":         payload,
		"expires_in":      int(ttl.Seconds()),
		"allow_comments":  false,
		"allow_anonymous": false,
	}
	var inv Invoice
	if err := c.call(ctx, "createInvoice", params, &inv); err != nil {
		c.log.Error("ошибка создания инвойса", zap.Error(err))
		return nil, err
	}
	return &inv, nil
}

// InvoiceStatus возвращает текущий статус счёта.
func (c *Client) InvoiceStatus(ctx context.Context, invoiceID int64) (InvoiceStatus, error) {
	var res struct {
		Items []Invoice `json:"items"`
	}
	params := map[string]any{"invoice_ids": strconv.FormatInt(invoiceID, 10)}
	if err := c.call(ctx, "getInvoices", params, &res); err != nil {
		return "", err
	}
	for _, inv := range res.Items {
		if inv.ID == invoiceID {
			return inv.Status, nil
		}
	}
	return "", fmt.Errorf("invoice %d not found", invoiceID)
}

// CreateCheque выпускает чек на сумму в указанной валюте.
func (c *Client) CreateCheque(ctx context.Context, asset string, amount decimal.Decimal) (*Cheque, error) {
	params := map[string]any{
		"asset":  asset,
		"amount": amount.String(),
	}
	var ch Cheque
	if err := c.call(ctx, "createCheck", params, &ch); err != nil {
		if errors.Is(err, ErrMethodDisabled) {
			c.log.Error("создание чеков отключено в настройках приложения Crypto Pay (METHOD_DISABLED)")
		}
		return nil, err
	}
	return &ch, nil
}

// DeleteInvoice удаляет счёт, который больше не нужен.
func (c *Client) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	return c.call(ctx, "deleteInvoice", map[string]any{"invoice_id": invoiceID}, nil)
}

// DeleteCheque отзывает ещё не активированный чек.
func (c *Client) DeleteCheque(ctx context.Context, chequeID int64) error {
	return c.call(ctx, "deleteCheck", map[string]any{"check_id": chequeID}, nil)
}
