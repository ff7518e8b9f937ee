package storage

import (
	"database/sql"

	"tgads_go/models"
)

func (t *pgTx) CreateWithdrawal(w *models.WithdrawalRequest) error {
	return t.queryRow(`
		INSERT INTO withdrawal_requests (party_id, amount_usd, currency, crypto_amount, rate, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		w.PartyID, w.AmountUSD, w.Currency, w.CryptoAmount, w.Rate, w.Status,
	).Scan(&w.ID, &w.CreatedAt)
}

// UpdateWithdrawal сохраняет результат обработки заявки, если её статус всё ещё from.
func (t *pgTx) UpdateWithdrawal(w *models.WithdrawalRequest, from models.WithdrawalStatus) error {
	return t.execOne(ErrConflict, `
		UPDATE withdrawal_requests
		SET status = $3, cheque_id = $4, cheque_url = $5, reason = $6, processed_at = $7
		WHERE id = $1 AND status = $2`,
		w.ID, from, w.Status, w.ChequeID, w.ChequeURL, w.Reason, w.ProcessedAt,
	)
}

func (t *pgTx) ListWithdrawals(partyID int64) ([]models.WithdrawalRequest, error) {
	rows, err := t.query(`
		SELECT id, party_id, amount_usd, currency, crypto_amount, rate, cheque_id, cheque_url, status, reason, created_at, processed_at
		FROM withdrawal_requests WHERE party_id = $1 ORDER BY id DESC`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.WithdrawalRequest
	for rows.Next() {
		var w models.WithdrawalRequest
		var cheque sql.NullInt64
		var processed sql.NullTime
		if err := rows.Scan(&w.ID, &w.PartyID, &w.AmountUSD, &w.Currency, &w.CryptoAmount, &w.Rate,
			&cheque, &w.ChequeURL, &w.Status, &w.Reason, &w.CreatedAt, &processed); err != nil {
			return nil, err
		}
		if cheque.Valid {
			id := cheque.Int64
			w.ChequeID = &id
		}
		w.ProcessedAt = nullTime(processed)
		list = append(list, w)
	}
	return list, rows.Err()
}
