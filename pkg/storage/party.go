package storage

import (
	"tgads_go/models"

	"github.com/shopspring/decimal"
)

const partyColumns = `id, username, first_name, access_hash, balance, frozen_balance, total_earned, total_withdrawn, created_at`

// UpsertParty создаёт пользователя или обновляет его профиль, не трогая баланс.
func (t *pgTx) UpsertParty(p *models.Party) error {
	return t.queryRow(`
		INSERT INTO parties (id, username, first_name, access_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			access_hash = CASE WHEN EXCLUDED.access_hash <> 0 THEN EXCLUDED.access_hash ELSE parties.access_hash END
		RETURNING `+partyColumns,
		p.ID, p.Username, p.FirstName, p.AccessHash,
	).Scan(partyDest(p)...)
}

func (t *pgTx) GetParty(id int64) (*models.Party, error) {
	var p models.Party
	err := t.queryRow(`SELECT `+partyColumns+` FROM parties WHERE id = $1`, id).Scan(partyDest(&p)...)
	if err != nil {
		return nil, noRows(err)
	}
	return &p, nil
}

func (t *pgTx) LockParty(id int64) (*models.Party, error) {
	var p models.Party
	err := t.queryRow(`SELECT `+partyColumns+` FROM parties WHERE id = $1 FOR UPDATE`, id).Scan(partyDest(&p)...)
	if err != nil {
		return nil, noRows(err)
	}
	return &p, nil
}

// AdjustParty применяет приращения атомарно в одном UPDATE.
func (t *pgTx) AdjustParty(id int64, adj models.BalanceAdjustment) error {
	return t.execOne(ErrNotFound, `
		UPDATE parties
		SET balance = balance + $2,
		    total_earned = total_earned + $3,
		    total_withdrawn = total_withdrawn + $4
		WHERE id = $1`,
		id, adj.Balance, adj.TotalEarned, adj.TotalWithdrawn,
	)
}

// SumPendingWithdrawals возвращает сумму незавершённых заявок на вывод.
func (t *pgTx) SumPendingWithdrawals(partyID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.queryRow(`
		SELECT COALESCE(SUM(amount_usd), 0)
		FROM withdrawal_requests
		WHERE party_id = $1 AND status IN ('pending', 'processing')`, partyID).Scan(&sum)
	return sum, err
}

func partyDest(p *models.Party) []any {
	return []any{&p.ID, &p.Username, &p.FirstName, &p.AccessHash, &p.Balance, &p.FrozenBalance, &p.TotalEarned, &p.TotalWithdrawn, &p.CreatedAt}
}
