package storage

import "tgads_go/models"

// OwnerStats считает заработок, штрафы и заказы владельца по всем его каналам.
func (t *pgTx) OwnerStats(ownerID int64) (*models.OwnerStats, error) {
	st := models.OwnerStats{OwnerID: ownerID}
	err := t.queryRow(`
		SELECT COUNT(*), COALESCE(SUM(violation_count), 0), COALESCE(SUM(total_penalty_amount), 0)
		FROM slots WHERE owner_id = $1`, ownerID,
	).Scan(&st.Slots, &st.Violations, &st.Penalties)
	if err != nil {
		return nil, err
	}
	err = t.queryRow(`
		SELECT COALESCE(SUM(p.amount), 0)
		FROM daily_payouts p JOIN orders o ON o.id = p.order_id
		WHERE o.seller_id = $1 AND p.status = 'paid'`, ownerID,
	).Scan(&st.Earned)
	if err != nil {
		return nil, err
	}
	err = t.queryRow(`
		SELECT COUNT(*) FILTER (WHERE status = 'active'), COUNT(*) FILTER (WHERE status = 'completed')
		FROM orders WHERE seller_id = $1`, ownerID,
	).Scan(&st.ActiveOrders, &st.CompletedOrders)
	if err != nil {
		return nil, err
	}
	st.Net = st.Earned.Sub(st.Penalties)
	return &st, nil
}
