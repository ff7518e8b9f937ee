package storage

import "tgads_go/models"

// AddOffer дописывает предложение цены в журнал торга.
func (t *pgTx) AddOffer(o *models.Offer) error {
	return t.queryRow(`
		INSERT INTO order_offers (order_id, author, price) VALUES ($1, $2, $3)
		RETURNING id, created_at`, o.OrderID, o.Author, o.Price,
	).Scan(&o.ID, &o.CreatedAt)
}

func (t *pgTx) ListOffers(orderID int64) ([]models.Offer, error) {
	rows, err := t.query(`
		SELECT id, order_id, author, price, created_at
		FROM order_offers WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		var o models.Offer
		if err := rows.Scan(&o.ID, &o.OrderID, &o.Author, &o.Price, &o.CreatedAt); err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}
