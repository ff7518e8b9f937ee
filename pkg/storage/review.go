package storage

import "tgads_go/models"

// CreateReview сохраняет отзыв. Второй отзыв на тот же заказ даёт ErrDuplicate.
func (t *pgTx) CreateReview(r *models.Review) error {
	err := t.queryRow(`
		INSERT INTO reviews (order_id, slot_id, author_id, rating) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`, r.OrderID, r.SlotID, r.AuthorID, r.Rating,
	).Scan(&r.ID, &r.CreatedAt)
	if uniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (t *pgTx) GetReviewByOrder(orderID int64) (*models.Review, error) {
	var r models.Review
	err := t.queryRow(`
		SELECT id, order_id, slot_id, author_id, rating, created_at
		FROM reviews WHERE order_id = $1`, orderID,
	).Scan(&r.ID, &r.OrderID, &r.SlotID, &r.AuthorID, &r.Rating, &r.CreatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	return &r, nil
}
