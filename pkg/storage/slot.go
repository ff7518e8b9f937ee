package storage

import (
	"database/sql"
	"strings"

	"tgads_go/models"

	"github.com/shopspring/decimal"
)

const slotColumns = `id, channel_id, access_hash, owner_id, title, username, price_standard, price_pinned, status, is_bot_admin,
	subscribers, avg_views, err, quality_score, quality_label, suspicion_score, is_suspicious,
	suggested_price_post, suggested_price_pin, stats_updated_at,
	total_reviews, average_rating, completed_orders, violation_count, total_penalty_amount, created_at`

func (t *pgTx) CreateSlot(s *models.Slot) error {
	err := t.queryRow(`
		INSERT INTO slots (channel_id, access_hash, owner_id, title, username, price_standard, price_pinned, status, is_bot_admin,
			subscribers, avg_views, err, quality_score, quality_label, suspicion_score, is_suspicious,
			suggested_price_post, suggested_price_pin, stats_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at`,
		s.ChannelID, s.AccessHash, s.OwnerID, s.Title, s.Username, s.PriceStandard, s.PricePinned, s.Status, s.IsBotAdmin,
		s.Stats.Subscribers, s.Stats.AvgViews, s.Stats.ERR, s.Stats.QualityScore, s.Stats.QualityLabel,
		s.Stats.SuspicionScore, s.Stats.IsSuspicious, s.Stats.SuggestedPost, s.Stats.SuggestedPin, s.Stats.UpdatedAt,
	).Scan(&s.ID, &s.CreatedAt)
	if uniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (t *pgTx) GetSlot(id int64) (*models.Slot, error) {
	return scanSlot(t.queryRow(`SELECT `+slotColumns+` FROM slots WHERE id = $1`, id))
}

func (t *pgTx) GetSlotByChannel(channelID int64) (*models.Slot, error) {
	return scanSlot(t.queryRow(`SELECT `+slotColumns+` FROM slots WHERE channel_id = $1`, channelID))
}

// ListSlots возвращает каналы по фильтру, отсортированные по id.
func (t *pgTx) ListSlots(f SlotFilter) ([]models.Slot, error) {
	var where []string
	var args []any
	if f.OwnerID != 0 {
		args = append(args, f.OwnerID)
		where = append(where, "owner_id = $1")
	}
	if f.OnlyListed {
		where = append(where, "status = 'active'", "is_suspicious = FALSE")
	}
	query := `SELECT ` + slotColumns + ` FROM slots`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := t.query(query+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

func (t *pgTx) UpdateSlotPrices(id int64, standard, pinned decimal.Decimal) error {
	return t.execOne(ErrNotFound, `UPDATE slots SET price_standard = $2, price_pinned = $3 WHERE id = $1`, id, standard, pinned)
}

func (t *pgTx) UpdateSlotStats(id int64, st models.SlotStats) error {
	return t.execOne(ErrNotFound, `
		UPDATE slots SET subscribers = $2, avg_views = $3, err = $4, quality_score = $5, quality_label = $6,
			suspicion_score = $7, is_suspicious = $8, suggested_price_post = $9, suggested_price_pin = $10,
			stats_updated_at = $11
		WHERE id = $1`,
		id, st.Subscribers, st.AvgViews, st.ERR, st.QualityScore, st.QualityLabel,
		st.SuspicionScore, st.IsSuspicious, st.SuggestedPost, st.SuggestedPin, st.UpdatedAt,
	)
}

// RecordSlotViolation увеличивает счётчик нарушений и сумму штрафов канала.
func (t *pgTx) RecordSlotViolation(id int64, penalty decimal.Decimal) error {
	return t.execOne(ErrNotFound, `
		UPDATE slots SET violation_count = violation_count + 1, total_penalty_amount = total_penalty_amount + $2
		WHERE id = $1`, id, penalty)
}

// RecordSlotReview пересчитывает средний рейтинг и счётчик завершённых заказов.
func (t *pgTx) RecordSlotReview(id int64, rating int) error {
	return t.execOne(ErrNotFound, `
		UPDATE slots SET
			average_rating = (average_rating * total_reviews + $2) / (total_reviews + 1),
			total_reviews = total_reviews + 1,
			completed_orders = completed_orders + 1
		WHERE id = $1`, id, rating)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*models.Slot, error) {
	var s models.Slot
	var updated sql.NullTime
	err := row.Scan(
		&s.ID, &s.ChannelID, &s.AccessHash, &s.OwnerID, &s.Title, &s.Username,
		&s.PriceStandard, &s.PricePinned, &s.Status, &s.IsBotAdmin,
		&s.Stats.Subscribers, &s.Stats.AvgViews, &s.Stats.ERR, &s.Stats.QualityScore, &s.Stats.QualityLabel,
		&s.Stats.SuspicionScore, &s.Stats.IsSuspicious, &s.Stats.SuggestedPost, &s.Stats.SuggestedPin, &updated,
		&s.TotalReviews, &s.AverageRating, &s.CompletedOrders, &s.ViolationCount, &s.TotalPenaltyAmount, &s.CreatedAt,
	)
	if err != nil {
		return nil, noRows(err)
	}
	s.Stats.UpdatedAt = nullTime(updated)
	return &s, nil
}
