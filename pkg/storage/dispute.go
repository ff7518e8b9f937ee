package storage

import (
	"database/sql"

	"tgads_go/models"
)

func (t *pgTx) CreateDispute(d *models.Dispute) error {
	var evidence any
	if len(d.Evidence) > 0 {
		evidence = []byte(d.Evidence)
	}
	return t.queryRow(`
		INSERT INTO disputes (order_id, opened_by, reason, evidence, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`, d.OrderID, d.OpenedBy, d.Reason, evidence, d.Status,
	).Scan(&d.ID, &d.CreatedAt)
}

func (t *pgTx) GetDispute(id int64) (*models.Dispute, error) {
	var d models.Dispute
	var evidence []byte
	var resolvedBy sql.NullInt64
	var resolvedAt sql.NullTime
	err := t.queryRow(`
		SELECT id, order_id, opened_by, reason, evidence, status, resolution, resolved_by, admin_notes, created_at, resolved_at
		FROM disputes WHERE id = $1 FOR UPDATE`, id,
	).Scan(&d.ID, &d.OrderID, &d.OpenedBy, &d.Reason, &evidence, &d.Status, &d.Resolution,
		&resolvedBy, &d.AdminNotes, &d.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, noRows(err)
	}
	d.Evidence = evidence
	if resolvedBy.Valid {
		v := resolvedBy.Int64
		d.ResolvedBy = &v
	}
	d.ResolvedAt = nullTime(resolvedAt)
	return &d, nil
}

func (t *pgTx) UpdateDispute(d *models.Dispute) error {
	return t.execOne(ErrNotFound, `
		UPDATE disputes SET status = $2, resolution = $3, resolved_by = $4, admin_notes = $5, resolved_at = $6
		WHERE id = $1`, d.ID, d.Status, d.Resolution, d.ResolvedBy, d.AdminNotes, d.ResolvedAt)
}
