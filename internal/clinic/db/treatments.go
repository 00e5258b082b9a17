package db

import (
	"context"
	"database/sql"
	"time"
)

const createTreatment = `
INSERT INTO treatments (id, pet_id, vet_id, name, description, date, follow_up_date)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

// CreateTreatmentParams はCreateTreatmentのパラメータ。
type CreateTreatmentParams struct {
	ID           string
	PetID        string
	VetID        string
	Name         string
	Description  sql.NullString
	Date         time.Time
	FollowUpDate sql.NullTime
}

// CreateTreatment は治療記録を登録する。
func (q *Queries) CreateTreatment(ctx context.Context, arg CreateTreatmentParams) error {
	_, err := q.db.ExecContext(ctx, createTreatment,
		arg.ID, arg.PetID, arg.VetID, arg.Name, arg.Description, arg.Date, arg.FollowUpDate,
	)
	return err
}

const getTreatmentByID = `
SELECT id, pet_id, vet_id, name, description, date, follow_up_date,
       followup_sent, created_at
FROM treatments WHERE id = ?
`

// GetTreatmentByID は指定されたIDの治療記録を取得する。
func (q *Queries) GetTreatmentByID(ctx context.Context, id string) (Treatment, error) {
	var t Treatment
	err := q.db.QueryRowContext(ctx, getTreatmentByID, id).Scan(
		&t.ID, &t.PetID, &t.VetID, &t.Name, &t.Description, &t.Date,
		&t.FollowUpDate, &t.FollowupSent, &t.CreatedAt,
	)
	return t, err
}

const listTreatmentsByPetID = `
SELECT id, pet_id, vet_id, name, description, date, follow_up_date,
       followup_sent, created_at
FROM treatments WHERE pet_id = ? ORDER BY date DESC LIMIT ? OFFSET ?
`

// ListTreatmentsByPetID は指定されたペットの治療記録一覧を取得する。
func (q *Queries) ListTreatmentsByPetID(ctx context.Context, petID string, limit, offset int64) ([]Treatment, error) {
	rows, err := q.db.QueryContext(ctx, listTreatmentsByPetID, petID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var treatments []Treatment
	for rows.Next() {
		var t Treatment
		if err := rows.Scan(&t.ID, &t.PetID, &t.VetID, &t.Name, &t.Description,
			&t.Date, &t.FollowUpDate, &t.FollowupSent, &t.CreatedAt); err != nil {
			return nil, err
		}
		treatments = append(treatments, t)
	}
	return treatments, rows.Err()
}

const deleteTreatment = `DELETE FROM treatments WHERE id = ?`

// DeleteTreatment は治療記録を削除し、削除された行数を返す。
func (q *Queries) DeleteTreatment(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTreatment, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DueTreatmentFollowUpRow は治療フォローアップ走査の結果行。
type DueTreatmentFollowUpRow struct {
	ID           string
	PetID        string
	PetName      string
	OwnerID      string
	Name         string
	FollowUpDate time.Time
}

const claimDueTreatmentFollowUps = `
SELECT t.id, t.pet_id, p.name, p.owner_id, t.name, t.follow_up_date
FROM treatments t
JOIN pets p ON p.id = t.pet_id
WHERE t.followup_sent = 0
  AND t.follow_up_date IS NOT NULL
  AND t.follow_up_date <= ?
`

const markTreatmentFollowupSent = `
UPDATE treatments SET followup_sent = 1 WHERE id = ?
`

// ClaimDueTreatmentFollowUps は経過確認予定日が到来した通知未送信の
// 治療記録を取得し、送信済みフラグを立てる。
// 取得とフラグ更新は同一トランザクションで行うこと（WithTx経由で呼ぶ）。
func (q *Queries) ClaimDueTreatmentFollowUps(ctx context.Context, now time.Time) ([]DueTreatmentFollowUpRow, error) {
	rows, err := q.db.QueryContext(ctx, claimDueTreatmentFollowUps, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var due []DueTreatmentFollowUpRow
	for rows.Next() {
		var r DueTreatmentFollowUpRow
		if err := rows.Scan(&r.ID, &r.PetID, &r.PetName, &r.OwnerID, &r.Name, &r.FollowUpDate); err != nil {
			return nil, err
		}
		due = append(due, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range due {
		if _, err := q.db.ExecContext(ctx, markTreatmentFollowupSent, r.ID); err != nil {
			return nil, err
		}
	}
	return due, nil
}
