package db

import (
	"context"
	"database/sql"
	"time"
)

const createVaccination = `
INSERT INTO vaccinations (id, pet_id, vaccination_type, administered_date, due_date)
VALUES (?, ?, ?, ?, ?)
`

// CreateVaccinationParams はCreateVaccinationのパラメータ。
type CreateVaccinationParams struct {
	ID               string
	PetID            string
	VaccinationType  string
	AdministeredDate sql.NullTime
	DueDate          time.Time
}

// CreateVaccination はワクチン接種記録を登録する。
func (q *Queries) CreateVaccination(ctx context.Context, arg CreateVaccinationParams) error {
	_, err := q.db.ExecContext(ctx, createVaccination,
		arg.ID, arg.PetID, arg.VaccinationType, arg.AdministeredDate, arg.DueDate,
	)
	return err
}

const getVaccinationByID = `
SELECT id, pet_id, vaccination_type, administered_date, due_date,
       reminder_sent, created_at
FROM vaccinations WHERE id = ?
`

// GetVaccinationByID は指定されたIDの接種記録を取得する。
func (q *Queries) GetVaccinationByID(ctx context.Context, id string) (Vaccination, error) {
	var v Vaccination
	err := q.db.QueryRowContext(ctx, getVaccinationByID, id).Scan(
		&v.ID, &v.PetID, &v.VaccinationType, &v.AdministeredDate,
		&v.DueDate, &v.ReminderSent, &v.CreatedAt,
	)
	return v, err
}

const listVaccinationsByPetID = `
SELECT id, pet_id, vaccination_type, administered_date, due_date,
       reminder_sent, created_at
FROM vaccinations WHERE pet_id = ? ORDER BY due_date DESC LIMIT ? OFFSET ?
`

// ListVaccinationsByPetID は指定されたペットの接種記録一覧を取得する。
func (q *Queries) ListVaccinationsByPetID(ctx context.Context, petID string, limit, offset int64) ([]Vaccination, error) {
	rows, err := q.db.QueryContext(ctx, listVaccinationsByPetID, petID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var vaccinations []Vaccination
	for rows.Next() {
		var v Vaccination
		if err := rows.Scan(&v.ID, &v.PetID, &v.VaccinationType, &v.AdministeredDate,
			&v.DueDate, &v.ReminderSent, &v.CreatedAt); err != nil {
			return nil, err
		}
		vaccinations = append(vaccinations, v)
	}
	return vaccinations, rows.Err()
}

const deleteVaccination = `DELETE FROM vaccinations WHERE id = ?`

// DeleteVaccination は接種記録を削除し、削除された行数を返す。
func (q *Queries) DeleteVaccination(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteVaccination, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DueVaccinationRow はワクチンリマインダー走査の結果行。
type DueVaccinationRow struct {
	ID              string
	PetID           string
	PetName         string
	OwnerID         string
	VaccinationType string
	DueDate         time.Time
}

const claimDueVaccinations = `
SELECT vc.id, vc.pet_id, p.name, p.owner_id, vc.vaccination_type, vc.due_date
FROM vaccinations vc
JOIN pets p ON p.id = vc.pet_id
WHERE vc.reminder_sent = 0 AND vc.due_date <= ?
`

const markVaccinationReminderSent = `
UPDATE vaccinations SET reminder_sent = 1 WHERE id = ?
`

// ClaimDueVaccinations は接種期限が7日以内に迫ったリマインダー未送信の
// 接種記録を取得し、送信済みフラグを立てる。
// 取得とフラグ更新は同一トランザクションで行うこと（WithTx経由で呼ぶ）。
func (q *Queries) ClaimDueVaccinations(ctx context.Context, now time.Time) ([]DueVaccinationRow, error) {
	rows, err := q.db.QueryContext(ctx, claimDueVaccinations, now.AddDate(0, 0, 7))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var due []DueVaccinationRow
	for rows.Next() {
		var r DueVaccinationRow
		if err := rows.Scan(&r.ID, &r.PetID, &r.PetName, &r.OwnerID, &r.VaccinationType, &r.DueDate); err != nil {
			return nil, err
		}
		due = append(due, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range due {
		if _, err := q.db.ExecContext(ctx, markVaccinationReminderSent, r.ID); err != nil {
			return nil, err
		}
	}
	return due, nil
}
