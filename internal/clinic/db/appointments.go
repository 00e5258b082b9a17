package db

import (
	"context"
	"database/sql"
	"time"
)

const createAppointment = `
INSERT INTO appointments (id, pet_id, owner_id, vet_id, date_time, reason)
VALUES (?, ?, ?, ?, ?, ?)
`

// CreateAppointmentParams はCreateAppointmentのパラメータ。
type CreateAppointmentParams struct {
	ID       string
	PetID    string
	OwnerID  string
	VetID    string
	DateTime time.Time
	Reason   sql.NullString
}

// CreateAppointment は予約を作成する。状態はscheduledで登録される。
func (q *Queries) CreateAppointment(ctx context.Context, arg CreateAppointmentParams) error {
	_, err := q.db.ExecContext(ctx, createAppointment,
		arg.ID, arg.PetID, arg.OwnerID, arg.VetID, arg.DateTime, arg.Reason,
	)
	return err
}

const getAppointmentByID = `
SELECT id, pet_id, owner_id, vet_id, date_time, reason, status,
       reminder_sent, created_at, updated_at
FROM appointments WHERE id = ?
`

// GetAppointmentByID は指定されたIDの予約を取得する。
func (q *Queries) GetAppointmentByID(ctx context.Context, id string) (Appointment, error) {
	var a Appointment
	err := q.db.QueryRowContext(ctx, getAppointmentByID, id).Scan(
		&a.ID, &a.PetID, &a.OwnerID, &a.VetID, &a.DateTime, &a.Reason,
		&a.Status, &a.ReminderSent, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

const listAppointmentsByOwnerID = `
SELECT id, pet_id, owner_id, vet_id, date_time, reason, status,
       reminder_sent, created_at, updated_at
FROM appointments WHERE owner_id = ?
ORDER BY date_time DESC LIMIT ? OFFSET ?
`

// ListAppointmentsByOwnerID は指定された飼い主の予約一覧を取得する。
func (q *Queries) ListAppointmentsByOwnerID(ctx context.Context, ownerID string, limit, offset int64) ([]Appointment, error) {
	rows, err := q.db.QueryContext(ctx, listAppointmentsByOwnerID, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanAppointments(rows)
}

const listAppointmentsByVetID = `
SELECT id, pet_id, owner_id, vet_id, date_time, reason, status,
       reminder_sent, created_at, updated_at
FROM appointments WHERE vet_id = ?
ORDER BY date_time DESC LIMIT ? OFFSET ?
`

// ListAppointmentsByVetID は指定された獣医師の予約一覧を取得する。
func (q *Queries) ListAppointmentsByVetID(ctx context.Context, vetID string, limit, offset int64) ([]Appointment, error) {
	rows, err := q.db.QueryContext(ctx, listAppointmentsByVetID, vetID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanAppointments(rows)
}

const rescheduleAppointment = `
UPDATE appointments
SET date_time = ?, status = 'rescheduled', reminder_sent = 0,
    updated_at = (datetime('now'))
WHERE id = ? AND status != 'cancelled'
`

// RescheduleAppointment は予約日時を変更する。キャンセル済みの予約は
// 変更できない。リマインダー送信済みフラグは新日時に対してリセットする。
func (q *Queries) RescheduleAppointment(ctx context.Context, id string, dateTime time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, rescheduleAppointment, dateTime, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const cancelAppointment = `
UPDATE appointments SET status = 'cancelled', updated_at = (datetime('now'))
WHERE id = ? AND status != 'cancelled'
`

// CancelAppointment は予約をキャンセルし、更新された行数を返す。
func (q *Queries) CancelAppointment(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelAppointment, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DueAppointmentRow は予約リマインダー走査の結果行。
// 通知の組み立てに必要な関連エンティティの名前を含む。
type DueAppointmentRow struct {
	ID       string
	PetID    string
	PetName  string
	OwnerID  string
	VetName  string
	DateTime time.Time
}

const claimDueAppointmentReminders = `
SELECT a.id, a.pet_id, p.name, a.owner_id, v.name, a.date_time
FROM appointments a
JOIN pets p ON p.id = a.pet_id
JOIN vets v ON v.id = a.vet_id
WHERE a.reminder_sent = 0
  AND a.status IN ('scheduled', 'rescheduled')
  AND a.date_time > ?
  AND a.date_time <= ?
`

const markAppointmentReminderSent = `
UPDATE appointments SET reminder_sent = 1 WHERE id = ?
`

// ClaimDueAppointmentReminders はnowから24時間以内に予約日時を迎える
// リマインダー未送信の予約を取得し、送信済みフラグを立てる。
// 取得とフラグ更新は同一トランザクションで行うこと（WithTx経由で呼ぶ）。
func (q *Queries) ClaimDueAppointmentReminders(ctx context.Context, now time.Time) ([]DueAppointmentRow, error) {
	rows, err := q.db.QueryContext(ctx, claimDueAppointmentReminders, now, now.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var due []DueAppointmentRow
	for rows.Next() {
		var r DueAppointmentRow
		if err := rows.Scan(&r.ID, &r.PetID, &r.PetName, &r.OwnerID, &r.VetName, &r.DateTime); err != nil {
			return nil, err
		}
		due = append(due, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range due {
		if _, err := q.db.ExecContext(ctx, markAppointmentReminderSent, r.ID); err != nil {
			return nil, err
		}
	}
	return due, nil
}

// scanAppointments はクエリ結果の全行をAppointmentのスライスに変換する。
func scanAppointments(rows *sql.Rows) ([]Appointment, error) {
	var appointments []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PetID, &a.OwnerID, &a.VetID, &a.DateTime,
			&a.Reason, &a.Status, &a.ReminderSent, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}
