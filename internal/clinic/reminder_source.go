package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/DogStark/petchain-api/internal/notification"
)

// ReminderSource は期限が到来したリマインダー対象の取得と送信済みフラグ
// の更新を、同一トランザクションで行う。コミット前にプロセスが落ちた
// 場合はフラグが戻り、次回の走査で再取得される。
// notification.ReminderSourceを実装する。
func (s *Server) ReminderSource() notification.ReminderSource {
	return &reminderSource{server: s}
}

type reminderSource struct {
	server *Server
}

// ClaimDueAppointmentReminders は24時間以内の未送信予約を取得する。
func (r *reminderSource) ClaimDueAppointmentReminders(ctx context.Context, now time.Time) ([]notification.DueAppointment, error) {
	tx, err := r.server.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := r.server.queries.WithTx(tx).ClaimDueAppointmentReminders(ctx, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}

	due := make([]notification.DueAppointment, 0, len(rows))
	for _, row := range rows {
		due = append(due, notification.DueAppointment{
			AppointmentID: row.ID,
			PetID:         row.PetID,
			PetName:       row.PetName,
			OwnerID:       row.OwnerID,
			VetName:       row.VetName,
			DateTime:      row.DateTime,
		})
	}
	return due, nil
}

// ClaimDueVaccinations は期限が7日以内の未送信ワクチンを取得する。
func (r *reminderSource) ClaimDueVaccinations(ctx context.Context, now time.Time) ([]notification.DueVaccination, error) {
	tx, err := r.server.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := r.server.queries.WithTx(tx).ClaimDueVaccinations(ctx, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}

	due := make([]notification.DueVaccination, 0, len(rows))
	for _, row := range rows {
		due = append(due, notification.DueVaccination{
			PetID:           row.PetID,
			PetName:         row.PetName,
			OwnerID:         row.OwnerID,
			VaccinationType: row.VaccinationType,
			DueDate:         row.DueDate,
		})
	}
	return due, nil
}

// ClaimDueTreatmentFollowUps は予定日が到来した未送信のフォローアップを取得する。
func (r *reminderSource) ClaimDueTreatmentFollowUps(ctx context.Context, now time.Time) ([]notification.DueTreatmentFollowUp, error) {
	tx, err := r.server.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := r.server.queries.WithTx(tx).ClaimDueTreatmentFollowUps(ctx, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}

	due := make([]notification.DueTreatmentFollowUp, 0, len(rows))
	for _, row := range rows {
		due = append(due, notification.DueTreatmentFollowUp{
			TreatmentID:   row.ID,
			PetID:         row.PetID,
			PetName:       row.PetName,
			OwnerID:       row.OwnerID,
			TreatmentName: row.Name,
			FollowUpDate:  row.FollowUpDate,
		})
	}
	return due, nil
}
