package notification

import (
	"context"
	"log"
	"time"

	"github.com/DogStark/petchain-api/pkg/event"
)

// DueAppointment は24時間以内に予約日時を迎え、リマインダー未送信の予約。
type DueAppointment struct {
	// AppointmentID は予約のID。
	AppointmentID string
	// PetID は対象ペットのID。
	PetID string
	// PetName はペットの名前。
	PetName string
	// OwnerID は飼い主のユーザーID。
	OwnerID string
	// VetName は担当獣医師の名前。
	VetName string
	// DateTime は予約日時。
	DateTime time.Time
}

// DueVaccination は接種期限が7日以内に迫り、リマインダー未送信のワクチン。
type DueVaccination struct {
	// PetID は対象ペットのID。
	PetID string
	// PetName はペットの名前。
	PetName string
	// OwnerID は飼い主のユーザーID。
	OwnerID string
	// VaccinationType はワクチンの種類。
	VaccinationType string
	// DueDate は接種期限日。
	DueDate time.Time
}

// DueTreatmentFollowUp はフォローアップ予定日が到来し、通知未送信の治療。
type DueTreatmentFollowUp struct {
	// TreatmentID は治療のID。
	TreatmentID string
	// PetID は対象ペットのID。
	PetID string
	// PetName はペットの名前。
	PetName string
	// OwnerID は飼い主のユーザーID。
	OwnerID string
	// TreatmentName は治療の名称。
	TreatmentName string
	// FollowUpDate はフォローアップ予定日。
	FollowUpDate time.Time
}

// ReminderSource は期限が到来したリマインダー対象を取得する。
// 各Claimメソッドは対象行の取得と送信済みフラグの更新を同一トランザクション
// で行い、同じ行を二度返さないこと。
type ReminderSource interface {
	// ClaimDueAppointmentReminders は24時間以内の未送信予約を取得する。
	ClaimDueAppointmentReminders(ctx context.Context, now time.Time) ([]DueAppointment, error)
	// ClaimDueVaccinations は期限が7日以内の未送信ワクチンを取得する。
	ClaimDueVaccinations(ctx context.Context, now time.Time) ([]DueVaccination, error)
	// ClaimDueTreatmentFollowUps は予定日が到来した未送信のフォローアップを取得する。
	ClaimDueTreatmentFollowUps(ctx context.Context, now time.Time) ([]DueTreatmentFollowUp, error)
}

// 各リマインダーの既定の実行時刻（時）。
const (
	defaultAppointmentHour = 8
	defaultVaccinationHour = 9
	defaultFollowUpHour    = 10
)

// Scanner は期限が到来したリマインダー対象を定期的に走査し、
// 対応するドメインイベントを発行する。イベントの発行後の処理
// （通知の生成・保存・配信）は通常のイベント経路と同じ。
type Scanner struct {
	// source はリマインダー対象の取得元。
	source ReminderSource
	// bus はイベントの発行先。
	bus *event.Bus
	// now は現在時刻の取得関数。テストで差し替える。
	now func() time.Time
	// appointmentHour は予約リマインダーの実行時刻（時）。
	appointmentHour int
	// vaccinationHour はワクチンリマインダーの実行時刻（時）。
	vaccinationHour int
	// followUpHour はフォローアップリマインダーの実行時刻（時）。
	followUpHour int
}

// NewScanner は新しいReminder Scannerを生成する。
func NewScanner(source ReminderSource, bus *event.Bus) *Scanner {
	return &Scanner{
		source:          source,
		bus:             bus,
		now:             time.Now,
		appointmentHour: defaultAppointmentHour,
		vaccinationHour: defaultVaccinationHour,
		followUpHour:    defaultFollowUpHour,
	}
}

// Start は各リマインダー種別の走査ループを起動する。
// 種別ごとに独立したゴルーチンで動作し、一方の失敗は他方に影響しない。
// ctxのキャンセルで全ループが停止する。
func (s *Scanner) Start(ctx context.Context) {
	go s.runDaily(ctx, s.appointmentHour, s.ScanAppointmentReminders)
	go s.runDaily(ctx, s.vaccinationHour, s.ScanVaccinationReminders)
	go s.runDaily(ctx, s.followUpHour, s.ScanTreatmentFollowUps)
}

// runDaily は毎日指定時刻にscanを実行するループ。
func (s *Scanner) runDaily(ctx context.Context, hour int, scan func(ctx context.Context) error) {
	for {
		timer := time.NewTimer(s.untilNext(hour))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := scan(ctx); err != nil {
			log.Printf("[Scanner] リマインダー走査に失敗: %v", err)
		}
	}
}

// untilNext は次に指定時刻（時）を迎えるまでの時間を返す。
func (s *Scanner) untilNext(hour int) time.Duration {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// ScanAppointmentReminders は24時間以内の予約に対してリマインダー
// イベントを発行する。1件の発行失敗は残りの件の処理を妨げない。
func (s *Scanner) ScanAppointmentReminders(ctx context.Context) error {
	due, err := s.source.ClaimDueAppointmentReminders(ctx, s.now())
	if err != nil {
		return err
	}

	for _, a := range due {
		e, err := event.New(event.KindAppointmentReminder, event.AppointmentReminderData{
			AppointmentID: a.AppointmentID,
			PetID:         a.PetID,
			PetName:       a.PetName,
			OwnerID:       a.OwnerID,
			VetName:       a.VetName,
			DateTime:      a.DateTime,
		})
		if err != nil {
			log.Printf("[Scanner] 予約リマインダーイベントの生成に失敗: appointment_id=%s, error=%v", a.AppointmentID, err)
			continue
		}
		s.bus.Publish(e)
	}

	if len(due) > 0 {
		log.Printf("[Scanner] 予約リマインダーを発行しました: count=%d", len(due))
	}
	return nil
}

// ScanVaccinationReminders は接種期限が迫ったワクチンに対して
// イベントを発行する。
func (s *Scanner) ScanVaccinationReminders(ctx context.Context) error {
	due, err := s.source.ClaimDueVaccinations(ctx, s.now())
	if err != nil {
		return err
	}

	for _, v := range due {
		e, err := event.New(event.KindVaccinationDue, event.VaccinationDueData{
			PetID:           v.PetID,
			PetName:         v.PetName,
			OwnerID:         v.OwnerID,
			VaccinationType: v.VaccinationType,
			DueDate:         v.DueDate,
		})
		if err != nil {
			log.Printf("[Scanner] ワクチンリマインダーイベントの生成に失敗: pet_id=%s, error=%v", v.PetID, err)
			continue
		}
		s.bus.Publish(e)
	}

	if len(due) > 0 {
		log.Printf("[Scanner] ワクチンリマインダーを発行しました: count=%d", len(due))
	}
	return nil
}

// ScanTreatmentFollowUps はフォローアップ予定日が到来した治療に対して
// イベントを発行する。
func (s *Scanner) ScanTreatmentFollowUps(ctx context.Context) error {
	due, err := s.source.ClaimDueTreatmentFollowUps(ctx, s.now())
	if err != nil {
		return err
	}

	for _, t := range due {
		e, err := event.New(event.KindTreatmentFollowUp, event.TreatmentFollowUpData{
			TreatmentID:   t.TreatmentID,
			PetID:         t.PetID,
			PetName:       t.PetName,
			OwnerID:       t.OwnerID,
			TreatmentName: t.TreatmentName,
			FollowUpDate:  t.FollowUpDate,
		})
		if err != nil {
			log.Printf("[Scanner] フォローアップイベントの生成に失敗: treatment_id=%s, error=%v", t.TreatmentID, err)
			continue
		}
		s.bus.Publish(e)
	}

	if len(due) > 0 {
		log.Printf("[Scanner] 治療フォローアップリマインダーを発行しました: count=%d", len(due))
	}
	return nil
}
