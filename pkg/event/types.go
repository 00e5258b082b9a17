package event

import (
	"encoding/json"
	"time"
)

// Role は通知の配信対象となるユーザーの役割を表す。
type Role string

const (
	// RoleOwner は飼い主を表す。
	RoleOwner Role = "owner"
	// RoleVet は獣医師を表す。
	RoleVet Role = "vet"
	// RoleAdmin はクリニック管理者を表す。
	RoleAdmin Role = "admin"
)

// Kind はドメインイベントの種類を表す。
// 文字列キーの動的ディスパッチを避けるため、イベントの種類は
// この型の定数による閉じた集合として定義する。
type Kind string

const (
	// KindVaccinationDue はワクチン接種の期限が近づいたことを表す。
	KindVaccinationDue Kind = "vaccination_due"
	// KindTreatmentAdded は新しい治療が登録されたことを表す。
	KindTreatmentAdded Kind = "treatment_added"
	// KindAppointmentScheduled は予約が作成されたことを表す。
	KindAppointmentScheduled Kind = "appointment_scheduled"
	// KindAppointmentRescheduled は予約日時が変更されたことを表す。
	KindAppointmentRescheduled Kind = "appointment_rescheduled"
	// KindAppointmentCancelled は予約がキャンセルされたことを表す。
	KindAppointmentCancelled Kind = "appointment_cancelled"
	// KindAppointmentReminder は24時間以内の予約に対するリマインダーを表す。
	KindAppointmentReminder Kind = "appointment_reminder"
	// KindTreatmentFollowUp は治療後のフォローアップ時期が来たことを表す。
	KindTreatmentFollowUp Kind = "treatment_followup"
	// KindMedicationReminder は投薬時刻のリマインダーを表す。
	KindMedicationReminder Kind = "medication_reminder"
	// KindTestResultsReady は検査結果が確認可能になったことを表す。
	KindTestResultsReady Kind = "test_results_ready"
	// KindEmergencyAlert はクリニック全体への緊急アラートを表す。
	KindEmergencyAlert Kind = "emergency_alert"
	// KindInventoryLow は在庫数が閾値を下回ったことを表す。
	KindInventoryLow Kind = "inventory_low"
)

// Event は一度発行されたら変更されない不変のドメインイベント。
// Dataには通知の組み立てに必要な識別子と事実のみを含め、
// 永続化層のエンティティそのものは含めない。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// Kind はイベントの種類。
	Kind Kind `json:"kind"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// OccurredAt はイベントが発生した日時。
	OccurredAt time.Time `json:"occurred_at"`
}

// VaccinationDueData はVaccinationDueイベントのデータ。
type VaccinationDueData struct {
	// PetID は対象ペットのID。
	PetID string `json:"pet_id"`
	// PetName はペットの名前。
	PetName string `json:"pet_name"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id"`
	// VaccinationType はワクチンの種類。
	VaccinationType string `json:"vaccination_type"`
	// DueDate は接種期限日。
	DueDate time.Time `json:"due_date"`
}

// TreatmentAddedData はTreatmentAddedイベントのデータ。
type TreatmentAddedData struct {
	// PetID は対象ペットのID。
	PetID string `json:"pet_id"`
	// PetName はペットの名前。
	PetName string `json:"pet_name"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id"`
	// TreatmentName は治療の名称。
	TreatmentName string `json:"treatment_name"`
	// VetID は治療を担当した獣医師のID。
	VetID string `json:"vet_id"`
}

// AppointmentScheduledData はAppointmentScheduledイベントのデータ。
type AppointmentScheduledData struct {
	// AppointmentID は予約のID。
	AppointmentID string `json:"appointment_id"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id"`
	// VetID は担当獣医師のID。
	VetID string `json:"vet_id"`
	// PetName はペットの名前。
	PetName string `json:"pet_name"`
	// DateTime は予約日時。
	DateTime time.Time `json:"date_time"`
}

// AppointmentRescheduledData はAppointmentRescheduledイベントのデータ。
type AppointmentRescheduledData struct {
	// AppointmentID は予約のID。
	AppointmentID string `json:"appointment_id"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id"`
	// VetID は担当獣医師のID。
	VetID string `json:"vet_id"`
	// PetName はペットの名前。
	PetName string `json:"pet_name"`
	// OldDateTime は変更前の予約日時。
	OldDateTime time.Time `json:"old_date_time"`
	// NewDateTime は変更後の予約日時。
	NewDateTime time.Time `json:"new_date_time"`
}

// AppointmentCancelledData はAppointmentCancelledイベントのデータ。
type AppointmentCancelledData struct {
	// AppointmentID は予約のID。
	AppointmentID string `json:"appointment_id"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id"`
	// VetID は担当獣医師のID。
	VetID string `json:"vet_id"`
	// PetName はペットの名前。
	PetName string `json:"pet_name"`
	// DateTime はキャンセルされた予約の日時。
	DateTime time.Time `json:"date_time"`
	// Reason はキャンセル理由。
	Reason string `json:"reason,omitempty"`
}

// AppointmentReminderData はAppointmentReminderイベントのデータ。
type AppointmentReminderData struct {
	// AppointmentID は予約のID。
	AppointmentID string `json:"appointment_id"`
	// PetID は対象ペットのID。
	PetID string `json:"pet_id"`
	// PetName はペットの名前。
	PetName string `json:"pet_name"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id"`
	// VetName は担当獣医師の名前。
	VetName string `json:"vet_name"`
	// DateTime は予約日時。
	DateTime time.Time `json:"date_time"`
}

// TreatmentFollowUpData はTreatmentFollowUpイベントのデータ。
type TreatmentFollowUpData struct {
	// TreatmentID は治療のID。
	TreatmentID string `json:"treatment_id"`
	// PetID は対象ペットのID。
	PetID string `json:"pet_id"`
	// PetName はペットの名前。
	PetName string `json:"pet_name"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id"`
	// TreatmentName は治療の名称。
	TreatmentName string `json:"treatment_name"`
	// FollowUpDate はフォローアップ予定日。
	FollowUpDate time.Time `json:"follow_up_date"`
}

// MedicationReminderData はMedicationReminderイベントのデータ。
type MedicationReminderData struct {
	// PetID は対象ペットのID。
	PetID string `json:"pet_id"`
	// PetName はペットの名前。
	PetName string `json:"pet_name"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id"`
	// MedicationName は薬の名称。
	MedicationName string `json:"medication_name"`
	// Dosage は投薬量。
	Dosage string `json:"dosage"`
	// ReminderTime はリマインダーの時刻。
	ReminderTime time.Time `json:"reminder_time"`
	// Instructions は投薬時の注意事項。
	Instructions string `json:"instructions,omitempty"`
}

// TestResultsReadyData はTestResultsReadyイベントのデータ。
type TestResultsReadyData struct {
	// TestID は検査のID。
	TestID string `json:"test_id"`
	// PetID は対象ペットのID。
	PetID string `json:"pet_id"`
	// PetName はペットの名前。
	PetName string `json:"pet_name"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id"`
	// VetID は担当獣医師のID。
	VetID string `json:"vet_id"`
	// TestType は検査の種類。
	TestType string `json:"test_type"`
	// ResultSummary は検査結果の要約。
	ResultSummary string `json:"result_summary"`
	// ResultDate は結果が確定した日時。
	ResultDate time.Time `json:"result_date"`
}

// EmergencyAlertData はEmergencyAlertイベントのデータ。
type EmergencyAlertData struct {
	// ClinicID はアラートを発したクリニックのID。
	ClinicID string `json:"clinic_id"`
	// AlertType はアラートの種類。
	AlertType string `json:"alert_type"`
	// Message はアラートメッセージ。
	Message string `json:"message"`
	// Severity は深刻度（low / medium / high / critical）。
	Severity string `json:"severity"`
	// AffectedRoles は配信対象となる役割の一覧。
	AffectedRoles []Role `json:"affected_roles"`
}

// InventoryLowData はInventoryLowイベントのデータ。
type InventoryLowData struct {
	// ItemID は在庫品目のID。
	ItemID string `json:"item_id"`
	// ItemName は在庫品目の名称。
	ItemName string `json:"item_name"`
	// CurrentStock は現在の在庫数。
	CurrentStock int `json:"current_stock"`
	// MinThreshold は発注の閾値。
	MinThreshold int `json:"min_threshold"`
	// Urgent は緊急の補充が必要かどうか。
	Urgent bool `json:"urgent"`
}
