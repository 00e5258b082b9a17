package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/DogStark/petchain-api/internal/gateway"
	"github.com/DogStark/petchain-api/pkg/event"
	"github.com/google/uuid"
)

// ErrMalformedEvent はイベントペイロードが不正な場合のエラー。
// 必須フィールドが欠けている、またはJSONとしてデコードできない場合に返す。
var ErrMalformedEvent = errors.New("イベントペイロードが不正です")

// Record は永続化する通知レコード。イベントから生成され、
// 保存後にゲートウェイ経由でライブ配信される。
type Record struct {
	// ID は通知の一意識別子（UUID）
	ID string
	// Type はイベント種別と同じ文字列
	Type string
	// Title は通知のタイトル
	Title string
	// Message は通知メッセージ
	Message string
	// RecipientID は通知先の識別子。RecipientKindにより意味が変わる
	RecipientID string
	// RecipientKind は通知先の種別（user / role / broadcast）
	RecipientKind gateway.RecipientKind
	// RelatedEntityID は通知の対象エンティティのID
	RelatedEntityID string
	// Metadata はイベント固有の付加情報（JSON文字列）
	Metadata string
	// EventName はライブ配信時のイベント名。
	// 通常は"notification"、緊急アラートは"emergency_alert"、
	// 緊急度の高い在庫警告は"urgent_inventory"。
	EventName string
}

// BuildNotifications はドメインイベントから通知レコードを生成する。
// イベント種別により生成されるレコード数が変わる:
//   - appointment_rescheduled / test_results_ready: 飼い主と獣医師の2件
//   - emergency_alert: 影響を受ける役割ごとに1件（役割宛）
//   - inventory_low: 獣医師役割宛の1件
//   - それ以外: 飼い主宛の1件
func BuildNotifications(e event.Event) ([]Record, error) {
	switch e.Kind {
	case event.KindVaccinationDue:
		return buildVaccinationDue(e)
	case event.KindTreatmentAdded:
		return buildTreatmentAdded(e)
	case event.KindAppointmentScheduled:
		return buildAppointmentScheduled(e)
	case event.KindAppointmentRescheduled:
		return buildAppointmentRescheduled(e)
	case event.KindAppointmentCancelled:
		return buildAppointmentCancelled(e)
	case event.KindAppointmentReminder:
		return buildAppointmentReminder(e)
	case event.KindTreatmentFollowUp:
		return buildTreatmentFollowUp(e)
	case event.KindMedicationReminder:
		return buildMedicationReminder(e)
	case event.KindTestResultsReady:
		return buildTestResultsReady(e)
	case event.KindEmergencyAlert:
		return buildEmergencyAlert(e)
	case event.KindInventoryLow:
		return buildInventoryLow(e)
	default:
		return nil, fmt.Errorf("%w: 未知のイベント種別 %q", ErrMalformedEvent, e.Kind)
	}
}

func buildVaccinationDue(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.VaccinationDueData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.PetID == "" || data.OwnerID == "" {
		return nil, fmt.Errorf("%w: petIdとownerIdは必須です", ErrMalformedEvent)
	}
	meta, err := encodeMetadata(map[string]any{
		"vaccinationType": data.VaccinationType,
		"dueDate":         data.DueDate,
	})
	if err != nil {
		return nil, err
	}
	return []Record{{
		ID:              uuid.New().String(),
		Type:            string(e.Kind),
		Title:           "ワクチン接種時期のお知らせ",
		Message:         fmt.Sprintf("%sの%sワクチンの接種予定日は%sです", data.PetName, data.VaccinationType, data.DueDate.Format(dateLayout)),
		RecipientID:     data.OwnerID,
		RecipientKind:   gateway.RecipientUser,
		RelatedEntityID: data.PetID,
		Metadata:        meta,
		EventName:       eventNameNotification,
	}}, nil
}

func buildTreatmentAdded(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.TreatmentAddedData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.PetID == "" || data.OwnerID == "" {
		return nil, fmt.Errorf("%w: petIdとownerIdは必須です", ErrMalformedEvent)
	}
	meta, err := encodeMetadata(map[string]any{
		"treatmentName": data.TreatmentName,
		"vetId":         data.VetID,
	})
	if err != nil {
		return nil, err
	}
	return []Record{{
		ID:              uuid.New().String(),
		Type:            string(e.Kind),
		Title:           "新しい治療記録の追加",
		Message:         fmt.Sprintf("%sに新しい治療（%s）が追加されました", data.PetName, data.TreatmentName),
		RecipientID:     data.OwnerID,
		RecipientKind:   gateway.RecipientUser,
		RelatedEntityID: data.PetID,
		Metadata:        meta,
		EventName:       eventNameNotification,
	}}, nil
}

func buildAppointmentScheduled(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.AppointmentScheduledData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.AppointmentID == "" || data.OwnerID == "" {
		return nil, fmt.Errorf("%w: appointmentIdとownerIdは必須です", ErrMalformedEvent)
	}
	meta, err := encodeMetadata(map[string]any{
		"dateTime": data.DateTime,
		"vetId":    data.VetID,
	})
	if err != nil {
		return nil, err
	}
	return []Record{{
		ID:              uuid.New().String(),
		Type:            string(e.Kind),
		Title:           "予約の確定",
		Message:         fmt.Sprintf("%sの診察予約が%sに確定しました", data.PetName, data.DateTime.Format(dateTimeLayout)),
		RecipientID:     data.OwnerID,
		RecipientKind:   gateway.RecipientUser,
		RelatedEntityID: data.AppointmentID,
		Metadata:        meta,
		EventName:       eventNameNotification,
	}}, nil
}

func buildAppointmentRescheduled(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.AppointmentRescheduledData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.AppointmentID == "" || data.OwnerID == "" || data.VetID == "" {
		return nil, fmt.Errorf("%w: appointmentId・ownerId・vetIdは必須です", ErrMalformedEvent)
	}
	ownerMeta, err := encodeMetadata(map[string]any{
		"oldDateTime": data.OldDateTime,
		"newDateTime": data.NewDateTime,
		"vetId":       data.VetID,
	})
	if err != nil {
		return nil, err
	}
	vetMeta, err := encodeMetadata(map[string]any{
		"oldDateTime": data.OldDateTime,
		"newDateTime": data.NewDateTime,
		"ownerId":     data.OwnerID,
	})
	if err != nil {
		return nil, err
	}
	return []Record{
		{
			ID:              uuid.New().String(),
			Type:            string(e.Kind),
			Title:           "予約の変更",
			Message:         fmt.Sprintf("%sの診察予約が%sから%sに変更されました", data.PetName, data.OldDateTime.Format(dateTimeLayout), data.NewDateTime.Format(dateTimeLayout)),
			RecipientID:     data.OwnerID,
			RecipientKind:   gateway.RecipientUser,
			RelatedEntityID: data.AppointmentID,
			Metadata:        ownerMeta,
			EventName:       eventNameNotification,
		},
		{
			ID:              uuid.New().String(),
			Type:            string(e.Kind),
			Title:           "予約の変更",
			Message:         fmt.Sprintf("担当する%sの診察予約が%sから%sに変更されました", data.PetName, data.OldDateTime.Format(dateTimeLayout), data.NewDateTime.Format(dateTimeLayout)),
			RecipientID:     data.VetID,
			RecipientKind:   gateway.RecipientUser,
			RelatedEntityID: data.AppointmentID,
			Metadata:        vetMeta,
			EventName:       eventNameNotification,
		},
	}, nil
}

func buildAppointmentCancelled(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.AppointmentCancelledData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.AppointmentID == "" || data.OwnerID == "" {
		return nil, fmt.Errorf("%w: appointmentIdとownerIdは必須です", ErrMalformedEvent)
	}
	meta, err := encodeMetadata(map[string]any{
		"dateTime": data.DateTime,
		"reason":   data.Reason,
	})
	if err != nil {
		return nil, err
	}
	return []Record{{
		ID:              uuid.New().String(),
		Type:            string(e.Kind),
		Title:           "予約のキャンセル",
		Message:         fmt.Sprintf("%sの%sの診察予約はキャンセルされました", data.PetName, data.DateTime.Format(dateTimeLayout)),
		RecipientID:     data.OwnerID,
		RecipientKind:   gateway.RecipientUser,
		RelatedEntityID: data.AppointmentID,
		Metadata:        meta,
		EventName:       eventNameNotification,
	}}, nil
}

func buildAppointmentReminder(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.AppointmentReminderData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.AppointmentID == "" || data.OwnerID == "" {
		return nil, fmt.Errorf("%w: appointmentIdとownerIdは必須です", ErrMalformedEvent)
	}
	meta, err := encodeMetadata(map[string]any{
		"dateTime": data.DateTime,
		"vetName":  data.VetName,
	})
	if err != nil {
		return nil, err
	}
	return []Record{{
		ID:              uuid.New().String(),
		Type:            string(e.Kind),
		Title:           "診察予約のリマインダー",
		Message:         fmt.Sprintf("%sの診察予約は明日%sです（担当: %s）", data.PetName, data.DateTime.Format(dateTimeLayout), data.VetName),
		RecipientID:     data.OwnerID,
		RecipientKind:   gateway.RecipientUser,
		RelatedEntityID: data.AppointmentID,
		Metadata:        meta,
		EventName:       eventNameNotification,
	}}, nil
}

func buildTreatmentFollowUp(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.TreatmentFollowUpData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.TreatmentID == "" || data.OwnerID == "" {
		return nil, fmt.Errorf("%w: treatmentIdとownerIdは必須です", ErrMalformedEvent)
	}
	meta, err := encodeMetadata(map[string]any{
		"treatmentName": data.TreatmentName,
		"followUpDate":  data.FollowUpDate,
	})
	if err != nil {
		return nil, err
	}
	return []Record{{
		ID:              uuid.New().String(),
		Type:            string(e.Kind),
		Title:           "治療後の経過確認",
		Message:         fmt.Sprintf("%sの治療（%s）の経過確認の時期です", data.PetName, data.TreatmentName),
		RecipientID:     data.OwnerID,
		RecipientKind:   gateway.RecipientUser,
		RelatedEntityID: data.TreatmentID,
		Metadata:        meta,
		EventName:       eventNameNotification,
	}}, nil
}

func buildMedicationReminder(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.MedicationReminderData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.PetID == "" || data.OwnerID == "" {
		return nil, fmt.Errorf("%w: petIdとownerIdは必須です", ErrMalformedEvent)
	}
	meta, err := encodeMetadata(map[string]any{
		"medicationName": data.MedicationName,
		"dosage":         data.Dosage,
		"reminderTime":   data.ReminderTime,
		"instructions":   data.Instructions,
	})
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("%sに%s（%s）を投与する時間です", data.PetName, data.MedicationName, data.Dosage)
	if data.Instructions != "" {
		msg += "。" + data.Instructions
	}
	return []Record{{
		ID:              uuid.New().String(),
		Type:            string(e.Kind),
		Title:           "投薬リマインダー",
		Message:         msg,
		RecipientID:     data.OwnerID,
		RecipientKind:   gateway.RecipientUser,
		RelatedEntityID: data.PetID,
		Metadata:        meta,
		EventName:       eventNameNotification,
	}}, nil
}

func buildTestResultsReady(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.TestResultsReadyData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.TestID == "" || data.OwnerID == "" || data.VetID == "" {
		return nil, fmt.Errorf("%w: testId・ownerId・vetIdは必須です", ErrMalformedEvent)
	}
	msg := fmt.Sprintf("%sの%s検査の結果が確認できます: %s", data.PetName, data.TestType, data.ResultSummary)
	ownerMeta, err := encodeMetadata(map[string]any{
		"petId":      data.PetID,
		"testType":   data.TestType,
		"resultDate": data.ResultDate,
		"vetId":      data.VetID,
	})
	if err != nil {
		return nil, err
	}
	vetMeta, err := encodeMetadata(map[string]any{
		"petId":      data.PetID,
		"testType":   data.TestType,
		"resultDate": data.ResultDate,
		"ownerId":    data.OwnerID,
	})
	if err != nil {
		return nil, err
	}
	return []Record{
		{
			ID:              uuid.New().String(),
			Type:            string(e.Kind),
			Title:           "検査結果のお知らせ",
			Message:         msg,
			RecipientID:     data.OwnerID,
			RecipientKind:   gateway.RecipientUser,
			RelatedEntityID: data.TestID,
			Metadata:        ownerMeta,
			EventName:       eventNameNotification,
		},
		{
			ID:              uuid.New().String(),
			Type:            string(e.Kind),
			Title:           "検査結果のお知らせ",
			Message:         msg,
			RecipientID:     data.VetID,
			RecipientKind:   gateway.RecipientUser,
			RelatedEntityID: data.TestID,
			Metadata:        vetMeta,
			EventName:       eventNameNotification,
		},
	}, nil
}

func buildEmergencyAlert(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.EmergencyAlertData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.ClinicID == "" || len(data.AffectedRoles) == 0 {
		return nil, fmt.Errorf("%w: clinicIdとaffectedRolesは必須です", ErrMalformedEvent)
	}
	meta, err := encodeMetadata(map[string]any{
		"alertType":     data.AlertType,
		"severity":      data.Severity,
		"affectedRoles": data.AffectedRoles,
	})
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s 緊急アラート: %s", strings.ToUpper(data.Severity), data.AlertType)
	records := make([]Record, 0, len(data.AffectedRoles))
	for _, role := range data.AffectedRoles {
		records = append(records, Record{
			ID:              uuid.New().String(),
			Type:            string(e.Kind),
			Title:           title,
			Message:         data.Message,
			RecipientID:     string(role),
			RecipientKind:   gateway.RecipientRole,
			RelatedEntityID: data.ClinicID,
			Metadata:        meta,
			EventName:       eventNameEmergencyAlert,
		})
	}
	return records, nil
}

func buildInventoryLow(e event.Event) ([]Record, error) {
	data, err := event.DecodeData[event.InventoryLowData](e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.ItemID == "" || data.ItemName == "" {
		return nil, fmt.Errorf("%w: itemIdとitemNameは必須です", ErrMalformedEvent)
	}
	meta, err := encodeMetadata(map[string]any{
		"itemName":     data.ItemName,
		"currentStock": data.CurrentStock,
		"minThreshold": data.MinThreshold,
		"urgent":       data.Urgent,
	})
	if err != nil {
		return nil, err
	}
	title := "在庫残量の警告"
	eventName := eventNameNotification
	if data.Urgent {
		title = "緊急: 在庫残量が危険水準です"
		eventName = eventNameUrgentInventory
	}
	return []Record{{
		ID:              uuid.New().String(),
		Type:            string(e.Kind),
		Title:           title,
		Message:         fmt.Sprintf("%sの在庫が不足しています（残り%d、しきい値: %d）", data.ItemName, data.CurrentStock, data.MinThreshold),
		RecipientID:     string(event.RoleVet),
		RecipientKind:   gateway.RecipientRole,
		RelatedEntityID: data.ItemID,
		Metadata:        meta,
		EventName:       eventName,
	}}, nil
}

// ライブ配信時のイベント名。
const (
	eventNameNotification    = "notification"
	eventNameEmergencyAlert  = "emergency_alert"
	eventNameUrgentInventory = "urgent_inventory"
)

// 通知メッセージ中の日時表記。
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// encodeMetadata は付加情報をJSON文字列に変換する。
func encodeMetadata(m map[string]any) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("付加情報のJSON変換に失敗: %w", err)
	}
	return string(b), nil
}
