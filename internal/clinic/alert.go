package clinic

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DogStark/petchain-api/pkg/event"
)

// emergencyAlertRequest は緊急アラート発行リクエストのJSON構造。
type emergencyAlertRequest struct {
	// ClinicID はアラートを発するクリニックのID。
	ClinicID string `json:"clinic_id" binding:"required"`
	// AlertType はアラートの種類。
	AlertType string `json:"alert_type" binding:"required"`
	// Message はアラートメッセージ。
	Message string `json:"message" binding:"required"`
	// Severity は深刻度（low / medium / high / critical）。
	Severity string `json:"severity" binding:"required,oneof=low medium high critical"`
	// AffectedRoles は配信対象となる役割の一覧。
	AffectedRoles []event.Role `json:"affected_roles" binding:"required,min=1"`
}

// handleEmergencyAlert は緊急アラートイベントを発行するハンドラ。
func (s *Server) handleEmergencyAlert() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req emergencyAlertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		s.publish(event.KindEmergencyAlert, event.EmergencyAlertData{
			ClinicID:      req.ClinicID,
			AlertType:     req.AlertType,
			Message:       req.Message,
			Severity:      req.Severity,
			AffectedRoles: req.AffectedRoles,
		})

		c.JSON(http.StatusAccepted, gin.H{"message": "緊急アラートを発行しました"})
	}
}

// inventoryLowRequest は在庫警告発行リクエストのJSON構造。
type inventoryLowRequest struct {
	// ItemID は在庫品目のID。
	ItemID string `json:"item_id" binding:"required"`
	// ItemName は在庫品目の名称。
	ItemName string `json:"item_name" binding:"required"`
	// CurrentStock は現在の在庫数。
	CurrentStock int `json:"current_stock"`
	// MinThreshold は発注の閾値。
	MinThreshold int `json:"min_threshold" binding:"required"`
	// Urgent は緊急の補充が必要かどうか。
	Urgent bool `json:"urgent"`
}

// handleInventoryLow は在庫警告イベントを発行するハンドラ。
func (s *Server) handleInventoryLow() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req inventoryLowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		s.publish(event.KindInventoryLow, event.InventoryLowData{
			ItemID:       req.ItemID,
			ItemName:     req.ItemName,
			CurrentStock: req.CurrentStock,
			MinThreshold: req.MinThreshold,
			Urgent:       req.Urgent,
		})

		c.JSON(http.StatusAccepted, gin.H{"message": "在庫警告を発行しました"})
	}
}

// testResultsRequest は検査結果通知リクエストのJSON構造。
type testResultsRequest struct {
	// TestID は検査のID。
	TestID string `json:"test_id" binding:"required"`
	// PetID は対象ペットのID。
	PetID string `json:"pet_id" binding:"required"`
	// PetName はペットの名前。
	PetName string `json:"pet_name" binding:"required"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id" binding:"required"`
	// VetID は担当獣医師のID。
	VetID string `json:"vet_id" binding:"required"`
	// TestType は検査の種類。
	TestType string `json:"test_type" binding:"required"`
	// ResultSummary は検査結果の要約。
	ResultSummary string `json:"result_summary" binding:"required"`
	// ResultDate は結果が確定した日時（RFC3339形式）。
	ResultDate time.Time `json:"result_date" binding:"required"`
}

// handleTestResultsReady は検査結果通知イベントを発行するハンドラ。
func (s *Server) handleTestResultsReady() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req testResultsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		s.publish(event.KindTestResultsReady, event.TestResultsReadyData{
			TestID:        req.TestID,
			PetID:         req.PetID,
			PetName:       req.PetName,
			OwnerID:       req.OwnerID,
			VetID:         req.VetID,
			TestType:      req.TestType,
			ResultSummary: req.ResultSummary,
			ResultDate:    req.ResultDate,
		})

		c.JSON(http.StatusAccepted, gin.H{"message": "検査結果通知を発行しました"})
	}
}

// medicationReminderRequest は投薬リマインダーリクエストのJSON構造。
type medicationReminderRequest struct {
	// PetID は対象ペットのID。
	PetID string `json:"pet_id" binding:"required"`
	// PetName はペットの名前。
	PetName string `json:"pet_name" binding:"required"`
	// OwnerID は飼い主のユーザーID。
	OwnerID string `json:"owner_id" binding:"required"`
	// MedicationName は薬の名称。
	MedicationName string `json:"medication_name" binding:"required"`
	// Dosage は投薬量。
	Dosage string `json:"dosage" binding:"required"`
	// ReminderTime はリマインダーの時刻（RFC3339形式）。
	ReminderTime time.Time `json:"reminder_time" binding:"required"`
	// Instructions は投薬時の注意事項。
	Instructions string `json:"instructions"`
}

// handleMedicationReminder は投薬リマインダーイベントを発行するハンドラ。
func (s *Server) handleMedicationReminder() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req medicationReminderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		s.publish(event.KindMedicationReminder, event.MedicationReminderData{
			PetID:          req.PetID,
			PetName:        req.PetName,
			OwnerID:        req.OwnerID,
			MedicationName: req.MedicationName,
			Dosage:         req.Dosage,
			ReminderTime:   req.ReminderTime,
			Instructions:   req.Instructions,
		})

		c.JSON(http.StatusAccepted, gin.H{"message": "投薬リマインダーを発行しました"})
	}
}
