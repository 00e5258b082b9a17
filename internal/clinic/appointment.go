package clinic

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	clinicdb "github.com/DogStark/petchain-api/internal/clinic/db"
	"github.com/DogStark/petchain-api/pkg/event"
)

// scheduleAppointmentRequest は予約作成リクエストのJSON構造。
type scheduleAppointmentRequest struct {
	// PetID は対象ペットのID。
	PetID string `json:"pet_id" binding:"required"`
	// VetID は担当獣医師のID。
	VetID string `json:"vet_id" binding:"required"`
	// DateTime は予約日時（RFC3339形式）。
	DateTime time.Time `json:"date_time" binding:"required"`
	// Reason は来院理由。
	Reason string `json:"reason"`
}

// rescheduleAppointmentRequest は予約変更リクエストのJSON構造。
type rescheduleAppointmentRequest struct {
	// DateTime は新しい予約日時（RFC3339形式）。
	DateTime time.Time `json:"date_time" binding:"required"`
}

// cancelAppointmentRequest は予約キャンセルリクエストのJSON構造。
type cancelAppointmentRequest struct {
	// Reason はキャンセル理由。
	Reason string `json:"reason"`
}

// appointmentResponse は予約のJSONレスポンス構造。
type appointmentResponse struct {
	// ID は予約の一意識別子。
	ID string `json:"id"`
	// PetID は対象ペットのID。
	PetID string `json:"pet_id"`
	// OwnerID は飼い主のID。
	OwnerID string `json:"owner_id"`
	// VetID は担当獣医師のID。
	VetID string `json:"vet_id"`
	// DateTime は予約日時（RFC3339形式）。
	DateTime string `json:"date_time"`
	// Reason は来院理由。
	Reason string `json:"reason,omitempty"`
	// Status は予約の状態。
	Status string `json:"status"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toAppointmentResponse はDB行をJSONレスポンスに変換する。
func toAppointmentResponse(a clinicdb.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:        a.ID,
		PetID:     a.PetID,
		OwnerID:   a.OwnerID,
		VetID:     a.VetID,
		DateTime:  a.DateTime.Format(time.RFC3339),
		Reason:    nullStringValue(a.Reason),
		Status:    a.Status,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

// toAppointmentResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toAppointmentResponses(appointments []clinicdb.Appointment) []appointmentResponse {
	responses := make([]appointmentResponse, 0, len(appointments))
	for _, a := range appointments {
		responses = append(responses, toAppointmentResponse(a))
	}
	return responses
}

// handleScheduleAppointment は予約を作成し、AppointmentScheduledイベントを
// 発行するハンドラ。
func (s *Server) handleScheduleAppointment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scheduleAppointmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		pet, err := s.queries.GetPetByID(c.Request.Context(), req.PetID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ペットが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ペットの確認に失敗しました"})
			log.Printf("ペット取得エラー: %v", err)
			return
		}

		if _, err := s.queries.GetVetByID(c.Request.Context(), req.VetID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "獣医師が見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "獣医師の確認に失敗しました"})
			log.Printf("獣医師取得エラー: %v", err)
			return
		}

		appointmentID := uuid.New().String()
		if err := s.queries.CreateAppointment(c.Request.Context(), clinicdb.CreateAppointmentParams{
			ID:       appointmentID,
			PetID:    req.PetID,
			OwnerID:  pet.OwnerID,
			VetID:    req.VetID,
			DateTime: req.DateTime.UTC(),
			Reason:   nullString(req.Reason),
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "予約の作成に失敗しました"})
			log.Printf("予約作成エラー: %v", err)
			return
		}

		s.publish(event.KindAppointmentScheduled, event.AppointmentScheduledData{
			AppointmentID: appointmentID,
			OwnerID:       pet.OwnerID,
			VetID:         req.VetID,
			PetName:       pet.Name,
			DateTime:      req.DateTime.UTC(),
		})

		c.JSON(http.StatusCreated, gin.H{"id": appointmentID, "message": "予約を作成しました"})
	}
}

// handleGetAppointment は指定された予約を返すハンドラ。
func (s *Server) handleGetAppointment() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := s.queries.GetAppointmentByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "予約が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "予約の取得に失敗しました"})
			log.Printf("予約取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toAppointmentResponse(a))
	}
}

// handleRescheduleAppointment は予約日時を変更し、AppointmentRescheduled
// イベントを発行するハンドラ。キャンセル済みの予約は変更できない。
func (s *Server) handleRescheduleAppointment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rescheduleAppointmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		appointmentID := c.Param("id")
		a, err := s.queries.GetAppointmentByID(c.Request.Context(), appointmentID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "予約が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "予約の取得に失敗しました"})
			log.Printf("予約取得エラー: %v", err)
			return
		}

		affected, err := s.queries.RescheduleAppointment(c.Request.Context(), appointmentID, req.DateTime.UTC())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "予約の変更に失敗しました"})
			log.Printf("予約変更エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "キャンセル済みの予約は変更できません"})
			return
		}

		pet, err := s.queries.GetPetByID(c.Request.Context(), a.PetID)
		if err != nil {
			log.Printf("ペット取得エラー: %v", err)
		}

		s.publish(event.KindAppointmentRescheduled, event.AppointmentRescheduledData{
			AppointmentID: appointmentID,
			OwnerID:       a.OwnerID,
			VetID:         a.VetID,
			PetName:       pet.Name,
			OldDateTime:   a.DateTime,
			NewDateTime:   req.DateTime.UTC(),
		})

		c.JSON(http.StatusOK, gin.H{"message": "予約を変更しました"})
	}
}

// handleCancelAppointment は予約をキャンセルし、AppointmentCancelled
// イベントを発行するハンドラ。キャンセル済みへの再実行は409を返す。
func (s *Server) handleCancelAppointment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cancelAppointmentRequest
		// キャンセル理由は省略可能
		_ = c.ShouldBindJSON(&req)

		appointmentID := c.Param("id")
		a, err := s.queries.GetAppointmentByID(c.Request.Context(), appointmentID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "予約が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "予約の取得に失敗しました"})
			log.Printf("予約取得エラー: %v", err)
			return
		}

		affected, err := s.queries.CancelAppointment(c.Request.Context(), appointmentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "予約のキャンセルに失敗しました"})
			log.Printf("予約キャンセルエラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "予約は既にキャンセルされています"})
			return
		}

		pet, err := s.queries.GetPetByID(c.Request.Context(), a.PetID)
		if err != nil {
			log.Printf("ペット取得エラー: %v", err)
		}

		s.publish(event.KindAppointmentCancelled, event.AppointmentCancelledData{
			AppointmentID: appointmentID,
			OwnerID:       a.OwnerID,
			VetID:         a.VetID,
			PetName:       pet.Name,
			DateTime:      a.DateTime,
			Reason:        req.Reason,
		})

		c.JSON(http.StatusOK, gin.H{"message": "予約をキャンセルしました"})
	}
}

// publish はドメインイベントを生成して発行する。
// イベントの生成失敗はログに記録し、呼び出し元の処理は継続する。
func (s *Server) publish(kind event.Kind, data any) {
	e, err := event.New(kind, data)
	if err != nil {
		log.Printf("[Clinic] イベントの生成に失敗: kind=%s, error=%v", kind, err)
		return
	}
	s.bus.Publish(e)
}
