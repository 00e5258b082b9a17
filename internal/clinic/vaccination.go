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
)

// createVaccinationRequest はワクチン接種記録リクエストのJSON構造。
type createVaccinationRequest struct {
	// PetID は対象ペットのID。
	PetID string `json:"pet_id" binding:"required"`
	// VaccinationType はワクチンの種類。
	VaccinationType string `json:"vaccination_type" binding:"required"`
	// AdministeredDate は接種日（YYYY-MM-DD形式）。未接種の場合は省略。
	AdministeredDate string `json:"administered_date"`
	// DueDate は次回接種期限日（YYYY-MM-DD形式）。
	DueDate string `json:"due_date" binding:"required"`
}

// vaccinationResponse はワクチン接種記録のJSONレスポンス構造。
type vaccinationResponse struct {
	// ID は接種記録の一意識別子。
	ID string `json:"id"`
	// PetID は対象ペットのID。
	PetID string `json:"pet_id"`
	// VaccinationType はワクチンの種類。
	VaccinationType string `json:"vaccination_type"`
	// AdministeredDate は接種日（YYYY-MM-DD形式）。
	AdministeredDate string `json:"administered_date,omitempty"`
	// DueDate は次回接種期限日（YYYY-MM-DD形式）。
	DueDate string `json:"due_date"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toVaccinationResponse はDB行をJSONレスポンスに変換する。
func toVaccinationResponse(v clinicdb.Vaccination) vaccinationResponse {
	resp := vaccinationResponse{
		ID:              v.ID,
		PetID:           v.PetID,
		VaccinationType: v.VaccinationType,
		DueDate:         v.DueDate.Format(dateOnlyLayout),
		CreatedAt:       v.CreatedAt.Format(time.RFC3339),
	}
	if v.AdministeredDate.Valid {
		resp.AdministeredDate = v.AdministeredDate.Time.Format(dateOnlyLayout)
	}
	return resp
}

// toVaccinationResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toVaccinationResponses(vaccinations []clinicdb.Vaccination) []vaccinationResponse {
	responses := make([]vaccinationResponse, 0, len(vaccinations))
	for _, v := range vaccinations {
		responses = append(responses, toVaccinationResponse(v))
	}
	return responses
}

// handleCreateVaccination はワクチン接種記録を登録するハンドラ。
// 期限が迫った際の通知はReminder Scannerが発行する。
func (s *Server) handleCreateVaccination() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createVaccinationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		dueDate, err := time.Parse(dateOnlyLayout, req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "期限日はYYYY-MM-DD形式で指定してください"})
			return
		}
		administeredDate, err := parseBirthDate(req.AdministeredDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "接種日はYYYY-MM-DD形式で指定してください"})
			return
		}

		if _, err := s.queries.GetPetByID(c.Request.Context(), req.PetID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "ペットが見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ペットの確認に失敗しました"})
			log.Printf("ペット取得エラー: %v", err)
			return
		}

		vaccinationID := uuid.New().String()
		if err := s.queries.CreateVaccination(c.Request.Context(), clinicdb.CreateVaccinationParams{
			ID:               vaccinationID,
			PetID:            req.PetID,
			VaccinationType:  req.VaccinationType,
			AdministeredDate: administeredDate,
			DueDate:          dueDate,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "接種記録の登録に失敗しました"})
			log.Printf("接種記録登録エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": vaccinationID, "message": "接種記録を登録しました"})
	}
}

// handleGetVaccination は指定された接種記録を返すハンドラ。
func (s *Server) handleGetVaccination() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := s.queries.GetVaccinationByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "接種記録が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "接種記録の取得に失敗しました"})
			log.Printf("接種記録取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toVaccinationResponse(v))
	}
}

// handleDeleteVaccination は接種記録を削除するハンドラ。
func (s *Server) handleDeleteVaccination() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.DeleteVaccination(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "接種記録の削除に失敗しました"})
			log.Printf("接種記録削除エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "接種記録が見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "接種記録を削除しました"})
	}
}
