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

// createTreatmentRequest は治療記録リクエストのJSON構造。
type createTreatmentRequest struct {
	// PetID は対象ペットのID。
	PetID string `json:"pet_id" binding:"required"`
	// VetID は担当獣医師のID。
	VetID string `json:"vet_id" binding:"required"`
	// Name は治療の名称。
	Name string `json:"name" binding:"required"`
	// Description は治療内容の詳細。
	Description string `json:"description"`
	// Date は治療日（YYYY-MM-DD形式）。
	Date string `json:"date" binding:"required"`
	// FollowUpDate は経過確認の予定日（YYYY-MM-DD形式）。不要な場合は省略。
	FollowUpDate string `json:"follow_up_date"`
}

// treatmentResponse は治療記録のJSONレスポンス構造。
type treatmentResponse struct {
	// ID は治療記録の一意識別子。
	ID string `json:"id"`
	// PetID は対象ペットのID。
	PetID string `json:"pet_id"`
	// VetID は担当獣医師のID。
	VetID string `json:"vet_id"`
	// Name は治療の名称。
	Name string `json:"name"`
	// Description は治療内容の詳細。
	Description string `json:"description,omitempty"`
	// Date は治療日（YYYY-MM-DD形式）。
	Date string `json:"date"`
	// FollowUpDate は経過確認の予定日（YYYY-MM-DD形式）。
	FollowUpDate string `json:"follow_up_date,omitempty"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toTreatmentResponse はDB行をJSONレスポンスに変換する。
func toTreatmentResponse(t clinicdb.Treatment) treatmentResponse {
	resp := treatmentResponse{
		ID:          t.ID,
		PetID:       t.PetID,
		VetID:       t.VetID,
		Name:        t.Name,
		Description: nullStringValue(t.Description),
		Date:        t.Date.Format(dateOnlyLayout),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.FollowUpDate.Valid {
		resp.FollowUpDate = t.FollowUpDate.Time.Format(dateOnlyLayout)
	}
	return resp
}

// toTreatmentResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toTreatmentResponses(treatments []clinicdb.Treatment) []treatmentResponse {
	responses := make([]treatmentResponse, 0, len(treatments))
	for _, t := range treatments {
		responses = append(responses, toTreatmentResponse(t))
	}
	return responses
}

// handleCreateTreatment は治療記録を登録し、TreatmentAddedイベントを
// 発行するハンドラ。
func (s *Server) handleCreateTreatment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTreatmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		date, err := time.Parse(dateOnlyLayout, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "治療日はYYYY-MM-DD形式で指定してください"})
			return
		}
		followUpDate, err := parseBirthDate(req.FollowUpDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "経過確認予定日はYYYY-MM-DD形式で指定してください"})
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

		treatmentID := uuid.New().String()
		if err := s.queries.CreateTreatment(c.Request.Context(), clinicdb.CreateTreatmentParams{
			ID:           treatmentID,
			PetID:        req.PetID,
			VetID:        req.VetID,
			Name:         req.Name,
			Description:  nullString(req.Description),
			Date:         date,
			FollowUpDate: followUpDate,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "治療記録の登録に失敗しました"})
			log.Printf("治療記録登録エラー: %v", err)
			return
		}

		s.publish(event.KindTreatmentAdded, event.TreatmentAddedData{
			PetID:         req.PetID,
			PetName:       pet.Name,
			OwnerID:       pet.OwnerID,
			TreatmentName: req.Name,
			VetID:         req.VetID,
		})

		c.JSON(http.StatusCreated, gin.H{"id": treatmentID, "message": "治療記録を登録しました"})
	}
}

// handleGetTreatment は指定された治療記録を返すハンドラ。
func (s *Server) handleGetTreatment() gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := s.queries.GetTreatmentByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "治療記録が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "治療記録の取得に失敗しました"})
			log.Printf("治療記録取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toTreatmentResponse(t))
	}
}

// handleDeleteTreatment は治療記録を削除するハンドラ。
func (s *Server) handleDeleteTreatment() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.DeleteTreatment(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "治療記録の削除に失敗しました"})
			log.Printf("治療記録削除エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "治療記録が見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "治療記録を削除しました"})
	}
}
