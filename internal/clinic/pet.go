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

// dateOnlyLayout は生年月日や接種期限日など日付のみの表記形式。
const dateOnlyLayout = "2006-01-02"

// createPetRequest はペット登録リクエストのJSON構造。
type createPetRequest struct {
	// Name はペットの名前。
	Name string `json:"name" binding:"required"`
	// Species は動物種。
	Species string `json:"species" binding:"required"`
	// Breed は品種。
	Breed string `json:"breed"`
	// BirthDate は生年月日（YYYY-MM-DD形式）。
	BirthDate string `json:"birth_date"`
	// OwnerID は飼い主のID。
	OwnerID string `json:"owner_id" binding:"required"`
}

// updatePetRequest はペット更新リクエストのJSON構造。
type updatePetRequest struct {
	// Name はペットの名前。
	Name string `json:"name" binding:"required"`
	// Species は動物種。
	Species string `json:"species" binding:"required"`
	// Breed は品種。
	Breed string `json:"breed"`
	// BirthDate は生年月日（YYYY-MM-DD形式）。
	BirthDate string `json:"birth_date"`
}

// petResponse はペットのJSONレスポンス構造。
type petResponse struct {
	// ID はペットの一意識別子。
	ID string `json:"id"`
	// Name はペットの名前。
	Name string `json:"name"`
	// Species は動物種。
	Species string `json:"species"`
	// Breed は品種。
	Breed string `json:"breed,omitempty"`
	// BirthDate は生年月日（YYYY-MM-DD形式）。
	BirthDate string `json:"birth_date,omitempty"`
	// OwnerID は飼い主のID。
	OwnerID string `json:"owner_id"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toPetResponse はDB行をJSONレスポンスに変換する。
func toPetResponse(p clinicdb.Pet) petResponse {
	resp := petResponse{
		ID:        p.ID,
		Name:      p.Name,
		Species:   p.Species,
		Breed:     nullStringValue(p.Breed),
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
	if p.BirthDate.Valid {
		resp.BirthDate = p.BirthDate.Time.Format(dateOnlyLayout)
	}
	return resp
}

// toPetResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toPetResponses(pets []clinicdb.Pet) []petResponse {
	responses := make([]petResponse, 0, len(pets))
	for _, p := range pets {
		responses = append(responses, toPetResponse(p))
	}
	return responses
}

// parseBirthDate は生年月日文字列をNULL許容の日付に変換する。
func parseBirthDate(s string) (sql.NullTime, error) {
	if s == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

// handleCreatePet はペットを登録するハンドラ。
func (s *Server) handleCreatePet() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		birthDate, err := parseBirthDate(req.BirthDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "生年月日はYYYY-MM-DD形式で指定してください"})
			return
		}

		// 飼い主の存在確認
		if _, err := s.queries.GetOwnerByID(c.Request.Context(), req.OwnerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "飼い主が見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "飼い主の確認に失敗しました"})
			log.Printf("飼い主取得エラー: %v", err)
			return
		}

		petID := uuid.New().String()
		if err := s.queries.CreatePet(c.Request.Context(), clinicdb.CreatePetParams{
			ID:        petID,
			Name:      req.Name,
			Species:   req.Species,
			Breed:     nullString(req.Breed),
			BirthDate: birthDate,
			OwnerID:   req.OwnerID,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ペットの登録に失敗しました"})
			log.Printf("ペット登録エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": petID, "message": "ペットを登録しました"})
	}
}

// handleListPets は全ペットの一覧を返すハンドラ。
func (s *Server) handleListPets() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paginationParams(c)
		pets, err := s.queries.ListPets(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ペット一覧の取得に失敗しました"})
			log.Printf("ペット一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toPetResponses(pets))
	}
}

// handleGetPet は指定されたペットを返すハンドラ。
func (s *Server) handleGetPet() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.queries.GetPetByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ペットが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ペットの取得に失敗しました"})
			log.Printf("ペット取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toPetResponse(p))
	}
}

// handleUpdatePet はペットの情報を更新するハンドラ。
func (s *Server) handleUpdatePet() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updatePetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		birthDate, err := parseBirthDate(req.BirthDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "生年月日はYYYY-MM-DD形式で指定してください"})
			return
		}

		affected, err := s.queries.UpdatePet(c.Request.Context(), clinicdb.UpdatePetParams{
			ID:        c.Param("id"),
			Name:      req.Name,
			Species:   req.Species,
			Breed:     nullString(req.Breed),
			BirthDate: birthDate,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ペットの更新に失敗しました"})
			log.Printf("ペット更新エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "ペットが見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "ペットを更新しました"})
	}
}

// handleDeletePet はペットを削除するハンドラ。
func (s *Server) handleDeletePet() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.DeletePet(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ペットの削除に失敗しました"})
			log.Printf("ペット削除エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "ペットが見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "ペットを削除しました"})
	}
}

// handleListPetVaccinations は指定されたペットの接種記録一覧を返すハンドラ。
func (s *Server) handleListPetVaccinations() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paginationParams(c)
		vaccinations, err := s.queries.ListVaccinationsByPetID(c.Request.Context(), c.Param("id"), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "接種記録一覧の取得に失敗しました"})
			log.Printf("接種記録一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toVaccinationResponses(vaccinations))
	}
}

// handleListPetTreatments は指定されたペットの治療記録一覧を返すハンドラ。
func (s *Server) handleListPetTreatments() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paginationParams(c)
		treatments, err := s.queries.ListTreatmentsByPetID(c.Request.Context(), c.Param("id"), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "治療記録一覧の取得に失敗しました"})
			log.Printf("治療記録一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toTreatmentResponses(treatments))
	}
}
