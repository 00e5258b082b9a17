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

// createOwnerRequest は飼い主登録リクエストのJSON構造。
type createOwnerRequest struct {
	// Name は飼い主の氏名。
	Name string `json:"name" binding:"required"`
	// Email はメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// Phone は電話番号。
	Phone string `json:"phone"`
	// Address は住所。
	Address string `json:"address"`
}

// ownerResponse は飼い主のJSONレスポンス構造。
type ownerResponse struct {
	// ID は飼い主の一意識別子。
	ID string `json:"id"`
	// Name は飼い主の氏名。
	Name string `json:"name"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// Phone は電話番号。
	Phone string `json:"phone,omitempty"`
	// Address は住所。
	Address string `json:"address,omitempty"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toOwnerResponse はDB行をJSONレスポンスに変換する。
func toOwnerResponse(o clinicdb.Owner) ownerResponse {
	return ownerResponse{
		ID:        o.ID,
		Name:      o.Name,
		Email:     o.Email,
		Phone:     nullStringValue(o.Phone),
		Address:   nullStringValue(o.Address),
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
}

// handleCreateOwner は飼い主を登録するハンドラ。
func (s *Server) handleCreateOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOwnerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		ownerID := uuid.New().String()
		if err := s.queries.CreateOwner(c.Request.Context(), clinicdb.CreateOwnerParams{
			ID:      ownerID,
			Name:    req.Name,
			Email:   req.Email,
			Phone:   nullString(req.Phone),
			Address: nullString(req.Address),
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "飼い主の登録に失敗しました"})
			log.Printf("飼い主登録エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": ownerID, "message": "飼い主を登録しました"})
	}
}

// handleListOwners は飼い主の一覧を返すハンドラ。
func (s *Server) handleListOwners() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paginationParams(c)
		owners, err := s.queries.ListOwners(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "飼い主一覧の取得に失敗しました"})
			log.Printf("飼い主一覧取得エラー: %v", err)
			return
		}

		responses := make([]ownerResponse, 0, len(owners))
		for _, o := range owners {
			responses = append(responses, toOwnerResponse(o))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleGetOwner は指定された飼い主を返すハンドラ。
func (s *Server) handleGetOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := s.queries.GetOwnerByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "飼い主が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "飼い主の取得に失敗しました"})
			log.Printf("飼い主取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toOwnerResponse(o))
	}
}

// handleUpdateOwner は飼い主の情報を更新するハンドラ。
func (s *Server) handleUpdateOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOwnerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		affected, err := s.queries.UpdateOwner(c.Request.Context(), clinicdb.UpdateOwnerParams{
			ID:      c.Param("id"),
			Name:    req.Name,
			Email:   req.Email,
			Phone:   nullString(req.Phone),
			Address: nullString(req.Address),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "飼い主の更新に失敗しました"})
			log.Printf("飼い主更新エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "飼い主が見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "飼い主を更新しました"})
	}
}

// handleDeleteOwner は飼い主を削除するハンドラ。
func (s *Server) handleDeleteOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.DeleteOwner(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "飼い主の削除に失敗しました"})
			log.Printf("飼い主削除エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "飼い主が見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "飼い主を削除しました"})
	}
}

// handleListOwnerPets は指定された飼い主のペット一覧を返すハンドラ。
func (s *Server) handleListOwnerPets() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paginationParams(c)
		pets, err := s.queries.ListPetsByOwnerID(c.Request.Context(), c.Param("id"), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ペット一覧の取得に失敗しました"})
			log.Printf("ペット一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toPetResponses(pets))
	}
}

// handleListOwnerAppointments は指定された飼い主の予約一覧を返すハンドラ。
func (s *Server) handleListOwnerAppointments() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paginationParams(c)
		appointments, err := s.queries.ListAppointmentsByOwnerID(c.Request.Context(), c.Param("id"), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "予約一覧の取得に失敗しました"})
			log.Printf("予約一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toAppointmentResponses(appointments))
	}
}
