package clinic

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	clinicdb "github.com/DogStark/petchain-api/internal/clinic/db"
)

// createTagRequest はタグ作成リクエストのJSON構造。
type createTagRequest struct {
	// Name はタグ名。
	Name string `json:"name" binding:"required"`
}

// tagResponse はタグのJSONレスポンス構造。
type tagResponse struct {
	// ID はタグの一意識別子。
	ID string `json:"id"`
	// Name はタグ名。
	Name string `json:"name"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toTagResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toTagResponses(tags []clinicdb.Tag) []tagResponse {
	responses := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		responses = append(responses, tagResponse{
			ID:        t.ID,
			Name:      t.Name,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		})
	}
	return responses
}

// handleCreateTag はタグを作成するハンドラ。
func (s *Server) handleCreateTag() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTagRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		tagID := uuid.New().String()
		if err := s.queries.CreateTag(c.Request.Context(), tagID, req.Name); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "タグの作成に失敗しました"})
			log.Printf("タグ作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": tagID, "message": "タグを作成しました"})
	}
}

// handleListTags は全タグの一覧を返すハンドラ。
func (s *Server) handleListTags() gin.HandlerFunc {
	return func(c *gin.Context) {
		tags, err := s.queries.ListTags(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "タグ一覧の取得に失敗しました"})
			log.Printf("タグ一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toTagResponses(tags))
	}
}

// handleDeleteTag はタグを削除するハンドラ。
func (s *Server) handleDeleteTag() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.DeleteTag(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "タグの削除に失敗しました"})
			log.Printf("タグ削除エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "タグが見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "タグを削除しました"})
	}
}

// handleListPetTags は指定されたペットのタグ一覧を返すハンドラ。
func (s *Server) handleListPetTags() gin.HandlerFunc {
	return func(c *gin.Context) {
		tags, err := s.queries.ListTagsByPetID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "タグ一覧の取得に失敗しました"})
			log.Printf("タグ一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toTagResponses(tags))
	}
}

// handleAttachTag はペットにタグを付与するハンドラ。付与済みの場合も成功を返す。
func (s *Server) handleAttachTag() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.queries.AttachTagToPet(c.Request.Context(), c.Param("id"), c.Param("tagId")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "タグの付与に失敗しました"})
			log.Printf("タグ付与エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "タグを付与しました"})
	}
}

// handleDetachTag はペットからタグを外すハンドラ。
func (s *Server) handleDetachTag() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.DetachTagFromPet(c.Request.Context(), c.Param("id"), c.Param("tagId"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "タグの解除に失敗しました"})
			log.Printf("タグ解除エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "タグの付与が見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "タグを解除しました"})
	}
}
