package clinic

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	clinicdb "github.com/DogStark/petchain-api/internal/clinic/db"
	"github.com/DogStark/petchain-api/pkg/middleware"
)

// auditTimeout は監査ログ書き込みのタイムアウト。
const auditTimeout = 3 * time.Second

// AuditMiddleware は更新系リクエスト（POST / PUT / DELETE）を監査ログに
// 記録するミドルウェア。ハンドラの実行後にステータスコードとともに保存する。
// ログの書き込み失敗はリクエストの結果に影響しない。
func (s *Server) AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			return
		}

		actorID := middleware.GetUserID(c)
		if actorID == "" {
			actorID = "anonymous"
		}

		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()

		if err := s.queries.CreateAuditLog(ctx, clinicdb.CreateAuditLogParams{
			ID:      uuid.New().String(),
			ActorID: actorID,
			Method:  c.Request.Method,
			Path:    c.Request.URL.Path,
			Status:  int64(c.Writer.Status()),
		}); err != nil {
			log.Printf("[Clinic] 監査ログの記録に失敗: %v", err)
		}
	}
}

// auditLogResponse は監査ログのJSONレスポンス構造。
type auditLogResponse struct {
	// ID は監査ログの一意識別子。
	ID string `json:"id"`
	// ActorID は操作を行ったユーザーのID。
	ActorID string `json:"actor_id"`
	// Method はHTTPメソッド。
	Method string `json:"method"`
	// Path はリクエストパス。
	Path string `json:"path"`
	// Status はHTTPステータスコード。
	Status int64 `json:"status"`
	// CreatedAt は操作日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// handleListAuditLogs は監査ログの一覧を返すハンドラ。管理者のみ参照できる。
func (s *Server) handleListAuditLogs() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paginationParams(c)
		logs, err := s.queries.ListAuditLogs(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "監査ログの取得に失敗しました"})
			log.Printf("監査ログ取得エラー: %v", err)
			return
		}

		responses := make([]auditLogResponse, 0, len(logs))
		for _, l := range logs {
			responses = append(responses, auditLogResponse{
				ID:        l.ID,
				ActorID:   l.ActorID,
				Method:    l.Method,
				Path:      l.Path,
				Status:    l.Status,
				CreatedAt: l.CreatedAt.Format(time.RFC3339),
			})
		}
		c.JSON(http.StatusOK, responses)
	}
}
