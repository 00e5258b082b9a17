package notification

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DogStark/petchain-api/internal/gateway"
	notificationdb "github.com/DogStark/petchain-api/internal/notification/db"
	"github.com/DogStark/petchain-api/pkg/event"
	"github.com/DogStark/petchain-api/pkg/middleware"
)

// persistTimeout はイベントハンドラ内のデータベース操作のタイムアウト。
const persistTimeout = 5 * time.Second

// Server は通知のストアとREST APIを提供する。
// イベントバスを購読し、ドメインイベントから通知レコードを生成・保存して
// ゲートウェイ経由でライブ配信する。
type Server struct {
	// queries はクエリ実行オブジェクト。
	queries *notificationdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// dispatcher はライブ配信に使用するDelivery Dispatcher。
	dispatcher *gateway.Dispatcher
	// subs はイベントバスの購読一覧。Closeで解除する。
	subs []*event.Subscription
}

// NewServer は新しい通知サーバーを生成し、全イベント種別の購読を開始する。
func NewServer(sqlDB *sql.DB, bus *event.Bus, dispatcher *gateway.Dispatcher) (*Server, error) {
	if err := initSchema(sqlDB); err != nil {
		return nil, err
	}

	s := &Server{
		queries:    notificationdb.New(sqlDB),
		db:         sqlDB,
		dispatcher: dispatcher,
	}

	for _, kind := range []event.Kind{
		event.KindVaccinationDue,
		event.KindTreatmentAdded,
		event.KindAppointmentScheduled,
		event.KindAppointmentRescheduled,
		event.KindAppointmentCancelled,
		event.KindAppointmentReminder,
		event.KindTreatmentFollowUp,
		event.KindMedicationReminder,
		event.KindTestResultsReady,
		event.KindEmergencyAlert,
		event.KindInventoryLow,
	} {
		s.subs = append(s.subs, bus.Subscribe(kind, s.handleEvent))
	}

	return s, nil
}

// Close はイベントバスの購読を解除する。
func (s *Server) Close() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
}

// handleEvent はドメインイベントを通知レコードに変換して保存し、
// ライブ接続があれば配信する。保存に成功したレコードの配信失敗は
// エラーにしない（オフライン配信はストア経由の取得で行う）。
func (s *Server) handleEvent(e event.Event) error {
	records, err := BuildNotifications(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	for _, r := range records {
		createdAt := time.Now().UTC()
		if err := s.queries.CreateNotification(ctx, notificationdb.CreateNotificationParams{
			ID:              r.ID,
			Type:            r.Type,
			Title:           r.Title,
			Message:         r.Message,
			RecipientID:     r.RecipientID,
			RecipientKind:   string(r.RecipientKind),
			RelatedEntityID: nullString(r.RelatedEntityID),
			Metadata:        nullString(r.Metadata),
			CreatedAt:       createdAt,
		}); err != nil {
			return err
		}

		outcome := s.dispatcher.Deliver(gateway.Notification{
			ID:              r.ID,
			Type:            r.Type,
			Title:           r.Title,
			Message:         r.Message,
			RecipientID:     r.RecipientID,
			RecipientKind:   r.RecipientKind,
			RelatedEntityID: r.RelatedEntityID,
			Metadata:        r.Metadata,
			CreatedAt:       createdAt.Format(time.RFC3339),
			EventName:       r.EventName,
		})

		if outcome.AnyLiveConnection {
			if err := s.queries.MarkDelivered(ctx, r.ID, time.Now().UTC()); err != nil {
				log.Printf("[Notification] 配信日時の記録に失敗: notification_id=%s, error=%v", r.ID, err)
			}
		}
	}

	return nil
}

// MountRoutes は通知APIのルーティングを登録する。
// apiはJWT認証ミドルウェアが適用済みのルートグループであること。
func (s *Server) MountRoutes(api *gin.RouterGroup) {
	notifications := api.Group("/notifications")
	{
		// 通知一覧取得
		notifications.GET("", s.handleList())
		// 未読通知一覧取得
		notifications.GET("/unread", s.handleListUnread())
		// 通知を既読にする
		notifications.PUT("/:id/read", s.handleMarkAsRead())
		// 全通知を既読にする
		notifications.PUT("/read-all", s.handleMarkAllAsRead())
		// 通知を削除する
		notifications.DELETE("/:id", s.handleDelete())
	}
}

// notificationResponse は通知のJSONレスポンス構造。
type notificationResponse struct {
	// ID は通知の一意識別子。
	ID string `json:"id"`
	// Type は通知の種類。
	Type string `json:"type"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知メッセージ。
	Message string `json:"message"`
	// RecipientID は宛先の識別子。
	RecipientID string `json:"recipient_id"`
	// RecipientKind は宛先種別（user / role / broadcast）。
	RecipientKind string `json:"recipient_kind"`
	// RelatedEntityID は関連エンティティのID。
	RelatedEntityID string `json:"related_entity_id,omitempty"`
	// Metadata は通知種類ごとの付加情報（JSON文字列）。
	Metadata string `json:"metadata,omitempty"`
	// IsRead は通知の既読状態。
	IsRead bool `json:"is_read"`
	// CreatedAt は通知の作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
	// DeliveredAt は作成時のライブ配信が成功した日時。未配信の場合は空。
	DeliveredAt string `json:"delivered_at,omitempty"`
}

// toNotificationResponse はDB行をJSONレスポンスに変換する。
func toNotificationResponse(n notificationdb.Notification) notificationResponse {
	resp := notificationResponse{
		ID:            n.ID,
		Type:          n.Type,
		Title:         n.Title,
		Message:       n.Message,
		RecipientID:   n.RecipientID,
		RecipientKind: n.RecipientKind,
		IsRead:        n.IsRead != 0,
		CreatedAt:     n.CreatedAt.Format(time.RFC3339),
	}
	if n.RelatedEntityID.Valid {
		resp.RelatedEntityID = n.RelatedEntityID.String
	}
	if n.Metadata.Valid {
		resp.Metadata = n.Metadata.String
	}
	if n.DeliveredAt.Valid {
		resp.DeliveredAt = n.DeliveredAt.Time.Format(time.RFC3339)
	}
	return resp
}

// toNotificationResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toNotificationResponses(notifications []notificationdb.Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, toNotificationResponse(n))
	}
	return responses
}

// handleList は認証済みユーザー宛の通知一覧を返すハンドラ。
// ユーザー宛に加えて、保持する役割宛とブロードキャストの通知も含む。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		limit, offset := paginationParams(c)
		notifications, err := s.queries.ListNotificationsForUser(c.Request.Context(), notificationdb.ListNotificationsForUserParams{
			RecipientID: userID,
			Roles:       middleware.GetRoles(c),
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知一覧の取得に失敗しました"})
			log.Printf("通知一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleListUnread は認証済みユーザー宛の未読通知一覧を返すハンドラ。
func (s *Server) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		limit, offset := paginationParams(c)
		notifications, err := s.queries.ListNotificationsForUser(c.Request.Context(), notificationdb.ListNotificationsForUserParams{
			RecipientID: userID,
			Roles:       middleware.GetRoles(c),
			UnreadOnly:  true,
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知一覧の取得に失敗しました"})
			log.Printf("未読通知一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleMarkAsRead は指定された通知を既読にするハンドラ。
// 既読の通知への再実行は変更なしで成功を返す。
func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notificationID := c.Param("id")

		// 通知の存在確認と所有者チェック
		n, err := s.queries.GetNotificationByID(c.Request.Context(), notificationID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の取得に失敗しました"})
			log.Printf("通知取得エラー: %v", err)
			return
		}

		// ユーザー宛以外の通知（役割宛・ブロードキャスト）は既読状態を持たない
		if n.RecipientKind != string(gateway.RecipientUser) || n.RecipientID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この通知を操作する権限がありません"})
			return
		}

		if err := s.queries.MarkAsRead(c.Request.Context(), notificationID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の既読処理に失敗しました"})
			log.Printf("通知既読処理エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "通知を既読にしました"})
	}
}

// handleMarkAllAsRead は認証済みユーザー宛の全通知を既読にするハンドラ。
func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		if err := s.queries.MarkAllAsRead(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "全通知の既読処理に失敗しました"})
			log.Printf("全通知既読処理エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "全通知を既読にしました"})
	}
}

// handleDelete は指定された通知を削除するハンドラ。
// 他ユーザー宛の通知は存在を秘匿するため404を返す。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notificationID := c.Param("id")

		n, err := s.queries.GetNotificationByID(c.Request.Context(), notificationID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の取得に失敗しました"})
			log.Printf("通知取得エラー: %v", err)
			return
		}

		if n.RecipientKind != string(gateway.RecipientUser) || n.RecipientID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
			return
		}

		if _, err := s.queries.DeleteNotification(c.Request.Context(), notificationID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の削除に失敗しました"})
			log.Printf("通知削除エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "通知を削除しました"})
	}
}

// paginationParams はクエリ文字列からlimitとoffsetを取得する。
func paginationParams(c *gin.Context) (limit, offset int64) {
	limit, _ = strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	offset, _ = strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
