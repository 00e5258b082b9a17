package notification

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/DogStark/petchain-api/internal/gateway"
	notificationdb "github.com/DogStark/petchain-api/internal/notification/db"
	"github.com/DogStark/petchain-api/pkg/event"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// sentEvent はフェイク接続が受信したイベント。
type sentEvent struct {
	name    string
	payload any
}

// recordingConn はテスト用のgateway.Conn実装。受信したイベントを記録する。
type recordingConn struct {
	events []sentEvent
}

func (c *recordingConn) SendEvent(name string, payload any) error {
	c.events = append(c.events, sentEvent{name: name, payload: payload})
	return nil
}

// setupTestServer はテスト用の通知サーバーをインメモリSQLiteで構築する。
// ゲートウェイは実物を使用し、テストはフェイク接続をRegistryに登録して
// ライブ配信を観測する。
func setupTestServer(t *testing.T) (*Server, *gin.Engine, *gateway.Registry, *event.Bus) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	registry := gateway.NewRegistry()
	bus := event.NewBus()

	s, err := NewServer(sqlDB, bus, gateway.NewDispatcher(registry))
	if err != nil {
		t.Fatalf("通知サーバーの構築に失敗: %v", err)
	}
	t.Cleanup(s.Close)

	// JWTミドルウェアの代わりにテスト用のユーザーID設定ミドルウェアを使用する
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		if roles := c.GetHeader("X-User-Roles"); roles != "" {
			c.Set("roles", strings.Split(roles, ","))
		}
		c.Next()
	})
	s.MountRoutes(api)

	return s, router, registry, bus
}

// testRecordParams はテスト用通知の挿入パラメータ。
type testRecordParams struct {
	id            string
	recipientID   string
	recipientKind string
	createdAt     time.Time
}

// createTestNotification はテスト用に通知をDBに直接挿入するヘルパー関数。
func createTestNotification(t *testing.T, s *Server, p testRecordParams) {
	t.Helper()

	if p.recipientKind == "" {
		p.recipientKind = string(gateway.RecipientUser)
	}
	if p.createdAt.IsZero() {
		p.createdAt = time.Now().UTC()
	}
	err := s.queries.CreateNotification(context.Background(), notificationdb.CreateNotificationParams{
		ID:            p.id,
		Type:          "treatment_added",
		Title:         "テスト通知",
		Message:       "テスト用の通知です",
		RecipientID:   p.recipientID,
		RecipientKind: p.recipientKind,
		CreatedAt:     p.createdAt,
	})
	if err != nil {
		t.Fatalf("テスト用通知の作成に失敗: %v", err)
	}
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(router *gin.Engine, method, path, userID, roles string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if roles != "" {
		req.Header.Set("X-User-Roles", roles)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// parseJSON はレスポンスボディをmapにデコードするヘルパー関数。
func parseJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// parseJSONArray はレスポンスボディをスライスにデコードするヘルパー関数。
func parseJSONArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var result []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSON配列のデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// TestListNotifications は通知一覧取得のテスト。
func TestListNotifications(t *testing.T) {
	t.Parallel()

	t.Run("自分宛の通知のみが新しい順で返る", func(t *testing.T) {
		t.Parallel()
		s, router, _, _ := setupTestServer(t)
		base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
		createTestNotification(t, s, testRecordParams{id: "n-1", recipientID: "user-1", createdAt: base})
		createTestNotification(t, s, testRecordParams{id: "n-2", recipientID: "user-1", createdAt: base.Add(time.Minute)})
		createTestNotification(t, s, testRecordParams{id: "n-3", recipientID: "user-2", createdAt: base})

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "user-1", "owner", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		result := parseJSONArray(t, w)
		if len(result) != 2 {
			t.Fatalf("通知数: got %d, want 2", len(result))
		}
		if result[0]["id"] != "n-2" || result[1]["id"] != "n-1" {
			t.Errorf("並び順: got %v/%v, want n-2/n-1", result[0]["id"], result[1]["id"])
		}
	})

	t.Run("役割宛とブロードキャストの通知も含まれる", func(t *testing.T) {
		t.Parallel()
		s, router, _, _ := setupTestServer(t)
		createTestNotification(t, s, testRecordParams{id: "n-user", recipientID: "vet-1"})
		createTestNotification(t, s, testRecordParams{id: "n-role", recipientID: "vet", recipientKind: string(gateway.RecipientRole)})
		createTestNotification(t, s, testRecordParams{id: "n-bcast", recipientKind: string(gateway.RecipientBroadcast)})
		createTestNotification(t, s, testRecordParams{id: "n-admin", recipientID: "admin", recipientKind: string(gateway.RecipientRole)})

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "vet-1", "vet", nil)

		result := parseJSONArray(t, w)
		if len(result) != 3 {
			t.Fatalf("通知数: got %d, want 3", len(result))
		}
		ids := map[string]bool{}
		for _, n := range result {
			ids[n["id"].(string)] = true
		}
		for _, want := range []string{"n-user", "n-role", "n-bcast"} {
			if !ids[want] {
				t.Errorf("通知%sが含まれていません", want)
			}
		}
	})

	t.Run("limitとoffsetでページングできる", func(t *testing.T) {
		t.Parallel()
		s, router, _, _ := setupTestServer(t)
		base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
		for i, id := range []string{"n-1", "n-2", "n-3"} {
			createTestNotification(t, s, testRecordParams{id: id, recipientID: "user-1", createdAt: base.Add(time.Duration(i) * time.Minute)})
		}

		w := doRequest(router, http.MethodGet, "/api/v1/notifications?limit=1&offset=1", "user-1", "owner", nil)

		result := parseJSONArray(t, w)
		if len(result) != 1 {
			t.Fatalf("通知数: got %d, want 1", len(result))
		}
		if result[0]["id"] != "n-2" {
			t.Errorf("通知ID: got %v, want n-2", result[0]["id"])
		}
	})

	t.Run("認証情報が無い場合は401", func(t *testing.T) {
		t.Parallel()
		_, router, _, _ := setupTestServer(t)

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "", "", nil)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestListUnreadNotifications は未読通知一覧取得のテスト。
func TestListUnreadNotifications(t *testing.T) {
	t.Parallel()

	s, router, _, _ := setupTestServer(t)
	createTestNotification(t, s, testRecordParams{id: "n-1", recipientID: "user-1"})
	createTestNotification(t, s, testRecordParams{id: "n-2", recipientID: "user-1"})

	w := doRequest(router, http.MethodPut, "/api/v1/notifications/n-1/read", "user-1", "owner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("既読処理のステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "user-1", "owner", nil)
	result := parseJSONArray(t, w)
	if len(result) != 1 {
		t.Fatalf("未読通知数: got %d, want 1", len(result))
	}
	if result[0]["id"] != "n-2" {
		t.Errorf("通知ID: got %v, want n-2", result[0]["id"])
	}
}

// TestMarkAsRead は通知の既読処理のテスト。
func TestMarkAsRead(t *testing.T) {
	t.Parallel()

	t.Run("自分宛の通知を既読にできる", func(t *testing.T) {
		t.Parallel()
		s, router, _, _ := setupTestServer(t)
		createTestNotification(t, s, testRecordParams{id: "n-1", recipientID: "user-1"})

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/n-1/read", "user-1", "owner", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		n, err := s.queries.GetNotificationByID(context.Background(), "n-1")
		if err != nil {
			t.Fatalf("通知の取得に失敗: %v", err)
		}
		if n.IsRead == 0 {
			t.Error("is_read: got 0, want 1")
		}
	})

	t.Run("既読の通知への再実行も成功する", func(t *testing.T) {
		t.Parallel()
		s, router, _, _ := setupTestServer(t)
		createTestNotification(t, s, testRecordParams{id: "n-1", recipientID: "user-1"})

		doRequest(router, http.MethodPut, "/api/v1/notifications/n-1/read", "user-1", "owner", nil)
		w := doRequest(router, http.MethodPut, "/api/v1/notifications/n-1/read", "user-1", "owner", nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("存在しない通知は404", func(t *testing.T) {
		t.Parallel()
		_, router, _, _ := setupTestServer(t)

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/unknown/read", "user-1", "owner", nil)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("他ユーザー宛の通知は403", func(t *testing.T) {
		t.Parallel()
		s, router, _, _ := setupTestServer(t)
		createTestNotification(t, s, testRecordParams{id: "n-1", recipientID: "user-2"})

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/n-1/read", "user-1", "owner", nil)

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("役割宛の通知は既読にできない", func(t *testing.T) {
		t.Parallel()
		s, router, _, _ := setupTestServer(t)
		createTestNotification(t, s, testRecordParams{id: "n-1", recipientID: "vet", recipientKind: string(gateway.RecipientRole)})

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/n-1/read", "vet-1", "vet", nil)

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}

// TestMarkAllAsRead は全通知の既読処理のテスト。
func TestMarkAllAsRead(t *testing.T) {
	t.Parallel()

	s, router, _, _ := setupTestServer(t)
	createTestNotification(t, s, testRecordParams{id: "n-1", recipientID: "user-1"})
	createTestNotification(t, s, testRecordParams{id: "n-2", recipientID: "user-1"})
	createTestNotification(t, s, testRecordParams{id: "n-3", recipientID: "user-2"})

	w := doRequest(router, http.MethodPut, "/api/v1/notifications/read-all", "user-1", "owner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "user-1", "owner", nil)
	if result := parseJSONArray(t, w); len(result) != 0 {
		t.Errorf("user-1の未読通知数: got %d, want 0", len(result))
	}

	// 他ユーザーの通知は未読のまま
	w = doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "user-2", "owner", nil)
	if result := parseJSONArray(t, w); len(result) != 1 {
		t.Errorf("user-2の未読通知数: got %d, want 1", len(result))
	}
}

// TestDeleteNotification は通知の削除のテスト。
func TestDeleteNotification(t *testing.T) {
	t.Parallel()

	t.Run("自分宛の通知を削除できる", func(t *testing.T) {
		t.Parallel()
		s, router, _, _ := setupTestServer(t)
		createTestNotification(t, s, testRecordParams{id: "n-1", recipientID: "user-1"})

		w := doRequest(router, http.MethodDelete, "/api/v1/notifications/n-1", "user-1", "owner", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if _, err := s.queries.GetNotificationByID(context.Background(), "n-1"); err != sql.ErrNoRows {
			t.Errorf("削除後の取得: got %v, want sql.ErrNoRows", err)
		}
	})

	t.Run("存在しない通知は404", func(t *testing.T) {
		t.Parallel()
		_, router, _, _ := setupTestServer(t)

		w := doRequest(router, http.MethodDelete, "/api/v1/notifications/unknown", "user-1", "owner", nil)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("他ユーザー宛の通知は存在を秘匿して404", func(t *testing.T) {
		t.Parallel()
		s, router, _, _ := setupTestServer(t)
		createTestNotification(t, s, testRecordParams{id: "n-1", recipientID: "user-2"})

		w := doRequest(router, http.MethodDelete, "/api/v1/notifications/n-1", "user-1", "owner", nil)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
		if _, err := s.queries.GetNotificationByID(context.Background(), "n-1"); err != nil {
			t.Errorf("通知が削除されています: %v", err)
		}
	})
}

// TestHandleEvent はイベントから通知が生成・保存・配信されるまでのテスト。
func TestHandleEvent(t *testing.T) {
	t.Parallel()

	t.Run("イベントの発行で通知が保存され一覧で取得できる", func(t *testing.T) {
		t.Parallel()
		_, router, _, bus := setupTestServer(t)

		e, err := event.New(event.KindTreatmentAdded, event.TreatmentAddedData{
			PetID:         "pet-1",
			PetName:       "ポチ",
			OwnerID:       "owner-1",
			TreatmentName: "歯石除去",
			VetID:         "vet-1",
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}
		bus.Publish(e)

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "owner-1", "owner", nil)
		result := parseJSONArray(t, w)
		if len(result) != 1 {
			t.Fatalf("通知数: got %d, want 1", len(result))
		}
		if result[0]["type"] != string(event.KindTreatmentAdded) {
			t.Errorf("種別: got %v, want %s", result[0]["type"], event.KindTreatmentAdded)
		}
		if result[0]["delivered_at"] != nil {
			t.Errorf("ライブ接続なしでdelivered_atが設定されています: %v", result[0]["delivered_at"])
		}
	})

	t.Run("ライブ接続がある場合は配信されdelivered_atが記録される", func(t *testing.T) {
		t.Parallel()
		_, router, registry, bus := setupTestServer(t)
		conn := &recordingConn{}
		registry.Register(conn, "owner-1", []event.Role{event.RoleOwner})

		e, err := event.New(event.KindTreatmentAdded, event.TreatmentAddedData{
			PetID:         "pet-1",
			PetName:       "ポチ",
			OwnerID:       "owner-1",
			TreatmentName: "歯石除去",
			VetID:         "vet-1",
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}
		bus.Publish(e)

		if len(conn.events) != 1 {
			t.Fatalf("配信数: got %d, want 1", len(conn.events))
		}
		if conn.events[0].name != "notification" {
			t.Errorf("イベント名: got %s, want notification", conn.events[0].name)
		}

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "owner-1", "owner", nil)
		result := parseJSONArray(t, w)
		if len(result) != 1 {
			t.Fatalf("通知数: got %d, want 1", len(result))
		}
		if result[0]["delivered_at"] == nil || result[0]["delivered_at"] == "" {
			t.Error("delivered_atが設定されていません")
		}
	})

	t.Run("緊急アラートは役割宛のイベント名で配信される", func(t *testing.T) {
		t.Parallel()
		_, _, registry, bus := setupTestServer(t)
		vetConn := &recordingConn{}
		ownerConn := &recordingConn{}
		registry.Register(vetConn, "vet-1", []event.Role{event.RoleVet})
		registry.Register(ownerConn, "owner-1", []event.Role{event.RoleOwner})

		e, err := event.New(event.KindEmergencyAlert, event.EmergencyAlertData{
			ClinicID:      "clinic-1",
			AlertType:     "停電",
			Message:       "非常用電源に切り替えてください",
			Severity:      "high",
			AffectedRoles: []event.Role{event.RoleVet},
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}
		bus.Publish(e)

		if len(vetConn.events) != 1 {
			t.Fatalf("vetへの配信数: got %d, want 1", len(vetConn.events))
		}
		if vetConn.events[0].name != "emergency_alert" {
			t.Errorf("イベント名: got %s, want emergency_alert", vetConn.events[0].name)
		}
		if len(ownerConn.events) != 0 {
			t.Errorf("ownerへの配信数: got %d, want 0", len(ownerConn.events))
		}
	})
}
