package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret"

// setupAuthRouter はJWTAuthを適用したテスト用ルーターを構築する。
func setupAuthRouter() *gin.Engine {
	router := gin.New()
	authed := router.Group("/", JWTAuth(testSecret))
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": GetUserID(c),
			"roles":   GetRoles(c),
		})
	})
	authed.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return router
}

// doAuthRequest はAuthorizationヘッダー付きのリクエストを実行する。
func doAuthRequest(router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestGenerateAndParseJWT はトークン生成と検証の往復のテスト。
func TestGenerateAndParseJWT(t *testing.T) {
	t.Parallel()

	t.Run("生成したトークンからクレームを復元できる", func(t *testing.T) {
		t.Parallel()

		token, err := GenerateJWT(testSecret, "user-1", "owner@example.com", []string{"owner"})
		if err != nil {
			t.Fatalf("トークン生成に失敗: %v", err)
		}

		claims, err := ParseJWT(testSecret, token)
		if err != nil {
			t.Fatalf("トークン検証に失敗: %v", err)
		}
		if claims.UserID != "user-1" {
			t.Errorf("UserID: got %s, want user-1", claims.UserID)
		}
		if claims.Email != "owner@example.com" {
			t.Errorf("Email: got %s, want owner@example.com", claims.Email)
		}
		if len(claims.Roles) != 1 || claims.Roles[0] != "owner" {
			t.Errorf("Roles: got %v, want [owner]", claims.Roles)
		}
	})

	t.Run("異なる秘密鍵で署名されたトークンは拒否される", func(t *testing.T) {
		t.Parallel()

		token, err := GenerateJWT("other-secret", "user-1", "owner@example.com", nil)
		if err != nil {
			t.Fatalf("トークン生成に失敗: %v", err)
		}

		if _, err := ParseJWT(testSecret, token); err == nil {
			t.Error("異なる秘密鍵のトークンが検証を通過しました")
		}
	})

	t.Run("不正な文字列は拒否される", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseJWT(testSecret, "not-a-token"); err == nil {
			t.Error("不正な文字列が検証を通過しました")
		}
	})
}

// TestJWTAuth は認証ミドルウェアのテスト。
func TestJWTAuth(t *testing.T) {
	t.Parallel()

	t.Run("有効なトークンでユーザー情報がコンテキストに設定される", func(t *testing.T) {
		t.Parallel()
		router := setupAuthRouter()

		token, err := GenerateJWT(testSecret, "user-1", "owner@example.com", []string{"owner", "admin"})
		if err != nil {
			t.Fatalf("トークン生成に失敗: %v", err)
		}

		w := doAuthRequest(router, "/me", "Bearer "+token)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("Authorizationヘッダーが無い場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		router := setupAuthRouter()

		w := doAuthRequest(router, "/me", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("Bearer形式でない場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		router := setupAuthRouter()

		w := doAuthRequest(router, "/me", "Basic abc123")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("無効なトークンの場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		router := setupAuthRouter()

		w := doAuthRequest(router, "/me", "Bearer invalid-token")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestRequireRole は役割チェックミドルウェアのテスト。
func TestRequireRole(t *testing.T) {
	t.Parallel()

	t.Run("役割を保持するユーザーは許可される", func(t *testing.T) {
		t.Parallel()
		router := setupAuthRouter()

		token, err := GenerateJWT(testSecret, "admin-1", "admin@example.com", []string{"admin"})
		if err != nil {
			t.Fatalf("トークン生成に失敗: %v", err)
		}

		w := doAuthRequest(router, "/admin", "Bearer "+token)
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("役割を保持しないユーザーはForbidden", func(t *testing.T) {
		t.Parallel()
		router := setupAuthRouter()

		token, err := GenerateJWT(testSecret, "user-1", "owner@example.com", []string{"owner"})
		if err != nil {
			t.Fatalf("トークン生成に失敗: %v", err)
		}

		w := doAuthRequest(router, "/admin", "Bearer "+token)
		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}
