// petchain-apiのエントリポイント。
// 動物病院の基幹API・通知ストア・WebSocketゲートウェイ・リマインダー
// 走査を1プロセスで起動する。
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/DogStark/petchain-api/internal/clinic"
	"github.com/DogStark/petchain-api/internal/gateway"
	"github.com/DogStark/petchain-api/internal/notification"
	"github.com/DogStark/petchain-api/pkg/event"
	"github.com/DogStark/petchain-api/pkg/middleware"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("PETCHAIN_DB")
	if dbPath == "" {
		dbPath = "/data/petchain.db"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-key"
	}

	sqlDB, err := sql.Open("sqlite", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", dbPath))
	if err != nil {
		log.Fatalf("データベース接続に失敗: %v", err)
	}
	defer func() { _ = sqlDB.Close() }()

	bus := event.NewBus()
	gatewayServer := gateway.NewServer(jwtSecret)

	notificationServer, err := notification.NewServer(sqlDB, bus, gatewayServer.Dispatcher())
	if err != nil {
		log.Fatalf("通知サーバーの初期化に失敗: %v", err)
	}
	defer notificationServer.Close()

	clinicServer, err := clinic.NewServer(sqlDB, bus)
	if err != nil {
		log.Fatalf("クリニックサーバーの初期化に失敗: %v", err)
	}

	// リマインダー走査を起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notification.NewScanner(clinicServer.ReminderSource(), bus).Start(ctx)

	router := gin.New()
	router.Use(middleware.Recovery())
	allowedOrigins := []string{"*"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
	}
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(gin.Logger())

	api := router.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	api.Use(clinicServer.AuditMiddleware())
	clinicServer.MountRoutes(api)
	notificationServer.MountRoutes(api)

	// WebSocketエンドポイント（登録メッセージまたはBearerトークンで認証）
	router.GET("/ws", gatewayServer.HandleWS())

	// ヘルスチェック
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "petchain-api"})
	})

	log.Printf("petchain-apiを起動します: :%s", port)
	if err := router.Run(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatalf("petchain-apiの起動に失敗: %v", err)
	}
}
