package gateway

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/DogStark/petchain-api/pkg/event"
	"github.com/DogStark/petchain-api/pkg/middleware"
)

// defaultWriteTimeout は1接続へのプッシュが許容される最大時間。
// これを超えた書き込みはプッシュ失敗として扱う。
const defaultWriteTimeout = 5 * time.Second

// Server はWebSocketエンドポイントを提供するトランスポートサーバー。
// 接続のアップグレード、register / subscribe メッセージの処理、
// 切断時のRegistry解除を担当する。
type Server struct {
	// registry はライブ接続の管理台帳。
	registry *Registry
	// dispatcher は通知配信の入口。
	dispatcher *Dispatcher
	// jwtSecret はregisterメッセージの資格情報検証に使用する秘密鍵。
	jwtSecret string
	// writeTimeout は1接続への書き込みの上限時間。
	writeTimeout time.Duration
	// upgrader はHTTP接続をWebSocketへアップグレードする。
	upgrader websocket.Upgrader
}

// NewServer は新しいWebSocketトランスポートサーバーを生成する。
func NewServer(jwtSecret string) *Server {
	registry := NewRegistry()
	return &Server{
		registry:     registry,
		dispatcher:   NewDispatcher(registry),
		jwtSecret:    jwtSecret,
		writeTimeout: defaultWriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// オリジン制限はCORSミドルウェア相当の設定に委ねる
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Registry はConnection Registryを返す。
func (s *Server) Registry() *Registry {
	return s.registry
}

// Dispatcher はDelivery Dispatcherを返す。通知サービスが配信に使用する。
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// inboundMessage はクライアントから受信するメッセージの共通構造。
type inboundMessage struct {
	// Type はメッセージ種別（register / subscribe）。
	Type string `json:"type"`
	// UserID はregisterメッセージのユーザーID。
	UserID string `json:"user_id"`
	// Roles はregisterメッセージの役割一覧。
	Roles []string `json:"roles"`
	// Token はregisterメッセージの任意の資格情報（JWT）。
	Token string `json:"token"`
	// Topics はsubscribeメッセージの購読トピック一覧。
	Topics []string `json:"topics"`
}

// outboundMessage はクライアントへ送信するメッセージの共通構造。
type outboundMessage struct {
	// Event はイベント名（notification / emergency_alert 等）。
	Event string `json:"event"`
	// Data はイベントのペイロード。
	Data any `json:"data"`
}

// wsConn はgorilla/websocketの接続をConnとして包む。
// gorillaの接続は並行書き込みを許さないため、書き込みはミューテックスで
// 直列化し、writeTimeoutで1回のプッシュを有界にする。
type wsConn struct {
	mu           sync.Mutex
	ws           *websocket.Conn
	writeTimeout time.Duration
}

// SendEvent は名前付きイベントをJSONとして書き込む。
func (c *wsConn) SendEvent(name string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteJSON(outboundMessage{Event: name, Data: payload})
}

// HandleWS はWebSocket接続を処理するGinハンドラを返す。
// Authorizationヘッダーに有効なJWTがあれば接続時に自動登録する。
// その後はregister / subscribeメッセージを受け付け、切断時に
// Registryから接続を取り除く。
func (s *Server) HandleWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[Gateway] WebSocketへのアップグレードに失敗: %v", err)
			return
		}

		conn := &wsConn{ws: ws, writeTimeout: s.writeTimeout}
		log.Printf("[Gateway] クライアントが接続しました: remote=%s", ws.RemoteAddr())

		// ハンドシェイク時のJWTによる自動登録（任意）
		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			if claims, err := middleware.ParseJWT(s.jwtSecret, token); err == nil && claims.UserID != "" {
				s.registry.Register(conn, claims.UserID, toRoles(claims.Roles))
				log.Printf("[Gateway] JWTからユーザーを自動登録しました: user_id=%s", claims.UserID)
			} else if err != nil {
				// 認証失敗でも切断はせず、registerメッセージまで匿名接続を許す
				log.Printf("[Gateway] ハンドシェイク時のJWT検証に失敗: %v", err)
			}
		}

		s.readLoop(conn)
	}
}

// readLoop は1接続の受信メッセージを処理する。
// 読み取りエラー（切断を含む）でRegistryから接続を外して終了する。
func (s *Server) readLoop(conn *wsConn) {
	defer func() {
		s.registry.Unregister(conn)
		_ = conn.ws.Close()
		log.Printf("[Gateway] クライアントが切断しました: remote=%s", conn.ws.RemoteAddr())
	}()

	for {
		var msg inboundMessage
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[Gateway] 接続の読み取りエラー: %v", err)
			}
			return
		}

		switch msg.Type {
		case "register":
			s.handleRegister(conn, msg)
		case "subscribe":
			s.handleSubscribe(conn, msg)
		default:
			s.sendError(conn, "未知のメッセージ種別です: "+msg.Type)
		}
	}
}

// handleRegister はregisterメッセージを処理する。
// 資格情報が付与されている場合は検証し、ユーザーIDの不一致を拒否する。
func (s *Server) handleRegister(conn *wsConn, msg inboundMessage) {
	if msg.UserID == "" {
		s.sendError(conn, "user_idが必要です")
		return
	}

	if msg.Token != "" {
		claims, err := middleware.ParseJWT(s.jwtSecret, msg.Token)
		if err != nil {
			log.Printf("[Gateway] registerの資格情報検証に失敗: %v", err)
			s.sendError(conn, "認証に失敗しました")
			return
		}
		if claims.UserID != msg.UserID {
			log.Printf("[Gateway] トークンのユーザーIDが一致しません: token=%s, register=%s", claims.UserID, msg.UserID)
			s.sendError(conn, "認証に失敗しました")
			return
		}
	}

	s.registry.Register(conn, msg.UserID, toRoles(msg.Roles))
	log.Printf("[Gateway] ユーザーを登録しました: user_id=%s, roles=%s", msg.UserID, strings.Join(msg.Roles, ","))

	if err := conn.SendEvent("connection_successful", gin.H{
		"user_id":   msg.UserID,
		"roles":     msg.Roles,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("[Gateway] 登録応答の送信に失敗: %v", err)
	}
}

// handleSubscribe はsubscribeメッセージを処理し、トピック購読を追加する。
func (s *Server) handleSubscribe(conn *wsConn, msg inboundMessage) {
	if len(msg.Topics) == 0 {
		s.sendError(conn, "topicsが必要です")
		return
	}

	s.registry.SubscribeTopics(conn, msg.Topics)
	if err := conn.SendEvent("subscribed", gin.H{"topics": msg.Topics}); err != nil {
		log.Printf("[Gateway] 購読応答の送信に失敗: %v", err)
	}
}

// sendError はエラー応答をクライアントへ送信する。
func (s *Server) sendError(conn *wsConn, message string) {
	if err := conn.SendEvent("error", gin.H{"error": message}); err != nil {
		log.Printf("[Gateway] エラー応答の送信に失敗: %v", err)
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(header string) string {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return token
}

// toRoles は文字列の役割一覧をevent.Roleのスライスに変換する。
func toRoles(roles []string) []event.Role {
	rs := make([]event.Role, 0, len(roles))
	for _, r := range roles {
		rs = append(rs, event.Role(r))
	}
	return rs
}
