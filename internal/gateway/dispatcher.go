package gateway

import (
	"log"

	"github.com/DogStark/petchain-api/pkg/event"
)

// RecipientKind は通知の宛先種別を表す。
type RecipientKind string

const (
	// RecipientUser は単一ユーザー宛（全デバイスにファンアウト）を表す。
	RecipientUser RecipientKind = "user"
	// RecipientRole は役割を保持する全ユーザー宛を表す。
	RecipientRole RecipientKind = "role"
	// RecipientBroadcast は全接続宛を表す。
	RecipientBroadcast RecipientKind = "broadcast"
)

// Notification はトランスポート境界を越えてプッシュされる通知のペイロード。
// 通知ストアのレコードから変換されて渡される。
type Notification struct {
	// ID は通知の一意識別子。
	ID string `json:"id"`
	// Type は通知の種類。
	Type string `json:"type"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知メッセージ。
	Message string `json:"message"`
	// RecipientID は宛先。user種別ではユーザーID、role種別では役割名。
	RecipientID string `json:"recipient_id"`
	// RecipientKind は宛先種別。
	RecipientKind RecipientKind `json:"recipient_kind"`
	// RelatedEntityID は関連エンティティ（ペット・予約等）への参照。
	RelatedEntityID string `json:"related_entity_id,omitempty"`
	// Metadata は通知種類ごとの付加情報（JSON文字列）。
	Metadata string `json:"metadata,omitempty"`
	// CreatedAt は通知の作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
	// EventName はトランスポート上のイベント名
	// （notification / emergency_alert / urgent_inventory）。
	EventName string `json:"-"`
}

// Outcome は配信試行の結果。
type Outcome struct {
	// AnyLiveConnection は宛先に1本以上のライブ接続が存在したかどうか。
	// 個々のプッシュの成否ではなく、配信時点の接続の有無を表す。
	AnyLiveConnection bool
}

// Dispatcher は通知レコードの宛先をConnection Registryで解決し、
// 該当する全ライブ接続へプッシュする。個々の接続のプッシュ失敗は
// ログに記録し、残りの接続への配信は継続する。
type Dispatcher struct {
	// registry は宛先解決に使用するConnection Registry。
	registry *Registry
}

// NewDispatcher は新しいDelivery Dispatcherを生成する。
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Deliver は通知を宛先種別に従って解決した全接続へプッシュする。
// 宛先に1本以上のライブ接続があればAnyLiveConnection=trueを返す。
// ライブ接続が無くてもエラーにはならない（オフライン配信は通知ストア
// 経由の取得で行う）。
func (d *Dispatcher) Deliver(n Notification) Outcome {
	conns := d.resolve(n)

	for _, c := range conns {
		if err := c.SendEvent(n.EventName, n); err != nil {
			// 1接続への失敗は他の接続への配信を妨げない
			log.Printf("[Gateway] 通知のプッシュに失敗: notification_id=%s, error=%v", n.ID, err)
		}
	}

	return Outcome{AnyLiveConnection: len(conns) > 0}
}

// resolve は宛先種別に応じたライブ接続のスナップショットを返す。
func (d *Dispatcher) resolve(n Notification) []Conn {
	switch n.RecipientKind {
	case RecipientUser:
		return d.registry.ConnectionsFor(n.RecipientID)
	case RecipientRole:
		return d.registry.ConnectionsForRole(event.Role(n.RecipientID))
	case RecipientBroadcast:
		return d.registry.AllConnections()
	default:
		log.Printf("[Gateway] 未知の宛先種別です: kind=%s, notification_id=%s", n.RecipientKind, n.ID)
		return nil
	}
}
