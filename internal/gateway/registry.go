package gateway

import (
	"log"
	"sync"

	"github.com/DogStark/petchain-api/pkg/event"
)

// Conn は通知をプッシュできる1本のライブ接続を表す。
// 実装はWebSocket接続（wsConn）だが、テストではフェイクを使用する。
type Conn interface {
	// SendEvent は名前付きイベントとしてペイロードをプッシュする。
	SendEvent(name string, payload any) error
}

// Registry はユーザーIDとライブ接続の対応を管理する。
// 1ユーザーが複数デバイスから同時に接続できるため、ユーザーIDごとに
// 接続の集合を保持する。役割からユーザーへの索引は登録時の認証クレーム
// から導出する。登録・解除・配信時の列挙はすべて単一のRWMutexで排他し、
// 削除途中の接続へのプッシュや列挙中の集合変更を防ぐ。
type Registry struct {
	// mu は以下のすべてのマップを保護する。
	mu sync.RWMutex
	// byUser はユーザーIDから接続集合への対応。
	byUser map[string]map[Conn]struct{}
	// userOf は接続から登録先ユーザーIDへの逆引き。
	// 1つの接続は同時に高々1ユーザーにのみ属する。
	userOf map[Conn]string
	// rolesOf はユーザーIDから保持する役割の集合への対応。
	rolesOf map[string]map[event.Role]struct{}
	// topicsOf は接続が購読しているトピックの集合。
	topicsOf map[Conn]map[string]struct{}
}

// NewRegistry は新しいConnection Registryを生成する。
func NewRegistry() *Registry {
	return &Registry{
		byUser:   map[string]map[Conn]struct{}{},
		userOf:   map[Conn]string{},
		rolesOf:  map[string]map[event.Role]struct{}{},
		topicsOf: map[Conn]map[string]struct{}{},
	}
}

// Register は接続をユーザーIDに紐付ける。
// 同じ接続の再登録は冪等で、別のユーザーIDで再登録された場合は
// 接続を移動する（複製しない）。役割は登録のたびにクレーム由来の
// 値で置き換える。
func (r *Registry) Register(c Conn, userID string, roles []event.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 別ユーザーに登録済みなら、まず旧ユーザーから外す
	if prev, ok := r.userOf[c]; ok {
		if prev == userID {
			r.replaceRolesLocked(userID, roles)
			return
		}
		r.removeLocked(c, prev)
	}

	set, ok := r.byUser[userID]
	if !ok {
		set = map[Conn]struct{}{}
		r.byUser[userID] = set
	}
	set[c] = struct{}{}
	r.userOf[c] = userID
	r.replaceRolesLocked(userID, roles)
}

// Unregister は接続をすべての索引から取り除く。
// 未登録の接続に対しては何もしない（デバッグログのみ）。
func (r *Registry) Unregister(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.topicsOf, c)

	userID, ok := r.userOf[c]
	if !ok {
		log.Printf("[Gateway] 未登録の接続の解除要求を無視します")
		return
	}
	r.removeLocked(c, userID)
}

// SubscribeTopics は接続のトピック購読を追加する。
func (r *Registry) SubscribeTopics(c Conn, topics []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.topicsOf[c]
	if !ok {
		set = map[string]struct{}{}
		r.topicsOf[c] = set
	}
	for _, t := range topics {
		if t != "" {
			set[t] = struct{}{}
		}
	}
}

// ConnectionsFor は指定ユーザーのライブ接続のスナップショットを返す。
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.byUser[userID]))
	for c := range r.byUser[userID] {
		conns = append(conns, c)
	}
	return conns
}

// ConnectionsForRole は指定された役割を保持する全ユーザーの
// ライブ接続のスナップショットを返す。
func (r *Registry) ConnectionsForRole(role event.Role) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []Conn
	for userID, roles := range r.rolesOf {
		if _, ok := roles[role]; !ok {
			continue
		}
		for c := range r.byUser[userID] {
			conns = append(conns, c)
		}
	}
	return conns
}

// AllConnections は登録済みの全ライブ接続のスナップショットを返す。
func (r *Registry) AllConnections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []Conn
	for _, set := range r.byUser {
		for c := range set {
			conns = append(conns, c)
		}
	}
	return conns
}

// ConnectionsForTopic は指定トピックを購読している接続のスナップショットを返す。
func (r *Registry) ConnectionsForTopic(topic string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []Conn
	for c, topics := range r.topicsOf {
		if _, ok := topics[topic]; ok {
			conns = append(conns, c)
		}
	}
	return conns
}

// removeLocked は接続をユーザーの集合から外し、空になったユーザーの
// エントリと役割索引を削除する。呼び出し側がmuを保持していること。
func (r *Registry) removeLocked(c Conn, userID string) {
	delete(r.userOf, c)
	set := r.byUser[userID]
	delete(set, c)
	if len(set) == 0 {
		delete(r.byUser, userID)
		delete(r.rolesOf, userID)
	}
}

// replaceRolesLocked はユーザーの役割集合を置き換える。
// 呼び出し側がmuを保持していること。
func (r *Registry) replaceRolesLocked(userID string, roles []event.Role) {
	set := make(map[event.Role]struct{}, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	r.rolesOf[userID] = set
}
