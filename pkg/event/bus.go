package event

import (
	"log"
	"sync"
)

// Handler はドメインイベントを受け取る購読者の処理関数。
// 返されたエラーはBusがログに記録し、発行元には伝播しない。
type Handler func(e Event) error

// Bus はプロセス内のドメインイベントを同期的にファンアウトする。
// Publishは購読順にハンドラを呼び出し、1つのハンドラの失敗が
// 他のハンドラや発行元に影響しないことを保証する。
type Bus struct {
	// mu は購読者リストの更新とスナップショット取得を排他する。
	mu sync.Mutex
	// handlers はイベント種類ごとの購読エントリ。
	handlers map[Kind][]*Subscription
	// nextID は購読エントリの識別子の連番。
	nextID int
}

// Subscription は購読を解除するためのハンドル。
type Subscription struct {
	bus     *Bus
	kind    Kind
	id      int
	handler Handler
}

// NewBus は新しいイベントバスを生成する。
func NewBus() *Bus {
	return &Bus{handlers: map[Kind][]*Subscription{}}
}

// Subscribe は指定されたイベント種類のハンドラを登録する。
// ハンドラは購読した順に呼び出される。戻り値のSubscriptionで解除できる。
func (b *Bus) Subscribe(kind Kind, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{bus: b, kind: kind, id: b.nextID, handler: h}
	b.handlers[kind] = append(b.handlers[kind], sub)
	return sub
}

// Unsubscribe は購読を解除する。二重解除は無視される。
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	subs := s.bus.handlers[s.kind]
	for i, sub := range subs {
		if sub.id == s.id {
			s.bus.handlers[s.kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish はイベントを購読者へ同期的に配送する。
// ハンドラのエラーとパニックは捕捉してログに記録し、残りのハンドラの
// 実行を継続する。発行元にエラーが返ることはない。
func (b *Bus) Publish(e Event) {
	// ハンドラ実行中の購読リスト変更と衝突しないよう、スナップショットを取る
	b.mu.Lock()
	subs := make([]*Subscription, len(b.handlers[e.Kind]))
	copy(subs, b.handlers[e.Kind])
	b.mu.Unlock()

	for _, sub := range subs {
		b.invoke(sub, e)
	}
}

// invoke は1つのハンドラを実行し、エラーとパニックを捕捉する。
func (b *Bus) invoke(sub *Subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[EventBus] ハンドラがパニックしました: kind=%s, panic=%v", e.Kind, r)
		}
	}()

	if err := sub.handler(e); err != nil {
		log.Printf("[EventBus] ハンドラがエラーを返しました: kind=%s, event_id=%s, error=%v", e.Kind, e.ID, err)
	}
}
