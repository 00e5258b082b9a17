package gateway

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/DogStark/petchain-api/pkg/event"
)

// fakeConn はテスト用のConn実装。送信されたイベントを記録する。
type fakeConn struct {
	mu     sync.Mutex
	events []string
	fail   bool
}

func (c *fakeConn) SendEvent(name string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("送信失敗")
	}
	c.events = append(c.events, name)
	return nil
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// TestRegistryRegister は接続登録のテスト。
func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("登録した接続がユーザーIDで解決できる", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		conn := &fakeConn{}

		r.Register(conn, "user-1", []event.Role{event.RoleOwner})

		conns := r.ConnectionsFor("user-1")
		if len(conns) != 1 {
			t.Fatalf("接続数: got %d, want 1", len(conns))
		}
	})

	t.Run("同一ユーザーの複数デバイスが全て解決される", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()

		r.Register(&fakeConn{}, "user-1", []event.Role{event.RoleOwner})
		r.Register(&fakeConn{}, "user-1", []event.Role{event.RoleOwner})

		conns := r.ConnectionsFor("user-1")
		if len(conns) != 2 {
			t.Fatalf("接続数: got %d, want 2", len(conns))
		}
	})

	t.Run("同一接続の再登録は重複しない", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		conn := &fakeConn{}

		r.Register(conn, "user-1", []event.Role{event.RoleOwner})
		r.Register(conn, "user-1", []event.Role{event.RoleOwner})

		conns := r.ConnectionsFor("user-1")
		if len(conns) != 1 {
			t.Fatalf("接続数: got %d, want 1", len(conns))
		}
	})

	t.Run("別ユーザーとして再登録すると移動する", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		conn := &fakeConn{}

		r.Register(conn, "user-1", []event.Role{event.RoleOwner})
		r.Register(conn, "user-2", []event.Role{event.RoleVet})

		if got := len(r.ConnectionsFor("user-1")); got != 0 {
			t.Errorf("user-1の接続数: got %d, want 0", got)
		}
		if got := len(r.ConnectionsFor("user-2")); got != 1 {
			t.Errorf("user-2の接続数: got %d, want 1", got)
		}
	})

	t.Run("役割で接続が解決できる", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()

		r.Register(&fakeConn{}, "vet-1", []event.Role{event.RoleVet})
		r.Register(&fakeConn{}, "vet-2", []event.Role{event.RoleVet})
		r.Register(&fakeConn{}, "owner-1", []event.Role{event.RoleOwner})

		if got := len(r.ConnectionsForRole(event.RoleVet)); got != 2 {
			t.Errorf("vet役割の接続数: got %d, want 2", got)
		}
		if got := len(r.ConnectionsForRole(event.RoleAdmin)); got != 0 {
			t.Errorf("admin役割の接続数: got %d, want 0", got)
		}
	})
}

// TestRegistryConcurrentAccess は登録・解除と配信側の列挙が
// 並行して行われても整合性が保たれることを検証する。-race付きで実行する。
func TestRegistryConcurrentAccess(t *testing.T) {
	t.Parallel()

	t.Run("並行の登録と解除の後に接続が残らない", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		d := NewDispatcher(r)

		const workers = 8
		const rounds = 50

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				userID := fmt.Sprintf("user-%d", id)
				for j := 0; j < rounds; j++ {
					conn := &fakeConn{}
					r.Register(conn, userID, []event.Role{event.RoleOwner, event.RoleVet})
					r.SubscribeTopics(conn, []string{"pet-1"})
					r.Unregister(conn)
				}
			}(i)
		}

		// 登録・解除と同時に配信側の列挙を回す
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < rounds; j++ {
					d.Deliver(Notification{
						ID:            "n-broadcast",
						RecipientKind: RecipientBroadcast,
						EventName:     "notification",
					})
					d.Deliver(Notification{
						ID:            "n-role",
						RecipientID:   string(event.RoleVet),
						RecipientKind: RecipientRole,
						EventName:     "notification",
					})
					r.ConnectionsFor("user-0")
					r.ConnectionsForTopic("pet-1")
				}
			}()
		}
		wg.Wait()

		if got := len(r.AllConnections()); got != 0 {
			t.Errorf("全接続数: got %d, want 0", got)
		}
		if got := len(r.ConnectionsForRole(event.RoleVet)); got != 0 {
			t.Errorf("vet役割の接続数: got %d, want 0", got)
		}
		if got := len(r.ConnectionsForTopic("pet-1")); got != 0 {
			t.Errorf("pet-1の接続数: got %d, want 0", got)
		}
	})

	t.Run("並行登録後に全接続が解決できる", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()

		const workers = 8
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				r.Register(&fakeConn{}, fmt.Sprintf("user-%d", id), []event.Role{event.RoleOwner})
			}(i)
		}
		wg.Wait()

		if got := len(r.AllConnections()); got != workers {
			t.Errorf("全接続数: got %d, want %d", got, workers)
		}
	})
}

// TestRegistryUnregister は接続解除のテスト。
func TestRegistryUnregister(t *testing.T) {
	t.Parallel()

	t.Run("登録と解除の後に接続が残らない", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		conn := &fakeConn{}

		r.Register(conn, "user-1", []event.Role{event.RoleOwner})
		r.Unregister(conn)

		if got := len(r.ConnectionsFor("user-1")); got != 0 {
			t.Errorf("解除後の接続数: got %d, want 0", got)
		}
		if got := len(r.AllConnections()); got != 0 {
			t.Errorf("全接続数: got %d, want 0", got)
		}
		if got := len(r.ConnectionsForRole(event.RoleOwner)); got != 0 {
			t.Errorf("役割の接続数: got %d, want 0", got)
		}
	})

	t.Run("未登録の接続の解除は何も起きない", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()

		r.Register(&fakeConn{}, "user-1", []event.Role{event.RoleOwner})
		r.Unregister(&fakeConn{})

		if got := len(r.ConnectionsFor("user-1")); got != 1 {
			t.Errorf("接続数: got %d, want 1", got)
		}
	})

	t.Run("一方のデバイスの解除は他方に影響しない", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		conn1 := &fakeConn{}
		conn2 := &fakeConn{}

		r.Register(conn1, "user-1", []event.Role{event.RoleOwner})
		r.Register(conn2, "user-1", []event.Role{event.RoleOwner})
		r.Unregister(conn1)

		if got := len(r.ConnectionsFor("user-1")); got != 1 {
			t.Errorf("接続数: got %d, want 1", got)
		}
	})
}

// TestRegistryTopics はトピック購読のテスト。
func TestRegistryTopics(t *testing.T) {
	t.Parallel()

	t.Run("購読したトピックで接続が解決できる", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		conn := &fakeConn{}

		r.Register(conn, "user-1", []event.Role{event.RoleOwner})
		r.SubscribeTopics(conn, []string{"pet-1", "pet-2"})

		if got := len(r.ConnectionsForTopic("pet-1")); got != 1 {
			t.Errorf("pet-1の接続数: got %d, want 1", got)
		}
		if got := len(r.ConnectionsForTopic("pet-3")); got != 0 {
			t.Errorf("pet-3の接続数: got %d, want 0", got)
		}
	})

	t.Run("解除後はトピックでも解決されない", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		conn := &fakeConn{}

		r.Register(conn, "user-1", []event.Role{event.RoleOwner})
		r.SubscribeTopics(conn, []string{"pet-1"})
		r.Unregister(conn)

		if got := len(r.ConnectionsForTopic("pet-1")); got != 0 {
			t.Errorf("解除後の接続数: got %d, want 0", got)
		}
	})
}
