package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/contactbook/internal/auth"
	"github.com/dukerupert/contactbook/internal/model"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, accountID string) *Client {
	return &Client{
		hub:       hub,
		conn:      nil,
		accountID: accountID,
		send:      make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "a")
	c2 := mockClient(hub, "b")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "a")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastReachesOnlyOwner(t *testing.T) {
	hub := NewHub(slog.Default())

	alice1 := mockClient(hub, "alice")
	alice2 := mockClient(hub, "alice")
	bob := mockClient(hub, "bob")
	hub.Register(alice1)
	hub.Register(alice2)
	hub.Register(bob)

	hub.Broadcast("alice", NewMessage("contact", "created", "c-42", nil))

	for _, c := range []*Client{alice1, alice2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "contact_created" {
				t.Errorf("expected type contact_created, got %s", got.Type)
			}
			if got.ID != "c-42" {
				t.Errorf("expected id c-42, got %s", got.ID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case <-bob.send:
		t.Error("bob should not receive alice's events")
	default:
	}
}

func TestDisconnectClosesAccountStreams(t *testing.T) {
	hub := NewHub(slog.Default())
	alice := mockClient(hub, "alice")
	bob := mockClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	hub.Disconnect("alice")

	if _, ok := <-alice.send; ok {
		t.Error("expected alice's send channel to be closed")
	}
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("expected 1 client left, got %d", got)
	}
	// Unregister after Disconnect must not close the channel twice.
	hub.Unregister(alice)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast("nobody", NewMessage("contact", "deleted", "1", nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "a")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast("a", NewMessage("test", "fill", "x", nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast("a", NewMessage("test", "dropped", "y", nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("contact", "favorited", "5", map[string]any{"favorite": true})
	if msg.Type != "contact_favorited" {
		t.Errorf("expected type contact_favorited, got %s", msg.Type)
	}
	if msg.Entity != "contact" {
		t.Errorf("expected entity contact, got %s", msg.Entity)
	}
	if msg.Action != "favorited" {
		t.Errorf("expected action favorited, got %s", msg.Action)
	}
	if msg.ID != "5" {
		t.Errorf("expected id 5, got %s", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "shared")
			hub.Register(c)
			hub.Broadcast("shared", NewMessage("test", "concurrent", "", nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocketRequiresAccount(t *testing.T) {
	hub := NewHub(slog.Default())
	h := HandleWebSocket(hub, []string{"*"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// An authenticated request without upgrade headers fails the handshake.
	ctx := auth.WithAccount(context.Background(), &model.Account{ID: "a"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts/events", nil).WithContext(ctx))
	if rec.Code == http.StatusOK || rec.Code == http.StatusSwitchingProtocols {
		t.Errorf("status = %d, want handshake failure", rec.Code)
	}
	if hub.ClientCount() != 0 {
		t.Error("failed handshake must not register a client")
	}
}
