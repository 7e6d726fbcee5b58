package registry

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegisterRefcount(t *testing.T) {
	r := New()

	if became := r.Register("c1", "alice"); !became {
		t.Error("first connection should report user became online")
	}
	if became := r.Register("c2", "alice"); became {
		t.Error("second connection must not re-fire the online transition")
	}

	if _, offline := r.Unregister("c1"); offline {
		t.Error("user still has a live connection, no offline transition expected")
	}
	userID, offline := r.Unregister("c2")
	if !offline {
		t.Error("last connection closing should report user became offline")
	}
	if userID != "alice" {
		t.Errorf("expected owning user alice, got %q", userID)
	}
}

func TestUnregisterUnknownConnection(t *testing.T) {
	r := New()

	userID, offline := r.Unregister("ghost")
	if userID != "" || offline {
		t.Error("unknown connection id must be a silent no-op")
	}
}

func TestRegisterSameConnectionTwice(t *testing.T) {
	r := New()

	r.Register("c1", "alice")
	if became := r.Register("c1", "alice"); became {
		t.Error("re-registering a known connection must be a no-op")
	}
	if got := r.ConnectionCount(); got != 1 {
		t.Errorf("expected 1 live connection, got %d", got)
	}
}

func TestOnlineQueries(t *testing.T) {
	r := New()

	r.Register("c1", "alice")
	r.Register("c2", "bob")
	r.Register("c3", "bob")

	if !r.IsOnline("alice") || !r.IsOnline("bob") {
		t.Error("both users should be online")
	}
	if r.IsOnline("carol") {
		t.Error("carol never connected")
	}
	if got := len(r.OnlineUsers()); got != 2 {
		t.Errorf("expected 2 online users, got %d", got)
	}
	if got := len(r.ConnectionsOf("bob")); got != 2 {
		t.Errorf("expected 2 connections for bob, got %d", got)
	}

	r.Unregister("c2")
	r.Unregister("c3")
	if r.IsOnline("bob") {
		t.Error("bob should be offline after closing both connections")
	}
	if got := len(r.OnlineUsers()); got != 1 {
		t.Errorf("offline users must not linger, got %d entries", got)
	}
}

func TestConcurrentRegisterUnregisterOneUser(t *testing.T) {
	r := New()

	const pairs = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	onlines, offlines := 0, 0

	for i := 0; i < pairs; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", n)
			if r.Register(connID, "alice") {
				mu.Lock()
				onlines++
				mu.Unlock()
			}
			if _, offline := r.Unregister(connID); offline {
				mu.Lock()
				offlines++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if onlines != offlines {
		t.Errorf("online transitions (%d) must match offline transitions (%d)", onlines, offlines)
	}
	if onlines == 0 {
		t.Error("at least one online transition expected")
	}
	if r.IsOnline("alice") {
		t.Error("all connections closed, alice must be offline")
	}
	if got := r.ConnectionCount(); got != 0 {
		t.Errorf("expected 0 live connections, got %d", got)
	}
}
