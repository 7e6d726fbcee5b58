package dispatch

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaychat/coordinator/src/rooms"
	"github.com/relaychat/coordinator/src/types"
)

// mockConn implements types.Conn for testing without a real WebSocket.
type mockConn struct {
	mu         sync.Mutex
	written    []types.Envelope
	failWrites bool
	closed     bool
	closedCh   chan struct{}
}

func newMockConn() *mockConn {
	return &mockConn{closedCh: make(chan struct{})}
}

func (m *mockConn) WriteJSON(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errors.New("transport closed")
	}
	if env, ok := v.(types.Envelope); ok {
		m.written = append(m.written, env)
	}
	return nil
}

func (m *mockConn) ReadJSON(v any) error {
	<-m.closedCh
	return errors.New("connection closed")
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closedCh)
	}
	return nil
}

func (m *mockConn) getWritten() []types.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]types.Envelope, len(m.written))
	copy(cp, m.written)
	return cp
}

type fixture struct {
	rooms      *rooms.Manager
	dispatcher *Dispatcher
}

func newFixture() *fixture {
	members := rooms.New()
	return &fixture{
		rooms:      members,
		dispatcher: New(members, 16, zerolog.Nop()),
	}
}

// attach wires a mock connection and starts its write pump.
func (f *fixture) attach(connID string) *mockConn {
	conn := newMockConn()
	client := f.dispatcher.Attach(connID, conn)
	go client.WritePump()
	return conn
}

// settle gives the write pumps time to drain.
func settle() { time.Sleep(50 * time.Millisecond) }

func TestSendToRoomReachesEveryMember(t *testing.T) {
	f := newFixture()
	c1 := f.attach("c1")
	c2 := f.attach("c2")
	c3 := f.attach("c3")

	f.rooms.Join("c1", "general")
	f.rooms.Join("c2", "general")

	f.dispatcher.Send(Room("general"), "ReceiveMessage", map[string]any{"content": "hi"})
	settle()

	if got := len(c1.getWritten()); got != 1 {
		t.Errorf("expected 1 envelope for c1, got %d", got)
	}
	if got := len(c2.getWritten()); got != 1 {
		t.Errorf("expected 1 envelope for c2, got %d", got)
	}
	if got := len(c3.getWritten()); got != 0 {
		t.Errorf("c3 is not a member, got %d envelopes", got)
	}
}

func TestSendRoomExceptSkipsOnlyThatConnection(t *testing.T) {
	f := newFixture()
	c1 := f.attach("c1")
	c2 := f.attach("c2")

	f.rooms.Join("c1", "general")
	f.rooms.Join("c2", "general")

	f.dispatcher.Send(RoomExcept("general", "c1"), "TypingIndicator", nil)
	settle()

	if got := len(c1.getWritten()); got != 0 {
		t.Errorf("excluded connection received %d envelopes", got)
	}
	if got := len(c2.getWritten()); got != 1 {
		t.Errorf("expected 1 envelope for c2, got %d", got)
	}
}

func TestSendAllAndSingleConnection(t *testing.T) {
	f := newFixture()
	c1 := f.attach("c1")
	c2 := f.attach("c2")

	f.dispatcher.Send(All(), "UserOnline", nil)
	f.dispatcher.Send(Conn("c2"), "Error", nil)
	settle()

	if got := len(c1.getWritten()); got != 1 {
		t.Errorf("expected 1 envelope for c1, got %d", got)
	}
	if got := len(c2.getWritten()); got != 2 {
		t.Errorf("expected 2 envelopes for c2, got %d", got)
	}
}

func TestPartialDeliveryFailureIsolation(t *testing.T) {
	f := newFixture()
	c1 := f.attach("c1")
	broken := f.attach("c2")
	c3 := f.attach("c3")
	broken.failWrites = true

	for _, id := range []string{"c1", "c2", "c3"} {
		f.rooms.Join(id, "general")
	}

	f.dispatcher.Send(Room("general"), "ReceiveMessage", nil)
	settle()

	if got := len(c1.getWritten()); got != 1 {
		t.Errorf("healthy member c1 should still receive, got %d", got)
	}
	if got := len(c3.getWritten()); got != 1 {
		t.Errorf("healthy member c3 should still receive, got %d", got)
	}
}

func TestPerConnectionOrderingPreserved(t *testing.T) {
	f := newFixture()
	c1 := f.attach("c1")
	f.rooms.Join("c1", "general")

	for i := 0; i < 10; i++ {
		f.dispatcher.Send(Room("general"), "ReceiveMessage", i)
	}
	settle()

	written := c1.getWritten()
	if len(written) != 10 {
		t.Fatalf("expected 10 envelopes, got %d", len(written))
	}
	for i, env := range written {
		if env.Data != i {
			t.Fatalf("envelope %d delivered out of order: got %v", i, env.Data)
		}
	}
}

func TestSendToDetachedConnectionIsSkipped(t *testing.T) {
	f := newFixture()
	c1 := f.attach("c1")
	c2 := f.attach("c2")
	f.rooms.Join("c1", "general")
	f.rooms.Join("c2", "general")

	f.dispatcher.Detach("c2")
	f.dispatcher.Send(Room("general"), "ReceiveMessage", nil)
	settle()

	if got := len(c1.getWritten()); got != 1 {
		t.Errorf("remaining member should receive, got %d", got)
	}
	if got := len(c2.getWritten()); got != 0 {
		t.Errorf("detached connection must not receive, got %d", got)
	}
	if got := f.dispatcher.ClientCount(); got != 1 {
		t.Errorf("expected 1 attached client, got %d", got)
	}
}

func TestDetachIsIdempotent(t *testing.T) {
	f := newFixture()
	f.attach("c1")

	f.dispatcher.Detach("c1")
	f.dispatcher.Detach("c1")
	f.dispatcher.Detach("never-attached")

	if got := f.dispatcher.ClientCount(); got != 0 {
		t.Errorf("expected 0 attached clients, got %d", got)
	}
}
