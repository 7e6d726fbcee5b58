package dispatch

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaychat/coordinator/src/types"
)

// Memberships exposes room membership snapshots for target resolution.
type Memberships interface {
	Members(roomID string) []string
}

type targetKind int

const (
	targetAll targetKind = iota
	targetRoom
	targetRoomExcept
	targetConn
)

// Target identifies the connection set a Send resolves against.
type Target struct {
	kind   targetKind
	roomID string
	connID string
}

// All targets every live connection.
func All() Target { return Target{kind: targetAll} }

// Room targets every member of a room.
func Room(roomID string) Target { return Target{kind: targetRoom, roomID: roomID} }

// RoomExcept targets every member of a room except one connection.
func RoomExcept(roomID, connID string) Target {
	return Target{kind: targetRoomExcept, roomID: roomID, connID: connID}
}

// Conn targets a single connection.
func Conn(connID string) Target { return Target{kind: targetConn, connID: connID} }

// Dispatcher fans out envelopes to connection sets. It is the only
// component that touches the transport; membership and registry locks
// are released before anything is enqueued.
type Dispatcher struct {
	mu      sync.RWMutex
	clients map[string]*Client

	rooms  Memberships
	buffer int
	logger zerolog.Logger
}

// New creates a dispatcher resolving room targets against the given
// membership view.
func New(rooms Memberships, buffer int, logger zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		clients: make(map[string]*Client),
		rooms:   rooms,
		buffer:  buffer,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Attach wraps a transport connection in a Client and makes it
// addressable. The caller starts the write pump.
func (d *Dispatcher) Attach(connID string, conn types.Conn) *Client {
	client := newClient(connID, conn, d.buffer, d.logger)
	d.mu.Lock()
	d.clients[connID] = client
	d.mu.Unlock()
	return client
}

// Detach removes a connection and stops its write pump. Unknown ids
// are a no-op.
func (d *Dispatcher) Detach(connID string) {
	d.mu.Lock()
	client, ok := d.clients[connID]
	delete(d.clients, connID)
	d.mu.Unlock()
	if ok {
		client.Close()
	}
}

// ClientCount returns the number of attached connections.
func (d *Dispatcher) ClientCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.clients)
}

// Send delivers an event to every connection in the target set.
// Delivery is best effort per target: a connection that is gone or
// has a full buffer is logged and skipped, and the rest of the set
// still receives the event.
func (d *Dispatcher) Send(target Target, event string, data any) {
	ids := d.resolve(target)
	if len(ids) == 0 {
		return
	}

	env := types.Envelope{Event: event, Data: data, Timestamp: time.Now().UTC()}
	for _, id := range ids {
		d.mu.RLock()
		client, ok := d.clients[id]
		d.mu.RUnlock()
		if !ok {
			d.logger.Debug().Str("conn_id", id).Str("event", event).Msg("target gone, skipping")
			continue
		}
		select {
		case client.send <- env:
		default:
			d.logger.Warn().Str("conn_id", id).Str("event", event).Msg("send buffer full, dropping")
		}
	}
}

// resolve snapshots the target's connection ids without holding any
// lock during delivery.
func (d *Dispatcher) resolve(target Target) []string {
	switch target.kind {
	case targetAll:
		d.mu.RLock()
		ids := make([]string, 0, len(d.clients))
		for id := range d.clients {
			ids = append(ids, id)
		}
		d.mu.RUnlock()
		return ids
	case targetRoom:
		return d.rooms.Members(target.roomID)
	case targetRoomExcept:
		members := d.rooms.Members(target.roomID)
		ids := members[:0]
		for _, id := range members {
			if id != target.connID {
				ids = append(ids, id)
			}
		}
		return ids
	case targetConn:
		return []string{target.connID}
	}
	return nil
}
