package typing

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaychat/coordinator/src/dispatch"
	"github.com/relaychat/coordinator/src/types"
)

// Broadcaster is the slice of the dispatcher the coordinator uses.
type Broadcaster interface {
	Send(target dispatch.Target, event string, data any)
}

const defaultTimeout = time.Second

type key struct {
	userID string
	roomID string
}

type session struct {
	gen      uint64
	timer    *time.Timer
	connID   string
	username string
}

// Coordinator debounces typing signals per (user, room). The first
// signal broadcasts isTyping:true to the other room members and arms
// an idle timer; further signals only re-arm it. The timer firing,
// or an explicit stop, broadcasts isTyping:false and drops the entry.
type Coordinator struct {
	mu       sync.Mutex
	sessions map[key]*session

	dispatcher Broadcaster
	timeout    time.Duration
	logger     zerolog.Logger
}

// New creates a typing coordinator with the given idle timeout.
// A non-positive timeout falls back to one second.
func New(d Broadcaster, timeout time.Duration, logger zerolog.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Coordinator{
		sessions:   make(map[key]*session),
		dispatcher: d,
		timeout:    timeout,
		logger:     logger.With().Str("component", "typing").Logger(),
	}
}

// Typing handles a typing signal from a user's connection in a room.
func (c *Coordinator) Typing(userID, username, roomID, connID string) {
	k := key{userID: userID, roomID: roomID}

	c.mu.Lock()
	if s, ok := c.sessions[k]; ok {
		// Already signaling: supersede the pending timer and re-arm.
		// A fire that lost the race re-checks session identity and
		// generation under the lock and aborts, so Stop() succeeding
		// is not required for correctness.
		s.gen++
		s.connID = connID
		s.timer.Stop()
		gen := s.gen
		s.timer = time.AfterFunc(c.timeout, func() { c.expire(k, s, gen) })
		c.mu.Unlock()
		return
	}

	s := &session{gen: 1, connID: connID, username: username}
	s.timer = time.AfterFunc(c.timeout, func() { c.expire(k, s, 1) })
	c.sessions[k] = s
	c.mu.Unlock()

	c.dispatcher.Send(dispatch.RoomExcept(roomID, connID), types.EventTypingIndicator, types.TypingPayload{
		RoomID:   roomID,
		Username: username,
		IsTyping: true,
	})
}

// Stop handles an explicit stop-typing signal. Without an active
// session it is a no-op.
func (c *Coordinator) Stop(userID, roomID string) {
	k := key{userID: userID, roomID: roomID}

	c.mu.Lock()
	s, ok := c.sessions[k]
	if !ok {
		c.mu.Unlock()
		return
	}
	s.timer.Stop()
	delete(c.sessions, k)
	connID, username := s.connID, s.username
	c.mu.Unlock()

	c.dispatcher.Send(dispatch.RoomExcept(roomID, connID), types.EventTypingIndicator, types.TypingPayload{
		RoomID:   roomID,
		Username: username,
		IsTyping: false,
	})
}

// Active reports whether a (user, room) pair is currently signaling.
func (c *Coordinator) Active(userID, roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[key{userID: userID, roomID: roomID}]
	return ok
}

// expire runs when an idle timer fires. The timer's session must
// still be the live one for its key and at the generation the timer
// was armed with; generations restart per session, so the identity
// check keeps a delayed fire from a dead session away from a fresh
// one that happens to share its generation.
func (c *Coordinator) expire(k key, s *session, gen uint64) {
	c.mu.Lock()
	if live, ok := c.sessions[k]; !ok || live != s || s.gen != gen {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, k)
	connID, username := s.connID, s.username
	c.mu.Unlock()

	c.logger.Debug().Str("user_id", k.userID).Str("room_id", k.roomID).Msg("typing idle timeout")
	c.dispatcher.Send(dispatch.RoomExcept(k.roomID, connID), types.EventTypingIndicator, types.TypingPayload{
		RoomID:   k.roomID,
		Username: username,
		IsTyping: false,
	})
}
