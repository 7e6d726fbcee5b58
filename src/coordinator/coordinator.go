package coordinator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/relaychat/coordinator/src/dispatch"
	"github.com/relaychat/coordinator/src/registry"
	"github.com/relaychat/coordinator/src/rooms"
	"github.com/relaychat/coordinator/src/types"
	"github.com/relaychat/coordinator/src/typing"
)

const defaultMaxMessageLength = 4096

// Coordinator is the command surface of the chat core. The transport
// layer calls one method per inbound event; every failure is scoped
// to the single command or delivery target that caused it.
type Coordinator struct {
	registry   *registry.Registry
	rooms      *rooms.Manager
	dispatcher *dispatch.Dispatcher
	typing     *typing.Coordinator
	directory  types.UserDirectory
	store      types.MessageStore

	maxMessageLength int
	logger           zerolog.Logger
}

// Options configures a Coordinator.
type Options struct {
	Registry   *registry.Registry
	Rooms      *rooms.Manager
	Dispatcher *dispatch.Dispatcher
	Typing     *typing.Coordinator
	Directory  types.UserDirectory
	Store      types.MessageStore

	MaxMessageLength int
}

// New creates the coordinator wiring the core components together.
func New(opts Options, logger zerolog.Logger) *Coordinator {
	maxLen := opts.MaxMessageLength
	if maxLen <= 0 {
		maxLen = defaultMaxMessageLength
	}
	return &Coordinator{
		registry:         opts.Registry,
		rooms:            opts.Rooms,
		dispatcher:       opts.Dispatcher,
		typing:           opts.Typing,
		directory:        opts.Directory,
		store:            opts.Store,
		maxMessageLength: maxLen,
		logger:           logger.With().Str("component", "coordinator").Logger(),
	}
}

// OnConnect registers a freshly accepted connection. An empty userID
// means the transport could not resolve an identity; the connection
// stays attached but anonymous, and commands from it produce errors.
func (c *Coordinator) OnConnect(ctx context.Context, connID, userID string) {
	if userID == "" {
		c.logger.Debug().Str("conn_id", connID).Msg("anonymous connection accepted")
		return
	}

	becameOnline := c.registry.Register(connID, userID)
	c.logger.Info().Str("conn_id", connID).Str("user_id", userID).Msg("connection registered")
	if !becameOnline {
		return
	}

	profile, err := c.directory.Resolve(ctx, userID)
	if err != nil || profile == nil {
		// Presence state is already correct; only the announcement is lost.
		c.logger.Error().Err(err).Str("user_id", userID).Msg("cannot resolve user for online broadcast")
		return
	}
	c.dispatcher.Send(dispatch.All(), types.EventUserOnline, types.PresencePayload{
		UserID:   profile.ID,
		Username: profile.Username,
	})
}

// OnDisconnect tears down a closed connection: membership cleanup,
// refcount release, and the resulting announcements. Unknown
// connection ids are a silent no-op.
func (c *Coordinator) OnDisconnect(ctx context.Context, connID string) {
	c.dispatcher.Detach(connID)

	left := c.rooms.LeaveAll(connID)

	userID, becameOffline := c.registry.Unregister(connID)
	if userID == "" {
		return
	}
	c.logger.Info().Str("conn_id", connID).Str("user_id", userID).Msg("connection unregistered")

	profile, err := c.directory.Resolve(ctx, userID)
	if err != nil || profile == nil {
		c.logger.Error().Err(err).Str("user_id", userID).Msg("cannot resolve user for disconnect broadcasts")
		return
	}

	for _, roomID := range left {
		c.dispatcher.Send(dispatch.Room(roomID), types.EventUserLeftRoom, types.RoomEventPayload{
			RoomID:   roomID,
			UserID:   profile.ID,
			Username: profile.Username,
		})
	}
	if becameOffline {
		c.dispatcher.Send(dispatch.All(), types.EventUserOffline, types.PresencePayload{
			UserID:   profile.ID,
			Username: profile.Username,
		})
	}
}

// JoinRoom subscribes a connection to a room and announces the join
// to the room's members, the joiner included.
func (c *Coordinator) JoinRoom(ctx context.Context, connID, roomID string) {
	userID, ok := c.registry.UserOf(connID)
	if !ok {
		c.sendError(connID, "User not authenticated")
		return
	}

	if !c.rooms.Join(connID, roomID) {
		return
	}

	profile, err := c.directory.Resolve(ctx, userID)
	if err != nil || profile == nil {
		c.logger.Error().Err(err).Str("user_id", userID).Str("room_id", roomID).Msg("cannot resolve user for join broadcast")
		return
	}
	c.dispatcher.Send(dispatch.Room(roomID), types.EventUserJoinedRoom, types.RoomEventPayload{
		RoomID:   roomID,
		UserID:   profile.ID,
		Username: profile.Username,
	})
}

// LeaveRoom unsubscribes a connection from a room and announces the
// leave to the remaining members. Unknown connections or non-members
// are a silent no-op.
func (c *Coordinator) LeaveRoom(ctx context.Context, connID, roomID string) {
	userID, ok := c.registry.UserOf(connID)
	if !ok {
		return
	}

	if !c.rooms.Leave(connID, roomID) {
		return
	}

	profile, err := c.directory.Resolve(ctx, userID)
	if err != nil || profile == nil {
		c.logger.Error().Err(err).Str("user_id", userID).Str("room_id", roomID).Msg("cannot resolve user for leave broadcast")
		return
	}
	c.dispatcher.Send(dispatch.Room(roomID), types.EventUserLeftRoom, types.RoomEventPayload{
		RoomID:   roomID,
		UserID:   profile.ID,
		Username: profile.Username,
	})
}

// SendMessage persists a message through the message store and then
// broadcasts it to the room, sender included. On any collaborator
// failure the caller gets an Error and nobody gets a partial
// broadcast.
func (c *Coordinator) SendMessage(ctx context.Context, connID, roomID, content string) {
	userID, ok := c.registry.UserOf(connID)
	if !ok {
		c.sendError(connID, "User not authenticated")
		return
	}

	if content == "" {
		c.sendError(connID, "Message content is empty")
		return
	}
	if len(content) > c.maxMessageLength {
		c.sendError(connID, "Message content too long")
		return
	}

	profile, err := c.directory.Resolve(ctx, userID)
	if err != nil || profile == nil {
		c.logger.Error().Err(err).Str("user_id", userID).Msg("cannot resolve message author")
		c.sendError(connID, "Failed to send message")
		return
	}

	stored, err := c.store.Persist(ctx, userID, roomID, content)
	if err != nil {
		c.logger.Error().Err(err).Str("user_id", userID).Str("room_id", roomID).Msg("message persist failed")
		c.sendError(connID, "Failed to send message")
		return
	}

	c.dispatcher.Send(dispatch.Room(roomID), types.EventReceiveMessage, types.MessagePayload{
		ID:        stored.ID,
		Content:   content,
		Username:  profile.Username,
		RoomID:    roomID,
		CreatedAt: stored.CreatedAt,
	})
	c.logger.Info().Str("user_id", userID).Str("room_id", roomID).Int64("message_id", stored.ID).Msg("message sent")
}

// SetTyping routes a typing signal into the per-(user, room) debounce
// state machine.
func (c *Coordinator) SetTyping(ctx context.Context, connID, roomID string, isTyping bool) {
	userID, ok := c.registry.UserOf(connID)
	if !ok {
		c.sendError(connID, "User not authenticated")
		return
	}

	if !isTyping {
		c.typing.Stop(userID, roomID)
		return
	}

	profile, err := c.directory.Resolve(ctx, userID)
	if err != nil || profile == nil {
		c.logger.Error().Err(err).Str("user_id", userID).Msg("cannot resolve user for typing indicator")
		c.sendError(connID, "Failed to update typing state")
		return
	}
	c.typing.Typing(userID, profile.Username, roomID, connID)
}

// sendError reports a command failure to the originating connection
// only; errors are never broadcast.
func (c *Coordinator) sendError(connID, message string) {
	c.dispatcher.Send(dispatch.Conn(connID), types.EventError, types.ErrorPayload{Message: message})
}
