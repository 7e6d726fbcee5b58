package server

import (
	"context"
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/relaychat/coordinator/src/auth"
	"github.com/relaychat/coordinator/src/types"
)

// WebsocketHandler returns the raw fasthttp handler for /ws upgrades.
func (s *Server) WebsocketHandler() fasthttp.RequestHandler {
	upgrader := websocket.FastHTTPUpgrader{
		ReadBufferSize:  s.cfg.ReadBufferSize,
		WriteBufferSize: s.cfg.WriteBufferSize,
	}

	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		userID := s.resolveIdentity(string(ctx.QueryArgs().Peek("token")))
		connID := uuid.New().String()

		err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			s.serveConnection(connID, userID, &fasthttpConn{conn})
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}

// resolveIdentity maps a connection token to a user id. A missing or
// invalid token yields an anonymous connection; policy beyond that is
// up to whatever issued the token.
func (s *Server) resolveIdentity(token string) string {
	if token == "" || s.cfg.TokenSecret == "" {
		return ""
	}
	claims, err := auth.VerifyToken(token, s.cfg.TokenSecret)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejecting connection token")
		return ""
	}
	return claims.UserID
}

// serveConnection runs a connection's lifetime: attach, announce,
// read commands until the transport closes, then tear down.
func (s *Server) serveConnection(connID, userID string, conn types.Conn) {
	ctx := context.Background()

	client := s.dispatcher.Attach(connID, conn)
	go client.WritePump()

	s.coord.OnConnect(ctx, connID, userID)
	defer s.coord.OnDisconnect(ctx, connID)

	for {
		var cmd types.Command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.handleCommand(ctx, connID, cmd)
	}
}

func (s *Server) handleCommand(ctx context.Context, connID string, cmd types.Command) {
	switch cmd.Action {
	case types.ActionJoin:
		s.coord.JoinRoom(ctx, connID, cmd.RoomID)
	case types.ActionLeave:
		s.coord.LeaveRoom(ctx, connID, cmd.RoomID)
	case types.ActionSend:
		s.coord.SendMessage(ctx, connID, cmd.RoomID, cmd.Content)
	case types.ActionTyping:
		s.coord.SetTyping(ctx, connID, cmd.RoomID, cmd.IsTyping)
	default:
		s.logger.Debug().Str("action", cmd.Action).Str("conn_id", connID).Msg("unknown command")
	}
}

// fasthttpConn wraps fasthttp/websocket.Conn to satisfy types.Conn.
type fasthttpConn struct {
	conn *websocket.Conn
}

func (f *fasthttpConn) WriteJSON(v any) error { return f.conn.WriteJSON(v) }
func (f *fasthttpConn) ReadJSON(v any) error  { return f.conn.ReadJSON(v) }
func (f *fasthttpConn) Close() error          { return f.conn.Close() }
