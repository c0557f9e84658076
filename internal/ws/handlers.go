package ws

import (
	"errors"
	"html"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emblitzgo/internal/game"
	"emblitzgo/internal/rooms"
)

// sanitize strips anything that could later land in an HTML rendering
// context. Applied to every free-text field before it is stored.
func sanitize(s string) string { return html.EscapeString(s) }

func (s *WsServer) registerHandlers() {
	RegisterAction(s.router, actionLogin, s.handleLogin)
	RegisterAction(s.router, "mapready", s.handleMapReady)
	RegisterAction(s.router, "userconfirm", s.handleConfirm)
	RegisterAction(s.router, "deploy", s.handleDeploy)
	RegisterAction(s.router, "attack", s.handleAttack)
}

// handleLogin runs the login handshake: sanitize, admit, pick a color,
// register the connection, then bring the whole room up to date. The
// occupancy counter is bumped before the capacity check and stays bumped
// on a full room; only this player's membership is skipped then.
func (s *WsServer) handleLogin(c *clientConn, req loginRequest) error {
	uid := sanitize(req.UID)
	roomID := sanitize(req.RoomID)

	res, err := s.registry.Login(roomID, uid, sanitize(req.PName), sanitize(req.PColor))
	if errors.Is(err, rooms.ErrRoomNotFound) {
		_ = c.writeJSON(gin.H{"error": "room does not exist"})
		return nil
	}

	// every join past the first wakes the lobby countdown back up
	if res.Occupancy > 1 && s.engine.Status(roomID) == game.StatusLobby {
		s.engine.ResumeLobbyTimer(roomID)
	}

	if errors.Is(err, rooms.ErrRoomFull) {
		_ = c.writeJSON(gin.H{"error": "roomfull"})
		return nil
	}

	s.hub.Bind(c, Metadata{
		UID:    uid,
		GID:    req.GID,
		RoomID: roomID,
		Name:   res.Name,
		Color:  res.Color,
	})

	_ = c.writeJSON(gin.H{"setcolor": res.Color})

	if err := s.engine.AddPlayer(roomID, uid); err != nil {
		zap.L().Warn("ws.add_player", zap.String("room", roomID), zap.Error(err))
	}

	_ = c.writeJSON(gin.H{"mapname": res.MapName})

	s.hub.Broadcast(roomID, gin.H{
		"users":            res.Users,
		"playersconfirmed": res.Confirmed,
		"isprivateroom":    res.IsPrivate,
	})
	return nil
}

// handleMapReady counts a client-side map load. The counter is not
// deduplicated per connection; the client sends mapready once per load.
func (s *WsServer) handleMapReady(c *clientConn, _ readyRequest) error {
	meta, _ := s.hub.Lookup(c)

	st, ok := s.registry.MapReady(meta.RoomID)
	if !ok {
		return nil
	}

	s.hub.Broadcast(meta.RoomID, gin.H{"usersready": st.Ready})
	if st.Ready == st.Occupancy {
		s.hub.Broadcast(meta.RoomID, gin.H{"message": "all users loaded"})
		s.hub.Broadcast(meta.RoomID, gin.H{
			"users":            st.Users,
			"playersconfirmed": st.Confirmed,
		})
	}
	return nil
}

// handleConfirm records the phase acknowledgement once per player and
// fast-forwards the lobby countdown when the whole room has confirmed.
func (s *WsServer) handleConfirm(c *clientConn, _ confirmRequest) error {
	meta, _ := s.hub.Lookup(c)

	confirmed, skip, ok := s.registry.Confirm(meta.RoomID, meta.UID)
	if !ok {
		return nil
	}
	if skip {
		s.engine.SkipLobbyTimer(meta.RoomID)
	}

	s.hub.Broadcast(meta.RoomID, gin.H{"confirmedusers": confirmed})
	return nil
}

func (s *WsServer) handleDeploy(c *clientConn, req deployRequest) error {
	meta, _ := s.hub.Lookup(c)
	if req.RoomID != meta.RoomID {
		zap.L().Debug("ws.deploy_wrong_room", zap.String("uid", meta.UID))
		return nil
	}
	s.engine.DeployTroops(req.RoomID, meta.UID, req.Target)
	return nil
}

func (s *WsServer) handleAttack(c *clientConn, req attackRequest) error {
	meta, _ := s.hub.Lookup(c)
	if req.RoomID != meta.RoomID {
		zap.L().Debug("ws.attack_wrong_room", zap.String("uid", meta.UID))
		return nil
	}
	s.engine.AttackTerritory(req.RoomID, meta.UID, req.Start, req.Target, req.TroopPercent)
	return nil
}
