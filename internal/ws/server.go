package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"emblitzgo/internal/game"
	"emblitzgo/internal/rooms"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 12 * time.Second
	pingPeriod = 3 * time.Second // must be < pongWait

	maxFrameSize = 1024

	actionLogin = "userlogin"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errMalformed          = errors.New("malformed request")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // same-origin clients only in practice
}

// WsServer owns the realtime channel: it routes inbound frames, bridges
// engine events to fan-out, and retires connections. One mutex serializes
// every message handler, every bridge event and every disconnect, so no
// two mutations of room/connection state ever interleave.
type WsServer struct {
	mu       sync.Mutex
	hub      *Hub
	router   *Router
	registry *rooms.Registry
	engine   game.Engine
	rdc      *redis.Client
}

func NewWsServer(hub *Hub, registry *rooms.Registry, engine game.Engine, rdc *redis.Client) *WsServer {
	srv := &WsServer{
		hub:      hub,
		router:   NewRouter(hub),
		registry: registry,
		engine:   engine,
		rdc:      rdc,
	}
	srv.registerHandlers()
	return srv
}

// Handle is the gin entry point for the /ws endpoint.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	raw, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	raw.SetReadLimit(maxFrameSize)

	conn := &clientConn{raw: raw}
	_ = conn.writeJSON(gin.H{"connection": "success"})

	go s.reader(conn)
	go s.pinger(conn)
}

func (s *WsServer) reader(conn *clientConn) {
	defer s.disconnect(conn)

	_ = conn.raw.SetReadDeadline(time.Now().Add(pongWait))
	conn.raw.SetPongHandler(func(string) error {
		return conn.raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.raw.ReadMessage()
		if err != nil {
			return // client closed or timed out
		}
		s.handleFrame(conn, raw)
	}
}

// handleFrame processes one inbound message under the dispatch mutex.
// A failure only ever reaches the sender; a panic in one handler must not
// take down the loop or touch other rooms.
func (s *WsServer) handleFrame(conn *clientConn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("ws.handler_panic", zap.Any("panic", r))
		}
	}()

	s.mu.Lock()
	err := s.router.dispatch(conn, raw)
	s.mu.Unlock()

	if err != nil {
		_ = conn.writeJSON(gin.H{"error": err.Error()})
	}
}

// disconnect retires a connection and its room-side bookkeeping. Safe to
// reach twice; the hub unbind is the idempotence gate.
func (s *WsServer) disconnect(conn *clientConn) {
	conn.close()

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, bound := s.hub.Unbind(conn)
	if !bound {
		return // never logged in, or already retired
	}
	s.registry.ReleaseUserID(meta.UID)

	res, ok := s.registry.Leave(meta.RoomID, meta.UID)
	if ok {
		if res.Occupancy < 2 && s.engine.Status(meta.RoomID) == game.StatusLobby {
			s.engine.PauseLobbyTimer(meta.RoomID)
		}
		if res.Removed {
			s.engine.RemoveGame(meta.RoomID)
		}
	}
	s.engine.RemovePlayer(meta.RoomID, meta.UID)

	s.hub.Broadcast(meta.RoomID, gin.H{"playerleft": meta.UID})
}

func (s *WsServer) pinger(conn *clientConn) {
	tk := time.NewTicker(pingPeriod)
	defer tk.Stop()

	for range tk.C {
		deadline := time.Now().Add(writeWait)
		if err := conn.raw.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			conn.close()
			return
		}
	}
}
