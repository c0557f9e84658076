package ws

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"emblitzgo/internal/game"
)

const (
	statsKeyPrefix = "stats:"
	statsActiveSet = "stats:active"
	gamesStream    = "games_stream"

	redisTimeout = 1500 * time.Millisecond
)

// RunBridge consumes engine lifecycle events and fans them out to the
// affected room. Single consumer, strict FIFO; the engine gets no ack.
func (s *WsServer) RunBridge(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.engine.Events():
				if !ok {
					return
				}
				s.handleEvent(ctx, ev)
			}
		}
	}()
}

func (s *WsServer) handleEvent(ctx context.Context, ev game.Event) {
	s.mu.Lock()
	switch e := ev.(type) {
	case game.MapStateChanged:
		s.hub.Broadcast(e.RoomID, gin.H{"updatemap": e.State})

	case game.AttackPhaseStarted:
		s.hub.Broadcast(e.RoomID, gin.H{"startAttackPhase": "ok"})
		s.engine.AddTroopsPassively(e.RoomID)

	case game.DeployPhaseStarted:
		// the room stops matching matchmaking scans from here on
		s.registry.SetInGame(e.RoomID)
		s.hub.Broadcast(e.RoomID, gin.H{
			"startgame":  true,
			"deploytime": int(e.DeployTime.Seconds()),
		})

	case game.TroopTimerTick:
		s.hub.Broadcast(e.RoomID, gin.H{"syncTroopTimer": e.Remaining.Milliseconds()})

	case game.LobbyTimerTick:
		// delayed one second so the displayed countdown edge lines up
		// with the tick boundary; later events are not held back
		secs := int(e.Remaining.Round(time.Second).Seconds()) - 1
		roomID := e.RoomID
		time.AfterFunc(time.Second, func() {
			s.hub.Broadcast(roomID, gin.H{"lobbytimer": secs})
		})

	case game.PlayerEliminated:
		s.hub.Broadcast(e.RoomID, gin.H{"playerdead": e.PlayerID, "place": e.Place})

	case game.PlayerWon:
		s.hub.Broadcast(e.RoomID, gin.H{"playerWon": e.PlayerID})
	}
	s.mu.Unlock()

	// stats accrual happens outside the dispatch mutex; redis latency
	// must never stall event fan-out
	switch e := ev.(type) {
	case game.PlayerEliminated:
		s.recordResult(ctx, e.RoomID, e.PlayerID, "losses")
	case game.PlayerWon:
		s.recordResult(ctx, e.RoomID, e.PlayerID, "wins")
		s.recordGame(ctx, e.RoomID, e.PlayerID)
	}
}

// recordResult bumps the live win/loss counter for the player's display
// name; the 10 s synchroniser mirrors these into Postgres.
func (s *WsServer) recordResult(ctx context.Context, roomID, uid, field string) {
	if s.rdc == nil {
		return
	}
	name, ok := s.displayName(roomID, uid)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	pipe := s.rdc.Pipeline()
	pipe.HIncrBy(ctx, statsKeyPrefix+name, field, 1)
	pipe.SAdd(ctx, statsActiveSet, name)
	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Warn("bridge.record_result", zap.String("player", name), zap.Error(err))
	}
}

// recordGame appends the finished match to the history stream consumed by
// syncgames.
func (s *WsServer) recordGame(ctx context.Context, roomID, winnerUID string) {
	if s.rdc == nil {
		return
	}
	winner, _ := s.displayName(roomID, winnerUID)

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	err := s.rdc.XAdd(ctx, &redis.XAddArgs{
		Stream: gamesStream,
		Values: map[string]any{
			"room":   roomID,
			"map":    s.registry.MapName(roomID),
			"winner": winner,
			"at":     time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		zap.L().Warn("bridge.record_game", zap.String("room", roomID), zap.Error(err))
	}
}

func (s *WsServer) displayName(roomID, uid string) (string, bool) {
	users, _, ok := s.registry.Snapshot(roomID)
	if !ok {
		return "", false
	}
	for _, u := range users {
		if u.ID == uid {
			return u.Name, true
		}
	}
	return "", false
}
