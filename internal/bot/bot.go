package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"emblitzgo/internal/game"
	"emblitzgo/internal/rooms"
)

const (
	idAlphabet = "1234567890qwertyuiopasdfghjklzxcvbnm"
	moveEvery  = 2 * time.Second
)

// bot ids carry the u-b- prefix so they never collide with human u- ids;
// the live sets below keep bots unique among themselves.
var (
	mu      sync.Mutex
	liveIDs = map[string]struct{}{}
)

func newBotID() string { return uniqueID("u-b-", 20) }
func newBotGID() string { return uniqueID("b-", 40) }

func uniqueID(prefix string, length int) string {
	mu.Lock()
	defer mu.Unlock()
	for {
		b := make([]byte, 0, len(prefix)+length)
		b = append(b, prefix...)
		for i := 0; i < length; i++ {
			b = append(b, idAlphabet[rand.Intn(len(idAlphabet))])
		}
		id := string(b)
		if _, dupe := liveIDs[id]; !dupe {
			liveIDs[id] = struct{}{}
			return id
		}
	}
}

func release(id string) {
	mu.Lock()
	delete(liveIDs, id)
	mu.Unlock()
}

// Bot is a synthetic player: it joins through the same registry/engine
// surface a human login uses and plays random moves. It exists to fill
// rooms, not to win.
type Bot struct {
	ID    string
	GID   string
	Name  string
	Color string

	roomID   string
	registry *rooms.Registry
	engine   game.Engine
}

func New(name, color string) *Bot {
	return &Bot{
		ID:    newBotID(),
		GID:   newBotGID(),
		Name:  name,
		Color: color,
	}
}

// Join seats the bot in a room exactly like a login handshake would.
func (b *Bot) Join(registry *rooms.Registry, engine game.Engine, roomID string) error {
	res, err := b.loginAs(registry, roomID)
	if err != nil {
		return err
	}
	b.roomID = roomID
	b.registry = registry
	b.engine = engine
	b.Color = res.Color
	return engine.AddPlayer(roomID, b.ID)
}

func (b *Bot) loginAs(registry *rooms.Registry, roomID string) (rooms.LoginResult, error) {
	return registry.Login(roomID, b.ID, b.Name, b.Color)
}

// Run plays until the context ends or the room's game is over: deploy
// onto a random owned territory, then attack a random foreign one. It
// blocks; start it in a goroutine for a fire-and-forget bot.
func (b *Bot) Run(ctx context.Context) {
	tk := time.NewTicker(moveEvery)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			if !b.move() {
				return
			}
		}
	}
}

func (b *Bot) move() bool {
	switch b.engine.Status(b.roomID) {
	case game.StatusNone, game.StatusOver:
		return false
	case game.StatusLobby:
		return true // nothing to do yet
	}

	state, ok := b.engine.MapState(b.roomID)
	if !ok {
		return false
	}
	var mine, theirs []string
	for id, t := range state {
		if t.Owner == b.ID {
			mine = append(mine, id)
		} else if t.Owner != "" {
			theirs = append(theirs, id)
		}
	}
	if len(mine) == 0 {
		return false // eliminated
	}

	b.engine.DeployTroops(b.roomID, b.ID, mine[rand.Intn(len(mine))])
	if len(theirs) > 0 {
		b.engine.AttackTerritory(b.roomID, b.ID,
			mine[rand.Intn(len(mine))], theirs[rand.Intn(len(theirs))], 50)
	}
	return true
}

// FillLobbies keeps n bots cycling through public matchmaking. Each bot
// enters an open room the way a browser client would, waits out the lobby,
// plays its game to the end, retires, and queues again. A bot alone in a
// room simply sits in the paused lobby until a human joins.
func FillLobbies(ctx context.Context, registry *rooms.Registry, engine game.Engine, n int) {
	for i := 0; i < n; i++ {
		go func() {
			for ctx.Err() == nil {
				b := New(rooms.GenPlayerName(), "")
				roomID := registry.AllocateOrJoin("random", false)
				if err := b.Join(registry, engine, roomID); err != nil {
					// lost the seat to a human between match and login
					zap.L().Warn("bot.join", zap.String("room", roomID), zap.Error(err))
					release(b.ID)
					release(b.GID)
				} else {
					b.Run(ctx)
					b.Leave()
				}

				select {
				case <-ctx.Done():
					return
				case <-time.After(moveEvery):
				}
			}
		}()
	}
}

// Leave retires the bot the way a socket close retires a human.
func (b *Bot) Leave() {
	if b.registry == nil {
		return
	}
	if res, ok := b.registry.Leave(b.roomID, b.ID); ok && res.Removed {
		b.engine.RemoveGame(b.roomID)
	}
	b.engine.RemovePlayer(b.roomID, b.ID)
	release(b.ID)
	release(b.GID)
	zap.L().Debug("bot.left", zap.String("bot", b.ID), zap.String("room", b.roomID))
}
