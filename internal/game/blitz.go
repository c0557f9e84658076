package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	eventBuffer   = 256
	troopInterval = 10 * time.Second
	startTroops   = 3
)

// territories per map; anything unknown gets the default
var mapTerritories = map[string]int{"miniworld": 9, "michigan": 18, "florida": 18}

const defaultTerritories = 12

// session is one room's game as the engine sees it.
type session struct {
	roomID     string
	mapName    string
	deployTime time.Duration

	status       Status
	players      []string
	lobbyLeft    time.Duration
	lobbyRunning bool
	deployLeft   time.Duration
	troopLeft    time.Duration
	troopsActive bool

	territories map[string]*Territory
	order       []string // stable territory iteration
}

// BlitzEngine is the in-process engine implementation. All state lives
// behind one mutex; a 1 s tick drives every session's timers and every
// notification leaves through a bounded channel.
type BlitzEngine struct {
	mu        sync.Mutex
	games     map[string]*session
	events    chan Event
	lobbyTime time.Duration
}

var _ Engine = (*BlitzEngine)(nil)

func New(lobbyTime time.Duration) *BlitzEngine {
	return &BlitzEngine{
		games:     make(map[string]*session),
		events:    make(chan Event, eventBuffer),
		lobbyTime: lobbyTime,
	}
}

// Run starts the timer loop. Call once at boot.
func (e *BlitzEngine) Run(ctx context.Context) {
	tk := time.NewTicker(time.Second)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				e.step(time.Second)
			}
		}
	}()
}

func (e *BlitzEngine) Events() <-chan Event { return e.events }

// emit never blocks the timer loop; a full channel drops the event.
func (e *BlitzEngine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		zap.L().Warn("game.event_dropped", zap.String("room", ev.Room()))
	}
}

func (e *BlitzEngine) NewGame(roomID, mapName string, deployTime time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, dupe := e.games[roomID]; dupe {
		return fmt.Errorf("game %s already exists", roomID)
	}

	n := mapTerritories[mapName]
	if n == 0 {
		n = defaultTerritories
	}
	s := &session{
		roomID:      roomID,
		mapName:     mapName,
		deployTime:  deployTime,
		status:      StatusLobby,
		lobbyLeft:   e.lobbyTime,
		territories: make(map[string]*Territory, n),
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("t%d", i)
		s.territories[id] = &Territory{Troops: 1}
		s.order = append(s.order, id)
	}
	e.games[roomID] = s
	return nil
}

func (e *BlitzEngine) RemoveGame(roomID string) {
	e.mu.Lock()
	delete(e.games, roomID)
	e.mu.Unlock()
}

// AddPlayer seats a player on the first unowned territory.
func (e *BlitzEngine) AddPlayer(roomID, playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.games[roomID]
	if !ok {
		return fmt.Errorf("game %s not found", roomID)
	}
	s.players = append(s.players, playerID)
	for _, id := range s.order {
		t := s.territories[id]
		if t.Owner == "" {
			t.Owner = playerID
			t.Troops = startTroops
			break
		}
	}
	e.emit(MapStateChanged{RoomID: roomID, State: s.copyState()})
	return nil
}

// RemovePlayer releases everything the player held back to neutral.
func (e *BlitzEngine) RemovePlayer(roomID, playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.games[roomID]
	if !ok {
		return
	}
	for i, p := range s.players {
		if p == playerID {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}
	for _, t := range s.territories {
		if t.Owner == playerID {
			t.Owner = ""
			t.Troops = 1
		}
	}
	e.emit(MapStateChanged{RoomID: roomID, State: s.copyState()})
}

func (e *BlitzEngine) DeployTroops(roomID, playerID, target string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.games[roomID]
	if !ok || (s.status != StatusDeploy && s.status != StatusAttack) {
		return
	}
	t, ok := s.territories[target]
	if !ok || t.Owner != playerID {
		return
	}
	t.Troops++
	e.emit(MapStateChanged{RoomID: roomID, State: s.copyState()})
}

func (e *BlitzEngine) AttackTerritory(roomID, playerID, start, target string, troopPercent int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.games[roomID]
	if !ok || s.status != StatusAttack {
		return
	}
	from, okF := s.territories[start]
	to, okT := s.territories[target]
	if !okF || !okT || from.Owner != playerID || start == target {
		return
	}
	if troopPercent < 1 {
		troopPercent = 1
	} else if troopPercent > 100 {
		troopPercent = 100
	}

	force := from.Troops * troopPercent / 100
	if force < 1 {
		force = 1
	}
	if force >= from.Troops {
		force = from.Troops - 1 // one stays home
	}
	if force < 1 {
		return
	}
	from.Troops -= force

	prevOwner := to.Owner
	switch {
	case to.Owner == playerID:
		to.Troops += force // move, not combat
	case force > to.Troops:
		to.Troops = force - to.Troops
		to.Owner = playerID
	default:
		to.Troops -= force
	}
	e.emit(MapStateChanged{RoomID: roomID, State: s.copyState()})

	if prevOwner != "" && prevOwner != playerID {
		e.resolveLocked(s, prevOwner)
	}
}

// resolveLocked emits elimination/win events after a capture.
func (e *BlitzEngine) resolveLocked(s *session, loser string) {
	alive := map[string]bool{}
	for _, t := range s.territories {
		if t.Owner != "" {
			alive[t.Owner] = true
		}
	}
	if !alive[loser] {
		e.emit(PlayerEliminated{RoomID: s.roomID, PlayerID: loser, Place: len(alive) + 1})
	}
	if len(alive) == 1 && len(s.players) > 1 {
		var winner string
		for p := range alive {
			winner = p
		}
		s.status = StatusOver
		e.emit(PlayerWon{RoomID: s.roomID, PlayerID: winner})
	}
}

func (e *BlitzEngine) AddTroopsPassively(roomID string) {
	e.mu.Lock()
	if s, ok := e.games[roomID]; ok {
		s.troopsActive = true
		s.troopLeft = troopInterval
	}
	e.mu.Unlock()
}

func (e *BlitzEngine) MapState(roomID string) (MapState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.games[roomID]
	if !ok {
		return nil, false
	}
	return s.copyState(), true
}

func (e *BlitzEngine) Status(roomID string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.games[roomID]; ok {
		return s.status
	}
	return StatusNone
}

func (e *BlitzEngine) PauseLobbyTimer(roomID string) { e.setLobbyRunning(roomID, false) }

func (e *BlitzEngine) ResumeLobbyTimer(roomID string) { e.setLobbyRunning(roomID, true) }

func (e *BlitzEngine) setLobbyRunning(roomID string, running bool) {
	e.mu.Lock()
	if s, ok := e.games[roomID]; ok && s.status == StatusLobby {
		s.lobbyRunning = running
	}
	e.mu.Unlock()
}

// SkipLobbyTimer fast-forwards the countdown; the next tick flips the
// room into the deploy phase.
func (e *BlitzEngine) SkipLobbyTimer(roomID string) {
	e.mu.Lock()
	if s, ok := e.games[roomID]; ok && s.status == StatusLobby {
		s.lobbyLeft = 0
		s.lobbyRunning = true
	}
	e.mu.Unlock()
}

// step advances every session by elapsed. Split out from Run so tests can
// drive the clock by hand.
func (e *BlitzEngine) step(elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.games {
		switch s.status {
		case StatusLobby:
			if !s.lobbyRunning {
				continue
			}
			s.lobbyLeft -= elapsed
			if s.lobbyLeft > 0 {
				e.emit(LobbyTimerTick{RoomID: s.roomID, Remaining: s.lobbyLeft})
				continue
			}
			s.status = StatusDeploy
			s.deployLeft = s.deployTime
			e.emit(DeployPhaseStarted{RoomID: s.roomID, DeployTime: s.deployTime})
		case StatusDeploy:
			s.deployLeft -= elapsed
			if s.deployLeft > 0 {
				continue
			}
			s.status = StatusAttack
			e.emit(AttackPhaseStarted{RoomID: s.roomID})
		case StatusAttack:
			if !s.troopsActive {
				continue
			}
			s.troopLeft -= elapsed
			if s.troopLeft > 0 {
				e.emit(TroopTimerTick{RoomID: s.roomID, Remaining: s.troopLeft})
				continue
			}
			for _, t := range s.territories {
				if t.Owner != "" {
					t.Troops++
				}
			}
			s.troopLeft = troopInterval
			e.emit(MapStateChanged{RoomID: s.roomID, State: s.copyState()})
		}
	}
}

func (s *session) copyState() MapState {
	out := make(MapState, len(s.territories))
	for id, t := range s.territories {
		out[id] = *t
	}
	return out
}

// Territories lists a session's territory ids in layout order; the bot
// uses it to pick targets.
func (e *BlitzEngine) Territories(roomID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.games[roomID]
	if !ok {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
