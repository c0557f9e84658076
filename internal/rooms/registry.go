package rooms

import (
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrRoomNotFound = errors.New("room does not exist")
	ErrRoomFull     = errors.New("roomfull")
)

// GameBackend is the slice of the engine the registry needs: session
// creation on allocation and teardown on garbage collection / last leave.
type GameBackend interface {
	NewGame(roomID, mapName string, deployTime time.Duration) error
	RemoveGame(roomID string)
}

// Registry owns every live room and every issued player id. It is the only
// holder of room state in the process; all mutation goes through its
// methods so each read-decide-write is one atomic step.
type Registry struct {
	mu         sync.Mutex
	rooms      []*Room          // registration order, scanned first-fit
	byID       map[string]*Room // O(1) lookups for message handlers
	userIDs    map[string]struct{}
	backend    GameBackend
	deployTime time.Duration
}

func NewRegistry(backend GameBackend, deployTime time.Duration) *Registry {
	return &Registry{
		byID:       make(map[string]*Room),
		userIDs:    make(map[string]struct{}),
		backend:    backend,
		deployTime: deployTime,
	}
}

func randomID(prefix string, length int) string {
	b := make([]byte, 0, len(prefix)+length)
	b = append(b, prefix...)
	for i := 0; i < length; i++ {
		b = append(b, idAlphabet[rand.Intn(len(idAlphabet))])
	}
	return string(b)
}

// newRoomIDLocked retries until the id is unused among live rooms. The
// collision odds are negligible but the loop re-checks anyway.
func (reg *Registry) newRoomIDLocked() string {
	for {
		id := randomID("r-", roomIDLen)
		if _, dupe := reg.byID[id]; !dupe {
			return id
		}
	}
}

// NewUserID issues a player id unique among currently connected players.
// Ids are handed back via ReleaseUserID when the connection retires.
func (reg *Registry) NewUserID() string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for {
		id := randomID("u-", userIDLen)
		if _, dupe := reg.userIDs[id]; !dupe {
			reg.userIDs[id] = struct{}{}
			return id
		}
	}
}

func (reg *Registry) ReleaseUserID(uid string) {
	reg.mu.Lock()
	delete(reg.userIDs, uid)
	reg.mu.Unlock()
}

// GenPlayerName is the placeholder for players who left the name box blank.
func GenPlayerName() string {
	return "Player " + strconv.Itoa(rand.Intn(999)+1)
}

// AllocateOrJoin returns the id of an open room matching the map
// preference, creating a fresh room when forceNew is set or nothing fits.
// "random" (or any unknown map) matches every open room and, on creation,
// picks a uniformly random catalog map. Empty lobbies past their grace
// period are swept as a side effect.
func (reg *Registry) AllocateOrJoin(preferMap string, forceNew bool) string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	mapName := preferMap
	anyMap := false
	if _, known := allMaps[preferMap]; preferMap == "random" || !known {
		names := MapNames()
		mapName = names[rand.Intn(len(names))]
		anyMap = true
	}

	reg.gcLocked()

	if !forceNew {
		for _, r := range reg.rooms {
			if r.players >= r.maxPlayers || r.inGame || r.isPrivate {
				continue
			}
			if anyMap || r.mapName == mapName {
				return r.id
			}
		}
	}

	return reg.createLocked(mapName, forceNew)
}

// JoinByRoomID targets a caller-known room directly (private invitations).
// No mutation happens here; the actual admit is the websocket login.
func (reg *Registry) JoinByRoomID(roomID string) (string, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.byID[roomID]
	if !ok {
		return "", ErrRoomNotFound
	}
	if r.players >= r.maxPlayers {
		return "", ErrRoomFull
	}
	return r.id, nil
}

func (reg *Registry) createLocked(mapName string, private bool) string {
	r := &Room{
		id:         reg.newRoomIDLocked(),
		mapName:    mapName,
		isPrivate:  private,
		createdAt:  time.Now(),
		maxPlayers: allMaps[mapName],
	}
	reg.rooms = append(reg.rooms, r)
	reg.byID[r.id] = r

	if err := reg.backend.NewGame(r.id, r.mapName, reg.deployTime); err != nil {
		zap.L().Warn("rooms.new_game", zap.String("room", r.id), zap.Error(err))
	}
	return r.id
}

// gcLocked removes empty lobbies older than the grace period and tells the
// engine to discard their session state.
func (reg *Registry) gcLocked() {
	kept := reg.rooms[:0]
	for _, r := range reg.rooms {
		if r.players < 1 && time.Since(r.createdAt) > emptyRoomGrace {
			delete(reg.byID, r.id)
			reg.backend.RemoveGame(r.id)
			continue
		}
		kept = append(kept, r)
	}
	reg.rooms = kept
}

// MapName resolves a room's playing field, "" when the room is gone.
func (reg *Registry) MapName(roomID string) string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.byID[roomID]; ok {
		return r.mapName
	}
	return ""
}

// LoginResult carries everything the login handler broadcasts afterwards.
type LoginResult struct {
	Name      string
	Color     string
	MapName   string
	IsPrivate bool
	Occupancy int
	Users     []PlayerInfo
	Confirmed []string
}

// Login admits a player into a room. The occupancy counter is incremented
// before the capacity check and is NOT rolled back when the room turns out
// to be full; only the member-list append is skipped in that case. This
// mirrors the shipped client-visible behavior and must not be "fixed"
// without a protocol bump.
func (reg *Registry) Login(roomID, uid, name, color string) (LoginResult, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.byID[roomID]
	if !ok {
		return LoginResult{}, ErrRoomNotFound
	}

	r.players++
	res := LoginResult{Occupancy: r.players, MapName: r.mapName, IsPrivate: r.isPrivate}
	if r.players > r.maxPlayers {
		return res, ErrRoomFull
	}

	// cap by rune, not byte; a byte slice can split a multi-byte character
	if runes := []rune(name); len(runes) > maxNameLen {
		name = string(runes[:maxNameLen])
	}
	if name == "" {
		name = GenPlayerName()
	}
	if color == "" {
		color = "red"
	}
	res.Name = name
	res.Color = pickColor(color, r.takenColors())

	r.playerList = append(r.playerList, PlayerInfo{ID: uid, Name: name, Color: res.Color})
	res.Users, res.Confirmed = r.snapshot()
	return res, nil
}

// pickColor keeps the preference when free, otherwise draws uniformly from
// the remaining colors. With every color taken the preference is kept and
// later joiners may collide; that is accepted.
func pickColor(preferred string, taken []string) string {
	isTaken := func(c string) bool {
		for _, t := range taken {
			if t == c {
				return true
			}
		}
		return false
	}
	if !isTaken(preferred) {
		return preferred
	}
	free := make([]string, 0, len(ColorOptions))
	for _, c := range ColorOptions {
		if !isTaken(c) {
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		return preferred
	}
	return free[rand.Intn(len(free))]
}

// ReadyState is the room snapshot broadcast after a mapready message.
type ReadyState struct {
	Ready     int
	Occupancy int
	Users     []PlayerInfo
	Confirmed []string
}

// MapReady bumps the room's ready counter. Repeated mapready messages from
// one connection bump it repeatedly; the client only sends it once per
// load, so the counter is not defended.
func (reg *Registry) MapReady(roomID string) (ReadyState, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.byID[roomID]
	if !ok {
		return ReadyState{}, false
	}
	r.readyCount++
	st := ReadyState{Ready: r.readyCount, Occupancy: r.players}
	st.Users, st.Confirmed = r.snapshot()
	return st, true
}

// Confirm records a player's phase acknowledgement exactly once. skip is
// true when every current occupant has confirmed and the room is not solo,
// meaning the lobby countdown should be fast-forwarded.
func (reg *Registry) Confirm(roomID, uid string) (confirmed []string, skip, ok bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, found := reg.byID[roomID]
	if !found {
		return nil, false, false
	}
	if !r.hasConfirmed(uid) {
		r.confirmed = append(r.confirmed, uid)
	}
	_, confirmed = r.snapshot()
	skip = len(r.confirmed) == r.players && r.players > 1
	return confirmed, skip, true
}

// SetInGame flips the room out of the lobby; no further joins match it.
func (reg *Registry) SetInGame(roomID string) {
	reg.mu.Lock()
	if r, ok := reg.byID[roomID]; ok {
		r.inGame = true
	}
	reg.mu.Unlock()
}

// LeaveResult tells the disconnect path what to do with the engine.
type LeaveResult struct {
	Occupancy int
	InGame    bool
	Removed   bool // room hit zero occupancy and left the registry
}

// Leave retires one player from a room: decrements occupancy, drops the
// player from the member and confirmed lists, and removes the room when it
// empties mid-session. During an active game the ready counter shrinks
// too (best effort, not re-validated).
func (reg *Registry) Leave(roomID, uid string) (LeaveResult, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.byID[roomID]
	if !ok {
		return LeaveResult{}, false
	}

	r.players--
	if r.inGame {
		r.readyCount--
	}
	res := LeaveResult{Occupancy: r.players, InGame: r.inGame}

	r.dropPlayer(uid)

	if r.players < 1 {
		delete(reg.byID, r.id)
		for i, rr := range reg.rooms {
			if rr == r {
				reg.rooms = append(reg.rooms[:i], reg.rooms[i+1:]...)
				break
			}
		}
		res.Removed = true
	}
	return res, true
}

// Occupancy reports a room's current player counter. It can exceed the
// map's capacity transiently because of the admit-then-check login order.
func (reg *Registry) Occupancy(roomID string) (int, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.byID[roomID]; ok {
		return r.players, true
	}
	return 0, false
}

// Snapshot returns the current member and confirmed lists of a room.
func (reg *Registry) Snapshot(roomID string) ([]PlayerInfo, []string, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.byID[roomID]
	if !ok {
		return nil, nil, false
	}
	users, confirmed := r.snapshot()
	return users, confirmed, true
}
