package game

import "time"

// Status of one room's game session.
type Status string

const (
	StatusLobby  Status = "lobby"
	StatusDeploy Status = "deploy"
	StatusAttack Status = "attack"
	StatusOver   Status = "over"

	// StatusNone is reported for rooms the engine has never seen or has
	// already discarded.
	StatusNone Status = "no room"
)

// Territory is one cell of a room's map state.
type Territory struct {
	Owner  string `json:"owner"`
	Troops int    `json:"troops"`
}

// MapState is the full ownership snapshot broadcast to a room.
type MapState map[string]Territory

// Engine is the narrow command/query/event surface the session layer
// consumes. The implementation behind it is a black box: commands are
// fire-and-forget, queries are instantaneous, and everything it wants the
// clients to learn arrives later on the Events channel.
type Engine interface {
	NewGame(roomID, mapName string, deployTime time.Duration) error
	RemoveGame(roomID string)
	AddPlayer(roomID, playerID string) error
	RemovePlayer(roomID, playerID string)

	DeployTroops(roomID, playerID, target string)
	AttackTerritory(roomID, playerID, start, target string, troopPercent int)
	AddTroopsPassively(roomID string)

	MapState(roomID string) (MapState, bool)
	Status(roomID string) Status

	PauseLobbyTimer(roomID string)
	ResumeLobbyTimer(roomID string)
	SkipLobbyTimer(roomID string)

	Events() <-chan Event
}
