package game

import "time"

// Event is one engine lifecycle notification. The bridge consumes these
// strictly FIFO from Events(); the engine never waits for an ack.
type Event interface {
	Room() string
}

type MapStateChanged struct {
	RoomID string
	State  MapState
}

type DeployPhaseStarted struct {
	RoomID     string
	DeployTime time.Duration
}

type AttackPhaseStarted struct {
	RoomID string
}

type TroopTimerTick struct {
	RoomID    string
	Remaining time.Duration
}

type LobbyTimerTick struct {
	RoomID    string
	Remaining time.Duration
}

type PlayerEliminated struct {
	RoomID   string
	PlayerID string
	Place    int
}

type PlayerWon struct {
	RoomID   string
	PlayerID string
}

func (e MapStateChanged) Room() string    { return e.RoomID }
func (e DeployPhaseStarted) Room() string { return e.RoomID }
func (e AttackPhaseStarted) Room() string { return e.RoomID }
func (e TroopTimerTick) Room() string     { return e.RoomID }
func (e LobbyTimerTick) Room() string     { return e.RoomID }
func (e PlayerEliminated) Room() string   { return e.RoomID }
func (e PlayerWon) Room() string          { return e.RoomID }
