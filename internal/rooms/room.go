package rooms

import "time"

// PlayerInfo is one entry of a room's member list, join order preserved.
// JSON keys are the wire format the browser client renders.
type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"pcolor"`
}

// Room is a matchmaking and gameplay unit. All fields are guarded by the
// owning Registry's mutex; nothing outside this package touches them.
type Room struct {
	id         string
	mapName    string
	isPrivate  bool
	inGame     bool
	createdAt  time.Time
	maxPlayers int

	// players is the occupancy counter; it can briefly exceed
	// len(playerList) because logins are admitted before the capacity
	// check (see Registry.Login).
	players    int
	readyCount int
	playerList []PlayerInfo
	confirmed  []string
}

func (r *Room) takenColors() []string {
	taken := make([]string, 0, len(r.playerList))
	for _, p := range r.playerList {
		taken = append(taken, p.Color)
	}
	return taken
}

func (r *Room) hasConfirmed(uid string) bool {
	for _, c := range r.confirmed {
		if c == uid {
			return true
		}
	}
	return false
}

func (r *Room) dropPlayer(uid string) {
	kept := r.playerList[:0]
	for _, p := range r.playerList {
		if p.ID != uid {
			kept = append(kept, p)
		}
	}
	r.playerList = kept

	keptC := r.confirmed[:0]
	for _, c := range r.confirmed {
		if c != uid {
			keptC = append(keptC, c)
		}
	}
	r.confirmed = keptC
}

// snapshot copies the member and confirmed lists so callers can hand them
// to broadcasts after the registry lock is released.
func (r *Room) snapshot() ([]PlayerInfo, []string) {
	users := make([]PlayerInfo, len(r.playerList))
	copy(users, r.playerList)
	confirmed := make([]string, len(r.confirmed))
	copy(confirmed, r.confirmed)
	return users, confirmed
}
