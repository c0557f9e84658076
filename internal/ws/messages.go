package ws

// Every inbound frame is a flat JSON object tagged by "action". probe is
// the first-pass decode used for routing and the credential gate.
type probe struct {
	Action string `json:"action"`
	UID    string `json:"uid"`
	GID    string `json:"gid"`
}

// loginRequest is the handshake that binds a socket to a player identity.
type loginRequest struct {
	UID    string `json:"uid"`
	RoomID string `json:"roomid"`
	GID    string `json:"gid"`
	PName  string `json:"pname"`
	PColor string `json:"pcolor"`
}

type readyRequest struct{}

type confirmRequest struct {
	UID    string `json:"uid"`
	RoomID string `json:"roomid"`
}

type deployRequest struct {
	RoomID string `json:"roomid"`
	UID    string `json:"uid"`
	Target string `json:"target"`
}

type attackRequest struct {
	RoomID       string `json:"roomid"`
	UID          string `json:"uid"`
	Start        string `json:"start"`
	Target       string `json:"target"`
	TroopPercent int    `json:"trooppercent"`
}
