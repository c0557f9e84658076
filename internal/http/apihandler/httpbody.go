package apihandler

// APIRequest is the union body of every /api action; fields outside the
// requested action are ignored.
type APIRequest struct {
	Action string `json:"action" binding:"required"`

	// joingame
	Preset        string `json:"preset"`
	PreferMap     string `json:"prefermap"`
	CreateNewRoom bool   `json:"createnewroom"`

	// getmap
	RoomID string `json:"roomid"`

	// fetchposts; any-typed so non-numeric input can be rejected as a
	// malformed request instead of a bind failure
	StartIndex any `json:"startindex"`
	Amount     any `json:"amount"`

	// getuserprofile
	Username string `json:"username"`
} // @name APIRequest

type JoinGameResponse struct {
	UID  string `json:"uid"`
	Room string `json:"room"`
} // @name JoinGameResponse

type MapDataResponse struct {
	MapData     string `json:"mapdata"`
	MapDict     string `json:"mapdict"`
	Moves       string `json:"moves"`
	CoordAdjust string `json:"coordadjust"`
	Metadata    string `json:"metadata"`
} // @name MapDataResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
