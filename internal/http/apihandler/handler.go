package apihandler

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"emblitzgo/internal/rooms"
	"emblitzgo/internal/services/announce"
	"emblitzgo/internal/services/profile"
)

type Handler struct {
	registry    *rooms.Registry
	announceSvc announce.IAnnounceService
	profileSvc  profile.IProfileService
	mapDataDir  string
}

func New(registry *rooms.Registry, announceSvc announce.IAnnounceService,
	profileSvc profile.IProfileService, mapDataDir string) *Handler {
	return &Handler{
		registry:    registry,
		announceSvc: announceSvc,
		profileSvc:  profileSvc,
		mapDataDir:  mapDataDir,
	}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/api", h.handle)
	r.GET("/api", h.invalidBody)
}

func (h *Handler) invalidBody(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"error": "invalid form body"})
}

// @Summary		Game and content API
// @Description	Action-tagged JSON endpoint: joingame (matchmaking), getmap, fetchposts, getuserprofile, badgedata.
// @Tags			API
// @Param			body	body		APIRequest	true	"Action payload"
// @Success		200		{object}	JoinGameResponse
// @Failure		400		{object}	ErrorResponse
// @Router			/api [post]
func (h *Handler) handle(c *gin.Context) {
	var req APIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidBody(c)
		return
	}

	switch req.Action {
	case "joingame":
		h.joinGame(c, req)
	case "getmap":
		h.getMap(c, req)
	case "fetchposts":
		h.fetchPosts(c, req)
	case "getuserprofile":
		h.getProfile(c, req)
	case "badgedata":
		c.JSON(http.StatusOK, h.profileSvc.BadgeCatalog())
	default:
		h.invalidBody(c)
	}
}

// joinGame is the matchmaking endpoint. preset targets a caller-known
// room directly; otherwise the registry finds or creates an open room for
// the map preference.
func (h *Handler) joinGame(c *gin.Context, req APIRequest) {
	if req.Preset != "" {
		roomID, err := h.registry.JoinByRoomID(req.Preset)
		switch err {
		case rooms.ErrRoomNotFound:
			c.JSON(http.StatusOK, gin.H{"error": "room " + req.Preset + " does not exist"})
		case rooms.ErrRoomFull:
			c.JSON(http.StatusOK, gin.H{"error": "room " + req.Preset + " is full"})
		default:
			c.JSON(http.StatusOK, JoinGameResponse{UID: h.registry.NewUserID(), Room: roomID})
		}
		return
	}

	room := h.registry.AllocateOrJoin(req.PreferMap, req.CreateNewRoom)
	c.JSON(http.StatusOK, JoinGameResponse{UID: h.registry.NewUserID(), Room: room})
}

// getMap streams the static map bundle for the requesting room's field.
func (h *Handler) getMap(c *gin.Context, req APIRequest) {
	mapName := h.registry.MapName(req.RoomID)
	if mapName == "" {
		c.JSON(http.StatusOK, ErrorResponse{Error: "room " + req.RoomID + " does not exist"})
		return
	}

	dir := filepath.Join(h.mapDataDir, mapName)
	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return ""
		}
		return string(data)
	}
	c.JSON(http.StatusOK, MapDataResponse{
		MapData:     read(mapName + ".txt"),
		MapDict:     read("mapdict.json"),
		Moves:       read("moves.json"),
		CoordAdjust: read("coordadjust.json"),
		Metadata:    read("metadata.json"),
	})
}

func (h *Handler) fetchPosts(c *gin.Context, req APIRequest) {
	start, okS := asInt(req.StartIndex)
	amount, okA := asInt(req.Amount)
	if !okS || !okA {
		c.JSON(http.StatusBadRequest, gin.H{"error": 400, "message": "Malformed request"})
		return
	}

	if amount > 25 {
		amount = 25
	} else if amount < 1 {
		amount = 1
	}
	if start < 0 || start > 99999999 {
		start = 0
	}

	posts, err := h.announceSvc.Fetch(c.Request.Context(), start, amount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *Handler) getProfile(c *gin.Context, req APIRequest) {
	dto, err := h.profileSvc.GetProfile(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto)
}

// asInt accepts JSON numbers and numeric strings, the two shapes clients
// actually send.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}
