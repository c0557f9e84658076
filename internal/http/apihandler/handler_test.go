package apihandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emblitzgo/internal/rooms"
	"emblitzgo/internal/services/announce"
	"emblitzgo/internal/services/profile"
)

type noopBackend struct{}

func (noopBackend) NewGame(string, string, time.Duration) error { return nil }
func (noopBackend) RemoveGame(string)                           {}

type stubAnnounce struct {
	posts []announce.Post
	err   error
}

func (s *stubAnnounce) Fetch(_ context.Context, _, _ int) ([]announce.Post, error) {
	return s.posts, s.err
}
func (s *stubAnnounce) Create(context.Context, string, string, int64, string) error { return nil }
func (s *stubAnnounce) Delete(context.Context, int64) error                         { return nil }

type stubProfile struct {
	dto *profile.ProfileDTO
	err error
}

func (s *stubProfile) GetProfile(context.Context, string) (*profile.ProfileDTO, error) {
	return s.dto, s.err
}
func (s *stubProfile) BadgeCatalog() map[string]profile.Badge {
	return map[string]profile.Badge{"veteran": {Level: "Gold", Description: "Play 100 games"}}
}

func newTestAPI(t *testing.T, ann announce.IAnnounceService, prof profile.IProfileService, mapDir string) (*gin.Engine, *rooms.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := rooms.NewRegistry(noopBackend{}, 10*time.Second)
	r := gin.New()
	New(reg, ann, prof, mapDir).Register(r)
	return r, reg
}

func postAPI(t *testing.T, r *gin.Engine, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestJoinGameMatchmaking(t *testing.T) {
	r, _ := newTestAPI(t, &stubAnnounce{}, &stubProfile{}, "")

	w, first := postAPI(t, r, `{"action":"joingame","prefermap":"miniworld"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, first["room"])
	assert.True(t, strings.HasPrefix(first["uid"].(string), "u-"))

	// a second caller with the same preference lands in the same room
	_, second := postAPI(t, r, `{"action":"joingame","prefermap":"miniworld"}`)
	assert.Equal(t, first["room"], second["room"])

	// createnewroom always splits off a fresh private room
	_, third := postAPI(t, r, `{"action":"joingame","prefermap":"miniworld","createnewroom":true}`)
	assert.NotEqual(t, first["room"], third["room"])
}

func TestJoinGamePreset(t *testing.T) {
	r, reg := newTestAPI(t, &stubAnnounce{}, &stubProfile{}, "")
	roomID := reg.AllocateOrJoin("miniworld", false)

	_, resp := postAPI(t, r, `{"action":"joingame","preset":"`+roomID+`"}`)
	assert.Equal(t, roomID, resp["room"])

	_, missing := postAPI(t, r, `{"action":"joingame","preset":"r-nope99"}`)
	assert.Equal(t, "room r-nope99 does not exist", missing["error"])
}

func TestJoinGamePresetFull(t *testing.T) {
	r, reg := newTestAPI(t, &stubAnnounce{}, &stubProfile{}, "")
	roomID := reg.AllocateOrJoin("miniworld", false)
	for i := 0; i < rooms.MaxPlayersFor("miniworld"); i++ {
		_, err := reg.Login(roomID, reg.NewUserID(), "", "")
		require.NoError(t, err)
	}

	_, resp := postAPI(t, r, `{"action":"joingame","preset":"`+roomID+`"}`)
	assert.Equal(t, "room "+roomID+" is full", resp["error"])
}

func TestGetMapServesBundle(t *testing.T) {
	dir := t.TempDir()
	mapDir := filepath.Join(dir, "miniworld")
	require.NoError(t, os.MkdirAll(mapDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mapDir, "miniworld.txt"), []byte("field"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(mapDir, "moves.json"), []byte(`{"t1":["t2"]}`), 0o644))

	r, reg := newTestAPI(t, &stubAnnounce{}, &stubProfile{}, dir)
	roomID := reg.AllocateOrJoin("miniworld", false)

	_, resp := postAPI(t, r, `{"action":"getmap","roomid":"`+roomID+`"}`)
	assert.Equal(t, "field", resp["mapdata"])
	assert.Equal(t, `{"t1":["t2"]}`, resp["moves"])
	assert.Equal(t, "", resp["mapdict"]) // absent files degrade to empty

	_, gone := postAPI(t, r, `{"action":"getmap","roomid":"r-nope99"}`)
	assert.Equal(t, "room r-nope99 does not exist", gone["error"])
}

func TestFetchPostsPagination(t *testing.T) {
	ann := &stubAnnounce{posts: []announce.Post{{ID: 1, Title: "news"}}}
	r, _ := newTestAPI(t, ann, &stubProfile{}, "")

	w, resp := postAPI(t, r, `{"action":"fetchposts","startindex":0,"amount":5}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["posts"], 1)

	// numeric strings are accepted too
	w, _ = postAPI(t, r, `{"action":"fetchposts","startindex":"0","amount":"5"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// anything non-numeric is a malformed request
	w, resp = postAPI(t, r, `{"action":"fetchposts","startindex":"zero","amount":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Malformed request", resp["message"])

	w, _ = postAPI(t, r, `{"action":"fetchposts","startindex":0,"amount":{"a":1}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetchPostsServiceError(t *testing.T) {
	r, _ := newTestAPI(t, &stubAnnounce{err: errors.New("db down")}, &stubProfile{}, "")

	w, resp := postAPI(t, r, `{"action":"fetchposts","startindex":0,"amount":5}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "db down", resp["error"])
}

func TestGetUserProfile(t *testing.T) {
	prof := &stubProfile{dto: &profile.ProfileDTO{Username: "alice", Wins: 3}}
	r, _ := newTestAPI(t, &stubAnnounce{}, prof, "")

	w, resp := postAPI(t, r, `{"action":"getuserprofile","username":"alice"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", resp["username"])
	assert.EqualValues(t, 3, resp["wins"])

	r, _ = newTestAPI(t, &stubAnnounce{}, &stubProfile{err: errors.New("player ghost not found")}, "")
	w, resp = postAPI(t, r, `{"action":"getuserprofile","username":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "player ghost not found", resp["error"])
}

func TestBadgeData(t *testing.T) {
	r, _ := newTestAPI(t, &stubAnnounce{}, &stubProfile{}, "")

	_, resp := postAPI(t, r, `{"action":"badgedata"}`)
	assert.Contains(t, resp, "veteran")
}

func TestUnknownActionAndBadBody(t *testing.T) {
	r, _ := newTestAPI(t, &stubAnnounce{}, &stubProfile{}, "")

	_, resp := postAPI(t, r, `{"action":"selfdestruct"}`)
	assert.Equal(t, "invalid form body", resp["error"])

	_, resp = postAPI(t, r, `{}`)
	assert.Equal(t, "invalid form body", resp["error"])

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
	assert.Contains(t, w.Body.String(), "invalid form body")
}
