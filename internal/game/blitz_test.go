package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(e *BlitzEngine) []Event {
	var out []Event
	for {
		select {
		case ev := <-e.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func lastOfType[T Event](t *testing.T, evs []Event) T {
	t.Helper()
	var found T
	ok := false
	for _, ev := range evs {
		if typed, is := ev.(T); is {
			found = typed
			ok = true
		}
	}
	require.True(t, ok, "expected a %T event in %v", found, evs)
	return found
}

func TestNewGameStartsInLobby(t *testing.T) {
	e := New(30 * time.Second)
	require.NoError(t, e.NewGame("r-test01", "miniworld", 10*time.Second))

	assert.Equal(t, StatusLobby, e.Status("r-test01"))
	assert.Equal(t, StatusNone, e.Status("r-ghost1"))
	assert.Error(t, e.NewGame("r-test01", "miniworld", 10*time.Second), "duplicate room id")

	state, ok := e.MapState("r-test01")
	require.True(t, ok)
	assert.Len(t, state, 9) // miniworld layout
}

func TestLobbyCountdownPausedUntilResumed(t *testing.T) {
	e := New(5 * time.Second)
	require.NoError(t, e.NewGame("r-test02", "miniworld", 10*time.Second))

	e.step(time.Second)
	assert.Empty(t, drain(e), "paused lobby must not tick")

	e.ResumeLobbyTimer("r-test02")
	e.step(time.Second)
	tick := lastOfType[LobbyTimerTick](t, drain(e))
	assert.Equal(t, 4*time.Second, tick.Remaining)

	e.PauseLobbyTimer("r-test02")
	e.step(time.Second)
	assert.Empty(t, drain(e))
}

func TestSkipLobbyStartsDeployThenAttack(t *testing.T) {
	e := New(999 * time.Second)
	require.NoError(t, e.NewGame("r-test03", "miniworld", 2*time.Second))

	e.SkipLobbyTimer("r-test03")
	e.step(time.Second)
	started := lastOfType[DeployPhaseStarted](t, drain(e))
	assert.Equal(t, 2*time.Second, started.DeployTime)
	assert.Equal(t, StatusDeploy, e.Status("r-test03"))

	e.step(time.Second)
	e.step(time.Second)
	lastOfType[AttackPhaseStarted](t, drain(e))
	assert.Equal(t, StatusAttack, e.Status("r-test03"))
}

func TestTroopAccrual(t *testing.T) {
	e := New(time.Second)
	require.NoError(t, e.NewGame("r-test04", "miniworld", time.Second))
	require.NoError(t, e.AddPlayer("r-test04", "u-a"))

	e.SkipLobbyTimer("r-test04")
	e.step(time.Second) // deploy
	e.step(time.Second) // attack
	drain(e)

	e.AddTroopsPassively("r-test04")
	e.step(time.Second)
	tick := lastOfType[TroopTimerTick](t, drain(e))
	assert.Equal(t, troopInterval-time.Second, tick.Remaining)

	before, _ := e.MapState("r-test04")
	for i := 0; i < int(troopInterval/time.Second); i++ {
		e.step(time.Second)
	}
	changed := lastOfType[MapStateChanged](t, drain(e))
	after := changed.State

	var owned string
	for id, terr := range before {
		if terr.Owner == "u-a" {
			owned = id
		}
	}
	require.NotEmpty(t, owned)
	assert.Equal(t, before[owned].Troops+1, after[owned].Troops)
}

func TestAddPlayerSeatsOnFreeTerritory(t *testing.T) {
	e := New(time.Second)
	require.NoError(t, e.NewGame("r-test05", "miniworld", time.Second))
	require.NoError(t, e.AddPlayer("r-test05", "u-a"))
	require.NoError(t, e.AddPlayer("r-test05", "u-b"))

	state, _ := e.MapState("r-test05")
	owners := map[string]int{}
	for _, terr := range state {
		owners[terr.Owner]++
	}
	assert.Equal(t, 1, owners["u-a"])
	assert.Equal(t, 1, owners["u-b"])
}

func TestDeployOnlyOnOwnTerritoryDuringGame(t *testing.T) {
	e := New(time.Second)
	require.NoError(t, e.NewGame("r-test06", "miniworld", time.Second))
	require.NoError(t, e.AddPlayer("r-test06", "u-a"))
	drain(e)

	// lobby: deploy is ignored
	e.DeployTroops("r-test06", "u-a", "t1")
	assert.Empty(t, drain(e))

	e.games["r-test06"].status = StatusDeploy
	e.DeployTroops("r-test06", "u-a", "t1")
	state, _ := e.MapState("r-test06")
	assert.Equal(t, startTroops+1, state["t1"].Troops)

	// someone else's territory is ignored
	e.DeployTroops("r-test06", "u-b", "t1")
	state, _ = e.MapState("r-test06")
	assert.Equal(t, startTroops+1, state["t1"].Troops)
}

func TestAttackCaptureEliminationAndWin(t *testing.T) {
	e := New(time.Second)
	require.NoError(t, e.NewGame("r-test07", "miniworld", time.Second))
	require.NoError(t, e.AddPlayer("r-test07", "u-a"))
	require.NoError(t, e.AddPlayer("r-test07", "u-b"))
	drain(e)

	s := e.games["r-test07"]
	s.status = StatusAttack
	s.territories["t1"] = &Territory{Owner: "u-a", Troops: 10}
	s.territories["t2"] = &Territory{Owner: "u-b", Troops: 1}
	for id, terr := range s.territories {
		if id != "t1" && id != "t2" {
			terr.Owner = ""
			terr.Troops = 1
		}
	}

	e.AttackTerritory("r-test07", "u-a", "t1", "t2", 100)

	evs := drain(e)
	dead := lastOfType[PlayerEliminated](t, evs)
	assert.Equal(t, "u-b", dead.PlayerID)
	assert.Equal(t, 2, dead.Place)

	won := lastOfType[PlayerWon](t, evs)
	assert.Equal(t, "u-a", won.PlayerID)
	assert.Equal(t, StatusOver, e.Status("r-test07"))

	state, _ := e.MapState("r-test07")
	assert.Equal(t, "u-a", state["t2"].Owner)
}

func TestRemovePlayerReleasesTerritories(t *testing.T) {
	e := New(time.Second)
	require.NoError(t, e.NewGame("r-test08", "miniworld", time.Second))
	require.NoError(t, e.AddPlayer("r-test08", "u-a"))

	e.RemovePlayer("r-test08", "u-a")
	state, _ := e.MapState("r-test08")
	for id, terr := range state {
		assert.Empty(t, terr.Owner, "territory %s still owned", id)
	}

	e.RemoveGame("r-test08")
	_, ok := e.MapState("r-test08")
	assert.False(t, ok)
}
