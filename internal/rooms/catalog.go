package rooms

import "time"

// mapname -> max players
var allMaps = map[string]int{"miniworld": 3, "michigan": 6, "florida": 6}

// ColorOptions is every color a player may claim, in display order.
var ColorOptions = []string{"red", "orange", "yellow", "green", "blue", "purple"}

const (
	idAlphabet = "1234567890qwertyuiopasdfghjklzxcvbnm"

	roomIDLen = 6
	userIDLen = 20

	// empty lobbies older than this are swept on the next allocation
	emptyRoomGrace = 30 * time.Second

	maxNameLen = 18
)

// MapNames returns the catalog keys (iteration order is not stable;
// callers that need determinism must sort).
func MapNames() []string {
	names := make([]string, 0, len(allMaps))
	for n := range allMaps {
		names = append(names, n)
	}
	return names
}

// MaxPlayersFor reports the player cap for a catalog map, 0 if unknown.
func MaxPlayersFor(mapName string) int { return allMaps[mapName] }
