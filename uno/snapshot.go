package uno

import (
	"encoding/json"
	"os"
)

// Snapshot serializes the full game state. It is the only mechanism for
// propagating state between peers; there is no incremental diff protocol.
func (g *Game) Snapshot() ([]byte, error) {
	return json.Marshal(g)
}

// FromSnapshot rebuilds a game from serialized state. The random source
// is not part of a snapshot; the rebuilt game re-seeds lazily.
func FromSnapshot(data []byte) (*Game, error) {
	g := &Game{}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, err
	}
	if g.Hands == nil {
		g.Hands = map[string][]Card{}
	}
	return g, nil
}

// SaveFile writes an indented snapshot to disk, so a host can keep a
// record of the session state.
func (g *Game) SaveFile(filename string) error {
	data, err := json.MarshalIndent(g, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// LoadFile reads a snapshot previously written with SaveFile.
func LoadFile(filename string) (*Game, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return FromSnapshot(data)
}
