package p2p

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peeruno/uno"
)

const (
	waitFor = 3 * time.Second
	tick    = 20 * time.Millisecond
)

func newTestHost(t *testing.T, name string) *Node {
	t.Helper()
	host := NewNode(NodeConfig{Username: name})
	host.Port = 0 // ephemeral port so tests don't collide on the default
	require.NoError(t, host.StartHost("127.0.0.1"))
	t.Cleanup(host.Close)
	return host
}

func newTestJoiner(t *testing.T, name string, host *Node) *Node {
	t.Helper()
	joiner := NewNode(NodeConfig{Username: name})
	require.NoError(t, joiner.Join(host.ListenAddr(), host.RoomCode()))
	t.Cleanup(joiner.Close)
	return joiner
}

func TestHostAndJoin(t *testing.T) {
	host := newTestHost(t, "ana")
	assert.True(t, host.IsHost())
	assert.Len(t, host.RoomCode(), 6)
	assert.Equal(t, StatusLobby, host.Status())

	joiner := newTestJoiner(t, "ben", host)
	assert.False(t, joiner.IsHost())

	// the host registers the joiner from its join envelope
	assert.Eventually(t, func() bool {
		host.PumpMessages()
		players := host.PlayersSnapshot()
		_, ok := players["ben"]
		return ok
	}, waitFor, tick)

	// the joiner learns the full roster from the snapshot broadcast
	assert.Eventually(t, func() bool {
		joiner.PumpMessages()
		players := joiner.PlayersSnapshot()
		_, hasHost := players["ana"]
		_, hasSelf := players["ben"]
		return hasHost && hasSelf
	}, waitFor, tick)
}

func TestReadyPropagatesToHost(t *testing.T) {
	host := newTestHost(t, "ana")
	joiner := newTestJoiner(t, "ben", host)

	require.Eventually(t, func() bool {
		host.PumpMessages()
		_, ok := host.PlayersSnapshot()["ben"]
		return ok
	}, waitFor, tick)

	joiner.SetReady(true)
	assert.Eventually(t, func() bool {
		host.PumpMessages()
		return host.PlayersSnapshot()["ben"]
	}, waitFor, tick)
}

func TestChatBroadcast(t *testing.T) {
	host := newTestHost(t, "ana")
	joiner := newTestJoiner(t, "ben", host)

	require.Eventually(t, func() bool {
		host.PumpMessages()
		_, ok := host.PlayersSnapshot()["ben"]
		return ok
	}, waitFor, tick)

	joiner.SendChat("hello table")
	assert.Equal(t, []string{"ben: hello table"}, joiner.ChatTail(10), "local echo")

	assert.Eventually(t, func() bool {
		host.PumpMessages()
		tail := host.ChatTail(10)
		return len(tail) == 1 && tail[0] == "ben: hello table"
	}, waitFor, tick)
}

func TestTryStartGamePreconditions(t *testing.T) {
	host := newTestHost(t, "ana")

	t.Run("joiners cannot start", func(t *testing.T) {
		joiner := NewNode(NodeConfig{Username: "ben"})
		assert.ErrorIs(t, joiner.TryStartGame(), ErrNotHost)
	})

	t.Run("too few players", func(t *testing.T) {
		assert.ErrorIs(t, host.TryStartGame(), ErrNotEnoughPlayers)
	})

	t.Run("not all ready", func(t *testing.T) {
		for _, name := range []string{"ben", "cara", "dan"} {
			newTestJoiner(t, name, host)
		}
		require.Eventually(t, func() bool {
			host.PumpMessages()
			return len(host.PlayersSnapshot()) == 4
		}, waitFor, tick)
		assert.ErrorIs(t, host.TryStartGame(), ErrNotAllReady)
	})
}

func TestFourPlayerSession(t *testing.T) {
	host := newTestHost(t, "ana")
	joiners := []*Node{
		newTestJoiner(t, "ben", host),
		newTestJoiner(t, "cara", host),
		newTestJoiner(t, "dan", host),
	}

	for _, j := range joiners {
		j.SetReady(true)
	}
	host.SetReady(true)

	require.Eventually(t, func() bool {
		host.PumpMessages()
		players := host.PlayersSnapshot()
		if len(players) != 4 {
			return false
		}
		for _, ready := range players {
			if !ready {
				return false
			}
		}
		return true
	}, waitFor, tick)

	require.NoError(t, host.TryStartGame())
	require.True(t, host.Started())
	assert.Equal(t, StatusInGame, host.Status())

	game := host.Game()
	require.NotNil(t, game)
	assert.Equal(t, []string{"ana", "ben", "cara", "dan"}, game.Players)
	assert.Equal(t, uno.DeckSize, game.CardCount())
	assert.Len(t, game.DrawPile, 79)

	// every joiner receives the same deal via state/start
	for _, j := range joiners {
		require.True(t, j.AwaitInitialState())
		jg := j.Game()
		require.NotNil(t, jg)
		assert.Equal(t, game.Players, jg.Players)
		assert.Equal(t, game.Hands, jg.Hands)
		assert.True(t, j.Started())
	}

	// "ana" (sorted first, turn index 0) requests a draw; the joiners
	// validate it against their local copies and sync the host back
	require.Equal(t, "ana", game.CurrentTurn())
	host.RequestDraw()

	assert.Eventually(t, func() bool {
		for _, j := range joiners {
			j.PumpMessages()
		}
		host.PumpMessages()
		g := host.Game()
		return g != nil && len(g.Hands["ana"]) == 8
	}, waitFor, tick)
	assert.Equal(t, uno.DeckSize, host.Game().CardCount())
}

func TestHandlePlayValidatesLocally(t *testing.T) {
	node := NewNode(NodeConfig{Username: "observer"})

	game := &uno.Game{
		Players: []string{"p1", "p2", "p3", "p4"},
		Hands: map[string][]uno.Card{
			"p1": {{Color: uno.ColorRed, Value: "5"}},
			"p2": {{Color: uno.ColorYellow, Value: "1"}},
			"p3": {{Color: uno.ColorYellow, Value: "2"}},
			"p4": {{Color: uno.ColorYellow, Value: "4"}},
		},
		DrawPile:    []uno.Card{{Color: uno.ColorGreen, Value: "1"}},
		DiscardPile: []uno.Card{{Color: uno.ColorRed, Value: "3"}},
		Direction:   1,
		ActiveColor: uno.ColorRed,
	}
	start, err := Encode(TypeState, "host", StatePayload{Action: ActionStart, State: game})
	require.NoError(t, err)
	node.handleMessage(start, "host")
	require.NotNil(t, node.Game())

	t.Run("illegal play is dropped silently", func(t *testing.T) {
		play, err := Encode(TypePlay, "p2", PlayPayload{
			Action: ActionPlay,
			Card:   &uno.Card{Color: uno.ColorYellow, Value: "1"},
		})
		require.NoError(t, err)
		node.handleMessage(play, "p2")
		assert.Len(t, node.Game().DiscardPile, 1, "out-of-turn play ignored")
	})

	t.Run("legal play is applied", func(t *testing.T) {
		play, err := Encode(TypePlay, "p1", PlayPayload{
			Action: ActionPlay,
			Card:   &uno.Card{Color: uno.ColorRed, Value: "5"},
		})
		require.NoError(t, err)
		node.handleMessage(play, "p1")

		g := node.Game()
		assert.Len(t, g.DiscardPile, 2)
		assert.Empty(t, g.Hands["p1"])
		assert.Equal(t, "p1", g.Winner, "emptied hand wins")
	})

	t.Run("draw requests honor the turn holder", func(t *testing.T) {
		draw, err := Encode(TypePlay, "p3", PlayPayload{Action: ActionDraw})
		require.NoError(t, err)
		node.handleMessage(draw, "p3")
		assert.Len(t, node.Game().Hands["p3"], 1, "not p3's turn, no draw")
	})
}

func TestSyncReplacesExistingStateOnly(t *testing.T) {
	node := NewNode(NodeConfig{Username: "observer"})

	synced := uno.NewGame(11)
	require.NoError(t, synced.Setup([]string{"a", "b", "c", "d"}, 7))

	sync, err := Encode(TypeState, "host", StatePayload{Action: ActionSync, State: synced})
	require.NoError(t, err)
	node.handleMessage(sync, "host")
	assert.Nil(t, node.Game(), "sync before start is ignored")

	start, err := Encode(TypeState, "host", StatePayload{Action: ActionStart, State: synced})
	require.NoError(t, err)
	node.handleMessage(start, "host")
	require.NotNil(t, node.Game())

	node.handleMessage(sync, "host")
	assert.Equal(t, uno.DeckSize, node.Game().CardCount())
}
