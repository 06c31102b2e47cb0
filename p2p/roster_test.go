package p2p

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoster(t *testing.T) {
	t.Run("names stay sorted regardless of join order", func(t *testing.T) {
		r := NewRoster()
		r.Add("zoe")
		r.Add("ana")
		r.Add("mia")
		assert.Equal(t, []string{"ana", "mia", "zoe"}, r.Names())
	})

	t.Run("re-adding is a no-op", func(t *testing.T) {
		r := NewRoster()
		r.Add("ana")
		r.SetReady("ana", true)
		r.Add("ana")
		assert.Equal(t, 1, r.Len())
		assert.True(t, r.IsReady("ana"))
	})

	t.Run("set ready registers unknown names", func(t *testing.T) {
		r := NewRoster()
		r.SetReady("ben", true)
		assert.Equal(t, 1, r.Len())
		assert.True(t, r.IsReady("ben"))
	})

	t.Run("all ready", func(t *testing.T) {
		r := NewRoster()
		r.SetReady("ana", true)
		r.SetReady("ben", false)
		assert.False(t, r.AllReady())
		r.SetReady("ben", true)
		assert.True(t, r.AllReady())
	})

	t.Run("replace swaps the roster wholesale", func(t *testing.T) {
		r := NewRoster()
		r.Add("old")
		r.Replace(map[string]bool{"zoe": true, "ana": false})
		assert.Equal(t, []string{"ana", "zoe"}, r.Names())
		assert.True(t, r.IsReady("zoe"))
		assert.False(t, r.IsReady("old"))
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		r := NewRoster()
		r.Add("ana")
		snap := r.Snapshot()
		snap["ana"] = true
		assert.False(t, r.IsReady("ana"))
	})

	t.Run("remove", func(t *testing.T) {
		r := NewRoster()
		r.Add("ana")
		r.Add("ben")
		r.Remove("ana")
		assert.Equal(t, []string{"ben"}, r.Names())
		r.Remove("ghost")
		assert.Equal(t, 1, r.Len())
	})
}
