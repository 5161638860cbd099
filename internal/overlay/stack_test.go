package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

func TestLIFOOrder(t *testing.T) {
	s := NewStack()
	s.Open(OpenRequest{Type: types.OverlayInfo})
	s.Open(OpenRequest{Type: types.OverlayConfirm})
	s.Open(OpenRequest{Type: types.OverlaySettings})

	require.NotNil(t, s.Top())
	assert.Equal(t, types.OverlaySettings, s.Top().Type)

	assert.True(t, s.CloseTop())
	assert.Equal(t, types.OverlayConfirm, s.Top().Type)

	s.CloseAll()
	assert.Equal(t, 0, s.Count())
	assert.Nil(t, s.Top())
}

func TestNonTopRemovalPreservesOrder(t *testing.T) {
	s := NewStack()
	a := s.Open(OpenRequest{Type: types.OverlayInfo})
	b := s.Open(OpenRequest{Type: types.OverlayConfirm})
	c := s.Open(OpenRequest{Type: types.OverlaySettings})

	require.True(t, s.Close(b))

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, a, entries[0].ID)
	assert.Equal(t, c, entries[1].ID)
}

func TestIDsAreFreshAndUnique(t *testing.T) {
	s := NewStack()
	first := s.Open(OpenRequest{Type: types.OverlayInfo})
	s.CloseTop()
	second := s.Open(OpenRequest{Type: types.OverlayInfo})
	assert.NotEqual(t, first, second, "IDs are never reused")
}

func TestCloseTopOnEmptyIsNoop(t *testing.T) {
	s := NewStack()
	assert.False(t, s.CloseTop())
	assert.False(t, s.Close("ovl_missing"))
}

func TestReplaceTopIsAtomic(t *testing.T) {
	s := NewStack()
	s.Open(OpenRequest{Type: types.OverlayInfo})

	var transitions []int
	unsub := s.Subscribe(func(snap Snapshot) {
		transitions = append(transitions, snap.Count)
	})
	defer unsub()

	s.ReplaceTop(OpenRequest{Type: types.OverlaySettings})
	assert.Equal(t, []int{1}, transitions, "one transition, no flash to empty")
	assert.Equal(t, types.OverlaySettings, s.Top().Type)
	assert.Equal(t, 1, s.Count())
}

func TestReplaceTopOnEmptyPushes(t *testing.T) {
	s := NewStack()
	s.ReplaceTop(OpenRequest{Type: types.OverlayProfile})
	assert.Equal(t, 1, s.Count())
}

func TestCloseAllSingleTransition(t *testing.T) {
	s := NewStack()
	s.Open(OpenRequest{Type: types.OverlayInfo})
	s.Open(OpenRequest{Type: types.OverlayConfirm})
	s.Open(OpenRequest{Type: types.OverlaySettings})

	notifications := 0
	unsub := s.Subscribe(func(snap Snapshot) {
		notifications++
		assert.Equal(t, 0, snap.Count)
	})
	defer unsub()

	s.CloseAll()
	assert.Equal(t, 1, notifications, "listeners observe a single transition")

	s.CloseAll()
	assert.Equal(t, 1, notifications, "empty CloseAll does not notify")
}

func TestUpdateProps(t *testing.T) {
	s := NewStack()
	entryID := s.Open(OpenRequest{
		Type:  types.OverlayProfile,
		Props: map[string]interface{}{"userId": "u1", "tab": "info"},
	})

	require.True(t, s.UpdateProps(entryID, map[string]interface{}{"tab": "media"}))

	entry, ok := s.GetByID(entryID)
	require.True(t, ok)
	assert.Equal(t, "media", entry.Props["tab"])
	assert.Equal(t, "u1", entry.Props["userId"], "unmentioned keys survive the merge")

	assert.False(t, s.UpdateProps("ovl_missing", map[string]interface{}{"x": 1}))
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := NewStack()
	entryID := s.Open(OpenRequest{
		Type:  types.OverlayInfo,
		Props: map[string]interface{}{"title": "Hello"},
	})

	top := s.Top()
	top.Props["title"] = "mutated"

	entry, _ := s.GetByID(entryID)
	assert.Equal(t, "Hello", entry.Props["title"], "stack owns entries; consumers get copies")
}

func TestDerivedStateConsistency(t *testing.T) {
	s := NewStack()
	assert.False(t, s.HasOpen())

	entryID := s.Open(OpenRequest{Type: types.OverlayInfo})
	assert.True(t, s.HasOpen())
	assert.True(t, s.Exists(entryID))
	assert.Equal(t, 1, s.Count())

	s.Close(entryID)
	assert.False(t, s.HasOpen())
	assert.False(t, s.Exists(entryID))
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := NewStack()
	calls := 0
	unsub := s.Subscribe(func(Snapshot) { calls++ })

	s.Open(OpenRequest{Type: types.OverlayInfo})
	unsub()
	s.Open(OpenRequest{Type: types.OverlayConfirm})

	assert.Equal(t, 1, calls)
}

func TestResetForTest(t *testing.T) {
	s := NewStack()
	s.Open(OpenRequest{Type: types.OverlayInfo})
	s.Subscribe(func(Snapshot) { t.Fatal("listener survived reset") })

	s.ResetForTest()
	assert.Equal(t, 0, s.Count())
	s.Open(OpenRequest{Type: types.OverlayConfirm})
}
