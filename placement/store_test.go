package placement

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed() *Store {
	return NewStore(
		Item{ComponentID: "s_name", X: 10, Y: 20},
		Item{ComponentID: "s_address", X: 30, Y: 40, FontSize: 12},
		Item{ComponentID: "s_name", X: 50, Y: 60, PageIndex: 1},
	)
}

func stripIDs(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		it.ID = 0
		out[i] = it
	}
	return out
}

func TestAppend(t *testing.T) {
	s := seed()
	before := s.Len()
	it := Item{ComponentID: "s_amount", X: 1, Y: 2, FontSize: 9}

	id := s.Append(it)

	require.Equal(t, before+1, s.Len())
	last, ok := s.At(s.Len() - 1)
	require.True(t, ok)
	assert.Equal(t, id, last.ID)
	last.ID = 0
	assert.Equal(t, it, last)
}

func TestUpdateTouchesOnlyTarget(t *testing.T) {
	s := seed()
	before := s.Items()

	x := 5.0
	require.True(t, s.Update(1, Patch{X: &x}))

	after := s.Items()
	require.Len(t, after, len(before))
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])

	want := before[1]
	want.X = 5
	assert.Equal(t, want, after[1])
}

func TestUpdateOutOfRangeIsNoop(t *testing.T) {
	s := seed()
	before := s.Items()
	gen := s.Generation()

	assert.False(t, s.Update(-1, Position(1, 1)))
	assert.False(t, s.Update(3, Position(1, 1)))
	assert.Equal(t, before, s.Items())
	assert.Equal(t, gen, s.Generation())
}

func TestRemoveShiftsDown(t *testing.T) {
	s := seed()
	before := s.Items()

	require.True(t, s.Remove(0))

	after := s.Items()
	require.Len(t, after, len(before)-1)
	assert.Equal(t, before[1], after[0])
	assert.Equal(t, before[2], after[1])
	assert.False(t, s.Remove(5))
}

func TestIDsStableAcrossRemoval(t *testing.T) {
	s := seed()
	third, _ := s.At(2)

	require.True(t, s.Remove(0))

	assert.Equal(t, 1, s.IndexOf(third.ID))
	got, ok := s.ByID(third.ID)
	require.True(t, ok)
	assert.Equal(t, third, got)
	assert.Equal(t, -1, s.IndexOf(0))
}

func TestDuplicateComponentsAllowed(t *testing.T) {
	s := seed()
	items := s.Items()
	assert.Equal(t, items[0].ComponentID, items[2].ComponentID)
	assert.NotEqual(t, items[0].ID, items[2].ID)
}

func TestReplaceAll(t *testing.T) {
	s := seed()
	snapshot := s.Items()

	s.Append(Item{ComponentID: "extra"})
	s.ReplaceAll(snapshot)

	assert.Equal(t, snapshot, s.Items(), "revert keeps ids")

	s.ReplaceAll([]Item{{ComponentID: "a"}, {ComponentID: "b"}})
	items := s.Items()
	require.Len(t, items, 2)
	assert.NotZero(t, items[0].ID)
	assert.NotEqual(t, items[0].ID, items[1].ID)
	for _, old := range snapshot {
		assert.NotEqual(t, old.ID, items[0].ID)
		assert.NotEqual(t, old.ID, items[1].ID)
	}
}

func TestGenerationAdvances(t *testing.T) {
	s := NewStore()
	assert.Zero(t, s.Generation())

	s.Append(Item{ComponentID: "a"})
	g1 := s.Generation()
	s.Update(0, FontSize(11))
	g2 := s.Generation()
	s.Remove(0)
	g3 := s.Generation()

	assert.Less(t, uint64(0), g1)
	assert.Less(t, g1, g2)
	assert.Less(t, g2, g3)
}

func TestSubscribe(t *testing.T) {
	s := NewStore()
	var kinds []EventKind
	cancel := s.Subscribe(func(ev Event) {
		kinds = append(kinds, ev.Kind)
	})

	s.Append(Item{ComponentID: "a"})
	s.Update(0, Position(1, 2))
	s.Remove(0)
	s.ReplaceAll(nil)
	cancel()
	s.Append(Item{ComponentID: "b"})

	assert.Equal(t, []EventKind{Appended, Updated, Removed, Replaced}, kinds)
}

func TestSubscribersNotifiedInOrder(t *testing.T) {
	s := NewStore()
	var order []int
	cancels := make([]func(), 5)
	for i := range cancels {
		i := i
		cancels[i] = s.Subscribe(func(Event) { order = append(order, i) })
	}

	s.Append(Item{ComponentID: "a"})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)

	cancels[2]()
	cancels[2]()
	order = nil
	s.Append(Item{ComponentID: "b"})
	assert.Equal(t, []int{0, 1, 3, 4}, order)
}

func TestIsolatedStores(t *testing.T) {
	a, b := NewStore(), NewStore()
	a.Append(Item{ComponentID: "x"})
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 0, b.Len())
}

func TestJSONRoundTrip(t *testing.T) {
	s := seed()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"componentId":"s_name","x":10,"y":20},
		{"componentId":"s_address","x":30,"y":40,"fontSize":12},
		{"componentId":"s_name","x":50,"y":60,"pageIndex":1}
	]`, string(data))

	restored := NewStore()
	require.NoError(t, json.Unmarshal(data, restored))
	assert.Equal(t, stripIDs(s.Items()), stripIDs(restored.Items()))
}

func TestClampFontSize(t *testing.T) {
	size := 71.8
	for i := 0; i < 5; i++ {
		size = ClampFontSize(size + FontStep)
		assert.LessOrEqual(t, size, MaxFontSize)
	}
	assert.Equal(t, 72.0, size)

	size = 4.2
	for i := 0; i < 5; i++ {
		size = ClampFontSize(size - FontStep)
		assert.GreaterOrEqual(t, size, MinFontSize)
	}
	assert.Equal(t, 4.0, size)
}

func TestEffectiveFontSize(t *testing.T) {
	assert.Equal(t, 10.5, Item{}.EffectiveFontSize())
	assert.Equal(t, 14.0, Item{FontSize: 14}.EffectiveFontSize())
	assert.Equal(t, 12.0, Item{}.FontSizeOr(12))
	assert.Equal(t, 14.0, Item{FontSize: 14}.FontSizeOr(12))
	assert.Equal(t, 10.5, Item{}.FontSizeOr(0))
}

func TestValidate(t *testing.T) {
	items := seed().Items()
	assert.NoError(t, Validate(items, 2))
	assert.Error(t, Validate(items, 1))
}

func TestItemText(t *testing.T) {
	r := ResolverFunc(func(id string) (string, bool) {
		if id == "s_name" {
			return "現場A", true
		}
		if id == "s_blank" {
			return "", true
		}
		return "", false
	})

	assert.Equal(t, "現場A", Item{ComponentID: "s_name", Value: "old"}.Text(r))
	assert.Equal(t, "", Item{ComponentID: "s_blank", Value: "cached"}.Text(r))
	assert.Equal(t, "cached", Item{ComponentID: "gone", Value: "cached"}.Text(r))
	assert.Equal(t, "<unresolved:gone>", Item{ComponentID: "gone"}.Text(r))
	assert.Equal(t, "<unresolved:gone>", Item{ComponentID: "gone"}.Text(nil))
	assert.True(t, Item{ComponentID: "gone"}.Unresolved(r))
	assert.False(t, Item{ComponentID: "s_name"}.Unresolved(r))
}

func TestMergeIf(t *testing.T) {
	s := seed()
	gen := s.Generation()

	require.True(t, s.MergeIf(gen, []Item{{ComponentID: "a"}, {ComponentID: "b"}}, false))
	assert.Equal(t, 5, s.Len())
	last, _ := s.At(4)
	assert.Equal(t, "b", last.ComponentID)
	assert.NotZero(t, last.ID)

	assert.False(t, s.MergeIf(gen, []Item{{ComponentID: "c"}}, true), "stale generation")
	assert.Equal(t, 5, s.Len())

	require.True(t, s.MergeIf(s.Generation(), []Item{{ComponentID: "c"}}, true))
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].ComponentID)
}
