package placement

import (
	"encoding/json"
	"sync"
)

// EventKind describes a store mutation.
type EventKind int

const (
	Appended EventKind = iota
	Updated
	Removed
	Replaced
)

func (k EventKind) String() string {
	switch k {
	case Appended:
		return "appended"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	case Replaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after every mutation.
type Event struct {
	Kind       EventKind
	Index      int // affected index, -1 for Replaced
	Item       Item
	Generation uint64
}

// Store is an ordered, mutable sequence of items. A Store is owned by one
// editing session; it has no identity of its own and persists as its item
// list.
type Store struct {
	mu      sync.Mutex
	items   []Item
	nextID  ID
	gen     uint64
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Event)
}

// NewStore returns a store holding items, in order.
func NewStore(items ...Item) *Store {
	s := &Store{}
	s.ReplaceAll(items)
	s.gen = 0
	return s
}

// Append adds it to the end of the store and returns its assigned ID.
func (s *Store) Append(it Item) ID {
	s.mu.Lock()
	it.ID = s.allocID()
	s.items = append(s.items, it)
	ev := s.changed(Appended, len(s.items)-1, it)
	s.mu.Unlock()

	s.notify(ev)
	return it.ID
}

// Update merges p into the item at index. It reports false and leaves the
// store unchanged when index is out of range.
func (s *Store) Update(index int, p Patch) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return false
	}
	s.items[index] = p.apply(s.items[index])
	ev := s.changed(Updated, index, s.items[index])
	s.mu.Unlock()

	s.notify(ev)
	return true
}

// UpdateByID merges p into the item with the given ID.
func (s *Store) UpdateByID(id ID, p Patch) bool {
	return s.Update(s.IndexOf(id), p)
}

// Remove deletes the item at index; later items shift down by one.
func (s *Store) Remove(index int) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return false
	}
	removed := s.items[index]
	s.items = append(s.items[:index:index], s.items[index+1:]...)
	ev := s.changed(Removed, index, removed)
	s.mu.Unlock()

	s.notify(ev)
	return true
}

// RemoveByID deletes the item with the given ID.
func (s *Store) RemoveByID(id ID) bool {
	return s.Remove(s.IndexOf(id))
}

// ReplaceAll sets the store's contents to items. Items keep their IDs when
// non-zero and unique; every other item gets a fresh one.
func (s *Store) ReplaceAll(items []Item) {
	s.mu.Lock()
	next := make([]Item, len(items))
	seen := make(map[ID]bool, len(items))
	for _, it := range items {
		if it.ID > s.nextID {
			s.nextID = it.ID
		}
	}
	for i, it := range items {
		if it.ID == 0 || seen[it.ID] {
			it.ID = s.allocID()
		}
		seen[it.ID] = true
		next[i] = it
	}
	s.items = next
	ev := s.changed(Replaced, -1, Item{})
	s.mu.Unlock()

	s.notify(ev)
}

// MergeIf appends items, or replaces the contents when replace is set, but
// only if the store is still at generation gen. It reports whether the merge
// was applied.
func (s *Store) MergeIf(gen uint64, items []Item, replace bool) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	var evs []Event
	if replace {
		s.items = s.items[:0:0]
	}
	for _, it := range items {
		it.ID = s.allocID()
		s.items = append(s.items, it)
		if !replace {
			evs = append(evs, s.changed(Appended, len(s.items)-1, it))
		}
	}
	if replace {
		evs = append(evs, s.changed(Replaced, -1, Item{}))
	}
	s.mu.Unlock()

	for _, ev := range evs {
		s.notify(ev)
	}
	return true
}

// Items returns a copy of the store's contents.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// At returns the item at index.
func (s *Store) At(index int) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return Item{}, false
	}
	return s.items[index], true
}

// IndexOf returns the current index of the item with the given ID, or -1.
func (s *Store) IndexOf(id ID) int {
	if id == 0 {
		return -1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// ByID returns the item with the given ID.
func (s *Store) ByID(id ID) (Item, bool) {
	return s.At(s.IndexOf(id))
}

// Generation is incremented by every mutation. Async work snapshots it and
// discards its result if it has moved on.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Subscribe registers fn to be called after each mutation and returns a
// function that removes the subscription. Subscribers are called in the order
// they subscribed.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// MarshalJSON encodes the ordered item list.
func (s *Store) MarshalJSON() ([]byte, error) {
	items := s.Items()
	return json.Marshal(items)
}

// UnmarshalJSON replaces the store's contents with a decoded item list.
func (s *Store) UnmarshalJSON(data []byte) error {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.ReplaceAll(items)
	return nil
}

// allocID must be called with mu held.
func (s *Store) allocID() ID {
	s.nextID++
	return s.nextID
}

// changed must be called with mu held.
func (s *Store) changed(kind EventKind, index int, it Item) Event {
	s.gen++
	return Event{Kind: kind, Index: index, Item: it, Generation: s.gen}
}

func (s *Store) notify(ev Event) {
	s.mu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}
