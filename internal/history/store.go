package history

import (
	"sync"

	"video-annotator/internal/annotation"
)

// Kind classifies a recorded mutation.
type Kind int

const (
	Created Kind = iota + 1
	Updated
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "create"
	case Updated:
		return "update"
	case Deleted:
		return "delete"
	}
	return "unknown"
}

// Change describes one committed mutation. It carries enough to undo the
// mutation outside of the user-visible history, which is what Rollback does
// when the remote side rejects it.
type Change struct {
	Kind Kind
	ID   string
	// Before is the record prior to an update or delete.
	Before annotation.Annotation
	// After is the record produced by a create or update.
	After annotation.Annotation
	// Patch is the patch an update applied.
	Patch annotation.Patch
	// Index is the record's position in the prior live set, or -1 when an
	// update or delete matched nothing. For creates it is the append index.
	Index int
	// Version is the store version right after the change.
	Version uint64

	prior State
}

// Matched reports whether the change touched a live record.
func (c Change) Matched() bool {
	return c.Index >= 0
}

// Option configures a Store.
type Option func(*Store)

// WithLimit caps the undo stack at n snapshots. n <= 0 means unlimited.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.state.limit = n
		}
	}
}

// Store owns the live annotation set and its history. It is safe for
// concurrent use; subscribers are notified after every state change,
// outside the lock.
type Store struct {
	mu        sync.Mutex
	state     State
	version   uint64
	listeners map[int]func()
	nextID    int
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{listeners: make(map[int]func())}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after each state change and returns a
// function that removes it.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// State returns the current state triple.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version increases on every state change.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Live returns a copy of the live set.
func (s *Store) Live() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Live()
}

// Get returns a copy of the live record with id.
func (s *Store) Get(id string) (annotation.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.live.Find(id)
	return a.Clone(), ok
}

// CanUndo reports whether there is history to undo.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CanUndo()
}

// CanRedo reports whether there is history to redo.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CanRedo()
}

// Create appends rec and records history. An id that is already live is
// rejected: nothing is committed and the returned change does not match.
func (s *Store) Create(rec annotation.Annotation) Change {
	return s.mutate(func(st State) (State, Change) {
		if st.live.IndexOf(rec.ID) >= 0 {
			return st, Change{Kind: Created, ID: rec.ID, Index: -1}
		}
		return st.Create(rec), Change{
			Kind:  Created,
			ID:    rec.ID,
			After: rec.Clone(),
			Index: len(st.live),
		}
	})
}

// Update patches the record with id and records history, even when nothing
// matches.
func (s *Store) Update(id string, patch annotation.Patch) Change {
	return s.mutate(func(st State) (State, Change) {
		ch := Change{Kind: Updated, ID: id, Patch: patch, Index: st.live.IndexOf(id)}
		if ch.Index >= 0 {
			ch.Before = st.live[ch.Index].Clone()
			ch.After = patch.Apply(ch.Before)
		}
		return st.Update(id, patch), ch
	})
}

// Delete removes the record with id and records history.
func (s *Store) Delete(id string) Change {
	return s.mutate(func(st State) (State, Change) {
		ch := Change{Kind: Deleted, ID: id, Index: st.live.IndexOf(id)}
		if ch.Index >= 0 {
			ch.Before = st.live[ch.Index].Clone()
		}
		return st.Delete(id), ch
	})
}

// ReplaceAll installs a new baseline without recording history.
func (s *Store) ReplaceAll(recs []annotation.Annotation) {
	s.transition(func(st State) (State, bool) {
		return st.ReplaceAll(recs), true
	})
}

// Undo steps back one snapshot. It returns false at the bottom of the stack.
func (s *Store) Undo() bool {
	return s.transition(func(st State) (State, bool) {
		return st.Undo(), st.CanUndo()
	})
}

// Redo steps forward one snapshot. It returns false at the top of the stack.
func (s *Store) Redo() bool {
	return s.transition(func(st State) (State, bool) {
		return st.Redo(), st.CanRedo()
	})
}

// Rollback reverts ch without recording history. If nothing has happened
// since ch, the exact prior state (including both stacks) is restored.
// Otherwise a compensating edit is applied: a created record is purged from
// live and history, an updated record gets back the prior value of every
// field that still holds the rejected value (so later edits to other
// fields survive), and a deleted record is re-inserted at its former
// position.
func (s *Store) Rollback(ch Change) {
	s.transition(func(st State) (State, bool) {
		if s.version == ch.Version {
			return ch.prior, true
		}
		switch ch.Kind {
		case Created:
			return st.filterAll(func(a annotation.Annotation) bool { return a.ID == ch.ID }), true
		case Updated:
			if !ch.Matched() {
				return st, false
			}
			return st.mapAll(func(a annotation.Annotation) annotation.Annotation {
				switch {
				case a.ID != ch.ID:
					return a
				case a.Equal(ch.After):
					return ch.Before.Clone()
				}
				return ch.Patch.Revert(a, ch.Before)
			}), true
		case Deleted:
			if !ch.Matched() || st.live.IndexOf(ch.ID) >= 0 {
				return st, false
			}
			i := min(ch.Index, len(st.live))
			live := make(Snapshot, 0, len(st.live)+1)
			live = append(live, st.live[:i]...)
			live = append(live, ch.Before.Clone())
			live = append(live, st.live[i:]...)
			return st.withLive(live), true
		}
		return st, false
	})
}

// Rekey replaces the record known as tempID with its persisted form, in the
// live set and in both history stacks, without recording history. Copies
// that still equal sent (the body that was sent to the server) are replaced
// wholesale by persisted; copies edited since only adopt its id and
// timestamps. It returns false when tempID appears nowhere.
func (s *Store) Rekey(tempID string, sent, persisted annotation.Annotation) bool {
	sent.ID = tempID
	return s.transition(func(st State) (State, bool) {
		found := false
		rekey := func(snap Snapshot) Snapshot {
			taken := snap.IndexOf(persisted.ID) >= 0
			out := make(Snapshot, 0, len(snap))
			for _, a := range snap {
				if a.ID != tempID {
					out = append(out, a)
					continue
				}
				found = true
				if taken {
					continue
				}
				if a.Equal(sent) {
					out = append(out, persisted.Clone())
					continue
				}
				a = a.Clone()
				a.ID = persisted.ID
				a.CreatedAt = persisted.CreatedAt
				a.UpdatedAt = persisted.UpdatedAt
				out = append(out, a)
			}
			return out
		}

		next := State{live: rekey(st.live), limit: st.limit}
		for _, snap := range st.undo {
			next.undo = append(next.undo, rekey(snap))
		}
		for _, snap := range st.redo {
			next.redo = append(next.redo, rekey(snap))
		}
		if !found {
			return st, false
		}
		return next, true
	})
}

// mutate commits the state fn returns. A create that matched nothing is
// not committed: state, version and listeners are left alone.
func (s *Store) mutate(fn func(State) (State, Change)) Change {
	s.mu.Lock()
	prior := s.state
	next, ch := fn(prior)
	if ch.Kind == Created && !ch.Matched() {
		ch.Version = s.version
		s.mu.Unlock()
		return ch
	}
	s.state = next
	s.version++
	ch.Version = s.version
	ch.prior = prior
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners)
	return ch
}

// transition applies fn under the lock. When fn reports no change the state
// and version are left untouched and nobody is notified.
func (s *Store) transition(fn func(State) (State, bool)) bool {
	s.mu.Lock()
	next, changed := fn(s.state)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.version++
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners)
	return true
}

func (s *Store) snapshotListeners() []func() {
	out := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
