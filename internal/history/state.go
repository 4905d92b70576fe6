// Package history holds the client-side annotation set together with its
// linear undo/redo history.
package history

import (
	"video-annotator/internal/annotation"
)

// Snapshot is an ordered annotation set. Snapshots are never mutated once
// they are part of a State, so they can be shared between states.
type Snapshot []annotation.Annotation

// IndexOf returns the position of id in s, or -1.
func (s Snapshot) IndexOf(id string) int {
	for i, a := range s {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the record with id.
func (s Snapshot) Find(id string) (annotation.Annotation, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s[i], true
	}
	return annotation.Annotation{}, false
}

// Clone deep-copies s so callers can hold on to it freely.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for i, a := range s {
		out[i] = a.Clone()
	}
	return out
}

// Equal compares two snapshots record by record.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (s Snapshot) mapRecords(fn func(annotation.Annotation) annotation.Annotation) Snapshot {
	out := make(Snapshot, len(s))
	for i, a := range s {
		out[i] = fn(a)
	}
	return out
}

// State is the triple the store transitions over. Every method is a pure
// transformation returning a new State.
type State struct {
	live Snapshot
	undo []Snapshot
	redo []Snapshot
	// limit caps the undo depth; 0 means unlimited.
	limit int
}

// NewState returns an empty state whose undo stack holds at most limit
// entries (0 for unlimited).
func NewState(limit int) State {
	return State{limit: limit}
}

// Live returns a copy of the current annotation set.
func (s State) Live() Snapshot {
	return s.live.Clone()
}

// Len is the number of live records.
func (s State) Len() int {
	return len(s.live)
}

// UndoDepth is the number of snapshots available to undo.
func (s State) UndoDepth() int {
	return len(s.undo)
}

// RedoDepth is the number of snapshots available to redo.
func (s State) RedoDepth() int {
	return len(s.redo)
}

// CanUndo reports whether Undo would change anything.
func (s State) CanUndo() bool {
	return len(s.undo) > 0
}

// CanRedo reports whether Redo would change anything.
func (s State) CanRedo() bool {
	return len(s.redo) > 0
}

// Equal compares live sets and both stacks.
func (s State) Equal(o State) bool {
	if !s.live.Equal(o.live) || len(s.undo) != len(o.undo) || len(s.redo) != len(o.redo) {
		return false
	}
	for i := range s.undo {
		if !s.undo[i].Equal(o.undo[i]) {
			return false
		}
	}
	for i := range s.redo {
		if !s.redo[i].Equal(o.redo[i]) {
			return false
		}
	}
	return true
}

// commit installs next as the live set, pushes the former live set onto
// the undo stack and truncates the redo branch.
func (s State) commit(next Snapshot) State {
	undo := append(append([]Snapshot(nil), s.undo...), s.live)
	if s.limit > 0 && len(undo) > s.limit {
		undo = undo[len(undo)-s.limit:]
	}
	return State{live: next, undo: undo, limit: s.limit}
}

// Create appends rec to the live set. Ids stay unique: creating an id that
// is already live returns s unchanged.
func (s State) Create(rec annotation.Annotation) State {
	if s.live.IndexOf(rec.ID) >= 0 {
		return s
	}
	next := append(append(Snapshot(nil), s.live...), rec.Clone())
	return s.commit(next)
}

// Update applies patch to the record with id. A missing id still records a
// history entry.
func (s State) Update(id string, patch annotation.Patch) State {
	next := append(Snapshot(nil), s.live...)
	if i := next.IndexOf(id); i >= 0 {
		next[i] = patch.Apply(next[i])
	}
	return s.commit(next)
}

// Replace swaps the record with rec.ID for rec, recording history.
func (s State) Replace(rec annotation.Annotation) State {
	next := append(Snapshot(nil), s.live...)
	if i := next.IndexOf(rec.ID); i >= 0 {
		next[i] = rec.Clone()
	}
	return s.commit(next)
}

// Delete removes the record with id.
func (s State) Delete(id string) State {
	next := make(Snapshot, 0, len(s.live))
	for _, a := range s.live {
		if a.ID != id {
			next = append(next, a)
		}
	}
	return s.commit(next)
}

// ReplaceAll installs recs as a new baseline without touching history.
// Later duplicates of an id are dropped so ids stay unique.
func (s State) ReplaceAll(recs []annotation.Annotation) State {
	seen := make(map[string]struct{}, len(recs))
	next := make(Snapshot, 0, len(recs))
	for _, a := range recs {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		next = append(next, a.Clone())
	}
	return State{live: next, undo: s.undo, redo: s.redo, limit: s.limit}
}

// Undo moves the top undo snapshot into live. No-op on an empty stack.
func (s State) Undo() State {
	if len(s.undo) == 0 {
		return s
	}
	top := s.undo[len(s.undo)-1]
	redo := append(append([]Snapshot(nil), s.redo...), s.live)
	return State{
		live:  top,
		undo:  s.undo[:len(s.undo)-1:len(s.undo)-1],
		redo:  redo,
		limit: s.limit,
	}
}

// Redo moves the top redo snapshot into live. No-op on an empty stack.
func (s State) Redo() State {
	if len(s.redo) == 0 {
		return s
	}
	top := s.redo[len(s.redo)-1]
	undo := append(append([]Snapshot(nil), s.undo...), s.live)
	return State{
		live:  top,
		undo:  undo,
		redo:  s.redo[:len(s.redo)-1 : len(s.redo)-1],
		limit: s.limit,
	}
}

// mapAll rewrites every record in live and both stacks without recording
// history.
func (s State) mapAll(fn func(annotation.Annotation) annotation.Annotation) State {
	out := State{live: s.live.mapRecords(fn), limit: s.limit}
	for _, snap := range s.undo {
		out.undo = append(out.undo, snap.mapRecords(fn))
	}
	for _, snap := range s.redo {
		out.redo = append(out.redo, snap.mapRecords(fn))
	}
	return out
}

// filterAll drops records matching drop from live and both stacks.
func (s State) filterAll(drop func(annotation.Annotation) bool) State {
	filter := func(snap Snapshot) Snapshot {
		out := make(Snapshot, 0, len(snap))
		for _, a := range snap {
			if !drop(a) {
				out = append(out, a)
			}
		}
		return out
	}
	out := State{live: filter(s.live), limit: s.limit}
	for _, snap := range s.undo {
		out.undo = append(out.undo, filter(snap))
	}
	for _, snap := range s.redo {
		out.redo = append(out.redo, filter(snap))
	}
	return out
}

// withLive swaps the live set without recording history.
func (s State) withLive(live Snapshot) State {
	return State{live: live, undo: s.undo, redo: s.redo, limit: s.limit}
}
