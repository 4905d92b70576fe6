package history

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"video-annotator/internal/annotation"
	"video-annotator/internal/geometry"
)

func rec(id string, x float64) annotation.Annotation {
	return annotation.Annotation{
		ID:       id,
		Type:     annotation.TypeRectangle,
		X:        x,
		Y:        0.1,
		Width:    0.2,
		Height:   0.2,
		Duration: 3,
		Color:    annotation.DefaultColor,
	}
}

func colorPatch(c string) annotation.Patch {
	return annotation.Patch{Color: &c}
}

func TestState_UndoNTimesRestoresEmpty(t *testing.T) {
	ops := []func(State) State{
		func(s State) State { return s.Create(rec("a", 0.1)) },
		func(s State) State { return s.Create(rec("b", 0.2)) },
		func(s State) State { return s.Update("a", colorPatch("#000000")) },
		func(s State) State { return s.Delete("b") },
		func(s State) State { return s.Update("missing", colorPatch("#111111")) },
		func(s State) State { return s.Delete("missing") },
	}

	s := NewState(0)
	for _, op := range ops {
		s = op(s)
	}
	if s.UndoDepth() != len(ops) {
		t.Fatalf("UndoDepth() = %d, want %d", s.UndoDepth(), len(ops))
	}
	for range ops {
		s = s.Undo()
	}
	if s.Len() != 0 {
		t.Errorf("after %d undos live = %+v, want empty", len(ops), s.Live())
	}
	if s.CanUndo() {
		t.Error("CanUndo() should be false at the bottom of the stack")
	}

	bottom := s.Undo()
	if !bottom.Equal(s) {
		t.Error("Undo() at the bottom must be a no-op")
	}
}

func TestState_UndoThenRedoIsIdentity(t *testing.T) {
	s := NewState(0).
		Create(rec("a", 0.1)).
		Create(rec("b", 0.2)).
		Update("a", colorPatch("#00FF00"))

	before := s
	after := s.Undo().Redo()
	if !after.Equal(before) {
		t.Errorf("Undo().Redo() live = %+v, want %+v", after.Live(), before.Live())
	}

	twice := s.Undo().Undo().Redo().Redo()
	if !twice.Equal(before) {
		t.Error("two undos followed by two redos should restore the state")
	}

	top := before.Redo()
	if !top.Equal(before) {
		t.Error("Redo() at the top must be a no-op")
	}
}

func TestState_MutationAfterUndoClearsRedo(t *testing.T) {
	s := NewState(0).Create(rec("a", 0.1)).Create(rec("b", 0.2)).Create(rec("c", 0.3))
	s = s.Undo().Undo()
	if s.RedoDepth() != 2 {
		t.Fatalf("RedoDepth() = %d, want 2", s.RedoDepth())
	}

	tests := []struct {
		name string
		op   func(State) State
	}{
		{name: "create", op: func(s State) State { return s.Create(rec("d", 0.4)) }},
		{name: "update", op: func(s State) State { return s.Update("a", colorPatch("#123456")) }},
		{name: "delete", op: func(s State) State { return s.Delete("a") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op(s)
			if got.CanRedo() {
				t.Errorf("%s after undo left %d redo entries", tt.name, got.RedoDepth())
			}
		})
	}
}

func TestState_UpdateMissingStillRecordsHistory(t *testing.T) {
	s := NewState(0).Create(rec("a", 0.1))
	got := s.Update("nope", colorPatch("#000000"))
	if got.UndoDepth() != 2 {
		t.Errorf("UndoDepth() = %d, want 2", got.UndoDepth())
	}
	if diff := cmp.Diff(s.Live(), got.Live()); diff != "" {
		t.Errorf("live changed (-want +got):\n%s", diff)
	}
}

func TestState_ReplaceAllKeepsHistory(t *testing.T) {
	s := NewState(0).Create(rec("a", 0.1))
	got := s.ReplaceAll([]annotation.Annotation{rec("x", 0.5), rec("x", 0.6), rec("y", 0.7)})

	if got.UndoDepth() != s.UndoDepth() || got.RedoDepth() != s.RedoDepth() {
		t.Error("ReplaceAll() must not touch history")
	}
	want := Snapshot{rec("x", 0.5), rec("y", 0.7)}
	if diff := cmp.Diff(want, got.Live()); diff != "" {
		t.Errorf("ReplaceAll() live mismatch (-want +got):\n%s", diff)
	}
}

func TestState_Limit(t *testing.T) {
	s := NewState(2)
	for _, id := range []string{"a", "b", "c", "d"} {
		s = s.Create(rec(id, 0.1))
	}
	if s.UndoDepth() != 2 {
		t.Fatalf("UndoDepth() = %d, want 2", s.UndoDepth())
	}
	s = s.Undo().Undo()
	if s.Len() != 2 {
		t.Errorf("live after exhausting limited history = %d records, want 2", s.Len())
	}
}

func TestState_SnapshotsAreIsolated(t *testing.T) {
	line := annotation.Annotation{
		ID:       "l",
		Type:     annotation.TypeLine,
		Points:   []geometry.Point{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}},
		Duration: 1,
	}
	s := NewState(0).Create(line)
	line.Points[0].X = 0.9

	live := s.Live()
	if live[0].Points[0].X != 0.1 {
		t.Error("Create() must copy the record")
	}
	live[0].Points[1].X = 0.9
	if s.Live()[0].Points[1].X != 0.2 {
		t.Error("Live() must return a copy")
	}
}

func TestStore_NotifiesSubscribers(t *testing.T) {
	s := New()
	calls := 0
	cancel := s.Subscribe(func() { calls++ })

	s.Create(rec("a", 0.1))
	s.Undo()
	s.Undo() // no-op, no notification
	s.Redo()
	if calls != 3 {
		t.Errorf("notifications = %d, want 3", calls)
	}

	cancel()
	s.Delete("a")
	if calls != 3 {
		t.Error("cancelled subscriber was notified")
	}
}

func TestStore_RollbackExact(t *testing.T) {
	s := New()
	s.Create(rec("a", 0.1))
	before := s.State()

	ch := s.Create(rec("tmp-1", 0.2))
	s.Rollback(ch)

	if !s.State().Equal(before) {
		t.Errorf("Rollback() live = %+v, want %+v", s.Live(), before.Live())
	}
	if s.State().UndoDepth() != 1 {
		t.Errorf("UndoDepth() = %d, want 1", s.State().UndoDepth())
	}
}

func TestStore_RollbackCompensatingCreate(t *testing.T) {
	s := New()
	ch := s.Create(rec("tmp-1", 0.2))
	s.Create(rec("b", 0.3))
	s.Rollback(ch)

	live := s.Live()
	if _, ok := live.Find("tmp-1"); ok {
		t.Fatal("rolled back record is still live")
	}
	if _, ok := live.Find("b"); !ok {
		t.Fatal("unrelated record was lost")
	}
	for s.Undo() {
		if _, ok := s.Live().Find("tmp-1"); ok {
			t.Fatal("rolled back record reappeared through undo")
		}
	}
}

func TestStore_RollbackCompensatingUpdate(t *testing.T) {
	s := New()
	s.Create(rec("a", 0.1))
	ch := s.Update("a", colorPatch("#000000"))
	s.Create(rec("b", 0.3))
	s.Rollback(ch)

	got, _ := s.Get("a")
	if got.Color != annotation.DefaultColor {
		t.Errorf("color after rollback = %q, want %q", got.Color, annotation.DefaultColor)
	}
	if _, ok := s.Get("b"); !ok {
		t.Error("later record was lost")
	}
}

func TestStore_RollbackUpdateKeepsLaterEdits(t *testing.T) {
	s := New()
	s.Create(rec("a", 0.2))
	x := 0.7
	ch := s.Update("a", annotation.Patch{X: &x})
	s.Update("a", colorPatch("#00FF00"))
	s.Rollback(ch)

	got, _ := s.Get("a")
	if got.X != 0.2 {
		t.Errorf("x after rollback = %v, want 0.2", got.X)
	}
	if got.Color != "#00FF00" {
		t.Errorf("color after rollback = %q, want the later edit #00FF00", got.Color)
	}
}

func TestStore_RollbackUpdateSkipsFieldsEditedSince(t *testing.T) {
	s := New()
	s.Create(rec("a", 0.2))
	x := 0.7
	ch := s.Update("a", annotation.Patch{X: &x})
	later := 0.5
	s.Update("a", annotation.Patch{X: &later})
	s.Rollback(ch)

	if got, _ := s.Get("a"); got.X != 0.5 {
		t.Errorf("x after rollback = %v, want 0.5 from the later edit", got.X)
	}
}

func TestStore_CreateDuplicateID(t *testing.T) {
	s := New()
	first := s.Create(rec("a", 0.1))
	version := s.Version()

	ch := s.Create(rec("a", 0.9))

	if ch.Matched() {
		t.Error("Create(duplicate).Matched() = true, want false")
	}
	if got := len(s.Live()); got != 1 {
		t.Errorf("live len = %d, want 1", got)
	}
	if got, _ := s.Get("a"); !got.Equal(first.After) {
		t.Errorf("Get(a) = %+v, want the original %+v", got, first.After)
	}
	if s.Version() != version || s.State().UndoDepth() != 1 {
		t.Errorf("duplicate create changed state: version %d -> %d, undo depth %d", version, s.Version(), s.State().UndoDepth())
	}
}

func TestState_CreateDuplicateIsNoop(t *testing.T) {
	st := NewState(0).Create(rec("a", 0.1))
	if got := st.Create(rec("a", 0.5)); !got.Equal(st) {
		t.Errorf("Create(duplicate) = %+v, want unchanged", got.Live())
	}
}

func TestStore_RollbackCompensatingDeleteKeepsPosition(t *testing.T) {
	s := New()
	s.Create(rec("a", 0.1))
	s.Create(rec("b", 0.2))
	s.Create(rec("c", 0.3))
	ch := s.Delete("b")
	s.Create(rec("d", 0.4))
	s.Rollback(ch)

	var ids []string
	for _, a := range s.Live() {
		ids = append(ids, a.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, ids); diff != "" {
		t.Errorf("order after rollback (-want +got):\n%s", diff)
	}
}

func TestStore_Rekey(t *testing.T) {
	s := New()
	sent := rec("tmp-1", 0.2)
	s.Create(sent)

	persisted := sent
	persisted.ID = "abc123"
	persisted.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	persisted.UpdatedAt = persisted.CreatedAt

	depth := s.State().UndoDepth()
	if !s.Rekey("tmp-1", sent, persisted) {
		t.Fatal("Rekey() = false")
	}
	if s.State().UndoDepth() != depth {
		t.Error("Rekey() must not record history")
	}

	got, ok := s.Get("abc123")
	if !ok {
		t.Fatal("persisted record not live")
	}
	if diff := cmp.Diff(persisted, got); diff != "" {
		t.Errorf("rekeyed record (-want +got):\n%s", diff)
	}
	if _, ok := s.Get("tmp-1"); ok {
		t.Error("temporary id still live")
	}

	if s.Rekey("tmp-1", sent, persisted) {
		t.Error("second Rekey() should be a no-op")
	}
}

func TestStore_RekeyAfterUndoAndEdit(t *testing.T) {
	s := New()
	sent := rec("tmp-1", 0.2)
	s.Create(sent)
	s.Update("tmp-1", colorPatch("#000000"))
	s.Undo()
	s.Undo()

	persisted := sent
	persisted.ID = "abc123"
	if !s.Rekey("tmp-1", sent, persisted) {
		t.Fatal("Rekey() should find the id in the redo stack")
	}

	s.Redo()
	if _, ok := s.Get("abc123"); !ok {
		t.Fatal("redo should bring back the persisted id")
	}
	s.Redo()
	got, _ := s.Get("abc123")
	if got.Color != "#000000" {
		t.Errorf("edited copy lost its edit: color = %q", got.Color)
	}
}
