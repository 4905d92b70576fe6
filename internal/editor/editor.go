// Package editor is the interaction loop of the annotation overlay. It turns
// pointer, keyboard, playback-time and layout events into shape drafts,
// selections, drags and committed mutations, and repaints the overlay
// whenever any of its inputs change.
//
// The package has no event source of its own. A UI host drives it by
// forwarding its events to PointerDown, PointerMove, PointerUp, KeyDown,
// SetTime, SetLayout and Select, and paints the frames handed to its
// Renderer.
package editor

import (
	"context"
	"log/slog"
	"sync"

	"video-annotator/internal/annotation"
	"video-annotator/internal/geometry"
	"video-annotator/internal/history"
	"video-annotator/internal/hittest"
	"video-annotator/internal/remotesync"
	"video-annotator/internal/render"
)

// Tool is the active toolbar tool.
type Tool int

const (
	ToolNone Tool = iota
	ToolSelect
	ToolCircle
	ToolRectangle
	ToolLine
	ToolText
)

func (t Tool) String() string {
	switch t {
	case ToolSelect:
		return "select"
	case ToolCircle:
		return "circle"
	case ToolRectangle:
		return "rectangle"
	case ToolLine:
		return "line"
	case ToolText:
		return "text"
	}
	return "none"
}

// shape returns the annotation type a drawing tool produces.
func (t Tool) shape() (annotation.Type, bool) {
	switch t {
	case ToolCircle:
		return annotation.TypeCircle, true
	case ToolRectangle:
		return annotation.TypeRectangle, true
	case ToolLine:
		return annotation.TypeLine, true
	}
	return "", false
}

// Mode is the gesture state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDrawing
	ModeSelected
	ModeDragging
	ModeTextEntry
)

func (m Mode) String() string {
	switch m {
	case ModeDrawing:
		return "drawing"
	case ModeSelected:
		return "selected"
	case ModeDragging:
		return "dragging"
	case ModeTextEntry:
		return "textEntry"
	}
	return "idle"
}

// Committer persists mutations. *remotesync.Adapter implements it.
type Committer interface {
	Create(ctx context.Context, rec annotation.Annotation) *remotesync.Pending
	Update(ctx context.Context, id string, patch annotation.Patch) *remotesync.Pending
	Delete(ctx context.Context, id string) *remotesync.Pending
	Resolve(id string) (string, bool)
}

// Player is the video element the overlay sits on.
type Player interface {
	Playing() bool
	Pause()
	Toggle()
	// Seek moves playback by delta seconds, clamped to the media.
	Seek(delta float64)
	// SeekTo jumps to t seconds.
	SeekTo(t float64)
}

// Renderer receives every repainted frame.
type Renderer interface {
	Render(frame render.Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(render.Frame)

func (f RendererFunc) Render(frame render.Frame) { f(frame) }

// Options configure new shapes and selection tolerances.
type Options struct {
	Policy      annotation.WindowPolicy
	Duration    float64
	Color       string
	MinExtentPx float64
	Hit         hittest.PixelOptions
	// SeekStep is how far the arrow keys move playback, in seconds.
	SeekStep float64
}

// DefaultOptions returns the stock editor configuration.
func DefaultOptions() Options {
	return Options{
		Policy:      annotation.WindowFixed,
		Duration:    annotation.DefaultDuration,
		Color:       annotation.DefaultColor,
		MinExtentPx: annotation.DefaultMinExtentPx,
		Hit:         hittest.DefaultPixelOptions(),
		SeekStep:    5,
	}
}

// Editor owns one overlay's gesture state. Methods are safe to call from
// any goroutine; store notifications arriving from sync goroutines trigger
// repaints.
type Editor struct {
	ctx    context.Context
	store  *history.Store
	sync   Committer
	player Player
	out    Renderer
	logger *slog.Logger
	opts   Options

	mu       sync.Mutex
	tool     Tool
	mode     Mode
	box      geometry.Size
	now      float64
	selected string
	// drawing
	anchor geometry.Point
	draft  *annotation.Annotation
	// dragging
	dragOrigin  geometry.Point
	dragBase    annotation.Annotation
	dragPreview *annotation.Annotation
	// text entry
	textAnchor geometry.Point
	textBuf    string

	unsubscribe func()
}

// New builds an editor over store. Mutations go through sync; player and
// out may be nil. ctx bounds every request the editor starts.
func New(ctx context.Context, store *history.Store, sync Committer, player Player, out Renderer, opts Options) *Editor {
	e := &Editor{
		ctx:    ctx,
		store:  store,
		sync:   sync,
		player: player,
		out:    out,
		logger: slog.Default(),
		opts:   opts,
		tool:   ToolSelect,
	}
	e.unsubscribe = store.Subscribe(e.onStoreChange)
	return e
}

// WithLogger swaps the logger.
func (e *Editor) WithLogger(l *slog.Logger) *Editor {
	e.logger = l
	return e
}

// Close detaches the editor from its store.
func (e *Editor) Close() {
	e.unsubscribe()
}

// Tool returns the active tool.
func (e *Editor) Tool() Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// Mode returns the gesture state.
func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Selected returns the selected annotation id, or "".
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// TextBuffer returns the content of the inline text field.
func (e *Editor) TextBuffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.textBuf
}

// SetTool switches tools, abandoning any gesture in progress. The selection
// survives only a switch to the select tool.
func (e *Editor) SetTool(t Tool) {
	e.mu.Lock()
	e.tool = t
	e.draft, e.dragPreview = nil, nil
	e.textBuf = ""
	if t != ToolSelect {
		e.selected = ""
	}
	e.mode = ModeIdle
	if e.selected != "" {
		e.mode = ModeSelected
	}
	e.mu.Unlock()
	e.repaint()
}

// Select selects the record with id from outside the overlay, as an
// annotation list does: the select tool becomes active and any gesture in
// progress is dropped. The record may lie outside its visibility window.
// With seek set, playback jumps to the record's timestamp. It returns false
// when id is not live.
func (e *Editor) Select(id string, seek bool) bool {
	rec, ok := e.store.Get(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	e.tool = ToolSelect
	e.draft, e.dragPreview = nil, nil
	e.textBuf = ""
	e.selected = id
	e.mode = ModeSelected
	e.mu.Unlock()

	if seek && e.player != nil {
		e.player.SeekTo(rec.Timestamp)
	}
	e.repaint()
	return true
}

// SetLayout records the rendered size of the video box.
func (e *Editor) SetLayout(box geometry.Size) {
	e.mu.Lock()
	e.box = box
	e.mu.Unlock()
	e.repaint()
}

// SetTime is the playback time-update tick.
func (e *Editor) SetTime(t float64) {
	e.mu.Lock()
	e.now = t
	e.mu.Unlock()
	e.repaint()
}

func (e *Editor) playing() bool {
	return e.player != nil && e.player.Playing()
}

// PointerDown handles a press at px, in pixels relative to the video box.
func (e *Editor) PointerDown(px geometry.Point) {
	e.mu.Lock()
	if e.mode == ModeTextEntry {
		e.mu.Unlock()
		e.Blur()
		return
	}
	p, ok := geometry.ToRelative(px, e.box)
	if !ok {
		e.mu.Unlock()
		return
	}

	var toggle, pause bool
	switch {
	case e.tool == ToolNone:
		toggle = true
	case e.tool == ToolText:
		if !e.playing() {
			e.mode = ModeTextEntry
			e.textAnchor = p
			e.textBuf = ""
		}
	case e.tool == ToolSelect:
		pause = e.pressSelect(p)
	default:
		typ, _ := e.tool.shape()
		if e.playing() {
			break
		}
		draft, ok := annotation.NewDraft(typ, p, e.now, e.opts.Duration, e.opts.Color)
		if ok {
			e.mode = ModeDrawing
			e.anchor = p
			e.draft = &draft
		}
	}
	e.mu.Unlock()

	if toggle && e.player != nil {
		e.player.Toggle()
	}
	if pause && e.player != nil && e.player.Playing() {
		e.player.Pause()
	}
	e.repaint()
}

// pressSelect runs the hit-tester for the select tool and reports whether
// a drag started. Caller holds e.mu.
func (e *Editor) pressSelect(p geometry.Point) bool {
	// A drag whose release never arrived ends here.
	e.dragPreview = nil
	if e.mode == ModeDragging {
		e.mode = ModeSelected
	}

	tester, ok := hittest.ForBox(e.box, e.opts.Hit)
	if !ok {
		return false
	}
	live := e.store.Live()
	i := tester.Pick(live, p, hittest.Eligibility(live, e.now, e.opts.Policy, e.selected))
	if i < 0 {
		e.selected = ""
		e.mode = ModeIdle
		return false
	}

	hit := live[i]
	if e.mode == ModeSelected && hit.ID == e.selected {
		e.mode = ModeDragging
		e.dragOrigin = p
		e.dragBase = hit
		preview := hit.Clone()
		e.dragPreview = &preview
		return true
	}
	e.selected = hit.ID
	e.mode = ModeSelected
	return false
}

// PointerMove handles pointer motion at px.
func (e *Editor) PointerMove(px geometry.Point) {
	e.mu.Lock()
	p, ok := geometry.ToRelative(px, e.box)
	if !ok {
		e.mu.Unlock()
		return
	}
	changed := true
	switch e.mode {
	case ModeDrawing:
		next := annotation.Extend(*e.draft, e.anchor, p)
		e.draft = &next
	case ModeDragging:
		next := annotation.Translate(e.dragBase, p.Sub(e.dragOrigin))
		e.dragPreview = &next
	default:
		changed = false
	}
	e.mu.Unlock()

	if changed {
		e.repaint()
	}
}

// PointerUp finishes a draw or drag gesture at px.
func (e *Editor) PointerUp(px geometry.Point) {
	e.mu.Lock()
	p, ok := geometry.ToRelative(px, e.box)
	var create *annotation.Annotation
	var updateID string
	var patch annotation.Patch

	switch e.mode {
	case ModeDrawing:
		final := *e.draft
		if ok {
			final = annotation.Extend(final, e.anchor, p)
		}
		e.mode, e.draft = ModeIdle, nil
		if annotation.IsDegenerate(final, e.box, e.opts.MinExtentPx) {
			e.logger.Debug("discarding degenerate shape", "type", final.Type)
		} else {
			create = &final
		}
	case ModeDragging:
		final := *e.dragPreview
		if ok {
			final = annotation.Translate(e.dragBase, p.Sub(e.dragOrigin))
		}
		e.mode, e.dragPreview = ModeSelected, nil
		if !final.Equal(e.dragBase) {
			updateID, patch = e.dragBase.ID, annotation.GeometryPatch(final)
		}
	default:
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	switch {
	case create != nil:
		e.sync.Create(e.ctx, *create)
	case updateID != "":
		e.sync.Update(e.ctx, updateID, patch)
	}
	e.repaint()
}

// TextInput replaces the content of the inline text field.
func (e *Editor) TextInput(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == ModeTextEntry {
		e.textBuf = s
	}
}

// SubmitText commits the text field (Enter). Blank content commits nothing.
func (e *Editor) SubmitText() {
	e.mu.Lock()
	if e.mode != ModeTextEntry {
		e.mu.Unlock()
		return
	}
	rec, ok := annotation.NewText(e.textAnchor, e.textBuf, e.now, e.opts.Duration, e.opts.Color)
	e.mode, e.textBuf = ModeIdle, ""
	e.mu.Unlock()

	if ok {
		e.sync.Create(e.ctx, rec)
	}
	e.repaint()
}

// CancelText closes the text field without committing (Escape).
func (e *Editor) CancelText() {
	e.mu.Lock()
	if e.mode == ModeTextEntry {
		e.mode, e.textBuf = ModeIdle, ""
	}
	e.mu.Unlock()
	e.repaint()
}

// Blur handles the text field losing focus: commit when it has content,
// cancel otherwise.
func (e *Editor) Blur() {
	e.SubmitText()
}

// DeleteSelected removes the selected annotation.
func (e *Editor) DeleteSelected() {
	e.mu.Lock()
	id := e.selected
	if id == "" || e.mode == ModeDragging {
		e.mu.Unlock()
		return
	}
	e.selected, e.mode = "", ModeIdle
	e.mu.Unlock()

	e.sync.Delete(e.ctx, id)
	e.repaint()
}

// EditSelected applies a property edit (color, duration, text, timestamp,
// or geometry) to the selected annotation.
func (e *Editor) EditSelected(patch annotation.Patch) bool {
	e.mu.Lock()
	id := e.selected
	e.mu.Unlock()
	if id == "" || patch.Empty() {
		return false
	}
	e.sync.Update(e.ctx, id, patch)
	return true
}

// Undo steps the store back. History is local only; nothing is sent.
func (e *Editor) Undo() bool {
	e.cancelDrag()
	return e.store.Undo()
}

// Redo steps the store forward.
func (e *Editor) Redo() bool {
	e.cancelDrag()
	return e.store.Redo()
}

func (e *Editor) cancelDrag() {
	e.mu.Lock()
	if e.mode == ModeDragging {
		e.mode, e.dragPreview = ModeSelected, nil
	}
	e.mu.Unlock()
}

// onStoreChange keeps the selection pointing at a live record, following
// a temporary id to its server id, then repaints.
func (e *Editor) onStoreChange() {
	e.mu.Lock()
	if e.selected != "" {
		live := e.store.Live()
		if live.IndexOf(e.selected) < 0 {
			if id, ok := e.sync.Resolve(e.selected); ok && live.IndexOf(id) >= 0 {
				e.selected = id
				if e.mode == ModeDragging {
					e.dragBase.ID = id
				}
			} else {
				e.selected = ""
				e.mode, e.dragPreview = ModeIdle, nil
			}
		}
	}
	e.mu.Unlock()
	e.repaint()
}

// Frame builds the overlay for the current time: every annotation inside
// its window, the selected one regardless of window, the drag preview in
// place of the dragged record, and the draft on top.
func (e *Editor) Frame() render.Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameLocked()
}

func (e *Editor) frameLocked() render.Frame {
	live := e.store.Live()
	mask := annotation.VisibleMask(live, e.now, e.opts.Policy)

	f := render.Frame{
		Width:    int(e.box.Width),
		Height:   int(e.box.Height),
		Selected: e.selected,
	}
	for i, a := range live {
		isSelected := e.selected != "" && a.ID == e.selected
		if !mask[i] && !isSelected {
			continue
		}
		if e.dragPreview != nil && a.ID == e.dragBase.ID {
			a = *e.dragPreview
		}
		f.Annotations = append(f.Annotations, a)
	}
	if e.draft != nil {
		d := e.draft.Clone()
		f.Draft = &d
	}
	return f
}

func (e *Editor) repaint() {
	if e.out == nil {
		return
	}
	e.mu.Lock()
	f := e.frameLocked()
	e.mu.Unlock()
	e.out.Render(f)
}
