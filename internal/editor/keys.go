package editor

import "strings"

// Key is a keyboard event. Name follows DOM KeyboardEvent.key values
// ("a", " ", "Delete", "ArrowLeft", ...).
type Key struct {
	Name  string
	Ctrl  bool
	Shift bool
	Meta  bool
}

func (k Key) command() bool {
	return k.Ctrl || k.Meta
}

// KeyDown dispatches editor shortcuts and reports whether k was consumed.
// While the text field is open only Enter and Escape are handled; every
// other key belongs to the field.
func (e *Editor) KeyDown(k Key) bool {
	if e.Mode() == ModeTextEntry {
		switch k.Name {
		case "Enter":
			e.SubmitText()
			return true
		case "Escape":
			e.CancelText()
			return true
		}
		return false
	}

	name := strings.ToLower(k.Name)
	if k.command() {
		switch {
		case name == "z" && k.Shift, name == "y":
			e.Redo()
			return true
		case name == "z":
			e.Undo()
			return true
		}
		return false
	}

	switch name {
	case "delete", "backspace":
		if e.Selected() == "" {
			return false
		}
		e.DeleteSelected()
	case "escape":
		e.SetTool(ToolSelect)
	case "c":
		e.SetTool(ToolCircle)
	case "r":
		e.SetTool(ToolRectangle)
	case "l":
		e.SetTool(ToolLine)
	case "t":
		e.SetTool(ToolText)
	case " ":
		if e.player == nil {
			return false
		}
		e.player.Toggle()
	case "arrowleft":
		if e.player == nil {
			return false
		}
		e.player.Seek(-e.opts.SeekStep)
	case "arrowright":
		if e.player == nil {
			return false
		}
		e.player.Seek(e.opts.SeekStep)
	default:
		return false
	}
	return true
}
