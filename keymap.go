package badgekit

// Command is an editor action bound to a keyboard shortcut.
type Command uint8

const (
	CmdNone Command = iota
	CmdUndo
	CmdRedo
	CmdCenterHorizontal // center on the vertical center guide
	CmdCenterVertical   // center on the horizontal center guide
	CmdCenterBoth
	CmdAlignLeftThird
	CmdAlignRightThird
	CmdCancel // finish a running animation or drop the selection
)

var commandNames = [...]string{
	CmdNone:             "none",
	CmdUndo:             "undo",
	CmdRedo:             "redo",
	CmdCenterHorizontal: "center-horizontal",
	CmdCenterVertical:   "center-vertical",
	CmdCenterBoth:       "center-both",
	CmdAlignLeftThird:   "align-left-third",
	CmdAlignRightThird:  "align-right-third",
	CmdCancel:           "cancel",
}

func (c Command) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return "unknown"
}

// ParseCommand returns the command with the given name.
func ParseCommand(name string) (Command, bool) {
	for i, n := range commandNames {
		if n == name && i != int(CmdNone) {
			return Command(i), true
		}
	}
	return CmdNone, false
}

// NeedsSelection reports whether c operates on the selected node.
func (c Command) NeedsSelection() bool {
	switch c {
	case CmdCenterHorizontal, CmdCenterVertical, CmdCenterBoth, CmdAlignLeftThird, CmdAlignRightThird:
		return true
	}
	return false
}

// CommandForKey maps a key press to a command. Ctrl and Meta are
// interchangeable as the shortcut modifier; Escape needs none.
func CommandForKey(key Key, mods KeyModifiers) Command {
	if key == KeyEscape {
		return CmdCancel
	}
	if mods&(ModCtrl|ModMeta) == 0 {
		return CmdNone
	}
	shift := mods&ModShift != 0
	switch key {
	case KeyZ:
		if shift {
			return CmdRedo
		}
		return CmdUndo
	case KeyY:
		return CmdRedo
	case KeyE:
		return CmdCenterHorizontal
	case KeyQ:
		return CmdCenterVertical
	case KeyW:
		return CmdCenterBoth
	case Key1:
		return CmdAlignLeftThird
	case Key2:
		return CmdAlignRightThird
	}
	return CmdNone
}
