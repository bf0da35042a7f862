package treegrid

// Key is a navigation key.
type Key uint8

const (
	KeyNone Key = iota
	KeyHome
	KeyEnd
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyPageUp
	KeyPageDown
)

var keyNames = map[string]Key{
	"Home":       KeyHome,
	"End":        KeyEnd,
	"ArrowUp":    KeyUp,
	"ArrowDown":  KeyDown,
	"ArrowLeft":  KeyLeft,
	"ArrowRight": KeyRight,
	"PageUp":     KeyPageUp,
	"PageDown":   KeyPageDown,

	// terminal names
	"home":   KeyHome,
	"end":    KeyEnd,
	"up":     KeyUp,
	"down":   KeyDown,
	"left":   KeyLeft,
	"right":  KeyRight,
	"pgup":   KeyPageUp,
	"pgdown": KeyPageDown,
}

// ParseKey maps a key name to a Key. Unknown names are KeyNone.
func ParseKey(name string) Key {
	return keyNames[name]
}

// Modifiers are held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
)

// Target is a selected cell.
type Target struct {
	Row    int
	Column int
}

// navigate moves cur for key inside a rows x cols grid. Modified keys and
// keys on an empty axis leave cur unchanged.
func navigate(key Key, mods Modifiers, cur Target, rows, cols, page int) Target {
	if mods != 0 {
		return cur
	}

	next := cur
	switch key {
	case KeyHome:
		if rows > 0 {
			next.Row = 0
		}
	case KeyEnd:
		if rows > 0 {
			next.Row = rows - 1
		}
	case KeyDown:
		if rows > 0 {
			next.Row = min(cur.Row+1, rows-1)
		}
	case KeyUp:
		if rows > 0 {
			next.Row = max(cur.Row-1, 0)
		}
	case KeyPageDown:
		if rows > 0 {
			next.Row = min(cur.Row+page, rows-1)
		}
	case KeyPageUp:
		if rows > 0 {
			next.Row = max(cur.Row-page, 0)
		}
	case KeyRight:
		if cols > 0 {
			next.Column = min(cur.Column+1, cols-1)
		}
	case KeyLeft:
		if cols > 0 {
			next.Column = max(cur.Column-1, 0)
		}
	}
	return next
}
