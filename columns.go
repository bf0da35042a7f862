package treegrid

// DefaultColumnWidth is used for columns that don't set a width.
const DefaultColumnWidth = 100

// DefaultMinWidth is the lower clamp for columns that don't set MinWidth.
const DefaultMinWidth = 50

// CellArgs describes the cell being produced for a column.
type CellArgs struct {
	Row      int
	Column   int
	Item     any
	Key      string
	CellData any
}

// Column describes one grid column. Build it with Col and the fluent setters.
type Column struct {
	Key   string
	Title string

	// Star > 0 claims a proportional share of the space left over by
	// fixed columns. Star == 0 is a fixed column.
	Star float64

	Width    int // 0 = DefaultColumnWidth
	MinWidth int // 0 = DefaultMinWidth, <0 = no lower bound
	MaxWidth int // 0 = unbounded

	DisableResize bool
	DisableSort   bool

	// cell pipeline: CellData -> Formatter -> Renderer
	CellData  func(CellArgs) any
	Formatter func(CellArgs) any
	Renderer  func(CellArgs) string

	Align Align
}

// Align is a cell alignment.
type Align uint8

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
)

// Col creates a fixed column for key.
func Col(key string) Column {
	return Column{Key: key, Title: key}
}

// Label sets the header text.
func (c Column) Label(s string) Column { c.Title = s; return c }

// Weight makes the column a star column with the given share.
func (c Column) Weight(w float64) Column {
	if w < 0 {
		w = 0
	}
	c.Star = w
	return c
}

// Fixed sets an explicit width and makes the column non-proportional.
func (c Column) Fixed(w int) Column { c.Width = w; c.Star = 0; return c }

// Min sets the minimum width.
func (c Column) Min(w int) Column { c.MinWidth = w; return c }

// Max sets the maximum width.
func (c Column) Max(w int) Column { c.MaxWidth = w; return c }

// NoResize disables the resize splitter.
func (c Column) NoResize() Column { c.DisableResize = true; return c }

// NoSort disables header sorting.
func (c Column) NoSort() Column { c.DisableSort = true; return c }

// Data sets the cell data getter.
func (c Column) Data(fn func(CellArgs) any) Column { c.CellData = fn; return c }

// Format sets the cell formatter.
func (c Column) Format(fn func(CellArgs) any) Column { c.Formatter = fn; return c }

// Render sets the cell renderer.
func (c Column) Render(fn func(CellArgs) string) Column { c.Renderer = fn; return c }

// Aligned sets the cell alignment.
func (c Column) Aligned(a Align) Column { c.Align = a; return c }

// Resizable reports whether the column has a resize splitter.
func (c Column) Resizable() bool {
	return !c.DisableResize && c.Star == 0
}

func (c Column) minWidth() int {
	switch {
	case c.MinWidth == 0:
		return DefaultMinWidth
	case c.MinWidth < 0:
		return 0
	}
	return c.MinWidth
}

// LimitWidth clamps width to the column's [min, max] range.
func LimitWidth(c Column, width int) int {
	if lo := c.minWidth(); width < lo {
		return lo
	}
	if c.MaxWidth > 0 && width > c.MaxWidth {
		return c.MaxWidth
	}
	return width
}

// InitialWidths seeds a width array from the column specs.
func InitialWidths(cols []Column) []int {
	widths := make([]int, len(cols))
	for i, c := range cols {
		w := c.Width
		if w <= 0 {
			w = DefaultColumnWidth
		}
		widths[i] = w
	}
	return widths
}

// StarWeight sums the star weights of cols.
func StarWeight(cols []Column) float64 {
	var total float64
	for _, c := range cols {
		if c.Star > 0 {
			total += c.Star
		}
	}
	return total
}

// AllocateWidths computes concrete widths for cols.
//
// Fixed columns keep their current width (clamped). The space left after the
// fixed columns and the reserved gutter is shared by star columns in a single
// left-to-right pass; the last star column takes whatever remains, so no
// cells are lost to rounding. The result never contains negative widths and
// is fully determined by the inputs.
func AllocateWidths(cols []Column, current []int, available, gutter int) []int {
	widths := make([]int, len(cols))
	last := -1

	used := 0
	for i, c := range cols {
		w := DefaultColumnWidth
		if i < len(current) {
			w = current[i]
		} else if c.Width > 0 {
			w = c.Width
		}
		if c.Star > 0 {
			last = i
			continue
		}
		w = LimitWidth(c, w)
		widths[i] = w
		used += w
	}

	if last < 0 {
		return widths
	}

	free := max(0, available-used-gutter)
	weight := StarWeight(cols)

	for i, c := range cols {
		if c.Star <= 0 {
			continue
		}
		if free < 0 {
			free = 0
		}
		share := free
		if i != last {
			share = int(c.Star * float64(free) / weight)
		}
		w := LimitWidth(c, share)
		widths[i] = w
		weight -= c.Star
		free -= w
	}

	return widths
}

// ResizeColumn applies a drag delta to column index and reallocates the star
// columns. It reports false if the column can't be resized or the clamped
// width didn't change.
func ResizeColumn(cols []Column, current []int, index, delta, available, gutter int) ([]int, bool) {
	if index < 0 || index >= len(cols) || index >= len(current) || !cols[index].Resizable() {
		return current, false
	}
	old := current[index]
	w := LimitWidth(cols[index], old+delta)
	if w == old {
		return current, false
	}
	next := make([]int, len(current))
	copy(next, current)
	next[index] = w
	return AllocateWidths(cols, next, available, gutter), true
}
