package treegrid

// Range is the block of rows and columns the viewport renderer last drew.
// Stop indices are inclusive, the way the renderer reports them.
type Range struct {
	RowStart, RowStop       int
	ColumnStart, ColumnStop int
}

// PageRows is the row count used for PageUp/PageDown.
func (r Range) PageRows() int { return r.RowStop - r.RowStart }

// PageColumns is the visible column span.
func (r Range) PageColumns() int { return r.ColumnStop - r.ColumnStart }

// Invalidation tells the viewport renderer the first row and column whose
// size or content may have changed. Everything before them is still valid.
type Invalidation struct {
	Row    int
	Column int
}

// Viewport is the external renderer that materialises visible cells.
type Viewport interface {
	Recompute(Invalidation)
}

// ViewportFunc adapts a function to Viewport.
type ViewportFunc func(Invalidation)

func (f ViewportFunc) Recompute(inv Invalidation) { f(inv) }

// window tracks the first visible row and how many rows fit.
type window struct {
	offset int
	rows   int
}

func (w *window) maxOffset(total int) int {
	return max(0, total-w.rows)
}

func (w *window) scrollTo(index, total int) bool {
	index = max(0, min(index, w.maxOffset(total)))
	if index == w.offset {
		return false
	}
	w.offset = index
	return true
}

// ensureVisible scrolls the minimum amount to bring row into view.
func (w *window) ensureVisible(row, total int) bool {
	switch {
	case row < w.offset:
		return w.scrollTo(row, total)
	case w.rows > 0 && row >= w.offset+w.rows:
		return w.scrollTo(row-w.rows+1, total)
	}
	return false
}

func (w *window) clamp(total int) {
	w.offset = max(0, min(w.offset, w.maxOffset(total)))
}

// visible returns the half-open range of rows in view.
func (w *window) visible(total int) (start, end int) {
	start = w.offset
	end = min(w.offset+w.rows, total)
	if end < start {
		end = start
	}
	return
}
