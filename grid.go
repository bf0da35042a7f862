// Package treegrid provides a virtualized tree grid: a flat projection of a
// lazily loaded hierarchy, star-column width allocation, keyboard
// navigation, sorting and load-more paging.
package treegrid

import (
	"context"
	"strings"

	"github.com/bdlm/log"
)

// Options configures a Grid.
type Options struct {
	Columns []Column

	RowHeight     int // default 1
	HeaderHeight  int // default RowHeight
	DisableHeader bool

	// MaxVisibleRows caps PreferredHeight; 0 = no cap.
	MaxVisibleRows int

	ExpanderColumn  int
	ExpanderIndent  int // default 2
	DisableExpander bool

	// EmptyText is shown when there are no rows. Default "No Items".
	EmptyText string

	// OnSort puts sorting under host control: header clicks call it
	// instead of sorting the root items in place.
	OnSort func(Sort)

	// OnSelect is called whenever the selected cell changes.
	OnSelect func(Target)

	// OnActivate is called for an activated row (a click or Enter). Without
	// it, activating an expandable row toggles it.
	OnActivate func(row int, item any)

	// OnMore loads another page. It runs on its own goroutine, one call at
	// a time; the host merges its result through its own event loop.
	OnMore func(ctx context.Context) error

	// Viewport receives invalidations after width or row changes.
	Viewport Viewport
}

// Grid ties a Tree to column widths, selection, scrolling and paging.
// All methods must be called from one goroutine, except that Options.OnMore
// runs on a background goroutine.
type Grid[T any, K comparable] struct {
	tree *Tree[T, K]
	opts Options

	cols   []Column
	widths []int

	width, height int
	gutter        int
	scrollLeft    int

	win     window
	section Range
	sel     Target
	sort    Sort

	selectedID K
	hasSelID   bool

	pager *Pager
}

// NewGrid creates a grid over items.
func NewGrid[T any, K comparable](items []T, cfg Config[T, K], opts Options) *Grid[T, K] {
	if opts.RowHeight <= 0 {
		opts.RowHeight = 1
	}
	if opts.HeaderHeight <= 0 {
		opts.HeaderHeight = opts.RowHeight
	}
	if opts.ExpanderIndent <= 0 {
		opts.ExpanderIndent = 2
	}
	if opts.EmptyText == "" {
		opts.EmptyText = "No Items"
	}

	g := &Grid[T, K]{
		opts: opts,
	}
	if opts.OnMore != nil {
		g.pager = NewPager(opts.OnMore)
	}
	g.tree = NewTree(items, cfg)
	g.tree.listener = g.rowsChanged
	g.SetColumns(opts.Columns)
	return g
}

// Tree returns the underlying projection.
func (g *Grid[T, K]) Tree() *Tree[T, K] { return g.tree }

// Rows returns the visible rows.
func (g *Grid[T, K]) Rows() []T { return g.tree.Items() }

// RowCount returns the number of visible rows.
func (g *Grid[T, K]) RowCount() int { return g.tree.Len() }

// Columns returns the column specs.
func (g *Grid[T, K]) Columns() []Column { return g.cols }

// Widths returns the current column widths.
func (g *Grid[T, K]) Widths() []int { return g.widths }

// Pager returns the load-more pager, or nil.
func (g *Grid[T, K]) Pager() *Pager { return g.pager }

// SetItems replaces the root items; see Tree.SetItems. A new version also
// resets the pager, dropping the old dataset's fetch.
func (g *Grid[T, K]) SetItems(items []T, version string) []T {
	if version != g.tree.Version() {
		g.pager.Reset()
	}
	return g.tree.SetItems(items, version)
}

// SetColumns replaces the column specs and reseeds widths from them.
func (g *Grid[T, K]) SetColumns(cols []Column) {
	g.cols = append([]Column(nil), cols...)
	g.widths = InitialWidths(g.cols)
	g.sel.Column = max(0, min(g.sel.Column, len(g.cols)-1))
	g.recalcWidths(0)
}

// SetSize is the size observer input: the grid's outer width and height.
func (g *Grid[T, K]) SetSize(width, height int) {
	g.width, g.height = width, height

	body := height
	if !g.opts.DisableHeader {
		body -= g.opts.HeaderHeight
	}
	g.win.rows = max(1, body/g.opts.RowHeight)
	g.win.clamp(g.tree.Len())

	g.recalcWidths(0)
}

// Size returns the last size given to SetSize.
func (g *Grid[T, K]) Size() (width, height int) { return g.width, g.height }

// SetGutter reserves width for a vertical scrollbar (0 when none is shown).
func (g *Grid[T, K]) SetGutter(size int) {
	if size < 0 {
		size = 0
	}
	if size == g.gutter {
		return
	}
	g.gutter = size
	g.recalcWidths(0)
}

// Gutter returns the reserved scrollbar width.
func (g *Grid[T, K]) Gutter() int { return g.gutter }

// ResizeColumn applies a splitter drag of delta to column index.
func (g *Grid[T, K]) ResizeColumn(index, delta int) bool {
	widths, ok := ResizeColumn(g.cols, g.widths, index, delta, g.width, g.gutter)
	if !ok {
		return false
	}
	g.widths = widths
	g.invalidate(Invalidation{Column: index})
	return true
}

func (g *Grid[T, K]) recalcWidths(column int) {
	g.widths = AllocateWidths(g.cols, g.widths, g.width, g.gutter)
	g.invalidate(Invalidation{Column: column})
}

// TotalWidth sums the column widths.
func (g *Grid[T, K]) TotalWidth() int {
	total := 0
	for _, w := range g.widths {
		total += w
	}
	return total
}

// SetScrollLeft records the horizontal scroll offset.
func (g *Grid[T, K]) SetScrollLeft(x int) {
	g.scrollLeft = max(0, min(x, g.TotalWidth()-g.width))
}

// ScrollLeft returns the horizontal scroll offset.
func (g *Grid[T, K]) ScrollLeft() int { return g.scrollLeft }

// VisibleColumns returns the half-open range of columns that intersect
// the horizontal window.
func (g *Grid[T, K]) VisibleColumns() (start, end int) {
	left, right := g.scrollLeft, g.scrollLeft+g.width-g.gutter
	x := 0
	start = len(g.widths)
	for i, w := range g.widths {
		if x+w > left && start == len(g.widths) {
			start = i
		}
		if x < right {
			end = i + 1
		}
		x += w
	}
	if end < start {
		end = start
	}
	return start, end
}

// rowsChanged is the tree listener.
func (g *Grid[T, K]) rowsChanged(items []T, from int) {
	g.win.clamp(len(items))
	if g.hasSelID {
		if i := g.tree.IndexOf(g.selectedID); i >= 0 {
			g.sel.Row = i
		}
	}
	g.sel.Row = max(0, min(g.sel.Row, len(items)-1))
	g.invalidate(Invalidation{Row: from})
}

func (g *Grid[T, K]) invalidate(inv Invalidation) {
	if g.opts.Viewport != nil {
		g.opts.Viewport.Recompute(inv)
	}
}

// ScrollTo makes row the first visible row, clamped.
func (g *Grid[T, K]) ScrollTo(row int) {
	g.win.scrollTo(row, g.tree.Len())
}

// EnsureVisible scrolls the minimum amount to bring row into view.
func (g *Grid[T, K]) EnsureVisible(row int) {
	g.win.ensureVisible(row, g.tree.Len())
}

// ScrollBy scrolls by delta rows.
func (g *Grid[T, K]) ScrollBy(delta int) {
	g.ScrollTo(g.win.offset + delta)
}

// ScrollOffset returns the first visible row.
func (g *Grid[T, K]) ScrollOffset() int { return g.win.offset }

// VisibleRows returns the half-open range of rows in view.
func (g *Grid[T, K]) VisibleRows() (start, end int) {
	return g.win.visible(g.tree.Len())
}

// OnViewportRangeChange records the block the renderer last drew. It is
// used for page-sized navigation only.
func (g *Grid[T, K]) OnViewportRangeChange(r Range) {
	g.section = r
}

// ViewportRange returns the last recorded viewport range.
func (g *Grid[T, K]) ViewportRange() Range { return g.section }

// RowAt returns row i for rendering. Reaching the last row asks the pager
// for another page.
func (g *Grid[T, K]) RowAt(ctx context.Context, i int) (T, bool) {
	item, ok := g.tree.At(i)
	if ok && i == g.tree.Len()-1 {
		g.RequestMore(ctx)
	}
	return item, ok
}

// RequestMore starts a load-more fetch unless one is in flight.
func (g *Grid[T, K]) RequestMore(ctx context.Context) bool {
	return g.pager.Request(ctx)
}

// PreferredHeight is the height needed to show every row, capped at
// MaxVisibleRows. It is 0 (fill the container) when no cap is set.
func (g *Grid[T, K]) PreferredHeight() int {
	if g.opts.MaxVisibleRows <= 0 {
		return 0
	}
	h := min(g.opts.MaxVisibleRows, g.tree.Len()) * g.opts.RowHeight
	if !g.opts.DisableHeader {
		h += g.opts.HeaderHeight
	}
	return h
}

// Empty reports whether there are no rows.
func (g *Grid[T, K]) Empty() bool { return g.tree.Len() == 0 }

// EmptyText returns the text shown for an empty grid.
func (g *Grid[T, K]) EmptyText() string { return g.opts.EmptyText }

// Selection returns the selected cell.
func (g *Grid[T, K]) Selection() Target { return g.sel }

// SelectedID returns the id of the selected row, if any.
func (g *Grid[T, K]) SelectedID() (K, bool) { return g.selectedID, g.hasSelID }

// Select moves the selection to a cell and scrolls it into view.
func (g *Grid[T, K]) Select(row, column int) {
	g.sel = Target{Row: row, Column: column}
	if item, ok := g.tree.At(row); ok {
		g.selectedID = g.tree.cfg.ID(item)
		g.hasSelID = true
		g.win.ensureVisible(row, g.tree.Len())
	}
	if g.opts.OnSelect != nil {
		g.opts.OnSelect(g.sel)
	}
}

// SelectID selects the first visible row with id.
func (g *Grid[T, K]) SelectID(id K) bool {
	i := g.tree.IndexOf(id)
	if i < 0 {
		return false
	}
	g.Select(i, g.sel.Column)
	return true
}

// RowSelected reports whether row holds the selected id.
func (g *Grid[T, K]) RowSelected(row int) bool {
	return g.hasSelID && g.tree.MatchID(row, g.selectedID)
}

// Navigate applies a key press. It returns the new target and whether the
// selection moved; an unchanged target means the key should not be
// treated as a selection change.
func (g *Grid[T, K]) Navigate(key Key, mods Modifiers) (Target, bool) {
	page := g.section.PageRows()
	if page <= 0 {
		page = g.win.rows
	}
	next := navigate(key, mods, g.sel, g.tree.Len(), len(g.cols), page)
	if next == g.sel {
		return next, false
	}
	g.Select(next.Row, next.Column)
	return next, true
}

// ToggleRow flips the expand state of row.
func (g *Grid[T, K]) ToggleRow(row int) []T {
	return g.tree.SetExpandedAt(row, Toggle)
}

// Activate selects row and hands it to OnActivate, or toggles it when no
// handler is set.
func (g *Grid[T, K]) Activate(row int) {
	item, ok := g.tree.At(row)
	if !ok {
		return
	}
	g.Select(row, g.sel.Column)
	if g.opts.OnActivate != nil {
		g.opts.OnActivate(row, item)
		return
	}
	if g.tree.HasChildren(item) {
		g.ToggleRow(row)
	}
}

// SortState returns the current sort.
func (g *Grid[T, K]) SortState() Sort { return g.sort }

// SetSort records a sort applied by the host (controlled mode) without
// reordering anything.
func (g *Grid[T, K]) SetSort(s Sort) { g.sort = s }

// SortBy handles a header click on column key.
func (g *Grid[T, K]) SortBy(key string) bool {
	col := -1
	for i, c := range g.cols {
		if c.Key == key {
			col = i
			break
		}
	}
	if col < 0 || g.cols[col].DisableSort {
		return false
	}

	next := NextSort(g.sort, key)
	g.sort = next

	if g.opts.OnSort != nil {
		log.WithFields(log.Fields{"sort": next.String()}).Debug("sort handed to host")
		g.opts.OnSort(next)
		return true
	}
	g.tree.Sort(next.Key, next.Direction)
	return true
}

// Header returns the header text for column, with a sort marker.
func (g *Grid[T, K]) Header(column int) string {
	if column < 0 || column >= len(g.cols) {
		return ""
	}
	c := g.cols[column]
	if g.sort.Key == c.Key {
		if g.sort.Direction == Desc {
			return c.Title + " ▼"
		}
		return c.Title + " ▲"
	}
	return c.Title
}

// CellText runs the cell pipeline for one cell: CellData (or the item's
// field), then Formatter, then Renderer. The expander column is prefixed
// with the row's indentation and expander glyph.
func (g *Grid[T, K]) CellText(row, column int) string {
	item, ok := g.tree.At(row)
	if !ok || column < 0 || column >= len(g.cols) {
		return ""
	}
	c := g.cols[column]

	args := CellArgs{Row: row, Column: column, Item: item, Key: c.Key}
	if c.CellData != nil {
		args.CellData = c.CellData(args)
	} else if field := g.tree.cfg.Field; field != nil {
		args.CellData = field(item, c.Key)
	} else {
		args.CellData = FieldValue(item, c.Key)
	}
	if c.Formatter != nil {
		args.CellData = c.Formatter(args)
	}

	text := toText(args.CellData)
	if c.Renderer != nil {
		text = c.Renderer(args)
	}

	if !g.opts.DisableExpander && column == g.opts.ExpanderColumn {
		text = g.expander(row) + text
	}
	return text
}

// Cell returns CellText fitted to the column width.
func (g *Grid[T, K]) Cell(row, column int) string {
	if column < 0 || column >= len(g.cols) {
		return ""
	}
	return Fit(g.CellText(row, column), g.widths[column], g.cols[column].Align)
}

func (g *Grid[T, K]) expander(row int) string {
	info := g.tree.ViewInfo(row)
	indent := g.opts.ExpanderIndent
	pad := strings.Repeat(" ", info.Level*indent)
	if !info.Expandable {
		return pad + strings.Repeat(" ", indent)
	}
	glyph := "▸"
	if info.Expanded {
		glyph = "▾"
	}
	return pad + Fit(glyph, indent, AlignLeft)
}
