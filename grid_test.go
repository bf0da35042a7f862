package treegrid

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafAware(f *fixture) Config[row, int] {
	cfg := f.config()
	cfg.HasChildren = func(r row) bool {
		_, ok := f.kids[r.ID]
		return ok
	}
	return cfg
}

func manyRows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{ID: i + 1, Name: string(rune('a' + i%26))}
	}
	return out
}

func nameColumns() []Column {
	return []Column{Col("name").Label("Name"), Col("id").Label("ID")}
}

func TestGridNavigate(t *testing.T) {
	g := NewGrid(manyRows(30), newFixture().config(), Options{Columns: nameColumns()})
	g.SetSize(80, 11)

	t.Run("Down", func(t *testing.T) {
		next, moved := g.Navigate(KeyDown, 0)
		assert.True(t, moved)
		assert.Equal(t, Target{Row: 1}, next)
	})

	t.Run("ModifiersIgnored", func(t *testing.T) {
		cur := g.Selection()
		next, moved := g.Navigate(KeyDown, ModShift)
		assert.False(t, moved)
		assert.Equal(t, cur, next)
	})

	t.Run("PageFallsBackToWindow", func(t *testing.T) {
		g.Select(0, 0)
		next, moved := g.Navigate(KeyPageDown, 0)
		assert.True(t, moved)
		assert.Equal(t, 10, next.Row)
	})

	t.Run("PageUsesViewportRange", func(t *testing.T) {
		g.OnViewportRangeChange(Range{RowStart: 10, RowStop: 15, ColumnStop: 1})
		next, _ := g.Navigate(KeyPageDown, 0)
		assert.Equal(t, 15, next.Row)
		next, _ = g.Navigate(KeyPageUp, 0)
		assert.Equal(t, 10, next.Row)
	})

	t.Run("EndAndHome", func(t *testing.T) {
		next, _ := g.Navigate(KeyEnd, 0)
		assert.Equal(t, 29, next.Row)
		_, moved := g.Navigate(KeyDown, 0)
		assert.False(t, moved, "already at last row")
		next, _ = g.Navigate(KeyHome, 0)
		assert.Equal(t, 0, next.Row)
	})

	t.Run("Columns", func(t *testing.T) {
		next, moved := g.Navigate(KeyRight, 0)
		assert.True(t, moved)
		assert.Equal(t, 1, next.Column)
		_, moved = g.Navigate(KeyRight, 0)
		assert.False(t, moved)
		next, _ = g.Navigate(KeyLeft, 0)
		assert.Equal(t, 0, next.Column)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		_, moved := g.Navigate(ParseKey("Tab"), 0)
		assert.False(t, moved)
	})
}

func TestGridNavigateEmpty(t *testing.T) {
	g := NewGrid(nil, newFixture().config(), Options{Columns: nameColumns()})
	for _, k := range []Key{KeyDown, KeyUp, KeyEnd, KeyHome, KeyPageDown} {
		_, moved := g.Navigate(k, 0)
		assert.False(t, moved, "key %d", k)
	}
	assert.True(t, g.Empty())
	assert.Equal(t, "No Items", g.EmptyText())
}

func TestParseKey(t *testing.T) {
	assert.Equal(t, KeyDown, ParseKey("ArrowDown"))
	assert.Equal(t, KeyDown, ParseKey("down"))
	assert.Equal(t, KeyPageUp, ParseKey("pgup"))
	assert.Equal(t, KeyNone, ParseKey("Enter"))
}

func TestGridSelectScrolls(t *testing.T) {
	var selected []Target
	g := NewGrid(manyRows(30), newFixture().config(), Options{
		Columns:  nameColumns(),
		OnSelect: func(tg Target) { selected = append(selected, tg) },
	})
	g.SetSize(80, 11)

	g.Select(25, 1)
	assert.Equal(t, 16, g.ScrollOffset())
	start, end := g.VisibleRows()
	assert.Equal(t, 16, start)
	assert.Equal(t, 26, end)

	g.Select(3, 0)
	assert.Equal(t, 3, g.ScrollOffset())
	assert.Equal(t, []Target{{Row: 25, Column: 1}, {Row: 3}}, selected)

	id, ok := g.SelectedID()
	assert.True(t, ok)
	assert.Equal(t, 4, id)
	assert.True(t, g.RowSelected(3))
	assert.False(t, g.RowSelected(4))
}

func TestGridSelectionFollowsID(t *testing.T) {
	g := NewGrid(roots(), newFixture().config(), Options{Columns: nameColumns()})
	require.True(t, g.SelectID(2))
	assert.Equal(t, 1, g.Selection().Row)

	g.Tree().Expand(1)
	assert.Equal(t, []int{1, 11, 12, 2}, ids(g.Rows()))
	assert.Equal(t, 3, g.Selection().Row)

	g.Tree().Collapse(1)
	assert.Equal(t, 1, g.Selection().Row)

	assert.False(t, g.SelectID(999))
}

func TestGridSortBy(t *testing.T) {
	t.Run("Uncontrolled", func(t *testing.T) {
		host := roots()
		g := NewGrid(host, newFixture().config(), Options{Columns: nameColumns()})

		require.True(t, g.SortBy("name"))
		assert.Equal(t, Sort{Key: "name", Direction: Desc}, g.SortState())
		assert.Equal(t, []int{2, 1}, ids(g.Rows()))
		assert.Equal(t, "Name ▼", g.Header(0))
		assert.Equal(t, "ID", g.Header(1))

		require.True(t, g.SortBy("name"))
		assert.Equal(t, []int{1, 2}, ids(g.Rows()))
		assert.Equal(t, "Name ▲", g.Header(0))

		assert.Equal(t, []int{1, 2}, ids(host), "host slice untouched")
	})

	t.Run("KeepsExpansion", func(t *testing.T) {
		g := NewGrid(roots(), newFixture().config(), Options{Columns: nameColumns()})
		g.Tree().Expand(1)
		g.SortBy("name")
		assert.Equal(t, []int{2, 1, 11, 12}, ids(g.Rows()))
	})

	t.Run("Controlled", func(t *testing.T) {
		var got []Sort
		g := NewGrid(roots(), newFixture().config(), Options{
			Columns: nameColumns(),
			OnSort:  func(s Sort) { got = append(got, s) },
		})

		require.True(t, g.SortBy("id"))
		assert.Equal(t, []Sort{{Key: "id", Direction: Desc}}, got)
		assert.Equal(t, []int{1, 2}, ids(g.Rows()), "host owns ordering")
		assert.Equal(t, "-id", g.SortState().String())
	})

	t.Run("Disabled", func(t *testing.T) {
		cols := []Column{Col("name").NoSort()}
		g := NewGrid(roots(), newFixture().config(), Options{Columns: cols})
		assert.False(t, g.SortBy("name"))
		assert.False(t, g.SortBy("missing"))
		assert.Equal(t, Sort{}, g.SortState())
	})
}

func TestGridViewportInvalidation(t *testing.T) {
	var got []Invalidation
	g := NewGrid(roots(), newFixture().config(), Options{
		Columns:  []Column{Col("name").Fixed(60), Col("id").Weight(1)},
		Viewport: ViewportFunc(func(inv Invalidation) { got = append(got, inv) }),
	})

	t.Run("Rows", func(t *testing.T) {
		got = nil
		g.Tree().Expand(2)
		assert.Equal(t, []Invalidation{{Row: 2}}, got)

		got = nil
		g.Tree().Expand(2)
		assert.Empty(t, got, "no-op expand")
	})

	t.Run("Widths", func(t *testing.T) {
		g.SetSize(200, 10)
		assert.Equal(t, []int{60, 140}, g.Widths())

		got = nil
		require.True(t, g.ResizeColumn(0, 10))
		assert.Equal(t, []int{70, 130}, g.Widths())
		assert.Equal(t, []Invalidation{{Column: 0}}, got)

		assert.False(t, g.ResizeColumn(1, 10), "star columns have no splitter")
	})

	t.Run("Gutter", func(t *testing.T) {
		g.SetGutter(2)
		assert.Equal(t, 2, g.Gutter())
		assert.Equal(t, []int{70, 128}, g.Widths())
		g.SetGutter(0)
		assert.Equal(t, []int{70, 130}, g.Widths())
	})
}

func TestGridFixedWidthsClamped(t *testing.T) {
	g := NewGrid(roots(), newFixture().config(), Options{
		Columns: []Column{Col("name").Fixed(20), Col("id").Fixed(20).Min(-1)},
	})
	assert.Equal(t, []int{DefaultMinWidth, 20}, g.Widths(), "clamped without star columns")

	g.SetSize(200, 10)
	assert.Equal(t, []int{DefaultMinWidth, 20}, g.Widths())

	g.SetColumns([]Column{Col("name").Fixed(20), Col("id").Fixed(20).Min(-1), Col("rest").Weight(1)})
	assert.Equal(t, []int{DefaultMinWidth, 20, 130}, g.Widths(), "same clamp with a star column")
}

func TestGridCellText(t *testing.T) {
	f := newFixture()
	g := NewGrid(roots(), leafAware(f), Options{
		Columns: []Column{
			Col("name").Fixed(12).Min(4),
			Col("id").Fixed(6).Min(4).Aligned(AlignRight).Format(Number(0)),
			Col("label").Fixed(8).Min(4).Data(func(a CellArgs) any {
				return a.Item.(row).Name + "!"
			}).Render(func(a CellArgs) string {
				return "[" + a.CellData.(string) + "]"
			}),
		},
	})
	g.Tree().Expand(1)
	require.Equal(t, []int{1, 11, 12, 2}, ids(g.Rows()))

	assert.Equal(t, "▾ a", g.CellText(0, 0))
	assert.Equal(t, "  ▸ a1", g.CellText(1, 0))
	assert.Equal(t, "    a2", g.CellText(2, 0))
	assert.Equal(t, "▸ b", g.CellText(3, 0))

	assert.Equal(t, "11", g.CellText(1, 1))
	assert.Equal(t, "    11", g.Cell(1, 1))
	assert.Equal(t, "[a1!]", g.CellText(1, 2))
	assert.Equal(t, "  ▸ a1      ", g.Cell(1, 0))

	assert.Equal(t, "", g.CellText(99, 0))
	assert.Equal(t, "", g.CellText(0, 99))
}

func TestGridCellTextNoExpander(t *testing.T) {
	g := NewGrid(roots(), newFixture().config(), Options{
		Columns:         nameColumns(),
		DisableExpander: true,
	})
	assert.Equal(t, "a", g.CellText(0, 0))
}

func TestGridPreferredHeight(t *testing.T) {
	opts := Options{Columns: nameColumns(), MaxVisibleRows: 3}

	g := NewGrid(roots(), newFixture().config(), opts)
	assert.Equal(t, 3, g.PreferredHeight())

	g.SetItems(manyRows(10), "")
	assert.Equal(t, 4, g.PreferredHeight())

	opts.DisableHeader = true
	g = NewGrid(manyRows(10), newFixture().config(), opts)
	assert.Equal(t, 3, g.PreferredHeight())

	g = NewGrid(manyRows(10), newFixture().config(), Options{Columns: nameColumns()})
	assert.Equal(t, 0, g.PreferredHeight())
}

func TestGridVisibleColumns(t *testing.T) {
	cols := []Column{Col("a").Fixed(10).Min(-1), Col("b").Fixed(20).Min(-1), Col("c").Fixed(30).Min(-1)}
	g := NewGrid(roots(), newFixture().config(), Options{Columns: cols})
	g.SetSize(25, 10)

	start, end := g.VisibleColumns()
	assert.Equal(t, 0, start)
	assert.Equal(t, 2, end)

	g.SetScrollLeft(15)
	start, end = g.VisibleColumns()
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, end)

	g.SetScrollLeft(1000)
	assert.Equal(t, 35, g.ScrollLeft())
}

func TestGridLoadMore(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})
	g := NewGrid(manyRows(5), newFixture().config(), Options{
		Columns: nameColumns(),
		OnMore: func(ctx context.Context) error {
			calls.Add(1)
			<-release
			return nil
		},
	})

	_, ok := g.RowAt(ctx, 2)
	require.True(t, ok)
	assert.False(t, g.Pager().Busy(), "only the last row asks for more")

	g.RowAt(ctx, 4)
	g.RowAt(ctx, 4)
	assert.False(t, g.RequestMore(ctx))
	close(release)

	require.Eventually(t, func() bool { return !g.Pager().Busy() }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGridNewVersionResetsPager(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	started := make(chan struct{})
	g := NewGrid(manyRows(5), newFixture().config(), Options{
		Columns: nameColumns(),
		OnMore: func(ctx context.Context) error {
			if calls.Add(1) == 1 {
				close(started)
				<-ctx.Done()
			}
			return nil
		},
	})

	g.RowAt(ctx, 4)
	<-started
	require.True(t, g.Pager().Busy())

	g.SetItems(manyRows(3), "")
	assert.True(t, g.Pager().Busy(), "same version keeps the fetch")

	g.SetItems(manyRows(3), "reload")
	assert.False(t, g.Pager().Busy())
	assert.True(t, g.RequestMore(ctx))
	require.Eventually(t, func() bool { return !g.Pager().Busy() }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGridWithoutPager(t *testing.T) {
	ctx := context.Background()
	g := NewGrid(roots(), newFixture().config(), Options{Columns: nameColumns()})
	assert.Nil(t, g.Pager())
	assert.False(t, g.RequestMore(ctx))
	_, ok := g.RowAt(ctx, 1)
	assert.True(t, ok)
}

func TestGridActivate(t *testing.T) {
	t.Run("TogglesWithoutHandler", func(t *testing.T) {
		g := NewGrid(roots(), leafAware(newFixture()), Options{Columns: nameColumns()})
		g.Activate(0)
		assert.Equal(t, []int{1, 11, 12, 2}, ids(g.Rows()))
		g.Activate(2)
		assert.Equal(t, []int{1, 11, 12, 2}, ids(g.Rows()), "leaf rows don't toggle")
		assert.Equal(t, 2, g.Selection().Row)
		g.Activate(0)
		assert.Equal(t, []int{1, 2}, ids(g.Rows()))
	})

	t.Run("Handler", func(t *testing.T) {
		var got []any
		g := NewGrid(roots(), newFixture().config(), Options{
			Columns:    nameColumns(),
			OnActivate: func(row int, item any) { got = append(got, row, item) },
		})
		g.Activate(1)
		assert.Equal(t, []any{1, row{2, "b"}}, got)
		assert.Equal(t, []int{1, 2}, ids(g.Rows()), "handler replaces toggling")

		g.Activate(9)
		assert.Len(t, got, 2)
	})
}

func TestGridEnsureVisible(t *testing.T) {
	g := NewGrid(manyRows(30), newFixture().config(), Options{Columns: nameColumns()})
	g.SetSize(80, 6)
	g.EnsureVisible(12)
	assert.Equal(t, 8, g.ScrollOffset())
	g.EnsureVisible(10)
	assert.Equal(t, 8, g.ScrollOffset())
	g.ScrollBy(100)
	assert.Equal(t, 25, g.ScrollOffset())
}
