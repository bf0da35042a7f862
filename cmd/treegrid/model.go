package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bdlm/log"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/kungfusheep/treegrid"
)

// messages

type childrenMsg struct {
	version string
	dir     string
	entries []entry
	err     error
}

type pageMsg struct {
	page page
	err  error
}

type dirChangedMsg struct{ dir string }

type keyMap struct {
	Up, Down, Left, Right key.Binding
	Home, End             key.Binding
	PageUp, PageDown      key.Binding
	Toggle, Sort          key.Binding
	Narrow, Widen         key.Binding
	Filter, Reload, Quit  key.Binding
	Accept, Cancel        key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "column left")),
	Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "column right")),
	Home:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
	End:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+f"), key.WithHelp("pgdn", "page down")),
	Toggle:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "expand")),
	Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort column")),
	Narrow:   key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "narrow column")),
	Widen:    key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "widen column")),
	Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Reload:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Accept:   key.NewBinding(key.WithKeys("enter")),
	Cancel:   key.NewBinding(key.WithKeys("esc")),
}

var navKeys = []struct {
	binding *key.Binding
	key     treegrid.Key
}{
	{&keys.Up, treegrid.KeyUp},
	{&keys.Down, treegrid.KeyDown},
	{&keys.Left, treegrid.KeyLeft},
	{&keys.Right, treegrid.KeyRight},
	{&keys.Home, treegrid.KeyHome},
	{&keys.End, treegrid.KeyEnd},
	{&keys.PageUp, treegrid.KeyPageUp},
	{&keys.PageDown, treegrid.KeyPageDown},
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	dirStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	emptyStyle    = lipgloss.NewStyle().Faint(true)
)

type model struct {
	ctx     context.Context
	grid    *treegrid.Grid[entry, string]
	cfg     *Config
	root    string
	lister  *lister
	watcher *watcher
	send    func(tea.Msg)

	all     []entry
	version string
	gen     int
	sort    treegrid.Sort
	query   string
	typing  bool
	more    bool

	loads []tea.Cmd
	err   error
}

func newModel(ctx context.Context, root string, cfg *Config, w *watcher) (*model, error) {
	m := &model{
		ctx:     ctx,
		cfg:     cfg,
		root:    root,
		watcher: w,
		version: uuid.NewString(),
		sort:    cfg.InitialSort(),
		more:    true,
		send:    func(tea.Msg) {},
	}
	m.lister = newLister(root)
	m.gen = m.lister.reset()

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	opts.OnSort = m.onSort
	opts.OnMore = m.loadMore
	opts.Viewport = treegrid.ViewportFunc(func(inv treegrid.Invalidation) {
		log.WithFields(log.Fields{"row": inv.Row, "column": inv.Column}).Debug("viewport invalidated")
	})

	m.grid = treegrid.NewGrid(nil, treegrid.Config[entry, string]{
		ID:          entryID,
		HasChildren: func(e entry) bool { return e.Dir },
		Children:    m.children,
		Field:       field,
	}, opts)
	m.grid.SetSort(m.sort)
	return m, nil
}

// children queues an asynchronous listing. The rows show up when the
// listing arrives and is handed to SetChildren.
func (m *model) children(req treegrid.ChildRequest[entry, string]) ([]entry, bool) {
	dir, version := req.ID, m.version
	m.loads = append(m.loads, func() tea.Msg {
		entries, err := listDir(dir)
		return childrenMsg{version: version, dir: dir, entries: entries, err: err}
	})
	return nil, false
}

// loadMore runs on the pager goroutine.
func (m *model) loadMore(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	p, err := m.lister.next(m.cfg.PageSize)
	m.send(pageMsg{page: p, err: err})
	return err
}

// onSort is the controlled sort: roots are ordered here, children keep the
// listing order.
func (m *model) onSort(s treegrid.Sort) {
	m.sort = s
	m.apply()
}

// apply pushes the sorted, filtered roots into the grid under the current
// version, so expansion survives.
func (m *model) apply() {
	rows := slices.Clone(m.all)
	if m.sort.Key != "" {
		cmp := treegrid.Comparer(m.sort.Direction)
		slices.SortStableFunc(rows, func(a, b entry) int {
			return cmp(field(a, m.sort.Key), field(b, m.sort.Key))
		})
	}
	rows = treegrid.Filter(rows, m.query, entryText)
	m.grid.SetItems(rows, m.version)
}

// relist starts the root listing over. A hard reload also starts a new
// dataset version, dropping expansion and cached children.
func (m *model) relist(hard bool) tea.Cmd {
	m.gen = m.lister.reset()
	m.all = nil
	m.more = true
	m.err = nil
	if hard {
		m.version = uuid.NewString()
		m.grid.SetItems(nil, m.version)
	}
	log.WithFields(log.Fields{"version": m.version, "hard": hard}).Info("listing root")
	return m.firstPage()
}

// firstPage reads a page outside the pager, which may still be busy with
// the previous listing.
func (m *model) firstPage() tea.Cmd {
	return func() tea.Msg {
		p, err := m.lister.next(m.cfg.PageSize)
		return pageMsg{page: p, err: err}
	}
}

func (m *model) Init() tea.Cmd {
	return m.firstPage()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.grid.SetSize(msg.Width, msg.Height-1)

	case tea.KeyMsg:
		if m.typing {
			m.updateFilter(msg)
			break
		}
		cmd = m.updateKeys(msg)

	case pageMsg:
		m.updatePage(msg)

	case childrenMsg:
		if msg.version != m.version {
			break
		}
		if msg.err != nil {
			m.err = msg.err
			msg.entries = nil
		}
		m.grid.Tree().SetChildren(msg.dir, msg.entries)
		m.watcher.add(msg.dir)

	case dirChangedMsg:
		switch {
		case msg.dir == m.root:
			cmd = m.relist(false)
		case m.grid.Tree().IndexOf(msg.dir) >= 0:
			dir, version := msg.dir, m.version
			cmd = func() tea.Msg {
				entries, err := listDir(dir)
				return childrenMsg{version: version, dir: dir, entries: entries, err: err}
			}
		}
	}

	m.sync()
	return m, m.flush(cmd)
}

func (m *model) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Filter):
		m.typing = true
		return nil
	case key.Matches(msg, keys.Toggle):
		m.grid.Activate(m.grid.Selection().Row)
		return nil
	case key.Matches(msg, keys.Sort):
		col := m.grid.Selection().Column
		if cols := m.grid.Columns(); col < len(cols) {
			m.grid.SortBy(cols[col].Key)
		}
		return nil
	case key.Matches(msg, keys.Narrow):
		m.grid.ResizeColumn(m.grid.Selection().Column, -1)
		return nil
	case key.Matches(msg, keys.Widen):
		m.grid.ResizeColumn(m.grid.Selection().Column, 1)
		return nil
	case key.Matches(msg, keys.Reload):
		return m.relist(true)
	case key.Matches(msg, keys.Cancel):
		if m.query != "" {
			m.query = ""
			m.apply()
		}
		return nil
	}

	var mods treegrid.Modifiers
	if msg.Alt {
		mods |= treegrid.ModAlt
	}
	for _, nk := range navKeys {
		if key.Matches(msg, *nk.binding) {
			m.grid.Navigate(nk.key, mods)
			break
		}
	}
	return nil
}

func (m *model) updateFilter(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, keys.Accept):
		m.typing = false
		return
	case key.Matches(msg, keys.Cancel):
		m.typing = false
		m.query = ""
	case msg.Type == tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
		}
	case msg.Type == tea.KeyRunes, msg.Type == tea.KeySpace:
		m.query += string(msg.Runes)
	default:
		return
	}
	m.apply()
}

func (m *model) updatePage(msg pageMsg) {
	if msg.page.gen != m.gen {
		log.WithFields(log.Fields{"gen": msg.page.gen}).Debug("dropping stale page")
		return
	}
	if msg.err != nil {
		m.err = msg.err
		m.more = false
		return
	}
	m.all = append(m.all, msg.page.entries...)
	m.more = !msg.page.last
	m.apply()
	m.watcher.add(m.root)
}

// sync reports the drawn range to the grid and asks for another page when
// the last row is on screen.
func (m *model) sync() {
	start, end := m.grid.VisibleRows()
	cstart, cend := m.grid.VisibleColumns()
	m.grid.OnViewportRangeChange(treegrid.Range{
		RowStart:    start,
		RowStop:     max(start, end-1),
		ColumnStart: cstart,
		ColumnStop:  max(cstart, cend-1),
	})

	if m.more && end > start {
		m.grid.RowAt(m.ctx, end-1)
	}

	gutter := 0
	if m.grid.RowCount() > end-start {
		gutter = 1
	}
	m.grid.SetGutter(gutter)
}

// flush batches cmd with the child listings queued during this update.
func (m *model) flush(cmd tea.Cmd) tea.Cmd {
	if len(m.loads) == 0 {
		return cmd
	}
	cmds := append(m.loads, cmd)
	m.loads = nil
	return tea.Batch(cmds...)
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(renderGrid(m.grid, true))
	b.WriteByte('\n')
	b.WriteString(m.statusLine())
	return b.String()
}

func (m *model) statusLine() string {
	if m.typing || m.query != "" {
		cursor := ""
		if m.typing {
			cursor = "▏"
		}
		return statusStyle.Render("/" + m.query + cursor)
	}
	if m.err != nil {
		return errorStyle.Render(m.err.Error())
	}

	parts := []string{fmt.Sprintf("%d rows", m.grid.RowCount())}
	if m.grid.Pager().Busy() {
		parts = append(parts, "loading…")
	} else if m.more {
		parts = append(parts, "more")
	}
	if s := m.grid.SortState(); s.Key != "" {
		parts = append(parts, "sort "+s.String())
	}
	parts = append(parts, keys.Filter.Help().Key+" "+keys.Filter.Help().Desc, keys.Quit.Help().Key+" "+keys.Quit.Help().Desc)
	return statusStyle.Render(strings.Join(parts, "  "))
}

// renderGrid draws the header and visible rows. interactive adds the
// selection highlight and a scrollbar in the gutter.
func renderGrid(g *treegrid.Grid[entry, string], interactive bool) string {
	width, _ := g.Size()
	cstart, cend := g.VisibleColumns()
	var lines []string

	var header strings.Builder
	for c := cstart; c < cend; c++ {
		header.WriteString(treegrid.Fit(g.Header(c), g.Widths()[c], g.Columns()[c].Align))
	}
	lines = append(lines, headerStyle.Render(treegrid.Fit(header.String(), width, treegrid.AlignLeft)))

	if g.Empty() {
		lines = append(lines, emptyStyle.Render(treegrid.Fit(g.EmptyText(), width, treegrid.AlignCenter)))
		return strings.Join(lines, "\n")
	}

	start, end := g.VisibleRows()
	bodyWidth := width - g.Gutter()
	for r := start; r < end; r++ {
		var line strings.Builder
		for c := cstart; c < cend; c++ {
			line.WriteString(g.Cell(r, c))
		}
		text := treegrid.Fit(line.String(), bodyWidth, treegrid.AlignLeft)

		item, _ := g.Tree().At(r)
		switch {
		case interactive && g.RowSelected(r):
			text = selectedStyle.Render(text)
		case item.Dir:
			text = dirStyle.Render(text)
		}
		if g.Gutter() > 0 {
			text += scrollbar(r-start, end-start, start, g.RowCount())
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

func scrollbar(i, height, offset, total int) string {
	if total <= height || height <= 0 {
		return " "
	}
	thumb := max(1, height*height/total)
	pos := offset * (height - thumb) / max(1, total-height)
	if i >= pos && i < pos+thumb {
		return "█"
	}
	return "│"
}
