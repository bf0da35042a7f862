package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kungfusheep/treegrid"
)

// drain runs cmd and feeds every message it yields back into m.
func drain(t *testing.T, m *model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			drain(t, m, c)
		}
	default:
		_, next := m.Update(msg)
		drain(t, m, next)
	}
}

func press(t *testing.T, m *model, msgs ...tea.KeyMsg) {
	t.Helper()
	for _, msg := range msgs {
		_, cmd := m.Update(msg)
		drain(t, m, cmd)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func rowNames(m *model) []string { return names(m.grid.Rows()) }

func newTestModel(t *testing.T) *model {
	t.Helper()
	root := makeTree(t, "src/main.go", "lib/", "b.txt")
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	m, err := newModel(context.Background(), root, cfg, nil)
	require.NoError(t, err)

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m.Update(m.Init()())
	return m
}

func TestModel(t *testing.T) {
	m := newTestModel(t)
	require.Equal(t, []string{"b.txt", "lib", "src"}, rowNames(m))

	t.Run("ExpandLoadsChildren", func(t *testing.T) {
		press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
		require.Equal(t, 2, m.grid.Selection().Row)

		press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		assert.Equal(t, []string{"b.txt", "lib", "src", "main.go"}, rowNames(m))
	})

	t.Run("FilterKeepsExpansion", func(t *testing.T) {
		press(t, m, runes("/"), runes("s"), runes("r"), runes("c"))
		assert.True(t, m.typing)
		assert.Equal(t, "src", m.query)
		assert.Equal(t, []string{"src", "main.go"}, rowNames(m))

		press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
		assert.Equal(t, "sr", m.query)

		press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		assert.False(t, m.typing)
		assert.Equal(t, []string{"b.txt", "lib", "src", "main.go"}, rowNames(m))
	})

	t.Run("ControlledSort", func(t *testing.T) {
		m.grid.Select(0, 0)
		press(t, m, runes("s"))
		assert.Equal(t, treegrid.Sort{Key: "name", Direction: treegrid.Desc}, m.grid.SortState())
		assert.Equal(t, []string{"src", "main.go", "lib", "b.txt"}, rowNames(m))
	})

	t.Run("StalePageDropped", func(t *testing.T) {
		m.Update(pageMsg{page: page{gen: m.gen - 1, entries: []entry{{Path: "x", Name: "x"}}}})
		assert.NotContains(t, rowNames(m), "x")
	})

	t.Run("StaleChildrenDropped", func(t *testing.T) {
		m.Update(childrenMsg{version: "old", dir: m.grid.Rows()[0].Path, entries: []entry{{Path: "y", Name: "y"}}})
		assert.NotContains(t, rowNames(m), "y")
	})

	t.Run("HardReloadResetsExpansion", func(t *testing.T) {
		version := m.version
		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
		assert.NotEqual(t, version, m.version)
		assert.Equal(t, []string{"src", "lib", "b.txt"}, rowNames(m))
	})

	t.Run("Quit", func(t *testing.T) {
		_, cmd := m.Update(runes("q"))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})
}

func TestModelView(t *testing.T) {
	m := newTestModel(t)
	view := m.View()
	assert.Contains(t, view, "Name ▲")
	assert.Contains(t, view, "lib")
	assert.Contains(t, view, "3 rows")
}

func TestModelEmptyView(t *testing.T) {
	root := makeTree(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	m, err := newModel(context.Background(), root, cfg, nil)
	require.NoError(t, err)
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 5})
	assert.Contains(t, m.View(), "No Items")
}
