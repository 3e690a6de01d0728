// Package tui implements the interactive category tree browser built on
// bubbletea. It renders an annotated traversal as a collapsible tree and
// reloads it from storage on demand.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arborlore/arbor/internal/cli"
	"github.com/arborlore/arbor/internal/tree"
)

// Config holds what the browser needs to run.
type Config struct {
	Engine   *tree.Engine
	MaxDepth int
	Width    int
	Height   int
}

type treeLoadedMsg struct {
	items []tree.Annotated
}

type errorMsg struct {
	err error
}

// Model holds the browser state.
type Model struct {
	engine    *tree.Engine
	lastError error
	collapsed map[int64]bool
	keymap    KeyMap
	items     []tree.Annotated
	maxDepth  int
	cursor    int
	width     int
	height    int
	quitting  bool
	ready     bool
}

func newModel(cfg Config) Model {
	return Model{
		engine:    cfg.Engine,
		collapsed: make(map[int64]bool),
		keymap:    DefaultKeyMap(),
		maxDepth:  cfg.MaxDepth,
		width:     cfg.Width,
		height:    cfg.Height,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, m.loadTree())
}

func (m Model) loadTree() tea.Cmd {
	return func() tea.Msg {
		seq, err := m.engine.AnnotatedList(context.Background(), tree.AnnotateOptions{MaxDepth: m.maxDepth})
		if err != nil {
			return errorMsg{err: err}
		}
		return treeLoadedMsg{items: tree.CollectAnnotated(seq)}
	}
}

// visible returns the indexes of items not hidden under a collapsed branch.
func (m Model) visible() []int {
	var out []int
	hideBelow := ""
	for i, item := range m.items {
		if hideBelow != "" {
			if strings.HasPrefix(item.Category.Path, hideBelow) {
				continue
			}
			hideBelow = ""
		}
		out = append(out, i)
		if item.Info.HasChildren && m.collapsed[item.Category.ID] {
			hideBelow = item.Category.Path
		}
	}
	return out
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case treeLoadedMsg:
		m.items = msg.items
		m.ready = true
		m.lastError = nil
		if rows := m.visible(); m.cursor >= len(rows) {
			m.cursor = max(0, len(rows)-1)
		}
		return m, nil

	case errorMsg:
		m.lastError = msg.err
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.visible()

	switch {
	case key.Matches(msg, m.keymap.Quit), key.Matches(msg, m.keymap.ForceQuit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keymap.PageUp):
		m.cursor = max(0, m.cursor-m.pageSize())

	case key.Matches(msg, m.keymap.PageDown):
		m.cursor = min(len(rows)-1, m.cursor+m.pageSize())

	case key.Matches(msg, m.keymap.Home):
		m.cursor = 0

	case key.Matches(msg, m.keymap.End):
		m.cursor = max(0, len(rows)-1)

	case key.Matches(msg, m.keymap.Collapse):
		if item := m.current(rows); item != nil && item.Info.HasChildren {
			m.collapsed[item.Category.ID] = true
		}

	case key.Matches(msg, m.keymap.Expand):
		if item := m.current(rows); item != nil {
			delete(m.collapsed, item.Category.ID)
		}

	case key.Matches(msg, m.keymap.Toggle):
		if item := m.current(rows); item != nil && item.Info.HasChildren {
			if m.collapsed[item.Category.ID] {
				delete(m.collapsed, item.Category.ID)
			} else {
				m.collapsed[item.Category.ID] = true
			}
		}

	case key.Matches(msg, m.keymap.Refresh):
		return m, m.loadTree()
	}

	return m, nil
}

func (m Model) current(rows []int) *tree.Annotated {
	if m.cursor < 0 || m.cursor >= len(rows) {
		return nil
	}
	return &m.items[rows[m.cursor]]
}

func (m Model) pageSize() int {
	if m.height > 6 {
		return m.height - 6
	}
	return 10
}

// View renders the browser.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return cli.SubtitleStyle.Render("Loading categories...")
	}
	if m.lastError != nil {
		return cli.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.lastError))
	}

	rows := m.visible()
	if len(rows) == 0 {
		return cli.SubtitleStyle.Render("No categories. Use `arbor add` to create one.")
	}

	var b strings.Builder
	b.WriteString(cli.TitleStyle.Render("Categories"))
	b.WriteString("\n")

	top, bottom := m.window(len(rows))
	for pos := top; pos < bottom; pos++ {
		item := m.items[rows[pos]]
		b.WriteString(m.renderRow(item, pos == m.cursor))
		b.WriteString("\n")
	}

	if item := m.current(rows); item != nil {
		b.WriteString("\n")
		b.WriteString(cli.SubtleStyle.Render(item.Category.FullName))
		b.WriteString("\n")
	}
	b.WriteString(cli.SubtleStyle.Render("↑/↓ move · ←/→ fold · r reload · q quit"))
	return b.String()
}

// window clamps the rendered slice of visible rows around the cursor.
func (m Model) window(total int) (int, int) {
	size := m.pageSize()
	if total <= size {
		return 0, total
	}
	top := m.cursor - size/2
	if top < 0 {
		top = 0
	}
	if top+size > total {
		top = total - size
	}
	return top, top + size
}

func (m Model) renderRow(item tree.Annotated, selected bool) string {
	indent := strings.Repeat("  ", item.Category.Depth-1)

	marker := "  "
	if item.Info.HasChildren {
		marker = "▾ "
		if m.collapsed[item.Category.ID] {
			marker = "▸ "
		}
	}

	line := fmt.Sprintf("%s%s%s %s", indent, marker, item.Category.Name,
		cli.SubtleStyle.Render(item.Category.Slug))
	if selected {
		return cli.BoldStyle.Foreground(cli.PrimaryColor).Render(line)
	}
	return line
}
