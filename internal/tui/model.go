package tui

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/merchctl/internal/classification"
	"github.com/Veraticus/merchctl/internal/cli"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
	"github.com/Veraticus/merchctl/internal/view"
)

const (
	maxColumnWidth = 32
	// chromeHeight is the number of lines around the table: title, filters, search,
	// counts, status and help.
	chromeHeight = 8
	minTableRows = 3
)

// Model is the browse view: one ranked table with header sorting, filters, paging
// and export of the current view.
type Model struct {
	ctx        context.Context
	search     textinput.Model
	status     string
	prevSearch string
	keys       KeyMap
	cfg        Config
	help       help.Model
	rankTable  ranking.Table
	rows       []model.Row
	tags       []string
	columns    []cli.Column
	result     view.Result
	query      model.ViewQuery
	table      table.Model
	statusKind statusKind
	column     int
	width      int
	height     int
	searching  bool
}

// New creates a browse model over rows ranked by t.
func New(ctx context.Context, t ranking.Table, rows []model.Row, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Title == "" {
		cfg.Title = t.Name
	}

	query := cfg.Query
	if query.Sort.Key == "" {
		query.Sort = t.DefaultSort
	}

	data := rows
	if cfg.Thresholds != nil {
		data = classification.Annotate(rows, *cfg.Thresholds, classification.DisplayTagField)
	}

	tags := []string{model.AllTags}
	for _, tag := range classification.TagOptions(data) {
		tags = append(tags, string(tag))
	}

	keys := DefaultKeyMap()
	tableKeys := table.DefaultKeyMap()
	tableKeys.LineUp = keys.Up
	tableKeys.LineDown = keys.Down
	tableKeys.PageUp = keys.PageUp
	tableKeys.PageDown = keys.PageDown

	styles := table.DefaultStyles()
	styles.Header = cfg.Theme.Header
	styles.Cell = cfg.Theme.Cell
	styles.Selected = cfg.Theme.Selected

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "style, sku, product or brand"
	search.CharLimit = 64

	m := Model{
		ctx:       ctx,
		cfg:       cfg,
		keys:      keys,
		help:      help.New(),
		search:    search,
		rankTable: t,
		rows:      data,
		tags:      tags,
		query:     query,
		table: table.New(
			table.WithFocused(true),
			table.WithKeyMap(tableKeys),
			table.WithStyles(styles),
		),
	}
	m.refresh()
	m.resize(cfg.Width, cfg.Height)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Query returns the current view state.
func (m Model) Query() model.ViewQuery {
	return m.query
}

// Result returns the rows currently shown.
func (m Model) Result() view.Result {
	return m.result
}

// SelectedColumn returns the key of the column the sort key acts on.
func (m Model) SelectedColumn() string {
	if m.column < 0 || m.column >= len(m.columns) {
		return ""
	}
	return m.columns[m.column].Key
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case exportDoneMsg:
		m.handleExportDone(msg)
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Left):
		if m.column > 0 {
			m.column--
			m.refresh()
		}

	case key.Matches(msg, m.keys.Right):
		if m.column < len(m.columns)-1 {
			m.column++
			m.refresh()
		}

	case key.Matches(msg, m.keys.Sort):
		m.toggleSort()

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.prevSearch = m.query.Filters.Search
		m.search.SetValue(m.query.Filters.Search)
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.CycleTag):
		m.query.Filters.Tag = next(m.tags, m.currentTag())
		m.refresh()
		m.setStatus(statusInfo, "Tag filter: "+m.currentTag())

	case key.Matches(msg, m.keys.ZeroSales):
		m.query.Filters.ZeroSalesOnly = !m.query.Filters.ZeroSalesOnly
		m.refresh()

	case key.Matches(msg, m.keys.PageSize):
		m.query.Page.Limit = next(view.LimitOptions, m.query.Page.Limit)
		m.refresh()

	case key.Matches(msg, m.keys.Clear):
		if m.query.Filters.Active() {
			m.query.Filters = model.Filters{}
			m.refresh()
			m.setStatus(statusInfo, "Filters cleared")
		}

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()

	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Accept):
		m.searching = false
		m.search.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		m.searching = false
		m.search.Blur()
		m.query.Filters.Search = m.prevSearch
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.query.Filters.Search = m.search.Value()
	m.refresh()
	return m, cmd
}

func (m *Model) toggleSort() {
	colKey := m.SelectedColumn()
	col, ok := m.rankTable.Column(colKey)
	if !ok || !col.Sortable {
		m.setStatus(statusInfo, fmt.Sprintf("%s is not sortable", m.columnTitle(colKey)))
		return
	}
	m.query.Sort = m.rankTable.Toggle(m.query.Sort, colKey)
	m.refresh()
	m.setStatus(statusInfo, fmt.Sprintf("Sorted by %s %s", col.Title, m.query.Sort.Direction))
}

func (m *Model) exportCmd() tea.Cmd {
	if m.cfg.Export == nil {
		m.setStatus(statusError, "Export is not available in this view")
		return nil
	}

	ctx, export, filters, rows := m.ctx, m.cfg.Export, m.query.Filters, m.result.Filtered
	m.setStatus(statusInfo, fmt.Sprintf("Exporting %d rows...", len(rows)))
	return func() tea.Msg {
		res, err := export(ctx, filters, rows)
		return exportDoneMsg{result: res, err: err}
	}
}

func (m *Model) handleExportDone(msg exportDoneMsg) {
	switch {
	case msg.err != nil:
		m.setStatus(statusError, "Export failed: "+msg.err.Error())
	case msg.result.Skipped:
		m.setStatus(statusInfo, "No rows to export")
	default:
		m.setStatus(statusSuccess, fmt.Sprintf("Exported %d rows to %s", msg.result.Rows, msg.result.Path))
	}
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

func (m *Model) currentTag() string {
	if m.query.Filters.Tag == "" {
		return model.AllTags
	}
	return m.query.Filters.Tag
}

func (m *Model) columnTitle(key string) string {
	for _, c := range m.displayColumns() {
		if c.Key == key {
			return c.Title
		}
	}
	return key
}

// displayColumns returns the ranking table's columns, with the stock overlay right
// after the server tag when thresholds are configured.
func (m *Model) displayColumns() []cli.Column {
	cols := cli.TableColumns(m.rankTable, m.query.Sort)
	if m.cfg.Thresholds == nil {
		return cols
	}
	overlay := cli.Column{Key: classification.DisplayTagField, Title: "Action", Tag: true}
	at := 0
	if len(cols) > 0 && cols[0].Tag {
		at = 1
	}
	return slices.Insert(cols, at, overlay)
}

// refresh re-applies the query and rebuilds the table contents.
func (m *Model) refresh() {
	m.result = view.Apply(m.rows, m.query, m.rankTable)
	m.columns = m.displayColumns()
	if m.column >= len(m.columns) {
		m.column = max(len(m.columns)-1, 0)
	}

	body := make([]table.Row, len(m.result.Rows))
	for i, r := range m.result.Rows {
		line := make(table.Row, len(m.columns))
		for j, c := range m.columns {
			line[j] = c.Render(r)
		}
		body[i] = line
	}

	cols := make([]table.Column, len(m.columns))
	for i, c := range m.columns {
		title := c.Title
		if i == m.column {
			title = "[" + title + "]"
		}
		width := lipgloss.Width(title)
		for _, line := range body {
			width = max(width, lipgloss.Width(line[i]))
		}
		cols[i] = table.Column{Title: title, Width: min(width, maxColumnWidth)}
	}

	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(body)
	if len(body) > 0 && m.table.Cursor() >= len(body) {
		m.table.SetCursor(len(body) - 1)
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
	m.search.Width = max(width-4, 10)
	m.table.SetWidth(width)
	m.table.SetHeight(max(height-chromeHeight, minTableRows))
}

// next returns the option after current, wrapping around; an unknown current yields
// the first option.
func next[T comparable](options []T, current T) T {
	i := slices.Index(options, current)
	return options[(i+1)%len(options)]
}
