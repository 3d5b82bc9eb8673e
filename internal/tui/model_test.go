package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchctl/internal/classification"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
)

func adRows() []model.Row {
	return []model.Row{
		{"tag": "WATCH", "style_key": "ST-A", "orders_30d": 5.0, "style_total_qty": 40.0, "age_days": 90.0, "brand": "Acme"},
		{"tag": "SCALE", "style_key": "ST-B", "orders_30d": 20.0, "style_total_qty": 100.0, "age_days": 90.0, "brand": "Acme"},
		{"tag": "SCALE", "style_key": "ST-C", "orders_30d": 0.0, "style_total_qty": 0.0, "age_days": 90.0, "brand": "Zed"},
		{"tag": "WATCH", "style_key": "ST-D", "orders_30d": nil, "style_total_qty": 10.0, "age_days": 5.0, "brand": "Zed"},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func styleKeys(rows []model.Row) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Text("style_key")
	}
	return keys
}

func TestNewAppliesDefaultSort(t *testing.T) {
	m := New(context.Background(), ranking.AdRecommendations, adRows())

	assert.Equal(t, ranking.AdRecommendations.DefaultSort, m.Query().Sort)
	assert.Equal(t, []string{"ST-B", "ST-C", "ST-A", "ST-D"}, styleKeys(m.Result().Rows))
	assert.Equal(t, "tag", m.SelectedColumn())
}

func TestHeaderToggle(t *testing.T) {
	m := New(context.Background(), ranking.ActionBoard, []model.Row{
		{"style_key": "ST-A", "orders": 3.0},
		{"style_key": "ST-B", "orders": 9.0},
	})
	assert.Equal(t, model.SortSpec{Key: "orders", Direction: model.Desc}, m.Query().Sort)

	// Sorting the active column flips it.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight}, runes("s"))
	assert.Equal(t, "orders", m.SelectedColumn())
	assert.Equal(t, model.SortSpec{Key: "orders", Direction: model.Asc}, m.Query().Sort)
	assert.Equal(t, []string{"ST-A", "ST-B"}, styleKeys(m.Result().Rows))

	// Switching columns uses that column's default direction.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, model.SortSpec{Key: "style_key", Direction: model.Desc}, m.Query().Sort)
	assert.Equal(t, []string{"ST-B", "ST-A"}, styleKeys(m.Result().Rows))
}

func TestDisplayOnlyColumnIsNotSortable(t *testing.T) {
	m := New(context.Background(), ranking.ActionBoard, []model.Row{{"style_key": "ST-A"}})
	before := m.Query().Sort

	// last_order_date is the fifth column.
	m = press(t, m, runes("l"), runes("l"), runes("l"), runes("l"), runes("s"))
	assert.Equal(t, "last_order_date", m.SelectedColumn())
	assert.Equal(t, before, m.Query().Sort)
	assert.Contains(t, m.status, "not sortable")
}

func TestColumnCursorStaysInBounds(t *testing.T) {
	m := New(context.Background(), ranking.BrandGmvAsp, nil)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "brand", m.SelectedColumn())

	for range len(ranking.BrandGmvAsp.Columns) + 3 {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	}
	assert.Equal(t, "share_pct", m.SelectedColumn())
}

func TestFilters(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.Msg
		want []string
	}{
		{
			name: "tag filter cycles to first tag by rank",
			keys: []tea.Msg{runes("t")},
			want: []string{"ST-B", "ST-C"},
		},
		{
			name: "tag filter wraps back to all",
			keys: []tea.Msg{runes("t"), runes("t"), runes("t")},
			want: []string{"ST-B", "ST-C", "ST-A", "ST-D"},
		},
		{
			name: "zero sales treats missing orders as zero",
			keys: []tea.Msg{runes("z")},
			want: []string{"ST-C", "ST-D"},
		},
		{
			name: "search matches brand",
			keys: []tea.Msg{runes("/"), runes("zed"), tea.KeyMsg{Type: tea.KeyEnter}},
			want: []string{"ST-C", "ST-D"},
		},
		{
			name: "escape clears filters",
			keys: []tea.Msg{runes("z"), runes("t"), tea.KeyMsg{Type: tea.KeyEsc}},
			want: []string{"ST-B", "ST-C", "ST-A", "ST-D"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(context.Background(), ranking.AdRecommendations, adRows())
			m = press(t, m, tt.keys...)
			assert.Equal(t, tt.want, styleKeys(m.Result().Rows))
			assert.Equal(t, 4, m.Result().Total)
		})
	}
}

func TestSearchCancelRestoresPreviousSearch(t *testing.T) {
	m := New(context.Background(), ranking.AdRecommendations, adRows())

	m = press(t, m, runes("/"), runes("acme"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "acme", m.Query().Filters.Search)

	m = press(t, m, runes("/"), runes("x"))
	assert.True(t, m.searching)
	assert.Empty(t, m.Result().Rows)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.searching)
	assert.Equal(t, "acme", m.Query().Filters.Search)
	assert.Len(t, m.Result().Rows, 2)
}

func TestPageSizeCycles(t *testing.T) {
	m := New(context.Background(), ranking.AdRecommendations, adRows(), WithQuery(model.ViewQuery{Page: model.Page{Limit: 500}}))

	m = press(t, m, runes("n"))
	assert.Equal(t, 0, m.Query().Page.Limit)
	assert.Len(t, m.Result().Rows, 4)

	m = press(t, m, runes("n"))
	assert.Equal(t, 50, m.Query().Page.Limit)
}

func TestStockOverlayColumn(t *testing.T) {
	m := New(context.Background(), ranking.AdRecommendations, adRows(), WithThresholds(model.DefaultThresholds()))

	require.Greater(t, len(m.columns), 1)
	assert.Equal(t, classification.DisplayTagField, m.columns[1].Key)

	byKey := map[string]string{}
	for _, r := range m.Result().Rows {
		byKey[r.Text("style_key")] = r.Text(classification.DisplayTagField)
	}
	assert.Equal(t, string(model.TagNoStock), byKey["ST-C"])

	// The overlay column is display-only.
	m = press(t, m, runes("l"), runes("s"))
	assert.Equal(t, ranking.AdRecommendations.DefaultSort, m.Query().Sort)
}

func TestExport(t *testing.T) {
	var exported []model.Row
	var filters model.Filters
	fn := func(_ context.Context, f model.Filters, rows []model.Row) (export.Result, error) {
		filters = f
		exported = rows
		return export.Result{Path: "/tmp/out.csv", Rows: len(rows)}, nil
	}

	m := New(context.Background(), ranking.AdRecommendations, adRows(),
		WithExport(fn),
		WithQuery(model.ViewQuery{Page: model.Page{Limit: 1}}),
	)

	_, cmd := m.Update(runes("e"))
	require.NotNil(t, cmd)
	msg := cmd()

	// Export writes every filtered row, not just the visible page.
	assert.Equal(t, []string{"ST-B", "ST-C", "ST-A", "ST-D"}, styleKeys(exported))
	assert.Equal(t, model.Filters{}, filters)

	m = press(t, m, msg)
	assert.Equal(t, statusSuccess, m.statusKind)
	assert.Contains(t, m.status, "Exported 4 rows to /tmp/out.csv")
}

func TestExportPassesActiveFilters(t *testing.T) {
	var filters model.Filters
	var exported []model.Row
	fn := func(_ context.Context, f model.Filters, rows []model.Row) (export.Result, error) {
		filters = f
		exported = rows
		return export.Result{Path: "/tmp/out.csv", Rows: len(rows)}, nil
	}

	m := New(context.Background(), ranking.AdRecommendations, adRows(), WithExport(fn))
	m = press(t, m, runes("z"))

	_, cmd := m.Update(runes("e"))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, model.Filters{ZeroSalesOnly: true}, filters)
	assert.Equal(t, []string{"ST-C", "ST-D"}, styleKeys(exported))
}

func TestExportOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		msg    exportDoneMsg
		want   string
		status statusKind
	}{
		{name: "failure", msg: exportDoneMsg{err: errors.New("disk full")}, status: statusError, want: "Export failed: disk full"},
		{name: "skipped", msg: exportDoneMsg{result: export.Result{Skipped: true}}, status: statusInfo, want: "No rows to export"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(context.Background(), ranking.AdRecommendations, nil)
			m = press(t, m, tt.msg)
			assert.Equal(t, tt.status, m.statusKind)
			assert.Equal(t, tt.want, m.status)
		})
	}
}

func TestExportUnavailable(t *testing.T) {
	m := New(context.Background(), ranking.AdRecommendations, adRows())

	next, cmd := m.Update(runes("e"))
	assert.Nil(t, cmd)
	assert.Contains(t, next.(Model).status, "not available")
}

func TestQuit(t *testing.T) {
	m := New(context.Background(), ranking.AdRecommendations, adRows())

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestView(t *testing.T) {
	m := New(context.Background(), ranking.AdRecommendations, adRows(), WithTitle("Ads recommendations"))
	m = press(t, m, tea.WindowSizeMsg{Width: 160, Height: 40}, runes("?"))

	out := m.View()
	assert.Contains(t, out, "Ads recommendations")
	assert.Contains(t, out, "sorted by tag ASC")
	assert.Contains(t, out, "Tag: ALL")
	assert.Contains(t, out, "ST-B")
	assert.Contains(t, out, "Showing 4 of 4 rows")
	assert.Contains(t, out, "zero sales only")
}
