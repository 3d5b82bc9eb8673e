package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/merchctl/internal/cli"
)

// View implements tea.Model.
func (m Model) View() string {
	theme := m.cfg.Theme
	var b strings.Builder

	b.WriteString(theme.Title.Render(m.cfg.Title))
	b.WriteString("  ")
	b.WriteString(theme.Subtitle.Render("sorted by " + m.query.Sort.String()))
	b.WriteString("\n")
	b.WriteString(m.filtersView())
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(cli.Counts(m.result.Visible(), len(m.result.Filtered), m.result.Total))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(m.statusView())
		b.WriteString("\n")
	}

	b.WriteString(theme.Footer.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) filtersView() string {
	theme := m.cfg.Theme
	label := func(name, value string) string {
		return theme.FilterLabel.Render(name+": ") + theme.FilterValue.Render(value)
	}

	zero := "off"
	if m.query.Filters.ZeroSalesOnly {
		zero = "on"
	}
	limit := "all"
	if m.query.Page.Limit > 0 {
		limit = fmt.Sprintf("%d", m.query.Page.Limit)
	}

	parts := []string{
		label("Tag", m.currentTag()),
		label("Zero sales", zero),
		label("Rows", limit),
	}
	if s := strings.TrimSpace(m.query.Filters.Search); s != "" && !m.searching {
		parts = append(parts, label("Search", fmt.Sprintf("%q", s)))
	}
	return strings.Join(parts, "   ")
}

func (m Model) statusView() string {
	theme := m.cfg.Theme
	switch m.statusKind {
	case statusError:
		return theme.StatusError.Render(cli.ErrorIcon + " " + m.status)
	case statusSuccess:
		return theme.StatusSuccess.Render(cli.SuccessIcon + " " + m.status)
	default:
		return theme.StatusInfo.Render(m.status)
	}
}
