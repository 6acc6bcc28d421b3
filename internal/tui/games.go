package tui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/blackjack/internal/blackjack"
)

// RenderGameList renders game summaries as a bordered table
func RenderGameList(games []blackjack.Summary) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(InfoStyle).
		Headers("ID", "NAME", "STATUS", "PLAYERS").
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Inherit(ActionsStyle)
			}
			return s
		})

	for _, g := range games {
		t.Row(g.ID, g.Name, g.Status.String(), strconv.Itoa(g.Players))
	}
	return t.Render()
}
