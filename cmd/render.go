package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/aggregator"
)

var (
	headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell       = lipgloss.NewStyle().Padding(0, 1)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	typeColors = map[domain.SignalType]lipgloss.Color{
		domain.SignalBuy:  lipgloss.Color("10"),
		domain.SignalSell: lipgloss.Color("9"),
		domain.SignalHold: lipgloss.Color("11"),
	}
)

// renderBatch formats a batch as a terminal table followed by the failed symbols.
func renderBatch(b aggregator.Batch) string {
	sigs := b.Signals()
	rows := make([][]string, 0, len(sigs))
	for _, s := range sigs {
		rows = append(rows, []string{
			s.Symbol,
			s.Market.String(),
			string(s.Type),
			fmt.Sprintf("%.1f%%", s.Confidence),
			s.Price.String(),
			s.TakeProfit.String(),
			s.StopLoss.String(),
			s.Indicator,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SYMBOL", "MARKET", "SIGNAL", "CONFIDENCE", "PRICE", "TAKE PROFIT", "STOP LOSS", "METHOD").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			if col == 2 && row >= 0 && row < len(sigs) {
				return cell.Foreground(typeColors[sigs[row].Type])
			}
			return cell
		})

	var sb strings.Builder
	sb.WriteString(t.String())
	for _, r := range b.Results {
		if r.Err != nil {
			sb.WriteString("\n")
			sb.WriteString(errorStyle.Render(fmt.Sprintf("%s: %v", r.Symbol, r.Err)))
		}
	}
	return sb.String()
}
