package main

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/host"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numberStyle  = cellStyle.Foreground(lipgloss.Color("#87CEEB")).Align(lipgloss.Right)
	errCellStyle = cellStyle.Foreground(lipgloss.Color("#FF6B6B"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// renderMatrix draws m as a grid with R1C1 row and column labels.
func renderMatrix(m *cellmatrix.CellMatrix) string {
	headers := make([]string, m.Columns()+1)
	for j := 0; j < m.Columns(); j++ {
		headers[j+1] = "C" + strconv.Itoa(j+1)
	}
	rows := make([][]string, m.Rows())
	for i := range rows {
		row := make([]string, m.Columns()+1)
		row[0] = "R" + strconv.Itoa(i+1)
		for j := 0; j < m.Columns(); j++ {
			row[j+1] = m.At(i, j).String()
		}
		rows[i] = row
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || col == 0 {
				return headerStyle
			}
			switch m.At(row, col-1).Kind() {
			case cellmatrix.KindNumber:
				return numberStyle
			case cellmatrix.KindError:
				return errCellStyle
			}
			return cellStyle
		}).
		String()
}

// renderFunctions lists host registrations with their type text.
func renderFunctions(regs []host.Registration) string {
	rows := make([][]string, len(regs))
	for i, r := range regs {
		rows[i] = []string{r.Name, r.TypeText, strings.Join(r.ArgumentNames, ", "), r.Help}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Function", "Type", "Arguments", "Help").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}
