package formatter

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/lzray/focustrace/internal/util"
)

// Most recent switches shown in the table.
const maxSwitchRows = 20

type TableFormatter struct {
	headers []string
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		headers: []string{"Time", "From", "To", "Dwell", "Type"},
	}
}

func (f *TableFormatter) Format(report Report) error {
	fmt.Printf("Productivity Report  (%s, %d events)\n\n", report.Window, report.EventCount)

	m := report.Metrics
	fmt.Printf("  Score: %.0f/100  %s\n", m.Score, m.Level)
	fmt.Printf("  Focus sessions:      %d\n", m.FocusSessions)
	fmt.Printf("  Meaningful switches: %d\n", m.MeaningfulSwitches)
	fmt.Printf("  Quick checks:        %d\n", m.QuickChecks)
	fmt.Printf("  Rapid-click bursts:  %d\n", m.RapidGroups)
	fmt.Printf("  Total focus time:    %s\n\n", util.FormatDuration(m.TotalFocusTime))

	if len(report.Switches) == 0 {
		fmt.Println("No context switches recorded.")
		return nil
	}

	switches := report.Switches
	if len(switches) > maxSwitchRows {
		switches = switches[len(switches)-maxSwitchRows:]
	}

	nameWidth := f.nameColumnWidth()
	rows := make([][]string, 0, len(switches))
	for _, s := range switches {
		rows = append(rows, []string{
			s.Timestamp.Local().Format("01-02 15:04:05"),
			runewidth.Truncate(s.FromAppName, nameWidth, "…"),
			runewidth.Truncate(s.ToAppName, nameWidth, "…"),
			util.FormatDuration(time.Duration(s.TimeSpent * float64(time.Second))),
			string(s.SwitchType),
		})
	}

	widths := f.columnWidths(rows)
	f.printRow(f.headers, widths)
	f.printSeparator(widths)
	for _, row := range rows {
		f.printRow(row, widths)
	}
	return nil
}

// nameColumnWidth sizes the app-name columns from the terminal width
func (f *TableFormatter) nameColumnWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	// Time, dwell and type columns plus separators take roughly 40 cells.
	nameWidth := (width - 40) / 2
	if nameWidth < 10 {
		nameWidth = 10
	}
	return nameWidth
}

func (f *TableFormatter) columnWidths(rows [][]string) []int {
	widths := make([]int, len(f.headers))
	for i, h := range f.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func (f *TableFormatter) printRow(cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = runewidth.FillRight(cell, widths[i])
	}
	fmt.Println("  " + strings.Join(parts, "  "))
}

func (f *TableFormatter) printSeparator(widths []int) {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w)
	}
	fmt.Println("  " + strings.Join(parts, "  "))
}
