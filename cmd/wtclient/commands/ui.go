package commands

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ethereum/go-ethereum/common"

	"github.com/windingtree/wt-client/internal/codec"
	"github.com/windingtree/wt-client/pkg/types"
)

// column is a table column. Amounts and counts align right.
type column struct {
	title string
	right bool
}

func left(title string) column  { return column{title: title} }
func right(title string) column { return column{title: title, right: true} }

// StatusBox renders a titled box with key-value fields. Empty values show
// as "-".
//
//	StatusBox("Quote", [][2]string{{"Unit", "0x5290..."}, {"Total", "240.00 USD"}})
func StatusBox(title string, fields [][2]string) string {
	if !isTTY() {
		return statusBoxPlain(title, fields)
	}

	var sb strings.Builder
	sb.WriteString(StyleHeader.Render(title))
	for _, f := range fields {
		sb.WriteString("\n" + StyleLabel.Render(f[0]) + StyleValue.Render(orDash(f[1])))
	}
	return StyleBox.Render(sb.String())
}

func statusBoxPlain(title string, fields [][2]string) string {
	var sb strings.Builder
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("=", len(title)) + "\n")
	for _, f := range fields {
		fmt.Fprintf(&sb, "%-16s %s\n", f[0]+":", orDash(f[1]))
	}
	return sb.String()
}

// RenderTable renders rows under cols, styled on a terminal.
func RenderTable(cols []column, rows [][]string) string {
	if !isTTY() {
		return renderTablePlain(cols, rows)
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.title
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorDim)).
		StyleFunc(func(row, col int) lipgloss.Style {
			var s lipgloss.Style
			switch {
			case row == table.HeaderRow:
				s = StyleTableHeader
			case row%2 == 0:
				s = StyleTableRow
			default:
				s = StyleTableRowAlt
			}
			if col < len(cols) && cols[col].right {
				s = s.Align(lipgloss.Right)
			}
			return s
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}

func renderTablePlain(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c.title)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, 0, len(cols))
		for i, cell := range cells {
			if i >= len(cols) {
				break
			}
			if cols[i].right {
				parts = append(parts, fmt.Sprintf("%*s", widths[i], cell))
			} else {
				parts = append(parts, fmt.Sprintf("%-*s", widths[i], cell))
			}
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ") + "\n"
	}

	var sb strings.Builder
	titles := make([]string, len(cols))
	rules := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.title
		rules[i] = strings.Repeat("-", widths[i])
	}
	sb.WriteString(line(titles))
	sb.WriteString(line(rules))
	for _, row := range rows {
		sb.WriteString(line(row))
	}
	return sb.String()
}

// addressCell shortens an address for table cells.
func addressCell(addr common.Address) string {
	return FormatAddress(addr.Hex())
}

// priceCell formats a fiat amount with its currency. Unset prices show as "-".
func priceCell(v *big.Int, currency string) string {
	if v == nil {
		return "-"
	}
	if currency == "" {
		return codec.FormatPrice(v)
	}
	return codec.FormatPrice(v) + " " + currency
}

// tokenCell formats a token amount. Unset amounts show as "-".
func tokenCell(v *big.Int) string {
	if v == nil {
		return "-"
	}
	return codec.FormatToken(v)
}

// stayCell shows a day range as its check-in date and night count.
func stayCell(r types.DayRange) string {
	unit := "nights"
	if r.Count == 1 {
		unit = "night"
	}
	return fmt.Sprintf("%s (%d %s)", codec.FormatDay(r.From), r.Count, unit)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type noticeKind int

const (
	noticeSuccess noticeKind = iota
	noticeWarning
	noticeInfo
)

var notices = map[noticeKind]struct {
	style lipgloss.Style
	tag   string
}{
	noticeSuccess: {StyleSuccess, "[OK]"},
	noticeWarning: {StyleWarning, "[WARN]"},
	noticeInfo:    {StyleInfo, "[INFO]"},
}

func notice(kind noticeKind, msg string) {
	n := notices[kind]
	if isTTY() {
		fmt.Println(n.style.Render("  " + msg))
		return
	}
	fmt.Println(n.tag + " " + msg)
}

// Success prints a success message.
func Success(msg string) { notice(noticeSuccess, msg) }

// Warning prints a warning message.
func Warning(msg string) { notice(noticeWarning, msg) }

// Info prints an informational message.
func Info(msg string) { notice(noticeInfo, msg) }

// FormatAddress truncates an address for display.
func FormatAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// Hint renders a dim suggestion, indented under the preceding message.
func Hint(msg string) string {
	if !isTTY() {
		return "  " + msg
	}
	return "  " + StyleDim.Render(msg)
}
