package forms

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/catalog"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
)

var (
	colorText    lipgloss.Color = "#cdd6f4"
	colorMuted   lipgloss.Color = "#a6adc8"
	colorAccent  lipgloss.Color = "#89b4fa"
	colorSuccess lipgloss.Color = "#a6e3a1"
	colorError   lipgloss.Color = "#f38ba8"

	titleStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	cursorStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	rowStyle    = lipgloss.NewStyle().Foreground(colorText)
	errStyle    = lipgloss.NewStyle().Foreground(colorError)
	okStyle     = lipgloss.NewStyle().Foreground(colorSuccess)
	helpStyle   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	stepStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	stepOnStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Underline(true)
)

func renderErrors(errs catalog.ValidationErrors) []string {
	if len(errs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, errStyle.Render("! "+f+": "+errs[f]))
	}
	return out
}

func marker(selected bool) string {
	if selected {
		return cursorStyle.Render("▶")
	}
	return " "
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func money(symbol string, v float64) string {
	return fmt.Sprintf("%s%.2f", symbol, v)
}

// fieldText reads a value persisted either as typed text or as a number.
func fieldText(d formstack.FormData, key string) string {
	switch v := d[key].(type) {
	case string:
		return v
	case float64, int, int64:
		return formatAmount(d.Float(key))
	default:
		return ""
	}
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n")
}
