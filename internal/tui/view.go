package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
)

const railWidth = 18

func (a *App) View() string {
	width, height := a.width, a.height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}

	header := a.renderHeader(width)
	footer := lipgloss.JoinVertical(lipgloss.Left, a.renderStatus(width), a.help.View(a.keys))
	bodyH := max(1, height-lipgloss.Height(header)-lipgloss.Height(footer))

	var body string
	switch {
	case len(a.snap.Tabs) == 0:
		body = a.renderEmpty(width, bodyH)
	case a.snap.Collapsed:
		body = a.renderRail(width, bodyH)
	default:
		body = a.renderPanel(width, bodyH)
	}
	switch a.modal {
	case modalPicker:
		body = lipgloss.Place(width, bodyH, lipgloss.Center, lipgloss.Center, a.renderPicker())
	case modalConfirm:
		body = lipgloss.Place(width, bodyH, lipgloss.Center, lipgloss.Center, a.renderConfirm())
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func tabLabel(t formstack.Tab) string {
	label := t.Title
	if label == "" {
		label = t.FormType
	}
	if t.ParentID != "" {
		label = "↳ " + label
	}
	if !t.IsSaved {
		label += unsavedStyle.Render(" ●")
	}
	return label
}

func (a *App) renderHeader(width int) string {
	parts := []string{headerAppStyle.Render("PLM")}
	if !a.snap.Collapsed {
		for _, t := range a.snap.Tabs {
			if t.ID == a.snap.ActiveID {
				parts = append(parts, activeTabStyle.Render(tabLabel(t)))
			} else {
				parts = append(parts, inactiveTabStyle.Render(tabLabel(t)))
			}
		}
	} else if n := len(a.snap.Tabs); n > 0 {
		parts = append(parts, inactiveTabStyle.Render(fmt.Sprintf("%d open", n)))
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	return headerBarStyle.Width(width).MaxWidth(width).MaxHeight(1).Render(line)
}

func (a *App) renderEmpty(width, height int) string {
	msg := emptyStyle.Render("No open forms.\nctrl+o starts a new sales order.")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)
}

func (a *App) renderPanel(width, height int) string {
	var body string
	switch a.panel.Status() {
	case formstack.PanelLoading:
		body = emptyStyle.Render("Loading " + a.panel.FormType() + "...")
	case formstack.PanelNotFound:
		body = missingStyle.Render(fmt.Sprintf("No form is registered for %q.", a.panel.FormType())) +
			"\n" + emptyStyle.Render("ctrl+w closes this tab.")
	case formstack.PanelReady:
		if form, ok := a.mounted[a.panel.TabID()]; ok {
			body = form.View(width, height)
		}
	}
	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).Render(body)
}

// renderRail shows the collapsed stack: one short entry per tab, the form
// bodies stay mounted but hidden.
func (a *App) renderRail(width, height int) string {
	var lines []string
	for _, t := range a.snap.Tabs {
		title := t.Title
		if title == "" {
			title = t.FormType
		}
		if r := []rune(title); len(r) > railWidth-4 {
			title = string(r[:railWidth-5]) + "…"
		}
		if !t.IsSaved {
			title += unsavedStyle.Render(" ●")
		}
		if t.ID == a.snap.ActiveID {
			lines = append(lines, railActiveStyle.Render("▌ ")+title)
		} else {
			lines = append(lines, railStyleOff.Render("  ")+title)
		}
	}
	rail := railStyle.Width(railWidth).Height(height).Render(strings.Join(lines, "\n"))
	hint := emptyStyle.Render("collapsed  ctrl+b expands")
	rest := lipgloss.Place(max(1, width-lipgloss.Width(rail)), height, lipgloss.Center, lipgloss.Center, hint)
	return lipgloss.JoinHorizontal(lipgloss.Top, rail, rest)
}

func (a *App) renderPicker() string {
	if a.picker == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Open tabs") + "  " + emptyStyle.Render("filter: ") + a.picker.query + "\n")
	section := ""
	for i, it := range a.picker.filtered {
		if it.Section != section {
			section = it.Section
			b.WriteString(emptyStyle.Render(section) + "\n")
		}
		cursor := "  "
		if i == a.picker.cursor {
			cursor = "▶ "
		}
		label := it.Label
		if t, ok := a.snap.Tab(it.ID); ok {
			label = tabLabel(t)
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, label, emptyStyle.Render(it.Meta)))
	}
	if len(a.picker.filtered) == 0 {
		b.WriteString(emptyStyle.Render("no matching tabs") + "\n")
	}
	b.WriteString(emptyStyle.Render("[enter] switch  [esc] close"))
	return modalStyle.Render(b.String())
}

func (a *App) renderConfirm() string {
	title := ""
	if t, ok := a.snap.Tab(a.confirmID); ok {
		title = t.Title
	}
	text := modalTitleStyle.Render("Close unsaved form?") + "\n" +
		title + " has changes that were not saved.\n" +
		"[y] Discard  [n] Keep editing"
	return modalStyle.Render(text)
}

func (a *App) renderStatus(width int) string {
	msg := strings.TrimSpace(a.status)
	if msg == "" {
		msg = "Ready"
	}
	msg = strings.ReplaceAll(msg, "\n", " ")
	style := statusBarStyle
	if a.statusErr {
		style = statusErrBarStyle
	}
	return style.Width(width).MaxWidth(width).MaxHeight(1).Render(msg)
}
