package forms

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
)

// ItemSelector searches the item master and completes with a select event
// carrying {itemNo, description, unitPrice}.
type ItemSelector struct {
	deps  Deps
	props Props

	query   textinput.Model
	results []repository.Item
	cursor  int
	seq     uint64
	err     error
}

// NewItemSelector builds the selector, seeding the query from the tab.
func NewItemSelector(props Props, deps Deps) Form {
	f := &ItemSelector{deps: deps, query: textinput.New()}
	f.query.Prompt = "Search: "
	f.query.Placeholder = "item no or description"
	f.query.Focus()
	f.Reload(props)
	return f
}

type searchResultMsg struct {
	tab   formstack.TabID
	seq   uint64
	items []repository.Item
	err   error
}

func (m searchResultMsg) Target() formstack.TabID { return m.tab }

func (f *ItemSelector) Init() tea.Cmd { return f.search() }

func (f *ItemSelector) Reload(props Props) {
	f.props = props
	f.query.SetValue(props.FormData.String("query"))
}

func (f *ItemSelector) search() tea.Cmd {
	if f.deps.Items == nil {
		return nil
	}
	f.seq++
	tab, seq, ctx, items, q := f.props.TabID, f.seq, f.deps.context(f.props.TabID), f.deps.Items, f.query.Value()
	return func() tea.Msg {
		list, err := items.Search(ctx, q)
		return searchResultMsg{tab: tab, seq: seq, items: list, err: err}
	}
}

func (f *ItemSelector) Update(msg tea.Msg) (Form, tea.Cmd) {
	switch m := msg.(type) {
	case searchResultMsg:
		// Results for an older query are dropped.
		if m.seq != f.seq {
			return f, nil
		}
		f.err = m.err
		f.results = m.items
		f.cursor = 0
		return f, nil
	case tea.KeyMsg:
		switch m.String() {
		case "esc":
			return f, cancel(f.props.TabID)
		case "up":
			if f.cursor > 0 {
				f.cursor--
			}
			return f, nil
		case "down":
			if f.cursor < len(f.results)-1 {
				f.cursor++
			}
			return f, nil
		case "enter":
			if len(f.results) == 0 {
				return f, nil
			}
			it := f.results[f.cursor]
			return f, complete(f.props.TabID, formstack.CompletionSelect, formstack.FormData{
				"itemNo":      it.No,
				"description": it.Description,
				"unitPrice":   float64(it.UnitPriceCents) / 100,
			})
		}
	}
	before := f.query.Value()
	var cmd tea.Cmd
	f.query, cmd = f.query.Update(msg)
	if f.query.Value() != before {
		return f, tea.Batch(cmd, f.search())
	}
	return f, cmd
}

func (f *ItemSelector) View(width, height int) string {
	lines := []string{titleStyle.Render("Select Item"), f.query.View(), ""}
	if f.err != nil {
		lines = append(lines, errStyle.Render("search failed: "+f.err.Error()))
	}
	if len(f.results) == 0 && f.err == nil {
		lines = append(lines, helpStyle.Render("no matches"))
	}
	limit := len(f.results)
	if height > 6 && limit > height-6 {
		limit = height - 6
	}
	for i := 0; i < limit; i++ {
		it := f.results[i]
		lines = append(lines, fmt.Sprintf("%s %-8s %-32s %s %s", marker(i == f.cursor), it.No,
			rowStyle.Render(it.Description), money(f.deps.Currency, float64(it.UnitPriceCents)/100), strings.ToLower(it.UOM)))
	}
	lines = append(lines, "", helpStyle.Render("type to search  ↑/↓ move  enter: select  esc: cancel"))
	return joinLines(lines...)
}
