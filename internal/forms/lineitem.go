package forms

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/catalog"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
)

const (
	lineFieldItem = iota
	lineFieldQty
	lineFieldPrice
)

// LineItem captures one order line. Its completion result is
// {itemNo, description, quantity, unitPrice, amount}.
type LineItem struct {
	deps  Deps
	props Props

	inputs      []textinput.Model
	focus       int
	description string
	errs        catalog.ValidationErrors
	resolving   bool
}

// NewLineItem builds the line form from the tab's stored fields.
func NewLineItem(props Props, deps Deps) Form {
	labels := []string{"Item no", "Quantity", "Unit price"}
	f := &LineItem{deps: deps}
	for i, label := range labels {
		in := textinput.New()
		in.Prompt = label + ": "
		if i == lineFieldItem {
			in.Focus()
		}
		f.inputs = append(f.inputs, in)
	}
	f.Reload(props)
	return f
}

type lineResolvedMsg struct {
	tab  formstack.TabID
	item repository.Item
	err  error
}

func (m lineResolvedMsg) Target() formstack.TabID { return m.tab }

func (f *LineItem) Init() tea.Cmd { return textinput.Blink }

// Reload fills the inputs from stored data, e.g. after an item was selected.
func (f *LineItem) Reload(props Props) {
	f.props = props
	data := props.FormData
	f.inputs[lineFieldItem].SetValue(data.String("itemNo"))
	f.inputs[lineFieldQty].SetValue(fieldText(data, "quantity"))
	f.inputs[lineFieldPrice].SetValue(fieldText(data, "unitPrice"))
	f.description = data.String("description")
}

// draft holds the raw input text so a half-typed quantity survives a round trip
// through the item selector.
func (f *LineItem) draft() formstack.FormData {
	return formstack.FormData{
		"itemNo":      strings.TrimSpace(f.inputs[lineFieldItem].Value()),
		"description": f.description,
		"quantity":    f.inputs[lineFieldQty].Value(),
		"unitPrice":   f.inputs[lineFieldPrice].Value(),
	}
}

func (f *LineItem) Update(msg tea.Msg) (Form, tea.Cmd) {
	switch m := msg.(type) {
	case lineResolvedMsg:
		f.resolving = false
		if m.err != nil {
			if errors.Is(m.err, repository.ErrNotFound) {
				f.errs = catalog.ValidationErrors{"itemNo": "unknown item"}
				return f, nil
			}
			return f, emit(StatusMsg{Text: "item lookup: " + m.err.Error(), IsErr: true})
		}
		f.description = m.item.Description
		if strings.TrimSpace(f.inputs[lineFieldPrice].Value()) == "" {
			f.inputs[lineFieldPrice].SetValue(formatAmount(float64(m.item.UnitPriceCents) / 100))
		}
		return f, f.finish()
	case tea.KeyMsg:
		switch m.String() {
		case "esc":
			return f, cancel(f.props.TabID)
		case "tab", "shift+tab":
			dir := 1
			if m.String() == "shift+tab" {
				dir = -1
			}
			f.inputs[f.focus].Blur()
			f.focus = (f.focus + dir + len(f.inputs)) % len(f.inputs)
			return f, f.inputs[f.focus].Focus()
		case "ctrl+f":
			return f, f.openSelector()
		case "enter":
			return f, f.submit()
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *LineItem) openSelector() tea.Cmd {
	f.deps.Host.UpdateFormData(f.props.TabID, f.draft())
	req := childRequest(f.deps, TypeItemSelector,
		formstack.FormData{"query": f.inputs[lineFieldItem].Value()}, ApplyItemSelection)
	if _, err := f.deps.Host.OpenChild(f.props.TabID, TypeItemSelector, req); err != nil {
		return emit(StatusMsg{Text: err.Error(), IsErr: true})
	}
	return nil
}

// values parses the numeric inputs. Unparseable text is left out so the
// catalog rules report the field.
func (f *LineItem) values() formstack.FormData {
	data := formstack.FormData{
		"itemNo":      strings.TrimSpace(f.inputs[lineFieldItem].Value()),
		"description": f.description,
	}
	if q, ok := parseAmount(f.inputs[lineFieldQty].Value()); ok {
		data["quantity"] = q
	}
	if p, ok := parseAmount(f.inputs[lineFieldPrice].Value()); ok {
		data["unitPrice"] = p
	}
	return data
}

func (f *LineItem) submit() tea.Cmd {
	if f.resolving {
		return nil
	}
	data := f.values()
	f.errs = validate(f.deps, TypeLineItem, data)
	if len(f.errs) > 0 {
		return nil
	}
	if f.deps.Items == nil || f.description != "" {
		return f.finish()
	}
	f.resolving = true
	tab, ctx, items, no := f.props.TabID, f.deps.context(f.props.TabID), f.deps.Items, data.String("itemNo")
	return func() tea.Msg {
		item, err := items.Get(ctx, no)
		return lineResolvedMsg{tab: tab, item: item, err: err}
	}
}

func (f *LineItem) finish() tea.Cmd {
	data := f.values()
	f.errs = validate(f.deps, TypeLineItem, data)
	if len(f.errs) > 0 {
		return nil
	}
	q, p := data.Float("quantity"), data.Float("unitPrice")
	data["quantity"] = q
	data["unitPrice"] = p
	data["amount"] = q * p
	return complete(f.props.TabID, formstack.CompletionSave, data)
}

func (f *LineItem) View(width, height int) string {
	lines := []string{titleStyle.Render("Line Item")}
	for _, in := range f.inputs {
		lines = append(lines, in.View())
	}
	if f.description != "" {
		lines = append(lines, labelStyle.Render("Description: ")+f.description)
	}
	if q, ok := parseAmount(f.inputs[lineFieldQty].Value()); ok {
		if p, ok := parseAmount(f.inputs[lineFieldPrice].Value()); ok {
			lines = append(lines, labelStyle.Render("Amount: ")+money(f.deps.Currency, q*p))
		}
	}
	lines = append(lines, renderErrors(f.errs)...)
	if f.resolving {
		lines = append(lines, helpStyle.Render("checking item..."))
	}
	lines = append(lines, "", helpStyle.Render("enter: save  esc: cancel  tab: next field  ctrl+f: find item"))
	return joinLines(lines...)
}
