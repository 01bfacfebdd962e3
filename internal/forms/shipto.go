package forms

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/catalog"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
)

var shipToFields = []struct{ key, label string }{
	{"code", "Code"},
	{"name", "Name"},
	{"address", "Address"},
	{"city", "City"},
}

// ShipTo creates a delivery address for the customer in its form data and
// completes with the saved address.
type ShipTo struct {
	deps  Deps
	props Props

	inputs []textinput.Model
	focus  int
	errs   catalog.ValidationErrors
	saving bool
}

// NewShipTo builds the address form.
func NewShipTo(props Props, deps Deps) Form {
	f := &ShipTo{deps: deps}
	for i, fld := range shipToFields {
		in := textinput.New()
		in.Prompt = fld.label + ": "
		if i == 0 {
			in.Focus()
		}
		f.inputs = append(f.inputs, in)
	}
	f.Reload(props)
	return f
}

type shipToSavedMsg struct {
	tab formstack.TabID
	st  repository.ShipTo
	err error
}

func (m shipToSavedMsg) Target() formstack.TabID { return m.tab }

func (f *ShipTo) Init() tea.Cmd { return textinput.Blink }

func (f *ShipTo) Reload(props Props) {
	f.props = props
	for i, fld := range shipToFields {
		if v := props.FormData.String(fld.key); v != "" {
			f.inputs[i].SetValue(v)
		}
	}
}

func (f *ShipTo) values() formstack.FormData {
	data := formstack.FormData{"customerNo": f.props.FormData.String("customerNo")}
	for i, fld := range shipToFields {
		data[fld.key] = strings.TrimSpace(f.inputs[i].Value())
	}
	return data
}

func (f *ShipTo) Update(msg tea.Msg) (Form, tea.Cmd) {
	switch m := msg.(type) {
	case shipToSavedMsg:
		f.saving = false
		if m.err != nil {
			return f, emit(StatusMsg{Text: "save ship-to: " + m.err.Error(), IsErr: true})
		}
		return f, complete(f.props.TabID, formstack.CompletionSave, formstack.FormData{
			"customerNo": m.st.CustomerNo,
			"code":       m.st.Code,
			"name":       m.st.Name,
			"address":    m.st.Address,
			"city":       m.st.City,
		})
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
		case "enter":
			return f, f.save()
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *ShipTo) save() tea.Cmd {
	if f.saving {
		return nil
	}
	data := f.values()
	f.errs = validate(f.deps, TypeShipTo, data)
	if data.String("customerNo") == "" {
		if f.errs == nil {
			f.errs = catalog.ValidationErrors{}
		}
		f.errs["customerNo"] = "no customer selected"
	}
	if len(f.errs) > 0 || f.deps.Orders == nil {
		return nil
	}
	f.saving = true
	st := repository.ShipTo{
		CustomerNo: data.String("customerNo"),
		Code:       data.String("code"),
		Name:       data.String("name"),
		Address:    data.String("address"),
		City:       data.String("city"),
	}
	tab, ctx, orders := f.props.TabID, f.deps.context(f.props.TabID), f.deps.Orders
	return func() tea.Msg {
		if err := orders.AddShipTo(ctx, st); err != nil {
			return shipToSavedMsg{tab: tab, err: err}
		}
		st.Code = strings.ToUpper(st.Code)
		return shipToSavedMsg{tab: tab, st: st}
	}
}

func (f *ShipTo) View(width, height int) string {
	lines := []string{titleStyle.Render("New Ship-to Address"),
		labelStyle.Render("Customer: ") + f.props.FormData.String("customerNo")}
	for _, in := range f.inputs {
		lines = append(lines, in.View())
	}
	lines = append(lines, renderErrors(f.errs)...)
	if f.saving {
		lines = append(lines, helpStyle.Render("saving..."))
	}
	lines = append(lines, "", helpStyle.Render("enter: save  esc: cancel  tab: next field"))
	return joinLines(lines...)
}
